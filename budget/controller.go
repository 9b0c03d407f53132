// Package budget is the context-policy engine: it measures a history against
// the active provider's profile and decides whether to leave it alone,
// compact it, or warn that the caller should truncate manually.
package budget

import (
	"context"
	"fmt"

	"tandem/history"
	"tandem/model"
	"tandem/provider"
	"tandem/tokens"

	log "github.com/sirupsen/logrus"
)

// Strategy selects which compaction algorithm the controller applies when the
// threshold is crossed.
type Strategy string

const (
	StrategySlidingWindow Strategy = "sliding_window"
	StrategySummarize     Strategy = "summarize"
	StrategyTruncate      Strategy = "truncate"
)

// State is the controller's assessment of the history for this turn.
type State int

const (
	StateHealthy State = iota
	StateNeedsCompaction
	StateBlocked
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateNeedsCompaction:
		return "needs_compaction"
	case StateBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Decision reports what Process measured and did.
type Decision struct {
	State          State
	UsagePercent   float64
	MessageTokens  int
	OverheadTokens int
	TotalTokens    int

	// Applied is the strategy that ran, empty if none.
	Applied Strategy

	// Deferred is set when compaction was requested but postponed because a
	// tool round-trip is still in flight. The session re-checks next turn.
	Deferred bool

	// Warning is a non-empty advisory when usage crossed the hard-block
	// threshold. The controller never refuses to proceed: liveness over
	// strict enforcement.
	Warning string

	// WindowStats is populated when the sliding-window strategy ran.
	WindowStats *WindowStats
}

// Controller applies a provider profile's context policy to a history.
type Controller struct {
	// Strategy is the configured compaction algorithm.
	Strategy Strategy

	// Summarizer is required for StrategySummarize; with a nil summarizer
	// that strategy degrades to a no-op.
	Summarizer Summarizer

	// Compacted records the hashes of summarized-away messages.
	Compacted history.HashSet

	// ProtectedTokens is the tail budget for summarize/truncate. Zero means
	// derive from the profile's target.
	ProtectedTokens int
}

// Process measures the history against the profile and applies the configured
// strategy if usage crossed the compaction threshold. The returned history is
// the one to send; the decision says what happened and why.
func (c *Controller) Process(ctx context.Context, h model.History, prof provider.Profile, overheadTokens int) (model.History, Decision) {
	d := Decision{
		MessageTokens:  tokens.EstimateHistory(h),
		OverheadTokens: overheadTokens,
	}
	d.TotalTokens = d.MessageTokens + d.OverheadTokens
	if prof.MaxInputTokens > 0 {
		d.UsagePercent = float64(d.TotalTokens) / float64(prof.MaxInputTokens)
	}

	if d.UsagePercent >= prof.HardBlockThreshold {
		d.State = StateBlocked
		d.Warning = fmt.Sprintf(
			"context is at %.0f%% of the %d-token window; responses may be rejected until the history is truncated",
			d.UsagePercent*100, prof.MaxInputTokens,
		)
		log.WithFields(log.Fields{
			"total_tokens": d.TotalTokens,
			"max_input":    prof.MaxInputTokens,
		}).Warn("context past hard-block threshold")
	}

	if d.UsagePercent < prof.CompactionThreshold {
		if d.State != StateBlocked {
			d.State = StateHealthy
		}
		return h, d
	}
	if d.State != StateBlocked {
		d.State = StateNeedsCompaction
	}

	// Summarization mid-tool-round-trip would fold away the very call the
	// in-flight execution depends on. Window and truncate are exempt: they
	// cut on exchange boundaries and re-prune unmatched chains themselves.
	if c.Strategy == StrategySummarize && history.HasPendingToolCalls(h) {
		d.Deferred = true
		log.WithField("pending", history.CountPendingToolCalls(h)).
			Debug("compaction deferred until tool round-trip resolves")
		return h, d
	}

	protected := c.ProtectedTokens
	if protected <= 0 {
		protected = prof.TargetInputTokens / 2
	}

	switch c.Strategy {
	case StrategySlidingWindow:
		out, stats := SlidingWindow(h, prof.MaxExchanges)
		d.Applied = StrategySlidingWindow
		d.WindowStats = &stats
		log.WithFields(log.Fields{
			"exchanges_before": stats.ExchangesBefore,
			"exchanges_after":  stats.ExchangesAfter,
			"savings_percent":  fmt.Sprintf("%.1f", stats.SavingsPercent),
		}).Info("sliding-window compaction applied")
		return out, d

	case StrategySummarize:
		out, source := Summarize(ctx, h, protected, c.Summarizer, c.Compacted)
		if len(source) > 0 {
			d.Applied = StrategySummarize
			log.WithField("summarized_messages", len(source)).Info("summarization compaction applied")
		}
		return out, d

	case StrategyTruncate:
		out := Truncate(h, protected)
		d.Applied = StrategyTruncate
		return out, d

	default:
		return h, d
	}
}
