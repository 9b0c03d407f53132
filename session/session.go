// Package session owns one conversation: its history, the integrity and
// budget pipeline that runs before every model call, and the recovery
// behavior after signature rejections and cancellations.
package session

import (
	"context"
	"errors"
	"time"

	"tandem/budget"
	"tandem/failover"
	"tandem/history"
	"tandem/model"
	"tandem/provider"
	"tandem/signature"
	"tandem/telemetry"
	"tandem/tokens"
	"tandem/tools"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Session is one conversation thread. Not safe for concurrent use; the
// caller serializes turns.
type Session struct {
	ID      string
	History model.History

	// System is the system prompt sent on every request.
	System string

	// Tools is the registry replayed to the model each turn.
	Tools []tools.Record

	// OversizeTokens is the single-message drop threshold for integrity
	// filtering. Zero means history.DefaultOversizeTokens.
	OversizeTokens int

	Budget       *budget.Controller
	Orchestrator *failover.Orchestrator
	Ledger       *telemetry.Ledger
	Store        *telemetry.Store

	// lastServedBy remembers which model actually answered, so provider
	// detection survives failover renames.
	lastServedBy string

	// compactionDeferred carries a postponed compaction across turns: when a
	// summarize pass was skipped mid tool round-trip, the next turn retries
	// it before anything else.
	compactionDeferred bool
}

// TurnResult is what one completed turn produced.
type TurnResult struct {
	Response model.Message
	ServedBy string
	Usage    *model.Usage
	Decision budget.Decision
}

func New(system string, records []tools.Record) *Session {
	return &Session{
		ID:     uuid.New().String(),
		System: system,
		Tools:  records,
		Budget: &budget.Controller{
			Strategy:  budget.StrategySlidingWindow,
			Compacted: history.NewHashSet(),
		},
		Orchestrator: failover.New(failover.DefaultChain()),
	}
}

// Turn runs one full exchange: append the user message, repair and compact
// the history, invoke the model through the failover orchestrator, and fold
// the response back in. On cancellation the history is left consistent,
// with any half-completed tool round-trip pruned.
func (s *Session) Turn(ctx context.Context, invoker model.Invoker, userMsg model.Message) (*TurnResult, error) {
	s.History = append(s.History, userMsg)

	defer func() {
		// A cancelled or failed invocation can leave tool calls without
		// returns; the next turn must start from a consistent history.
		s.History = history.PruneMismatchedToolCalls(s.History)
	}()

	oversize := s.OversizeTokens
	if oversize == 0 {
		oversize = history.DefaultOversizeTokens
	}
	s.History = history.PruneMismatchedToolCalls(s.History)
	s.History = history.FilterOversized(s.History, oversize)

	key := provider.Detect(invoker.Model(), s.lastServedBy)
	prof := provider.GetProfile(key)
	overhead := tokens.EstimateOverhead(s.System, s.Tools)

	if s.compactionDeferred {
		log.Debug("retrying compaction deferred from previous turn")
	}
	working, decision := s.Budget.Process(ctx, s.History, prof, overhead)
	s.compactionDeferred = decision.Deferred
	if decision.Applied != "" && !decision.Deferred {
		// Compaction results persist; the trimmed history is the history.
		s.History = working
	}
	if decision.Warning != "" {
		log.Warn(decision.Warning)
	}

	// The oversize filter or a compaction pass can drop the trailing user
	// message; providers reject a history that ends with the assistant's own
	// response, so strip back to the last request before sending.
	working = history.EnsureEndsWithRequest(working)

	req := model.Request{
		Model:   invoker.Model(),
		System:  s.System,
		History: s.prepareForSend(working, key),
		Tools:   tools.ToMCP(s.Tools),
	}

	start := time.Now()
	res, err := s.Orchestrator.Execute(ctx, invoker, req)
	if err != nil && model.KindOf(err) == model.ErrKindSignature {
		// One rewrite-and-retry: stamp every thinking part with the bypass
		// token and resend. A second rejection propagates.
		log.WithField("model", invoker.Model()).Info("signature rejected, retrying with bypass token")
		req.History = s.prepareForSend(signature.RewriteWithBypass(working), key)
		res, err = s.Orchestrator.Execute(ctx, invoker, req)
		if err == nil {
			// The stored signatures were just proven invalid; keep the bypass
			// rewrite or every later turn replays the same rejection.
			s.History = signature.RewriteWithBypass(s.History)
		}
	}
	if err != nil {
		if model.KindOf(err) == model.ErrKindCancelled {
			return nil, err
		}
		s.recordUsage(key, invoker.Model(), nil, time.Since(start), req)
		return nil, err
	}

	resp := res.Message
	resp.Parts = signature.BackfillSignatures(resp.Parts, signature.FamilyFor(key))
	s.History = append(s.History, resp)
	s.lastServedBy = res.ServedBy

	s.recordUsage(provider.Detect(res.ServedBy, ""), res.ServedBy, res.Usage, time.Since(start), req)

	return &TurnResult{
		Response: resp,
		ServedBy: res.ServedBy,
		Usage:    res.Usage,
		Decision: decision,
	}, nil
}

// AddToolReturns appends the results of executed tool calls as a request
// message, keeping the round-trip pairing the integrity pass checks for.
func (s *Session) AddToolReturns(parts []model.Part) {
	if len(parts) == 0 {
		return
	}
	s.History = append(s.History, model.Message{
		Kind:      model.KindRequest,
		Parts:     parts,
		Timestamp: time.Now(),
	})
}

// PendingToolCalls reports how many tool calls in the last response still
// await returns.
func (s *Session) PendingToolCalls() int {
	return history.CountPendingToolCalls(s.History)
}

// prepareForSend applies the provider's signature association rule to every
// response message without mutating the stored history.
func (s *Session) prepareForSend(h model.History, key provider.Key) model.History {
	fam := signature.FamilyFor(key)
	if fam == signature.FamilySelf {
		return h
	}
	out := h.Clone()
	for i := range out {
		if out[i].Kind == model.KindResponse {
			out[i].Parts = signature.AttachSignatures(out[i].Parts, fam)
		}
	}
	return out
}

func (s *Session) recordUsage(key provider.Key, servedBy string, usage *model.Usage, latency time.Duration, req model.Request) {
	entry := telemetry.Entry{
		Timestamp: time.Now(),
		Provider:  string(key),
		Model:     servedBy,
		LatencyMS: latency.Milliseconds(),
		SessionID: s.ID,
	}
	if usage != nil {
		entry.InTokens = usage.InputTokens
		entry.OutTokens = usage.OutputTokens
	} else {
		total := tokens.Estimate(req.System) + tokens.EstimateHistory(req.History)
		entry.InTokens = total * 7 / 10
		entry.OutTokens = total - entry.InTokens
		entry.Estimated = true
	}
	entry.Total = entry.InTokens + entry.OutTokens

	if s.Ledger != nil {
		s.Ledger.Record(entry)
	}
	if s.Store != nil {
		if err := s.Store.Save(entry); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Warn("usage store: save failed")
		}
	}
}
