package budget

import (
	"tandem/history"
	"tandem/model"
	"tandem/tokens"
)

// WindowStats reports what a sliding-window pass did, for logging and
// telemetry.
type WindowStats struct {
	ExchangesBefore int
	ExchangesAfter  int
	MessagesBefore  int
	MessagesAfter   int
	TokensBefore    int
	TokensAfter     int
	SavingsPercent  float64
}

// exchange is one request plus everything up to the next request: the
// assistant's response and any tool round-trips. It is the atomic unit the
// window drops.
type exchange []model.Message

// splitExchanges partitions a history into its system messages and ordered
// exchanges. A new exchange begins at each request-kind message; any leading
// non-system messages before the first request form their own group so they
// are never silently lost.
func splitExchanges(h model.History) (system model.History, exchanges []exchange) {
	var current exchange
	for _, m := range h {
		if m.Kind == model.KindSystem {
			system = append(system, m)
			continue
		}
		if m.Kind == model.KindRequest && len(current) > 0 {
			exchanges = append(exchanges, current)
			current = nil
		}
		current = append(current, m)
	}
	if len(current) > 0 {
		exchanges = append(exchanges, current)
	}
	return system, exchanges
}

// CountExchanges returns the number of exchanges in the history.
func CountExchanges(h model.History) int {
	_, exchanges := splitExchanges(h)
	return len(exchanges)
}

// SlidingWindow keeps all system messages plus the last maxExchanges
// exchanges. When the cut splits a tool round-trip, the leading orphaned
// tool-returns in the first kept exchange are dropped: their calls went with
// a dropped exchange and replaying an unanswered return corrupts the
// protocol. Returns the input unchanged (zero savings) when already under
// the cap.
func SlidingWindow(h model.History, maxExchanges int) (model.History, WindowStats) {
	stats := WindowStats{
		MessagesBefore: len(h),
		TokensBefore:   tokens.EstimateHistory(h),
	}

	system, exchanges := splitExchanges(h)
	stats.ExchangesBefore = len(exchanges)

	if maxExchanges <= 0 || len(exchanges) <= maxExchanges {
		stats.ExchangesAfter = len(exchanges)
		stats.MessagesAfter = len(h)
		stats.TokensAfter = stats.TokensBefore
		return h, stats
	}

	kept := exchanges[len(exchanges)-maxExchanges:]
	out := make(model.History, 0, len(h))
	out = append(out, system...)
	for _, ex := range kept {
		out = append(out, ex...)
	}

	out = scrubLeadingOrphanReturns(out)
	out = history.PruneMismatchedToolCalls(out)

	stats.ExchangesAfter = CountExchanges(out)
	stats.MessagesAfter = len(out)
	stats.TokensAfter = tokens.EstimateHistory(out)
	if stats.TokensBefore > 0 {
		stats.SavingsPercent = 100 * float64(stats.TokensBefore-stats.TokensAfter) / float64(stats.TokensBefore)
	}
	return out, stats
}

// scrubLeadingOrphanReturns removes tool-return parts that precede the first
// response containing tool calls. Such returns answer calls that were
// windowed away; once a response with tool calls is seen, later returns are
// legitimate again.
func scrubLeadingOrphanReturns(h model.History) model.History {
	seenToolCalls := false
	out := make(model.History, 0, len(h))
	for _, m := range h {
		if !seenToolCalls && m.Kind == model.KindResponse && len(m.ToolCallIDs()) > 0 {
			seenToolCalls = true
		}
		if seenToolCalls || m.Kind == model.KindSystem {
			out = append(out, m)
			continue
		}

		parts := make([]model.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.Kind == model.PartToolReturn {
				continue
			}
			parts = append(parts, p)
		}
		if len(parts) == 0 {
			continue
		}
		out = append(out, model.Message{Kind: m.Kind, Parts: parts, Timestamp: m.Timestamp})
	}
	return out
}
