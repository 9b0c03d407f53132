// Package history maintains the structural integrity of a conversation
// history: matched tool-call/tool-return pairs, request-terminated histories,
// oversize filtering, and content hashing for compaction tracking.
//
// Every function here is a pure transformation and never fails: an ambiguous
// part is treated conservatively as not matched, which errs toward dropping
// a message rather than shipping a protocol-corrupting history downstream.
package history

import (
	"tandem/model"
	"tandem/tokens"
)

// DefaultOversizeTokens is the per-message token cap applied by
// FilterOversized when the caller does not configure one. A single runaway
// tool result past this size would dominate any realistic budget.
const DefaultOversizeTokens = 50000

// callIDSets collects the tool-call and tool-return id sets across a history.
// Tool parts with an empty id are counted as mismatched on their own side.
func callIDSets(h model.History) (calls, returns map[string]int) {
	calls = make(map[string]int)
	returns = make(map[string]int)
	for _, m := range h {
		for _, id := range m.ToolCallIDs() {
			calls[id]++
		}
		for _, id := range m.ToolReturnIDs() {
			returns[id]++
		}
	}
	return calls, returns
}

// mismatchedIDs returns the symmetric difference of the call and return id
// sets: every id that appears on only one side.
func mismatchedIDs(h model.History) map[string]bool {
	calls, returns := callIDSets(h)
	bad := make(map[string]bool)
	for id := range calls {
		if returns[id] == 0 {
			bad[id] = true
		}
	}
	for id := range returns {
		if calls[id] == 0 {
			bad[id] = true
		}
	}
	return bad
}

// PruneMismatchedToolCalls removes every message containing a tool part whose
// id has no counterpart on the other side. Messages are dropped whole: a
// half-removed pair corrupts the wire protocol worse than a missing exchange.
// Dropping a multi-part message can orphan its other pairs, so pruning
// repeats until the history is stable. Relative order of the remaining
// messages is preserved, and applying the function twice is a no-op.
func PruneMismatchedToolCalls(h model.History) model.History {
	for {
		bad := mismatchedIDs(h)
		if len(bad) == 0 {
			return h
		}

		out := make(model.History, 0, len(h))
		for _, m := range h {
			if messageTouchesIDs(m, bad) {
				continue
			}
			out = append(out, m)
		}
		h = out
	}
}

func messageTouchesIDs(m model.Message, ids map[string]bool) bool {
	for _, p := range m.Parts {
		if p.Kind != model.PartToolCall && p.Kind != model.PartToolReturn {
			continue
		}
		if ids[p.ToolCallID] {
			return true
		}
	}
	return false
}

// FilterOversized drops any message whose estimated size exceeds maxTokens
// (DefaultOversizeTokens when maxTokens <= 0), then re-prunes: removing a
// huge tool return orphans its call, and that orphan must not survive.
func FilterOversized(h model.History, maxTokens int) model.History {
	if maxTokens <= 0 {
		maxTokens = DefaultOversizeTokens
	}

	out := make(model.History, 0, len(h))
	dropped := false
	for _, m := range h {
		if tokens.EstimateMessage(m) > maxTokens {
			dropped = true
			continue
		}
		out = append(out, m)
	}
	if !dropped {
		return h
	}
	return PruneMismatchedToolCalls(out)
}

// EnsureEndsWithRequest strips trailing response messages so the history ends
// with a request (or is empty). Providers reject histories whose final
// message is the assistant's own.
func EnsureEndsWithRequest(h model.History) model.History {
	end := len(h)
	for end > 0 && h[end-1].Kind == model.KindResponse {
		end--
	}
	return h[:end]
}

// HasPendingToolCalls reports whether any tool call is still awaiting its
// return. Summarization is deferred while this holds: folding away the call
// message mid-round-trip would corrupt the state the model relies on.
func HasPendingToolCalls(h model.History) bool {
	return CountPendingToolCalls(h) > 0
}

// CountPendingToolCalls counts tool-call ids with no matching return yet.
func CountPendingToolCalls(h model.History) int {
	calls, returns := callIDSets(h)
	pending := 0
	for id, n := range calls {
		if returns[id] == 0 {
			pending += n
		}
	}
	return pending
}
