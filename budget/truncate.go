package budget

import (
	"tandem/history"
	"tandem/model"
	"tandem/tokens"
)

// Truncate keeps message[0], a recent tail that fits under protectedTokens,
// and, when message[1] carries a thinking part, message[1] as well: thinking
// continuation context must not be severed mid-chain for providers that
// require the chain back. The assembled result is re-pruned so no half of a
// tool pair survives the cut.
func Truncate(h model.History, protectedTokens int) model.History {
	if len(h) <= 2 {
		return h
	}

	front := 1
	if h[1].HasThinking() {
		front = 2
	}

	tail := h[front:]
	tailStart := len(tail)
	budget := protectedTokens
	for tailStart > 0 {
		cost := tokens.EstimateMessage(tail[tailStart-1])
		if cost > budget {
			break
		}
		budget -= cost
		tailStart--
	}

	out := make(model.History, 0, front+len(tail)-tailStart)
	out = append(out, h[:front]...)
	out = append(out, tail[tailStart:]...)
	return history.PruneMismatchedToolCalls(out)
}
