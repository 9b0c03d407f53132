package budget

import (
	"context"

	"tandem/history"
	"tandem/model"
	"tandem/tokens"

	log "github.com/sirupsen/logrus"
)

// Summarizer is the external collaborator that folds old messages into a
// short summary. It is treated as unreliable: any failure degrades to
// skipping compaction for this turn.
type Summarizer interface {
	Summarize(ctx context.Context, instructions string, messages []model.Message) ([]model.Message, error)
}

// summaryInstructions is the fixed instruction handed to the summarizer.
const summaryInstructions = "Compact this tool-call-heavy conversation history into a bulleted list. " +
	"Preserve the high-level steps taken, decisions made, and their outcomes. " +
	"Drop bulk tool-result content; keep only conclusions drawn from it."

// Summarize replaces everything between the system prompt and a protected
// recent tail with summarizer output. The tail is the literal suffix of the
// input that fits under protectedTokenBudget; message[0] is always kept
// untouched. Every summarized source message's hash is recorded in compacted
// so later merges never resurrect it.
//
// On summarizer failure the original history is returned with a nil source
// list; compaction simply does not happen this turn.
func Summarize(ctx context.Context, h model.History, protectedTokenBudget int, s Summarizer, compacted history.HashSet) (model.History, []model.Message) {
	if len(h) < 3 || s == nil {
		return h, nil
	}

	// Backward scan: the protected tail is the longest suffix that fits.
	tailStart := len(h)
	budget := protectedTokenBudget
	for tailStart > 1 {
		cost := tokens.EstimateMessage(h[tailStart-1])
		if cost > budget {
			break
		}
		budget -= cost
		tailStart--
	}

	source := h[1:tailStart]
	if len(source) == 0 {
		return h, nil
	}

	summary, err := s.Summarize(ctx, summaryInstructions, source)
	if err != nil {
		log.WithError(err).Warn("summarizer failed, keeping history unmodified")
		return h, nil
	}

	if compacted != nil {
		for _, m := range source {
			compacted.Add(m)
		}
	}

	out := make(model.History, 0, 1+len(summary)+len(h)-tailStart)
	out = append(out, h[0])
	out = append(out, summary...)
	out = append(out, h[tailStart:]...)
	out = history.PruneMismatchedToolCalls(out)
	return out, source
}
