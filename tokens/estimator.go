// Package tokens approximates token counts for messages and prompt overhead.
//
// The estimate is a character-count heuristic, deliberately not a real
// tokenizer: it keeps the core self-contained and fast, and compaction
// thresholds are calibrated against this heuristic rather than exact counts.
package tokens

import (
	"encoding/json"
	"strings"

	"tandem/model"
	"tandem/tools"
)

// charsPerToken is the average characters-per-token ratio the heuristic
// assumes. Mixed code-and-prose conversations land close to this.
const charsPerToken = 2.5

// Estimate approximates the token count of a text span. Always at least 1.
func Estimate(text string) int {
	n := int(float64(len(text)) / charsPerToken)
	if n < 1 {
		return 1
	}
	return n
}

// EstimateMessage approximates the token count of one message by rendering
// every part to text and summing per-part estimates. A message never counts
// less than 1 token.
func EstimateMessage(m model.Message) int {
	total := 0
	for _, p := range m.Parts {
		total += Estimate(renderPart(p))
	}
	if total < 1 {
		return 1
	}
	return total
}

// EstimateHistory sums EstimateMessage over the whole history.
func EstimateHistory(h model.History) int {
	total := 0
	for _, m := range h {
		total += EstimateMessage(m)
	}
	return total
}

// EstimateOverhead approximates the fixed per-request cost: the system
// instructions plus every registered tool's name, description, and parameter
// schema. Tool records come pre-flattened from the registry collaborator.
func EstimateOverhead(system string, records []tools.Record) int {
	total := 0
	if system != "" {
		total += Estimate(system)
	}
	for _, r := range records {
		total += Estimate(r.Name)
		if r.Description != "" {
			total += Estimate(r.Description)
		}
		if len(r.Schema) > 0 {
			total += Estimate(string(r.Schema))
		}
	}
	return total
}

// renderPart produces the text a part contributes to the estimate: tool name
// plus serialized arguments for tool calls, content otherwise.
func renderPart(p model.Part) string {
	switch p.Kind {
	case model.PartText, model.PartThinking:
		return p.Text
	case model.PartToolCall:
		var b strings.Builder
		b.WriteString(p.ToolName)
		if len(p.ToolArgs) > 0 {
			if raw, err := json.Marshal(p.ToolArgs); err == nil {
				b.Write(raw)
			}
		}
		return b.String()
	case model.PartToolReturn:
		return p.ToolName + p.Result
	case model.PartFile:
		// Binary payloads are billed by the provider in their encoded form.
		return string(p.Data)
	default:
		return p.Text
	}
}
