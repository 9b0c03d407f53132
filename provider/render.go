package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"tandem/model"
)

// renderRequestText flattens a request message to text for replay: plain text
// passes through, tool returns are labeled with their call id so the model
// can correlate them.
func renderRequestText(m model.Message) string {
	var b strings.Builder
	for _, p := range m.Parts {
		switch p.Kind {
		case model.PartText:
			b.WriteString(p.Text)
		case model.PartToolReturn:
			fmt.Fprintf(&b, "[tool result %s %s]\n%s\n", p.ToolName, p.ToolCallID, p.Result)
		case model.PartFile:
			fmt.Fprintf(&b, "[attachment %s, %d bytes]", p.MIMEType, len(p.Data))
		}
	}
	return b.String()
}

// renderResponseText flattens a response message to text for replay. Thinking
// parts are omitted: replaying reasoning as visible text changes model
// behavior, and providers that want thinking back require their own wire
// format handled elsewhere.
func renderResponseText(m model.Message) string {
	var b strings.Builder
	for _, p := range m.Parts {
		switch p.Kind {
		case model.PartText:
			b.WriteString(p.Text)
		case model.PartToolCall:
			args := ""
			if len(p.ToolArgs) > 0 {
				if raw, err := json.Marshal(p.ToolArgs); err == nil {
					args = string(raw)
				}
			}
			fmt.Fprintf(&b, "[tool call %s %s]%s\n", p.ToolName, p.ToolCallID, args)
		}
	}
	return b.String()
}
