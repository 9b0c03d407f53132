package session

import (
	"fmt"

	"tandem/budget"

	"github.com/mattn/go-runewidth"
)

// StatusLine renders a one-line summary of the last budget decision for
// display, truncated to the given cell width. Zero or negative width means
// no truncation.
func StatusLine(servedBy string, d budget.Decision, width int) string {
	line := fmt.Sprintf("%s | %s | %d tokens (%.0f%%)",
		servedBy, d.State, d.TotalTokens, d.UsagePercent*100)
	if d.Applied != "" {
		line += fmt.Sprintf(" | compacted: %s", d.Applied)
	}
	if d.Deferred {
		line += " | compaction deferred"
	}
	if width > 0 && runewidth.StringWidth(line) > width {
		line = runewidth.Truncate(line, width, "…")
	}
	return line
}
