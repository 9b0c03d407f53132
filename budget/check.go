package budget

import "tandem/provider"

// Check is a threshold probe against a profile, without touching a history.
type Check struct {
	UsagePercent  float64
	ShouldCompact bool
	ShouldBlock   bool
}

// CheckBudget evaluates a raw token count against a profile's thresholds.
// Compaction triggers at the threshold exactly, not past it.
func CheckBudget(currentTokens int, prof provider.Profile) Check {
	var c Check
	if prof.MaxInputTokens > 0 {
		c.UsagePercent = float64(currentTokens) / float64(prof.MaxInputTokens)
	}
	c.ShouldCompact = c.UsagePercent >= prof.CompactionThreshold
	c.ShouldBlock = c.UsagePercent >= prof.HardBlockThreshold
	return c
}
