package provider

// Profile is a provider family's context policy. The thresholds are
// calibrated per family on purpose: a single global threshold starves
// high-context providers of usable context and lets low-context ones blow
// their budget.
type Profile struct {
	// MaxInputTokens is the usable input context, kept below the vendor's
	// advertised window to leave room for output and accounting error.
	MaxInputTokens int

	// TargetInputTokens is what compaction aims to get back under.
	TargetInputTokens int

	// CompactionThreshold is the usage fraction at which compaction kicks in.
	CompactionThreshold float64

	// HardBlockThreshold is the usage fraction past which the caller is
	// warned to truncate manually. Advisory only; never enforced.
	HardBlockThreshold float64

	// MaxExchanges caps the sliding window in whole exchanges.
	MaxExchanges int

	// DietMode labels how aggressively the family's history is slimmed.
	// Classification only; it drives no behavior of its own.
	DietMode string
}

// profiles is the static per-family policy table. Free or aggressive tiers
// get low thresholds and small exchange caps; paid high-context tiers get
// high thresholds and large caps.
var profiles = map[Key]Profile{
	KeyCerebras: {
		MaxInputTokens:      64000,
		TargetInputTokens:   30000,
		CompactionThreshold: 0.30,
		HardBlockThreshold:  0.85,
		MaxExchanges:        6,
		DietMode:            "aggressive",
	},
	KeyGemini: {
		MaxInputTokens:      1048576,
		TargetInputTokens:   500000,
		CompactionThreshold: 0.70,
		HardBlockThreshold:  0.95,
		MaxExchanges:        40,
		DietMode:            "off",
	},
	KeyAntigravityClaude: {
		MaxInputTokens:      180000,
		TargetInputTokens:   100000,
		CompactionThreshold: 0.60,
		HardBlockThreshold:  0.90,
		MaxExchanges:        24,
		DietMode:            "light",
	},
	KeyAnthropic: {
		MaxInputTokens:      200000,
		TargetInputTokens:   120000,
		CompactionThreshold: 0.70,
		HardBlockThreshold:  0.90,
		MaxExchanges:        30,
		DietMode:            "off",
	},
	KeyOpenAI: {
		MaxInputTokens:      128000,
		TargetInputTokens:   80000,
		CompactionThreshold: 0.65,
		HardBlockThreshold:  0.90,
		MaxExchanges:        24,
		DietMode:            "light",
	},
	KeyOpenRouter: {
		MaxInputTokens:      131072,
		TargetInputTokens:   60000,
		CompactionThreshold: 0.50,
		HardBlockThreshold:  0.90,
		MaxExchanges:        16,
		DietMode:            "light",
	},
	KeyOllama: {
		MaxInputTokens:      32768,
		TargetInputTokens:   16000,
		CompactionThreshold: 0.35,
		HardBlockThreshold:  0.85,
		MaxExchanges:        8,
		DietMode:            "aggressive",
	},
	KeyDefault: {
		MaxInputTokens:      32768,
		TargetInputTokens:   12000,
		CompactionThreshold: 0.30,
		HardBlockThreshold:  0.80,
		MaxExchanges:        6,
		DietMode:            "aggressive",
	},
}

// GetProfile returns the policy for a family; unknown keys get the
// conservative default.
func GetProfile(key Key) Profile {
	if p, ok := profiles[key]; ok {
		return p
	}
	return profiles[KeyDefault]
}

// SetProfile replaces a family's policy, used for config-file overrides.
func SetProfile(key Key, p Profile) {
	profiles[key] = p
}

// Keys lists every registered family, default included.
func Keys() []Key {
	out := make([]Key, 0, len(profiles))
	for k := range profiles {
		out = append(out, k)
	}
	return out
}
