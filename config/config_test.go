package config

import (
	"testing"
	"time"

	"tandem/provider"

	"github.com/BurntSushi/toml"
)

func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.DefaultModel != "qwen-3-coder-480b" {
		t.Errorf("DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Strategy != "sliding_window" {
		t.Errorf("Strategy = %q", cfg.Strategy)
	}
	if cfg.ProviderFor("cerebras") == nil {
		t.Error("default settings should configure cerebras")
	}
	if cfg.ProviderFor("nonsense") != nil {
		t.Error("unknown provider id should return nil")
	}
}

func TestSettingsTemplateParses(t *testing.T) {
	var cfg Settings
	if _, err := toml.Decode(GenerateSettingsTemplate(), &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if cfg.DefaultModel != "qwen-3-coder-480b" {
		t.Errorf("template DefaultModel = %q", cfg.DefaultModel)
	}
	if cfg.Failover.WaitBeforeFailoverSeconds != 10 {
		t.Errorf("template wait seconds = %d, want 10", cfg.Failover.WaitBeforeFailoverSeconds)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("template configures %d providers, want 3", len(cfg.Providers))
	}
}

func TestApplyProfiles(t *testing.T) {
	original := provider.GetProfile(provider.KeyOllama)
	defer provider.SetProfile(provider.KeyOllama, original)

	cfg := &Settings{
		Profiles: map[string]ProfileOverride{
			"ollama": {
				MaxInputTokens:      8192,
				CompactionThreshold: 0.50,
			},
		},
	}
	cfg.ApplyProfiles()

	got := provider.GetProfile(provider.KeyOllama)
	if got.MaxInputTokens != 8192 {
		t.Errorf("MaxInputTokens = %d, want 8192", got.MaxInputTokens)
	}
	if got.CompactionThreshold != 0.50 {
		t.Errorf("CompactionThreshold = %v, want 0.50", got.CompactionThreshold)
	}
	// Unset fields keep their built-in values.
	if got.MaxExchanges != original.MaxExchanges {
		t.Errorf("MaxExchanges = %d, want untouched %d", got.MaxExchanges, original.MaxExchanges)
	}
}

func TestBuildOrchestrator(t *testing.T) {
	cfg := &Settings{
		Limits: map[string]LimitsConfig{
			"cerebras": {TokensPerMinute: 1000, RequestsPerMinute: 3},
		},
		Failover: FailoverConfig{
			WaitBeforeFailoverSeconds: 5,
			Chain: map[string]string{
				"model-a": "model-b",
			},
		},
	}

	o := cfg.BuildOrchestrator()
	if o.WaitBeforeFailover != 5*time.Second {
		t.Errorf("WaitBeforeFailover = %v, want 5s", o.WaitBeforeFailover)
	}

	// The custom limit must bite after minimal usage.
	o.RecordUsage(provider.KeyCerebras, 900, 200)
	d := o.CheckBudget("qwen-3-coder-480b", provider.KeyCerebras, 100)
	if d.CanProceed {
		t.Error("custom token limit not applied")
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	tests := []struct {
		input    string
		expected string
	}{
		{"~/data", "/home/tester/data"},
		{"/absolute/path", "/absolute/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.expected {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "secret-value")

	p := &ProviderConfig{ID: "test", APIKeyEnv: "TEST_PROVIDER_KEY"}
	if got := p.APIKey(); got != "secret-value" {
		t.Errorf("APIKey() = %q", got)
	}

	empty := &ProviderConfig{ID: "test"}
	if got := empty.APIKey(); got != "" {
		t.Errorf("APIKey() with no env = %q, want empty", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TANDEM_MODEL", "gemini-3-flash")
	t.Setenv("TANDEM_STRATEGY", "truncate")

	cfg := DefaultSettings()
	cfg.applyEnvOverrides()

	if cfg.DefaultModel != "gemini-3-flash" {
		t.Errorf("DefaultModel = %q, want env override", cfg.DefaultModel)
	}
	if cfg.Strategy != "truncate" {
		t.Errorf("Strategy = %q, want env override", cfg.Strategy)
	}
}
