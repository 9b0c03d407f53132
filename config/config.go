// Package config loads tandem's TOML settings: provider endpoints, context
// policy overrides, and failover tuning. Settings live in
// ~/.config/tandem/settings.toml; the data directory holds logs and the
// usage ledger.
package config

import (
	"fmt"
	"os"
	"time"

	"tandem/failover"
	"tandem/provider"

	"github.com/BurntSushi/toml"
)

type ProviderConfig struct {
	ID        string `toml:"id"`
	BaseURL   string `toml:"base_url,omitempty"`
	APIKeyEnv string `toml:"api_key_env,omitempty"`
	Model     string `toml:"model,omitempty"`
	Enabled   bool   `toml:"enabled"`
}

// ProfileOverride holds optional per-family policy overrides. Zero-valued
// fields keep the built-in default.
type ProfileOverride struct {
	MaxInputTokens      int     `toml:"max_input_tokens,omitempty"`
	TargetInputTokens   int     `toml:"target_input_tokens,omitempty"`
	CompactionThreshold float64 `toml:"compaction_threshold,omitempty"`
	HardBlockThreshold  float64 `toml:"hard_block_threshold,omitempty"`
	MaxExchanges        int     `toml:"max_exchanges,omitempty"`
	DietMode            string  `toml:"diet_mode,omitempty"`
}

type LimitsConfig struct {
	TokensPerMinute   int `toml:"tokens_per_minute"`
	RequestsPerMinute int `toml:"requests_per_minute"`
}

type FailoverConfig struct {
	// WaitBeforeFailoverSeconds is the wait threshold: shorter stalls sleep
	// in place, longer ones fail over down the chain.
	WaitBeforeFailoverSeconds int `toml:"wait_before_failover_seconds"`

	// Chain maps each model to its failover successor.
	Chain map[string]string `toml:"chain"`

	// QuotaFamilies reassigns provider families to shared quota pools.
	QuotaFamilies map[string]string `toml:"quota_families"`
}

type Settings struct {
	DataDirectory string `toml:"data_directory"`
	DefaultModel  string `toml:"default_model"`

	// Strategy is the compaction strategy: sliding_window, summarize, or
	// truncate.
	Strategy string `toml:"strategy"`

	// OversizeTokens drops any single message past this estimate. Zero
	// keeps the built-in cap.
	OversizeTokens int `toml:"oversize_tokens,omitempty"`

	// ProtectedTokens is the tail budget summarize/truncate never touch.
	// Zero derives it from the provider's target.
	ProtectedTokens int `toml:"protected_tokens,omitempty"`

	Providers []ProviderConfig           `toml:"providers"`
	Profiles  map[string]ProfileOverride `toml:"profiles"`
	Limits    map[string]LimitsConfig    `toml:"limits"`
	Failover  FailoverConfig             `toml:"failover"`
}

func (s *Settings) DataDir() string {
	return ExpandPath(s.DataDirectory)
}

// ProviderFor returns the configured entry for a provider family, or nil.
func (s *Settings) ProviderFor(id string) *ProviderConfig {
	for i := range s.Providers {
		if s.Providers[i].ID == id {
			return &s.Providers[i]
		}
	}
	return nil
}

// APIKey resolves a provider's key from its configured environment
// variable. Keys never live in the settings file itself.
func (p *ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

func (s *Settings) applyEnvOverrides() {
	if dataDir := os.Getenv("TANDEM_DATA_DIR"); dataDir != "" {
		s.DataDirectory = dataDir
	}
	if model := os.Getenv("TANDEM_MODEL"); model != "" {
		s.DefaultModel = model
	}
	if strategy := os.Getenv("TANDEM_STRATEGY"); strategy != "" {
		s.Strategy = strategy
	}
}

// Load reads settings.toml, creating it from the template on first run, and
// applies environment overrides. The data directory is created with 0700.
func Load() (*Settings, error) {
	cfg := DefaultSettings()
	settingsPath := GetSettingsFilePath()

	if FileExists(settingsPath) {
		if _, err := toml.DecodeFile(settingsPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	} else {
		if err := CreateDefaultSettings(); err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	return cfg, nil
}

// ApplyProfiles merges the settings file's per-family overrides into the
// built-in policies.
func (s *Settings) ApplyProfiles() {
	for name, o := range s.Profiles {
		key := provider.Key(name)
		p := provider.GetProfile(key)
		if o.MaxInputTokens > 0 {
			p.MaxInputTokens = o.MaxInputTokens
		}
		if o.TargetInputTokens > 0 {
			p.TargetInputTokens = o.TargetInputTokens
		}
		if o.CompactionThreshold > 0 {
			p.CompactionThreshold = o.CompactionThreshold
		}
		if o.HardBlockThreshold > 0 {
			p.HardBlockThreshold = o.HardBlockThreshold
		}
		if o.MaxExchanges > 0 {
			p.MaxExchanges = o.MaxExchanges
		}
		if o.DietMode != "" {
			p.DietMode = o.DietMode
		}
		provider.SetProfile(key, p)
	}
}

// BuildOrchestrator constructs the failover orchestrator from settings:
// custom chain edges, per-family rate limits, and the wait threshold.
func (s *Settings) BuildOrchestrator() *failover.Orchestrator {
	chain := failover.DefaultChain()
	if len(s.Failover.Chain) > 0 {
		chain = failover.Chain(s.Failover.Chain)
	}
	for name, fam := range s.Failover.QuotaFamilies {
		failover.SetQuotaFamily(provider.Key(name), fam)
	}

	o := failover.New(chain)
	if s.Failover.WaitBeforeFailoverSeconds > 0 {
		o.WaitBeforeFailover = time.Duration(s.Failover.WaitBeforeFailoverSeconds) * time.Second
	}
	for name, l := range s.Limits {
		o.SetLimits(provider.Key(name), failover.Limits{
			TokensPerMinute:   l.TokensPerMinute,
			RequestsPerMinute: l.RequestsPerMinute,
		})
	}
	return o
}

// SaveSettings writes the settings file with secure permissions.
func SaveSettings(cfg *Settings) error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	f, err := os.OpenFile(settingsPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	return nil
}
