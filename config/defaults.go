package config

import (
	"fmt"
	"os"
)

func DefaultSettings() *Settings {
	return &Settings{
		DataDirectory: "~/.local/share/tandem",
		DefaultModel:  "qwen-3-coder-480b",
		Strategy:      "sliding_window",
		Providers: []ProviderConfig{
			{ID: "cerebras", APIKeyEnv: "CEREBRAS_API_KEY", Model: "qwen-3-coder-480b", Enabled: true},
			{ID: "anthropic", APIKeyEnv: "ANTHROPIC_API_KEY", Model: "claude-sonnet-4-5", Enabled: false},
			{ID: "openai", APIKeyEnv: "OPENAI_API_KEY", Enabled: false},
			{ID: "openrouter", APIKeyEnv: "OPENROUTER_API_KEY", Enabled: false},
			{ID: "ollama", BaseURL: "http://localhost:11434", Enabled: false},
		},
	}
}

func GenerateSettingsTemplate() string {
	return `# Tandem Configuration
# Location: ~/.config/tandem/settings.toml
# This file uses TOML format: https://toml.io

# Directory where logs and the usage ledger are stored
data_directory = "~/.local/share/tandem"

# Model to start new sessions with
default_model = "qwen-3-coder-480b"

# Compaction strategy: sliding_window, summarize, or truncate
strategy = "sliding_window"

[[providers]]
id = "cerebras"
api_key_env = "CEREBRAS_API_KEY"
model = "qwen-3-coder-480b"
enabled = true

[[providers]]
id = "anthropic"
api_key_env = "ANTHROPIC_API_KEY"
model = "claude-sonnet-4-5"
enabled = false

[[providers]]
id = "ollama"
base_url = "http://localhost:11434"
enabled = false

# Per-family context policy overrides (optional)
# [profiles.cerebras]
# max_input_tokens = 64000
# compaction_threshold = 0.30

# Per-family rate limits (optional)
# [limits.cerebras]
# tokens_per_minute = 275000
# requests_per_minute = 30

[failover]
# Stalls shorter than this sleep in place; longer ones fail over
wait_before_failover_seconds = 10

# Custom chain edges (optional); defaults cover the common models
# [failover.chain]
# "qwen-3-coder-480b" = "gpt-oss-120b"
`
}

// CreateDefaultSettings writes the commented template on first run.
func CreateDefaultSettings() error {
	configDir := GetConfigDir()
	if err := EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	settingsPath := GetSettingsFilePath()
	if FileExists(settingsPath) {
		return nil
	}

	return os.WriteFile(settingsPath, []byte(GenerateSettingsTemplate()), 0600)
}
