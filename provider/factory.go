package provider

import (
	"fmt"

	"tandem/model"
)

// Config holds invoker-specific configuration.
type Config struct {
	Key     Key
	BaseURL string
	Model   string
	APIKey  string // unused for Ollama
}

// NewInvoker creates an invoker for the given provider family. OpenRouter is
// OpenAI-compatible and reuses that adapter with its own base URL.
func NewInvoker(cfg Config) (model.Invoker, error) {
	switch cfg.Key {
	case KeyOllama:
		return NewOllamaInvoker(cfg.BaseURL, cfg.Model)
	case KeyAnthropic, KeyAntigravityClaude:
		return NewAnthropicInvoker(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case KeyCerebras:
		return NewCerebrasInvoker(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case KeyOpenAI, KeyGemini, KeyDefault:
		return NewOpenAIInvoker(cfg.BaseURL, cfg.APIKey, cfg.Model)
	case KeyOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIInvoker(baseURL, cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown provider key: %s", cfg.Key)
	}
}
