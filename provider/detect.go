// Package provider maps model names to provider families and per-family
// context policies, and implements the invoker adapters for the supported
// backends.
//
// Detection is substring heuristics over model names. That is fragile by
// nature, so the whole heuristic table lives in this file: when a vendor
// renames a family, this is the only place that changes.
package provider

import "strings"

// Key identifies a provider family. Profiles, quota accounting, and wire
// adaptations are all keyed by it.
type Key string

const (
	KeyCerebras          Key = "cerebras"
	KeyGemini            Key = "gemini"
	KeyAntigravityClaude Key = "antigravity-claude"
	KeyAnthropic         Key = "anthropic"
	KeyOpenAI            Key = "openai"
	KeyOpenRouter        Key = "openrouter"
	KeyOllama            Key = "ollama"
	KeyDefault           Key = "default"
)

// Detect resolves the provider family for the live model. lastUsedModel is
// consulted before the configured model: after a failover the configured name
// no longer reflects what is actually being called, and wire adaptations must
// follow the live model.
func Detect(modelName, lastUsedModel string) Key {
	if lastUsedModel != "" {
		return classify(lastUsedModel)
	}
	return classify(modelName)
}

// cerebrasHosted are model families served from Cerebras-hosted endpoints
// under names that do not mention the vendor.
var cerebrasHosted = []string{
	"qwen-3-coder",
	"qwen-3-235b",
	"gpt-oss",
	"zai-glm",
	"llama-3.3-70b",
}

func classify(name string) Key {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return KeyDefault
	}

	// Hosted names win over the generic prefixes below: "gpt-oss" is a
	// Cerebras deployment, not an OpenAI model.
	for _, hosted := range cerebrasHosted {
		if strings.Contains(lower, hosted) {
			return KeyCerebras
		}
	}

	switch {
	case strings.Contains(lower, "cerebras"):
		return KeyCerebras
	case strings.HasPrefix(lower, "antigravity-") && strings.Contains(lower, "claude"):
		return KeyAntigravityClaude
	case strings.HasPrefix(lower, "antigravity-"):
		return KeyGemini
	case strings.Contains(lower, "gemini"):
		return KeyGemini
	case strings.Contains(lower, "claude"):
		return KeyAnthropic
	case strings.HasPrefix(lower, "gpt-") || strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4"):
		return KeyOpenAI
	case strings.Contains(lower, "/"):
		// Vendor-prefixed names ("meta-llama/llama-3.3-70b") are routed
		// through OpenRouter.
		return KeyOpenRouter
	case strings.Contains(lower, ":"):
		// Tagged names ("llama3.1:8b") are local Ollama models.
		return KeyOllama
	default:
		return KeyDefault
	}
}
