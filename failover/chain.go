package failover

import "tandem/provider"

// Chain is the static failover mapping: model name to the next model to try
// when its provider's quota runs out. Terminal models have no entry.
type Chain map[string]string

// DefaultChain walks from the fast free tiers down to paid high-context
// models. The ordering is a liveness preference, not a quality ranking.
func DefaultChain() Chain {
	return Chain{
		"qwen-3-coder-480b":             "gpt-oss-120b",
		"gpt-oss-120b":                  "gemini-3-flash",
		"gemini-3-flash":                "gemini-3-pro",
		"gemini-3-pro":                  "antigravity-claude-sonnet-4-5",
		"antigravity-claude-sonnet-4-5": "claude-sonnet-4-5",
	}
}

// quotaFamilies groups provider keys that draw on one shared quota pool.
// Failing over between siblings in a family wastes the attempt: the sibling
// is exhausted too. The groupings are inferred from observed vendor behavior,
// not a documented contract; revisit when vendors change shared-quota policy.
var quotaFamilies = map[provider.Key]string{
	provider.KeyCerebras:          "cerebras",
	provider.KeyGemini:            "google-oauth",
	provider.KeyAntigravityClaude: "google-oauth",
}

// SetQuotaFamily reassigns a provider key to a shared-quota pool, used for
// config-file overrides when vendors change their pooling.
func SetQuotaFamily(key provider.Key, family string) {
	quotaFamilies[key] = family
}

// QuotaFamily returns the shared-quota pool for a provider key. Keys outside
// any known group are their own family.
func QuotaFamily(key provider.Key) string {
	if fam, ok := quotaFamilies[key]; ok {
		return fam
	}
	return string(key)
}

// Next walks the chain from the given model, skipping every candidate whose
// provider belongs to exhaustedFamily, and returns the first model outside
// that family. Empty string when the chain runs out.
func (c Chain) Next(fromModel, exhaustedFamily string) string {
	seen := map[string]bool{fromModel: true}
	candidate := c[fromModel]
	for candidate != "" && !seen[candidate] {
		if QuotaFamily(provider.Detect(candidate, "")) != exhaustedFamily {
			return candidate
		}
		seen[candidate] = true
		candidate = c[candidate]
	}
	return ""
}
