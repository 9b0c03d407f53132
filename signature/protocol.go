// Package signature implements the thought-signature protocol for providers
// whose wire format requires proving continuity of a hidden reasoning chain.
//
// Two association rules exist in the wild: one family signs the thinking
// block itself, the other signs whichever part comes next (text or tool
// call), emitting the signature one part ahead of where it conceptually
// belongs. Both directions of the translation live here, along with the
// bypass-token rewrite used to recover from signature-validation rejections.
package signature

import (
	"tandem/model"
	"tandem/provider"
)

// Family is the provider-dependent association rule for thought signatures.
type Family int

const (
	// FamilySelf providers carry the signature on the thinking part itself.
	FamilySelf Family = iota
	// FamilyNext providers attach the signature to the part following the
	// thinking block.
	FamilyNext
)

// BypassToken is the well-known placeholder signature accepted by
// family-next providers when no real signature is available. It keeps the
// request syntactically valid; the provider skips chain verification for it.
const BypassToken = "context_engineering_is_the_way_to_go"

// FamilyFor maps a provider family to its signature association rule.
func FamilyFor(key provider.Key) Family {
	switch key {
	case provider.KeyGemini, provider.KeyAntigravityClaude, provider.KeyCerebras:
		return FamilyNext
	default:
		return FamilySelf
	}
}

// AttachSignatures prepares a message's parts for replay to the model. For
// family-self the parts pass through unchanged. For family-next each
// thinking part's signature is stashed and attached to the next emitted
// part; a thinking part with no known signature stashes the bypass token.
// A signature still pending after the last part stays on that part so the
// request remains valid.
func AttachSignatures(parts []model.Part, fam Family) []model.Part {
	if fam == FamilySelf {
		return parts
	}

	out := make([]model.Part, 0, len(parts))
	pending := ""
	for _, p := range parts {
		if p.Kind == model.PartThinking {
			if p.Signature != "" {
				pending = p.Signature
			} else {
				pending = BypassToken
			}
			p.Signature = ""
			out = append(out, p)
			continue
		}
		if pending != "" {
			p.Signature = pending
			pending = ""
		}
		out = append(out, p)
	}

	if pending != "" && len(out) > 0 {
		out[len(out)-1].Signature = pending
	}
	return out
}

// BackfillSignatures repairs a parsed response: family-next providers emit a
// thinking part's signature on the following part, so a second pass moves it
// back onto the thinking part it certifies. Family-self responses pass
// through unchanged.
func BackfillSignatures(parts []model.Part, fam Family) []model.Part {
	if fam == FamilySelf {
		return parts
	}

	out := make([]model.Part, len(parts))
	copy(out, parts)
	for i := range out {
		if out[i].Kind != model.PartThinking || out[i].Signature != "" {
			continue
		}
		if i+1 < len(out) && out[i+1].Signature != "" {
			out[i].Signature = out[i+1].Signature
			out[i+1].Signature = ""
		}
	}
	return out
}

// RewriteWithBypass overwrites every thinking part's signature in the
// history with the bypass token. The session applies this once after a
// verified signature-validation rejection, then retries the same request.
func RewriteWithBypass(h model.History) model.History {
	out := h.Clone()
	for i := range out {
		for j := range out[i].Parts {
			if out[i].Parts[j].Kind == model.PartThinking {
				out[i].Parts[j].Signature = BypassToken
			}
		}
	}
	return out
}
