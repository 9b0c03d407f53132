package signature

import (
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Wire payloads for family-next providers arrive with inconsistent casing
// and, from some relays, tool calls wrapped in a type-tagged envelope
// instead of the canonical functionCall shape. These helpers rewrite raw
// JSON parts into the one shape the parser understands, preserving any
// thought signature found under either spelling.

// NormalizeWirePart canonicalizes a single raw part: snake_case signature
// and inline-data keys become camelCase, and type-tagged tool-call
// envelopes are rewritten into the functionCall shape. Unrecognized parts
// pass through unchanged.
func NormalizeWirePart(raw []byte) []byte {
	if !gjson.ValidBytes(raw) {
		return raw
	}

	if out, ok := normalizeToolCallEnvelope(raw); ok {
		return out
	}

	part := gjson.ParseBytes(raw)
	out := raw

	sig := part.Get("thoughtSignature").String()
	if sig == "" {
		sig = part.Get("thought_signature").String()
	}
	if sig != "" {
		out, _ = sjson.SetBytes(out, "thoughtSignature", sig)
		out, _ = sjson.DeleteBytes(out, "thought_signature")
	}

	if inline := part.Get("inline_data"); inline.Exists() {
		out, _ = sjson.SetRawBytes(out, "inlineData", []byte(inline.Raw))
		out, _ = sjson.DeleteBytes(out, "inline_data")
	}

	return out
}

// normalizeToolCallEnvelope detects a type-tagged tool-call variant and
// rewrites it into the canonical functionCall shape. Returns false when the
// part is not such an envelope.
func normalizeToolCallEnvelope(raw []byte) ([]byte, bool) {
	part := gjson.ParseBytes(raw)
	switch part.Get("type").String() {
	case "tool_call", "tool_use", "function_call":
	default:
		return raw, false
	}

	name := part.Get("name").String()
	if name == "" {
		name = part.Get("function.name").String()
	}
	if name == "" {
		return raw, false
	}

	args := "{}"
	for _, key := range []string{"args", "arguments", "input", "function.arguments"} {
		if v := part.Get(key); v.Exists() && v.IsObject() {
			args = v.Raw
			break
		}
	}

	out := []byte(`{}`)
	out, _ = sjson.SetBytes(out, "functionCall.name", name)
	out, _ = sjson.SetRawBytes(out, "functionCall.args", []byte(args))
	if id := part.Get("id").String(); id != "" {
		out, _ = sjson.SetBytes(out, "functionCall.id", id)
	}

	sig := part.Get("thoughtSignature").String()
	if sig == "" {
		sig = part.Get("thought_signature").String()
	}
	if sig != "" {
		out, _ = sjson.SetBytes(out, "thoughtSignature", sig)
	}

	return out, true
}

// NormalizeWireParts applies NormalizeWirePart to every element of the
// first candidate's parts array in a raw response payload. Payloads without
// that array pass through unchanged.
func NormalizeWireParts(payload []byte) []byte {
	parts := gjson.GetBytes(payload, "candidates.0.content.parts")
	if !parts.IsArray() {
		return payload
	}

	out := payload
	for i, part := range parts.Array() {
		fixed := NormalizeWirePart([]byte(part.Raw))
		out, _ = sjson.SetRawBytes(out, "candidates.0.content.parts."+strconv.Itoa(i), fixed)
	}
	return out
}
