package signature

import (
	"testing"

	"tandem/model"
	"tandem/provider"
)

func TestFamilyFor(t *testing.T) {
	tests := []struct {
		key      provider.Key
		expected Family
	}{
		{provider.KeyAnthropic, FamilySelf},
		{provider.KeyOpenAI, FamilySelf},
		{provider.KeyGemini, FamilyNext},
		{provider.KeyAntigravityClaude, FamilyNext},
		{provider.KeyCerebras, FamilyNext},
	}

	for _, tt := range tests {
		if got := FamilyFor(tt.key); got != tt.expected {
			t.Errorf("FamilyFor(%q) = %v, want %v", tt.key, got, tt.expected)
		}
	}
}

func TestAttachSignaturesFamilySelfPassthrough(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning", Signature: "sig-1"},
		{Kind: model.PartText, Text: "answer"},
	}
	got := AttachSignatures(parts, FamilySelf)
	if got[0].Signature != "sig-1" {
		t.Errorf("thinking signature = %q, want unchanged", got[0].Signature)
	}
	if got[1].Signature != "" {
		t.Errorf("text signature = %q, want empty", got[1].Signature)
	}
}

func TestAttachSignaturesFamilyNextMovesToFollower(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning", Signature: "sig-1"},
		{Kind: model.PartToolCall, ToolCallID: "c1", ToolName: "t"},
	}
	got := AttachSignatures(parts, FamilyNext)

	if got[0].Signature != "" {
		t.Errorf("thinking part kept signature %q, want moved off", got[0].Signature)
	}
	if got[1].Signature != "sig-1" {
		t.Errorf("follower signature = %q, want sig-1", got[1].Signature)
	}
}

func TestAttachSignaturesUnsignedThinkingGetsBypass(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning"},
		{Kind: model.PartText, Text: "answer"},
	}
	got := AttachSignatures(parts, FamilyNext)

	if got[1].Signature != BypassToken {
		t.Errorf("follower signature = %q, want bypass token", got[1].Signature)
	}
}

func TestAttachSignaturesTrailingThinking(t *testing.T) {
	// A thinking part with nothing after it keeps its pending signature on
	// the last emitted part so the request stays valid.
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning"},
	}
	got := AttachSignatures(parts, FamilyNext)

	if got[0].Signature != BypassToken {
		t.Errorf("trailing thinking signature = %q, want bypass token", got[0].Signature)
	}
}

func TestAttachSignaturesMultipleThinkingBlocks(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "first", Signature: "sig-a"},
		{Kind: model.PartText, Text: "interim"},
		{Kind: model.PartThinking, Text: "second", Signature: "sig-b"},
		{Kind: model.PartToolCall, ToolCallID: "c1", ToolName: "t"},
	}
	got := AttachSignatures(parts, FamilyNext)

	if got[1].Signature != "sig-a" {
		t.Errorf("first follower = %q, want sig-a", got[1].Signature)
	}
	if got[3].Signature != "sig-b" {
		t.Errorf("second follower = %q, want sig-b", got[3].Signature)
	}
}

func TestBackfillSignatures(t *testing.T) {
	// Wire order for family-next: thinking arrives unsigned, the next part
	// carries its signature.
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning"},
		{Kind: model.PartText, Text: "answer", Signature: "sig-1"},
	}
	got := BackfillSignatures(parts, FamilyNext)

	if got[0].Signature != "sig-1" {
		t.Errorf("thinking signature = %q, want sig-1", got[0].Signature)
	}
	if got[1].Signature != "" {
		t.Errorf("follower signature = %q, want cleared", got[1].Signature)
	}
}

func TestBackfillSignaturesIdempotent(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning"},
		{Kind: model.PartText, Text: "answer", Signature: "sig-1"},
	}
	once := BackfillSignatures(parts, FamilyNext)
	twice := BackfillSignatures(once, FamilyNext)

	if twice[0].Signature != "sig-1" || twice[1].Signature != "" {
		t.Errorf("second backfill changed parts: %+v", twice)
	}
}

func TestBackfillSignaturesFamilySelfPassthrough(t *testing.T) {
	parts := []model.Part{
		{Kind: model.PartThinking, Text: "reasoning", Signature: "sig-1"},
		{Kind: model.PartText, Text: "answer"},
	}
	got := BackfillSignatures(parts, FamilySelf)
	if got[0].Signature != "sig-1" {
		t.Errorf("family-self backfill changed signature to %q", got[0].Signature)
	}
}

func TestRewriteWithBypass(t *testing.T) {
	h := model.History{
		model.TextMessage(model.KindRequest, "hi"),
		{Kind: model.KindResponse, Parts: []model.Part{
			{Kind: model.PartThinking, Text: "reasoning", Signature: "rejected-sig"},
			{Kind: model.PartText, Text: "answer"},
		}},
	}
	got := RewriteWithBypass(h)

	if got[1].Parts[0].Signature != BypassToken {
		t.Errorf("rewritten signature = %q, want bypass token", got[1].Parts[0].Signature)
	}
	// Non-thinking parts untouched.
	if got[1].Parts[1].Signature != "" {
		t.Errorf("text signature = %q, want empty", got[1].Parts[1].Signature)
	}
	// Original history unmodified.
	if h[1].Parts[0].Signature != "rejected-sig" {
		t.Error("RewriteWithBypass mutated its input")
	}
}
