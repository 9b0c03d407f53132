package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"tandem/budget"
	"tandem/model"
	"tandem/signature"
)

// stubInvoker returns canned results, optionally failing the first n calls
// with a given error kind.
type stubInvoker struct {
	model     string
	failKind  model.ErrKind
	failCount int
	calls     int
	lastReq   model.Request
	response  model.Message
}

func (s *stubInvoker) Model() string     { return s.model }
func (s *stubInvoker) SetModel(m string) { s.model = m }

func (s *stubInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	s.calls++
	s.lastReq = req
	if s.failCount > 0 {
		s.failCount--
		return nil, &model.InvokeError{Kind: s.failKind, Model: req.Model, Err: errors.New("stub failure")}
	}
	resp := s.response
	if len(resp.Parts) == 0 {
		resp = model.TextMessage(model.KindResponse, "stub answer")
	}
	return &model.Result{
		Message:  resp,
		ServedBy: req.Model,
		Usage:    &model.Usage{InputTokens: 10, OutputTokens: 5},
	}, nil
}

func TestTurnAppendsExchange(t *testing.T) {
	s := New("You are a coding assistant.", nil)
	inv := &stubInvoker{model: "claude-sonnet-4-5"}

	res, err := s.Turn(context.Background(), inv, model.TextMessage(model.KindRequest, "hello"))
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if len(s.History) != 2 {
		t.Fatalf("history has %d messages, want 2", len(s.History))
	}
	if s.History[0].Kind != model.KindRequest || s.History[1].Kind != model.KindResponse {
		t.Error("history should be request then response")
	}
	if res.Response.Text() != "stub answer" {
		t.Errorf("response = %q, want stub answer", res.Response.Text())
	}
	if res.ServedBy != "claude-sonnet-4-5" {
		t.Errorf("ServedBy = %q", res.ServedBy)
	}
}

func TestTurnRetriesOnceOnSignatureRejection(t *testing.T) {
	s := New("system", nil)
	s.History = model.History{
		model.TextMessage(model.KindRequest, "earlier"),
		{Kind: model.KindResponse, Parts: []model.Part{
			{Kind: model.PartThinking, Text: "reasoning", Signature: "stale-sig"},
			{Kind: model.PartText, Text: "earlier answer"},
		}},
	}

	inv := &stubInvoker{
		model:     "gemini-3-flash",
		failKind:  model.ErrKindSignature,
		failCount: 1,
	}

	_, err := s.Turn(context.Background(), inv, model.TextMessage(model.KindRequest, "continue"))
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}
	if inv.calls != 2 {
		t.Fatalf("invoker called %d times, want 2 (original plus bypass retry)", inv.calls)
	}

	// The retried request must carry the bypass token in place of the
	// rejected signature.
	found := false
	for _, m := range inv.lastReq.History {
		for _, p := range m.Parts {
			if p.Signature == signature.BypassToken {
				found = true
			}
		}
	}
	if !found {
		t.Error("bypass token missing from retried request")
	}

	// Once the retry succeeds the rewrite must stick in the stored history,
	// or the next turn replays the rejected signature and fails again.
	persisted := false
	for _, m := range s.History {
		for _, p := range m.Parts {
			if p.Kind == model.PartThinking && p.Signature == signature.BypassToken {
				persisted = true
			}
			if p.Signature == "stale-sig" {
				t.Error("rejected signature still present in stored history")
			}
		}
	}
	if !persisted {
		t.Error("bypass token not persisted to stored history after successful retry")
	}
}

func TestTurnOversizedMessageDropStillEndsWithRequest(t *testing.T) {
	s := New("system", nil)
	s.History = model.History{
		model.TextMessage(model.KindRequest, "earlier question"),
		model.TextMessage(model.KindResponse, "earlier answer"),
	}
	inv := &stubInvoker{model: "claude-sonnet-4-5"}

	// Well past the 50k-token single-message cap, so the integrity filter
	// drops it and the trailing message would otherwise be the old response.
	huge := model.TextMessage(model.KindRequest, strings.Repeat("x", 200000))
	if _, err := s.Turn(context.Background(), inv, huge); err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	sent := inv.lastReq.History
	if len(sent) == 0 {
		t.Fatal("invoker received an empty history")
	}
	if got := sent[len(sent)-1].Kind; got != model.KindRequest {
		t.Errorf("sent history ends with kind %v, want request", got)
	}
	for _, m := range sent {
		if len(m.Text()) >= 200000 {
			t.Error("oversized message was sent to the invoker")
		}
	}
}

func TestTurnSignatureRejectionTwicePropagates(t *testing.T) {
	s := New("system", nil)
	inv := &stubInvoker{
		model:     "gemini-3-flash",
		failKind:  model.ErrKindSignature,
		failCount: 2,
	}

	_, err := s.Turn(context.Background(), inv, model.TextMessage(model.KindRequest, "hi"))
	if err == nil {
		t.Fatal("Turn() expected error after second signature rejection")
	}
	if model.KindOf(err) != model.ErrKindSignature {
		t.Errorf("error kind = %v, want signature", model.KindOf(err))
	}
	if inv.calls != 2 {
		t.Errorf("invoker called %d times, want exactly 2", inv.calls)
	}
}

func TestTurnCancellationLeavesHistoryConsistent(t *testing.T) {
	s := New("system", nil)
	// Seed a pending tool call that will never get its return because the
	// turn is cancelled.
	s.History = model.History{
		model.TextMessage(model.KindRequest, "start"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inv := &cancelledInvoker{model: "claude-sonnet-4-5"}
	_, err := s.Turn(ctx, inv, model.Message{
		Kind: model.KindRequest,
		Parts: []model.Part{
			{Kind: model.PartToolReturn, ToolCallID: "never-called", ToolName: "t", Result: "x"},
		},
	})

	if err == nil {
		t.Fatal("Turn() expected cancellation error")
	}
	if model.KindOf(err) != model.ErrKindCancelled {
		t.Errorf("error kind = %v, want cancelled", model.KindOf(err))
	}

	// The orphaned tool return must not survive in the history.
	for _, m := range s.History {
		for _, p := range m.Parts {
			if p.Kind == model.PartToolReturn {
				t.Error("orphaned tool return left in history after cancellation")
			}
		}
	}
}

type cancelledInvoker struct{ model string }

func (c *cancelledInvoker) Model() string     { return c.model }
func (c *cancelledInvoker) SetModel(m string) { c.model = m }

func (c *cancelledInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	return nil, &model.InvokeError{Kind: model.ErrKindCancelled, Model: req.Model, Err: ctx.Err()}
}

func TestTurnBackfillsFamilyNextSignatures(t *testing.T) {
	s := New("system", nil)
	inv := &stubInvoker{
		model: "gemini-3-flash",
		response: model.Message{
			Kind: model.KindResponse,
			Parts: []model.Part{
				{Kind: model.PartThinking, Text: "reasoning"},
				{Kind: model.PartText, Text: "answer", Signature: "wire-sig"},
			},
		},
	}

	res, err := s.Turn(context.Background(), inv, model.TextMessage(model.KindRequest, "hi"))
	if err != nil {
		t.Fatalf("Turn() error = %v", err)
	}

	if res.Response.Parts[0].Signature != "wire-sig" {
		t.Errorf("thinking signature = %q, want backfilled wire-sig", res.Response.Parts[0].Signature)
	}
	if res.Response.Parts[1].Signature != "" {
		t.Errorf("text signature = %q, want cleared", res.Response.Parts[1].Signature)
	}
}

func TestAddToolReturns(t *testing.T) {
	s := New("system", nil)
	s.History = model.History{
		model.TextMessage(model.KindRequest, "go"),
		{Kind: model.KindResponse, Parts: []model.Part{
			{Kind: model.PartToolCall, ToolCallID: "c1", ToolName: "t"},
		}},
	}

	if s.PendingToolCalls() != 1 {
		t.Fatalf("PendingToolCalls() = %d, want 1", s.PendingToolCalls())
	}

	s.AddToolReturns([]model.Part{
		{Kind: model.PartToolReturn, ToolCallID: "c1", ToolName: "t", Result: "done"},
	})

	if s.PendingToolCalls() != 0 {
		t.Errorf("PendingToolCalls() after returns = %d, want 0", s.PendingToolCalls())
	}
}

func TestStatusLine(t *testing.T) {
	d := budget.Decision{
		State:        budget.StateHealthy,
		TotalTokens:  1234,
		UsagePercent: 0.42,
	}

	line := StatusLine("claude-sonnet-4-5", d, 0)
	if !strings.Contains(line, "claude-sonnet-4-5") || !strings.Contains(line, "1234") {
		t.Errorf("StatusLine() = %q, missing fields", line)
	}

	truncated := StatusLine("claude-sonnet-4-5", d, 10)
	if len(truncated) > 13 { // width 10 plus ellipsis rune
		t.Errorf("StatusLine() truncated to %q (%d bytes)", truncated, len(truncated))
	}
}
