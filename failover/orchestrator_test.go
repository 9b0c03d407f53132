package failover

import (
	"context"
	"errors"
	"testing"
	"time"

	"tandem/model"
	"tandem/provider"
)

// scriptedInvoker fails with a quota error for every model in quotaModels
// and succeeds otherwise.
type scriptedInvoker struct {
	model       string
	quotaModels map[string]bool
	calls       []string
}

func (s *scriptedInvoker) Model() string     { return s.model }
func (s *scriptedInvoker) SetModel(m string) { s.model = m }

func (s *scriptedInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	s.calls = append(s.calls, req.Model)
	if s.quotaModels[req.Model] {
		return nil, &model.InvokeError{
			Kind:  model.ErrKindQuota,
			Model: req.Model,
			Err:   errors.New("rate_limit_exceeded"),
		}
	}
	return &model.Result{
		Message:  model.TextMessage(model.KindResponse, "ok"),
		ServedBy: req.Model,
		Usage:    &model.Usage{InputTokens: 100, OutputTokens: 50},
	}, nil
}

func noSleep(calls *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return nil
	}
}

func request(modelName string) model.Request {
	return model.Request{
		Model:   modelName,
		History: model.History{model.TextMessage(model.KindRequest, "hello")},
	}
}

func TestExecuteSuccess(t *testing.T) {
	o := New(nil)
	inv := &scriptedInvoker{model: "qwen-3-coder-480b"}

	res, err := o.Execute(context.Background(), inv, request("qwen-3-coder-480b"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.ServedBy != "qwen-3-coder-480b" {
		t.Errorf("ServedBy = %q, want original model", res.ServedBy)
	}
	if len(inv.calls) != 1 {
		t.Errorf("invoker called %d times, want 1", len(inv.calls))
	}
}

func TestExecuteFailsOverOnQuota(t *testing.T) {
	o := New(nil)
	var sleeps []time.Duration
	o.Sleep = noSleep(&sleeps)

	inv := &scriptedInvoker{
		model: "qwen-3-coder-480b",
		quotaModels: map[string]bool{
			"qwen-3-coder-480b": true,
		},
	}

	res, err := o.Execute(context.Background(), inv, request("qwen-3-coder-480b"))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// gpt-oss-120b shares the cerebras pool; the walk must land on gemini.
	if res.ServedBy != "gemini-3-flash" {
		t.Errorf("ServedBy = %q, want gemini-3-flash", res.ServedBy)
	}
	if inv.model != "gemini-3-flash" {
		t.Errorf("invoker model = %q, want gemini-3-flash", inv.model)
	}
}

func TestExecuteNonQuotaErrorPropagates(t *testing.T) {
	o := New(nil)
	inv := &failingInvoker{kind: model.ErrKindFatal}

	_, err := o.Execute(context.Background(), inv, request("qwen-3-coder-480b"))
	if err == nil {
		t.Fatal("Execute() expected error")
	}
	if model.KindOf(err) != model.ErrKindFatal {
		t.Errorf("error kind = %v, want fatal", model.KindOf(err))
	}
	if inv.calls != 1 {
		t.Errorf("invoker called %d times, want 1 (no retry on fatal)", inv.calls)
	}
}

// failingInvoker always returns an error of the given kind.
type failingInvoker struct {
	model string
	kind  model.ErrKind
	calls int
}

func (f *failingInvoker) Model() string     { return f.model }
func (f *failingInvoker) SetModel(m string) { f.model = m }
func (f *failingInvoker) Invoke(ctx context.Context, req model.Request) (*model.Result, error) {
	f.calls++
	return nil, &model.InvokeError{Kind: f.kind, Model: req.Model, Err: errors.New("boom")}
}

func TestExecuteChainExhaustedWaitsAndRetries(t *testing.T) {
	o := New(Chain{}) // empty chain: nowhere to go
	var sleeps []time.Duration
	o.Sleep = noSleep(&sleeps)

	quota := map[string]bool{"qwen-3-coder-480b": true}
	inv := &scriptedInvoker{model: "qwen-3-coder-480b", quotaModels: quota}

	_, _ = o.Execute(context.Background(), inv, request("qwen-3-coder-480b"))

	// First call hit quota, then a window wait, then a retry of the
	// original model.
	if len(sleeps) == 0 {
		t.Error("expected a window wait before retrying the original model")
	}
	if len(inv.calls) < 2 {
		t.Fatalf("invoker called %d times, want at least 2", len(inv.calls))
	}
	if inv.calls[len(inv.calls)-1] != "qwen-3-coder-480b" {
		t.Errorf("final retry hit %q, want the original model", inv.calls[len(inv.calls)-1])
	}
}

func TestExecuteSurfacesQuotaAfterFailedRetry(t *testing.T) {
	o := New(Chain{})
	var sleeps []time.Duration
	o.Sleep = noSleep(&sleeps)

	inv := &failingInvoker{kind: model.ErrKindQuota}

	_, err := o.Execute(context.Background(), inv, request("qwen-3-coder-480b"))
	if err == nil {
		t.Fatal("Execute() expected error after exhausted chain and failed retry")
	}
	if model.KindOf(err) != model.ErrKindQuota {
		t.Errorf("error kind = %v, want quota", model.KindOf(err))
	}
}

func TestCheckBudgetDecisions(t *testing.T) {
	o := New(nil)
	o.SetLimits(provider.KeyCerebras, Limits{TokensPerMinute: 1000, RequestsPerMinute: 5})

	// Fresh window: proceed.
	d := o.CheckBudget("qwen-3-coder-480b", provider.KeyCerebras, 500)
	if !d.CanProceed {
		t.Fatalf("fresh window should proceed, got %+v", d)
	}

	// Consume the budget; the next request must not proceed.
	o.RecordUsage(provider.KeyCerebras, 900, 50)
	d = o.CheckBudget("qwen-3-coder-480b", provider.KeyCerebras, 500)
	if d.CanProceed {
		t.Fatal("over-budget request should not proceed")
	}
	if d.Reason == "" {
		t.Error("refusal must carry a reason")
	}
	// A fresh window means nearly a full minute of waiting, which is past
	// the failover threshold; the chain target must be offered.
	if d.FailoverTarget == "" {
		t.Error("long wait should offer a failover target")
	}
	if d.FailoverTarget == "gpt-oss-120b" {
		t.Error("failover target must not share the exhausted quota pool")
	}
}

func TestCheckBudgetRequestCount(t *testing.T) {
	o := New(nil)
	o.SetLimits(provider.KeyOllama, Limits{TokensPerMinute: 0, RequestsPerMinute: 2})

	o.RecordUsage(provider.KeyOllama, 1, 1)
	o.RecordUsage(provider.KeyOllama, 1, 1)

	d := o.CheckBudget("llama3.1:8b", provider.KeyOllama, 10)
	if d.CanProceed {
		t.Error("request-count limit should refuse the third request")
	}
}

func TestRecordEstimatedSplit(t *testing.T) {
	o := New(nil)
	o.RecordEstimated(provider.KeyCerebras, 1000)

	s := o.stateFor(provider.KeyCerebras)
	if s.tokensUsed != 1000 {
		t.Errorf("tokensUsed = %d, want 1000", s.tokensUsed)
	}
	if s.requestCount != 1 {
		t.Errorf("requestCount = %d, want 1", s.requestCount)
	}
}

func TestWindowRollover(t *testing.T) {
	o := New(nil)
	o.Window = 10 * time.Millisecond
	o.RecordUsage(provider.KeyCerebras, 500, 100)

	time.Sleep(20 * time.Millisecond)

	d := o.CheckBudget("qwen-3-coder-480b", provider.KeyCerebras, 500)
	if !d.CanProceed {
		t.Error("rolled-over window should reset the budget")
	}
}
