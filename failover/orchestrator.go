// Package failover tracks per-provider token and request budgets and decides,
// on quota exhaustion, whether to wait for the rate window or walk the
// failover chain to another provider.
//
// This is a liveness mechanism, not a correctness one: a failed failover
// attempt never crashes the session, it degrades to waiting on the original
// provider.
package failover

import (
	"context"
	"fmt"
	"time"

	"tandem/model"
	"tandem/provider"
	"tandem/tokens"

	log "github.com/sirupsen/logrus"
)

// DefaultWaitBeforeFailover is how long a quota wait must be before trying
// the chain instead of sleeping it out. Tuned, not derived; configurable for
// that reason.
const DefaultWaitBeforeFailover = 10 * time.Second

// Limits are a provider's per-window rate budget.
type Limits struct {
	TokensPerMinute   int
	RequestsPerMinute int
}

// defaultLimits is conservative free-tier behavior for providers without an
// explicit entry.
var defaultLimits = map[provider.Key]Limits{
	provider.KeyCerebras:          {TokensPerMinute: 64000, RequestsPerMinute: 10},
	provider.KeyGemini:            {TokensPerMinute: 250000, RequestsPerMinute: 10},
	provider.KeyAntigravityClaude: {TokensPerMinute: 80000, RequestsPerMinute: 5},
	provider.KeyAnthropic:         {TokensPerMinute: 400000, RequestsPerMinute: 50},
	provider.KeyOpenAI:            {TokensPerMinute: 450000, RequestsPerMinute: 60},
	provider.KeyDefault:           {TokensPerMinute: 60000, RequestsPerMinute: 10},
}

// budgetState is one provider's rolling-window consumption.
type budgetState struct {
	tokensUsed   int
	requestCount int
	windowStart  time.Time
}

// Decision is the orchestrator's answer for one prospective request.
type Decision struct {
	CanProceed     bool
	WaitSeconds    float64
	FailoverTarget string
	Reason         string
}

// Orchestrator owns the per-provider counters and the failover chain for one
// session. The turn loop is single-threaded, so no locking; the recorder is
// written to stay harmless if a retry path invokes it twice.
type Orchestrator struct {
	chain  Chain
	limits map[provider.Key]Limits
	states map[provider.Key]*budgetState

	// WaitBeforeFailover is the wait length at which the chain is preferred
	// over sleeping.
	WaitBeforeFailover time.Duration

	// Window is the rate window length; counters reset on its boundary.
	Window time.Duration

	// Sleep is swapped in tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New creates an orchestrator with the given chain (DefaultChain when nil).
func New(chain Chain) *Orchestrator {
	if chain == nil {
		chain = DefaultChain()
	}
	return &Orchestrator{
		chain:              chain,
		limits:             defaultLimits,
		states:             make(map[provider.Key]*budgetState),
		WaitBeforeFailover: DefaultWaitBeforeFailover,
		Window:             time.Minute,
		Sleep:              sleepCtx,
	}
}

// SetLimits overrides a provider's rate budget.
func (o *Orchestrator) SetLimits(key provider.Key, l Limits) {
	copied := make(map[provider.Key]Limits, len(o.limits)+1)
	for k, v := range o.limits {
		copied[k] = v
	}
	copied[key] = l
	o.limits = copied
}

func (o *Orchestrator) limitsFor(key provider.Key) Limits {
	if l, ok := o.limits[key]; ok {
		return l
	}
	return o.limits[provider.KeyDefault]
}

func (o *Orchestrator) stateFor(key provider.Key) *budgetState {
	s, ok := o.states[key]
	if !ok {
		s = &budgetState{windowStart: time.Now()}
		o.states[key] = s
	}
	if elapsed := time.Since(s.windowStart); elapsed >= o.Window {
		s.tokensUsed = 0
		s.requestCount = 0
		s.windowStart = time.Now()
	}
	return s
}

// CheckBudget decides whether a request of estimatedTokens can go to the
// provider now, and if not, whether to wait or fail over.
func (o *Orchestrator) CheckBudget(currentModel string, key provider.Key, estimatedTokens int) Decision {
	s := o.stateFor(key)
	l := o.limitsFor(key)

	overTokens := l.TokensPerMinute > 0 && s.tokensUsed+estimatedTokens > l.TokensPerMinute
	overRequests := l.RequestsPerMinute > 0 && s.requestCount+1 > l.RequestsPerMinute
	if !overTokens && !overRequests {
		return Decision{CanProceed: true}
	}

	wait := o.Window - time.Since(s.windowStart)
	if wait < 0 {
		wait = 0
	}
	d := Decision{WaitSeconds: wait.Seconds()}
	if overTokens {
		d.Reason = fmt.Sprintf("token budget exhausted for %s (%d/%d in window)", key, s.tokensUsed, l.TokensPerMinute)
	} else {
		d.Reason = fmt.Sprintf("request budget exhausted for %s (%d/%d in window)", key, s.requestCount, l.RequestsPerMinute)
	}

	if wait >= o.WaitBeforeFailover {
		if target := o.chain.Next(currentModel, QuotaFamily(key)); target != "" {
			d.FailoverTarget = target
		}
	}
	return d
}

// Execute runs one invocation with quota handling: pre-check the budget,
// fail over or wait as decided, and on quota-shaped errors during the call
// keep walking the chain before falling back to wait-and-retry on the
// original model. Only a fully exhausted chain plus a failed final wait
// surfaces an error, and then it is the original error.
func (o *Orchestrator) Execute(ctx context.Context, invoker model.Invoker, req model.Request) (*model.Result, error) {
	originalModel := req.Model
	key := provider.Detect(req.Model, "")

	if d := o.CheckBudget(req.Model, key, estimateRequest(req)); !d.CanProceed {
		if d.FailoverTarget != "" {
			log.WithFields(log.Fields{"from": req.Model, "to": d.FailoverTarget}).
				Info(d.Reason + "; failing over")
			req.Model = d.FailoverTarget
		} else {
			log.WithField("wait_seconds", d.WaitSeconds).Info(d.Reason + "; waiting")
			if err := o.Sleep(ctx, time.Duration(d.WaitSeconds*float64(time.Second))); err != nil {
				return nil, model.ClassifyInvokeError(req.Model, ctx, err)
			}
		}
	}

	attempted := map[string]bool{}
	var lastQuotaErr error
	for {
		attempted[req.Model] = true
		invoker.SetModel(req.Model)
		res, err := o.invokeOnce(ctx, invoker, req)
		if err == nil {
			return res, nil
		}
		if model.KindOf(err) != model.ErrKindQuota {
			return nil, err
		}
		lastQuotaErr = err

		exhaustedKey := provider.Detect(req.Model, "")
		o.markExhausted(exhaustedKey)
		next := o.chain.Next(req.Model, QuotaFamily(exhaustedKey))
		if next == "" || attempted[next] {
			break
		}
		log.WithFields(log.Fields{"from": req.Model, "to": next}).Info("quota exhausted, walking failover chain")
		req.Model = next
	}

	// Chain exhausted: wait out the original provider's window and retry it
	// once. Surfacing an error here is the last resort.
	s := o.stateFor(key)
	wait := o.Window - time.Since(s.windowStart)
	if wait > 0 {
		log.WithField("wait_seconds", wait.Seconds()).Info("failover chain exhausted; waiting for original provider")
		if err := o.Sleep(ctx, wait); err != nil {
			return nil, model.ClassifyInvokeError(originalModel, ctx, err)
		}
	}
	req.Model = originalModel
	invoker.SetModel(originalModel)
	res, err := o.invokeOnce(ctx, invoker, req)
	if err != nil {
		if lastQuotaErr != nil && model.KindOf(err) == model.ErrKindQuota {
			return nil, lastQuotaErr
		}
		return nil, err
	}
	return res, nil
}

// invokeOnce performs a single invocation and records consumption against the
// provider that actually served it.
func (o *Orchestrator) invokeOnce(ctx context.Context, invoker model.Invoker, req model.Request) (*model.Result, error) {
	res, err := invoker.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}

	served := res.ServedBy
	if served == "" {
		served = req.Model
	}
	servedKey := provider.Detect(served, "")
	if res.Usage != nil {
		o.RecordUsage(servedKey, res.Usage.InputTokens, res.Usage.OutputTokens)
	} else {
		o.RecordEstimated(servedKey, estimateRequest(req))
	}
	return res, nil
}

// RecordUsage charges real token figures to a provider's window.
func (o *Orchestrator) RecordUsage(key provider.Key, inputTokens, outputTokens int) {
	s := o.stateFor(key)
	s.tokensUsed += inputTokens + outputTokens
	s.requestCount++
}

// RecordEstimated charges an estimated total, split 70/30 input/output. The
// split matters only for reporting; the window charge is the sum either way.
func (o *Orchestrator) RecordEstimated(key provider.Key, estimatedTotal int) {
	in := estimatedTotal * 7 / 10
	out := estimatedTotal - in
	o.RecordUsage(key, in, out)
}

// markExhausted pins the provider's window to its limit so subsequent budget
// checks on it fail fast until the window rolls.
func (o *Orchestrator) markExhausted(key provider.Key) {
	s := o.stateFor(key)
	l := o.limitsFor(key)
	if l.TokensPerMinute > 0 && s.tokensUsed < l.TokensPerMinute {
		s.tokensUsed = l.TokensPerMinute
	}
}

func estimateRequest(req model.Request) int {
	return tokens.Estimate(req.System) + tokens.EstimateHistory(req.History)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
