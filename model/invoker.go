package model

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Request is a single model invocation. The history must already satisfy the
// integrity invariants (matched tool pairs, ends with a request) when it is
// handed to an invoker; invokers do not repair histories.
type Request struct {
	Model   string
	System  string
	History History
	Tools   []mcptypes.Tool
}

// Usage carries the true token figures reported by a provider, when
// available.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Result is a completed model invocation.
type Result struct {
	Message Message
	// Usage is nil when the provider did not report figures; callers fall
	// back to estimation.
	Usage *Usage
	// ServedBy is the model that actually produced the response, which may
	// differ from Request.Model after a silent upstream substitution.
	ServedBy string
}

// Invoker abstracts a model invocation backend (Anthropic, OpenAI-compatible,
// Ollama). Implementations classify their failures into InvokeError kinds so
// that the failover and retry machinery never has to inspect SDK-specific
// error types.
//
// This interface lives in the model package, not the provider package, so
// provider implementations can import model without a cycle.
type Invoker interface {
	// Invoke sends the request and blocks until the response is complete.
	Invoke(ctx context.Context, req Request) (*Result, error)

	// Model returns the currently selected model name.
	Model() string

	// SetModel changes the active model. Failover swaps models between
	// invocations this way.
	SetModel(model string)
}
