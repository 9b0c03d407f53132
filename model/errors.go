package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrKind classifies invocation failures at the boundary. Explicit kinds
// replace exception-type sniffing: the turn loop switches on the kind and a
// Cancelled result short-circuits telemetry and error logging.
type ErrKind int

const (
	// ErrKindFatal is any unexpected failure; it propagates to the caller
	// after being logged with full context.
	ErrKindFatal ErrKind = iota
	// ErrKindQuota is a rate-limit or budget-exhaustion rejection; it drives
	// the wait-or-failover decision and is never surfaced as a failure.
	ErrKindQuota
	// ErrKindSignature is a thought-signature validation rejection; the
	// session backfills bypass signatures and retries once.
	ErrKindSignature
	// ErrKindCancelled is an external cancellation, distinguished from
	// genuine errors and never logged as a failure.
	ErrKindCancelled
)

// InvokeError is the uniform failure type returned by invokers.
type InvokeError struct {
	Kind       ErrKind
	Model      string
	RetryAfter time.Duration
	Err        error
}

func (e *InvokeError) Error() string {
	switch e.Kind {
	case ErrKindQuota:
		return fmt.Sprintf("quota exhausted for %s: %v", e.Model, e.Err)
	case ErrKindSignature:
		return fmt.Sprintf("signature rejected for %s: %v", e.Model, e.Err)
	case ErrKindCancelled:
		return fmt.Sprintf("invocation cancelled for %s", e.Model)
	default:
		return fmt.Sprintf("invocation failed for %s: %v", e.Model, e.Err)
	}
}

func (e *InvokeError) Unwrap() error { return e.Err }

// ClassifyInvokeError wraps an SDK error into an InvokeError, inferring the
// kind from the context state and the error text.
func ClassifyInvokeError(model string, ctx context.Context, err error) *InvokeError {
	if err == nil {
		return nil
	}
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie
	}
	switch {
	case ctx != nil && ctx.Err() != nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return &InvokeError{Kind: ErrKindCancelled, Model: model, Err: err}
	case IsQuotaShaped(err.Error()):
		return &InvokeError{Kind: ErrKindQuota, Model: model, Err: err}
	case IsSignatureShaped(err.Error()):
		return &InvokeError{Kind: ErrKindSignature, Model: model, Err: err}
	default:
		return &InvokeError{Kind: ErrKindFatal, Model: model, Err: err}
	}
}

// quotaMarkers are the substrings that identify a quota-exhaustion-shaped
// error. Providers do not agree on a machine-readable code for this, so text
// inspection is the only portable detection.
var quotaMarkers = []string{
	"quota",
	"rate limit",
	"rate_limit",
	"resource exhausted",
	"resource_exhausted",
	"too many requests",
	"429",
	"tokens per minute",
	"requests per minute",
}

// IsQuotaShaped reports whether the error text carries a quota-exhaustion
// marker.
func IsQuotaShaped(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range quotaMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

var signatureMarkers = []string{
	"thought_signature",
	"thoughtsignature",
	"invalid signature",
	"corrupted signature",
	"missing signature",
	"signature verification",
	"signature validation",
}

// IsSignatureShaped reports whether the error text is a thought-signature
// validation rejection.
func IsSignatureShaped(text string) bool {
	lower := strings.ToLower(text)
	for _, m := range signatureMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// KindOf extracts the ErrKind from an error chain, defaulting to fatal.
func KindOf(err error) ErrKind {
	var ie *InvokeError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrKindCancelled
	}
	return ErrKindFatal
}
