package scry

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request failed validation.
	ErrValidation = errors.New("validation error")

	// ErrStreamClosed indicates an operation on a closed event stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrAborted indicates the exchange was stopped by the user.
	// Not a failure: callers branch on it to commit partial output or
	// restore the draft input.
	ErrAborted = errors.New("aborted")

	// ErrNoActiveSession indicates Stop was called with nothing running.
	ErrNoActiveSession = errors.New("no active session")

	// ErrNothingToRetry indicates Retry was called without a stored
	// failed request.
	ErrNothingToRetry = errors.New("nothing to retry")
)

// RateLimitError is the distinguished usage-quota failure. It is never
// retryable through the generic retry path; consumers branch to a
// quota-specific surface instead.
type RateLimitError struct {
	Period    string
	Limit     int
	ResetTime string
}

func (e *RateLimitError) Error() string {
	if e.ResetTime != "" {
		return fmt.Sprintf("usage limit exceeded: %d per %s, resets %s", e.Limit, e.Period, e.ResetTime)
	}
	return fmt.Sprintf("usage limit exceeded: %d per %s", e.Limit, e.Period)
}
