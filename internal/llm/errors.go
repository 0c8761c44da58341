package llm

import (
	"context"
	"errors"
	"fmt"
)

// ProviderError is the only error kind returned by providers. SDK error
// types never cross this boundary; context cancellation remains visible
// through errors.Is.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string

	cause error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Provider, e.Message)
}

// Unwrap exposes context errors only.
func (e *ProviderError) Unwrap() error {
	return e.cause
}

// newProviderError converts err into a *ProviderError. statusCode comes
// from the SDK-specific error, zero when there was no HTTP response.
func newProviderError(provider string, statusCode int, err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	out := &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    err.Error(),
	}
	switch {
	case errors.Is(err, context.Canceled):
		out.cause = context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		out.cause = context.DeadlineExceeded
	}
	return out
}
