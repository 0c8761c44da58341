package calendar

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound reports that an event could not be resolved or no longer exists.
var ErrNotFound = errors.New("event not found")

// InvalidInputError reports malformed caller-supplied data such as an
// unparseable timestamp or a missing required argument.
type InvalidInputError struct {
	Field string
	Value string
	Err   error
}

func (e *InvalidInputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InvalidInputError) Unwrap() error {
	return e.Err
}

// RemoteServiceError wraps a failure returned by the calendar backend.
type RemoteServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RemoteServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("calendar %s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("calendar %s failed: %v", e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error {
	return e.Err
}

// Is makes 404 and 410 responses match ErrNotFound.
func (e *RemoteServiceError) Is(target error) bool {
	return target == ErrNotFound && (e.StatusCode == http.StatusNotFound || e.StatusCode == http.StatusGone)
}

func invalidInput(field, value string, err error) *InvalidInputError {
	return &InvalidInputError{Field: field, Value: value, Err: err}
}
