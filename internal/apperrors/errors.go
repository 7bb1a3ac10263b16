// Package apperrors defines the error taxonomy shared by the API client
// and the reconcilers.
//
//	ErrNetworkUnavailable: no connection; callers fall back to the cache
//	*APIError            : the server answered with a non-2xx status
//	*TransportError      : the request failed in flight (timeout, reset…)
//	*PreconditionError   : the action was refused before touching the network
//
// None of these are fatal: the application keeps serving whatever is in
// the local cache.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrPreconditionFailed = errors.New("precondition failed")
)

// APIError is returned when the server responds with a failure status.
// Body holds the raw response body; Message is the "error" field of the
// server's JSON envelope when one could be parsed.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error: HTTP %d", e.StatusCode)
}

// TransportError wraps a connection-level failure for the named operation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s: %s", e.Op, e.Err.Error())
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// PreconditionError explains why an action was refused.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed: %s", e.Reason)
}

// Is lets errors.Is(err, ErrPreconditionFailed) match any PreconditionError.
func (e *PreconditionError) Is(target error) bool {
	return target == ErrPreconditionFailed
}

// NewPreconditionError builds a PreconditionError from a format string.
func NewPreconditionError(format string, args ...any) error {
	return &PreconditionError{Reason: fmt.Sprintf(format, args...)}
}

// StatusCode extracts the HTTP status from err, or 0 if err is not an
// APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
