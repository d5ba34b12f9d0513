// Package apierror normalizes the error shapes returned by the data platform
// into a small typed taxonomy and decides which failures are worth retrying.
//
// Classification is table driven: explicit backend codes are checked first,
// then message phrases, in a fixed priority order. Permission and auth
// messages can overlap with generic network phrasing, so the order is part of
// the contract.
package apierror

import (
	"errors"
	"fmt"
)

// Kind is the category of a classified error.
type Kind string

// Error kinds.
const (
	KindNetwork            Kind = "network"
	KindAuth               Kind = "auth"
	KindNotFound           Kind = "not_found"
	KindDuplicate          Kind = "duplicate"
	KindPermissionDenied   Kind = "permission_denied"
	KindUnknown            Kind = "unknown"
	KindServiceUnavailable Kind = "service_unavailable"
)

// Codes attached to errors that carry no backend code of their own.
const (
	CodeNetwork            = "NETWORK_ERROR"
	CodeAuth               = "AUTH_ERROR"
	CodeUnknown            = "UNKNOWN_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// User-facing messages.
const (
	MessageNotFound           = "The requested item was not found"
	MessageDuplicate          = "This item already exists"
	MessagePermissionDenied   = "You do not have permission to perform this action"
	MessageNetwork            = "Network error. Please check your connection and try again"
	MessageAuth               = "Your session has expired. Please sign in again"
	MessageUnexpected         = "An unexpected error occurred"
	MessageServiceUnavailable = "Service temporarily unavailable. Please try again later"
)

// ErrServiceUnavailable is the raw error behind a fail-fast rejection while
// the circuit breaker is open.
var ErrServiceUnavailable = errors.New("service temporarily unavailable")

// Error is a classified error. It is built once by Classify and never
// mutated afterwards. Message is always a non-empty, human-readable string.
type Error struct {
	Message   string
	Code      string
	Kind      Kind
	Operation string
	Raw       error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Operation == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Operation, e.Message)
}

// Unwrap exposes the original error to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	return e.Raw
}

// ServiceUnavailable builds the classified fail-fast error returned when the
// circuit breaker rejects a call for operation op.
func ServiceUnavailable(op string) *Error {
	return &Error{
		Message:   MessageServiceUnavailable,
		Code:      CodeServiceUnavailable,
		Kind:      KindServiceUnavailable,
		Operation: op,
		Raw:       ErrServiceUnavailable,
	}
}

// KindOf returns the kind of err if it is (or wraps) a classified error, and
// KindUnknown otherwise.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}
