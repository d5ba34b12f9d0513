package apierror

import (
	"errors"
	"net/http"

	"community-hub/internal/backend"
)

// retryableStatus lists HTTP statuses that indicate a transient condition.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// transientCodes are Postgres connection-class codes and the platform's own
// connection error codes.
var transientCodes = map[string]bool{
	"08000":    true, // connection_exception
	"08003":    true, // connection_does_not_exist
	"08006":    true, // connection_failure
	"08001":    true, // sqlclient_unable_to_establish_sqlconnection
	"08004":    true, // sqlserver_rejected_establishment_of_sqlconnection
	"57P01":    true, // admin_shutdown
	"57P03":    true, // cannot_connect_now
	"53300":    true, // too_many_connections
	"PGRST000": true,
	"PGRST001": true,
	"PGRST002": true,
}

// IsRetryable reports whether a failed attempt may succeed if repeated.
// Context cancellation, auth, permission, not-found and duplicate errors are
// never retryable.
func (c *Classifier) IsRetryable(raw error) bool {
	if raw == nil || isContextError(raw) || errors.Is(raw, ErrServiceUnavailable) {
		return false
	}

	kind := c.kindOf(raw)
	switch kind {
	case KindNetwork:
		return true
	case KindAuth, KindPermissionDenied, KindNotFound, KindDuplicate:
		return false
	}

	var be *backend.Error
	if errors.As(raw, &be) {
		return retryableStatus[be.Status] || transientCodes[be.Code]
	}
	return false
}

// CountsAsFailure reports whether an attempt outcome should be recorded as a
// failure against the circuit breaker. Not-found, duplicate, permission and
// auth errors are answers from a healthy backend and do not count, and
// neither do other client errors (4xx other than 408 and 429) or a cancelled
// context. Outcomes that do not count must not be recorded at all: they are
// not successes either.
func (c *Classifier) CountsAsFailure(raw error) bool {
	if raw == nil || isContextError(raw) || errors.Is(raw, ErrServiceUnavailable) {
		return false
	}
	switch c.kindOf(raw) {
	case KindNotFound, KindDuplicate, KindPermissionDenied, KindAuth:
		return false
	}

	var be *backend.Error
	if errors.As(raw, &be) && isClientStatus(be.Status) && !transientCodes[be.Code] {
		return false
	}
	return true
}

func isClientStatus(status int) bool {
	return status >= 400 && status < 500 && !retryableStatus[status]
}

// kindOf classifies raw without logging.
func (c *Classifier) kindOf(raw error) Kind {
	var ce *Error
	if errors.As(raw, &ce) {
		return ce.Kind
	}
	kind, _, _ := c.match(raw)
	return kind
}
