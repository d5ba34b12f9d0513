package apierror

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"syscall"

	"community-hub/internal/backend"
)

// Backend codes with a fixed classification.
const (
	codeNoRows           = "PGRST116"
	codeUniqueViolation  = "23505"
	codePermissionDenied = "42501"
)

// codeRule maps an explicit backend code to a kind and a stable message.
type codeRule struct {
	code    string
	kind    Kind
	message string
}

// codeRules is the first classification tier, checked in order.
var codeRules = []codeRule{
	{code: codeNoRows, kind: KindNotFound, message: MessageNotFound},
	{code: codeUniqueViolation, kind: KindDuplicate, message: MessageDuplicate},
	{code: codePermissionDenied, kind: KindPermissionDenied, message: MessagePermissionDenied},
}

var networkPhrases = []string{
	"failed to fetch",
	"network",
	"connection refused",
	"connection reset",
	"timeout",
	"timed out",
	"no such host",
	"eof",
}

var authPhrases = []string{
	"jwt",
	"token",
	"not authenticated",
	"invalid login",
	"unauthorized",
}

// Connectivity reports whether the process believes it has network access.
type Connectivity interface {
	Online() bool
}

// ConnectivityFunc adapts a plain function to Connectivity.
type ConnectivityFunc func() bool

// Online implements Connectivity.
func (f ConnectivityFunc) Online() bool { return f() }

// AlwaysOnline is the default Connectivity.
var AlwaysOnline Connectivity = ConnectivityFunc(func() bool { return true })

// Classifier turns raw errors into classified errors.
// The zero value is usable: it logs to slog.Default and assumes it is online.
type Classifier struct {
	Logger       *slog.Logger
	Connectivity Connectivity
}

var defaultClassifier = &Classifier{}

// Classify classifies raw with the default classifier.
func Classify(raw error, context ...string) *Error {
	return defaultClassifier.Classify(raw, context...)
}

// IsRetryable reports whether raw is worth retrying, using the default classifier.
func IsRetryable(raw error) bool {
	return defaultClassifier.IsRetryable(raw)
}

// CountsAsFailure reports whether raw counts against the circuit breaker,
// using the default classifier.
func CountsAsFailure(raw error) bool {
	return defaultClassifier.CountsAsFailure(raw)
}

// Classify normalizes raw into a classified error. It never returns nil and
// never panics; a nil raw error yields KindUnknown with the generic message.
// context is joined into the Operation field and the diagnostic log line.
func (c *Classifier) Classify(raw error, context ...string) *Error {
	op := strings.Join(context, " ")

	var already *Error
	if errors.As(raw, &already) {
		return already
	}

	c.log(raw, op)

	kind, code, message := c.match(raw)
	return &Error{
		Message:   message,
		Code:      code,
		Kind:      kind,
		Operation: op,
		Raw:       raw,
	}
}

// match applies the classification table to raw.
func (c *Classifier) match(raw error) (Kind, string, string) {
	if raw == nil {
		return KindUnknown, CodeUnknown, MessageUnexpected
	}

	var be *backend.Error
	hasBackend := errors.As(raw, &be)

	if hasBackend {
		for _, rule := range codeRules {
			if be.Code == rule.code {
				return rule.kind, be.Code, rule.message
			}
		}
	}

	text := strings.ToLower(raw.Error())
	if hasBackend {
		text = strings.ToLower(be.Message)
	}

	if !isContextError(raw) && (!c.online() || isTransportError(raw) || containsAny(text, networkPhrases)) {
		return KindNetwork, codeOr(be, CodeNetwork), MessageNetwork
	}

	if containsAny(text, authPhrases) {
		return KindAuth, codeOr(be, CodeAuth), MessageAuth
	}

	message := raw.Error()
	if hasBackend {
		message = be.Message
	}
	if strings.TrimSpace(message) == "" {
		message = MessageUnexpected
	}
	return KindUnknown, codeOr(be, CodeUnknown), message
}

func (c *Classifier) online() bool {
	if c.Connectivity == nil {
		return true
	}
	return c.Connectivity.Online()
}

// log records the raw error for diagnostics. A misbehaving handler must not
// take classification down with it.
func (c *Classifier) log(raw error, op string) {
	defer func() { _ = recover() }()

	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Warn("backend request failed",
		slog.String("context", op),
		slog.Any("error", raw))
}

// isTransportError reports connection-level failures that never reached the
// platform.
func isTransportError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) ||
		errors.Is(err, syscall.ENETUNREACH)
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func codeOr(be *backend.Error, fallback string) string {
	if be != nil && be.Code != "" {
		return be.Code
	}
	return fallback
}
