// Package backend defines the port through which the application reaches the
// hosted data platform: table queries, stored procedures, realtime change
// feeds, object storage and session authentication.
//
// The request orchestrator only depends on Client. The other interfaces are
// implemented by the same adapter (see internal/infra/supabase) and are wired
// directly into the components that need them.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Op is a PostgREST filter operator.
type Op string

// Supported filter operators.
const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpLike  Op = "like"
	OpILike Op = "ilike"
	OpIs    Op = "is"
	OpIn    Op = "in"
)

// Filter restricts the rows returned by a Query.
type Filter struct {
	Column string
	Op     Op
	Value  string
}

// Order sorts the rows returned by a Query. Multiple orders apply in sequence.
type Order struct {
	Column     string
	Descending bool
}

// Range is an inclusive row window, e.g. {From: 0, To: 19} for the first 20 rows.
type Range struct {
	From int
	To   int
}

// Query describes one read against a table.
type Query struct {
	Table   string
	Columns string // PostgREST select expression; "*" when empty
	Filters []Filter
	Order   []Order
	Range   *Range
	Count   bool // request an exact total count
}

// Result is what the backend hands back for a query or RPC.
// A failed request may be reported either through the returned Go error
// (transport failure) or through Result.Error (the platform answered with an
// error payload).
type Result struct {
	Data  json.RawMessage
	Count *int64
	Error *Error
}

// Err returns Result.Error as an error value, or nil. It avoids the typed-nil
// trap of returning a nil *Error through the error interface.
func (r Result) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// Error is the error payload reported by the platform.
type Error struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Status  int    `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("backend error %s (HTTP %d): %s", e.Code, e.Status, e.Message)
	case e.Code != "":
		return fmt.Sprintf("backend error %s: %s", e.Code, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
	default:
		return "backend error: " + e.Message
	}
}

// Decode unmarshals the result payload into T. A null or empty payload
// decodes to the zero value of T.
func Decode[T any](r Result) (T, error) {
	var out T
	if len(r.Data) == 0 || string(r.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(r.Data, &out); err != nil {
		return out, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

// Client executes table queries and stored procedures.
type Client interface {
	Query(ctx context.Context, q Query) (Result, error)
	RPC(ctx context.Context, fn string, params any) (Result, error)
}

// ChangeType is the kind of row change delivered by a realtime subscription.
type ChangeType string

// Row change kinds.
const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent is a single row change.
type ChangeEvent struct {
	Type            ChangeType
	Schema          string
	Table           string
	Record          json.RawMessage
	OldRecord       json.RawMessage
	CommitTimestamp time.Time
}

// Subscription is an active realtime subscription.
type Subscription interface {
	Unsubscribe() error
}

// Realtime delivers insert/update/delete events for a table.
type Realtime interface {
	Subscribe(ctx context.Context, table string, handler func(ChangeEvent)) (Subscription, error)
}

// Storage uploads objects and resolves their public URLs.
type Storage interface {
	Upload(ctx context.Context, bucket, name, contentType string, body io.Reader) (string, error)
	PublicURL(bucket, path string) string
}

// Session is an authenticated platform session.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	ExpiresAt    time.Time
}

// Expired reports whether the access token has expired at now.
func (s *Session) Expired(now time.Time) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(s.ExpiresAt)
}

// Auth manages session-based authentication.
type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	RefreshSession(ctx context.Context) (*Session, error)
	Session() *Session
}
