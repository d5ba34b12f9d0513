package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"community-hub/internal/backend"
)

const maxResponseBytes = 10 << 20

// Client talks to a Supabase project. It implements backend.Client; Auth,
// Storage and Realtime return the other surfaces.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	limiter    *RateLimiter
	auth       *Auth
	storage    *Storage
	now        func() time.Time
}

var _ backend.Client = (*Client)(nil)

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a Client for cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst),
		now:        time.Now,
	}
	c.auth = &Auth{client: c}
	c.storage = newStorage(c)
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Auth returns the session manager.
func (c *Client) Auth() *Auth {
	return c.auth
}

// Query runs a PostgREST select.
func (c *Client) Query(ctx context.Context, q backend.Query) (backend.Result, error) {
	if q.Table == "" {
		return backend.Result{}, fmt.Errorf("supabase: query without table")
	}

	params := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	params.Set("select", columns)
	for _, f := range q.Filters {
		params.Add(f.Column, string(f.Op)+"."+f.Value)
	}
	if len(q.Order) > 0 {
		parts := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(parts, ","))
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/rest/v1/"+url.PathEscape(q.Table)+"?"+params.Encode(), nil)
	if err != nil {
		return backend.Result{}, err
	}
	req.Header.Set("Accept-Profile", c.cfg.Schema)
	if q.Range != nil {
		req.Header.Set("Range-Unit", "items")
		req.Header.Set("Range", fmt.Sprintf("%d-%d", q.Range.From, q.Range.To))
	}
	if q.Count {
		req.Header.Set("Prefer", "count=exact")
	}

	return c.do(req)
}

// RPC calls a database function with params encoded as its JSON arguments.
func (c *Client) RPC(ctx context.Context, fn string, params any) (backend.Result, error) {
	if fn == "" {
		return backend.Result{}, fmt.Errorf("supabase: rpc without function name")
	}
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return backend.Result{}, fmt.Errorf("marshal rpc params: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/rest/v1/rpc/"+url.PathEscape(fn), bytes.NewReader(body))
	if err != nil {
		return backend.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Profile", c.cfg.Schema)

	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("apikey", c.cfg.AnonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// bearer returns the signed-in user's access token, or the anon key when
// there is no live session.
func (c *Client) bearer() string {
	if s := c.auth.Session(); s != nil && s.AccessToken != "" && !s.Expired(c.now()) {
		return s.AccessToken
	}
	return c.cfg.AnonKey
}

// do sends req. Transport failures are returned as errors; HTTP error
// statuses come back inside the Result.
func (c *Client) do(req *http.Request) (backend.Result, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return backend.Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backend.Result{}, fmt.Errorf("supabase %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return backend.Result{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return backend.Result{Error: parseError(body, resp.StatusCode)}, nil
	}

	return backend.Result{
		Data:  json.RawMessage(body),
		Count: parseContentRange(resp.Header.Get("Content-Range")),
	}, nil
}

// parseError turns an error response body into a backend.Error. PostgREST,
// GoTrue and Storage each use slightly different field names.
func parseError(body []byte, status int) *backend.Error {
	var payload struct {
		Code             json.RawMessage `json:"code"`
		Message          string          `json:"message"`
		Details          string          `json:"details"`
		Hint             string          `json:"hint"`
		Error            string          `json:"error"`
		ErrorDescription string          `json:"error_description"`
		Msg              string          `json:"msg"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &backend.Error{Message: msg, Status: status}
	}

	msg := firstNonEmpty(payload.Message, payload.ErrorDescription, payload.Msg, payload.Error, http.StatusText(status))
	return &backend.Error{
		Code:    rawCode(payload.Code),
		Message: msg,
		Details: payload.Details,
		Hint:    payload.Hint,
		Status:  status,
	}
}

// rawCode accepts codes sent either as strings ("PGRST116") or numbers (400).
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// parseContentRange extracts the total from "0-19/45". An unknown total
// ("0-19/*") or a missing header gives nil.
func parseContentRange(header string) *int64 {
	i := strings.LastIndexByte(header, '/')
	if i < 0 {
		return nil
	}
	total, err := strconv.ParseInt(header[i+1:], 10, 64)
	if err != nil {
		return nil
	}
	return &total
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
