package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"community-hub/internal/backend"
	"community-hub/internal/observability/metrics"
	"community-hub/internal/resilience/circuitbreaker"
	"community-hub/internal/resilience/retry"
)

// Phoenix channel events used by the realtime server.
const (
	eventJoin            = "phx_join"
	eventLeave           = "phx_leave"
	eventReply           = "phx_reply"
	eventHeartbeat       = "heartbeat"
	eventPostgresChanges = "postgres_changes"
)

type phxOutgoing struct {
	Topic   string `json:"topic"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
	Ref     string `json:"ref"`
	JoinRef string `json:"join_ref,omitempty"`
}

type phxIncoming struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type changeData struct {
	Type            backend.ChangeType `json:"type"`
	Schema          string             `json:"schema"`
	Table           string             `json:"table"`
	CommitTimestamp time.Time          `json:"commit_timestamp"`
	Record          json.RawMessage    `json:"record"`
	OldRecord       json.RawMessage    `json:"old_record"`
}

// Realtime subscribes to row changes over the Phoenix websocket protocol.
// Every subscription holds its own connection and reconnects with backoff
// when the connection drops.
type Realtime struct {
	client    *Client
	wsURL     string
	dialer    *websocket.Dialer
	breaker   *circuitbreaker.CircuitBreaker
	retry     retry.Config
	heartbeat time.Duration
	logger    *slog.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

var _ backend.Realtime = (*Realtime)(nil)

// Realtime returns the realtime surface.
func (c *Client) Realtime(logger *slog.Logger) *Realtime {
	if logger == nil {
		logger = slog.Default()
	}

	wsURL := c.baseURL
	switch {
	case strings.HasPrefix(wsURL, "https://"):
		wsURL = "wss://" + strings.TrimPrefix(wsURL, "https://")
	case strings.HasPrefix(wsURL, "http://"):
		wsURL = "ws://" + strings.TrimPrefix(wsURL, "http://")
	}
	wsURL += "/realtime/v1/websocket?apikey=" + url.QueryEscape(c.cfg.AnonKey) + "&vsn=1.0.0"

	breakerCfg := circuitbreaker.RealtimeConfig()
	breakerCfg.OnStateChange = recordBreakerState

	rt := &Realtime{
		client:    c,
		wsURL:     wsURL,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		breaker:   circuitbreaker.New(breakerCfg),
		retry:     retry.RealtimeConfig(),
		heartbeat: c.cfg.HeartbeatInterval,
		logger:    logger.With(slog.String("component", "realtime")),
		subs:      make(map[*subscription]struct{}),
	}
	rt.retry.ShouldRetry = func(err error) bool {
		return !circuitbreaker.IsRejection(err) &&
			!errors.Is(err, context.Canceled) &&
			!errors.Is(err, context.DeadlineExceeded)
	}
	return rt
}

// Subscribe starts delivering changes on table to handler. The first
// connection is established before Subscribe returns; later reconnects
// happen in the background until Unsubscribe or Close.
func (rt *Realtime) Subscribe(ctx context.Context, table string, handler func(backend.ChangeEvent)) (backend.Subscription, error) {
	if table == "" {
		return nil, errors.New("subscribe: table is required")
	}
	if handler == nil {
		return nil, errors.New("subscribe: handler is required")
	}

	sub := &subscription{
		rt:      rt,
		table:   table,
		topic:   "realtime:" + rt.client.cfg.Schema + ":" + table,
		handler: handler,
		done:    make(chan struct{}),
	}

	conn, err := rt.connect(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", table, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub.cancel = cancel

	rt.mu.Lock()
	rt.subs[sub] = struct{}{}
	rt.mu.Unlock()

	go sub.run(runCtx, conn)
	return sub, nil
}

// Close ends every active subscription.
func (rt *Realtime) Close() error {
	rt.mu.Lock()
	subs := make([]*subscription, 0, len(rt.subs))
	for s := range rt.subs {
		subs = append(subs, s)
	}
	rt.mu.Unlock()

	var errs []error
	for _, s := range subs {
		if err := s.Unsubscribe(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// connect dials, through the breaker and with backoff, and joins sub's topic.
func (rt *Realtime) connect(ctx context.Context, sub *subscription) (*websocket.Conn, error) {
	var conn *websocket.Conn
	err := retry.WithBackoff(ctx, rt.retry, func(attempt int) error {
		v, err := rt.breaker.Execute(func() (any, error) {
			c, _, err := rt.dialer.DialContext(ctx, rt.wsURL, nil)
			if err != nil {
				return nil, fmt.Errorf("websocket dial: %w", err)
			}
			return c, nil
		})
		if err != nil {
			return err
		}
		conn = v.(*websocket.Conn)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := sub.join(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

type subscription struct {
	rt      *Realtime
	table   string
	topic   string
	handler func(backend.ChangeEvent)

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	ref    atomic.Int64

	writeMu sync.Mutex
	conn    *websocket.Conn
	joinRef string
}

func (s *subscription) nextRef() string {
	return strconv.FormatInt(s.ref.Add(1), 10)
}

func (s *subscription) write(conn *websocket.Conn, msg phxOutgoing) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (s *subscription) join(conn *websocket.Conn) error {
	ref := s.nextRef()
	payload := map[string]any{
		"config": map[string]any{
			"broadcast": map[string]any{"self": false},
			"presence":  map[string]any{"key": ""},
			"postgres_changes": []map[string]string{{
				"event":  "*",
				"schema": s.rt.client.cfg.Schema,
				"table":  s.table,
			}},
		},
		"access_token": s.rt.client.bearer(),
	}
	if err := s.write(conn, phxOutgoing{Topic: s.topic, Event: eventJoin, Payload: payload, Ref: ref, JoinRef: ref}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	s.writeMu.Lock()
	s.conn = conn
	s.joinRef = ref
	s.writeMu.Unlock()
	return nil
}

func (s *subscription) run(ctx context.Context, conn *websocket.Conn) {
	defer close(s.done)

	for {
		err := s.serve(ctx, conn)
		if ctx.Err() != nil {
			return
		}
		s.rt.logger.Warn("realtime connection lost, reconnecting",
			slog.String("table", s.table),
			slog.Any("error", err))

		conn, err = s.rt.connect(ctx, s)
		if err != nil {
			if ctx.Err() == nil {
				s.rt.logger.Error("realtime reconnect failed, subscription ended",
					slog.String("table", s.table),
					slog.Any("error", err))
			}
			return
		}
	}
}

// serve reads from conn until it fails or ctx is done.
func (s *subscription) serve(ctx context.Context, conn *websocket.Conn) error {
	connCtx, stop := context.WithCancel(ctx)
	defer stop()

	go func() {
		<-connCtx.Done()
		_ = conn.Close()
	}()
	go s.keepalive(connCtx, conn)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		s.dispatch(msg)
	}
}

func (s *subscription) keepalive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.rt.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			msg := phxOutgoing{Topic: "phoenix", Event: eventHeartbeat, Payload: map[string]any{}, Ref: s.nextRef()}
			if err := s.write(conn, msg); err != nil {
				s.rt.logger.Debug("heartbeat failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (s *subscription) dispatch(raw []byte) {
	var msg phxIncoming
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.rt.logger.Debug("ignoring malformed realtime frame", slog.Any("error", err))
		return
	}
	if msg.Topic != s.topic {
		return
	}

	var data changeData
	switch msg.Event {
	case eventPostgresChanges:
		var wrapper struct {
			Data changeData `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &wrapper); err != nil {
			return
		}
		data = wrapper.Data
	case string(backend.ChangeInsert), string(backend.ChangeUpdate), string(backend.ChangeDelete):
		if err := json.Unmarshal(msg.Payload, &data); err != nil {
			return
		}
		if data.Type == "" {
			data.Type = backend.ChangeType(msg.Event)
		}
	case eventReply:
		var reply struct {
			Status string `json:"status"`
		}
		if err := json.Unmarshal(msg.Payload, &reply); err == nil && reply.Status == "error" {
			s.rt.logger.Warn("realtime join rejected",
				slog.String("table", s.table),
				slog.String("payload", string(msg.Payload)))
		}
		return
	default:
		return
	}

	switch data.Type {
	case backend.ChangeInsert, backend.ChangeUpdate, backend.ChangeDelete:
	default:
		return
	}

	metrics.RecordRealtimeEvent(s.table, string(data.Type))
	s.handler(backend.ChangeEvent{
		Type:            data.Type,
		Schema:          data.Schema,
		Table:           data.Table,
		Record:          data.Record,
		OldRecord:       data.OldRecord,
		CommitTimestamp: data.CommitTimestamp,
	})
}

// Unsubscribe leaves the channel and closes the connection. It is safe to
// call more than once.
func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		s.writeMu.Lock()
		conn, joinRef := s.conn, s.joinRef
		s.writeMu.Unlock()

		select {
		case <-s.done:
			conn = nil
		default:
		}
		if conn != nil {
			err = s.write(conn, phxOutgoing{Topic: s.topic, Event: eventLeave, Payload: map[string]any{}, Ref: s.nextRef(), JoinRef: joinRef})
		}
		s.cancel()
		<-s.done

		s.rt.mu.Lock()
		delete(s.rt.subs, s)
		s.rt.mu.Unlock()
	})
	if err != nil {
		return fmt.Errorf("send leave: %w", err)
	}
	return nil
}
