package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-hub/internal/backend"
)

type wsServer struct {
	mu       sync.Mutex
	received []phxIncoming
	conns    chan *websocket.Conn
}

func (s *wsServer) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.received))
	for i, m := range s.received {
		out[i] = m.Event
	}
	return out
}

func newRealtimeServer(t *testing.T) (*Client, *wsServer) {
	t.Helper()
	ws := &wsServer{conns: make(chan *websocket.Conn, 4)}
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/realtime/v1/websocket", r.URL.Path)
		assert.Equal(t, testAnonKey, r.URL.Query().Get("apikey"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.conns <- conn
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg phxIncoming
			if json.Unmarshal(raw, &msg) == nil {
				ws.mu.Lock()
				ws.received = append(ws.received, msg)
				ws.mu.Unlock()
			}
		}
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, AnonKey: testAnonKey, HeartbeatInterval: 20 * time.Millisecond})
	require.NoError(t, err)
	return c, ws
}

func TestRealtime_SubscribeDeliversChanges(t *testing.T) {
	c, ws := newRealtimeServer(t)
	rt := c.Realtime(nil)

	events := make(chan backend.ChangeEvent, 4)
	sub, err := rt.Subscribe(context.Background(), "posts", func(ev backend.ChangeEvent) {
		events <- ev
	})
	require.NoError(t, err)

	var conn *websocket.Conn
	select {
	case conn = <-ws.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("no websocket connection")
	}

	require.Eventually(t, func() bool {
		ev := ws.events()
		return len(ev) > 0 && ev[0] == "phx_join"
	}, 2*time.Second, 10*time.Millisecond)

	ws.mu.Lock()
	join := ws.received[0]
	ws.mu.Unlock()
	assert.Equal(t, "realtime:public:posts", join.Topic)
	assert.Contains(t, string(join.Payload), `"table":"posts"`)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{
		"topic":"realtime:public:posts","event":"postgres_changes","ref":null,
		"payload":{"ids":[1],"data":{"type":"INSERT","schema":"public","table":"posts",
		"commit_timestamp":"2026-06-01T09:00:00Z","record":{"id":"p9","title":"Found keys"},"old_record":null}}}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{
		"topic":"realtime:public:events","event":"postgres_changes",
		"payload":{"data":{"type":"INSERT","table":"events"}}}`)))

	select {
	case ev := <-events:
		assert.Equal(t, backend.ChangeInsert, ev.Type)
		assert.Equal(t, "posts", ev.Table)
		assert.JSONEq(t, `{"id":"p9","title":"Found keys"}`, string(ev.Record))
		assert.Equal(t, time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC), ev.CommitTimestamp.UTC())
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}

	require.Eventually(t, func() bool {
		for _, e := range ws.events() {
			if e == "heartbeat" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	require.Eventually(t, func() bool {
		for _, e := range ws.events() {
			if e == "phx_leave" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event for another topic: %+v", ev)
	default:
	}
}

func TestRealtime_Reconnects(t *testing.T) {
	c, ws := newRealtimeServer(t)
	rt := c.Realtime(nil)
	rt.retry.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }

	sub, err := rt.Subscribe(context.Background(), "events", func(backend.ChangeEvent) {})
	require.NoError(t, err)
	defer func() { _ = rt.Close() }()

	first := <-ws.conns
	_ = first.Close()

	select {
	case <-ws.conns:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not reconnect")
	}

	require.Eventually(t, func() bool {
		joins := 0
		for _, e := range ws.events() {
			if e == "phx_join" {
				joins++
			}
		}
		return joins == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sub.Unsubscribe())
}

func TestRealtime_SubscribeValidation(t *testing.T) {
	c, err := New(Config{URL: "https://abc.supabase.co", AnonKey: testAnonKey})
	require.NoError(t, err)
	rt := c.Realtime(nil)

	_, err = rt.Subscribe(context.Background(), "", func(backend.ChangeEvent) {})
	assert.Error(t, err)
	_, err = rt.Subscribe(context.Background(), "posts", nil)
	assert.Error(t, err)

	assert.True(t, strings.HasPrefix(rt.wsURL, "wss://abc.supabase.co/realtime/v1/websocket?apikey="))
}

func TestRealtime_SubscribeFailsWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c, err := New(Config{URL: srv.URL, AnonKey: testAnonKey})
	require.NoError(t, err)
	srv.Close()

	rt := c.Realtime(nil)
	rt.retry.Sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	rt.retry.MaxRetries = 1

	_, err = rt.Subscribe(context.Background(), "posts", func(backend.ChangeEvent) {})
	assert.Error(t, err)
}
