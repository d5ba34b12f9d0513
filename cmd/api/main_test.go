package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-hub/internal/backend"
	"community-hub/internal/config"
	"community-hub/internal/handler/http/requestid"
)

type fakeBackend struct {
	calls atomic.Int32
	res   backend.Result
	err   error
}

func (f *fakeBackend) Query(context.Context, backend.Query) (backend.Result, error) {
	f.calls.Add(1)
	return f.res, f.err
}

func (f *fakeBackend) RPC(context.Context, string, any) (backend.Result, error) {
	f.calls.Add(1)
	return f.res, f.err
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Supabase.URL = "https://demo.supabase.co"
	cfg.Supabase.AnonKey = "anon"
	cfg.Backend.MaxRetries = 0
	cfg.Backend.CircuitThreshold = 2
	cfg.Server.RequestTimeout = 5 * time.Second
	return cfg
}

func TestSetupServer_Routes(t *testing.T) {
	total := int64(1)
	fb := &fakeBackend{res: backend.Result{Data: json.RawMessage(`[{"id":"p1","title":"Hello"}]`), Count: &total}}
	handler, _ := setupServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig(), fb, nil, "test")
	srv := httptest.NewServer(handler)
	defer srv.Close()

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/posts", http.StatusOK},
		{"/events?upcoming=true", http.StatusOK},
		{"/trending", http.StatusOK},
		{"/health", http.StatusOK},
		{"/ready", http.StatusOK},
		{"/live", http.StatusOK},
		{"/metrics", http.StatusOK},
		{"/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(srv.URL + tt.path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get(requestid.Header))
			assert.NotEmpty(t, resp.Header.Get("X-Trace-Id"))
		})
	}
}

func TestSetupServer_CircuitOpensAndHealthDegrades(t *testing.T) {
	fb := &fakeBackend{err: io.ErrUnexpectedEOF}
	handler, orch := setupServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig(), fb, nil, "test")

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, http.StatusServiceUnavailable, get("/posts").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get("/posts?page=2").Code)
	require.True(t, orch.Breaker().Open)
	calls := fb.calls.Load()

	assert.Equal(t, http.StatusServiceUnavailable, get("/posts?page=3").Code)
	assert.Equal(t, calls, fb.calls.Load(), "open circuit fails fast")

	rec := get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"degraded"`)
	assert.Equal(t, http.StatusServiceUnavailable, get("/ready").Code)
}

type memStorage struct {
	objects map[string]string
}

func (m *memStorage) Upload(_ context.Context, bucket, name, _ string, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.objects[bucket+"/"+name] = string(b)
	return name, nil
}

func (m *memStorage) PublicURL(bucket, objectPath string) string {
	return "https://demo.supabase.co/storage/v1/object/public/" + bucket + "/" + objectPath
}

func TestSetupServer_Media(t *testing.T) {
	fb := &fakeBackend{res: backend.Result{Data: json.RawMessage(
		`[{"id":"p1","title":"Lost cat","image_url":"cat.jpg","author":{"id":"u1","username":"ana","avatar_url":"ana.png"}}]`)}}
	storage := &memStorage{objects: make(map[string]string)}
	handler, _ := setupServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig(), fb, storage, "test")

	req := httptest.NewRequest(http.MethodPost, "/uploads/post-images?name=cat.jpg", strings.NewReader("jpeg"))
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "jpeg", storage.objects["post-images/cat.jpg"])
	assert.Contains(t, rec.Body.String(), `"url":"https://demo.supabase.co/storage/v1/object/public/post-images/cat.jpg"`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"image_url":"https://demo.supabase.co/storage/v1/object/public/post-images/cat.jpg"`)
	assert.Contains(t, rec.Body.String(), `"avatar_url":"https://demo.supabase.co/storage/v1/object/public/avatars/ana.png"`)
}

func TestSetupServer_OversizedPageNeverReachesBackend(t *testing.T) {
	fb := &fakeBackend{res: backend.Result{Data: json.RawMessage(`[]`)}}
	handler, orch := setupServer(slog.New(slog.NewTextHandler(io.Discard, nil)), testConfig(), fb, nil, "test")

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts?page=461168601842738790&limit=20", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	assert.Zero(t, fb.calls.Load())
	assert.False(t, orch.Breaker().Open)
}
