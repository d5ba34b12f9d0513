package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-hub/internal/resilience/circuitbreaker"
)

type fakeBackend struct {
	state   circuitbreaker.State
	pending []string
}

func (f *fakeBackend) Breaker() circuitbreaker.State { return f.state }
func (f *fakeBackend) Pending() []string             { return f.pending }

func closedState() circuitbreaker.State {
	return circuitbreaker.State{
		Name:      "community-backend",
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealthHandler_ServeHTTP(t *testing.T) {
	open := closedState()
	open.Open = true
	open.FailureCount = 5
	open.NextRetryTime = time.Date(2026, 10, 19, 12, 0, 30, 0, time.UTC)

	tests := []struct {
		name       string
		backend    Backend
		wantCode   int
		wantStatus string
	}{
		{"closed circuit", &fakeBackend{state: closedState()}, http.StatusOK, "healthy"},
		{"open circuit", &fakeBackend{state: open}, http.StatusOK, "degraded"},
		{"no backend", nil, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &HealthHandler{Backend: tt.backend, Version: "1.2.0"}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

			resp := decodeHealth(t, rec)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, "1.2.0", resp.Version)
			assert.Contains(t, resp.Checks, "backend")
		})
	}
}

func TestHealthHandler_Details(t *testing.T) {
	state := closedState()
	state.Open = true
	state.FailureCount = 7
	state.NextRetryTime = time.Date(2026, 10, 19, 12, 0, 30, 0, time.UTC)

	h := &HealthHandler{Backend: &fakeBackend{state: state, pending: []string{"posts_latest_1_20", "trending_topics_10"}}}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	check := decodeHealth(t, rec).Checks["backend"]
	assert.Equal(t, "degraded", check.Status)
	assert.NotEmpty(t, check.Message)
	assert.Equal(t, "community-backend", check.Details["circuit"])
	assert.Equal(t, true, check.Details["open"])
	assert.EqualValues(t, 7, check.Details["failure_count"])
	assert.EqualValues(t, 5, check.Details["threshold"])
	assert.EqualValues(t, 30000, check.Details["cooldown_ms"])
	assert.EqualValues(t, 2, check.Details["in_flight"])
	assert.Equal(t, "2026-10-19T12:00:30Z", check.Details["next_retry_time"])
}

func TestReadyHandler_ServeHTTP(t *testing.T) {
	open := closedState()
	open.Open = true

	tests := []struct {
		name     string
		backend  Backend
		wantCode int
	}{
		{"closed circuit", &fakeBackend{state: closedState()}, http.StatusOK},
		{"open circuit", &fakeBackend{state: open}, http.StatusServiceUnavailable},
		{"no backend", nil, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &ReadyHandler{Backend: tt.backend}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestLiveHandler_ServeHTTP(t *testing.T) {
	rec := httptest.NewRecorder()
	(&LiveHandler{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alive", rec.Body.String())
}
