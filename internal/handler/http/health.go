// Package http provides the gateway's HTTP handlers and middleware: health
// and readiness probes, the Prometheus endpoint, request logging, panic
// recovery, rate limiting and timeouts.
package http

import (
	"net/http"
	"time"

	"community-hub/internal/handler/http/respond"
	"community-hub/internal/resilience/circuitbreaker"
)

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string                 `json:"status"`    // "healthy", "degraded" or "unhealthy"
	Timestamp string                 `json:"timestamp"` // ISO 8601 format
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus represents the status of a single health check.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// Backend reports the state of the request pipeline. *request.Orchestrator
// implements it.
type Backend interface {
	Breaker() circuitbreaker.State
	Pending() []string
}

// HealthHandler reports the backend circuit breaker and in-flight requests.
type HealthHandler struct {
	Backend Backend
	Version string
}

// ServeHTTP returns 200 while the circuit is closed or open and 503 when no
// backend is configured. An open circuit is reported as "degraded": the
// gateway is up but backend reads fail fast until the cooldown ends.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]CheckStatus)
	status := "healthy"
	code := http.StatusOK

	if h.Backend == nil {
		checks["backend"] = CheckStatus{Status: "unhealthy", Message: "not configured"}
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		check := checkBreaker(h.Backend.Breaker())
		check.Details["in_flight"] = len(h.Backend.Pending())
		checks["backend"] = check
		if check.Status != "healthy" {
			status = check.Status
		}
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func checkBreaker(state circuitbreaker.State) CheckStatus {
	details := map[string]any{
		"circuit":       state.Name,
		"open":          state.Open,
		"failure_count": state.FailureCount,
		"threshold":     state.Threshold,
		"cooldown_ms":   state.Cooldown.Milliseconds(),
	}
	if !state.Open {
		return CheckStatus{Status: "healthy", Details: details}
	}

	details["next_retry_time"] = state.NextRetryTime.UTC().Format(time.RFC3339)
	return CheckStatus{
		Status:  "degraded",
		Message: "circuit open, backend requests fail fast",
		Details: details,
	}
}

// ReadyHandler handles readiness probes. It reports not ready while the
// backend circuit is open so load balancers can route around the instance.
type ReadyHandler struct {
	Backend Backend
}

// ServeHTTP returns 200 "ready" or 503.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Backend == nil {
		http.Error(w, "backend not configured", http.StatusServiceUnavailable)
		return
	}
	if h.Backend.Breaker().Open {
		http.Error(w, "backend circuit open", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler handles liveness probes.
type LiveHandler struct{}

// ServeHTTP always returns 200 "alive".
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("alive"))
}
