// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics track HTTP request patterns and performance
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration measures HTTP request duration in seconds
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// HTTPResponseSize measures HTTP response body size in bytes
	HTTPResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "path"},
	)

	// ActiveConnections tracks the number of in-flight HTTP requests
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)
)

// Backend request metrics track calls made through the request orchestrator
var (
	// BackendRequestsTotal counts logical backend requests by operation and outcome.
	// outcome is "success", "service_unavailable", or the classified error kind.
	BackendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "Total number of logical backend requests",
		},
		[]string{"operation", "outcome"},
	)

	// BackendRequestDuration measures a logical request including retries
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "Backend request duration in seconds, including retries",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// BackendRetriesTotal counts retry attempts
	BackendRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_retries_total",
			Help: "Total number of backend retry attempts",
		},
		[]string{"operation"},
	)

	// BackendRequestsDedupedTotal counts callers that joined an in-flight request
	BackendRequestsDedupedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_requests_deduped_total",
			Help: "Total number of requests served by an identical in-flight request",
		},
		[]string{"operation"},
	)

	// BackendRequestsInFlight tracks pending deduplicated requests
	BackendRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backend_requests_in_flight",
			Help: "Number of distinct backend requests currently in flight",
		},
	)
)

// Circuit breaker metrics
var (
	// CircuitBreakerOpen is 1 while the named breaker is open
	CircuitBreakerOpen = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_open",
			Help: "Whether the circuit breaker is open (1) or closed (0)",
		},
		[]string{"name"},
	)

	// CircuitBreakerTransitionsTotal counts state transitions
	CircuitBreakerTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "to"},
	)
)

// Platform surface metrics
var (
	// RealtimeEventsTotal counts change events received over realtime subscriptions
	RealtimeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realtime_events_total",
			Help: "Total number of realtime change events received",
		},
		[]string{"table", "type"},
	)

	// StorageUploadsTotal counts object uploads by result
	StorageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_uploads_total",
			Help: "Total number of storage uploads",
		},
		[]string{"bucket", "result"},
	)
)

// RecordHTTPRequest records an HTTP request with its metadata
func RecordHTTPRequest(method, path, status string, duration time.Duration, responseSize int) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())

	if responseSize > 0 {
		HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
	}
}
