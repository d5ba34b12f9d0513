// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes all application metrics including:
//   - HTTP request metrics for the gateway (duration, count, size)
//   - Backend request metrics (outcomes, retries, deduplicated callers)
//   - Circuit breaker state
//   - Realtime and storage activity
//
// All metrics are automatically registered with the Prometheus default registry
// and exposed via the /metrics endpoint.
//
// Example usage:
//
//	import "community-hub/internal/observability/metrics"
//
//	func fetch(op string) {
//	    start := time.Now()
//	    // ... call the backend ...
//	    metrics.RecordBackendRequest(op, "success", time.Since(start))
//	}
package metrics
