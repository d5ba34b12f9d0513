package metrics

import (
	"time"
)

// RecordBackendRequest records the outcome of one logical backend request.
func RecordBackendRequest(operation, outcome string, duration time.Duration) {
	BackendRequestsTotal.WithLabelValues(operation, outcome).Inc()
	BackendRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBackendRetry records one retry attempt for operation.
func RecordBackendRetry(operation string) {
	BackendRetriesTotal.WithLabelValues(operation).Inc()
}

// RecordDeduplicated records a caller that shared another caller's request.
func RecordDeduplicated(operation string) {
	BackendRequestsDedupedTotal.WithLabelValues(operation).Inc()
}

// SetInFlight sets the number of distinct in-flight requests.
func SetInFlight(n int) {
	BackendRequestsInFlight.Set(float64(n))
}

// RecordCircuitState records a breaker transition. to is the new state
// name, e.g. "open", "closed" or "half-open".
func RecordCircuitState(name, to string) {
	open := 0.0
	if to == "open" {
		open = 1
	}
	CircuitBreakerOpen.WithLabelValues(name).Set(open)
	CircuitBreakerTransitionsTotal.WithLabelValues(name, to).Inc()
}

// RecordRealtimeEvent records a realtime change event.
func RecordRealtimeEvent(table, changeType string) {
	RealtimeEventsTotal.WithLabelValues(table, changeType).Inc()
}

// RecordStorageUpload records the result of a storage upload.
func RecordStorageUpload(bucket string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	StorageUploadsTotal.WithLabelValues(bucket, result).Inc()
}
