// Package tracing provides OpenTelemetry tracing integration.
//
// Middleware creates a server span per gateway request and StartBackendSpan
// a client span per logical backend request, so one trace shows the HTTP
// request, the deduplicated backend call and its retry count.
//
// Spans go to the globally registered TracerProvider; without one they are
// no-ops.
package tracing
