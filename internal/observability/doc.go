// Package observability groups the logging, metrics and tracing
// infrastructure.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for the gateway, backend requests and breakers
//   - tracing: OpenTelemetry spans for gateway requests and backend calls
package observability
