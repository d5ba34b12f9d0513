package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the global tracer instance for the community-hub application.
var tracer = otel.Tracer("community-hub")

// GetTracer returns the global tracer for creating spans.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return tracer
}

// StartBackendSpan starts a client span for one logical backend request.
func StartBackendSpan(ctx context.Context, operation, cacheKey string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "backend "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend.operation", operation),
			attribute.String("backend.cache_key", cacheKey),
		))
}

// EndBackendSpan records the attempt count and outcome and ends span.
func EndBackendSpan(span trace.Span, attempts int, err error) {
	span.SetAttributes(attribute.Int("backend.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
