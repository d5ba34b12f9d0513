package request

import (
	"context"
	"fmt"
	"log/slog"

	"community-hub/internal/apierror"
	"community-hub/internal/backend"
)

// MakeRequest is the typed form of Orchestrator.Do.
func MakeRequest[T any](ctx context.Context, o *Orchestrator, op, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	v, err := o.Do(ctx, op, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}

	out, ok := v.(T)
	if !ok {
		return zero, o.classify(fmt.Errorf("%s: shared result has type %T, want %T", op, v, zero), op)
	}
	return out, nil
}

// Page is a decoded backend result with its optional exact row count.
type Page[T any] struct {
	Items T
	Count *int64
}

// Fetch runs a backend call through the orchestrator and decodes its payload.
// A result carrying an error payload is treated exactly like a returned
// error, so it is retried and counted by the circuit breaker.
func Fetch[T any](ctx context.Context, o *Orchestrator, op, key string, call func(ctx context.Context) (backend.Result, error)) (Page[T], error) {
	res, err := MakeRequest(ctx, o, op, key, func(ctx context.Context) (backend.Result, error) {
		res, err := call(ctx)
		if err != nil {
			return backend.Result{}, err
		}
		if err := res.Err(); err != nil {
			return backend.Result{}, err
		}
		return res, nil
	})
	if err != nil {
		return Page[T]{}, err
	}

	items, err := backend.Decode[T](res)
	if err != nil {
		o.logger.Error("undecodable backend payload",
			slog.String("operation", op),
			slog.Any("error", err))
		return Page[T]{}, &apierror.Error{
			Message:   apierror.MessageUnexpected,
			Code:      apierror.CodeUnknown,
			Kind:      apierror.KindUnknown,
			Operation: op,
			Raw:       err,
		}
	}
	return Page[T]{Items: items, Count: res.Count}, nil
}
