// Package request is the single entry point for calls to the data platform.
//
// Every logical request goes through the same pipeline: identical concurrent
// requests are collapsed into one call, the circuit breaker may reject the
// call outright, transient failures are retried with backoff, and whatever
// error is left over is classified before it reaches the caller.
package request

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"community-hub/internal/apierror"
	"community-hub/internal/observability/metrics"
	"community-hub/internal/observability/tracing"
	"community-hub/internal/resilience/circuitbreaker"
	"community-hub/internal/resilience/retry"
)

// Options configures an Orchestrator. Zero fields get defaults.
type Options struct {
	Policy     *circuitbreaker.Policy
	Retry      *retry.Config
	Classifier *apierror.Classifier
	Logger     *slog.Logger
}

// Orchestrator deduplicates, guards, retries and classifies backend calls.
// It is safe for concurrent use.
type Orchestrator struct {
	policy     *circuitbreaker.Policy
	retry      retry.Config
	classifier *apierror.Classifier
	logger     *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	pending map[string]int // waiting callers per key
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	policy := opts.Policy
	if policy == nil {
		policy = circuitbreaker.NewPolicy(circuitbreaker.DefaultPolicyConfig(),
			circuitbreaker.WithStateChangeHook(StateChangeHook(logger)))
	}

	cfg := retry.DefaultConfig()
	if opts.Retry != nil {
		cfg = *opts.Retry
	}

	classifier := opts.Classifier
	if classifier == nil {
		classifier = &apierror.Classifier{Logger: logger}
	}
	if cfg.ShouldRetry == nil {
		cfg.ShouldRetry = classifier.IsRetryable
	}

	return &Orchestrator{
		policy:     policy,
		retry:      cfg,
		classifier: classifier,
		logger:     logger,
		pending:    make(map[string]int),
	}
}

// StateChangeHook returns a circuit breaker hook that logs transitions and
// exports them as metrics.
func StateChangeHook(logger *slog.Logger) func(name string, open bool) {
	return func(name string, open bool) {
		state := "closed"
		if open {
			state = "open"
			logger.Warn("circuit breaker opened, backend requests will fail fast",
				slog.String("circuit", name))
		} else {
			logger.Info("circuit breaker closed, probing backend",
				slog.String("circuit", name))
		}
		metrics.RecordCircuitState(name, state)
	}
}

// Func is one attempt at a backend call. It runs under a context detached
// from any single caller's cancellation.
type Func func(ctx context.Context) (any, error)

// Do runs fn for the logical operation op, sharing the call with every
// concurrent caller using the same key.
//
// ctx bounds only this caller's wait: if it is done first, Do returns its
// error while the shared call keeps running for the remaining callers. Errors
// are always *apierror.Error.
func (o *Orchestrator) Do(ctx context.Context, op, key string, fn Func) (any, error) {
	o.track(key)

	var led atomic.Bool
	ch := o.group.DoChan(key, func() (any, error) {
		led.Store(true)
		return o.execute(context.WithoutCancel(ctx), op, key, fn)
	})

	select {
	case res := <-ch:
		o.untrack(key)
		if !led.Load() {
			metrics.RecordDeduplicated(op)
			o.logger.Debug("joined in-flight backend request",
				slog.String("operation", op),
				slog.String("key", key))
		}
		if res.Err != nil {
			return nil, o.classify(res.Err, op)
		}
		return res.Val, nil
	case <-ctx.Done():
		// The call keeps running for other callers; the key stays pending
		// until it finishes.
		go func() {
			<-ch
			o.untrack(key)
		}()
		return nil, o.classify(ctx.Err(), op)
	}
}

// execute is the body of a deduplicated call. It runs exactly once per key
// at a time.
func (o *Orchestrator) execute(ctx context.Context, op, key string, fn Func) (val any, err error) {
	start := time.Now()
	ctx, span := tracing.StartBackendSpan(ctx, op, key)
	attempts := 0
	defer func() {
		tracing.EndBackendSpan(span, attempts, err)
		metrics.RecordBackendRequest(op, outcome(err), time.Since(start))
	}()

	if !o.policy.Allow() {
		return nil, apierror.ServiceUnavailable(op)
	}

	cfg := o.retry
	cfg.Gate = o.policy.Check
	onRetry := o.retry.OnRetry
	cfg.OnRetry = func(attempt int, delay time.Duration, cause error) {
		metrics.RecordBackendRetry(op)
		if onRetry != nil {
			onRetry(attempt, delay, cause)
		}
	}

	err = retry.WithBackoff(ctx, cfg, func(attempt int) error {
		attempts = attempt + 1
		v, callErr := o.attempt(ctx, op, fn)
		o.record(callErr)
		if callErr != nil {
			return callErr
		}
		val = v
		return nil
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, apierror.ServiceUnavailable(op)
	}
	if err != nil {
		return nil, o.classify(err, op)
	}
	return val, nil
}

// attempt runs fn once, turning a panic into an error.
func (o *Orchestrator) attempt(ctx context.Context, op string, fn Func) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("backend request panicked",
				slog.String("operation", op),
				slog.Any("panic", rec))
			err = fmt.Errorf("%s: panic: %v", op, rec)
		}
	}()
	return fn(ctx)
}

// record reports one attempt to the breaker. Outcomes that say nothing about
// backend health leave the failure count as it is.
func (o *Orchestrator) record(err error) {
	switch {
	case err == nil:
		o.policy.RecordResult(true)
	case o.classifier.CountsAsFailure(err):
		o.policy.RecordResult(false)
	}
}

func (o *Orchestrator) classify(err error, op string) *apierror.Error {
	return o.classifier.Classify(err, op)
}

func (o *Orchestrator) track(key string) {
	o.mu.Lock()
	o.pending[key]++
	n := len(o.pending)
	o.mu.Unlock()
	metrics.SetInFlight(n)
}

func (o *Orchestrator) untrack(key string) {
	o.mu.Lock()
	if o.pending[key]--; o.pending[key] <= 0 {
		delete(o.pending, key)
	}
	n := len(o.pending)
	o.mu.Unlock()
	metrics.SetInFlight(n)
}

// Pending returns the keys of calls currently in flight, sorted. A key is
// listed from the moment Do is entered until the shared call has finished
// and every caller waiting on it has been released.
func (o *Orchestrator) Pending() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	keys := make([]string, 0, len(o.pending))
	for k := range o.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Breaker returns the current circuit breaker state.
func (o *Orchestrator) Breaker() circuitbreaker.State {
	return o.policy.Snapshot()
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(apierror.KindOf(err))
}
