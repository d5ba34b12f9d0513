// Package retry provides retry logic with exponential backoff and jitter.
// It helps handle transient failures gracefully by automatically retrying failed operations.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"community-hub/internal/apierror"
)

// Config holds the configuration for retry logic.
type Config struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialDelay is the base delay before the first retry
	InitialDelay time.Duration

	// MaxDelay caps the exponential part of the delay
	MaxDelay time.Duration

	// Multiplier is the multiplier for exponential backoff
	Multiplier float64

	// MaxJitter is the upper bound of the uniform random delay added on top
	MaxJitter time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to apierror.IsRetryable.
	ShouldRetry func(error) bool

	// Gate is consulted before and after every backoff sleep. A non-nil
	// error aborts the sequence and is returned as is.
	Gate func() error

	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultConfig returns the retry configuration for backend requests.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		MaxJitter:    1 * time.Second,
	}
}

// RealtimeConfig returns configuration for realtime reconnects.
// More attempts with a short base, since a dropped socket usually comes back quickly.
func RealtimeConfig() Config {
	return Config{
		MaxRetries:   5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     15 * time.Second,
		Multiplier:   2.0,
		MaxJitter:    500 * time.Millisecond,
	}
}

// BaseDelay returns the backoff delay for a 0-based retry attempt, without
// jitter: min(InitialDelay * Multiplier^attempt, MaxDelay).
func (c Config) BaseDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if c.MaxDelay > 0 && (d > float64(c.MaxDelay) || math.IsInf(d, 0) || math.IsNaN(d)) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Delay returns BaseDelay(attempt) plus uniform jitter in [0, MaxJitter).
func (c Config) Delay(attempt int) time.Duration {
	return c.BaseDelay(attempt) + jitter(c.MaxJitter)
}

// WithBackoff calls fn until it succeeds, returns a non-retryable error, or
// MaxRetries retries have been spent. fn receives the 0-based attempt number.
// The last error is returned unchanged so callers can classify it.
func WithBackoff(ctx context.Context, cfg Config, fn func(attempt int) error) error {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = apierror.IsRetryable
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			if attempt > 0 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}

		if !shouldRetry(err) {
			if attempt > 0 {
				slog.Warn("non-retryable error, aborting",
					slog.Int("attempt", attempt),
					slog.Any("error", err))
			}
			return err
		}

		if attempt >= cfg.MaxRetries {
			slog.Warn("retries exhausted",
				slog.Int("max_retries", cfg.MaxRetries),
				slog.Any("error", err))
			return err
		}

		if gateErr := checkGate(cfg.Gate); gateErr != nil {
			return gateErr
		}

		delay := cfg.Delay(attempt)
		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", cfg.MaxRetries),
			slog.Duration("delay", delay),
			slog.Any("error", err))
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}

		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry aborted: %w", err)
		}

		if gateErr := checkGate(cfg.Gate); gateErr != nil {
			return gateErr
		}
	}
}

func checkGate(gate func() error) error {
	if gate == nil {
		return nil
	}
	return gate()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	// #nosec G404 -- Using math/rand is acceptable for jitter calculation.
	return time.Duration(rand.Int63n(int64(limit)))
}
