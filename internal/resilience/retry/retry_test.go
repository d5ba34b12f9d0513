package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"community-hub/internal/backend"
)

var errTransient = errors.New("connection reset by peer")

// instant records requested delays without sleeping.
type instant struct {
	delays []time.Duration
}

func (s *instant) Sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func testConfig(s *instant) Config {
	cfg := DefaultConfig()
	cfg.Sleep = s.Sleep
	return cfg
}

func TestConfig_BaseDelay(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{60, 10 * time.Second},
		{-1, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cfg.BaseDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestConfig_Delay_Jitter(t *testing.T) {
	cfg := DefaultConfig()

	for i := 0; i < 100; i++ {
		d := cfg.Delay(1)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.Less(t, d, 3*time.Second)
	}

	cfg.MaxJitter = 0
	assert.Equal(t, 2*time.Second, cfg.Delay(1))
}

func TestWithBackoff_Success(t *testing.T) {
	s := &instant{}
	attempts := 0

	err := WithBackoff(context.Background(), testConfig(s), func(int) error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, s.delays)
}

func TestWithBackoff_SuccessAfterRetry(t *testing.T) {
	s := &instant{}
	var seen []int

	err := WithBackoff(context.Background(), testConfig(s), func(attempt int) error {
		seen = append(seen, attempt)
		if attempt < 2 {
			return &backend.Error{Status: 503, Message: "unavailable"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, seen)
	require.Len(t, s.delays, 2)
	assert.GreaterOrEqual(t, s.delays[0], 1*time.Second)
	assert.GreaterOrEqual(t, s.delays[1], 2*time.Second)
}

func TestWithBackoff_Exhausted(t *testing.T) {
	s := &instant{}
	attempts := 0

	err := WithBackoff(context.Background(), testConfig(s), func(int) error {
		attempts++
		return errTransient
	})

	assert.Same(t, errTransient, err, "last error is returned unchanged")
	assert.Equal(t, 4, attempts, "first attempt plus three retries")
	assert.Len(t, s.delays, 3)
}

func TestWithBackoff_NonRetryable(t *testing.T) {
	s := &instant{}
	attempts := 0
	denied := &backend.Error{Code: "42501", Message: "permission denied for table posts"}

	err := WithBackoff(context.Background(), testConfig(s), func(int) error {
		attempts++
		return denied
	})

	assert.Same(t, denied, err)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, s.delays)
}

func TestWithBackoff_GateAborts(t *testing.T) {
	s := &instant{}
	errOpen := errors.New("open")
	attempts := 0
	checks := 0

	cfg := testConfig(s)
	cfg.Gate = func() error {
		checks++
		if attempts >= 2 {
			return errOpen
		}
		return nil
	}

	err := WithBackoff(context.Background(), cfg, func(int) error {
		attempts++
		return errTransient
	})

	assert.ErrorIs(t, err, errOpen)
	assert.Equal(t, 2, attempts)
	assert.Len(t, s.delays, 1)
	assert.Equal(t, 3, checks)
}

func TestWithBackoff_GateCheckedAfterSleep(t *testing.T) {
	s := &instant{}
	errOpen := errors.New("open")
	slept := false

	cfg := testConfig(s)
	cfg.Sleep = func(ctx context.Context, d time.Duration) error {
		slept = true
		return nil
	}
	cfg.Gate = func() error {
		if slept {
			return errOpen
		}
		return nil
	}

	attempts := 0
	err := WithBackoff(context.Background(), cfg, func(int) error {
		attempts++
		return errTransient
	})

	assert.ErrorIs(t, err, errOpen)
	assert.Equal(t, 1, attempts, "no attempt after the breaker opened during the sleep")
}

func TestWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &instant{}
	attempts := 0

	err := WithBackoff(ctx, testConfig(s), func(int) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errTransient
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestWithBackoff_RealSleep(t *testing.T) {
	cfg := Config{
		MaxRetries:   2,
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		Multiplier:   2.0,
		ShouldRetry:  func(error) bool { return true },
	}

	var retried []int
	cfg.OnRetry = func(attempt int, delay time.Duration, err error) {
		retried = append(retried, attempt)
		assert.Equal(t, cfg.BaseDelay(attempt), delay)
	}

	start := time.Now()
	err := WithBackoff(context.Background(), cfg, func(int) error { return errors.New("boom") })

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []int{0, 1}, retried)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}
