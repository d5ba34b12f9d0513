package circuitbreaker

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by Policy.Check while the circuit is open.
var ErrOpen = errors.New("circuit breaker is open")

// PolicyConfig configures a consecutive-failure Policy.
type PolicyConfig struct {
	// Name identifies the policy in logs and metrics
	Name string

	// Threshold is the number of consecutive failures that opens the circuit
	Threshold int

	// Cooldown is how long the circuit stays open before the next probe
	Cooldown time.Duration
}

// DefaultPolicyConfig returns the policy used for backend requests.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Name:      "backend",
		Threshold: 5,
		Cooldown:  30 * time.Second,
	}
}

// State is a point-in-time view of a Policy.
type State struct {
	Name          string        `json:"name"`
	Open          bool          `json:"open"`
	FailureCount  int           `json:"failure_count"`
	Threshold     int           `json:"threshold"`
	Cooldown      time.Duration `json:"cooldown"`
	NextRetryTime time.Time     `json:"next_retry_time,omitempty"`
}

// PolicyOption customizes a Policy.
type PolicyOption func(*Policy)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) PolicyOption {
	return func(p *Policy) { p.now = now }
}

// WithStateChangeHook registers fn to be called after every open/close
// transition. fn runs outside the policy lock.
func WithStateChangeHook(fn func(name string, open bool)) PolicyOption {
	return func(p *Policy) { p.onChange = fn }
}

// Policy is a two-state circuit breaker counting consecutive failures.
//
// Unlike gobreaker there is no separate half-open state: once the cooldown
// has elapsed, Allow closes the circuit and resets the counter, and the next
// call is a live probe. If it fails the counter climbs from zero again and
// the circuit reopens after Threshold further consecutive failures.
type Policy struct {
	mu            sync.Mutex
	cfg           PolicyConfig
	open          bool
	failures      int
	nextRetryTime time.Time
	now           func() time.Time
	onChange      func(name string, open bool)
}

// NewPolicy creates a closed Policy. Non-positive values in cfg fall back to
// DefaultPolicyConfig.
func NewPolicy(cfg PolicyConfig, opts ...PolicyOption) *Policy {
	def := DefaultPolicyConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}

	p := &Policy{
		cfg: cfg,
		now: time.Now,
		onChange: func(name string, open bool) {
			slog.Warn("circuit breaker state changed",
				slog.String("circuit", name),
				slog.Bool("open", open))
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Allow reports whether a request may proceed. An open circuit whose cooldown
// has elapsed is closed with a zero failure count before Allow returns true.
func (p *Policy) Allow() bool {
	p.mu.Lock()
	if !p.open {
		p.mu.Unlock()
		return true
	}
	if p.now().Before(p.nextRetryTime) {
		p.mu.Unlock()
		return false
	}
	p.open = false
	p.failures = 0
	p.nextRetryTime = time.Time{}
	p.mu.Unlock()

	p.notify(false)
	return true
}

// Check is Allow expressed as an error, for use as a retry gate.
func (p *Policy) Check() error {
	if p.Allow() {
		return nil
	}
	return ErrOpen
}

// RecordResult reports the outcome of one attempt. A success resets the
// failure count. A failure increments it and opens the circuit once it
// reaches the threshold. Results recorded while already open come from calls
// admitted before the circuit opened; they neither close it nor extend the
// cooldown.
func (p *Policy) RecordResult(success bool) {
	p.mu.Lock()
	if success {
		if !p.open {
			p.failures = 0
		}
		p.mu.Unlock()
		return
	}

	p.failures++
	if p.open || p.failures < p.cfg.Threshold {
		p.mu.Unlock()
		return
	}
	p.open = true
	p.nextRetryTime = p.now().Add(p.cfg.Cooldown)
	p.mu.Unlock()

	p.notify(true)
}

// Snapshot returns the current state.
func (p *Policy) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return State{
		Name:          p.cfg.Name,
		Open:          p.open,
		FailureCount:  p.failures,
		Threshold:     p.cfg.Threshold,
		Cooldown:      p.cfg.Cooldown,
		NextRetryTime: p.nextRetryTime,
	}
}

// Name returns the policy name.
func (p *Policy) Name() string {
	return p.cfg.Name
}

func (p *Policy) notify(open bool) {
	if p.onChange != nil {
		p.onChange(p.cfg.Name, open)
	}
}
