// Package config loads the gateway configuration: built-in defaults, then an
// optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"community-hub/internal/common/pagination"
	"community-hub/internal/infra/supabase"
	"community-hub/internal/resilience/circuitbreaker"
	"community-hub/internal/resilience/retry"
	envconfig "community-hub/pkg/config"
)

// Config is the complete gateway configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server"`
	Supabase   supabase.Config   `yaml:"supabase"`
	Pagination pagination.Config `yaml:"pagination"`
	Backend    BackendConfig     `yaml:"backend"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Per client IP.
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// BackendConfig configures the request pipeline in front of the backend.
type BackendConfig struct {
	CircuitThreshold int           `yaml:"circuit_threshold"`
	CircuitCooldown  time.Duration `yaml:"circuit_cooldown"`

	MaxRetries   int           `yaml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
	Multiplier   float64       `yaml:"multiplier"`
	MaxJitter    time.Duration `yaml:"max_jitter"`

	// RealtimeTables are subscribed to at startup; changes are logged.
	RealtimeTables []string `yaml:"realtime_tables"`
}

// Policy returns the circuit breaker configuration.
func (b BackendConfig) Policy() circuitbreaker.PolicyConfig {
	return circuitbreaker.PolicyConfig{
		Name:      "backend",
		Threshold: b.CircuitThreshold,
		Cooldown:  b.CircuitCooldown,
	}
}

// Retry returns the retry configuration.
func (b BackendConfig) Retry() retry.Config {
	cfg := retry.DefaultConfig()
	cfg.MaxRetries = b.MaxRetries
	cfg.InitialDelay = b.InitialDelay
	cfg.MaxDelay = b.MaxDelay
	cfg.Multiplier = b.Multiplier
	cfg.MaxJitter = b.MaxJitter
	return cfg
}

// Default returns the built-in configuration. It has no Supabase project
// and so does not validate on its own.
func Default() Config {
	policy := circuitbreaker.DefaultPolicyConfig()
	rc := retry.DefaultConfig()

	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			RequestTimeout:  25 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitRPS:    10,
			RateLimitBurst:  20,
		},
		Supabase:   supabase.DefaultConfig(),
		Pagination: pagination.DefaultConfig(),
		Backend: BackendConfig{
			CircuitThreshold: policy.Threshold,
			CircuitCooldown:  policy.Cooldown,
			MaxRetries:       rc.MaxRetries,
			InitialDelay:     rc.InitialDelay,
			MaxDelay:         rc.MaxDelay,
			Multiplier:       rc.Multiplier,
			MaxJitter:        rc.MaxJitter,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// path is not empty) and the environment, in that order, and validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		// #nosec G304 -- path comes from the operator, not from requests
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides c with any environment variables that are set.
func (c *Config) applyEnv() {
	s := &c.Server
	s.Addr = envconfig.GetEnvString("SERVER_ADDR", s.Addr)
	s.ReadTimeout = envconfig.GetEnvDuration("SERVER_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = envconfig.GetEnvDuration("SERVER_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = envconfig.GetEnvDuration("SERVER_IDLE_TIMEOUT", s.IdleTimeout)
	s.RequestTimeout = envconfig.GetEnvDuration("SERVER_REQUEST_TIMEOUT", s.RequestTimeout)
	s.ShutdownTimeout = envconfig.GetEnvDuration("SERVER_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.RateLimitRPS = envconfig.GetEnvFloat("RATE_LIMIT_RPS", s.RateLimitRPS)
	s.RateLimitBurst = envconfig.GetEnvInt("RATE_LIMIT_BURST", s.RateLimitBurst)

	sb := &c.Supabase
	sb.URL = envconfig.GetEnvString("SUPABASE_URL", sb.URL)
	sb.AnonKey = envconfig.GetEnvString("SUPABASE_ANON_KEY", sb.AnonKey)
	sb.Schema = envconfig.GetEnvString("SUPABASE_SCHEMA", sb.Schema)
	sb.Timeout = envconfig.GetEnvDuration("SUPABASE_TIMEOUT", sb.Timeout)
	sb.RequestsPerSecond = envconfig.GetEnvFloat("SUPABASE_RPS", sb.RequestsPerSecond)
	sb.Burst = envconfig.GetEnvInt("SUPABASE_BURST", sb.Burst)
	sb.HeartbeatInterval = envconfig.GetEnvDuration("SUPABASE_HEARTBEAT_INTERVAL", sb.HeartbeatInterval)

	p := &c.Pagination
	p.DefaultPage = envconfig.GetEnvInt("PAGINATION_DEFAULT_PAGE", p.DefaultPage)
	p.DefaultLimit = envconfig.GetEnvInt("PAGINATION_DEFAULT_LIMIT", p.DefaultLimit)
	p.MaxLimit = envconfig.GetEnvInt("PAGINATION_MAX_LIMIT", p.MaxLimit)
	p.MaxPage = envconfig.GetEnvInt("PAGINATION_MAX_PAGE", p.MaxPage)

	b := &c.Backend
	b.CircuitThreshold = envconfig.GetEnvInt("CIRCUIT_THRESHOLD", b.CircuitThreshold)
	b.CircuitCooldown = envconfig.GetEnvDuration("CIRCUIT_COOLDOWN", b.CircuitCooldown)
	b.MaxRetries = envconfig.GetEnvInt("RETRY_MAX_RETRIES", b.MaxRetries)
	b.InitialDelay = envconfig.GetEnvDuration("RETRY_INITIAL_DELAY", b.InitialDelay)
	b.MaxDelay = envconfig.GetEnvDuration("RETRY_MAX_DELAY", b.MaxDelay)
	b.Multiplier = envconfig.GetEnvFloat("RETRY_MULTIPLIER", b.Multiplier)
	b.MaxJitter = envconfig.GetEnvDuration("RETRY_MAX_JITTER", b.MaxJitter)
	b.RealtimeTables = envconfig.GetEnvStringList("REALTIME_TABLES", b.RealtimeTables)
}

// Validate checks every section and reports all problems at once.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server addr is required"))
	}
	for name, d := range map[string]time.Duration{
		"server read_timeout":     c.Server.ReadTimeout,
		"server write_timeout":    c.Server.WriteTimeout,
		"server request_timeout":  c.Server.RequestTimeout,
		"server shutdown_timeout": c.Server.ShutdownTimeout,
	} {
		if err := envconfig.ValidatePositiveDuration(d); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if c.Server.RateLimitRPS <= 0 || c.Server.RateLimitBurst < 1 {
		errs = append(errs, errors.New("server rate limit must be positive"))
	}

	if err := c.Supabase.Validate(); err != nil {
		errs = append(errs, err)
	}

	if c.Pagination.DefaultLimit > c.Pagination.MaxLimit {
		errs = append(errs, errors.New("pagination default_limit exceeds max_limit"))
	}
	if c.Pagination.MaxPage < 1 {
		errs = append(errs, errors.New("pagination max_page must be at least 1"))
	}

	b := c.Backend
	if b.CircuitThreshold < 1 {
		errs = append(errs, errors.New("backend circuit_threshold must be at least 1"))
	}
	if err := envconfig.ValidateDurationRange(b.CircuitCooldown, time.Second, 10*time.Minute); err != nil {
		errs = append(errs, fmt.Errorf("backend circuit_cooldown: %w", err))
	}
	if b.MaxRetries < 0 {
		errs = append(errs, errors.New("backend max_retries must not be negative"))
	}
	if b.Multiplier < 1 {
		errs = append(errs, errors.New("backend multiplier must be at least 1"))
	}
	if err := envconfig.ValidateNonNegativeDuration(b.MaxJitter); err != nil {
		errs = append(errs, fmt.Errorf("backend max_jitter: %w", err))
	}
	if b.InitialDelay > b.MaxDelay {
		errs = append(errs, errors.New("backend initial_delay exceeds max_delay"))
	}

	return errors.Join(errs...)
}
