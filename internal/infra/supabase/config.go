// Package supabase implements the backend port against a Supabase project:
// PostgREST table queries and RPCs, object storage, realtime change feeds and
// password-based auth sessions.
package supabase

import (
	"errors"
	"fmt"
	"time"

	"community-hub/internal/domain/entity"
)

// Config holds Supabase client configuration.
type Config struct {
	// URL is the project URL, e.g. https://xyz.supabase.co
	URL string `yaml:"url"`

	// AnonKey is the public anon API key. Row level security applies.
	AnonKey string `yaml:"anon_key"`

	// Schema is the exposed database schema. Defaults to "public".
	Schema string `yaml:"schema"`

	// Timeout is the HTTP request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// RequestsPerSecond and Burst bound outbound REST traffic.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`

	// HeartbeatInterval is the realtime keepalive period.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
}

// DefaultConfig returns the adapter defaults with no project configured.
func DefaultConfig() Config {
	return Config{
		Schema:            "public",
		Timeout:           15 * time.Second,
		RequestsPerSecond: 20,
		Burst:             40,
		HeartbeatInterval: 25 * time.Second,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := entity.ValidateURL(c.URL); err != nil {
		return fmt.Errorf("supabase url: %w", err)
	}
	if c.AnonKey == "" {
		return errors.New("supabase anon key is required")
	}
	if c.Timeout <= 0 {
		return errors.New("supabase timeout must be positive")
	}
	if c.RequestsPerSecond <= 0 || c.Burst < 1 {
		return errors.New("supabase rate limit must be positive")
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Schema == "" {
		c.Schema = def.Schema
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = def.RequestsPerSecond
	}
	if c.Burst < 1 {
		c.Burst = def.Burst
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	return c
}
