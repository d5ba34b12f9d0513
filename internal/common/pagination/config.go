// Package pagination turns page/limit query parameters into the inclusive
// row ranges the backend expects, and wraps list results with page metadata.
package pagination

import (
	"community-hub/pkg/config"
)

// Config holds pagination configuration settings.
type Config struct {
	DefaultPage  int `yaml:"default_page"`
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
	MaxPage      int `yaml:"max_page"`
}

// DefaultConfig returns the default pagination configuration: page=1,
// limit=20, max limit=100, max page=1000.
func DefaultConfig() Config {
	return Config{
		DefaultPage:  1,
		DefaultLimit: 20,
		MaxLimit:     100,
		MaxPage:      1000,
	}
}

// LoadFromEnv loads pagination config from environment variables:
//   - PAGINATION_DEFAULT_PAGE
//   - PAGINATION_DEFAULT_LIMIT
//   - PAGINATION_MAX_LIMIT
//   - PAGINATION_MAX_PAGE
//
// Unset or invalid variables keep their DefaultConfig value.
func LoadFromEnv() Config {
	def := DefaultConfig()
	return Config{
		DefaultPage:  config.GetEnvInt("PAGINATION_DEFAULT_PAGE", def.DefaultPage),
		DefaultLimit: config.GetEnvInt("PAGINATION_DEFAULT_LIMIT", def.DefaultLimit),
		MaxLimit:     config.GetEnvInt("PAGINATION_MAX_LIMIT", def.MaxLimit),
		MaxPage:      config.GetEnvInt("PAGINATION_MAX_PAGE", def.MaxPage),
	}
}

// Normalize replaces non-positive values with DefaultConfig values.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.DefaultPage < 1 {
		c.DefaultPage = def.DefaultPage
	}
	if c.MaxLimit < 1 {
		c.MaxLimit = def.MaxLimit
	}
	if c.DefaultLimit < 1 {
		c.DefaultLimit = def.DefaultLimit
	}
	if c.DefaultLimit > c.MaxLimit {
		c.DefaultLimit = c.MaxLimit
	}
	if c.MaxPage < 1 {
		c.MaxPage = def.MaxPage
	}
	if c.DefaultPage > c.MaxPage {
		c.DefaultPage = c.MaxPage
	}
	return c
}
