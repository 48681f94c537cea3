package adsift

import (
	"time"

	"github.com/jmylchreest/adsift/internal/scheduler"
	"github.com/jmylchreest/adsift/pkg/fetcher"
	"github.com/jmylchreest/adsift/pkg/site"
)

// Config holds all adsift configuration.
type Config struct {
	// Fetch settings
	UserAgent   string
	Timeout     time.Duration `validate:"gte=0"`
	MaxBodySize int           `validate:"gte=0"`

	// APIEndpoint overrides the lookup endpoint of API based site profiles.
	APIEndpoint string `validate:"omitempty,url"`

	// FlareSolverrURL enables challenge solving for fetches that hit a
	// bot challenge.
	FlareSolverrURL string `validate:"omitempty,url"`

	// Schedule controls watch passes.
	Schedule scheduler.Config

	// Injected dependencies (optional)
	Fetcher  fetcher.Fetcher `validate:"-"`
	Registry *site.Registry  `validate:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	static := fetcher.DefaultStaticConfig()
	return Config{
		UserAgent: static.UserAgent,
		Timeout:   static.Timeout,
		Schedule:  scheduler.DefaultConfig(),
	}
}

// Option configures adsift.
type Option func(*Config)

// WithUserAgent sets the HTTP user agent for ad and API requests.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithTimeout sets the transport timeout of each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithMaxBodySize caps response bodies, in bytes.
func WithMaxBodySize(n int) Option {
	return func(c *Config) {
		c.MaxBodySize = n
	}
}

// WithAPIEndpoint overrides the ad lookup endpoint.
func WithAPIEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.APIEndpoint = endpoint
	}
}

// WithFlareSolverr routes challenged fetches through the FlareSolverr API
// at url, e.g. http://localhost:8191/v1.
func WithFlareSolverr(url string) Option {
	return func(c *Config) {
		c.FlareSolverrURL = url
	}
}

// WithSchedule sets the watch timing.
func WithSchedule(initialDelay, interval time.Duration) Option {
	return func(c *Config) {
		c.Schedule = scheduler.Config{InitialDelay: initialDelay, Interval: interval}
	}
}

// WithFetcher injects a custom fetcher.
func WithFetcher(f fetcher.Fetcher) Option {
	return func(c *Config) {
		c.Fetcher = f
	}
}

// WithRegistry replaces the built-in site profiles.
func WithRegistry(r *site.Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}
