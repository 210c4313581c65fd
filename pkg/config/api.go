package config

import "fmt"

// DefaultAPIListen is the default API server listen address.
const DefaultAPIListen = ":8080"

// APIConfig contains all API server configuration.
type APIConfig struct {
	Server APIServerConfig `yaml:"server"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty"`
}

// RateLimitConfig configures per-IP rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
}

const defaultRateLimitRequestsPerMinute = 120

// applyDefaults sets default values for unspecified API options.
func (c *APIConfig) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultAPIListen
	}

	if c.Server.RateLimit.Enabled &&
		c.Server.RateLimit.RequestsPerMinute == 0 {
		c.Server.RateLimit.RequestsPerMinute =
			defaultRateLimitRequestsPerMinute
	}
}

// Validate checks the API configuration for errors.
func (c *APIConfig) Validate() error {
	if c.Server.RateLimit.Enabled &&
		c.Server.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("api.server.rate_limit.requests_per_minute must be positive")
	}

	return nil
}
