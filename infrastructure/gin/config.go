// Package gin provides the HTTP server shell shared by gapfinder commands: middleware,
// health endpoints and lifecycle management.
package gin

import "time"

// Default timeouts.
const (
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

// Config holds HTTP server configuration.
type Config struct {
	Port            int
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	ServiceName     string
	ServiceVersion  string
	// AllowedOrigins enables CORS for the listed origins; "*" allows any.
	AllowedOrigins []string
}

// SetDefaults fills unset timeouts and the version.
func (c *Config) SetDefaults() {
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "dev"
	}
}
