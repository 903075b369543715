// Package api exposes gap detection over HTTP.
package api

import (
	"time"

	"github.com/gin-gonic/gin"

	infragin "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

// Default timeout values.
const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 120 * time.Second
	defaultIdleTimeout  = 120 * time.Second
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
	// HealthChecks are run by /health/ready.
	HealthChecks map[string]infragin.HealthChecker
	// Telemetry instruments every request and serves /metrics when set.
	Telemetry *telemetry.Provider
}

// NewServer creates a new HTTP server using the infrastructure gin package.
func NewServer(handler *Handler, serverCfg ServerConfig, cfg *config.Config, infraLog infralogger.Logger) *infragin.Server {
	readTimeout := serverCfg.ReadTimeout
	if readTimeout == 0 {
		readTimeout = defaultReadTimeout
	}
	// oracle-backed analyses can run long
	writeTimeout := serverCfg.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = defaultWriteTimeout
	}

	builder := infragin.NewServerBuilder(cfg.Service.Name, serverCfg.Port).
		WithLogger(infraLog).
		WithDebug(serverCfg.Debug).
		WithVersion(cfg.Service.Version).
		WithTimeouts(readTimeout, writeTimeout, defaultIdleTimeout).
		WithCORSOrigins(cfg.Service.AllowedOrigins)
	if serverCfg.Telemetry != nil {
		builder = builder.WithMiddleware(serverCfg.Telemetry.GinMiddleware())
	}
	for name, check := range serverCfg.HealthChecks {
		builder = builder.WithHealthCheck(name, check)
	}

	return builder.
		WithRoutes(func(router *gin.Engine) {
			SetupServiceRoutes(router, handler, cfg, serverCfg.Telemetry)
		}).
		Build()
}
