package gin

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/jwt"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
)

// ServerBuilder assembles a Server.
type ServerBuilder struct {
	config       *Config
	logger       logger.Logger
	setupRoutes  func(*gin.Engine)
	middleware   []gin.HandlerFunc
	healthChecks map[string]HealthChecker
}

// NewServerBuilder starts a builder for the named service.
func NewServerBuilder(serviceName string, port int) *ServerBuilder {
	return &ServerBuilder{
		config:       &Config{ServiceName: serviceName, Port: port},
		healthChecks: make(map[string]HealthChecker),
	}
}

func (b *ServerBuilder) WithLogger(log logger.Logger) *ServerBuilder {
	b.logger = log
	return b
}

func (b *ServerBuilder) WithDebug(debug bool) *ServerBuilder {
	b.config.Debug = debug
	return b
}

func (b *ServerBuilder) WithVersion(version string) *ServerBuilder {
	b.config.ServiceVersion = version
	return b
}

func (b *ServerBuilder) WithTimeouts(read, write, idle time.Duration) *ServerBuilder {
	b.config.ReadTimeout = read
	b.config.WriteTimeout = write
	b.config.IdleTimeout = idle
	return b
}

func (b *ServerBuilder) WithCORSOrigins(origins []string) *ServerBuilder {
	b.config.AllowedOrigins = origins
	return b
}

// WithHealthCheck registers a named readiness check.
func (b *ServerBuilder) WithHealthCheck(name string, check HealthChecker) *ServerBuilder {
	b.healthChecks[name] = check
	return b
}

// WithMiddleware appends handlers that run ahead of every route, health routes included.
func (b *ServerBuilder) WithMiddleware(handlers ...gin.HandlerFunc) *ServerBuilder {
	b.middleware = append(b.middleware, handlers...)
	return b
}

func (b *ServerBuilder) WithRoutes(setup func(*gin.Engine)) *ServerBuilder {
	b.setupRoutes = setup
	return b
}

// Build registers health routes and the service routes.
func (b *ServerBuilder) Build() *Server {
	if b.logger == nil {
		b.logger = logger.NewNop()
	}

	return NewServer(b.config, b.logger, func(router *gin.Engine) {
		router.Use(b.middleware...)
		RegisterHealthRoutes(router, b.config.ServiceName, b.config.ServiceVersion, b.healthChecks)
		if b.setupRoutes != nil {
			b.setupRoutes(router)
		}
	})
}

// ProtectedGroup creates a route group behind JWT auth. An empty secret leaves it open.
func ProtectedGroup(router *gin.Engine, path, jwtSecret string) *gin.RouterGroup {
	group := router.Group(path)
	if jwtSecret != "" {
		group.Use(jwt.Middleware(jwtSecret))
	}
	return group
}
