package gin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
)

// Server is an HTTP server with graceful shutdown.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger logger.Logger
	config *Config
}

// NewServer builds the router with the standard middleware chain, then calls setupRoutes.
func NewServer(cfg *Config, log logger.Logger, setupRoutes func(*gin.Engine)) *Server {
	cfg.SetDefaults()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		RecoveryMiddleware(log),
		RequestIDLoggerMiddleware(log),
		LoggerMiddleware(log),
	)
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(CORSMiddleware(cfg.AllowedOrigins))
	}

	if setupRoutes != nil {
		setupRoutes(router)
	}

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		logger: log,
		config: cfg,
	}
}

// Router returns the gin engine; used by tests to serve requests directly.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server",
		logger.String("address", s.server.Addr),
		logger.String("service", s.config.ServiceName),
		logger.String("version", s.config.ServiceVersion),
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits up to the shutdown timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// RunWithGracefulShutdown serves until ctx ends or SIGINT/SIGTERM arrives.
func (s *Server) RunWithGracefulShutdown(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
		s.logger.Info("Shutdown requested")
	}

	//nolint:contextcheck // the parent context is already done
	return s.Shutdown(context.Background())
}
