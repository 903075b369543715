package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/circuitbreaker"
	infragin "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/gin"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/api"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/database"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/gapdetector"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/oracle"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/urlsource"
)

const defaultHTTPTimeout = 30 * time.Second

// Components holds everything a detection run needs. Optional parts are nil when disabled.
type Components struct {
	Config    *config.Config
	Logger    infralogger.Logger
	Telemetry *telemetry.Provider
	Database  *DatabaseComponents
	Redis     *redis.Client
	Oracle    *oracle.Adapter
	Detector  *gapdetector.Detector
	Source    urlsource.Source
}

// NewComponents connects the configured collaborators and builds the detector.
func NewComponents(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*Components, error) {
	comps := &Components{
		Config:    cfg,
		Logger:    logger,
		Telemetry: telemetry.NewProvider(),
	}

	dbComps, err := SetupDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("setup database: %w", err)
	}
	comps.Database = dbComps

	comps.Redis = SetupRedis(ctx, cfg, logger)

	comps.Oracle, err = SetupOracle(cfg, comps.Redis, comps.Telemetry, logger)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("setup oracle: %w", err)
	}

	pipeline, err := SetupPipeline(cfg, comps.Oracle)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("setup pipeline: %w", err)
	}

	comps.Source, err = SetupURLSource(cfg, SetupElasticsearch(ctx, cfg, logger), logger)
	if err != nil {
		comps.Close()
		return nil, err
	}

	comps.Detector = gapdetector.New(pipeline,
		gapdetector.WithConcurrency(cfg.Service.Concurrency),
		gapdetector.WithLogger(logger),
		gapdetector.WithTelemetry(comps.Telemetry),
	)
	logger.Info("Gap detector initialized",
		infralogger.String("pipeline", string(pipeline.Mode())),
		infralogger.Float64("fuzzy_threshold", pipeline.FuzzyThreshold()),
		infralogger.Int("concurrency", cfg.Service.Concurrency),
	)

	return comps, nil
}

// GapRepository returns the repository, or nil when persistence is disabled.
func (c *Components) GapRepository() *database.GapRepository {
	if c.Database == nil {
		return nil
	}
	return c.Database.GapRepo
}

// Close releases connections. Safe to call on partially built components.
func (c *Components) Close() {
	if c.Database != nil {
		if err := database.Close(c.Database.DB); err != nil {
			c.Logger.Error("Failed to close database", infralogger.Error(err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Error("Failed to close redis", infralogger.Error(err))
		}
	}
}

// HTTPComponents holds all components needed for the HTTP server.
type HTTPComponents struct {
	*Components
	Handler *api.Handler
	Server  *infragin.Server
}

// NewHTTPComponents creates all components for the HTTP server.
func NewHTTPComponents(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*HTTPComponents, error) {
	comps, err := NewComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var store api.GapStore
	if repo := comps.GapRepository(); repo != nil {
		store = repo
	}
	handler := api.NewHandler(comps.Detector, store, comps.Source, cfg.Sources.APILimit, logger)

	serverConfig := api.ServerConfig{
		Port:         cfg.Service.Port,
		ReadTimeout:  defaultHTTPTimeout,
		Debug:        cfg.Service.Debug,
		HealthChecks: healthChecks(comps),
		Telemetry:    comps.Telemetry,
	}
	server := api.NewServer(handler, serverConfig, cfg, logger)

	return &HTTPComponents{
		Components: comps,
		Handler:    handler,
		Server:     server,
	}, nil
}

// healthChecks covers the optional dependencies. A failing check degrades readiness, never fails it.
func healthChecks(comps *Components) map[string]infragin.HealthChecker {
	checks := make(map[string]infragin.HealthChecker)
	if repo := comps.GapRepository(); repo != nil {
		checks["database"] = infragin.PingChecker(repo.Ping, false)
	}
	if comps.Redis != nil {
		checks["redis"] = infragin.PingChecker(func(ctx context.Context) error {
			return comps.Redis.Ping(ctx).Err()
		}, false)
	}
	if comps.Oracle != nil {
		checks["oracle"] = func(context.Context) infragin.CheckResult {
			state := comps.Oracle.BreakerState()
			result := infragin.CheckResult{
				Status:  infragin.HealthStatusHealthy,
				Message: comps.Oracle.Name() + " circuit " + state.String(),
			}
			if state == circuitbreaker.StateOpen {
				result.Status = infragin.HealthStatusDegraded
			}
			return result
		}
	}
	return checks
}
