package bootstrap

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/circuitbreaker"
	infrahttp "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/http"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/matcher"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/oracle"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

const (
	oracleRetryInitialDelay = 250 * time.Millisecond
	oracleRetryMaxDelay     = 2 * time.Second
	oracleRetryMultiplier   = 2.0
)

// SetupOracle creates the language-model fallback. Returns nil when the oracle is disabled.
// cache may be nil.
func SetupOracle(
	cfg *config.Config,
	cache *redis.Client,
	tel *telemetry.Provider,
	logger infralogger.Logger,
) (*oracle.Adapter, error) {
	if !cfg.Oracle.Enabled {
		logger.Info("Oracle disabled, only deterministic strategies will run")
		return nil, nil
	}

	httpClient := infrahttp.NewClient(infrahttp.ClientConfig{Timeout: cfg.Oracle.Timeout})
	generator, err := oracle.NewGenerator(oracle.GeneratorConfig{
		Provider:    cfg.Oracle.Provider,
		BaseURL:     cfg.Oracle.BaseURL,
		APIKey:      cfg.Oracle.APIKey,
		Model:       cfg.Oracle.Model,
		Temperature: cfg.Oracle.Temperature,
	}, httpClient)
	if err != nil {
		return nil, fmt.Errorf("create oracle generator: %w", err)
	}

	opts := []oracle.AdapterOption{
		oracle.WithLogger(logger.With(infralogger.String("component", "oracle"))),
		oracle.WithTelemetry(tel),
	}
	if cache != nil {
		opts = append(opts, oracle.WithCache(oracle.NewRedisCache(cache, cfg.Redis.CacheTTL)))
	}

	adapter := oracle.NewAdapter(generator, oracle.Config{
		Timeout:           cfg.Oracle.Timeout,
		RequestsPerSecond: cfg.Oracle.RequestsPerSecond,
		Retry: retry.Config{
			MaxAttempts:  cfg.Oracle.MaxAttempts,
			InitialDelay: oracleRetryInitialDelay,
			MaxDelay:     oracleRetryMaxDelay,
			Multiplier:   oracleRetryMultiplier,
		},
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Oracle.BreakerFailures,
			Timeout:          cfg.Oracle.BreakerTimeout,
		},
	}, opts...)

	logger.Info("Oracle initialized",
		infralogger.String("generator", adapter.Name()),
		infralogger.Bool("cached", cache != nil),
	)
	return adapter, nil
}

// SetupPipeline creates the default matching pipeline. adapter may be nil.
func SetupPipeline(cfg *config.Config, adapter *oracle.Adapter) (*matcher.Pipeline, error) {
	mode, err := matcher.ParseMode(cfg.Matching.Pipeline)
	if err != nil {
		return nil, err
	}

	opts := []matcher.Option{matcher.WithFuzzyThreshold(cfg.Matching.FuzzyThreshold)}
	// a nil *Adapter must not become a non-nil Classifier
	if adapter != nil {
		opts = append(opts, matcher.WithOracle(adapter))
	}

	pipeline, err := matcher.NewPipeline(mode, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}
	return pipeline, nil
}
