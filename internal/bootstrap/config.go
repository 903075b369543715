// Package bootstrap wires gapfinder's components from configuration.
package bootstrap

import (
	"fmt"

	infraconfig "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/config"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
)

// LoadConfig loads and validates configuration. An empty path falls back to CONFIG_PATH, then
// config.yml; a missing file means defaults and environment only.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = infraconfig.GetConfigPath("config.yml")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// CreateLogger creates a logger instance from configuration.
func CreateLogger(cfg *config.Config) (infralogger.Logger, error) {
	logger, err := infralogger.New(infralogger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Development: cfg.Service.Debug,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger.With(infralogger.String("service", cfg.Service.Name)), nil
}
