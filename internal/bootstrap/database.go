package bootstrap

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/database"
)

// DatabaseComponents holds database connection and repositories.
type DatabaseComponents struct {
	DB      *sqlx.DB
	GapRepo *database.GapRepository
}

// DatabaseConfig maps service configuration to connection settings.
func DatabaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:   cfg.Database.Driver,
		Host:     cfg.Database.Host,
		Port:     strconv.Itoa(cfg.Database.Port),
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
		Path:     cfg.Database.Path,
	}
}

// SetupDatabase creates the database connection and repositories.
// Returns nil when persistence is disabled.
func SetupDatabase(ctx context.Context, cfg *config.Config, logger infralogger.Logger) (*DatabaseComponents, error) {
	if !cfg.Database.Enabled {
		logger.Info("Database disabled, research gaps will not be persisted")
		return nil, nil
	}

	dbConfig := DatabaseConfig(cfg)
	if dbConfig.Driver == database.DriverSQLite {
		logger.Info("Opening SQLite database", infralogger.String("path", dbConfig.Path))
	} else {
		logger.Info("Connecting to PostgreSQL database",
			infralogger.String("host", dbConfig.Host),
			infralogger.String("port", dbConfig.Port),
			infralogger.String("database", dbConfig.DBName),
		)
	}

	db, err := database.Connect(ctx, dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Database connected successfully")

	return &DatabaseComponents{
		DB:      db,
		GapRepo: database.NewGapRepository(db),
	}, nil
}
