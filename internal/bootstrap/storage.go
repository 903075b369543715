package bootstrap

import (
	"context"
	"errors"
	"fmt"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	esclient "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/elasticsearch"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	infraredis "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/redis"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/config"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/urlsource"
)

// SetupRedis connects the optional oracle verdict cache.
// Returns nil if Redis is disabled or unavailable (oracle calls are simply not cached).
func SetupRedis(ctx context.Context, cfg *config.Config, logger infralogger.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client, err := infraredis.NewClient(ctx, infraredis.Config{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Failed to connect to Redis", infralogger.Error(err))
		logger.Info("Oracle verdicts will not be cached")
		return nil
	}

	logger.Info("Redis connected successfully", infralogger.String("address", cfg.Redis.Address))
	return client
}

// SetupElasticsearch creates the client for an Elasticsearch url source.
// Returns nil if no index is configured or the cluster is unavailable.
func SetupElasticsearch(ctx context.Context, cfg *config.Config, logger infralogger.Logger) *es.Client {
	if cfg.Sources.ESIndex == "" {
		return nil
	}

	client, err := esclient.NewClient(ctx, esclient.Config{
		URL:      cfg.Elasticsearch.URL,
		Username: cfg.Elasticsearch.Username,
		Password: cfg.Elasticsearch.Password,
		APIKey:   cfg.Elasticsearch.APIKey,
	}, logger)
	if err != nil {
		logger.Warn("Failed to connect to Elasticsearch", infralogger.Error(err))
		logger.Info("Elasticsearch url source will not be available")
		return nil
	}

	logger.Info("Elasticsearch connected successfully", infralogger.String("index", cfg.Sources.ESIndex))
	return client
}

// SetupURLSource builds the configured url source. Returns nil when none is configured.
func SetupURLSource(cfg *config.Config, esClient *es.Client, logger infralogger.Logger) (urlsource.Source, error) {
	srcCfg := urlsource.Config{
		URLsFile:    cfg.Sources.URLsFile,
		SitemapFile: cfg.Sources.SitemapFile,
		ESURLField:  cfg.Sources.ESURLField,
	}
	// an unreachable cluster was already reported by SetupElasticsearch
	if esClient != nil {
		srcCfg.ESIndex = cfg.Sources.ESIndex
	}

	source, err := urlsource.New(srcCfg, esClient)
	if errors.Is(err, urlsource.ErrNoSource) {
		logger.Info("No url source configured, urls must be supplied per request")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("setup url source: %w", err)
	}

	logger.Info("URL source configured", infralogger.String("source", source.Name()))
	return source, nil
}
