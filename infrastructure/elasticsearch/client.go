// Package elasticsearch builds a go-elasticsearch client and verifies the cluster is reachable.
package elasticsearch

import (
	"context"
	"fmt"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/retry"
)

const defaultURL = "http://localhost:9200"

// Config holds Elasticsearch connection settings.
type Config struct {
	URL         string
	Username    string
	Password    string
	APIKey      string
	MaxRetries  int
	PingTimeout time.Duration
	// Retry controls connection verification. Zero value retries 3 times from 1s.
	Retry retry.Config
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	c.URL = normalizeURL(c.URL)
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PingTimeout == 0 {
		c.PingTimeout = 5 * time.Second
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry = retry.Config{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     5 * time.Second,
			Multiplier:   2,
			IsRetryable:  func(error) bool { return true },
		}
	}
}

// NewClient creates a client and pings the cluster, retrying with backoff.
func NewClient(ctx context.Context, cfg Config, log logger.Logger) (*es.Client, error) {
	cfg.SetDefaults()

	esCfg := es.Config{
		Addresses:  []string{cfg.URL},
		MaxRetries: cfg.MaxRetries,
	}
	switch {
	case cfg.APIKey != "":
		esCfg.APIKey = cfg.APIKey
	case cfg.Username != "":
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	client, err := es.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	err = retry.Retry(ctx, cfg.Retry, func() error {
		return ping(ctx, client, cfg.PingTimeout)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to elasticsearch %s: %w", cfg.URL, err)
	}

	log.Info("Elasticsearch connection established", logger.String("url", cfg.URL))
	return client, nil
}

func ping(ctx context.Context, client *es.Client, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := client.Ping(client.Ping.WithContext(pingCtx))
	if err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("ping returned %s", res.Status())
	}
	return nil
}

func normalizeURL(url string) string {
	if url == "" {
		return defaultURL
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}
