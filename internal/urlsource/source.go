// Package urlsource loads the known URLs a site already publishes.
package urlsource

import (
	"context"
	"errors"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
)

// Default caps on loaded URLs.
const (
	DefaultCLILimit = 10
	DefaultAPILimit = 50
)

// ErrNoSource is returned by New when nothing is configured.
var ErrNoSource = errors.New("no url source configured")

// Source loads URLs. A limit of zero or less means no cap.
type Source interface {
	Load(ctx context.Context, limit int) ([]string, error)
	// Name describes the source for logs.
	Name() string
}

// Config selects a source. The first non-empty option wins: URLsFile, SitemapFile, ESIndex.
type Config struct {
	URLsFile    string
	SitemapFile string
	ESIndex     string
	ESURLField  string
}

// New builds the configured source. esClient may be nil unless ESIndex is set.
func New(cfg Config, esClient *es.Client) (Source, error) {
	switch {
	case cfg.URLsFile != "":
		return NewJSONFileSource(cfg.URLsFile), nil
	case cfg.SitemapFile != "":
		return NewSitemapFileSource(cfg.SitemapFile), nil
	case cfg.ESIndex != "":
		if esClient == nil {
			return nil, errors.New("elasticsearch source configured without a client")
		}
		return NewElasticsearchSource(esClient, cfg.ESIndex, cfg.ESURLField), nil
	default:
		return nil, ErrNoSource
	}
}

// capURLs trims blanks and applies limit.
func capURLs(urls []string, limit int) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u == "" {
			continue
		}
		out = append(out, u)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
