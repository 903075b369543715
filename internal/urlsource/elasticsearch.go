package urlsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"
)

const (
	defaultURLField = "url"
	// maxSearchSize matches the default index.max_result_window.
	maxSearchSize = 10000
)

// ElasticsearchSource reads URLs from a field of indexed documents, e.g. crawled pages.
type ElasticsearchSource struct {
	client *es.Client
	index  string
	field  string
}

// NewElasticsearchSource creates a source over index. An empty field reads "url".
func NewElasticsearchSource(client *es.Client, index, field string) *ElasticsearchSource {
	if field == "" {
		field = defaultURLField
	}
	return &ElasticsearchSource{client: client, index: index, field: field}
}

// Name returns "elasticsearch:<index>".
func (s *ElasticsearchSource) Name() string { return "elasticsearch:" + s.index }

// Load searches for documents that carry the URL field.
func (s *ElasticsearchSource) Load(ctx context.Context, limit int) ([]string, error) {
	size := limit
	if size <= 0 || size > maxSearchSize {
		size = maxSearchSize
	}

	query := map[string]any{
		"query": map[string]any{
			"exists": map[string]any{"field": s.field},
		},
		"_source": []string{s.field},
		"size":    size,
	}

	queryBytes, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(queryBytes)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("error searching: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err = json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}

	urls := make([]string, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		if u, ok := lookupString(hit.Source, s.field); ok {
			urls = append(urls, u)
		}
	}
	return capURLs(urls, limit), nil
}

// lookupString resolves a dotted field path in a decoded _source document.
func lookupString(doc map[string]any, field string) (string, bool) {
	var cur any = doc
	for _, part := range strings.Split(field, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		cur = m[part]
	}
	s, ok := cur.(string)
	return s, ok
}
