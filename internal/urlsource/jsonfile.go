package urlsource

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// JSONFileSource reads a JSON array of URL strings, e.g. a saved sitemap_urls.json.
type JSONFileSource struct {
	path string
}

// NewJSONFileSource creates a source for path.
func NewJSONFileSource(path string) *JSONFileSource {
	return &JSONFileSource{path: path}
}

// Name returns "json:<path>".
func (s *JSONFileSource) Name() string { return "json:" + s.path }

// Load returns the first limit URLs of the file.
func (s *JSONFileSource) Load(_ context.Context, limit int) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read urls file: %w", err)
	}

	var urls []string
	if err = json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("parse urls file %s: %w", s.path, err)
	}
	return capURLs(urls, limit), nil
}
