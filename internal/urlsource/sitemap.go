package urlsource

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// maxIndexDepth bounds nested sitemap indexes.
const maxIndexDepth = 3

type xmlURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []xmlURL `xml:"url"`
}

type xmlURL struct {
	Loc string `xml:"loc"`
}

type xmlSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Sitemaps []xmlSitemap `xml:"sitemap"`
}

type xmlSitemap struct {
	Loc string `xml:"loc"`
}

// SitemapFileSource reads a local sitemap or sitemap index. Child sitemaps of an index are
// looked up by file name next to the index; nothing is fetched over the network.
type SitemapFileSource struct {
	path string
}

// NewSitemapFileSource creates a source for path.
func NewSitemapFileSource(path string) *SitemapFileSource {
	return &SitemapFileSource{path: path}
}

// Name returns "sitemap:<path>".
func (s *SitemapFileSource) Name() string { return "sitemap:" + s.path }

// Load returns the <loc> values in document order, capped at limit.
func (s *SitemapFileSource) Load(ctx context.Context, limit int) ([]string, error) {
	urls, err := s.load(ctx, s.path, limit, 0)
	if err != nil {
		return nil, err
	}
	return capURLs(urls, limit), nil
}

func (s *SitemapFileSource) load(ctx context.Context, file string, limit, depth int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read sitemap: %w", err)
	}

	var urlset xmlURLSet
	if xml.Unmarshal(data, &urlset) == nil {
		urls := make([]string, 0, len(urlset.URLs))
		for _, u := range urlset.URLs {
			urls = append(urls, u.Loc)
		}
		return urls, nil
	}

	var index xmlSitemapIndex
	if err = xml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("parse sitemap %s: %w", file, err)
	}
	if depth >= maxIndexDepth {
		return nil, fmt.Errorf("sitemap index %s nested deeper than %d", file, maxIndexDepth)
	}

	dir := filepath.Dir(file)
	var urls []string
	for _, sm := range index.Sitemaps {
		child, childErr := s.load(ctx, filepath.Join(dir, childFileName(sm.Loc)), limit, depth+1)
		if childErr != nil {
			return nil, childErr
		}
		urls = append(urls, child...)
		if limit > 0 && len(urls) >= limit {
			break
		}
	}
	return urls, nil
}

// childFileName returns the last path element of a sitemap <loc>, which may be a URL or a path.
func childFileName(loc string) string {
	if u, err := url.Parse(loc); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return filepath.Base(loc)
}
