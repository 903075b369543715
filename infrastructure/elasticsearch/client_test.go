package elasticsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/retry"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://elasticsearch:9200", "http://elasticsearch:9200"},
		{"https://elasticsearch:9200", "https://elasticsearch:9200"},
		{"elasticsearch:9200", "http://elasticsearch:9200"},
		{"", "http://localhost:9200"},
	}

	for _, tt := range tests {
		if got := normalizeURL(tt.input); got != tt.expected {
			t.Errorf("normalizeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestNewClient_PingsCluster(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(context.Background(), Config{URL: srv.URL}, logger.NewNop())
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if client == nil {
		t.Fatal("NewClient() returned nil client")
	}
}

func TestNewClient_FailsWhenClusterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := Config{
		URL:        srv.URL,
		MaxRetries: 1,
		Retry: retry.Config{
			MaxAttempts:  2,
			InitialDelay: time.Millisecond,
			IsRetryable:  func(error) bool { return true },
		},
	}
	if _, err := NewClient(context.Background(), cfg, logger.NewNop()); err == nil {
		t.Fatal("NewClient() expected error for unavailable cluster")
	}
}
