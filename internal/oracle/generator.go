// Package oracle asks an external language model whether a slug contains a combination phrase.
//
// The oracle is best-effort and non-deterministic. Every failure becomes a "no" verdict.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnavailable wraps every backend failure: transport errors, timeouts, non-200 responses and
// payloads without generated text.
var ErrUnavailable = errors.New("oracle unavailable")

// Generator produces free text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name identifies the backend and model, e.g. "ollama/deepseek-r1:1.5b".
	Name() string
}

// Provider names.
const (
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// GeneratorConfig selects and configures a backend.
type GeneratorConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
}

// NewGenerator builds the backend named by cfg.Provider.
func NewGenerator(cfg GeneratorConfig, httpClient *http.Client) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderOllama:
		return NewOllamaClient(httpClient, cfg.BaseURL, cfg.Model, cfg.Temperature), nil
	case ProviderOpenAI:
		return NewOpenAIClient(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("anthropic provider requires an api key")
		}
		return NewAnthropicClient(httpClient, cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Temperature), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
