package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Ollama defaults.
const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "deepseek-r1:1.5b"
	DefaultTemperature = 0.1
)

// maxResponseBytes caps how much of a backend response is read.
const maxResponseBytes = 1 << 20

// OllamaClient calls the Ollama generate API.
type OllamaClient struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	temperature float64
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaResponse struct {
	Response *string `json:"response"`
}

// NewOllamaClient creates an Ollama backend. Empty values use the defaults.
func NewOllamaClient(httpClient *http.Client, baseURL, model string, temperature float64) *OllamaClient {
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	return &OllamaClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
	}
}

// Name returns "ollama/<model>".
func (c *OllamaClient) Name() string { return ProviderOllama + "/" + c.model }

// Generate posts a non-streaming generate request and returns the response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(ollamaRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  false,
		Options: ollamaOptions{Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var result ollamaResponse
	if err = postJSON(ctx, c.httpClient, c.baseURL+"/api/generate", nil, body, &result); err != nil {
		return "", err
	}
	if result.Response == nil {
		return "", fmt.Errorf("%w: response field missing", ErrUnavailable)
	}
	return *result.Response, nil
}

// postJSON sends body to url and decodes a 200 response into out. Every failure wraps
// ErrUnavailable.
func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: http request: %w", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return &statusError{status: resp.StatusCode}
	}

	if decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); decodeErr != nil {
		return fmt.Errorf("%w: decode response: %w", ErrUnavailable, decodeErr)
	}
	return nil
}

// statusError is a non-200 backend response.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: backend returned %d", ErrUnavailable, e.status)
}

func (e *statusError) Unwrap() error { return ErrUnavailable }

// Temporary reports whether the status is worth retrying.
func (e *statusError) Temporary() bool {
	return e.status == http.StatusTooManyRequests || e.status >= http.StatusInternalServerError
}
