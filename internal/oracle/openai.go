package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOpenAIURL is the OpenAI-compatible API root.
const DefaultOpenAIURL = "https://api.openai.com/v1"

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4.1-mini"

// OpenAIClient calls an OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates an OpenAI-compatible backend. The API key may be empty for local
// compatible servers.
func NewOpenAIClient(httpClient *http.Client, baseURL, apiKey, model string, temperature float64) *OpenAIClient {
	if baseURL == "" {
		baseURL = DefaultOpenAIURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAIClient{
		httpClient:  httpClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
	}
}

// Name returns "openai/<model>".
func (c *OpenAIClient) Name() string { return ProviderOpenAI + "/" + c.model }

// Generate sends a single user message and returns the first choice's content.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var headers map[string]string
	if c.apiKey != "" {
		headers = map[string]string{"Authorization": "Bearer " + c.apiKey}
	}

	var result chatResponse
	if err = postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, body, &result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUnavailable)
	}
	return result.Choices[0].Message.Content, nil
}
