package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

// A yes/no answer needs only a few tokens.
const anthropicMaxTokens = 16

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client      anthropic.Client
	model       string
	temperature float64
}

// NewAnthropicClient creates an Anthropic backend. An empty baseURL uses the SDK default.
func NewAnthropicClient(httpClient *http.Client, baseURL, apiKey, model string, temperature float64) *AnthropicClient {
	if model == "" {
		model = DefaultAnthropicModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(httpClient),
		// Retries are owned by the Adapter.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}

	return &AnthropicClient{
		client:      anthropic.NewClient(opts...),
		model:       model,
		temperature: temperature,
	}
}

// Name returns "anthropic/<model>".
func (c *AnthropicClient) Name() string { return ProviderAnthropic + "/" + c.model }

// Generate sends one user message and concatenates the text blocks of the reply.
func (c *AnthropicClient) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   anthropicMaxTokens,
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &statusError{status: apiErr.StatusCode}
		}
		return "", fmt.Errorf("%w: messages: %w", ErrUnavailable, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: no text in response", ErrUnavailable)
	}
	return b.String(), nil
}
