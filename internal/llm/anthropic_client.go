// ABOUTME: Anthropic Messages API client implementing Completer
// ABOUTME: Default provider for detail tagging; shares retry and timeout policy with OpenAI
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/harper/feedback-radar/internal/util"
)

// DefaultAnthropicModel is the low-cost model used for high-volume calls.
const DefaultAnthropicModel = "claude-haiku-4-5-20251001"

// AnthropicClient wraps the Anthropic SDK client
type AnthropicClient struct {
	client     anthropic.Client
	model      string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
}

// NewAnthropicClient creates an Anthropic client. Retries are handled here,
// not by the SDK, so both providers back off the same way.
func NewAnthropicClient(config *ClientConfig) (*AnthropicClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	model := config.ChatModel
	if model == "" {
		model = DefaultAnthropicModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicClient{
		client:     anthropic.NewClient(opts...),
		model:      model,
		timeout:    timeout,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}, nil
}

// Complete sends one system+user message and returns the first text block.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	var result *Completion
	err := util.Retry(ctx, c.maxRetries+1, c.retryDelay, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		message, err := c.client.Messages.New(callCtx, params)
		if err != nil {
			return classifyAnthropicError(err)
		}

		for _, block := range message.Content {
			if block.Type == "text" {
				result = &Completion{
					Text:         block.Text,
					InputTokens:  int(message.Usage.InputTokens),
					OutputTokens: int(message.Usage.OutputTokens),
				}
				return nil
			}
		}
		return fmt.Errorf("no text content in Anthropic response")
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}
	return result, nil
}

func classifyAnthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		code := apiErr.StatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return util.Permanent(err)
		}
	}
	return err
}
