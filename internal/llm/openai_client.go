// ABOUTME: OpenAI client for embeddings and chat completions
// ABOUTME: Uses text-embedding-3-small for the index and gpt-4o-mini for fallback calls (configurable)
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harper/feedback-radar/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultChatModel is the default model for chat completions
	DefaultChatModel = "gpt-4o-mini"
	// DefaultEmbeddingModel is the default model for embeddings
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)

	// embedBatchSize bounds the inputs sent in one embeddings request
	embedBatchSize = 64
)

// OpenAIClient wraps the OpenAI API client with retry logic
type OpenAIClient struct {
	client         *openai.Client
	chatModel      string
	embeddingModel openai.EmbeddingModel
	timeout        time.Duration
	maxRetries     int
	retryDelay     time.Duration
}

// NewOpenAIClient creates a new OpenAI client with the given API key using default configuration
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	return NewOpenAIClientWithConfig(DefaultConfig(ProviderOpenAI, apiKey))
}

// NewOpenAIClientWithConfig creates a new OpenAI client with custom configuration
func NewOpenAIClientWithConfig(config *ClientConfig) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	oc := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		oc.BaseURL = config.BaseURL
	}

	chatModel := config.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	embeddingModel := config.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &OpenAIClient{
		client:         openai.NewClientWithConfig(oc),
		chatModel:      chatModel,
		embeddingModel: openai.EmbeddingModel(embeddingModel),
		timeout:        timeout,
		maxRetries:     config.MaxRetries,
		retryDelay:     config.RetryDelay,
	}, nil
}

// Model returns the embedding model name.
func (c *OpenAIClient) Model() string {
	return string(c.embeddingModel)
}

// Embed generates one embedding per text, in input order.
func (c *OpenAIClient) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		chunk := texts[start:end]

		var vectors [][]float64
		err := util.Retry(ctx, c.maxRetries+1, c.retryDelay, func(ctx context.Context, attempt int) error {
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()

			resp, err := c.client.CreateEmbeddings(callCtx, openai.EmbeddingRequestStrings{
				Input: chunk,
				Model: c.embeddingModel,
			})
			if err != nil {
				return classifyOpenAIError(err)
			}
			if len(resp.Data) != len(chunk) {
				return fmt.Errorf("expected %d embeddings, got %d", len(chunk), len(resp.Data))
			}

			vectors = make([][]float64, len(chunk))
			for _, d := range resp.Data {
				if d.Index < 0 || d.Index >= len(chunk) {
					return fmt.Errorf("embedding index %d out of range", d.Index)
				}
				vectors[d.Index] = toFloat64(d.Embedding)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		out = append(out, vectors...)
	}

	return out, nil
}

// Complete runs one chat completion with retries.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.User,
	})

	var result *Completion
	err := util.Retry(ctx, c.maxRetries+1, c.retryDelay, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		resp, err := c.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
			Model:       c.chatModel,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
		if err != nil {
			return classifyOpenAIError(err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("no completion choices returned")
		}

		result = &Completion{
			Text:         resp.Choices[0].Message.Content,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	return result, nil
}

// classifyOpenAIError marks client errors other than rate limits as permanent.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.HTTPStatusCode
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests {
			return util.Permanent(err)
		}
	}
	return err
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
