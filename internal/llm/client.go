// ABOUTME: Provider-neutral LLM interfaces and the client factory
// ABOUTME: Completer serves fallback classification, labeling, summaries; Embedder serves the index
package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrNoLLM is returned when an LLM-backed feature is used without a client.
var ErrNoLLM = errors.New("no LLM client configured")

// CompletionRequest is one system+user exchange.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// Completion is the text answer plus token accounting.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer produces a single completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// Embedder turns texts into vectors. Implementations must return one vector
// per input, in input order, and the same vector for the same text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}

// Provider names accepted by NewCompleter.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ClientConfig holds configuration shared by the provider clients
type ClientConfig struct {
	Provider       string
	APIKey         string
	BaseURL        string
	ChatModel      string
	EmbeddingModel string
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the default client configuration for a provider.
func DefaultConfig(provider, apiKey string) *ClientConfig {
	cfg := &ClientConfig{
		Provider:       strings.ToLower(provider),
		APIKey:         apiKey,
		EmbeddingModel: DefaultEmbeddingModel,
		Timeout:        30 * time.Second,
		MaxRetries:     3,
		RetryDelay:     2 * time.Second,
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		cfg.ChatModel = getEnv("RADAR_ANTHROPIC_MODEL", DefaultAnthropicModel)
	default:
		cfg.ChatModel = getEnv("RADAR_OPENAI_MODEL", DefaultChatModel)
	}
	return cfg
}

// NewCompleter builds the Completer for cfg.Provider. A missing key is a
// setup error so it surfaces before any item is processed.
func NewCompleter(cfg *ClientConfig) (Completer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("llm config is required")
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI, "":
		return NewOpenAIClientWithConfig(cfg)
	case ProviderAnthropic:
		return NewAnthropicClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
