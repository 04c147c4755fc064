// ABOUTME: Centralized configuration for the feedback radar CLI and MCP server
// ABOUTME: Loads an optional YAML overlay, then environment variables, then validates
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harper/feedback-radar/internal/llm"
	"github.com/harper/feedback-radar/internal/storage/sqlite"
	"gopkg.in/yaml.v3"
)

// Embedder names.
const (
	EmbedderOpenAI = "openai"
	EmbedderHash   = "hash"
)

// Config holds all configuration for a radar run
type Config struct {
	// Index settings
	DBPath     string `yaml:"db_path"`
	Collection string `yaml:"collection"`
	Embedder   string `yaml:"embedder"`
	HashDim    int    `yaml:"hash_dim"`

	// LLM settings
	LLMEnabled     bool          `yaml:"llm_enabled"`
	Provider       string        `yaml:"provider"`
	OpenAIKey      string        `yaml:"-"`
	AnthropicKey   string        `yaml:"-"`
	ChatModel      string        `yaml:"chat_model"`
	EmbeddingModel string        `yaml:"embedding_model"`
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     int           `yaml:"max_retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	MaxLLMCalls    int           `yaml:"max_llm_calls"`
	Workers        int           `yaml:"workers"`

	// Classifier settings
	K                 int     `yaml:"k"`
	Threshold         float64 `yaml:"threshold"`
	SequenceModelDir  string  `yaml:"sequence_model_dir"`
	TopicModelDir     string  `yaml:"topic_model_dir"`
	SentimentModelDir string  `yaml:"sentiment_model_dir"`

	// Data file overrides; empty means the embedded fixture
	RubricPath     string `yaml:"rubric_path"`
	RulesPath      string `yaml:"rules_path"`
	LabelMapPath   string `yaml:"label_map_path"`
	LexiconPath    string `yaml:"lexicon_path"`
	TagCatalogPath string `yaml:"tag_catalog_path"`
	ReviewedPath   string `yaml:"reviewed_path"`

	// Report settings
	DetailTags       bool    `yaml:"detail_tags"`
	SubThemes        bool    `yaml:"sub_themes"`
	SpikeThresholdPp float64 `yaml:"spike_threshold_pp"`
	MinVolume        int     `yaml:"min_volume"`
	Schedule         string  `yaml:"schedule"`
	Timezone         string  `yaml:"timezone"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DBPath:           sqlite.DefaultDBPath(),
		Collection:       "feedback_examples",
		HashDim:          256,
		Provider:         llm.ProviderAnthropic,
		EmbeddingModel:   llm.DefaultEmbeddingModel,
		Timeout:          30 * time.Second,
		MaxRetries:       3,
		RetryDelay:       2 * time.Second,
		Workers:          5,
		K:                5,
		Threshold:        0.3,
		SubThemes:        true,
		SpikeThresholdPp: 10,
		MinVolume:        5,
		Schedule:         "0 9 * * 1",
		Timezone:         "Asia/Seoul",
	}
}

// Load reads configuration from the RADAR_CONFIG overlay and the environment
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("RADAR_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.DBPath = getEnv("RADAR_DB", cfg.DBPath)
	cfg.Collection = getEnv("RADAR_COLLECTION", cfg.Collection)
	cfg.HashDim = getEnvInt("RADAR_HASH_DIM", cfg.HashDim)

	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.AnthropicKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.Provider = strings.ToLower(getEnv("RADAR_LLM_PROVIDER", cfg.Provider))
	cfg.ChatModel = getEnv("RADAR_CHAT_MODEL", cfg.ChatModel)
	cfg.EmbeddingModel = getEnv("RADAR_EMBEDDING_MODEL", cfg.EmbeddingModel)
	cfg.Timeout = getEnvDuration("RADAR_TIMEOUT", cfg.Timeout)
	cfg.MaxRetries = getEnvInt("RADAR_MAX_RETRIES", cfg.MaxRetries)
	cfg.RetryDelay = getEnvDuration("RADAR_RETRY_DELAY", cfg.RetryDelay)
	cfg.MaxLLMCalls = getEnvInt("RADAR_MAX_LLM_CALLS", cfg.MaxLLMCalls)
	cfg.Workers = getEnvInt("RADAR_WORKERS", cfg.Workers)

	// The LLM and the OpenAI embedder switch on when their key is present
	// unless the overlay or env says otherwise.
	cfg.LLMEnabled = getEnvBool("RADAR_LLM_ENABLED", cfg.LLMEnabled || cfg.providerKey() != "")
	if cfg.Embedder == "" {
		cfg.Embedder = EmbedderHash
		if cfg.OpenAIKey != "" {
			cfg.Embedder = EmbedderOpenAI
		}
	}
	cfg.Embedder = strings.ToLower(getEnv("RADAR_EMBEDDER", cfg.Embedder))

	cfg.K = getEnvInt("RADAR_K", cfg.K)
	cfg.Threshold = getEnvFloat("RADAR_THRESHOLD", cfg.Threshold)
	cfg.SequenceModelDir = getEnv("RADAR_SEQUENCE_MODEL", cfg.SequenceModelDir)
	cfg.TopicModelDir = getEnv("RADAR_TOPIC_MODEL", cfg.TopicModelDir)
	cfg.SentimentModelDir = getEnv("RADAR_SENTIMENT_MODEL", cfg.SentimentModelDir)

	cfg.RubricPath = getEnv("RADAR_RUBRIC", cfg.RubricPath)
	cfg.RulesPath = getEnv("RADAR_RULES", cfg.RulesPath)
	cfg.LabelMapPath = getEnv("RADAR_LABEL_MAP", cfg.LabelMapPath)
	cfg.LexiconPath = getEnv("RADAR_LEXICON", cfg.LexiconPath)
	cfg.TagCatalogPath = getEnv("RADAR_TAG_CATALOG", cfg.TagCatalogPath)
	cfg.ReviewedPath = getEnv("RADAR_REVIEWED", cfg.ReviewedPath)

	cfg.DetailTags = getEnvBool("RADAR_DETAIL_TAGS", cfg.DetailTags)
	cfg.SubThemes = getEnvBool("RADAR_SUB_THEMES", cfg.SubThemes)
	cfg.SpikeThresholdPp = getEnvFloat("RADAR_SPIKE_THRESHOLD_PP", cfg.SpikeThresholdPp)
	cfg.MinVolume = getEnvInt("RADAR_MIN_VOLUME", cfg.MinVolume)
	cfg.Schedule = getEnv("RADAR_SCHEDULE", cfg.Schedule)
	cfg.Timezone = getEnv("RADAR_TIMEZONE", cfg.Timezone)

	return cfg, cfg.Validate()
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) providerKey() string {
	if c.Provider == llm.ProviderOpenAI {
		return c.OpenAIKey
	}
	return c.AnthropicKey
}

// LLMConfig returns the client settings for the configured provider.
func (c *Config) LLMConfig() *llm.ClientConfig {
	return &llm.ClientConfig{
		Provider:       c.Provider,
		APIKey:         c.providerKey(),
		ChatModel:      c.ChatModel,
		EmbeddingModel: c.EmbeddingModel,
		Timeout:        c.Timeout,
		MaxRetries:     c.MaxRetries,
		RetryDelay:     c.RetryDelay,
	}
}

// EmbedderConfig returns the OpenAI settings used for embeddings.
func (c *Config) EmbedderConfig() *llm.ClientConfig {
	cfg := c.LLMConfig()
	cfg.Provider = llm.ProviderOpenAI
	cfg.APIKey = c.OpenAIKey
	cfg.ChatModel = ""
	return cfg
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("RADAR_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("RADAR_THRESHOLD must be 0-1, got %f", c.Threshold)
	}
	if c.K < 1 {
		return fmt.Errorf("RADAR_K must be at least 1, got %d", c.K)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("RADAR_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.Workers < 1 {
		return fmt.Errorf("RADAR_WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.MaxLLMCalls < 0 {
		return fmt.Errorf("RADAR_MAX_LLM_CALLS must not be negative, got %d", c.MaxLLMCalls)
	}
	if c.MinVolume < 0 || c.SpikeThresholdPp <= 0 {
		return fmt.Errorf("spike threshold must be positive and min volume non-negative")
	}
	switch c.Provider {
	case llm.ProviderOpenAI, llm.ProviderAnthropic:
	default:
		return fmt.Errorf("RADAR_LLM_PROVIDER must be %s or %s, got %q", llm.ProviderOpenAI, llm.ProviderAnthropic, c.Provider)
	}
	if c.LLMEnabled && c.providerKey() == "" {
		return fmt.Errorf("LLM is enabled but no API key is set for provider %s", c.Provider)
	}
	switch c.Embedder {
	case EmbedderHash:
	case EmbedderOpenAI:
		if c.OpenAIKey == "" {
			return fmt.Errorf("RADAR_EMBEDDER=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("RADAR_EMBEDDER must be %s or %s, got %q", EmbedderOpenAI, EmbedderHash, c.Embedder)
	}
	if c.DetailTags && !c.LLMEnabled {
		return fmt.Errorf("RADAR_DETAIL_TAGS requires an enabled LLM")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v == "true" || v == "1"
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
