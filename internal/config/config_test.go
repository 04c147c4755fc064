// ABOUTME: Tests for centralized configuration system
// ABOUTME: Verifies the YAML overlay, environment variable parsing, and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var radarEnv = []string{
	"RADAR_CONFIG", "RADAR_DB", "RADAR_COLLECTION", "RADAR_HASH_DIM",
	"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "RADAR_LLM_PROVIDER", "RADAR_LLM_ENABLED",
	"RADAR_CHAT_MODEL", "RADAR_EMBEDDING_MODEL", "RADAR_EMBEDDER",
	"RADAR_TIMEOUT", "RADAR_MAX_RETRIES", "RADAR_RETRY_DELAY", "RADAR_MAX_LLM_CALLS", "RADAR_WORKERS",
	"RADAR_K", "RADAR_THRESHOLD", "RADAR_SEQUENCE_MODEL", "RADAR_TOPIC_MODEL", "RADAR_SENTIMENT_MODEL",
	"RADAR_RUBRIC", "RADAR_RULES", "RADAR_LABEL_MAP", "RADAR_LEXICON", "RADAR_TAG_CATALOG", "RADAR_REVIEWED",
	"RADAR_DETAIL_TAGS", "RADAR_SUB_THEMES", "RADAR_SPIKE_THRESHOLD_PP", "RADAR_MIN_VOLUME",
	"RADAR_SCHEDULE", "RADAR_TIMEZONE",
}

// clearEnv blanks every variable Load reads; empty values count as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range radarEnv {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Collection != "feedback_examples" {
		t.Errorf("Collection = %s, want feedback_examples", cfg.Collection)
	}
	if cfg.Provider != "anthropic" {
		t.Errorf("Provider = %s, want anthropic", cfg.Provider)
	}
	if cfg.LLMEnabled {
		t.Error("LLMEnabled = true without an API key, want false")
	}
	if cfg.Embedder != EmbedderHash {
		t.Errorf("Embedder = %s, want %s", cfg.Embedder, EmbedderHash)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %s, want text-embedding-3-small", cfg.EmbeddingModel)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.K != 5 {
		t.Errorf("K = %d, want 5", cfg.K)
	}
	if cfg.Threshold != 0.3 {
		t.Errorf("Threshold = %f, want 0.3", cfg.Threshold)
	}
	if !cfg.SubThemes {
		t.Error("SubThemes = false, want true")
	}
	if cfg.DetailTags {
		t.Error("DetailTags = true, want false")
	}
	if cfg.Schedule != "0 9 * * 1" {
		t.Errorf("Schedule = %q, want 0 9 * * 1", cfg.Schedule)
	}
	if cfg.Timezone != "Asia/Seoul" {
		t.Errorf("Timezone = %s, want Asia/Seoul", cfg.Timezone)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("RADAR_LLM_PROVIDER", "OpenAI")
	t.Setenv("RADAR_DB", "/tmp/radar.db")
	t.Setenv("RADAR_K", "7")
	t.Setenv("RADAR_THRESHOLD", "0.45")
	t.Setenv("RADAR_TIMEOUT", "10s")
	t.Setenv("RADAR_MAX_LLM_CALLS", "100")
	t.Setenv("RADAR_DETAIL_TAGS", "true")
	t.Setenv("RADAR_SUB_THEMES", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Provider != "openai" {
		t.Errorf("Provider = %s, want openai", cfg.Provider)
	}
	if !cfg.LLMEnabled {
		t.Error("LLMEnabled = false with provider key set, want true")
	}
	if cfg.Embedder != EmbedderOpenAI {
		t.Errorf("Embedder = %s, want %s", cfg.Embedder, EmbedderOpenAI)
	}
	if cfg.DBPath != "/tmp/radar.db" {
		t.Errorf("DBPath = %s, want /tmp/radar.db", cfg.DBPath)
	}
	if cfg.K != 7 {
		t.Errorf("K = %d, want 7", cfg.K)
	}
	if cfg.Threshold != 0.45 {
		t.Errorf("Threshold = %f, want 0.45", cfg.Threshold)
	}
	if cfg.Timeout != 10*time.Second {
		t.Errorf("Timeout = %v, want 10s", cfg.Timeout)
	}
	if cfg.MaxLLMCalls != 100 {
		t.Errorf("MaxLLMCalls = %d, want 100", cfg.MaxLLMCalls)
	}
	if !cfg.DetailTags || cfg.SubThemes {
		t.Errorf("DetailTags, SubThemes = %v, %v, want true, false", cfg.DetailTags, cfg.SubThemes)
	}

	llmCfg := cfg.LLMConfig()
	if llmCfg.APIKey != "sk-test" || llmCfg.Provider != "openai" {
		t.Errorf("LLMConfig() = %+v, want openai provider with the OpenAI key", llmCfg)
	}
}

func TestLoad_FileOverlay(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "radar.yaml")
	overlay := "collection: weekly\nk: 9\nthreshold: 0.5\nschedule: \"30 8 * * *\"\n"
	if err := os.WriteFile(path, []byte(overlay), 0o644); err != nil {
		t.Fatalf("write overlay: %v", err)
	}
	t.Setenv("RADAR_CONFIG", path)
	t.Setenv("RADAR_K", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Collection != "weekly" {
		t.Errorf("Collection = %s, want weekly", cfg.Collection)
	}
	if cfg.K != 4 {
		t.Errorf("K = %d, want 4 (env wins over file)", cfg.K)
	}
	if cfg.Threshold != 0.5 {
		t.Errorf("Threshold = %f, want 0.5", cfg.Threshold)
	}
	if cfg.Schedule != "30 8 * * *" {
		t.Errorf("Schedule = %q, want 30 8 * * *", cfg.Schedule)
	}
}

func TestLoad_MissingOverlay(t *testing.T) {
	clearEnv(t)
	t.Setenv("RADAR_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() with a missing config file should fail")
	}
}

func TestValidate_InvalidThreshold(t *testing.T) {
	clearEnv(t)
	t.Setenv("RADAR_THRESHOLD", "1.5")

	if _, err := Load(); err == nil {
		t.Error("Load() with threshold 1.5 should fail validation")
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero k", func(c *Config) { c.K = 0 }},
		{"too many retries", func(c *Config) { c.MaxRetries = 11 }},
		{"negative budget", func(c *Config) { c.MaxLLMCalls = -1 }},
		{"unknown provider", func(c *Config) { c.Provider = "gemini" }},
		{"unknown embedder", func(c *Config) { c.Embedder = "word2vec" }},
		{"llm without key", func(c *Config) { c.LLMEnabled = true }},
		{"openai embedder without key", func(c *Config) { c.Embedder = EmbedderOpenAI }},
		{"tags without llm", func(c *Config) { c.DetailTags = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Embedder = EmbedderHash
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate() = nil, want error")
			}
		})
	}
}

func TestLocation(t *testing.T) {
	cfg := Defaults()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("Location() failed: %v", err)
	}
	if loc.String() != "Asia/Seoul" {
		t.Errorf("Location() = %s, want Asia/Seoul", loc)
	}

	cfg.Timezone = "Mars/Olympus"
	if _, err := cfg.Location(); err == nil {
		t.Error("Location() with an unknown zone should fail")
	}
}
