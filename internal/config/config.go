// Package config loads application settings from defaults, an optional
// YAML file and DOCQA_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "DOCQA_"

// ServerConfig configures the HTTP listener and upload storage.
type ServerConfig struct {
	Addr      string `yaml:"addr" env:"ADDR" validate:"required"`
	UploadDir string `yaml:"upload_dir" env:"UPLOAD_DIR"`
}

// LoggingConfig mirrors logging.Options.
type LoggingConfig struct {
	Level      string `yaml:"level" env:"LEVEL" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" env:"FORMAT" validate:"oneof=console json"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS" validate:"gte=0"`
}

// QAConfig tunes the question answering pipeline.
type QAConfig struct {
	TopK            int  `yaml:"top_k" env:"TOP_K" validate:"gte=1"`
	CacheCapacity   int  `yaml:"cache_capacity" env:"CACHE_CAPACITY" validate:"gte=1"`
	RecordCacheHits bool `yaml:"record_cache_hits" env:"RECORD_CACHE_HITS"`
	Coalesce        bool `yaml:"coalesce" env:"COALESCE"`
}

// GenerationConfig selects the text generation backend and its limits.
type GenerationConfig struct {
	Provider   string        `yaml:"provider" env:"PROVIDER" validate:"oneof=ollama openai"`
	URL        string        `yaml:"url" env:"URL" validate:"omitempty,url"`
	Model      string        `yaml:"model" env:"MODEL"`
	APIKey     string        `yaml:"api_key" env:"API_KEY"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT" validate:"gt=0"`
	Attempts   uint          `yaml:"attempts" env:"ATTEMPTS" validate:"gte=1"`
	RetryDelay time.Duration `yaml:"retry_delay" env:"RETRY_DELAY" validate:"gte=0"`
	RateLimit  float64       `yaml:"rate_limit" env:"RATE_LIMIT" validate:"gte=0"`
	Burst      int           `yaml:"burst" env:"BURST" validate:"gte=0"`
}

// EmbeddingConfig points at the Ollama embedding model.
type EmbeddingConfig struct {
	URL         string `yaml:"url" env:"URL" validate:"required,url"`
	Model       string `yaml:"model" env:"MODEL" validate:"required"`
	Concurrency int    `yaml:"concurrency" env:"CONCURRENCY" validate:"gte=1"`
}

// VectorStoreConfig selects where chunk embeddings are kept.
type VectorStoreConfig struct {
	Type     string  `yaml:"type" env:"TYPE" validate:"oneof=memory sqlite"`
	DataDir  string  `yaml:"data_dir" env:"DATA_DIR" validate:"required_if=Type sqlite"`
	MinScore float64 `yaml:"min_score" env:"MIN_SCORE" validate:"gte=-1,lte=1"`
}

// ConversationConfig bounds session history and selects its store.
type ConversationConfig struct {
	Store       string        `yaml:"store" env:"STORE" validate:"oneof=memory redis"`
	MaxSessions int           `yaml:"max_sessions" env:"MAX_SESSIONS" validate:"gte=1"`
	MaxTurns    int           `yaml:"max_turns" env:"MAX_TURNS" validate:"gte=0"`
	MaxTokens   int           `yaml:"max_tokens" env:"MAX_TOKENS" validate:"gte=0"`
	RedisAddr   string        `yaml:"redis_addr" env:"REDIS_ADDR" validate:"required_if=Store redis"`
	RedisPass   string        `yaml:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB     int           `yaml:"redis_db" env:"REDIS_DB" validate:"gte=0"`
	TTL         time.Duration `yaml:"ttl" env:"TTL" validate:"gte=0"`
}

// IngestConfig controls chunking, ingest parallelism and directory sync.
type IngestConfig struct {
	ChunkSize    int           `yaml:"chunk_size" env:"CHUNK_SIZE" validate:"gte=1"`
	ChunkOverlap int           `yaml:"chunk_overlap" env:"CHUNK_OVERLAP" validate:"gte=0,ltfield=ChunkSize"`
	Workers      int           `yaml:"workers" env:"WORKERS" validate:"gte=1"`
	WatchDir     string        `yaml:"watch_dir" env:"WATCH_DIR"`
	Debounce     time.Duration `yaml:"debounce" env:"DEBOUNCE" validate:"gte=0"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Config is the root configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server" envPrefix:"SERVER_"`
	Logging      LoggingConfig      `yaml:"logging" envPrefix:"LOG_"`
	QA           QAConfig           `yaml:"qa" envPrefix:"QA_"`
	Generation   GenerationConfig   `yaml:"generation" envPrefix:"GENERATION_"`
	Embedding    EmbeddingConfig    `yaml:"embedding" envPrefix:"EMBEDDING_"`
	VectorStore  VectorStoreConfig  `yaml:"vectorstore" envPrefix:"VECTORSTORE_"`
	Conversation ConversationConfig `yaml:"conversation" envPrefix:"CONVERSATION_"`
	Ingest       IngestConfig       `yaml:"ingest" envPrefix:"INGEST_"`
	Metrics      MetricsConfig      `yaml:"metrics" envPrefix:"METRICS_"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			File:       "app.log",
			MaxSizeMB:  5,
			MaxBackups: 3,
		},
		QA: QAConfig{
			TopK:            4,
			CacheCapacity:   100,
			RecordCacheHits: true,
		},
		Generation: GenerationConfig{
			Provider:   "ollama", // URL and Model fall back to the provider's defaults
			Timeout:    120 * time.Second,
			Attempts:   1,
			RetryDelay: 200 * time.Millisecond,
		},
		Embedding: EmbeddingConfig{
			URL:         "http://localhost:11434",
			Model:       "nomic-embed-text",
			Concurrency: 4,
		},
		VectorStore: VectorStoreConfig{
			Type:    "sqlite",
			DataDir: "./data",
		},
		Conversation: ConversationConfig{
			Store:       "memory",
			MaxSessions: 1024,
			TTL:         24 * time.Hour,
		},
		Ingest: IngestConfig{
			ChunkSize:    900,
			ChunkOverlap: 100,
			Workers:      4,
			Debounce:     500 * time.Millisecond,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load builds a Config. An empty path or a missing file leaves the
// defaults in place; environment variables always apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	// The Redis store trims by turn count only.
	if c.Conversation.Store == "redis" && c.Conversation.MaxTokens > 0 {
		return errors.New("invalid config: conversation.max_tokens is not supported with conversation.store=redis; use max_turns")
	}
	return nil
}
