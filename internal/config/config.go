package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every tunable of the pipeline. Components receive the
// values they need at construction; nothing reads the environment later.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	FeedsFile  string `envconfig:"FEEDS_FILE" default:"feeds.json"`
	ResultsDir string `envconfig:"RESULTS_DIR" default:"results"`

	// Feed collection.
	FeedWindow      time.Duration `envconfig:"FEED_WINDOW" default:"1h"`
	FeedTimeout     time.Duration `envconfig:"FEED_TIMEOUT" default:"8s"`
	FeedConcurrency int           `envconfig:"FEED_CONCURRENCY" default:"10"`

	// Deduplication.
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.85"`
	NumHashes           int     `envconfig:"NUM_HASHES" default:"20"`
	LSHSeed             int64   `envconfig:"LSH_SEED" default:"48"`

	// Embedding service.
	EmbeddingProvider  string        `envconfig:"EMBEDDING_PROVIDER" default:"http"`
	EmbeddingEndpoint  string        `envconfig:"EMBEDDING_ENDPOINT" default:"http://127.0.0.1:8844/embed"`
	EmbeddingModel     string        `envconfig:"EMBEDDING_MODEL" default:"bert-base-uncased"`
	EmbeddingBatchSize int           `envconfig:"EMBEDDING_BATCH_SIZE" default:"8"`
	EmbeddingMaxChars  int           `envconfig:"EMBEDDING_MAX_CHARS" default:"1900"`
	EmbeddingTimeout   time.Duration `envconfig:"EMBEDDING_TIMEOUT" default:"45s"`
	OpenAIAPIKey       string        `envconfig:"OPENAI_API_KEY" default:""`
	OpenAIBaseURL      string        `envconfig:"OPENAI_BASE_URL" default:""`

	// Article fetching.
	FirstPassTimeout time.Duration `envconfig:"FIRST_PASS_TIMEOUT" default:"3s"`
	RetryTimeout     time.Duration `envconfig:"RETRY_TIMEOUT" default:"5s"`
	FetchConcurrency int           `envconfig:"FETCH_CONCURRENCY" default:"10"`

	// Location extraction.
	MaxTextLen  int           `envconfig:"MAX_TEXT_LEN" default:"500"`
	NEREndpoint string        `envconfig:"NER_ENDPOINT" default:"http://127.0.0.1:8855/ner"`
	NERTimeout  time.Duration `envconfig:"NER_TIMEOUT" default:"10s"`

	// Optional archive database. Empty disables archiving.
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`
	DBMinConns  int32  `envconfig:"NR_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NR_DB_MAX_CONNS" default:"8"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.FeedsFile) == "" {
		return fmt.Errorf("FEEDS_FILE is required")
	}
	if strings.TrimSpace(c.ResultsDir) == "" {
		return fmt.Errorf("RESULTS_DIR is required")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be in (0, 1], got %v", c.SimilarityThreshold)
	}
	if c.NumHashes < 1 {
		return fmt.Errorf("NUM_HASHES must be >= 1")
	}
	switch strings.ToLower(strings.TrimSpace(c.EmbeddingProvider)) {
	case "http":
	case "openai":
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be \"http\" or \"openai\", got %q", c.EmbeddingProvider)
	}
	if c.EmbeddingBatchSize < 1 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be >= 1")
	}
	if c.FirstPassTimeout <= 0 {
		return fmt.Errorf("FIRST_PASS_TIMEOUT must be > 0")
	}
	if c.RetryTimeout <= 0 {
		return fmt.Errorf("RETRY_TIMEOUT must be > 0")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("FETCH_CONCURRENCY must be >= 1")
	}
	if c.MaxTextLen < 1 {
		return fmt.Errorf("MAX_TEXT_LEN must be >= 1")
	}
	if c.FeedConcurrency < 1 {
		return fmt.Errorf("FEED_CONCURRENCY must be >= 1")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NR_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NR_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NR_DB_MIN_CONNS (%d) cannot exceed NR_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

// ArchiveEnabled reports whether processed runs should be persisted.
func (c *Config) ArchiveEnabled() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != ""
}
