// Package config provides application configuration.
package config

import (
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration. Field names map to
// environment variables; nested structs use an underscore delimiter
// (e.g. SEARCH_MIN_VECTOR_HITS, EMBEDDING_ENDPOINT_BASE_URL).
type EnvConfig struct {
	// Host is the server host to bind to.
	// Env: HOST (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the server port to listen on.
	// Env: PORT (default: 8080)
	Port int `envconfig:"PORT" default:"8080"`

	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.harmonium
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/harmonium.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// Search configures hybrid search behavior.
	Search SearchEnv `envconfig:"SEARCH"`

	// Backfill configures the embedding backfill run.
	Backfill BackfillEnv `envconfig:"BACKFILL"`

	// EmbeddingEndpoint configures a remote embedding service. When a model is
	// set the remote provider is used instead of local ONNX inference.
	EmbeddingEndpoint EndpointEnv `envconfig:"EMBEDDING_ENDPOINT"`

	// EmbeddingModel is the local embedding model identifier.
	// Env: EMBEDDING_MODEL (default: sentence-transformers/all-MiniLM-L6-v2)
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// CORSOrigins is a comma-separated list of allowed CORS origins.
	// Env: CORS_ORIGINS
	CORSOrigins string `envconfig:"CORS_ORIGINS"`
}

// SearchEnv holds environment configuration for hybrid search.
type SearchEnv struct {
	// Limit is the default track result limit.
	// Env: SEARCH_LIMIT (default: 20)
	Limit int `envconfig:"LIMIT" default:"20"`

	// UserLimit is the default user result limit.
	// Env: SEARCH_USER_LIMIT (default: 10)
	UserLimit int `envconfig:"USER_LIMIT" default:"10"`

	// Threshold is the default minimum similarity.
	// Env: SEARCH_THRESHOLD (default: 0.3)
	Threshold float64 `envconfig:"THRESHOLD" default:"0.3"`

	// MinVectorHits is the vector result count below which the keyword
	// fallback is consulted.
	// Env: SEARCH_MIN_VECTOR_HITS (default: 5)
	MinVectorHits int `envconfig:"MIN_VECTOR_HITS" default:"5"`

	// TimeoutSeconds is the per-query deadline in seconds.
	// Env: SEARCH_TIMEOUT_SECONDS (default: 2)
	TimeoutSeconds float64 `envconfig:"TIMEOUT_SECONDS" default:"2"`
}

// BackfillEnv holds environment configuration for the backfill run.
type BackfillEnv struct {
	// BatchSize is how many tracks are fetched per batch.
	// Env: BACKFILL_BATCH_SIZE (default: 100)
	BatchSize int `envconfig:"BATCH_SIZE" default:"100"`

	// Concurrency is the maximum number of in-flight embeddings.
	// Env: BACKFILL_CONCURRENCY (default: 10)
	Concurrency int `envconfig:"CONCURRENCY" default:"10"`
}

// EndpointEnv holds environment configuration for a remote embedding service.
type EndpointEnv struct {
	// BaseURL is the base URL for the endpoint.
	// Env: EMBEDDING_ENDPOINT_BASE_URL
	BaseURL string `envconfig:"BASE_URL"`

	// Model is the model identifier (e.g. text-embedding-3-small).
	// Env: EMBEDDING_ENDPOINT_MODEL
	Model string `envconfig:"MODEL"`

	// APIKey is the API key for authentication.
	// Env: EMBEDDING_ENDPOINT_API_KEY
	APIKey string `envconfig:"API_KEY"`

	// Timeout is the request timeout in seconds.
	// Env: EMBEDDING_ENDPOINT_TIMEOUT (default: 60)
	Timeout float64 `envconfig:"TIMEOUT" default:"60"`

	// MaxRetries is the maximum number of retries.
	// Env: EMBEDDING_ENDPOINT_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix. For example,
// prefix "HARMONIUM" would require HARMONIUM_DATA_DIR instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.Host != "" {
		cfg = applyOption(cfg, WithHost(e.Host))
	}
	if e.Port != 0 {
		cfg = applyOption(cfg, WithPort(e.Port))
	}
	if e.DataDir != "" {
		cfg = applyOption(cfg, WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = applyOption(cfg, WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = applyOption(cfg, WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = applyOption(cfg, WithLogFormat(parseLogFormat(e.LogFormat)))
	}

	cfg = applyOption(cfg, WithSearchConfig(e.Search.ToSearchConfig()))
	cfg = applyOption(cfg, WithBackfillConfig(e.Backfill.ToBackfillConfig()))

	if e.EmbeddingEndpoint.IsConfigured() {
		cfg = applyOption(cfg, WithEmbeddingEndpoint(e.EmbeddingEndpoint.ToEndpoint()))
	}
	if e.EmbeddingModel != "" {
		cfg = applyOption(cfg, WithEmbeddingModel(e.EmbeddingModel))
	}
	if e.CORSOrigins != "" {
		cfg = applyOption(cfg, WithCORSOrigins(splitAndTrim(e.CORSOrigins)))
	}

	return cfg
}

func applyOption(cfg AppConfig, opt AppConfigOption) AppConfig {
	opt(&cfg)
	return cfg
}

// ToSearchConfig converts SearchEnv to SearchConfig.
func (s SearchEnv) ToSearchConfig() SearchConfig {
	cfg := NewSearchConfig()
	if s.Limit > 0 {
		cfg = cfg.WithLimit(s.Limit)
	}
	if s.UserLimit > 0 {
		cfg = cfg.WithUserLimit(s.UserLimit)
	}
	if s.Threshold >= 0 && s.Threshold <= 1 {
		cfg = cfg.WithThreshold(s.Threshold)
	}
	if s.MinVectorHits >= 0 {
		cfg = cfg.WithMinVectorHits(s.MinVectorHits)
	}
	if s.TimeoutSeconds > 0 {
		cfg = cfg.WithTimeout(time.Duration(s.TimeoutSeconds * float64(time.Second)))
	}
	return cfg
}

// ToBackfillConfig converts BackfillEnv to BackfillConfig.
func (b BackfillEnv) ToBackfillConfig() BackfillConfig {
	cfg := NewBackfillConfig()
	if b.BatchSize > 0 {
		cfg = cfg.WithBatchSize(b.BatchSize)
	}
	if b.Concurrency > 0 {
		cfg = cfg.WithConcurrency(b.Concurrency)
	}
	return cfg
}

// IsConfigured returns true if the endpoint has a model configured.
func (e EndpointEnv) IsConfigured() bool {
	return e.Model != ""
}

// ToEndpoint converts EndpointEnv to Endpoint.
func (e EndpointEnv) ToEndpoint() Endpoint {
	opts := []EndpointOption{
		WithModel(e.Model),
		WithEndpointTimeout(time.Duration(e.Timeout * float64(time.Second))),
		WithEndpointMaxRetries(e.MaxRetries),
	}
	if e.BaseURL != "" {
		opts = append(opts, WithBaseURL(e.BaseURL))
	}
	if e.APIKey != "" {
		opts = append(opts, WithAPIKey(e.APIKey))
	}
	return NewEndpointWithOptions(opts...)
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	switch strings.ToLower(s) {
	case "json":
		return LogFormatJSON
	default:
		return LogFormatPretty
	}
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
