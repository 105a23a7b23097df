// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultHost            = "0.0.0.0"
	DefaultPort            = 8080
	DefaultLogLevel        = "INFO"
	DefaultSearchLimit     = 20
	DefaultUserSearchLimit = 10
	DefaultThreshold       = 0.3
	DefaultMinVectorHits   = 5
	DefaultSearchTimeout   = 2 * time.Second

	DefaultBackfillBatchSize   = 100
	DefaultBackfillConcurrency = 10

	DefaultEmbeddingModel   = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultEndpointTimeout  = 60 * time.Second
	DefaultEndpointRetries  = 3
	DefaultModelCacheSubdir = "models"
)

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// SearchConfig configures hybrid search behavior.
type SearchConfig struct {
	limit         int
	userLimit     int
	threshold     float64
	minVectorHits int
	timeout       time.Duration
}

// NewSearchConfig creates a SearchConfig with defaults.
func NewSearchConfig() SearchConfig {
	return SearchConfig{
		limit:         DefaultSearchLimit,
		userLimit:     DefaultUserSearchLimit,
		threshold:     DefaultThreshold,
		minVectorHits: DefaultMinVectorHits,
		timeout:       DefaultSearchTimeout,
	}
}

// Limit returns the default track search result limit.
func (s SearchConfig) Limit() int { return s.limit }

// UserLimit returns the default user search result limit.
func (s SearchConfig) UserLimit() int { return s.userLimit }

// Threshold returns the default minimum similarity threshold.
func (s SearchConfig) Threshold() float64 { return s.threshold }

// MinVectorHits returns the vector result count below which the keyword
// fallback is consulted.
func (s SearchConfig) MinVectorHits() int { return s.minVectorHits }

// Timeout returns the per-query search deadline.
func (s SearchConfig) Timeout() time.Duration { return s.timeout }

// WithLimit returns a new config with the specified limit.
func (s SearchConfig) WithLimit(n int) SearchConfig {
	s.limit = n
	return s
}

// WithUserLimit returns a new config with the specified user limit.
func (s SearchConfig) WithUserLimit(n int) SearchConfig {
	s.userLimit = n
	return s
}

// WithThreshold returns a new config with the specified threshold.
func (s SearchConfig) WithThreshold(t float64) SearchConfig {
	s.threshold = t
	return s
}

// WithMinVectorHits returns a new config with the specified sufficiency count.
func (s SearchConfig) WithMinVectorHits(n int) SearchConfig {
	s.minVectorHits = n
	return s
}

// WithTimeout returns a new config with the specified deadline.
func (s SearchConfig) WithTimeout(d time.Duration) SearchConfig {
	s.timeout = d
	return s
}

// BackfillConfig configures the embedding backfill run.
type BackfillConfig struct {
	batchSize   int
	concurrency int
}

// NewBackfillConfig creates a BackfillConfig with defaults.
func NewBackfillConfig() BackfillConfig {
	return BackfillConfig{
		batchSize:   DefaultBackfillBatchSize,
		concurrency: DefaultBackfillConcurrency,
	}
}

// BatchSize returns how many tracks are fetched per batch.
func (b BackfillConfig) BatchSize() int { return b.batchSize }

// Concurrency returns the maximum number of in-flight embeddings.
func (b BackfillConfig) Concurrency() int { return b.concurrency }

// WithBatchSize returns a new config with the specified batch size.
func (b BackfillConfig) WithBatchSize(n int) BackfillConfig {
	b.batchSize = n
	return b
}

// WithConcurrency returns a new config with the specified concurrency.
func (b BackfillConfig) WithConcurrency(n int) BackfillConfig {
	b.concurrency = n
	return b
}

// Endpoint configures a remote embedding service.
type Endpoint struct {
	baseURL    string
	model      string
	apiKey     string
	timeout    time.Duration
	maxRetries int
}

// NewEndpoint creates an Endpoint with defaults.
func NewEndpoint() Endpoint {
	return Endpoint{
		timeout:    DefaultEndpointTimeout,
		maxRetries: DefaultEndpointRetries,
	}
}

// BaseURL returns the base URL for the endpoint.
func (e Endpoint) BaseURL() string { return e.baseURL }

// Model returns the model identifier.
func (e Endpoint) Model() string { return e.model }

// APIKey returns the API key.
func (e Endpoint) APIKey() string { return e.apiKey }

// Timeout returns the request timeout.
func (e Endpoint) Timeout() time.Duration { return e.timeout }

// MaxRetries returns the maximum retry count.
func (e Endpoint) MaxRetries() int { return e.maxRetries }

// IsConfigured returns true if the endpoint has required configuration.
func (e Endpoint) IsConfigured() bool {
	return e.model != ""
}

// EndpointOption is a functional option for Endpoint.
type EndpointOption func(*Endpoint)

// WithBaseURL sets the base URL.
func WithBaseURL(url string) EndpointOption {
	return func(e *Endpoint) { e.baseURL = url }
}

// WithModel sets the model.
func WithModel(model string) EndpointOption {
	return func(e *Endpoint) { e.model = model }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) EndpointOption {
	return func(e *Endpoint) { e.apiKey = key }
}

// WithEndpointTimeout sets the request timeout.
func WithEndpointTimeout(d time.Duration) EndpointOption {
	return func(e *Endpoint) { e.timeout = d }
}

// WithEndpointMaxRetries sets the maximum retry count.
func WithEndpointMaxRetries(n int) EndpointOption {
	return func(e *Endpoint) { e.maxRetries = n }
}

// NewEndpointWithOptions creates an Endpoint with functional options.
func NewEndpointWithOptions(opts ...EndpointOption) Endpoint {
	e := NewEndpoint()
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	host              string
	port              int
	dataDir           string
	dbURL             string
	logLevel          string
	logFormat         LogFormat
	search            SearchConfig
	backfill          BackfillConfig
	embeddingEndpoint *Endpoint
	embeddingModel    string
	corsOrigins       []string
}

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".harmonium"
	}
	return filepath.Join(home, ".harmonium")
}

// NewAppConfig creates an AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		host:           DefaultHost,
		port:           DefaultPort,
		dataDir:        dataDir,
		dbURL:          "sqlite:///" + filepath.Join(dataDir, "harmonium.db"),
		logLevel:       DefaultLogLevel,
		logFormat:      LogFormatPretty,
		search:         NewSearchConfig(),
		backfill:       NewBackfillConfig(),
		embeddingModel: DefaultEmbeddingModel,
		corsOrigins:    []string{"*"},
	}
}

// Host returns the server host to bind to.
func (c AppConfig) Host() string { return c.host }

// Port returns the server port to listen on.
func (c AppConfig) Port() int { return c.port }

// Addr returns the combined host:port address.
func (c AppConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.host, c.port)
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// Search returns the hybrid search config.
func (c AppConfig) Search() SearchConfig { return c.search }

// Backfill returns the backfill config.
func (c AppConfig) Backfill() BackfillConfig { return c.backfill }

// EmbeddingEndpoint returns the remote embedding endpoint config, or nil when
// the local ONNX provider should be used.
func (c AppConfig) EmbeddingEndpoint() *Endpoint { return c.embeddingEndpoint }

// EmbeddingModel returns the local embedding model identifier.
func (c AppConfig) EmbeddingModel() string { return c.embeddingModel }

// CORSOrigins returns the allowed CORS origins.
func (c AppConfig) CORSOrigins() []string {
	origins := make([]string, len(c.corsOrigins))
	copy(origins, c.corsOrigins)
	return origins
}

// ModelCacheDir returns the directory ONNX models are downloaded to.
func (c AppConfig) ModelCacheDir() string {
	return filepath.Join(c.dataDir, DefaultModelCacheSubdir)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	return os.MkdirAll(c.dataDir, 0o755)
}

// EnsureModelCacheDir creates the model cache directory if it doesn't exist.
func (c AppConfig) EnsureModelCacheDir() error {
	return os.MkdirAll(c.ModelCacheDir(), 0o755)
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithHost sets the server host.
func WithHost(host string) AppConfigOption {
	return func(c *AppConfig) { c.host = host }
}

// WithPort sets the server port.
func WithPort(port int) AppConfigOption {
	return func(c *AppConfig) { c.port = port }
}

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Keep the default DB URL in step with the data dir unless overridden.
		if c.dbURL == "" || strings.Contains(c.dbURL, "harmonium.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "harmonium.db")
		}
	}
}

// WithDBURL sets the database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithSearchConfig sets the hybrid search config.
func WithSearchConfig(s SearchConfig) AppConfigOption {
	return func(c *AppConfig) { c.search = s }
}

// WithBackfillConfig sets the backfill config.
func WithBackfillConfig(b BackfillConfig) AppConfigOption {
	return func(c *AppConfig) { c.backfill = b }
}

// WithEmbeddingEndpoint sets the remote embedding endpoint.
func WithEmbeddingEndpoint(e Endpoint) AppConfigOption {
	return func(c *AppConfig) { c.embeddingEndpoint = &e }
}

// WithEmbeddingModel sets the local embedding model identifier.
func WithEmbeddingModel(model string) AppConfigOption {
	return func(c *AppConfig) { c.embeddingModel = model }
}

// WithCORSOrigins sets the allowed CORS origins.
func WithCORSOrigins(origins []string) AppConfigOption {
	return func(c *AppConfig) {
		c.corsOrigins = make([]string, len(origins))
		copy(c.corsOrigins, origins)
	}
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	cfg := NewAppConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the given options applied. Used for
// command-line flag overrides after environment loading.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
