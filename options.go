package harmonium

import (
	"log/slog"

	"github.com/harmonium-fm/harmonium/infrastructure/provider"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

// clientConfig holds configuration for Client construction.
type clientConfig struct {
	appConfig config.AppConfig
	logger    *slog.Logger
	provider  provider.Provider
	metrics   *metrics.Metrics
}

func newClientConfig() *clientConfig {
	return &clientConfig{
		appConfig: config.NewAppConfig(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithConfig sets the full application configuration.
func WithConfig(cfg config.AppConfig) Option {
	return func(c *clientConfig) {
		c.appConfig = cfg
	}
}

// WithSQLite configures a SQLite database at the given path.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.appConfig = c.appConfig.Apply(config.WithDBURL("sqlite:///" + path))
	}
}

// WithPostgres configures a PostgreSQL database with the given DSN. The
// pgvector extension must be installed on the server.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.appConfig = c.appConfig.Apply(config.WithDBURL(dsn))
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = l
	}
}

// WithEmbeddingProvider sets a custom embedding provider, bypassing the
// built-in local/remote selection.
func WithEmbeddingProvider(p provider.Provider) Option {
	return func(c *clientConfig) {
		c.provider = p
	}
}

// WithMetrics sets a custom metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *clientConfig) {
		c.metrics = m
	}
}
