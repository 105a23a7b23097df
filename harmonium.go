// Package harmonium provides the track and user search subsystem of the
// Harmonium music-sharing platform: semantic embedding of track metadata,
// hybrid vector/keyword retrieval, and the backfill driver that embeds the
// existing catalog.
//
// Basic usage:
//
//	client, err := harmonium.New(
//	    harmonium.WithConfig(cfg),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	spec, _ := search.NewQuerySpec("late night synthwave", 10, 0.3)
//	results, err := client.Search.HybridSearch(ctx, spec)
package harmonium

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/harmonium-fm/harmonium/application/service"
	domainsearch "github.com/harmonium-fm/harmonium/domain/search"
	"github.com/harmonium-fm/harmonium/infrastructure/api"
	"github.com/harmonium-fm/harmonium/infrastructure/persistence"
	"github.com/harmonium-fm/harmonium/infrastructure/provider"
	infrasearch "github.com/harmonium-fm/harmonium/infrastructure/search"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/database"
	"github.com/harmonium-fm/harmonium/internal/log"
	"github.com/harmonium-fm/harmonium/internal/metrics"
)

// ErrClientClosed is returned by operations on a closed Client.
var ErrClientClosed = errors.New("harmonium client closed")

// Client is the main entry point for the search subsystem.
//
// Access services via struct fields:
//
//	client.Search.HybridSearch(ctx, spec)
//	client.Backfill.Run(ctx)
type Client struct {
	// Public service fields
	Search   *service.Search
	Backfill *service.Backfill

	db       database.Database
	provider provider.Provider
	metrics  *metrics.Metrics
	server   *api.APIServer
	logger   *slog.Logger
	cfg      config.AppConfig
	closed   atomic.Bool
}

// New creates a new Client with the given options.
func New(opts ...Option) (*Client, error) {
	cc := newClientConfig()
	for _, opt := range opts {
		opt(cc)
	}

	cfg := cc.appConfig

	logger := cc.logger
	if logger == nil {
		logger = log.New(log.Format(cfg.LogFormat()), cfg.LogLevel()).Slog()
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("prepare data dir: %w", err)
	}

	ctx := context.Background()
	db, err := database.NewDatabase(ctx, cfg.DBURL())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := persistence.AutoMigrate(db); err != nil {
		errClose := db.Close()
		return nil, errors.Join(fmt.Errorf("auto migrate: %w", err), errClose)
	}

	embedder, err := buildProvider(cc, cfg, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}

	vectors, err := buildVectorStore(db, logger)
	if err != nil {
		errClose := db.Close()
		return nil, errors.Join(err, errClose)
	}
	keywords := infrasearch.NewKeywordStore(db)
	trackStore := persistence.NewTrackStore(db)
	userStore := persistence.NewUserStore(db)

	m := cc.metrics
	if m == nil {
		m = metrics.New()
	}

	searchCfg := cfg.Search()
	searchSvc := service.NewSearch(embedder, vectors, keywords, trackStore, userStore,
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithMinVectorHits(searchCfg.MinVectorHits()),
		service.WithTimeout(searchCfg.Timeout()),
	)

	backfillCfg := cfg.Backfill()
	backfillSvc := service.NewBackfill(embedder, vectors, trackStore,
		service.WithBackfillLogger(logger),
		service.WithBackfillMetrics(m),
		service.WithBatchSize(backfillCfg.BatchSize()),
		service.WithConcurrency(backfillCfg.Concurrency()),
	)

	client := &Client{
		Search:   searchSvc,
		Backfill: backfillSvc,
		db:       db,
		provider: embedder,
		metrics:  m,
		logger:   logger,
		cfg:      cfg,
	}
	client.server = api.NewAPIServer(searchSvc, searchSvc,
		api.WithAPILogger(logger),
		api.WithAPIMetrics(m),
		api.WithCORSOrigins(cfg.CORSOrigins()),
	)

	return client, nil
}

// buildProvider selects the embedding provider: an explicitly injected one
// wins, then a configured remote endpoint, then the built-in local model.
func buildProvider(cc *clientConfig, cfg config.AppConfig, logger *slog.Logger) (provider.Provider, error) {
	if cc.provider != nil {
		return cc.provider, nil
	}

	if endpoint := cfg.EmbeddingEndpoint(); endpoint != nil && endpoint.IsConfigured() {
		logger.Info("remote embedding provider enabled",
			"base_url", endpoint.BaseURL(),
			"model", endpoint.Model(),
		)
		return provider.NewOpenAIProvider(provider.OpenAIConfig{
			APIKey:     endpoint.APIKey(),
			BaseURL:    endpoint.BaseURL(),
			Model:      endpoint.Model(),
			Timeout:    endpoint.Timeout(),
			MaxRetries: endpoint.MaxRetries(),
		}), nil
	}

	modelDir := cfg.ModelCacheDir()
	hugotProvider := provider.NewHugotProvider(modelDir)
	if !hugotProvider.Available() {
		return nil, fmt.Errorf(
			"%w: no embedding model found in %s and no remote endpoint configured",
			domainsearch.ErrModelLoad, modelDir)
	}
	logger.Info("built-in embedding provider enabled", "model_dir", modelDir)
	return hugotProvider, nil
}

// buildVectorStore picks the backend matching the database dialect.
func buildVectorStore(db database.Database, logger *slog.Logger) (domainsearch.VectorStore, error) {
	switch {
	case db.IsPostgres():
		return infrasearch.NewPgvectorStore(db, logger), nil
	case db.IsSQLite():
		return infrasearch.NewSQLiteVectorStore(db, logger), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect for vector search")
	}
}

// ListenAndServe starts the HTTP API on the configured address and blocks
// until the server stops.
func (c *Client) ListenAndServe() error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	return c.server.ListenAndServe(c.cfg.Addr())
}

// ShutdownServer gracefully stops the HTTP API.
func (c *Client) ShutdownServer(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}

// Close releases all resources.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	if err := c.provider.Close(); err != nil {
		c.logger.Error("failed to close embedding provider", "error", err)
	}

	if err := c.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	c.logger.Info("harmonium client closed")
	return nil
}

// Logger returns the client's logger.
func (c *Client) Logger() *slog.Logger {
	return c.logger
}

// Config returns the effective configuration.
func (c *Client) Config() config.AppConfig {
	return c.cfg
}
