package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAppConfig_Defaults(t *testing.T) {
	cfg := NewAppConfig()

	assert.Equal(t, DefaultHost, cfg.Host())
	assert.Equal(t, DefaultPort, cfg.Port())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "INFO", cfg.LogLevel())
	assert.Equal(t, LogFormatPretty, cfg.LogFormat())
	assert.Contains(t, cfg.DBURL(), "sqlite:///")
	assert.Contains(t, cfg.DBURL(), "harmonium.db")
	assert.Equal(t, DefaultEmbeddingModel, cfg.EmbeddingModel())
	assert.Nil(t, cfg.EmbeddingEndpoint())
}

func TestNewSearchConfig_Defaults(t *testing.T) {
	s := NewSearchConfig()

	assert.Equal(t, 20, s.Limit())
	assert.Equal(t, 10, s.UserLimit())
	assert.InDelta(t, 0.3, s.Threshold(), 1e-9)
	assert.Equal(t, 5, s.MinVectorHits())
	assert.Equal(t, 2*time.Second, s.Timeout())
}

func TestNewBackfillConfig_Defaults(t *testing.T) {
	b := NewBackfillConfig()

	assert.Equal(t, 100, b.BatchSize())
	assert.Equal(t, 10, b.Concurrency())
}

func TestAppConfig_Options(t *testing.T) {
	cfg := NewAppConfigWithOptions(
		WithHost("127.0.0.1"),
		WithPort(9090),
		WithLogLevel("DEBUG"),
		WithLogFormat(LogFormatJSON),
		WithSearchConfig(NewSearchConfig().WithMinVectorHits(3).WithTimeout(5*time.Second)),
		WithBackfillConfig(NewBackfillConfig().WithBatchSize(50).WithConcurrency(4)),
	)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "DEBUG", cfg.LogLevel())
	assert.Equal(t, LogFormatJSON, cfg.LogFormat())
	assert.Equal(t, 3, cfg.Search().MinVectorHits())
	assert.Equal(t, 5*time.Second, cfg.Search().Timeout())
	assert.Equal(t, 50, cfg.Backfill().BatchSize())
	assert.Equal(t, 4, cfg.Backfill().Concurrency())
}

func TestWithDataDir_UpdatesDefaultDBURL(t *testing.T) {
	cfg := NewAppConfigWithOptions(WithDataDir("/tmp/hm"))

	assert.Equal(t, "/tmp/hm", cfg.DataDir())
	assert.Equal(t, "sqlite:///"+filepath.Join("/tmp/hm", "harmonium.db"), cfg.DBURL())
	assert.Equal(t, filepath.Join("/tmp/hm", "models"), cfg.ModelCacheDir())
}

func TestWithDataDir_KeepsExplicitDBURL(t *testing.T) {
	cfg := NewAppConfigWithOptions(
		WithDBURL("postgres://localhost/music"),
		WithDataDir("/tmp/hm"),
	)

	assert.Equal(t, "postgres://localhost/music", cfg.DBURL())
}

func TestEndpoint_IsConfigured(t *testing.T) {
	assert.False(t, NewEndpoint().IsConfigured())
	assert.True(t, NewEndpointWithOptions(WithModel("text-embedding-3-small")).IsConfigured())
}

func TestAppConfig_CORSOriginsCopied(t *testing.T) {
	cfg := NewAppConfigWithOptions(WithCORSOrigins([]string{"https://harmonium.fm"}))

	origins := cfg.CORSOrigins()
	origins[0] = "mutated"
	require.Equal(t, []string{"https://harmonium.fm"}, cfg.CORSOrigins())
}
