package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 20, cfg.Search.Limit)
	assert.Equal(t, 5, cfg.Search.MinVectorHits)
	assert.InDelta(t, 2.0, cfg.Search.TimeoutSeconds, 1e-9)
	assert.Equal(t, 100, cfg.Backfill.BatchSize)
	assert.Equal(t, 10, cfg.Backfill.Concurrency)
	assert.False(t, cfg.EmbeddingEndpoint.IsConfigured())
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("HOST", "localhost")
	t.Setenv("PORT", "3000")
	t.Setenv("DB_URL", "postgres://db/harmonium")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("SEARCH_MIN_VECTOR_HITS", "8")
	t.Setenv("SEARCH_TIMEOUT_SECONDS", "0.5")
	t.Setenv("BACKFILL_CONCURRENCY", "2")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	app := cfg.ToAppConfig()
	assert.Equal(t, "localhost:3000", app.Addr())
	assert.Equal(t, "postgres://db/harmonium", app.DBURL())
	assert.Equal(t, LogFormatJSON, app.LogFormat())
	assert.Equal(t, 8, app.Search().MinVectorHits())
	assert.Equal(t, 500*time.Millisecond, app.Search().Timeout())
	assert.Equal(t, 2, app.Backfill().Concurrency())
}

func TestLoadFromEnv_EmbeddingEndpoint(t *testing.T) {
	t.Setenv("EMBEDDING_ENDPOINT_MODEL", "text-embedding-3-small")
	t.Setenv("EMBEDDING_ENDPOINT_BASE_URL", "https://api.example.com/v1")
	t.Setenv("EMBEDDING_ENDPOINT_API_KEY", "sk-test")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.True(t, cfg.EmbeddingEndpoint.IsConfigured())

	app := cfg.ToAppConfig()
	ep := app.EmbeddingEndpoint()
	require.NotNil(t, ep)
	assert.Equal(t, "text-embedding-3-small", ep.Model())
	assert.Equal(t, "https://api.example.com/v1", ep.BaseURL())
	assert.Equal(t, "sk-test", ep.APIKey())
	assert.Equal(t, 60*time.Second, ep.Timeout())
}

func TestLoadFromEnvWithPrefix(t *testing.T) {
	t.Setenv("HARMONIUM_PORT", "4000")

	cfg, err := LoadFromEnvWithPrefix("HARMONIUM")
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Port)
}

func TestToAppConfig_CORSOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.ToAppConfig().CORSOrigins())
}

func TestLoadDotEnv_MissingFileIsNotAnError(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

func TestLoadDotEnv_LoadsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEARCH_LIMIT=7\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SEARCH_LIMIT") })

	require.NoError(t, LoadDotEnv(path))

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.Limit)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harmonium.yaml")
	body := `
host: 127.0.0.1
port: 9999
search:
  min_vector_hits: 2
  threshold: 0.5
backfill:
  batch_size: 25
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Host)
	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, 2, cfg.Search.MinVectorHits)
	assert.InDelta(t, 0.5, cfg.Search.Threshold, 1e-9)
	assert.Equal(t, 25, cfg.Backfill.BatchSize)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harmonium.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a number"), 0o644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestFileConfig_Merge_EnvWins(t *testing.T) {
	var file FileConfig
	file.Port = 9999
	file.Search.MinVectorHits = 2

	env := defaultEnvConfig()
	env.Port = 3000 // explicitly set, differs from default

	merged := file.Merge(env)
	assert.Equal(t, 3000, merged.Port)
	assert.Equal(t, 2, merged.Search.MinVectorHits)
}

func TestFileConfig_Merge_FileFillsDefaults(t *testing.T) {
	var file FileConfig
	file.Host = "10.0.0.1"
	file.Search.Threshold = 0.7

	merged := file.Merge(defaultEnvConfig())
	assert.Equal(t, "10.0.0.1", merged.Host)
	assert.InDelta(t, 0.7, merged.Search.Threshold, 1e-9)
	// Untouched fields keep their defaults.
	assert.Equal(t, DefaultPort, merged.Port)
}
