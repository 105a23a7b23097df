package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFileName is the conventional YAML config file name.
const DefaultConfigFileName = "harmonium.yaml"

// FileConfig holds configuration read from a YAML file. It mirrors EnvConfig;
// environment variables take precedence when both are set.
type FileConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	DataDir   string `yaml:"data_dir"`
	DBURL     string `yaml:"db_url"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	Search struct {
		Limit          int     `yaml:"limit"`
		UserLimit      int     `yaml:"user_limit"`
		Threshold      float64 `yaml:"threshold"`
		MinVectorHits  int     `yaml:"min_vector_hits"`
		TimeoutSeconds float64 `yaml:"timeout_seconds"`
	} `yaml:"search"`

	Backfill struct {
		BatchSize   int `yaml:"batch_size"`
		Concurrency int `yaml:"concurrency"`
	} `yaml:"backfill"`

	EmbeddingEndpoint struct {
		BaseURL    string  `yaml:"base_url"`
		Model      string  `yaml:"model"`
		APIKey     string  `yaml:"api_key"`
		Timeout    float64 `yaml:"timeout"`
		MaxRetries int     `yaml:"max_retries"`
	} `yaml:"embedding_endpoint"`

	EmbeddingModel string `yaml:"embedding_model"`
	CORSOrigins    string `yaml:"cors_origins"`
}

// LoadFromFile reads a FileConfig from the given YAML path.
func LoadFromFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromDefaultFile reads harmonium.yaml from the current directory or the
// default data directory. A missing file yields a zero FileConfig, not an
// error.
func LoadFromDefaultFile() (FileConfig, error) {
	candidates := []string{
		DefaultConfigFileName,
		filepath.Join(DefaultDataDir(), DefaultConfigFileName),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return LoadFromFile(path)
		}
	}
	return FileConfig{}, nil
}

// defaultEnvConfig mirrors the `default` struct tags on EnvConfig so Merge can
// tell a defaulted env value from an explicitly set one.
func defaultEnvConfig() EnvConfig {
	return EnvConfig{
		Host:      DefaultHost,
		Port:      DefaultPort,
		LogLevel:  DefaultLogLevel,
		LogFormat: string(LogFormatPretty),
		Search: SearchEnv{
			Limit:          DefaultSearchLimit,
			UserLimit:      DefaultUserSearchLimit,
			Threshold:      DefaultThreshold,
			MinVectorHits:  DefaultMinVectorHits,
			TimeoutSeconds: DefaultSearchTimeout.Seconds(),
		},
		Backfill: BackfillEnv{
			BatchSize:   DefaultBackfillBatchSize,
			Concurrency: DefaultBackfillConcurrency,
		},
		EmbeddingEndpoint: EndpointEnv{
			Timeout:    DefaultEndpointTimeout.Seconds(),
			MaxRetries: DefaultEndpointRetries,
		},
	}
}

// Merge overlays env onto the file config. An env value wins when it differs
// from its compiled-in default; otherwise a non-zero file value is used. An
// env var explicitly set to its default is indistinguishable from unset, which
// is acceptable.
func (f FileConfig) Merge(env EnvConfig) EnvConfig {
	def := defaultEnvConfig()
	out := env

	out.Host = pickString(env.Host, def.Host, f.Host)
	out.Port = pickInt(env.Port, def.Port, f.Port)
	out.DataDir = pickString(env.DataDir, def.DataDir, f.DataDir)
	out.DBURL = pickString(env.DBURL, def.DBURL, f.DBURL)
	out.LogLevel = pickString(env.LogLevel, def.LogLevel, f.LogLevel)
	out.LogFormat = pickString(env.LogFormat, def.LogFormat, f.LogFormat)

	out.Search.Limit = pickInt(env.Search.Limit, def.Search.Limit, f.Search.Limit)
	out.Search.UserLimit = pickInt(env.Search.UserLimit, def.Search.UserLimit, f.Search.UserLimit)
	out.Search.Threshold = pickFloat(env.Search.Threshold, def.Search.Threshold, f.Search.Threshold)
	out.Search.MinVectorHits = pickInt(env.Search.MinVectorHits, def.Search.MinVectorHits, f.Search.MinVectorHits)
	out.Search.TimeoutSeconds = pickFloat(env.Search.TimeoutSeconds, def.Search.TimeoutSeconds, f.Search.TimeoutSeconds)

	out.Backfill.BatchSize = pickInt(env.Backfill.BatchSize, def.Backfill.BatchSize, f.Backfill.BatchSize)
	out.Backfill.Concurrency = pickInt(env.Backfill.Concurrency, def.Backfill.Concurrency, f.Backfill.Concurrency)

	out.EmbeddingEndpoint.BaseURL = pickString(env.EmbeddingEndpoint.BaseURL, def.EmbeddingEndpoint.BaseURL, f.EmbeddingEndpoint.BaseURL)
	out.EmbeddingEndpoint.Model = pickString(env.EmbeddingEndpoint.Model, def.EmbeddingEndpoint.Model, f.EmbeddingEndpoint.Model)
	out.EmbeddingEndpoint.APIKey = pickString(env.EmbeddingEndpoint.APIKey, def.EmbeddingEndpoint.APIKey, f.EmbeddingEndpoint.APIKey)
	out.EmbeddingEndpoint.Timeout = pickFloat(env.EmbeddingEndpoint.Timeout, def.EmbeddingEndpoint.Timeout, f.EmbeddingEndpoint.Timeout)
	out.EmbeddingEndpoint.MaxRetries = pickInt(env.EmbeddingEndpoint.MaxRetries, def.EmbeddingEndpoint.MaxRetries, f.EmbeddingEndpoint.MaxRetries)

	out.EmbeddingModel = pickString(env.EmbeddingModel, def.EmbeddingModel, f.EmbeddingModel)
	out.CORSOrigins = pickString(env.CORSOrigins, def.CORSOrigins, f.CORSOrigins)

	return out
}

func pickString(env, def, file string) string {
	if env != def {
		return env
	}
	if file != "" {
		return file
	}
	return env
}

func pickInt(env, def, file int) int {
	if env != def {
		return env
	}
	if file != 0 {
		return file
	}
	return env
}

func pickFloat(env, def, file float64) float64 {
	if env != def {
		return env
	}
	if file != 0 {
		return file
	}
	return env
}
