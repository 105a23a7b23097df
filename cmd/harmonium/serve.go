package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	harmonium "github.com/harmonium-fm/harmonium"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/log"
)

func serveCmd() *cobra.Command {
	var (
		envFile string
		host    string
		port    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the search HTTP API server",
		Long: `Start the search HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. harmonium.yaml (current directory or data directory)
  3. .env file (if --env-file specified or .env exists in current directory)
  4. Environment variables
  5. Command line flags

Environment variables:
  HOST                    Server host to bind to (default: 0.0.0.0)
  PORT                    Server port to listen on (default: 8080)
  DATA_DIR                Data directory (default: ~/.harmonium)
  DB_URL                  Database URL (default: sqlite:///{data_dir}/harmonium.db)
  LOG_LEVEL               Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT              Log format: pretty, json (default: pretty)
  CORS_ORIGINS            Comma-separated allowed origins (default: *)

  SEARCH_LIMIT            Default track result limit (default: 20)
  SEARCH_THRESHOLD        Minimum vector similarity (default: 0.3)
  SEARCH_MIN_VECTOR_HITS  Vector hits below which keyword fallback runs (default: 5)
  SEARCH_TIMEOUT          Per-query deadline (default: 2s)

  EMBEDDING_MODEL         Local model identifier (default: all-MiniLM-L6-v2)
  EMBEDDING_ENDPOINT_*    Remote embedding service configuration
    BASE_URL              Base URL (e.g., https://api.openai.com/v1)
    MODEL                 Model identifier (e.g., text-embedding-3-small)
    API_KEY               API key for authentication
    TIMEOUT               Request timeout (default: 60s)
    MAX_RETRIES           Retry attempts (default: 3)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(envFile, host string, port int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyServeOverrides(cfg, host, port)

	logger := log.New(log.Format(cfg.LogFormat()), cfg.LogLevel())
	logger.SetDefault()
	slogger := logger.Slog()

	slogger.Info("starting harmonium search",
		"version", version,
		"addr", cfg.Addr(),
		"db_url", cfg.DBURL(),
	)

	client, err := harmonium.New(
		harmonium.WithConfig(cfg),
		harmonium.WithLogger(slogger),
	)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			slogger.Error("failed to close client", slog.Any("error", err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		slogger.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := client.ShutdownServer(ctx); err != nil {
			slogger.Error("shutdown error", slog.Any("error", err))
		}
	}()

	if err := client.ListenAndServe(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// applyServeOverrides applies command line flag overrides to the config.
func applyServeOverrides(cfg config.AppConfig, host string, port int) config.AppConfig {
	var opts []config.AppConfigOption

	if host != "" {
		opts = append(opts, config.WithHost(host))
	}
	if port != 0 {
		opts = append(opts, config.WithPort(port))
	}

	return cfg.Apply(opts...)
}
