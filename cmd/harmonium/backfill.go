package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	harmonium "github.com/harmonium-fm/harmonium"
	"github.com/harmonium-fm/harmonium/internal/config"
	"github.com/harmonium-fm/harmonium/internal/log"
)

func backfillCmd() *cobra.Command {
	var (
		envFile     string
		batchSize   int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Embed all public tracks that have no embedding yet",
		Long: `Embed all public tracks that have no embedding yet.

The run is idempotent: already-embedded tracks are skipped, and a re-run after
a partial failure picks up exactly the remainder. Single-record failures are
tolerated and counted; the command exits non-zero when any track failed so
schedulers notice partial runs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd.Context(), envFile, batchSize, concurrency)
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Tracks fetched per batch (default: 100)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent embeddings (default: 10)")

	return cmd
}

func runBackfill(ctx context.Context, envFile string, batchSize, concurrency int) error {
	cfg, err := loadConfig(envFile)
	if err != nil {
		return err
	}
	cfg = applyBackfillOverrides(cfg, batchSize, concurrency)

	logger := log.New(log.Format(cfg.LogFormat()), cfg.LogLevel())
	logger.SetDefault()
	slogger := logger.Slog()

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

	report, err := client.Backfill.Run(ctx)
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}

	fmt.Printf("backfill complete: %d processed, %d failed\n", report.Processed(), report.Failed())
	if report.Failed() > 0 {
		return fmt.Errorf("%d tracks failed to embed", report.Failed())
	}
	return nil
}

// applyBackfillOverrides applies command line flag overrides to the config.
func applyBackfillOverrides(cfg config.AppConfig, batchSize, concurrency int) config.AppConfig {
	backfill := cfg.Backfill()
	if batchSize > 0 {
		backfill = backfill.WithBatchSize(batchSize)
	}
	if concurrency > 0 {
		backfill = backfill.WithConcurrency(concurrency)
	}
	return cfg.Apply(config.WithBackfillConfig(backfill))
}
