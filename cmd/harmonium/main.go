// Package main is the entry point for the harmonium search CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/harmonium-fm/harmonium/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harmonium",
		Short: "Harmonium search service",
		Long:  `Harmonium search serves hybrid semantic/keyword track search and user search for the Harmonium music-sharing platform.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(backfillCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file, optional YAML file, and
// environment variables.
func loadConfig(envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
