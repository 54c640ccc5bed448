// Package main is the entry point for the ragserve CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sebastien-sq/ragserve/internal/config"
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
		Use:   "ragserve",
		Short: "Retrieval-augmented document Q&A server",
		Long:  `Ragserve ingests documents into a vector index and answers questions about them over an HTTP API, with conversation history per user.`,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(ingestCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from an optional YAML file, a .env file and
// environment variables.
func loadConfig(configFile, envFile string) (config.AppConfig, error) {
	cfg, err := config.LoadConfig(configFile, envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
