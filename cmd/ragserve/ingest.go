package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/infrastructure/chunking"
	"github.com/sebastien-sq/ragserve/infrastructure/embedding"
	"github.com/sebastien-sq/ragserve/infrastructure/provider"
	"github.com/sebastien-sq/ragserve/infrastructure/search"
	"github.com/sebastien-sq/ragserve/internal/database"
	"github.com/sebastien-sq/ragserve/internal/log"
)

const ingestTimeout = 10 * time.Minute

func ingestCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
	)

	cmd := &cobra.Command{
		Use:   "ingest FILE...",
		Short: "Ingest documents into the vector index",
		Long: `Ingest one or more documents into the vector index.

Each file is extracted, split into chunks, embedded via the configured
embedding endpoint and stored alongside the server's own index, so documents
ingested here are immediately searchable once the server starts.

Supported formats: .pdf, .txt, .md`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configFile, envFile, args)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")

	return cmd
}

func runIngest(configFile, envFile string, paths []string) error {
	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	db, err := database.New(ctx, cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	vectors := search.NewVectorStore(db)
	if err := vectors.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate embeddings schema: %w", err)
	}

	aiProvider := provider.NewOpenAIProvider(cfg.Embedding(), cfg.Chat())
	pipeline := embedding.NewPipeline(aiProvider,
		embedding.WithBatchSize(cfg.Embedding().BatchSize()),
		embedding.WithDelay(cfg.Embedding().BatchDelay()),
		embedding.WithMaxAttempts(cfg.Embedding().MaxAttempts()),
		embedding.WithLogger(logger),
	)

	splitter, err := chunking.NewSplitter(
		chunking.WithSize(cfg.ChunkSize()),
		chunking.WithOverlap(cfg.ChunkOverlap()),
	)
	if err != nil {
		return fmt.Errorf("configure splitter: %w", err)
	}

	ingestService := service.NewIngest(splitter, pipeline, vectors, logger)

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		result, err := ingestService.Document(ctx, filepath.Base(path), data)
		if err != nil {
			return fmt.Errorf("ingest %s: %w", path, err)
		}

		fmt.Printf("ingested %s: %d chunks\n", result.Source(), result.ChunkCount())
	}

	return nil
}
