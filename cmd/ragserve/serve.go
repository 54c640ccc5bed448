package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sebastien-sq/ragserve/application/service"
	"github.com/sebastien-sq/ragserve/infrastructure/api"
	v1 "github.com/sebastien-sq/ragserve/infrastructure/api/v1"
	"github.com/sebastien-sq/ragserve/infrastructure/auth"
	"github.com/sebastien-sq/ragserve/infrastructure/chunking"
	"github.com/sebastien-sq/ragserve/infrastructure/embedding"
	"github.com/sebastien-sq/ragserve/infrastructure/persistence"
	"github.com/sebastien-sq/ragserve/infrastructure/provider"
	"github.com/sebastien-sq/ragserve/infrastructure/search"
	"github.com/sebastien-sq/ragserve/internal/config"
	"github.com/sebastien-sq/ragserve/internal/database"
	"github.com/sebastien-sq/ragserve/internal/log"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var (
		configFile string
		envFile    string
		host       string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server.

Configuration is loaded in the following order (later sources override earlier):
  1. Default values
  2. .env file (if --env-file specified or .env exists in current directory)
  3. Environment variables
  4. YAML config file (if --config specified)
  5. Command line flags

Environment variables:
  HOST                         Server host to bind to (default: 0.0.0.0)
  PORT                         Server port to listen on (default: 8080)
  DATA_DIR                     Data directory (default: ~/.ragserve)
  DB_URL                       Database URL (default: sqlite:///{data_dir}/ragserve.db)
  LOG_LEVEL                    Log level: DEBUG, INFO, WARN, ERROR (default: INFO)
  LOG_FORMAT                   Log format: pretty, json (default: pretty)
  CORS_ORIGINS                 Comma-separated list of allowed CORS origins
  TOP_K                        Context chunks retrieved per question (default: 3)
  CHUNK_SIZE                   Chunk size in characters (default: 1000)
  CHUNK_OVERLAP                Chunk overlap in characters (default: 200)

  EMBEDDING_*                  Embedding AI service configuration
    BASE_URL                   Base URL (e.g., https://api.mistral.ai/v1)
    MODEL                      Model identifier (e.g., mistral-embed)
    API_KEY                    API key for authentication
    BATCH_SIZE                 Texts per embedding request (default: 5)
    BATCH_DELAY                Delay between batches in seconds (default: 1)
    MAX_ATTEMPTS               Attempts per batch before giving up (default: 3)
    TIMEOUT                    Request timeout in seconds (default: 60)

  CHAT_*                       Chat completion AI service configuration
    (same fields as EMBEDDING_*)

  IDENTITY_URL                 Identity provider base URL (optional)
  IDENTITY_ANON_KEY            Identity provider public API key
  IDENTITY_SERVICE_KEY         Identity provider service role key`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile, envFile, host, port)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to YAML config file")
	cmd.Flags().StringVar(&envFile, "env-file", "", "Path to .env file (default: .env in current directory)")
	cmd.Flags().StringVar(&host, "host", "", "Server host to bind to (default: 0.0.0.0)")
	cmd.Flags().IntVar(&port, "port", 0, "Server port to listen on (default: 8080)")

	return cmd
}

func runServe(configFile, envFile, host string, port int) error {
	cfg, err := loadConfig(configFile, envFile)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars and config files.
	cfg = applyServeOverrides(cfg, host, port)

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	logger := log.NewLogger(cfg)

	attrs := append([]slog.Attr{slog.String("version", version)}, cfg.LogAttrs()...)
	logger.LogAttrs(context.Background(), slog.LevelInfo, "starting ragserve", attrs...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DBURL())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate chat schema: %w", err)
	}

	vectors := search.NewVectorStore(db)
	if err := vectors.AutoMigrate(); err != nil {
		return fmt.Errorf("migrate embeddings schema: %w", err)
	}

	users := persistence.NewUserStore(db)
	conversations := persistence.NewConversationStore(db)

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

	ragService := service.NewRag(users, conversations, pipeline, vectors, aiProvider,
		service.WithTopK(cfg.TopK()),
		service.WithRagLogger(logger),
	)
	ingestService := service.NewIngest(splitter, pipeline, vectors, logger)
	conversationService := service.NewConversations(users, conversations)
	authService := service.NewAuth(auth.NewClient(cfg.Identity()), users, logger)

	if !authService.IsConfigured() {
		logger.Warn("identity provider not configured, conversation endpoints are unauthenticated")
	}

	router := v1.NewRouter(
		v1.NewAskRouter(ragService, logger),
		v1.NewIngestRouter(ingestService, logger),
		v1.NewConversationsRouter(conversationService, logger),
		v1.NewAuthRouter(authService, logger),
		authService,
		logger,
	)

	server := api.NewServer(cfg.Addr(), cfg.CORSOrigins(), logger)
	server.MountV1(router.Routes)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return <-errCh
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
