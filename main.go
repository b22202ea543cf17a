package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"context-engine/config"
	"context-engine/database"
	"context-engine/ingest"
	"context-engine/llmclient"
	"context-engine/retrieval"
	"context-engine/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	store, err := database.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx, cfg.EmbeddingDimensions); err != nil {
		logger.Fatal("Failed to ensure database schema", zap.Error(err))
	}

	embedClient := llmclient.New(cfg, logger)
	searcher := database.NewSearchService(store, embedClient.Embed, cfg.SemanticWeight, cfg.KeywordWeight, logger)

	engine := retrieval.NewEngine(searcher, retrieval.EngineConfig{
		CacheTTL:           cfg.CacheTTL,
		CacheMaxEntries:    cfg.CacheMaxEntries,
		DefaultTokenBudget: cfg.DefaultTokenBudget,
		DefaultMinScore:    cfg.MinRelevanceScore,
		DefaultMaxItems:    cfg.MaxContextItems,
	}, logger)

	ingestor := ingest.NewService(store, embedClient, cfg.ChunkMaxChars, logger)
	extractor := ingest.NewPDFExtractor(logger)

	webServer := web.NewServer(engine, ingestor, extractor, logger, cfg)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting context engine", zap.String("port", port))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}
