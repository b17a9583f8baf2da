package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"content_syncer/internal/ai"
	"content_syncer/internal/config"
	"content_syncer/internal/publisher"
	"content_syncer/internal/scheduler"
	"content_syncer/internal/service"
	"content_syncer/internal/source/telegram"
	"content_syncer/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	sourceID := flag.String("source", "", "sync a single source by id and exit")
	limit := flag.Int("limit", 0, "message limit for a single-source sync (0 = config default)")
	flag.Parse()

	// Setup logger
	logger := setupLogger("info")

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = setupLogger(cfg.LogLevel)

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize RabbitMQ publisher
	rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
		URL:        cfg.RabbitMQ.URL,
		Exchange:   cfg.RabbitMQ.Exchange,
		RoutingKey: cfg.RabbitMQ.RoutingKey,
		QueueName:  cfg.RabbitMQ.QueueName,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbitMQ.Close()

	// Initialize stores
	sourceStore := postgres.NewSourceStore(db)
	contentStore := postgres.NewContentStore(db)
	keywordStore := postgres.NewKeywordStore(db)
	vectorStore := postgres.NewVectorStore(db)
	txManager := postgres.NewTransactionManager(db)

	// Initialize AI backend
	analyzer, err := ai.NewAnalyzer(cfg.AI.Anthropic, logger)
	if err != nil {
		logger.Error("failed to create analyzer", "error", err)
		os.Exit(1)
	}
	embedder, err := ai.NewEmbedder(ctx, cfg.AI.Gemini, logger)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}
	aiBackend := ai.NewBackend(analyzer, embedder)

	// Initialize source strategies
	telegramStrategy := telegram.New(telegram.Config{
		BaseURL:        cfg.Gateway.BaseURL,
		Timeout:        cfg.Gateway.Timeout,
		MaxAttempts:    cfg.Gateway.Retry.MaxAttempts,
		InitialBackoff: cfg.Gateway.Retry.InitialBackoff,
		MaxBackoff:     cfg.Gateway.Retry.MaxBackoff,
	}, logger)

	registry := service.NewStrategyRegistry(telegramStrategy)

	pipeline := service.NewPipeline(
		contentStore,
		keywordStore,
		txManager,
		aiBackend,
		vectorStore,
		rabbitMQ,
		logger,
	)

	syncService := service.NewSyncService(sourceStore, registry, pipeline, logger)

	if *sourceID != "" {
		runOnce(ctx, syncService, *sourceID, *limit, cfg.Sync.DefaultLimit, logger)
		return
	}

	sched := scheduler.NewScheduler(syncService, cfg.Sync.Interval, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	logger.Info("starting content syncer",
		"interval", cfg.Sync.Interval,
		"default_limit", cfg.Sync.DefaultLimit,
	)

	if err := sched.Start(ctx); err != nil && err != context.Canceled {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, svc *service.SyncService, sourceID string, limit, defaultLimit int, logger *slog.Logger) {
	if limit <= 0 {
		limit = defaultLimit
	}

	result, err := svc.SyncSource(ctx, sourceID, service.SyncOptions{Limit: limit})
	if err != nil {
		logger.Error("sync failed", "source_id", sourceID, "error", err)
		os.Exit(1)
	}

	fmt.Printf("source:    %s (%s)\n", result.SourceName, result.SourceID)
	fmt.Printf("processed: %d\n", result.MessagesProcessed)
	fmt.Printf("created:   %d\n", result.ContentCreated)
	fmt.Printf("skipped:   %d\n", result.ContentSkipped)
	fmt.Printf("duration:  %s\n", result.Duration)
	for _, e := range result.Errors {
		fmt.Printf("error:     %s\n", e)
	}
	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler)
}
