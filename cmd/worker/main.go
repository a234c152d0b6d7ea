package main

import (
	"context"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"casefile/internal/config"
	"casefile/internal/logger"
	"casefile/internal/services"
	qsvc "casefile/internal/services/queue"
	"casefile/internal/storage"
	"casefile/internal/worker"
	"casefile/pkg/engine"
	"casefile/pkg/match"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Casefile worker",
		"environment", cfg.Environment,
		"embedding_provider", cfg.EmbeddingProvider,
		"narrative_provider", cfg.NarrativeProvider)

	embedder, err := services.NewEmbeddingProvider(cfg, log)
	if err != nil {
		log.Error("Failed to build embedding provider", "error", err)
		os.Exit(1)
	}

	narrativeService, err := services.NewNarrativeProvider(cfg, log)
	if err != nil {
		log.Error("Failed to build narrative provider", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewRedisStorage(cfg.RedisURL, cfg.DataDir, log)
	if err != nil {
		log.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}

	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}

	queueClient, err := qsvc.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to connect queue client", "error", err)
		os.Exit(1)
	}
	requestQueue := qsvc.NewRequestQueue(queueClient)

	// Initialize models on startup
	if svc, ok := embedder.(interface {
		InitModel(ctx context.Context, modelName string) error
	}); ok {
		initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if err := svc.InitModel(initCtx, cfg.EmbeddingModel); err != nil {
			initCancel()
			log.Error("Failed to initialize embedding model", "error", err, "model", cfg.EmbeddingModel)
			os.Exit(1)
		}
		initCancel()
	}
	if narrativeService != nil {
		initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if err := narrativeService.InitModel(initCtx, cfg.NarrativeModel); err != nil {
			initCancel()
			log.Error("Failed to initialize narrative model", "error", err, "model", cfg.NarrativeModel)
			os.Exit(1)
		}
		initCancel()
	}

	matcher := match.NewMatcher(embedder, log)

	var narrator engine.Narrator
	if narrativeService != nil {
		narrator = narrativeService
	}
	eng := engine.NewEngine(store, store, matcher, narrator, log)

	processor := worker.NewProcessor(eng, log)
	w := worker.New(requestQueue, processor, queueClient.GetRedisClient(), log, os.Getenv("WORKER_ID"))

	go func() {
		if err := w.Start(); err != nil {
			log.Error("Worker stopped with error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Worker is shutting down...")
	w.Stop()

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue connection", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Worker exited")
}
