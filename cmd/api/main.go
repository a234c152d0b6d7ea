package main

import (
	"context"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"casefile/internal/config"
	"casefile/internal/handlers"
	"casefile/internal/logger"
	"casefile/internal/middleware"
	"casefile/internal/services"
	"casefile/internal/storage"
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

	log.Info("Starting Casefile API",
		"port", cfg.Port,
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

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/v1/health", healthHandler)

	casesHandler := handlers.NewCasesHandler(store, log)
	mux.Handle("/v1/cases", casesHandler)
	mux.Handle("/v1/cases/", casesHandler)

	investigationHandler := handlers.NewInvestigationHandler(eng, log)
	mux.Handle("/v1/investigation", investigationHandler)
	mux.Handle("/v1/investigation/", investigationHandler)

	handler := middleware.Logger(mux)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	log.Info("Server exited")
}
