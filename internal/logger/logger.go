package logger

import (
	"log/slog"
	"os"

	"casefile/internal/config"
)

// Setup configures the global slog logger based on environment
func Setup(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	if cfg.Environment == "production" {
		// JSON format for production
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		// Text format for development
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
