package services

import (
	"fmt"
	"log/slog"

	"casefile/internal/config"
	"casefile/pkg/match"
)

// NewEmbeddingProvider builds the configured embedding backend.
func NewEmbeddingProvider(cfg *config.Config, logger *slog.Logger) (match.Provider, error) {
	switch cfg.EmbeddingProvider {
	case "ollama":
		return NewOllamaService(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.NarrativeModel, logger), nil
	case "openai":
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.NarrativeModel, logger), nil
	case "mock":
		logger.Warn("Using mock embedding provider; matches are word-overlap only")
		return NewMockEmbedder(), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.EmbeddingProvider)
	}
}

// NewNarrativeProvider builds the configured narrative backend.
// Returns nil when narration is disabled; the engine then uses static
// fallback text for every event.
func NewNarrativeProvider(cfg *config.Config, logger *slog.Logger) (NarrativeService, error) {
	switch cfg.NarrativeProvider {
	case "":
		logger.Info("Narration disabled; using static fallback text")
		return nil, nil
	case "ollama":
		return NewOllamaService(cfg.OllamaBaseURL, cfg.EmbeddingModel, cfg.NarrativeModel, logger), nil
	case "openai":
		return NewOpenAIService(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.NarrativeModel, logger), nil
	case "anthropic":
		return NewAnthropicService(cfg.AnthropicAPIKey, cfg.NarrativeModel, logger), nil
	case "mock":
		return NewMockNarrator(), nil
	default:
		return nil, fmt.Errorf("unknown narrative provider: %s", cfg.NarrativeProvider)
	}
}
