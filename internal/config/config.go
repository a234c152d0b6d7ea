package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL string
	DataDir  string

	// EmbeddingProvider selects the embedding backend: "ollama",
	// "openai", or "mock".
	EmbeddingProvider string
	EmbeddingModel    string

	// NarrativeProvider selects the narration backend: "ollama",
	// "openai", "anthropic", or "mock". Empty disables narration and
	// every event gets its static fallback text.
	NarrativeProvider string
	NarrativeModel    string

	OpenAIAPIKey    string
	AnthropicAPIKey string
	OllamaBaseURL   string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		DataDir:  getEnv("DATA_DIR", "./data/cases"),

		EmbeddingProvider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "ollama")),
		EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),

		NarrativeProvider: strings.ToLower(getEnv("NARRATIVE_PROVIDER", "")),
		NarrativeModel:    getEnv("NARRATIVE_MODEL", ""),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		OllamaBaseURL:   getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.EmbeddingProvider {
	case "ollama", "mock":
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when EMBEDDING_PROVIDER=openai")
		}
	default:
		return fmt.Errorf("unknown EMBEDDING_PROVIDER: %s", c.EmbeddingProvider)
	}

	switch c.NarrativeProvider {
	case "", "mock":
	case "ollama":
		if c.NarrativeModel == "" {
			return fmt.Errorf("NARRATIVE_MODEL is required when NARRATIVE_PROVIDER=ollama")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when NARRATIVE_PROVIDER=openai")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when NARRATIVE_PROVIDER=anthropic")
		}
		if c.NarrativeModel == "" {
			return fmt.Errorf("NARRATIVE_MODEL is required when NARRATIVE_PROVIDER=anthropic")
		}
	default:
		return fmt.Errorf("unknown NARRATIVE_PROVIDER: %s", c.NarrativeProvider)
	}

	return nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
