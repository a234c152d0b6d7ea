package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"casefile/pkg/chat"
	"casefile/pkg/engine"
	"casefile/pkg/match"
)

// OllamaService talks to a self-hosted Ollama instance. It serves both
// roles: embedding provider for the matcher and narrative backend for
// the engine.
type OllamaService struct {
	baseURL        string
	embeddingModel string
	narrativeModel string
	httpClient     *http.Client
	logger         *slog.Logger
}

// Ensure interface conformance
var (
	_ match.Provider   = (*OllamaService)(nil)
	_ NarrativeService = (*OllamaService)(nil)
)

// NewOllamaService creates a new Ollama service instance.
func NewOllamaService(baseURL, embeddingModel, narrativeModel string, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL:        baseURL,
		embeddingModel: embeddingModel,
		narrativeModel: narrativeModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// InitModel waits for Ollama to come up and pulls the models if needed.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing Ollama model", "model", modelName)

	if err := s.waitForOllamaReady(ctx); err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}

	ready, err := s.isModelReady(ctx, modelName)
	if err != nil {
		return fmt.Errorf("failed to check model readiness: %w", err)
	}

	if !ready {
		s.logger.Info("Model not found, pulling it", "model", modelName)
		if err := s.pullModel(ctx, modelName); err != nil {
			return fmt.Errorf("failed to pull model: %w", err)
		}
		s.logger.Info("Model pulled successfully", "model", modelName)
	}

	return nil
}

// Embed returns the embedding vector for the given text. Backend
// failures are wrapped in match.ErrModelUnavailable so the matcher can
// degrade to substring matching.
func (s *OllamaService) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := map[string]string{
		"model":  s.embeddingModel,
		"prompt": text,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/embeddings", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrModelUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings request failed with status %d", match.ErrModelUnavailable, resp.StatusCode)
	}

	var embResp struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&embResp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode embeddings response: %v", match.ErrModelUnavailable, err)
	}
	if len(embResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", match.ErrModelUnavailable)
	}

	return embResp.Embedding, nil
}

// Narrate generates flavor text for a transition event.
func (s *OllamaService) Narrate(ctx context.Context, ev engine.Event) (string, error) {
	messages := buildNarrationMessages(ev)

	reqBody := map[string]interface{}{
		"model":    s.narrativeModel,
		"messages": messages,
		"stream":   false,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/chat", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("Ollama chat returned error", "status_code", resp.StatusCode)
		return "", fmt.Errorf("chat request failed with status: %d", resp.StatusCode)
	}

	var chatResp struct {
		Message chat.ChatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return chatResp.Message.Content, nil
}

// isModelReady checks if the specified model is available.
func (s *OllamaService) isModelReady(ctx context.Context, modelName string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/tags", nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("tags request failed with status: %d", resp.StatusCode)
	}

	var tagsResp struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tagsResp); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, model := range tagsResp.Models {
		if model.Name == modelName {
			return true, nil
		}
	}
	return false, nil
}

// pullModel pulls a model from the Ollama registry.
func (s *OllamaService) pullModel(ctx context.Context, modelName string) error {
	reqBody := map[string]string{"name": modelName}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/api/pull", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Pulls can take a while; use a dedicated long-timeout client.
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pull request failed with status: %d", resp.StatusCode)
	}
	return nil
}

// waitForOllamaReady waits for the Ollama service with retries.
func (s *OllamaService) waitForOllamaReady(ctx context.Context) error {
	maxRetries := 5
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/api/tags", nil)
		if err != nil {
			s.logger.Debug("Failed to create readiness request", "error", err, "attempt", i+1)
			time.Sleep(retryDelay)
			continue
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.Debug("Ollama not ready yet", "error", err, "attempt", i+1)
			time.Sleep(retryDelay)
			continue
		}
		_ = resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			s.logger.Info("Ollama service is ready")
			return nil
		}

		s.logger.Debug("Ollama returned non-200 status", "status", resp.StatusCode, "attempt", i+1)
		time.Sleep(retryDelay)
	}

	return fmt.Errorf("ollama service did not become ready after %d attempts", maxRetries)
}
