package services

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"casefile/pkg/chat"
	"casefile/pkg/engine"
	"casefile/pkg/match"
)

// OpenAIService backs both the matcher and the narrator with the
// OpenAI API.
type OpenAIService struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	narrativeModel string
	logger         *slog.Logger
}

var (
	_ match.Provider   = (*OpenAIService)(nil)
	_ NarrativeService = (*OpenAIService)(nil)
)

// NewOpenAIService creates a new OpenAI-backed service.
func NewOpenAIService(apiKey, embeddingModel, narrativeModel string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		client:         openai.NewClient(apiKey),
		embeddingModel: resolveEmbeddingModel(embeddingModel, logger),
		narrativeModel: narrativeModel,
		logger:         logger,
	}
}

// resolveEmbeddingModel maps a configured model name onto the client
// library's embedding model enum. Unrecognized names fall back to
// text-embedding-ada-002.
func resolveEmbeddingModel(name string, logger *slog.Logger) openai.EmbeddingModel {
	var model openai.EmbeddingModel
	_ = model.UnmarshalText([]byte(name))
	if model == openai.Unknown {
		logger.Warn("Unknown OpenAI embedding model, using text-embedding-ada-002", "model", name)
		model = openai.AdaEmbeddingV2
	}
	return model
}

// InitModel verifies the API is reachable with the configured key.
// OpenAI hosts its models, so there is nothing to pull.
func (s *OpenAIService) InitModel(ctx context.Context, modelName string) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("openai api not reachable: %w", err)
	}
	s.logger.Info("OpenAI service ready", "model", modelName)
	return nil
}

// Embed returns the embedding vector for the given text. API failures
// are wrapped in match.ErrModelUnavailable so the matcher can degrade.
func (s *OpenAIService) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: s.embeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", match.ErrModelUnavailable, err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding returned", match.ErrModelUnavailable)
	}
	return resp.Data[0].Embedding, nil
}

// Narrate generates flavor text for a transition event.
func (s *OpenAIService) Narrate(ctx context.Context, ev engine.Event) (string, error) {
	messages := buildNarrationMessages(ev)

	oaiMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		oaiMessages = append(oaiMessages, openai.ChatCompletionMessage{
			Role:    toOpenAIRole(m.Role),
			Content: m.Content,
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.narrativeModel,
		Messages: oaiMessages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIRole(role string) string {
	switch role {
	case chat.ChatRoleSystem:
		return openai.ChatMessageRoleSystem
	case chat.ChatRoleAgent:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
