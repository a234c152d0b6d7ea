package services

import (
	"io"
	"log/slog"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"casefile/pkg/chat"
)

func TestResolveEmbeddingModel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	if got := resolveEmbeddingModel("text-embedding-ada-002", log); got != openai.AdaEmbeddingV2 {
		t.Errorf("Expected ada-002 to resolve to AdaEmbeddingV2, got %v", got)
	}

	// Names the client library doesn't know fall back instead of
	// producing an Unknown model the API would reject.
	if got := resolveEmbeddingModel("some-future-model", log); got != openai.AdaEmbeddingV2 {
		t.Errorf("Expected unknown name to fall back to AdaEmbeddingV2, got %v", got)
	}
}

func TestNewOpenAIService(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewOpenAIService("test-key", "text-embedding-ada-002", "gpt-4o-mini", log)

	if service.client == nil {
		t.Error("Expected client to be initialized")
	}
	if service.embeddingModel != openai.AdaEmbeddingV2 {
		t.Errorf("Expected resolved embedding model, got %v", service.embeddingModel)
	}
	if service.narrativeModel != "gpt-4o-mini" {
		t.Errorf("Expected narrative model gpt-4o-mini, got %s", service.narrativeModel)
	}
}

func TestToOpenAIRole(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{chat.ChatRoleSystem, openai.ChatMessageRoleSystem},
		{chat.ChatRoleAgent, openai.ChatMessageRoleAssistant},
		{chat.ChatRoleUser, openai.ChatMessageRoleUser},
		{"unknown", openai.ChatMessageRoleUser},
	}

	for _, tt := range tests {
		if got := toOpenAIRole(tt.role); got != tt.want {
			t.Errorf("toOpenAIRole(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}
