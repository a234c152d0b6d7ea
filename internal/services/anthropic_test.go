package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"casefile/pkg/chat"
)

func TestNewAnthropicService(t *testing.T) {
	apiKey := "test-api-key"
	modelName := "claude-3-5-haiku-latest"
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	service := NewAnthropicService(apiKey, modelName, log)

	if service.apiKey != apiKey {
		t.Errorf("Expected API key %s, got %s", apiKey, service.apiKey)
	}

	if service.modelName != modelName {
		t.Errorf("Expected model name %s, got %s", modelName, service.modelName)
	}

	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
}

func TestAnthropicService_InitModel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnthropicService("test-key", "claude-3-5-haiku-latest", log)

	err := service.InitModel(context.Background(), "test-model")
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestAnthropicService_SplitChatMessages(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := NewAnthropicService("test-key", "claude-3-5-haiku-latest", log)

	tests := []struct {
		name                   string
		messages               []chat.ChatMessage
		expectedSystem         string
		expectedNonSystemCount int
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are the narrator."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleAgent, Content: "Hi there!"},
			},
			expectedSystem:         "You are the narrator.",
			expectedNonSystemCount: 2,
		},
		{
			name: "multiple system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are the narrator."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleSystem, Content: "Be concise."},
			},
			expectedSystem:         "You are the narrator.\n\nBe concise.",
			expectedNonSystemCount: 1,
		},
		{
			name: "no system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleUser, Content: "Hello"},
			},
			expectedSystem:         "",
			expectedNonSystemCount: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemPrompt, nonSystemMessages := service.splitChatMessages(tt.messages)

			if systemPrompt != tt.expectedSystem {
				t.Errorf("Expected system prompt '%s', got '%s'", tt.expectedSystem, systemPrompt)
			}

			if len(nonSystemMessages) != tt.expectedNonSystemCount {
				t.Errorf("Expected %d non-system messages, got %d", tt.expectedNonSystemCount, len(nonSystemMessages))
			}

			for _, msg := range nonSystemMessages {
				if msg.Role == chat.ChatRoleSystem {
					t.Error("Found system message in non-system messages")
				}
			}
		})
	}
}
