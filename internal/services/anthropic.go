package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"casefile/pkg/chat"
	"casefile/pkg/engine"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicTemperature = 0.7
	DefaultAnthropicMaxTokens   = 1024
)

// AnthropicService is a narrative backend using Anthropic Claude. It
// does not provide embeddings; pair it with another embedding provider.
type AnthropicService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ NarrativeService = (*AnthropicService)(nil)

type AnthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []chat.ChatMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type AnthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type AnthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []AnthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Error      *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey string, modelName string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) InitModel(ctx context.Context, modelName string) error {
	return nil
}

// Narrate generates flavor text for a transition event.
func (a *AnthropicService) Narrate(ctx context.Context, ev engine.Event) (string, error) {
	return a.chatCompletion(ctx, buildNarrationMessages(ev))
}

// splitChatMessages extracts and combines all system messages into a single
// system prompt and returns the remaining non-system messages
func (a *AnthropicService) splitChatMessages(messages []chat.ChatMessage) (string, []chat.ChatMessage) {
	var systemParts []string
	var nonSystemMessages []chat.ChatMessage

	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			nonSystemMessages = append(nonSystemMessages, msg)
		}
	}

	systemPrompt := strings.Join(systemParts, "\n\n")
	return systemPrompt, nonSystemMessages
}

func (a *AnthropicService) chatCompletion(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	systemPrompt, conversationMessages := a.splitChatMessages(messages)

	temperature := DefaultAnthropicTemperature
	anthropicReq := AnthropicChatRequest{
		Model:       a.modelName,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: &temperature,
		Messages:    conversationMessages,
		Stream:      false,
	}
	if systemPrompt != "" {
		anthropicReq.System = systemPrompt
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicBaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp AnthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return "", fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	var responseText string
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	if responseText == "" {
		return "", fmt.Errorf("API response contained no text content")
	}

	return responseText, nil
}
