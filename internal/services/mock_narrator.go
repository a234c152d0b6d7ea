package services

import (
	"context"
	"sync"

	"casefile/pkg/engine"
)

// MockNarrator is a mock implementation of NarrativeService for testing
type MockNarrator struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	NarrateFunc   func(ctx context.Context, ev engine.Event) (string, error)

	// Track calls for testing
	InitModelCalls []string
	NarrateCalls   []engine.Event

	mu sync.Mutex // protects all fields above
}

// NewMockNarrator creates a new mock narrative service
func NewMockNarrator() *MockNarrator {
	return &MockNarrator{
		InitModelCalls: make([]string, 0),
		NarrateCalls:   make([]engine.Event, 0),
	}
}

// InitModel mocks model initialization
func (m *MockNarrator) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	m.InitModelCalls = append(m.InitModelCalls, modelName)
	fn := m.InitModelFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, modelName)
	}
	return nil
}

// Narrate mocks narration
func (m *MockNarrator) Narrate(ctx context.Context, ev engine.Event) (string, error) {
	m.mu.Lock()
	m.NarrateCalls = append(m.NarrateCalls, ev)
	fn := m.NarrateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, ev)
	}
	return "Mock narration for " + string(ev.Type), nil
}

// SetNarrateError sets up the mock to return an error on Narrate
func (m *MockNarrator) SetNarrateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NarrateFunc = func(ctx context.Context, ev engine.Event) (string, error) {
		return "", err
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockNarrator) GetCalls() ([]string, []engine.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	initCalls := make([]string, len(m.InitModelCalls))
	copy(initCalls, m.InitModelCalls)

	narrateCalls := make([]engine.Event, len(m.NarrateCalls))
	copy(narrateCalls, m.NarrateCalls)

	return initCalls, narrateCalls
}
