package services

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"casefile/pkg/textnorm"
)

// Wide enough that distinct tokens in test fixtures land in distinct
// buckets; collisions would distort the cosine scores tests rely on.
const mockEmbeddingDim = 1024

// MockEmbedder is a deterministic embedding provider for testing and
// local development without a model backend. Each normalized token is
// hashed into a bucket, so texts sharing words get high cosine
// similarity while unrelated texts score near zero.
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// Track calls for testing
	EmbedCalls []string

	mu sync.Mutex // protects all fields above
}

// NewMockEmbedder creates a new mock embedding provider
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		EmbedCalls: make([]string, 0),
	}
}

// Embed returns a deterministic token-hash vector for the text.
func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.EmbedCalls = append(m.EmbedCalls, text)
	fn := m.EmbedFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	return TokenHashVector(text), nil
}

// SetEmbedError sets up the mock to return an error on Embed
func (m *MockEmbedder) SetEmbedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbedFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, err
	}
}

// GetCalls returns a copy of the call tracking data in a thread-safe way
func (m *MockEmbedder) GetCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]string, len(m.EmbedCalls))
	copy(calls, m.EmbedCalls)
	return calls
}

// TokenHashVector maps text to a fixed-size bag-of-words vector,
// normalized to unit length. The zero vector is returned for text with
// no tokens.
func TokenHashVector(text string) []float32 {
	vec := make([]float32, mockEmbeddingDim)
	for _, token := range textnorm.Tokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(token))
		vec[h.Sum32()%mockEmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec
}
