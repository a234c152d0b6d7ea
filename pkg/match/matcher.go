package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"casefile/pkg/casedef"
	"casefile/pkg/textnorm"
)

// ErrModelUnavailable signals that the embedding backend cannot be
// reached or loaded. Callers must treat it as recoverable: the matcher
// degrades to substring matching so the game stays playable.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Provider turns text into a fixed-length vector. Implementations must
// be pure per model version, tolerate empty input, and wrap backend
// failures in ErrModelUnavailable.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Result is the matcher's verdict for one clue: the confidence in
// [0,1] and the phrasing that scored it. Ephemeral, never persisted.
type Result struct {
	ClueID     string  `json:"clue_id"`
	Confidence float64 `json:"confidence"`
	Phrasing   string  `json:"phrasing"`
}

const (
	utteranceCacheSize = 512
	warmupConcurrency  = 4
)

// Matcher scores player utterances against clue phrasing banks.
// Phrasing vectors are cached for the process lifetime (phrasings are
// static per case definition); utterance vectors sit in a bounded LRU
// because players repeat themselves more than you'd think. Safe for
// concurrent use across all sessions.
type Matcher struct {
	provider Provider
	logger   *slog.Logger

	mu           sync.RWMutex
	phrasingVecs map[string][]float32

	utterances *lru.Cache[string, []float32]
}

// NewMatcher creates a matcher on top of an embedding provider.
func NewMatcher(provider Provider, logger *slog.Logger) *Matcher {
	cache, _ := lru.New[string, []float32](utteranceCacheSize)
	return &Matcher{
		provider:     provider,
		logger:       logger,
		phrasingVecs: make(map[string][]float32),
		utterances:   cache,
	}
}

// WarmCase precomputes embeddings for every phrasing in a case. Called
// once per case load; a failure here is not fatal because Match falls
// back to substring matching when vectors are missing.
func (m *Matcher) WarmCase(ctx context.Context, c *casedef.CaseDefinition) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)

	for _, clue := range c.Clues {
		for _, phrasing := range clue.Phrasings {
			if _, ok := m.lookupPhrasing(phrasing); ok {
				continue
			}
			phrasing := phrasing
			g.Go(func() error {
				vec, err := m.provider.Embed(gctx, phrasing)
				if err != nil {
					return fmt.Errorf("failed to embed phrasing %q: %w", phrasing, err)
				}
				m.storePhrasing(phrasing, vec)
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		m.logger.Warn("Phrasing embedding warmup incomplete",
			"case_id", c.ID, "error", err)
		return err
	}
	m.logger.Debug("Phrasing embeddings warmed", "case_id", c.ID)
	return nil
}

// Match scores the utterance against the given candidate clues and
// returns above-threshold results, best first. Ties are broken by
// candidate order, which follows clue order in the case definition.
// A clue's confidence is the maximum similarity across its phrasings.
//
// When the provider reports ErrModelUnavailable the matcher switches
// to exact case-insensitive substring matching with confidence 1.0.
func (m *Matcher) Match(ctx context.Context, utterance string, candidates []casedef.Clue, threshold float64) ([]Result, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	utterVec, err := m.embedUtterance(ctx, utterance)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			m.logger.Warn("Embedding provider unavailable, using substring fallback", "error", err)
			return m.fallbackMatch(utterance, candidates), nil
		}
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, clue := range candidates {
		best := Result{ClueID: clue.ID}
		for _, phrasing := range clue.Phrasings {
			vec, err := m.phrasingVec(ctx, phrasing)
			if err != nil {
				if errors.Is(err, ErrModelUnavailable) {
					m.logger.Warn("Embedding provider lost mid-match, using substring fallback", "error", err)
					return m.fallbackMatch(utterance, candidates), nil
				}
				return nil, err
			}
			if sim := cosineSimilarity(utterVec, vec); sim > best.Confidence {
				best.Confidence = sim
				best.Phrasing = phrasing
			}
		}
		if best.Confidence >= threshold {
			results = append(results, best)
		}
	}

	// Stable sort keeps definition order on equal confidence.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// fallbackMatch is the degraded path: a clue matches iff the
// normalized utterance contains one of its normalized phrasings.
func (m *Matcher) fallbackMatch(utterance string, candidates []casedef.Clue) []Result {
	var results []Result
	for _, clue := range candidates {
		for _, phrasing := range clue.Phrasings {
			if textnorm.Contains(utterance, phrasing) {
				results = append(results, Result{
					ClueID:     clue.ID,
					Confidence: 1.0,
					Phrasing:   phrasing,
				})
				break
			}
		}
	}
	return results
}

func (m *Matcher) embedUtterance(ctx context.Context, utterance string) ([]float32, error) {
	if vec, ok := m.utterances.Get(utterance); ok {
		return vec, nil
	}
	vec, err := m.provider.Embed(ctx, utterance)
	if err != nil {
		return nil, err
	}
	m.utterances.Add(utterance, vec)
	return vec, nil
}

func (m *Matcher) phrasingVec(ctx context.Context, phrasing string) ([]float32, error) {
	if vec, ok := m.lookupPhrasing(phrasing); ok {
		return vec, nil
	}
	// Warmup missed or failed; embed on demand.
	vec, err := m.provider.Embed(ctx, phrasing)
	if err != nil {
		return nil, err
	}
	m.storePhrasing(phrasing, vec)
	return vec, nil
}

func (m *Matcher) lookupPhrasing(phrasing string) ([]float32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vec, ok := m.phrasingVecs[phrasing]
	return vec, ok
}

func (m *Matcher) storePhrasing(phrasing string, vec []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phrasingVecs[phrasing] = vec
}

// cosineSimilarity returns the cosine of the angle between two vectors
// clamped to [0,1]. Mismatched lengths and zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
