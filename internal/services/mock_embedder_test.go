package services

import (
	"context"
	"errors"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestTokenHashVector_Deterministic(t *testing.T) {
	a := TokenHashVector("muddy footprints near the window")
	b := TokenHashVector("muddy footprints near the window")
	if cosine(a, b) < 0.999 {
		t.Error("Expected identical text to produce identical vectors")
	}
}

func TestTokenHashVector_SharedWordsScoreHigher(t *testing.T) {
	base := TokenHashVector("muddy footprints near the window")
	overlap := TokenHashVector("footprints by the window, muddy ones")
	unrelated := TokenHashVector("quarterly financial report")

	simOverlap := cosine(base, overlap)
	simUnrelated := cosine(base, unrelated)

	if simOverlap <= simUnrelated {
		t.Errorf("Expected overlapping text to score higher: overlap=%f unrelated=%f", simOverlap, simUnrelated)
	}
	if simOverlap < 0.5 {
		t.Errorf("Expected heavy word overlap to score high, got %f", simOverlap)
	}
}

// A short phrasing embedded in a longer sentence has to clear the
// default fixture threshold, or discovery tests built on this mock
// silently stop matching.
func TestTokenHashVector_PhrasingInLongerUtterance(t *testing.T) {
	utterance := TokenHashVector("there are muddy footprints under the window")
	phrasing := TokenHashVector("muddy footprints")

	if sim := cosine(utterance, phrasing); sim < 0.5 {
		t.Errorf("Expected contained phrasing to score at least 0.5, got %f", sim)
	}
}

func TestTokenHashVector_EmptyText(t *testing.T) {
	vec := TokenHashVector("   ")
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("Expected zero vector for empty text, got %f at %d", v, i)
		}
	}
}

func TestMockEmbedder_TracksCalls(t *testing.T) {
	m := NewMockEmbedder()

	if _, err := m.Embed(context.Background(), "first"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if _, err := m.Embed(context.Background(), "second"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	calls := m.GetCalls()
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("Unexpected call tracking: %v", calls)
	}
}

func TestMockEmbedder_SetEmbedError(t *testing.T) {
	m := NewMockEmbedder()
	wantErr := errors.New("model offline")
	m.SetEmbedError(wantErr)

	_, err := m.Embed(context.Background(), "anything")
	if !errors.Is(err, wantErr) {
		t.Errorf("Expected injected error, got %v", err)
	}
}
