package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"casefile/internal/services"
	"casefile/internal/storage"
	"casefile/pkg/casedef"
	"casefile/pkg/engine"
	"casefile/pkg/match"
	"casefile/pkg/queue"
)

func gardenCase() *casedef.CaseDefinition {
	cd := &casedef.CaseDefinition{
		ID:    "muddy_footprints",
		Title: "The Trampled Rose Bed",
		Clues: []casedef.Clue{
			{
				ID:            "footprints",
				CanonicalText: "muddy footprints lead away from the window",
				Phrasings:     []string{"muddy footprints", "tracks in the mud"},
			},
			{
				ID:            "garden_trail",
				CanonicalText: "the trail continues into the garden shed",
				Phrasings:     []string{"trail into the shed"},
				Prerequisites: []string{"footprints"},
			},
		},
		Suspects: []casedef.Suspect{
			{ID: "gardener", Name: "Moss the gardener"},
			{ID: "butler", Name: "Pemberton the butler"},
		},
		Solution: casedef.Solution{
			CulpritID:       "gardener",
			RequiredClueIDs: []string{"footprints", "garden_trail"},
		},
		MatchThreshold: 0.5,
	}
	cd.ApplyDefaults()
	return cd
}

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage(gardenCase())
	matcher := match.NewMatcher(services.NewMockEmbedder(), log)
	eng := engine.NewEngine(store, store, matcher, services.NewMockNarrator(), log)
	return NewProcessor(eng, log)
}

func TestProcessor_StartRequest(t *testing.T) {
	p := newTestProcessor(t)

	resp, err := p.Process(context.Background(), &queue.Request{
		RequestID:  "req-1",
		Type:       queue.RequestTypeStart,
		PlayerID:   "player-1",
		CaseID:     "muddy_footprints",
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("Unexpected response error: %s", resp.Error)
	}
	if resp.Narration == "" {
		t.Error("Expected opening narration")
	}

	var result engine.StartResult
	if err := json.Unmarshal(resp.State, &result); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if result.State == nil || result.State.PlayerID != "player-1" {
		t.Errorf("Unexpected start result: %+v", result)
	}
}

func TestProcessor_UtteranceDiscoversClue(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	if _, err := p.Process(ctx, &queue.Request{
		RequestID: "req-1", Type: queue.RequestTypeStart,
		PlayerID: "player-1", CaseID: "muddy_footprints",
	}); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	resp, err := p.Process(ctx, &queue.Request{
		RequestID: "req-2", Type: queue.RequestTypeUtterance,
		PlayerID: "player-1", CaseID: "muddy_footprints",
		Utterance: "there are muddy footprints by the window",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Error != "" {
		t.Fatalf("Unexpected response error: %s", resp.Error)
	}

	var result engine.UtteranceResult
	if err := json.Unmarshal(resp.State, &result); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if len(result.Discovered) != 1 || result.Discovered[0] != "footprints" {
		t.Errorf("Expected footprints discovery, got %v", result.Discovered)
	}
}

func TestProcessor_EngineErrorGoesIntoResponse(t *testing.T) {
	p := newTestProcessor(t)

	// Utterance without starting the case first
	resp, err := p.Process(context.Background(), &queue.Request{
		RequestID: "req-1", Type: queue.RequestTypeUtterance,
		PlayerID: "player-1", CaseID: "muddy_footprints",
		Utterance: "muddy footprints",
	})
	if err != nil {
		t.Fatalf("Engine error must not fail processing: %v", err)
	}
	if resp.Error == "" {
		t.Error("Expected error in response for missing investigation")
	}
}

func TestProcessor_UnknownType(t *testing.T) {
	p := newTestProcessor(t)

	resp, err := p.Process(context.Background(), &queue.Request{
		RequestID: "req-1", Type: "telepathy",
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})
	if err != nil {
		t.Fatalf("Unknown type must not fail processing: %v", err)
	}
	if resp.Error == "" {
		t.Error("Expected error in response for unknown request type")
	}
}

func TestProcessor_AccusationFlow(t *testing.T) {
	p := newTestProcessor(t)
	ctx := context.Background()

	requests := []*queue.Request{
		{RequestID: "r1", Type: queue.RequestTypeStart, PlayerID: "player-1", CaseID: "muddy_footprints"},
		{RequestID: "r2", Type: queue.RequestTypeUtterance, PlayerID: "player-1", CaseID: "muddy_footprints", Utterance: "muddy footprints everywhere"},
		{RequestID: "r3", Type: queue.RequestTypeUtterance, PlayerID: "player-1", CaseID: "muddy_footprints", Utterance: "the trail into the shed"},
	}
	for _, req := range requests {
		resp, err := p.Process(ctx, req)
		if err != nil {
			t.Fatalf("Process %s failed: %v", req.RequestID, err)
		}
		if resp.Error != "" {
			t.Fatalf("Process %s returned error: %s", req.RequestID, resp.Error)
		}
	}

	resp, err := p.Process(ctx, &queue.Request{
		RequestID: "r4", Type: queue.RequestTypeAccusation,
		PlayerID: "player-1", CaseID: "muddy_footprints",
		SuspectID: "gardener",
	})
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	var result engine.AccusationResult
	if err := json.Unmarshal(resp.State, &result); err != nil {
		t.Fatalf("Failed to decode state: %v", err)
	}
	if !result.Correct {
		t.Error("Expected accusation to be correct after discovering all clues")
	}
}
