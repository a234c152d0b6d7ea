package investigation

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an investigation. Transitions are
// one-directional: in_progress may move to solved or failed, and the
// terminal states never change again.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSolved     Status = "solved"
	StatusFailed     Status = "failed"
)

// Investigation is one player's mutable progress against one case.
// It is mutated exclusively by the engine, under the engine's
// per-session lock, and persisted after every successful transition.
type Investigation struct {
	ID       uuid.UUID `json:"id"`
	PlayerID string    `json:"player_id"`
	CaseID   string    `json:"case_id"`

	// Discovered holds clue IDs in discovery order. It only grows
	// while the investigation is in progress.
	Discovered []string `json:"discovered,omitempty"`

	AttemptedSolutions int       `json:"attempted_solutions"`
	Status             Status    `json:"status"`
	StartedAt          time.Time `json:"started_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// New creates a fresh in-progress investigation for a player and case.
func New(playerID, caseID string) *Investigation {
	now := time.Now().UTC()
	return &Investigation{
		ID:        uuid.New(),
		PlayerID:  playerID,
		CaseID:    caseID,
		Status:    StatusInProgress,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// HasDiscovered reports whether the clue has already been discovered.
func (inv *Investigation) HasDiscovered(clueID string) bool {
	for _, id := range inv.Discovered {
		if id == clueID {
			return true
		}
	}
	return false
}

// Discover appends a clue to the discovery record. Re-discovering a
// known clue is a no-op so repeated utterances stay idempotent.
func (inv *Investigation) Discover(clueID string) {
	if inv.HasDiscovered(clueID) {
		return
	}
	inv.Discovered = append(inv.Discovered, clueID)
}

// DiscoveredSet returns the discovered clue IDs as a set for
// eligibility checks.
func (inv *Investigation) DiscoveredSet() map[string]bool {
	set := make(map[string]bool, len(inv.Discovered))
	for _, id := range inv.Discovered {
		set[id] = true
	}
	return set
}

// HasAll reports whether every listed clue has been discovered.
func (inv *Investigation) HasAll(clueIDs []string) bool {
	set := inv.DiscoveredSet()
	for _, id := range clueIDs {
		if !set[id] {
			return false
		}
	}
	return true
}

// Progress returns the fraction of required clues discovered, in [0,1].
func (inv *Investigation) Progress(requiredClueIDs []string) float64 {
	if len(requiredClueIDs) == 0 {
		return 0
	}
	set := inv.DiscoveredSet()
	found := 0
	for _, id := range requiredClueIDs {
		if set[id] {
			found++
		}
	}
	return float64(found) / float64(len(requiredClueIDs))
}

// Terminal reports whether the investigation has concluded.
func (inv *Investigation) Terminal() bool {
	return inv.Status != StatusInProgress
}
