package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"casefile/pkg/casedef"
	"casefile/pkg/investigation"
	"casefile/pkg/match"
)

var (
	// ErrSessionClosed is returned for actions on a concluded case.
	ErrSessionClosed = errors.New("case already concluded")

	// ErrInvestigationNotFound is returned when no investigation
	// exists for the (player, case) pair.
	ErrInvestigationNotFound = errors.New("investigation not found")

	// ErrPersistenceFailure is returned when saving state failed after
	// retries. The caller should tell the player the action may not
	// have been recorded.
	ErrPersistenceFailure = errors.New("failed to persist investigation")

	// ErrUnknownSuspect is returned for an accusation naming a suspect
	// the case doesn't define. No attempt is consumed.
	ErrUnknownSuspect = errors.New("unknown suspect")

	// ErrCaseNotFound is returned by case libraries for an unknown
	// case ID.
	ErrCaseNotFound = errors.New("case not found")
)

// StateStore persists investigation state. LoadInvestigation returns
// (nil, nil) when no record exists.
type StateStore interface {
	LoadInvestigation(ctx context.Context, playerID, caseID string) (*investigation.Investigation, error)
	SaveInvestigation(ctx context.Context, inv *investigation.Investigation) error
	ArchiveInvestigation(ctx context.Context, inv *investigation.Investigation) error
}

// CaseLibrary resolves case definitions. Implementations load each
// case at most once per process and cache the result.
type CaseLibrary interface {
	GetCase(ctx context.Context, caseID string) (*casedef.CaseDefinition, error)
}

// Matcher scores utterances against clue phrasings.
type Matcher interface {
	Match(ctx context.Context, utterance string, candidates []casedef.Clue, threshold float64) ([]match.Result, error)
	WarmCase(ctx context.Context, c *casedef.CaseDefinition) error
}

// Narrator produces flavor text for a transition event. Best-effort:
// the engine absorbs every narrator failure and substitutes a static
// string, so a missing narration never blocks game progress.
type Narrator interface {
	Narrate(ctx context.Context, ev Event) (string, error)
}

const (
	saveRetries     = 3
	saveBackoffBase = 100 * time.Millisecond
	narrateTimeout  = 15 * time.Second
)

// Engine is the investigation state machine. It serializes mutations
// per (player, case) session, decides transitions from matcher output
// and case structure, and persists state before any narration happens.
// Different players' sessions run fully in parallel.
type Engine struct {
	cases    CaseLibrary
	store    StateStore
	matcher  Matcher
	narrator Narrator
	logger   *slog.Logger

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	warmed map[string]bool
}

// NewEngine creates an engine. narrator may be nil; every event then
// gets its static fallback text.
func NewEngine(cases CaseLibrary, store StateStore, matcher Matcher, narrator Narrator, logger *slog.Logger) *Engine {
	return &Engine{
		cases:    cases,
		store:    store,
		matcher:  matcher,
		narrator: narrator,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
		warmed:   make(map[string]bool),
	}
}

// StartResult is the outcome of StartCase.
type StartResult struct {
	State *investigation.Investigation `json:"state"`

	// Progress is the fraction of required clues discovered, in [0,1].
	Progress  float64 `json:"progress"`
	Narration string  `json:"narration,omitempty"`

	// Resumed is true when an in-progress investigation already
	// existed; the call is then a no-op returning the existing state.
	Resumed bool `json:"resumed,omitempty"`
}

// UtteranceResult is the outcome of SubmitUtterance.
type UtteranceResult struct {
	State *investigation.Investigation `json:"state"`

	// Discovered lists clue IDs newly discovered by this utterance,
	// empty on a no-match. At most one clue per utterance.
	Discovered []string      `json:"discovered,omitempty"`
	Match      *match.Result `json:"match,omitempty"`

	// CanAccuse is true once every clue the solution requires has
	// been discovered.
	CanAccuse bool    `json:"can_accuse"`
	Progress  float64 `json:"progress"`
	Narration string  `json:"narration,omitempty"`
}

// AccusationResult is the outcome of AttemptSolution.
type AccusationResult struct {
	State        *investigation.Investigation `json:"state"`
	Correct      bool                         `json:"correct"`
	AttemptsLeft int                          `json:"attempts_left"`
	Progress     float64                      `json:"progress"`
	Narration    string                       `json:"narration,omitempty"`
}

// StartCase opens an investigation for the player. If one is already
// in progress for this (player, case) pair the existing state is
// returned unchanged with Resumed set; starting a case is idempotent.
func (e *Engine) StartCase(ctx context.Context, playerID, caseID string) (*StartResult, error) {
	c, err := e.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	e.warmCase(ctx, c)

	unlock := e.lockSession(playerID, caseID)
	defer unlock()

	existing, err := e.store.LoadInvestigation(ctx, playerID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}
	if existing != nil && !existing.Terminal() {
		e.logger.Debug("Duplicate session start, returning existing state",
			"player_id", playerID, "case_id", caseID)
		return &StartResult{
			State:    existing,
			Progress: existing.Progress(c.Solution.RequiredClueIDs),
			Resumed:  true,
		}, nil
	}

	inv := investigation.New(playerID, caseID)
	if err := e.saveState(ctx, inv); err != nil {
		return nil, err
	}

	narration := e.narrate(Event{Type: EventCaseOpened, Case: c, State: inv})
	return &StartResult{State: inv, Narration: narration}, nil
}

// GetState returns the current investigation state for the player,
// or ErrInvestigationNotFound.
func (e *Engine) GetState(ctx context.Context, playerID, caseID string) (*investigation.Investigation, error) {
	inv, err := e.store.LoadInvestigation(ctx, playerID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvestigationNotFound
	}
	return inv, nil
}

// SubmitUtterance evaluates one free-text player message against the
// clues currently eligible for discovery. Clues already discovered or
// with unmet prerequisites are never candidates, so discovery stays
// in order and rewards are never duplicated. At most one clue is
// discovered per utterance; a miss is a normal outcome, not an error.
func (e *Engine) SubmitUtterance(ctx context.Context, playerID, caseID, utterance string) (*UtteranceResult, error) {
	c, err := e.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockSession(playerID, caseID)
	defer unlock()

	inv, err := e.store.LoadInvestigation(ctx, playerID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvestigationNotFound
	}
	if inv.Terminal() {
		return nil, ErrSessionClosed
	}

	candidates := c.EligibleClues(inv.DiscoveredSet())
	results, err := e.matcher.Match(ctx, utterance, candidates, c.MatchThreshold)
	if err != nil {
		// Unexpected matcher errors are fatal to this request only;
		// no state was mutated.
		return nil, fmt.Errorf("match failed: %w", err)
	}

	if len(results) == 0 {
		narration := e.narrate(Event{Type: EventNoMatch, Case: c, State: inv, Utterance: utterance})
		return &UtteranceResult{
			State:     inv,
			CanAccuse: inv.HasAll(c.Solution.RequiredClueIDs),
			Progress:  inv.Progress(c.Solution.RequiredClueIDs),
			Narration: narration,
		}, nil
	}

	best := results[0]
	clue, _ := c.Clue(best.ClueID)
	inv.Discover(best.ClueID)
	inv.UpdatedAt = time.Now().UTC()

	if err := e.saveState(ctx, inv); err != nil {
		return nil, err
	}

	e.logger.Info("Clue discovered",
		"player_id", playerID,
		"case_id", caseID,
		"clue_id", best.ClueID,
		"confidence", best.Confidence)

	narration := e.narrate(Event{
		Type:       EventClueDiscovered,
		Case:       c,
		State:      inv,
		Clue:       clue,
		Confidence: best.Confidence,
		Utterance:  utterance,
	})

	return &UtteranceResult{
		State:      inv,
		Discovered: []string{best.ClueID},
		Match:      &best,
		CanAccuse:  inv.HasAll(c.Solution.RequiredClueIDs),
		Progress:   inv.Progress(c.Solution.RequiredClueIDs),
		Narration:  narration,
	}, nil
}

// AttemptSolution processes an accusation. The case is solved only
// when the named suspect is the culprit AND every required clue has
// been discovered; accusing early with the right name is not enough.
// Each wrong accusation consumes one attempt from the case's budget,
// and exhausting the budget fails the investigation for good.
func (e *Engine) AttemptSolution(ctx context.Context, playerID, caseID, suspectID string) (*AccusationResult, error) {
	c, err := e.cases.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	suspect, ok := c.Suspect(suspectID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSuspect, suspectID)
	}

	unlock := e.lockSession(playerID, caseID)
	defer unlock()

	inv, err := e.store.LoadInvestigation(ctx, playerID, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investigation: %w", err)
	}
	if inv == nil {
		return nil, ErrInvestigationNotFound
	}
	if inv.Terminal() {
		return nil, ErrSessionClosed
	}

	inv.AttemptedSolutions++
	inv.UpdatedAt = time.Now().UTC()

	correct := suspectID == c.Solution.CulpritID && inv.HasAll(c.Solution.RequiredClueIDs)
	evType := EventAccusationRejected
	switch {
	case correct:
		inv.Status = investigation.StatusSolved
		evType = EventCaseSolved
	case inv.AttemptedSolutions >= c.MaxAttempts:
		inv.Status = investigation.StatusFailed
		evType = EventCaseFailed
	}

	if err := e.saveState(ctx, inv); err != nil {
		return nil, err
	}

	if inv.Terminal() {
		// Archival is best-effort; the terminal state itself is
		// already saved.
		if err := e.store.ArchiveInvestigation(ctx, inv); err != nil {
			e.logger.Error("Failed to archive concluded investigation",
				"player_id", playerID, "case_id", caseID, "error", err)
		}
	}

	e.logger.Info("Solution attempted",
		"player_id", playerID,
		"case_id", caseID,
		"suspect_id", suspectID,
		"correct", correct,
		"status", inv.Status,
		"attempts", inv.AttemptedSolutions)

	attemptsLeft := c.MaxAttempts - inv.AttemptedSolutions
	if attemptsLeft < 0 {
		attemptsLeft = 0
	}

	narration := e.narrate(Event{Type: evType, Case: c, State: inv, Suspect: suspect})
	return &AccusationResult{
		State:        inv,
		Correct:      correct,
		AttemptsLeft: attemptsLeft,
		Progress:     inv.Progress(c.Solution.RequiredClueIDs),
		Narration:    narration,
	}, nil
}

// lockSession acquires the per-(player, case) mutex and returns the
// release func. This is what guarantees at most one concurrent
// mutation per session.
func (e *Engine) lockSession(playerID, caseID string) func() {
	key := playerID + "\x00" + caseID

	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// warmCase precomputes phrasing embeddings once per case. Failures are
// logged and tolerated; the matcher embeds on demand or falls back.
func (e *Engine) warmCase(ctx context.Context, c *casedef.CaseDefinition) {
	e.mu.Lock()
	done := e.warmed[c.ID]
	if !done {
		e.warmed[c.ID] = true
	}
	e.mu.Unlock()
	if done {
		return
	}

	if err := e.matcher.WarmCase(ctx, c); err != nil {
		e.logger.Warn("Case phrasing warmup failed", "case_id", c.ID, "error", err)
	}
}

// saveState persists the investigation, retrying with backoff. State
// must be durable before any narration is attempted.
func (e *Engine) saveState(ctx context.Context, inv *investigation.Investigation) error {
	var err error
	for attempt := 0; attempt < saveRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrPersistenceFailure, ctx.Err())
			case <-time.After(saveBackoffBase * time.Duration(attempt)):
			}
		}
		if err = e.store.SaveInvestigation(ctx, inv); err == nil {
			return nil
		}
		e.logger.Warn("Failed to save investigation, retrying",
			"player_id", inv.PlayerID,
			"case_id", inv.CaseID,
			"attempt", attempt+1,
			"error", err)
	}
	return fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
}

// narrate fetches flavor text for an event, bounded by a timeout and
// decoupled from the request context so a slow narrator can't block
// or cancel recorded progress. Any failure degrades to static text.
func (e *Engine) narrate(ev Event) string {
	if e.narrator == nil {
		return fallbackNarration(ev)
	}

	ctx, cancel := context.WithTimeout(context.Background(), narrateTimeout)
	defer cancel()

	text, err := e.narrator.Narrate(ctx, ev)
	if err != nil || text == "" {
		if err != nil {
			e.logger.Warn("Narration failed, using fallback", "event", ev.Type, "error", err)
		}
		return fallbackNarration(ev)
	}
	return text
}
