package casedef

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultMatchThreshold is the minimum cosine similarity for a clue
	// match when a case doesn't configure its own.
	DefaultMatchThreshold = 0.72

	// DefaultMaxAttempts bounds solution attempts per investigation when
	// a case doesn't configure its own.
	DefaultMaxAttempts = 3
)

// Clue is an atomic discoverable fact in a case. A clue becomes
// eligible for discovery only once all of its prerequisites have been
// discovered.
type Clue struct {
	ID            string   `json:"id" yaml:"id"`
	CanonicalText string   `json:"canonical_text" yaml:"canonical_text"`
	Phrasings     []string `json:"phrasings" yaml:"phrasings"`
	Prerequisites []string `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	Reveals       []string `json:"reveals,omitempty" yaml:"reveals,omitempty"`
}

// Suspect is a person of interest the player may accuse.
type Suspect struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Alibi       string `json:"alibi,omitempty" yaml:"alibi,omitempty"`
	Motive      string `json:"motive,omitempty" yaml:"motive,omitempty"`
}

// Solution is the winning accusation for a case. An accusation only
// solves the case when the culprit is named and every required clue has
// already been discovered.
type Solution struct {
	CulpritID       string   `json:"culprit_id" yaml:"culprit_id"`
	RequiredClueIDs []string `json:"required_clue_ids" yaml:"required_clue_ids"`
}

// CaseDefinition is the static content package for one detective case.
// It is loaded once, validated, and shared read-only by every player
// session. Clue order is significant: it breaks confidence ties
// deterministically.
type CaseDefinition struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Synopsis      string    `json:"synopsis,omitempty" yaml:"synopsis,omitempty"`
	Difficulty    int       `json:"difficulty,omitempty" yaml:"difficulty,omitempty"` // 1-5
	OpeningPrompt string    `json:"opening_prompt,omitempty" yaml:"opening_prompt,omitempty"`
	Clues         []Clue    `json:"clues" yaml:"clues"`
	Suspects      []Suspect `json:"suspects" yaml:"suspects"`
	Solution      Solution  `json:"solution" yaml:"solution"`

	// MatchThreshold is the minimum confidence for a clue match.
	// Tunable per case difficulty; zero means DefaultMatchThreshold.
	MatchThreshold float64 `json:"match_threshold,omitempty" yaml:"match_threshold,omitempty"`

	// MaxAttempts is the solution attempt budget; zero means
	// DefaultMaxAttempts.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
}

// Parse unmarshals a case definition from JSON or YAML based on the
// file extension, applies defaults, and validates it.
func Parse(data []byte, filename string) (*CaseDefinition, error) {
	var c CaseDefinition
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".json":
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal case definition %s: %w", filename, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to unmarshal case definition %s: %w", filename, err)
		}
	default:
		return nil, fmt.Errorf("unsupported case definition format: %s", ext)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid case definition %s: %w", filename, err)
	}
	return &c, nil
}

// ApplyDefaults fills in policy parameters a case file omits.
func (c *CaseDefinition) ApplyDefaults() {
	if c.MatchThreshold == 0 {
		c.MatchThreshold = DefaultMatchThreshold
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
}

// Clue returns the clue with the given ID.
func (c *CaseDefinition) Clue(id string) (*Clue, bool) {
	for i := range c.Clues {
		if c.Clues[i].ID == id {
			return &c.Clues[i], true
		}
	}
	return nil, false
}

// Suspect returns the suspect with the given ID.
func (c *CaseDefinition) Suspect(id string) (*Suspect, bool) {
	for i := range c.Suspects {
		if c.Suspects[i].ID == id {
			return &c.Suspects[i], true
		}
	}
	return nil, false
}

// EligibleClues returns, in definition order, the clues that are not
// yet discovered and whose prerequisites are all discovered.
func (c *CaseDefinition) EligibleClues(discovered map[string]bool) []Clue {
	var eligible []Clue
	for _, clue := range c.Clues {
		if discovered[clue.ID] {
			continue
		}
		met := true
		for _, pre := range clue.Prerequisites {
			if !discovered[pre] {
				met = false
				break
			}
		}
		if met {
			eligible = append(eligible, clue)
		}
	}
	return eligible
}

// Validate checks structural integrity: non-empty identifiers, every
// reference resolving, and the clue dependency graph being acyclic.
// Must be called at load time; the rest of the engine assumes a valid
// definition.
func (c *CaseDefinition) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("case id is required")
	}
	if c.Title == "" {
		return fmt.Errorf("case title is required")
	}
	if len(c.Clues) == 0 {
		return fmt.Errorf("case must define at least one clue")
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("match_threshold must be in [0,1], got %v", c.MatchThreshold)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}

	clueIDs := make(map[string]bool, len(c.Clues))
	for _, clue := range c.Clues {
		if clue.ID == "" {
			return fmt.Errorf("clue id is required")
		}
		if clueIDs[clue.ID] {
			return fmt.Errorf("duplicate clue id: %s", clue.ID)
		}
		clueIDs[clue.ID] = true
		if len(clue.Phrasings) == 0 {
			return fmt.Errorf("clue %s must have at least one phrasing", clue.ID)
		}
		for _, p := range clue.Phrasings {
			if strings.TrimSpace(p) == "" {
				return fmt.Errorf("clue %s has an empty phrasing", clue.ID)
			}
		}
	}

	suspectIDs := make(map[string]bool, len(c.Suspects))
	for _, s := range c.Suspects {
		if s.ID == "" {
			return fmt.Errorf("suspect id is required")
		}
		if suspectIDs[s.ID] {
			return fmt.Errorf("duplicate suspect id: %s", s.ID)
		}
		suspectIDs[s.ID] = true
	}

	for _, clue := range c.Clues {
		for _, pre := range clue.Prerequisites {
			if !clueIDs[pre] {
				return fmt.Errorf("clue %s has unknown prerequisite: %s", clue.ID, pre)
			}
			if pre == clue.ID {
				return fmt.Errorf("clue %s cannot be its own prerequisite", clue.ID)
			}
		}
		for _, rev := range clue.Reveals {
			// Reveals may point at follow-up clues or suspects.
			if !clueIDs[rev] && !suspectIDs[rev] {
				return fmt.Errorf("clue %s reveals unknown id: %s", clue.ID, rev)
			}
		}
	}

	if !suspectIDs[c.Solution.CulpritID] {
		return fmt.Errorf("solution culprit is not a known suspect: %s", c.Solution.CulpritID)
	}
	if len(c.Solution.RequiredClueIDs) == 0 {
		return fmt.Errorf("solution must require at least one clue")
	}
	for _, id := range c.Solution.RequiredClueIDs {
		if !clueIDs[id] {
			return fmt.Errorf("solution requires unknown clue: %s", id)
		}
	}

	return c.checkAcyclic(clueIDs)
}

// checkAcyclic rejects cycles in the clue dependency graph. Both
// prerequisite edges and reveals edges between clues participate: a
// clue that reveals its own ancestor is as broken as one that requires
// it.
func (c *CaseDefinition) checkAcyclic(clueIDs map[string]bool) error {
	edges := make(map[string][]string, len(c.Clues))
	for _, clue := range c.Clues {
		edges[clue.ID] = append(edges[clue.ID], clue.Prerequisites...)
		for _, rev := range clue.Reveals {
			if clueIDs[rev] {
				// Treat "A reveals B" as B depending on A.
				edges[rev] = append(edges[rev], clue.ID)
			}
		}
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(c.Clues))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("clue dependency cycle involving: %s", id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, dep := range edges[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[id] = done
		return nil
	}

	for _, clue := range c.Clues {
		if err := visit(clue.ID); err != nil {
			return err
		}
	}
	return nil
}
