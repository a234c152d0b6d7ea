package casedef

import (
	"strings"
	"testing"
)

func validCase() *CaseDefinition {
	return &CaseDefinition{
		ID:    "garden_mystery",
		Title: "The Garden Mystery",
		Clues: []Clue{
			{
				ID:            "footprints",
				CanonicalText: "Muddy footprints near the back door.",
				Phrasings:     []string{"I saw muddy footprints"},
			},
			{
				ID:            "garden_trail",
				CanonicalText: "The footprints lead to the garden.",
				Phrasings:     []string{"the footprints lead to the garden"},
				Prerequisites: []string{"footprints"},
			},
		},
		Suspects: []Suspect{
			{ID: "gardener", Name: "The Gardener"},
			{ID: "butler", Name: "The Butler"},
		},
		Solution: Solution{
			CulpritID:       "gardener",
			RequiredClueIDs: []string{"footprints", "garden_trail"},
		},
		MatchThreshold: 0.7,
		MaxAttempts:    3,
	}
}

func TestCaseDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CaseDefinition)
		wantErr string
	}{
		{
			name:   "valid case",
			mutate: func(c *CaseDefinition) {},
		},
		{
			name:    "missing id",
			mutate:  func(c *CaseDefinition) { c.ID = "" },
			wantErr: "case id is required",
		},
		{
			name:    "no clues",
			mutate:  func(c *CaseDefinition) { c.Clues = nil },
			wantErr: "at least one clue",
		},
		{
			name: "duplicate clue id",
			mutate: func(c *CaseDefinition) {
				c.Clues = append(c.Clues, Clue{ID: "footprints", Phrasings: []string{"x"}})
			},
			wantErr: "duplicate clue id",
		},
		{
			name: "clue without phrasings",
			mutate: func(c *CaseDefinition) {
				c.Clues[0].Phrasings = nil
			},
			wantErr: "at least one phrasing",
		},
		{
			name: "unknown prerequisite",
			mutate: func(c *CaseDefinition) {
				c.Clues[1].Prerequisites = []string{"nonexistent"}
			},
			wantErr: "unknown prerequisite",
		},
		{
			name: "self prerequisite",
			mutate: func(c *CaseDefinition) {
				c.Clues[0].Prerequisites = []string{"footprints"}
			},
			wantErr: "its own prerequisite",
		},
		{
			name: "unknown reveals target",
			mutate: func(c *CaseDefinition) {
				c.Clues[0].Reveals = []string{"ghost"}
			},
			wantErr: "reveals unknown id",
		},
		{
			name: "unknown culprit",
			mutate: func(c *CaseDefinition) {
				c.Solution.CulpritID = "nobody"
			},
			wantErr: "not a known suspect",
		},
		{
			name: "solution requires unknown clue",
			mutate: func(c *CaseDefinition) {
				c.Solution.RequiredClueIDs = []string{"footprints", "missing"}
			},
			wantErr: "requires unknown clue",
		},
		{
			name: "prerequisite cycle",
			mutate: func(c *CaseDefinition) {
				c.Clues[0].Prerequisites = []string{"garden_trail"}
			},
			wantErr: "cycle",
		},
		{
			name: "reveals-prerequisite cycle",
			mutate: func(c *CaseDefinition) {
				// garden_trail requires footprints, and garden_trail
				// claims to reveal footprints: a back-reference cycle.
				c.Clues[1].Reveals = []string{"footprints"}
			},
			wantErr: "cycle",
		},
		{
			name: "reveals a suspect is fine",
			mutate: func(c *CaseDefinition) {
				c.Clues[1].Reveals = []string{"gardener"}
			},
		},
		{
			name: "threshold out of range",
			mutate: func(c *CaseDefinition) {
				c.MatchThreshold = 1.5
			},
			wantErr: "match_threshold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCase()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid case, got error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestCaseDefinition_EligibleClues(t *testing.T) {
	c := validCase()

	// Nothing discovered: only the prerequisite-free clue is eligible.
	eligible := c.EligibleClues(map[string]bool{})
	if len(eligible) != 1 || eligible[0].ID != "footprints" {
		t.Fatalf("expected only footprints eligible, got %+v", eligible)
	}

	// After footprints, the dependent clue unlocks and the discovered
	// clue drops out.
	eligible = c.EligibleClues(map[string]bool{"footprints": true})
	if len(eligible) != 1 || eligible[0].ID != "garden_trail" {
		t.Fatalf("expected only garden_trail eligible, got %+v", eligible)
	}

	// Everything discovered: no candidates remain.
	eligible = c.EligibleClues(map[string]bool{"footprints": true, "garden_trail": true})
	if len(eligible) != 0 {
		t.Fatalf("expected no eligible clues, got %+v", eligible)
	}
}

func TestParse_JSON(t *testing.T) {
	data := `{
		"id": "test_case",
		"title": "Test Case",
		"clues": [
			{"id": "a", "canonical_text": "Clue A", "phrasings": ["something happened"]}
		],
		"suspects": [{"id": "s1", "name": "Suspect One"}],
		"solution": {"culprit_id": "s1", "required_clue_ids": ["a"]}
	}`

	c, err := Parse([]byte(data), "test_case.json")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.ID != "test_case" {
		t.Errorf("expected id test_case, got %s", c.ID)
	}
	if c.MatchThreshold != DefaultMatchThreshold {
		t.Errorf("expected default threshold %v, got %v", DefaultMatchThreshold, c.MatchThreshold)
	}
	if c.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected default max attempts %d, got %d", DefaultMaxAttempts, c.MaxAttempts)
	}
}

func TestParse_YAML(t *testing.T) {
	data := `
id: test_case
title: Test Case
difficulty: 2
match_threshold: 0.65
clues:
  - id: a
    canonical_text: Clue A
    phrasings:
      - something happened
  - id: b
    canonical_text: Clue B
    phrasings:
      - something else happened
    prerequisites:
      - a
suspects:
  - id: s1
    name: Suspect One
solution:
  culprit_id: s1
  required_clue_ids:
    - a
    - b
`
	c, err := Parse([]byte(data), "test_case.yaml")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if c.MatchThreshold != 0.65 {
		t.Errorf("expected threshold 0.65, got %v", c.MatchThreshold)
	}
	if len(c.Clues) != 2 || c.Clues[1].Prerequisites[0] != "a" {
		t.Errorf("unexpected clues: %+v", c.Clues)
	}
}

func TestParse_UnsupportedExtension(t *testing.T) {
	if _, err := Parse([]byte("id: x"), "case.toml"); err == nil {
		t.Error("expected error for unsupported extension")
	}
}

func TestParse_InvalidCaseRejected(t *testing.T) {
	data := `{
		"id": "broken",
		"title": "Broken",
		"clues": [
			{"id": "a", "phrasings": ["x"], "prerequisites": ["b"]},
			{"id": "b", "phrasings": ["y"], "prerequisites": ["a"]}
		],
		"suspects": [{"id": "s1", "name": "S"}],
		"solution": {"culprit_id": "s1", "required_clue_ids": ["a"]}
	}`
	if _, err := Parse([]byte(data), "broken.json"); err == nil {
		t.Error("expected cycle to be rejected at parse time")
	}
}
