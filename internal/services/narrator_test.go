package services

import (
	"strings"
	"testing"

	"casefile/pkg/casedef"
	"casefile/pkg/chat"
	"casefile/pkg/engine"
)

func testCase() *casedef.CaseDefinition {
	return &casedef.CaseDefinition{
		ID:       "manor",
		Title:    "The Blackwood Manor Affair",
		Synopsis: "A jewel has vanished from a locked study.",
	}
}

func TestBuildNarrationMessages_SystemPromptFirst(t *testing.T) {
	msgs := buildNarrationMessages(engine.Event{
		Type: engine.EventCaseOpened,
		Case: testCase(),
	})

	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != chat.ChatRoleSystem {
		t.Errorf("Expected first message role system, got %s", msgs[0].Role)
	}
	if msgs[1].Role != chat.ChatRoleUser {
		t.Errorf("Expected second message role user, got %s", msgs[1].Role)
	}
	if !strings.Contains(msgs[1].Content, "Blackwood Manor") {
		t.Errorf("Expected case title in user message, got: %s", msgs[1].Content)
	}
}

func TestBuildNarrationMessages_EventContent(t *testing.T) {
	cd := testCase()

	tests := []struct {
		name     string
		event    engine.Event
		contains string
	}{
		{
			name: "clue discovered includes canonical text",
			event: engine.Event{
				Type: engine.EventClueDiscovered,
				Case: cd,
				Clue: &casedef.Clue{ID: "ledger", CanonicalText: "the ledger pages are torn out"},
			},
			contains: "the ledger pages are torn out",
		},
		{
			name: "no match includes utterance",
			event: engine.Event{
				Type:      engine.EventNoMatch,
				Case:      cd,
				Utterance: "I inspect the chandelier",
			},
			contains: "I inspect the chandelier",
		},
		{
			name: "rejected accusation names suspect",
			event: engine.Event{
				Type:    engine.EventAccusationRejected,
				Case:    cd,
				Suspect: &casedef.Suspect{ID: "maid", Name: "Ada the maid"},
			},
			contains: "Ada the maid",
		},
		{
			name: "solved names culprit",
			event: engine.Event{
				Type:    engine.EventCaseSolved,
				Case:    cd,
				Suspect: &casedef.Suspect{ID: "maid", Name: "Ada the maid"},
			},
			contains: "Ada the maid",
		},
		{
			name:     "failed case",
			event:    engine.Event{Type: engine.EventCaseFailed, Case: cd},
			contains: "run out of chances",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := buildNarrationMessages(tt.event)
			if !strings.Contains(msgs[1].Content, tt.contains) {
				t.Errorf("Expected message to contain %q, got: %s", tt.contains, msgs[1].Content)
			}
		})
	}
}

func TestBuildNarrationMessages_OpeningUsesPrompt(t *testing.T) {
	cd := testCase()
	cd.OpeningPrompt = "Rain hammers the manor windows."

	msgs := buildNarrationMessages(engine.Event{Type: engine.EventCaseOpened, Case: cd})
	if !strings.Contains(msgs[1].Content, "Rain hammers the manor windows.") {
		t.Errorf("Expected scene notes in opening message, got: %s", msgs[1].Content)
	}
}
