package services

import (
	"context"
	"fmt"
	"strings"

	"casefile/pkg/chat"
	"casefile/pkg/engine"
)

// NarrativeService is the interface narrative backends implement. The
// engine consumes it through its own Narrator interface; every
// implementation here builds the same prompt and differs only in
// transport.
type NarrativeService interface {
	// InitModel initializes the narrative model on startup.
	InitModel(ctx context.Context, modelName string) error

	// Narrate produces flavor text for a state-transition event.
	Narrate(ctx context.Context, ev engine.Event) (string, error)
}

const narratorSystemPrompt = "You are the narrator of a noir detective game. " +
	"Respond with a single short paragraph of atmospheric second-person " +
	"narration. Never reveal the culprit, undiscovered clues, or game mechanics."

// buildNarrationMessages turns a transition event into chat messages
// for an LLM backend.
func buildNarrationMessages(ev engine.Event) []chat.ChatMessage {
	var sb strings.Builder
	if ev.Case != nil {
		fmt.Fprintf(&sb, "Case: %s. %s\n", ev.Case.Title, ev.Case.Synopsis)
	}

	switch ev.Type {
	case engine.EventCaseOpened:
		sb.WriteString("The detective has just opened the case file. Set the opening scene.")
		if ev.Case != nil && ev.Case.OpeningPrompt != "" {
			fmt.Fprintf(&sb, " Scene notes: %s", ev.Case.OpeningPrompt)
		}
	case engine.EventNoMatch:
		fmt.Fprintf(&sb, "The detective said: %q. It doesn't connect to anything yet. "+
			"Narrate the dead end without giving hints.", ev.Utterance)
	case engine.EventClueDiscovered:
		if ev.Clue != nil {
			fmt.Fprintf(&sb, "The detective has just uncovered a clue: %s. "+
				"Narrate the moment of discovery.", ev.Clue.CanonicalText)
		}
	case engine.EventAccusationRejected:
		if ev.Suspect != nil {
			fmt.Fprintf(&sb, "The detective accused %s, but the accusation doesn't hold. "+
				"Narrate the rebuff.", ev.Suspect.Name)
		}
	case engine.EventCaseSolved:
		if ev.Suspect != nil {
			fmt.Fprintf(&sb, "The detective has solved the case: %s is the culprit. "+
				"Narrate the conclusion.", ev.Suspect.Name)
		}
	case engine.EventCaseFailed:
		sb.WriteString("The detective has run out of chances and the case is lost. " +
			"Narrate the failure.")
	}

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: narratorSystemPrompt},
		{Role: chat.ChatRoleUser, Content: sb.String()},
	}
}
