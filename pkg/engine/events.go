package engine

import (
	"fmt"

	"casefile/pkg/casedef"
	"casefile/pkg/investigation"
)

// EventType identifies a state transition for narration purposes.
type EventType string

const (
	EventCaseOpened         EventType = "case_opened"
	EventNoMatch            EventType = "no_match"
	EventClueDiscovered     EventType = "clue_discovered"
	EventAccusationRejected EventType = "accusation_rejected"
	EventCaseSolved         EventType = "case_solved"
	EventCaseFailed         EventType = "case_failed"
)

// Event is a transition descriptor handed to the Narrator. Fields
// beyond Type and Case are populated only where they apply.
type Event struct {
	Type       EventType
	Case       *casedef.CaseDefinition
	State      *investigation.Investigation
	Clue       *casedef.Clue
	Suspect    *casedef.Suspect
	Confidence float64
	Utterance  string
}

// fallbackNarration supplies static display text when the narrator is
// missing, slow, or failing. Progress never depends on these strings.
func fallbackNarration(ev Event) string {
	switch ev.Type {
	case EventCaseOpened:
		if ev.Case != nil && ev.Case.OpeningPrompt != "" {
			return ev.Case.OpeningPrompt
		}
		return "A new case file lands on your desk. Where do you begin?"
	case EventNoMatch:
		return "You turn the thought over, but it leads nowhere for now."
	case EventClueDiscovered:
		if ev.Clue != nil {
			return fmt.Sprintf("You note it down: %s", ev.Clue.CanonicalText)
		}
		return "Something clicks into place. You note it down."
	case EventAccusationRejected:
		if ev.Suspect != nil {
			return fmt.Sprintf("%s denies everything, and you can't make it stick. Not yet.", ev.Suspect.Name)
		}
		return "The accusation doesn't hold. Not yet."
	case EventCaseSolved:
		if ev.Suspect != nil {
			return fmt.Sprintf("It all fits. %s did it. Case closed.", ev.Suspect.Name)
		}
		return "It all fits. Case closed."
	case EventCaseFailed:
		return "The trail has gone cold. This case will remain unsolved."
	default:
		return ""
	}
}
