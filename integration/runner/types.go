package runner

import (
	"time"
)

// ErrorHandlingMode controls whether a suite stops on the first failed
// step or keeps going to collect all results.
type ErrorHandlingMode string

const (
	ErrorHandlingContinue ErrorHandlingMode = "continue"
	ErrorHandlingExit     ErrorHandlingMode = "exit"
)

// Step actions
const (
	ActionStart     = "start"
	ActionUtterance = "utterance"
	ActionAccuse    = "accuse"
)

// TestSuite defines a scripted investigation run against a live API.
// Each suite plays one case with a fresh player ID from start to finish.
type TestSuite struct {
	Name   string     `json:"name"`
	CaseID string     `json:"case_id"`
	Steps  []TestStep `json:"steps"`
}

// TestStep defines a single interaction and its expected outcomes.
type TestStep struct {
	Name      string       `json:"name,omitempty"`
	Action    string       `json:"action"` // start, utterance, accuse
	Utterance string       `json:"utterance,omitempty"`
	SuspectID string       `json:"suspect_id,omitempty"`
	Expect    Expectations `json:"expect"`
}

// Expectations defines what to check after a step executes. Nil fields
// are not checked.
type Expectations struct {
	// Investigation state
	Status     *string  `json:"status,omitempty"`      // in_progress, solved, failed
	Discovered []string `json:"discovered,omitempty"`  // clue IDs newly discovered by this step
	TotalClues *int     `json:"total_clues,omitempty"` // total clues discovered so far

	// Utterance outcomes
	CanAccuse *bool `json:"can_accuse,omitempty"`

	// Accusation outcomes
	Correct      *bool `json:"correct,omitempty"`
	AttemptsLeft *int  `json:"attempts_left,omitempty"`

	// Transport
	HTTPStatus *int `json:"http_status,omitempty"` // expected non-2xx status; step passes when it matches
}

// TestResult contains the outcome of running a test step.
type TestResult struct {
	SuiteName string
	StepName  string
	Success   bool
	Error     error
	Duration  time.Duration
}

// TestJob pairs a loaded suite with the file it came from.
type TestJob struct {
	Name      string
	Suite     TestSuite
	SuiteFile string
}

// TestRunResult contains the results of running an entire suite.
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	PlayerID string
}
