package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"casefile/pkg/engine"
	"casefile/pkg/investigation"
)

// Runner executes scripted investigation suites against a live API.
type Runner struct {
	BaseURL           string
	Timeout           time.Duration
	ErrorHandlingMode ErrorHandlingMode
	Logger            func(format string, args ...interface{})

	client *http.Client
}

func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		ErrorHandlingMode: ErrorHandlingContinue,
		Logger:            func(format string, args ...interface{}) {},
		client:            &http.Client{Timeout: 60 * time.Second},
	}
}

// LoadTestSuite reads and validates a suite file.
func LoadTestSuite(path string) (TestJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TestJob{}, fmt.Errorf("failed to read suite file %s: %w", path, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(data, &suite); err != nil {
		return TestJob{}, fmt.Errorf("failed to parse suite file %s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = path
	}
	if suite.CaseID == "" {
		return TestJob{}, fmt.Errorf("suite %s has no case_id", suite.Name)
	}
	if len(suite.Steps) == 0 {
		return TestJob{}, fmt.Errorf("suite %s has no steps", suite.Name)
	}
	for i, step := range suite.Steps {
		switch step.Action {
		case ActionStart, ActionUtterance, ActionAccuse:
		default:
			return TestJob{}, fmt.Errorf("suite %s step %d has unknown action: %q", suite.Name, i, step.Action)
		}
	}

	return TestJob{Name: suite.Name, Suite: suite, SuiteFile: path}, nil
}

// RunSuite plays a suite's steps in order with a fresh player ID.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (*TestRunResult, error) {
	result := &TestRunResult{
		PlayerID: "integration-" + uuid.New().String()[:8],
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	for i, step := range suite.Steps {
		stepName := step.Name
		if stepName == "" {
			stepName = fmt.Sprintf("step %d (%s)", i+1, step.Action)
		}

		stepStart := time.Now()
		err := r.runStep(ctx, suite, result.PlayerID, step)
		stepResult := TestResult{
			SuiteName: suite.Name,
			StepName:  stepName,
			Success:   err == nil,
			Error:     err,
			Duration:  time.Since(stepStart),
		}
		result.Results = append(result.Results, stepResult)

		if err != nil {
			r.Logger("  ✗ %s: %v", stepName, err)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %q failed: %w", stepName, err)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				return result, result.Error
			}
			continue
		}
		r.Logger("  ✓ %s (%v)", stepName, stepResult.Duration)
	}

	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, suite TestSuite, playerID string, step TestStep) error {
	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	req := map[string]string{
		"player_id": playerID,
		"case_id":   suite.CaseID,
	}

	var path string
	switch step.Action {
	case ActionStart:
		path = "/v1/investigation/start"
	case ActionUtterance:
		path = "/v1/investigation/utterance"
		req["utterance"] = step.Utterance
	case ActionAccuse:
		path = "/v1/investigation/accuse"
		req["suspect_id"] = step.SuspectID
	}

	status, body, err := r.post(stepCtx, path, req)
	if err != nil {
		return err
	}

	if step.Expect.HTTPStatus != nil {
		if status != *step.Expect.HTTPStatus {
			return fmt.Errorf("expected HTTP %d, got %d: %s", *step.Expect.HTTPStatus, status, string(body))
		}
		return nil
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}

	switch step.Action {
	case ActionStart:
		var result engine.StartResult
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse start response: %w", err)
		}
		return checkState(step.Expect, result.State)

	case ActionUtterance:
		var result engine.UtteranceResult
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse utterance response: %w", err)
		}
		if step.Expect.Discovered != nil {
			if err := checkDiscovered(step.Expect.Discovered, result.Discovered); err != nil {
				return err
			}
		}
		if step.Expect.CanAccuse != nil && result.CanAccuse != *step.Expect.CanAccuse {
			return fmt.Errorf("expected can_accuse=%v, got %v", *step.Expect.CanAccuse, result.CanAccuse)
		}
		return checkState(step.Expect, result.State)

	case ActionAccuse:
		var result engine.AccusationResult
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("failed to parse accusation response: %w", err)
		}
		if step.Expect.Correct != nil && result.Correct != *step.Expect.Correct {
			return fmt.Errorf("expected correct=%v, got %v", *step.Expect.Correct, result.Correct)
		}
		if step.Expect.AttemptsLeft != nil && result.AttemptsLeft != *step.Expect.AttemptsLeft {
			return fmt.Errorf("expected attempts_left=%d, got %d", *step.Expect.AttemptsLeft, result.AttemptsLeft)
		}
		return checkState(step.Expect, result.State)
	}

	return nil
}

func checkState(expect Expectations, state *investigation.Investigation) error {
	if state == nil {
		if expect.Status != nil || expect.TotalClues != nil {
			return fmt.Errorf("response has no state")
		}
		return nil
	}
	if expect.Status != nil && string(state.Status) != *expect.Status {
		return fmt.Errorf("expected status %q, got %q", *expect.Status, state.Status)
	}
	if expect.TotalClues != nil && len(state.Discovered) != *expect.TotalClues {
		return fmt.Errorf("expected %d discovered clues, got %d (%v)", *expect.TotalClues, len(state.Discovered), state.Discovered)
	}
	return nil
}

func checkDiscovered(expected, got []string) error {
	if len(got) != len(expected) {
		return fmt.Errorf("expected discovered %v, got %v", expected, got)
	}
	for i, id := range expected {
		if got[i] != id {
			return fmt.Errorf("expected discovered %v, got %v", expected, got)
		}
	}
	return nil
}

func (r *Runner) post(ctx context.Context, path string, payload map[string]string) (int, []byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
