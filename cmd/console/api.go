package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"casefile/internal/handlers"
	"casefile/pkg/engine"
	"casefile/pkg/investigation"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/v1/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func listCases(client *http.Client, baseURL string) ([]handlers.CaseSummary, error) {
	resp, err := client.Get(baseURL + "/v1/cases")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var summaries []handlers.CaseSummary
	if err := json.NewDecoder(resp.Body).Decode(&summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

func getCase(client *http.Client, baseURL, caseID string) (*handlers.CaseView, error) {
	resp, err := client.Get(baseURL + "/v1/cases/" + caseID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var view handlers.CaseView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, fmt.Errorf("failed to parse case response: %w", err)
	}
	return &view, nil
}

func startCase(client *http.Client, baseURL, playerID, caseID string) (*engine.StartResult, error) {
	body, err := postInvestigation(client, baseURL, "/v1/investigation/start", handlers.InvestigationRequest{
		PlayerID: playerID,
		CaseID:   caseID,
	})
	if err != nil {
		return nil, err
	}

	var result engine.StartResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse start response: %w", err)
	}
	return &result, nil
}

func sendUtterance(client *http.Client, baseURL, playerID, caseID, utterance string) (*engine.UtteranceResult, error) {
	body, err := postInvestigation(client, baseURL, "/v1/investigation/utterance", handlers.InvestigationRequest{
		PlayerID:  playerID,
		CaseID:    caseID,
		Utterance: utterance,
	})
	if err != nil {
		return nil, err
	}

	var result engine.UtteranceResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse utterance response: %w", err)
	}
	return &result, nil
}

func accuseSuspect(client *http.Client, baseURL, playerID, caseID, suspectID string) (*engine.AccusationResult, error) {
	body, err := postInvestigation(client, baseURL, "/v1/investigation/accuse", handlers.InvestigationRequest{
		PlayerID:  playerID,
		CaseID:    caseID,
		SuspectID: suspectID,
	})
	if err != nil {
		return nil, err
	}

	var result engine.AccusationResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse accusation response: %w", err)
	}
	return &result, nil
}

func getInvestigation(client *http.Client, baseURL, playerID, caseID string) (*investigation.Investigation, error) {
	url := fmt.Sprintf("%s/v1/investigation?player_id=%s&case_id=%s", baseURL, playerID, caseID)
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, body)
	}

	var inv investigation.Investigation
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse investigation response: %w", err)
	}
	return &inv, nil
}

func postInvestigation(client *http.Client, baseURL, path string, req handlers.InvestigationRequest) ([]byte, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+path, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, apiError(resp.StatusCode, body)
	}
	return body, nil
}

func apiError(status int, body []byte) error {
	var errorResp ErrorResponse
	if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
		return fmt.Errorf("API returned status %d: %s", status, string(body))
	}
	return fmt.Errorf("%s", errorResp.Error)
}
