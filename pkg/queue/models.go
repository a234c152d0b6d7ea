package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeStart opens or resumes an investigation
	RequestTypeStart RequestType = "start"

	// RequestTypeUtterance is a free-text statement from the player
	RequestTypeUtterance RequestType = "utterance"

	// RequestTypeAccusation names a suspect as the culprit
	RequestTypeAccusation RequestType = "accusation"
)

// Request is a queued investigation command. The worker resolves it to
// an engine call keyed by (player, case).
type Request struct {
	RequestID string      `json:"request_id"`
	Type      RequestType `json:"type"`
	PlayerID  string      `json:"player_id"`
	CaseID    string      `json:"case_id"`

	// Utterance-specific fields
	Utterance string `json:"utterance,omitempty"`

	// Accusation-specific fields
	SuspectID string `json:"suspect_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Validate checks that the request carries the fields its type needs.
func (r *Request) Validate() error {
	if r.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}
	if r.PlayerID == "" {
		return fmt.Errorf("player_id is required")
	}
	if r.CaseID == "" {
		return fmt.Errorf("case_id is required")
	}
	switch r.Type {
	case RequestTypeStart:
	case RequestTypeUtterance:
		if r.Utterance == "" {
			return fmt.Errorf("utterance is required for utterance requests")
		}
	case RequestTypeAccusation:
		if r.SuspectID == "" {
			return fmt.Errorf("suspect_id is required for accusation requests")
		}
	default:
		return fmt.Errorf("unknown request type: %s", r.Type)
	}
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
