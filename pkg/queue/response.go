package queue

import (
	"encoding/json"
	"time"
)

// Response is the worker's answer to a queued request, pushed to a
// per-request Redis list so the enqueuer can block on it.
type Response struct {
	RequestID string `json:"request_id"`
	PlayerID  string `json:"player_id"`
	CaseID    string `json:"case_id"`

	Narration string          `json:"narration,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	Error     string          `json:"error,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// ToJSON converts the response to JSON bytes for Redis
func (r *Response) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// ResponseFromJSON parses a response from JSON bytes
func ResponseFromJSON(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
