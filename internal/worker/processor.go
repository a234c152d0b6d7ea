package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"casefile/pkg/engine"
	"casefile/pkg/queue"
)

// Processor resolves queued requests to engine calls and shapes the
// responses pushed back to the enqueuer.
type Processor struct {
	engine *engine.Engine
	logger *slog.Logger
}

// NewProcessor creates a new request processor
func NewProcessor(eng *engine.Engine, logger *slog.Logger) *Processor {
	return &Processor{
		engine: eng,
		logger: logger,
	}
}

// Process executes one request against the engine. Engine-level errors
// are folded into the response rather than returned, so a bad request
// never kills the worker loop; only serialization failures propagate.
func (p *Processor) Process(ctx context.Context, req *queue.Request) (*queue.Response, error) {
	resp := &queue.Response{
		RequestID:   req.RequestID,
		PlayerID:    req.PlayerID,
		CaseID:      req.CaseID,
		CompletedAt: time.Now().UTC(),
	}

	var payload interface{}
	var err error

	switch req.Type {
	case queue.RequestTypeStart:
		payload, err = p.engine.StartCase(ctx, req.PlayerID, req.CaseID)
	case queue.RequestTypeUtterance:
		payload, err = p.engine.SubmitUtterance(ctx, req.PlayerID, req.CaseID, req.Utterance)
	case queue.RequestTypeAccusation:
		payload, err = p.engine.AttemptSolution(ctx, req.PlayerID, req.CaseID, req.SuspectID)
	default:
		err = fmt.Errorf("unknown request type: %s", req.Type)
	}

	if err != nil {
		p.logger.Warn("Request resolved to an error",
			"request_id", req.RequestID,
			"type", req.Type,
			"error", err)
		resp.Error = err.Error()
		return resp, nil
	}

	resp.Narration = extractNarration(payload)

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	resp.State = data
	return resp, nil
}

func extractNarration(payload interface{}) string {
	switch r := payload.(type) {
	case *engine.StartResult:
		return r.Narration
	case *engine.UtteranceResult:
		return r.Narration
	case *engine.AccusationResult:
		return r.Narration
	default:
		return ""
	}
}
