package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"casefile/pkg/engine"
)

// InvestigationRequest is the body for all investigation mutations.
type InvestigationRequest struct {
	PlayerID  string `json:"player_id"`
	CaseID    string `json:"case_id"`
	Utterance string `json:"utterance,omitempty"`
	SuspectID string `json:"suspect_id,omitempty"`
}

type InvestigationHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewInvestigationHandler(eng *engine.Engine, logger *slog.Logger) *InvestigationHandler {
	return &InvestigationHandler{
		engine: eng,
		logger: logger,
	}
}

// ServeHTTP handles investigation requests
// Routes:
// POST /v1/investigation/start     - Open or resume a case
// POST /v1/investigation/utterance - Submit a free-text statement
// POST /v1/investigation/accuse    - Accuse a suspect
// GET  /v1/investigation           - Read state (player_id, case_id query params)
func (h *InvestigationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	action := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/investigation"), "/")

	if r.Method == http.MethodGet && action == "" {
		h.handleGetState(w, r)
		return
	}

	if r.Method != http.MethodPost {
		h.logger.Warn("Method not allowed for investigation endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, POST")
		return
	}

	var req InvestigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.PlayerID == "" || req.CaseID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "player_id and case_id are required")
		return
	}

	switch action {
	case "start":
		h.handleStart(w, r, req)
	case "utterance":
		h.handleUtterance(w, r, req)
	case "accuse":
		h.handleAccuse(w, r, req)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Unknown investigation action")
	}
}

func (h *InvestigationHandler) handleStart(w http.ResponseWriter, r *http.Request, req InvestigationRequest) {
	result, err := h.engine.StartCase(r.Context(), req.PlayerID, req.CaseID)
	if err != nil {
		h.writeEngineError(w, err, req)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("Failed to encode start result", "error", err)
	}
}

func (h *InvestigationHandler) handleUtterance(w http.ResponseWriter, r *http.Request, req InvestigationRequest) {
	if req.Utterance == "" {
		writeError(w, h.logger, http.StatusBadRequest, "utterance is required")
		return
	}

	result, err := h.engine.SubmitUtterance(r.Context(), req.PlayerID, req.CaseID, req.Utterance)
	if err != nil {
		h.writeEngineError(w, err, req)
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("Failed to encode utterance result", "error", err)
	}
}

func (h *InvestigationHandler) handleAccuse(w http.ResponseWriter, r *http.Request, req InvestigationRequest) {
	if req.SuspectID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "suspect_id is required")
		return
	}

	result, err := h.engine.AttemptSolution(r.Context(), req.PlayerID, req.CaseID, req.SuspectID)
	if err != nil {
		h.writeEngineError(w, err, req)
		return
	}

	if err := json.NewEncoder(w).Encode(result); err != nil {
		h.logger.Error("Failed to encode accusation result", "error", err)
	}
}

func (h *InvestigationHandler) handleGetState(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player_id")
	caseID := r.URL.Query().Get("case_id")
	if playerID == "" || caseID == "" {
		writeError(w, h.logger, http.StatusBadRequest, "player_id and case_id query parameters are required")
		return
	}

	inv, err := h.engine.GetState(r.Context(), playerID, caseID)
	if err != nil {
		h.writeEngineError(w, err, InvestigationRequest{PlayerID: playerID, CaseID: caseID})
		return
	}

	if err := json.NewEncoder(w).Encode(inv); err != nil {
		h.logger.Error("Failed to encode investigation state", "error", err)
	}
}

// writeEngineError maps engine errors onto HTTP statuses.
func (h *InvestigationHandler) writeEngineError(w http.ResponseWriter, err error, req InvestigationRequest) {
	var status int
	switch {
	case errors.Is(err, engine.ErrCaseNotFound),
		errors.Is(err, engine.ErrInvestigationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrSessionClosed):
		status = http.StatusConflict
	case errors.Is(err, engine.ErrUnknownSuspect):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrPersistenceFailure):
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusInternalServerError
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Investigation request failed",
			"player_id", req.PlayerID,
			"case_id", req.CaseID,
			"error", err)
	} else {
		h.logger.Warn("Investigation request rejected",
			"player_id", req.PlayerID,
			"case_id", req.CaseID,
			"status", status,
			"error", err)
	}

	writeError(w, h.logger, status, err.Error())
}
