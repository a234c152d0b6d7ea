package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"casefile/internal/storage"
	"casefile/pkg/casedef"
	"casefile/pkg/engine"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CaseSummary is the catalog entry shown when listing cases.
type CaseSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Synopsis   string `json:"synopsis,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

// CaseView is the player-facing view of one case. Clue phrasings and
// the solution never leave the server; exposing them would let clients
// solve cases by reading the catalog.
type CaseView struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Synopsis      string        `json:"synopsis,omitempty"`
	Difficulty    int           `json:"difficulty,omitempty"`
	OpeningPrompt string        `json:"opening_prompt,omitempty"`
	Suspects      []SuspectView `json:"suspects"`
	ClueCount     int           `json:"clue_count"`
	MaxAttempts   int           `json:"max_attempts"`
}

type SuspectView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Alibi       string `json:"alibi,omitempty"`
	Motive      string `json:"motive,omitempty"`
}

type CasesHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewCasesHandler(storage storage.Storage, logger *slog.Logger) *CasesHandler {
	return &CasesHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles case catalog requests
// Routes:
// GET /v1/cases      - List available cases
// GET /v1/cases/{id} - Read one case
func (h *CasesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for cases endpoint", "method", r.Method)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/cases"), "/")
	if path == "" {
		h.handleList(w, r)
		return
	}
	h.handleRead(w, r, path)
}

func (h *CasesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	cases, err := h.storage.ListCases(r.Context())
	if err != nil {
		h.logger.Error("Failed to list cases", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list cases")
		return
	}

	summaries := make([]CaseSummary, 0, len(cases))
	for _, cd := range cases {
		summaries = append(summaries, CaseSummary{
			ID:         cd.ID,
			Title:      cd.Title,
			Synopsis:   cd.Synopsis,
			Difficulty: cd.Difficulty,
		})
	}

	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		h.logger.Error("Failed to encode case list", "error", err)
	}
}

func (h *CasesHandler) handleRead(w http.ResponseWriter, r *http.Request, caseID string) {
	cd, err := h.storage.GetCase(r.Context(), caseID)
	if err != nil {
		if errors.Is(err, engine.ErrCaseNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "Case not found")
			return
		}
		h.logger.Error("Failed to load case", "case_id", caseID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load case")
		return
	}

	if err := json.NewEncoder(w).Encode(newCaseView(cd)); err != nil {
		h.logger.Error("Failed to encode case", "case_id", caseID, "error", err)
	}
}

func newCaseView(cd *casedef.CaseDefinition) CaseView {
	suspects := make([]SuspectView, 0, len(cd.Suspects))
	for _, s := range cd.Suspects {
		suspects = append(suspects, SuspectView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Alibi:       s.Alibi,
			Motive:      s.Motive,
		})
	}
	return CaseView{
		ID:            cd.ID,
		Title:         cd.Title,
		Synopsis:      cd.Synopsis,
		Difficulty:    cd.Difficulty,
		OpeningPrompt: cd.OpeningPrompt,
		Suspects:      suspects,
		ClueCount:     len(cd.Clues),
		MaxAttempts:   cd.MaxAttempts,
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		logger.Error("Failed to encode error response", "error", err)
	}
}
