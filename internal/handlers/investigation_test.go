package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casefile/internal/services"
	"casefile/internal/storage"
	"casefile/pkg/engine"
	"casefile/pkg/match"
)

func newInvestigationHandler(t *testing.T) *InvestigationHandler {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMockStorage(gardenCase())
	matcher := match.NewMatcher(services.NewMockEmbedder(), log)
	eng := engine.NewEngine(store, store, matcher, services.NewMockNarrator(), log)
	return NewInvestigationHandler(eng, log)
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestInvestigationHandler_Start(t *testing.T) {
	handler := newInvestigationHandler(t)

	w := postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1",
		CaseID:   "muddy_footprints",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var result engine.StartResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.NotNil(t, result.State)
	assert.Equal(t, "player-1", result.State.PlayerID)
	assert.False(t, result.Resumed)
	assert.NotEmpty(t, result.Narration)
}

func TestInvestigationHandler_StartDuplicateResumes(t *testing.T) {
	handler := newInvestigationHandler(t)

	first := postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})
	require.Equal(t, http.StatusCreated, first.Code)

	second := postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})
	assert.Equal(t, http.StatusOK, second.Code)

	var result engine.StartResult
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
	assert.True(t, result.Resumed)
}

func TestInvestigationHandler_StartUnknownCase(t *testing.T) {
	handler := newInvestigationHandler(t)

	w := postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "nonexistent",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvestigationHandler_UtteranceDiscovers(t *testing.T) {
	handler := newInvestigationHandler(t)

	postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})

	w := postJSON(t, handler, "/v1/investigation/utterance", InvestigationRequest{
		PlayerID:  "player-1",
		CaseID:    "muddy_footprints",
		Utterance: "there are muddy footprints under the window",
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result engine.UtteranceResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, []string{"footprints"}, result.Discovered)
}

func TestInvestigationHandler_UtteranceWithoutSession(t *testing.T) {
	handler := newInvestigationHandler(t)

	w := postJSON(t, handler, "/v1/investigation/utterance", InvestigationRequest{
		PlayerID:  "player-1",
		CaseID:    "muddy_footprints",
		Utterance: "muddy footprints",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvestigationHandler_UtteranceMissingText(t *testing.T) {
	handler := newInvestigationHandler(t)

	w := postJSON(t, handler, "/v1/investigation/utterance", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigationHandler_AccuseUnknownSuspect(t *testing.T) {
	handler := newInvestigationHandler(t)

	postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})

	w := postJSON(t, handler, "/v1/investigation/accuse", InvestigationRequest{
		PlayerID:  "player-1",
		CaseID:    "muddy_footprints",
		SuspectID: "ghost",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigationHandler_ExhaustedBudgetCloses(t *testing.T) {
	handler := newInvestigationHandler(t)

	postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})

	// Burn through the attempt budget with wrong accusations
	for i := 0; i < 3; i++ {
		w := postJSON(t, handler, "/v1/investigation/accuse", InvestigationRequest{
			PlayerID: "player-1", CaseID: "muddy_footprints", SuspectID: "butler",
		})
		require.Equal(t, http.StatusOK, w.Code)
	}

	// Session is now failed; further actions conflict
	w := postJSON(t, handler, "/v1/investigation/utterance", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints", Utterance: "muddy footprints",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestInvestigationHandler_GetState(t *testing.T) {
	handler := newInvestigationHandler(t)

	postJSON(t, handler, "/v1/investigation/start", InvestigationRequest{
		PlayerID: "player-1", CaseID: "muddy_footprints",
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/investigation?player_id=player-1&case_id=muddy_footprints", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "in_progress")
}

func TestInvestigationHandler_GetStateMissingParams(t *testing.T) {
	handler := newInvestigationHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/investigation", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvestigationHandler_InvalidBody(t *testing.T) {
	handler := newInvestigationHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/investigation/start", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
