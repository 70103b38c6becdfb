package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tokensage/tokensage/internal/domain"
	"github.com/tokensage/tokensage/internal/infra/metrics"
)

// ─── Predictions ────────────────────────────────────────────────────────────

// handlePredict predicts token usage for an engine definition supplied in
// the request body. The optional user_id query scopes the prediction
// cache and the similarity search. Prediction itself never fails — only a
// malformed body is an error.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var engine domain.Engine
	if err := json.NewDecoder(r.Body).Decode(&engine); err != nil {
		writeError(w, http.StatusBadRequest, "invalid engine definition: "+err.Error())
		return
	}
	if engine.ID == "" {
		writeError(w, http.StatusBadRequest, "engine id is required")
		return
	}

	userID := r.URL.Query().Get("user_id")
	prediction := s.predictor.Predict(r.Context(), &engine, userID)
	writeJSON(w, http.StatusOK, prediction)
}

// handleEnginePrediction predicts token usage for a stored engine.
func (s *Server) handleEnginePrediction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	engine, err := s.store.GetEngine(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if engine == nil {
		writeError(w, http.StatusNotFound, "engine not found")
		return
	}

	userID := r.URL.Query().Get("user_id")
	prediction := s.predictor.Predict(r.Context(), engine, userID)
	writeJSON(w, http.StatusOK, prediction)
}

// handleClearCache empties the prediction cache unconditionally.
func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.predictor.ClearCache()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ─── Engine Registry ────────────────────────────────────────────────────────

func (s *Server) handleCreateEngine(w http.ResponseWriter, r *http.Request) {
	var engine domain.Engine
	if err := json.NewDecoder(r.Body).Decode(&engine); err != nil {
		writeError(w, http.StatusBadRequest, "invalid engine definition: "+err.Error())
		return
	}

	if err := s.store.UpsertEngine(r.Context(), engine); err != nil {
		if errors.Is(err, domain.ErrEngineInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, engine)
}

func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	engines, err := s.store.ListEngines(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if engines == nil {
		engines = []domain.Engine{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"engines": engines})
}

func (s *Server) handleGetEngine(w http.ResponseWriter, r *http.Request) {
	engine, err := s.store.GetEngine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if engine == nil {
		writeError(w, http.StatusNotFound, "engine not found")
		return
	}
	writeJSON(w, http.StatusOK, engine)
}

func (s *Server) handleDeleteEngine(w http.ResponseWriter, r *http.Request) {
	err := s.store.DeleteEngine(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrEngineNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ─── Executions ─────────────────────────────────────────────────────────────

// executionRequest is the POST body for recording an execution.
type executionRequest struct {
	UserID     string `json:"user_id"`
	TokensUsed int    `json:"tokens_used"`
	Status     string `json:"status"`
}

// handleRecordExecution logs one engine run's token usage. Future
// predictions for the engine pick it up once the cached entry expires.
func (s *Server) handleRecordExecution(w http.ResponseWriter, r *http.Request) {
	engineID := chi.URLParam(r, "id")

	var req executionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid execution: "+err.Error())
		return
	}

	rec := domain.ExecutionRecord{
		EngineID:   engineID,
		UserID:     req.UserID,
		TokensUsed: req.TokensUsed,
		Status:     req.Status,
	}
	if rec.Status == "" {
		rec.Status = "completed"
	}

	if err := s.store.InsertExecution(r.Context(), rec); err != nil {
		if errors.Is(err, domain.ErrExecutionInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.ExecutionsRecorded.WithLabelValues(rec.Status).Inc()
	if rec.TokensUsed > 0 {
		metrics.TokensRecorded.Add(float64(rec.TokensUsed))
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "recorded"})
}

// ─── User Stats ─────────────────────────────────────────────────────────────

// handleUserStats returns aggregated token usage for a user. Fail-soft
// like prediction: a datastore failure yields zero stats, not a 5xx.
func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	stats := s.predictor.UserStats(r.Context(), chi.URLParam(r, "id"))
	writeJSON(w, http.StatusOK, stats)
}
