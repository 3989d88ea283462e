// Package api provides design session handlers for Blueprint endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alcove-ed/blueprint/internal/models"
	"github.com/go-chi/chi/v5"
)

// submitRequest carries a user utterance for the current step.
type submitRequest struct {
	Text string `json:"text"`
}

// goBackRequest names a previously confirmed step to re-enter.
type goBackRequest struct {
	Step string `json:"step"`
}

// suggestionsRequest selects a suggestion kind for the current step.
type suggestionsRequest struct {
	Kind string `json:"kind"`
}

// healthHandler handles GET /health
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "ok"}))
}

// createSessionHandler handles POST /api/v1/sessions
func (s *Server) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("createSessionHandler invoked", "method", r.Method, "path", r.URL.Path)

	var handoff models.WizardHandoff
	if err := json.NewDecoder(r.Body).Decode(&handoff); err != nil {
		slog.Warn("createSessionHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.StartSession(r.Context(), handoff)
	if err != nil {
		s.writeEngineError(w, "createSessionHandler", err)
		return
	}

	slog.Info("createSessionHandler session created", "sessionID", result.SessionID)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("Session created successfully", result))
}

// getSessionHandler handles GET /api/v1/sessions/{sessionID}
func (s *Server) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("getSessionHandler invoked", "sessionID", sessionID)

	doc, err := s.engine.GetState(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "getSessionHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(doc))
}

// deleteSessionHandler handles DELETE /api/v1/sessions/{sessionID}
func (s *Server) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("deleteSessionHandler invoked", "sessionID", sessionID)

	// Confirm existence first so a missing session reports 404, not silent
	// success.
	if _, err := s.engine.GetState(r.Context(), sessionID); err != nil {
		s.writeEngineError(w, "deleteSessionHandler", err)
		return
	}
	if err := s.st.DeleteSession(sessionID); err != nil {
		slog.Error("deleteSessionHandler delete failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to delete session"))
		return
	}

	slog.Info("deleteSessionHandler session deleted", "sessionID", sessionID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session deleted successfully", nil))
}

// submitHandler handles POST /api/v1/sessions/{sessionID}/submit
func (s *Server) submitHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("submitHandler invoked", "sessionID", sessionID)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("submitHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.Submit(r.Context(), sessionID, req.Text)
	if err != nil {
		s.writeEngineError(w, "submitHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// confirmHandler handles POST /api/v1/sessions/{sessionID}/confirm
func (s *Server) confirmHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("confirmHandler invoked", "sessionID", sessionID)

	result, err := s.engine.Confirm(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "confirmHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// refineHandler handles POST /api/v1/sessions/{sessionID}/refine
func (s *Server) refineHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("refineHandler invoked", "sessionID", sessionID)

	result, err := s.engine.Refine(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "refineHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// proceedHandler handles POST /api/v1/sessions/{sessionID}/proceed
func (s *Server) proceedHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("proceedHandler invoked", "sessionID", sessionID)

	result, err := s.engine.Proceed(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "proceedHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// goBackHandler handles POST /api/v1/sessions/{sessionID}/goback
func (s *Server) goBackHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("goBackHandler invoked", "sessionID", sessionID)

	var req goBackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("goBackHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.GoBackTo(r.Context(), sessionID, models.StepKey(req.Step))
	if err != nil {
		s.writeEngineError(w, "goBackHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// suggestionsHandler handles POST /api/v1/sessions/{sessionID}/suggestions
func (s *Server) suggestionsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("suggestionsHandler invoked", "sessionID", sessionID)

	var req suggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("suggestionsHandler invalid JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	result, err := s.engine.RequestSuggestions(r.Context(), sessionID, models.SuggestionKind(req.Kind))
	if err != nil {
		s.writeEngineError(w, "suggestionsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(result))
}

// contextHandler handles GET /api/v1/sessions/{sessionID}/context
func (s *Server) contextHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("contextHandler invoked", "sessionID", sessionID)

	formatted, err := s.engine.GetFormattedContext(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "contextHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"context": formatted}))
}

// contextStatsHandler handles GET /api/v1/sessions/{sessionID}/context/stats
func (s *Server) contextStatsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("contextStatsHandler invoked", "sessionID", sessionID)

	stats, err := s.engine.GetContextStats(r.Context(), sessionID)
	if err != nil {
		s.writeEngineError(w, "contextStatsHandler", err)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(stats))
}

// blueprintHandler handles GET /api/v1/sessions/{sessionID}/blueprint
func (s *Server) blueprintHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	slog.Debug("blueprintHandler invoked", "sessionID", sessionID)

	captured, err := s.st.GetBlueprint(sessionID)
	if err != nil {
		slog.Error("blueprintHandler fetch failed", "error", err, "sessionID", sessionID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to get blueprint"))
		return
	}
	if captured == nil {
		// Nothing confirmed yet; fall back to the live session's captured map
		// so the endpoint works before the first stage completes.
		doc, err := s.engine.GetState(r.Context(), sessionID)
		if err != nil {
			s.writeEngineError(w, "blueprintHandler", err)
			return
		}
		captured = doc.Captured
	}
	writeJSONResponse(w, http.StatusOK, models.Success(captured))
}

// writeEngineError maps engine errors onto HTTP status codes.
func (s *Server) writeEngineError(w http.ResponseWriter, handler string, err error) {
	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		slog.Debug(handler+" session not found", "error", err)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
	case errors.Is(err, models.ErrInvalidTransition):
		slog.Warn(handler+" invalid transition", "error", err)
		writeJSONResponse(w, http.StatusConflict, models.Error(err.Error()))
	case errors.Is(err, models.ErrMissingHandoffField),
		errors.Is(err, models.ErrHandoffFieldTooLong),
		errors.Is(err, models.ErrUnknownStep),
		errors.Is(err, models.ErrEmptyUtterance),
		errors.Is(err, models.ErrUtteranceTooLong),
		errors.Is(err, models.ErrInvalidSuggestionKind):
		slog.Warn(handler+" bad request", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	default:
		slog.Error(handler+" failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Internal server error"))
	}
}
