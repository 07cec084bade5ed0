package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vibelink/vibelink-core/internal/pattern"
)

// createPatternRequest is the body of POST /api/v1/patterns.
type createPatternRequest struct {
	Name   string         `json:"name"`
	Author string         `json:"author"`
	Steps  []pattern.Step `json:"steps"`
}

// updatePatternRequest is the body of PATCH /api/v1/patterns/{id}.
// Nil fields are left unchanged.
type updatePatternRequest struct {
	Name   *string         `json:"name,omitempty"`
	Author *string         `json:"author,omitempty"`
	Steps  *[]pattern.Step `json:"steps,omitempty"`
}

// handleListPatterns returns all stored patterns.
func (s *Server) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns, err := s.patterns.ListPatterns(r.Context())
	if err != nil {
		s.logger.Error("listing patterns", "error", err)
		writeInternalError(w, "failed to list patterns")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// handleGetPattern returns a single pattern by ID.
func (s *Server) handleGetPattern(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.patterns.GetPattern(r.Context(), id)
	if err != nil {
		s.writePatternError(w, err, "failed to get pattern")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleCreatePattern creates a new API-sourced pattern.
func (s *Server) handleCreatePattern(w http.ResponseWriter, r *http.Request) {
	var req createPatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p := &pattern.Pattern{
		Name:   req.Name,
		Author: req.Author,
		Source: pattern.SourceAPI,
		Steps:  req.Steps,
	}

	if err := s.patterns.CreatePattern(r.Context(), p); err != nil {
		s.writePatternError(w, err, "failed to create pattern")
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

// handleUpdatePattern applies a partial update to a pattern.
func (s *Server) handleUpdatePattern(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updatePatternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := s.patterns.GetPattern(r.Context(), id)
	if err != nil {
		s.writePatternError(w, err, "failed to get pattern")
		return
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Author != nil {
		p.Author = *req.Author
	}
	if req.Steps != nil {
		p.Steps = *req.Steps
	}

	if err := s.patterns.UpdatePattern(r.Context(), p); err != nil {
		s.writePatternError(w, err, "failed to update pattern")
		return
	}

	writeJSON(w, http.StatusOK, p)
}

// handleDeletePattern removes a pattern. Deleting the pattern does not
// stop a session that is already playing it.
func (s *Server) handleDeletePattern(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.patterns.DeletePattern(r.Context(), id); err != nil {
		s.writePatternError(w, err, "failed to delete pattern")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleActivatePattern starts looping playback of a stored pattern,
// superseding any active session.
func (s *Server) handleActivatePattern(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := s.patterns.GetPattern(r.Context(), id)
	if err != nil {
		s.writePatternError(w, err, "failed to get pattern")
		return
	}

	s.scheduler.StartPattern(p.ID, p.SchedulerSteps())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "accepted",
		"pattern_id": p.ID,
		"name":       p.DisplayName(),
	})
}

// writePatternError maps pattern package errors to HTTP responses.
func (s *Server) writePatternError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case errors.Is(err, pattern.ErrPatternNotFound):
		writeNotFound(w, "pattern not found")
	case errors.Is(err, pattern.ErrPatternExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a pattern with this name already exists")
	case errors.Is(err, pattern.ErrInvalidPattern),
		errors.Is(err, pattern.ErrInvalidName),
		errors.Is(err, pattern.ErrInvalidStep):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error(logMsg, "error", err)
		writeInternalError(w, logMsg)
	}
}
