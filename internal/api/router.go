package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Legacy control route kept for old clients:
	// GET /API/5-2s, GET /API/3-500ms, GET /API/stop
	r.Get("/API/{command}", s.handleLegacyCommand)
	r.Get("/API", s.handleUsage)
	r.Get("/", s.handleUsage)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/control", func(r chi.Router) {
			r.Post("/send", s.handleSend)
			r.Post("/continuous", s.handleContinuous)
			r.Post("/stop", s.handleStop)
		})

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", s.handleListPatterns)
			r.Post("/", s.handleCreatePattern)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPattern)
				r.Patch("/", s.handleUpdatePattern)
				r.Delete("/", s.handleDeletePattern)
				r.Post("/activate", s.handleActivatePattern)
			})
		})

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status and component states.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}

	if s.db != nil {
		if err := s.db.HealthCheck(r.Context()); err != nil {
			components["database"] = "unhealthy"
		} else {
			components["database"] = "ok"
		}
	}
	if s.mqtt != nil {
		if s.mqtt.IsConnected() {
			components["mqtt"] = "ok"
		} else {
			components["mqtt"] = "disconnected"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"components": components,
	})
}

// handleStatus returns the scheduler's current session.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.scheduler.Status())
}

// handleUsage documents the legacy command syntax for bare requests.
func (s *Server) handleUsage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "vibelink-core",
		"version": s.version,
		"usage": map[string]string{
			"command": "GET /API/{level}-{duration}{ms|s}, e.g. /API/5-2s or /API/3-500ms",
			"stop":    "GET /API/stop",
			"api":     "see /api/v1",
		},
	})
}
