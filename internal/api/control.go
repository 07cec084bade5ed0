package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vibelink/vibelink-core/internal/radio"
	"github.com/vibelink/vibelink-core/internal/scheduler"
)

// legacyCommandPattern matches the original command syntax:
// "{level}-{duration}{ms|s}", e.g. "5-2s" or "3-500ms".
// Fractional durations are allowed for seconds ("3-0.5s").
var legacyCommandPattern = regexp.MustCompile(`^(\d+)-(\d+(?:\.\d+)?)(ms|s)$`)

// maxSendDuration caps one-shot holds so a stray request cannot pin the
// radio on a single level for hours.
const maxSendDuration = 10 * time.Minute

// sendRequest is the body of POST /api/v1/control/send.
type sendRequest struct {
	Level      int   `json:"level"`
	DurationMS int64 `json:"duration_ms"`
}

// continuousRequest is the body of POST /api/v1/control/continuous.
type continuousRequest struct {
	Level int `json:"level"`
}

// handleLegacyCommand serves the original GET /API/{command} control route.
//
// "stop" stops the active session. "{level}-{duration}{ms|s}" starts a
// one-shot send. Anything else returns the usage document.
func (s *Server) handleLegacyCommand(w http.ResponseWriter, r *http.Request) {
	command := chi.URLParam(r, "command")

	if command == "stop" {
		s.scheduler.StopAll()
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
		return
	}

	level, hold, err := parseLegacyCommand(command)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest,
			fmt.Sprintf("unrecognised command %q, expected {level}-{duration}{ms|s} or stop", command))
		return
	}

	s.startSend(level, hold)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"level":       radio.Clamp(level),
		"duration_ms": hold.Milliseconds(),
	})
}

// handleSend starts a one-shot send at the given level for the given duration.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.DurationMS <= 0 {
		writeBadRequest(w, "duration_ms must be positive")
		return
	}

	hold := time.Duration(req.DurationMS) * time.Millisecond
	if hold > maxSendDuration {
		writeBadRequest(w, fmt.Sprintf("duration_ms exceeds maximum of %d", maxSendDuration.Milliseconds()))
		return
	}

	s.startSend(req.Level, hold)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":      "accepted",
		"level":       radio.Clamp(req.Level),
		"duration_ms": req.DurationMS,
	})
}

// handleContinuous starts continuous mode at the given level.
// Level 0 is equivalent to stop.
func (s *Server) handleContinuous(w http.ResponseWriter, r *http.Request) {
	var req continuousRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	s.scheduler.StartContinuous(req.Level)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted",
		"level":  radio.Clamp(req.Level),
	})
}

// handleStop stops any active session and emits a stop payload.
func (s *Server) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.scheduler.StopAll()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// startSend launches a one-shot send in the background. The request
// returns immediately; the outcome is observable through the status
// endpoint and session events. Supersession is the normal way for a
// send to end early and is not an error worth logging.
func (s *Server) startSend(level int, hold time.Duration) {
	go func() {
		err := s.scheduler.SendOnce(context.Background(), level, hold)
		if err != nil && !errors.Is(err, scheduler.ErrSuperseded) {
			s.logger.Warn("one-shot send failed", "level", level, "error", err)
		}
	}()
}

// parseLegacyCommand parses "{level}-{duration}{ms|s}" into a level and hold.
func parseLegacyCommand(command string) (int, time.Duration, error) {
	m := legacyCommandPattern.FindStringSubmatch(command)
	if m == nil {
		return 0, 0, fmt.Errorf("malformed command: %s", command)
	}

	level, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parsing level: %w", err)
	}

	value, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing duration: %w", err)
	}

	var hold time.Duration
	switch m[3] {
	case "ms":
		hold = time.Duration(value * float64(time.Millisecond))
	case "s":
		hold = time.Duration(value * float64(time.Second))
	}
	if hold <= 0 {
		return 0, 0, fmt.Errorf("duration must be positive: %s", command)
	}
	if hold > maxSendDuration {
		return 0, 0, fmt.Errorf("duration exceeds maximum: %s", command)
	}

	return level, hold, nil
}
