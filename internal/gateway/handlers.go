package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/civica/ventanilla/internal/domain"
)

// HealthResponse is returned by the public health endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Channels int    `json:"channels"`
	UptimeS  int64  `json:"uptimeSeconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.version,
		Channels: s.clients.Count(),
		UptimeS:  int64(time.Since(s.startedAt).Seconds()),
	})
}

// handleTurn is the synchronous turn endpoint for channels without a
// persistent connection.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if !s.authLimiter.allow(r.RemoteAddr) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
		return
	}
	if auth := AuthorizeBearer(s.auth, r); !auth.OK {
		s.authLimiter.recordFailure(r.RemoteAddr)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": auth.Reason})
		return
	}

	var req domain.TurnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()

	writeJSON(w, http.StatusOK, s.turns.HandleTurn(ctx, req))
}

// handleNotFound returns a JSON 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
