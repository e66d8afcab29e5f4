package web

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalogimport/internal/history"
)

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// handleListImports returns recent runs, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	filter := history.Filter{
		Kind:  r.URL.Query().Get("kind"),
		Limit: parseIntParam(r, "limit", history.DefaultListLimit),
	}

	runs, err := s.history.List(r.Context(), filter)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// handleGetImport returns one run with its full result.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	run, err := s.history.Get(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleHealth reports liveness and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if s.service != nil && s.service.Limiter != nil {
		body["imports"] = s.service.Limiter.Status()
	}
	writeJSON(w, http.StatusOK, body)
}
