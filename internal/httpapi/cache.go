package httpapi

import (
	"net/http"
	"path/filepath"
)

type removedCount struct {
	Removed int `json:"removed"`
}

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, removedCount{Removed: s.cache.ClearAll()})
}

func (s *Server) handleInvalidateKey(w http.ResponseWriter, r *http.Request) {
	removed := s.cache.Invalidate(r.PathValue("key"))
	s.respond(w, r, http.StatusOK, map[string]bool{"removed": removed})
}

func (s *Server) handleInvalidatePattern(w http.ResponseWriter, r *http.Request) {
	pattern := r.URL.Query().Get("pattern")
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "missing_pattern", "pattern query parameter is required")
		return
	}
	if _, err := filepath.Match(pattern, ""); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_pattern", err.Error())
		return
	}
	s.respond(w, r, http.StatusOK, removedCount{Removed: s.cache.InvalidatePattern(pattern)})
}

func (s *Server) handleInvalidateController(w http.ResponseWriter, r *http.Request) {
	id, ok := controllerIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_controller_id", "controller id must be a positive integer")
		return
	}
	if _, err := s.registry.Get(id); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.respond(w, r, http.StatusOK, removedCount{Removed: s.gateway.InvalidateController(id)})
}
