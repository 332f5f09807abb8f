package server

import (
	"net/http"
)

func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.CacheStats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheCleanup(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.CacheCleanup(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.CacheClear(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}
