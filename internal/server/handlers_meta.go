package server

import (
	"net/http"

	"signlens/internal/api"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.InfoResponse{
		Version:   s.info.Version,
		DBPath:    s.info.DBPath,
		CacheDir:  s.info.CacheDir,
		OCRURL:    s.info.OCRURL,
		CacheSize: s.cache.Size(),
	})
}
