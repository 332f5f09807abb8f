package server

import (
	"net/http"
)

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.scanLimiter, w, r, "scan") {
		return
	}
	defer s.releaseLimiter(s.scanLimiter)

	imagePath, cleanup, err := receiveUpload(r)
	if err != nil {
		s.writeErrorReq(w, r, httpStatusFromError(err), err)
		return
	}
	defer cleanup()

	resp, err := s.service.Scan(r.Context(), imagePath)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, resp)
}
