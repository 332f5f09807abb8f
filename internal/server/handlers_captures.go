package server

import (
	"net/http"
	"strings"

	"signlens/internal/api"
	"signlens/internal/store"
)

func (s *Server) handleCreateCapture(w http.ResponseWriter, r *http.Request) {
	var req api.CaptureCreateRequest
	if !s.decodeJSONReq(w, r, &req) {
		return
	}

	resp, err := s.service.Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleListCaptures(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCaptureFilter(r)
	if err != nil {
		s.writeErrorReq(w, r, http.StatusBadRequest, err)
		return
	}

	responses, err := s.service.List(r.Context(), filter)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, responses)
}

func (s *Server) handleGetCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathCaptureID(w, r)
	if !ok {
		return
	}

	resp, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathCaptureID(w, r)
	if !ok {
		return
	}

	resp, err := s.service.Delete(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClearCaptures(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Clear(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCaptureStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.service.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSpeakCapture(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathCaptureID(w, r)
	if !ok {
		return
	}

	if !s.acquireLimiter(s.speakLimiter, w, r, "speak") {
		return
	}
	defer s.releaseLimiter(s.speakLimiter)

	resp, err := s.service.Speak(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if !s.acquireLimiter(s.exportLimiter, w, r, "export") {
		return
	}
	defer s.releaseLimiter(s.exportLimiter)

	data, err := s.service.Export(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(data)); err != nil {
		s.log().Error("write export response", "error", err)
	}
}

func parseCaptureFilter(r *http.Request) (ListFilter, error) {
	var filter ListFilter

	query := r.URL.Query()
	filter.Search = strings.TrimSpace(query.Get("search"))
	filter.Start = strings.TrimSpace(query.Get("start"))
	filter.End = strings.TrimSpace(query.Get("end"))

	minConfidence, err := queryFloat(r, "min_confidence")
	if err != nil {
		return filter, err
	}
	filter.MinConfidence = minConfidence

	limit, err := queryInt(r, "limit")
	if err != nil {
		return filter, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return filter, err
	}
	filter.Options = store.ListOptions{
		Limit:   limit,
		Offset:  offset,
		OrderBy: strings.TrimSpace(query.Get("order_by")),
		Order:   strings.TrimSpace(query.Get("order")),
	}

	return filter, nil
}
