package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check and info.
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/info", s.handleInfo)

	// Scan pipeline.
	mux.HandleFunc("POST /v1/scan", s.handleScan)

	// Captures collection.
	mux.HandleFunc("POST /v1/captures", s.handleCreateCapture)
	mux.HandleFunc("GET /v1/captures", s.handleListCaptures)
	mux.HandleFunc("DELETE /v1/captures", s.handleClearCaptures)
	mux.HandleFunc("GET /v1/captures/stats", s.handleCaptureStats)

	// Single capture.
	mux.HandleFunc("GET /v1/captures/{id}", s.handleGetCapture)
	mux.HandleFunc("DELETE /v1/captures/{id}", s.handleDeleteCapture)
	mux.HandleFunc("POST /v1/captures/{id}/speak", s.handleSpeakCapture)

	// Export.
	mux.HandleFunc("GET /v1/export", s.handleExport)

	// Image cache.
	mux.HandleFunc("GET /v1/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /v1/cache/cleanup", s.handleCacheCleanup)
	mux.HandleFunc("POST /v1/cache/clear", s.handleCacheClear)

	return mux
}
