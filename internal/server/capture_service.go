package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"signlens/internal/api"
	"signlens/internal/imagecache"
	"signlens/internal/models"
	"signlens/internal/ocr"
	"signlens/internal/speech"
	"signlens/internal/store"
)

// CaptureService centralizes capture validation, the scan pipeline and the
// coordination between the record store and the image cache. The store owns
// rows, the cache owns files; every cross-system operation lives here so the
// ordering rules are in one place.
type CaptureService struct {
	store  store.CaptureStore
	cache  *imagecache.Cache
	ocr    *ocr.Client
	speech speech.Engine
	logger *slog.Logger
}

// NewCaptureService constructs a CaptureService.
func NewCaptureService(captureStore store.CaptureStore, cache *imagecache.Cache, ocrClient *ocr.Client, speaker speech.Engine, logger *slog.Logger) *CaptureService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CaptureService{
		store:  captureStore,
		cache:  cache,
		ocr:    ocrClient,
		speech: speaker,
		logger: logger,
	}
}

// ListFilter selects which captures List returns. At most one of Search,
// MinConfidence and the date range may be set.
type ListFilter struct {
	Search        string
	MinConfidence *float64
	Start         string
	End           string
	Options       store.ListOptions
}

func (f ListFilter) validate() error {
	set := 0
	if strings.TrimSpace(f.Search) != "" {
		set++
	}
	if f.MinConfidence != nil {
		set++
	}
	if f.Start != "" || f.End != "" {
		set++
	}
	if set > 1 {
		return badRequestCode(fmt.Errorf("search, min_confidence and date range filters cannot be combined"), ErrCodeConflictingQuery)
	}
	if (f.Start == "") != (f.End == "") {
		return badRequestCode(fmt.Errorf("start and end must be given together"), ErrCodeInvalidTimeFilter)
	}
	return nil
}

// Scan runs the full pipeline for one photographed image: persist the image
// into the cache, send it to the detection backend, store the capture row,
// then trim the cache back under its budget. The image lands on disk before
// the row exists so a failure partway never leaves a row pointing at nothing;
// orphaned files are reclaimed by eviction.
func (s *CaptureService) Scan(ctx context.Context, imagePath string) (api.ScanResponse, error) {
	var resp api.ScanResponse

	if s.ocr == nil {
		return resp, internalErrorCode(fmt.Errorf("ocr backend is not configured"), ErrCodeNotConfigured)
	}

	saved, err := s.cache.SaveImage(ctx, imagePath)
	if err != nil {
		return resp, internalErrorCode(fmt.Errorf("cache image: %w", err), ErrCodeCacheFailure)
	}

	result, err := s.ocr.DetectSignboard(ctx, imagePath)
	if err != nil {
		s.cache.DeleteImage(ctx, saved.ImageURI, saved.ThumbnailURI)
		return resp, upstreamError(err)
	}

	text := result.CombinedText()
	confidence := models.ClampConfidence(result.MeanConfidence())

	detections := ""
	if len(result.Detections) > 0 {
		data, err := json.Marshal(result.Detections)
		if err != nil {
			s.cache.DeleteImage(ctx, saved.ImageURI, saved.ThumbnailURI)
			return resp, internalError(fmt.Errorf("serialize detections: %w", err))
		}
		detections = string(data)
	}

	language := strings.TrimSpace(result.Language)
	if language == "" {
		language = models.DefaultLanguage
	}

	id, err := s.store.SaveCapture(ctx, store.NewCapture{
		ImageURI:      saved.ImageURI,
		ThumbnailURI:  saved.ThumbnailURI,
		BoxedImageURL: result.BoxedImageURL,
		Text:          &text,
		Confidence:    confidence,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Language:      language,
		Orientation:   result.Orientation,
		Detections:    detections,
	})
	if err != nil {
		s.cache.DeleteImage(ctx, saved.ImageURI, saved.ThumbnailURI)
		return resp, storeFailure(err)
	}

	if _, err := s.cache.CleanupOldImages(ctx, s.cache.MaxSize()); err != nil {
		s.logger.Warn("post-scan cache cleanup failed", "error", err)
	}

	capture, err := s.store.GetCaptureByID(ctx, id)
	if err != nil {
		return resp, storeFailure(err)
	}
	if capture == nil {
		return resp, internalError(fmt.Errorf("capture %d vanished after insert", id))
	}

	resp.Capture = s.toResponse(*capture)
	resp.DetectionCount = len(result.Detections)
	return resp, nil
}

// Create stores a capture whose text was extracted elsewhere. When the
// request carries detections but no confidence, confidence is derived as
// their mean; no detections means confidence 0, not an error.
func (s *CaptureService) Create(ctx context.Context, req api.CaptureCreateRequest) (api.CaptureResponse, error) {
	var resp api.CaptureResponse

	if req.Text == nil {
		return resp, badRequestCode(fmt.Errorf("text is required"), ErrCodeMissingRequired)
	}
	if strings.TrimSpace(req.Timestamp) == "" {
		return resp, badRequestCode(fmt.Errorf("timestamp is required"), ErrCodeMissingRequired)
	}
	if _, err := parseFlexibleTime(req.Timestamp); err != nil {
		return resp, err
	}

	detections := ""
	var parsed []models.Detection
	if len(req.Detections) > 0 {
		if err := json.Unmarshal(req.Detections, &parsed); err != nil {
			return resp, badRequest(fmt.Errorf("detections must be an array of detection objects"))
		}
		detections = string(req.Detections)
	}

	confidence := models.MeanConfidence(parsed)
	if req.Confidence != nil {
		confidence = *req.Confidence
	}
	confidence = models.ClampConfidence(confidence)

	id, err := s.store.SaveCapture(ctx, store.NewCapture{
		ImageURI:      strings.TrimSpace(req.ImageURI),
		ThumbnailURI:  strings.TrimSpace(req.ThumbnailURI),
		BoxedImageURL: strings.TrimSpace(req.BoxedImageURL),
		Text:          req.Text,
		Confidence:    confidence,
		Timestamp:     req.Timestamp,
		Language:      strings.TrimSpace(req.Language),
		Orientation:   req.Orientation,
		Detections:    detections,
	})
	if err != nil {
		if store.IsValidation(err) {
			return resp, badRequest(err)
		}
		return resp, storeFailure(err)
	}

	return s.Get(ctx, id)
}

// List returns captures matching the filter, mapped to API responses.
func (s *CaptureService) List(ctx context.Context, filter ListFilter) ([]api.CaptureResponse, error) {
	if err := filter.validate(); err != nil {
		return nil, err
	}

	var captures []models.Capture
	var err error
	switch {
	case strings.TrimSpace(filter.Search) != "":
		captures, err = s.store.SearchCaptures(ctx, filter.Search)
	case filter.MinConfidence != nil:
		captures, err = s.store.FilterByConfidence(ctx, *filter.MinConfidence)
	case filter.Start != "":
		start, end, rangeErr := normalizeDateRange(filter.Start, filter.End)
		if rangeErr != nil {
			return nil, rangeErr
		}
		captures, err = s.store.GetCapturesByDateRange(ctx, start, end)
	default:
		captures, err = s.store.GetAllCaptures(ctx, filter.Options)
	}
	if err != nil {
		return nil, storeFailure(err)
	}

	responses := make([]api.CaptureResponse, 0, len(captures))
	for _, capture := range captures {
		responses = append(responses, s.toResponse(capture))
	}
	return responses, nil
}

// Get returns one capture or a not-found error.
func (s *CaptureService) Get(ctx context.Context, id int64) (api.CaptureResponse, error) {
	var resp api.CaptureResponse
	capture, err := s.store.GetCaptureByID(ctx, id)
	if err != nil {
		return resp, storeFailure(err)
	}
	if capture == nil {
		return resp, notFound(fmt.Errorf("capture %d not found", id))
	}
	return s.toResponse(*capture), nil
}

// Delete removes the capture row, then its cached files. The two phases are
// reported separately: a row delete that succeeds while blob cleanup leaves
// files behind is still a success, with a warning, because eviction will
// reclaim the orphans later.
func (s *CaptureService) Delete(ctx context.Context, id int64) (api.CaptureDeleteResponse, error) {
	var resp api.CaptureDeleteResponse
	resp.ID = id

	capture, err := s.store.GetCaptureByID(ctx, id)
	if err != nil {
		return resp, storeFailure(err)
	}
	if capture == nil {
		return resp, notFound(fmt.Errorf("capture %d not found", id))
	}

	if err := s.store.DeleteCapture(ctx, id); err != nil {
		return resp, storeFailure(err)
	}
	resp.Deleted = true

	resp.BlobsRemoved = s.removeBlobs(ctx, *capture)
	if !resp.BlobsRemoved {
		resp.BlobWarning = "cached image files could not be removed; they will be reclaimed by cleanup"
		s.logger.Warn("capture blobs left behind after delete", "id", id)
	}
	return resp, nil
}

// Clear wipes the whole capture history. Cached files are removed best-effort
// before the rows so nothing ends up unreferenced silently; files that
// survive are counted, not fatal.
func (s *CaptureService) Clear(ctx context.Context) (api.CaptureClearResponse, error) {
	var resp api.CaptureClearResponse

	captures, err := s.store.GetAllCaptures(ctx, store.ListOptions{})
	if err != nil {
		return resp, storeFailure(err)
	}

	for _, capture := range captures {
		if !s.removeBlobs(ctx, capture) {
			resp.BlobFailures++
		}
	}

	if err := s.store.ClearAllCaptures(ctx); err != nil {
		return resp, storeFailure(err)
	}
	resp.CapturesRemoved = int64(len(captures))
	return resp, nil
}

// Stats returns aggregate capture statistics.
func (s *CaptureService) Stats(ctx context.Context) (api.CaptureStatsResponse, error) {
	stats, err := s.store.GetStats(ctx)
	if err != nil {
		return api.CaptureStatsResponse{}, storeFailure(err)
	}
	return api.CaptureStatsResponse{
		TotalCaptures:     stats.TotalCaptures,
		AverageConfidence: stats.AverageConfidence,
		OldestCapture:     stats.OldestCapture,
		NewestCapture:     stats.NewestCapture,
	}, nil
}

// Export serializes the full history to indented JSON.
func (s *CaptureService) Export(ctx context.Context) (string, error) {
	data, err := s.store.ExportJSON(ctx)
	if err != nil {
		return "", internalErrorCode(err, ErrCodeExportFailed)
	}
	return data, nil
}

// Speak reads a capture's text aloud through the configured engine.
func (s *CaptureService) Speak(ctx context.Context, id int64) (api.SpeakResponse, error) {
	var resp api.SpeakResponse

	if s.speech == nil {
		return resp, internalErrorCode(fmt.Errorf("text-to-speech is not configured"), ErrCodeNotConfigured)
	}

	capture, err := s.store.GetCaptureByID(ctx, id)
	if err != nil {
		return resp, storeFailure(err)
	}
	if capture == nil {
		return resp, notFound(fmt.Errorf("capture %d not found", id))
	}

	text := strings.TrimSpace(capture.Text)
	if text == "" {
		return resp, badRequestCode(fmt.Errorf("capture %d has no text to speak", id), ErrCodeNoSpeechText)
	}

	if err := s.speech.Speak(ctx, text); err != nil {
		return resp, internalErrorCode(err, ErrCodeSpeechFailure)
	}

	resp.ID = id
	resp.Chars = len(text)
	return resp, nil
}

// CacheStats reports image cache usage.
func (s *CaptureService) CacheStats(ctx context.Context) (api.CacheStatsResponse, error) {
	stats := s.cache.GetStats()
	return api.CacheStatsResponse{
		TotalSize:      stats.TotalSize,
		TotalSizeHuman: imagecache.FormatBytes(stats.TotalSize),
		CaptureCount:   stats.CaptureCount,
		ThumbnailCount: stats.ThumbnailCount,
		MaxSize:        stats.MaxSize,
		PercentUsed:    stats.PercentUsed,
	}, nil
}

// CacheCleanup runs one eviction pass against the configured budget.
func (s *CaptureService) CacheCleanup(ctx context.Context) (api.CacheCleanupResponse, error) {
	result, err := s.cache.CleanupOldImages(ctx, s.cache.MaxSize())
	if err != nil {
		return api.CacheCleanupResponse{}, internalErrorCode(err, ErrCodeCacheFailure)
	}
	return api.CacheCleanupResponse{
		EvictedCount:   result.EvictedCount,
		ReclaimedBytes: result.ReclaimedBytes,
		RemainingBytes: result.RemainingBytes,
	}, nil
}

// CacheClear removes every cached file. Capture rows keep their URIs; reads
// report the files as missing afterwards.
func (s *CaptureService) CacheClear(ctx context.Context) (api.CacheCleanupResponse, error) {
	before := s.cache.GetStats()
	if err := s.cache.ClearAll(ctx); err != nil {
		return api.CacheCleanupResponse{}, internalErrorCode(err, ErrCodeCacheFailure)
	}
	return api.CacheCleanupResponse{
		EvictedCount:   before.CaptureCount + before.ThumbnailCount,
		ReclaimedBytes: before.TotalSize,
		RemainingBytes: s.cache.Size(),
	}, nil
}

// removeBlobs deletes a capture's cached files and reports whether both are
// gone afterwards. A capture with no cached files counts as success.
func (s *CaptureService) removeBlobs(ctx context.Context, capture models.Capture) bool {
	if capture.ImageURI == "" && capture.ThumbnailURI == "" {
		return true
	}
	s.cache.DeleteImage(ctx, capture.ImageURI, capture.ThumbnailURI)
	if capture.ImageURI != "" && s.cache.Exists(capture.ImageURI) {
		return false
	}
	if capture.ThumbnailURI != "" && s.cache.Exists(capture.ThumbnailURI) {
		return false
	}
	return true
}

func (s *CaptureService) toResponse(capture models.Capture) api.CaptureResponse {
	resp := api.CaptureResponse{
		ID:            capture.ID,
		ImageURI:      capture.ImageURI,
		ThumbnailURI:  capture.ThumbnailURI,
		BoxedImageURL: capture.BoxedImageURL,
		Text:          capture.Text,
		Confidence:    capture.Confidence,
		Timestamp:     capture.Timestamp,
		Language:      capture.Language,
		Orientation:   capture.Orientation,
		CreatedAt:     capture.CreatedAt,
	}
	if capture.Detections != "" && json.Valid([]byte(capture.Detections)) {
		resp.Detections = json.RawMessage(capture.Detections)
	}
	if capture.ImageURI != "" {
		resp.ImageExists = s.cache.Exists(capture.ImageURI)
	}
	if capture.ThumbnailURI != "" {
		resp.ThumbnailExists = s.cache.Exists(capture.ThumbnailURI)
	}
	return resp
}

// normalizeDateRange widens date-only bounds to whole days so a range like
// 2026-08-01..2026-08-02 includes captures taken during the end day.
func normalizeDateRange(start, end string) (string, string, error) {
	startT, err := parseFlexibleTime(start)
	if err != nil {
		return "", "", err
	}
	endT, err := parseFlexibleTime(end)
	if err != nil {
		return "", "", err
	}
	if len(strings.TrimSpace(end)) == len("2006-01-02") {
		endT = endT.AddDate(0, 0, 1).Add(-time.Second)
	}
	if endT.Before(startT) {
		return "", "", badRequestCode(fmt.Errorf("end must not be before start"), ErrCodeInvalidTimeFilter)
	}
	return startT.UTC().Format(time.RFC3339), endT.UTC().Format(time.RFC3339), nil
}
