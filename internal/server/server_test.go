package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"signlens/internal/api"
	"signlens/internal/imagecache"
	"signlens/internal/models"
	"signlens/internal/ocr"
	"signlens/internal/speech"
	"signlens/internal/store"
)

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *store.Store
	cache   *imagecache.Cache
}

func newTestEnv(t *testing.T, ocrClient *ocr.Client, speaker speech.Engine) *testEnv {
	t.Helper()

	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cache := imagecache.New(filepath.Join(dir, "captures"), filepath.Join(dir, "thumbnails"), imagecache.Options{
		ThumbnailWidth: 40,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := cache.Init(); err != nil {
		t.Fatalf("init cache: %v", err)
	}

	srv := New("127.0.0.1:0", Deps{
		Store:  st,
		Cache:  cache,
		OCR:    ocrClient,
		Speech: speaker,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Info:   Info{Version: "test", DBPath: filepath.Join(dir, "test.db")},
	})

	return &testEnv{server: srv, handler: srv.routes(), store: st, cache: cache}
}

func (e *testEnv) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func createCapture(t *testing.T, env *testEnv, req api.CaptureCreateRequest) api.CaptureResponse {
	t.Helper()
	rec := env.request(t, http.MethodPost, "/v1/captures", req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create capture: status %d body %s", rec.Code, rec.Body.String())
	}
	return decodeBody[api.CaptureResponse](t, rec)
}

func TestHealthAndInfo(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.request(t, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/v1/info", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("info: status %d", rec.Code)
	}
	info := decodeBody[api.InfoResponse](t, rec)
	if info.Version != "test" {
		t.Fatalf("expected version test, got %q", info.Version)
	}
}

func TestCreateCaptureValidation(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	rec := env.request(t, http.MethodPost, "/v1/captures", api.CaptureCreateRequest{Timestamp: "2026-08-29T10:00:00Z"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing text: status %d", rec.Code)
	}
	errResp := decodeBody[api.ErrorResponse](t, rec)
	if errResp.ErrorCode != ErrCodeMissingRequired {
		t.Fatalf("expected error code %d, got %d", ErrCodeMissingRequired, errResp.ErrorCode)
	}

	rec = env.request(t, http.MethodPost, "/v1/captures", api.CaptureCreateRequest{Text: strPtr("hi")})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing timestamp: status %d", rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/v1/captures", api.CaptureCreateRequest{
		Text:       strPtr("hi"),
		Timestamp:  "2026-08-29T10:00:00Z",
		Detections: json.RawMessage(`{"not":"an array"}`),
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad detections: status %d", rec.Code)
	}
}

func TestCreateCaptureDerivesConfidence(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	created := createCapture(t, env, api.CaptureCreateRequest{
		Text:      strPtr("EXIT"),
		Timestamp: "2026-08-29T10:00:00Z",
		Detections: json.RawMessage(
			`[{"extracted_text":"EXIT","confidence":80},{"extracted_text":"exit","confidence":60}]`),
	})
	if created.Confidence != 70 {
		t.Fatalf("expected mean confidence 70, got %v", created.Confidence)
	}
	if created.Language != models.DefaultLanguage {
		t.Fatalf("expected default language, got %q", created.Language)
	}

	// No detections and no explicit value means 0, not an error.
	zero := createCapture(t, env, api.CaptureCreateRequest{
		Text:      strPtr(""),
		Timestamp: "2026-08-29T10:01:00Z",
	})
	if zero.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %v", zero.Confidence)
	}

	// Explicit values win over derivation and are clamped.
	clamped := createCapture(t, env, api.CaptureCreateRequest{
		Text:       strPtr("x"),
		Timestamp:  "2026-08-29T10:02:00Z",
		Confidence: floatPtr(250),
	})
	if clamped.Confidence != 100 {
		t.Fatalf("expected clamp to 100, got %v", clamped.Confidence)
	}
}

func TestGetCapture(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	created := createCapture(t, env, api.CaptureCreateRequest{
		Text:      strPtr("hello"),
		Timestamp: "2026-08-29T10:00:00Z",
	})

	rec := env.request(t, http.MethodGet, "/v1/captures/"+itoa(created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status %d", rec.Code)
	}
	got := decodeBody[api.CaptureResponse](t, rec)
	if got.Text != "hello" {
		t.Fatalf("expected text hello, got %q", got.Text)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing capture: status %d", rec.Code)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", rec.Code)
	}
}

func TestListCapturesFilters(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	createCapture(t, env, api.CaptureCreateRequest{
		Text: strPtr("Exit left"), Timestamp: "2026-08-01T10:00:00Z", Confidence: floatPtr(30)})
	createCapture(t, env, api.CaptureCreateRequest{
		Text: strPtr("No parking"), Timestamp: "2026-08-02T10:00:00Z", Confidence: floatPtr(80)})

	rec := env.request(t, http.MethodGet, "/v1/captures", nil)
	all := decodeBody[[]api.CaptureResponse](t, rec)
	if len(all) != 2 || all[0].Text != "No parking" {
		t.Fatalf("expected newest-first list, got %+v", all)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures?search=exit", nil)
	found := decodeBody[[]api.CaptureResponse](t, rec)
	if len(found) != 1 || found[0].Text != "Exit left" {
		t.Fatalf("unexpected search result: %+v", found)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures?min_confidence=50", nil)
	confident := decodeBody[[]api.CaptureResponse](t, rec)
	if len(confident) != 1 || confident[0].Text != "No parking" {
		t.Fatalf("unexpected confidence filter result: %+v", confident)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures?start=2026-08-02&end=2026-08-02", nil)
	ranged := decodeBody[[]api.CaptureResponse](t, rec)
	if len(ranged) != 1 || ranged[0].Text != "No parking" {
		t.Fatalf("unexpected range result: %+v", ranged)
	}

	// Filters are mutually exclusive.
	rec = env.request(t, http.MethodGet, "/v1/captures?search=exit&min_confidence=50", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("combined filters: status %d", rec.Code)
	}

	// Half a date range is rejected.
	rec = env.request(t, http.MethodGet, "/v1/captures?start=2026-08-02", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("half range: status %d", rec.Code)
	}
}

func TestDeleteCaptureTwoPhase(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	writeTestJPEG(t, src)
	saved, err := env.cache.SaveImage(ctx, src)
	if err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	created := createCapture(t, env, api.CaptureCreateRequest{
		ImageURI:     saved.ImageURI,
		ThumbnailURI: saved.ThumbnailURI,
		Text:         strPtr("doomed"),
		Timestamp:    "2026-08-29T10:00:00Z",
	})

	rec := env.request(t, http.MethodDelete, "/v1/captures/"+itoa(created.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.CaptureDeleteResponse](t, rec)
	if !resp.Deleted || !resp.BlobsRemoved {
		t.Fatalf("expected both phases to succeed, got %+v", resp)
	}
	if env.cache.Exists(saved.ImageURI) || env.cache.Exists(saved.ThumbnailURI) {
		t.Fatal("expected cached files removed")
	}

	rec = env.request(t, http.MethodDelete, "/v1/captures/"+itoa(created.ID), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d", rec.Code)
	}
}

func TestClearCaptures(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	createCapture(t, env, api.CaptureCreateRequest{Text: strPtr("a"), Timestamp: "2026-08-01T10:00:00Z"})
	createCapture(t, env, api.CaptureCreateRequest{Text: strPtr("b"), Timestamp: "2026-08-02T10:00:00Z"})

	rec := env.request(t, http.MethodDelete, "/v1/captures", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("clear: status %d", rec.Code)
	}
	resp := decodeBody[api.CaptureClearResponse](t, rec)
	if resp.CapturesRemoved != 2 || resp.BlobFailures != 0 {
		t.Fatalf("unexpected clear result: %+v", resp)
	}

	rec = env.request(t, http.MethodGet, "/v1/captures", nil)
	remaining := decodeBody[[]api.CaptureResponse](t, rec)
	if len(remaining) != 0 {
		t.Fatalf("expected empty history, got %d", len(remaining))
	}
}

func TestCaptureStatsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	createCapture(t, env, api.CaptureCreateRequest{Text: strPtr("a"), Timestamp: "2026-08-01T10:00:00Z", Confidence: floatPtr(40)})
	createCapture(t, env, api.CaptureCreateRequest{Text: strPtr("b"), Timestamp: "2026-08-02T10:00:00Z", Confidence: floatPtr(60)})

	rec := env.request(t, http.MethodGet, "/v1/captures/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats: status %d", rec.Code)
	}
	stats := decodeBody[api.CaptureStatsResponse](t, rec)
	if stats.TotalCaptures != 2 || stats.AverageConfidence != 50 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestExportEndpoint(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	createCapture(t, env, api.CaptureCreateRequest{Text: strPtr("kept"), Timestamp: "2026-08-01T10:00:00Z"})

	rec := env.request(t, http.MethodGet, "/v1/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("export: status %d", rec.Code)
	}
	var captures []models.Capture
	if err := json.Unmarshal(rec.Body.Bytes(), &captures); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(captures) != 1 || captures[0].Text != "kept" {
		t.Fatalf("unexpected export: %+v", captures)
	}
}

func TestScanPipeline(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect-signboard" {
			http.NotFound(w, r)
			return
		}
		if _, _, err := r.FormFile("image"); err != nil {
			http.Error(w, `{"error":"no image"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"original_image":  "upload.jpg",
			"boxed_image_url": "http://backend/boxed.jpg",
			"detections": []map[string]any{
				{"extracted_text": "STOP", "confidence": 90, "class": "signboard"},
				{"extracted_text": "AHEAD", "confidence": 70, "class": "signboard"},
			},
		})
	}))
	defer backend.Close()

	env := newTestEnv(t, ocr.NewClient(backend.URL), nil)

	src := filepath.Join(t.TempDir(), "photo.jpg")
	writeTestJPEG(t, src)

	rec := uploadScan(t, env, src)
	if rec.Code != http.StatusCreated {
		t.Fatalf("scan: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.ScanResponse](t, rec)
	if resp.DetectionCount != 2 {
		t.Fatalf("expected 2 detections, got %d", resp.DetectionCount)
	}
	if resp.Capture.Text != "STOP\n\nAHEAD" {
		t.Fatalf("unexpected combined text %q", resp.Capture.Text)
	}
	if resp.Capture.Confidence != 80 {
		t.Fatalf("expected mean confidence 80, got %v", resp.Capture.Confidence)
	}
	if resp.Capture.BoxedImageURL != "http://backend/boxed.jpg" {
		t.Fatalf("unexpected boxed url %q", resp.Capture.BoxedImageURL)
	}
	if !resp.Capture.ImageExists {
		t.Fatal("expected cached image to exist")
	}
	if len(resp.Capture.Detections) == 0 {
		t.Fatal("expected detections to round trip")
	}
}

func TestScanCleansUpOnBackendFailure(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model exploded"}`, http.StatusInternalServerError)
	}))
	defer backend.Close()

	env := newTestEnv(t, ocr.NewClient(backend.URL), nil)

	src := filepath.Join(t.TempDir(), "photo.jpg")
	writeTestJPEG(t, src)

	rec := uploadScan(t, env, src)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if size := env.cache.Size(); size != 0 {
		t.Fatalf("expected cache cleaned up after failure, %d bytes left", size)
	}
}

type fakeSpeaker struct {
	spoken []string
	err    error
}

func (f *fakeSpeaker) Speak(ctx context.Context, text string) error {
	if f.err != nil {
		return f.err
	}
	f.spoken = append(f.spoken, text)
	return nil
}

func TestSpeakCapture(t *testing.T) {
	speaker := &fakeSpeaker{}
	env := newTestEnv(t, nil, speaker)

	created := createCapture(t, env, api.CaptureCreateRequest{
		Text:      strPtr("read me"),
		Timestamp: "2026-08-29T10:00:00Z",
	})

	rec := env.request(t, http.MethodPost, "/v1/captures/"+itoa(created.ID)+"/speak", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("speak: status %d body %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.SpeakResponse](t, rec)
	if resp.Chars != len("read me") {
		t.Fatalf("unexpected chars %d", resp.Chars)
	}
	if len(speaker.spoken) != 1 || speaker.spoken[0] != "read me" {
		t.Fatalf("unexpected spoken texts: %v", speaker.spoken)
	}

	// Captures without text cannot be spoken.
	empty := createCapture(t, env, api.CaptureCreateRequest{
		Text:      strPtr(""),
		Timestamp: "2026-08-29T10:01:00Z",
	})
	rec = env.request(t, http.MethodPost, "/v1/captures/"+itoa(empty.ID)+"/speak", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("speak empty: status %d", rec.Code)
	}
}

func TestCacheEndpoints(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	writeTestJPEG(t, src)
	if _, err := env.cache.SaveImage(ctx, src); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	rec := env.request(t, http.MethodGet, "/v1/cache/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cache stats: status %d", rec.Code)
	}
	stats := decodeBody[api.CacheStatsResponse](t, rec)
	if stats.CaptureCount != 1 || stats.TotalSize <= 0 {
		t.Fatalf("unexpected cache stats: %+v", stats)
	}

	rec = env.request(t, http.MethodPost, "/v1/cache/cleanup", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cache cleanup: status %d", rec.Code)
	}

	rec = env.request(t, http.MethodPost, "/v1/cache/clear", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cache clear: status %d", rec.Code)
	}
	cleared := decodeBody[api.CacheCleanupResponse](t, rec)
	if cleared.RemainingBytes != 0 {
		t.Fatalf("expected empty cache, got %d bytes", cleared.RemainingBytes)
	}
	if env.cache.Size() != 0 {
		t.Fatal("expected cache cleared")
	}
}

func uploadScan(t *testing.T, env *testEnv, imagePath string) *httptest.ResponseRecorder {
	t.Helper()

	f, err := os.Open(imagePath)
	if err != nil {
		t.Fatalf("open upload: %v", err)
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		t.Fatalf("copy upload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/scan", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func writeTestJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		for y := 0; y < 48; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 80, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create test image: %v", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 85}); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
