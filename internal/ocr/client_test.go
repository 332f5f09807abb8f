package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"signlens/internal/models"
)

func TestDetectSignboard(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/detect-signboard" {
			http.NotFound(w, r)
			return
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			http.Error(w, `{"error":"image missing"}`, http.StatusBadRequest)
			return
		}
		file.Close()
		if header.Filename != "photo.jpg" {
			http.Error(w, `{"error":"wrong filename"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			OriginalImage: "photo.jpg",
			BoxedImageURL: "http://backend/boxed.jpg",
			Detections: []models.Detection{
				{ExtractedText: "OPEN", Confidence: 95, Class: "signboard", BBox: []float64{1, 2, 3, 4}},
			},
		})
	}))
	defer backend.Close()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(src, []byte("jpeg bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	client := NewClient(backend.URL)
	result, err := client.DetectSignboard(context.Background(), src)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result.BoxedImageURL != "http://backend/boxed.jpg" {
		t.Fatalf("unexpected boxed url %q", result.BoxedImageURL)
	}
	if len(result.Detections) != 1 || result.Detections[0].ExtractedText != "OPEN" {
		t.Fatalf("unexpected detections: %+v", result.Detections)
	}
}

func TestDetectSignboardBackendError(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "no image provided"})
	}))
	defer backend.Close()

	src := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	client := NewClient(backend.URL)
	if _, err := client.DetectSignboard(context.Background(), src); err == nil {
		t.Fatal("expected backend error")
	}
}

func TestDetectSignboardMissingFile(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	if _, err := client.DetectSignboard(context.Background(), filepath.Join(t.TempDir(), "absent.jpg")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCombinedText(t *testing.T) {
	result := Result{Detections: []models.Detection{
		{ExtractedText: "  STOP  "},
		{ExtractedText: ""},
		{ExtractedText: "AHEAD"},
	}}
	if got := result.CombinedText(); got != "STOP\n\nAHEAD" {
		t.Fatalf("unexpected combined text %q", got)
	}

	if got := (Result{}).CombinedText(); got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestMeanConfidence(t *testing.T) {
	result := Result{Detections: []models.Detection{
		{Confidence: 40},
		{Confidence: 80},
	}}
	if got := result.MeanConfidence(); got != 60 {
		t.Fatalf("expected 60, got %v", got)
	}
	if got := (Result{}).MeanConfidence(); got != 0 {
		t.Fatalf("expected 0 for no detections, got %v", got)
	}
	// An empty array means the backend saw nothing, so the scalar is ignored.
	if got := (Result{Detections: []models.Detection{}, Confidence: 42}).MeanConfidence(); got != 0 {
		t.Fatalf("expected 0 for empty detections, got %v", got)
	}
}

func TestScalarResultFallback(t *testing.T) {
	var result Result
	raw := `{"text":"EXIT","confidence":88,"orientation":90,"language":"jpn"}`
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got := result.CombinedText(); got != "EXIT" {
		t.Fatalf("expected scalar text, got %q", got)
	}
	if got := result.MeanConfidence(); got != 88 {
		t.Fatalf("expected scalar confidence, got %v", got)
	}
	if result.Orientation != 90 || result.Language != "jpn" {
		t.Fatalf("unexpected scalar fields: %+v", result)
	}
}
