package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"signlens/internal/models"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	httpTimeoutEnvKey  = "SIGNLENS_OCR_TIMEOUT"
)

// Client talks to the remote signboard detection/OCR backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// Result is the detection response for one uploaded image. Backends either
// return per-signboard detections or the simpler scalar text/confidence shape;
// a nil Detections slice means the scalar fields are authoritative.
type Result struct {
	OriginalImage string             `json:"original_image"`
	BoxedImageURL string             `json:"boxed_image_url"`
	Detections    []models.Detection `json:"detections"`

	Text        string  `json:"text"`
	Confidence  float64 `json:"confidence"`
	Orientation int     `json:"orientation"`
	Language    string  `json:"language"`
}

// CombinedText concatenates per-detection extracted text in detection order,
// or returns the scalar text when the backend sent no detections array.
func (r Result) CombinedText() string {
	if r.Detections == nil {
		return strings.TrimSpace(r.Text)
	}
	parts := make([]string, 0, len(r.Detections))
	for _, det := range r.Detections {
		text := strings.TrimSpace(det.ExtractedText)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n")
}

// MeanConfidence averages detection confidences. An empty detections array
// yields 0; a missing array falls back to the scalar confidence.
func (r Result) MeanConfidence() float64 {
	if r.Detections == nil {
		return r.Confidence
	}
	return models.MeanConfidence(r.Detections)
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeout()},
	}
}

// DetectSignboard uploads the image at path and returns the detection result.
func (c *Client) DetectSignboard(ctx context.Context, imagePath string) (Result, error) {
	var zero Result

	f, err := os.Open(imagePath)
	if err != nil {
		return zero, err
	}
	defer f.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image", filepath.Base(imagePath))
	if err != nil {
		return zero, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return zero, err
	}
	if err := writer.Close(); err != nil {
		return zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect-signboard", &body)
	if err != nil {
		return zero, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return zero, decodeError(resp)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return zero, fmt.Errorf("decode detection response: %w", err)
	}
	return result, nil
}

func decodeError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil && payload.Error != "" {
		return fmt.Errorf("ocr backend: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("ocr backend: status %d", resp.StatusCode)
}

func httpTimeout() time.Duration {
	raw := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if raw == "" {
		return defaultHTTPTimeout
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return defaultHTTPTimeout
	}
	return parsed
}
