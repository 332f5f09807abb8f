package api

import "encoding/json"

// ErrorResponse is the error payload returned by the HTTP API.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// InfoResponse describes the running server.
type InfoResponse struct {
	Version   string `json:"version"`
	DBPath    string `json:"db_path"`
	CacheDir  string `json:"cache_dir"`
	OCRURL    string `json:"ocr_url"`
	CacheSize int64  `json:"cache_size"`
}

// CaptureCreateRequest creates a capture from already-extracted text. Text and
// Confidence are pointers so an absent field is distinguishable from a zero
// value; an empty extraction is a legitimate capture.
type CaptureCreateRequest struct {
	ImageURI      string          `json:"imageUri,omitempty"`
	ThumbnailURI  string          `json:"thumbnailUri,omitempty"`
	BoxedImageURL string          `json:"boxedImageUrl,omitempty"`
	Text          *string         `json:"text"`
	Confidence    *float64        `json:"confidence,omitempty"`
	Timestamp     string          `json:"timestamp"`
	Language      string          `json:"language,omitempty"`
	Orientation   int             `json:"orientation,omitempty"`
	Detections    json.RawMessage `json:"detections,omitempty"`
}

// CaptureResponse is the API view of one stored capture. The exists flags
// report whether the referenced cache files are still on disk; eviction can
// outlive the database row.
type CaptureResponse struct {
	ID              int64           `json:"id"`
	ImageURI        string          `json:"imageUri,omitempty"`
	ThumbnailURI    string          `json:"thumbnailUri,omitempty"`
	BoxedImageURL   string          `json:"boxedImageUrl,omitempty"`
	Text            string          `json:"text"`
	Confidence      float64         `json:"confidence"`
	Timestamp       string          `json:"timestamp"`
	Language        string          `json:"language"`
	Orientation     int             `json:"orientation"`
	Detections      json.RawMessage `json:"detections,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	ImageExists     bool            `json:"imageExists"`
	ThumbnailExists bool            `json:"thumbnailExists"`
}

// ScanResponse is returned by the scan endpoint: the saved capture plus the
// raw detection count for quick feedback.
type ScanResponse struct {
	Capture        CaptureResponse `json:"capture"`
	DetectionCount int             `json:"detectionCount"`
}

// CaptureDeleteResponse reports both phases of a delete: the database row and
// the cached image files are separate systems and can fail independently.
type CaptureDeleteResponse struct {
	ID           int64  `json:"id"`
	Deleted      bool   `json:"deleted"`
	BlobsRemoved bool   `json:"blobsRemoved"`
	BlobWarning  string `json:"blobWarning,omitempty"`
}

// CaptureClearResponse reports a full history wipe.
type CaptureClearResponse struct {
	CapturesRemoved int64 `json:"capturesRemoved"`
	BlobFailures    int   `json:"blobFailures"`
}

// CaptureStatsResponse mirrors the aggregate capture statistics.
type CaptureStatsResponse struct {
	TotalCaptures     int64   `json:"totalCaptures"`
	AverageConfidence float64 `json:"averageConfidence"`
	OldestCapture     *string `json:"oldestCapture,omitempty"`
	NewestCapture     *string `json:"newestCapture,omitempty"`
}

// CacheStatsResponse reports image cache disk usage.
type CacheStatsResponse struct {
	TotalSize      int64   `json:"totalSize"`
	TotalSizeHuman string  `json:"totalSizeHuman"`
	CaptureCount   int     `json:"captureCount"`
	ThumbnailCount int     `json:"thumbnailCount"`
	MaxSize        int64   `json:"maxSize"`
	PercentUsed    float64 `json:"percentUsed"`
}

// CacheCleanupResponse reports one eviction pass.
type CacheCleanupResponse struct {
	EvictedCount   int   `json:"evictedCount"`
	ReclaimedBytes int64 `json:"reclaimedBytes"`
	RemainingBytes int64 `json:"remainingBytes"`
}

// SpeakResponse confirms a capture was spoken aloud.
type SpeakResponse struct {
	ID    int64 `json:"id"`
	Chars int   `json:"chars"`
}
