package models

// Capture is one user-confirmed signboard reading event. Rows are immutable
// after insert; corrections are saved as new captures.
type Capture struct {
	ID            int64   `json:"id"`
	ImageURI      string  `json:"imageUri,omitempty"`
	ThumbnailURI  string  `json:"thumbnailUri,omitempty"`
	BoxedImageURL string  `json:"boxedImageUrl,omitempty"`
	Text          string  `json:"text"`
	Confidence    float64 `json:"confidence"`
	Timestamp     string  `json:"timestamp"`
	Language      string  `json:"language"`
	Orientation   int     `json:"orientation"`
	// Detections holds the serialized per-detection array exactly as it was
	// stored. The store never parses it; consumers decode on read.
	Detections string `json:"detections,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

const DefaultLanguage = "eng"
