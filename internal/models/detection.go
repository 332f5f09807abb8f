package models

// Detection is one bounding-box region within a capture's source image.
type Detection struct {
	CroppedURL    string    `json:"cropped_url,omitempty"`
	ExtractedText string    `json:"extracted_text"`
	Confidence    float64   `json:"confidence"`
	BBox          []float64 `json:"bbox,omitempty"`
	Class         string    `json:"class,omitempty"`
}

// MeanConfidence averages per-detection confidences. An empty slice yields 0.
func MeanConfidence(detections []Detection) float64 {
	if len(detections) == 0 {
		return 0
	}
	var sum float64
	for _, det := range detections {
		sum += det.Confidence
	}
	return sum / float64(len(detections))
}

// ClampConfidence bounds a confidence value to the stored [0,100] range.
func ClampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
