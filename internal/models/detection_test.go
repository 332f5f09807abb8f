package models

import "testing"

func TestMeanConfidence(t *testing.T) {
	if got := MeanConfidence(nil); got != 0 {
		t.Fatalf("expected 0 for no detections, got %v", got)
	}
	if got := MeanConfidence([]Detection{}); got != 0 {
		t.Fatalf("expected 0 for empty detections, got %v", got)
	}

	detections := []Detection{
		{Confidence: 90},
		{Confidence: 50},
		{Confidence: 70},
	}
	if got := MeanConfidence(detections); got != 70 {
		t.Fatalf("expected mean 70, got %v", got)
	}
}

func TestClampConfidence(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{-10, 0},
		{0, 0},
		{55.5, 55.5},
		{100, 100},
		{250, 100},
	}
	for _, tc := range cases {
		if got := ClampConfidence(tc.in); got != tc.want {
			t.Fatalf("ClampConfidence(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
