package store

import (
	"context"
	"encoding/json"
)

// ExportJSON serializes the full unfiltered table to a JSON string. The
// detections field is carried as the already-serialized text it was stored
// with; this is a deliberate pass-through, not a re-encode.
func (s *Store) ExportJSON(ctx context.Context) (string, error) {
	captures, err := s.GetAllCaptures(ctx, ListOptions{})
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(captures, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
