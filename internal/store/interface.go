package store

import (
	"context"

	"signlens/internal/models"
)

// CaptureStore is the structured-record abstraction consumed by the capture
// service. *Store implements it; tests may substitute fakes.
type CaptureStore interface {
	SaveCapture(ctx context.Context, in NewCapture) (int64, error)
	GetAllCaptures(ctx context.Context, opts ListOptions) ([]models.Capture, error)
	SearchCaptures(ctx context.Context, term string) ([]models.Capture, error)
	FilterByConfidence(ctx context.Context, minConfidence float64) ([]models.Capture, error)
	GetCapturesByDateRange(ctx context.Context, start, end string) ([]models.Capture, error)
	GetCaptureByID(ctx context.Context, id int64) (*models.Capture, error)
	DeleteCapture(ctx context.Context, id int64) error
	ClearAllCaptures(ctx context.Context) error
	GetStats(ctx context.Context) (Stats, error)
	ExportJSON(ctx context.Context) (string, error)
}
