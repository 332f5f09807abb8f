package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"signlens/internal/models"
)

const captureColumns = "id, image_uri, thumbnail_uri, boxed_image_url, text, confidence, timestamp, language, orientation, detections, created_at"

// ListOptions controls ordering and pagination for GetAllCaptures.
// Zero values mean: full table, timestamp descending.
type ListOptions struct {
	Limit   int
	Offset  int
	OrderBy string
	Order   string
}

// Stats is the aggregate view over the captures table.
type Stats struct {
	TotalCaptures     int64   `json:"totalCaptures"`
	AverageConfidence float64 `json:"averageConfidence"`
	OldestCapture     *string `json:"oldestCapture,omitempty"`
	NewestCapture     *string `json:"newestCapture,omitempty"`
}

// orderColumns whitelists sortable columns; anything else falls back to timestamp.
var orderColumns = map[string]string{
	"timestamp":  "timestamp",
	"confidence": "confidence",
	"created_at": "created_at",
	"id":         "id",
}

// NewCapture describes one row to insert. Text is a pointer so a missing
// field is distinguishable from a legitimately empty extraction; the store
// never coerces an absent value into a default.
type NewCapture struct {
	ImageURI      string
	ThumbnailURI  string
	BoxedImageURL string
	Text          *string
	Confidence    float64
	Timestamp     string
	Language      string
	Orientation   int
	Detections    string
}

// SaveCapture validates required fields and inserts a new row, returning the
// server-assigned id. Detections must already be serialized; the store treats
// the field as opaque text.
func (s *Store) SaveCapture(ctx context.Context, in NewCapture) (int64, error) {
	if in.Text == nil {
		return 0, validationError("text")
	}
	if strings.TrimSpace(in.Timestamp) == "" {
		return 0, validationError("timestamp")
	}

	language := in.Language
	if language == "" {
		language = models.DefaultLanguage
	}
	createdAt := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO captures (
			image_uri, thumbnail_uri, boxed_image_url, text, confidence, timestamp, language, orientation, detections, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullIfEmpty(in.ImageURI),
		nullIfEmpty(in.ThumbnailURI),
		nullIfEmpty(in.BoxedImageURL),
		*in.Text,
		in.Confidence,
		in.Timestamp,
		language,
		in.Orientation,
		nullIfEmpty(in.Detections),
		createdAt,
	)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// GetAllCaptures returns rows honoring ordering and pagination. Ordering is
// stable: equal sort keys break ties by ascending id.
func (s *Store) GetAllCaptures(ctx context.Context, opts ListOptions) ([]models.Capture, error) {
	column, ok := orderColumns[opts.OrderBy]
	if !ok {
		column = "timestamp"
	}
	direction := "DESC"
	if strings.EqualFold(opts.Order, "ASC") {
		direction = "ASC"
	}

	query := fmt.Sprintf("SELECT %s FROM captures ORDER BY %s %s, id ASC", captureColumns, column, direction)
	args := []any{}
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		if opts.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, opts.Offset)
	}

	return s.queryCaptures(ctx, query, args...)
}

// SearchCaptures returns captures whose text contains the term,
// case-insensitively, newest first.
func (s *Store) SearchCaptures(ctx context.Context, term string) ([]models.Capture, error) {
	if strings.TrimSpace(term) == "" {
		return s.GetAllCaptures(ctx, ListOptions{})
	}
	pattern := "%" + escapeLike(term) + "%"
	query := fmt.Sprintf(
		"SELECT %s FROM captures WHERE text LIKE ? ESCAPE '\\' COLLATE NOCASE ORDER BY timestamp DESC, id ASC",
		captureColumns)
	return s.queryCaptures(ctx, query, pattern)
}

// FilterByConfidence returns captures with confidence >= min, newest first.
func (s *Store) FilterByConfidence(ctx context.Context, minConfidence float64) ([]models.Capture, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM captures WHERE confidence >= ? ORDER BY timestamp DESC, id ASC",
		captureColumns)
	return s.queryCaptures(ctx, query, minConfidence)
}

// GetCapturesByDateRange returns captures with timestamp in [start, end]
// inclusive, compared as ISO-8601 strings, newest first.
func (s *Store) GetCapturesByDateRange(ctx context.Context, start, end string) ([]models.Capture, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM captures WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp DESC, id ASC",
		captureColumns)
	return s.queryCaptures(ctx, query, start, end)
}

// GetCaptureByID returns the capture or nil when absent; it never errors on
// a missing row.
func (s *Store) GetCaptureByID(ctx context.Context, id int64) (*models.Capture, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM captures WHERE id = ?", captureColumns), id)
	return scanCapture(row)
}

// DeleteCapture removes the row. Deleting a nonexistent id is a no-op.
// Blob cleanup is the caller's concern; the store only owns the row.
func (s *Store) DeleteCapture(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM captures WHERE id = ?", id)
	return err
}

// ClearAllCaptures truncates the table.
func (s *Store) ClearAllCaptures(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM captures"); err != nil {
		return err
	}
	// Reset the rowid sequence so a cleared store matches a fresh one.
	_, err := s.db.ExecContext(ctx, "DELETE FROM sqlite_sequence WHERE name = 'captures'")
	if err != nil && !strings.Contains(err.Error(), "no such table") {
		return err
	}
	return nil
}

// GetStats returns aggregate statistics. On an empty table the average is 0
// and the timestamp extremes are nil.
func (s *Store) GetStats(ctx context.Context) (Stats, error) {
	var stats Stats
	var avg sql.NullFloat64
	var oldest, newest sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(confidence), MIN(timestamp), MAX(timestamp) FROM captures
	`).Scan(&stats.TotalCaptures, &avg, &oldest, &newest)
	if err != nil {
		return stats, err
	}

	if avg.Valid {
		stats.AverageConfidence = avg.Float64
	}
	if oldest.Valid {
		stats.OldestCapture = &oldest.String
	}
	if newest.Valid {
		stats.NewestCapture = &newest.String
	}
	return stats, nil
}

func (s *Store) queryCaptures(ctx context.Context, query string, args ...any) ([]models.Capture, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	captures := []models.Capture{}
	for rows.Next() {
		capture, err := scanCapture(rows)
		if err != nil {
			return nil, err
		}
		if capture == nil {
			continue
		}
		captures = append(captures, *capture)
	}
	return captures, rows.Err()
}

func scanCapture(scanner interface {
	Scan(dest ...any) error
}) (*models.Capture, error) {
	var capture models.Capture
	var imageURI, thumbnailURI, boxedImageURL, detections sql.NullString

	err := scanner.Scan(
		&capture.ID,
		&imageURI,
		&thumbnailURI,
		&boxedImageURL,
		&capture.Text,
		&capture.Confidence,
		&capture.Timestamp,
		&capture.Language,
		&capture.Orientation,
		&detections,
		&capture.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	capture.ImageURI = imageURI.String
	capture.ThumbnailURI = thumbnailURI.String
	capture.BoxedImageURL = boxedImageURL.String
	capture.Detections = detections.String

	return &capture, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
