package main

import (
	"fmt"
	"os"
	"strings"

	"signlens/internal/api"
	"signlens/internal/format"
	"signlens/internal/imagecache"
)

// output writes the payload with the selected formatter, or falls back to the
// plain human rendering when no format was requested.
func output(formatName string, payload any, plain func() error) error {
	if strings.TrimSpace(formatName) == "" {
		return plain()
	}
	formatter, err := format.ForName(formatName)
	if err != nil {
		return err
	}
	return formatter.Write(os.Stdout, payload)
}

func writePlain(formatStr string, args ...any) error {
	_, err := fmt.Fprintf(os.Stdout, formatStr, args...)
	return err
}

func writeCaptureList(captures []api.CaptureResponse) error {
	if len(captures) == 0 {
		return writePlain("no captures\n")
	}
	for _, capture := range captures {
		if err := writePlain("%s\n", formatCaptureLine(capture)); err != nil {
			return err
		}
	}
	return nil
}

func writeCaptureDetail(capture api.CaptureResponse) error {
	lines := []string{
		fmt.Sprintf("id: %d", capture.ID),
		fmt.Sprintf("timestamp: %s", capture.Timestamp),
		fmt.Sprintf("confidence: %.1f", capture.Confidence),
		fmt.Sprintf("language: %s", capture.Language),
		fmt.Sprintf("created_at: %s", capture.CreatedAt),
	}

	if capture.Orientation != 0 {
		lines = append(lines, fmt.Sprintf("orientation: %d", capture.Orientation))
	}
	if capture.ImageURI != "" {
		lines = append(lines, fmt.Sprintf("image: %s (exists: %t)", capture.ImageURI, capture.ImageExists))
	}
	if capture.ThumbnailURI != "" {
		lines = append(lines, fmt.Sprintf("thumbnail: %s (exists: %t)", capture.ThumbnailURI, capture.ThumbnailExists))
	}
	if capture.BoxedImageURL != "" {
		lines = append(lines, fmt.Sprintf("boxed_image: %s", capture.BoxedImageURL))
	}
	lines = append(lines, fmt.Sprintf("text: %s", capture.Text))

	return writePlain("%s\n", strings.Join(lines, "\n"))
}

func formatCaptureLine(capture api.CaptureResponse) string {
	text := strings.ReplaceAll(capture.Text, "\n", " ")
	if len(text) > 60 {
		text = text[:57] + "..."
	}
	if text == "" {
		text = "(no text)"
	}
	return fmt.Sprintf("#%d  %s  [%.0f%%]  %s", capture.ID, capture.Timestamp, capture.Confidence, text)
}

func writeCacheStats(stats api.CacheStatsResponse) error {
	lines := []string{
		fmt.Sprintf("size: %s (%d bytes)", stats.TotalSizeHuman, stats.TotalSize),
		fmt.Sprintf("budget: %s", imagecache.FormatBytes(stats.MaxSize)),
		fmt.Sprintf("used: %.1f%%", stats.PercentUsed),
		fmt.Sprintf("images: %d", stats.CaptureCount),
		fmt.Sprintf("thumbnails: %d", stats.ThumbnailCount),
	}
	return writePlain("%s\n", strings.Join(lines, "\n"))
}
