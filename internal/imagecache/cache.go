package imagecache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"
)

// Cache owns the durable image and thumbnail files for captured signboards.
// Full images and thumbnails live in two sibling directories and are paired
// by a shared asset token.
type Cache struct {
	capturesDir   string
	thumbnailsDir string
	maxSize       int64
	thumbWidth    int
	thumbQuality  int
	logger        *slog.Logger

	mu        sync.Mutex
	lastToken int64
}

// Options tunes cache behavior. Zero values fall back to defaults.
type Options struct {
	MaxSizeBytes     int64
	ThumbnailWidth   int
	ThumbnailQuality int
	Logger           *slog.Logger
}

const (
	defaultMaxSizeBytes     = 100 * 1024 * 1024
	defaultThumbnailWidth   = 200
	defaultThumbnailQuality = 70
)

// SavedImage describes the durable artifacts produced by one SaveImage call.
// ThumbnailURI is empty when thumbnail generation failed after the full image
// was persisted; callers display the full image as its own thumbnail then.
type SavedImage struct {
	Token        string `json:"token"`
	Filename     string `json:"filename"`
	ImageURI     string `json:"imageUri"`
	ThumbnailURI string `json:"thumbnailUri,omitempty"`
	Size         int64  `json:"size"`
}

// Stats is a read-only aggregate view of cache usage.
type Stats struct {
	TotalSize      int64   `json:"totalSize"`
	CaptureCount   int     `json:"captureCount"`
	ThumbnailCount int     `json:"thumbnailCount"`
	PercentUsed    float64 `json:"percentUsed"`
	MaxSize        int64   `json:"maxSize"`
}

// CleanupResult reports one eviction pass.
type CleanupResult struct {
	EvictedCount   int   `json:"evictedCount"`
	ReclaimedBytes int64 `json:"reclaimedBytes"`
	RemainingBytes int64 `json:"remainingBytes"`
}

// New creates a cache over the two given directories. Call Init before use.
func New(capturesDir, thumbnailsDir string, opts Options) *Cache {
	if opts.MaxSizeBytes <= 0 {
		opts.MaxSizeBytes = defaultMaxSizeBytes
	}
	if opts.ThumbnailWidth <= 0 {
		opts.ThumbnailWidth = defaultThumbnailWidth
	}
	if opts.ThumbnailQuality <= 0 || opts.ThumbnailQuality > 100 {
		opts.ThumbnailQuality = defaultThumbnailQuality
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Cache{
		capturesDir:   capturesDir,
		thumbnailsDir: thumbnailsDir,
		maxSize:       opts.MaxSizeBytes,
		thumbWidth:    opts.ThumbnailWidth,
		thumbQuality:  opts.ThumbnailQuality,
		logger:        opts.Logger,
	}
}

// Init ensures both storage directories exist. Safe to call every start;
// nothing downstream can persist images if this fails.
func (c *Cache) Init() error {
	if c == nil {
		return fmt.Errorf("image cache is not configured")
	}
	if err := os.MkdirAll(c.capturesDir, 0o755); err != nil {
		return fmt.Errorf("create captures dir: %w", err)
	}
	if err := os.MkdirAll(c.thumbnailsDir, 0o755); err != nil {
		return fmt.Errorf("create thumbnails dir: %w", err)
	}
	return nil
}

// MaxSize returns the configured storage budget in bytes.
func (c *Cache) MaxSize() int64 {
	return c.maxSize
}

// nextToken returns a unique millisecond-timestamp token. Tokens are strictly
// increasing so two saves in the same millisecond cannot collide.
func (c *Cache) nextToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= c.lastToken {
		now = c.lastToken + 1
	}
	c.lastToken = now
	return strconv.FormatInt(now, 10)
}

// SaveImage copies the source image into durable storage and derives its
// thumbnail. The full-image copy is atomic (temp file + rename); a failure
// there aborts the call with no partial file. A thumbnail failure after the
// full image succeeded is logged and reported as a degraded result.
func (c *Cache) SaveImage(ctx context.Context, sourceURI string) (SavedImage, error) {
	var zero SavedImage
	if c == nil {
		return zero, fmt.Errorf("image cache is not configured")
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	source := localPath(sourceURI)
	if source == "" {
		return zero, fmt.Errorf("source uri is required")
	}

	token := c.nextToken()
	dst := c.imagePath(token)

	size, err := copyFileAtomic(source, dst)
	if err != nil {
		return zero, fmt.Errorf("save image: %w", err)
	}

	saved := SavedImage{
		Token:    token,
		Filename: captureFilename(token),
		ImageURI: dst,
		Size:     size,
	}

	thumb, err := c.CreateThumbnail(source, 0)
	if err != nil {
		c.logger.Warn("thumbnail generation failed, keeping full image only",
			"token", token, "error", err)
		return saved, nil
	}

	thumbDst := c.thumbnailPath(token)
	if err := writeFileAtomic(thumbDst, thumb.Data); err != nil {
		c.logger.Warn("thumbnail write failed, keeping full image only",
			"token", token, "error", err)
		return saved, nil
	}
	saved.ThumbnailURI = thumbDst

	return saved, nil
}

// DeleteImage removes whichever of the two references is non-empty. Missing
// files are not an error, and partial success never fails the call.
func (c *Cache) DeleteImage(ctx context.Context, imageURI, thumbnailURI string) {
	if c == nil || ctx.Err() != nil {
		return
	}
	for _, uri := range []string{imageURI, thumbnailURI} {
		if uri == "" {
			continue
		}
		if err := os.Remove(localPath(uri)); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("delete cached image", "uri", uri, "error", err)
		}
	}
}

// Size sums file sizes across both directories. A missing directory
// contributes zero; errors never propagate.
func (c *Cache) Size() int64 {
	if c == nil {
		return 0
	}
	return dirSize(c.capturesDir) + dirSize(c.thumbnailsDir)
}

// CleanupOldImages evicts the oldest full images (and their thumbnails in
// lock-step) until the projected cache size fits the budget. Individual
// deletion failures are logged and skipped; partial progress beats none.
// A maxSize <= 0 uses the configured budget.
func (c *Cache) CleanupOldImages(ctx context.Context, maxSize int64) (CleanupResult, error) {
	var result CleanupResult
	if c == nil {
		return result, fmt.Errorf("image cache is not configured")
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	if maxSize <= 0 {
		maxSize = c.maxSize
	}

	remaining := c.Size()
	result.RemainingBytes = remaining
	if remaining <= maxSize {
		return result, nil
	}

	entries, err := os.ReadDir(c.capturesDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return result, nil
		}
		return result, err
	}

	type evictable struct {
		token   string
		path    string
		size    int64
		modTime time.Time
	}
	candidates := make([]evictable, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		token, ok := tokenFromCaptureFilename(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, evictable{
			token:   token,
			path:    filepath.Join(c.capturesDir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].modTime.Before(candidates[j].modTime)
	})

	for _, candidate := range candidates {
		if remaining <= maxSize {
			break
		}

		if err := os.Remove(candidate.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("evict image", "path", candidate.path, "error", err)
			continue
		}
		remaining -= candidate.size
		result.ReclaimedBytes += candidate.size
		result.EvictedCount++

		thumbPath := c.thumbnailPath(candidate.token)
		if info, err := os.Stat(thumbPath); err == nil {
			if err := os.Remove(thumbPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				c.logger.Warn("evict thumbnail", "path", thumbPath, "error", err)
			} else {
				remaining -= info.Size()
				result.ReclaimedBytes += info.Size()
			}
		}
	}

	result.RemainingBytes = remaining
	c.logger.Info("cache cleanup complete",
		"evicted", result.EvictedCount,
		"reclaimed", FormatBytes(result.ReclaimedBytes),
		"remaining", FormatBytes(result.RemainingBytes))
	return result, nil
}

// ClearAll deletes both directories wholesale and recreates them empty,
// leaving the cache in the exact post-Init state.
func (c *Cache) ClearAll(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("image cache is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, dir := range []string{c.capturesDir, c.thumbnailsDir} {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clear %s: %w", dir, err)
		}
	}
	return c.Init()
}

// Exists probes whether a possibly-stale local reference still resolves.
func (c *Cache) Exists(uri string) bool {
	if c == nil || uri == "" {
		return false
	}
	info, err := os.Stat(localPath(uri))
	return err == nil && !info.IsDir()
}

// GetStats returns a zeroed view rather than an error on an empty or
// uninitialized cache; it feeds UI displays where a stale zero beats a crash.
func (c *Cache) GetStats() Stats {
	if c == nil {
		return Stats{}
	}
	stats := Stats{MaxSize: c.maxSize}
	stats.TotalSize = c.Size()
	stats.CaptureCount = dirFileCount(c.capturesDir)
	stats.ThumbnailCount = dirFileCount(c.thumbnailsDir)
	if c.maxSize > 0 {
		stats.PercentUsed = float64(stats.TotalSize) / float64(c.maxSize) * 100
	}
	return stats
}

func dirSize(dir string) int64 {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total
}

func dirFileCount(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}

// copyFileAtomic copies src into dstPath via a temp file and rename so a
// failed copy leaves no partial file behind.
func copyFileAtomic(src, dstPath string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".tmp-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	n, err := io.Copy(tmp, in)
	if err != nil {
		cleanup()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, err
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, err
	}
	return n, nil
}

func writeFileAtomic(dstPath string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dstPath); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
