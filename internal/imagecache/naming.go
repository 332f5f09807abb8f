package imagecache

import (
	"path/filepath"
	"strings"
)

const (
	capturePrefix = "capture_"
	thumbPrefix   = "thumb_"
	jpegExt       = ".jpg"
)

// captureFilename and thumbFilename derive both artifact names from one asset
// token, so a full-image/thumbnail pair is correlated without ever parsing or
// rewriting the other artifact's name.
func captureFilename(token string) string {
	return capturePrefix + token + jpegExt
}

func thumbFilename(token string) string {
	return thumbPrefix + token + jpegExt
}

func (c *Cache) imagePath(token string) string {
	return filepath.Join(c.capturesDir, captureFilename(token))
}

func (c *Cache) thumbnailPath(token string) string {
	return filepath.Join(c.thumbnailsDir, thumbFilename(token))
}

// tokenFromCaptureFilename recovers the asset token from a file found in the
// captures directory. Files that don't follow the naming scheme yield ok=false.
func tokenFromCaptureFilename(name string) (string, bool) {
	if !strings.HasPrefix(name, capturePrefix) || !strings.HasSuffix(name, jpegExt) {
		return "", false
	}
	token := strings.TrimSuffix(strings.TrimPrefix(name, capturePrefix), jpegExt)
	if token == "" {
		return "", false
	}
	return token, true
}

// localPath converts a file:// URI into a filesystem path. Plain paths pass
// through unchanged.
func localPath(uri string) string {
	return strings.TrimPrefix(uri, "file://")
}
