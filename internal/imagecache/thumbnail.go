package imagecache

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	_ "image/png"

	"golang.org/x/image/draw"
)

// Thumbnail is an in-memory derived image; it is not persisted until the
// caller writes it into the thumbnails directory.
type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
}

// CreateThumbnail decodes the source image, scales it to the target width
// preserving aspect ratio, and re-encodes it as lossy JPEG. A width <= 0 uses
// the configured default.
func (c *Cache) CreateThumbnail(sourceURI string, width int) (Thumbnail, error) {
	var zero Thumbnail
	if width <= 0 {
		width = c.thumbWidth
	}

	f, err := os.Open(localPath(sourceURI))
	if err != nil {
		return zero, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return zero, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return zero, fmt.Errorf("empty source image")
	}
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: c.thumbQuality}); err != nil {
		return zero, fmt.Errorf("encode thumbnail: %w", err)
	}

	return Thumbnail{Data: buf.Bytes(), Width: width, Height: height}, nil
}
