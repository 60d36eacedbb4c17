package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Thumbnail decodes a PNG, JPEG or WebP cover and returns a JPEG no wider
// than maxWidth. Narrower images are re-encoded at their own size.
func Thumbnail(r io.Reader, maxWidth int) ([]byte, error) {
	src, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cover: %w", err)
	}

	b := src.Bounds()
	dst := src
	if maxWidth > 0 && b.Dx() > maxWidth {
		height := max(1, b.Dy()*maxWidth/b.Dx())
		scaled := image.NewRGBA(image.Rect(0, 0, maxWidth, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, b, draw.Src, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode %s thumbnail: %w", format, err)
	}
	return buf.Bytes(), nil
}
