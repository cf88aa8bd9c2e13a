// Package imagemeta reads the intrinsic pixel size of an image without
// decoding its pixels.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"blockcanvas/internal/domain"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Size is an intrinsic image size in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Fallback is used when an image cannot be read.
var Fallback = Size{Width: domain.DefaultImageWidth, Height: domain.DefaultImageHeight}

// Read returns the size and format name of the image in r.
func Read(r io.Reader) (Size, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return Size{}, "", fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Size{}, format, fmt.Errorf("image reports size %dx%d", cfg.Width, cfg.Height)
	}
	return Size{Width: cfg.Width, Height: cfg.Height}, format, nil
}

// SizeOrFallback reads the size of data, returning Fallback and false
// when it is not a decodable image.
func SizeOrFallback(data []byte) (Size, bool) {
	s, _, err := Read(bytes.NewReader(data))
	if err != nil {
		return Fallback, false
	}
	return s, true
}
