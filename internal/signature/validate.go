package signature

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"
)

const (
	// MaxBytes bounds an uploaded signature image.
	MaxBytes = 2 << 20
	// MaxDimension bounds either side of a signature image.
	MaxDimension = 4096

	dataURLPrefix = "data:image/png;base64,"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// Validate checks that b is a complete, decodable PNG of sane dimensions
// with at least one pixel differing from the rest.
func Validate(b []byte) error {
	if len(b) == 0 {
		return ErrEmpty
	}
	if len(b) > MaxBytes {
		return fmt.Errorf("%w: larger than %d bytes", ErrInvalid, MaxBytes)
	}
	if !bytes.HasPrefix(b, pngMagic) {
		return fmt.Errorf("%w: not a PNG", ErrInvalid)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalid, cfg.Width, cfg.Height)
	}
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if blank(img) {
		return ErrEmpty
	}
	return nil
}

func blank(img image.Image) bool {
	b := img.Bounds()
	r0, g0, b0, a0 := img.At(b.Min.X, b.Min.Y).RGBA()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			if r != r0 || g != g0 || bl != b0 || a != a0 {
				return false
			}
		}
	}
	return true
}

// DecodeDataURL extracts the PNG bytes from a `data:image/png;base64,...`
// URL as produced by a browser canvas.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEmpty
	}
	if !strings.HasPrefix(s, dataURLPrefix) {
		return nil, fmt.Errorf("%w: expected %s data URL", ErrInvalid, "image/png")
	}
	raw, err := base64.StdEncoding.DecodeString(s[len(dataURLPrefix):])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return raw, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(b []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(b)
}
