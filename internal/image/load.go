// Package image provides raster decoding and owned sub-image crops for the
// recognition pipeline.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"

	"shelf-vision/pkg/geometry"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when input bytes are not a decodable raster image.
var ErrDecode = errors.New("image decode failed")

// Decode decodes raw image bytes in any registered raster format
// (JPEG, PNG, GIF, BMP, TIFF, WebP) into an RGBA image anchored at (0,0).
func Decode(data []byte) (*image.RGBA, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrDecode)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: %s image has zero size", ErrDecode, format)
	}
	return ToRGBA(img), nil
}

// Load reads and decodes an image file.
func Load(path string) (*image.RGBA, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ToRGBA returns img as an RGBA image whose bounds start at (0,0). The
// result never aliases the input's pixel buffer.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return dst
}

// Crop copies the pixels under box (clamped to the image bounds) into a new
// RGBA image. Returns nil when img is empty or the clamped region has no area.
func Crop(img image.Image, box geometry.Box) *image.RGBA {
	if Empty(img) {
		return nil
	}
	bounds := img.Bounds()
	r := box.Clamp(bounds).Rect().Intersect(bounds)
	if r.Empty() {
		return nil
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Copy(dst, image.Point{}, img, r, draw.Src, nil)
	return dst
}

// Empty reports whether img is nil or has no pixels.
func Empty(img image.Image) bool {
	if img == nil {
		return true
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba == nil {
		return true
	}
	return img.Bounds().Empty()
}

// WritePNG encodes img as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// Solid returns a w×h image filled with c. Used for synthetic test scenes.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}
