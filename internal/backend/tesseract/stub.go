//go:build !cgo

// Package tesseract reads label text with the Tesseract OCR engine.
package tesseract

import (
	"fmt"
	"image"

	"shelf-vision/internal/backend"
)

var errNoCgo = fmt.Errorf("%w: built without cgo, Tesseract disabled", backend.ErrUnavailable)

// Reader is unavailable without cgo.
type Reader struct{}

// New always fails with backend.ErrUnavailable.
func New(string) (*Reader, error) { return nil, errNoCgo }

func (*Reader) Name() string { return "tesseract" }

// Read always fails with backend.ErrUnavailable.
func (*Reader) Read(image.Image) ([]backend.TextFragment, error) { return nil, errNoCgo }
