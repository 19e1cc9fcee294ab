//go:build cgo

// Package tesseract reads label text with the Tesseract OCR engine.
package tesseract

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/backend/opencv"

	"github.com/otiai10/gosseract/v2"
)

// Reader wraps one Tesseract client. The client is stateful, so calls are
// serialised.
type Reader struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// New creates a Reader for the given Tesseract language code.
func New(language string) (*Reader, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set OCR language: %v", backend.ErrUnavailable, err)
	}
	// Labels are sparse words scattered over artwork.
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to set PSM: %v", backend.ErrUnavailable, err)
	}
	return &Reader{client: client}, nil
}

func (r *Reader) Name() string { return "tesseract" }

// Read implements backend.TextReader. Word confidences are reported on [0,1]
// and bounds in the crop's coordinates.
func (r *Reader) Read(img image.Image) ([]backend.TextFragment, error) {
	data, scale, err := opencv.EncodeForOCR(img)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	origin := img.Bounds().Min
	fragments := make([]backend.TextFragment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		fragments = append(fragments, backend.TextFragment{
			Text:       text,
			Confidence: box.Confidence / 100,
			Bounds:     unscale(box.Box, scale).Add(origin),
		})
	}
	return fragments, nil
}

// Close releases the Tesseract client.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.Close()
}

func unscale(rect image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 || scale == 0 {
		return rect
	}
	return image.Rect(
		int(float64(rect.Min.X)/scale),
		int(float64(rect.Min.Y)/scale),
		int(float64(rect.Max.X)/scale+0.5),
		int(float64(rect.Max.Y)/scale+0.5),
	)
}
