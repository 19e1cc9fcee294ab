// Package backend defines the inference capabilities consumed by the
// recognition stages and the registry that resolves them.
//
// Every capability has a concrete fallback (MockDetector, NullExtractor,
// NullTextReader, IdentityEnhancer) chosen once at resolution time, so the
// stages never branch on a missing model.
package backend

import (
	"errors"
	"image"

	"shelf-vision/pkg/geometry"
)

// ErrUnavailable reports that a backend could not be loaded or cannot serve.
var ErrUnavailable = errors.New("backend unavailable")

// Candidate is a raw detection emitted by an ObjectDetector before any
// thresholding, whitelisting or duplicate suppression.
type Candidate struct {
	Box        geometry.Box
	Class      string
	Confidence float64

	// Synthetic marks placeholder detections from the mock backend. They
	// bypass confidence and class filtering so a run never comes back empty.
	Synthetic bool
}

// ObjectDetector locates objects in a full image.
type ObjectDetector interface {
	Name() string
	Detect(img image.Image) ([]Candidate, error)
}

// EmbeddingExtractor maps an image to a fixed-length appearance vector.
type EmbeddingExtractor interface {
	Name() string
	Extract(img image.Image) ([]float64, error)
}

// TextFragment is one OCR word or line.
type TextFragment struct {
	Text       string
	Confidence float64 // 0-1
	Bounds     image.Rectangle
}

// TextReader runs OCR over an image.
type TextReader interface {
	Name() string
	Read(img image.Image) ([]TextFragment, error)
}

// Enhancer applies deterministic contrast enhancement before detection.
type Enhancer interface {
	Name() string
	Enhance(img image.Image) (image.Image, error)
}
