package backend

import (
	"image"

	"shelf-vision/pkg/geometry"
)

// Mock detection constants. The synthetic box covers the middle half of
// the image in both axes.
const (
	MockClass      = "bottle"
	MockConfidence = 0.5
)

// MockDetector returns one synthetic centered detection per image.
type MockDetector struct{}

func (MockDetector) Name() string { return "mock" }

// Detect implements ObjectDetector.
func (MockDetector) Detect(img image.Image) ([]Candidate, error) {
	b := img.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	if w == 0 || h == 0 {
		return nil, nil
	}
	box := geometry.Box{
		X1: float64(b.Min.X) + w/4,
		Y1: float64(b.Min.Y) + h/4,
		X2: float64(b.Min.X) + 3*w/4,
		Y2: float64(b.Min.Y) + 3*h/4,
	}
	return []Candidate{{Box: box, Class: MockClass, Confidence: MockConfidence, Synthetic: true}}, nil
}

// NullExtractor is the embedding backend used when no model is loadable.
type NullExtractor struct{}

func (NullExtractor) Name() string { return "null" }

// Extract always fails with ErrUnavailable.
func (NullExtractor) Extract(image.Image) ([]float64, error) {
	return nil, ErrUnavailable
}

// NullTextReader reads no text.
type NullTextReader struct{}

func (NullTextReader) Name() string { return "null" }

// Read returns no fragments.
func (NullTextReader) Read(image.Image) ([]TextFragment, error) {
	return nil, nil
}

// IdentityEnhancer returns its input unchanged.
type IdentityEnhancer struct{}

func (IdentityEnhancer) Name() string { return "identity" }

// Enhance implements Enhancer.
func (IdentityEnhancer) Enhance(img image.Image) (image.Image, error) {
	return img, nil
}
