//go:build !cgo

package opencv

import (
	"fmt"
	"image"

	"shelf-vision/internal/backend"
)

var errNoCgo = fmt.Errorf("%w: built without cgo, OpenCV backends disabled", backend.ErrUnavailable)

// Detector is unavailable without cgo.
type Detector struct{}

// NewDetector always fails with backend.ErrUnavailable.
func NewDetector(DetectorOptions) (*Detector, error) { return nil, errNoCgo }

func (*Detector) Name() string { return "opencv-yolo" }

// Detect always fails with backend.ErrUnavailable.
func (*Detector) Detect(image.Image) ([]backend.Candidate, error) { return nil, errNoCgo }

// Embedder is unavailable without cgo.
type Embedder struct{}

// NewEmbedder always fails with backend.ErrUnavailable.
func NewEmbedder(EmbedderOptions) (*Embedder, error) { return nil, errNoCgo }

func (*Embedder) Name() string { return "opencv-dnn" }

// Extract always fails with backend.ErrUnavailable.
func (*Embedder) Extract(image.Image) ([]float64, error) { return nil, errNoCgo }

// Enhancer is unavailable without cgo.
type Enhancer struct{}

// NewEnhancer always fails with backend.ErrUnavailable.
func NewEnhancer() (*Enhancer, error) { return nil, errNoCgo }

func (*Enhancer) Name() string { return "opencv-clahe" }

// Enhance always fails with backend.ErrUnavailable.
func (*Enhancer) Enhance(image.Image) (image.Image, error) { return nil, errNoCgo }

// EncodeForOCR always fails with backend.ErrUnavailable.
func EncodeForOCR(image.Image) ([]byte, float64, error) { return nil, 0, errNoCgo }
