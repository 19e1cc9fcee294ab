//go:build cgo

package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/backend/yolo"

	"gocv.io/x/gocv"
)

// Detector runs a YOLO ONNX model through OpenCV DNN. Inference is
// serialised; an OpenCV Net is not safe for concurrent Forward calls.
type Detector struct {
	mu   sync.Mutex
	net  gocv.Net
	opts DetectorOptions
}

// NewDetector loads the detection model.
func NewDetector(opts DetectorOptions) (*Detector, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: detector model: %v", backend.ErrUnavailable, err)
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 640
	}
	net, err := loadNet(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return &Detector{net: net, opts: opts}, nil
}

func (d *Detector) Name() string { return "opencv-yolo" }

// Detect implements backend.ObjectDetector.
func (d *Detector) Detect(img image.Image) ([]backend.Candidate, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	size := d.opts.InputSize
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	data, dims, err := forward(&d.net, blob)
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	candidates, err := yolo.Decode(data, dims, yolo.Options{
		Classes:    d.opts.Classes,
		ScoreFloor: d.opts.ScoreFloor,
		ScaleX:     float64(b.Dx()) / float64(size),
		ScaleY:     float64(b.Dy()) / float64(size),
	})
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		c := &candidates[i].Box
		c.X1 += float64(b.Min.X)
		c.X2 += float64(b.Min.X)
		c.Y1 += float64(b.Min.Y)
		c.Y2 += float64(b.Min.Y)
	}
	return candidates, nil
}

// Close releases the network.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
