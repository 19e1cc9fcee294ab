//go:build cgo

package opencv

import (
	"fmt"
	"image"
	"os"
	"sync"

	"shelf-vision/internal/backend"

	"gocv.io/x/gocv"
)

// Embedder extracts appearance vectors with an ONNX image model, taking
// the flattened output of its final layer as the embedding.
type Embedder struct {
	mu   sync.Mutex
	net  gocv.Net
	opts EmbedderOptions
}

// NewEmbedder loads the embedding model.
func NewEmbedder(opts EmbedderOptions) (*Embedder, error) {
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: embedding model: %v", backend.ErrUnavailable, err)
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 224
	}
	net, err := loadNet(opts.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	return &Embedder{net: net, opts: opts}, nil
}

func (e *Embedder) Name() string { return "opencv-dnn" }

// Extract implements backend.EmbeddingExtractor.
func (e *Embedder) Extract(img image.Image) ([]float64, error) {
	mat, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	size := e.opts.InputSize
	mean := gocv.NewScalar(imagenetMean[0], imagenetMean[1], imagenetMean[2], 0)
	blob := gocv.BlobFromImage(mat, 1.0/imagenetStd, image.Pt(size, size), mean, true, false)
	defer blob.Close()

	e.mu.Lock()
	data, _, err := forward(&e.net, blob)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	vec := make([]float64, len(data))
	for i, v := range data {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Close releases the network.
func (e *Embedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.net.Close()
}
