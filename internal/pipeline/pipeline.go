// Package pipeline sequences detection, classification, label text
// refinement and review routing over one shelf image.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"shelf-vision/internal/backend"
	"shelf-vision/internal/catalog"
	"shelf-vision/internal/classify"
	"shelf-vision/internal/config"
	"shelf-vision/internal/detect"
	shelfimage "shelf-vision/internal/image"
	"shelf-vision/internal/refine"
	"shelf-vision/internal/review"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Pipeline runs the recognition stages. A Pipeline serves one caller at a
// time; it holds no locks of its own.
type Pipeline struct {
	backends   *backend.Registry
	detector   *detect.Detector
	classifier *classify.Classifier
	refiner    *refine.Refiner // nil when OCR is disabled
	queue      *review.Queue   // nil when review routing is disabled
	newID      func() string
}

// New builds a pipeline over an already loaded index and mapping. Either
// may be nil, which puts the classifier in mock mode or shows raw SKU ids.
func New(cfg config.Config, backends *backend.Registry, index *catalog.Index, mapping catalog.Mapping) *Pipeline {
	p := &Pipeline{
		backends:   backends,
		detector:   detect.New(backends, detect.ParamsFromConfig(cfg.Detector)),
		classifier: classify.New(backends, index, mapping, classify.ParamsFromConfig(cfg.Classifier)),
		newID:      shortID,
	}
	if cfg.OCR.Enabled {
		p.refiner = refine.New(backends, refine.ParamsFromConfig(cfg.OCR))
	}
	if cfg.ReviewQueue.Enabled {
		p.queue = review.New(cfg.ReviewQueue)
	}
	return p
}

// NewFromConfig loads the catalog named in cfg and builds a pipeline.
func NewFromConfig(cfg config.Config, backends *backend.Registry) *Pipeline {
	index, mapping := LoadCatalog(cfg.Classifier)
	return New(cfg, backends, index, mapping)
}

// LoadCatalog loads the embedding index and SKU mapping. Missing or
// unreadable assets are logged and returned as nil, which degrades the
// classifier instead of failing.
func LoadCatalog(c config.ClassifierConfig) (*catalog.Index, catalog.Mapping) {
	var index *catalog.Index
	if path := c.EmbeddingsPath; path != "" {
		idx, err := catalog.LoadIndex(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("embedding index unavailable, classifier in mock mode")
		} else {
			index = idx
		}
	}

	var mapping catalog.Mapping
	if path := c.SKUMappingPath; path != "" {
		m, err := catalog.LoadMapping(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("sku mapping unavailable, using raw sku ids")
		} else {
			mapping = m
		}
	}

	return index, mapping
}

// Backends returns the registry the stages resolve their models from.
func (p *Pipeline) Backends() *backend.Registry {
	return p.backends
}

// Close releases the backends.
func (p *Pipeline) Close() error {
	return p.backends.Close()
}

// ProcessBytes decodes data and processes the resulting image. Malformed
// input fails with an error wrapping image.ErrDecode.
func (p *Pipeline) ProcessBytes(data []byte) (*Result, error) {
	img, err := shelfimage.Decode(data)
	if err != nil {
		return nil, err
	}
	return p.Process(img)
}

// ProcessFile loads and processes an image file.
func (p *Pipeline) ProcessFile(path string) (*Result, error) {
	img, err := shelfimage.Load(path)
	if err != nil {
		return nil, err
	}
	return p.Process(img)
}

// Process recognises every object in img.
//
// The only error is a decode error for an image without pixels. Backend
// failures and review write failures are absorbed and show up in the
// result as mock values or unrefined classifications.
func (p *Pipeline) Process(img image.Image) (*Result, error) {
	start := time.Now()

	detections, err := p.detector.Detect(img)
	if err != nil {
		if errors.Is(err, detect.ErrEmptyImage) {
			return nil, fmt.Errorf("%w: %v", shelfimage.ErrDecode, err)
		}
		return nil, err
	}

	res := &Result{
		Items:     make([]ShelfItem, 0, len(detections)),
		SKUCounts: make(map[string]int),
	}

	for _, det := range detections {
		item := ShelfItem{ID: p.newID(), Detection: det}

		if det.HasCrop() {
			cls, candidates := p.classifier.Classify(det.Crop)
			if p.refiner != nil {
				cls = p.refiner.Refine(det.Crop, cls, candidates, p.classifier.Mapping())
			}
			item.Classification = &cls
			item.Candidates = candidates
		}

		if p.queue.ShouldQueue(item.Classification) {
			item.Review = true
			if _, err := p.queue.Enqueue(item.ID, det, item.Classification, img); err != nil {
				log.Error().Err(err).Str("item", item.ID).Msg("review enqueue failed")
			}
		}

		res.add(item)
	}

	res.Latency = time.Since(start)

	log.Info().
		Int("items", res.TotalItems).
		Int("unknown", res.UnknownCount).
		Int("skus", len(res.SKUCounts)).
		Int("review", len(res.ReviewItems)).
		Float64("latency_ms", res.LatencyMS()).
		Msg("shelf processed")
	return res, nil
}

func shortID() string {
	return uuid.NewString()[:8]
}
