// Package detect locates bottle-like objects in a shelf photo and cuts a
// padded crop around each one.
package detect

import (
	"errors"
	"image"
	"sort"
	"strings"

	"shelf-vision/internal/backend"
	shelfimage "shelf-vision/internal/image"
	"shelf-vision/pkg/geometry"

	"github.com/rs/zerolog/log"
)

// ErrEmptyImage is returned when Detect is given an image without pixels.
var ErrEmptyImage = errors.New("empty image")

// Detection is one located object. It is immutable once returned and owns
// its crop.
type Detection struct {
	Box        geometry.Box `json:"box"`      // Detector box in source-image pixels
	CropBox    geometry.Box `json:"crop_box"` // Padded box clamped to the image; the crop's extent
	Class      string       `json:"class"`
	Confidence float64      `json:"confidence"`
	Synthetic  bool         `json:"synthetic,omitempty"` // Placeholder from the mock detector

	Crop *image.RGBA `json:"-"` // nil when the clamped region has no area
}

// HasCrop reports whether the detection carries usable pixels.
func (d Detection) HasCrop() bool {
	return !shelfimage.Empty(d.Crop)
}

// Detector runs object detection through the registry's backend and applies
// thresholding, whitelisting and duplicate suppression.
type Detector struct {
	params   Params
	backends *backend.Registry
}

// New creates a Detector.
func New(backends *backend.Registry, params Params) *Detector {
	return &Detector{params: params, backends: backends}
}

// Detect finds objects in img, ordered by descending confidence.
// Backend failures degrade to a single synthetic detection.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	if shelfimage.Empty(img) {
		return nil, ErrEmptyImage
	}

	src := img
	if d.params.Enhance {
		enhancer := d.backends.Enhancer()
		enhanced, err := enhancer.Enhance(img)
		if err != nil {
			log.Warn().Err(err).Str("enhancer", enhancer.Name()).Msg("contrast enhancement failed, using original image")
		} else if !shelfimage.Empty(enhanced) && enhanced.Bounds() == img.Bounds() {
			src = enhanced
		}
	}

	model := d.backends.Detector()
	candidates, err := model.Detect(src)
	if err != nil {
		log.Warn().Err(err).Str("detector", model.Name()).Msg("detection failed, using mock detection")
		candidates, _ = backend.MockDetector{}.Detect(img)
	}

	kept := d.filter(candidates)
	kept = suppressDuplicates(kept, d.params.IoUThreshold)
	if d.params.MaxDetections > 0 && len(kept) > d.params.MaxDetections {
		kept = kept[:d.params.MaxDetections]
	}

	detections := make([]Detection, len(kept))
	for i, c := range kept {
		cropBox := c.Box.Pad(d.params.CropPadding).Clamp(img.Bounds())
		detections[i] = Detection{
			Box:        c.Box,
			CropBox:    cropBox,
			Class:      c.Class,
			Confidence: c.Confidence,
			Synthetic:  c.Synthetic,
			Crop:       shelfimage.Crop(img, cropBox),
		}
	}

	log.Debug().
		Str("detector", model.Name()).
		Int("candidates", len(candidates)).
		Int("kept", len(detections)).
		Msg("detection complete")
	return detections, nil
}

// filter drops malformed boxes, non-whitelisted classes and low-confidence
// candidates, then sorts by confidence. Synthetic candidates always pass.
func (d *Detector) filter(candidates []backend.Candidate) []backend.Candidate {
	allowed := d.params.allowed()

	var kept []backend.Candidate
	for _, c := range candidates {
		if !c.Box.Valid() {
			log.Debug().Str("class", c.Class).Interface("box", c.Box).Msg("dropping malformed box")
			continue
		}
		if !c.Synthetic {
			if !allowed[strings.ToLower(c.Class)] {
				continue
			}
			if c.Confidence < d.params.ConfidenceThreshold {
				continue
			}
		}
		kept = append(kept, c)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Box.Y1 != b.Box.Y1 {
			return a.Box.Y1 < b.Box.Y1
		}
		return a.Box.X1 < b.Box.X1
	})
	return kept
}

// suppressDuplicates performs greedy class-aware non-maximum suppression on
// candidates already sorted by descending confidence.
func suppressDuplicates(candidates []backend.Candidate, iouThreshold float64) []backend.Candidate {
	if len(candidates) <= 1 {
		return candidates
	}

	var result []backend.Candidate
	for _, c := range candidates {
		isDup := false
		for _, k := range result {
			if strings.EqualFold(k.Class, c.Class) && k.Box.IoU(c.Box) > iouThreshold {
				isDup = true
				break
			}
		}
		if !isDup {
			result = append(result, c)
		}
	}
	return result
}
