// Package review routes uncertain recognitions to a directory consumed by
// an external labeling tool.
package review

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"shelf-vision/internal/classify"
	"shelf-vision/internal/config"
	"shelf-vision/internal/detect"
	shelfimage "shelf-vision/internal/image"
	"shelf-vision/pkg/geometry"

	"github.com/rs/zerolog/log"
)

// timestampLayout sorts lexically in time order.
const timestampLayout = "20060102T150405.000000000Z"

// Reasons recorded in review metadata.
const (
	ReasonUnclassified  = "unclassified"
	ReasonLowConfidence = "low_confidence"
)

// Record is the JSON metadata written next to each queued crop.
type Record struct {
	ItemID         string                   `json:"item_id"`
	Timestamp      time.Time                `json:"timestamp"`
	Reason         string                   `json:"reason"`
	Detection      DetectionRecord          `json:"detection"`
	Classification *classify.Classification `json:"classification"`
}

// DetectionRecord is the detection part of a Record.
type DetectionRecord struct {
	Box        geometry.Box `json:"box"`
	CropBox    geometry.Box `json:"crop_box"`
	Class      string       `json:"class"`
	Confidence float64      `json:"confidence"`
	Synthetic  bool         `json:"synthetic,omitempty"`

	// Region is the source-image pixel area saved as the review image.
	Region geometry.RectInt `json:"region"`
}

// Queue is an append-only sink of crops and metadata. It never reads back
// or deduplicates what it has written.
type Queue struct {
	enabled   bool
	threshold float64
	dir       string
	now       func() time.Time
}

// New creates a Queue from the [review_queue] config section. The storage
// directory is created on first write.
func New(cfg config.ReviewQueueConfig) *Queue {
	return &Queue{
		enabled:   cfg.Enabled,
		threshold: cfg.LowConfidenceThreshold,
		dir:       cfg.StoragePath,
		now:       time.Now,
	}
}

// Dir returns the storage directory.
func (q *Queue) Dir() string {
	return q.dir
}

// ShouldQueue reports whether an item with the given final classification
// needs human review: it has none, or its confidence is below the
// low-confidence threshold. OCR boosting plays no part in the decision.
func (q *Queue) ShouldQueue(cls *classify.Classification) bool {
	if q == nil || !q.enabled {
		return false
	}
	return cls == nil || cls.Confidence < q.threshold
}

// Enqueue writes <dir>/<timestamp>_<itemID>.png and the matching .json
// record, returning the shared path stem. The image is the detection's
// crop, or the detection box cut from src when the crop is empty.
func (q *Queue) Enqueue(itemID string, det detect.Detection, cls *classify.Classification, src image.Image) (string, error) {
	ts := q.now().UTC()
	stem := filepath.Join(q.dir, ts.Format(timestampLayout)+"_"+itemID)

	var pixels image.Image
	var region geometry.RectInt
	if det.HasCrop() {
		pixels = det.Crop
		region = det.CropBox.ToRectInt()
	} else if crop := shelfimage.Crop(src, det.Box); crop != nil {
		pixels = crop
		region = det.Box.Clamp(src.Bounds()).ToRectInt()
	}

	if err := os.MkdirAll(q.dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create review directory: %w", err)
	}

	if pixels != nil {
		if err := writePNG(stem+".png", pixels); err != nil {
			return "", err
		}
	}

	reason := ReasonLowConfidence
	if cls == nil {
		reason = ReasonUnclassified
	}
	rec := Record{
		ItemID:    itemID,
		Timestamp: ts,
		Reason:    reason,
		Detection: DetectionRecord{
			Box:        det.Box,
			CropBox:    det.CropBox,
			Class:      det.Class,
			Confidence: det.Confidence,
			Synthetic:  det.Synthetic,
			Region:     region,
		},
		Classification: cls,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("cannot encode review record: %w", err)
	}
	if err := os.WriteFile(stem+".json", data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write review record: %w", err)
	}

	log.Debug().Str("item", itemID).Str("reason", reason).Str("path", stem).Msg("queued for review")
	return stem, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create review image: %w", err)
	}
	if err := shelfimage.WritePNG(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
