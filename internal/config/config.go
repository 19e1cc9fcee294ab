// Package config loads the recognition pipeline configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full pipeline configuration.
type Config struct {
	Detector    DetectorConfig    `toml:"detector"`
	Classifier  ClassifierConfig  `toml:"classifier"`
	OCR         OCRConfig         `toml:"ocr"`
	ReviewQueue ReviewQueueConfig `toml:"review_queue"`
	Logging     LoggingConfig     `toml:"logging"`
}

// DetectorConfig holds object detection parameters.
type DetectorConfig struct {
	ModelPath           string   `toml:"model_path"`
	ClassNames          []string `toml:"class_names"`  // Model output labels, index order; empty = COCO
	InputSize           int      `toml:"input_size"`   // Square network input, pixels
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	IoUThreshold        float64  `toml:"iou_threshold"`
	MaxDetections       int      `toml:"max_detections"`
	Classes             []string `toml:"classes"`      // Whitelist; everything else is dropped
	CropPadding         float64  `toml:"crop_padding"` // Fraction of box size added per side
	Enhance             bool     `toml:"enhance"`      // CLAHE contrast enhancement before inference
}

// ClassifierConfig holds embedding classification parameters.
type ClassifierConfig struct {
	ModelPath        string  `toml:"model_path"`
	EmbeddingsPath   string  `toml:"embeddings_path"` // .json or .db/.sqlite
	SKUMappingPath   string  `toml:"sku_mapping_path"`
	InputSize        int     `toml:"input_size"`
	UnknownThreshold float64 `toml:"unknown_threshold"`
	TopK             int     `toml:"top_k"`
}

// OCRConfig holds label text refinement parameters.
type OCRConfig struct {
	Enabled               bool    `toml:"enabled"`
	Language              string  `toml:"language"`
	ConfidenceFloor       float64 `toml:"confidence_floor"`
	BoostThreshold        float64 `toml:"boost_threshold"`
	Weight                float64 `toml:"weight"`
	MinTextSimilarity     float64 `toml:"min_text_similarity"`
	TopN                  int     `toml:"top_n"`
	MinFragmentConfidence float64 `toml:"min_fragment_confidence"`
	MinFragmentLength     int     `toml:"min_fragment_length"`
}

// ReviewQueueConfig holds active-learning queue parameters.
type ReviewQueueConfig struct {
	Enabled                bool    `toml:"enabled"`
	LowConfidenceThreshold float64 `toml:"low_confidence_threshold"`
	StoragePath            string  `toml:"storage_path"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Verbose bool   `toml:"verbose"`
	JSON    bool   `toml:"json"`
	File    string `toml:"file"`
}

// Default returns defaults tuned for bottle shelves photographed at
// arm's length.
func Default() Config {
	return Config{
		Detector: DetectorConfig{
			ModelPath:           "models/detector.onnx",
			InputSize:           640,
			ConfidenceThreshold: 0.5,
			IoUThreshold:        0.45,
			MaxDetections:       100,
			Classes:             []string{"bottle", "can", "cup", "wine glass"},
			CropPadding:         0.1,
			Enhance:             true,
		},
		Classifier: ClassifierConfig{
			ModelPath:        "models/embedder.onnx",
			EmbeddingsPath:   "models/sku_embeddings.db",
			SKUMappingPath:   "models/sku_mapping.json",
			InputSize:        224,
			UnknownThreshold: 0.5,
			TopK:             5,
		},
		OCR: OCRConfig{
			Enabled:               true,
			Language:              "eng",
			ConfidenceFloor:       0.5,
			BoostThreshold:        0.05,
			Weight:                0.3,
			MinTextSimilarity:     0.5,
			TopN:                  5,
			MinFragmentConfidence: 0.3,
			MinFragmentLength:     2,
		},
		ReviewQueue: ReviewQueueConfig{
			Enabled:                true,
			LowConfidenceThreshold: 0.6,
			StoragePath:            "review_queue",
		},
	}
}

// Load reads a TOML file over the defaults. Keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes TOML into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("cannot parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	unit := map[string]float64{
		"detector.confidence_threshold":         c.Detector.ConfidenceThreshold,
		"detector.iou_threshold":                c.Detector.IoUThreshold,
		"classifier.unknown_threshold":          c.Classifier.UnknownThreshold,
		"ocr.confidence_floor":                  c.OCR.ConfidenceFloor,
		"ocr.boost_threshold":                   c.OCR.BoostThreshold,
		"ocr.weight":                            c.OCR.Weight,
		"ocr.min_text_similarity":               c.OCR.MinTextSimilarity,
		"ocr.min_fragment_confidence":           c.OCR.MinFragmentConfidence,
		"review_queue.low_confidence_threshold": c.ReviewQueue.LowConfidenceThreshold,
	}
	for key, v := range unit {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be within [0,1], got %g", ErrInvalid, key, v)
		}
	}

	switch {
	case c.Detector.MaxDetections < 1:
		return fmt.Errorf("%w: detector.max_detections must be >= 1", ErrInvalid)
	case c.Detector.CropPadding < 0:
		return fmt.Errorf("%w: detector.crop_padding must be >= 0", ErrInvalid)
	case c.Detector.InputSize < 32:
		return fmt.Errorf("%w: detector.input_size must be >= 32", ErrInvalid)
	case len(c.Detector.Classes) == 0:
		return fmt.Errorf("%w: detector.classes must not be empty", ErrInvalid)
	case c.Classifier.TopK < 1:
		return fmt.Errorf("%w: classifier.top_k must be >= 1", ErrInvalid)
	case c.Classifier.InputSize < 32:
		return fmt.Errorf("%w: classifier.input_size must be >= 32", ErrInvalid)
	case c.OCR.TopN < 1:
		return fmt.Errorf("%w: ocr.top_n must be >= 1", ErrInvalid)
	case c.OCR.MinFragmentLength < 0:
		return fmt.Errorf("%w: ocr.min_fragment_length must be >= 0", ErrInvalid)
	case c.ReviewQueue.Enabled && c.ReviewQueue.StoragePath == "":
		return fmt.Errorf("%w: review_queue.storage_path is required when enabled", ErrInvalid)
	}
	return nil
}
