// Package opencv implements the detection, embedding and contrast
// enhancement backends on OpenCV's DNN and imgproc modules.
//
// The implementations need cgo and a native OpenCV install. Builds without
// cgo get constructors that fail with backend.ErrUnavailable, which the
// registry turns into the fallback backends.
package opencv

import (
	"shelf-vision/internal/config"
)

// DetectorOptions configures the YOLO detector.
type DetectorOptions struct {
	ModelPath  string   // ONNX model
	Classes    []string // Output labels in order; nil for COCO
	InputSize  int      // Square network input, pixels
	ScoreFloor float64  // Predictions below this are not decoded
}

// DetectorOptionsFromConfig converts the [detector] config section.
func DetectorOptionsFromConfig(c config.DetectorConfig) DetectorOptions {
	return DetectorOptions{
		ModelPath:  c.ModelPath,
		Classes:    c.ClassNames,
		InputSize:  c.InputSize,
		ScoreFloor: c.ConfidenceThreshold,
	}
}

// EmbedderOptions configures the embedding network.
type EmbedderOptions struct {
	ModelPath string
	InputSize int
}

// EmbedderOptionsFromConfig converts the [classifier] config section.
func EmbedderOptionsFromConfig(c config.ClassifierConfig) EmbedderOptions {
	return EmbedderOptions{ModelPath: c.ModelPath, InputSize: c.InputSize}
}

// CLAHE parameters for label contrast enhancement.
const (
	claheClipLimit = 2.0
	claheTileSize  = 8
)

// ImageNet normalisation used by the embedding networks, in RGB order.
var (
	imagenetMean = [3]float64{123.675, 116.28, 103.53}
	imagenetStd  = 57.375 // Mean of the per-channel deviations
)
