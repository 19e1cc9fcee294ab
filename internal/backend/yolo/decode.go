// Package yolo decodes the raw output tensor of YOLO-family detection
// networks into detection candidates.
package yolo

import (
	"fmt"

	"shelf-vision/internal/backend"
	"shelf-vision/pkg/geometry"
)

// COCOClasses are the 80 class labels of COCO-trained models, in output order.
var COCOClasses = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck",
	"boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench",
	"bird", "cat", "dog", "horse", "sheep", "cow", "elephant", "bear", "zebra",
	"giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange",
	"broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair", "couch",
	"potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear",
	"hair drier", "toothbrush",
}

// Layout describes how a tensor stores its predictions.
type Layout int

const (
	// AttrsMajor is [1, 4+classes, anchors], as exported by YOLOv8 and later.
	AttrsMajor Layout = iota
	// AnchorsMajor is [1, anchors, 4+classes].
	AnchorsMajor
	// AnchorsMajorObjectness is [1, anchors, 5+classes], as exported by YOLOv5.
	AnchorsMajorObjectness
)

// Options controls decoding.
type Options struct {
	Classes    []string // Labels in output order; nil means COCOClasses
	ScoreFloor float64  // Predictions scoring below this are not decoded
	ScaleX     float64  // Network-input to source-image factors
	ScaleY     float64
}

// DetectLayout infers the tensor layout from its shape.
func DetectLayout(dims []int, numClasses int) (Layout, int, error) {
	if len(dims) < 2 {
		return 0, 0, fmt.Errorf("unexpected output shape %v", dims)
	}
	rows, cols := dims[len(dims)-2], dims[len(dims)-1]
	switch {
	case rows == 4+numClasses:
		return AttrsMajor, cols, nil
	case cols == 4+numClasses:
		return AnchorsMajor, rows, nil
	case cols == 5+numClasses:
		return AnchorsMajorObjectness, rows, nil
	}
	return 0, 0, fmt.Errorf("output shape %v does not match %d classes", dims, numClasses)
}

// Decode converts an output tensor into candidates in source-image pixels.
// Each anchor contributes at most one candidate, labelled with its best
// scoring class.
func Decode(data []float32, dims []int, opts Options) ([]backend.Candidate, error) {
	classes := opts.Classes
	if len(classes) == 0 {
		classes = COCOClasses
	}
	layout, anchors, err := DetectLayout(dims, len(classes))
	if err != nil {
		return nil, err
	}

	stride := 4 + len(classes)
	if layout == AnchorsMajorObjectness {
		stride++
	}
	if len(data) < anchors*stride {
		return nil, fmt.Errorf("output has %d values, shape %v needs %d", len(data), dims, anchors*stride)
	}

	at := func(anchor, attr int) float64 {
		if layout == AttrsMajor {
			return float64(data[attr*anchors+anchor])
		}
		return float64(data[anchor*stride+attr])
	}

	scaleX, scaleY := opts.ScaleX, opts.ScaleY
	if scaleX == 0 {
		scaleX = 1
	}
	if scaleY == 0 {
		scaleY = 1
	}

	var out []backend.Candidate
	for a := 0; a < anchors; a++ {
		first := 4
		objectness := 1.0
		if layout == AnchorsMajorObjectness {
			objectness = at(a, 4)
			first = 5
		}

		bestClass, bestScore := -1, 0.0
		for c := range classes {
			if s := at(a, first+c) * objectness; s > bestScore {
				bestClass, bestScore = c, s
			}
		}
		if bestClass < 0 || bestScore < opts.ScoreFloor {
			continue
		}

		box := geometry.NewBoxCenter(at(a, 0)*scaleX, at(a, 1)*scaleY, at(a, 2)*scaleX, at(a, 3)*scaleY)
		if !box.Valid() {
			continue
		}
		out = append(out, backend.Candidate{
			Box:        box,
			Class:      classes[bestClass],
			Confidence: bestScore,
		})
	}
	return out, nil
}
