//go:build cgo

package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Enhancer equalises lightness with CLAHE in Lab space, leaving hue alone.
// It allocates its OpenCV state per call and is safe for concurrent use.
type Enhancer struct{}

// NewEnhancer returns the CLAHE enhancer.
func NewEnhancer() (*Enhancer, error) {
	return &Enhancer{}, nil
}

func (*Enhancer) Name() string { return "opencv-clahe" }

// Enhance implements backend.Enhancer.
func (*Enhancer) Enhance(img image.Image) (image.Image, error) {
	bgr, err := imageToMat(img)
	if err != nil {
		return nil, err
	}
	defer bgr.Close()

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(bgr, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return nil, fmt.Errorf("expected 3 Lab channels, got %d", len(channels))
	}

	clahe := gocv.NewCLAHEWithParams(claheClipLimit, image.Pt(claheTileSize, claheTileSize))
	defer clahe.Close()

	lightness := gocv.NewMat()
	clahe.Apply(channels[0], &lightness)
	channels[0].Close()
	channels[0] = lightness

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	out := gocv.NewMat()
	defer out.Close()
	gocv.CvtColor(merged, &out, gocv.ColorLabToBGR)

	res := matToImage(out)
	if b := img.Bounds(); b.Min != (image.Point{}) {
		res.Rect = res.Rect.Add(b.Min)
	}
	return res, nil
}
