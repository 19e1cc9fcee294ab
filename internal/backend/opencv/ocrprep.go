//go:build cgo

package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ocrMinSide is the shorter side, in pixels, label crops are upscaled to
// before recognition.
const ocrMinSide = 150

// EncodeForOCR prepares a label crop for Tesseract and returns it as PNG
// bytes together with the scale applied. The crop is upscaled when small,
// converted to grey, equalised with CLAHE and binarised with Otsu's
// threshold, then inverted if that left light text on a dark ground.
func EncodeForOCR(img image.Image) ([]byte, float64, error) {
	region, err := imageToMat(img)
	if err != nil {
		return nil, 0, err
	}
	defer region.Close()

	scale := 1.0
	scaled := gocv.NewMat()
	defer scaled.Close()
	if minDim := min(region.Rows(), region.Cols()); minDim < ocrMinSide {
		scale = float64(ocrMinSide) / float64(minDim)
		gocv.Resize(region, &scaled, image.Point{}, scale, scale, gocv.InterpolationCubic)
	} else {
		region.CopyTo(&scaled)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(scaled, &gray, gocv.ColorBGRToGray)

	clahe := gocv.NewCLAHEWithParams(claheClipLimit, image.Pt(claheTileSize, claheTileSize))
	defer clahe.Close()
	enhanced := gocv.NewMat()
	defer enhanced.Close()
	clahe.Apply(gray, &enhanced)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(enhanced, &binary, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	// Tesseract expects dark text on a light ground; text is the minority.
	whiteRatio := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
	if whiteRatio < 0.5 {
		gocv.BitwiseNot(binary, &binary)
	}

	buf, err := gocv.IMEncode(gocv.PNGFileExt, binary)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), scale, nil
}
