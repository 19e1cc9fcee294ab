//go:build cgo

package opencv

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// imageToMat converts an image to a BGR Mat, filling horizontal stripes
// in parallel.
func imageToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	rgba, _ := img.(*image.RGBA)

	numWorkers := runtime.NumCPU()
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		startY := w * rowsPerWorker
		endY := min(startY+rowsPerWorker, height)
		if startY >= height {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				for x := 0; x < width; x++ {
					var r, g, b uint8
					if rgba != nil {
						off := rgba.PixOffset(x+bounds.Min.X, y+bounds.Min.Y)
						r, g, b = rgba.Pix[off], rgba.Pix[off+1], rgba.Pix[off+2]
					} else {
						r32, g32, b32, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
						r, g, b = uint8(r32>>8), uint8(g32>>8), uint8(b32>>8)
					}
					mat.SetUCharAt(y, x*3+0, b)
					mat.SetUCharAt(y, x*3+1, g)
					mat.SetUCharAt(y, x*3+2, r)
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return mat, nil
}

// matToImage converts a BGR Mat to an RGBA image anchored at (0,0).
func matToImage(mat gocv.Mat) *image.RGBA {
	h, w := mat.Rows(), mat.Cols()
	img := image.NewRGBA(image.Rect(0, 0, w, h))

	numWorkers := runtime.NumCPU()
	rowsPerWorker := (h + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for worker := 0; worker < numWorkers; worker++ {
		startY := worker * rowsPerWorker
		endY := min(startY+rowsPerWorker, h)
		if startY >= h {
			break
		}

		wg.Add(1)
		go func(yStart, yEnd int) {
			defer wg.Done()
			for y := yStart; y < yEnd; y++ {
				rowOffset := y * img.Stride
				for x := 0; x < w; x++ {
					pixOffset := rowOffset + x*4
					img.Pix[pixOffset+0] = mat.GetUCharAt(y, x*3+2)
					img.Pix[pixOffset+1] = mat.GetUCharAt(y, x*3+1)
					img.Pix[pixOffset+2] = mat.GetUCharAt(y, x*3+0)
					img.Pix[pixOffset+3] = 255
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return img
}

// forward runs one inference pass and copies the output tensor.
func forward(net *gocv.Net, blob gocv.Mat) ([]float32, []int, error) {
	net.SetInput(blob, "")
	out := net.Forward("")
	defer out.Close()
	if out.Empty() {
		return nil, nil, fmt.Errorf("network produced no output")
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return nil, nil, fmt.Errorf("reading network output: %w", err)
	}
	return append([]float32(nil), data...), out.Size(), nil
}

func loadNet(path string) (gocv.Net, error) {
	net := gocv.ReadNet(path, "")
	if net.Empty() {
		net.Close()
		return net, fmt.Errorf("cannot load network %s", path)
	}
	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return net, fmt.Errorf("setting dnn backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return net, fmt.Errorf("setting dnn target: %w", err)
	}
	return net, nil
}
