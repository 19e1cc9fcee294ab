package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"shelf-vision/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, img))
	return buf.Bytes()
}

func TestDecode_PNG(t *testing.T) {
	src := Solid(40, 30, color.RGBA{R: 200, G: 10, B: 10, A: 255})

	img, err := Decode(encodePNG(t, src))

	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 30), img.Bounds())
	assert.Equal(t, color.RGBA{R: 200, G: 10, B: 10, A: 255}, img.RGBAAt(5, 5))
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDecode))
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelf.png")
	require.NoError(t, os.WriteFile(path, encodePNG(t, Solid(8, 8, color.RGBA{A: 255})), 0644))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())

	_, err = Load(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

func TestCrop(t *testing.T) {
	src := Solid(100, 50, color.RGBA{G: 255, A: 255})
	src.SetRGBA(10, 10, color.RGBA{R: 255, A: 255})

	crop := Crop(src, geometry.Box{X1: 10, Y1: 10, X2: 30, Y2: 20})
	require.NotNil(t, crop)
	assert.Equal(t, image.Rect(0, 0, 20, 10), crop.Bounds())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, crop.RGBAAt(0, 0))

	// The crop owns its pixels.
	crop.SetRGBA(0, 0, color.RGBA{B: 255, A: 255})
	assert.Equal(t, color.RGBA{R: 255, A: 255}, src.RGBAAt(10, 10))
}

func TestCrop_ClampedAndEmpty(t *testing.T) {
	src := Solid(100, 50, color.RGBA{A: 255})

	crop := Crop(src, geometry.Box{X1: -20, Y1: -5, X2: 10, Y2: 10})
	require.NotNil(t, crop)
	assert.Equal(t, image.Rect(0, 0, 10, 10), crop.Bounds())

	assert.Nil(t, Crop(src, geometry.Box{X1: 150, Y1: 0, X2: 200, Y2: 10}))
	assert.Nil(t, Crop(src, geometry.Box{X1: 10, Y1: 10, X2: 10, Y2: 30}))
}

func TestEmpty(t *testing.T) {
	var nilRGBA *image.RGBA
	assert.True(t, Empty(nil))
	assert.True(t, Empty(nilRGBA))
	assert.True(t, Empty(image.NewRGBA(image.Rect(0, 0, 0, 10))))
	assert.False(t, Empty(Solid(1, 1, color.RGBA{})))
}
