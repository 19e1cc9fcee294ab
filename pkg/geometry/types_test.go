package geometry

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBox_IoU(t *testing.T) {
	tests := []struct {
		name string
		a, b Box
		want float64
	}{
		{"identical", Box{0, 0, 10, 10}, Box{0, 0, 10, 10}, 1.0},
		{"disjoint", Box{0, 0, 10, 10}, Box{20, 20, 30, 30}, 0},
		{"touching edges", Box{0, 0, 10, 10}, Box{10, 0, 20, 10}, 0},
		{"half overlap", Box{0, 0, 10, 10}, Box{5, 0, 15, 10}, 50.0 / 150.0},
		{"contained", Box{0, 0, 10, 10}, Box{0, 0, 5, 10}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.IoU(tt.b), 1e-9)
			assert.InDelta(t, tt.want, tt.b.IoU(tt.a), 1e-9)
		})
	}
}

func TestBox_PadAndClamp(t *testing.T) {
	b := Box{X1: 10, Y1: 20, X2: 30, Y2: 60}

	padded := b.Pad(0.1)
	assert.Equal(t, Box{X1: 8, Y1: 16, X2: 32, Y2: 64}, padded)

	bounds := image.Rect(0, 0, 31, 50)
	clamped := padded.Clamp(bounds)
	assert.Equal(t, Box{X1: 8, Y1: 16, X2: 31, Y2: 50}, clamped)
	assert.True(t, clamped.Valid())

	assert.Equal(t, b, b.Pad(0))
}

func TestBox_ClampOutsideImage(t *testing.T) {
	b := Box{X1: 120, Y1: 10, X2: 140, Y2: 30}
	clamped := b.Clamp(image.Rect(0, 0, 100, 100))

	assert.False(t, clamped.Valid())
	assert.Zero(t, clamped.Area())
}

func TestBox_RectRoundsOutward(t *testing.T) {
	b := Box{X1: 1.4, Y1: 2.6, X2: 10.2, Y2: 11.9}
	assert.Equal(t, image.Rect(1, 2, 11, 12), b.Rect())
	assert.Equal(t, RectInt{X: 1, Y: 2, Width: 10, Height: 10}, b.ToRectInt())
}

func TestNewBoxCenter(t *testing.T) {
	b := NewBoxCenter(50, 40, 20, 10)
	assert.Equal(t, Box{X1: 40, Y1: 35, X2: 60, Y2: 45}, b)
}
