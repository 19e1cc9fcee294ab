package yolo

import (
	"testing"

	"shelf-vision/pkg/geometry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classes = []string{"bottle", "can"}

func TestDetectLayout(t *testing.T) {
	tests := []struct {
		name    string
		dims    []int
		want    Layout
		anchors int
	}{
		{"attrs major", []int{1, 6, 3}, AttrsMajor, 3},
		{"anchors major", []int{1, 3, 6}, AnchorsMajor, 3},
		{"objectness", []int{1, 3, 7}, AnchorsMajorObjectness, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layout, anchors, err := DetectLayout(tt.dims, len(classes))
			require.NoError(t, err)
			assert.Equal(t, tt.want, layout)
			assert.Equal(t, tt.anchors, anchors)
		})
	}

	_, _, err := DetectLayout([]int{1, 9, 9}, len(classes))
	assert.Error(t, err)
	_, _, err = DetectLayout([]int{9}, len(classes))
	assert.Error(t, err)
}

func TestDecode_AttrsMajor(t *testing.T) {
	// Three anchors, attributes stored row by row: cx, cy, w, h, bottle, can.
	data := []float32{
		100, 300, 50, // cx
		100, 300, 50, // cy
		20, 40, 10, // w
		40, 80, 10, // h
		0.9, 0.1, 0.02, // bottle
		0.05, 0.7, 0.01, // can
	}

	got, err := Decode(data, []int{1, 6, 3}, Options{Classes: classes, ScoreFloor: 0.1, ScaleX: 2, ScaleY: 0.5})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "bottle", got[0].Class)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-6)
	assert.Equal(t, geometry.Box{X1: 180, Y1: 40, X2: 220, Y2: 60}, got[0].Box)

	assert.Equal(t, "can", got[1].Class)
	assert.InDelta(t, 0.7, got[1].Confidence, 1e-6)
	assert.False(t, got[1].Synthetic)
}

func TestDecode_Objectness(t *testing.T) {
	data := []float32{
		10, 10, 4, 4, 0.5, 0.8, 0.1, // 0.4 bottle
		20, 20, 4, 4, 0.1, 0.9, 0.9, // 0.09, below floor
	}

	got, err := Decode(data, []int{1, 2, 7}, Options{Classes: classes, ScoreFloor: 0.2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.4, got[0].Confidence, 1e-6)
	assert.Equal(t, geometry.Box{X1: 8, Y1: 8, X2: 12, Y2: 12}, got[0].Box)
}

func TestDecode_DropsDegenerateBoxes(t *testing.T) {
	data := []float32{10, 10, 0, 4, 0.9, 0.1}
	got, err := Decode(data, []int{1, 1, 6}, Options{Classes: classes})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecode_ShortTensor(t *testing.T) {
	_, err := Decode(make([]float32, 5), []int{1, 6, 3}, Options{Classes: classes})
	assert.Error(t, err)
}

func TestDecode_DefaultsToCOCO(t *testing.T) {
	data := make([]float32, 84)
	data[0], data[1], data[2], data[3] = 50, 50, 10, 30
	data[4+39] = 0.8 // bottle

	got, err := Decode(data, []int{1, 1, 84}, Options{ScoreFloor: 0.25})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "bottle", got[0].Class)
}
