// Package geometry provides the box type shared by the recognition stages.
package geometry

import (
	"image"
	"math"
)

// Box is an axis-aligned bounding box in source-image pixel coordinates.
// A well-formed box has X1 < X2 and Y1 < Y2.
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// NewBoxCenter creates a box from a center point and a size, the layout
// most detection heads emit.
func NewBoxCenter(cx, cy, w, h float64) Box {
	return Box{X1: cx - w/2, Y1: cy - h/2, X2: cx + w/2, Y2: cy + h/2}
}

// Width returns the box width, or 0 for an inverted box.
func (b Box) Width() float64 {
	return math.Max(0, b.X2-b.X1)
}

// Height returns the box height, or 0 for an inverted box.
func (b Box) Height() float64 {
	return math.Max(0, b.Y2-b.Y1)
}

// Area returns the box area.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive area.
func (b Box) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// Intersect returns the overlapping region of two boxes. The result is not
// Valid when the boxes do not overlap.
func (b Box) Intersect(other Box) Box {
	return Box{
		X1: math.Max(b.X1, other.X1),
		Y1: math.Max(b.Y1, other.Y1),
		X2: math.Min(b.X2, other.X2),
		Y2: math.Min(b.Y2, other.Y2),
	}
}

// IoU returns the intersection-over-union of two boxes (0-1).
func (b Box) IoU(other Box) float64 {
	inter := b.Intersect(other)
	if !inter.Valid() {
		return 0
	}
	interArea := inter.Area()
	union := b.Area() + other.Area() - interArea
	if union <= 0 {
		return 0
	}
	return interArea / union
}

// Pad grows the box by fraction of its own width and height on every side.
func (b Box) Pad(fraction float64) Box {
	if fraction <= 0 {
		return b
	}
	dx := b.Width() * fraction
	dy := b.Height() * fraction
	return Box{X1: b.X1 - dx, Y1: b.Y1 - dy, X2: b.X2 + dx, Y2: b.Y2 + dy}
}

// Clamp restricts the box to the given image bounds.
func (b Box) Clamp(bounds image.Rectangle) Box {
	return Box{
		X1: clamp(b.X1, float64(bounds.Min.X), float64(bounds.Max.X)),
		Y1: clamp(b.Y1, float64(bounds.Min.Y), float64(bounds.Max.Y)),
		X2: clamp(b.X2, float64(bounds.Min.X), float64(bounds.Max.X)),
		Y2: clamp(b.Y2, float64(bounds.Min.Y), float64(bounds.Max.Y)),
	}
}

// Rect converts the box to an integer rectangle, rounding outward so the
// pixel region always covers the box.
func (b Box) Rect() image.Rectangle {
	return image.Rect(
		int(math.Floor(b.X1)),
		int(math.Floor(b.Y1)),
		int(math.Ceil(b.X2)),
		int(math.Ceil(b.Y2)),
	)
}

// RectInt represents a rectangle with integer coordinates in x/y/width/height form.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToRectInt converts the box to x/y/width/height form.
func (b Box) ToRectInt() RectInt {
	r := b.Rect()
	return RectInt{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
