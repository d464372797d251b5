package geometry

import (
	"image"
	"math"
)

// Rect is an axis-aligned rectangle in page coordinates (points),
// with the origin at the top-left corner of the page.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// NewRect constructs a Rect from two corner coordinates ensuring ordering.
func NewRect(x0, y0, x1, y1 float64) Rect {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
}

// Width returns the rectangle width.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle height.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Empty reports whether the rectangle has zero area.
func (r Rect) Empty() bool { return r.X1 <= r.X0 || r.Y1 <= r.Y0 }

// Union returns the smallest rectangle containing both r and s.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	return Rect{
		X0: math.Min(r.X0, s.X0),
		Y0: math.Min(r.Y0, s.Y0),
		X1: math.Max(r.X1, s.X1),
		Y1: math.Max(r.Y1, s.Y1),
	}
}

// Expand grows the rectangle by margin on every side, clamped to the
// page box (0,0)-(pageW,pageH).
func (r Rect) Expand(margin, pageW, pageH float64) Rect {
	return Rect{
		X0: math.Max(0, r.X0-margin),
		Y0: math.Max(0, r.Y0-margin),
		X1: math.Min(pageW, r.X1+margin),
		Y1: math.Min(pageH, r.Y1+margin),
	}
}

// Scale multiplies all coordinates by f.
func (r Rect) Scale(f float64) Rect {
	return Rect{X0: r.X0 * f, Y0: r.Y0 * f, X1: r.X1 * f, Y1: r.Y1 * f}
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Intersects reports whether r and s overlap.
func (r Rect) Intersects(s Rect) bool {
	return r.X0 < s.X1 && s.X0 < r.X1 && r.Y0 < s.Y1 && s.Y0 < r.Y1
}

// ToImageRect converts the rectangle to an image.Rectangle, clamped to bounds.
func (r Rect) ToImageRect(bounds image.Rectangle) image.Rectangle {
	x0 := clampInt(int(math.Floor(r.X0)), bounds.Min.X, bounds.Max.X)
	y0 := clampInt(int(math.Floor(r.Y0)), bounds.Min.Y, bounds.Max.Y)
	x1 := clampInt(int(math.Ceil(r.X1)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Ceil(r.Y1)), bounds.Min.Y, bounds.Max.Y)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return image.Rect(x0, y0, x1, y1)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
