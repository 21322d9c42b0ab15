// Package geom holds the rectangle type shared by the region store, the
// resolution engine and the PDF text layout.
package geom

import (
	"fmt"
	"math"

	"github.com/goccy/go-json"
)

// Rect is an axis-aligned rectangle in document coordinate space.
// A normalized Rect has X0 <= X1 and Y0 <= Y1.
type Rect struct {
	X0 float64
	Y0 float64
	X1 float64
	Y1 float64
}

// NewRect returns a normalized rectangle regardless of the order in which the
// corners are supplied.
func NewRect(x0, y0, x1, y1 float64) Rect {
	return Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}.Normalize()
}

// Normalize swaps reversed coordinates.
func (r Rect) Normalize() Rect {
	if r.X0 > r.X1 {
		r.X0, r.X1 = r.X1, r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y0, r.Y1 = r.Y1, r.Y0
	}
	return r
}

// IsNormalized reports whether X0 < X1 and Y0 < Y1.
func (r Rect) IsNormalized() bool {
	return r.X0 < r.X1 && r.Y0 < r.Y1
}

// Width of the rectangle.
func (r Rect) Width() float64 { return math.Abs(r.X1 - r.X0) }

// Height of the rectangle.
func (r Rect) Height() float64 { return math.Abs(r.Y1 - r.Y0) }

// IsFinite reports whether every coordinate is a real number. NaN and
// infinite coordinates cannot be persisted.
func (r Rect) IsFinite() bool {
	for _, v := range [...]float64{r.X0, r.Y0, r.X1, r.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.Width() == 0 || r.Height() == 0 }

// Center returns the midpoint of the rectangle.
func (r Rect) Center() (float64, float64) {
	return (r.X0 + r.X1) / 2, (r.Y0 + r.Y1) / 2
}

// ContainsPoint reports whether (x, y) lies inside r, edges included.
func (r Rect) ContainsPoint(x, y float64) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Contains reports whether o lies entirely inside r, edges included.
func (r Rect) Contains(o Rect) bool {
	return o.X0 >= r.X0 && o.Y0 >= r.Y0 && o.X1 <= r.X1 && o.Y1 <= r.Y1
}

// Intersects reports whether r and o share a region of positive area.
func (r Rect) Intersects(o Rect) bool {
	return r.X0 < o.X1 && o.X0 < r.X1 && r.Y0 < o.Y1 && o.Y0 < r.Y1
}

// Union returns the smallest rectangle covering both r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Clamp restricts r to bounds. An empty bounds rectangle leaves r unchanged.
func (r Rect) Clamp(bounds Rect) Rect {
	if bounds.IsEmpty() {
		return r
	}
	r.X0 = math.Max(r.X0, bounds.X0)
	r.Y0 = math.Max(r.Y0, bounds.Y0)
	r.X1 = math.Min(r.X1, bounds.X1)
	r.Y1 = math.Min(r.Y1, bounds.Y1)
	if r.X0 > r.X1 {
		r.X1 = r.X0
	}
	if r.Y0 > r.Y1 {
		r.Y1 = r.Y0
	}
	return r
}

// WidenX expands the left and right edges by margin and clamps the result to
// bounds, so context lookups pick up neighbouring words.
func (r Rect) WidenX(margin float64, bounds Rect) Rect {
	r.X0 -= margin
	r.X1 += margin
	return r.Clamp(bounds)
}

// String implements fmt.Stringer.
func (r Rect) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f, %.2f)", r.X0, r.Y0, r.X1, r.Y1)
}

// MarshalJSON encodes the rectangle as [x0, y0, x1, y1].
func (r Rect) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{r.X0, r.Y0, r.X1, r.Y1})
}

// UnmarshalJSON decodes [x0, y0, x1, y1].
func (r *Rect) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("rect: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("rect: expected 4 coordinates, got %d", len(coords))
	}
	*r = Rect{X0: coords[0], Y0: coords[1], X1: coords[2], Y1: coords[3]}
	return nil
}
