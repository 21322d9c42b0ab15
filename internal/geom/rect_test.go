package geom

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewRect_Normalizes(t *testing.T) {
	r := NewRect(10, 10, 5, 5)
	assert.Equal(t, Rect{X0: 5, Y0: 5, X1: 10, Y1: 10}, r)
	assert.True(t, r.IsNormalized())
}

func TestNewRect_NormalizesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x0 := rapid.Float64Range(-1000, 1000).Draw(t, "x0")
		y0 := rapid.Float64Range(-1000, 1000).Draw(t, "y0")
		dx := rapid.Float64Range(0.5, 500).Draw(t, "dx")
		dy := rapid.Float64Range(0.5, 500).Draw(t, "dy")
		flipX := rapid.Bool().Draw(t, "flipX")
		flipY := rapid.Bool().Draw(t, "flipY")

		ax, bx := x0, x0+dx
		if flipX {
			ax, bx = bx, ax
		}
		ay, by := y0, y0+dy
		if flipY {
			ay, by = by, ay
		}

		r := NewRect(ax, ay, bx, by)
		if !r.IsNormalized() {
			t.Fatalf("rect %v is not normalized", r)
		}
	})
}

func TestRect_Contains(t *testing.T) {
	outer := NewRect(0, 0, 100, 100)

	tests := []struct {
		name  string
		inner Rect
		want  bool
	}{
		{name: "fully inside", inner: NewRect(10, 10, 20, 20), want: true},
		{name: "same rect", inner: outer, want: true},
		{name: "touching edge", inner: NewRect(90, 90, 100, 100), want: true},
		{name: "partially outside", inner: NewRect(90, 90, 110, 95), want: false},
		{name: "disjoint", inner: NewRect(200, 200, 210, 210), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outer.Contains(tt.inner))
		})
	}
}

func TestRect_Intersects(t *testing.T) {
	a := NewRect(0, 0, 10, 10)
	assert.True(t, a.Intersects(NewRect(5, 5, 15, 15)))
	assert.False(t, a.Intersects(NewRect(10, 0, 20, 10)), "shared edge has no area")
	assert.False(t, a.Intersects(NewRect(20, 20, 30, 30)))
}

func TestRect_WidenX(t *testing.T) {
	page := NewRect(0, 0, 612, 792)

	widened := NewRect(100, 50, 120, 60).WidenX(20, page)
	assert.Equal(t, NewRect(80, 50, 140, 60), widened)

	clamped := NewRect(5, 50, 600, 60).WidenX(20, page)
	assert.Equal(t, NewRect(0, 50, 612, 60), clamped)

	unbounded := NewRect(5, 50, 15, 60).WidenX(20, Rect{})
	assert.Equal(t, NewRect(-15, 50, 35, 60), unbounded)
}

func TestRect_Union(t *testing.T) {
	u := NewRect(0, 0, 10, 10).Union(NewRect(5, -5, 20, 8))
	assert.Equal(t, NewRect(0, -5, 20, 10), u)
}

func TestRect_IsFinite(t *testing.T) {
	assert.True(t, NewRect(0, 0, 10, 10).IsFinite())
	assert.False(t, Rect{X0: math.NaN(), X1: 10, Y1: 10}.IsFinite())
	assert.False(t, Rect{X1: math.Inf(1), Y1: 10}.IsFinite())
	assert.False(t, Rect{X1: 10, Y0: math.Inf(-1)}.IsFinite())
}

func TestRect_JSON(t *testing.T) {
	data, err := json.Marshal(NewRect(1, 2, 3, 4.5))
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2,3,4.5]`, string(data))

	var r Rect
	require.NoError(t, json.Unmarshal([]byte(`[5, 6, 7, 8]`), &r))
	assert.Equal(t, Rect{X0: 5, Y0: 6, X1: 7, Y1: 8}, r)

	assert.Error(t, json.Unmarshal([]byte(`[1, 2, 3]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"x0": 1}`), &r))
}
