// Package transform implements the uniform scale + translate map applied to
// the canvas group of an image host.
//
// A [Transform] maps content coordinates p to container coordinates
// p*Scale + Translate. There is no rotation or skew: the canvas is only ever
// panned and zoomed.
//
// # Fitting
//
// [Fit] computes the transform that shows a content bounding box as large as
// possible inside a viewport while preserving its aspect ratio, centering the
// remaining slack on the axis that does not bind:
//
//	t, err := transform.Fit(transform.Rect{Width: 200, Height: 100}, transform.Size{Width: 400, Height: 300})
//	// t.Scale == 2, t.Translate == (0, 50)
//
// # Serialization
//
// [Format] writes the canonical attribute form "translate(tx,ty)scale(s)" and
// [Parse] reads it back. Numbers are written in their shortest exact decimal
// form, so Parse(Format(t)) == t for every finite transform.
package transform

import (
	"errors"
	"math"
)

// ErrEmptyBounds is returned by [Fit] when the content has zero width or height.
var ErrEmptyBounds = errors.New("empty content bounds")

// Point is a position or a displacement in 2D.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p-q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Mul returns p scaled by k.
func (p Point) Mul(k float64) Point { return Point{p.X * k, p.Y * k} }

// Size is the width and height of a viewport.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the midpoint of a viewport of this size.
func (s Size) Center() Point { return Point{s.Width / 2, s.Height / 2} }

// Rect is an axis-aligned bounding box in content coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Max returns the bottom-right corner of r.
func (r Rect) Max() Point { return Point{r.X + r.Width, r.Y + r.Height} }

// Union returns the smallest rectangle containing both r and o.
// An empty rectangle contributes nothing unless both are empty.
func (r Rect) Union(o Rect) Rect {
	if r.Width <= 0 && r.Height <= 0 {
		return o
	}
	if o.Width <= 0 && o.Height <= 0 {
		return r
	}
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1 := math.Max(r.X+r.Width, o.X+o.Width)
	y1 := math.Max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// RectFromPoints returns the bounding box of pts.
func RectFromPoints(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	x0, y0, x1, y1 := pts[0].X, pts[0].Y, pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		x0, x1 = math.Min(x0, p.X), math.Max(x1, p.X)
		y0, y1 = math.Min(y0, p.Y), math.Max(y1, p.Y)
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Transform is a uniform scale followed by a translation.
type Transform struct {
	Scale     float64 `json:"scale"`
	Translate Point   `json:"translate"`
}

// Identity is the transform that leaves content untouched.
var Identity = Transform{Scale: 1}

// Apply maps a content point into container coordinates.
func (t Transform) Apply(p Point) Point {
	return p.Mul(t.Scale).Add(t.Translate)
}

// Invert maps a container point back into content coordinates.
func (t Transform) Invert(p Point) Point {
	return p.Sub(t.Translate).Mul(1 / t.Scale)
}

// String returns the canonical attribute form of t.
func (t Transform) String() string { return Format(t) }

// Lerp interpolates linearly between a and b; k=0 yields a and k=1 yields b.
func Lerp(a, b Transform, k float64) Transform {
	if k >= 1 {
		return b
	}
	return Transform{
		Scale: a.Scale + (b.Scale-a.Scale)*k,
		Translate: Point{
			X: a.Translate.X + (b.Translate.X-a.Translate.X)*k,
			Y: a.Translate.Y + (b.Translate.Y-a.Translate.Y)*k,
		},
	}
}

// Extent bounds the scale a transform may take.
type Extent struct {
	Min float64 `json:"min" toml:"min" yaml:"min"`
	Max float64 `json:"max" toml:"max" yaml:"max"`
}

// DefaultExtent is the zoom range used when none is configured.
var DefaultExtent = Extent{Min: 0.1, Max: 8}

// Clamp limits s to [e.Min, e.Max]. Out-of-range values are never rejected.
func (e Extent) Clamp(s float64) float64 {
	if s < e.Min {
		return e.Min
	}
	if s > e.Max {
		return e.Max
	}
	return s
}

// ClampTransform returns t with its scale clamped to e.
func (e Extent) ClampTransform(t Transform) Transform {
	t.Scale = e.Clamp(t.Scale)
	return t
}

// Valid reports whether the extent describes a usable positive range.
func (e Extent) Valid() bool {
	return e.Min > 0 && e.Max >= e.Min && !math.IsInf(e.Max, 0)
}

// Fit returns the transform that scales content to the largest size that fits
// inside viewport without cropping, centered along the axis with slack.
//
// If content has zero width or height the scale would be infinite; Fit then
// returns [Identity] together with [ErrEmptyBounds].
func Fit(content Rect, viewport Size) (Transform, error) {
	if content.Width == 0 || content.Height == 0 {
		return Identity, ErrEmptyBounds
	}

	scale := viewport.Width / content.Width
	if sh := viewport.Height / content.Height; sh < scale {
		scale = sh
	}

	translate := Point{X: -content.X * scale, Y: -content.Y * scale}
	translate.X += 0.5 * (viewport.Width - content.Width*scale)
	translate.Y += 0.5 * (viewport.Height - content.Height*scale)

	return Transform{Scale: scale, Translate: translate}, nil
}
