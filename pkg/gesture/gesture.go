// Package gesture turns decoded pointer input into viewport transforms.
//
// A [Decoder] keeps its own copy of the transform, the way interactive zoom
// behaviors do, and reports every change to its listener. [Bind] connects a
// decoder to a [viewport.Controller] in both directions: gestures are
// applied to the controller, and controller changes resynchronize the
// decoder so the next gesture starts from the right place.
package gesture

import (
	"math"

	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/viewport"
)

// WheelScale is the wheel delta that halves or doubles the scale.
const WheelScale = 500

// Decoder accumulates pan and zoom gestures. It is not safe for concurrent
// use.
type Decoder struct {
	extent    transform.Extent
	state     transform.Transform
	listeners []func(transform.Transform)
}

// New creates a decoder at identity. A zero extent means
// transform.DefaultExtent.
func New(extent transform.Extent) *Decoder {
	if extent == (transform.Extent{}) {
		extent = transform.DefaultExtent
	}
	return &Decoder{extent: extent, state: transform.Identity}
}

// OnZoom registers fn to receive every transform produced by a gesture.
func (d *Decoder) OnZoom(fn func(transform.Transform)) {
	d.listeners = append(d.listeners, fn)
}

// State returns the decoder's transform.
func (d *Decoder) State() transform.Transform { return d.state }

// Set replaces the decoder's transform without notifying listeners.
func (d *Decoder) Set(t transform.Transform) {
	d.state = d.extent.ClampTransform(t)
}

func (d *Decoder) emit(t transform.Transform) transform.Transform {
	d.state = t
	for _, fn := range d.listeners {
		fn(t)
	}
	return t
}

// Pan shifts the translation by delta container pixels.
func (d *Decoder) Pan(delta transform.Point) transform.Transform {
	t := d.state
	t.Translate = t.Translate.Add(delta)
	return d.emit(t)
}

// ZoomBy multiplies the scale by factor, keeping the content under focus
// (in container coordinates) fixed. The result is clamped to the extent.
func (d *Decoder) ZoomBy(factor float64, focus transform.Point) transform.Transform {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return d.state
	}
	anchor := d.state.Invert(focus)
	scale := d.extent.Clamp(d.state.Scale * factor)
	return d.emit(transform.Transform{
		Scale:     scale,
		Translate: focus.Sub(anchor.Mul(scale)),
	})
}

// Wheel zooms around at by a wheel delta; positive dy zooms out.
func (d *Decoder) Wheel(dy float64, at transform.Point) transform.Transform {
	return d.ZoomBy(math.Pow(2, -dy/WheelScale), at)
}

// DoubleClick doubles the scale around at, or halves it when out is set.
func (d *Decoder) DoubleClick(at transform.Point, out bool) transform.Transform {
	if out {
		return d.ZoomBy(0.5, at)
	}
	return d.ZoomBy(2, at)
}

// Bind applies decoder gestures to c and keeps d in sync with every change c
// makes on its own.
func Bind(d *Decoder, c *viewport.Controller) {
	d.extent = c.Extent()
	d.Set(c.Transform())
	d.OnZoom(func(t transform.Transform) { c.Apply(t) })
	c.Observe(func(e viewport.Event) { d.Set(e.Transform) })
}
