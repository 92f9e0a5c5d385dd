package gesture

import (
	"math"
	"testing"

	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/viewport"
)

func nearPoint(a, b transform.Point) bool {
	return math.Abs(a.X-b.X) < 1e-9 && math.Abs(a.Y-b.Y) < 1e-9
}

func TestPan(t *testing.T) {
	d := New(transform.Extent{})
	var got []transform.Transform
	d.OnZoom(func(t transform.Transform) { got = append(got, t) })

	d.Pan(transform.Point{X: 10, Y: -5})
	d.Pan(transform.Point{X: 1, Y: 1})
	want := transform.Transform{Scale: 1, Translate: transform.Point{X: 11, Y: -4}}
	if d.State() != want {
		t.Errorf("state = %+v, want %+v", d.State(), want)
	}
	if len(got) != 2 {
		t.Errorf("listener called %d times, want 2", len(got))
	}
}

func TestZoomByKeepsFocus(t *testing.T) {
	tests := []struct {
		name   string
		start  transform.Transform
		factor float64
		focus  transform.Point
		want   float64
	}{
		{"In", transform.Identity, 2, transform.Point{X: 100, Y: 50}, 2},
		{"Out", transform.Transform{Scale: 4, Translate: transform.Point{X: -30, Y: 10}}, 0.5, transform.Point{X: 7, Y: 9}, 2},
		{"ClampMax", transform.Transform{Scale: 6}, 4, transform.Point{X: 1, Y: 1}, 8},
		{"ClampMin", transform.Transform{Scale: 0.2}, 0.1, transform.Point{}, 0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(transform.Extent{})
			d.Set(tt.start)
			anchor := tt.start.Invert(tt.focus)

			got := d.ZoomBy(tt.factor, tt.focus)
			if got.Scale != tt.want {
				t.Errorf("scale = %v, want %v", got.Scale, tt.want)
			}
			if p := got.Apply(anchor); !nearPoint(p, tt.focus) {
				t.Errorf("focus moved: content %v now at %v, want %v", anchor, p, tt.focus)
			}
		})
	}
}

func TestZoomByRejectsBadFactor(t *testing.T) {
	d := New(transform.Extent{})
	called := false
	d.OnZoom(func(transform.Transform) { called = true })
	for _, f := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if got := d.ZoomBy(f, transform.Point{}); got != transform.Identity {
			t.Errorf("ZoomBy(%v) = %+v", f, got)
		}
	}
	if called {
		t.Error("invalid factors must not notify listeners")
	}
}

func TestWheelAndDoubleClick(t *testing.T) {
	d := New(transform.Extent{})
	if got := d.Wheel(-500, transform.Point{}); got.Scale != 2 {
		t.Errorf("wheel -500 scale = %v, want 2", got.Scale)
	}
	if got := d.Wheel(500, transform.Point{}); got.Scale != 1 {
		t.Errorf("wheel +500 scale = %v, want 1", got.Scale)
	}
	if got := d.DoubleClick(transform.Point{}, false); got.Scale != 2 {
		t.Errorf("double click scale = %v, want 2", got.Scale)
	}
	if got := d.DoubleClick(transform.Point{}, true); got.Scale != 1 {
		t.Errorf("shift double click scale = %v, want 1", got.Scale)
	}
}

func TestBind(t *testing.T) {
	doc := scene.New("svg")
	canvas, _ := doc.Append(doc.Root(), "g")
	c := viewport.New(doc, canvas, viewport.Options{
		Extent: transform.Extent{Min: 0.5, Max: 4},
		Size:   func() transform.Size { return transform.Size{Width: 100, Height: 100} },
		Bounds: func() transform.Rect { return transform.Rect{Width: 50, Height: 50} },
	})
	d := New(transform.Extent{})
	Bind(d, c)

	d.Pan(transform.Point{X: 5, Y: 5})
	if v, _ := doc.Attr(canvas, "transform"); v != "translate(5,5)scale(1)" {
		t.Errorf("canvas = %q after pan", v)
	}

	// The controller's extent governs the decoder once bound.
	d.ZoomBy(100, transform.Point{})
	if c.Current().Scale != 4 {
		t.Errorf("scale = %v, want 4", c.Current().Scale)
	}

	// Controller changes move the decoder without echoing back.
	_, _ = c.ZoomToFit()
	if d.State() != c.Default() {
		t.Errorf("decoder = %+v, want %+v", d.State(), c.Default())
	}
	d.Pan(transform.Point{X: 1})
	want := c.Default()
	want.Translate.X++
	if c.Current() != want {
		t.Errorf("current = %+v, want %+v", c.Current(), want)
	}
}
