package viewport

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/transition"
)

type fixture struct {
	doc    *scene.Document
	canvas scene.Handle
	anim   *transition.Scheduler
	now    time.Time
	bounds transform.Rect
	ctrl   *Controller
	events []Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:    time.Unix(0, 0),
		bounds: transform.Rect{Width: 200, Height: 100},
	}
	f.doc = scene.New("svg")
	canvas, err := f.doc.Append(f.doc.Root(), "g", scene.Attr{Name: "class", Value: "canvas"})
	if err != nil {
		t.Fatal(err)
	}
	f.canvas = canvas
	f.anim = transition.NewScheduler(transition.WithClock(func() time.Time { return f.now }))
	f.ctrl = New(f.doc, canvas, Options{
		Size:      func() transform.Size { return transform.Size{Width: 400, Height: 300} },
		Bounds:    func() transform.Rect { return f.bounds },
		Scheduler: f.anim,
	})
	f.ctrl.Observe(func(e Event) { f.events = append(f.events, e) })
	return f
}

func (f *fixture) attr() string {
	v, _ := f.doc.Attr(f.canvas, "transform")
	return v
}

func (f *fixture) settle() {
	f.now = f.now.Add(time.Hour)
	f.anim.Tick()
}

func (f *fixture) ops() []string {
	var out []string
	for _, e := range f.events {
		out = append(out, e.Op)
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestZoomClamps(t *testing.T) {
	tests := []struct {
		name  string
		scale float64
		want  float64
	}{
		{"InRange", 2, 2},
		{"BelowMin", 0.01, 0.1},
		{"AboveMax", 100, 8},
		{"AtMax", 8, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			got := f.ctrl.Zoom(tt.scale, transform.Point{X: 3, Y: -4})
			if got.Scale != tt.want {
				t.Errorf("scale = %v, want %v", got.Scale, tt.want)
			}
			if want := transform.Format(got); f.attr() != want {
				t.Errorf("canvas transform = %q, want %q", f.attr(), want)
			}
		})
	}
}

func TestZoomToFit(t *testing.T) {
	f := newFixture(t)
	got, err := f.ctrl.ZoomToFit()
	if err != nil {
		t.Fatalf("ZoomToFit: %v", err)
	}
	want := transform.Transform{Scale: 2, Translate: transform.Point{X: 0, Y: 50}}
	if got != want {
		t.Errorf("fit = %+v, want %+v", got, want)
	}
	if f.ctrl.Default() != want || f.ctrl.Transform() != want {
		t.Errorf("default = %+v, live = %+v", f.ctrl.Default(), f.ctrl.Transform())
	}
	if f.attr() != "translate(0,50)scale(2)" {
		t.Errorf("canvas = %q", f.attr())
	}
}

func TestZoomToFitEmptyBounds(t *testing.T) {
	f := newFixture(t)
	f.bounds = transform.Rect{X: 5, Width: 0, Height: 10}
	got, err := f.ctrl.ZoomToFit()
	if !errors.Is(err, transform.ErrEmptyBounds) {
		t.Errorf("err = %v, want ErrEmptyBounds", err)
	}
	if got != transform.Identity || f.ctrl.Transform() != transform.Identity {
		t.Errorf("fit = %+v, want identity", got)
	}
	if math.IsInf(f.ctrl.Current().Scale, 0) || math.IsNaN(f.ctrl.Current().Scale) {
		t.Error("degenerate bounds leaked into the transform")
	}
}

func TestFitClampedStaysCentered(t *testing.T) {
	f := newFixture(t)
	f.bounds = transform.Rect{X: 10, Y: 10, Width: 2, Height: 2}
	got, err := f.ctrl.Fit()
	if err != nil {
		t.Fatal(err)
	}
	if got.Scale != 8 {
		t.Errorf("scale = %v, want clamped 8", got.Scale)
	}
	center := got.Apply(transform.Point{X: 11, Y: 11})
	if !near(center.X, 200) || !near(center.Y, 150) {
		t.Errorf("content center maps to %v, want (200,150)", center)
	}
}

func TestZoomToFitStoresClampedDefault(t *testing.T) {
	f := newFixture(t)
	f.bounds = transform.Rect{X: 10, Y: 10, Width: 2, Height: 2}
	fit, err := f.ctrl.ZoomToFit()
	if err != nil {
		t.Fatal(err)
	}
	if f.ctrl.Default() != fit || fit.Scale != 8 {
		t.Errorf("default = %+v, fit = %+v; want clamped scale 8", f.ctrl.Default(), fit)
	}

	f.ctrl.Zoom(2, transform.Point{})
	if got := f.ctrl.ResetZoom(); got != fit {
		t.Errorf("reset = %+v, want %+v", got, fit)
	}
}

func TestSmoothZoom(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Zoom(1, transform.Point{})

	tr := f.ctrl.SmoothZoom(3, transform.Point{X: 100, Y: 0}, time.Second)
	if f.ctrl.Current().Scale != 3 {
		t.Errorf("cached scale = %v, want 3 at start", f.ctrl.Current().Scale)
	}
	if f.ctrl.Transform().Scale != 1 {
		t.Errorf("live scale = %v, want 1 before any frame", f.ctrl.Transform().Scale)
	}

	f.now = f.now.Add(500 * time.Millisecond)
	f.anim.Tick()
	mid := f.ctrl.Transform()
	if !near(mid.Scale, 2) || !near(mid.Translate.X, 50) {
		t.Errorf("mid transform = %+v, want scale 2 translate 50", mid)
	}

	f.settle()
	if f.attr() != "translate(100,0)scale(3)" {
		t.Errorf("final canvas = %q", f.attr())
	}
	select {
	case <-tr.Done():
	default:
		t.Error("transition should be done")
	}
}

func TestZoomSupersedesSmooth(t *testing.T) {
	f := newFixture(t)
	tr := f.ctrl.SmoothZoom(4, transform.Point{}, time.Second)
	f.ctrl.Zoom(2, transform.Point{})
	if !tr.Cancelled() {
		t.Error("immediate zoom should cancel the running transition")
	}
	f.settle()
	if f.attr() != "translate(0,0)scale(2)" {
		t.Errorf("canvas = %q", f.attr())
	}
}

func TestResetZoom(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ctrl.ZoomToFit()
	f.ctrl.Zoom(5, transform.Point{X: 7, Y: 7})
	got := f.ctrl.ResetZoom()
	if got != f.ctrl.Default() || f.attr() != "translate(0,50)scale(2)" {
		t.Errorf("reset = %+v, canvas %q", got, f.attr())
	}
}

func TestPushPopZoom(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ctrl.ZoomToFit()
	fit := f.ctrl.Transform()

	a := transform.Transform{Scale: 4, Translate: transform.Point{X: -100, Y: -100}}
	b := transform.Transform{Scale: 6, Translate: transform.Point{X: -300, Y: -200}}
	f.ctrl.PushZoom(a, 0)
	f.ctrl.PushZoom(b, 0)
	if f.ctrl.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", f.ctrl.Depth())
	}

	f.ctrl.PopZoom(0)
	if got := f.ctrl.Transform(); got != a {
		t.Errorf("after first pop = %+v, want %+v", got, a)
	}
	f.ctrl.PopZoom(0)
	if got := f.ctrl.Transform(); got != fit {
		t.Errorf("after second pop = %+v, want %+v", got, fit)
	}

	// Popping an empty stack fits the content.
	f.ctrl.Zoom(7, transform.Point{})
	f.bounds = transform.Rect{Width: 400, Height: 300}
	f.ctrl.PopZoom(0)
	want := transform.Transform{Scale: 1}
	if got := f.ctrl.Transform(); got != want || f.ctrl.Default() != want {
		t.Errorf("pop on empty = %+v (default %+v), want %+v", got, f.ctrl.Default(), want)
	}
}

func TestPushZoomReadsLiveCanvas(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Zoom(1, transform.Point{})
	f.ctrl.SmoothZoom(3, transform.Point{}, time.Second)
	f.now = f.now.Add(500 * time.Millisecond)
	f.anim.Tick()

	live := f.ctrl.Transform()
	f.ctrl.PushZoom(transform.Transform{Scale: 5}, 0)
	f.ctrl.PopZoom(0)
	if got := f.ctrl.Transform(); got != live {
		t.Errorf("popped %+v, want the mid-transition value %+v", got, live)
	}
}

func TestTransformFallback(t *testing.T) {
	f := newFixture(t)
	f.ctrl.Zoom(2, transform.Point{X: 1, Y: 1})

	// A gesture writing the canvas directly is visible.
	_ = f.doc.SetAttr(f.canvas, "transform", "translate(9,9)scale(3)")
	if got := f.ctrl.Transform(); got.Scale != 3 || got.Translate.X != 9 {
		t.Errorf("live = %+v", got)
	}

	_ = f.doc.SetAttr(f.canvas, "transform", "rotate(45)")
	if got := f.ctrl.Transform(); got != f.ctrl.Current() {
		t.Errorf("malformed transform should fall back, got %+v", got)
	}
	_ = f.doc.RemoveAttr(f.canvas, "transform")
	if got := f.ctrl.Transform(); got != f.ctrl.Current() {
		t.Errorf("missing transform should fall back, got %+v", got)
	}
}

func TestStateRestore(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ctrl.ZoomToFit()
	f.ctrl.PushZoom(transform.Transform{Scale: 3}, 0)
	st := f.ctrl.State()

	g := newFixture(t)
	g.ctrl.Restore(st)
	if g.ctrl.Default() != st.Default || g.ctrl.Depth() != 1 {
		t.Errorf("restored default %+v depth %d", g.ctrl.Default(), g.ctrl.Depth())
	}
	if g.attr() != "translate(0,0)scale(3)" {
		t.Errorf("canvas = %q", g.attr())
	}
	g.ctrl.PopZoom(0)
	if got := g.ctrl.Transform(); got != st.Default {
		t.Errorf("pop after restore = %+v, want %+v", got, st.Default)
	}

	// Mutating the returned state must not leak into the controller.
	st.Navigation[0].Scale = 99
	if f.ctrl.State().Navigation[0].Scale == 99 {
		t.Error("State shares its navigation slice")
	}
}

func TestObserveOps(t *testing.T) {
	f := newFixture(t)
	_, _ = f.ctrl.ZoomToFit()
	f.ctrl.Zoom(2, transform.Point{})
	f.ctrl.PushZoom(transform.Transform{Scale: 3}, time.Second)
	f.ctrl.PopZoom(time.Second)
	f.ctrl.ResetZoom()
	_, _ = f.ctrl.ZoomToFitSmooth(time.Second)

	want := []string{"fit", "zoom", "push", "pop", "reset", "fit"}
	got := f.ops()
	if len(got) != len(want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ops = %v, want %v", got, want)
			break
		}
	}
	if f.events[2].Duration != time.Second {
		t.Errorf("push duration = %v", f.events[2].Duration)
	}
}
