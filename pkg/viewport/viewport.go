// Package viewport controls the pan and zoom transform of an image canvas.
//
// A [Controller] owns three pieces of state: the current transform, the
// default transform (the most recent fit of the content into the container)
// and a navigation stack of earlier transforms. Every change is written to
// the "transform" attribute of the canvas element, immediately or through a
// transition on the canvas key of the shared scheduler, so a newer zoom
// always supersedes a running one.
//
// [Controller.Transform] reads the transform back from the canvas instead of
// the cached field: mid-transition, or after a gesture wrote the attribute
// directly, the canvas is the authority.
package viewport

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/transition"
)

// CanvasKey is the scheduler key of canvas transform transitions.
const CanvasKey = "canvas/transform"

// DefaultSmoothDuration is the transition length of smooth zooms.
const DefaultSmoothDuration = 750 * time.Millisecond

// Event describes a transform change.
type Event struct {
	// Op names the operation: "zoom", "smooth", "reset", "fit", "push",
	// "pop" or "restore".
	Op        string
	Transform transform.Transform
	Duration  time.Duration
}

// State is the serializable controller state.
type State struct {
	Current    transform.Transform   `json:"current"`
	Default    transform.Transform   `json:"default"`
	Navigation []transform.Transform `json:"navigation,omitempty"`
}

// Options configures a Controller.
type Options struct {
	// Size reports the container size. Required for fitting.
	Size func() transform.Size
	// Bounds reports the content bounding box. Required for fitting.
	Bounds func() transform.Rect
	// Extent bounds the scale. Zero means transform.DefaultExtent.
	Extent transform.Extent
	// Scheduler runs smooth zooms. Nil creates a private scheduler.
	Scheduler *transition.Scheduler
	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// Controller drives the transform of one canvas element. It is not safe for
// concurrent use.
type Controller struct {
	doc    *scene.Document
	canvas scene.Handle
	anim   *transition.Scheduler
	size   func() transform.Size
	bounds func() transform.Rect
	extent transform.Extent
	logger *log.Logger

	current   transform.Transform
	def       transform.Transform
	stack     []transform.Transform
	observers []func(Event)
}

// New creates a controller for the canvas element of doc. Both the current
// and the default transform start at identity.
func New(doc *scene.Document, canvas scene.Handle, opts Options) *Controller {
	if opts.Extent == (transform.Extent{}) {
		opts.Extent = transform.DefaultExtent
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Scheduler == nil {
		opts.Scheduler = transition.NewScheduler(transition.WithLogger(opts.Logger))
	}
	if opts.Size == nil {
		opts.Size = func() transform.Size { return transform.Size{} }
	}
	if opts.Bounds == nil {
		opts.Bounds = func() transform.Rect { return transform.Rect{} }
	}
	return &Controller{
		doc:     doc,
		canvas:  canvas,
		anim:    opts.Scheduler,
		size:    opts.Size,
		bounds:  opts.Bounds,
		extent:  opts.Extent,
		logger:  opts.Logger,
		current: transform.Identity,
		def:     transform.Identity,
	}
}

// Observe registers fn to be called after every transform change, with the
// target transform of the change.
func (c *Controller) Observe(fn func(Event)) {
	c.observers = append(c.observers, fn)
}

func (c *Controller) emit(op string, t transform.Transform, d time.Duration) {
	ev := Event{Op: op, Transform: t, Duration: d}
	for _, fn := range c.observers {
		fn(ev)
	}
}

// Extent returns the scale range.
func (c *Controller) Extent() transform.Extent { return c.extent }

// Current returns the cached target of the most recent change.
func (c *Controller) Current() transform.Transform { return c.current }

// Default returns the most recent fit transform.
func (c *Controller) Default() transform.Transform { return c.def }

// Depth returns the number of saved navigation entries.
func (c *Controller) Depth() int { return len(c.stack) }

// Zoom clamps scale, makes (scale, translate) the current transform and
// writes it to the canvas at once, cancelling any running canvas transition.
func (c *Controller) Zoom(scale float64, translate transform.Point) transform.Transform {
	return c.immediate("zoom", scale, translate)
}

func (c *Controller) immediate(op string, scale float64, translate transform.Point) transform.Transform {
	t := c.set(scale, translate)
	c.anim.Cancel(CanvasKey)
	c.write(t)
	c.emit(op, t, 0)
	return t
}

// Apply is Zoom for a whole transform. Gesture decoders call it.
func (c *Controller) Apply(t transform.Transform) transform.Transform {
	return c.Zoom(t.Scale, t.Translate)
}

// SmoothZoom is like Zoom but animates the canvas over d. A non-positive d
// writes immediately.
func (c *Controller) SmoothZoom(scale float64, translate transform.Point, d time.Duration) *transition.Transition {
	return c.smooth("smooth", c.set(scale, translate), d)
}

// ZoomTo animates to t over d.
func (c *Controller) ZoomTo(t transform.Transform, d time.Duration) *transition.Transition {
	return c.SmoothZoom(t.Scale, t.Translate, d)
}

func (c *Controller) smooth(op string, t transform.Transform, d time.Duration) *transition.Transition {
	from := t.String()
	if v, ok := c.doc.Attr(c.canvas, "transform"); ok {
		from = v
	}
	tr := c.anim.Start(CanvasKey, d, from, t.String(), func(v string) error {
		return c.doc.SetAttr(c.canvas, "transform", v)
	})
	c.logger.Debug("zoom", "op", op, "scale", t.Scale, "translate", t.Translate, "duration", d)
	c.emit(op, t, d)
	return tr
}

func (c *Controller) set(scale float64, translate transform.Point) transform.Transform {
	c.current = transform.Transform{Scale: c.extent.Clamp(scale), Translate: translate}
	return c.current
}

func (c *Controller) write(t transform.Transform) {
	if err := c.doc.SetAttr(c.canvas, "transform", t.String()); err != nil {
		c.logger.Warn("canvas write failed", "err", err)
	}
}

// ResetZoom returns at once to the default transform.
func (c *Controller) ResetZoom() transform.Transform {
	return c.immediate("reset", c.def.Scale, c.def.Translate)
}

// Fit computes the transform that fits the current content bounds into the
// container, with its scale clamped to the extent. A clamped fit stays
// centered on the content. Degenerate bounds yield identity and
// transform.ErrEmptyBounds.
func (c *Controller) Fit() (transform.Transform, error) {
	bounds, size := c.bounds(), c.size()
	t, err := transform.Fit(bounds, size)
	if err != nil {
		return t, err
	}
	if s := c.extent.Clamp(t.Scale); s != t.Scale {
		center := transform.Point{X: bounds.X + bounds.Width/2, Y: bounds.Y + bounds.Height/2}
		t = transform.Transform{Scale: s, Translate: size.Center().Sub(center.Mul(s))}
	}
	return t, nil
}

// ZoomToFit recomputes the fit, stores it as the default transform and resets
// to it immediately. If the content bounds are degenerate the identity
// transform is used and transform.ErrEmptyBounds is returned.
func (c *Controller) ZoomToFit() (transform.Transform, error) {
	t, err := c.refit()
	c.immediate("fit", t.Scale, t.Translate)
	return t, err
}

// ZoomToFitSmooth is ZoomToFit animated over d.
func (c *Controller) ZoomToFitSmooth(d time.Duration) (*transition.Transition, error) {
	t, err := c.refit()
	t = c.set(t.Scale, t.Translate)
	return c.smooth("fit", t, d), err
}

func (c *Controller) refit() (transform.Transform, error) {
	t, err := c.Fit()
	if errors.Is(err, transform.ErrEmptyBounds) {
		c.logger.Debug("content bounds are empty, fitting identity")
	}
	c.def = t
	return c.def, err
}

// Transform returns the transform currently written on the canvas. If the
// attribute is missing or malformed the cached current transform is returned.
func (c *Controller) Transform() transform.Transform {
	v, ok := c.doc.Attr(c.canvas, "transform")
	if !ok {
		return c.current
	}
	t, err := transform.Parse(v)
	if err != nil {
		c.logger.Debug("canvas transform unreadable, using cached value", "value", v, "err", err)
		return c.current
	}
	return t
}

// PushZoom saves the live canvas transform on the navigation stack and
// animates to t over d.
func (c *Controller) PushZoom(t transform.Transform, d time.Duration) *transition.Transition {
	c.stack = append(c.stack, c.Transform())
	t = c.set(t.Scale, t.Translate)
	return c.smooth("push", t, d)
}

// PopZoom animates back to the most recently pushed transform. With an empty
// navigation stack it fits the content instead.
func (c *Controller) PopZoom(d time.Duration) *transition.Transition {
	if len(c.stack) == 0 {
		tr, _ := c.ZoomToFitSmooth(d)
		return tr
	}
	t := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	t = c.set(t.Scale, t.Translate)
	return c.smooth("pop", t, d)
}

// State returns a copy of the controller state.
func (c *Controller) State() State {
	return State{
		Current:    c.current,
		Default:    c.def,
		Navigation: append([]transform.Transform(nil), c.stack...),
	}
}

// Restore replaces the controller state and writes the current transform to
// the canvas immediately.
func (c *Controller) Restore(s State) {
	c.def = s.Default
	if c.def.Scale == 0 {
		c.def = transform.Identity
	}
	c.stack = append([]transform.Transform(nil), s.Navigation...)
	if s.Current.Scale == 0 {
		s.Current = c.def
	}
	c.immediate("restore", s.Current.Scale, s.Current.Translate)
}
