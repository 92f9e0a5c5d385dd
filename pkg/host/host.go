// Package host embeds a loaded SVG into a zoomable container.
//
// A [Host] owns a container document (see the chrome layout in buildChrome)
// whose canvas group receives the loaded content. Once loaded, the host fits
// the content into the container, wires a gesture decoder to its
// [viewport.Controller] and hides any sub-groups listed in its options.
// Reversible highlighting goes through an [undo.Stack]; [Host.Show] and
// [Host.Hide] write directly and are not undoable.
//
// A Host is not safe for concurrent use. [Host.Do] serializes callers with
// the transition loop started by [Host.Run].
package host

import (
	"context"
	"io"
	"net/url"
	"path"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/gesture"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/observability"
	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/snapshot"
	"github.com/matzehuels/dynsvg/pkg/transform"
	"github.com/matzehuels/dynsvg/pkg/transition"
	"github.com/matzehuels/dynsvg/pkg/undo"
	"github.com/matzehuels/dynsvg/pkg/viewport"
)

// DefaultResetDuration is the length of the fit animation started by the
// reset button.
const DefaultResetDuration = 300 * time.Millisecond

// Container describes the element a host draws into.
type Container struct {
	ID     string  `json:"id"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Size returns the container size.
func (c Container) Size() transform.Size {
	return transform.Size{Width: c.Width, Height: c.Height}
}

// Options configures a Host. Zero durations select the package defaults;
// callers pass them to the operations that take a duration.
type Options struct {
	Loader         loader.Loader
	Extent         transform.Extent
	SmoothDuration time.Duration
	UndoDuration   time.Duration
	ResetDuration  time.Duration
	// Hide lists selectors hidden once the content has loaded.
	Hide []string
	// OnLoad runs after the initial fit and hiding.
	OnLoad func(*Host)
	// Scheduler runs transitions. Nil creates a private scheduler.
	Scheduler *transition.Scheduler
	Logger    *log.Logger
}

// Request is one element of a highlight batch. Selector is resolved relative
// to the canvas.
type Request struct {
	Selector string          `json:"selector"`
	Values   snapshot.Values `json:"values"`
}

// State is the persistent part of a host.
type State struct {
	View   viewport.State `json:"view"`
	Hidden []string       `json:"hidden,omitempty"`
}

// Host embeds one SVG document.
type Host struct {
	mu sync.Mutex

	container Container
	url       string
	opts      Options
	logger    *log.Logger

	doc     *scene.Document
	chrome  chrome
	content scene.Handle
	loaded  bool

	anim     *transition.Scheduler
	store    *snapshot.Store
	undo     *undo.Stack
	view     *viewport.Controller
	gestures *gesture.Decoder

	bound    bool
	memo     *transform.Rect
	hidden   []string
	hovering bool
}

// New creates the container document for c and prepares the viewport. The
// content is not fetched until Load. An empty container id is replaced by a
// random UUID.
func New(c Container, contentURL string, opts Options) *Host {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if opts.Loader == nil {
		opts.Loader = loader.New(loader.Options{Logger: opts.Logger})
	}
	if opts.SmoothDuration <= 0 {
		opts.SmoothDuration = viewport.DefaultSmoothDuration
	}
	if opts.UndoDuration <= 0 {
		opts.UndoDuration = undo.DefaultDuration
	}
	if opts.ResetDuration <= 0 {
		opts.ResetDuration = DefaultResetDuration
	}
	if opts.Scheduler == nil {
		opts.Scheduler = transition.NewScheduler(transition.WithLogger(opts.Logger))
	}
	logger := opts.Logger.With("host", c.ID)

	h := &Host{
		container: c,
		url:       contentURL,
		opts:      opts,
		logger:    logger,
		content:   scene.None,
		anim:      opts.Scheduler,
	}
	h.doc, h.chrome = buildChrome(c.Size())
	h.store = snapshot.NewStore(h.doc, h.anim, logger)
	h.undo = undo.New(h.store, logger)
	h.view = viewport.New(h.doc, h.chrome.canvas, viewport.Options{
		Size:      c.Size,
		Bounds:    h.BBox,
		Extent:    opts.Extent,
		Scheduler: h.anim,
		Logger:    logger,
	})
	h.view.Observe(func(e viewport.Event) {
		observability.View().OnZoom(h.container.ID, e.Op, e.Transform.Scale, e.Duration)
	})
	h.gestures = gesture.New(h.view.Extent())
	return h
}

// ID returns the container id.
func (h *Host) ID() string { return h.container.ID }

// URL returns the content URL.
func (h *Host) URL() string { return h.url }

// Name returns the content file name without its .svg extension.
func (h *Host) Name() string { return NameFromURL(h.url) }

// Container returns the container description.
func (h *Host) Container() Container { return h.container }

// Document returns the container document.
func (h *Host) Document() *scene.Document { return h.doc }

// Canvas returns the group that receives the zoom transform.
func (h *Host) Canvas() scene.Handle { return h.chrome.canvas }

// Content returns the root of the loaded content, or scene.None.
func (h *Host) Content() scene.Handle { return h.content }

// Loaded reports whether Load has succeeded.
func (h *Host) Loaded() bool { return h.loaded }

// Viewport returns the zoom controller.
func (h *Host) Viewport() *viewport.Controller { return h.view }

// Gestures returns the gesture decoder bound to the viewport after load.
func (h *Host) Gestures() *gesture.Decoder { return h.gestures }

// Undo returns the highlight undo stack.
func (h *Host) Undo() *undo.Stack { return h.undo }

// Scheduler returns the transition scheduler.
func (h *Host) Scheduler() *transition.Scheduler { return h.anim }

// Options returns the effective options.
func (h *Host) Options() Options { return h.opts }

// NameFromURL returns the last path element of u without a trailing ".svg".
func NameFromURL(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil && parsed.Path != "" {
		p = parsed.Path
	}
	return strings.TrimSuffix(path.Base(p), ".svg")
}

// Load fetches the content and imports it into the canvas, replacing any
// earlier content. It then binds gestures, fits the content, hides
// Options.Hide and calls Options.OnLoad.
func (h *Host) Load(ctx context.Context) error {
	hooks := observability.View()
	hooks.OnLoadStart(ctx, h.container.ID, h.url)
	start := time.Now()

	src, err := h.opts.Loader.Load(ctx, h.url)
	if err != nil {
		hooks.OnLoadComplete(ctx, h.container.ID, h.url, 0, time.Since(start), err)
		return err
	}
	h.attach(src)
	hooks.OnLoadComplete(ctx, h.container.ID, h.url, src.Len(), time.Since(start), nil)
	h.logger.Debug("loaded", "url", h.url, "elements", src.Len(), "duration", time.Since(start))

	if !h.bound {
		gesture.Bind(h.gestures, h.view)
		h.bound = true
	}
	if _, err := h.view.ZoomToFit(); err != nil {
		h.logger.Warn("content has no extent, using identity", "url", h.url)
	}
	if len(h.opts.Hide) > 0 {
		if err := h.Hide(h.opts.Hide...); err != nil {
			h.logger.Warn("hide after load failed", "err", err)
		}
	}
	if h.opts.OnLoad != nil {
		h.opts.OnLoad(h)
	}
	return nil
}

func (h *Host) attach(src *scene.Document) {
	h.anim.CancelAll()
	if h.content != scene.None {
		_ = h.doc.Remove(h.content)
	}
	h.content, _ = h.doc.Import(h.chrome.canvas, src)
	h.undo.Clear()
	h.memo = nil
	h.hidden = nil
	h.loaded = true
}

func (h *Host) requireLoaded() error {
	if !h.loaded {
		return apperrors.New(apperrors.ErrCodeNotLoaded, "host %s: content not loaded", h.container.ID)
	}
	return nil
}

// BBox returns the content bounding box in canvas coordinates. If the
// measurement is empty, hidden content elements are revealed for a second
// measurement and their display style and attribute are then restored to
// their prior values. The result is merged into a memo that only grows:
// width and height take the maximum seen, x and y the minimum.
func (h *Host) BBox() transform.Rect {
	r := h.doc.BBox(h.chrome.canvas)
	if r.Empty() && h.content != scene.None {
		r = h.measureRevealed()
	}
	if h.memo == nil {
		h.memo = &r
		return r
	}
	h.memo.Width = max(h.memo.Width, r.Width)
	h.memo.Height = max(h.memo.Height, r.Height)
	h.memo.X = min(h.memo.X, r.X)
	h.memo.Y = min(h.memo.Y, r.Y)
	return *h.memo
}

func (h *Host) measureRevealed() transform.Rect {
	var hidden scene.Selection
	h.doc.Walk(h.content, func(e scene.Handle) bool {
		if h.doc.Hidden(e) {
			hidden = append(hidden, e)
		}
		return true
	})
	if len(hidden) == 0 {
		return h.doc.BBox(h.chrome.canvas)
	}

	prior, err := h.store.Capture(hidden, displayNames)
	if err != nil {
		h.logger.Warn("capture display failed", "err", err)
		return h.doc.BBox(h.chrome.canvas)
	}
	h.store.Write(hidden, snapshot.Values{snapshot.Style: {"display": "block"}}, 0)
	r := h.doc.BBox(h.chrome.canvas)
	if err := h.store.Apply(prior, 0).Err(); err != nil {
		h.logger.Warn("restore display failed", "err", err)
	}
	return r
}

var displayNames = map[snapshot.Category][]string{
	snapshot.Style: {"display"},
	snapshot.Attr:  {"display"},
}

func (h *Host) selectAll(selectors ...string) (scene.Selection, error) {
	var out scene.Selection
	for _, s := range selectors {
		sel, err := h.doc.SelectAll(h.content, s)
		if err != nil {
			return nil, err
		}
		out = append(out, sel...)
	}
	return out, nil
}

// Show sets display:block on every element matched by selectors.
func (h *Host) Show(selectors ...string) error {
	if err := h.display(selectors, "block"); err != nil {
		return err
	}
	h.hidden = slices.DeleteFunc(h.hidden, func(s string) bool {
		return slices.Contains(selectors, s)
	})
	return nil
}

// Hide sets display:none on every element matched by selectors.
func (h *Host) Hide(selectors ...string) error {
	if err := h.display(selectors, "none"); err != nil {
		return err
	}
	for _, s := range selectors {
		if !slices.Contains(h.hidden, s) {
			h.hidden = append(h.hidden, s)
		}
	}
	return nil
}

func (h *Host) display(selectors []string, value string) error {
	if err := h.requireLoaded(); err != nil {
		return err
	}
	sel, err := h.selectAll(selectors...)
	if err != nil {
		return err
	}
	return h.store.Write(sel, snapshot.Values{snapshot.Style: {"display": value}}, 0).Err()
}

// Hidden returns the selectors currently hidden through Hide, in the order
// they were first hidden.
func (h *Host) Hidden() []string { return slices.Clone(h.hidden) }

// Push applies values to the elements matched by selector and records their
// previous values on the undo stack. The new values are animated over d.
func (h *Host) Push(selector string, values snapshot.Values, d time.Duration) (snapshot.Report, error) {
	return h.Extend([]Request{{Selector: selector, Values: values}}, d)
}

// Extend applies a batch of requests as one undoable step.
func (h *Host) Extend(reqs []Request, d time.Duration) (snapshot.Report, error) {
	if err := h.requireLoaded(); err != nil {
		return snapshot.Report{}, err
	}
	batch := make([]undo.Request, 0, len(reqs))
	for _, r := range reqs {
		sel, err := h.selectAll(r.Selector)
		if err != nil {
			return snapshot.Report{}, err
		}
		batch = append(batch, undo.Request{Selection: sel, Values: r.Values})
	}
	rep, err := h.undo.Extend(batch, d)
	if err != nil {
		return rep, err
	}
	observability.View().OnUndo(h.container.ID, "extend", h.undo.Len())
	return rep, nil
}

// Pop restores the values recorded by the most recent Push or Extend. It
// reports false when there was nothing to undo.
func (h *Host) Pop(d time.Duration) (snapshot.Report, bool) {
	rep, ok := h.undo.Pop(d)
	if ok {
		observability.View().OnUndo(h.container.ID, "pop", h.undo.Len())
	}
	return rep, ok
}

// Hover updates the reset button for a pointer at p, in container
// coordinates, and reports whether p is over the button.
func (h *Host) Hover(p transform.Point) bool {
	over := contains(h.resetArea(), p)
	if over != h.hovering {
		opacity := resetIdleOpacity
		if over {
			opacity = resetHoverOpacity
		}
		_ = h.doc.SetStyle(h.chrome.reset, "opacity", opacity)
		h.hovering = over
	}
	return over
}

// Click handles a click at p. A click on the reset button fits the content
// over Options.ResetDuration and returns the transition; other clicks return
// nil.
func (h *Host) Click(p transform.Point) *transition.Transition {
	if !contains(h.resetArea(), p) {
		return nil
	}
	tr, err := h.view.ZoomToFitSmooth(h.opts.ResetDuration)
	if err != nil {
		h.logger.Debug("reset with empty content", "err", err)
	}
	return tr
}

// WriteSVG writes the container document.
func (h *Host) WriteSVG(w io.Writer) (int64, error) {
	return h.doc.WriteTo(w)
}

// Settle completes every running transition.
func (h *Host) Settle() { h.anim.Flush() }

// State returns the persistent state.
func (h *Host) State() State {
	return State{View: h.view.State(), Hidden: h.Hidden()}
}

// Restore re-hides the recorded selectors and restores the viewport. The
// content must be loaded.
func (h *Host) Restore(s State) error {
	if err := h.requireLoaded(); err != nil {
		return err
	}
	if len(s.Hidden) > 0 {
		if err := h.Hide(s.Hidden...); err != nil {
			return err
		}
	}
	h.view.Restore(s.View)
	return nil
}

// Do runs fn with exclusive access to h.
func (h *Host) Do(fn func(*Host) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h)
}

// Run advances transitions every interval until ctx is done, holding the
// lock used by Do for each tick.
func (h *Host) Run(ctx context.Context, interval time.Duration) error {
	return h.anim.Run(ctx, interval, &h.mu)
}
