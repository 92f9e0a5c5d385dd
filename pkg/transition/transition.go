// Package transition animates string-valued properties over time.
//
// A [Scheduler] owns the running transitions of one document. Every
// transition is registered under a target key (for example
// "12/style/fill" or "canvas/transform"); starting a new transition on a key
// cancels the one already running there, so the last writer always wins.
//
// The scheduler does not run its own goroutine. Frames are produced by
// [Scheduler.Tick], which the owner calls from its event loop, or by
// [Scheduler.Run], which ticks on an interval under a caller supplied lock:
//
//	s := transition.NewScheduler()
//	tr := s.Start("canvas/transform", 750*time.Millisecond, from, to, setAttr)
//	go s.Run(ctx, 16*time.Millisecond, &mu)
//	_ = tr.Wait(ctx)
//
// A Scheduler is not safe for concurrent use; callers serialize access,
// typically with the same lock that guards the document.
package transition

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// Setter writes one frame of a transition to its target.
type Setter func(value string) error

// Ease maps linear progress in [0, 1] to eased progress.
type Ease func(t float64) float64

// CubicInOut is symmetric cubic easing.
func CubicInOut(t float64) float64 {
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}

// Linear applies no easing.
func Linear(t float64) float64 { return t }

// Transition is a single running property animation.
type Transition struct {
	key      string
	to       string
	interp   Interpolator
	start    time.Time
	duration time.Duration
	set      Setter

	done      chan struct{}
	cancelled bool
	err       error
}

// Key returns the target key the transition was started under.
func (t *Transition) Key() string { return t.key }

// Done is closed once the transition has written its final frame, failed,
// or been cancelled.
func (t *Transition) Done() <-chan struct{} { return t.done }

// Cancelled reports whether the transition was superseded or cancelled
// before reaching its final value. Only meaningful after Done is closed.
func (t *Transition) Cancelled() bool { return t.cancelled }

// Err returns the error of the last failed frame write, if any. Only
// meaningful after Done is closed.
func (t *Transition) Err() error { return t.err }

// Wait blocks until the transition finishes or ctx is done.
func (t *Transition) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Transition) finish(cancelled bool, err error) {
	t.cancelled = cancelled
	t.err = err
	close(t.done)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the time source. Tests use it to step time manually.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithEase sets the easing function applied to every transition.
func WithEase(e Ease) Option {
	return func(s *Scheduler) { s.ease = e }
}

// WithLogger sets the logger used for frame write failures.
func WithLogger(l *log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// Scheduler drives a set of keyed transitions.
type Scheduler struct {
	now    func() time.Time
	ease   Ease
	logger *log.Logger

	active []*Transition
	byKey  map[string]*Transition
}

// NewScheduler creates an idle scheduler with cubic in-out easing.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		now:   time.Now,
		ease:  CubicInOut,
		byKey: make(map[string]*Transition),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return s
}

// Start animates the value behind key from from to to over d, writing each
// frame through set. Any transition already running on key is cancelled
// first. If d is not positive, to is written immediately and the returned
// transition is already done.
func (s *Scheduler) Start(key string, d time.Duration, from, to string, set Setter) *Transition {
	s.Cancel(key)

	t := &Transition{
		key:      key,
		to:       to,
		start:    s.now(),
		duration: d,
		set:      set,
		done:     make(chan struct{}),
	}
	if d <= 0 {
		t.finish(false, set(to))
		return t
	}
	t.interp = Interpolate(from, to)
	s.active = append(s.active, t)
	s.byKey[key] = t
	return t
}

// Cancel stops the transition running on key, leaving the target at its
// last written frame. It reports whether a transition was running.
func (s *Scheduler) Cancel(key string) bool {
	t, ok := s.byKey[key]
	if !ok {
		return false
	}
	s.remove(t)
	t.finish(true, nil)
	return true
}

// CancelAll cancels every running transition.
func (s *Scheduler) CancelAll() {
	for _, t := range s.active {
		delete(s.byKey, t.key)
		t.finish(true, nil)
	}
	s.active = nil
}

// Running reports whether a transition is active on key.
func (s *Scheduler) Running(key string) bool {
	_, ok := s.byKey[key]
	return ok
}

// Active returns the number of running transitions.
func (s *Scheduler) Active() int { return len(s.active) }

// Tick writes the current frame of every running transition and retires the
// ones that reached their end. It returns the number still running.
func (s *Scheduler) Tick() int {
	now := s.now()
	for _, t := range append([]*Transition(nil), s.active...) {
		k := float64(now.Sub(t.start)) / float64(t.duration)
		if k >= 1 {
			s.complete(t)
			continue
		}
		if k < 0 {
			k = 0
		}
		if err := t.set(t.interp(s.ease(k))); err != nil {
			s.logger.Debug("transition frame failed", "key", t.key, "err", err)
			s.remove(t)
			t.finish(false, err)
		}
	}
	return len(s.active)
}

// Flush jumps every running transition to its final value.
func (s *Scheduler) Flush() {
	for _, t := range append([]*Transition(nil), s.active...) {
		s.complete(t)
	}
}

func (s *Scheduler) complete(t *Transition) {
	s.remove(t)
	err := t.set(t.to)
	if err != nil {
		s.logger.Debug("transition final frame failed", "key", t.key, "err", err)
	}
	t.finish(false, err)
}

func (s *Scheduler) remove(t *Transition) {
	delete(s.byKey, t.key)
	for i, a := range s.active {
		if a == t {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}

// Run calls Tick every interval while holding mu, until ctx is done.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration, mu sync.Locker) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			mu.Lock()
			s.Tick()
			mu.Unlock()
		}
	}
}
