// Package undo keeps a last-in-first-out log of presentation changes.
//
// Every [Stack.Extend] (or [Stack.Push]) captures the values about to be
// overwritten before writing anything, pushes them as a single composite
// entry and then writes the requested values. [Stack.Pop] restores the most
// recent entry. A batch touching several selections and categories is
// therefore undone by exactly one Pop.
package undo

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/snapshot"
)

// DefaultDuration is the transition length used for highlight and undo
// writes when the caller has no preference.
const DefaultDuration = 500 * time.Millisecond

// Request is one selection and the values to write on it.
type Request struct {
	Selection scene.Selection
	Values    snapshot.Values
}

// Stack is an undo log over a snapshot store. It is not safe for
// concurrent use.
type Stack struct {
	store   *snapshot.Store
	entries []snapshot.Snapshot
	logger  *log.Logger
}

// New creates an empty stack writing through store.
func New(store *snapshot.Store, logger *log.Logger) *Stack {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Stack{store: store, logger: logger}
}

// Extend records the current values of every name requested by batch, pushes
// them as one entry, then writes the requested values over d. Nothing is
// pushed or written if any request names an unknown category.
func (s *Stack) Extend(batch []Request, d time.Duration) (snapshot.Report, error) {
	captured := make([]snapshot.Snapshot, 0, len(batch))
	for _, req := range batch {
		snap, err := s.store.Capture(req.Selection, snapshot.Names(req.Values))
		if err != nil {
			return snapshot.Report{}, err
		}
		captured = append(captured, snap)
	}
	s.entries = append(s.entries, snapshot.Merge(captured...))

	var r snapshot.Report
	for _, req := range batch {
		r.Add(s.store.Write(req.Selection, req.Values, d))
	}
	s.logger.Debug("undo entry pushed", "requests", len(batch), "written", r.Written, "depth", len(s.entries))
	return r, nil
}

// Push is Extend with a single request.
func (s *Stack) Push(sel scene.Selection, values snapshot.Values, d time.Duration) (snapshot.Report, error) {
	return s.Extend([]Request{{Selection: sel, Values: values}}, d)
}

// Pop removes the most recent entry and restores it over d. It reports false
// and does nothing when the stack is empty.
func (s *Stack) Pop(d time.Duration) (snapshot.Report, bool) {
	if len(s.entries) == 0 {
		return snapshot.Report{}, false
	}
	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	r := s.store.Apply(top, d)
	if len(r.Stale) > 0 {
		s.logger.Debug("undo skipped removed elements", "count", len(r.Stale))
	}
	return r, true
}

// Len returns the number of entries.
func (s *Stack) Len() int { return len(s.entries) }

// Peek returns the most recent entry without removing it.
func (s *Stack) Peek() (snapshot.Snapshot, bool) {
	if len(s.entries) == 0 {
		return nil, false
	}
	return s.entries[len(s.entries)-1], true
}

// Clear drops every entry without restoring anything.
func (s *Stack) Clear() { s.entries = nil }
