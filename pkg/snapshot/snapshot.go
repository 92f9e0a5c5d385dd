// Package snapshot records and restores presentation values of elements.
//
// A [Store] reads the current value of named attributes or inline style
// properties for a selection of elements ([Store.Capture]) and writes
// recorded or requested values back ([Store.Apply], [Store.Write]), either
// immediately or animated through a [transition.Scheduler].
//
// Values are grouped by [Category]: [Style] addresses inline style
// properties, [Attr] plain attributes. A [Snapshot] keeps, per category, one
// [Entry] per element in selection order; [Merge] concatenates snapshots
// category by category, so the combined entry order is the order in which
// the snapshots were taken.
//
// Elements removed from the document between capture and apply are skipped
// and listed in [Report.Stale].
package snapshot

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"time"

	"github.com/charmbracelet/log"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transition"
)

// Category selects which family of presentation values a name refers to.
type Category string

const (
	// Style addresses inline style properties ("fill", "display", ...).
	Style Category = "style"
	// Attr addresses plain element attributes ("r", "transform", ...).
	Attr Category = "attr"
)

// Categories lists the supported categories in application order.
var Categories = []Category{Style, Attr}

// Valid reports whether c is a supported category.
func (c Category) Valid() bool { return c == Style || c == Attr }

// ParseCategory converts s to a Category, accepting "attribute" as an alias
// of "attr".
func ParseCategory(s string) (Category, error) {
	switch s {
	case "style":
		return Style, nil
	case "attr", "attribute":
		return Attr, nil
	}
	return "", apperrors.New(apperrors.ErrCodeInvalidCategory, "unknown category %q", s)
}

// Values maps categories to the desired value of each name.
type Values map[Category]map[string]string

// Names returns the sorted names requested per category.
func Names(v Values) map[Category][]string {
	out := make(map[Category][]string, len(v))
	for cat, m := range v {
		names := make([]string, 0, len(m))
		for name := range m {
			names = append(names, name)
		}
		sort.Strings(names)
		out[cat] = names
	}
	return out
}

// Value is a recorded value. Present is false when the attribute or style
// property did not exist; applying such a value removes it.
type Value struct {
	Text    string `json:"text"`
	Present bool   `json:"present"`
}

// Entry holds the recorded values of a single element.
type Entry struct {
	Element scene.Handle     `json:"element"`
	Attrs   map[string]Value `json:"attrs"`
}

// Snapshot holds recorded entries per category.
type Snapshot map[Category][]Entry

// Len returns the total number of entries across categories.
func (s Snapshot) Len() int {
	n := 0
	for _, entries := range s {
		n += len(entries)
	}
	return n
}

// Merge concatenates the entries of snaps category by category, preserving
// the order of snaps and of the entries within each.
func Merge(snaps ...Snapshot) Snapshot {
	out := make(Snapshot)
	for _, snap := range snaps {
		for _, cat := range sortedCategories(snap) {
			out[cat] = append(out[cat], snap[cat]...)
		}
	}
	return out
}

// Report summarizes a write.
type Report struct {
	// Written counts the (element, name) values written or animated.
	Written int
	// Stale lists elements that were skipped because they no longer exist.
	Stale []scene.Handle
}

// Add folds o into r.
func (r *Report) Add(o Report) {
	r.Written += o.Written
	for _, h := range o.Stale {
		if !slices.Contains(r.Stale, h) {
			r.Stale = append(r.Stale, h)
		}
	}
}

// Err returns an INVALID_ELEMENT error when any element was stale.
func (r Report) Err() error {
	if len(r.Stale) == 0 {
		return nil
	}
	handles := make([]int, len(r.Stale))
	for i, h := range r.Stale {
		handles[i] = int(h)
	}
	return apperrors.Wrap(apperrors.ErrCodeInvalidElement, &apperrors.StaleError{Handles: handles}, "skipped removed elements")
}

// Key returns the transition key for one value of one element.
func Key(h scene.Handle, cat Category, name string) string {
	return fmt.Sprintf("%d/%s/%s", h, cat, name)
}

// Store reads and writes presentation values on a document.
type Store struct {
	doc    *scene.Document
	anim   *transition.Scheduler
	logger *log.Logger
}

// NewStore creates a store over doc. Animated writes are scheduled on anim;
// if anim is nil a private scheduler is used. A nil logger discards output.
func NewStore(doc *scene.Document, anim *transition.Scheduler, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if anim == nil {
		anim = transition.NewScheduler(transition.WithLogger(logger))
	}
	return &Store{doc: doc, anim: anim, logger: logger}
}

// Document returns the document the store operates on.
func (s *Store) Document() *scene.Document { return s.doc }

// Scheduler returns the scheduler animated writes run on.
func (s *Store) Scheduler() *transition.Scheduler { return s.anim }

// Capture records the current value of every requested name for every live
// element of sel, in selection order. Stale handles are skipped.
func (s *Store) Capture(sel scene.Selection, names map[Category][]string) (Snapshot, error) {
	snap := make(Snapshot, len(names))
	for _, cat := range sortedCategories(names) {
		if !cat.Valid() {
			return nil, apperrors.New(apperrors.ErrCodeInvalidCategory, "unknown category %q", cat)
		}
		entries := make([]Entry, 0, len(sel))
		for _, h := range sel {
			if !s.doc.Valid(h) {
				s.logger.Debug("capture skipped stale element", "element", h)
				continue
			}
			attrs := make(map[string]Value, len(names[cat]))
			for _, name := range names[cat] {
				v, ok := s.read(h, cat, name)
				attrs[name] = Value{Text: v, Present: ok}
			}
			entries = append(entries, Entry{Element: h, Attrs: attrs})
		}
		snap[cat] = entries
	}
	return snap, nil
}

// Apply writes every recorded value of snap back. With d > 0 present values
// are animated from their current value; absent values are removed at once.
func (s *Store) Apply(snap Snapshot, d time.Duration) Report {
	var r Report
	for _, cat := range sortedCategories(snap) {
		for _, e := range snap[cat] {
			if !s.doc.Valid(e.Element) {
				s.stale(&r, e.Element)
				continue
			}
			for _, name := range sortedNames(e.Attrs) {
				s.write(e.Element, cat, name, e.Attrs[name], d)
				r.Written++
			}
		}
	}
	return r
}

// Write sets values on every element of sel.
func (s *Store) Write(sel scene.Selection, values Values, d time.Duration) Report {
	var r Report
	names := Names(values)
	for _, cat := range sortedCategories(values) {
		if !cat.Valid() {
			s.logger.Warn("write skipped unknown category", "category", cat)
			continue
		}
		for _, h := range sel {
			if !s.doc.Valid(h) {
				s.stale(&r, h)
				continue
			}
			for _, name := range names[cat] {
				s.write(h, cat, name, Value{Text: values[cat][name], Present: true}, d)
				r.Written++
			}
		}
	}
	return r
}

func (s *Store) stale(r *Report, h scene.Handle) {
	s.logger.Debug("skipped stale element", "element", h)
	if !slices.Contains(r.Stale, h) {
		r.Stale = append(r.Stale, h)
	}
}

func (s *Store) write(h scene.Handle, cat Category, name string, v Value, d time.Duration) {
	key := Key(h, cat, name)
	if !v.Present {
		s.anim.Cancel(key)
		if err := s.remove(h, cat, name); err != nil {
			s.logger.Debug("remove failed", "key", key, "err", err)
		}
		return
	}
	from, _ := s.read(h, cat, name)
	s.anim.Start(key, d, from, v.Text, func(val string) error {
		return s.set(h, cat, name, val)
	})
}

func (s *Store) read(h scene.Handle, cat Category, name string) (string, bool) {
	if cat == Style {
		return s.doc.Style(h, name)
	}
	return s.doc.Attr(h, name)
}

func (s *Store) set(h scene.Handle, cat Category, name, value string) error {
	if cat == Style {
		return s.doc.SetStyle(h, name, value)
	}
	return s.doc.SetAttr(h, name, value)
}

func (s *Store) remove(h scene.Handle, cat Category, name string) error {
	if cat == Style {
		return s.doc.RemoveStyle(h, name)
	}
	return s.doc.RemoveAttr(h, name)
}

// sortedCategories returns the keys of m with known categories first, in
// the order of Categories, followed by any others sorted by name.
func sortedCategories[V any](m map[Category]V) []Category {
	out := make([]Category, 0, len(m))
	for _, c := range Categories {
		if _, ok := m[c]; ok {
			out = append(out, c)
		}
	}
	var extra []Category
	for c := range m {
		if !c.Valid() {
			extra = append(extra, c)
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}

func sortedNames(m map[string]Value) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
