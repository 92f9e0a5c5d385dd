package snapshot

import (
	"testing"
	"time"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transition"
)

const doc = `<svg>
  <circle id="a" class="n" r="5" style="fill: red;"/>
  <circle id="b" class="n" r="7"/>
  <rect id="c" class="m" width="1"/>
</svg>`

func setup(t *testing.T) (*scene.Document, *Store) {
	t.Helper()
	d, err := scene.ParseString(doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return d, NewStore(d, nil, nil)
}

func sel(t *testing.T, d *scene.Document, selector string) scene.Selection {
	t.Helper()
	s, err := d.SelectAll(d.Root(), selector)
	if err != nil {
		t.Fatalf("SelectAll(%q): %v", selector, err)
	}
	return s
}

func TestCapture(t *testing.T) {
	d, s := setup(t)
	snap, err := s.Capture(sel(t, d, ".n"), map[Category][]string{
		Style: {"fill"},
		Attr:  {"r", "stroke"},
	})
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if got := len(snap[Style]); got != 2 {
		t.Fatalf("style entries = %d, want 2", got)
	}

	a, b := snap[Style][0], snap[Style][1]
	if want := (Value{Text: "red", Present: true}); a.Attrs["fill"] != want {
		t.Errorf("a fill = %+v, want %+v", a.Attrs["fill"], want)
	}
	if b.Attrs["fill"].Present {
		t.Errorf("b fill should be absent, got %+v", b.Attrs["fill"])
	}
	if got := snap[Attr][1].Attrs["r"]; got.Text != "7" || !got.Present {
		t.Errorf("b r = %+v", got)
	}
	if got := snap[Attr][0].Attrs["stroke"]; got.Present {
		t.Errorf("stroke should be absent, got %+v", got)
	}
	if snap.Len() != 4 {
		t.Errorf("Len = %d, want 4", snap.Len())
	}
}

func TestCaptureUnknownCategory(t *testing.T) {
	d, s := setup(t)
	_, err := s.Capture(sel(t, d, ".n"), map[Category][]string{"class": {"x"}})
	if !apperrors.Is(err, apperrors.ErrCodeInvalidCategory) {
		t.Errorf("err = %v, want INVALID_CATEGORY", err)
	}
}

func TestWriteAndApplyRestores(t *testing.T) {
	d, s := setup(t)
	targets := sel(t, d, ".n")
	values := Values{Style: {"fill": "blue", "opacity": "0.5"}, Attr: {"r": "20"}}

	before, err := s.Capture(targets, Names(values))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	r := s.Write(targets, values, 0)
	if r.Written != 6 || r.Err() != nil {
		t.Errorf("Write report = %+v", r)
	}
	for _, h := range targets {
		if v, _ := d.Style(h, "fill"); v != "blue" {
			t.Errorf("fill = %q after write", v)
		}
		if v, _ := d.Attr(h, "r"); v != "20" {
			t.Errorf("r = %q after write", v)
		}
	}

	s.Apply(before, 0)
	a, b := targets[0], targets[1]
	if v, _ := d.Style(a, "fill"); v != "red" {
		t.Errorf("a fill = %q, want red", v)
	}
	if _, ok := d.Style(b, "fill"); ok {
		t.Error("b fill should be removed again")
	}
	if _, ok := d.Style(a, "opacity"); ok {
		t.Error("opacity should be removed again")
	}
	if v, _ := d.Attr(b, "r"); v != "7" {
		t.Errorf("b r = %q, want 7", v)
	}
	if _, ok := d.Attr(b, "style"); ok {
		t.Error("b style attribute should be dropped once empty")
	}
}

func TestApplyStale(t *testing.T) {
	d, s := setup(t)
	targets := sel(t, d, ".n")
	snap, _ := s.Capture(targets, map[Category][]string{Attr: {"r"}})
	_ = d.SetAttr(targets[0], "r", "99")
	if err := d.Remove(targets[1]); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	r := s.Apply(snap, 0)
	if r.Written != 1 {
		t.Errorf("Written = %d, want 1", r.Written)
	}
	if len(r.Stale) != 1 || r.Stale[0] != targets[1] {
		t.Errorf("Stale = %v", r.Stale)
	}
	if !apperrors.Is(r.Err(), apperrors.ErrCodeInvalidElement) {
		t.Errorf("Err = %v, want INVALID_ELEMENT", r.Err())
	}
	if v, _ := d.Attr(targets[0], "r"); v != "5" {
		t.Errorf("live element not restored: r = %q", v)
	}
}

func TestAnimatedWrite(t *testing.T) {
	d, err := scene.ParseString(doc)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Unix(0, 0)
	anim := transition.NewScheduler(
		transition.WithClock(func() time.Time { return now }),
		transition.WithEase(transition.Linear),
	)
	s := NewStore(d, anim, nil)
	a := sel(t, d, "#a")

	s.Write(a, Values{Attr: {"r": "15"}}, time.Second)
	if v, _ := d.Attr(a[0], "r"); v != "5" {
		t.Errorf("r = %q before first tick", v)
	}
	now = now.Add(500 * time.Millisecond)
	anim.Tick()
	if v, _ := d.Attr(a[0], "r"); v != "10" {
		t.Errorf("r = %q at half time, want 10", v)
	}

	// A second write to the same value replaces the running transition.
	s.Write(a, Values{Attr: {"r": "0"}}, time.Second)
	if anim.Active() != 1 {
		t.Errorf("Active = %d, want 1", anim.Active())
	}

	// Removing a value cancels its transition.
	s.Apply(Snapshot{Attr: {{Element: a[0], Attrs: map[string]Value{"r": {}}}}}, time.Second)
	if anim.Active() != 0 {
		t.Errorf("Active = %d after removal, want 0", anim.Active())
	}
	if _, ok := d.Attr(a[0], "r"); ok {
		t.Error("r should be removed")
	}
}

func TestMerge(t *testing.T) {
	s1 := Snapshot{
		Style: {{Element: 1}, {Element: 2}},
	}
	s2 := Snapshot{
		Style: {{Element: 3}},
		Attr:  {{Element: 4}},
	}
	m := Merge(s1, s2)

	var got []scene.Handle
	for _, e := range m[Style] {
		got = append(got, e.Element)
	}
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("style order = %v, want [1 2 3]", got)
	}
	if len(m[Attr]) != 1 || m[Attr][0].Element != 4 {
		t.Errorf("attr = %+v", m[Attr])
	}
	if len(s1[Style]) != 2 {
		t.Error("Merge must not modify its inputs")
	}
	if len(Merge()) != 0 {
		t.Error("Merge() should be empty")
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"style", Style, false},
		{"attr", Attr, false},
		{"attribute", Attr, false},
		{"class", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseCategory(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}
