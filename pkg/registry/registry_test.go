package registry

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
	"github.com/matzehuels/dynsvg/pkg/host"
	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/scene"
)

const page = `<!DOCTYPE html>
<html><body>
  <div class="figure dynamic-svg" id="flow" data-url="img/flow.svg" data-hide='["#legend", ".debug"]'></div>
  <p>text</p>
  <div class="dynamic-svg" id="tree" data-url="http://cdn.example.com/tree.svg" style="width: 640px; height:480px"></div>
  <div class="dynamic-svg" data-url="/abs/plot.svg" data-width="320" data-height="200px"></div>
  <div class="dynamic-svg" id="nourl"></div>
  <div class="static" data-url="ignored.svg"></div>
</body></html>`

func TestScan(t *testing.T) {
	markers, err := Scan(strings.NewReader(page), "http://example.com/docs/index.html")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	want := []Marker{
		{ID: "flow", URL: "http://example.com/docs/img/flow.svg", Hide: []string{"#legend", ".debug"}, Width: 800, Height: 600},
		{ID: "tree", URL: "http://cdn.example.com/tree.svg", Width: 640, Height: 480},
		{URL: "http://example.com/abs/plot.svg", Width: 320, Height: 200},
	}
	if len(markers) != len(want) {
		t.Fatalf("got %d markers, want %d: %+v", len(markers), len(want), markers)
	}
	for i, w := range want {
		got := markers[i]
		if got.ID != w.ID || got.URL != w.URL || got.Width != w.Width || got.Height != w.Height || fmt.Sprint(got.Hide) != fmt.Sprint(w.Hide) {
			t.Errorf("marker %d = %+v, want %+v", i, got, w)
		}
	}
}

func TestScanBadHide(t *testing.T) {
	src := `<div class="dynamic-svg" data-url="a.svg" data-hide="[#x]"></div>`
	if _, err := Scan(strings.NewReader(src), ""); !apperrors.Is(err, apperrors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"", "a.svg", "a.svg"},
		{"http://h/x/page.html", "a.svg", "http://h/x/a.svg"},
		{"http://h/x/page.html", "../a.svg", "http://h/a.svg"},
		{"http://h/x/page.html", "https://o/a.svg", "https://o/a.svg"},
		{"/site/docs/page.html", "img/a.svg", "/site/docs/img/a.svg"},
		{"/site/docs/page.html", "/abs/a.svg", "/abs/a.svg"},
		{"file:///site/page.html", "a.svg", "file:///site/a.svg"},
	}
	for _, tt := range tests {
		if got := Resolve(tt.base, tt.ref); got != tt.want {
			t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func svgLoader(calls *atomic.Int32) loader.Loader {
	return loader.Func(func(ctx context.Context, url string) (*scene.Document, error) {
		calls.Add(1)
		if strings.Contains(url, "broken") {
			return nil, apperrors.New(apperrors.ErrCodeFileNotFound, "%s", url)
		}
		return loader.Parse([]byte(`<svg><rect id="legend" width="10" height="10"/><rect class="debug" width="1" height="1"/></svg>`))
	})
}

func TestAttachAndLoadAll(t *testing.T) {
	var calls atomic.Int32
	r := New(nil)
	hosts, err := r.Attach(strings.NewReader(page), "/site/index.html", host.Options{Loader: svgLoader(&calls)})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if len(hosts) != 3 || r.Len() != 3 {
		t.Fatalf("attached %d hosts, registry has %d", len(hosts), r.Len())
	}
	ids := r.IDs()
	if ids[0] != "flow" || ids[1] != "tree" || ids[2] == "" {
		t.Errorf("IDs = %v", ids)
	}

	if err := r.LoadAll(context.Background(), 2); err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("loader called %d times", calls.Load())
	}
	flow, _ := r.Get("flow")
	if got := flow.Hidden(); len(got) != 2 {
		t.Errorf("flow hidden = %v, want its data-hide list", got)
	}
	tree, _ := r.Get("tree")
	if len(tree.Hidden()) != 0 || tree.Container().Width != 640 {
		t.Errorf("tree hidden %v width %v", tree.Hidden(), tree.Container().Width)
	}

	// Loaded hosts are skipped.
	_ = r.LoadAll(context.Background(), 0)
	if calls.Load() != 3 {
		t.Errorf("LoadAll reloaded hosts: %d calls", calls.Load())
	}
}

func TestLoadAllJoinsErrors(t *testing.T) {
	var calls atomic.Int32
	r := New(nil)
	opts := host.Options{Loader: svgLoader(&calls)}
	for _, u := range []string{"ok.svg", "broken1.svg", "broken2.svg"} {
		if err := r.Add(host.New(host.Container{ID: u, Width: 10, Height: 10}, u, opts)); err != nil {
			t.Fatal(err)
		}
	}
	err := r.LoadAll(context.Background(), 1)
	if !apperrors.Is(err, apperrors.ErrCodeFileNotFound) {
		t.Fatalf("err = %v", err)
	}
	if n := strings.Count(err.Error(), "broken"); n != 2 {
		t.Errorf("joined error mentions %d failures: %v", n, err)
	}
	if h, _ := r.Get("ok.svg"); !h.Loaded() {
		t.Error("one failure must not stop the others")
	}
}

func TestAddRemoveLookup(t *testing.T) {
	r := New(nil)
	a := host.New(host.Container{ID: "a"}, "a.svg", host.Options{})
	if err := r.Add(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Add(host.New(host.Container{ID: "a"}, "b.svg", host.Options{})); !apperrors.Is(err, apperrors.ErrCodeInvalidID) {
		t.Errorf("duplicate err = %v", err)
	}
	if err := r.Add(host.New(host.Container{ID: "../x"}, "b.svg", host.Options{})); !apperrors.Is(err, apperrors.ErrCodeInvalidID) {
		t.Errorf("invalid id err = %v", err)
	}
	if h, err := r.Lookup("a"); err != nil || h != a {
		t.Errorf("Lookup = %v, %v", h, err)
	}
	if !r.Remove("a") || r.Remove("a") {
		t.Error("Remove should succeed once")
	}
	if _, err := r.Lookup("a"); !apperrors.Is(err, apperrors.ErrCodeHostNotFound) {
		t.Errorf("err = %v", err)
	}
}
