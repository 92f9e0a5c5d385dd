package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matzehuels/dynsvg/pkg/loader"
	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/snapshot"
)

const drawing = `<svg xmlns="http://www.w3.org/2000/svg">
  <rect id="bg" width="200" height="100"/>
  <g id="nodes">
    <circle id="n1" cx="50" cy="50" r="10" fill="red"/>
    <circle id="n2" cx="150" cy="50" r="10" fill="blue"/>
  </g>
  <g class="legend"><rect x="10" y="10" width="5" height="5"/></g>
</svg>`

var static = loader.Func(func(ctx context.Context, url string) (*scene.Document, error) {
	return loader.Parse([]byte(drawing))
})

func TestParseHighlight(t *testing.T) {
	tests := []struct {
		in      string
		sel     string
		cat     snapshot.Category
		name    string
		value   string
		wantErr bool
	}{
		{in: "#n1:style.fill=red", sel: "#n1", cat: snapshot.Style, name: "fill", value: "red"},
		{in: "#n1:attr.r=20", sel: "#n1", cat: snapshot.Attr, name: "r", value: "20"},
		{in: "#n1:attribute.r=20", sel: "#n1", cat: snapshot.Attr, name: "r", value: "20"},
		{in: "circle:first-child:style.opacity=0.5", sel: "circle:first-child", cat: snapshot.Style, name: "opacity", value: "0.5"},
		{in: "#n1:style.fill=url(#g=1)", sel: "#n1", cat: snapshot.Style, name: "fill", value: "url(#g=1)"},
		{in: "#n1:style.fill=", sel: "#n1", cat: snapshot.Style, name: "fill", value: ""},
		{in: "#n1", wantErr: true},
		{in: "#n1:style.fill", wantErr: true},
		{in: "#n1:color.fill=red", wantErr: true},
		{in: ":style.fill=red", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			sel, cat, name, value, err := parseHighlight(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseHighlight(%q) should fail", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseHighlight(%q) error: %v", tt.in, err)
			}
			if sel != tt.sel || cat != tt.cat || name != tt.name || value != tt.value {
				t.Errorf("parseHighlight(%q) = %q %q %q %q", tt.in, sel, cat, name, value)
			}
		})
	}
}

func TestParseHighlightsMergesSelectors(t *testing.T) {
	reqs, err := parseHighlights([]string{
		"#n1:style.fill=green",
		"#n2:attr.r=3",
		"#n1:attr.r=20",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(reqs) != 2 {
		t.Fatalf("len = %d, want 2", len(reqs))
	}
	if reqs[0].Selector != "#n1" || reqs[1].Selector != "#n2" {
		t.Errorf("selectors = %q, %q", reqs[0].Selector, reqs[1].Selector)
	}
	if reqs[0].Values[snapshot.Style]["fill"] != "green" || reqs[0].Values[snapshot.Attr]["r"] != "20" {
		t.Errorf("merged values = %v", reqs[0].Values)
	}
	if got := formatHighlight(reqs[0]); got != "#n1:style.fill=green,attr.r=20" {
		t.Errorf("formatHighlight = %q", got)
	}
}

func TestRunRender(t *testing.T) {
	tests := []struct {
		name string
		opts renderOpts
		want []string
	}{
		{
			name: "fit",
			opts: renderOpts{width: 400, height: 300},
			want: []string{"translate(0,50)scale(2)"},
		},
		{
			name: "zoom",
			opts: renderOpts{width: 400, height: 300, zoom: "translate(10,20) scale(3)"},
			want: []string{"translate(10,20)scale(3)"},
		},
		{
			name: "highlight and hide",
			opts: renderOpts{
				width:      400,
				height:     300,
				hide:       []string{".legend"},
				highlights: []string{"#n1:style.fill=green"},
			},
			want: []string{"fill: green;", "display: none;"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.output = "-"
			var out bytes.Buffer
			err := newTestCLI().runRender(context.Background(), static, "fig.svg", tt.opts, &out)
			if err != nil {
				t.Fatalf("runRender() error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
		})
	}
}

func TestRunRenderToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.svg")
	opts := renderOpts{width: 400, height: 300, output: path}
	if err := newTestCLI().runRender(context.Background(), static, "fig.svg", opts, nil); err != nil {
		t.Fatalf("runRender() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Errorf("output is not an svg document:\n%s", data)
	}
}

func TestRunRenderErrors(t *testing.T) {
	tests := []struct {
		name string
		opts renderOpts
	}{
		{"bad highlight", renderOpts{width: 400, height: 300, highlights: []string{"#n1"}}},
		{"bad zoom", renderOpts{width: 400, height: 300, zoom: "rotate(45)"}},
		{"bad selector", renderOpts{width: 400, height: 300, highlights: []string{"#n1[:style.fill=red"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.opts.output = "-"
			err := newTestCLI().runRender(context.Background(), static, "fig.svg", tt.opts, &bytes.Buffer{})
			if err == nil {
				t.Error("runRender() should fail")
			}
		})
	}
}
