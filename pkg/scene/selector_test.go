package scene

import (
	"slices"
	"testing"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

func ids(d *Document, sel Selection) []string {
	out := []string{}
	for _, h := range sel {
		v, _ := d.Attr(h, "id")
		out = append(out, v)
	}
	return out
}

func TestSelectAll(t *testing.T) {
	d := mustParse(t, fixture)

	tests := []struct {
		selector string
		want     []string
	}{
		{"rect", []string{"tpl", "a"}},
		{".node", []string{"a", "b"}},
		{".node.hot", []string{"b"}},
		{"circle[r]", []string{"b"}},
		{"#inner text", []string{"label"}},
		{"#nodes > g", []string{"inner"}},
		{"#nodes > text", []string{}},
		{"[data-kind=title]", []string{"label"}},
		{`[data-kind="title"]`, []string{"label"}},
		{"[class~=hot]", []string{"b"}},
		{"[id^=e]", []string{"edges", "e1"}},
		{"[id$='1']", []string{"e1"}},
		{"[class*=ay]", []string{"nodes"}},
		{"rect, path", []string{"tpl", "a", "e1"}},
		{"g *", []string{"a", "b", "inner", "label", "e1"}},
		{"svg", []string{}},
		{"g.layer.main>rect#a", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sel, err := d.SelectAll(d.Root(), tt.selector)
			if err != nil {
				t.Fatalf("SelectAll: %v", err)
			}
			if got := ids(d, sel); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSelectAllScoped(t *testing.T) {
	d := mustParse(t, fixture)
	nodes := mustFind(t, d, "nodes")

	sel, _ := d.SelectAll(nodes, "g")
	if got := ids(d, sel); !slices.Equal(got, []string{"inner"}) {
		t.Errorf("scope must be excluded, got %v", got)
	}

	// Ancestors above the scope still count for descendant combinators.
	sel, _ = d.SelectAll(nodes, "svg .node")
	if got := ids(d, sel); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("got %v", got)
	}
}

func TestCompileErrors(t *testing.T) {
	for _, src := range []string{"", "#", ".", "[a", "[]", "[a!=b]", "a >", "a b )", "rect,", `[a="x]`} {
		t.Run(src, func(t *testing.T) {
			_, err := Compile(src)
			if err == nil {
				t.Fatalf("Compile(%q) succeeded", src)
			}
			if !apperrors.Is(err, apperrors.ErrCodeInvalidSelector) {
				t.Errorf("code = %v, want INVALID_SELECTOR", apperrors.GetCode(err))
			}
		})
	}
}

func TestSelect(t *testing.T) {
	d := mustParse(t, fixture)
	h, ok, err := d.Select(d.Root(), ".node")
	if err != nil || !ok {
		t.Fatalf("Select = %v, %v", ok, err)
	}
	if v, _ := d.Attr(h, "id"); v != "a" {
		t.Errorf("first match = %q, want a", v)
	}
	if _, ok, _ := d.Select(d.Root(), "ellipse"); ok {
		t.Error("Select(ellipse) should find nothing")
	}
}
