package registry

import (
	"encoding/json"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

// MarkerClass marks page elements that should host an SVG.
const MarkerClass = "dynamic-svg"

// Default container size for markers that declare none.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Marker is one marked element found on a page.
type Marker struct {
	ID     string   `json:"id,omitempty"`
	URL    string   `json:"url"`
	Hide   []string `json:"hide,omitempty"`
	Width  float64  `json:"width"`
	Height float64  `json:"height"`
}

// Scan parses an HTML page and returns every element carrying MarkerClass
// and a data-url attribute, in document order. URLs are resolved against
// base, which may be a URL or a file path. data-hide must hold a JSON list of
// selectors.
func Scan(r io.Reader, base string) ([]Marker, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "parse page")
	}

	var (
		out     []Marker
		scanErr error
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if scanErr != nil {
			return
		}
		if n.Type == html.ElementNode && hasClass(n, MarkerClass) {
			if ref, ok := attr(n, "data-url"); ok && ref != "" {
				m, err := marker(n, Resolve(base, ref))
				if err != nil {
					scanErr = err
					return
				}
				out = append(out, m)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out, scanErr
}

func marker(n *html.Node, u string) (Marker, error) {
	m := Marker{URL: u, Width: DefaultWidth, Height: DefaultHeight}
	m.ID, _ = attr(n, "id")

	if raw, ok := attr(n, "data-hide"); ok && strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &m.Hide); err != nil {
			return m, apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "data-hide of %q", u)
		}
	}

	style, _ := attr(n, "style")
	if w, ok := size(n, "data-width", style, "width"); ok {
		m.Width = w
	}
	if h, ok := size(n, "data-height", style, "height"); ok {
		m.Height = h
	}
	return m, nil
}

// size reads a pixel length from a data attribute, falling back to the
// matching inline style property.
func size(n *html.Node, dataAttr, style, prop string) (float64, bool) {
	if v, ok := attr(n, dataAttr); ok {
		if f, ok := pixels(v); ok {
			return f, true
		}
	}
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), prop) {
			return pixels(value)
		}
	}
	return 0, false
}

func pixels(s string) (float64, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Resolve interprets ref relative to base. Absolute URLs are returned
// unchanged. A base with a URL scheme resolves like a browser would; any
// other base is treated as the path of the page file.
func Resolve(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.Scheme != "" {
		return ref
	}
	if b, err := url.Parse(base); err == nil && len(b.Scheme) > 1 {
		return b.ResolveReference(r).String()
	}
	if filepath.IsAbs(ref) {
		return ref
	}
	return filepath.Join(filepath.Dir(base), filepath.FromSlash(ref))
}
