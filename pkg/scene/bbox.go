package scene

import (
	"math"
	"strings"

	"github.com/matzehuels/dynsvg/pkg/transform"
)

// nonRendered lists elements whose subtrees never paint directly.
var nonRendered = map[string]bool{
	"defs":           true,
	"clipPath":       true,
	"mask":           true,
	"marker":         true,
	"pattern":        true,
	"symbol":         true,
	"linearGradient": true,
	"radialGradient": true,
	"filter":         true,
	"style":          true,
	"script":         true,
	"title":          true,
	"desc":           true,
	"metadata":       true,
}

const (
	defaultFontSize = 16
	// Average glyph advance as a fraction of the font size.
	glyphAdvance = 0.6
	maxUseDepth  = 8
)

// bounds accumulates extreme points. Unlike transform.Rect.Union it keeps
// zero-area contributions such as a single point or a horizontal line.
type bounds struct {
	x0, y0, x1, y1 float64
	ok             bool
}

func (b *bounds) add(p transform.Point) {
	if !b.ok {
		b.x0, b.y0, b.x1, b.y1, b.ok = p.X, p.Y, p.X, p.Y, true
		return
	}
	b.x0, b.x1 = math.Min(b.x0, p.X), math.Max(b.x1, p.X)
	b.y0, b.y1 = math.Min(b.y0, p.Y), math.Max(b.y1, p.Y)
}

func (b *bounds) addRect(m Matrix, r transform.Rect) {
	for _, p := range []transform.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.Width, Y: r.Y},
		{X: r.X, Y: r.Y + r.Height},
		{X: r.X + r.Width, Y: r.Y + r.Height},
	} {
		b.add(m.Apply(p))
	}
}

func (b *bounds) rect() transform.Rect {
	if !b.ok {
		return transform.Rect{}
	}
	return transform.Rect{X: b.x0, Y: b.y0, Width: b.x1 - b.x0, Height: b.y1 - b.y0}
}

// BBox returns the bounding box of the rendered content below h, in the
// coordinate system of h (h's own transform attribute is not applied).
// Elements set to display:none, and their subtrees, do not contribute. Stroke
// width is ignored. A stale handle or a subtree without geometry yields the
// zero Rect.
func (d *Document) BBox(h Handle) transform.Rect {
	if !d.Valid(h) {
		return transform.Rect{}
	}
	var b bounds
	d.measure(h, IdentityMatrix, &b, 0)
	return b.rect()
}

func (d *Document) measure(h Handle, m Matrix, b *bounds, depth int) {
	d.shape(h, m, b, depth)
	for _, c := range d.nodes[h].children {
		if d.nodes[c].removed || d.Hidden(c) || nonRendered[d.nodes[c].tag] {
			continue
		}
		cm := m
		if t, ok := d.Attr(c, "transform"); ok {
			cm = m.Mult(ParseTransformList(t))
		}
		if d.nodes[c].tag == "svg" {
			cm = cm.Mult(d.viewportMatrix(c))
		}
		d.measure(c, cm, b, depth)
	}
}

// viewportMatrix maps the user space of a nested svg element into its
// parent: the x/y offset, then the viewBox mapping under
// preserveAspectRatio (default "xMidYMid meet"). A width or height that is
// missing or relative takes the viewBox size.
func (d *Document) viewportMatrix(h Handle) Matrix {
	x, y := d.length(h, "x"), d.length(h, "y")
	vb := parseNumbers(d.attrOr(h, "viewBox", ""))
	if len(vb) != 4 || vb[2] <= 0 || vb[3] <= 0 {
		return translateMatrix(x, y)
	}
	w, ok := parseLength(d.attrOr(h, "width", ""))
	if !ok || w <= 0 {
		w = vb[2]
	}
	hh, ok := parseLength(d.attrOr(h, "height", ""))
	if !ok || hh <= 0 {
		hh = vb[3]
	}

	sx, sy := w/vb[2], hh/vb[3]
	ax, ay, slice, none := parseAspectRatio(d.attrOr(h, "preserveAspectRatio", ""))
	if !none {
		s := min(sx, sy)
		if slice {
			s = max(sx, sy)
		}
		sx, sy = s, s
	}
	return Matrix{
		A: sx,
		D: sy,
		E: x - vb[0]*sx + ax*(w-vb[2]*sx),
		F: y - vb[1]*sy + ay*(hh-vb[3]*sy),
	}
}

// parseAspectRatio reads a preserveAspectRatio value into alignment factors
// (0 for Min, 0.5 for Mid, 1 for Max), the meet-or-slice choice and whether
// alignment is "none".
func parseAspectRatio(s string) (ax, ay float64, slice, none bool) {
	ax, ay = 0.5, 0.5
	fields := strings.Fields(s)
	if len(fields) > 0 && fields[0] == "defer" {
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return ax, ay, false, false
	}
	align := fields[0]
	if align == "none" {
		return 0, 0, false, true
	}
	if len(align) == 8 && align[0] == 'x' && align[4] == 'Y' {
		ax, ay = alignFactor(align[1:4]), alignFactor(align[5:8])
	}
	slice = len(fields) > 1 && fields[1] == "slice"
	return ax, ay, slice, false
}

func alignFactor(s string) float64 {
	switch s {
	case "Min":
		return 0
	case "Max":
		return 1
	}
	return 0.5
}

func (d *Document) length(h Handle, name string) float64 {
	v, ok := d.Attr(h, name)
	if !ok {
		return 0
	}
	f, _ := parseLength(v)
	return f
}

// shape adds the geometry h itself paints.
func (d *Document) shape(h Handle, m Matrix, b *bounds, depth int) {
	num := func(name string) float64 { return d.length(h, name) }

	switch d.nodes[h].tag {
	case "rect", "image", "foreignObject":
		w, hh := num("width"), num("height")
		if w <= 0 || hh <= 0 {
			return
		}
		b.addRect(m, transform.Rect{X: num("x"), Y: num("y"), Width: w, Height: hh})
	case "circle":
		r := num("r")
		if r <= 0 {
			return
		}
		b.addRect(m, transform.Rect{X: num("cx") - r, Y: num("cy") - r, Width: 2 * r, Height: 2 * r})
	case "ellipse":
		rx, ry := num("rx"), num("ry")
		if rx <= 0 || ry <= 0 {
			return
		}
		b.addRect(m, transform.Rect{X: num("cx") - rx, Y: num("cy") - ry, Width: 2 * rx, Height: 2 * ry})
	case "line":
		b.add(m.Apply(transform.Point{X: num("x1"), Y: num("y1")}))
		b.add(m.Apply(transform.Point{X: num("x2"), Y: num("y2")}))
	case "polyline", "polygon":
		v, _ := d.Attr(h, "points")
		nums := parseNumbers(v)
		for i := 0; i+1 < len(nums); i += 2 {
			b.add(m.Apply(transform.Point{X: nums[i], Y: nums[i+1]}))
		}
	case "path":
		v, _ := d.Attr(h, "d")
		if r, ok := pathBounds(v, m); ok {
			b.addRect(IdentityMatrix, r)
		}
	case "text", "tspan":
		d.textBounds(h, m, b)
	case "use":
		if depth >= maxUseDepth {
			return
		}
		ref, ok := d.Attr(h, "href")
		if !ok {
			ref, ok = d.Attr(h, "xlink:href")
		}
		if !ok || !strings.HasPrefix(ref, "#") {
			return
		}
		target, found := d.Find(d.root, ref[1:])
		if !found || d.Contains(target, h) {
			return
		}
		tm := m.Mult(translateMatrix(num("x"), num("y")))
		if t, ok := d.Attr(target, "transform"); ok {
			tm = tm.Mult(ParseTransformList(t))
		}
		d.measure(target, tm, b, depth+1)
	}
}

// textBounds estimates the extent of the character data of a text element.
func (d *Document) textBounds(h Handle, m Matrix, b *bounds) {
	text := strings.TrimSpace(d.nodes[h].text)
	if text == "" {
		return
	}
	size := float64(defaultFontSize)
	if v, ok := d.Style(h, "font-size"); ok {
		if f, ok := parseLength(v); ok && f > 0 {
			size = f
		}
	} else if f, ok := parseLength(d.attrOr(h, "font-size", "")); ok && f > 0 {
		size = f
	}
	width := glyphAdvance * size * float64(len([]rune(text)))

	x, y := d.length(h, "x"), d.length(h, "y")
	switch d.attrOr(h, "text-anchor", "start") {
	case "middle":
		x -= width / 2
	case "end":
		x -= width
	}
	// y is the baseline; ascent covers most of the em box.
	b.addRect(m, transform.Rect{X: x, Y: y - 0.8*size, Width: width, Height: size})
}

func (d *Document) attrOr(h Handle, name, def string) string {
	if v, ok := d.Attr(h, name); ok {
		return v
	}
	return def
}
