package host

import (
	"strconv"

	"github.com/matzehuels/dynsvg/pkg/scene"
	"github.com/matzehuels/dynsvg/pkg/transform"
)

// Opacity of the reset button when idle and under the pointer.
const (
	resetIdleOpacity  = "0.2"
	resetHoverOpacity = "1"
)

const (
	arrowOffset = "translate(-251.59375,-292.3507)"
	arrowMatrix = "matrix(0.28260646,0,0,0.28260646,180.49173,224.4545)"
	arrowCurve  = "M315.77,290.87c-5.2,10.1-15.72,17.01-27.86,17.01-17.3,0-31.32-14.03-31.32-31.32s14.02-31.31,31.32-31.31c9.36,0,17.76,4.1,23.5,10.62"
	arrowHead   = "M322.36,240.59,322.36,266.82,296.13,266.82z"
	arrowColor  = "#88bde6"
)

// chrome holds the handles of the elements every host draws around its
// content.
type chrome struct {
	zoom       scene.Handle
	background scene.Handle
	canvas     scene.Handle
	reset      scene.Handle
}

func a(name, value string) scene.Attr { return scene.Attr{Name: name, Value: value} }

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// buildChrome creates the container document:
//
//	<svg width="100%" height="100%">
//	  <g class="zoom">
//	    <rect class="img-background"/>
//	    <g class="canvas">content</g>
//	    <g id="reset">button</g>
//	  </g>
//	</svg>
func buildChrome(size transform.Size) (*scene.Document, chrome) {
	doc := scene.New("svg",
		a("xmlns", "http://www.w3.org/2000/svg"),
		a("xmlns:xlink", "http://www.w3.org/1999/xlink"),
		a("width", "100%"),
		a("height", "100%"),
		a("viewBox", "0 0 "+num(size.Width)+" "+num(size.Height)),
	)
	var c chrome
	root := doc.Root()
	c.zoom, _ = doc.Append(root, "g", a("class", "zoom"))
	c.background, _ = doc.Append(c.zoom, "rect",
		a("class", "img-background"),
		a("width", "100%"),
		a("height", "100%"),
		a("style", "fill: white;"),
	)
	c.canvas, _ = doc.Append(c.zoom, "g", a("class", "canvas"))
	c.reset, _ = doc.Append(c.zoom, "g", a("id", "reset"), a("style", "opacity: "+resetIdleOpacity+";"))
	_, _ = doc.Append(c.reset, "rect",
		a("height", "20.6"),
		a("width", "20"),
		a("y", "0"),
		a("x", "0"),
		a("opacity", "0.1"),
		a("fill", "#8c8c8c"),
	)
	offset, _ := doc.Append(c.reset, "g", a("transform", arrowOffset))
	arrow, _ := doc.Append(offset, "g", a("transform", arrowMatrix))
	_, _ = doc.Append(arrow, "path",
		a("stroke", arrowColor),
		a("stroke-miterlimit", "4"),
		a("stroke-width", "10"),
		a("fill", "none"),
		a("d", arrowCurve),
	)
	_, _ = doc.Append(arrow, "path", a("fill", arrowColor), a("d", arrowHead))
	return doc, c
}

// resetArea is the hit area of the reset button in container coordinates.
// The button sits outside the canvas, so zooming does not move it.
func (h *Host) resetArea() transform.Rect {
	return h.doc.BBox(h.chrome.reset)
}

func contains(r transform.Rect, p transform.Point) bool {
	return p.X >= r.X && p.X <= r.X+r.Width && p.Y >= r.Y && p.Y <= r.Y+r.Height
}
