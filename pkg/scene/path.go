package scene

import (
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/parse/v2/strconv"

	"github.com/matzehuels/dynsvg/pkg/transform"
)

// parseNumbers extracts the numbers of an SVG number list. Numbers may be
// packed without separators ("10-5", "1.5.5"). Scanning stops at the first
// token that is not a number.
func parseNumbers(s string) []float64 {
	b := []byte(s)
	var out []float64
	for i := skipSeparators(b, 0); i < len(b); i = skipSeparators(b, i) {
		v, n := strconv.ParseFloat(b[i:])
		if n == 0 {
			break
		}
		out = append(out, v)
		i += n
	}
	return out
}

func skipSeparators(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r', ',':
			i++
		default:
			return i
		}
	}
	return i
}

// pathBounds returns the exact bounds of path data d after mapping it through
// m. Curves contribute their extrema, not their control points. Malformed or
// empty path data has no bounds.
func pathBounds(d string, m Matrix) (transform.Rect, bool) {
	p, err := canvas.ParseSVGPath(d)
	if err != nil || p.Empty() {
		return transform.Rect{}, false
	}
	r := p.Transform(canvas.Matrix{{m.A, m.C, m.E}, {m.B, m.D, m.F}}).Bounds()
	return transform.Rect{X: r.X0, Y: r.Y0, Width: r.X1 - r.X0, Height: r.Y1 - r.Y0}, true
}
