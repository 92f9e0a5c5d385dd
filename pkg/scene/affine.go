package scene

import (
	"math"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"

	"github.com/matzehuels/dynsvg/pkg/transform"
)

// Matrix is an SVG affine matrix [a c e; b d f; 0 0 1].
type Matrix struct {
	A, B, C, D, E, F float64
}

// IdentityMatrix leaves points unchanged.
var IdentityMatrix = Matrix{A: 1, D: 1}

// Mult returns m·n (n is applied first).
func (m Matrix) Mult(n Matrix) Matrix {
	return Matrix{
		A: m.A*n.A + m.C*n.B,
		B: m.B*n.A + m.D*n.B,
		C: m.A*n.C + m.C*n.D,
		D: m.B*n.C + m.D*n.D,
		E: m.A*n.E + m.C*n.F + m.E,
		F: m.B*n.E + m.D*n.F + m.F,
	}
}

// Apply maps p through m.
func (m Matrix) Apply(p transform.Point) transform.Point {
	return transform.Point{
		X: p.X*m.A + p.Y*m.C + m.E,
		Y: p.X*m.B + p.Y*m.D + m.F,
	}
}

// ApplyRect returns the bounding box of r's corners mapped through m.
func (m Matrix) ApplyRect(r transform.Rect) transform.Rect {
	if m == IdentityMatrix {
		return r
	}
	return transform.RectFromPoints(
		m.Apply(transform.Point{X: r.X, Y: r.Y}),
		m.Apply(transform.Point{X: r.X + r.Width, Y: r.Y}),
		m.Apply(transform.Point{X: r.X, Y: r.Y + r.Height}),
		m.Apply(transform.Point{X: r.X + r.Width, Y: r.Y + r.Height}),
	)
}

func translateMatrix(x, y float64) Matrix { return Matrix{A: 1, D: 1, E: x, F: y} }
func scaleMatrix(x, y float64) Matrix     { return Matrix{A: x, D: y} }

func rotateMatrix(deg float64) Matrix {
	r := deg * math.Pi / 180
	sin, cos := math.Sincos(r)
	return Matrix{A: cos, B: sin, C: -sin, D: cos}
}

// ParseTransformList parses the full SVG transform attribute grammar:
// matrix, translate, scale, rotate (with optional center), skewX and skewY.
// Unknown or malformed terms are skipped.
func ParseTransformList(s string) Matrix {
	m := IdentityMatrix
	rest := s
	for {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			return m
		}
		closing := strings.IndexByte(rest[open:], ')')
		if closing < 0 {
			return m
		}
		name := strings.TrimSpace(strings.Trim(rest[:open], ", \t\n\r"))
		args := parseNumbers(rest[open+1 : open+closing])
		rest = rest[open+closing+1:]

		var t Matrix
		switch {
		case name == "matrix" && len(args) == 6:
			t = Matrix{args[0], args[1], args[2], args[3], args[4], args[5]}
		case name == "translate" && len(args) == 1:
			t = translateMatrix(args[0], 0)
		case name == "translate" && len(args) >= 2:
			t = translateMatrix(args[0], args[1])
		case name == "scale" && len(args) == 1:
			t = scaleMatrix(args[0], args[0])
		case name == "scale" && len(args) >= 2:
			t = scaleMatrix(args[0], args[1])
		case name == "rotate" && len(args) == 1:
			t = rotateMatrix(args[0])
		case name == "rotate" && len(args) >= 3:
			t = translateMatrix(args[1], args[2]).Mult(rotateMatrix(args[0])).Mult(translateMatrix(-args[1], -args[2]))
		case name == "skewX" && len(args) == 1:
			t = Matrix{A: 1, C: math.Tan(args[0] * math.Pi / 180), D: 1}
		case name == "skewY" && len(args) == 1:
			t = Matrix{A: 1, B: math.Tan(args[0] * math.Pi / 180), D: 1}
		default:
			continue
		}
		m = m.Mult(t)
	}
}

// parseLength reads the leading number of an SVG length ("12", "3.5px").
// Percentages and unparsable values yield ok=false.
func parseLength(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "%") {
		return 0, false
	}
	v, n := strconv.ParseFloat([]byte(s))
	return v, n > 0
}
