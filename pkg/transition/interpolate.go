package transition

import (
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// Interpolator returns the value at progress k in [0, 1].
type Interpolator func(k float64) string

var numberRe = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?`)

// Interpolate returns an interpolator between two attribute values.
//
// If both values are colors (named, #rgb, #rrggbb or rgb(r,g,b)) they are
// blended in RGB space and written as #rrggbb. Otherwise the numbers embedded
// in to are interpolated pairwise against the numbers found at the same
// position in from, keeping the text between them from to; numbers without a
// counterpart stay fixed. k=1 always yields to verbatim.
func Interpolate(from, to string) Interpolator {
	if from == to {
		return func(float64) string { return to }
	}
	if a, ok := parseColor(from); ok {
		if b, ok := parseColor(to); ok {
			return func(k float64) string {
				if k >= 1 {
					return to
				}
				return a.BlendRgb(b, k).Clamped().Hex()
			}
		}
	}
	return interpolateString(from, to)
}

func interpolateString(from, to string) Interpolator {
	src := numberRe.FindAllString(from, -1)
	locs := numberRe.FindAllStringIndex(to, -1)

	type segment struct {
		a, b float64
		ok   bool
	}
	segs := make([]segment, len(locs))
	for i, loc := range locs {
		b, err := strconv.ParseFloat(to[loc[0]:loc[1]], 64)
		if err != nil || i >= len(src) {
			continue
		}
		a, err := strconv.ParseFloat(src[i], 64)
		if err != nil {
			continue
		}
		segs[i] = segment{a: a, b: b, ok: true}
	}

	return func(k float64) string {
		if k >= 1 || len(locs) == 0 {
			return to
		}
		var out strings.Builder
		prev := 0
		for i, loc := range locs {
			out.WriteString(to[prev:loc[0]])
			if s := segs[i]; s.ok {
				out.WriteString(strconv.FormatFloat(s.a+(s.b-s.a)*k, 'f', -1, 64))
			} else {
				out.WriteString(to[loc[0]:loc[1]])
			}
			prev = loc[1]
		}
		out.WriteString(to[prev:])
		return out.String()
	}
}

// parseColor recognizes the CSS color forms commonly found in SVG attributes.
func parseColor(s string) (colorful.Color, bool) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" {
		return colorful.Color{}, false
	}
	if c, ok := colornames.Map[v]; ok {
		return colorful.MakeColor(c)
	}
	if strings.HasPrefix(v, "#") {
		if len(v) == 4 {
			v = "#" + strings.Repeat(v[1:2], 2) + strings.Repeat(v[2:3], 2) + strings.Repeat(v[3:4], 2)
		}
		c, err := colorful.Hex(v)
		return c, err == nil
	}
	if inner, ok := strings.CutPrefix(v, "rgb("); ok {
		inner, ok = strings.CutSuffix(inner, ")")
		if !ok {
			return colorful.Color{}, false
		}
		parts := strings.Split(inner, ",")
		if len(parts) != 3 {
			return colorful.Color{}, false
		}
		var rgb [3]uint8
		for i, p := range parts {
			n, ok := parseChannel(p)
			if !ok {
				return colorful.Color{}, false
			}
			rgb[i] = n
		}
		return colorful.MakeColor(color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 0xff})
	}
	return colorful.Color{}, false
}

func parseChannel(s string) (uint8, bool) {
	s = strings.TrimSpace(s)
	pct := strings.HasSuffix(s, "%")
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
	if err != nil {
		return 0, false
	}
	if pct {
		f = f * 255 / 100
	}
	if f < 0 {
		f = 0
	} else if f > 255 {
		f = 255
	}
	return uint8(f + 0.5), true
}
