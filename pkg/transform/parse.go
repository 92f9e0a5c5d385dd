package transform

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

const number = `([-+]?(?:\d+\.?\d*|\.\d+)(?:[eE][-+]?\d+)?)`

var (
	translateRe = regexp.MustCompile(`translate\(\s*` + number + `(?:(?:\s*,\s*|\s+)` + number + `)?\s*\)`)
	scaleRe     = regexp.MustCompile(`scale\(\s*` + number + `(?:(?:\s*,\s*|\s+)` + number + `)?\s*\)`)
)

// Format returns the canonical attribute form "translate(tx,ty)scale(s)".
func Format(t Transform) string {
	var b strings.Builder
	b.WriteString("translate(")
	b.WriteString(formatFloat(t.Translate.X))
	b.WriteByte(',')
	b.WriteString(formatFloat(t.Translate.Y))
	b.WriteString(")scale(")
	b.WriteString(formatFloat(t.Scale))
	b.WriteByte(')')
	return b.String()
}

// Parse reads a transform written by [Format] or by any producer using the
// same translate/scale vocabulary. Either part may be missing, in which case
// the translation defaults to (0,0) and the scale to 1. A second scale
// component is accepted and ignored.
//
// Text containing neither a translate nor a scale term is malformed and
// yields an INVALID_TRANSFORM error.
func Parse(s string) (Transform, error) {
	t := Identity
	found := false

	if m := translateRe.FindStringSubmatch(s); m != nil {
		x, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Transform{}, apperrors.Wrap(apperrors.ErrCodeInvalidTransform, err, "bad translate x in %q", s)
		}
		var y float64
		if m[2] != "" {
			if y, err = strconv.ParseFloat(m[2], 64); err != nil {
				return Transform{}, apperrors.Wrap(apperrors.ErrCodeInvalidTransform, err, "bad translate y in %q", s)
			}
		}
		t.Translate = Point{X: x, Y: y}
		found = true
	}

	if m := scaleRe.FindStringSubmatch(s); m != nil {
		k, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Transform{}, apperrors.Wrap(apperrors.ErrCodeInvalidTransform, err, "bad scale in %q", s)
		}
		t.Scale = k
		found = true
	}

	if !found {
		return Transform{}, apperrors.New(apperrors.ErrCodeInvalidTransform, "malformed transform %q", s)
	}
	return t, nil
}

// formatFloat writes the shortest decimal that parses back to exactly v.
func formatFloat(v float64) string {
	if v == 0 {
		// Avoid "-0".
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
