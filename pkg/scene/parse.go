package scene

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

const (
	nsSVG   = "http://www.w3.org/2000/svg"
	nsXML   = "http://www.w3.org/XML/1998/namespace"
	nsXLink = "http://www.w3.org/1999/xlink"
)

// Parse reads an SVG (or any XML) document. Comments, processing
// instructions and directives are dropped; whitespace-only character data
// between elements is ignored. Character data of an element is kept as a
// single string ahead of its children.
func Parse(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity

	prefixes := map[string]string{nsXML: "xml", nsXLink: "xlink"}

	var (
		d     *Document
		stack []Handle
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeInvalidSVG, err, "parse svg")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			attrs := make([]Attr, 0, len(t.Attr))
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" {
					prefixes[a.Value] = a.Name.Local
				}
			}
			for _, a := range t.Attr {
				attrs = append(attrs, Attr{Name: qualify(a.Name, prefixes, true), Value: a.Value})
			}
			tag := qualify(t.Name, prefixes, false)

			if d == nil {
				d = New(tag, attrs...)
				stack = append(stack, d.root)
				continue
			}
			if len(stack) == 0 {
				return nil, apperrors.New(apperrors.ErrCodeInvalidSVG, "multiple root elements")
			}
			h, err := d.Append(stack[len(stack)-1], tag, attrs...)
			if err != nil {
				return nil, err
			}
			stack = append(stack, h)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) == 0 || len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			n := d.nodes[stack[len(stack)-1]]
			n.text += string(t)
		}
	}

	if d == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidSVG, "document has no root element")
	}
	return d, nil
}

// ParseString is a convenience wrapper around [Parse].
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// qualify turns a resolved xml.Name back into its prefixed source form.
func qualify(n xml.Name, prefixes map[string]string, attr bool) string {
	switch {
	case n.Space == "":
		return n.Local
	case attr && n.Space == "xmlns":
		return "xmlns:" + n.Local
	case n.Space == nsSVG && !attr:
		return n.Local
	}
	if p, ok := prefixes[n.Space]; ok {
		return p + ":" + n.Local
	}
	// Undeclared prefixes are reported verbatim by encoding/xml.
	return n.Space + ":" + n.Local
}
