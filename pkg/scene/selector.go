package scene

import (
	"strconv"
	"strings"
	"unicode"

	apperrors "github.com/matzehuels/dynsvg/pkg/errors"
)

// Selector is a compiled selector list.
//
// Supported syntax:
//   - type selectors (rect, g) and the universal selector *
//   - #id and .class
//   - attribute selectors [a], [a=v], [a~=v], [a^=v], [a$=v], [a*=v] with
//     quoted or bare values
//   - descendant (whitespace) and child (>) combinators
//   - comma-separated groups
type Selector struct {
	groups []complexSelector
	source string
}

type complexSelector struct {
	compounds   []compound
	combinators []byte // combinators[i] joins compounds[i] and compounds[i+1]
}

type compound struct {
	tag     string // "" or "*" matches any element
	ids     []string
	classes []string
	attrs   []attrSelector
}

type attrSelector struct {
	name  string
	op    string // "" means presence only
	value string
}

// String returns the selector source text.
func (s *Selector) String() string { return s.source }

// Compile parses a selector list.
func Compile(src string) (*Selector, error) {
	p := &selectorParser{src: src}
	groups, err := p.parseList()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidSelector, err, "compile %q", src)
	}
	return &Selector{groups: groups, source: src}, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(src string) *Selector {
	s, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return s
}

// Match reports whether h matches any group of s.
func (s *Selector) Match(d *Document, h Handle) bool {
	if !d.Valid(h) {
		return false
	}
	for _, g := range s.groups {
		if g.match(d, h, len(g.compounds)-1) {
			return true
		}
	}
	return false
}

func (c complexSelector) match(d *Document, h Handle, i int) bool {
	if !c.compounds[i].match(d, h) {
		return false
	}
	if i == 0 {
		return true
	}
	switch c.combinators[i-1] {
	case '>':
		p := d.Parent(h)
		return p != None && c.match(d, p, i-1)
	default:
		for p := d.Parent(h); p != None; p = d.Parent(p) {
			if c.match(d, p, i-1) {
				return true
			}
		}
		return false
	}
}

func (c compound) match(d *Document, h Handle) bool {
	if c.tag != "" && c.tag != "*" && !strings.EqualFold(c.tag, d.Tag(h)) {
		return false
	}
	for _, id := range c.ids {
		if v, ok := d.Attr(h, "id"); !ok || v != id {
			return false
		}
	}
	if len(c.classes) > 0 {
		v, _ := d.Attr(h, "class")
		have := strings.Fields(v)
		for _, want := range c.classes {
			if !containsString(have, want) {
				return false
			}
		}
	}
	for _, a := range c.attrs {
		if !a.match(d, h) {
			return false
		}
	}
	return true
}

func (a attrSelector) match(d *Document, h Handle) bool {
	v, ok := d.Attr(h, a.name)
	if !ok {
		return false
	}
	switch a.op {
	case "":
		return true
	case "=":
		return v == a.value
	case "~=":
		return containsString(strings.Fields(v), a.value)
	case "^=":
		return a.value != "" && strings.HasPrefix(v, a.value)
	case "$=":
		return a.value != "" && strings.HasSuffix(v, a.value)
	case "*=":
		return a.value != "" && strings.Contains(v, a.value)
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SelectAll returns every descendant of scope matching selector, in document
// order. scope itself is never part of the result.
func (d *Document) SelectAll(scope Handle, selector string) (Selection, error) {
	s, err := Compile(selector)
	if err != nil {
		return nil, err
	}
	return d.SelectCompiled(scope, s), nil
}

// SelectCompiled is SelectAll for an already compiled selector.
func (d *Document) SelectCompiled(scope Handle, s *Selector) Selection {
	var out Selection
	d.Walk(scope, func(h Handle) bool {
		if h != scope && s.Match(d, h) {
			out = append(out, h)
		}
		return true
	})
	return out
}

// Select returns the first descendant of scope matching selector.
func (d *Document) Select(scope Handle, selector string) (Handle, bool, error) {
	sel, err := d.SelectAll(scope, selector)
	if err != nil || len(sel) == 0 {
		return None, false, err
	}
	return sel[0], true, nil
}

type selectorParser struct {
	src string
	pos int
}

type parseError string

func (e parseError) Error() string { return string(e) }

func (p *selectorParser) errorf(msg string) error {
	return parseError(msg + " at offset " + strconv.Itoa(p.pos))
}

func (p *selectorParser) eof() bool { return p.pos >= len(p.src) }

func (p *selectorParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

func (p *selectorParser) skipSpace() bool {
	start := p.pos
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' }

func isIdentRune(r rune) bool {
	return r == '-' || r == '_' || r == ':' || unicode.IsLetter(r) || unicode.IsDigit(r) || r > 0x7f
}

func (p *selectorParser) ident() string {
	start := p.pos
	for !p.eof() {
		r := rune(p.src[p.pos])
		if r == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
			continue
		}
		if !isIdentRune(r) {
			break
		}
		p.pos++
	}
	return strings.ReplaceAll(p.src[start:p.pos], `\`, "")
}

func (p *selectorParser) parseList() ([]complexSelector, error) {
	var groups []complexSelector
	for {
		p.skipSpace()
		g, err := p.parseComplex()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
		p.skipSpace()
		if p.eof() {
			return groups, nil
		}
		if p.peek() != ',' {
			return nil, p.errorf("unexpected character " + string(p.peek()))
		}
		p.pos++
	}
}

func (p *selectorParser) parseComplex() (complexSelector, error) {
	var c complexSelector
	first, err := p.parseCompound()
	if err != nil {
		return c, err
	}
	c.compounds = append(c.compounds, first)

	for {
		spaced := p.skipSpace()
		if p.eof() || p.peek() == ',' {
			return c, nil
		}
		comb := byte(' ')
		if p.peek() == '>' {
			comb = '>'
			p.pos++
			p.skipSpace()
		} else if !spaced {
			return c, p.errorf("unexpected character " + string(p.peek()))
		}
		next, err := p.parseCompound()
		if err != nil {
			return c, err
		}
		c.combinators = append(c.combinators, comb)
		c.compounds = append(c.compounds, next)
	}
}

func (p *selectorParser) parseCompound() (compound, error) {
	var c compound
	start := p.pos

	if p.peek() == '*' {
		c.tag = "*"
		p.pos++
	} else if !p.eof() && isIdentRune(rune(p.peek())) {
		c.tag = p.ident()
	}

	for !p.eof() {
		switch p.peek() {
		case '#':
			p.pos++
			id := p.ident()
			if id == "" {
				return c, p.errorf("empty id")
			}
			c.ids = append(c.ids, id)
		case '.':
			p.pos++
			class := p.ident()
			if class == "" {
				return c, p.errorf("empty class")
			}
			c.classes = append(c.classes, class)
		case '[':
			a, err := p.parseAttr()
			if err != nil {
				return c, err
			}
			c.attrs = append(c.attrs, a)
		default:
			if p.pos == start {
				return c, p.errorf("expected selector")
			}
			return c, nil
		}
	}
	if p.pos == start {
		return c, p.errorf("expected selector")
	}
	return c, nil
}

func (p *selectorParser) parseAttr() (attrSelector, error) {
	var a attrSelector
	p.pos++ // '['
	p.skipSpace()
	a.name = p.ident()
	if a.name == "" {
		return a, p.errorf("empty attribute name")
	}
	p.skipSpace()

	if p.peek() == ']' {
		p.pos++
		return a, nil
	}

	for _, op := range []string{"~=", "^=", "$=", "*=", "="} {
		if strings.HasPrefix(p.src[p.pos:], op) {
			a.op = op
			p.pos += len(op)
			break
		}
	}
	if a.op == "" {
		return a, p.errorf("bad attribute operator")
	}
	p.skipSpace()

	switch q := p.peek(); q {
	case '"', '\'':
		p.pos++
		end := strings.IndexByte(p.src[p.pos:], q)
		if end < 0 {
			return a, p.errorf("unterminated string")
		}
		a.value = p.src[p.pos : p.pos+end]
		p.pos += end + 1
	default:
		a.value = p.ident()
	}

	p.skipSpace()
	if p.peek() != ']' {
		return a, p.errorf("expected ]")
	}
	p.pos++
	return a, nil
}
