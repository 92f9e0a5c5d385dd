package scene

import "strings"

// declaration is one "name: value" pair of an inline style.
type declaration struct {
	name, value string
}

func parseStyle(s string) []declaration {
	var decls []declaration
	for _, part := range strings.Split(s, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		decls = append(decls, declaration{name: name, value: strings.TrimSpace(value)})
	}
	return decls
}

func formatStyle(decls []declaration) string {
	var b strings.Builder
	for i, d := range decls {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(d.name)
		b.WriteString(": ")
		b.WriteString(d.value)
		b.WriteByte(';')
	}
	return b.String()
}

// Style returns the inline style property name of h and whether it is set.
func (d *Document) Style(h Handle, name string) (string, bool) {
	raw, ok := d.Attr(h, "style")
	if !ok {
		return "", false
	}
	name = strings.ToLower(name)
	for _, decl := range parseStyle(raw) {
		if decl.name == name {
			return decl.value, true
		}
	}
	return "", false
}

// SetStyle sets the inline style property name of h.
func (d *Document) SetStyle(h Handle, name, value string) error {
	if _, err := d.node(h); err != nil {
		return err
	}
	raw, _ := d.Attr(h, "style")
	decls := parseStyle(raw)
	name = strings.ToLower(name)

	replaced := false
	for i := range decls {
		if decls[i].name == name {
			decls[i].value = value
			replaced = true
		}
	}
	if !replaced {
		decls = append(decls, declaration{name: name, value: value})
	}
	return d.SetAttr(h, "style", formatStyle(decls))
}

// RemoveStyle deletes the inline style property name of h. The style
// attribute itself is dropped once it holds no declarations.
func (d *Document) RemoveStyle(h Handle, name string) error {
	if _, err := d.node(h); err != nil {
		return err
	}
	raw, ok := d.Attr(h, "style")
	if !ok {
		return nil
	}
	name = strings.ToLower(name)

	var kept []declaration
	for _, decl := range parseStyle(raw) {
		if decl.name != name {
			kept = append(kept, decl)
		}
	}
	if len(kept) == 0 {
		return d.RemoveAttr(h, "style")
	}
	return d.SetAttr(h, "style", formatStyle(kept))
}

// Hidden reports whether h itself is set to display:none, either through its
// inline style or its presentation attribute.
func (d *Document) Hidden(h Handle) bool {
	if v, ok := d.Style(h, "display"); ok {
		return strings.TrimSpace(v) == "none"
	}
	v, ok := d.Attr(h, "display")
	return ok && strings.TrimSpace(v) == "none"
}
