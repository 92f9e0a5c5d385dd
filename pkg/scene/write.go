package scene

import (
	"bufio"
	"encoding/xml"
	"io"
)

// WriteTo serializes the whole document as XML.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	return d.Encode(w, d.root)
}

// Encode serializes the subtree rooted at h.
func (d *Document) Encode(w io.Writer, h Handle) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}
	if _, err := d.node(h); err != nil {
		return 0, err
	}
	d.encode(cw, h)
	if cw.err != nil {
		return cw.n, cw.err
	}
	return cw.n, cw.w.Flush()
}

func (d *Document) encode(w *countingWriter, h Handle) {
	n := d.nodes[h]
	w.WriteString("<")
	w.WriteString(n.tag)
	for _, a := range n.attrs {
		w.WriteString(" ")
		w.WriteString(a.Name)
		w.WriteString(`="`)
		w.escape(a.Value)
		w.WriteString(`"`)
	}

	live := 0
	for _, c := range n.children {
		if !d.nodes[c].removed {
			live++
		}
	}
	if live == 0 && n.text == "" {
		w.WriteString("/>")
		return
	}

	w.WriteString(">")
	if n.text != "" {
		w.escape(n.text)
	}
	for _, c := range n.children {
		if !d.nodes[c].removed {
			d.encode(w, c)
		}
	}
	w.WriteString("</")
	w.WriteString(n.tag)
	w.WriteString(">")
}

// countingWriter remembers the first error so encode can stay linear.
type countingWriter struct {
	w   *bufio.Writer
	n   int64
	err error
}

func (c *countingWriter) WriteString(s string) {
	if c.err != nil {
		return
	}
	n, err := c.w.WriteString(s)
	c.n += int64(n)
	c.err = err
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}

func (c *countingWriter) escape(s string) {
	if c.err != nil {
		return
	}
	_ = xml.EscapeText(c, []byte(s))
}
