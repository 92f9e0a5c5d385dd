// Package scene is an in-memory SVG element tree addressed by handles.
//
// A [Document] owns a table of elements. Callers refer to elements through a
// [Handle], an index into that table, instead of holding pointers. Removing an
// element marks its slot dead; every accessor invoked with a dead or unknown
// handle returns [ErrStale] so that code replaying saved state against a
// mutated tree can detect and skip vanished elements.
//
// Elements expose two families of presentation values:
//   - plain attributes ([Document.Attr], [Document.SetAttr], [Document.RemoveAttr])
//   - inline style properties stored in the "style" attribute
//     ([Document.Style], [Document.SetStyle], [Document.RemoveStyle])
//
// Documents are read with [Parse], queried with CSS-like selectors through
// [Document.SelectAll], measured with [Document.BBox] and written back with
// [Document.WriteTo].
//
// A Document is not safe for concurrent use.
package scene

import (
	"errors"
	"slices"
)

// ErrStale is returned when a handle refers to an element that was removed
// or never existed in the document.
var ErrStale = errors.New("stale element handle")

// Handle identifies an element within one Document.
type Handle int

// None is the zero value for "no element".
const None Handle = -1

// Selection is an ordered list of element handles in document order.
type Selection []Handle

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

type node struct {
	tag      string
	attrs    []Attr
	text     string
	parent   Handle
	children []Handle
	removed  bool
}

// Document is a tree of SVG elements.
type Document struct {
	nodes []*node
	root  Handle
}

// New creates a document containing a single root element.
func New(rootTag string, attrs ...Attr) *Document {
	d := &Document{}
	d.root = d.alloc(rootTag, None, attrs)
	return d
}

func (d *Document) alloc(tag string, parent Handle, attrs []Attr) Handle {
	h := Handle(len(d.nodes))
	d.nodes = append(d.nodes, &node{
		tag:    tag,
		attrs:  slices.Clone(attrs),
		parent: parent,
	})
	return h
}

func (d *Document) node(h Handle) (*node, error) {
	if h < 0 || int(h) >= len(d.nodes) || d.nodes[h].removed {
		return nil, ErrStale
	}
	return d.nodes[h], nil
}

// Root returns the handle of the document element.
func (d *Document) Root() Handle { return d.root }

// Len returns the number of live elements.
func (d *Document) Len() int {
	n := 0
	for _, nd := range d.nodes {
		if !nd.removed {
			n++
		}
	}
	return n
}

// Valid reports whether h refers to a live element.
func (d *Document) Valid(h Handle) bool {
	_, err := d.node(h)
	return err == nil
}

// Tag returns the element name of h, or "" for a stale handle.
func (d *Document) Tag(h Handle) string {
	n, err := d.node(h)
	if err != nil {
		return ""
	}
	return n.tag
}

// Text returns the character data directly inside h.
func (d *Document) Text(h Handle) string {
	n, err := d.node(h)
	if err != nil {
		return ""
	}
	return n.text
}

// SetText replaces the character data directly inside h.
func (d *Document) SetText(h Handle, text string) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	n.text = text
	return nil
}

// Parent returns the parent of h, or None for the root and stale handles.
func (d *Document) Parent(h Handle) Handle {
	n, err := d.node(h)
	if err != nil {
		return None
	}
	return n.parent
}

// Children returns the child elements of h in document order.
func (d *Document) Children(h Handle) []Handle {
	n, err := d.node(h)
	if err != nil {
		return nil
	}
	return slices.Clone(n.children)
}

// Attrs returns a copy of the attributes of h in source order.
func (d *Document) Attrs(h Handle) []Attr {
	n, err := d.node(h)
	if err != nil {
		return nil
	}
	return slices.Clone(n.attrs)
}

// Attr returns the value of the named attribute and whether it is present.
func (d *Document) Attr(h Handle, name string) (string, bool) {
	n, err := d.node(h)
	if err != nil {
		return "", false
	}
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets the named attribute, keeping its position if it already exists.
func (d *Document) SetAttr(h Handle, name, value string) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	for i := range n.attrs {
		if n.attrs[i].Name == name {
			n.attrs[i].Value = value
			return nil
		}
	}
	n.attrs = append(n.attrs, Attr{Name: name, Value: value})
	return nil
}

// RemoveAttr deletes the named attribute. Removing a missing attribute is a no-op.
func (d *Document) RemoveAttr(h Handle, name string) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	n.attrs = slices.DeleteFunc(n.attrs, func(a Attr) bool { return a.Name == name })
	return nil
}

// Append creates a new element as the last child of parent.
func (d *Document) Append(parent Handle, tag string, attrs ...Attr) (Handle, error) {
	p, err := d.node(parent)
	if err != nil {
		return None, err
	}
	h := d.alloc(tag, parent, attrs)
	p.children = append(p.children, h)
	return h, nil
}

// Import deep-copies the root element of src, and everything below it, as
// the last child of parent. It returns the handle of the copied root.
func (d *Document) Import(parent Handle, src *Document) (Handle, error) {
	if _, err := d.node(parent); err != nil {
		return None, err
	}
	return d.importNode(parent, src, src.root)
}

func (d *Document) importNode(parent Handle, src *Document, sh Handle) (Handle, error) {
	sn, err := src.node(sh)
	if err != nil {
		return None, err
	}
	h, err := d.Append(parent, sn.tag, sn.attrs...)
	if err != nil {
		return None, err
	}
	d.nodes[h].text = sn.text
	for _, c := range sn.children {
		if !src.Valid(c) {
			continue
		}
		if _, err := d.importNode(h, src, c); err != nil {
			return None, err
		}
	}
	return h, nil
}

// Remove detaches h from its parent and invalidates h and all its descendants.
// The root element cannot be removed.
func (d *Document) Remove(h Handle) error {
	n, err := d.node(h)
	if err != nil {
		return err
	}
	if h == d.root {
		return errors.New("cannot remove document root")
	}
	if p, err := d.node(n.parent); err == nil {
		p.children = slices.DeleteFunc(p.children, func(c Handle) bool { return c == h })
	}
	d.kill(h)
	return nil
}

func (d *Document) kill(h Handle) {
	n := d.nodes[h]
	n.removed = true
	for _, c := range n.children {
		d.kill(c)
	}
}

// Walk visits h and its descendants depth-first in document order. If fn
// returns false the subtree below the visited element is skipped.
func (d *Document) Walk(h Handle, fn func(Handle) bool) {
	n, err := d.node(h)
	if err != nil {
		return
	}
	if !fn(h) {
		return
	}
	for _, c := range n.children {
		d.Walk(c, fn)
	}
}

// Find returns the first element below scope (inclusive) whose id attribute is id.
func (d *Document) Find(scope Handle, id string) (Handle, bool) {
	found := None
	d.Walk(scope, func(h Handle) bool {
		if found != None {
			return false
		}
		if v, ok := d.Attr(h, "id"); ok && v == id {
			found = h
			return false
		}
		return true
	})
	return found, found != None
}

// Contains reports whether h is scope or one of its descendants.
func (d *Document) Contains(scope, h Handle) bool {
	for h != None {
		if h == scope {
			return true
		}
		h = d.Parent(h)
	}
	return false
}
