// Package snapshot holds a captured element tree with its geometry and
// computed styles.
//
// A [Document] implements [layout.View]. It is filled from a live browser
// page by evaluating [Script] and passing the result to [Decode], or from
// pre-rendered markup with absolute positions by [ParseHTML]. Tests and
// other producers can also build one directly with [New] and the setters.
package snapshot

import (
	"fmt"
	"strings"

	"github.com/porticus-lab/go-realpdf/layout"
)

type element struct {
	tag      string
	attrs    map[string]string
	parent   layout.ElementID
	nodes    []layout.ChildNode
	box      layout.Rect
	hasBox   bool
	style    layout.Style
	baseline float64
}

// Document is an in-memory element tree. The zero value is not usable;
// create one with [New].
type Document struct {
	elems     []element
	fontFaces []layout.FontFace
	baseURL   string
}

var _ layout.View = (*Document)(nil)

// DefaultStyle is the style of a new element.
var DefaultStyle = layout.Style{
	Color:     "rgb(0, 0, 0)",
	Opacity:   1,
	FontSize:  16,
	Transform: "none",
}

// New returns a document holding only a root element with the given tag.
func New(rootTag string) *Document {
	d := &Document{}
	d.newElement(rootTag, -1)
	return d
}

func (d *Document) newElement(tag string, parent layout.ElementID) layout.ElementID {
	d.elems = append(d.elems, element{
		tag:    strings.ToLower(tag),
		attrs:  make(map[string]string),
		parent: parent,
		style:  DefaultStyle,
	})
	return layout.ElementID(len(d.elems) - 1)
}

// Append adds a new last child element to parent and returns it.
func (d *Document) Append(parent layout.ElementID, tag string) layout.ElementID {
	d.mustElement(parent)
	el := d.newElement(tag, parent)
	p := &d.elems[parent]
	p.nodes = append(p.nodes, layout.ChildNode{Element: el})
	return el
}

// AppendText adds a text node as the last child of parent.
func (d *Document) AppendText(parent layout.ElementID, text string) {
	p := d.mustElement(parent)
	p.nodes = append(p.nodes, layout.ChildNode{IsText: true, Text: text})
}

// SetBox sets the border box from its top-left corner and size.
func (d *Document) SetBox(el layout.ElementID, left, top, width, height float64) {
	e := d.mustElement(el)
	e.box = layout.Rect{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
		Width:  width,
		Height: height,
	}
	e.hasBox = true
}

// SetStyle replaces the computed style of el.
func (d *Document) SetStyle(el layout.ElementID, s layout.Style) {
	d.mustElement(el).style = s
}

// SetAttr sets an attribute of el.
func (d *Document) SetAttr(el layout.ElementID, name, value string) {
	d.mustElement(el).attrs[strings.ToLower(name)] = value
}

// SetBaseline sets the value reported by BaselineOffset.
func (d *Document) SetBaseline(el layout.ElementID, offset float64) {
	d.mustElement(el).baseline = offset
}

// AddFontFace records an @font-face rule.
func (d *Document) AddFontFace(family, src string) {
	d.fontFaces = append(d.fontFaces, layout.FontFace{Family: family, Src: src})
}

// SetBaseURL sets the URL relative font sources resolve against.
func (d *Document) SetBaseURL(u string) { d.baseURL = u }

// BaseURL returns the document URL, if known.
func (d *Document) BaseURL() string { return d.baseURL }

// Len returns the number of elements.
func (d *Document) Len() int { return len(d.elems) }

func (d *Document) mustElement(el layout.ElementID) *element {
	if el < 0 || int(el) >= len(d.elems) {
		panic(fmt.Sprintf("snapshot: element %d out of range", el))
	}
	return &d.elems[el]
}

func (d *Document) element(el layout.ElementID) (*element, bool) {
	if el < 0 || int(el) >= len(d.elems) {
		return nil, false
	}
	return &d.elems[el], true
}

// Root implements layout.View.
func (d *Document) Root() layout.ElementID { return 0 }

// TagName implements layout.View.
func (d *Document) TagName(el layout.ElementID) string {
	if e, ok := d.element(el); ok {
		return e.tag
	}
	return ""
}

// BoundingBox implements layout.View.
func (d *Document) BoundingBox(el layout.ElementID) (layout.Rect, error) {
	e, ok := d.element(el)
	if !ok || !e.hasBox {
		return layout.Rect{}, layout.ErrNoGeometry
	}
	return e.box, nil
}

// ComputedStyle implements layout.View.
func (d *Document) ComputedStyle(el layout.ElementID) layout.Style {
	if e, ok := d.element(el); ok {
		return e.style
	}
	return DefaultStyle
}

// TextContent implements layout.View.
func (d *Document) TextContent(el layout.ElementID) string {
	var sb strings.Builder
	d.appendText(&sb, el)
	return sb.String()
}

func (d *Document) appendText(sb *strings.Builder, el layout.ElementID) {
	e, ok := d.element(el)
	if !ok {
		return
	}
	for _, n := range e.nodes {
		if n.IsText {
			sb.WriteString(n.Text)
		} else {
			d.appendText(sb, n.Element)
		}
	}
}

// Children implements layout.View.
func (d *Document) Children(el layout.ElementID) []layout.ElementID {
	e, ok := d.element(el)
	if !ok {
		return nil
	}
	var out []layout.ElementID
	for _, n := range e.nodes {
		if !n.IsText {
			out = append(out, n.Element)
		}
	}
	return out
}

// ChildNodes implements layout.View.
func (d *Document) ChildNodes(el layout.ElementID) []layout.ChildNode {
	if e, ok := d.element(el); ok {
		return e.nodes
	}
	return nil
}

// Parent implements layout.View.
func (d *Document) Parent(el layout.ElementID) (layout.ElementID, bool) {
	e, ok := d.element(el)
	if !ok || e.parent < 0 {
		return 0, false
	}
	return e.parent, true
}

// Attribute implements layout.View.
func (d *Document) Attribute(el layout.ElementID, name string) (string, bool) {
	e, ok := d.element(el)
	if !ok {
		return "", false
	}
	v, ok := e.attrs[strings.ToLower(name)]
	return v, ok
}

// BaselineOffset implements layout.View.
func (d *Document) BaselineOffset(el layout.ElementID) float64 {
	if e, ok := d.element(el); ok {
		return e.baseline
	}
	return 0
}

// FontFaceRules implements layout.View.
func (d *Document) FontFaceRules() []layout.FontFace {
	return d.fontFaces
}
