// Package layout turns a rendered element tree into pages of positioned
// images and text.
//
// The tree is read through [View]. [Segment] finds the element whose
// children are the pages by looking at where embedded images sit, and
// [ExtractPages] walks each page and flattens it into primitives with
// page-relative, bottom-up coordinates ready for a PDF writer.
package layout

// ElementID identifies an element of a [View]. IDs are only meaningful to
// the view that returned them.
type ElementID int

// Rect is an element's border box in CSS pixels, origin at the top left of
// the document.
type Rect struct {
	Left   float64
	Top    float64
	Right  float64
	Bottom float64
	Width  float64
	Height float64
}

// Style holds the computed style properties extraction needs, in the
// serialized form a browser reports them.
type Style struct {
	Color      string  // e.g. "rgb(0, 0, 0)" or "rgba(10, 20, 30, 0.5)"
	Opacity    float64 // own opacity, 1 when unset
	FontFamily string
	FontSize   float64 // px
	Transform  string // "none" or a transform function list
}

// ChildNode is one direct child of an element: either an element or a
// text node.
type ChildNode struct {
	IsText  bool
	Element ElementID
	Text    string
}

// FontFace is one @font-face rule.
type FontFace struct {
	Family string
	Src    string
}

// View is read-only access to a laid out element tree.
type View interface {
	Root() ElementID
	TagName(el ElementID) string
	// BoundingBox returns ErrNoGeometry when the element has no box.
	BoundingBox(el ElementID) (Rect, error)
	ComputedStyle(el ElementID) Style
	TextContent(el ElementID) string
	// Children returns the element children in document order.
	Children(el ElementID) []ElementID
	// ChildNodes returns element and text children in document order.
	ChildNodes(el ElementID) []ChildNode
	Parent(el ElementID) (ElementID, bool)
	Attribute(el ElementID, name string) (string, bool)
	// BaselineOffset is the vertical distance from the element's bottom
	// edge to the bottom of a zero-size glyph appended as its last child.
	// It is negative when the glyph sits above the bottom edge.
	BaselineOffset(el ElementID) float64
	FontFaceRules() []FontFace
}
