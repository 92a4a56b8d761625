package layout

import (
	"errors"
	"log/slog"
	"strings"
)

var (
	// ErrNotPaginatable is returned when a document yields no pages.
	ErrNotPaginatable = errors.New("layout: no pages extracted")

	// ErrNoGeometry is returned by a View for an element without a box.
	ErrNoGeometry = errors.New("layout: element has no geometry")
)

// Page is one output page. Coordinates of its primitives are relative to
// the page's bottom-left corner with y growing upwards.
type Page struct {
	Width  float64
	Height float64
	Images []ImagePrimitive
	Text   []TextPrimitive
}

// ImagePrimitive is an embedded image placed on a page.
type ImagePrimitive struct {
	Left   float64
	Bottom float64
	Width  float64
	Height float64
	Src    string // data: URI
}

// TextPrimitive is a run of text placed on a page. Bottom is the baseline.
type TextPrimitive struct {
	Left       float64
	Bottom     float64
	Width      float64
	Height     float64
	FontFamily string
	Size       float64
	Color      *Color  // nil when the computed color was not rgb()/rgba()
	Opacity    float64 // accumulated opacity including color alpha
	Transform  *Matrix // nil when no ancestor is transformed
	Text       string
}

// ExtractPages segments v and flattens every page into image and text
// primitives. Pages whose box cannot be measured are skipped.
func ExtractPages(v View, logger *slog.Logger) ([]Page, error) {
	if logger == nil {
		logger = slog.Default()
	}
	roots, ok := Segment(v)
	if !ok {
		return nil, ErrNotPaginatable
	}

	pages := make([]Page, 0, len(roots))
	for i, root := range roots {
		box, err := v.BoundingBox(root)
		if err != nil {
			logger.Warn("layout: skipping page without geometry", "page", i, "error", err)
			continue
		}
		w := walker{
			view:   v,
			logger: logger,
			page:   &Page{Width: box.Width, Height: box.Height},
			pageX:  box.Left,
			pageY:  box.Bottom,
		}
		w.visit(root, 1, Identity())
		pages = append(pages, *w.page)
	}
	if len(pages) == 0 {
		return nil, ErrNotPaginatable
	}
	return pages, nil
}

type walker struct {
	view   View
	logger *slog.Logger
	page   *Page
	pageX  float64
	pageY  float64
}

func (w *walker) visit(el ElementID, opacity float64, m Matrix) {
	v := w.view
	if isImage(v, el) {
		box, err := v.BoundingBox(el)
		if err != nil {
			w.logger.Debug("layout: image without geometry", "error", err)
			return
		}
		src, _ := v.Attribute(el, "src")
		w.page.Images = append(w.page.Images, ImagePrimitive{
			Left:   box.Left - w.pageX,
			Bottom: w.pageY - box.Bottom,
			Width:  box.Width,
			Height: box.Height,
			Src:    src,
		})
		return
	}

	style := v.ComputedStyle(el)
	if t := ParseTransform(style.Transform); !t.IsIdentity() {
		m = m.Multiply(t)
	}

	if isTextLeaf(v, el) {
		w.emitText(el, style, opacity, m)
		return
	}

	opacity *= style.Opacity
	for _, c := range v.Children(el) {
		w.visit(c, opacity, m)
	}
}

func (w *walker) emitText(el ElementID, style Style, opacity float64, m Matrix) {
	v := w.view
	box, err := v.BoundingBox(el)
	if err != nil {
		w.logger.Debug("layout: text without geometry", "error", err)
		return
	}
	baseline := v.BaselineOffset(el)

	opacity *= style.Opacity
	var color *Color
	if c, alpha, ok := ParseColor(style.Color); ok {
		color = &c
		opacity *= alpha
	}

	var transform *Matrix
	if !m.IsIdentity() {
		transform = &m
	}

	w.page.Text = append(w.page.Text, TextPrimitive{
		Left:       box.Left - w.pageX,
		Bottom:     w.pageY - box.Bottom - baseline,
		Width:      box.Width,
		Height:     box.Height,
		FontFamily: style.FontFamily,
		Size:       style.FontSize,
		Color:      color,
		Opacity:    opacity,
		Transform:  transform,
		Text:       v.TextContent(el),
	})
}

// isTextLeaf reports whether el is drawn as a single text run: it owns a
// non-blank text node or has nothing but text nodes, and its text content
// is not empty.
func isTextLeaf(v View, el ElementID) bool {
	nodes := v.ChildNodes(el)
	ownsText, onlyText := false, true
	for _, n := range nodes {
		if !n.IsText {
			onlyText = false
			continue
		}
		if strings.TrimSpace(n.Text) != "" {
			ownsText = true
		}
	}
	return (ownsText || onlyText) && v.TextContent(el) != ""
}
