package snapshot

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/porticus-lab/go-realpdf/layout"
)

// ParseOptions controls ParseHTML.
type ParseOptions struct {
	// BaseURL overrides the document's <base href> for resolving font
	// sources.
	BaseURL string
	// Container selects the element whose subtree is captured, as a tag,
	// #id, .class or tag.class selector. Empty means <body>.
	Container string
}

// lineHeight is the line box height relative to the font size when no
// explicit height is given; descent is the part of the em box below the
// baseline.
const (
	lineHeight = 1.2
	descent    = 0.2
)

// ParseHTML reads a pre-rendered snapshot: markup whose elements carry
// absolute geometry in left, top, width and height properties (px, pt or
// em), either inline or in <style> blocks. Positions accumulate through
// ancestors. An element without width or height takes the extent of its
// children, or of its text lines.
func ParseHTML(r io.Reader, opts ParseOptions) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: parse html: %w", err)
	}

	p := &htmlParser{}
	var body *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Style:
				if err == nil {
					err = p.addStyleSheet(textOf(n))
				}
				return
			case atom.Base:
				if p.baseURL == "" {
					p.baseURL = attr(n, "href")
				}
			case atom.Body:
				if body == nil {
					body = n
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("snapshot: document has no body")
	}

	top := body
	if opts.Container != "" {
		sel, ok := parseSelector(opts.Container)
		if !ok {
			return nil, fmt.Errorf("snapshot: unsupported container selector %q", opts.Container)
		}
		if n := find(body, sel); n != nil {
			top = n
		}
	}

	p.doc = New(top.Data)
	if opts.BaseURL != "" {
		p.baseURL = opts.BaseURL
	}
	p.doc.SetBaseURL(p.baseURL)
	for _, f := range p.fontFaces {
		p.doc.AddFontFace(f.Family, f.Src)
	}

	rootCtx := inherited{color: DefaultStyle.Color, fontSize: DefaultStyle.FontSize}
	if err := p.element(p.doc.Root(), top, 0, 0, rootCtx); err != nil {
		return nil, err
	}
	return p.doc, nil
}

type htmlParser struct {
	doc       *Document
	rules     cascade
	fontFaces []layout.FontFace
	baseURL   string
}

// inherited carries the inherited properties down the tree.
type inherited struct {
	color      string
	fontFamily string
	fontSize   float64
}

func (p *htmlParser) addStyleSheet(text string) error {
	sheet, err := parser.Parse(text)
	if err != nil {
		return fmt.Errorf("snapshot: parse style sheet: %w", err)
	}
	p.rules.add(sheet)
	for _, r := range sheet.Rules {
		if r.Kind != css.AtRule || !strings.EqualFold(r.Name, "@font-face") {
			continue
		}
		var face layout.FontFace
		for _, d := range r.Declarations {
			switch strings.ToLower(d.Property) {
			case "font-family":
				face.Family = unquote(d.Value)
			case "src":
				face.Src = strings.TrimSpace(d.Value)
			}
		}
		if face.Family != "" {
			p.fontFaces = append(p.fontFaces, face)
		}
	}
	return nil
}

// element fills el from n. originX and originY are the absolute position
// of the containing element.
func (p *htmlParser) element(el layout.ElementID, n *html.Node, originX, originY float64, ctx inherited) error {
	for _, a := range n.Attr {
		p.doc.SetAttr(el, a.Key, a.Val)
	}

	var inline []*css.Declaration
	if s := strings.TrimSpace(attr(n, "style")); s != "" {
		// douceur drops the value of a final declaration without ';'.
		if !strings.HasSuffix(s, ";") {
			s += ";"
		}
		decls, err := parser.ParseDeclarations(s)
		if err != nil {
			return fmt.Errorf("snapshot: parse style of <%s>: %w", n.Data, err)
		}
		inline = decls
	}
	props := p.rules.declarations(n, inline)

	style := DefaultStyle
	if v, ok := props["font-size"]; ok {
		if size, ok := fontSize(v, ctx.fontSize); ok {
			ctx.fontSize = size
		}
	}
	if v, ok := props["color"]; ok {
		if c, ok := normalizeColor(v); ok {
			ctx.color = c
		}
	}
	if v, ok := props["font-family"]; ok && v != "inherit" {
		ctx.fontFamily = v
	}
	style.Color = ctx.color
	style.FontFamily = ctx.fontFamily
	style.FontSize = ctx.fontSize
	if v, ok := props["opacity"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			style.Opacity = math.Max(0, math.Min(1, f))
		}
	}
	if v, ok := props["transform"]; ok && v != "" {
		style.Transform = v
	}
	p.doc.SetStyle(el, style)

	left, top := originX, originY
	if v, ok := props["left"]; ok {
		if f, ok := parseLength(v, ctx.fontSize); ok {
			left += f
		}
	}
	if v, ok := props["top"]; ok {
		if f, ok := parseLength(v, ctx.fontSize); ok {
			top += f
		}
	}
	width, hasWidth := p.dimension(n, props, "width", ctx.fontSize)
	height, hasHeight := p.dimension(n, props, "height", ctx.fontSize)

	right, bottom := left, top
	lines := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			p.doc.AppendText(el, c.Data)
			if strings.TrimSpace(c.Data) != "" {
				lines += strings.Count(strings.TrimSpace(c.Data), "\n") + 1
			}
		case html.ElementNode:
			if skipElement(c) {
				continue
			}
			child := p.doc.Append(el, c.Data)
			if err := p.element(child, c, left, top, ctx); err != nil {
				return err
			}
			box, _ := p.doc.BoundingBox(child)
			right = math.Max(right, box.Right)
			bottom = math.Max(bottom, box.Bottom)
		}
	}

	if !hasWidth {
		width = right - left
	}
	if !hasHeight {
		height = math.Max(bottom-top, float64(lines)*lineHeight*ctx.fontSize)
	}
	p.doc.SetBox(el, left, top, width, height)
	p.doc.SetBaseline(el, estimateBaseline(height, ctx.fontSize))
	return nil
}

// dimension reads width or height from the style, falling back to the
// img attribute of the same name.
func (p *htmlParser) dimension(n *html.Node, props map[string]string, name string, fontSize float64) (float64, bool) {
	if v, ok := props[name]; ok {
		if f, ok := parseLength(v, fontSize); ok {
			return f, true
		}
	}
	if n.DataAtom == atom.Img {
		if f, err := strconv.ParseFloat(attr(n, name), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// estimateBaseline places the baseline of a single line box of the given
// height: the glyph box is centered, leaving half the leading below it,
// and the baseline sits one descent above the glyph box bottom.
func estimateBaseline(height, fontSize float64) float64 {
	halfLeading := math.Max(0, (height-lineHeight*fontSize)/2)
	return -(halfLeading + descent*fontSize)
}

func fontSize(v string, parent float64) (float64, bool) {
	v = strings.TrimSpace(v)
	if strings.HasSuffix(v, "%") {
		f, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
		if err != nil {
			return 0, false
		}
		return parent * f / 100, true
	}
	return parseLength(v, parent)
}

func skipElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Template, atom.Noscript, atom.Head:
		return true
	}
	return false
}

func find(n *html.Node, sel selector) *html.Node {
	if sel.matches(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if m := find(c, sel); m != nil {
			return m
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}
