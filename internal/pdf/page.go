package pdf

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Content stream operators produced by the drawing calls.
const (
	OpPushState  = "q"
	OpPopState   = "Q"
	OpConcat     = "cm"
	OpSetState   = "gs"
	OpXObject    = "Do"
	OpBeginText  = "BT"
	OpEndText    = "ET"
	OpFillRGB    = "rg"
	OpFont       = "Tf"
	OpLeading    = "TL"
	OpTextMatrix = "Tm"
	OpShowText   = "Tj"
	OpNextLine   = "T*"
)

// defaultLineHeight is the line spacing of multi-line text relative to the font size.
const defaultLineHeight = 1.2

// ErrNoFont is returned by DrawText when no font is given.
var ErrNoFont = errors.New("pdf: text drawn without a font")

// Operation is one content stream instruction: operands followed by an
// operator.
type Operation struct {
	Operator string
	Operands []types.Object
}

// String renders the operation in content stream syntax.
func (op *Operation) String() string {
	var sb strings.Builder
	op.writeTo(&sb)
	return sb.String()
}

func (op *Operation) writeTo(sb *strings.Builder) {
	for _, o := range op.Operands {
		if f, ok := o.(types.Float); ok {
			sb.WriteString(formatReal(f.Value()))
		} else {
			sb.WriteString(o.PDFString())
		}
		sb.WriteByte(' ')
	}
	sb.WriteString(op.Operator)
}

// Number returns the value of a numeric operand.
func Number(o types.Object) (float64, bool) {
	switch v := o.(type) {
	case types.Float:
		return v.Value(), true
	case types.Integer:
		return float64(v.Value()), true
	}
	return 0, false
}

// formatReal writes f with at most four decimals, which is below the
// resolution of any output device at PDF unit scale.
func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	s := strconv.FormatFloat(f, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

// Color is an RGB fill color with channels in [0, 1].
type Color struct {
	R, G, B float64
}

// TextOptions controls a DrawText call.
type TextOptions struct {
	Font *Font
	X, Y float64
	Size float64
	// Opacity in [0, 1]. Values below 1 attach a graphics state with the
	// matching fill alpha; 0 draws invisible (but selectable) text.
	Opacity float64
	// Color is the fill color; nil keeps the viewer default (black).
	Color *Color
	// LineHeight separates lines of multi-line text. Zero means 1.2 × Size.
	LineHeight float64
}

// Page is one page of a [Document].
type Page struct {
	doc    *Document
	dict   types.Dict
	width  float64
	height float64
	ops    []*Operation

	fonts  map[*Font]string
	images map[*Image]string
	states map[float64]string
	imgRes types.Dict
	gsRes  types.Dict
}

func newPage(doc *Document, dict types.Dict, width, height float64) *Page {
	return &Page{
		doc:    doc,
		dict:   dict,
		width:  width,
		height: height,
		fonts:  make(map[*Font]string),
		images: make(map[*Image]string),
		states: make(map[float64]string),
		imgRes: types.Dict{},
		gsRes:  types.Dict{},
	}
}

// Size returns the page dimensions.
func (p *Page) Size() (width, height float64) {
	return p.width, p.height
}

// Operations returns the page's content operations in paint order. The
// returned slice and its elements may be modified in place.
func (p *Page) Operations() []*Operation {
	return p.ops
}

// Append adds an operation at the end of the content stream.
func (p *Page) Append(operator string, operands ...types.Object) *Operation {
	op := &Operation{Operator: operator, Operands: operands}
	p.ops = append(p.ops, op)
	return op
}

// Content returns the uncompressed content stream.
func (p *Page) Content() []byte {
	var sb strings.Builder
	for _, op := range p.ops {
		op.writeTo(&sb)
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// DrawImage paints img into the rectangle with lower-left corner (x, y).
func (p *Page) DrawImage(img *Image, x, y, width, height float64) {
	name := p.imageName(img)
	p.Append(OpPushState)
	p.Append(OpConcat, num(width), num(0), num(0), num(height), num(x), num(y))
	p.Append(OpXObject, types.Name(name))
	p.Append(OpPopState)
}

// DrawText shows text with its baseline origin at (opts.X, opts.Y).
//
// Each call emits a self-contained block:
//
//	q [/GSn gs] BT [r g b rg] /Fn size Tf [leading TL] 1 0 0 1 x y Tm <...> Tj [T* <...> Tj]... ET Q
func (p *Page) DrawText(text string, opts TextOptions) error {
	if opts.Font == nil {
		return ErrNoFont
	}
	fontName := p.fontName(opts.Font)
	opacity := math.Max(0, math.Min(1, opts.Opacity))
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var state string
	if opacity < 1 {
		var err error
		if state, err = p.stateName(opacity); err != nil {
			return err
		}
	}

	p.Append(OpPushState)
	if state != "" {
		p.Append(OpSetState, types.Name(state))
	}
	p.Append(OpBeginText)
	if c := opts.Color; c != nil {
		p.Append(OpFillRGB, num(c.R), num(c.G), num(c.B))
	}
	p.Append(OpFont, types.Name(fontName), num(opts.Size))
	if len(lines) > 1 {
		lead := opts.LineHeight
		if lead <= 0 {
			lead = opts.Size * defaultLineHeight
		}
		p.Append(OpLeading, num(lead))
	}
	p.Append(OpTextMatrix, num(1), num(0), num(0), num(1), num(opts.X), num(opts.Y))
	for i, line := range lines {
		if i > 0 {
			p.Append(OpNextLine)
		}
		p.Append(OpShowText, types.NewHexLiteral(opts.Font.Encode(line)))
	}
	p.Append(OpEndText)
	p.Append(OpPopState)
	return nil
}

func num(f float64) types.Float {
	return types.Float(f)
}

func (p *Page) fontName(f *Font) string {
	if name, ok := p.fonts[f]; ok {
		return name
	}
	name := fmt.Sprintf("F%d", len(p.fonts)+1)
	p.fonts[f] = name
	return name
}

func (p *Page) imageName(img *Image) string {
	if name, ok := p.images[img]; ok {
		return name
	}
	name := fmt.Sprintf("Im%d", len(p.images)+1)
	p.images[img] = name
	p.imgRes[name] = img.ref
	return name
}

func (p *Page) stateName(opacity float64) (string, error) {
	if name, ok := p.states[opacity]; ok {
		return name, nil
	}
	ref, err := p.doc.extGState(opacity)
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("GS%d", len(p.states)+1)
	p.states[opacity] = name
	p.gsRes[name] = ref
	return name, nil
}

// finish writes the content stream and resources into the page
// dictionary. It runs while the document lock is held.
func (p *Page) finish(xRefTable *model.XRefTable, fonts map[*Font]types.IndirectRef) error {
	res := types.Dict{}
	if len(p.fonts) > 0 {
		fontRes := types.Dict{}
		for f, name := range p.fonts {
			fontRes[name] = fonts[f]
		}
		res["Font"] = fontRes
	}
	if len(p.imgRes) > 0 {
		res["XObject"] = p.imgRes
	}
	if len(p.gsRes) > 0 {
		res["ExtGState"] = p.gsRes
	}

	sd, err := xRefTable.NewStreamDictForBuf(p.Content())
	if err != nil {
		return err
	}
	if err := sd.Encode(); err != nil {
		return err
	}
	content, err := xRefTable.IndRefForNewObject(*sd)
	if err != nil {
		return err
	}
	p.dict.Update("Resources", res)
	p.dict.Update("Contents", *content)
	return nil
}
