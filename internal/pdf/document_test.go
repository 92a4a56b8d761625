package pdf

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"sync"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/font/gofont/goregular"
)

func testPNG(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: alpha})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newDoc(t *testing.T) *Document {
	t.Helper()
	doc, err := NewDocument()
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return doc
}

func addPage(t *testing.T, doc *Document, w, h float64) *Page {
	t.Helper()
	page, err := doc.AddPage(w, h)
	if err != nil {
		t.Fatalf("AddPage: %v", err)
	}
	return page
}

func validate(t *testing.T, data []byte) {
	t.Helper()
	if !bytes.HasPrefix(data, []byte("%PDF-1.7")) {
		t.Fatalf("missing PDF header: %q", data[:min(len(data), 16)])
	}
	if err := api.Validate(bytes.NewReader(data), model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("pdfcpu validate: %v", err)
	}
}

func TestSaveWithoutPages(t *testing.T) {
	_, err := newDoc(t).Bytes()
	if !errors.Is(err, ErrNoPages) {
		t.Fatalf("err = %v, want ErrNoPages", err)
	}
}

func TestDocumentPages(t *testing.T) {
	doc := newDoc(t)
	addPage(t, doc, 200, 100)
	addPage(t, doc, 300, 400)

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	validate(t, data)

	dims, err := api.PageDims(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("PageDims: %v", err)
	}
	if len(dims) != 2 {
		t.Fatalf("got %d pages, want 2", len(dims))
	}
	if dims[0].Width != 200 || dims[0].Height != 100 {
		t.Errorf("page 1 = %vx%v, want 200x100", dims[0].Width, dims[0].Height)
	}
	if dims[1].Width != 300 || dims[1].Height != 400 {
		t.Errorf("page 2 = %vx%v, want 300x400", dims[1].Width, dims[1].Height)
	}
}

func TestEmbedImage(t *testing.T) {
	tests := []struct {
		name      string
		alpha     uint8
		wantSMask bool
	}{
		{"opaque", 255, false},
		{"translucent", 128, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newDoc(t)
			page := addPage(t, doc, 100, 100)
			img, err := doc.EmbedImage(testPNG(t, 4, 3, tt.alpha))
			if err != nil {
				t.Fatalf("EmbedImage: %v", err)
			}
			if img.Width != 4 || img.Height != 3 {
				t.Errorf("size = %dx%d, want 4x3", img.Width, img.Height)
			}
			page.DrawImage(img, 10, 20, 40, 30)

			want := []string{"q", "40 0 0 30 10 20 cm", "/Im1 Do", "Q"}
			if got := opStrings(page); strings.Join(got, "|") != strings.Join(want, "|") {
				t.Errorf("ops = %q, want %q", got, want)
			}

			data, err := doc.Bytes()
			if err != nil {
				t.Fatalf("Bytes: %v", err)
			}
			validate(t, data)
			if got := bytes.Contains(data, []byte("/SMask")); got != tt.wantSMask {
				t.Errorf("SMask present = %v, want %v", got, tt.wantSMask)
			}
		})
	}
}

func TestEmbedImageRejectsNonPNG(t *testing.T) {
	doc := newDoc(t)
	_, err := doc.EmbedImage([]byte("\xff\xd8\xff\xe0 jpeg"))
	if !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("err = %v, want ErrUnsupportedImage", err)
	}
}

func TestDrawText(t *testing.T) {
	doc := newDoc(t)
	font, err := doc.EmbedFont(goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedFont: %v", err)
	}
	if font.Name() == "" {
		t.Error("font has no name")
	}

	page := addPage(t, doc, 300, 200)
	err = page.DrawText("Hi", TextOptions{
		Font:    font,
		X:       12,
		Y:       34.5,
		Size:    12,
		Opacity: 0,
		Color:   &Color{R: 1, G: 0, B: 0},
	})
	if err != nil {
		t.Fatalf("DrawText: %v", err)
	}

	ops := page.Operations()
	wantOps := []string{OpPushState, OpSetState, OpBeginText, OpFillRGB, OpFont, OpTextMatrix, OpShowText, OpEndText, OpPopState}
	if len(ops) != len(wantOps) {
		t.Fatalf("got %d ops %q, want %d", len(ops), opStrings(page), len(wantOps))
	}
	for i, op := range ops {
		if op.Operator != wantOps[i] {
			t.Errorf("op[%d] = %q, want %q", i, op.Operator, wantOps[i])
		}
	}
	if got := ops[5].String(); got != "1 0 0 1 12 34.5 Tm" {
		t.Errorf("Tm = %q", got)
	}
	hex, ok := ops[6].Operands[0].(types.HexLiteral)
	if !ok {
		t.Fatalf("Tj operand = %T, want hex string", ops[6].Operands[0])
	}
	if b, _ := hex.Bytes(); len(b) != 4 {
		t.Errorf("encoded length = %d, want 4", len(b))
	}

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	validate(t, data)
	for _, want := range []string{"/Type0", "/Identity-H", "/CIDFontType2", "/FontFile2", "/ToUnicode", "/ExtGState"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("output lacks %s", want)
		}
	}
}

func TestDrawTextOpaqueSkipsGraphicsState(t *testing.T) {
	doc := newDoc(t)
	font, err := doc.EmbedFont(goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedFont: %v", err)
	}
	page := addPage(t, doc, 100, 100)
	if err := page.DrawText("a\nb", TextOptions{Font: font, Size: 10, Opacity: 1}); err != nil {
		t.Fatalf("DrawText: %v", err)
	}
	var ops []string
	for _, op := range page.Operations() {
		ops = append(ops, op.Operator)
	}
	got := strings.Join(ops, " ")
	want := "q BT Tf TL Tm Tj T* Tj ET Q"
	if got != want {
		t.Errorf("ops = %q, want %q", got, want)
	}
}

func TestDrawTextWithoutFont(t *testing.T) {
	page := addPage(t, newDoc(t), 10, 10)
	if err := page.DrawText("x", TextOptions{Size: 10}); !errors.Is(err, ErrNoFont) {
		t.Fatalf("err = %v, want ErrNoFont", err)
	}
}

func TestSharedGraphicsState(t *testing.T) {
	doc := newDoc(t)
	a, _ := doc.extGState(0.5)
	b, _ := doc.extGState(0.5)
	c, err := doc.extGState(0.25)
	if err != nil {
		t.Fatalf("extGState: %v", err)
	}
	if a != b {
		t.Errorf("same opacity produced %v and %v", a, b)
	}
	if a == c {
		t.Error("different opacities share a graphics state")
	}
}

func TestConcurrentPages(t *testing.T) {
	doc := newDoc(t)
	font, err := doc.EmbedFont(goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedFont: %v", err)
	}
	pixel := testPNG(t, 2, 2, 255)

	const n = 8
	pages := make([]*Page, n)
	for i := range pages {
		pages[i] = addPage(t, doc, float64(100+i), 100)
	}

	var wg sync.WaitGroup
	for _, p := range pages {
		wg.Add(1)
		go func(p *Page) {
			defer wg.Done()
			img, err := doc.EmbedImage(pixel)
			if err != nil {
				t.Error(err)
				return
			}
			p.DrawImage(img, 0, 0, 2, 2)
			if err := p.DrawText("page", TextOptions{Font: font, Size: 8, Opacity: 0.5}); err != nil {
				t.Error(err)
			}
		}(p)
	}
	wg.Wait()

	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	validate(t, data)

	dims, err := api.PageDims(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		t.Fatalf("PageDims: %v", err)
	}
	for i, d := range dims {
		if d.Width != float64(100+i) {
			t.Errorf("page %d width = %v, want %d", i+1, d.Width, 100+i)
		}
	}
}

func TestEmbedFontTwice(t *testing.T) {
	doc := newDoc(t)
	a, err := doc.EmbedFont(goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedFont: %v", err)
	}
	b, err := doc.EmbedFont(goregular.TTF)
	if err != nil {
		t.Fatalf("EmbedFont again: %v", err)
	}
	if a.Name() != b.Name() {
		t.Errorf("names differ: %q and %q", a.Name(), b.Name())
	}
	if !strings.HasPrefix(a.Name(), "GoRegular-") {
		t.Errorf("name = %q, want GoRegular- prefix", a.Name())
	}
}

func TestEmbedFontRejectsGarbage(t *testing.T) {
	if _, err := newDoc(t).EmbedFont([]byte("not a font")); err == nil {
		t.Fatal("expected error")
	}
}

func TestUnusedFontIsNotWritten(t *testing.T) {
	doc := newDoc(t)
	if _, err := doc.EmbedFont(goregular.TTF); err != nil {
		t.Fatalf("EmbedFont: %v", err)
	}
	addPage(t, doc, 50, 50)
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	validate(t, data)
	if bytes.Contains(data, []byte("/FontFile2")) {
		t.Error("unused font was embedded")
	}
}

func TestCreator(t *testing.T) {
	doc := newDoc(t)
	doc.SetCreator("realpdf test")
	addPage(t, doc, 50, 50)
	data, err := doc.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if !bytes.Contains(data, []byte("(realpdf test)")) {
		t.Error("creator missing from information dictionary")
	}
}

func TestOperationString(t *testing.T) {
	op := &Operation{
		Operator: OpConcat,
		Operands: []types.Object{types.Float(0.5), types.Integer(2), types.Float(-0.00001), types.Float(1.23456789), types.Name("Im1")},
	}
	if got, want := op.String(), "0.5 2 0 1.2346 /Im1 cm"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestNumber(t *testing.T) {
	tests := []struct {
		obj    types.Object
		want   float64
		wantOK bool
	}{
		{types.Integer(3), 3, true},
		{types.Float(-1.25), -1.25, true},
		{types.Name("x"), 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := Number(tt.obj)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("Number(%v) = %v, %v; want %v, %v", tt.obj, got, ok, tt.want, tt.wantOK)
		}
	}
}

func opStrings(p *Page) []string {
	var out []string
	for _, op := range p.Operations() {
		out = append(out, op.String())
	}
	return out
}
