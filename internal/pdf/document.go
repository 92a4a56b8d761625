// Package pdf writes PDF documents made of raster images and positioned text.
//
// Objects, fonts and images are managed by pdfcpu. The package keeps the
// content operations of every page itself so callers can post-process what
// a drawing call produced, e.g. rewrite the text matrix of the last text run.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// DefaultCreator is written to the document information dictionary.
const DefaultCreator = "go-realpdf"

// ErrNoPages is returned when saving a document without pages.
var ErrNoPages = errors.New("pdf: document has no pages")

// Document is a PDF under construction.
//
// AddPage, EmbedImage and EmbedFont are safe for concurrent use. A single
// [Page] must only be drawn from one goroutine at a time.
type Document struct {
	mu        sync.Mutex
	ctx       *model.Context
	pagesRef  types.IndirectRef
	pagesDict types.Dict
	pages     []*Page
	fonts     []*Font
	states    map[float64]types.IndirectRef
	creator   string
	out       []byte
}

// NewDocument creates an empty document.
func NewDocument() (*Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.WriteObjectStream = false
	conf.WriteXRefStream = false

	ctx, err := pdfcpu.CreateContextWithXRefTable(conf, types.PaperSize["A4"])
	if err != nil {
		return nil, fmt.Errorf("pdf: create context: %w", err)
	}
	pagesRef, err := ctx.Pages()
	if err != nil {
		return nil, fmt.Errorf("pdf: page tree: %w", err)
	}
	pagesDict, err := ctx.DereferenceDict(*pagesRef)
	if err != nil {
		return nil, fmt.Errorf("pdf: page tree: %w", err)
	}
	return &Document{
		ctx:       ctx,
		pagesRef:  *pagesRef,
		pagesDict: pagesDict,
		states:    make(map[float64]types.IndirectRef),
		creator:   DefaultCreator,
	}, nil
}

// SetCreator overrides the /Creator entry of the information dictionary.
// pdfcpu always names itself as the producer.
func (d *Document) SetCreator(creator string) {
	d.mu.Lock()
	d.creator = creator
	d.mu.Unlock()
}

// AddPage appends a page of the given size in PDF units. Pages keep the
// order in which they were added.
func (d *Document) AddPage(width, height float64) (*Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	dict := types.Dict{
		"Type":     types.Name("Page"),
		"Parent":   d.pagesRef,
		"MediaBox": types.RectForDim(width, height).Array(),
	}
	ref, err := d.ctx.IndRefForNewObject(dict)
	if err != nil {
		return nil, fmt.Errorf("pdf: add page: %w", err)
	}
	if err := model.AppendPageTree(ref, 1, d.pagesDict); err != nil {
		return nil, fmt.Errorf("pdf: add page: %w", err)
	}
	d.ctx.PageCount++

	p := newPage(d, dict, width, height)
	d.pages = append(d.pages, p)
	return p, nil
}

// Pages returns the pages in document order.
func (d *Document) Pages() []*Page {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Page(nil), d.pages...)
}

// Save finalizes the document and writes it to w. Drawing on pages after
// the first Save has no effect on the output.
func (d *Document) Save(w io.Writer) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Bytes saves the document into memory.
func (d *Document) Bytes() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.out != nil {
		return d.out, nil
	}
	if len(d.pages) == 0 {
		return nil, ErrNoPages
	}

	// Fonts no page refers to stay out of the file.
	drawn := make(map[*Font]bool)
	for _, p := range d.pages {
		for f := range p.fonts {
			drawn[f] = true
		}
	}
	fonts := make(map[*Font]types.IndirectRef, len(drawn))
	for _, f := range d.fonts {
		if !drawn[f] {
			continue
		}
		ref, err := f.finish(d.ctx.XRefTable)
		if err != nil {
			return nil, err
		}
		fonts[f] = ref
	}
	for i, p := range d.pages {
		if err := p.finish(d.ctx.XRefTable, fonts); err != nil {
			return nil, fmt.Errorf("pdf: page %d: %w", i+1, err)
		}
	}

	info := types.NewDict()
	info.InsertString("Creator", d.creator)
	ref, err := d.ctx.IndRefForNewObject(info)
	if err != nil {
		return nil, fmt.Errorf("pdf: info: %w", err)
	}
	d.ctx.Info = ref

	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("pdf: write: %w", err)
	}
	d.out = buf.Bytes()
	return d.out, nil
}

// extGState returns the shared graphics state dictionary setting both
// fill and stroke alpha to opacity.
func (d *Document) extGState(opacity float64) (types.IndirectRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ref, ok := d.states[opacity]; ok {
		return ref, nil
	}
	ref, err := d.ctx.IndRefForNewObject(types.Dict{
		"Type": types.Name("ExtGState"),
		"ca":   types.Float(opacity),
		"CA":   types.Float(opacity),
	})
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("pdf: graphics state: %w", err)
	}
	d.states[opacity] = *ref
	return *ref, nil
}
