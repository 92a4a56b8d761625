package realpdf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// optimize reads data back with pdfcpu, which validates it and merges
// duplicate objects, and serializes the optimized document.
func optimize(data []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("realpdf: optimizing PDF: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(ctx, &buf); err != nil {
		return nil, fmt.Errorf("realpdf: writing optimized PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// PageDims is the size of one page in PDF points.
type PageDims struct {
	Width  float64
	Height float64
}

// Info describes an existing PDF.
type Info struct {
	Pages []PageDims
}

// Inspect validates the PDF read from rs and reports its page sizes.
func Inspect(rs io.ReadSeeker) (*Info, error) {
	dims, err := api.PageDims(rs, model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("realpdf: reading PDF: %w", err)
	}
	info := &Info{Pages: make([]PageDims, len(dims))}
	for i, d := range dims {
		info.Pages[i] = PageDims{Width: d.Width, Height: d.Height}
	}
	return info, nil
}
