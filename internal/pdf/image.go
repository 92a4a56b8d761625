package pdf

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrUnsupportedImage is returned by EmbedImage for data that is not a PNG.
var ErrUnsupportedImage = errors.New("pdf: unsupported image format")

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Image is an image XObject embedded in a [Document].
type Image struct {
	ref    types.IndirectRef
	Width  int
	Height int
}

// EmbedImage adds PNG data to the document as an image XObject.
// Transparency is kept as a soft mask.
func (d *Document) EmbedImage(data []byte) (*Image, error) {
	if !bytes.HasPrefix(data, pngSignature) {
		return nil, ErrUnsupportedImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ref, w, h, err := model.CreateImageResource(d.ctx.XRefTable, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("pdf: embed png: %w", err)
	}
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("pdf: empty image %dx%d", w, h)
	}
	return &Image{ref: *ref, Width: w, Height: h}, nil
}
