package realpdf

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/porticus-lab/go-realpdf/internal/pdf"
	"github.com/porticus-lab/go-realpdf/layout"
)

// assembler draws extracted pages into one PDF document.
type assembler struct {
	cfg   converterConfig
	doc   *pdf.Document
	fonts *fontCache
}

// assemble renders pages into a PDF. Pages are added in order and then
// drawn concurrently; the first failure cancels the remaining pages and no
// document is returned.
func assemble(ctx context.Context, view layout.View, pages []layout.Page, baseURL string, cfg converterConfig) ([]byte, error) {
	if baseURL == "" {
		baseURL = cfg.baseURL
	}
	doc, err := pdf.NewDocument()
	if err != nil {
		return nil, err
	}
	a := &assembler{
		cfg:   cfg,
		doc:   doc,
		fonts: newFontCache(doc, view.FontFaceRules(), fontLoader{client: cfg.httpClient, base: baseURL}, cfg.logger),
	}
	logger := cfg.logger

	logger.Info("realpdf: converting pages", "pages", len(pages), "text", cfg.textMode)
	targets := make([]*pdf.Page, len(pages))
	for i, p := range pages {
		if targets[i], err = doc.AddPage(p.Width, p.Height); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg        sync.WaitGroup
		sem       = make(chan struct{}, cfg.concurrency)
		errCh     = make(chan error, len(pages))
		remaining atomic.Int64
	)
	remaining.Store(int64(len(pages)))

	for i := range pages {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			if ctx.Err() != nil {
				return
			}

			if err := a.drawPage(ctx, targets[i], &pages[i], i); err != nil {
				errCh <- err
				cancel()
				return
			}
			logger.Info("realpdf: page converted", "page", i+1, "remaining", remaining.Add(-1))
		}(i)
	}
	wg.Wait()
	close(errCh)

	if err := firstError(errCh); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger.Info("realpdf: generating PDF")
	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("realpdf: writing PDF: %w", err)
	}
	return data, nil
}

// firstError drains errs and prefers a real failure over the context
// errors it caused in sibling pages.
func firstError(errs <-chan error) error {
	var first error
	for err := range errs {
		if first == nil {
			first = err
		}
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	return first
}

// drawPage paints every image of page, then every text run.
func (a *assembler) drawPage(ctx context.Context, target *pdf.Page, page *layout.Page, index int) error {
	for _, img := range page.Images {
		image, err := a.embedImage(img.Src)
		if err != nil {
			err.Page = index
			return err
		}
		target.DrawImage(image, img.Left, img.Bottom, img.Width, img.Height)
	}

	for _, run := range page.Text {
		if err := ctx.Err(); err != nil {
			return err
		}
		font, err := a.fonts.getOrResolve(ctx, run.FontFamily)
		if err != nil {
			return err
		}

		opts := pdf.TextOptions{
			Font:    font,
			X:       run.Left,
			Y:       run.Bottom,
			Size:    run.Size,
			Opacity: run.Opacity,
		}
		if a.cfg.textMode == TransparentText {
			opts.Opacity = 0
		}
		if c := run.Color; c != nil {
			opts.Color = &pdf.Color{R: c.R / 255, G: c.G / 255, B: c.B / 255}
		}
		if err := target.DrawText(run.Text, opts); err != nil {
			return fmt.Errorf("realpdf: page %d: %w", index+1, err)
		}

		if run.Transform != nil && !patchTextMatrix(target.Operations(), *run.Transform) {
			a.cfg.logger.Debug("realpdf: no text matrix to transform", "page", index+1, "text", truncate(run.Text, 32))
		}
	}
	return nil
}

func (a *assembler) embedImage(src string) (*pdf.Image, *ImageError) {
	fail := func(err error) *ImageError {
		return &ImageError{Src: truncate(src, 48), Err: err}
	}
	mediaType, data, err := decodeDataURL(src)
	if err != nil {
		return nil, fail(err)
	}
	if mediaType != "image/png" {
		return nil, fail(fmt.Errorf("%w: %s", ErrUnsupportedImage, mediaType))
	}
	img, err := a.doc.EmbedImage(data)
	if errors.Is(err, pdf.ErrUnsupportedImage) {
		return nil, fail(fmt.Errorf("%w: %v", ErrUnsupportedImage, err))
	}
	if err != nil {
		return nil, fail(err)
	}
	return img, nil
}

// patchTextMatrix walks ops backwards from the end, stopping at the
// nearest q, and replaces the operands of the first Tm found with the
// current matrix multiplied by m. It reports whether a Tm was patched.
func patchTextMatrix(ops []*pdf.Operation, m layout.Matrix) bool {
	for i := len(ops) - 1; i >= 0; i-- {
		switch ops[i].Operator {
		case pdf.OpPushState:
			return false
		case pdf.OpTextMatrix:
			current, ok := operandMatrix(ops[i].Operands)
			if !ok {
				return false
			}
			patched := current.Multiply(m)
			operands := make([]types.Object, len(patched))
			for j, v := range patched {
				operands[j] = types.Float(v)
			}
			ops[i].Operands = operands
			return true
		}
	}
	return false
}

func operandMatrix(operands []types.Object) (layout.Matrix, bool) {
	values := make([]float64, 0, len(operands))
	for _, o := range operands {
		v, ok := pdf.Number(o)
		if !ok {
			return layout.Matrix{}, false
		}
		values = append(values, v)
	}
	return layout.MatrixFromList(values)
}
