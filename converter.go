package realpdf

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/porticus-lab/go-realpdf/layout"
	"github.com/porticus-lab/go-realpdf/snapshot"
)

// idleWait bounds the wait for the network to go quiet after the page
// load. Pages that keep polling never report idle.
const idleWait = 5 * time.Second

// Converter turns rendered "fake PDF" pages, HTML documents that show
// each page as positioned images and text, into real PDF documents.
//
// A Converter manages a headless browser instance that is reused across
// conversions. One document is open at a time: [Converter.Open] takes a
// snapshot of a page, [Converter.LooksLikePDF] and [Converter.ConvertToPDF]
// work on that snapshot. Concurrent conversions on one Converter fail with
// [ErrBusy]; use several Converters to convert in parallel.
//
// Call [Converter.Close] when the Converter is no longer needed to release
// browser resources.
type Converter struct {
	cfg           converterConfig
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	busy   bool
	doc    *snapshot.Document
}

// NewConverter creates a Converter with the given options.
//
// It starts a headless browser in the background. The caller must call
// [Converter.Close] when finished.
func NewConverter(opts ...Option) (*Converter, error) {
	cfg := newConfig(opts)

	execPath, err := browserPath(cfg)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("realpdf: starting browser: %w", err)
	}

	return &Converter{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the Converter, including the
// browser process. Close is idempotent.
func (c *Converter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.doc = nil
	c.browserCancel()
	c.allocCancel()
	return nil
}

// Open loads rawURL in a new tab, waits for it to settle and snapshots its
// layout. The snapshot replaces any previously opened document; when Open
// fails no document stays open.
func (c *Converter) Open(ctx context.Context, rawURL string) error {
	if err := c.acquire(); err != nil {
		return err
	}
	defer c.release()
	return c.open(ctx, rawURL)
}

// LooksLikePDF reports whether the opened document has the structure of a
// paginated rendering.
func (c *Converter) LooksLikePDF() (bool, error) {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == nil {
		return false, ErrNotOpened
	}
	_, ok := layout.Segment(doc)
	return ok, nil
}

// ConvertToPDF reconstructs the opened document as a PDF.
func (c *Converter) ConvertToPDF(ctx context.Context) (*Result, error) {
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()
	return c.convertOpened(ctx)
}

// ConvertURL opens the page at rawURL and converts it.
func (c *Converter) ConvertURL(ctx context.Context, rawURL string) (*Result, error) {
	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("realpdf: invalid URL %q: %w", rawURL, err)
	}
	if err := c.acquire(); err != nil {
		return nil, err
	}
	defer c.release()

	if err := c.open(ctx, rawURL); err != nil {
		return nil, err
	}
	return c.convertOpened(ctx)
}

// ConvertFile opens a local HTML file and converts it.
func (c *Converter) ConvertFile(ctx context.Context, path string) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("realpdf: resolving path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("realpdf: %w", err)
	}
	return c.ConvertURL(ctx, fileURL(abs))
}

// ConvertHTML converts an HTML string. The markup is written to a
// temporary file, so relative references resolve against the temporary
// directory unless the document sets a <base>.
func (c *Converter) ConvertHTML(ctx context.Context, html string) (*Result, error) {
	f, err := os.CreateTemp("", "realpdf-*.html")
	if err != nil {
		return nil, fmt.Errorf("realpdf: creating temp file: %w", err)
	}
	name := f.Name()
	defer os.Remove(name)

	if _, err := f.WriteString(html); err != nil {
		f.Close()
		return nil, fmt.Errorf("realpdf: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("realpdf: closing temp file: %w", err)
	}
	return c.ConvertFile(ctx, name)
}

func (c *Converter) acquire() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.busy {
		return ErrBusy
	}
	c.busy = true
	return nil
}

func (c *Converter) release() {
	c.mu.Lock()
	c.busy = false
	c.mu.Unlock()
}

func (c *Converter) open(ctx context.Context, targetURL string) error {
	c.mu.Lock()
	c.doc = nil
	c.mu.Unlock()

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	tabCtx, tabCancel := chromedp.NewContext(c.browserCtx)
	defer tabCancel()
	// Tie the tab to the caller's deadline.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	// Enabling lifecycle events replays those of the blank start page, so
	// networkIdle only counts after the navigated document's init.
	var navigating, loading atomic.Bool
	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		switch {
		case e.Name == "init" && navigating.Load():
			loading.Store(true)
		case e.Name == "networkIdle" && loading.Load():
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	viewport := c.cfg.viewport.resolved()
	c.cfg.logger.Info("realpdf: opening document", "url", targetURL, "viewport", fmt.Sprintf("%dx%d", viewport.Width, viewport.Height))

	var raw string
	if err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(viewport.emulate),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(context.Context) error {
			navigating.Store(true)
			return nil
		}),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			return waitIdle(ctx, idle, idleWait)
		}),
		chromedp.Evaluate(snapshot.Script(c.cfg.container), &raw),
	); err != nil {
		return fmt.Errorf("realpdf: opening %s: %w", targetURL, err)
	}

	doc, err := snapshot.Decode([]byte(raw))
	if err != nil {
		return fmt.Errorf("realpdf: %w", err)
	}
	if doc.BaseURL() == "" {
		doc.SetBaseURL(targetURL)
	}

	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	return nil
}

// waitIdle blocks until the network went idle or limit elapsed. Only the
// context ending is an error.
func waitIdle(ctx context.Context, idle <-chan struct{}, limit time.Duration) error {
	timer := time.NewTimer(limit)
	defer timer.Stop()
	select {
	case <-idle:
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *Converter) convertOpened(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	if doc == nil {
		return nil, ErrNotOpened
	}
	return convertView(ctx, doc, doc.BaseURL(), c.cfg)
}

// convertView extracts the pages of view and assembles them.
func convertView(ctx context.Context, view layout.View, baseURL string, cfg converterConfig) (*Result, error) {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	cfg.logger.Info("realpdf: analyzing document")
	pages, err := layout.ExtractPages(view, cfg.logger)
	if err != nil {
		return nil, err
	}

	data, err := assemble(ctx, view, pages, baseURL, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.optimize {
		if data, err = optimize(data); err != nil {
			return nil, err
		}
	}
	return &Result{data: data, pages: len(pages)}, nil
}

func fileURL(abs string) string {
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}

// --- Package-level convenience functions ---

// ConvertURL converts a web page using a temporary [Converter].
// For repeated use, create a [Converter] with [NewConverter] to reuse the
// browser instance.
func ConvertURL(ctx context.Context, rawURL string, opts ...Option) (*Result, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ConvertURL(ctx, rawURL)
}

// ConvertFile converts a local HTML file using a temporary [Converter].
func ConvertFile(ctx context.Context, path string, opts ...Option) (*Result, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ConvertFile(ctx, path)
}

// ConvertHTML converts an HTML string using a temporary [Converter].
func ConvertHTML(ctx context.Context, html string, opts ...Option) (*Result, error) {
	conv, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	defer conv.Close()
	return conv.ConvertHTML(ctx, html)
}

// ConvertSnapshot converts an already captured document. No browser is
// started.
func ConvertSnapshot(ctx context.Context, doc *snapshot.Document, opts ...Option) (*Result, error) {
	return convertView(ctx, doc, doc.BaseURL(), newConfig(opts))
}

// ConvertStatic converts pre-rendered markup that carries its own geometry
// (see [snapshot.ParseHTML]) without a browser. [WithContainer] and
// [WithBaseURL] are honored.
func ConvertStatic(ctx context.Context, r io.Reader, opts ...Option) (*Result, error) {
	cfg := newConfig(opts)
	doc, err := snapshot.ParseHTML(r, snapshot.ParseOptions{BaseURL: cfg.baseURL, Container: cfg.container})
	if err != nil {
		return nil, fmt.Errorf("realpdf: %w", err)
	}
	return convertView(ctx, doc, doc.BaseURL(), cfg)
}
