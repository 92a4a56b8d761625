package realpdf

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/porticus-lab/go-realpdf/internal/pdf"
	"github.com/porticus-lab/go-realpdf/layout"
)

var (
	errNoFontFace     = errors.New("no @font-face rule for family")
	errResolveAborted = errors.New("font resolution aborted")
)

// fontEntry is the shared outcome of resolving one family. done is closed
// once font and err are set.
type fontEntry struct {
	done chan struct{}
	font *pdf.Font
	err  error
}

// fontCache resolves each font family of one document at most once, no
// matter how many pages ask for it concurrently.
type fontCache struct {
	doc    *pdf.Document
	faces  []layout.FontFace
	load   func(ctx context.Context, ref string) ([]byte, error)
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*fontEntry
}

func newFontCache(doc *pdf.Document, faces []layout.FontFace, loader fontLoader, logger *slog.Logger) *fontCache {
	return &fontCache{
		doc:     doc,
		faces:   faces,
		load:    loader.load,
		logger:  logger,
		entries: make(map[string]*fontEntry),
	}
}

// getOrResolve returns the embedded font for family. The first caller
// resolves it; the others wait for that result or for ctx to end.
func (c *fontCache) getOrResolve(ctx context.Context, family string) (*pdf.Font, error) {
	c.mu.Lock()
	e, ok := c.entries[family]
	if !ok {
		e = &fontEntry{done: make(chan struct{})}
		c.entries[family] = e
	}
	c.mu.Unlock()

	if !ok {
		c.resolveEntry(ctx, e, family)
		return e.font, e.err
	}

	select {
	case <-e.done:
		return e.font, e.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// resolveEntry fills e and releases its waiters even when resolve
// panics; they then see errResolveAborted.
func (c *fontCache) resolveEntry(ctx context.Context, e *fontEntry, family string) {
	defer close(e.done)
	e.err = &FontError{Family: family, Err: errResolveAborted}
	e.font, e.err = c.resolve(ctx, family)
}

func (c *fontCache) resolve(ctx context.Context, family string) (*pdf.Font, error) {
	face, ok := findFace(c.faces, family)
	if !ok {
		return nil, &FontError{Family: family, Err: errNoFontFace}
	}
	fail := func(err error) error {
		return &FontError{Family: family, Src: truncate(face.Src, 80), Err: err}
	}

	ref, err := fontURL(face.Src)
	if err != nil {
		return nil, fail(err)
	}
	data, err := c.load(ctx, ref)
	if err != nil {
		return nil, fail(err)
	}
	font, err := c.doc.EmbedFont(data)
	if err != nil {
		return nil, fail(err)
	}
	c.logger.Debug("realpdf: font embedded", "family", family, "name", font.Name(), "bytes", len(data))
	return font, nil
}

// findFace returns the rule whose family equals family. Failing an exact
// match, names are compared after unquoting and case folding the first
// entry of each list, since computed styles and rules quote differently.
func findFace(faces []layout.FontFace, family string) (layout.FontFace, bool) {
	for _, f := range faces {
		if f.Family == family {
			return f, true
		}
	}
	want := normalizeFamily(family)
	if want == "" {
		return layout.FontFace{}, false
	}
	for _, f := range faces {
		if normalizeFamily(f.Family) == want {
			return f, true
		}
	}
	return layout.FontFace{}, false
}

func normalizeFamily(s string) string {
	first, _, _ := strings.Cut(s, ",")
	first = strings.TrimSpace(first)
	if len(first) >= 2 && (first[0] == '"' || first[0] == '\'') && first[len(first)-1] == first[0] {
		first = first[1 : len(first)-1]
	}
	return strings.ToLower(strings.TrimSpace(first))
}
