package pdf

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/font"
	pdffont "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/font"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/text/unicode/norm"
)

// ErrNoFontDir is returned by EmbedFont when pdfcpu runs without its
// configuration directory and so has nowhere to keep user fonts.
var ErrNoFontDir = errors.New("pdf: pdfcpu user font directory unavailable")

// userFontDir loads pdfcpu's configuration once; that sets up the user
// font directory and the metrics of the fonts already installed there.
var userFontDir = sync.OnceValues(func() (string, error) {
	model.NewDefaultConfiguration()
	if font.UserFontDir == "" {
		return "", ErrNoFontDir
	}
	return font.UserFontDir, nil
})

var installMu sync.Mutex

// Font is a TrueType font installed as a pdfcpu user font and embedded as
// a subsetted composite (Type0) font with Identity-H encoding: every glyph
// is addressed by its glyph ID.
//
// Encode records which glyphs a document uses; pdfcpu writes the subset,
// its widths and the ToUnicode mapping when the document is saved.
type Font struct {
	name  string
	chars map[uint32]uint16

	mu   sync.Mutex
	used map[uint16]bool
}

// EmbedFont installs TrueType font data and registers it with the
// document. OpenType fonts with CFF outlines are rejected by pdfcpu.
func (d *Document) EmbedFont(data []byte) (*Font, error) {
	name, err := installFont(data)
	if err != nil {
		return nil, err
	}

	font.UserFontMetricsLock.RLock()
	ttf, ok := font.UserFontMetrics[name]
	font.UserFontMetricsLock.RUnlock()
	if !ok {
		return nil, fmt.Errorf("pdf: font %s not loaded", name)
	}

	f := &Font{name: name, chars: ttf.Chars, used: make(map[uint16]bool)}
	d.mu.Lock()
	d.fonts = append(d.fonts, f)
	d.mu.Unlock()
	return f, nil
}

// installFont stores data in pdfcpu's user font directory under a name
// derived from its PostScript name and content, and loads its metrics.
// Installing the same data twice is a no-op.
func installFont(data []byte) (string, error) {
	dir, err := userFontDir()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)

	installMu.Lock()
	defer installMu.Unlock()

	// pdfcpu names the installed file after the PostScript name, which is
	// only known once the font is parsed.
	stage, err := os.MkdirTemp("", "realpdf-font-")
	if err != nil {
		return "", fmt.Errorf("pdf: install font: %w", err)
	}
	defer os.RemoveAll(stage)

	if err := font.InstallFontFromBytes(stage, "embedded font", data); err != nil {
		return "", fmt.Errorf("pdf: install font: %w", err)
	}
	entries, err := os.ReadDir(stage)
	if err != nil || len(entries) != 1 {
		return "", fmt.Errorf("pdf: install font: unexpected result in %s", stage)
	}
	psName := strings.TrimSuffix(entries[0].Name(), filepath.Ext(entries[0].Name()))
	name := fmt.Sprintf("%s-%x", baseFontName(psName), sum[:4])

	font.UserFontMetricsLock.RLock()
	_, loaded := font.UserFontMetrics[name]
	font.UserFontMetricsLock.RUnlock()
	if loaded {
		return name, nil
	}

	rep, err := os.ReadFile(filepath.Join(stage, entries[0].Name()))
	if err != nil {
		return "", fmt.Errorf("pdf: install font: %w", err)
	}
	var ttf font.TTFLight
	if err := gob.NewDecoder(bytes.NewReader(rep)).Decode(&ttf); err != nil {
		return "", fmt.Errorf("pdf: install font: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".gob"), rep, 0o644); err != nil {
		return "", fmt.Errorf("pdf: install font: %w", err)
	}

	font.UserFontMetricsLock.Lock()
	font.UserFontMetrics[name] = ttf
	font.UserFontMetricsLock.Unlock()
	return name, nil
}

// Name returns the user font name, the PostScript name with a content
// hash suffix.
func (f *Font) Name() string {
	return f.name
}

// Encode maps text to the two-byte glyph IDs shown by a Tj operator.
// Runes the font has no glyph for map to glyph 0 (.notdef).
func (f *Font) Encode(text string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()

	text = norm.NFC.String(text)
	out := make([]byte, 0, 2*len(text))
	for _, r := range text {
		gid := f.chars[uint32(r)]
		out = append(out, byte(gid>>8), byte(gid))
		if gid != 0 {
			f.used[gid] = true
		}
	}
	return out
}

// finish hands the used glyphs to pdfcpu and creates the font
// dictionaries. It runs while the document lock is held.
func (f *Font) finish(xRefTable *model.XRefTable) (types.IndirectRef, error) {
	f.mu.Lock()
	used := make(map[uint16]bool, len(f.used))
	for gid := range f.used {
		used[gid] = true
	}
	f.mu.Unlock()

	xRefTable.UsedGIDs[f.name] = used
	ref, err := pdffont.EnsureFontDict(xRefTable, f.name, "", "", false, nil)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("pdf: font %s: %w", f.name, err)
	}
	return *ref, nil
}

func baseFontName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' || strings.ContainsRune(`()<>[]{}/%#\`, r) {
			return -1
		}
		return r
	}, name)
	if name == "" {
		return "EmbeddedFont"
	}
	return name
}
