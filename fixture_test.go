package realpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/image/font/gofont/goregular"
)

// pngDataURL encodes a small half-transparent PNG as a data URL.
func pngDataURL() string {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 20, G: 40, B: 200, A: uint8(60 * x)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

// fontDataURL is the Go Regular TrueType font as a data URL.
func fontDataURL() string {
	return "data:font/ttf;base64," + base64.StdEncoding.EncodeToString(goregular.TTF)
}

// fakePDFHTML renders pages like a page viewer does: every page is an
// absolutely positioned 100×200 box holding a full-width image and a line
// of text in an embedded font. fontSrc is the @font-face src value.
func fakePDFHTML(pages int, fontSrc string) string {
	img := pngDataURL()
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><style>`)
	fmt.Fprintf(&b, `@font-face { font-family: "Go Regular"; src: %s; }`, fontSrc)
	b.WriteString(`body { margin: 0; }`)
	b.WriteString(`.t { font-family: "Go Regular"; font-size: 12px; color: rgb(0, 0, 0); }`)
	b.WriteString(`</style></head><body><div id="viewer">`)
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&b, `<div class="page" style="position: absolute; left: 0px; top: %dpx; width: 100px; height: 200px">`, i*200)
		fmt.Fprintf(&b, `<img src="%s" style="position: absolute; left: 0px; top: 0px; width: 100px; height: 100px">`, img)
		fmt.Fprintf(&b, `<span class="t" style="position: absolute; left: 10px; top: 150px">Page %d</span>`, i+1)
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
