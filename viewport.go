package realpdf

import (
	"context"
	"math"

	"github.com/chromedp/cdproto/emulation"
)

// PaperSize is a paper format in centimeters, used to size the browser
// viewport the source document is rendered into.
type PaperSize struct {
	Width  float64
	Height float64
}

// Standard paper sizes.
var (
	A3     = PaperSize{Width: 29.7, Height: 42.0}
	A4     = PaperSize{Width: 21.0, Height: 29.7}
	A5     = PaperSize{Width: 14.8, Height: 21.0}
	Letter = PaperSize{Width: 21.59, Height: 27.94}
	Legal  = PaperSize{Width: 21.59, Height: 35.56}
)

// Orientation of the viewport.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape swaps width and height.
	Landscape
)

// Viewport controls the window the source document is laid out in.
//
// Page viewers that render documents as positioned HTML usually scale each
// page to the window width, so the viewport decides the coordinate space of
// the output pages. A zero Viewport renders into a 1280×1024 window.
type Viewport struct {
	// Width and Height in CSS pixels. When zero, Paper is used.
	Width  int64
	Height int64

	// Paper sizes the window to a paper format at 96 dpi when Width and
	// Height are zero.
	Paper PaperSize

	Orientation Orientation

	// Scale is the device scale factor. Defaults to 1.
	Scale float64

	// Mobile emulates a mobile device.
	Mobile bool
}

// DefaultViewport returns the viewport used when none is configured.
func DefaultViewport() Viewport {
	return Viewport{Width: 1280, Height: 1024, Scale: 1}
}

// resolved returns a Viewport with zero fields replaced by defaults.
func (v *Viewport) resolved() Viewport {
	d := DefaultViewport()
	if v == nil {
		return d
	}
	r := *v
	if r.Width <= 0 || r.Height <= 0 {
		if r.Paper != (PaperSize{}) {
			r.Width, r.Height = cmToPixels(r.Paper.Width), cmToPixels(r.Paper.Height)
		} else {
			r.Width, r.Height = d.Width, d.Height
		}
	}
	if r.Orientation == Landscape && r.Width < r.Height {
		r.Width, r.Height = r.Height, r.Width
	}
	if r.Scale <= 0 {
		r.Scale = d.Scale
	}
	return r
}

// cmToPixels converts centimeters to CSS pixels.
func cmToPixels(cm float64) int64 {
	return int64(math.Round(cm / 2.54 * 96))
}

// emulate applies the viewport to the current tab.
func (v Viewport) emulate(ctx context.Context) error {
	return emulation.SetDeviceMetricsOverride(v.Width, v.Height, v.Scale, v.Mobile).Do(ctx)
}
