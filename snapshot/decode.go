package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/porticus-lab/go-realpdf/layout"
)

type wireDocument struct {
	BaseURL   string     `json:"baseURL"`
	FontFaces []wireFace `json:"fontFaces"`
	Root      *wireNode  `json:"root"`
}

type wireFace struct {
	Family string `json:"family"`
	Src    string `json:"src"`
}

type wireNode struct {
	Tag      string            `json:"tag"`
	Text     *string           `json:"text"`
	Attrs    map[string]string `json:"attrs"`
	Box      *wireBox          `json:"box"`
	Style    *wireStyle        `json:"style"`
	Baseline float64           `json:"baseline"`
	Children []*wireNode       `json:"children"`
}

type wireBox struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type wireStyle struct {
	Color      string   `json:"color"`
	Opacity    *float64 `json:"opacity"`
	FontFamily string   `json:"fontFamily"`
	FontSize   float64  `json:"fontSize"`
	Transform  string   `json:"transform"`
}

// ErrEmptySnapshot is returned by Decode when the snapshot has no root.
var ErrEmptySnapshot = errors.New("snapshot: no root element")

// Decode builds a Document from the JSON produced by [Script].
func Decode(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	if w.Root == nil || w.Root.Text != nil {
		return nil, ErrEmptySnapshot
	}

	d := New(w.Root.Tag)
	d.SetBaseURL(w.BaseURL)
	for _, f := range w.FontFaces {
		d.AddFontFace(f.Family, f.Src)
	}
	d.fill(d.Root(), w.Root)
	return d, nil
}

func (d *Document) fill(el layout.ElementID, n *wireNode) {
	for k, v := range n.Attrs {
		d.SetAttr(el, k, v)
	}
	if b := n.Box; b != nil {
		d.SetBox(el, b.Left, b.Top, b.Width, b.Height)
	}
	if s := n.Style; s != nil {
		style := layout.Style{
			Color:      s.Color,
			Opacity:    1,
			FontFamily: s.FontFamily,
			FontSize:   s.FontSize,
			Transform:  s.Transform,
		}
		if s.Opacity != nil {
			style.Opacity = *s.Opacity
		}
		d.SetStyle(el, style)
	}
	d.SetBaseline(el, n.Baseline)

	for _, c := range n.Children {
		if c == nil {
			continue
		}
		if c.Text != nil {
			d.AppendText(el, *c.Text)
			continue
		}
		d.fill(d.Append(el, c.Tag), c)
	}
}
