package layout_test

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/porticus-lab/go-realpdf/layout"
	"github.com/porticus-lab/go-realpdf/snapshot"
)

const pixel = "data:image/png;base64,AAAA"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

// pagedDocument builds body > main > pages× div.page, each page holding
// imagesPerPage images and a text span. Pages are 100 wide and 200 tall,
// stacked vertically.
func pagedDocument(pages, imagesPerPage int) (*snapshot.Document, []layout.ElementID) {
	doc := snapshot.New("body")
	doc.SetBox(doc.Root(), 0, 0, 100, float64(200*pages))
	main := doc.Append(doc.Root(), "main")
	doc.SetBox(main, 0, 0, 100, float64(200*pages))

	var roots []layout.ElementID
	for p := 0; p < pages; p++ {
		top := float64(200 * p)
		page := doc.Append(main, "div")
		doc.SetBox(page, 0, top, 100, 200)
		roots = append(roots, page)
		for i := 0; i < imagesPerPage; i++ {
			img := doc.Append(page, "img")
			doc.SetAttr(img, "src", pixel)
			doc.SetBox(img, 0, top, 100, 100)
		}
		span := doc.Append(page, "span")
		doc.AppendText(span, "Hello")
		doc.SetBox(span, 10, top+150, 40, 14)
	}
	return doc, roots
}

func TestSegmentNotPaginatable(t *testing.T) {
	tests := []struct {
		name   string
		images int
	}{
		{"no images", 0},
		{"one image", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, _ := pagedDocument(1, tt.images)
			if roots, ok := layout.Segment(doc); ok {
				t.Fatalf("Segment = %v, want not paginatable", roots)
			}
			_, err := layout.ExtractPages(doc, quietLogger())
			if !errors.Is(err, layout.ErrNotPaginatable) {
				t.Fatalf("ExtractPages err = %v, want ErrNotPaginatable", err)
			}
		})
	}
}

func TestSegmentPages(t *testing.T) {
	tests := []struct {
		pages, perPage int
	}{
		{2, 1},
		{3, 1},
		{4, 2},
		{5, 3},
	}
	for _, tt := range tests {
		doc, want := pagedDocument(tt.pages, tt.perPage)
		got, ok := layout.Segment(doc)
		if !ok {
			t.Fatalf("%d×%d: not paginatable", tt.pages, tt.perPage)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%d×%d: page roots mismatch (-want +got):\n%s", tt.pages, tt.perPage, diff)
		}

		pages, err := layout.ExtractPages(doc, quietLogger())
		if err != nil {
			t.Fatalf("ExtractPages: %v", err)
		}
		for i, p := range pages {
			if len(p.Images) != tt.perPage {
				t.Errorf("page %d has %d images, want %d", i, len(p.Images), tt.perPage)
			}
		}
	}
}

func TestSegmentIgnoresLinkedImages(t *testing.T) {
	doc, _ := pagedDocument(2, 1)
	img := doc.Append(doc.Root(), "img")
	doc.SetAttr(img, "src", "https://example.com/a.png")
	roots, ok := layout.Segment(doc)
	if !ok || len(roots) != 2 {
		t.Fatalf("Segment = %v, %v; want the 2 pages", roots, ok)
	}
}

func TestSegmentIncludesPagesWithoutImages(t *testing.T) {
	doc, want := pagedDocument(3, 1)
	main := doc.Children(doc.Root())[0]
	blank := doc.Append(main, "div")
	doc.SetBox(blank, 0, 600, 100, 200)
	want = append(want, blank)

	got, ok := layout.Segment(doc)
	if !ok {
		t.Fatal("not paginatable")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("page roots mismatch (-want +got):\n%s", diff)
	}
}

func TestSegmentStopsAtBalancedSplit(t *testing.T) {
	// Two groups of two images: neither group holds more than half, so
	// the body is the pagination root.
	doc := snapshot.New("body")
	var want []layout.ElementID
	for g := 0; g < 2; g++ {
		group := doc.Append(doc.Root(), "section")
		want = append(want, group)
		for i := 0; i < 2; i++ {
			img := doc.Append(doc.Append(group, "div"), "img")
			doc.SetAttr(img, "src", pixel)
		}
	}
	got, ok := layout.Segment(doc)
	if !ok {
		t.Fatal("not paginatable")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("page roots mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractPagesGeometry(t *testing.T) {
	doc, _ := pagedDocument(2, 1)
	for _, page := range doc.Children(doc.Children(doc.Root())[0]) {
		for _, c := range doc.Children(page) {
			if doc.TagName(c) == "span" {
				doc.SetBaseline(c, -3)
				doc.SetStyle(c, layout.Style{
					Color:      "rgb(0, 0, 0)",
					Opacity:    1,
					FontFamily: "Go",
					FontSize:   12,
					Transform:  "none",
				})
			}
		}
	}

	got, err := layout.ExtractPages(doc, quietLogger())
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}

	page := layout.Page{
		Width:  100,
		Height: 200,
		Images: []layout.ImagePrimitive{{Left: 0, Bottom: 100, Width: 100, Height: 100, Src: pixel}},
		Text: []layout.TextPrimitive{{
			Left:       10,
			Bottom:     39, // 200 - 164 + 3
			Width:      40,
			Height:     14,
			FontFamily: "Go",
			Size:       12,
			Color:      &layout.Color{},
			Opacity:    1,
			Text:       "Hello",
		}},
	}
	want := []layout.Page{page, page}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("pages mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractOpacityAndColor(t *testing.T) {
	tests := []struct {
		name         string
		outerOpacity float64
		innerOpacity float64
		color        string
		wantColor    *layout.Color
		wantOpacity  float64
	}{
		{"nested opacity", 0.4, 0.5, "rgb(0, 0, 0)", &layout.Color{}, 0.2},
		{"rgba alpha", 1, 1, "rgba(10, 20, 30, 0.5)", &layout.Color{R: 10, G: 20, B: 30}, 0.5},
		{"alpha and opacity", 0.5, 1, "rgba(0, 0, 0, 0.5)", &layout.Color{}, 0.25},
		{"unparsed color", 1, 1, "currentcolor", nil, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, roots := pagedDocument(2, 1)
			outer := doc.Append(roots[0], "div")
			doc.SetBox(outer, 0, 0, 100, 50)
			s := snapshot.DefaultStyle
			s.Opacity = tt.outerOpacity
			doc.SetStyle(outer, s)

			inner := doc.Append(outer, "p")
			doc.AppendText(inner, "x")
			doc.SetBox(inner, 0, 0, 10, 10)
			s = snapshot.DefaultStyle
			s.Opacity = tt.innerOpacity
			s.Color = tt.color
			doc.SetStyle(inner, s)

			pages, err := layout.ExtractPages(doc, quietLogger())
			if err != nil {
				t.Fatalf("ExtractPages: %v", err)
			}
			var got *layout.TextPrimitive
			for i := range pages[0].Text {
				if pages[0].Text[i].Text == "x" {
					got = &pages[0].Text[i]
				}
			}
			if got == nil {
				t.Fatal("text run not extracted")
			}
			if diff := cmp.Diff(tt.wantColor, got.Color); diff != "" {
				t.Errorf("color mismatch (-want +got):\n%s", diff)
			}
			if d := got.Opacity - tt.wantOpacity; d > 1e-6 || d < -1e-6 {
				t.Errorf("opacity = %v, want %v", got.Opacity, tt.wantOpacity)
			}
		})
	}
}

func TestExtractComposesTransforms(t *testing.T) {
	doc, roots := pagedDocument(2, 1)
	outer := doc.Append(roots[1], "div")
	doc.SetBox(outer, 0, 200, 100, 50)
	s := snapshot.DefaultStyle
	s.Transform = "matrix(1, 0, 0, 1, 10, 20)"
	doc.SetStyle(outer, s)

	inner := doc.Append(outer, "span")
	doc.AppendText(inner, "turned")
	doc.SetBox(inner, 0, 200, 10, 10)
	s = snapshot.DefaultStyle
	s.Transform = "scale(2)"
	doc.SetStyle(inner, s)

	pages, err := layout.ExtractPages(doc, quietLogger())
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	for _, tp := range pages[0].Text {
		if tp.Transform != nil {
			t.Errorf("untransformed run %q carries %v", tp.Text, *tp.Transform)
		}
	}
	var got *layout.Matrix
	for _, tp := range pages[1].Text {
		if tp.Text == "turned" {
			got = tp.Transform
		}
	}
	want := layout.Matrix{2, 0, 0, 2, 10, 20}
	if got == nil || *got != want {
		t.Errorf("transform = %v, want %v", got, want)
	}
}

func TestExtractTextLeafRules(t *testing.T) {
	doc, roots := pagedDocument(2, 1)

	// Whitespace around element children: not a leaf, children are visited.
	mixed := doc.Append(roots[0], "div")
	doc.SetBox(mixed, 0, 0, 100, 20)
	doc.AppendText(mixed, "\n  ")
	child := doc.Append(mixed, "b")
	doc.AppendText(child, "bold")
	doc.SetBox(child, 0, 0, 20, 10)
	doc.AppendText(mixed, "\n")

	// Own text next to an element child: one run with all the text.
	para := doc.Append(roots[0], "p")
	doc.SetBox(para, 0, 20, 100, 20)
	doc.AppendText(para, "see ")
	link := doc.Append(para, "a")
	doc.AppendText(link, "here")
	doc.SetBox(link, 30, 20, 20, 10)

	// No text at all.
	empty := doc.Append(roots[0], "div")
	doc.SetBox(empty, 0, 40, 10, 10)

	pages, err := layout.ExtractPages(doc, quietLogger())
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	var texts []string
	for _, tp := range pages[0].Text {
		texts = append(texts, tp.Text)
	}
	want := []string{"Hello", "bold", "see here"}
	if diff := cmp.Diff(want, texts); diff != "" {
		t.Errorf("text runs mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractSkipsUnmeasurablePage(t *testing.T) {
	doc, _ := pagedDocument(2, 1)
	main := doc.Children(doc.Root())[0]
	unmeasured := doc.Append(main, "div")
	img := doc.Append(unmeasured, "img")
	doc.SetAttr(img, "src", pixel)

	var logs bytes.Buffer
	pages, err := layout.ExtractPages(doc, slog.New(slog.NewTextHandler(&logs, nil)))
	if err != nil {
		t.Fatalf("ExtractPages: %v", err)
	}
	if len(pages) != 2 {
		t.Errorf("got %d pages, want 2", len(pages))
	}
	if !bytes.Contains(logs.Bytes(), []byte("skipping page")) {
		t.Errorf("skip not logged: %s", logs.String())
	}
}
