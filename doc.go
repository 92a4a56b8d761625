// Package realpdf rebuilds real PDF documents from "fake PDFs": HTML
// renderings of PDF files, as produced by page viewers and converters,
// where every page is a positioned box holding a raster image of the page
// and the page text laid out over it.
//
// The rendered document is snapshotted, split into pages by locating the
// element that holds most of the embedded images, and every page is
// flattened into images and styled text runs. Those are drawn into a new
// PDF with the document's own web fonts embedded, so the result looks
// like the rendering and its text stays selectable.
//
// # Live documents
//
// A [Converter] drives headless Chrome through the DevTools protocol and
// reuses it across documents:
//
//	c, err := realpdf.NewConverter()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	if err := c.Open(ctx, "https://example.com/viewer/report.html"); err != nil {
//	    log.Fatal(err)
//	}
//	if ok, _ := c.LooksLikePDF(); !ok {
//	    log.Print("not a paginated rendering")
//	}
//	res, err := c.ConvertToPDF(ctx)
//
// [Converter.ConvertURL], [Converter.ConvertFile] and [Converter.ConvertHTML]
// open and convert in one call; the package-level functions of the same
// names use a temporary Converter.
//
// Chrome or Chromium must be available in PATH, or use [WithAutoDownload]:
//
//	c, err := realpdf.NewConverter(realpdf.WithAutoDownload())
//
// # Static documents
//
// Markup that already carries absolute geometry in its styles can be
// converted without a browser:
//
//	res, err := realpdf.ConvertStatic(ctx, f, realpdf.WithContainer("#viewer"))
//
// [ConvertSnapshot] accepts a [snapshot.Document] built or decoded by the
// caller.
//
// # Text
//
// By default text is drawn fully transparent over the page images, which
// keeps the visual output identical to the rendering. [WithTextMode] with
// [VisibleText] draws it with its source color and opacity instead.
//
// # Output
//
// A [Result] gives access to the generated PDF:
//
//	res.Bytes()                       // []byte
//	res.Pages()                       // page count
//	res.Base64()                      // base64 string (RFC 4648)
//	res.Reader()                      // *bytes.Reader
//	res.WriteTo(w)                    // io.WriterTo
//	res.WriteToFile("out.pdf", 0o644) // write to disk
//
// [WithOptimize] passes the document through pdfcpu before it is returned,
// and [Inspect] reports the page sizes of any PDF.
package realpdf
