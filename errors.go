package realpdf

import (
	"errors"
	"fmt"

	"github.com/porticus-lab/go-realpdf/layout"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Converter].
	ErrClosed = errors.New("realpdf: converter is closed")

	// ErrBusy is returned when a conversion is started while another one
	// is still running on the same [Converter].
	ErrBusy = errors.New("realpdf: conversion already in progress")

	// ErrNotOpened is returned by [Converter.ConvertToPDF] and
	// [Converter.LooksLikePDF] before a document was opened.
	ErrNotOpened = errors.New("realpdf: no document opened")

	// ErrNotPaginatable is returned when the document does not look like a
	// paginated rendering: fewer than two embedded images, or no page
	// could be measured.
	ErrNotPaginatable = layout.ErrNotPaginatable

	// ErrFontResolution is wrapped by every [*FontError].
	ErrFontResolution = errors.New("realpdf: font could not be resolved")

	// ErrUnsupportedImage is wrapped by an [*ImageError] for images that
	// are not PNG data URIs.
	ErrUnsupportedImage = errors.New("realpdf: unsupported image")
)

// FontError reports a font family that could not be turned into an
// embedded font. It matches [ErrFontResolution] with [errors.Is].
type FontError struct {
	Family string
	Src    string // the @font-face src value, empty when no rule matched
	Err    error
}

func (e *FontError) Error() string {
	if e.Src == "" {
		return fmt.Sprintf("realpdf: font %q: %v", e.Family, e.Err)
	}
	return fmt.Sprintf("realpdf: font %q (src %s): %v", e.Family, e.Src, e.Err)
}

func (e *FontError) Unwrap() []error {
	return []error{ErrFontResolution, e.Err}
}

// ImageError reports an image primitive that could not be embedded.
type ImageError struct {
	Page int    // zero-based page index
	Src  string // truncated data URI
	Err  error
}

func (e *ImageError) Error() string {
	return fmt.Sprintf("realpdf: page %d: image %s: %v", e.Page+1, e.Src, e.Err)
}

func (e *ImageError) Unwrap() error {
	return e.Err
}
