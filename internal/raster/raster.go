// Package raster turns PDF bytes into page images. The renderers are native
// collaborators (MuPDF through go-fitz, or Poppler's pdftoppm) hidden behind
// Rasterizer so the pipeline can be exercised without them.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
)

var (
	// ErrNotPDF is returned when the upload does not carry a PDF header.
	ErrNotPDF = errors.New("input is not a PDF document")
	// ErrNoPages is returned for documents without a single page.
	ErrNoPages = errors.New("PDF has no pages")
	// ErrTooManyPages is returned when a document exceeds the configured page limit.
	ErrTooManyPages = errors.New("PDF exceeds page limit")
	// ErrMalformed wraps parser failures.
	ErrMalformed = errors.New("malformed PDF")
)

// DefaultDPI matches the resolution pages were historically rendered at.
const DefaultDPI = 200

// Rasterizer opens a PDF for page-by-page rendering.
type Rasterizer interface {
	Open(ctx context.Context, data []byte) (Document, error)
	Name() string
}

// Document renders the pages of one opened PDF. Close releases native
// handles and temporary files and must be called exactly once.
type Document interface {
	NumPages() int
	// Page renders the zero-based page index.
	Page(ctx context.Context, index int) (image.Image, error)
	Close() error
}

// New returns the rasterizer registered under name.
func New(name string, dpi int, pdftoppmPath string) (Rasterizer, error) {
	switch name {
	case "", "fitz":
		return NewFitz(dpi), nil
	case "poppler":
		return NewPoppler(dpi, pdftoppmPath), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", name)
	}
}

func checkIndex(index, pages int) error {
	if index < 0 || index >= pages {
		return fmt.Errorf("page index %d out of range [0,%d)", index, pages)
	}
	return nil
}
