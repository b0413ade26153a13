package raster

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Fitz renders pages with MuPDF.
type Fitz struct {
	dpi float64
}

// NewFitz creates a MuPDF rasterizer rendering at dpi.
func NewFitz(dpi int) *Fitz {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &Fitz{dpi: float64(dpi)}
}

// Name identifies the rasterizer in logs.
func (f *Fitz) Name() string { return "fitz" }

// Open loads the document from memory.
func (f *Fitz) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := Sniff(data); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, ErrNoPages
	}
	return &fitzDocument{doc: doc, dpi: f.dpi}, nil
}

type fitzDocument struct {
	// MuPDF contexts are not safe for concurrent use.
	mu  sync.Mutex
	doc *fitz.Document
	dpi float64
}

func (d *fitzDocument) NumPages() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) Page(ctx context.Context, index int) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := checkIndex(index, d.doc.NumPage()); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(index, d.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}
