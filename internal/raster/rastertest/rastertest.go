// Package rastertest provides PDF fixtures and an in-memory rasterizer for tests.
package rastertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync/atomic"

	"github.com/adverant/nexus/pdfocr/internal/raster"
)

// MinimalPDF builds a well-formed PDF with pages of w x h points, each
// holding a filled black square.
func MinimalPDF(pages, w, h int) []byte {
	var buf bytes.Buffer
	objects := 2 + 2*pages
	offsets := make([]int, objects+1)

	buf.WriteString("%PDF-1.4\n")
	obj := func(n int, body string) {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", n, body)
	}

	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")

	var kids bytes.Buffer
	for i := 0; i < pages; i++ {
		fmt.Fprintf(&kids, "%d 0 R ", 3+2*i)
	}
	obj(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids.String(), pages))

	for i := 0; i < pages; i++ {
		pageObj, contentObj := 3+2*i, 4+2*i
		obj(pageObj, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Contents %d 0 R /Resources << >> >>",
			w, h, contentObj))
		content := "0 0 0 rg 10 10 40 40 re f"
		obj(contentObj, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", objects+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= objects; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", objects+1, xref)
	return buf.Bytes()
}

// Rasterizer serves fixed page images. It still sniffs the PDF header so
// non-PDF uploads fail the way real renderers do.
type Rasterizer struct {
	Pages   []image.Image
	OpenErr error
	PageErr map[int]error

	// Closed counts documents released by Close.
	Closed atomic.Int32
}

// Name identifies the fake in logs.
func (r *Rasterizer) Name() string { return "fake" }

// Open returns a document over r.Pages.
func (r *Rasterizer) Open(ctx context.Context, data []byte) (raster.Document, error) {
	if err := raster.Sniff(data); err != nil {
		return nil, err
	}
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	if len(r.Pages) == 0 {
		return nil, raster.ErrNoPages
	}
	return &document{r: r}, nil
}

type document struct {
	r      *Rasterizer
	closed bool
}

func (d *document) NumPages() int { return len(d.r.Pages) }

func (d *document) Page(ctx context.Context, index int) (image.Image, error) {
	if d.closed {
		return nil, errors.New("document closed")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := d.r.PageErr[index]; ok {
		return nil, err
	}
	if index < 0 || index >= len(d.r.Pages) {
		return nil, fmt.Errorf("page index %d out of range", index)
	}
	return d.r.Pages[index], nil
}

func (d *document) Close() error {
	if !d.closed {
		d.closed = true
		d.r.Closed.Add(1)
	}
	return nil
}
