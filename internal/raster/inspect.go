package raster

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDF readers accept the header anywhere in the first kilobyte.
const headerWindow = 1024

var pdfMagic = []byte("%PDF-")

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	api.DisableConfigDir()
}

// Sniff reports ErrNotPDF unless data starts like a PDF file.
func Sniff(data []byte) error {
	head := data
	if len(head) > headerWindow {
		head = head[:headerWindow]
	}
	if !bytes.Contains(head, pdfMagic) {
		return ErrNotPDF
	}
	return nil
}

// CountPages parses the document structure with pdfcpu and returns its page count.
func CountPages(data []byte) (int, error) {
	if err := Sniff(data); err != nil {
		return 0, err
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if n == 0 {
		return 0, ErrNoPages
	}
	return n, nil
}

// CheckPageLimit returns ErrTooManyPages when pages exceeds maxPages.
// A non-positive maxPages disables the check.
func CheckPageLimit(pages, maxPages int) error {
	if maxPages > 0 && pages > maxPages {
		return fmt.Errorf("%w: %d pages, limit %d", ErrTooManyPages, pages, maxPages)
	}
	return nil
}

// Inspect validates an upload before it is queued: PDF header, parseable
// structure and page limit.
func Inspect(data []byte, maxPages int) (int, error) {
	n, err := CountPages(data)
	if err != nil {
		return 0, err
	}
	if err := CheckPageLimit(n, maxPages); err != nil {
		return n, err
	}
	return n, nil
}
