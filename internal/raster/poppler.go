package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Poppler renders pages by shelling out to pdftoppm, one page per call.
type Poppler struct {
	dpi  int
	path string
}

// NewPoppler creates a pdftoppm rasterizer. An empty path resolves pdftoppm on PATH.
func NewPoppler(dpi int, pdftoppmPath string) *Poppler {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if pdftoppmPath == "" {
		pdftoppmPath = "pdftoppm"
	}
	return &Poppler{dpi: dpi, path: pdftoppmPath}
}

// Name identifies the rasterizer in logs.
func (p *Poppler) Name() string { return "poppler" }

// Open writes the document to a private temp directory. Pages are counted
// with pdfcpu since pdftoppm does not report them.
func (p *Poppler) Open(ctx context.Context, data []byte) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(p.path); err != nil {
		return nil, fmt.Errorf("pdftoppm unavailable: %w", err)
	}
	pages, err := CountPages(data)
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "pdfocr-poppler-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	pdfPath := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		os.RemoveAll(workDir)
		return nil, fmt.Errorf("write input: %w", err)
	}

	return &popplerDocument{
		rasterizer: p,
		workDir:    workDir,
		pdfPath:    pdfPath,
		pages:      pages,
	}, nil
}

type popplerDocument struct {
	rasterizer *Poppler
	workDir    string
	pdfPath    string
	pages      int
}

func (d *popplerDocument) NumPages() int { return d.pages }

func (d *popplerDocument) Page(ctx context.Context, index int) (image.Image, error) {
	if err := checkIndex(index, d.pages); err != nil {
		return nil, err
	}
	page := index + 1
	prefix := filepath.Join(d.workDir, fmt.Sprintf("page-%d", page))
	args := []string{
		"-png",
		"-r", strconv.Itoa(d.rasterizer.dpi),
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-singlefile",
		d.pdfPath,
		prefix,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.rasterizer.path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("pdftoppm failed on page %d: %w: %s", page, err, msg)
		}
		return nil, fmt.Errorf("pdftoppm failed on page %d: %w", page, err)
	}

	outPath := prefix + ".png"
	defer os.Remove(outPath)
	f, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("rendered image not found for page %d: %w", page, err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode page %d: %w", page, err)
	}
	return img, nil
}

func (d *popplerDocument) Close() error {
	return os.RemoveAll(d.workDir)
}
