/**
 * Extraction Pipeline
 *
 * rasterize -> per page {OCR -> encode -> detect regions -> encode crops} -> assemble.
 * Every failure leaves the pipeline as a classified ProcessingError.
 */

package extract

import (
	"context"
	stderrors "errors"
	"fmt"
	"image"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/adverant/nexus/pdfocr/internal/codec"
	"github.com/adverant/nexus/pdfocr/internal/errors"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/ocr"
	"github.com/adverant/nexus/pdfocr/internal/raster"
	"github.com/adverant/nexus/pdfocr/internal/regions"
)

// Request is one extraction job.
type Request struct {
	JobID    string
	Filename string
	Data     []byte
	Diagrams bool
	// OnPage, when set, is called after each page completes.
	OnPage func(done, total int)
}

// Config holds pipeline collaborators and limits
type Config struct {
	Rasterizer raster.Rasterizer
	Engine     ocr.Engine
	Detector   *regions.Detector
	MaxPages   int
	Logger     *logging.Logger
}

// Pipeline runs extractions. It holds no per-request state and is safe for
// concurrent use.
type Pipeline struct {
	rasterizer raster.Rasterizer
	engine     ocr.Engine
	detector   *regions.Detector
	maxPages   int
	logger     *logging.Logger
}

// New creates a pipeline
func New(cfg Config) (*Pipeline, error) {
	if cfg.Rasterizer == nil {
		return nil, fmt.Errorf("rasterizer is required")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("OCR engine is required")
	}
	if cfg.Detector == nil {
		cfg.Detector = regions.NewDetector(regions.DefaultConfig(), cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	return &Pipeline{
		rasterizer: cfg.Rasterizer,
		engine:     cfg.Engine,
		detector:   cfg.Detector,
		maxPages:   cfg.MaxPages,
		logger:     cfg.Logger.Named("extract"),
	}, nil
}

// Run performs the extraction. The returned error is always a *errors.ProcessingError.
func (p *Pipeline) Run(ctx context.Context, req Request) (res *Result, err error) {
	startTime := time.Now()
	logger := p.logger.With("filename", req.Filename)
	if req.JobID != "" {
		logger = logger.With("job_id", req.JobID)
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Extraction panicked", "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			res, err = nil, errors.NewInternalError("Extraction failed unexpectedly", fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			perr := errors.As(err)
			if req.JobID != "" {
				perr = perr.WithJobID(req.JobID)
			}
			err = perr
		}
	}()

	if len(req.Data) == 0 {
		return nil, errors.NewInvalidInputError("Uploaded file is empty", nil)
	}
	if err := raster.Sniff(req.Data); err != nil {
		return nil, errors.NewUnsupportedFormatError(http.DetectContentType(req.Data))
	}

	logger.Info("Rasterizing document", "bytes", len(req.Data), "rasterizer", p.rasterizer.Name())
	doc, err := p.rasterizer.Open(ctx, req.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, contextError(ctx, req.JobID, startTime)
		}
		return nil, p.classifyOpen(err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("Failed to release rasterized document", "error", cerr)
		}
	}()

	total := doc.NumPages()
	if err := raster.CheckPageLimit(total, p.maxPages); err != nil {
		return nil, errors.NewInvalidInputError("Document has too many pages", err)
	}

	pages := make([]PageResult, 0, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, contextError(ctx, req.JobID, startTime)
		}

		img, err := doc.Page(ctx, i)
		if err != nil {
			if ctx.Err() != nil {
				return nil, contextError(ctx, req.JobID, startTime)
			}
			return nil, errors.NewRasterizationError(p.rasterizer.Name(), err)
		}

		page, err := p.processPage(ctx, i+1, img, req.Diagrams)
		if err != nil {
			if ctx.Err() != nil {
				return nil, contextError(ctx, req.JobID, startTime)
			}
			return nil, err
		}
		pages = append(pages, page)

		logger.Debug("Page processed", "page", page.Number, "chars", len(page.Text), "crops", len(page.Crops))
		if req.OnPage != nil {
			req.OnPage(i+1, total)
		}
	}

	res = Assemble(req.Filename, pages, req.Diagrams)
	logger.Info("Extraction completed",
		"pages", len(res.Images),
		"crops", len(res.CroppedImages),
		"duration_ms", time.Since(startTime).Milliseconds(),
	)
	return res, nil
}

// processPage produces the immutable result for one page.
func (p *Pipeline) processPage(ctx context.Context, number int, img image.Image, diagrams bool) (PageResult, error) {
	pngData, err := codec.EncodePNG(img)
	if err != nil {
		return PageResult{}, errors.NewInternalError(fmt.Sprintf("Failed to encode page %d", number), err)
	}

	text, err := p.engine.Recognize(ctx, pngData, diagrams)
	if err != nil {
		return PageResult{}, errors.NewOCRFailedError(number, err)
	}

	page := PageResult{
		Number: number,
		Text:   text.Text,
		Image:  codec.ToBase64(pngData),
	}
	if !diagrams {
		return page, nil
	}

	page.Regions = p.detector.Detect(img, text.Tokens)
	page.Crops = make([]string, 0, len(page.Regions))
	for _, r := range page.Regions {
		crop, err := codec.EncodeBase64PNG(codec.Crop(img, r.Rect))
		if err != nil {
			return PageResult{}, errors.NewInternalError(fmt.Sprintf("Failed to encode crop on page %d", number), err)
		}
		page.Crops = append(page.Crops, crop)
	}
	return page, nil
}

func (p *Pipeline) classifyOpen(err error) error {
	switch {
	case stderrors.Is(err, raster.ErrNotPDF):
		return errors.NewUnsupportedFormatError("application/octet-stream")
	case stderrors.Is(err, raster.ErrNoPages):
		return errors.NewInvalidInputError("Document has no pages", err)
	default:
		return errors.NewRasterizationError(p.rasterizer.Name(), err)
	}
}

func contextError(ctx context.Context, jobID string, start time.Time) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.NewProcessingTimeoutError(jobID, time.Since(start).Round(time.Millisecond), ctx.Err())
	}
	return errors.NewInternalError("Extraction cancelled", ctx.Err())
}
