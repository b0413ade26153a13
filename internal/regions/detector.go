/**
 * Region Detector - diagram crops below question markers
 *
 * A token such as "1.", "2)" or "Q3" marks the start of a question. The area
 * directly below and to the right of it is cropped and kept when it holds
 * enough ink to be a drawing rather than blank paper.
 */

package regions

import (
	"image"
	"regexp"

	"github.com/adverant/nexus/pdfocr/internal/codec"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/ocr"
)

// markerPattern matches a one or two digit label followed by "." or ")", or "Q" and one or two digits.
var markerPattern = regexp.MustCompile(`(\b\d{1,2}[.)])|(Q\d{1,2})`)

// Default detector parameters
const (
	DefaultPaddingX = 600
	DefaultPaddingY = 600
	DefaultMinArea  = 1000
)

// Config tunes candidate placement and the acceptance threshold
type Config struct {
	PaddingX int
	PaddingY int
	// MinArea is the smallest total contour area, in square pixels, that is accepted.
	MinArea float64
}

// DefaultConfig returns the standard detector parameters
func DefaultConfig() Config {
	return Config{
		PaddingX: DefaultPaddingX,
		PaddingY: DefaultPaddingY,
		MinArea:  DefaultMinArea,
	}
}

// Region is a candidate crop derived from one marker token.
type Region struct {
	Rect       image.Rectangle
	Marker     string
	TokenIndex int
	// Area is the measured external contour area. Zero when the rectangle is empty.
	Area     float64
	Accepted bool
}

// IsMarker reports whether token text looks like a question number.
func IsMarker(text string) bool {
	return markerPattern.MatchString(text)
}

// Candidate returns the rectangle below the marker box, extended by the
// padding and clamped to bounds. The result always satisfies
// bounds.Min <= Min <= Max <= bounds.Max, and may be empty.
func Candidate(box ocr.BoundingBox, bounds image.Rectangle, cfg Config) image.Rectangle {
	x1 := clamp(box.X, bounds.Min.X, bounds.Max.X)
	y1 := clamp(box.Y+box.Height, bounds.Min.Y, bounds.Max.Y)
	x2 := clamp(box.X+box.Width+cfg.PaddingX, x1, bounds.Max.X)
	y2 := clamp(box.Y+box.Height+cfg.PaddingY, y1, bounds.Max.Y)
	return image.Rectangle{Min: image.Pt(x1, y1), Max: image.Pt(x2, y2)}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Detector finds diagram regions on rendered pages
type Detector struct {
	cfg    Config
	logger *logging.Logger
}

// NewDetector creates a detector. A nil logger discards diagnostics.
func NewDetector(cfg Config, logger *logging.Logger) *Detector {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Detector{cfg: cfg, logger: logger.Named("regions")}
}

// Config returns the detector parameters.
func (d *Detector) Config() Config { return d.cfg }

// Candidates evaluates every marker token on the page, in token order, and
// returns all candidates with their measured area and decision.
func (d *Detector) Candidates(page image.Image, tokens []ocr.Token) []Region {
	bounds := page.Bounds()
	var out []Region
	for _, tok := range tokens {
		if !IsMarker(tok.Text) {
			continue
		}
		r := Region{
			Rect:       Candidate(tok.BoundingBox, bounds, d.cfg),
			Marker:     tok.Text,
			TokenIndex: tok.Index,
		}
		if !r.Rect.Empty() {
			r.Area = MeasureContentArea(codec.Crop(page, r.Rect))
			r.Accepted = r.Area >= d.cfg.MinArea
		}
		d.logger.Debug("Evaluated diagram candidate",
			"marker", r.Marker,
			"rect", r.Rect.String(),
			"contour_area", r.Area,
			"accepted", r.Accepted,
		)
		out = append(out, r)
	}
	return out
}

// Detect returns the accepted regions on the page in token order.
func (d *Detector) Detect(page image.Image, tokens []ocr.Token) []Region {
	var accepted []Region
	for _, r := range d.Candidates(page, tokens) {
		if r.Accepted {
			accepted = append(accepted, r)
		}
	}
	return accepted
}
