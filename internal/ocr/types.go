/**
 * OCR Types - Shared data structures for page OCR
 *
 * Used by the Tesseract engine, the region detector and the extraction pipeline.
 */

package ocr

import (
	"context"
	"image"
)

// Engine recognizes text on one rendered page.
type Engine interface {
	// Recognize runs OCR over a PNG-encoded page. Word tokens are only
	// extracted when withTokens is set.
	Recognize(ctx context.Context, pngData []byte, withTokens bool) (*PageText, error)
	Name() string
}

// PageText is the OCR result for a single page
type PageText struct {
	Text       string
	Confidence float64
	Tokens     []Token
}

// Token is a single recognized word with its box in page pixels.
type Token struct {
	Index       int
	Text        string
	Confidence  float64
	BoundingBox BoundingBox
}

// BoundingBox represents coordinates of a region
type BoundingBox struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Rect converts the box to an image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}
