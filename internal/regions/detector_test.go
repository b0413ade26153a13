package regions

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/adverant/nexus/pdfocr/internal/codec"
	"github.com/adverant/nexus/pdfocr/internal/logging"
	"github.com/adverant/nexus/pdfocr/internal/ocr"
)

func blankPage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func fill(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r, image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// outline draws a square frame of the given stroke width.
func outline(img *image.RGBA, r image.Rectangle, stroke int) {
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+stroke))
	fill(img, image.Rect(r.Min.X, r.Max.Y-stroke, r.Max.X, r.Max.Y))
	fill(img, image.Rect(r.Min.X, r.Min.Y, r.Min.X+stroke, r.Max.Y))
	fill(img, image.Rect(r.Max.X-stroke, r.Min.Y, r.Max.X, r.Max.Y))
}

func token(index int, text string, x, y, w, h int) ocr.Token {
	return ocr.Token{Index: index, Text: text, BoundingBox: ocr.BoundingBox{X: x, Y: y, Width: w, Height: h}}
}

func TestIsMarker(t *testing.T) {
	cases := map[string]bool{
		"1.":       true,
		"2)":       true,
		"12.":      true,
		"(3)":      true,
		"Q3":       true,
		"Q12":      true,
		"3.5":      true,
		"123.":     false,
		"x1.":      false,
		"é1.":      true,
		"١.":       false,
		"Q١":       false,
		"Question": false,
		"hello":    false,
		"":         false,
	}
	for text, want := range cases {
		assert.Equal(t, want, IsMarker(text), "%q", text)
	}
}

func TestCandidateBelowMarker(t *testing.T) {
	bounds := image.Rect(0, 0, 2000, 2000)
	got := Candidate(ocr.BoundingBox{X: 100, Y: 100, Width: 40, Height: 20}, bounds, DefaultConfig())
	assert.Equal(t, image.Rect(100, 120, 740, 720), got)
}

func TestCandidateIsClamped(t *testing.T) {
	bounds := image.Rect(0, 0, 800, 600)
	cfg := DefaultConfig()
	for _, x := range []int{-50, 0, 10, 400, 790, 800, 1200} {
		for _, y := range []int{-80, 0, 50, 580, 600, 900} {
			for _, size := range []int{0, 5, 40, 1000} {
				r := Candidate(ocr.BoundingBox{X: x, Y: y, Width: size, Height: size}, bounds, cfg)
				require.True(t, 0 <= r.Min.X && r.Min.X <= r.Max.X && r.Max.X <= 800, "x range %v", r)
				require.True(t, 0 <= r.Min.Y && r.Min.Y <= r.Max.Y && r.Max.Y <= 600, "y range %v", r)
			}
		}
	}
}

func TestDetectRejectsBlankRegion(t *testing.T) {
	page := blankPage(2000, 2000)
	d := NewDetector(DefaultConfig(), logging.Nop())

	candidates := d.Candidates(page, []ocr.Token{token(0, "12.", 100, 100, 40, 20)})
	require.Len(t, candidates, 1)
	assert.Zero(t, candidates[0].Area)
	assert.False(t, candidates[0].Accepted)
	assert.Empty(t, d.Detect(page, []ocr.Token{token(0, "12.", 100, 100, 40, 20)}))
}

func TestDetectAcceptsDrawing(t *testing.T) {
	page := blankPage(2000, 2000)
	outline(page, image.Rect(200, 200, 500, 500), 10)
	d := NewDetector(DefaultConfig(), logging.Nop())

	regions := d.Detect(page, []ocr.Token{
		token(0, "Find", 20, 100, 60, 20),
		token(1, "12.", 100, 100, 40, 20),
	})
	require.Len(t, regions, 1)
	assert.Equal(t, image.Rect(100, 120, 740, 720), regions[0].Rect)
	assert.Equal(t, "12.", regions[0].Marker)
	assert.Equal(t, 1, regions[0].TokenIndex)
	assert.Greater(t, regions[0].Area, 50000.0)
}

func TestDetectRejectsSpeck(t *testing.T) {
	page := blankPage(1000, 1000)
	fill(page, image.Rect(300, 300, 303, 303))
	d := NewDetector(DefaultConfig(), logging.Nop())

	candidates := d.Candidates(page, []ocr.Token{token(0, "Q1", 100, 100, 40, 20)})
	require.Len(t, candidates, 1)
	assert.Greater(t, candidates[0].Area, 0.0)
	assert.Less(t, candidates[0].Area, float64(DefaultMinArea))
	assert.False(t, candidates[0].Accepted)
}

func TestDetectThresholdIsInclusive(t *testing.T) {
	page := blankPage(1000, 1000)
	fill(page, image.Rect(200, 200, 240, 240))
	tokens := []ocr.Token{token(0, "1.", 100, 100, 40, 20)}

	area := NewDetector(DefaultConfig(), nil).Candidates(page, tokens)[0].Area
	require.Greater(t, area, 0.0)

	cfg := DefaultConfig()
	cfg.MinArea = area
	assert.Len(t, NewDetector(cfg, nil).Detect(page, tokens), 1)

	cfg.MinArea = area + 0.5
	assert.Empty(t, NewDetector(cfg, nil).Detect(page, tokens))
}

func TestDetectKeepsTokenOrderAndIsIdempotent(t *testing.T) {
	page := blankPage(2000, 2000)
	outline(page, image.Rect(200, 1200, 500, 1500), 8)
	outline(page, image.Rect(200, 200, 500, 500), 8)

	// The lower marker is enumerated first.
	tokens := []ocr.Token{
		token(0, "2)", 100, 1100, 30, 20),
		token(1, "1)", 100, 100, 30, 20),
	}
	d := NewDetector(DefaultConfig(), logging.Nop())

	first := d.Detect(page, tokens)
	require.Len(t, first, 2)
	assert.Equal(t, "2)", first[0].Marker)
	assert.Equal(t, "1)", first[1].Marker)

	assert.Equal(t, first, d.Detect(page, tokens))
}

func TestDetectWithoutMarkers(t *testing.T) {
	page := blankPage(500, 500)
	outline(page, image.Rect(50, 50, 400, 400), 10)
	d := NewDetector(DefaultConfig(), logging.Nop())

	assert.Empty(t, d.Detect(page, []ocr.Token{token(0, "Triangle", 10, 10, 80, 20)}))
	assert.Empty(t, d.Detect(page, nil))
}

func TestDetectSkipsEmptyCandidate(t *testing.T) {
	page := blankPage(400, 400)
	d := NewDetector(DefaultConfig(), logging.Nop())

	candidates := d.Candidates(page, []ocr.Token{token(0, "3.", 100, 390, 20, 10)})
	require.Len(t, candidates, 1)
	assert.True(t, candidates[0].Rect.Empty())
	assert.False(t, candidates[0].Accepted)
}

func TestMeasureContentArea(t *testing.T) {
	assert.Zero(t, MeasureContentArea(blankPage(200, 200)))
	assert.Zero(t, MeasureContentArea(image.NewRGBA(image.Rect(0, 0, 0, 0))))

	page := blankPage(300, 300)
	outline(page, image.Rect(50, 50, 250, 250), 6)
	area := MeasureContentArea(page)
	assert.Greater(t, area, 190.0*190.0)
	assert.Less(t, area, 210.0*210.0)

	// A crop measures the same as an identical standalone image.
	big := blankPage(600, 600)
	outline(big, image.Rect(150, 150, 350, 350), 6)
	assert.Equal(t, area, MeasureContentArea(codec.Crop(big, image.Rect(100, 100, 400, 400))))
}
