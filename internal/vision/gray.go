// Package vision holds the small set of raster operations used to decide
// whether a cropped page region contains drawn content: grayscale
// conversion, Gaussian smoothing, adaptive thresholding, morphological
// closing and external contour measurement. Results follow the conventions
// of the equivalent OpenCV routines (BT.601 luma, reflect-101 borders for
// blurring, 8-connected foreground for contours).
package vision

import (
	"image"
	"image/color"
)

// Gray is an 8-bit single channel image stored row-major.
type Gray struct {
	W, H int
	Pix  []uint8
}

// NewGray allocates a zeroed w x h image.
func NewGray(w, h int) *Gray {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Gray{W: w, H: h, Pix: make([]uint8, w*h)}
}

// At returns the value at (x, y). Callers must stay in bounds.
func (g *Gray) At(x, y int) uint8 {
	return g.Pix[y*g.W+x]
}

// Set stores v at (x, y).
func (g *Gray) Set(x, y int, v uint8) {
	g.Pix[y*g.W+x] = v
}

// Empty reports whether the image has no pixels.
func (g *Gray) Empty() bool {
	return g.W == 0 || g.H == 0
}

// CountNonZero returns the number of non-zero pixels.
func (g *Gray) CountNonZero() int {
	n := 0
	for _, v := range g.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Fixed point BT.601 weights scaled by 1<<14.
const (
	lumaR     = 4899
	lumaG     = 9617
	lumaB     = 1868
	lumaShift = 14
)

func luma(r, g, b uint32) uint8 {
	return uint8((r*lumaR + g*lumaG + b*lumaB + 1<<(lumaShift-1)) >> lumaShift)
}

// Grayscale converts img to luma. The result is anchored at the origin
// regardless of img's bounds.
func Grayscale(img image.Image) *Gray {
	b := img.Bounds()
	out := NewGray(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.RGBA:
		for y := 0; y < out.H; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < out.W; x++ {
				p := row[x*4 : x*4+3]
				out.Pix[y*out.W+x] = luma(uint32(p[0]), uint32(p[1]), uint32(p[2]))
			}
		}
	case *image.Gray:
		for y := 0; y < out.H; y++ {
			copy(out.Pix[y*out.W:(y+1)*out.W], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
	default:
		for y := 0; y < out.H; y++ {
			for x := 0; x < out.W; x++ {
				c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
				out.Pix[y*out.W+x] = luma(uint32(c.R), uint32(c.G), uint32(c.B))
			}
		}
	}
	return out
}
