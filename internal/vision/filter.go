package vision

import "math"

// BorderMode selects how pixels outside the image are synthesized.
type BorderMode int

const (
	// BorderReflect101 mirrors without repeating the edge: gfedcb|abcdefgh|gfedcba
	BorderReflect101 BorderMode = iota
	// BorderReplicate repeats the edge pixel: aaaaaa|abcdefgh|hhhhhhh
	BorderReplicate
)

func (m BorderMode) index(i, n int) int {
	if n == 1 {
		return 0
	}
	switch m {
	case BorderReplicate:
		if i < 0 {
			return 0
		}
		if i >= n {
			return n - 1
		}
		return i
	default:
		for i < 0 || i >= n {
			if i < 0 {
				i = -i
			}
			if i >= n {
				i = 2*n - 2 - i
			}
		}
		return i
	}
}

// Precomputed kernels used when sigma is not positive and the size is small.
var smallGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianKernel returns a normalized 1-D Gaussian kernel of odd size ksize.
// A non-positive sigma is derived from the size as 0.3*((ksize-1)*0.5-1)+0.8.
func GaussianKernel(ksize int, sigma float64) []float64 {
	if ksize < 1 || ksize%2 == 0 {
		panic("vision: gaussian kernel size must be odd and positive")
	}
	if sigma <= 0 {
		if k, ok := smallGaussianKernels[ksize]; ok {
			return append([]float64(nil), k...)
		}
		sigma = 0.3*(float64(ksize-1)*0.5-1) + 0.8
	}

	kernel := make([]float64, ksize)
	scale := -0.5 / (sigma * sigma)
	half := ksize / 2
	var sum float64
	for i := range kernel {
		x := float64(i - half)
		kernel[i] = math.Exp(scale * x * x)
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// SeparableFilter convolves src with kernel horizontally then vertically and
// rounds the result back to 8 bits.
func SeparableFilter(src *Gray, kernel []float64, border BorderMode) *Gray {
	out := NewGray(src.W, src.H)
	if src.Empty() {
		return out
	}
	half := len(kernel) / 2
	tmp := make([]float64, src.W*src.H)

	for y := 0; y < src.H; y++ {
		row := src.Pix[y*src.W : (y+1)*src.W]
		for x := 0; x < src.W; x++ {
			var acc float64
			for k, w := range kernel {
				acc += w * float64(row[border.index(x+k-half, src.W)])
			}
			tmp[y*src.W+x] = acc
		}
	}

	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			var acc float64
			for k, w := range kernel {
				acc += w * tmp[border.index(y+k-half, src.H)*src.W+x]
			}
			out.Pix[y*src.W+x] = saturate(acc)
		}
	}
	return out
}

// GaussianBlur smooths src with a ksize x ksize Gaussian using reflect-101 borders.
func GaussianBlur(src *Gray, ksize int, sigma float64) *Gray {
	return SeparableFilter(src, GaussianKernel(ksize, sigma), BorderReflect101)
}

func saturate(v float64) uint8 {
	v = math.RoundToEven(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
