package vision

import (
	"fmt"
	"math"
)

// ThresholdType selects which side of the local threshold is set.
type ThresholdType int

const (
	// ThresholdBinary sets pixels brighter than the local threshold.
	ThresholdBinary ThresholdType = iota
	// ThresholdBinaryInv sets pixels darker than the local threshold; ink on paper.
	ThresholdBinaryInv
)

// AdaptiveThresholdGaussian compares each pixel with the Gaussian-weighted
// mean of its blockSize x blockSize neighbourhood minus c.
//
// With ThresholdBinaryInv a pixel becomes maxValue when src-mean <= -floor(c),
// with ThresholdBinary when src-mean > -ceil(c).
func AdaptiveThresholdGaussian(src *Gray, maxValue uint8, typ ThresholdType, blockSize int, c float64) (*Gray, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, fmt.Errorf("adaptive threshold block size must be odd and >= 3, got %d", blockSize)
	}

	out := NewGray(src.W, src.H)
	if src.Empty() {
		return out, nil
	}

	mean := SeparableFilter(src, GaussianKernel(blockSize, 0), BorderReplicate)

	var delta int
	if typ == ThresholdBinary {
		delta = int(math.Ceil(c))
	} else {
		delta = int(math.Floor(c))
	}

	for i, v := range src.Pix {
		diff := int(v) - int(mean.Pix[i])
		var set bool
		if typ == ThresholdBinary {
			set = diff > -delta
		} else {
			set = diff <= -delta
		}
		if set {
			out.Pix[i] = maxValue
		}
	}
	return out, nil
}
