package regions

import (
	"image"

	"github.com/adverant/nexus/pdfocr/internal/vision"
)

// Acceptance filter parameters.
const (
	blurKernel     = 5
	thresholdBlock = 31
	thresholdC     = 5
	closeKernel    = 5
)

// MeasureContentArea estimates how much drawn content img holds: dark
// strokes are isolated with a local threshold, fragments are merged by a
// closing, and the areas of the outer contours are summed.
func MeasureContentArea(img image.Image) float64 {
	gray := vision.Grayscale(img)
	if gray.Empty() {
		return 0
	}
	blurred := vision.GaussianBlur(gray, blurKernel, 0)
	mask, err := vision.AdaptiveThresholdGaussian(blurred, 255, vision.ThresholdBinaryInv, thresholdBlock, thresholdC)
	if err != nil {
		// Block size is a valid constant.
		panic(err)
	}
	closed := vision.MorphClose(mask, closeKernel)
	return vision.TotalExternalContourArea(closed)
}
