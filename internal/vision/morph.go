package vision

// Dilate replaces each pixel with the maximum over a k x k square.
// Pixels outside the image do not contribute.
func Dilate(src *Gray, k int) *Gray {
	return rankFilter(src, k, func(a, b uint8) bool { return a > b })
}

// Erode replaces each pixel with the minimum over a k x k square.
// Pixels outside the image do not contribute, which leaves borders untouched
// by the frame itself.
func Erode(src *Gray, k int) *Gray {
	return rankFilter(src, k, func(a, b uint8) bool { return a < b })
}

// MorphClose dilates then erodes with a k x k square, bridging gaps narrower
// than the kernel.
func MorphClose(src *Gray, k int) *Gray {
	return Erode(Dilate(src, k), k)
}

// rankFilter applies a square min or max filter as two 1-D passes. The
// square's anchor sits at its centre; for even k the extra cell is on the
// leading side.
func rankFilter(src *Gray, k int, better func(a, b uint8) bool) *Gray {
	if k <= 1 || src.Empty() {
		out := NewGray(src.W, src.H)
		copy(out.Pix, src.Pix)
		return out
	}
	lo := k / 2
	hi := k - 1 - lo

	tmp := NewGray(src.W, src.H)
	for y := 0; y < src.H; y++ {
		row := src.Pix[y*src.W : (y+1)*src.W]
		for x := 0; x < src.W; x++ {
			best := row[x]
			for xx := max(0, x-lo); xx <= min(src.W-1, x+hi); xx++ {
				if better(row[xx], best) {
					best = row[xx]
				}
			}
			tmp.Pix[y*src.W+x] = best
		}
	}

	out := NewGray(src.W, src.H)
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			best := tmp.Pix[y*src.W+x]
			for yy := max(0, y-lo); yy <= min(src.H-1, y+hi); yy++ {
				if v := tmp.Pix[yy*src.W+x]; better(v, best) {
					best = v
				}
			}
			out.Pix[y*src.W+x] = best
		}
	}
	return out
}
