package vision

import "image"

// Contour is a closed border polygon in image coordinates.
type Contour []image.Point

// Neighbour offsets in counterclockwise screen order starting east, y down.
var neighbours = [8]image.Point{
	{1, 0}, {1, -1}, {0, -1}, {-1, -1},
	{-1, 0}, {-1, 1}, {0, 1}, {1, 1},
}

const directionWest = 4

// ExternalContours returns the outer border of every 8-connected foreground
// component of src that is not enclosed by another component. Non-zero
// pixels are foreground. Contours are ordered by their top-left pixel in
// raster order and each starts at that pixel.
func ExternalContours(src *Gray) []Contour {
	if src.Empty() {
		return nil
	}

	// One pixel background frame so every border has a background neighbour.
	w, h := src.W+2, src.H+2
	fg := make([]bool, w*h)
	for y := 0; y < src.H; y++ {
		for x := 0; x < src.W; x++ {
			fg[(y+1)*w+x+1] = src.Pix[y*src.W+x] != 0
		}
	}

	outside := markOutside(fg, w, h)

	seen := make([]bool, w*h)
	var contours []Contour
	var stack []int
	for i := range fg {
		if !fg[i] || seen[i] {
			continue
		}
		// i is the raster-first pixel of a new component.
		external := false
		seen[i] = true
		stack = append(stack[:0], i)
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%w, p/w
			for d, off := range neighbours {
				q := (py+off.Y)*w + px + off.X
				if d%2 == 0 && outside[q] {
					external = true
				}
				if fg[q] && !seen[q] {
					seen[q] = true
					stack = append(stack, q)
				}
			}
		}
		if !external {
			continue
		}
		c := traceBorder(fg, w, image.Pt(i%w, i/w))
		for j := range c {
			c[j] = c[j].Sub(image.Pt(1, 1))
		}
		contours = append(contours, c)
	}
	return contours
}

// markOutside flood fills the 4-connected background reachable from the frame.
func markOutside(fg []bool, w, h int) []bool {
	outside := make([]bool, w*h)
	outside[0] = true
	stack := []int{0}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		px, py := p%w, p/w
		for d := 0; d < 8; d += 2 {
			x, y := px+neighbours[d].X, py+neighbours[d].Y
			if x < 0 || y < 0 || x >= w || y >= h {
				continue
			}
			q := y*w + x
			if !fg[q] && !outside[q] {
				outside[q] = true
				stack = append(stack, q)
			}
		}
	}
	return outside
}

// traceBorder follows the outer border that starts at start, whose west
// neighbour is background, using Suzuki and Abe's border following.
func traceBorder(fg []bool, w int, start image.Point) Contour {
	at := func(p image.Point) bool { return fg[p.Y*w+p.X] }

	// Clockwise search from the west neighbour for the first foreground pixel.
	s := directionWest
	found := false
	for k := 0; k < 8; k++ {
		s = (s + 7) & 7
		if s == directionWest {
			break
		}
		if at(start.Add(neighbours[s])) {
			found = true
			break
		}
	}
	if !found {
		return Contour{start}
	}

	first := start.Add(neighbours[s])
	contour := Contour{}
	cur := start
	for {
		contour = append(contour, cur)
		var next image.Point
		for k := 1; k <= 8; k++ {
			d := (s + k) & 7
			if p := cur.Add(neighbours[d]); at(p) {
				next, s = p, d
				break
			}
		}
		if next == start && cur == first {
			break
		}
		cur = next
		s = (s + 4) & 7
	}
	return contour
}

// ContourArea returns the absolute polygon area of c by the shoelace formula.
func ContourArea(c Contour) float64 {
	if len(c) < 3 {
		return 0
	}
	var sum int
	prev := c[len(c)-1]
	for _, p := range c {
		sum += prev.X*p.Y - p.X*prev.Y
		prev = p
	}
	if sum < 0 {
		sum = -sum
	}
	return float64(sum) / 2
}

// TotalExternalContourArea sums ContourArea over ExternalContours(src).
func TotalExternalContourArea(src *Gray) float64 {
	var total float64
	for _, c := range ExternalContours(src) {
		total += ContourArea(c)
	}
	return total
}
