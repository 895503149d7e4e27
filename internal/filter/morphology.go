package filter

import "math"

// rowMax writes dst[x] = max(src[x-r .. x+r]) treating samples outside the
// row as 0. pad must hold at least len(src)+2r bytes and g, h at least as
// many; they are scratch buffers.
//
// The van Herk/Gil-Werman scheme keeps the cost independent of r.
func rowMax(dst, src []uint8, r int, pad, g, h []uint8) {
	n := len(src)
	if r == 0 {
		copy(dst, src)
		return
	}
	size := 2*r + 1
	m := n + 2*r
	pad = pad[:m]
	clear(pad[:r])
	copy(pad[r:], src)
	clear(pad[r+n:])

	g, h = g[:m], h[:m]
	for i := 0; i < m; i++ {
		if i%size == 0 {
			g[i] = pad[i]
		} else {
			g[i] = max(g[i-1], pad[i])
		}
	}
	for i := m - 1; i >= 0; i-- {
		if i == m-1 || (i+1)%size == 0 {
			h[i] = pad[i]
		} else {
			h[i] = max(h[i+1], pad[i])
		}
	}
	for x := 0; x < n; x++ {
		dst[x] = max(h[x], g[x+2*r])
	}
}

// Dilate3x3 writes the maximum of each pixel's 3x3 neighborhood into dst.
// dst and src must not overlap.
func Dilate3x3(dst, src []uint8, width, height int) {
	OmniDilateSquare(dst, src, width, height, 1)
}

// OmniDilateSquare writes the maximum over a (2r+1)x(2r+1) square.
// dst and src must not overlap.
func OmniDilateSquare(dst, src []uint8, width, height, r int) {
	tmp := make([]uint8, len(src))
	scratch := newScratch(max(width, height), r)

	for y := 0; y < height; y++ {
		row := y * width
		rowMax(tmp[row:row+width], src[row:row+width], r, scratch.pad, scratch.g, scratch.h)
	}

	col := make([]uint8, height)
	out := make([]uint8, height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			col[y] = tmp[y*width+x]
		}
		rowMax(out, col, r, scratch.pad, scratch.g, scratch.h)
		for y := 0; y < height; y++ {
			dst[y*width+x] = out[y]
		}
	}
}

// OmniDilate writes, for every pixel, the maximum over a disk of diameter
// kernelSize centered on it, multiplied by scale and clamped to 255.
// dst and src must not overlap.
func OmniDilate(dst, src []uint8, width, height int, scale float32, kernelSize int) {
	spans := CachedDiskSpans(kernelSize)
	r := len(spans) / 2
	scratch := newScratch(width, r)

	clear(dst)
	for y := 0; y < height; y++ {
		out := dst[y*width : (y+1)*width]
		for dy := -r; dy <= r; dy++ {
			sy := y + dy
			if sy < 0 || sy >= height {
				continue
			}
			hw := spans[dy+r]
			line := scratch.line(hw)
			rowMax(line, src[sy*width:(sy+1)*width], hw, scratch.pad, scratch.g, scratch.h)
			for x, v := range line {
				out[x] = max(out[x], v)
			}
		}
	}

	if scale != 1 {
		Scale(dst, dst, scale)
	}
}

func scaleByte(v uint8, scale float32) uint8 {
	f := math.Round(float64(v) * float64(scale))
	if f >= 255 {
		return 255
	}
	if f <= 0 {
		return 0
	}
	return uint8(f)
}

type scratch struct {
	pad, g, h []uint8
	lines     map[int][]uint8
	n         int
}

func newScratch(n, r int) *scratch {
	m := n + 2*r
	return &scratch{
		pad:   make([]uint8, m),
		g:     make([]uint8, m),
		h:     make([]uint8, m),
		lines: make(map[int][]uint8),
		n:     n,
	}
}

func (s *scratch) line(hw int) []uint8 {
	l, ok := s.lines[hw]
	if !ok {
		l = make([]uint8, s.n)
		s.lines[hw] = l
	}
	return l
}
