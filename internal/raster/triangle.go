// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import "math"

const (
	subBits = 8
	subOne  = 1 << subBits

	// coordLimit keeps edge function products inside int64.
	coordLimit = 1 << 30
)

// sample is a sub-pixel sample position in 1/subOne pixel units.
type sample struct {
	x, y int64
}

// Sample patterns. Four samples use the rotated grid of the D3D standard
// pattern so that every sample has a distinct row and column.
var (
	pattern1 = []sample{{128, 128}}
	pattern4 = []sample{{96, 32}, {224, 96}, {32, 160}, {160, 224}}
)

// vertex is a position in homogeneous clip space.
type vertex struct {
	x, y, z, w float64
}

// less orders vertices lexicographically so that an edge is always clipped
// from the same endpoint, whichever triangle it belongs to.
func less(a, b vertex) bool {
	switch {
	case a.x != b.x:
		return a.x < b.x
	case a.y != b.y:
		return a.y < b.y
	case a.z != b.z:
		return a.z < b.z
	default:
		return a.w < b.w
	}
}

func lerp(a, b vertex, t float64) vertex {
	return vertex{
		x: a.x + (b.x-a.x)*t,
		y: a.y + (b.y-a.y)*t,
		z: a.z + (b.z-a.z)*t,
		w: a.w + (b.w-a.w)*t,
	}
}

// clipPlane clips a convex polygon to dist >= 0, appending to out.
func clipPlane(in, out []vertex, dist func(vertex) float64) []vertex {
	out = out[:0]
	for i := range in {
		a, b := in[i], in[(i+1)%len(in)]
		da, db := dist(a), dist(b)
		if da >= 0 {
			out = append(out, a)
		}
		if (da >= 0) != (db >= 0) {
			if less(b, a) {
				a, b, da, db = b, a, db, da
			}
			out = append(out, lerp(a, b, da/(da-db)))
		}
	}
	return out
}

func nearDist(v vertex) float64 { return v.z + v.w }
func farDist(v vertex) float64  { return v.w - v.z }

// edge is an integer edge function E(X, Y) = dx*(Y-y0) - dy*(X-x0), which
// is positive left of the edge.
type edge struct {
	x0, y0 int64
	dx, dy int64
	// bias is 0 for top and left edges, which own samples exactly on them,
	// and -1 otherwise.
	bias int64
}

func (e *edge) eval(x, y int64) int64 {
	return e.dx*(y-e.y0) - e.dy*(x-e.x0)
}

// rasterizer scan converts clipped polygons into covered samples.
type rasterizer struct {
	width, height int
	pattern       []sample

	clipA, clipB []vertex
	xs, ys       []int64
	edges        []edge
	values       []int64
}

func newRasterizer(width, height int, pattern []sample) *rasterizer {
	return &rasterizer{
		width:   width,
		height:  height,
		pattern: pattern,
		clipA:   make([]vertex, 0, 8),
		clipB:   make([]vertex, 0, 8),
		xs:      make([]int64, 0, 8),
		ys:      make([]int64, 0, 8),
		edges:   make([]edge, 0, 8),
		values:  make([]int64, 8),
	}
}

func (r *rasterizer) toWindow(v vertex) (int64, int64) {
	fx := (v.x/v.w + 1) * 0.5 * float64(r.width) * subOne
	fy := (v.y/v.w + 1) * 0.5 * float64(r.height) * subOne
	return clampCoord(fx), clampCoord(fy)
}

func clampCoord(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f > coordLimit:
		return coordLimit
	case f < -coordLimit:
		return -coordLimit
	}
	return int64(math.Round(f))
}

// draw clips the triangle, determines its facing and calls visit for every
// covered sample with the pixel index and the sample index. Triangles that
// are clipped away or have zero area are skipped. A triangle is front
// facing when it is counter-clockwise in window coordinates.
func (r *rasterizer) draw(tri [3]vertex, visit func(front bool, pixel, s int)) {
	poly := append(r.clipA[:0], tri[:]...)
	poly = clipPlane(poly, r.clipB, nearDist)
	if len(poly) < 3 {
		return
	}
	poly = clipPlane(poly, r.clipA, farDist)
	if len(poly) < 3 {
		return
	}

	xs, ys := r.xs[:0], r.ys[:0]
	for _, v := range poly {
		if !(v.w > 0) {
			return
		}
		x, y := r.toWindow(v)
		xs = append(xs, x)
		ys = append(ys, y)
	}
	r.xs, r.ys = xs, ys

	var area int64
	n := len(xs)
	for i := range n {
		j := (i + 1) % n
		area += xs[i]*ys[j] - xs[j]*ys[i]
	}
	if area == 0 {
		return
	}
	front := area > 0
	if !front {
		for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
			xs[i], xs[j] = xs[j], xs[i]
			ys[i], ys[j] = ys[j], ys[i]
		}
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	edges := r.edges[:0]
	for i := range n {
		j := (i + 1) % n
		e := edge{x0: xs[i], y0: ys[i], dx: xs[j] - xs[i], dy: ys[j] - ys[i], bias: -1}
		if e.dy < 0 || (e.dy == 0 && e.dx < 0) {
			e.bias = 0
		}
		edges = append(edges, e)
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}
	r.edges = edges

	px0 := max(int(floorDiv(minX, subOne)), 0)
	px1 := min(int(floorDiv(maxX, subOne)), r.width-1)
	py0 := max(int(floorDiv(minY, subOne)), 0)
	py1 := min(int(floorDiv(maxY, subOne)), r.height-1)
	if px0 > px1 || py0 > py1 {
		return
	}

	values := r.values[:len(edges)]
	for py := py0; py <= py1; py++ {
		row := py * r.width
		for s, off := range r.pattern {
			y := int64(py)<<subBits + off.y
			x := int64(px0)<<subBits + off.x
			for i := range edges {
				values[i] = edges[i].eval(x, y)
			}
			for px := px0; px <= px1; px++ {
				inside := true
				for i := range edges {
					if values[i]+edges[i].bias < 0 {
						inside = false
					}
					values[i] -= edges[i].dy << subBits
				}
				if inside {
					visit(front, row+px, s)
				}
			}
		}
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
