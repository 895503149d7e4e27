package mesh

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/slicer"
)

// maxChunkVertices is the vertex limit of a 16 bit index buffer.
const maxChunkVertices = math.MaxUint16 + 1

// faceNormal returns the area weighted normal (twice the area long).
func faceNormal(t Triangle) mgl32.Vec3 {
	return t[1].Sub(t[0]).Cross(t[2].Sub(t[0]))
}

// normalize returns v scaled to unit length, or zero for a zero vector.
func normalize(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

// welded is an indexed mesh with shared vertices.
type welded struct {
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	faces     [][3]uint32
}

// weld merges bit-identical vertices and accumulates area weighted
// normals. Degenerate facets with repeated vertices are dropped.
func weld(tris []Triangle) *welded {
	w := &welded{}
	index := make(map[mgl32.Vec3]uint32, len(tris))
	for _, t := range tris {
		var f [3]uint32
		for v, p := range t {
			i, ok := index[p]
			if !ok {
				i = uint32(len(w.positions))
				index[p] = i
				w.positions = append(w.positions, p)
				w.normals = append(w.normals, mgl32.Vec3{})
			}
			f[v] = i
		}
		if f[0] == f[1] || f[1] == f[2] || f[0] == f[2] {
			continue
		}
		n := faceNormal(t)
		for _, i := range f {
			w.normals[i] = w.normals[i].Add(n)
		}
		w.faces = append(w.faces, f)
	}
	for i, n := range w.normals {
		w.normals[i] = normalize(n)
	}
	return w
}

// unionFind groups vertices connected by faces.
type unionFind []uint32

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = uint32(i)
	}
	return u
}

func (u unionFind) find(i uint32) uint32 {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(a, b uint32) {
	ra, rb := u.find(a), u.find(b)
	if ra != rb {
		u[rb] = ra
	}
}

// Build welds the triangles, splits them into connected parts and chunks
// every part into submeshes with at most 65536 vertices.
func Build(tris []Triangle) []slicer.MeshData {
	w := weld(tris)
	uf := newUnionFind(len(w.positions))
	for _, f := range w.faces {
		uf.union(f[0], f[1])
		uf.union(f[0], f[2])
	}

	// Faces per part, in order of first appearance.
	partOf := make(map[uint32]int)
	var parts [][][3]uint32
	for _, f := range w.faces {
		root := uf.find(f[0])
		p, ok := partOf[root]
		if !ok {
			p = len(parts)
			partOf[root] = p
			parts = append(parts, nil)
		}
		parts[p] = append(parts[p], f)
	}

	var out []slicer.MeshData
	for _, faces := range parts {
		out = append(out, chunk(w, faces)...)
	}
	slicer.Logger().Debug("mesh: built", "vertices", len(w.positions), "faces", len(w.faces), "parts", len(parts), "submeshes", len(out))
	return out
}

// chunk splits faces into submeshes whose local vertex count fits 16 bit
// indices.
func chunk(w *welded, faces [][3]uint32) []slicer.MeshData {
	var (
		out   []slicer.MeshData
		cur   slicer.MeshData
		local = make(map[uint32]uint16)
	)
	flush := func() {
		if len(cur.Indices) > 0 {
			out = append(out, cur)
		}
		cur = slicer.MeshData{}
		clear(local)
	}
	for _, f := range faces {
		fresh := 0
		for _, i := range f {
			if _, ok := local[i]; !ok {
				fresh++
			}
		}
		if len(local)+fresh > maxChunkVertices {
			flush()
		}
		for _, i := range f {
			li, ok := local[i]
			if !ok {
				li = uint16(len(local))
				local[i] = li
				p, n := w.positions[i], w.normals[i]
				cur.Positions = append(cur.Positions, p[0], p[1], p[2])
				cur.Normals = append(cur.Normals, n[0], n[1], n[2])
			}
			cur.Indices = append(cur.Indices, li)
		}
	}
	flush()
	return out
}
