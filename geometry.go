package slicer

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// MeshData is one triangle soup as produced by a mesh loader. Positions
// and Normals hold x,y,z triples; Indices address vertices in triples.
type MeshData struct {
	Positions []float32
	Normals   []float32
	Indices   []uint16
}

// Submesh is an immutable uploaded part of the model together with its
// vertical extent, which drives per-layer culling.
type Submesh struct {
	Positions  []float32
	Normals    []float32
	Indices    []uint16
	ZMin       float32
	ZMax       float32
	IndexCount int
}

// VertexCount returns the number of vertices in the submesh.
func (m *Submesh) VertexCount() int { return len(m.Positions) / 3 }

// intersects reports whether the submesh can contribute to the slice at
// pos. Rendering from below, everything starting under the cut matters;
// rendering from above, everything ending over it.
func (m *Submesh) intersects(pos float32, upsideDown bool, inflate float32) bool {
	if upsideDown {
		return m.ZMin-inflate <= pos
	}
	return m.ZMax+inflate >= pos
}

// Bounds is an axis aligned box in model space (mm).
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// Extent returns Max - Min.
func (b Bounds) Extent() mgl32.Vec3 { return b.Max.Sub(b.Min) }

// Middle returns the center of the box.
func (b Bounds) Middle() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }

func emptyBounds() Bounds {
	inf := float32(math.Inf(1))
	return Bounds{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
}

func (b *Bounds) extend(p mgl32.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

// GeometryStore holds the submeshes of one model and its bounds.
type GeometryStore struct {
	meshes []Submesh
	bounds Bounds
}

// NewGeometryStore validates the meshes, computes their extents and checks
// that the model fits on the plate described by settings.
func NewGeometryStore(settings Settings, meshes []MeshData) (*GeometryStore, error) {
	g := &GeometryStore{bounds: emptyBounds()}
	for i := range meshes {
		m := &meshes[i]
		if len(m.Positions)%3 != 0 {
			return nil, fmt.Errorf("slicer: mesh %d: position count %d is not a multiple of 3", i, len(m.Positions))
		}
		if len(m.Normals) != len(m.Positions) {
			return nil, fmt.Errorf("slicer: mesh %d: %d normals for %d positions", i, len(m.Normals), len(m.Positions))
		}
		if len(m.Indices)%3 != 0 {
			return nil, fmt.Errorf("slicer: mesh %d: index count %d is not a multiple of 3", i, len(m.Indices))
		}
		if len(m.Indices) == 0 {
			continue
		}
		vertices := len(m.Positions) / 3
		sub := Submesh{
			Positions:  m.Positions,
			Normals:    m.Normals,
			Indices:    m.Indices,
			IndexCount: len(m.Indices),
		}
		part := emptyBounds()
		for _, idx := range m.Indices {
			if int(idx) >= vertices {
				return nil, fmt.Errorf("slicer: mesh %d: index %d out of range [0, %d)", i, idx, vertices)
			}
			p := m.Positions[3*int(idx):]
			part.extend(mgl32.Vec3{p[0], p[1], p[2]})
		}
		sub.ZMin, sub.ZMax = part.Min.Z(), part.Max.Z()
		g.bounds.extend(part.Min)
		g.bounds.extend(part.Max)
		g.meshes = append(g.meshes, sub)
	}
	if len(g.meshes) == 0 {
		return nil, ErrNoGeometry
	}

	ext := g.bounds.Extent()
	log := Logger()
	log.Info("model loaded", "parts", len(g.meshes))
	log.Info("model dimensions", "x", ext.X(), "y", ext.Y(), "z", ext.Z())

	if ext.X() > settings.PlateWidth || ext.Y() > settings.PlateHeight {
		return nil, configError("model", "%.2fx%.2f mm is larger than the %.2fx%.2f mm plate",
			ext.X(), ext.Y(), settings.PlateWidth, settings.PlateHeight)
	}
	if !(ext.Z() > 0) {
		return nil, configError("model", "has no height")
	}
	return g, nil
}

// Len returns the number of submeshes.
func (g *GeometryStore) Len() int { return len(g.meshes) }

// Submesh returns the i-th submesh.
func (g *GeometryStore) Submesh(i int) *Submesh { return &g.meshes[i] }

// Bounds returns the bounds of the whole model.
func (g *GeometryStore) Bounds() Bounds { return g.bounds }
