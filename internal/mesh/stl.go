// Package mesh loads triangle meshes and prepares them for slicing:
// vertices are welded, normals averaged, disconnected parts split apart
// and every part chunked to fit 16 bit index buffers.
package mesh

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/philipparndt/gostl/pkg/geometry"
	"github.com/philipparndt/gostl/pkg/stl"

	"github.com/gogpu/slicer"
)

// Mesh errors.
var (
	// ErrUnsupportedFormat is returned for files that are not STL.
	ErrUnsupportedFormat = errors.New("mesh: unsupported format")

	// ErrMalformed is returned when a file cannot be parsed.
	ErrMalformed = errors.New("mesh: malformed file")
)

// Triangle is one facet with counter-clockwise vertices seen from outside.
type Triangle [3]mgl32.Vec3

// Load reads a binary or ASCII STL file and returns the prepared submeshes.
func Load(path string) ([]slicer.MeshData, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".stl" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	model, err := stl.Parse(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformed, path, err)
	}
	tris := FromModel(model)
	slicer.Logger().Debug("mesh: decoded", "path", path, "triangles", len(tris))
	return Build(tris), nil
}

// FromModel converts parsed STL facets to single precision triangles.
// Facet normals are ignored; they are derived from the vertices.
func FromModel(m *stl.Model) []Triangle {
	tris := make([]Triangle, len(m.Triangles))
	for i, t := range m.Triangles {
		tris[i] = Triangle{vec(t.V1), vec(t.V2), vec(t.V3)}
	}
	return tris
}

func vec(v geometry.Vector3) mgl32.Vec3 {
	return mgl32.Vec3{float32(v.X), float32(v.Y), float32(v.Z)}
}
