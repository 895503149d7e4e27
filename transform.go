package slicer

import "github.com/go-gl/mathgl/mgl32"

// Transforms is the model, view and projection of one slice.
type Transforms struct {
	Model      mgl32.Mat4
	View       mgl32.Mat4
	Projection mgl32.Mat4
}

// WorldViewProjection returns Projection * View * Model.
func (t Transforms) WorldViewProjection() mgl32.Mat4 {
	return t.Projection.Mul4(t.View).Mul4(t.Model)
}

// ModelTransform places the model on the plate. offset is in pixels and is
// converted to mm with the plate to render ratio.
func ModelTransform(s *Settings, offset mgl32.Vec2) mgl32.Mat4 {
	dx := s.PlateWidth / float32(s.RenderWidth) * offset.X()
	dy := s.PlateHeight / float32(s.RenderHeight) * offset.Y()
	return mgl32.Scale3D(1, 1, 1).Mul4(mgl32.Translate3D(dx, dy, 0))
}

// IsUpsideDown reports whether the slice at pos is rendered looking down
// from above the cut, which is the case for the lower half of the model.
func IsUpsideDown(b Bounds, pos float32) bool {
	return pos <= (b.Max.Z()+b.Min.Z())/2
}

// ViewTransform returns a camera at height pos above the model center,
// looking away from the nearer end of the model.
func ViewTransform(b Bounds, pos float32) mgl32.Mat4 {
	mid := b.Middle()
	eye := mgl32.Vec3{mid.X(), mid.Y(), pos}
	target := mgl32.Vec3{mid.X(), mid.Y(), b.Max.Z() + 1}
	if IsUpsideDown(b, pos) {
		target[2] = b.Min.Z() - 1
	}
	return mgl32.LookAtV(eye, target, mgl32.Vec3{0, -1, 0})
}

// ProjectionTransform maps the plate onto the render target with depth
// covering the full model height.
func ProjectionTransform(s *Settings, b Bounds) mgl32.Mat4 {
	aspect := float32(s.RenderWidth) / float32(s.RenderHeight)
	h := s.PlateHeight / 2
	return mgl32.Ortho(-h*aspect, h*aspect, -h, h, 0, b.Extent().Z())
}

// ComputeTransforms returns the transforms of the slice at pos.
func ComputeTransforms(s *Settings, b Bounds, pos float32, offset mgl32.Vec2) Transforms {
	return Transforms{
		Model:      ModelTransform(s, offset),
		View:       ViewTransform(b, pos),
		Projection: ProjectionTransform(s, b),
	}
}

// ShouldMirrorX reports whether clip-space x must be negated. The upside
// down camera already mirrors the image horizontally.
func ShouldMirrorX(s *Settings, b Bounds, pos float32) bool {
	return s.MirrorX != IsUpsideDown(b, pos)
}

// ShouldMirrorY reports whether clip-space y must be negated.
func ShouldMirrorY(s *Settings) bool { return s.MirrorY }

// MirrorFactors returns the ±1 factors applied to clip-space x and y.
func MirrorFactors(s *Settings, b Bounds, pos float32) mgl32.Vec2 {
	f := mgl32.Vec2{1, 1}
	if ShouldMirrorX(s, b, pos) {
		f[0] = -1
	}
	if ShouldMirrorY(s) {
		f[1] = -1
	}
	return f
}

// MaskCompare returns the stencil comparison of the mask pass. Mirroring
// one axis reverses the winding of every triangle, which swaps the sign of
// the parity count.
func MaskCompare(s *Settings, b Bounds, pos float32) CompareFunc {
	if ShouldMirrorX(s, b, pos) != ShouldMirrorY(s) {
		return CompareGreater
	}
	return CompareLess
}

// ModelProjectionRect returns the pixel rectangle covered by the model's
// bounding box at pos, as component-wise min and max.
func ModelProjectionRect(s *Settings, b Bounds, pos float32, offset mgl32.Vec2) (lo, hi mgl32.Vec2) {
	w, h := float32(s.RenderWidth), float32(s.RenderHeight)
	screen := mgl32.Translate3D(w/2, h/2, 0).Mul4(mgl32.Scale3D(w/2, h/2, 1))
	t := ComputeTransforms(s, b, pos, offset)
	m := screen.Mul4(t.WorldViewProjection())

	p0 := m.Mul4x1(b.Min.Vec4(1))
	p1 := m.Mul4x1(b.Max.Vec4(1))
	lo = mgl32.Vec2{min(p0.X(), p1.X()), min(p0.Y(), p1.Y())}
	hi = mgl32.Vec2{max(p0.X(), p1.X()), max(p0.Y(), p1.Y())}
	return lo, hi
}
