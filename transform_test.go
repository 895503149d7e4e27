package slicer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var testBounds = Bounds{Min: mgl32.Vec3{-2, -3, 0}, Max: mgl32.Vec3{2, 3, 10}}

func TestIsUpsideDown(t *testing.T) {
	tests := []struct {
		pos  float32
		want bool
	}{
		{0.5, true},
		{5, true},
		{5.5, false},
		{9.5, false},
	}
	for _, tt := range tests {
		if got := IsUpsideDown(testBounds, tt.pos); got != tt.want {
			t.Errorf("IsUpsideDown(%v) = %v, want %v", tt.pos, got, tt.want)
		}
	}
}

func TestMirrorAndCompare(t *testing.T) {
	tests := []struct {
		name    string
		mirrorX bool
		mirrorY bool
		pos     float32
		factors mgl32.Vec2
		compare CompareFunc
	}{
		{"top half", false, false, 7, mgl32.Vec2{1, 1}, CompareLess},
		{"bottom half", false, false, 3, mgl32.Vec2{-1, 1}, CompareGreater},
		{"bottom half mirror x", true, false, 3, mgl32.Vec2{1, 1}, CompareLess},
		{"bottom half mirror y", false, true, 3, mgl32.Vec2{-1, -1}, CompareLess},
		{"top half mirror y", false, true, 7, mgl32.Vec2{1, -1}, CompareGreater},
		{"top half mirror both", true, true, 7, mgl32.Vec2{-1, -1}, CompareLess},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := smallSettings()
			s.MirrorX, s.MirrorY = tt.mirrorX, tt.mirrorY
			if got := MirrorFactors(&s, testBounds, tt.pos); got != tt.factors {
				t.Errorf("MirrorFactors() = %v, want %v", got, tt.factors)
			}
			if got := MaskCompare(&s, testBounds, tt.pos); got != tt.compare {
				t.Errorf("MaskCompare() = %v, want %v", got, tt.compare)
			}
		})
	}
}

func TestModelTransformOffset(t *testing.T) {
	s := smallSettings()
	s.RenderWidth = 40
	m := ModelTransform(&s, mgl32.Vec2{2, 3})
	p := m.Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	if !p.ApproxEqual(mgl32.Vec4{1, 3, 0, 1}) {
		t.Errorf("offset origin = %v, want (1, 3, 0, 1)", p)
	}
}

func TestModelProjectionRect(t *testing.T) {
	s := smallSettings()
	tests := []struct {
		name   string
		pos    float32
		offset mgl32.Vec2
		lo, hi mgl32.Vec2
	}{
		{"centered", 7, mgl32.Vec2{}, mgl32.Vec2{8, 7}, mgl32.Vec2{12, 13}},
		{"offset", 7, mgl32.Vec2{1, 0}, mgl32.Vec2{9, 7}, mgl32.Vec2{13, 13}},
		// Looking down from above the cut mirrors x.
		{"offset upside down", 3, mgl32.Vec2{1, 0}, mgl32.Vec2{7, 7}, mgl32.Vec2{11, 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := ModelProjectionRect(&s, testBounds, tt.pos, tt.offset)
			if !lo.ApproxEqualThreshold(tt.lo, 1e-4) || !hi.ApproxEqualThreshold(tt.hi, 1e-4) {
				t.Errorf("ModelProjectionRect() = %v..%v, want %v..%v", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestProjectionDepthCoversModel(t *testing.T) {
	s := smallSettings()
	for _, pos := range []float32{0.5, 9.5} {
		tr := ComputeTransforms(&s, testBounds, pos, mgl32.Vec2{})
		mvp := tr.WorldViewProjection()
		// The end of the model the camera looks towards must stay inside
		// the clip volume.
		far := testBounds.Max.Z()
		if IsUpsideDown(testBounds, pos) {
			far = testBounds.Min.Z()
		}
		p := mvp.Mul4x1(mgl32.Vec4{0, 0, far, 1})
		if p.Z() < -1-1e-4 || p.Z() > 1+1e-4 {
			t.Errorf("pos %v: far end z = %v, outside clip range", pos, p.Z())
		}
	}
}
