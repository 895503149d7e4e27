// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/slicer"
)

// boxMesh returns an axis aligned box with outward counter-clockwise
// faces and normalized corner normals.
func boxMesh(lo, hi mgl32.Vec3) slicer.MeshData {
	var m slicer.MeshData
	inv := float32(1 / math.Sqrt(3))
	for i := 0; i < 8; i++ {
		c := [3]int{i & 1, i >> 1 & 1, i >> 2 & 1}
		for a := 0; a < 3; a++ {
			v := lo[a]
			if c[a] == 1 {
				v = hi[a]
			}
			m.Positions = append(m.Positions, v)
			m.Normals = append(m.Normals, float32(2*c[a]-1)*inv)
		}
	}
	m.Indices = []uint16{
		0, 2, 3, 0, 3, 1, // z-
		4, 5, 7, 4, 7, 6, // z+
		0, 1, 5, 0, 5, 4, // y-
		2, 6, 7, 2, 7, 3, // y+
		0, 4, 6, 0, 6, 2, // x-
		1, 3, 7, 1, 7, 5, // x+
	}
	return m
}

// discard is an ImageWriter that keeps the last image per path.
type discard struct {
	images map[string][]uint8
}

func (d *discard) Save(path string, _, _ int, pix []uint8) error {
	if d.images == nil {
		d.images = map[string][]uint8{}
	}
	d.images[path] = pix
	return nil
}

func (d *discard) Close() error { return nil }

// testSettings describes a 20x20 mm plate rendered at 1 px per mm.
func testSettings() slicer.Settings {
	s := slicer.DefaultSettings()
	s.PlateWidth, s.PlateHeight = 20, 20
	s.RenderWidth, s.RenderHeight = 20, 20
	s.Step = 1
	s.Queue = 2
	return s
}

func newSession(t *testing.T, s slicer.Settings, meshes ...slicer.MeshData) (*slicer.Session, *Device) {
	t.Helper()
	store, err := slicer.NewGeometryStore(s, meshes)
	if err != nil {
		t.Fatalf("NewGeometryStore: %v", err)
	}
	dev, err := New(s.RenderWidth, s.RenderHeight, s.Samples)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sess, err := slicer.NewSession(s, store, slicer.WithDevice(dev), slicer.WithImageWriter(&discard{}))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { _ = sess.Close() })
	return sess, dev
}

func countLayer(t *testing.T, sess *slicer.Session) int {
	t.Helper()
	r, err := sess.Raster()
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	return r.Count(255)
}

func TestCubeEveryLayer(t *testing.T) {
	for _, samples := range []int{1, 4} {
		s := testSettings()
		s.Samples = samples
		sess, _ := newSession(t, s, boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 10, 10}))

		if got := sess.LayerCount(); got != 10 {
			t.Fatalf("LayerCount = %d, want 10", got)
		}
		if err := sess.First(); err != nil {
			t.Fatal(err)
		}
		layers := 0
		for {
			if got := countLayer(t, sess); got != 100 {
				t.Errorf("samples=%d layer %d (z=%v): %d cured pixels, want 100",
					samples, sess.CurrentIndex(), sess.Position(), got)
			}
			layers++
			more, err := sess.Advance()
			if err != nil {
				t.Fatal(err)
			}
			if !more {
				break
			}
		}
		if layers != 10 {
			t.Errorf("rendered %d layers, want 10", layers)
		}
	}
}

func TestCubeMirroring(t *testing.T) {
	// An L shaped pair of boxes distinguishes every mirror combination.
	meshes := []slicer.MeshData{
		boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 4, 10}),
		boxMesh(mgl32.Vec3{0, 4, 0}, mgl32.Vec3{4, 10, 10}),
	}

	render := func(mx, my bool, layer int) *slicer.Raster {
		s := testSettings()
		s.MirrorX, s.MirrorY = mx, my
		sess, _ := newSession(t, s, meshes...)
		if err := sess.First(); err != nil {
			t.Fatal(err)
		}
		for i := 0; i < layer; i++ {
			if _, err := sess.Advance(); err != nil {
				t.Fatal(err)
			}
		}
		r, err := sess.Raster()
		if err != nil {
			t.Fatal(err)
		}
		return r
	}

	for _, layer := range []int{2, 7} {
		plain := render(false, false, layer)
		if got := plain.Count(255); got != 64 {
			t.Fatalf("layer %d: %d cured pixels, want 64", layer, got)
		}
		cases := []struct {
			mx, my bool
			at     func(x, y int) uint8
		}{
			{true, false, func(x, y int) uint8 { return plain.At(19-x, y) }},
			{false, true, func(x, y int) uint8 { return plain.At(x, 19-y) }},
			{true, true, func(x, y int) uint8 { return plain.At(19-x, 19-y) }},
		}
		for _, c := range cases {
			got := render(c.mx, c.my, layer)
			for y := 0; y < 20; y++ {
				for x := 0; x < 20; x++ {
					if want := c.at(x, y); got.At(x, y) != want {
						t.Fatalf("layer %d mirror x=%v y=%v: pixel (%d,%d) = %d, want %d",
							layer, c.mx, c.my, x, y, got.At(x, y), want)
					}
				}
			}
		}
	}
}

func TestInflatedLayerKeepsGrownEdge(t *testing.T) {
	s := testSettings()
	s.Inflate = slicer.InflateSettings{Enabled: true, Distance: 2}

	// Corner normals move every vertex 2/sqrt(3) mm out on each axis, so the
	// 6 mm box covers 8.3 mm: 8x8 pixel centers, past its 6x6 bounding box.
	sess, _ := newSession(t, s, boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{6, 6, 10}))
	if err := sess.First(); err != nil {
		t.Fatal(err)
	}
	if got := countLayer(t, sess); got != 64 {
		t.Errorf("inflated layer has %d cured pixels, want 64", got)
	}

	s.Inflate.Enabled = false
	plain, _ := newSession(t, s, boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{6, 6, 10}))
	if err := plain.First(); err != nil {
		t.Fatal(err)
	}
	if got := countLayer(t, plain); got != 36 {
		t.Errorf("plain layer has %d cured pixels, want 36", got)
	}
}

func TestLayersAgreeAcrossDirections(t *testing.T) {
	// Layer 2 is rendered looking down, layer 7 looking up; both must
	// produce the same image of a prism.
	sess, _ := newSession(t, testSettings(),
		boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{10, 4, 10}),
		boxMesh(mgl32.Vec3{0, 4, 0}, mgl32.Vec3{4, 10, 10}))
	if err := sess.First(); err != nil {
		t.Fatal(err)
	}
	var images [][]uint8
	for i := 0; i < 10; i++ {
		r, err := sess.Raster()
		if err != nil {
			t.Fatal(err)
		}
		images = append(images, r.Data())
		if _, err := sess.Advance(); err != nil {
			t.Fatal(err)
		}
	}
	for i := 1; i < len(images); i++ {
		for p := range images[0] {
			if images[i][p] != images[0][p] {
				t.Fatalf("layer %d differs from layer 0 at pixel %d", i, p)
			}
		}
	}
}

func TestOverhangDetection(t *testing.T) {
	s := testSettings()
	s.Overhangs.Enabled = true
	s.Overhangs.MaxSupportedDistance = 1

	// A 4 mm pillar carrying a 10 mm table from z = 5.
	pillar := boxMesh(mgl32.Vec3{3, 3, 0}, mgl32.Vec3{7, 7, 5})
	table := boxMesh(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{10, 10, 10})
	sess, _ := newSession(t, s, pillar, table)

	var flagged []uint32
	err := sess.Run(t.Context(), func(l slicer.LayerInfo) error {
		if l.Overhang {
			flagged = append(flagged, l.Index)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(flagged) != 1 || flagged[0] != 5 {
		t.Errorf("overhang layers = %v, want [5]", flagged)
	}
}

func TestNoOverhangWithinSupport(t *testing.T) {
	s := testSettings()
	s.Overhangs.Enabled = true
	s.Overhangs.MaxSupportedDistance = 2

	// Each step grows by 1 mm on every side.
	lower := boxMesh(mgl32.Vec3{2, 2, 0}, mgl32.Vec3{8, 8, 5})
	upper := boxMesh(mgl32.Vec3{1, 1, 5}, mgl32.Vec3{9, 9, 10})
	sess, _ := newSession(t, s, lower, upper)

	err := sess.Run(t.Context(), func(l slicer.LayerInfo) error {
		if l.Overhang {
			t.Errorf("layer %d flagged as overhang", l.Index)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestSmallSpotCompensation(t *testing.T) {
	s := testSettings()
	s.SmallSpots.Enabled = true
	s.SmallSpots.Threshold = 4 // mm²
	s.SmallSpots.InflateDistance = 1
	s.SmallSpots.Connectivity = slicer.Connectivity8

	// A 2x2 mm pin (4 mm², small) and a 6x6 mm block (large).
	pin := boxMesh(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{2, 2, 10})
	block := boxMesh(mgl32.Vec3{6, 6, 0}, mgl32.Vec3{12, 12, 10})
	sess, _ := newSession(t, s, pin, block)
	if err := sess.First(); err != nil {
		t.Fatal(err)
	}
	got := countLayer(t, sess)

	// The block gains a ring of pixels, the pin stays as rendered.
	if want := 4 + 8*8; got != want {
		t.Errorf("cured pixels = %d, want %d", got, want)
	}
}

func TestFilterKernels(t *testing.T) {
	dev, err := New(3, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer dev.Close()

	copy(dev.targets[slicer.TargetImage], []uint8{0, 200, 0})
	copy(dev.targets[slicer.TargetPrevious], []uint8{50, 50, 50})

	if err := dev.Filter(slicer.TargetTemporary, &slicer.FilterPass{Kernel: slicer.KernelDifference, Aux: slicer.TargetPrevious}); err != nil {
		t.Fatal(err)
	}
	if got, _ := dev.ReadPixels(slicer.TargetTemporary); string(got) != string([]uint8{0, 150, 0}) {
		t.Errorf("difference = %v", got)
	}

	if err := dev.Filter(slicer.TargetScreen, &slicer.FilterPass{Kernel: slicer.KernelCombineMax, Aux: slicer.TargetPrevious}); err != nil {
		t.Fatal(err)
	}
	if got, _ := dev.ReadPixels(slicer.TargetScreen); string(got) != string([]uint8{50, 200, 50}) {
		t.Errorf("combine max = %v", got)
	}

	if err := dev.Filter(slicer.TargetImage, &slicer.FilterPass{Kernel: slicer.KernelOmniDilate, Scale: 1, KernelSize: 3}); err != nil {
		t.Fatal(err)
	}
	if got, _ := dev.ReadPixels(slicer.TargetImage); string(got) != string([]uint8{200, 200, 200}) {
		t.Errorf("dilate = %v", got)
	}
}

func TestDeviceErrors(t *testing.T) {
	if _, err := New(4, 4, 3); !errors.Is(err, ErrUnsupportedSamples) {
		t.Errorf("New(samples=3) error = %v", err)
	}
	dev, err := New(4, 4, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.DrawParity(&slicer.ParityPass{Meshes: []slicer.MeshID{3}}); !errors.Is(err, slicer.ErrUnknownMesh) {
		t.Errorf("DrawParity unknown mesh error = %v", err)
	}
	if err := dev.UploadMask(make([]uint8, 3)); !errors.Is(err, slicer.ErrSizeMismatch) {
		t.Errorf("UploadMask error = %v", err)
	}
	_ = dev.Close()
	if _, err := dev.ReadPixels(slicer.TargetScreen); !errors.Is(err, slicer.ErrDeviceClosed) {
		t.Errorf("ReadPixels after Close error = %v", err)
	}
}
