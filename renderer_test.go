package slicer

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

// towerStore holds two stacked boxes, z 0..2 and 2..4.
func towerStore(t *testing.T, s Settings) *GeometryStore {
	t.Helper()
	g, err := NewGeometryStore(s, []MeshData{
		boxMesh(mgl32.Vec3{-3, -3, 0}, mgl32.Vec3{3, 3, 2}),
		boxMesh(mgl32.Vec3{-2, -2, 2}, mgl32.Vec3{2, 2, 4}),
	})
	if err != nil {
		t.Fatalf("NewGeometryStore: %v", err)
	}
	return g
}

func newFakeSession(t *testing.T, s Settings) (*Session, *fakeDevice, *memWriter) {
	t.Helper()
	dev := newFakeDevice(s.RenderWidth, s.RenderHeight)
	w := &memWriter{}
	sess, err := NewSession(s, towerStore(t, s), WithDevice(dev), WithImageWriter(w))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(func() { sess.Close() })
	dev.calls = nil
	return sess, dev, w
}

func (d *fakeDevice) find(op string) []call {
	var out []call
	for _, c := range d.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func TestNewSessionRequiresDevice(t *testing.T) {
	s := smallSettings()
	if _, err := NewSession(s, towerStore(t, s)); !errors.Is(err, ErrNoDevice) {
		t.Errorf("NewSession() = %v, want ErrNoDevice", err)
	}
}

func TestNewSessionInvalidSettings(t *testing.T) {
	s := smallSettings()
	store := towerStore(t, s)
	s.Samples = 3
	_, err := NewSession(s, store, WithDevice(newFakeDevice(20, 20)))
	var cerr *ConfigurationError
	if !errors.As(err, &cerr) {
		t.Errorf("NewSession() = %v, want *ConfigurationError", err)
	}
}

func TestNewSessionFactory(t *testing.T) {
	s := smallSettings()
	s.Samples = 4
	store := towerStore(t, s)

	var gotW, gotH, gotSamples int
	factory := func(w, h, samples int) (Device, error) {
		gotW, gotH, gotSamples = w, h, samples
		return newFakeDevice(w, h), nil
	}
	sess, err := NewSession(s, store, WithDeviceFactory(factory), WithImageWriter(&memWriter{}))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if gotW != 20 || gotH != 20 || gotSamples != 4 {
		t.Errorf("factory called with %dx%d/%d, want 20x20/4", gotW, gotH, gotSamples)
	}

	boom := errors.New("no adapter")
	failing := func(int, int, int) (Device, error) { return nil, boom }
	if _, err := NewSession(s, store, WithDeviceFactory(failing)); !errors.Is(err, boom) {
		t.Errorf("NewSession() = %v, want %v", err, boom)
	}
}

func TestNewSessionDevicePrecedence(t *testing.T) {
	s := smallSettings()
	called := false
	factory := func(w, h, samples int) (Device, error) {
		called = true
		return newFakeDevice(w, h), nil
	}
	sess, err := NewSession(s, towerStore(t, s),
		WithDeviceFactory(factory), WithDevice(newFakeDevice(20, 20)), WithImageWriter(&memWriter{}))
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	if called {
		t.Error("factory called although a device was given")
	}
}

func TestNewSessionSizeMismatch(t *testing.T) {
	s := smallSettings()
	dev := newFakeDevice(10, 20)
	_, err := NewSession(s, towerStore(t, s), WithDevice(dev))
	if !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("NewSession() = %v, want ErrSizeMismatch", err)
	}
	if !dev.closed {
		t.Error("device not closed")
	}
}

func TestNewSessionUploadFailure(t *testing.T) {
	s := smallSettings()
	boom := errors.New("out of memory")
	dev := newFakeDevice(20, 20)
	dev.failUpload = boom
	w := &memWriter{}
	_, err := NewSession(s, towerStore(t, s), WithDevice(dev), WithImageWriter(w))
	if !errors.Is(err, boom) {
		t.Errorf("NewSession() = %v, want %v", err, boom)
	}
	if !dev.closed || !w.closed {
		t.Error("device and writer not closed after failed upload")
	}
}

func TestRunWritesEveryLayer(t *testing.T) {
	s := smallSettings()
	s.OutputDir = "out"
	sess, dev, w := newFakeSession(t, s)
	dev.pixels[TargetScreen] = 255

	if n := sess.LayerCount(); n != 4 {
		t.Fatalf("LayerCount() = %d, want 4", n)
	}

	var infos []LayerInfo
	err := sess.Run(context.Background(), func(info LayerInfo) error {
		infos = append(infos, info)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(infos) != 4 {
		t.Fatalf("got %d layers, want 4", len(infos))
	}

	var want []string
	for i, info := range infos {
		if info.Index != uint32(i) {
			t.Errorf("layer %d has index %d", i, info.Index)
		}
		if wantZ := float32(i) + 0.5; info.Z != wantZ {
			t.Errorf("layer %d at z %v, want %v", i, info.Z, wantZ)
		}
		if info.Area != 400 {
			t.Errorf("layer %d area %v, want 400", i, info.Area)
		}
		if info.Overhang {
			t.Errorf("layer %d reports overhangs with detection disabled", i)
		}
		want = append(want, LayerPath("out", uint32(i), ".png"))
	}
	if !slices.Equal(w.paths, want) {
		t.Errorf("saved %v, want %v", w.paths, want)
	}

	masks := dev.find("mask")
	if len(masks) != 4 {
		t.Fatalf("%d mask passes, want 4", len(masks))
	}
	for i, m := range masks {
		wantCmp := CompareLess
		if i < 2 {
			wantCmp = CompareGreater
		}
		if m.cmp != wantCmp || m.mask != MaskWhite {
			t.Errorf("layer %d mask pass = %+v", i, m)
		}
	}
}

func TestRunCullsSubmeshes(t *testing.T) {
	sess, dev, _ := newFakeSession(t, smallSettings())
	if err := sess.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	want := [][]MeshID{{0}, {0}, {1}, {1}}
	parity := dev.find("parity")
	if len(parity) != len(want) {
		t.Fatalf("%d parity passes, want %d", len(parity), len(want))
	}
	for i, p := range parity {
		if !slices.Equal(p.meshes, want[i]) {
			t.Errorf("layer %d drew meshes %v, want %v", i, p.meshes, want[i])
		}
	}
}

func TestRunOverhangs(t *testing.T) {
	s := smallSettings()
	s.Overhangs.Enabled = true
	sess, dev, w := newFakeSession(t, s)
	dev.pixels[TargetTemporary] = 255

	var overhangs int
	err := sess.Run(context.Background(), func(info LayerInfo) error {
		if info.Overhang {
			overhangs++
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if overhangs != 4 {
		t.Errorf("%d overhang layers, want 4", overhangs)
	}
	if len(w.paths) != 8 {
		t.Errorf("saved %d images, want 8: %v", len(w.paths), w.paths)
	}
	if w.paths[0] != OverhangPath(".", 0, ".png") || w.paths[1] != LayerPath(".", 0, ".png") {
		t.Errorf("first layer saved %v", w.paths[:2])
	}
	if n := len(dev.find("filter")); n != 8 {
		t.Errorf("%d filter passes, want 8", n)
	}
}

func TestRunSmallSpots(t *testing.T) {
	s := smallSettings()
	s.SmallSpots.Enabled = true
	sess, dev, _ := newFakeSession(t, s)
	dev.pixels[TargetImage] = 255

	if err := sess.First(); err != nil {
		t.Fatal(err)
	}
	want := []string{"parity", "mask", "resolve", "read", "upload", "parity", "mask", "resolve", "filter"}
	if got := dev.ops(); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}
	if dev.calls[6].mask != MaskTexture {
		t.Error("compensation pass does not use the mask texture")
	}
	if c := dev.calls[7]; c.target != TargetTemporary {
		t.Errorf("compensation resolved into %v, want temporary", c.target)
	}
	if c := dev.calls[8]; c.target != TargetScreen || c.kernel != KernelCombineMax || c.aux != TargetTemporary {
		t.Errorf("merge pass = %+v", c)
	}
}

func TestRunJitter(t *testing.T) {
	s := smallSettings()
	s.Jitter = true
	sess, _, w := newFakeSession(t, s)
	sess.SetOffset(mgl32.Vec2{2, 1})
	if err := sess.Run(context.Background(), nil); err != nil {
		t.Fatal(err)
	}
	if len(w.paths) != 8 {
		t.Fatalf("saved %d images, want 8", len(w.paths))
	}
	if w.paths[1] != JitterPath(".", 0, ".png") {
		t.Errorf("second image = %q, want jittered layer 0", w.paths[1])
	}
	if got := sess.Offset(); got != (mgl32.Vec2{2, 1}) {
		t.Errorf("Offset() = %v after jitter, want (2, 1)", got)
	}
}

func TestRunStops(t *testing.T) {
	boom := errors.New("stop")
	sess, _, w := newFakeSession(t, smallSettings())
	calls := 0
	err := sess.Run(context.Background(), func(LayerInfo) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want %v", err, boom)
	}
	if len(w.paths) != 2 {
		t.Errorf("saved %d layers, want 2", len(w.paths))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sess2, _, w2 := newFakeSession(t, smallSettings())
	if err := sess2.Run(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
	if len(w2.paths) != 0 {
		t.Errorf("saved %v after cancel", w2.paths)
	}
}

func TestSessionClose(t *testing.T) {
	s := smallSettings()
	dev := newFakeDevice(20, 20)
	boom := errors.New("disk full")
	w := &memWriter{failEnd: boom}
	sess, err := NewSession(s, towerStore(t, s), WithDevice(dev), WithImageWriter(w))
	if err != nil {
		t.Fatal(err)
	}

	if err := sess.Close(); !errors.Is(err, boom) {
		t.Errorf("Close() = %v, want %v", err, boom)
	}
	if !dev.closed || !w.closed {
		t.Error("Close did not release device and writer")
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	if err := sess.First(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("First() = %v", err)
	}
	if _, err := sess.Advance(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Advance() = %v", err)
	}
	if err := sess.Render(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Render() = %v", err)
	}
	if err := sess.RenderJittered(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("RenderJittered() = %v", err)
	}
	if _, err := sess.Raster(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Raster() = %v", err)
	}
	if _, err := sess.AnalyzeOverhangs(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("AnalyzeOverhangs() = %v", err)
	}
}

func TestSessionModelProjectionRect(t *testing.T) {
	sess, _, _ := newFakeSession(t, smallSettings())
	if err := sess.First(); err != nil {
		t.Fatal(err)
	}
	lo, hi := sess.ModelProjectionRect()
	// The 6x6 mm base is centered on the 20x20 px plate.
	if !lo.ApproxEqualThreshold(mgl32.Vec2{7, 7}, 1e-4) || !hi.ApproxEqualThreshold(mgl32.Vec2{13, 13}, 1e-4) {
		t.Errorf("ModelProjectionRect() = %v..%v", lo, hi)
	}
}
