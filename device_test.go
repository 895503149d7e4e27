package slicer

import (
	"fmt"
	"log/slog"
	"slices"
	"testing"
)

// call is one recorded device operation.
type call struct {
	op     string
	target Target
	kernel Kernel
	aux    Target
	size   int
	value  uint8
	meshes []MeshID
	mask   MaskSource
	cmp    CompareFunc
}

var _ Device = (*fakeDevice)(nil)

// fakeDevice records every operation. ReadPixels returns a buffer filled
// with the value configured for the target.
type fakeDevice struct {
	width, height int
	calls         []call
	pixels        map[Target]uint8
	uploads       int
	failUpload    error
	failReadPix   error
	closed        bool
	logger        *slog.Logger
}

func newFakeDevice(w, h int) *fakeDevice {
	return &fakeDevice{width: w, height: h, pixels: map[Target]uint8{}}
}

func (d *fakeDevice) Size() (int, int) { return d.width, d.height }

func (d *fakeDevice) SetLogger(l *slog.Logger) { d.logger = l }

func (d *fakeDevice) UploadMesh(*Submesh) (MeshID, error) {
	if d.failUpload != nil {
		return 0, d.failUpload
	}
	d.uploads++
	return MeshID(d.uploads - 1), nil
}

func (d *fakeDevice) DrawParity(p *ParityPass) error {
	d.calls = append(d.calls, call{op: "parity", target: TargetScreen, meshes: slices.Clone(p.Meshes)})
	return nil
}

func (d *fakeDevice) DrawMask(p *MaskPass) error {
	d.calls = append(d.calls, call{op: "mask", target: TargetScreen, mask: p.Mask, cmp: p.Compare})
	return nil
}

func (d *fakeDevice) Filter(dst Target, p *FilterPass) error {
	d.calls = append(d.calls, call{op: "filter", target: dst, kernel: p.Kernel, aux: p.Aux, size: p.KernelSize})
	return nil
}

func (d *fakeDevice) Resolve(dst Target) error {
	d.calls = append(d.calls, call{op: "resolve", target: dst})
	return nil
}

func (d *fakeDevice) Clear(dst Target, value uint8) error {
	d.calls = append(d.calls, call{op: "clear", target: dst, value: value})
	return nil
}

func (d *fakeDevice) UploadMask(pix []uint8) error {
	if len(pix) != d.width*d.height {
		return ErrSizeMismatch
	}
	d.calls = append(d.calls, call{op: "upload"})
	return nil
}

func (d *fakeDevice) ReadPixels(src Target) ([]uint8, error) {
	if d.failReadPix != nil {
		return nil, d.failReadPix
	}
	d.calls = append(d.calls, call{op: "read", target: src})
	pix := make([]uint8, d.width*d.height)
	for i := range pix {
		pix[i] = d.pixels[src]
	}
	return pix, nil
}

func (d *fakeDevice) Close() error {
	d.closed = true
	return nil
}

// ops returns the recorded operation names.
func (d *fakeDevice) ops() []string {
	names := make([]string, len(d.calls))
	for i, c := range d.calls {
		names[i] = c.op
	}
	return names
}

// memWriter is an ImageWriter that records saved paths.
type memWriter struct {
	paths    []string
	failSave error
	failEnd  error
	closed   bool
}

func (w *memWriter) Save(path string, width, height int, pix []uint8) error {
	if len(pix) != width*height {
		return fmt.Errorf("save %s: %d bytes for %dx%d", path, len(pix), width, height)
	}
	if w.failSave != nil {
		return w.failSave
	}
	w.paths = append(w.paths, path)
	return nil
}

func (w *memWriter) Close() error {
	w.closed = true
	return w.failEnd
}

func TestTargetString(t *testing.T) {
	tests := []struct {
		target Target
		want   string
		valid  bool
	}{
		{TargetScreen, "screen", true},
		{TargetImage, "image", true},
		{TargetPrevious, "previous", true},
		{TargetTemporary, "temporary", true},
		{Target(-1), "invalid", false},
		{targetCount, "invalid", false},
	}
	for _, tt := range tests {
		if got := tt.target.String(); got != tt.want {
			t.Errorf("Target(%d).String() = %q, want %q", tt.target, got, tt.want)
		}
		if got := tt.target.Valid(); got != tt.valid {
			t.Errorf("Target(%d).Valid() = %v, want %v", tt.target, got, tt.valid)
		}
	}
}

func TestCompareFunc(t *testing.T) {
	ref := StencilReference
	if !CompareLess.Test(ref, ref+1) || CompareLess.Test(ref, ref) || CompareLess.Test(ref, ref-1) {
		t.Error("CompareLess should pass only for stencil above the reference")
	}
	if !CompareGreater.Test(ref, ref-1) || CompareGreater.Test(ref, ref) || CompareGreater.Test(ref, ref+1) {
		t.Error("CompareGreater should pass only for stencil below the reference")
	}
}
