// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package raster

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/slicer"
	"github.com/gogpu/slicer/internal/filter"
)

// ErrUnsupportedSamples is returned for sample counts other than 1 and 4.
var ErrUnsupportedSamples = errors.New("raster: unsupported sample count")

// Device is a CPU implementation of slicer.Device.
//
// The screen stores samples interleaved per pixel: sample s of pixel i is
// at i*samples+s. The other targets are single sampled.
type Device struct {
	width   int
	height  int
	samples int

	color   []uint8
	stencil []uint8
	targets [4][]uint8
	mask    []uint8
	scratch []uint8

	meshes []*slicer.Submesh
	rast   *rasterizer
	closed bool
	log    *slog.Logger
}

var _ slicer.Device = (*Device)(nil)

// New creates a device with black targets and an all white mask.
func New(width, height, samples int) (*Device, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("raster: invalid size %dx%d", width, height)
	}
	var pattern []sample
	switch samples {
	case 1:
		pattern = pattern1
	case 4:
		pattern = pattern4
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSamples, samples)
	}

	n := width * height
	d := &Device{
		width:   width,
		height:  height,
		samples: samples,
		color:   make([]uint8, n*samples),
		stencil: make([]uint8, n*samples),
		mask:    make([]uint8, n),
		scratch: make([]uint8, n),
		rast:    newRasterizer(width, height, pattern),
		log:     slog.New(slog.DiscardHandler),
	}
	for t := slicer.TargetImage; t <= slicer.TargetTemporary; t++ {
		d.targets[t] = make([]uint8, n)
	}
	for i := range d.mask {
		d.mask[i] = 255
	}
	return d, nil
}

// SetLogger sets the logger for device diagnostics.
func (d *Device) SetLogger(l *slog.Logger) { d.log = l }

// Size returns the render size.
func (d *Device) Size() (int, int) { return d.width, d.height }

// Samples returns the screen sample count.
func (d *Device) Samples() int { return d.samples }

// UploadMesh keeps a reference to m; submeshes are immutable.
func (d *Device) UploadMesh(m *slicer.Submesh) (slicer.MeshID, error) {
	if d.closed {
		return 0, slicer.ErrDeviceClosed
	}
	d.meshes = append(d.meshes, m)
	d.log.Debug("raster: mesh uploaded", "id", len(d.meshes)-1, "vertices", m.VertexCount(), "indices", m.IndexCount)
	return slicer.MeshID(len(d.meshes) - 1), nil
}

func (d *Device) checkTarget(t slicer.Target) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	if !t.Valid() {
		return fmt.Errorf("raster: invalid target %d", t)
	}
	return nil
}

// Clear fills dst with value.
func (d *Device) Clear(dst slicer.Target, value uint8) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	if dst == slicer.TargetScreen {
		fill(d.color, value)
		clear(d.stencil)
		return nil
	}
	fill(d.targets[dst], value)
	return nil
}

// UploadMask replaces the mask texture.
func (d *Device) UploadMask(pix []uint8) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	if len(pix) != len(d.mask) {
		return fmt.Errorf("%w: mask has %d bytes, want %d", slicer.ErrSizeMismatch, len(pix), len(d.mask))
	}
	copy(d.mask, pix)
	return nil
}

// resolve averages the screen samples into dst.
func (d *Device) resolve(dst []uint8) {
	if d.samples == 1 {
		copy(dst, d.color)
		return
	}
	half := d.samples / 2
	for i := range dst {
		sum := 0
		for _, v := range d.color[i*d.samples : (i+1)*d.samples] {
			sum += int(v)
		}
		dst[i] = uint8((sum + half) / d.samples)
	}
}

// Resolve averages the screen samples into dst.
func (d *Device) Resolve(dst slicer.Target) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	if dst == slicer.TargetScreen {
		return errors.New("raster: cannot resolve the screen into itself")
	}
	d.resolve(d.targets[dst])
	return nil
}

// ReadPixels returns a copy of src, resolved if it is the screen.
func (d *Device) ReadPixels(src slicer.Target) ([]uint8, error) {
	if err := d.checkTarget(src); err != nil {
		return nil, err
	}
	out := make([]uint8, d.width*d.height)
	if src == slicer.TargetScreen {
		d.resolve(out)
	} else {
		copy(out, d.targets[src])
	}
	return out, nil
}

// Filter runs a 2D kernel over TargetImage into dst.
func (d *Device) Filter(dst slicer.Target, p *slicer.FilterPass) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	src := d.targets[slicer.TargetImage]
	out := d.scratch

	switch p.Kernel {
	case slicer.KernelOmniDilate:
		filter.OmniDilate(out, src, d.width, d.height, p.Scale, p.KernelSize)
	case slicer.KernelDifference, slicer.KernelCombineMax:
		aux, err := d.input(p.Aux)
		if err != nil {
			return err
		}
		if p.Kernel == slicer.KernelDifference {
			filter.Difference(out, src, aux)
		} else {
			filter.CombineMax(out, src, aux)
		}
	default:
		return fmt.Errorf("raster: unknown kernel %d", p.Kernel)
	}

	if dst != slicer.TargetScreen {
		copy(d.targets[dst], out)
		return nil
	}
	for i, v := range out {
		fill(d.color[i*d.samples:(i+1)*d.samples], v)
	}
	return nil
}

// input returns the single sampled contents of t.
func (d *Device) input(t slicer.Target) ([]uint8, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("raster: invalid target %d", t)
	}
	if t == slicer.TargetScreen {
		buf := make([]uint8, d.width*d.height)
		d.resolve(buf)
		return buf, nil
	}
	return d.targets[t], nil
}

// DrawParity clears the screen and counts surface crossings per sample.
func (d *Device) DrawParity(p *slicer.ParityPass) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	clear(d.color)
	fill(d.stencil, slicer.StencilReference)

	visit := func(front bool, pixel, s int) {
		i := pixel*d.samples + s
		if front {
			if d.stencil[i] > 0 {
				d.stencil[i]--
			}
		} else if d.stencil[i] < 255 {
			d.stencil[i]++
		}
	}

	mirror := p.Mirror
	for _, id := range p.Meshes {
		if id < 0 || int(id) >= len(d.meshes) {
			return fmt.Errorf("%w: %d", slicer.ErrUnknownMesh, id)
		}
		m := d.meshes[id]
		for t := 0; t+2 < m.IndexCount; t += 3 {
			var tri [3]vertex
			for k := range 3 {
				tri[k] = d.transformVertex(p.Transform, m, int(m.Indices[t+k]), p.Inflate, mirror)
			}
			d.rast.draw(tri, visit)
		}
	}
	return nil
}

func (d *Device) transformVertex(mvp mgl32.Mat4, m *slicer.Submesh, idx int, inflate float32, mirror mgl32.Vec2) vertex {
	p := m.Positions[3*idx : 3*idx+3]
	n := m.Normals[3*idx : 3*idx+3]
	pos := mgl32.Vec4{p[0] + n[0]*inflate, p[1] + n[1]*inflate, p[2] + n[2]*inflate, 1}
	v := toClip(mvp, pos)
	v.x *= float64(mirror.X())
	v.y *= float64(mirror.Y())
	return v
}

func toClip(m mgl32.Mat4, p mgl32.Vec4) vertex {
	c := m.Mul4x1(p)
	return vertex{float64(c.X()), float64(c.Y()), float64(c.Z()), float64(c.W())}
}

// DrawMask writes the mask color where the stencil test passes.
func (d *Device) DrawMask(p *slicer.MaskPass) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	var corners [4]vertex
	for i, q := range p.Quad {
		corners[i] = toClip(p.Transform, q.Vec4(1))
	}

	visit := func(_ bool, pixel, s int) {
		i := pixel*d.samples + s
		if !p.Compare.Test(p.Reference, d.stencil[i]) {
			return
		}
		if p.Mask == slicer.MaskTexture {
			d.color[i] = d.mask[pixel]
		} else {
			d.color[i] = 255
		}
	}
	d.rast.draw([3]vertex{corners[0], corners[1], corners[2]}, visit)
	d.rast.draw([3]vertex{corners[0], corners[2], corners[3]}, visit)
	return nil
}

// Close releases the device buffers.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.color, d.stencil, d.mask, d.scratch = nil, nil, nil, nil
	d.targets = [4][]uint8{}
	d.meshes = nil
	return nil
}

func fill(buf []uint8, v uint8) {
	for i := range buf {
		buf[i] = v
	}
}
