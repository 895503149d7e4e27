//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gogpu/slicer"
)

var (
	// ErrUnsupportedSamples is returned for sample counts other than 1 and 4.
	ErrUnsupportedSamples = errors.New("gpu: sample count must be 1 or 4")

	// ErrNoAdapter is returned when no GPU adapter could be opened.
	ErrNoAdapter = errors.New("gpu: no adapter available")
)

// waitTimeout bounds every fence wait.
const waitTimeout = 10 * time.Second

// copyPitchAlignment is the row alignment of texture to buffer copies.
const copyPitchAlignment = 256

// meshBuffers holds the GPU copy of one submesh.
type meshBuffers struct {
	positions  hal.Buffer
	normals    hal.Buffer
	indices    hal.Buffer
	indexCount uint32
}

// Device renders layers with a hal device. It is not safe for concurrent
// use.
type Device struct {
	device hal.Device
	queue  hal.Queue

	// instance is set when the device was opened by New and must be
	// destroyed with it.
	instance hal.Instance
	owned    bool

	width, height int
	samples       int

	textures textureSet
	pipes    pipelines
	meshes   []meshBuffers
	quad     hal.Buffer

	closed bool
}

var _ slicer.Device = (*Device)(nil)

// New opens the first hardware adapter of the Vulkan backend and creates a
// device on it.
func New(width, height, samples int) (*Device, error) {
	if samples != 1 && samples != 4 {
		return nil, ErrUnsupportedSamples
	}
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("%w: vulkan backend not available", ErrNoAdapter)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	selected := &adapters[0]
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("open device: %w", err)
	}

	d, err := NewWithHAL(openDev.Device, openDev.Queue, width, height, samples)
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	d.instance = instance
	d.owned = true
	slogger().Info("gpu: adapter selected", "name", selected.Info.Name, "width", width, "height", height, "samples", samples)
	return d, nil
}

// NewWithHAL creates a device on an existing hal device and queue. The
// caller keeps ownership of both.
func NewWithHAL(device hal.Device, queue hal.Queue, width, height, samples int) (*Device, error) {
	if samples != 1 && samples != 4 {
		return nil, ErrUnsupportedSamples
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid size %dx%d", width, height)
	}
	d := &Device{
		device:   device,
		queue:    queue,
		width:    width,
		height:   height,
		samples:  samples,
		textures: textureSet{device: device},
		pipes:    pipelines{device: device},
	}
	if err := d.textures.create(uint32(width), uint32(height), uint32(samples)); err != nil { //nolint:gosec // validated above
		d.release()
		return nil, err
	}
	if err := d.pipes.create(uint32(samples)); err != nil { //nolint:gosec // validated above
		d.release()
		return nil, err
	}
	quad, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "slicer_mask_quad",
		Size:  6 * vec3Stride,
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		d.release()
		return nil, fmt.Errorf("create quad buffer: %w", err)
	}
	d.quad = quad
	return d, nil
}

// SetLogger is called by slicer.SetLogger.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Size returns the render size.
func (d *Device) Size() (int, int) { return d.width, d.height }

// Samples returns the screen sample count.
func (d *Device) Samples() int { return d.samples }

func (d *Device) checkTarget(t slicer.Target) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	if !t.Valid() {
		return fmt.Errorf("gpu: invalid target %d", t)
	}
	return nil
}

// UploadMesh copies a submesh into vertex and index buffers.
func (d *Device) UploadMesh(m *slicer.Submesh) (slicer.MeshID, error) {
	if d.closed {
		return 0, slicer.ErrDeviceClosed
	}
	var mb meshBuffers
	var err error
	if mb.positions, err = d.upload("slicer_positions", float32Bytes(m.Positions), gputypes.BufferUsageVertex); err != nil {
		return 0, err
	}
	if mb.normals, err = d.upload("slicer_normals", float32Bytes(m.Normals), gputypes.BufferUsageVertex); err != nil {
		d.device.DestroyBuffer(mb.positions)
		return 0, err
	}
	if mb.indices, err = d.upload("slicer_indices", uint16Bytes(m.Indices[:m.IndexCount]), gputypes.BufferUsageIndex); err != nil {
		d.device.DestroyBuffer(mb.positions)
		d.device.DestroyBuffer(mb.normals)
		return 0, err
	}
	mb.indexCount = uint32(m.IndexCount) //nolint:gosec // bounded by the uint16 index space
	d.meshes = append(d.meshes, mb)
	slogger().Debug("gpu: mesh uploaded", "id", len(d.meshes)-1, "vertices", m.VertexCount(), "indices", m.IndexCount)
	return slicer.MeshID(len(d.meshes) - 1), nil
}

// upload creates a buffer holding data. Sizes are padded to four bytes as
// queue writes require.
func (d *Device) upload(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	if pad := len(data) % 4; pad != 0 {
		data = append(data, make([]byte, 4-pad)...)
	}
	if len(data) == 0 {
		data = make([]byte, 4)
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// frame collects the transient resources of one submission.
type frame struct {
	d       *Device
	buffers []hal.Buffer
	groups  []hal.BindGroup
}

func (f *frame) uniform(label string, data []byte) (hal.Buffer, error) {
	buf, err := f.d.upload(label, data, gputypes.BufferUsageUniform)
	if err != nil {
		return nil, err
	}
	f.buffers = append(f.buffers, buf)
	return buf, nil
}

func (f *frame) bindGroup(label string, layout hal.BindGroupLayout, entries ...gputypes.BindGroupEntry) (hal.BindGroup, error) {
	bg, err := f.d.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	f.groups = append(f.groups, bg)
	return bg, nil
}

func (f *frame) release() {
	for _, bg := range f.groups {
		f.d.device.DestroyBindGroup(bg)
	}
	for _, b := range f.buffers {
		f.d.device.DestroyBuffer(b)
	}
}

func bufferEntry(binding uint32, buf hal.Buffer, size uint64) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{Binding: binding, Resource: gputypes.BufferBinding{
		Buffer: buf.NativeHandle(), Offset: 0, Size: size,
	}}
}

func viewEntry(binding uint32, view hal.TextureView) gputypes.BindGroupEntry {
	return gputypes.BindGroupEntry{Binding: binding, Resource: gputypes.TextureViewBinding{
		TextureView: view.NativeHandle(),
	}}
}

// submit records one command buffer, submits it and waits for completion.
func (d *Device) submit(label string, record func(hal.CommandEncoder) error) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	if err := record(encoder); err != nil {
		encoder.DiscardEncoding()
		return err
	}
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, waitTimeout)
	if err != nil || !ok {
		return fmt.Errorf("wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// colorPass returns a single attachment pass over t.
func (d *Device) colorPass(label string, t slicer.Target, load gputypes.LoadOp, value uint8) *hal.RenderPassDescriptor {
	v := float64(value) / 255
	return &hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:       d.textures.color[t].view,
			LoadOp:     load,
			StoreOp:    gputypes.StoreOpStore,
			ClearValue: gputypes.Color{R: v, G: v, B: v, A: 1},
		}},
	}
}

// screenPass returns a pass over the screen and its stencil buffer.
func (d *Device) screenPass(label string, load gputypes.LoadOp, stencil uint8) *hal.RenderPassDescriptor {
	desc := d.colorPass(label, slicer.TargetScreen, load, 0)
	desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
		View:              d.textures.stencil.view,
		DepthLoadOp:       gputypes.LoadOpClear,
		DepthStoreOp:      gputypes.StoreOpDiscard,
		DepthClearValue:   1.0,
		StencilLoadOp:     load,
		StencilStoreOp:    gputypes.StoreOpStore,
		StencilClearValue: uint32(stencil),
	}
	return desc
}

// Clear fills dst with value. Clearing the screen also zeroes its stencil.
func (d *Device) Clear(dst slicer.Target, value uint8) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	desc := d.colorPass("slicer_clear", dst, gputypes.LoadOpClear, value)
	if dst == slicer.TargetScreen {
		desc = d.screenPass("slicer_clear", gputypes.LoadOpClear, 0)
		v := float64(value) / 255
		desc.ColorAttachments[0].ClearValue = gputypes.Color{R: v, G: v, B: v, A: 1}
	}
	return d.submit("slicer_clear", func(enc hal.CommandEncoder) error {
		enc.BeginRenderPass(desc).End()
		return nil
	})
}

// UploadMask replaces the mask texture.
func (d *Device) UploadMask(pix []uint8) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	if len(pix) != d.width*d.height {
		return fmt.Errorf("%w: mask has %d bytes, want %d", slicer.ErrSizeMismatch, len(pix), d.width*d.height)
	}
	rgba := make([]byte, 4*len(pix))
	for i, v := range pix {
		rgba[4*i], rgba[4*i+1], rgba[4*i+2], rgba[4*i+3] = v, v, v, 255
	}
	w, h := uint32(d.width), uint32(d.height) //nolint:gosec // validated at creation
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: d.textures.mask.tex, MipLevel: 0},
		rgba,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	return nil
}

// DrawParity clears the screen and counts surface crossings per sample.
func (d *Device) DrawParity(p *slicer.ParityPass) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	for _, id := range p.Meshes {
		if id < 0 || int(id) >= len(d.meshes) {
			return fmt.Errorf("%w: %d", slicer.ErrUnknownMesh, id)
		}
	}

	f := &frame{d: d}
	defer f.release()
	ub, err := f.uniform("slicer_parity_uniform", parityUniform(p))
	if err != nil {
		return err
	}
	bg, err := f.bindGroup("slicer_parity_bind", d.pipes.parityLayout, bufferEntry(0, ub, parityUniformSize))
	if err != nil {
		return err
	}

	return d.submit("slicer_parity", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(d.screenPass("slicer_parity_pass", gputypes.LoadOpClear, slicer.StencilReference))
		rp.SetPipeline(d.pipes.parity)
		rp.SetBindGroup(0, bg, nil)
		for _, id := range p.Meshes {
			m := d.meshes[id]
			rp.SetVertexBuffer(0, m.positions, 0)
			rp.SetVertexBuffer(1, m.normals, 0)
			rp.SetIndexBuffer(m.indices, gputypes.IndexFormatUint16, 0)
			rp.DrawIndexed(m.indexCount, 1, 0, 0, 0)
		}
		rp.End()
		return nil
	})
}

// DrawMask covers the quad and writes the mask color where the stencil test
// passes.
func (d *Device) DrawMask(p *slicer.MaskPass) error {
	if d.closed {
		return slicer.ErrDeviceClosed
	}
	if p.Compare != slicer.CompareLess && p.Compare != slicer.CompareGreater {
		return fmt.Errorf("gpu: unknown stencil comparison %d", p.Compare)
	}
	q := p.Quad
	d.queue.WriteBuffer(d.quad, 0, float32Bytes(vecs(q[0], q[1], q[2], q[0], q[2], q[3])))

	f := &frame{d: d}
	defer f.release()
	ub, err := f.uniform("slicer_mask_uniform", maskUniform(p))
	if err != nil {
		return err
	}
	bg, err := f.bindGroup("slicer_mask_bind", d.pipes.maskLayout,
		bufferEntry(0, ub, maskUniformSize), viewEntry(1, d.textures.mask.view))
	if err != nil {
		return err
	}

	return d.submit("slicer_mask", func(enc hal.CommandEncoder) error {
		rp := enc.BeginRenderPass(d.screenPass("slicer_mask_pass", gputypes.LoadOpLoad, 0))
		rp.SetPipeline(d.pipes.mask[p.Compare])
		rp.SetBindGroup(0, bg, nil)
		rp.SetStencilReference(uint32(p.Reference))
		rp.SetVertexBuffer(0, d.quad, 0)
		rp.Draw(6, 1, 0, 0)
		rp.End()
		return nil
	})
}

// recordResolve records a pass averaging the screen into the single sampled
// texture behind view.
func (d *Device) recordResolve(enc hal.CommandEncoder, f *frame, view hal.TextureView) error {
	pipeline, layout := d.pipes.blit, d.pipes.blitLayout
	if d.samples > 1 {
		pipeline, layout = d.pipes.resolve, d.pipes.resolveLayout
	}
	bg, err := f.bindGroup("slicer_resolve_bind", layout, viewEntry(0, d.textures.color[slicer.TargetScreen].view))
	if err != nil {
		return err
	}
	recordFullscreen(enc, "slicer_resolve_pass", view, pipeline, bg)
	return nil
}

func recordFullscreen(enc hal.CommandEncoder, label string, view hal.TextureView, pipeline hal.RenderPipeline, bg hal.BindGroup) {
	rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []hal.RenderPassColorAttachment{{
			View:    view,
			LoadOp:  gputypes.LoadOpClear,
			StoreOp: gputypes.StoreOpStore,
		}},
	})
	rp.SetPipeline(pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()
}

// Resolve averages the screen samples into dst.
func (d *Device) Resolve(dst slicer.Target) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	if dst == slicer.TargetScreen {
		return errors.New("gpu: cannot resolve the screen into itself")
	}
	f := &frame{d: d}
	defer f.release()
	return d.submit("slicer_resolve", func(enc hal.CommandEncoder) error {
		return d.recordResolve(enc, f, d.textures.color[dst].view)
	})
}

// Filter runs a 2D kernel over TargetImage into a scratch texture and then
// copies the result into dst.
func (d *Device) Filter(dst slicer.Target, p *slicer.FilterPass) error {
	if err := d.checkTarget(dst); err != nil {
		return err
	}
	var kernel uint32
	aux := slicer.TargetImage
	switch p.Kernel {
	case slicer.KernelOmniDilate:
		kernel = shaderKernelOmniDilate
	case slicer.KernelDifference, slicer.KernelCombineMax:
		kernel = shaderKernelDifference
		if p.Kernel == slicer.KernelCombineMax {
			kernel = shaderKernelCombineMax
		}
		if !p.Aux.Valid() {
			return fmt.Errorf("gpu: invalid target %d", p.Aux)
		}
		if p.Aux == slicer.TargetScreen {
			return errors.New("gpu: filters cannot sample the screen, resolve it first")
		}
		aux = p.Aux
	default:
		return fmt.Errorf("gpu: unknown kernel %d", p.Kernel)
	}

	f := &frame{d: d}
	defer f.release()
	ub, err := f.uniform("slicer_filter_uniform", filterUniform(kernel, p))
	if err != nil {
		return err
	}
	filterBG, err := f.bindGroup("slicer_filter_bind", d.pipes.filterLayout,
		bufferEntry(0, ub, filterUniformSize),
		viewEntry(1, d.textures.color[slicer.TargetImage].view),
		viewEntry(2, d.textures.color[aux].view))
	if err != nil {
		return err
	}
	blitBG, err := f.bindGroup("slicer_blit_bind", d.pipes.blitLayout, viewEntry(0, d.textures.scratch.view))
	if err != nil {
		return err
	}

	blit := d.pipes.blit
	if dst == slicer.TargetScreen {
		blit = d.pipes.blitScreen
	}
	return d.submit("slicer_filter", func(enc hal.CommandEncoder) error {
		recordFullscreen(enc, "slicer_filter_pass", d.textures.scratch.view, d.pipes.filter, filterBG)
		recordFullscreen(enc, "slicer_blit_pass", d.textures.color[dst].view, blit, blitBG)
		return nil
	})
}

// ReadPixels copies src back to the CPU, resolving the screen first.
func (d *Device) ReadPixels(src slicer.Target) ([]uint8, error) {
	if err := d.checkTarget(src); err != nil {
		return nil, err
	}

	w, h := uint32(d.width), uint32(d.height) //nolint:gosec // validated at creation
	bytesPerRow := w * 4
	alignedBytesPerRow := (bytesPerRow + copyPitchAlignment - 1) &^ (copyPitchAlignment - 1)
	stagingSize := uint64(alignedBytesPerRow) * uint64(h)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "slicer_staging",
		Size:  stagingSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer d.device.DestroyBuffer(staging)

	f := &frame{d: d}
	defer f.release()
	tex := d.textures.color[src].tex
	if src == slicer.TargetScreen {
		tex = d.textures.scratch.tex
	}

	err = d.submit("slicer_readback", func(enc hal.CommandEncoder) error {
		if src == slicer.TargetScreen {
			if err := d.recordResolve(enc, f, d.textures.scratch.view); err != nil {
				return err
			}
		}
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageRenderAttachment,
				NewUsage: gputypes.TextureUsageCopySrc,
			},
		}})
		enc.CopyTextureToBuffer(tex, staging, []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{Offset: 0, BytesPerRow: alignedBytesPerRow, RowsPerImage: h},
			TextureBase:  hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}})
		enc.TransitionTextures([]hal.TextureBarrier{{
			Texture: tex,
			Usage: hal.TextureUsageTransition{
				OldUsage: gputypes.TextureUsageCopySrc,
				NewUsage: gputypes.TextureUsageRenderAttachment,
			},
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	readback := make([]byte, stagingSize)
	if err := d.queue.ReadBuffer(staging, 0, readback); err != nil {
		return nil, fmt.Errorf("readback: %w", err)
	}
	out := make([]uint8, d.width*d.height)
	for y := 0; y < d.height; y++ {
		row := readback[y*int(alignedBytesPerRow):]
		for x := 0; x < d.width; x++ {
			out[y*d.width+x] = row[4*x]
		}
	}
	return out, nil
}

// Close releases every GPU resource, and the device itself when it was
// opened by New.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.release()
	return nil
}

func (d *Device) release() {
	for _, m := range d.meshes {
		d.device.DestroyBuffer(m.indices)
		d.device.DestroyBuffer(m.normals)
		d.device.DestroyBuffer(m.positions)
	}
	d.meshes = nil
	if d.quad != nil {
		d.device.DestroyBuffer(d.quad)
		d.quad = nil
	}
	d.pipes.destroy()
	d.textures.destroy()
	if d.owned {
		d.device.Destroy()
		d.instance.Destroy()
		d.owned = false
	}
}

func parityUniform(p *slicer.ParityPass) []byte {
	buf := make([]byte, parityUniformSize)
	putMat4(buf, p.Transform)
	putFloats(buf[64:], p.Mirror.X(), p.Mirror.Y(), p.Inflate, 0)
	return buf
}

func maskUniform(p *slicer.MaskPass) []byte {
	buf := make([]byte, maskUniformSize)
	putMat4(buf, p.Transform)
	if p.Mask == slicer.MaskTexture {
		binary.LittleEndian.PutUint32(buf[64:], 1)
	}
	return buf
}

func filterUniform(kernel uint32, p *slicer.FilterPass) []byte {
	buf := make([]byte, filterUniformSize)
	binary.LittleEndian.PutUint32(buf[0:], kernel)
	binary.LittleEndian.PutUint32(buf[4:], uint32(int32(max(p.KernelSize, 1)/2))) //nolint:gosec // small positive radius
	putFloats(buf[8:], p.Scale)
	return buf
}

func putMat4(dst []byte, m mgl32.Mat4) {
	putFloats(dst, m[:]...)
}

func putFloats(dst []byte, v ...float32) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(f))
	}
}

func vecs(v ...mgl32.Vec3) []float32 {
	out := make([]float32, 0, 3*len(v))
	for _, p := range v {
		out = append(out, p[:]...)
	}
	return out
}

func float32Bytes(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	putFloats(buf, v...)
	return buf
}

func uint16Bytes(v []uint16) []byte {
	buf := make([]byte, 2*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint16(buf[2*i:], x)
	}
	return buf
}
