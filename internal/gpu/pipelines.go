//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/slicer"
)

// vec3Stride is the byte stride of a float32x3 vertex attribute.
const vec3Stride = 12

// pipelines holds the shader modules, layouts and render pipelines of a
// device. Every field is nil until create succeeds for it, so destroy can
// run on a partially built set.
type pipelines struct {
	device hal.Device

	modules []hal.ShaderModule
	layouts []hal.PipelineLayout

	parityLayout  hal.BindGroupLayout
	maskLayout    hal.BindGroupLayout
	filterLayout  hal.BindGroupLayout
	blitLayout    hal.BindGroupLayout
	resolveLayout hal.BindGroupLayout

	parity hal.RenderPipeline
	// mask is indexed by slicer.CompareFunc.
	mask   [2]hal.RenderPipeline
	filter hal.RenderPipeline
	// blit copies a single sampled target into a single sampled target;
	// blitScreen copies one into every sample of the screen.
	blit       hal.RenderPipeline
	blitScreen hal.RenderPipeline
	// resolve is nil when the screen is single sampled.
	resolve hal.RenderPipeline
}

func (p *pipelines) module(label, source string) (hal.ShaderModule, error) {
	m, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: hal.ShaderSource{WGSL: source},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", label, err)
	}
	p.modules = append(p.modules, m)
	return m, nil
}

func (p *pipelines) pipelineLayout(label string, bgl hal.BindGroupLayout) (hal.PipelineLayout, error) {
	l, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	p.layouts = append(p.layouts, l)
	return l, nil
}

func uniformEntry(binding uint32, vis gputypes.ShaderStage) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: vis,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func textureEntry(binding uint32, multisampled bool) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageFragment,
		Texture: &gputypes.TextureBindingLayout{
			SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
			ViewDimension: gputypes.TextureViewDimension2D,
			Multisampled:  multisampled,
		},
	}
}

func (p *pipelines) bindGroupLayout(label string, entries ...gputypes.BindGroupLayoutEntry) (hal.BindGroupLayout, error) {
	l, err := p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return l, nil
}

// create builds every pipeline for a screen with the given sample count.
func (p *pipelines) create(samples uint32) error { //nolint:funlen // pipeline descriptors are verbose
	var err error
	vs := gputypes.ShaderStageVertex | gputypes.ShaderStageFragment

	if p.parityLayout, err = p.bindGroupLayout("parity_layout", uniformEntry(0, vs)); err != nil {
		return err
	}
	if p.maskLayout, err = p.bindGroupLayout("mask_layout", uniformEntry(0, vs), textureEntry(1, false)); err != nil {
		return err
	}
	if p.filterLayout, err = p.bindGroupLayout("filter_layout",
		uniformEntry(0, gputypes.ShaderStageFragment), textureEntry(1, false), textureEntry(2, false)); err != nil {
		return err
	}
	if p.blitLayout, err = p.bindGroupLayout("blit_layout", textureEntry(0, false)); err != nil {
		return err
	}

	screenMS := gputypes.MultisampleState{Count: samples, Mask: 0xFFFFFFFF}
	singleMS := gputypes.MultisampleState{Count: 1, Mask: 0xFFFFFFFF}
	primitive := gputypes.PrimitiveState{
		Topology: gputypes.PrimitiveTopologyTriangleList,
		CullMode: gputypes.CullModeNone,
	}

	// Parity. The vertex shader flips y, so the rasterizer sees every
	// triangle with the opposite winding: what it calls a front face is a
	// back face of the model.
	parityModule, err := p.module("parity_shader", parityShaderSource)
	if err != nil {
		return err
	}
	parityPipeLayout, err := p.pipelineLayout("parity_pipe_layout", p.parityLayout)
	if err != nil {
		return err
	}
	p.parity, err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "parity_pipeline",
		Layout: parityPipeLayout,
		Vertex: hal.VertexState{
			Module:     parityModule,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{
				vec3Buffer(0),
				vec3Buffer(1),
			},
		},
		Fragment: &hal.FragmentState{
			Module:     parityModule,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    colorFormat,
				WriteMask: gputypes.ColorWriteMaskNone,
			}},
		},
		DepthStencil: &hal.DepthStencilState{
			Format:            stencilFormat,
			DepthWriteEnabled: false,
			DepthCompare:      gputypes.CompareFunctionAlways,
			StencilFront: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationIncrementWrap,
			},
			StencilBack: hal.StencilFaceState{
				Compare:     gputypes.CompareFunctionAlways,
				FailOp:      hal.StencilOperationKeep,
				DepthFailOp: hal.StencilOperationKeep,
				PassOp:      hal.StencilOperationDecrementWrap,
			},
			StencilReadMask:  0xFF,
			StencilWriteMask: 0xFF,
		},
		Multisample: screenMS,
		Primitive:   primitive,
	})
	if err != nil {
		return fmt.Errorf("create parity pipeline: %w", err)
	}

	// Mask, one variant per comparison.
	maskModule, err := p.module("mask_shader", maskShaderSource)
	if err != nil {
		return err
	}
	maskPipeLayout, err := p.pipelineLayout("mask_pipe_layout", p.maskLayout)
	if err != nil {
		return err
	}
	for c, cmp := range []gputypes.CompareFunction{
		slicer.CompareLess:    gputypes.CompareFunctionLess,
		slicer.CompareGreater: gputypes.CompareFunctionGreater,
	} {
		face := hal.StencilFaceState{
			Compare:     cmp,
			FailOp:      hal.StencilOperationKeep,
			DepthFailOp: hal.StencilOperationKeep,
			PassOp:      hal.StencilOperationKeep,
		}
		p.mask[c], err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
			Label:  "mask_pipeline",
			Layout: maskPipeLayout,
			Vertex: hal.VertexState{
				Module:     maskModule,
				EntryPoint: "vs_main",
				Buffers:    []gputypes.VertexBufferLayout{vec3Buffer(0)},
			},
			Fragment: &hal.FragmentState{
				Module:     maskModule,
				EntryPoint: "fs_main",
				Targets: []gputypes.ColorTargetState{{
					Format:    colorFormat,
					WriteMask: gputypes.ColorWriteMaskAll,
				}},
			},
			DepthStencil: &hal.DepthStencilState{
				Format:            stencilFormat,
				DepthWriteEnabled: false,
				DepthCompare:      gputypes.CompareFunctionAlways,
				StencilFront:      face,
				StencilBack:       face,
				StencilReadMask:   0xFF,
				StencilWriteMask:  0,
			},
			Multisample: screenMS,
			Primitive:   primitive,
		})
		if err != nil {
			return fmt.Errorf("create mask pipeline: %w", err)
		}
	}

	// Filter.
	filterModule, err := p.module("filter_shader", filterShaderSource)
	if err != nil {
		return err
	}
	filterPipeLayout, err := p.pipelineLayout("filter_pipe_layout", p.filterLayout)
	if err != nil {
		return err
	}
	if p.filter, err = p.fullscreen("filter_pipeline", filterModule, filterPipeLayout, singleMS, primitive); err != nil {
		return err
	}

	// Blit into single sampled targets and into the screen.
	blitModule, err := p.module("blit_shader", blitShaderSource)
	if err != nil {
		return err
	}
	blitPipeLayout, err := p.pipelineLayout("blit_pipe_layout", p.blitLayout)
	if err != nil {
		return err
	}
	if p.blit, err = p.fullscreen("blit_pipeline", blitModule, blitPipeLayout, singleMS, primitive); err != nil {
		return err
	}
	if samples == 1 {
		p.blitScreen = p.blit
		return nil
	}
	if p.blitScreen, err = p.fullscreen("blit_screen_pipeline", blitModule, blitPipeLayout, screenMS, primitive); err != nil {
		return err
	}

	// Resolve the multisampled screen.
	if p.resolveLayout, err = p.bindGroupLayout("resolve_layout", textureEntry(0, true)); err != nil {
		return err
	}
	resolveModule, err := p.module("resolve_shader", resolveShaderSource)
	if err != nil {
		return err
	}
	resolvePipeLayout, err := p.pipelineLayout("resolve_pipe_layout", p.resolveLayout)
	if err != nil {
		return err
	}
	p.resolve, err = p.fullscreen("resolve_pipeline", resolveModule, resolvePipeLayout, singleMS, primitive)
	return err
}

func (p *pipelines) fullscreen(label string, module hal.ShaderModule, layout hal.PipelineLayout,
	ms gputypes.MultisampleState, primitive gputypes.PrimitiveState,
) (hal.RenderPipeline, error) {
	rp, err := p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{{
				Format:    colorFormat,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
		Multisample: ms,
		Primitive:   primitive,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", label, err)
	}
	return rp, nil
}

func vec3Buffer(location uint32) gputypes.VertexBufferLayout {
	return gputypes.VertexBufferLayout{
		ArrayStride: vec3Stride,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes: []gputypes.VertexAttribute{{
			Format:         gputypes.VertexFormatFloat32x3,
			Offset:         0,
			ShaderLocation: location,
		}},
	}
}

// destroy releases all pipeline resources in reverse creation order.
func (p *pipelines) destroy() {
	if p.device == nil {
		return
	}
	all := []hal.RenderPipeline{p.resolve, p.blit, p.filter, p.mask[1], p.mask[0], p.parity}
	if p.blitScreen != p.blit {
		all = append([]hal.RenderPipeline{p.blitScreen}, all...)
	}
	for _, rp := range all {
		if rp != nil {
			p.device.DestroyRenderPipeline(rp)
		}
	}
	for i := len(p.layouts) - 1; i >= 0; i-- {
		p.device.DestroyPipelineLayout(p.layouts[i])
	}
	for _, l := range []hal.BindGroupLayout{p.resolveLayout, p.blitLayout, p.filterLayout, p.maskLayout, p.parityLayout} {
		if l != nil {
			p.device.DestroyBindGroupLayout(l)
		}
	}
	for i := len(p.modules) - 1; i >= 0; i-- {
		p.device.DestroyShaderModule(p.modules[i])
	}
	*p = pipelines{device: p.device}
}
