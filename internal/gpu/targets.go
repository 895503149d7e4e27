//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/slicer"
)

const (
	colorFormat   = gputypes.TextureFormatRGBA8Unorm
	stencilFormat = gputypes.TextureFormatDepth24PlusStencil8
)

// texture is a texture and its default view.
type texture struct {
	tex  hal.Texture
	view hal.TextureView
}

// textureSet holds every texture of a device. The screen and the stencil
// buffer share the sample count; everything else is single sampled.
type textureSet struct {
	device hal.Device

	// color is indexed by slicer.Target.
	color   [4]texture
	stencil texture
	// scratch receives filter results before they are copied to the
	// destination, so that a filter may read and write the same target.
	scratch texture
	mask    texture
}

func (ts *textureSet) create(width, height, samples uint32) error {
	size := hal.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1}
	sampled := gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopySrc

	for t := range ts.color {
		n, usage := uint32(1), sampled
		if slicer.Target(t) == slicer.TargetScreen {
			n, usage = samples, gputypes.TextureUsageRenderAttachment|gputypes.TextureUsageTextureBinding
		}
		if err := ts.make(&ts.color[t], slicer.Target(t).String(), size, n, colorFormat, usage); err != nil {
			return err
		}
	}
	if err := ts.make(&ts.stencil, "stencil", size, samples, stencilFormat, gputypes.TextureUsageRenderAttachment); err != nil {
		return err
	}
	if err := ts.make(&ts.scratch, "scratch", size, 1, colorFormat, sampled); err != nil {
		return err
	}
	return ts.make(&ts.mask, "mask", size, 1, colorFormat,
		gputypes.TextureUsageTextureBinding|gputypes.TextureUsageCopyDst)
}

func (ts *textureSet) make(dst *texture, label string, size hal.Extent3D, samples uint32,
	format gputypes.TextureFormat, usage gputypes.TextureUsage,
) error {
	tex, err := ts.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "slicer_" + label,
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return fmt.Errorf("create %s texture: %w", label, err)
	}
	view, err := ts.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "slicer_" + label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		ts.device.DestroyTexture(tex)
		return fmt.Errorf("create %s texture view: %w", label, err)
	}
	*dst = texture{tex: tex, view: view}
	return nil
}

// destroy releases every texture. Safe on a partially created set.
func (ts *textureSet) destroy() {
	all := append(ts.color[:], ts.stencil, ts.scratch, ts.mask)
	for _, t := range all {
		if t.view != nil {
			ts.device.DestroyTextureView(t.view)
		}
		if t.tex != nil {
			ts.device.DestroyTexture(t.tex)
		}
	}
	ts.color = [4]texture{}
	ts.stencil, ts.scratch, ts.mask = texture{}, texture{}, texture{}
}
