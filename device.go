package slicer

import "github.com/go-gl/mathgl/mgl32"

// Target names a render target of a Device. All targets have the render
// size. Only the screen is multisampled and carries a stencil buffer.
type Target int

// Render targets.
const (
	// TargetScreen receives the parity and mask passes.
	TargetScreen Target = iota
	// TargetImage holds the resolved screen and is the source of filters.
	TargetImage
	// TargetPrevious holds the grown previous layer for overhang analysis.
	TargetPrevious
	// TargetTemporary is scratch space for filter results.
	TargetTemporary

	targetCount
)

var targetNames = [...]string{"screen", "image", "previous", "temporary"}

func (t Target) String() string {
	if t < 0 || t >= targetCount {
		return "invalid"
	}
	return targetNames[t]
}

// Valid reports whether t names a known target.
func (t Target) Valid() bool { return t >= 0 && t < targetCount }

// CompareFunc is a stencil comparison evaluated as reference OP stencil.
type CompareFunc int

// Stencil comparisons used by the mask pass.
const (
	CompareLess CompareFunc = iota
	CompareGreater
)

// Test evaluates ref OP stencil.
func (c CompareFunc) Test(ref, stencil uint8) bool {
	if c == CompareGreater {
		return ref > stencil
	}
	return ref < stencil
}

// StencilReference is the value the stencil buffer is cleared to before the
// parity pass. Pixels inside the solid end up on one side of it.
const StencilReference uint8 = 0x80

// Kernel selects the fragment program of a filter pass.
type Kernel int

// Filter kernels.
const (
	// KernelOmniDilate takes the maximum over a disk and scales it.
	KernelOmniDilate Kernel = iota
	// KernelDifference computes max(src - aux, 0).
	KernelDifference
	// KernelCombineMax computes max(src, aux).
	KernelCombineMax
)

// MaskSource selects the color written by the mask pass.
type MaskSource int

// Mask sources.
const (
	// MaskWhite writes 255.
	MaskWhite MaskSource = iota
	// MaskTexture writes the uploaded mask at the same pixel.
	MaskTexture
)

// MeshID identifies a submesh uploaded to a device.
type MeshID int

// ParityPass clears the screen to black and its stencil to
// StencilReference, then counts surface crossings of every listed mesh into
// the stencil: back faces increment, front faces decrement, both
// saturating. Color is not written.
type ParityPass struct {
	// Transform maps model space to clip space.
	Transform mgl32.Mat4
	// Mirror multiplies clip-space x and y.
	Mirror mgl32.Vec2
	// Inflate moves every vertex along its normal, in mm.
	Inflate float32
	Meshes  []MeshID
}

// MaskPass covers Quad and writes the mask color where
// Compare.Test(Reference, stencil) holds. Depth and stencil are unchanged.
type MaskPass struct {
	Transform mgl32.Mat4
	// Quad holds the corners of a planar quad in model space, in order.
	Quad      [4]mgl32.Vec3
	Compare   CompareFunc
	Reference uint8
	Mask      MaskSource
}

// FilterPass runs a full target 2D kernel reading TargetImage and, for the
// binary kernels, Aux.
type FilterPass struct {
	Kernel Kernel
	Aux    Target
	// Scale multiplies the OmniDilate result.
	Scale float32
	// KernelSize is the OmniDilate disk diameter in pixels.
	KernelSize int
}

// Device is the rasterization capability a Session renders with. A Device
// is used from one goroutine at a time.
type Device interface {
	// Size returns the render size in pixels.
	Size() (width, height int)

	// UploadMesh makes a submesh available to parity passes.
	UploadMesh(m *Submesh) (MeshID, error)

	// DrawParity runs a parity pass on the screen.
	DrawParity(p *ParityPass) error

	// DrawMask runs a mask pass on the screen.
	DrawMask(p *MaskPass) error

	// Filter clears dst to black and writes the filter result into it.
	// dst may be TargetImage.
	Filter(dst Target, p *FilterPass) error

	// Resolve averages the screen samples into dst.
	Resolve(dst Target) error

	// Clear fills dst with value. Clearing the screen also resets its
	// stencil.
	Clear(dst Target, value uint8) error

	// UploadMask replaces the mask texture. pix has one byte per pixel with
	// the same layout as ReadPixels.
	UploadMask(pix []uint8) error

	// ReadPixels returns the contents of src, resolved if multisampled,
	// one byte per pixel with row 0 at the bottom.
	ReadPixels(src Target) ([]uint8, error)

	// Close releases the device resources.
	Close() error
}

// DeviceFactory creates a device of the given size and sample count.
type DeviceFactory func(width, height, samples int) (Device, error)

// ImageWriter persists layer images. Save takes ownership of pix.
type ImageWriter interface {
	Save(path string, width, height int, pix []uint8) error
	Close() error
}
