//go:build !nogpu

// Package gpu implements slicer.Device on top of the gogpu/wgpu hardware
// abstraction layer.
//
// Every layer is rendered with a handful of short render passes, each
// submitted and waited on before the call returns:
//
//	Parity   stencil cleared to 0x80, back faces increment, front faces decrement
//	Mask     quad covering the plate, color written where ref OP stencil holds
//	Resolve  screen samples averaged into a single sampled target
//	Filter   full screen kernel into a scratch target, then copied to dst
//
// All color targets are RGBA8Unorm and only their red channel carries data.
// Vertex shaders negate clip-space y so framebuffer row 0 is the bottom row
// of the layer, which keeps ReadPixels and UploadMask in the same layout as
// the software device without any row flipping.
package gpu
