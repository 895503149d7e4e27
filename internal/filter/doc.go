// Package filter implements the 8-bit single channel image kernels used
// between slicing passes:
//   - 3x3 dilation for growing small-spot masks
//   - omnidirectional (disk) dilation with scaling
//   - difference and max combination of two images
//
// Images are row-major []uint8 with one byte per pixel. Dilations are
// separable per row span, so their cost grows linearly with the radius.
package filter
