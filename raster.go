package slicer

import (
	"fmt"
	"image"
)

// Raster is one 8 bit layer image. Row 0 is the bottom row of the render
// target, as returned by Device.ReadPixels.
type Raster struct {
	width  int
	height int
	data   []uint8
}

// NewRaster creates a black raster.
func NewRaster(width, height int) *Raster {
	return &Raster{
		width:  width,
		height: height,
		data:   make([]uint8, width*height),
	}
}

// WrapRaster adopts pix as the pixels of a width x height raster.
func WrapRaster(width, height int, pix []uint8) (*Raster, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	return &Raster{width: width, height: height, data: pix}, nil
}

// Bounds returns the raster dimensions as an image.Rectangle.
func (r *Raster) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Width returns the raster width.
func (r *Raster) Width() int { return r.width }

// Height returns the raster height.
func (r *Raster) Height() int { return r.height }

// At returns the value at (x, y), 0 outside the raster.
func (r *Raster) At(x, y int) uint8 {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return 0
	}
	return r.data[y*r.width+x]
}

// Set sets the value at (x, y). Coordinates outside the raster are ignored.
func (r *Raster) Set(x, y int, value uint8) {
	if x < 0 || x >= r.width || y < 0 || y >= r.height {
		return
	}
	r.data[y*r.width+x] = value
}

// Fill sets every pixel to value.
func (r *Raster) Fill(value uint8) {
	for i := range r.data {
		r.data[i] = value
	}
}

// Count returns the number of pixels with a value >= threshold.
func (r *Raster) Count(threshold uint8) int {
	n := 0
	for _, v := range r.data {
		if v >= threshold {
			n++
		}
	}
	return n
}

// Coverage returns the sum of all pixel values divided by 255, i.e. the
// number of fully covered pixels the raster is equivalent to.
func (r *Raster) Coverage() float64 {
	var sum uint64
	for _, v := range r.data {
		sum += uint64(v)
	}
	return float64(sum) / 255
}

// Clone creates a copy of the raster.
func (r *Raster) Clone() *Raster {
	clone := NewRaster(r.width, r.height)
	copy(clone.data, r.data)
	return clone
}

// Data returns the underlying pixel slice.
func (r *Raster) Data() []uint8 {
	return r.data
}
