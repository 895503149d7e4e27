package backend

import (
	"github.com/gogpu/slicer"
	"github.com/gogpu/slicer/internal/raster"
)

// init registers the software backend on package import.
func init() {
	Register(Software, NewSoftwareDevice)
}

// NewSoftwareDevice creates a CPU raster device.
func NewSoftwareDevice(width, height, samples int) (slicer.Device, error) {
	return raster.New(width, height, samples)
}
