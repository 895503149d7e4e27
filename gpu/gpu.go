//go:build !nogpu

// Package gpu registers the wgpu rasterization backend.
//
// Import this package to make the "wgpu" backend available to
// backend.Open and backend.OpenDefault. Opening it fails, and OpenDefault
// falls back to the software rasterizer, when no Vulkan adapter is present.
//
// Usage:
//
//	import _ "github.com/gogpu/slicer/gpu" // enable GPU rasterization
package gpu

import (
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/slicer"
	"github.com/gogpu/slicer/backend"
	gpuimpl "github.com/gogpu/slicer/internal/gpu"
)

func init() {
	backend.Register(backend.WGPU, NewDevice)
}

// NewDevice opens a GPU adapter and creates a device of the given size.
func NewDevice(width, height, samples int) (slicer.Device, error) {
	return gpuimpl.New(width, height, samples)
}

// NewDeviceFromProvider creates a device on a GPU device shared by an
// external provider such as a gogpu application. The provider must also
// expose its HAL objects through HalDevice() and HalQueue(). The provider
// keeps ownership of the underlying device.
func NewDeviceFromProvider(provider gpucontext.DeviceProvider, width, height, samples int) (slicer.Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("gpu: provider does not expose HAL access")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("gpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("gpu: provider HalQueue is not hal.Queue")
	}
	return gpuimpl.NewWithHAL(device, queue, width, height, samples)
}

// ValidateShaders compiles the embedded shaders without a GPU.
func ValidateShaders() error {
	return gpuimpl.ValidateShaders()
}
