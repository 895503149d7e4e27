package backend

import "errors"

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot create a device.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Backend name constants.
const (
	// Software is the name of the CPU backend.
	Software = "software"
	// WGPU is the name of the GPU backend built on gogpu/wgpu.
	WGPU = "wgpu"
)
