// Package backend selects the raster device a slicing session renders
// with.
//
// # Backend Registration
//
// Backends are registered via init() functions and selected at runtime.
// The software backend is registered when this package is imported; the
// GPU backend registers itself when its package is imported:
//
//	import _ "github.com/gogpu/slicer/gpu"
//
// # Backend Selection
//
// Use Open to create a device of a named backend, or OpenDefault for the
// best available one:
//
//	dev, err := backend.OpenDefault(1440, 2560, 4)
//	if err != nil {
//		log.Fatal(err)
//	}
//	s, err := slicer.NewSession(settings, store, slicer.WithDevice(dev))
//
// # Available Backends
//
//   - "software": CPU rasterizer (always available)
//   - "wgpu": GPU rasterizer via gogpu/wgpu (requires the gpu package and an adapter)
package backend
