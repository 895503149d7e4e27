package slicer

// SessionOption configures a Session during creation.
//
// Example:
//
//	dev, _ := backend.Open(backend.Software, 1440, 2560, 1)
//	s, err := slicer.NewSession(settings, store, slicer.WithDevice(dev))
type SessionOption func(*sessionOptions)

type sessionOptions struct {
	device  Device
	factory DeviceFactory
	writer  ImageWriter
}

// WithDevice sets the raster device the session renders with. The session
// takes ownership and closes the device on Close.
func WithDevice(d Device) SessionOption {
	return func(o *sessionOptions) {
		o.device = d
	}
}

// WithDeviceFactory sets a constructor that is called with the render size
// and sample count from the settings. It is ignored when WithDevice is also
// given.
func WithDeviceFactory(f DeviceFactory) SessionOption {
	return func(o *sessionOptions) {
		o.factory = f
	}
}

// WithImageWriter replaces the default asynchronous image writer.
// The session closes the writer on Close.
func WithImageWriter(w ImageWriter) SessionOption {
	return func(o *sessionOptions) {
		o.writer = w
	}
}
