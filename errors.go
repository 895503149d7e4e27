package slicer

import (
	"errors"
	"fmt"
)

// Errors returned by sessions and devices.
var (
	// ErrDeviceClosed is returned when a device is used after Close.
	ErrDeviceClosed = errors.New("slicer: device closed")

	// ErrUnknownMesh is returned when a pass references a mesh the device
	// never uploaded.
	ErrUnknownMesh = errors.New("slicer: unknown mesh")

	// ErrSizeMismatch is returned when a raster or mask does not match the
	// render size.
	ErrSizeMismatch = errors.New("slicer: raster size mismatch")

	// ErrNoGeometry is returned when a model contains no triangles.
	ErrNoGeometry = errors.New("slicer: model has no geometry")

	// ErrNoDevice is returned by NewSession when neither WithDevice nor
	// WithDeviceFactory was given.
	ErrNoDevice = errors.New("slicer: no raster device configured")

	// ErrSessionClosed is returned when a session is used after Close.
	ErrSessionClosed = errors.New("slicer: session closed")
)

// ConfigurationError reports an invalid setting or a model that cannot be
// sliced with the configured printer.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "slicer: configuration: " + e.Reason
	}
	return fmt.Sprintf("slicer: configuration: %s: %s", e.Field, e.Reason)
}

func configError(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
