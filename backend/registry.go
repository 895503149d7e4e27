package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/slicer"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]slicer.DeviceFactory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{WGPU, Software}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory slicer.DeviceFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Get returns the factory of a backend, nil if it is not registered.
func Get(name string) slicer.DeviceFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backends[name]
}

// Open creates a device of the named backend.
func Open(name string, width, height, samples int) (slicer.Device, error) {
	factory := Get(name)
	if factory == nil {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	dev, err := factory(width, height, samples)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", name, err)
	}
	slicer.Logger().Info("backend selected", "name", name, "width", width, "height", height, "samples", samples)
	return dev, nil
}

// OpenDefault creates a device of the best available backend. A backend
// that fails to create a device, e.g. a GPU backend without an adapter, is
// skipped in favor of the next one.
func OpenDefault(width, height, samples int) (slicer.Device, error) {
	registryMu.RLock()
	names := make([]string, 0, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			names = append(names, name)
		}
	}
	for name := range backends {
		if !contains(backendPriority, name) {
			names = append(names, name)
		}
	}
	registryMu.RUnlock()

	var errs []error
	for _, name := range names {
		dev, err := Open(name, width, height, samples)
		if err == nil {
			return dev, nil
		}
		slicer.Logger().Warn("backend unavailable", "name", name, "err", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(append([]error{ErrBackendNotAvailable}, errs...)...)
}

// Factory returns a factory that opens the named backend, or the default
// one when name is empty. It is meant for slicer.WithDeviceFactory.
func Factory(name string) slicer.DeviceFactory {
	return func(width, height, samples int) (slicer.Device, error) {
		if name == "" {
			return OpenDefault(width, height, samples)
		}
		return Open(name, width, height, samples)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
