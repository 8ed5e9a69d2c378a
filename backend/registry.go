// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gogpu/gpucontext"
)

// Backend name constants.
const (
	// BackendWGPU is the name of the Pure Go GPU backend (gogpu/wgpu).
	BackendWGPU = "wgpu"
	// BackendSoftware is the name of the CPU backend running the reference kernel.
	BackendSoftware = "software"
)

// Factory opens a new device.
type Factory func() (Device, error)

// Priority order for backend selection (first that opens wins).
var backendPriority = []string{BackendWGPU, BackendSoftware}

var registry = gpucontext.NewRegistry[Factory](gpucontext.WithPriority(backendPriority...))

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it is replaced.
func Register(name string, factory Factory) {
	registry.Register(name, func() Factory { return factory })
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registry.Unregister(name)
}

// Available returns the sorted list of registered backend names.
func Available() []string {
	names := registry.Available()
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	return registry.Has(name)
}

// Open opens a device on the named backend.
func Open(name string) (Device, error) {
	if !registry.Has(name) {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	factory := registry.Get(name)
	dev, err := factory()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBackendNotAvailable, name, err)
	}
	return dev, nil
}

// OpenDefault opens the best available backend. Backends are tried in
// priority order (wgpu, then software); a backend that fails to open is
// skipped and the next one is tried.
func OpenDefault() (Device, error) {
	var errs []error
	tried := make(map[string]bool, len(backendPriority))
	for _, name := range backendPriority {
		tried[name] = true
		if !registry.Has(name) {
			continue
		}
		dev, err := Open(name)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, err)
	}
	for _, name := range Available() {
		if tried[name] {
			continue
		}
		dev, err := Open(name)
		if err == nil {
			return dev, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, ErrBackendNotAvailable
	}
	return nil, errors.Join(errs...)
}
