// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bradbury

import "errors"

// Construction and dispatch errors. Everything except a failed publish is
// fatal for the renderer.
var (
	// ErrKernelNotFound is returned when the kernel program is missing.
	ErrKernelNotFound = errors.New("bradbury: kernel program not found")

	// ErrEntryPointNotFound is returned when the program has no render entry point.
	ErrEntryPointNotFound = errors.New("bradbury: kernel entry point not found")

	// ErrPipeline is returned when the compute pipeline or queue cannot be created.
	ErrPipeline = errors.New("bradbury: pipeline creation failed")

	// ErrAllocation is returned when a texture or buffer cannot be allocated.
	ErrAllocation = errors.New("bradbury: resource allocation failed")

	// ErrEnvironment is returned when the environment map cannot be loaded.
	ErrEnvironment = errors.New("bradbury: environment texture")

	// ErrSubmit is returned by Render when a frame cannot be encoded,
	// submitted or executed.
	ErrSubmit = errors.New("bradbury: frame submission failed")

	// ErrInvalidSize is returned by New for a non-positive image size.
	ErrInvalidSize = errors.New("bradbury: invalid image size")

	// ErrClosed is returned when a closed renderer is used.
	ErrClosed = errors.New("bradbury: renderer closed")
)
