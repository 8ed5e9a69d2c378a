// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"context"
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/bradbury/internal/kernel"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not registered
	// or could not open a device.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrReleased is returned when a released resource is used.
	ErrReleased = errors.New("backend: resource released")

	// ErrInvalidCommand is returned by Queue.Submit for a malformed command.
	ErrInvalidCommand = errors.New("backend: invalid command")

	// ErrSizeMismatch is returned when uploaded or read-back data does not
	// match the size of the resource.
	ErrSizeMismatch = errors.New("backend: size mismatch")
)

// Device is a compute device able to run the path tracing kernel.
//
// A Device owns every resource it creates. Resources must be released
// before the device is closed.
type Device interface {
	// Name returns the backend identifier (e.g., "software", "wgpu").
	Name() string

	// Info describes the adapter behind the device.
	Info() gpucontext.AdapterInfo

	// NewComputePipeline builds a pipeline for the named entry point of a
	// kernel program.
	NewComputePipeline(desc *PipelineDescriptor) (Pipeline, error)

	// NewBuffer allocates a storage buffer.
	NewBuffer(desc *BufferDescriptor) (Buffer, error)

	// NewTexture allocates a 2D texture.
	NewTexture(desc *TextureDescriptor) (Texture, error)

	// NewQueue creates a command submission queue.
	NewQueue() (Queue, error)

	// Close releases the device.
	Close()
}

// PipelineDescriptor describes a compute pipeline.
type PipelineDescriptor struct {
	Label      string
	Program    *kernel.Program
	EntryPoint string
}

// Pipeline is a compiled compute pipeline.
type Pipeline interface {
	// ThreadExecutionWidth is the preferred group width for dispatches.
	ThreadExecutionWidth() uint32

	// MaxTotalThreadsPerGroup is the largest group the pipeline accepts.
	MaxTotalThreadsPerGroup() uint32

	Release()
}

// BufferDescriptor describes a storage buffer.
type BufferDescriptor struct {
	Label string
	Size  uint64
}

// Buffer is a device buffer visible to the kernel.
type Buffer interface {
	Size() uint64

	// Write replaces the buffer contents starting at offset.
	Write(offset uint64, data []byte) error

	Release()
}

// TextureDescriptor describes a 2D texture.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format TextureFormat
	Access TextureAccess
}

// Texture is a 2D image visible to the kernel.
type Texture interface {
	Width() uint32
	Height() uint32
	Format() TextureFormat

	// Write uploads tightly packed pixel rows.
	Write(data []byte) error

	// Read copies the texture into dst as tightly packed rows. It blocks
	// until the copy is complete. dst must hold Width*Height*BytesPerPixel bytes.
	Read(ctx context.Context, dst []byte) error

	Release()
}

// Queue submits compute commands to a device.
type Queue interface {
	// Submit encodes and submits a single dispatch. The returned
	// Completion is signaled once the device has finished executing it.
	Submit(cmd *Command) (*Completion, error)

	Release()
}
