// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import "github.com/gogpu/gputypes"

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatRGBA32Float is 32-bit float RGBA.
	TextureFormatRGBA32Float
)

// BytesPerPixel returns the size of one texel in bytes.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case TextureFormatRGBA8Unorm:
		return 4
	case TextureFormatRGBA32Float:
		return 16
	default:
		return 0
	}
}

// GPUFormat maps the format to its WebGPU equivalent.
func (f TextureFormat) GPUFormat() gputypes.TextureFormat {
	switch f {
	case TextureFormatRGBA8Unorm:
		return gputypes.TextureFormatRGBA8Unorm
	case TextureFormatRGBA32Float:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// String returns a human-readable name for the format.
func (f TextureFormat) String() string {
	switch f {
	case TextureFormatRGBA8Unorm:
		return "rgba8unorm"
	case TextureFormatRGBA32Float:
		return "rgba32float"
	default:
		return "unknown"
	}
}

// TextureAccess describes how the kernel uses a texture.
type TextureAccess uint8

const (
	// AccessRead is a sampled, read-only texture.
	AccessRead TextureAccess = iota
	// AccessWrite is a write-only storage texture.
	AccessWrite
	// AccessReadWrite is read and written by the kernel.
	AccessReadWrite
)

// Size is a 3D extent used for dispatch grids and thread groups.
type Size struct {
	Width, Height, Depth uint32
}

// Count returns the number of items in the extent.
func (s Size) Count() uint64 {
	return uint64(s.Width) * uint64(s.Height) * uint64(s.Depth)
}

// GroupsFor returns how many groups of size s are needed to cover grid.
func (s Size) GroupsFor(grid Size) Size {
	return Size{
		Width:  divCeil(grid.Width, s.Width),
		Height: divCeil(grid.Height, s.Height),
		Depth:  divCeil(grid.Depth, s.Depth),
	}
}

func divCeil(n, d uint32) uint32 {
	if d == 0 {
		return 0
	}
	return (n + d - 1) / d
}
