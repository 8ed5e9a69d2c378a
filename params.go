// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bradbury

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/bradbury/internal/kernel"
)

// RenderParameters is the per-frame constant block of the kernel.
//
// Layout (16 bytes, little-endian):
//
//	offset 0   noiseBufferSize  u32
//	offset 4   noiseOffset      u32
//	offset 8   sampleCount      f32
//	offset 12  sphereCount      u32
type RenderParameters struct {
	NoiseBufferSize uint32
	NoiseOffset     uint32
	SampleCount     float32
	SphereCount     uint32
}

// Bytes encodes the parameters in kernel layout.
func (p RenderParameters) Bytes() []byte {
	b := make([]byte, kernel.ParamsSize)
	binary.LittleEndian.PutUint32(b[0:], p.NoiseBufferSize)
	binary.LittleEndian.PutUint32(b[4:], p.NoiseOffset)
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(p.SampleCount))
	binary.LittleEndian.PutUint32(b[12:], p.SphereCount)
	return b
}
