// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Host/kernel record sizes. These match the WGSL structs in render.wgsl.
const (
	// ParamsSize is the size of the Params uniform.
	ParamsSize = 16
	// SphereStride is the size of one Sphere record in the scene buffer.
	SphereStride = 48
)

// Sphere material kinds as stored in the kind field.
const (
	KindDiffuse    uint32 = 0
	KindMetal      uint32 = 1
	KindDielectric uint32 = 2
)

// Argument slots of the render entry point.
const (
	SlotParams = 0
	SlotScene  = 1
	SlotNoise  = 2

	SlotAccumulation = 0
	SlotOutput       = 1
	SlotEnvironment  = 2
)

// params mirrors struct Params.
type params struct {
	noiseBufferSize uint32
	noiseOffset     uint32
	sampleCount     float32
	sphereCount     uint32
}

func decodeParams(b []byte) (params, error) {
	if len(b) < ParamsSize {
		return params{}, fmt.Errorf("kernel: params: %d bytes, want %d", len(b), ParamsSize)
	}
	return params{
		noiseBufferSize: binary.LittleEndian.Uint32(b[0:]),
		noiseOffset:     binary.LittleEndian.Uint32(b[4:]),
		sampleCount:     math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		sphereCount:     binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

// sphere mirrors struct Sphere.
type sphere struct {
	center    vec3
	radius    float32
	albedo    vec3
	kind      uint32
	roughness float32
	ior       float32
}

func decodeSpheres(b []byte) []sphere {
	n := len(b) / SphereStride
	out := make([]sphere, n)
	for i := range out {
		r := b[i*SphereStride:]
		out[i] = sphere{
			center:    vec3{f32(r[0:]), f32(r[4:]), f32(r[8:])},
			radius:    f32(r[12:]),
			albedo:    vec3{f32(r[16:]), f32(r[20:]), f32(r[24:])},
			kind:      binary.LittleEndian.Uint32(r[28:]),
			roughness: f32(r[32:]),
			ior:       f32(r[36:]),
		}
	}
	return out
}

func decodeFloats(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = f32(b[i*4:])
	}
	return out
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}
