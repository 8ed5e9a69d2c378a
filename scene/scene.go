// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// RecordSize is the size in bytes of one sphere in the GPU scene buffer.
//
// Layout (little-endian, 16-byte aligned):
//
//	offset  0: center     vec3<f32>
//	offset 12: radius     f32
//	offset 16: albedo     vec3<f32>
//	offset 28: kind       u32
//	offset 32: roughness  f32
//	offset 36: ior        f32
//	offset 40: padding    2 x f32
const RecordSize = 48

var (
	// ErrEmpty is returned when a scene has no spheres.
	ErrEmpty = errors.New("scene: no spheres")

	// ErrInvalidSphere is returned for a sphere with a non-positive radius
	// or an unknown material.
	ErrInvalidSphere = errors.New("scene: invalid sphere")
)

// Vec3 is a 3-component vector.
type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// Sub returns a - b.
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }

// Length returns the Euclidean length of a.
func (a Vec3) Length() float32 {
	return float32(math.Sqrt(float64(a.X*a.X + a.Y*a.Y + a.Z*a.Z)))
}

// Sphere is a sphere with a surface material.
type Sphere struct {
	Center   Vec3     `json:"center"`
	Radius   float32  `json:"radius"`
	Material Material `json:"material"`
}

func (s Sphere) validate() error {
	if !(s.Radius > 0) || math.IsInf(float64(s.Radius), 0) {
		return fmt.Errorf("%w: radius %v", ErrInvalidSphere, s.Radius)
	}
	if s.Material.Kind > Dielectric {
		return fmt.Errorf("%w: %v", ErrInvalidSphere, s.Material.Kind)
	}
	return nil
}

// Scene is an immutable, ordered list of spheres.
type Scene struct {
	spheres []Sphere
}

// New returns a scene holding a copy of spheres.
// It fails if spheres is empty or any sphere is invalid.
func New(spheres ...Sphere) (*Scene, error) {
	if len(spheres) == 0 {
		return nil, ErrEmpty
	}
	for i, s := range spheres {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("sphere %d: %w", i, err)
		}
	}
	return &Scene{spheres: append([]Sphere(nil), spheres...)}, nil
}

// Len returns the number of spheres.
func (s *Scene) Len() int { return len(s.spheres) }

// At returns the i-th sphere.
func (s *Scene) At(i int) Sphere { return s.spheres[i] }

// Spheres returns a copy of the sphere list.
func (s *Scene) Spheres() []Sphere {
	return append([]Sphere(nil), s.spheres...)
}

// SizeInBytes returns the size of the encoded scene buffer.
func (s *Scene) SizeInBytes() uint64 {
	return uint64(len(s.spheres)) * RecordSize
}

// Encode serializes the scene into the GPU scene buffer layout.
func (s *Scene) Encode() []byte {
	buf := make([]byte, s.SizeInBytes())
	for i, sp := range s.spheres {
		putSphere(buf[i*RecordSize:(i+1)*RecordSize], sp)
	}
	return buf
}

func putSphere(b []byte, s Sphere) {
	putF32 := func(off int, v float32) {
		binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
	}
	putF32(0, s.Center.X)
	putF32(4, s.Center.Y)
	putF32(8, s.Center.Z)
	putF32(12, s.Radius)
	putF32(16, s.Material.Albedo.X)
	putF32(20, s.Material.Albedo.Y)
	putF32(24, s.Material.Albedo.Z)
	binary.LittleEndian.PutUint32(b[28:], uint32(s.Material.Kind))
	putF32(32, s.Material.Roughness)
	putF32(36, s.Material.IOR)
	putF32(40, 0)
	putF32(44, 0)
}
