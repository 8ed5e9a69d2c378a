// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import "fmt"

// MaterialKind selects the scattering model of a surface.
type MaterialKind uint32

// Material kinds. The numeric values are stored in the GPU scene buffer.
const (
	Diffuse MaterialKind = iota
	Metal
	Dielectric
)

// String returns a human-readable name for the kind.
func (k MaterialKind) String() string {
	switch k {
	case Diffuse:
		return "diffuse"
	case Metal:
		return "metal"
	case Dielectric:
		return "dielectric"
	default:
		return fmt.Sprintf("MaterialKind(%d)", uint32(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MaterialKind) MarshalText() ([]byte, error) {
	switch k {
	case Diffuse, Metal, Dielectric:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("scene: invalid material kind %d", uint32(k))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MaterialKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "diffuse":
		*k = Diffuse
	case "metal":
		*k = Metal
	case "dielectric":
		*k = Dielectric
	default:
		return fmt.Errorf("scene: unknown material kind %q", text)
	}
	return nil
}

// Material describes how a surface scatters light.
//
// Roughness is used only by Metal and IOR only by Dielectric, but both
// fields are always present so every material has the same GPU layout.
type Material struct {
	Kind      MaterialKind `json:"kind"`
	Albedo    Vec3         `json:"albedo"`
	Roughness float32      `json:"roughness"`
	IOR       float32      `json:"ior"`
}

// NewDiffuse returns a Lambertian material.
func NewDiffuse(albedo Vec3) Material {
	return Material{Kind: Diffuse, Albedo: albedo}
}

// NewMetal returns a reflective material. Roughness 0 is a perfect mirror.
func NewMetal(albedo Vec3, roughness float32) Material {
	return Material{Kind: Metal, Albedo: albedo, Roughness: roughness}
}

// NewDielectric returns a clear refractive material.
func NewDielectric(ior float32) Material {
	return Material{Kind: Dielectric, Albedo: Vec3{1, 1, 1}, IOR: ior}
}
