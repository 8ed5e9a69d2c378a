// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package scene

import "math/rand/v2"

// Template parameters of the generated scene.
const (
	// GridMin and GridMax bound the small-sphere field on both axes.
	GridMin = -11
	GridMax = 11

	// SmallRadius is the radius of every field sphere.
	SmallRadius = 0.2

	// Jitter is the maximum offset of a field sphere inside its cell.
	Jitter = 0.9

	// ExclusionRadius keeps field spheres away from the feature spheres.
	ExclusionRadius = 0.9

	// Material draw thresholds: below DiffuseWeight is diffuse, below
	// MetalWeight is metal, the rest is dielectric.
	DiffuseWeight = 0.8
	MetalWeight   = 0.95

	// GlassIOR is the index of refraction of every dielectric sphere.
	GlassIOR = 1.5
)

// ExclusionCenter is the reference point around which field spheres are skipped.
var ExclusionCenter = Vec3{4, SmallRadius, 0}

// Ground returns the large sphere every generated scene starts with.
func Ground() Sphere {
	return Sphere{
		Center:   Vec3{0, -1000, 0},
		Radius:   1000,
		Material: NewDiffuse(Vec3{0.5, 0.5, 0.5}),
	}
}

// Features returns the fixed spheres every generated scene ends with.
func Features() []Sphere {
	return []Sphere{
		{Center: Vec3{0, 1, 0}, Radius: 1, Material: NewDielectric(GlassIOR)},
		{Center: Vec3{-4, 1, 0}, Radius: 1, Material: NewDiffuse(Vec3{0.4, 0.2, 0.1})},
		{Center: Vec3{4, 1, 0}, Radius: 1, Material: NewMetal(Vec3{0.7, 0.6, 0.5}, 0)},
	}
}

// Build generates a scene: the ground sphere, a jittered field of small
// spheres with randomly drawn materials, then the feature spheres.
//
// All randomness comes from rng, so a seeded generator reproduces the
// same scene. If rng is nil, a randomly seeded generator is used.
func Build(rng *rand.Rand) *Scene {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	spheres := make([]Sphere, 0, 1+(GridMax-GridMin)*(GridMax-GridMin)+3)
	spheres = append(spheres, Ground())

	for a := GridMin; a < GridMax; a++ {
		for b := GridMin; b < GridMax; b++ {
			choose := rng.Float32()
			center := Vec3{
				X: float32(a) + Jitter*rng.Float32(),
				Y: SmallRadius,
				Z: float32(b) + Jitter*rng.Float32(),
			}
			if center.Sub(ExclusionCenter).Length() <= ExclusionRadius {
				continue
			}
			spheres = append(spheres, Sphere{
				Center:   center,
				Radius:   SmallRadius,
				Material: drawMaterial(rng, choose),
			})
		}
	}

	spheres = append(spheres, Features()...)
	return &Scene{spheres: spheres}
}

func drawMaterial(rng *rand.Rand, choose float32) Material {
	switch {
	case choose < DiffuseWeight:
		albedo := Vec3{
			X: rng.Float32() * rng.Float32(),
			Y: rng.Float32() * rng.Float32(),
			Z: rng.Float32() * rng.Float32(),
		}
		return NewDiffuse(albedo)
	case choose < MetalWeight:
		albedo := Vec3{
			X: 0.5 + 0.5*rng.Float32(),
			Y: 0.5 + 0.5*rng.Float32(),
			Z: 0.5 + 0.5*rng.Float32(),
		}
		return NewMetal(albedo, 0.5*rng.Float32())
	default:
		return NewDielectric(GlassIOR)
	}
}

// Single returns a scene with one diffuse sphere at the origin.
func Single() *Scene {
	return &Scene{spheres: []Sphere{{
		Center:   Vec3{0, 0, 0},
		Radius:   1,
		Material: NewDiffuse(Vec3{0.7, 0.3, 0.3}),
	}}}
}

// Structural returns the deterministic spheres of a generated scene: the
// ground sphere and the trailing feature spheres. It returns nil if s is
// too small to hold them.
func Structural(s *Scene) []Sphere {
	n := len(Features())
	if s.Len() < 1+n {
		return nil
	}
	out := make([]Sphere, 0, 1+n)
	out = append(out, s.spheres[0])
	out = append(out, s.spheres[s.Len()-n:]...)
	return out
}
