// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import "math"

// vec3 mirrors WGSL vec3<f32>.
type vec3 struct{ x, y, z float32 }

func (a vec3) add(b vec3) vec3      { return vec3{a.x + b.x, a.y + b.y, a.z + b.z} }
func (a vec3) sub(b vec3) vec3      { return vec3{a.x - b.x, a.y - b.y, a.z - b.z} }
func (a vec3) mul(b vec3) vec3      { return vec3{a.x * b.x, a.y * b.y, a.z * b.z} }
func (a vec3) scale(s float32) vec3 { return vec3{a.x * s, a.y * s, a.z * s} }
func (a vec3) neg() vec3            { return vec3{-a.x, -a.y, -a.z} }
func (a vec3) dot(b vec3) float32   { return a.x*b.x + a.y*b.y + a.z*b.z }
func (a vec3) length() float32      { return sqrt32(a.dot(a)) }
func (a vec3) normalize() vec3      { return a.scale(1 / a.length()) }

func (a vec3) lerp(b vec3, t float32) vec3 { return a.scale(1 - t).add(b.scale(t)) }

func (a vec3) cross(b vec3) vec3 {
	return vec3{
		a.y*b.z - a.z*b.y,
		a.z*b.x - a.x*b.z,
		a.x*b.y - a.y*b.x,
	}
}

func reflect(v, n vec3) vec3 {
	return v.sub(n.scale(2 * v.dot(n)))
}

// refract follows the WGSL builtin: e1 incident, e2 normal, e3 ratio.
func refract(e1, e2 vec3, eta float32) vec3 {
	d := e2.dot(e1)
	k := 1 - eta*eta*(1-d*d)
	if k < 0 {
		return vec3{}
	}
	return e1.scale(eta).sub(e2.scale(eta*d + sqrt32(k)))
}

func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func fract(v float32) float32 {
	return v - float32(math.Floor(float64(v)))
}
