// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"fmt"
	"math"
)

// Surface is host memory backing a texture for the reference kernel.
// Exactly one of Pix (rgba8) or Float (rgba32float) is used.
type Surface struct {
	Width  uint32
	Height uint32
	Pix    []uint8
	Float  []float32
}

// Args are the resources bound to one dispatch, by slot.
type Args struct {
	Buffers  [4][]byte
	Textures [4]*Surface
}

// Invocation runs the kernel for one global invocation id.
type Invocation func(x, y, z uint32)

// Prepare decodes the dispatch arguments once and returns the
// per-invocation function. Invocations of one dispatch may run
// concurrently; each writes only its own pixel.
type Prepare func(args *Args) (Invocation, error)

var references = map[string]Prepare{
	EntryRender: prepareRender,
}

// Reference returns the CPU implementation of the named entry point.
func Reference(entry string) (Prepare, bool) {
	p, ok := references[entry]
	return p, ok
}

var errMissingArg = errors.New("kernel: missing argument")

// Camera constants, as in render.wgsl.
var (
	lookFrom = vec3{13, 2, 3}
	lookAt   = vec3{0, 0, 0}
	vup      = vec3{0, 1, 0}
)

const (
	maxDepth  = 16
	tMin      = 0.001
	tMax      = 1.0e30
	vfov      = 20.0
	aperture  = 0.1
	focusDist = 10.0
	noHit     = math.MaxUint32
)

type renderArgs struct {
	params  params
	spheres []sphere
	noise   []float32
	acc     *Surface
	out     *Surface
	env     *Surface
}

func prepareRender(args *Args) (Invocation, error) {
	p, err := decodeParams(args.Buffers[SlotParams])
	if err != nil {
		return nil, err
	}
	r := &renderArgs{
		params:  p,
		spheres: decodeSpheres(args.Buffers[SlotScene]),
		noise:   decodeFloats(args.Buffers[SlotNoise]),
		acc:     args.Textures[SlotAccumulation],
		out:     args.Textures[SlotOutput],
		env:     args.Textures[SlotEnvironment],
	}
	if r.out == nil || r.acc == nil {
		return nil, fmt.Errorf("%w: accumulation and output textures are required", errMissingArg)
	}
	if n := int(r.out.Width) * int(r.out.Height) * 4; len(r.acc.Float) < n || len(r.out.Pix) < n {
		return nil, fmt.Errorf("kernel: texture storage smaller than %dx%d", r.out.Width, r.out.Height)
	}
	return r.invoke, nil
}

// invocation carries the private rng state of one invocation.
type invocation struct {
	*renderArgs
	seed uint32
}

func (r *renderArgs) invoke(x, y, _ uint32) {
	w, h := r.out.Width, r.out.Height
	if x >= w || y >= h {
		return
	}
	pixel := y*w + x
	inv := invocation{renderArgs: r}
	inv.seed = pcg(pixel) ^ pcg(uint32(r.params.sampleCount)+r.params.noiseOffset*9781)

	px := float32(x) + inv.rand()
	py := float32(y) + inv.rand()
	origin, dir := inv.cameraRay(px, py, float32(w), float32(h))
	color := inv.radiance(origin, dir)

	i := pixel * 4
	acc := r.acc.Float[i : i+4 : i+4]
	n := r.params.sampleCount
	acc[0] += (color.x - acc[0]) / n
	acc[1] += (color.y - acc[1]) / n
	acc[2] += (color.z - acc[2]) / n
	acc[3] += (1 - acc[3]) / n

	out := r.out.Pix[i : i+4 : i+4]
	out[0] = unorm8(sqrt32(clamp01(acc[0])))
	out[1] = unorm8(sqrt32(clamp01(acc[1])))
	out[2] = unorm8(sqrt32(clamp01(acc[2])))
	out[3] = 255
}

func pcg(v uint32) uint32 {
	state := v*747796405 + 2891336453
	word := ((state >> ((state >> 28) + 4)) ^ state) * 277803737
	return (word >> 22) ^ word
}

func (inv *invocation) rand() float32 {
	inv.seed = pcg(inv.seed)
	var n float32
	if size := inv.params.noiseBufferSize; size > 0 {
		if idx := (inv.seed + inv.params.noiseOffset) % size; int(idx) < len(inv.noise) {
			n = inv.noise[idx]
		}
	}
	return fract(n + float32(inv.seed>>8)*5.9604645e-8)
}

func (inv *invocation) randomUnitVector() vec3 {
	z := 2*inv.rand() - 1
	a := 2 * math.Pi * float64(inv.rand())
	r := sqrt32(max(0, 1-z*z))
	return vec3{r * float32(math.Cos(a)), r * float32(math.Sin(a)), z}
}

func (inv *invocation) randomInUnitDisk() (float32, float32) {
	r := sqrt32(inv.rand())
	a := 2 * math.Pi * float64(inv.rand())
	return r * float32(math.Cos(a)), r * float32(math.Sin(a))
}

func (inv *invocation) cameraRay(px, py, width, height float32) (vec3, vec3) {
	theta := vfov * math.Pi / 180
	halfH := float32(math.Tan(theta / 2))
	halfW := (width / height) * halfH
	w := lookFrom.sub(lookAt).normalize()
	u := vup.cross(w).normalize()
	v := w.cross(u)

	lowerLeft := lookFrom.sub(u.scale(halfW).add(v.scale(halfH)).add(w).scale(focusDist))
	horizontal := u.scale(2 * halfW * focusDist)
	vertical := v.scale(2 * halfH * focusDist)

	dx, dy := inv.randomInUnitDisk()
	offset := u.scale(dx * aperture / 2).add(v.scale(dy * aperture / 2))
	s := px / width
	t := 1 - py/height
	origin := lookFrom.add(offset)
	dir := lowerLeft.add(horizontal.scale(s)).add(vertical.scale(t)).sub(origin)
	return origin, dir
}

type hit struct {
	t      float32
	point  vec3
	normal vec3
	front  bool
	index  uint32
}

func hitSphere(s *sphere, origin, dir vec3, limit float32) float32 {
	oc := origin.sub(s.center)
	a := dir.dot(dir)
	halfB := oc.dot(dir)
	c := oc.dot(oc) - s.radius*s.radius
	disc := halfB*halfB - a*c
	if disc < 0 {
		return -1
	}
	sq := sqrt32(disc)
	root := (-halfB - sq) / a
	if root < tMin || root > limit {
		root = (-halfB + sq) / a
		if root < tMin || root > limit {
			return -1
		}
	}
	return root
}

func (inv *invocation) trace(origin, dir vec3) hit {
	h := hit{t: tMax, index: noHit}
	count := min(int(inv.params.sphereCount), len(inv.spheres))
	for i := 0; i < count; i++ {
		if t := hitSphere(&inv.spheres[i], origin, dir, h.t); t > 0 {
			h.t = t
			h.index = uint32(i)
		}
	}
	if h.index != noHit {
		s := &inv.spheres[h.index]
		h.point = origin.add(dir.scale(h.t))
		outward := h.point.sub(s.center).scale(1 / s.radius)
		h.front = dir.dot(outward) < 0
		h.normal = outward
		if !h.front {
			h.normal = outward.neg()
		}
	}
	return h
}

func schlick(cosine, ratio float32) float32 {
	r0 := (1 - ratio) / (1 + ratio)
	r0 *= r0
	return r0 + (1-r0)*float32(math.Pow(float64(1-cosine), 5))
}

func (inv *invocation) scatter(dir vec3, h hit) (attenuation, next vec3, ok bool) {
	s := &inv.spheres[h.index]
	unit := dir.normalize()
	switch s.kind {
	case KindMetal:
		next = reflect(unit, h.normal).add(inv.randomUnitVector().scale(s.roughness))
		return s.albedo, next, next.dot(h.normal) > 0
	case KindDielectric:
		ratio := s.ior
		if h.front {
			ratio = 1 / s.ior
		}
		cosTheta := min(unit.neg().dot(h.normal), 1)
		sinTheta := sqrt32(max(0, 1-cosTheta*cosTheta))
		if ratio*sinTheta > 1 || schlick(cosTheta, ratio) > inv.rand() {
			next = reflect(unit, h.normal)
		} else {
			next = refract(unit, h.normal, ratio)
		}
		return vec3{1, 1, 1}, next, true
	default:
		next = h.normal.add(inv.randomUnitVector())
		if next.dot(next) < 1e-8 {
			next = h.normal
		}
		return s.albedo, next, true
	}
}

func (inv *invocation) sky(dir vec3) vec3 {
	unit := dir.normalize()
	if env := inv.env; env != nil && env.Width > 1 && env.Height > 1 {
		u := 0.5 + math.Atan2(float64(unit.z), float64(unit.x))/(2*math.Pi)
		v := math.Acos(float64(max(-1, min(1, unit.y)))) / math.Pi
		x := min(uint32(u*float64(env.Width)), env.Width-1)
		y := min(uint32(v*float64(env.Height)), env.Height-1)
		i := (y*env.Width + x) * 4
		if int(i)+3 < len(env.Float) {
			return vec3{env.Float[i], env.Float[i+1], env.Float[i+2]}
		}
	}
	t := 0.5 * (unit.y + 1)
	return vec3{1, 1, 1}.lerp(vec3{0.5, 0.7, 1.0}, t)
}

func (inv *invocation) radiance(origin, dir vec3) vec3 {
	throughput := vec3{1, 1, 1}
	for depth := 0; depth < maxDepth; depth++ {
		h := inv.trace(origin, dir)
		if h.index == noHit {
			return throughput.mul(inv.sky(dir))
		}
		attenuation, next, ok := inv.scatter(dir, h)
		if !ok {
			return vec3{}
		}
		throughput = throughput.mul(attenuation)
		origin, dir = h.point, next
	}
	return vec3{}
}

// unorm8 converts a [0,1] float to an 8-bit unorm value with rounding,
// matching textureStore on an rgba8unorm target.
func unorm8(v float32) uint8 {
	return uint8(clamp01(v)*255 + 0.5)
}
