// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package noise regenerates the per-frame random scratch buffer read by
// the path tracing kernel.
//
// The buffer has a fixed length that does not depend on image size. The
// kernel reuses it across the whole image through its own indexing, so a
// few kilobytes of fresh randomness per frame are enough.
package noise

import (
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// DefaultSize is the number of floats in the noise buffer.
const DefaultSize = 1024

// Source fills noise buffers from a random number generator.
// A Source is not safe for concurrent use.
type Source struct {
	rng *rand.Rand
}

// NewSource returns a Source drawing from rng.
// If rng is nil, a randomly seeded generator is used.
func NewSource(rng *rand.Rand) *Source {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Source{rng: rng}
}

// Fill overwrites every slot of dst with an independent uniform float in [0,1).
func (s *Source) Fill(dst []float32) {
	for i := range dst {
		dst[i] = s.rng.Float32()
	}
}

// Buffer is a noise buffer together with its little-endian upload image.
type Buffer struct {
	values []float32
	bytes  []byte
}

// NewBuffer allocates a zeroed buffer of n floats.
func NewBuffer(n int) *Buffer {
	return &Buffer{
		values: make([]float32, n),
		bytes:  make([]byte, n*4),
	}
}

// Len returns the number of floats in the buffer.
func (b *Buffer) Len() int { return len(b.values) }

// Values returns the current contents. The slice is overwritten by the
// next Regenerate.
func (b *Buffer) Values() []float32 { return b.values }

// Bytes returns the little-endian encoding of the current contents.
// The slice is overwritten by the next Regenerate.
func (b *Buffer) Bytes() []byte { return b.bytes }

// SizeInBytes returns the upload size.
func (b *Buffer) SizeInBytes() uint64 { return uint64(len(b.bytes)) }

// Regenerate refills the whole buffer from s. Nothing from the previous
// contents is carried over.
func (b *Buffer) Regenerate(s *Source) {
	s.Fill(b.values)
	for i, v := range b.values {
		binary.LittleEndian.PutUint32(b.bytes[i*4:], math.Float32bits(v))
	}
}
