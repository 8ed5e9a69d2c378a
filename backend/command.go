// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Argument slot limits.
const (
	MaxBufferSlots  = 4
	MaxTextureSlots = 4
)

// Command records a single compute dispatch: the pipeline, the
// arguments bound to it by index, and the dispatch shape.
//
// Buffer slot i maps to @group(0) @binding(i) and texture slot i maps to
// @group(1) @binding(i) in the kernel. A buffer slot holds either inline
// bytes (uniform constants) or a Buffer, never both.
type Command struct {
	Label    string
	Pipeline Pipeline

	bytes    [MaxBufferSlots][]byte
	buffers  [MaxBufferSlots]Buffer
	textures [MaxTextureSlots]Texture

	// Grid is the total number of invocations.
	Grid Size
	// Group is the number of invocations scheduled together.
	Group Size
}

// SetBytes binds a copy of data as inline constants at buffer slot index.
func (c *Command) SetBytes(index int, data []byte) {
	c.bytes[index] = append([]byte(nil), data...)
	c.buffers[index] = nil
}

// SetBuffer binds b at buffer slot index.
func (c *Command) SetBuffer(index int, b Buffer) {
	c.buffers[index] = b
	c.bytes[index] = nil
}

// SetTexture binds t at texture slot index.
func (c *Command) SetTexture(index int, t Texture) {
	c.textures[index] = t
}

// Bytes returns the inline constants bound at index, or nil.
func (c *Command) Bytes(index int) []byte { return c.bytes[index] }

// Buffer returns the buffer bound at index, or nil.
func (c *Command) Buffer(index int) Buffer { return c.buffers[index] }

// Texture returns the texture bound at index, or nil.
func (c *Command) Texture(index int) Texture { return c.textures[index] }

// Validate checks that the command can be submitted.
func (c *Command) Validate() error {
	if c.Pipeline == nil {
		return fmt.Errorf("%w: no pipeline", ErrInvalidCommand)
	}
	if c.Grid.Count() == 0 {
		return fmt.Errorf("%w: empty grid %v", ErrInvalidCommand, c.Grid)
	}
	if c.Group.Count() == 0 {
		return fmt.Errorf("%w: empty group %v", ErrInvalidCommand, c.Group)
	}
	if c.Group.Count() > uint64(c.Pipeline.MaxTotalThreadsPerGroup()) {
		return fmt.Errorf("%w: group %v exceeds %d threads",
			ErrInvalidCommand, c.Group, c.Pipeline.MaxTotalThreadsPerGroup())
	}
	return nil
}

// Completion is the completion signal of one submitted command.
// It is signaled exactly once.
type Completion struct {
	done chan struct{}
	once sync.Once

	err       error
	submitted time.Time
	finished  time.Time
}

// NewCompletion returns an unsignaled completion stamped with the
// submission time. Backends call Complete when execution finishes.
func NewCompletion() *Completion {
	return &Completion{
		done:      make(chan struct{}),
		submitted: time.Now(),
	}
}

// Complete signals the completion with the execution result.
// Calls after the first are ignored.
func (c *Completion) Complete(err error) {
	c.once.Do(func() {
		c.err = err
		c.finished = time.Now()
		close(c.done)
	})
}

// Done returns a channel that is closed when execution finishes.
func (c *Completion) Done() <-chan struct{} { return c.done }

// Wait blocks until execution finishes or ctx is done.
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the execution error. It is only meaningful after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Duration is the time between submission and completion.
func (c *Completion) Duration() time.Duration {
	select {
	case <-c.done:
		return c.finished.Sub(c.submitted)
	default:
		return 0
	}
}
