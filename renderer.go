// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package bradbury

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/internal/kernel"
	"github.com/gogpu/bradbury/noise"
	"github.com/gogpu/bradbury/scene"
)

// accumulationIDs numbers accumulation textures across renderers.
var accumulationIDs atomic.Uint64

// Renderer runs the path tracing kernel progressively over a fixed-size
// image.
//
// All GPU resources are created by New and released by Close. The
// accumulation texture is allocated once and is never cleared or
// reallocated, so every frame refines the same estimate.
//
// Render, Run, Snapshot and Close may be called from different
// goroutines; frames are serialized and at most one submission is
// outstanding at any time.
type Renderer struct {
	dev    backend.Device
	width  int
	height int
	opts   options

	pipeline     backend.Pipeline
	queue        backend.Queue
	accumulation backend.Texture
	output       backend.Texture
	environment  backend.Texture
	sceneBuffer  backend.Buffer
	noiseBuffer  backend.Buffer

	accumulationID uint64
	sphereCount    uint32
	grid, group    backend.Size

	rng       *rand.Rand
	noise     *noise.Buffer
	source    *noise.Source
	publisher *Publisher
	stats     *stats

	// sampleCount is written under mu and read without it.
	sampleCount atomic.Uint32

	mu      sync.Mutex
	pending *frame
	closed  bool
}

// frame is a submission that has not been waited for yet.
type frame struct {
	done   *backend.Completion
	sample uint32
	start  time.Time
}

// New creates a renderer for a width×height image on dev.
//
// New loads the kernel, builds the pipeline and queue, allocates the
// accumulation, output and noise resources, loads the optional
// environment map and uploads the scene. If any step fails, everything
// allocated so far is released and the error is returned; the caller
// decides whether that is fatal.
//
// The scene is encoded and uploaded once; the renderer keeps no
// reference to it. The device stays owned by the caller.
func New(dev backend.Device, width, height int, opts ...Option) (*Renderer, error) {
	if dev == nil {
		return nil, fmt.Errorf("%w: nil device", backend.ErrBackendNotAvailable)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	r := &Renderer{
		dev:    dev,
		width:  width,
		height: height,
		opts:   o,
		rng:    o.rng,
		noise:  noise.NewBuffer(o.noiseSize),
		source: noise.NewSource(o.rng),
	}
	if err := r.init(); err != nil {
		r.release()
		return nil, err
	}

	r.publisher = NewPublisher(o.publishInterval, o.clock, o.callback)
	r.stats = newStats(o.clock, o.statsInterval)
	trackDevice(dev)

	Logger().Info("bradbury: renderer created",
		"backend", dev.Name(),
		"adapter", dev.Info().Name,
		"width", width,
		"height", height,
		"spheres", r.sphereCount,
		"group", r.group,
	)
	return r, nil
}

// MustNew is like New but panics on error.
func MustNew(dev backend.Device, width, height int, opts ...Option) *Renderer {
	r, err := New(dev, width, height, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) init() error {
	if err := r.initPipeline(); err != nil {
		return err
	}
	if err := r.initTextures(); err != nil {
		return err
	}
	return r.initBuffers()
}

func (r *Renderer) initPipeline() error {
	program, err := kernel.Load(r.opts.program)
	if err != nil {
		if errors.Is(err, kernel.ErrProgramNotFound) {
			return fmt.Errorf("%w: %w", ErrKernelNotFound, err)
		}
		return fmt.Errorf("%w: %w", ErrPipeline, err)
	}
	if _, err := program.Entry(r.opts.entryPoint); err != nil {
		return fmt.Errorf("%w: %w", ErrEntryPointNotFound, err)
	}

	r.pipeline, err = r.dev.NewComputePipeline(&backend.PipelineDescriptor{
		Label:      "bradbury render",
		Program:    program,
		EntryPoint: r.opts.entryPoint,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPipeline, err)
	}
	r.queue, err = r.dev.NewQueue()
	if err != nil {
		return fmt.Errorf("%w: create queue: %w", ErrPipeline, err)
	}

	r.grid = backend.Size{Width: uint32(r.width), Height: uint32(r.height), Depth: 1}
	r.group = dispatchGroup(r.pipeline.ThreadExecutionWidth(), r.pipeline.MaxTotalThreadsPerGroup())
	return nil
}

func (r *Renderer) initTextures() error {
	var err error
	r.accumulation, err = r.dev.NewTexture(&backend.TextureDescriptor{
		Label:  "accumulation",
		Width:  uint32(r.width),
		Height: uint32(r.height),
		Format: backend.TextureFormatRGBA32Float,
		Access: backend.AccessReadWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: accumulation texture: %w", ErrAllocation, err)
	}
	r.accumulationID = accumulationIDs.Add(1)

	r.output, err = r.dev.NewTexture(&backend.TextureDescriptor{
		Label:  "output",
		Width:  uint32(r.width),
		Height: uint32(r.height),
		Format: backend.TextureFormatRGBA8Unorm,
		Access: backend.AccessWrite,
	})
	if err != nil {
		return fmt.Errorf("%w: output texture: %w", ErrAllocation, err)
	}

	if r.opts.environment != "" {
		r.environment, err = r.opts.loader(r.dev, r.opts.environment)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrEnvironment, r.opts.environment, err)
		}
		return nil
	}
	// Without an environment map the kernel still needs something bound;
	// a 1×1 texture selects its gradient sky.
	r.environment, err = r.dev.NewTexture(&backend.TextureDescriptor{
		Label:  "environment placeholder",
		Width:  1,
		Height: 1,
		Format: backend.TextureFormatRGBA32Float,
		Access: backend.AccessRead,
	})
	if err != nil {
		return fmt.Errorf("%w: environment placeholder: %w", ErrAllocation, err)
	}
	return nil
}

func (r *Renderer) initBuffers() error {
	var err error
	r.noiseBuffer, err = r.dev.NewBuffer(&backend.BufferDescriptor{
		Label: "noise",
		Size:  r.noise.SizeInBytes(),
	})
	if err != nil {
		return fmt.Errorf("%w: noise buffer: %w", ErrAllocation, err)
	}

	s := r.opts.scene
	if s == nil {
		s = scene.Build(r.rng)
	}
	r.sphereCount = uint32(s.Len())
	r.sceneBuffer, err = r.dev.NewBuffer(&backend.BufferDescriptor{
		Label: "scene",
		Size:  s.SizeInBytes(),
	})
	if err != nil {
		return fmt.Errorf("%w: scene buffer: %w", ErrAllocation, err)
	}
	if err := r.sceneBuffer.Write(0, s.Encode()); err != nil {
		return fmt.Errorf("%w: upload scene: %w", ErrAllocation, err)
	}
	r.opts.scene = nil
	return nil
}

// dispatchGroup returns the threadgroup shape for a pipeline: one row of
// executionWidth threads, stacked as high as the thread limit allows.
// The group never holds more than maxThreads threads.
func dispatchGroup(executionWidth, maxThreads uint32) backend.Size {
	limit := max(maxThreads, 1)
	w := min(max(executionWidth, 1), limit)
	return backend.Size{Width: w, Height: max(limit/w, 1), Depth: 1}
}

// Render dispatches one frame and waits for it to finish, then offers the
// output to the publisher.
//
// If ctx ends while the frame is in flight, Render returns ctx.Err() and
// the frame stays pending. The next Render, Snapshot or Close waits for
// it and offers it to the publisher then, so every frame that completes
// gets one publish attempt.
//
// Each frame adds one sample per pixel: the sample counter is
// incremented, the noise buffer is refilled and the parameters are
// uploaded with the dispatch. A submission or execution failure is
// returned wrapped in ErrSubmit. A failed publish is not an error.
func (r *Renderer) Render(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if err := r.awaitPending(ctx); err != nil {
		return err
	}

	n := r.sampleCount.Add(1)
	r.noise.Regenerate(r.source)
	if err := r.noiseBuffer.Write(0, r.noise.Bytes()); err != nil {
		return fmt.Errorf("%w: upload noise: %w", ErrSubmit, err)
	}
	params := RenderParameters{
		NoiseBufferSize: uint32(r.noise.Len()),
		NoiseOffset:     r.rng.Uint32N(uint32(r.noise.Len())),
		SampleCount:     float32(n),
		SphereCount:     r.sphereCount,
	}

	start := r.opts.clock()
	c, err := r.queue.Submit(r.command(params))
	if err != nil {
		return fmt.Errorf("%w: frame %d: %w", ErrSubmit, n, err)
	}
	r.pending = &frame{done: c, sample: n, start: start}
	return r.awaitPending(ctx)
}

// command binds the frame's arguments by slot.
func (r *Renderer) command(params RenderParameters) *backend.Command {
	cmd := &backend.Command{
		Label:    "render",
		Pipeline: r.pipeline,
		Grid:     r.grid,
		Group:    r.group,
	}
	cmd.SetBytes(kernel.SlotParams, params.Bytes())
	cmd.SetBuffer(kernel.SlotScene, r.sceneBuffer)
	cmd.SetBuffer(kernel.SlotNoise, r.noiseBuffer)
	cmd.SetTexture(kernel.SlotAccumulation, r.accumulation)
	cmd.SetTexture(kernel.SlotOutput, r.output)
	cmd.SetTexture(kernel.SlotEnvironment, r.environment)
	return cmd
}

// awaitPending waits for the outstanding submission, if any, and hands a
// successful frame to the publisher. If ctx ends first the submission
// stays pending and the next call waits again.
func (r *Renderer) awaitPending(ctx context.Context) error {
	f := r.pending
	if f == nil {
		return nil
	}
	c := f.done
	var err error
	switch r.opts.completion {
	case CompletionNotify:
		select {
		case <-c.Done():
			err = c.Err()
		case <-ctx.Done():
			return ctx.Err()
		}
	default:
		if err = c.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
	r.pending = nil
	if err != nil {
		return fmt.Errorf("%w: frame %d: %w", ErrSubmit, f.sample, err)
	}

	published := r.publisher.Publish(ctx, r.output)
	r.stats.frame(f.sample, r.opts.clock().Sub(f.start), published)
	return nil
}

// Snapshot reads the current output back regardless of the publish
// throttle. A frame left pending by a cancelled Render is waited for and
// published first; the snapshot itself never reaches the callback.
func (r *Renderer) Snapshot(ctx context.Context) (*image.RGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if err := r.awaitPending(ctx); err != nil {
		return nil, err
	}
	return readImage(ctx, r.output)
}

// SampleCount returns the number of samples per pixel dispatched so far.
// It does not wait for a frame in flight.
func (r *Renderer) SampleCount() uint32 { return r.sampleCount.Load() }

// AccumulationID identifies the accumulation texture. It is fixed for
// the lifetime of the renderer.
func (r *Renderer) AccumulationID() uint64 { return r.accumulationID }

// Bounds returns the image rectangle.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Stats returns the frame statistics so far.
func (r *Renderer) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats.snapshot(r.publisher)
}

// Close waits for the outstanding frame, publishes it, and releases all
// GPU resources.
// The device is not closed. Close is safe to call multiple times.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	if err := r.awaitPending(context.Background()); err != nil {
		Logger().Warn("bradbury: last frame failed during close", "err", err)
	}
	r.release()
	untrackDevice(r.dev)
}

// release frees whatever has been created, in reverse order.
func (r *Renderer) release() {
	for _, b := range []backend.Buffer{r.sceneBuffer, r.noiseBuffer} {
		if b != nil {
			b.Release()
		}
	}
	for _, t := range []backend.Texture{r.environment, r.output, r.accumulation} {
		if t != nil {
			t.Release()
		}
	}
	if r.queue != nil {
		r.queue.Release()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	r.sceneBuffer, r.noiseBuffer = nil, nil
	r.environment, r.output, r.accumulation = nil, nil, nil
	r.queue, r.pipeline = nil, nil
}
