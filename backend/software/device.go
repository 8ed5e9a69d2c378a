// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package software

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/internal/kernel"
	"github.com/gogpu/bradbury/internal/parallel"
)

// ErrNoReference is returned when an entry point has no CPU implementation.
var ErrNoReference = errors.New("software: entry point has no CPU implementation")

func init() {
	backend.Register(backend.BackendSoftware, func() (backend.Device, error) {
		return New(0), nil
	})
}

// Device runs kernels on the CPU.
//
// All device memory is guarded by one lock: a dispatch holds it for its
// whole execution, so uploads and readbacks observe either the state
// before a dispatch or the state after it, like a queue-ordered GPU.
type Device struct {
	pool   *parallel.WorkerPool
	memory sync.RWMutex
	closed atomic.Bool
}

// New creates a CPU device with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func New(workers int) *Device {
	return &Device{pool: parallel.NewWorkerPool(workers)}
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendSoftware }

// Info describes the device.
func (d *Device) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: fmt.Sprintf("CPU reference kernel (%d workers)", d.pool.Workers()),
		Type: gpucontext.AdapterTypeSoftware,
	}
}

// SetLogger sets the logger for the software backend.
func (d *Device) SetLogger(l *slog.Logger) { setLogger(l) }

// Close releases the worker pool.
func (d *Device) Close() {
	if d.closed.CompareAndSwap(false, true) {
		d.pool.Close()
	}
}

// NewComputePipeline resolves the CPU implementation of the entry point.
func (d *Device) NewComputePipeline(desc *backend.PipelineDescriptor) (backend.Pipeline, error) {
	if desc == nil || desc.Program == nil {
		return nil, fmt.Errorf("software: create pipeline: %w", kernel.ErrProgramNotFound)
	}
	entry, err := desc.Program.Entry(desc.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("software: create pipeline: %w", err)
	}
	prepare, ok := kernel.Reference(desc.EntryPoint)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoReference, desc.EntryPoint)
	}
	slogger().Debug("software: pipeline created",
		"label", desc.Label,
		"entry", entry.Name,
		"workgroup", entry.Workgroup,
	)
	return &pipeline{entry: entry, prepare: prepare}, nil
}

// NewBuffer allocates a zeroed buffer.
func (d *Device) NewBuffer(desc *backend.BufferDescriptor) (backend.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("software: create buffer %q: zero size", desc.Label)
	}
	return &buffer{dev: d, data: make([]byte, desc.Size)}, nil
}

// NewTexture allocates a zeroed texture.
func (d *Device) NewTexture(desc *backend.TextureDescriptor) (backend.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("software: create texture %q: empty extent %dx%d",
			desc.Label, desc.Width, desc.Height)
	}
	s := &kernel.Surface{Width: desc.Width, Height: desc.Height}
	n := int(desc.Width) * int(desc.Height) * 4
	switch desc.Format {
	case backend.TextureFormatRGBA8Unorm:
		s.Pix = make([]uint8, n)
	case backend.TextureFormatRGBA32Float:
		s.Float = make([]float32, n)
	default:
		return nil, fmt.Errorf("software: create texture %q: unsupported format %v", desc.Label, desc.Format)
	}
	return &texture{dev: d, surface: s, format: desc.Format}, nil
}

// NewQueue creates a queue that executes submissions in order on a
// dedicated goroutine.
func (d *Device) NewQueue() (backend.Queue, error) {
	q := &queue{dev: d, jobs: make(chan job, 4), stopped: make(chan struct{})}
	go q.run()
	return q, nil
}

type pipeline struct {
	entry   kernel.EntryPoint
	prepare kernel.Prepare
}

func (p *pipeline) ThreadExecutionWidth() uint32    { return p.entry.ExecutionWidth() }
func (p *pipeline) MaxTotalThreadsPerGroup() uint32 { return p.entry.MaxThreads() }
func (p *pipeline) Release()                        {}

type buffer struct {
	dev      *Device
	data     []byte
	released atomic.Bool
}

func (b *buffer) Size() uint64 { return uint64(len(b.data)) }

func (b *buffer) Write(offset uint64, data []byte) error {
	if b.released.Load() {
		return backend.ErrReleased
	}
	if offset+uint64(len(data)) > uint64(len(b.data)) {
		return fmt.Errorf("%w: write %d bytes at %d into %d", backend.ErrSizeMismatch, len(data), offset, len(b.data))
	}
	b.dev.memory.Lock()
	copy(b.data[offset:], data)
	b.dev.memory.Unlock()
	return nil
}

func (b *buffer) Release() { b.released.Store(true) }

type texture struct {
	dev      *Device
	surface  *kernel.Surface
	format   backend.TextureFormat
	released atomic.Bool
}

func (t *texture) Width() uint32                 { return t.surface.Width }
func (t *texture) Height() uint32                { return t.surface.Height }
func (t *texture) Format() backend.TextureFormat { return t.format }
func (t *texture) Release()                      { t.released.Store(true) }

func (t *texture) byteSize() int {
	return int(t.surface.Width) * int(t.surface.Height) * t.format.BytesPerPixel()
}

func (t *texture) Write(data []byte) error {
	if t.released.Load() {
		return backend.ErrReleased
	}
	if len(data) != t.byteSize() {
		return fmt.Errorf("%w: texture write %d bytes, want %d", backend.ErrSizeMismatch, len(data), t.byteSize())
	}
	t.dev.memory.Lock()
	defer t.dev.memory.Unlock()
	if t.format == backend.TextureFormatRGBA8Unorm {
		copy(t.surface.Pix, data)
		return nil
	}
	for i := range t.surface.Float {
		t.surface.Float[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return nil
}

func (t *texture) Read(ctx context.Context, dst []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t.released.Load() {
		return backend.ErrReleased
	}
	if len(dst) != t.byteSize() {
		return fmt.Errorf("%w: texture read into %d bytes, want %d", backend.ErrSizeMismatch, len(dst), t.byteSize())
	}
	t.dev.memory.RLock()
	defer t.dev.memory.RUnlock()
	if t.format == backend.TextureFormatRGBA8Unorm {
		copy(dst, t.surface.Pix)
		return nil
	}
	for i, v := range t.surface.Float {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	return nil
}

type job struct {
	cmd        *backend.Command
	args       *kernel.Args
	completion *backend.Completion
}

type queue struct {
	dev      *Device
	jobs     chan job
	stopped  chan struct{}
	released atomic.Bool
}

func (q *queue) Submit(cmd *backend.Command) (*backend.Completion, error) {
	if q.released.Load() || q.dev.closed.Load() {
		return nil, backend.ErrReleased
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if _, ok := cmd.Pipeline.(*pipeline); !ok {
		return nil, fmt.Errorf("%w: pipeline %T not created by the software device", backend.ErrInvalidCommand, cmd.Pipeline)
	}
	args, err := bindArgs(cmd)
	if err != nil {
		return nil, err
	}
	c := backend.NewCompletion()
	q.jobs <- job{cmd: cmd, args: args, completion: c}
	return c, nil
}

// bindArgs resolves the command's slots to host memory.
func bindArgs(cmd *backend.Command) (*kernel.Args, error) {
	args := &kernel.Args{}
	for i := 0; i < backend.MaxBufferSlots; i++ {
		if b := cmd.Bytes(i); b != nil {
			args.Buffers[i] = b
			continue
		}
		if cmd.Buffer(i) == nil {
			continue
		}
		buf, ok := cmd.Buffer(i).(*buffer)
		if !ok {
			return nil, fmt.Errorf("%w: buffer slot %d holds foreign %T", backend.ErrInvalidCommand, i, cmd.Buffer(i))
		}
		if buf.released.Load() {
			return nil, fmt.Errorf("buffer slot %d: %w", i, backend.ErrReleased)
		}
		args.Buffers[i] = buf.data
	}
	for i := 0; i < backend.MaxTextureSlots; i++ {
		if cmd.Texture(i) == nil {
			continue
		}
		tex, ok := cmd.Texture(i).(*texture)
		if !ok {
			return nil, fmt.Errorf("%w: texture slot %d holds foreign %T", backend.ErrInvalidCommand, i, cmd.Texture(i))
		}
		if tex.released.Load() {
			return nil, fmt.Errorf("texture slot %d: %w", i, backend.ErrReleased)
		}
		args.Textures[i] = tex.surface
	}
	return args, nil
}

func (q *queue) run() {
	defer close(q.stopped)
	for j := range q.jobs {
		j.completion.Complete(q.execute(j))
	}
}

func (q *queue) execute(j job) error {
	start := time.Now()
	p := j.cmd.Pipeline.(*pipeline)

	q.dev.memory.Lock()
	defer q.dev.memory.Unlock()

	invoke, err := p.prepare(j.args)
	if err != nil {
		return fmt.Errorf("software: %s: %w", j.cmd.Label, err)
	}

	group := j.cmd.Group
	groups := group.GroupsFor(j.cmd.Grid)
	perLayer := int(groups.Width) * int(groups.Height)
	q.dev.pool.For(int(groups.Count()), func(g int) {
		gz := uint32(g / perLayer)
		gy := uint32(g % perLayer / int(groups.Width))
		gx := uint32(g % int(groups.Width))
		for lz := uint32(0); lz < group.Depth; lz++ {
			for ly := uint32(0); ly < group.Height; ly++ {
				for lx := uint32(0); lx < group.Width; lx++ {
					invoke(gx*group.Width+lx, gy*group.Height+ly, gz*group.Depth+lz)
				}
			}
		}
	})

	slogger().Debug("software: dispatch complete",
		"label", j.cmd.Label,
		"grid", j.cmd.Grid,
		"groups", groups,
		"elapsed", time.Since(start),
	)
	return nil
}

// Release stops the queue after pending submissions have executed.
func (q *queue) Release() {
	if q.released.CompareAndSwap(false, true) {
		close(q.jobs)
		<-q.stopped
	}
}
