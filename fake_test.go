package bradbury

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/internal/kernel"
)

var (
	errFakeSubmit   = errors.New("fake: submit failed")
	errFakeReadback = errors.New("fake: readback failed")
	errFakeAlloc    = errors.New("fake: out of memory")
)

// fakeDevice records every resource and submission. Submissions complete
// immediately unless async is set.
type fakeDevice struct {
	mu sync.Mutex

	failTexture string // label whose creation fails
	submitErr   error
	execErr     error
	async       bool
	hold        chan struct{} // when set, frames complete once it is closed

	// Pipeline limits; zero reports 8 and 64.
	execWidth, maxThreads uint32

	live     int
	textures map[string]*fakeTexture
	commands []recorded
	logger   *slog.Logger
}

// recorded is a submitted command with a copy of the noise uploaded for it.
type recorded struct {
	cmd   *backend.Command
	noise []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{textures: map[string]*fakeTexture{}}
}

func (d *fakeDevice) Name() string { return "fake" }
func (d *fakeDevice) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "fake adapter", Type: gpucontext.AdapterTypeUnknown}
}
func (d *fakeDevice) Close() {}

func (d *fakeDevice) SetLogger(l *slog.Logger) {
	d.mu.Lock()
	d.logger = l
	d.mu.Unlock()
}

func (d *fakeDevice) currentLogger() *slog.Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logger
}

func (d *fakeDevice) NewComputePipeline(*backend.PipelineDescriptor) (backend.Pipeline, error) {
	d.acquire()
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &fakePipeline{dev: d, width: 8, maxThreads: 64}
	if d.execWidth != 0 || d.maxThreads != 0 {
		p.width, p.maxThreads = d.execWidth, d.maxThreads
	}
	return p, nil
}

func (d *fakeDevice) NewBuffer(desc *backend.BufferDescriptor) (backend.Buffer, error) {
	d.acquire()
	return &fakeBuffer{dev: d, data: make([]byte, desc.Size)}, nil
}

func (d *fakeDevice) NewTexture(desc *backend.TextureDescriptor) (backend.Texture, error) {
	if desc.Label == d.failTexture {
		return nil, errFakeAlloc
	}
	d.acquire()
	t := &fakeTexture{
		dev:    d,
		width:  desc.Width,
		height: desc.Height,
		format: desc.Format,
		data:   make([]byte, int(desc.Width)*int(desc.Height)*desc.Format.BytesPerPixel()),
	}
	d.mu.Lock()
	d.textures[desc.Label] = t
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDevice) NewQueue() (backend.Queue, error) {
	d.acquire()
	return &fakeQueue{dev: d}, nil
}

func (d *fakeDevice) acquire() {
	d.mu.Lock()
	d.live++
	d.mu.Unlock()
}

func (d *fakeDevice) release() {
	d.mu.Lock()
	d.live--
	d.mu.Unlock()
}

func (d *fakeDevice) liveResources() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.live
}

func (d *fakeDevice) submitted() []recorded {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recorded(nil), d.commands...)
}

func (d *fakeDevice) texture(label string) *fakeTexture {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.textures[label]
}

type fakePipeline struct {
	dev               *fakeDevice
	width, maxThreads uint32
}

func (p *fakePipeline) ThreadExecutionWidth() uint32    { return p.width }
func (p *fakePipeline) MaxTotalThreadsPerGroup() uint32 { return p.maxThreads }
func (p *fakePipeline) Release()                        { p.dev.release() }

type fakeBuffer struct {
	dev  *fakeDevice
	data []byte
}

func (b *fakeBuffer) Size() uint64 { return uint64(len(b.data)) }
func (b *fakeBuffer) Write(offset uint64, data []byte) error {
	copy(b.data[offset:], data)
	return nil
}
func (b *fakeBuffer) Release() { b.dev.release() }

type fakeTexture struct {
	dev           *fakeDevice
	width, height uint32
	format        backend.TextureFormat
	data          []byte

	mu      sync.Mutex
	readErr error
	reads   int
}

func (t *fakeTexture) Width() uint32                 { return t.width }
func (t *fakeTexture) Height() uint32                { return t.height }
func (t *fakeTexture) Format() backend.TextureFormat { return t.format }
func (t *fakeTexture) Release()                      { t.dev.release() }

func (t *fakeTexture) Write(data []byte) error {
	copy(t.data, data)
	return nil
}

func (t *fakeTexture) Read(_ context.Context, dst []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads++
	if t.readErr != nil {
		return t.readErr
	}
	copy(dst, t.data)
	return nil
}

func (t *fakeTexture) setReadErr(err error) {
	t.mu.Lock()
	t.readErr = err
	t.mu.Unlock()
}

func (t *fakeTexture) readCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reads
}

type fakeQueue struct{ dev *fakeDevice }

func (q *fakeQueue) Submit(cmd *backend.Command) (*backend.Completion, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	d := q.dev
	d.mu.Lock()
	if d.submitErr != nil {
		d.mu.Unlock()
		return nil, d.submitErr
	}
	rec := recorded{cmd: cmd}
	if nb, ok := cmd.Buffer(kernel.SlotNoise).(*fakeBuffer); ok {
		rec.noise = append([]byte(nil), nb.data...)
	}
	d.commands = append(d.commands, rec)
	execErr, async, hold := d.execErr, d.async, d.hold
	d.mu.Unlock()

	c := backend.NewCompletion()
	switch {
	case hold != nil:
		go func() {
			<-hold
			c.Complete(execErr)
		}()
	case async:
		go func() {
			time.Sleep(time.Millisecond)
			c.Complete(execErr)
		}()
	default:
		c.Complete(execErr)
	}
	return c, nil
}

func (q *fakeQueue) Release() { q.dev.release() }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
