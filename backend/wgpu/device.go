package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	// Register the Vulkan, Metal, DX12, GLES and software HAL backends.
	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/bradbury/backend"
)

// ErrUnsupportedProvider is returned by FromProvider when the provider
// does not hand out gogpu/wgpu handles.
var ErrUnsupportedProvider = errors.New("wgpu: device provider is not backed by gogpu/wgpu")

func init() {
	backend.Register(backend.BackendWGPU, func() (backend.Device, error) {
		return Open()
	})
}

// Device is a compute device backed by a gogpu/wgpu logical device.
type Device struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	info   gpucontext.AdapterInfo
	limits wgpu.Limits

	// owned is false when the device was borrowed from a DeviceProvider.
	owned  bool
	closed atomic.Bool
}

// Open creates an instance, selects the default adapter and creates a
// logical device on it.
func Open() (*Device, error) {
	instance, err := wgpu.CreateInstance(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create instance: %w", err)
	}
	adapter, err := instance.RequestAdapter(nil)
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	d := &Device{
		instance: instance,
		adapter:  adapter,
		device:   device,
		queue:    device.Queue(),
		info:     adapterInfo(adapter.Info()),
		limits:   device.Limits(),
		owned:    true,
	}
	logGPUInfo(adapter.Info())
	return d, nil
}

// FromProvider wraps a device owned by a host application, for example a
// windowing framework that already created one for its swapchain.
// Close on the returned Device does not release the provider's device.
func FromProvider(p gpucontext.DeviceProvider) (*Device, error) {
	device, ok := p.Device().(*wgpu.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: device is %T", ErrUnsupportedProvider, p.Device())
	}
	queue, ok := p.Queue().(*wgpu.Queue)
	if !ok || queue == nil {
		queue = device.Queue()
	}
	return &Device{
		device: device,
		queue:  queue,
		info:   p.AdapterInfo(),
		limits: device.Limits(),
	}, nil
}

// adapterInfo converts wgpu adapter metadata into the gpucontext form.
func adapterInfo(info wgpu.AdapterInfo) gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{
		Name: info.Name,
		Type: adapterType(info.DeviceType),
	}
}

func adapterType(t gputypes.DeviceType) gpucontext.AdapterType {
	switch t {
	case gputypes.DeviceTypeDiscreteGPU:
		return gpucontext.AdapterTypeDiscrete
	case gputypes.DeviceTypeIntegratedGPU:
		return gpucontext.AdapterTypeIntegrated
	case gputypes.DeviceTypeCPU:
		return gpucontext.AdapterTypeSoftware
	default:
		return gpucontext.AdapterTypeUnknown
	}
}

// logGPUInfo logs information about the selected GPU.
func logGPUInfo(info wgpu.AdapterInfo) {
	slogger().Info("wgpu: adapter selected",
		"name", info.Name,
		"type", info.DeviceType,
		"backend", info.Backend,
	)
	if info.Driver != "" {
		slogger().Debug("wgpu: driver", "driver", info.Driver, "info", info.DriverInfo)
	}
}

// Name returns the backend identifier.
func (d *Device) Name() string { return backend.BackendWGPU }

// Info describes the adapter behind the device.
func (d *Device) Info() gpucontext.AdapterInfo { return d.info }

// SetLogger sets the logger for this backend and the gogpu/wgpu stack.
func (d *Device) SetLogger(l *slog.Logger) {
	setLogger(l)
	wgpu.SetLogger(slogger())
}

// NewBuffer allocates a storage buffer. The size is rounded up to a
// multiple of 4 bytes.
func (d *Device) NewBuffer(desc *backend.BufferDescriptor) (backend.Buffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("wgpu: create buffer %q: zero size", desc.Label)
	}
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  alignUp(desc.Size, 4),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", desc.Label, err)
	}
	return &buffer{dev: d, buf: buf, size: desc.Size}, nil
}

// NewQueue returns a submission queue on the device's queue.
func (d *Device) NewQueue() (backend.Queue, error) {
	return &queue{dev: d, uniforms: make(map[int]*wgpu.Buffer)}, nil
}

// Close waits for outstanding work and releases the device if it is owned.
func (d *Device) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	if err := d.device.WaitIdle(); err != nil {
		slogger().Warn("wgpu: wait idle on close", "err", err)
	}
	if !d.owned {
		return
	}
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

type buffer struct {
	dev  *Device
	buf  *wgpu.Buffer
	size uint64
}

func (b *buffer) Size() uint64 { return b.size }

func (b *buffer) Write(offset uint64, data []byte) error {
	if b.buf == nil {
		return backend.ErrReleased
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("%w: write %d bytes at %d into %d", backend.ErrSizeMismatch, len(data), offset, b.size)
	}
	if err := b.dev.queue.WriteBuffer(b.buf, offset, data); err != nil {
		return fmt.Errorf("wgpu: write buffer: %w", err)
	}
	return nil
}

func (b *buffer) Release() {
	if b.buf != nil {
		b.buf.Release()
		b.buf = nil
	}
}
