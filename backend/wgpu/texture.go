package wgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/bradbury/backend"
)

// copyRowAlignment is the required BytesPerRow alignment of
// texture-to-buffer copies.
const copyRowAlignment = 256

// texture is a 2D image. Read-write float images are kept in a storage
// buffer of vec4<f32> texels because read_write rgba32float storage
// textures are not part of core WebGPU; everything else is a real
// texture with a view.
type texture struct {
	dev    *Device
	width  uint32
	height uint32
	format backend.TextureFormat

	tex  *wgpu.Texture
	view *wgpu.TextureView
	buf  *wgpu.Buffer

	mu      sync.Mutex
	staging *wgpu.Buffer
}

// NewTexture allocates a 2D texture.
func (d *Device) NewTexture(desc *backend.TextureDescriptor) (backend.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: create texture %q: empty extent %dx%d", desc.Label, desc.Width, desc.Height)
	}
	if desc.Format.BytesPerPixel() == 0 {
		return nil, fmt.Errorf("wgpu: create texture %q: unsupported format %v", desc.Label, desc.Format)
	}
	t := &texture{dev: d, width: desc.Width, height: desc.Height, format: desc.Format}

	if desc.Access == backend.AccessReadWrite {
		if desc.Format != backend.TextureFormatRGBA32Float {
			return nil, fmt.Errorf("wgpu: create texture %q: read-write access needs %v, got %v",
				desc.Label, backend.TextureFormatRGBA32Float, desc.Format)
		}
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: desc.Label,
			Size:  t.byteSize(),
			Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
		})
		if err != nil {
			return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
		}
		t.buf = buf
		return t, nil
	}

	usage := wgpu.TextureUsageCopyDst | wgpu.TextureUsageCopySrc | wgpu.TextureUsageTextureBinding
	if desc.Access == backend.AccessWrite {
		usage |= wgpu.TextureUsageStorageBinding
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         desc.Label,
		Size:          wgpu.Extent3D{Width: desc.Width, Height: desc.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format.GPUFormat(),
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture %q: %w", desc.Label, err)
	}
	view, err := d.device.CreateTextureView(tex, &wgpu.TextureViewDescriptor{Label: desc.Label + " view"})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("wgpu: create texture view %q: %w", desc.Label, err)
	}
	t.tex, t.view = tex, view
	return t, nil
}

func (t *texture) Width() uint32                 { return t.width }
func (t *texture) Height() uint32                { return t.height }
func (t *texture) Format() backend.TextureFormat { return t.format }

func (t *texture) rowBytes() uint32 {
	return t.width * uint32(t.format.BytesPerPixel())
}

func (t *texture) byteSize() uint64 {
	return uint64(t.rowBytes()) * uint64(t.height)
}

func (t *texture) released() bool {
	return t.tex == nil && t.buf == nil
}

func (t *texture) Write(data []byte) error {
	if t.released() {
		return backend.ErrReleased
	}
	if uint64(len(data)) != t.byteSize() {
		return fmt.Errorf("%w: texture write %d bytes, want %d", backend.ErrSizeMismatch, len(data), t.byteSize())
	}
	if t.buf != nil {
		if err := t.dev.queue.WriteBuffer(t.buf, 0, data); err != nil {
			return fmt.Errorf("wgpu: write texture: %w", err)
		}
		return nil
	}
	err := t.dev.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: t.tex},
		data,
		&wgpu.ImageDataLayout{BytesPerRow: t.rowBytes(), RowsPerImage: t.height},
		&wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("wgpu: write texture: %w", err)
	}
	return nil
}

// Read copies the image into a staging buffer, maps it and unpacks the
// rows into dst. The staging buffer is kept for subsequent reads.
func (t *texture) Read(ctx context.Context, dst []byte) error {
	if t.released() {
		return backend.ErrReleased
	}
	if uint64(len(dst)) != t.byteSize() {
		return fmt.Errorf("%w: texture read into %d bytes, want %d", backend.ErrSizeMismatch, len(dst), t.byteSize())
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stride := t.rowBytes()
	if t.tex != nil {
		stride = paddedRowBytes(stride)
	}
	size := uint64(stride) * uint64(t.height)

	if t.staging == nil {
		staging, err := t.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "readback staging",
			Size:  size,
			Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("wgpu: create staging buffer: %w", err)
		}
		t.staging = staging
	}

	encoder, err := t.dev.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "readback"})
	if err != nil {
		return fmt.Errorf("wgpu: create encoder: %w", err)
	}
	if t.buf != nil {
		encoder.CopyBufferToBuffer(t.buf, 0, t.staging, 0, size)
	} else {
		encoder.CopyTextureToBuffer(t.tex, t.staging, []wgpu.BufferTextureCopy{{
			BufferLayout: wgpu.ImageDataLayout{BytesPerRow: stride, RowsPerImage: t.height},
			TextureBase:  wgpu.ImageCopyTexture{Texture: t.tex},
			Size:         wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1},
		}})
	}
	cmd, err := encoder.Finish()
	if err != nil {
		return fmt.Errorf("wgpu: finish readback: %w", err)
	}
	if _, err := t.dev.queue.Submit(cmd); err != nil {
		return fmt.Errorf("wgpu: submit readback: %w", err)
	}

	if err := t.staging.Map(ctx, wgpu.MapModeRead, 0, size); err != nil {
		return fmt.Errorf("wgpu: map staging buffer: %w", err)
	}
	defer func() { _ = t.staging.Unmap() }()
	rng, err := t.staging.MappedRange(0, size)
	if err != nil {
		return fmt.Errorf("wgpu: staging mapped range: %w", err)
	}
	unpackRows(dst, rng.Bytes(), t.rowBytes(), stride, t.height)
	rng.Release()
	return nil
}

func (t *texture) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.staging != nil {
		t.staging.Release()
		t.staging = nil
	}
	if t.view != nil {
		t.view.Release()
		t.view = nil
	}
	if t.tex != nil {
		t.tex.Release()
		t.tex = nil
	}
	if t.buf != nil {
		t.buf.Release()
		t.buf = nil
	}
}

// paddedRowBytes rounds a row up to the copy alignment.
func paddedRowBytes(row uint32) uint32 {
	return (row + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
}

// unpackRows copies rows of rowBytes from src, whose rows start every
// stride bytes, into the tightly packed dst.
func unpackRows(dst, src []byte, rowBytes, stride, rows uint32) {
	if rowBytes == stride {
		copy(dst, src[:rowBytes*rows])
		return
	}
	for y := uint32(0); y < rows; y++ {
		copy(dst[y*rowBytes:(y+1)*rowBytes], src[y*stride:y*stride+rowBytes])
	}
}
