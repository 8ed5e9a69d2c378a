// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package envmap

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"math"
	"os"

	"github.com/mdouchement/hdr"
	_ "github.com/mdouchement/hdr/codec/rgbe" // Radiance HDR decoder
	_ "golang.org/x/image/bmp"                // BMP decoder
	_ "golang.org/x/image/tiff"               // TIFF decoder
	_ "golang.org/x/image/webp"               // WebP decoder

	"github.com/gogpu/bradbury/backend"
)

// MaxTexels bounds the size of a decoded environment map. The limit is
// checked against the file header before any pixel memory is allocated.
const MaxTexels = 1 << 26

var (
	// ErrEmpty is returned for an image without pixels.
	ErrEmpty = errors.New("envmap: empty image")

	// ErrFormat is returned for a file that cannot be decoded or whose
	// header declares an unusable size.
	ErrFormat = errors.New("envmap: invalid image")
)

// Image is a linear-light RGBA32F image, rows top to bottom.
type Image struct {
	Width  int
	Height int
	// Pix holds 4 floats per pixel.
	Pix []float32
}

// NewImage allocates a black, opaque image.
func NewImage(w, h int) *Image {
	img := &Image{Width: w, Height: h, Pix: make([]float32, w*h*4)}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 1
	}
	return img
}

// At returns the RGB value at (x, y).
func (m *Image) At(x, y int) (r, g, b float32) {
	i := (y*m.Width + x) * 4
	return m.Pix[i], m.Pix[i+1], m.Pix[i+2]
}

// Set stores an opaque RGB value at (x, y).
func (m *Image) Set(x, y int, r, g, b float32) {
	i := (y*m.Width + x) * 4
	m.Pix[i], m.Pix[i+1], m.Pix[i+2], m.Pix[i+3] = r, g, b, 1
}

// Bytes returns the little-endian texel data for upload.
func (m *Image) Bytes() []byte {
	out := make([]byte, len(m.Pix)*4)
	for i, v := range m.Pix {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Decode reads a Radiance HDR or any registered image format.
//
// HDR pixels are kept in linear light. Other formats are treated as sRGB.
// The header is checked against MaxTexels before the pixels are decoded.
func Decode(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("envmap: read: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if err := checkSize(cfg.Width, cfg.Height); err != nil {
		return nil, fmt.Errorf("%w (%s)", err, format)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFormat, format, err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, format)
	}
	img := NewImage(b.Dx(), b.Dy())
	if m, ok := src.(hdr.Image); ok {
		for y := 0; y < img.Height; y++ {
			for x := 0; x < img.Width; x++ {
				r, g, bl, _ := m.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
				img.Set(x, y, float32(r), float32(g), float32(bl))
			}
		}
		return img, nil
	}
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			r, g, bl, _ := src.At(b.Min.X+x, b.Min.Y+y).RGBA()
			img.Set(x, y, srgbToLinear(r), srgbToLinear(g), srgbToLinear(bl))
		}
	}
	return img, nil
}

// checkSize rejects header dimensions that are not positive or exceed
// MaxTexels.
func checkSize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrFormat, w, h)
	}
	if w > MaxTexels/h {
		return fmt.Errorf("%w: size %dx%d exceeds %d texels", ErrFormat, w, h, MaxTexels)
	}
	return nil
}

// srgbToLinear converts a 16-bit sRGB channel to linear light.
func srgbToLinear(c uint32) float32 {
	v := float64(c) / 0xffff
	if v <= 0.04045 {
		return float32(v / 12.92)
	}
	return float32(math.Pow((v+0.055)/1.055, 2.4))
}

// Load decodes the environment map at path.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("envmap: %w", err)
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return img, nil
}

// Upload creates a kernel-readable RGBA32F texture holding img.
func Upload(dev backend.Device, img *Image) (backend.Texture, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, ErrEmpty
	}
	tex, err := dev.NewTexture(&backend.TextureDescriptor{
		Label:  "environment",
		Width:  uint32(img.Width),
		Height: uint32(img.Height),
		Format: backend.TextureFormatRGBA32Float,
		Access: backend.AccessRead,
	})
	if err != nil {
		return nil, fmt.Errorf("envmap: create texture: %w", err)
	}
	if err := tex.Write(img.Bytes()); err != nil {
		tex.Release()
		return nil, fmt.Errorf("envmap: upload: %w", err)
	}
	return tex, nil
}

// Loader loads the environment map at path and uploads it to dev.
func Loader(dev backend.Device, path string) (backend.Texture, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Upload(dev, img)
}
