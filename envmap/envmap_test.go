// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package envmap

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/backend/software"
)

const hdrHeader = "#?RADIANCE\nFORMAT=32-bit_rle_rgbe\n\n"

// rleChannel encodes one channel of a scanline as a single run or
// literal, which is enough for the test images.
func rleChannel(vals []byte) []byte {
	same := true
	for _, v := range vals {
		same = same && v == vals[0]
	}
	if same {
		return []byte{byte(128 + len(vals)), vals[0]}
	}
	return append([]byte{byte(len(vals))}, vals...)
}

func TestDecodeHDRFlat(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(hdrHeader + "-Y 1 +X 3\n")
	buf.Write([]byte{
		128, 64, 0, 129, // (1, 0.5, 0)
		128, 128, 128, 128, // (0.5, 0.5, 0.5)
		0, 0, 0, 0, // black
	})

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Width != 3 || img.Height != 1 {
		t.Fatalf("size = %dx%d, want 3x1", img.Width, img.Height)
	}
	tests := []struct {
		x       int
		r, g, b float32
	}{
		{0, 1, 0.5, 0},
		{1, 0.5, 0.5, 0.5},
		{2, 0, 0, 0},
	}
	for _, tt := range tests {
		r, g, b := img.At(tt.x, 0)
		if r != tt.r || g != tt.g || b != tt.b {
			t.Errorf("At(%d, 0) = (%v, %v, %v), want (%v, %v, %v)", tt.x, r, g, b, tt.r, tt.g, tt.b)
		}
	}
	if img.Pix[3] != 1 {
		t.Errorf("alpha = %v, want 1", img.Pix[3])
	}
}

func TestDecodeHDRAdaptiveRLE(t *testing.T) {
	const w = 8
	var buf bytes.Buffer
	buf.WriteString(hdrHeader + "-Y 2 +X 8\n")
	for y := 0; y < 2; y++ {
		buf.Write([]byte{2, 2, 0, w})
		red := make([]byte, w)
		for x := range red {
			red[x] = byte(16 * (x + 1))
		}
		buf.Write(rleChannel(red))
		buf.Write(rleChannel(bytes.Repeat([]byte{byte(64 * (y + 1))}, w)))
		buf.Write(rleChannel(bytes.Repeat([]byte{0}, w)))
		buf.Write(rleChannel(bytes.Repeat([]byte{136}, w))) // exponent 2^0
	}

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if r, g, _ := img.At(7, 1); r != 128 || g != 128 {
		t.Errorf("At(7, 1) = (%v, %v), want (128, 128)", r, g)
	}
	if r, g, _ := img.At(0, 0); r != 16 || g != 64 {
		t.Errorf("At(0, 0) = (%v, %v), want (16, 64)", r, g)
	}
}

func TestDecodeHDRExposure(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("#?RADIANCE\nFORMAT=32-bit_rle_rgbe\nEXPOSURE=2\n\n-Y 1 +X 1\n")
	buf.Write([]byte{128, 64, 0, 129})

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if r, g, _ := img.At(0, 0); r != 0.5 || g != 0.25 {
		t.Errorf("At(0, 0) = (%v, %v), want (0.5, 0.25)", r, g)
	}
}

func TestDecodeRejects(t *testing.T) {
	tests := map[string]string{
		"orientation":   hdrHeader + "+Y 1 +X 1\n\x80\x80\x80\x80",
		"zero size":     hdrHeader + "-Y 0 +X 1\n",
		"negative size": hdrHeader + "-Y -4 +X 4\n",
		"truncated":     hdrHeader + "-Y 2 +X 2\n\x80\x80\x80\x80",
		"no header":     "#?RADIANCE\n",
		"unknown":       "not an image",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(doc)); !errors.Is(err, ErrFormat) {
				t.Errorf("Decode() error = %v, want ErrFormat", err)
			}
		})
	}
}

func TestDecodeRejectsOversizedHeader(t *testing.T) {
	tests := map[string]string{
		"huge":     hdrHeader + "-Y 200000 +X 200000\n",
		"one row":  hdrHeader + "-Y 1 +X 67108865\n",
		"overflow": hdrHeader + "-Y 9223372036854775807 +X 9223372036854775807\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			if !errors.Is(err, ErrFormat) {
				t.Fatalf("Decode() error = %v, want ErrFormat", err)
			}
			if !strings.Contains(err.Error(), "texels") {
				t.Errorf("Decode() error = %v, want a size limit error", err)
			}
		})
	}
}

func TestCheckSize(t *testing.T) {
	if err := checkSize(8192, 8192); err != nil {
		t.Errorf("checkSize(8192, 8192) = %v, want nil", err)
	}
	if err := checkSize(8192, 8193); !errors.Is(err, ErrFormat) {
		t.Errorf("checkSize(8192, 8193) = %v, want ErrFormat", err)
	}
}

func TestDecodeSRGB(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, color.RGBA{255, 255, 255, 255})
	src.Set(1, 0, color.RGBA{0, 0, 0, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(png) error = %v", err)
	}
	if r, g, b := img.At(0, 0); math.Abs(float64(r-1)) > 1e-6 || g != r || b != r {
		t.Errorf("white = (%v, %v, %v), want 1", r, g, b)
	}
	if r, _, _ := img.At(1, 0); r != 0 {
		t.Errorf("black = %v, want 0", r)
	}
}

func TestSRGBToLinear(t *testing.T) {
	// Mid grey in sRGB is about 21% linear.
	got := srgbToLinear(0x8080)
	if got < 0.20 || got > 0.23 {
		t.Errorf("srgbToLinear(0.5) = %v, want ~0.216", got)
	}
	if srgbToLinear(0) != 0 {
		t.Error("srgbToLinear(0) != 0")
	}
}

func TestLoaderUploadsTexture(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(hdrHeader + "-Y 2 +X 2\n")
	for i := 0; i < 4; i++ {
		buf.Write([]byte{128, 64, 32, 129})
	}
	path := filepath.Join(t.TempDir(), "sky.hdr")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}

	dev := software.New(1)
	defer dev.Close()

	tex, err := Loader(dev, path)
	if err != nil {
		t.Fatalf("Loader() error = %v", err)
	}
	defer tex.Release()
	if tex.Width() != 2 || tex.Height() != 2 || tex.Format() != backend.TextureFormatRGBA32Float {
		t.Fatalf("texture = %dx%d %v", tex.Width(), tex.Height(), tex.Format())
	}

	raw := make([]byte, 2*2*16)
	if err := tex.Read(context.Background(), raw); err != nil {
		t.Fatal(err)
	}
	if r := math.Float32frombits(binary.LittleEndian.Uint32(raw)); r != 1 {
		t.Errorf("texel red = %v, want 1", r)
	}
}

func TestLoaderMissingFile(t *testing.T) {
	dev := software.New(1)
	defer dev.Close()
	if _, err := Loader(dev, filepath.Join(t.TempDir(), "missing.hdr")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Loader() error = %v, want os.ErrNotExist", err)
	}
}
