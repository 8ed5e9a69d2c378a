package wgpu

import (
	"bytes"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/bradbury/internal/kernel"
)

func TestPaddedRowBytes(t *testing.T) {
	tests := []struct {
		row  uint32
		want uint32
	}{
		{4, 256},
		{256, 256},
		{257, 512},
		{800 * 4, 3328},
		{800 * 16, 12800},
	}
	for _, tt := range tests {
		if got := paddedRowBytes(tt.row); got != tt.want {
			t.Errorf("paddedRowBytes(%d) = %d, want %d", tt.row, got, tt.want)
		}
	}
}

func TestUnpackRows(t *testing.T) {
	const rowBytes, stride, rows = 3, 8, 3
	src := make([]byte, stride*rows)
	for y := 0; y < rows; y++ {
		for x := 0; x < rowBytes; x++ {
			src[y*stride+x] = byte(10*y + x + 1)
		}
		for x := rowBytes; x < stride; x++ {
			src[y*stride+x] = 0xEE
		}
	}
	dst := make([]byte, rowBytes*rows)
	unpackRows(dst, src, rowBytes, stride, rows)

	want := []byte{1, 2, 3, 11, 12, 13, 21, 22, 23}
	if !bytes.Equal(dst, want) {
		t.Errorf("unpackRows() = %v, want %v", dst, want)
	}

	tight := []byte{1, 2, 3, 4}
	out := make([]byte, 4)
	unpackRows(out, tight, 2, 2, 2)
	if !bytes.Equal(out, tight) {
		t.Errorf("unpackRows(tight) = %v, want %v", out, tight)
	}
}

func TestAlignUp(t *testing.T) {
	for _, tt := range []struct{ n, a, want uint64 }{
		{0, 4, 0}, {1, 4, 4}, {16, 16, 16}, {17, 16, 32},
	} {
		if got := alignUp(tt.n, tt.a); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.n, tt.a, got, tt.want)
		}
	}
}

func TestAdapterType(t *testing.T) {
	tests := map[gputypes.DeviceType]gpucontext.AdapterType{
		gputypes.DeviceTypeDiscreteGPU:   gpucontext.AdapterTypeDiscrete,
		gputypes.DeviceTypeIntegratedGPU: gpucontext.AdapterTypeIntegrated,
		gputypes.DeviceTypeCPU:           gpucontext.AdapterTypeSoftware,
		gputypes.DeviceTypeVirtualGPU:    gpucontext.AdapterTypeUnknown,
		gputypes.DeviceTypeOther:         gpucontext.AdapterTypeUnknown,
	}
	for in, want := range tests {
		if got := adapterType(in); got != want {
			t.Errorf("adapterType(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestRenderLayouts(t *testing.T) {
	prog, err := kernel.Load(kernel.ProgramRender)
	if err != nil {
		t.Fatalf("kernel.Load() error = %v", err)
	}
	groups := groupBindings(prog.Bindings())
	if len(groups) != 2 {
		t.Fatalf("groupBindings() = %d groups, want 2", len(groups))
	}

	buffers := layoutEntries(groups[0])
	if len(buffers) != 3 {
		t.Fatalf("group 0 has %d entries, want 3", len(buffers))
	}
	if buffers[kernel.SlotParams].Buffer == nil || buffers[kernel.SlotParams].Buffer.Type != gputypes.BufferBindingTypeUniform {
		t.Errorf("params entry = %+v, want uniform buffer", buffers[kernel.SlotParams])
	}
	for _, slot := range []int{kernel.SlotScene, kernel.SlotNoise} {
		if b := buffers[slot].Buffer; b == nil || b.Type != gputypes.BufferBindingTypeReadOnlyStorage {
			t.Errorf("slot %d entry = %+v, want read-only storage", slot, buffers[slot])
		}
	}

	textures := layoutEntries(groups[1])
	if len(textures) != 3 {
		t.Fatalf("group 1 has %d entries, want 3", len(textures))
	}
	if b := textures[kernel.SlotAccumulation].Buffer; b == nil || b.Type != gputypes.BufferBindingTypeStorage {
		t.Errorf("accumulation entry = %+v, want read-write storage", textures[kernel.SlotAccumulation])
	}
	if textures[kernel.SlotOutput].StorageTexture == nil {
		t.Errorf("output entry = %+v, want storage texture", textures[kernel.SlotOutput])
	}
	if textures[kernel.SlotEnvironment].Texture == nil {
		t.Errorf("environment entry = %+v, want sampled texture", textures[kernel.SlotEnvironment])
	}
	for _, e := range append(buffers, textures...) {
		if e.Visibility != gputypes.ShaderStageCompute {
			t.Errorf("binding %d visibility = %v, want compute", e.Binding, e.Visibility)
		}
	}
}
