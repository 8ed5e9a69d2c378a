// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kernel

import (
	"errors"
	"testing"
)

func TestLoadRender(t *testing.T) {
	p, err := Load(ProgramRender)
	if err != nil {
		t.Fatalf("Load(%q) error = %v", ProgramRender, err)
	}
	e, err := p.Entry(EntryRender)
	if err != nil {
		t.Fatalf("Entry(%q) error = %v", EntryRender, err)
	}
	if e.Workgroup != [3]uint32{8, 8, 1} {
		t.Errorf("Workgroup = %v, want [8 8 1]", e.Workgroup)
	}
	if got := e.ExecutionWidth(); got != 8 {
		t.Errorf("ExecutionWidth() = %d, want 8", got)
	}
	if got := e.MaxThreads(); got != 64 {
		t.Errorf("MaxThreads() = %d, want 64", got)
	}
}

func TestRenderBindingContract(t *testing.T) {
	p, err := Load(ProgramRender)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []Binding{
		{Group: 0, Binding: SlotParams, Name: "params", Kind: BindingUniform},
		{Group: 0, Binding: SlotScene, Name: "spheres", Kind: BindingStorageRead},
		{Group: 0, Binding: SlotNoise, Name: "noise", Kind: BindingStorageRead},
		{Group: 1, Binding: SlotAccumulation, Name: "accumulation", Kind: BindingStorageReadWrite},
		{Group: 1, Binding: SlotOutput, Name: "output", Kind: BindingStorageTexture},
		{Group: 1, Binding: SlotEnvironment, Name: "environment", Kind: BindingTexture},
	}
	got := p.Bindings()
	if len(got) != len(want) {
		t.Fatalf("Bindings() = %d entries, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("binding[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if n := len(p.BindingsInGroup(1)); n != 3 {
		t.Errorf("BindingsInGroup(1) = %d entries, want 3", n)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{
			name: "missing program",
			run: func() error {
				_, err := Load("does-not-exist")
				return err
			},
			want: ErrProgramNotFound,
		},
		{
			name: "missing entry point",
			run: func() error {
				p, err := Load(ProgramRender)
				if err != nil {
					return err
				}
				_, err = p.Entry("shade")
				return err
			},
			want: ErrEntryPointNotFound,
		},
		{
			name: "syntax error",
			run: func() error {
				_, err := Compile("broken", "@compute fn render( {")
				return err
			},
			want: ErrInvalidProgram,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompileComputeOnly(t *testing.T) {
	src := `
@group(0) @binding(0) var<storage, read_write> data: array<u32>;

@compute @workgroup_size(64)
fn fill(@builtin(global_invocation_id) id: vec3<u32>) {
    data[id.x] = id.x;
}
`
	p, err := Compile("fill", src)
	if err != nil {
		t.Fatalf("Compile() error = %v", err)
	}
	eps := p.EntryPoints()
	if len(eps) != 1 || eps[0].Name != "fill" {
		t.Fatalf("EntryPoints() = %+v, want [fill]", eps)
	}
	if eps[0].ExecutionWidth() != 64 || eps[0].MaxThreads() != 64 {
		t.Errorf("fill workgroup = %v, want [64 1 1]", eps[0].Workgroup)
	}
	if _, ok := Reference("fill"); ok {
		t.Error("Reference(fill) should not exist")
	}
}

func TestLoadCachesProgram(t *testing.T) {
	a, err := Load(ProgramRender)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load(ProgramRender)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("Load() compiled the same program twice")
	}
}
