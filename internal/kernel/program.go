// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kernel holds the path tracing compute kernel: the WGSL program,
// its reflected entry points and bindings, and a CPU reference
// implementation that mirrors the shader invocation for invocation.
package kernel

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// Program and entry point names.
const (
	// ProgramRender is the name of the embedded path tracing program.
	ProgramRender = "render"
	// EntryRender is the compute entry point invoked once per pixel.
	EntryRender = "render"
)

var (
	// ErrProgramNotFound is returned when no program exists under a name.
	ErrProgramNotFound = errors.New("kernel: program not found")

	// ErrEntryPointNotFound is returned when a program lacks the requested
	// compute entry point.
	ErrEntryPointNotFound = errors.New("kernel: entry point not found")

	// ErrInvalidProgram is returned when a program fails to parse or validate.
	ErrInvalidProgram = errors.New("kernel: invalid program")
)

// BindingKind classifies a resource binding declared by the program.
type BindingKind uint8

const (
	BindingUniform BindingKind = iota
	BindingStorageRead
	BindingStorageReadWrite
	BindingTexture
	BindingStorageTexture
)

func (k BindingKind) String() string {
	switch k {
	case BindingUniform:
		return "uniform"
	case BindingStorageRead:
		return "storage-read"
	case BindingStorageReadWrite:
		return "storage-read-write"
	case BindingTexture:
		return "texture"
	case BindingStorageTexture:
		return "storage-texture"
	default:
		return "unknown"
	}
}

// Binding is a resource binding reflected from the program.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Kind    BindingKind
}

// EntryPoint is a compute entry point reflected from the program.
type EntryPoint struct {
	Name      string
	Workgroup [3]uint32
}

// ExecutionWidth is the workgroup width.
func (e EntryPoint) ExecutionWidth() uint32 { return e.Workgroup[0] }

// MaxThreads is the total number of invocations per workgroup.
func (e EntryPoint) MaxThreads() uint32 {
	return e.Workgroup[0] * e.Workgroup[1] * e.Workgroup[2]
}

// Program is a compiled kernel program.
type Program struct {
	Name   string
	Source string

	entries  []EntryPoint
	bindings []Binding
}

// loaded caches compiled embedded programs. Programs are immutable, so
// renderers share them.
var (
	loadedMu sync.Mutex
	loaded   = map[string]*Program{}
)

// Load compiles the embedded program with the given name. Each program is
// compiled once per process.
func Load(name string) (*Program, error) {
	loadedMu.Lock()
	defer loadedMu.Unlock()
	if p, ok := loaded[name]; ok {
		return p, nil
	}

	src, err := fs.ReadFile(shaderFS, "shaders/"+name+".wgsl")
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrProgramNotFound, name)
	}
	p, err := Compile(name, string(src))
	if err != nil {
		return nil, err
	}
	loaded[name] = p
	return p, nil
}

// Compile parses, lowers and validates WGSL source and reflects its
// compute entry points and resource bindings.
func Compile(name, source string) (*Program, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, name, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, name, err)
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProgram, name, err)
	}
	if len(verrs) > 0 {
		msgs := make([]string, 0, len(verrs))
		for _, v := range verrs {
			msgs = append(msgs, v.Message)
		}
		return nil, fmt.Errorf("%w: %s: %s", ErrInvalidProgram, name, strings.Join(msgs, "; "))
	}

	p := &Program{Name: name, Source: source}
	for _, ep := range module.EntryPoints {
		if ep.Stage != ir.StageCompute {
			continue
		}
		p.entries = append(p.entries, EntryPoint{Name: ep.Name, Workgroup: ep.Workgroup})
	}
	p.bindings = reflectBindings(module)
	return p, nil
}

// Entry returns the named compute entry point.
func (p *Program) Entry(name string) (EntryPoint, error) {
	for _, e := range p.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return EntryPoint{}, fmt.Errorf("%w: %q in program %q", ErrEntryPointNotFound, name, p.Name)
}

// EntryPoints returns all compute entry points.
func (p *Program) EntryPoints() []EntryPoint {
	return append([]EntryPoint(nil), p.entries...)
}

// Bindings returns the program's resource bindings ordered by group and binding.
func (p *Program) Bindings() []Binding {
	return append([]Binding(nil), p.bindings...)
}

// BindingsInGroup returns the bindings of a single bind group.
func (p *Program) BindingsInGroup(group uint32) []Binding {
	var out []Binding
	for _, b := range p.bindings {
		if b.Group == group {
			out = append(out, b)
		}
	}
	return out
}

func reflectBindings(module *ir.Module) []Binding {
	var out []Binding
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		b := Binding{Group: gv.Binding.Group, Binding: gv.Binding.Binding, Name: gv.Name}
		switch gv.Space {
		case ir.SpaceUniform:
			b.Kind = BindingUniform
		case ir.SpaceStorage:
			b.Kind = BindingStorageReadWrite
			if gv.Access == ir.StorageRead {
				b.Kind = BindingStorageRead
			}
		case ir.SpaceHandle:
			b.Kind = BindingTexture
			if int(gv.Type) < len(module.Types) {
				if img, ok := module.Types[gv.Type].Inner.(ir.ImageType); ok && img.Class == ir.ImageClassStorage {
					b.Kind = BindingStorageTexture
				}
			}
		default:
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Binding < out[j].Binding
	})
	return out
}
