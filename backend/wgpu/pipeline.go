package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/internal/kernel"
)

// pipeline is a compute pipeline plus the bind group layouts derived from
// the program's reflected bindings.
type pipeline struct {
	entry    kernel.EntryPoint
	module   *wgpu.ShaderModule
	layouts  []*wgpu.BindGroupLayout
	bindings [][]kernel.Binding
	layout   *wgpu.PipelineLayout
	compute  *wgpu.ComputePipeline
}

// NewComputePipeline compiles the program's WGSL and builds a pipeline
// for the named entry point.
func (d *Device) NewComputePipeline(desc *backend.PipelineDescriptor) (backend.Pipeline, error) {
	if desc == nil || desc.Program == nil {
		return nil, fmt.Errorf("wgpu: create pipeline: %w", kernel.ErrProgramNotFound)
	}
	entry, err := desc.Program.Entry(desc.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create pipeline: %w", err)
	}
	if limit := d.limits.MaxComputeInvocationsPerWorkgroup; limit > 0 && entry.MaxThreads() > limit {
		return nil, fmt.Errorf("wgpu: create pipeline %q: workgroup %v exceeds %d invocations",
			desc.Label, entry.Workgroup, limit)
	}

	p := &pipeline{entry: entry}
	if err := p.build(d, desc); err != nil {
		p.Release()
		return nil, err
	}
	slogger().Debug("wgpu: pipeline created",
		"label", desc.Label,
		"entry", entry.Name,
		"workgroup", entry.Workgroup,
		"groups", len(p.layouts),
	)
	return p, nil
}

func (p *pipeline) build(d *Device, desc *backend.PipelineDescriptor) error {
	var err error
	p.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: desc.Program.Name,
		WGSL:  desc.Program.Source,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create shader module %q: %w", desc.Program.Name, err)
	}

	p.bindings = groupBindings(desc.Program.Bindings())
	for g, bindings := range p.bindings {
		layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", desc.Label, g),
			Entries: layoutEntries(bindings),
		})
		if err != nil {
			return fmt.Errorf("wgpu: create bind group layout %d: %w", g, err)
		}
		p.layouts = append(p.layouts, layout)
	}

	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}

	p.compute, err = d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      desc.Label,
		Layout:     p.layout,
		Module:     p.module,
		EntryPoint: desc.EntryPoint,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create compute pipeline %q: %w", desc.Label, err)
	}
	return nil
}

// groupBindings splits bindings by group. Groups without bindings get an
// empty slice so that group indices line up with layout indices.
func groupBindings(bindings []kernel.Binding) [][]kernel.Binding {
	var groups [][]kernel.Binding
	for _, b := range bindings {
		for uint32(len(groups)) <= b.Group {
			groups = append(groups, nil)
		}
		groups[b.Group] = append(groups[b.Group], b)
	}
	return groups
}

// layoutEntries maps reflected bindings to bind group layout entries.
func layoutEntries(bindings []kernel.Binding) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
	for _, b := range bindings {
		e := wgpu.BindGroupLayoutEntry{Binding: b.Binding, Visibility: wgpu.ShaderStageCompute}
		switch b.Kind {
		case kernel.BindingUniform:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}
		case kernel.BindingStorageRead:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
		case kernel.BindingStorageReadWrite:
			e.Buffer = &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}
		case kernel.BindingTexture:
			e.Texture = &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeUnfilterableFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		case kernel.BindingStorageTexture:
			// Kernel outputs are always rgba8unorm.
			e.StorageTexture = &gputypes.StorageTextureBindingLayout{
				Access:        gputypes.StorageTextureAccessWriteOnly,
				Format:        gputypes.TextureFormatRGBA8Unorm,
				ViewDimension: gputypes.TextureViewDimension2D,
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// ThreadExecutionWidth is the x extent of the shader's workgroup.
func (p *pipeline) ThreadExecutionWidth() uint32 { return p.entry.ExecutionWidth() }

// MaxTotalThreadsPerGroup is the shader's fixed workgroup size.
func (p *pipeline) MaxTotalThreadsPerGroup() uint32 { return p.entry.MaxThreads() }

func (p *pipeline) Release() {
	if p.compute != nil {
		p.compute.Release()
		p.compute = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, l := range p.layouts {
		l.Release()
	}
	p.layouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
