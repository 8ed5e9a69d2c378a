package wgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu"

	"github.com/gogpu/bradbury/backend"
	"github.com/gogpu/bradbury/internal/kernel"
)

// uniformAlignment is the size granularity of uniform buffer bindings.
const uniformAlignment = 16

// queue encodes one compute pass per submission.
//
// Inline constants are uploaded into a uniform buffer owned by the queue,
// one per buffer slot, and rewritten on every submission. Writes are
// ordered on the device queue, so a submission sees the constants that
// were current when it was submitted.
type queue struct {
	dev *Device

	mu       sync.Mutex
	uniforms map[int]*wgpu.Buffer
	released atomic.Bool
}

func (q *queue) Submit(cmd *backend.Command) (*backend.Completion, error) {
	if q.released.Load() || q.dev.closed.Load() {
		return nil, backend.ErrReleased
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	p, ok := cmd.Pipeline.(*pipeline)
	if !ok {
		return nil, fmt.Errorf("%w: pipeline %T not created by the wgpu device", backend.ErrInvalidCommand, cmd.Pipeline)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	groups, err := q.bindGroups(cmd, p)
	if err != nil {
		return nil, err
	}
	release := func() {
		for _, g := range groups {
			g.Release()
		}
	}

	// The workgroup size is fixed by the shader; the command's group is
	// only used to validate the dispatch shape.
	wg := p.entry.Workgroup
	counts := backend.Size{Width: wg[0], Height: wg[1], Depth: wg[2]}.GroupsFor(cmd.Grid)

	cb, err := q.encode(cmd.Label, p, groups, counts)
	if err != nil {
		release()
		return nil, err
	}

	c := backend.NewCompletion()
	if _, err := q.dev.queue.Submit(cb); err != nil {
		cb.Release()
		release()
		return nil, fmt.Errorf("wgpu: submit %q: %w", cmd.Label, err)
	}
	go func() {
		q.dev.device.Poll(wgpu.PollWait)
		cb.Release()
		release()
		c.Complete(nil)
		slogger().Debug("wgpu: dispatch complete",
			"label", cmd.Label,
			"groups", counts,
			"elapsed", c.Duration(),
		)
	}()
	return c, nil
}

func (q *queue) encode(label string, p *pipeline, groups []*wgpu.BindGroup, counts backend.Size) (*wgpu.CommandBuffer, error) {
	encoder, err := q.dev.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create encoder: %w", err)
	}
	pass, err := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
	if err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("wgpu: begin compute pass: %w", err)
	}
	pass.SetPipeline(p.compute)
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g, nil)
	}
	pass.Dispatch(counts.Width, counts.Height, counts.Depth)
	if err := pass.End(); err != nil {
		encoder.DiscardEncoding()
		return nil, fmt.Errorf("wgpu: end compute pass: %w", err)
	}
	cb, err := encoder.Finish()
	if err != nil {
		return nil, fmt.Errorf("wgpu: finish encoder: %w", err)
	}
	return cb, nil
}

// bindGroups resolves the command's argument slots against the
// pipeline's layouts: group 0 binds buffer slots, group 1 texture slots.
func (q *queue) bindGroups(cmd *backend.Command, p *pipeline) ([]*wgpu.BindGroup, error) {
	groups := make([]*wgpu.BindGroup, 0, len(p.layouts))
	fail := func(err error) ([]*wgpu.BindGroup, error) {
		for _, g := range groups {
			g.Release()
		}
		return nil, err
	}
	for g, bindings := range p.bindings {
		entries := make([]wgpu.BindGroupEntry, 0, len(bindings))
		for _, b := range bindings {
			var (
				e   wgpu.BindGroupEntry
				err error
			)
			switch g {
			case 0:
				e, err = q.bufferEntry(cmd, b)
			case 1:
				e, err = textureEntry(cmd, b)
			default:
				err = fmt.Errorf("%w: no argument slots for group %d", backend.ErrInvalidCommand, g)
			}
			if err != nil {
				return fail(err)
			}
			entries = append(entries, e)
		}
		bg, err := q.dev.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", cmd.Label, g),
			Layout:  p.layouts[g],
			Entries: entries,
		})
		if err != nil {
			return fail(fmt.Errorf("wgpu: create bind group %d: %w", g, err))
		}
		groups = append(groups, bg)
	}
	return groups, nil
}

func (q *queue) bufferEntry(cmd *backend.Command, b kernel.Binding) (wgpu.BindGroupEntry, error) {
	slot := int(b.Binding)
	if slot >= backend.MaxBufferSlots {
		return wgpu.BindGroupEntry{}, fmt.Errorf("%w: binding %d out of buffer slots", backend.ErrInvalidCommand, slot)
	}
	if data := cmd.Bytes(slot); data != nil {
		buf, err := q.uniform(slot, data)
		if err != nil {
			return wgpu.BindGroupEntry{}, err
		}
		return wgpu.BindGroupEntry{Binding: b.Binding, Buffer: buf, Size: buf.Size()}, nil
	}
	buf, ok := cmd.Buffer(slot).(*buffer)
	if !ok || buf.buf == nil {
		return wgpu.BindGroupEntry{}, fmt.Errorf("%w: buffer slot %d (%s) is not bound", backend.ErrInvalidCommand, slot, b.Name)
	}
	return wgpu.BindGroupEntry{Binding: b.Binding, Buffer: buf.buf, Size: buf.buf.Size()}, nil
}

// uniform uploads inline constants to the slot's uniform buffer,
// growing it when needed.
func (q *queue) uniform(slot int, data []byte) (*wgpu.Buffer, error) {
	size := alignUp(uint64(len(data)), uniformAlignment)
	buf := q.uniforms[slot]
	if buf == nil || buf.Size() < size {
		if buf != nil {
			buf.Release()
		}
		var err error
		buf, err = q.dev.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: fmt.Sprintf("constants %d", slot),
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			delete(q.uniforms, slot)
			return nil, fmt.Errorf("wgpu: create uniform buffer: %w", err)
		}
		q.uniforms[slot] = buf
	}
	padded := make([]byte, size)
	copy(padded, data)
	if err := q.dev.queue.WriteBuffer(buf, 0, padded); err != nil {
		return nil, fmt.Errorf("wgpu: write uniform buffer: %w", err)
	}
	return buf, nil
}

func textureEntry(cmd *backend.Command, b kernel.Binding) (wgpu.BindGroupEntry, error) {
	slot := int(b.Binding)
	if slot >= backend.MaxTextureSlots {
		return wgpu.BindGroupEntry{}, fmt.Errorf("%w: binding %d out of texture slots", backend.ErrInvalidCommand, slot)
	}
	t, ok := cmd.Texture(slot).(*texture)
	if !ok || t.released() {
		return wgpu.BindGroupEntry{}, fmt.Errorf("%w: texture slot %d (%s) is not bound", backend.ErrInvalidCommand, slot, b.Name)
	}
	if t.buf != nil {
		return wgpu.BindGroupEntry{Binding: b.Binding, Buffer: t.buf, Size: t.byteSize()}, nil
	}
	return wgpu.BindGroupEntry{Binding: b.Binding, TextureView: t.view}, nil
}

func (q *queue) Release() {
	if !q.released.CompareAndSwap(false, true) {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	for slot, buf := range q.uniforms {
		buf.Release()
		delete(q.uniforms, slot)
	}
}
