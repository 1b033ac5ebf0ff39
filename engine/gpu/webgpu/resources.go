// Package webgpu implements the engine/gpu capabilities on top of cogentcore/webgpu.
package webgpu

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

type buffer struct {
	label  string
	size   uint64
	handle *wgpu.Buffer
}

var _ gpu.Buffer = &buffer{}

func (b *buffer) Label() string { return b.label }
func (b *buffer) Size() uint64  { return b.size }
func (b *buffer) Release()      { b.handle.Release() }

type texture struct {
	desc   gpu.TextureDescriptor
	handle *wgpu.Texture
	view   *wgpu.TextureView
}

var _ gpu.Texture = &texture{}

func (t *texture) Label() string             { return t.desc.Label }
func (t *texture) Width() uint32             { return t.desc.Width }
func (t *texture) Height() uint32            { return t.desc.Height }
func (t *texture) MipLevelCount() uint32     { return t.desc.MipLevelCount }
func (t *texture) Format() gpu.TextureFormat { return t.desc.Format }

func (t *texture) Release() {
	t.view.Release()
	t.handle.Release()
}

type sampler struct {
	handle *wgpu.Sampler
}

func (s *sampler) Release() { s.handle.Release() }

type descriptorSet struct {
	label  string
	slot   uint32
	handle *wgpu.BindGroup
}

var _ gpu.DescriptorSet = &descriptorSet{}

func (d *descriptorSet) Label() string { return d.label }
func (d *descriptorSet) Slot() uint32  { return d.slot }
func (d *descriptorSet) Release()      { d.handle.Release() }

type commandBuffer struct {
	handle *wgpu.CommandBuffer
}

func (c *commandBuffer) Release() { c.handle.Release() }

// Handle returns the wgpu command buffer of a command buffer finished by this package.
//
// Parameters:
//   - cb: a command buffer returned by a recorder of this package
//
// Returns:
//   - *wgpu.CommandBuffer: the native handle, or nil if cb came from another backend
func Handle(cb gpu.CommandBuffer) *wgpu.CommandBuffer {
	c, ok := cb.(*commandBuffer)
	if !ok {
		return nil
	}
	return c.handle
}

// Framebuffer is a render target made of a color view, an optional MSAA resolve target and a depth view.
// It is rebuilt every frame from the acquired surface texture.
type Framebuffer struct {
	ColorView     *wgpu.TextureView
	ResolveTarget *wgpu.TextureView
	DepthView     *wgpu.TextureView
	W, H          uint32
}

var _ gpu.Framebuffer = &Framebuffer{}

func (f *Framebuffer) Width() uint32  { return f.W }
func (f *Framebuffer) Height() uint32 { return f.H }

// LayoutProvider is implemented by pipelines that expose their bind group layouts.
// Descriptor sets can only be created against pipelines implementing it.
type LayoutProvider interface {
	gpu.Pipeline

	// BindGroupLayout returns the layout of the given descriptor set slot.
	//
	// Parameters:
	//   - slot: the bind group index
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the layout for the slot
	//   - error: an error if the pipeline has no such slot
	BindGroupLayout(slot uint32) (*wgpu.BindGroupLayout, error)

	// RenderPipeline returns the native render pipeline.
	RenderPipeline() *wgpu.RenderPipeline
}

func toBufferUsage(u gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage
	if u.Has(gpu.BufferUsageCopySrc) {
		out |= wgpu.BufferUsageCopySrc
	}
	if u.Has(gpu.BufferUsageCopyDst) {
		out |= wgpu.BufferUsageCopyDst
	}
	if u.Has(gpu.BufferUsageIndex) {
		out |= wgpu.BufferUsageIndex
	}
	if u.Has(gpu.BufferUsageVertex) {
		out |= wgpu.BufferUsageVertex
	}
	if u.Has(gpu.BufferUsageUniform) {
		out |= wgpu.BufferUsageUniform
	}
	if u.Has(gpu.BufferUsageStorage) {
		out |= wgpu.BufferUsageStorage
	}
	if u.Has(gpu.BufferUsageIndirect) {
		out |= wgpu.BufferUsageIndirect
	}
	return out
}

func toTextureFormat(f gpu.TextureFormat) wgpu.TextureFormat {
	switch f {
	case gpu.TextureFormatR8Unorm:
		return wgpu.TextureFormatR8Unorm
	case gpu.TextureFormatRG8Unorm:
		return wgpu.TextureFormatRG8Unorm
	default:
		return wgpu.TextureFormatRGBA8UnormSrgb
	}
}

func toIndexFormat(f gpu.IndexFormat) wgpu.IndexFormat {
	if f == gpu.IndexFormatUint16 {
		return wgpu.IndexFormatUint16
	}
	return wgpu.IndexFormatUint32
}

func toAddressMode(m gpu.AddressMode) wgpu.AddressMode {
	switch m {
	case gpu.AddressModeMirrorRepeat:
		return wgpu.AddressModeMirrorRepeat
	case gpu.AddressModeClampToEdge:
		return wgpu.AddressModeClampToEdge
	default:
		return wgpu.AddressModeRepeat
	}
}

func toFilterMode(m gpu.FilterMode) wgpu.FilterMode {
	if m == gpu.FilterModeNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func toMipmapFilterMode(m gpu.FilterMode) wgpu.MipmapFilterMode {
	if m == gpu.FilterModeNearest {
		return wgpu.MipmapFilterModeNearest
	}
	return wgpu.MipmapFilterModeLinear
}
