package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	errRecorderFinished = errors.New("command recorder already finished")
	errPassOpen         = errors.New("render pass is open")
	errNoPass           = errors.New("no render pass is open")
)

type recorder struct {
	label   string
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
}

var _ gpu.CommandRecorder = &recorder{}

func (r *recorder) check(wantPass bool) error {
	if r.encoder == nil {
		return errRecorderFinished
	}
	if wantPass && r.pass == nil {
		return errNoPass
	}
	if !wantPass && r.pass != nil {
		return errPassOpen
	}
	return nil
}

func nativeBuffer(b gpu.Buffer) (*buffer, error) {
	nb, ok := b.(*buffer)
	if !ok {
		return nil, fmt.Errorf("foreign buffer %T", b)
	}
	return nb, nil
}

func (r *recorder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	if err := r.check(false); err != nil {
		return err
	}
	s, err := nativeBuffer(src)
	if err != nil {
		return err
	}
	d, err := nativeBuffer(dst)
	if err != nil {
		return err
	}
	if srcOffset+size > src.Size() || dstOffset+size > dst.Size() {
		return fmt.Errorf("copy of %d bytes from %q+%d to %q+%d is out of range", size, src.Label(), srcOffset, dst.Label(), dstOffset)
	}

	// Both buffers are allocated with 4-byte padded sizes.
	r.encoder.CopyBufferToBuffer(s.handle, srcOffset, d.handle, dstOffset, common.AlignUp(size, gpu.CopyBufferAlignment))
	return nil
}

func (r *recorder) CopyBufferToTexture(src gpu.Buffer, layout gpu.TextureDataLayout, dst gpu.Texture, mipLevel uint32, extent gpu.Extent) error {
	if err := r.check(false); err != nil {
		return err
	}
	s, err := nativeBuffer(src)
	if err != nil {
		return err
	}
	t, ok := dst.(*texture)
	if !ok {
		return fmt.Errorf("foreign texture %T", dst)
	}

	r.encoder.CopyBufferToTexture(
		&wgpu.ImageCopyBuffer{
			Layout: wgpu.TextureDataLayout{
				Offset:       layout.Offset,
				BytesPerRow:  layout.BytesPerRow,
				RowsPerImage: layout.RowsPerImage,
			},
			Buffer: s.handle,
		},
		&wgpu.ImageCopyTexture{
			Texture:  t.handle,
			MipLevel: mipLevel,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.Extent3D{
			Width:              extent.Width,
			Height:             extent.Height,
			DepthOrArrayLayers: 1,
		},
	)
	return nil
}

func (r *recorder) BeginRenderPass(target gpu.Framebuffer, clear gpu.ClearValues) error {
	if err := r.check(false); err != nil {
		return err
	}
	fb, ok := target.(*Framebuffer)
	if !ok {
		return fmt.Errorf("foreign framebuffer %T", target)
	}

	// With MSAA the multisampled view is drawn into and resolved into the surface view,
	// so its contents do not need to be stored.
	storeOp := wgpu.StoreOpStore
	if fb.ResolveTarget != nil {
		storeOp = wgpu.StoreOpDiscard
	}
	desc := &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          fb.ColorView,
				ResolveTarget: fb.ResolveTarget,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue: wgpu.Color{
					R: clear.Color.R, G: clear.Color.G, B: clear.Color.B, A: clear.Color.A,
				},
			},
		},
	}
	if fb.DepthView != nil {
		desc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            fb.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: clear.Depth,
		}
	}
	r.pass = r.encoder.BeginRenderPass(desc)
	return nil
}

func (r *recorder) SetPipeline(pipeline gpu.Pipeline) error {
	if err := r.check(true); err != nil {
		return err
	}
	lp, ok := pipeline.(LayoutProvider)
	if !ok {
		return fmt.Errorf("pipeline %q has no native render pipeline", pipeline.Label())
	}
	r.pass.SetPipeline(lp.RenderPipeline())
	return nil
}

func (r *recorder) SetDescriptorSets(sets gpu.DescriptorSets) error {
	if err := r.check(true); err != nil {
		return err
	}
	for slot, set := range []gpu.DescriptorSet{sets.Frame, sets.Node, sets.Material} {
		ds, ok := set.(*descriptorSet)
		if !ok {
			return fmt.Errorf("descriptor set slot %d: foreign or missing set %T", slot, set)
		}
		r.pass.SetBindGroup(uint32(slot), ds.handle, nil)
	}
	return nil
}

func (r *recorder) SetVertexBuffer(slot uint32, slice gpu.BufferSlice) error {
	if err := r.check(true); err != nil {
		return err
	}
	b, err := nativeBuffer(slice.Buffer)
	if err != nil {
		return err
	}
	r.pass.SetVertexBuffer(slot, b.handle, slice.Offset, slice.Size)
	return nil
}

func (r *recorder) SetIndexBuffer(slice gpu.BufferSlice, format gpu.IndexFormat) error {
	if err := r.check(true); err != nil {
		return err
	}
	b, err := nativeBuffer(slice.Buffer)
	if err != nil {
		return err
	}
	r.pass.SetIndexBuffer(b.handle, toIndexFormat(format), slice.Offset, slice.Size)
	return nil
}

func (r *recorder) Draw(vertexCount, instanceCount uint32) error {
	if err := r.check(true); err != nil {
		return err
	}
	r.pass.Draw(vertexCount, instanceCount, 0, 0)
	return nil
}

func (r *recorder) DrawIndexed(indexCount, instanceCount uint32) error {
	if err := r.check(true); err != nil {
		return err
	}
	r.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
	return nil
}

func (r *recorder) EndRenderPass() error {
	if err := r.check(true); err != nil {
		return err
	}
	r.pass.End()
	r.pass = nil
	return nil
}

func (r *recorder) Finish() (gpu.CommandBuffer, error) {
	if err := r.check(false); err != nil {
		return nil, err
	}
	cb, err := r.encoder.Finish(nil)
	r.encoder.Release()
	r.encoder = nil
	if err != nil {
		return nil, fmt.Errorf("failed to finish command encoder %q: %w", r.label, err)
	}
	return &commandBuffer{handle: cb}, nil
}
