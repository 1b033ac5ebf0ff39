package webgpu

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/cogentcore/webgpu/wgpu"
)

type device struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue
}

// Device is a gpu.Device backed by a wgpu device. Submit hands finished command buffers to the queue.
type Device interface {
	gpu.Device

	// Submit submits finished command buffers to the device queue in order and releases them.
	//
	// Parameters:
	//   - buffers: command buffers produced by recorders of this device
	Submit(buffers ...gpu.CommandBuffer)

	// WriteBuffer schedules a direct queue write into a device buffer.
	//
	// Parameters:
	//   - dst: a buffer created by this device
	//   - offset: the byte offset into dst
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if dst was not created by this device
	WriteBuffer(dst gpu.Buffer, offset uint64, data []byte) error

	// Native returns the wrapped wgpu device.
	Native() *wgpu.Device
}

var _ Device = &device{}

// NewDevice wraps an existing wgpu device and its queue.
//
// Parameters:
//   - d: the wgpu device
//   - q: the queue of d
//
// Returns:
//   - Device: the wrapped device
func NewDevice(d *wgpu.Device, q *wgpu.Queue) Device {
	return &device{
		mu:     &sync.Mutex{},
		device: d,
		queue:  q,
	}
}

func (d *device) Native() *wgpu.Device {
	return d.device
}

func (d *device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  common.AlignUp(max(desc.Size, gpu.CopyBufferAlignment), gpu.CopyBufferAlignment),
		Usage: toBufferUsage(desc.Usage),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer %q: %w", desc.Label, err)
	}
	return &buffer{label: desc.Label, size: desc.Size, handle: buf}, nil
}

func (d *device) CreateStagingBuffer(label string, contents []byte) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Copy sizes must be 4-byte multiples, so the staged payload is zero padded.
	padded := contents
	if rem := len(contents) % gpu.CopyBufferAlignment; rem != 0 || len(contents) == 0 {
		padded = make([]byte, common.AlignUp(uint64(max(len(contents), 1)), gpu.CopyBufferAlignment))
		copy(padded, contents)
	}

	buf, err := d.device.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    label,
		Contents: padded,
		Usage:    wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create staging buffer %q: %w", label, err)
	}
	return &buffer{label: label, size: uint64(len(contents)), handle: buf}, nil
}

func (d *device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     desc.Label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        toTextureFormat(desc.Format),
		MipLevelCount: desc.MipLevelCount,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %q: %w", desc.Label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for texture %q: %w", desc.Label, err)
	}
	return &texture{desc: desc, handle: tex, view: view}, nil
}

func (d *device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  toAddressMode(desc.AddressModeU),
		AddressModeV:  toAddressMode(desc.AddressModeV),
		AddressModeW:  toAddressMode(desc.AddressModeW),
		MagFilter:     toFilterMode(desc.MagFilter),
		MinFilter:     toFilterMode(desc.MinFilter),
		MipmapFilter:  toMipmapFilterMode(desc.MipmapFilter),
		LodMinClamp:   desc.LodMinClamp,
		LodMaxClamp:   common.Coalesce(desc.LodMaxClamp, 32.0),
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler %q: %w", desc.Label, err)
	}
	return &sampler{handle: samp}, nil
}

func (d *device) CreateDescriptorSet(pipeline gpu.Pipeline, desc gpu.DescriptorSetDescriptor) (gpu.DescriptorSet, error) {
	lp, ok := pipeline.(LayoutProvider)
	if !ok {
		return nil, fmt.Errorf("pipeline %q does not expose bind group layouts", pipeline.Label())
	}
	layout, err := lp.BindGroupLayout(desc.Slot)
	if err != nil {
		return nil, err
	}

	entries := make([]wgpu.BindGroupEntry, 0, len(desc.Entries))
	for _, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			b, ok := e.Buffer.(*buffer)
			if !ok {
				return nil, fmt.Errorf("binding %d of %q: foreign buffer %T", e.Binding, desc.Label, e.Buffer)
			}
			entry.Buffer = b.handle
			entry.Offset = 0
			entry.Size = wgpu.WholeSize
		case e.Texture != nil:
			t, ok := e.Texture.(*texture)
			if !ok {
				return nil, fmt.Errorf("binding %d of %q: foreign texture %T", e.Binding, desc.Label, e.Texture)
			}
			entry.TextureView = t.view
		case e.Sampler != nil:
			s, ok := e.Sampler.(*sampler)
			if !ok {
				return nil, fmt.Errorf("binding %d of %q: foreign sampler %T", e.Binding, desc.Label, e.Sampler)
			}
			entry.Sampler = s.handle
		default:
			return nil, fmt.Errorf("binding %d of %q binds no resource", e.Binding, desc.Label)
		}
		entries = append(entries, entry)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group %q: %w", desc.Label, err)
	}
	return &descriptorSet{label: desc.Label, slot: desc.Slot, handle: bg}, nil
}

func (d *device) CreateCommandRecorder(label string) (gpu.CommandRecorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("failed to create command encoder %q: %w", label, err)
	}
	return &recorder{label: label, encoder: encoder}, nil
}

func (d *device) Submit(buffers ...gpu.CommandBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, cb := range buffers {
		h := Handle(cb)
		if h == nil {
			continue
		}
		d.queue.Submit(h)
		h.Release()
	}
}

func (d *device) WriteBuffer(dst gpu.Buffer, offset uint64, data []byte) error {
	b, ok := dst.(*buffer)
	if !ok {
		return fmt.Errorf("foreign buffer %T", dst)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.queue.WriteBuffer(b.handle, offset, data)
	return nil
}
