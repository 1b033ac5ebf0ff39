// Package gputest provides an in-memory gpu.Device that records every allocation and command,
// and can replay copy commands so tests can inspect uploaded bytes.
package gputest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

// ErrInjected is returned by allocations whose label matches Device.FailLabelPrefix.
var ErrInjected = errors.New("gputest: injected allocation failure")

// Buffer is an in-memory gpu.Buffer.
type Buffer struct {
	label    string
	Usage    gpu.BufferUsage
	Staging  bool
	Data     []byte
	Released bool
}

var _ gpu.Buffer = &Buffer{}

func (b *Buffer) Label() string { return b.label }
func (b *Buffer) Size() uint64  { return uint64(len(b.Data)) }
func (b *Buffer) Release()      { b.Released = true }

// Texture is an in-memory gpu.Texture. Levels holds the tightly packed bytes of each mip level.
type Texture struct {
	Desc     gpu.TextureDescriptor
	Levels   [][]byte
	Released bool
}

var _ gpu.Texture = &Texture{}

func (t *Texture) Label() string             { return t.Desc.Label }
func (t *Texture) Width() uint32             { return t.Desc.Width }
func (t *Texture) Height() uint32            { return t.Desc.Height }
func (t *Texture) MipLevelCount() uint32     { return t.Desc.MipLevelCount }
func (t *Texture) Format() gpu.TextureFormat { return t.Desc.Format }
func (t *Texture) Release()                  { t.Released = true }

// Sampler is an in-memory gpu.Sampler.
type Sampler struct {
	Desc     gpu.SamplerDescriptor
	Released bool
}

func (s *Sampler) Release() { s.Released = true }

// DescriptorSet is an in-memory gpu.DescriptorSet.
type DescriptorSet struct {
	Desc     gpu.DescriptorSetDescriptor
	Released bool
}

var _ gpu.DescriptorSet = &DescriptorSet{}

func (d *DescriptorSet) Label() string { return d.Desc.Label }
func (d *DescriptorSet) Slot() uint32  { return d.Desc.Slot }
func (d *DescriptorSet) Release()      { d.Released = true }

// Pipeline is a fake pipeline whose layout has Slots descriptor set slots.
type Pipeline struct {
	Name  string
	Slots uint32
}

// NewPipeline returns a pipeline with the three scene slots (frame, node, material).
func NewPipeline(name string) *Pipeline {
	return &Pipeline{Name: name, Slots: 3}
}

func (p *Pipeline) Label() string { return p.Name }

// Framebuffer is a fake render target.
type Framebuffer struct {
	W, H uint32
}

func (f *Framebuffer) Width() uint32  { return f.W }
func (f *Framebuffer) Height() uint32 { return f.H }

// Device is an in-memory gpu.Device. All fields are safe to read after the code under test returns.
type Device struct {
	mu sync.Mutex

	// FailLabelPrefix makes every allocation whose label starts with it fail with ErrInjected.
	FailLabelPrefix string

	Buffers        []*Buffer
	Textures       []*Texture
	Samplers       []*Sampler
	DescriptorSets []*DescriptorSet
	Recorders      []*Recorder
}

var _ gpu.Device = &Device{}

// NewDevice returns an empty recording device.
func NewDevice() *Device {
	return &Device{}
}

func (d *Device) fail(label string) error {
	if d.FailLabelPrefix != "" && strings.HasPrefix(label, d.FailLabelPrefix) {
		return fmt.Errorf("%s: %w", label, ErrInjected)
	}
	return nil
}

func (d *Device) CreateBuffer(desc gpu.BufferDescriptor) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(desc.Label); err != nil {
		return nil, err
	}
	b := &Buffer{label: desc.Label, Usage: desc.Usage, Data: make([]byte, desc.Size)}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateStagingBuffer(label string, contents []byte) (gpu.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(label); err != nil {
		return nil, err
	}
	b := &Buffer{
		label:   label,
		Usage:   gpu.BufferUsageCopySrc,
		Staging: true,
		Data:    append([]byte(nil), contents...),
	}
	d.Buffers = append(d.Buffers, b)
	return b, nil
}

func (d *Device) CreateTexture(desc gpu.TextureDescriptor) (gpu.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(desc.Label); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 || desc.MipLevelCount == 0 {
		return nil, fmt.Errorf("gputest: invalid texture descriptor %+v", desc)
	}
	t := &Texture{Desc: desc, Levels: make([][]byte, desc.MipLevelCount)}
	for lvl := range t.Levels {
		w := max(desc.Width>>lvl, 1)
		h := max(desc.Height>>lvl, 1)
		t.Levels[lvl] = make([]byte, int(w*h*desc.Format.BytesPerTexel()))
	}
	d.Textures = append(d.Textures, t)
	return t, nil
}

func (d *Device) CreateSampler(desc gpu.SamplerDescriptor) (gpu.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(desc.Label); err != nil {
		return nil, err
	}
	s := &Sampler{Desc: desc}
	d.Samplers = append(d.Samplers, s)
	return s, nil
}

func (d *Device) CreateDescriptorSet(pipeline gpu.Pipeline, desc gpu.DescriptorSetDescriptor) (gpu.DescriptorSet, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(desc.Label); err != nil {
		return nil, err
	}
	p, ok := pipeline.(*Pipeline)
	if !ok {
		return nil, fmt.Errorf("gputest: unsupported pipeline %T", pipeline)
	}
	if desc.Slot >= p.Slots {
		return nil, fmt.Errorf("gputest: pipeline %s has no descriptor set slot %d", p.Name, desc.Slot)
	}
	for _, e := range desc.Entries {
		n := 0
		if e.Buffer != nil {
			n++
		}
		if e.Texture != nil {
			n++
		}
		if e.Sampler != nil {
			n++
		}
		if n != 1 {
			return nil, fmt.Errorf("gputest: binding %d of %s must bind exactly one resource", e.Binding, desc.Label)
		}
	}
	s := &DescriptorSet{Desc: desc}
	d.DescriptorSets = append(d.DescriptorSets, s)
	return s, nil
}

func (d *Device) CreateCommandRecorder(label string) (gpu.CommandRecorder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fail(label); err != nil {
		return nil, err
	}
	r := &Recorder{label: label}
	d.Recorders = append(d.Recorders, r)
	return r, nil
}

// DeviceBuffers returns every non-staging buffer in allocation order.
func (d *Device) DeviceBuffers() []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*Buffer
	for _, b := range d.Buffers {
		if !b.Staging {
			out = append(out, b)
		}
	}
	return out
}

// StagingBuffers returns every staging buffer in allocation order.
func (d *Device) StagingBuffers() []*Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*Buffer
	for _, b := range d.Buffers {
		if b.Staging {
			out = append(out, b)
		}
	}
	return out
}

// BufferByLabel returns the first buffer created with label, or nil.
func (d *Device) BufferByLabel(label string) *Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, b := range d.Buffers {
		if b.label == label {
			return b
		}
	}
	return nil
}

// Submit replays the copy commands of a finished command buffer against the in-memory resources.
// Draw commands are ignored.
//
// Parameters:
//   - cb: a command buffer returned by a Recorder's Finish
//
// Returns:
//   - error: an error if cb was not produced by this package or a copy is out of range
func (d *Device) Submit(cb gpu.CommandBuffer) error {
	c, ok := cb.(*CommandBuffer)
	if !ok {
		return fmt.Errorf("gputest: unsupported command buffer %T", cb)
	}
	for i, cmd := range c.Commands {
		switch cmd.Kind {
		case CmdCopyBufferToBuffer:
			src := cmd.Src.(*Buffer)
			dst := cmd.Dst.(*Buffer)
			copy(dst.Data[cmd.DstOffset:cmd.DstOffset+cmd.Size], src.Data[cmd.SrcOffset:cmd.SrcOffset+cmd.Size])
		case CmdCopyBufferToTexture:
			src := cmd.Src.(*Buffer)
			dst := cmd.Texture.(*Texture)
			texel := dst.Desc.Format.BytesPerTexel()
			row := cmd.Extent.Width * texel
			level := dst.Levels[cmd.MipLevel]
			for y := uint32(0); y < cmd.Extent.Height; y++ {
				from := cmd.Layout.Offset + uint64(y)*uint64(cmd.Layout.BytesPerRow)
				if from+uint64(row) > uint64(len(src.Data)) {
					return fmt.Errorf("gputest: command %d reads past staging buffer %s", i, src.label)
				}
				copy(level[y*row:(y+1)*row], src.Data[from:from+uint64(row)])
			}
		}
	}
	return nil
}
