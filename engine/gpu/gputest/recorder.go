package gputest

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

// CommandKind identifies a recorded command.
type CommandKind int

const (
	CmdCopyBufferToBuffer CommandKind = iota
	CmdCopyBufferToTexture
	CmdBeginRenderPass
	CmdSetPipeline
	CmdSetDescriptorSets
	CmdSetVertexBuffer
	CmdSetIndexBuffer
	CmdDraw
	CmdDrawIndexed
	CmdEndRenderPass
)

func (k CommandKind) String() string {
	switch k {
	case CmdCopyBufferToBuffer:
		return "CopyBufferToBuffer"
	case CmdCopyBufferToTexture:
		return "CopyBufferToTexture"
	case CmdBeginRenderPass:
		return "BeginRenderPass"
	case CmdSetPipeline:
		return "SetPipeline"
	case CmdSetDescriptorSets:
		return "SetDescriptorSets"
	case CmdSetVertexBuffer:
		return "SetVertexBuffer"
	case CmdSetIndexBuffer:
		return "SetIndexBuffer"
	case CmdDraw:
		return "Draw"
	case CmdDrawIndexed:
		return "DrawIndexed"
	case CmdEndRenderPass:
		return "EndRenderPass"
	default:
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
}

// Command is one recorded command. Only the fields relevant to Kind are set.
type Command struct {
	Kind CommandKind

	Src, Dst             gpu.Buffer
	SrcOffset, DstOffset uint64
	Size                 uint64

	Texture  gpu.Texture
	MipLevel uint32
	Layout   gpu.TextureDataLayout
	Extent   gpu.Extent

	Framebuffer gpu.Framebuffer
	Clear       gpu.ClearValues
	Pipeline    gpu.Pipeline
	Sets        gpu.DescriptorSets

	Slot        uint32
	Slice       gpu.BufferSlice
	IndexFormat gpu.IndexFormat

	Count         uint32
	InstanceCount uint32
}

var (
	errFinished       = errors.New("gputest: recorder already finished")
	errPassOpen       = errors.New("gputest: render pass is open")
	errNoPass         = errors.New("gputest: no render pass is open")
	errNoIndexBuffer  = errors.New("gputest: no index buffer bound")
	errNoVertexBuffer = errors.New("gputest: no vertex buffer bound")
)

// Recorder is an in-memory gpu.CommandRecorder enforcing the usual pass rules:
// copies outside a render pass, state and draws inside one.
type Recorder struct {
	label       string
	Commands    []Command
	inPass      bool
	hasVertex   bool
	hasIndex    bool
	finished    bool
	FinishCount int
}

var _ gpu.CommandRecorder = &Recorder{}

// NewRecorder returns a standalone recorder not tracked by any Device.
func NewRecorder(label string) *Recorder {
	return &Recorder{label: label}
}

// Label returns the label the recorder was created with.
func (r *Recorder) Label() string { return r.label }

// Count returns how many commands of the given kind were recorded.
func (r *Recorder) Count(kind CommandKind) int {
	n := 0
	for _, c := range r.Commands {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Kinds returns the kind of every recorded command in order.
func (r *Recorder) Kinds() []CommandKind {
	out := make([]CommandKind, len(r.Commands))
	for i, c := range r.Commands {
		out[i] = c.Kind
	}
	return out
}

// Filter returns the recorded commands of the given kind in order.
func (r *Recorder) Filter(kind CommandKind) []Command {
	var out []Command
	for _, c := range r.Commands {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) check(wantPass bool) error {
	if r.finished {
		return errFinished
	}
	if wantPass && !r.inPass {
		return errNoPass
	}
	if !wantPass && r.inPass {
		return errPassOpen
	}
	return nil
}

func (r *Recorder) CopyBufferToBuffer(src gpu.Buffer, srcOffset uint64, dst gpu.Buffer, dstOffset uint64, size uint64) error {
	if err := r.check(false); err != nil {
		return err
	}
	if srcOffset+size > src.Size() {
		return fmt.Errorf("gputest: copy reads %d bytes at %d past source %s of %d bytes", size, srcOffset, src.Label(), src.Size())
	}
	if dstOffset+size > dst.Size() {
		return fmt.Errorf("gputest: copy writes %d bytes at %d past destination %s of %d bytes", size, dstOffset, dst.Label(), dst.Size())
	}
	r.Commands = append(r.Commands, Command{
		Kind: CmdCopyBufferToBuffer, Src: src, SrcOffset: srcOffset, Dst: dst, DstOffset: dstOffset, Size: size,
	})
	return nil
}

func (r *Recorder) CopyBufferToTexture(src gpu.Buffer, layout gpu.TextureDataLayout, dst gpu.Texture, mipLevel uint32, extent gpu.Extent) error {
	if err := r.check(false); err != nil {
		return err
	}
	if mipLevel >= dst.MipLevelCount() {
		return fmt.Errorf("gputest: mip level %d out of range for %s", mipLevel, dst.Label())
	}
	if layout.BytesPerRow%gpu.CopyBytesPerRowAlignment != 0 {
		return fmt.Errorf("gputest: bytes per row %d is not %d-byte aligned", layout.BytesPerRow, gpu.CopyBytesPerRowAlignment)
	}
	r.Commands = append(r.Commands, Command{
		Kind: CmdCopyBufferToTexture, Src: src, Layout: layout, Texture: dst, MipLevel: mipLevel, Extent: extent,
	})
	return nil
}

func (r *Recorder) BeginRenderPass(target gpu.Framebuffer, clear gpu.ClearValues) error {
	if err := r.check(false); err != nil {
		return err
	}
	r.inPass = true
	r.hasVertex, r.hasIndex = false, false
	r.Commands = append(r.Commands, Command{Kind: CmdBeginRenderPass, Framebuffer: target, Clear: clear})
	return nil
}

func (r *Recorder) SetPipeline(pipeline gpu.Pipeline) error {
	if err := r.check(true); err != nil {
		return err
	}
	r.Commands = append(r.Commands, Command{Kind: CmdSetPipeline, Pipeline: pipeline})
	return nil
}

func (r *Recorder) SetDescriptorSets(sets gpu.DescriptorSets) error {
	if err := r.check(true); err != nil {
		return err
	}
	if sets.Frame == nil || sets.Node == nil || sets.Material == nil {
		return fmt.Errorf("gputest: incomplete descriptor sets %+v", sets)
	}
	r.Commands = append(r.Commands, Command{Kind: CmdSetDescriptorSets, Sets: sets})
	return nil
}

func (r *Recorder) SetVertexBuffer(slot uint32, slice gpu.BufferSlice) error {
	if err := r.check(true); err != nil {
		return err
	}
	if slice.End() > slice.Buffer.Size() {
		return fmt.Errorf("gputest: vertex slice [%d, %d) past %s", slice.Offset, slice.End(), slice.Buffer.Label())
	}
	r.hasVertex = true
	r.Commands = append(r.Commands, Command{Kind: CmdSetVertexBuffer, Slot: slot, Slice: slice})
	return nil
}

func (r *Recorder) SetIndexBuffer(slice gpu.BufferSlice, format gpu.IndexFormat) error {
	if err := r.check(true); err != nil {
		return err
	}
	if slice.End() > slice.Buffer.Size() {
		return fmt.Errorf("gputest: index slice [%d, %d) past %s", slice.Offset, slice.End(), slice.Buffer.Label())
	}
	r.hasIndex = true
	r.Commands = append(r.Commands, Command{Kind: CmdSetIndexBuffer, Slice: slice, IndexFormat: format})
	return nil
}

func (r *Recorder) Draw(vertexCount, instanceCount uint32) error {
	if err := r.check(true); err != nil {
		return err
	}
	if !r.hasVertex {
		return errNoVertexBuffer
	}
	r.Commands = append(r.Commands, Command{Kind: CmdDraw, Count: vertexCount, InstanceCount: instanceCount})
	return nil
}

func (r *Recorder) DrawIndexed(indexCount, instanceCount uint32) error {
	if err := r.check(true); err != nil {
		return err
	}
	if !r.hasIndex {
		return errNoIndexBuffer
	}
	r.Commands = append(r.Commands, Command{Kind: CmdDrawIndexed, Count: indexCount, InstanceCount: instanceCount})
	return nil
}

func (r *Recorder) EndRenderPass() error {
	if err := r.check(true); err != nil {
		return err
	}
	r.inPass = false
	r.Commands = append(r.Commands, Command{Kind: CmdEndRenderPass})
	return nil
}

func (r *Recorder) Finish() (gpu.CommandBuffer, error) {
	if err := r.check(false); err != nil {
		return nil, err
	}
	r.finished = true
	r.FinishCount++
	return &CommandBuffer{Label: r.label, Commands: append([]Command(nil), r.Commands...)}, nil
}

// CommandBuffer is the finished form of a Recorder.
type CommandBuffer struct {
	Label    string
	Commands []Command
	Released bool
}

var _ gpu.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) Release() { c.Released = true }
