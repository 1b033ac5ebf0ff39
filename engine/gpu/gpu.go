// Package gpu defines the small set of GPU capabilities the scene engine records against.
// A backend (see engine/gpu/webgpu) implements them on a real device; engine/gpu/gputest
// implements them in memory for tests.
package gpu

// Buffer is a device buffer handle.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	Label() string

	// Size returns the requested size of the buffer in bytes.
	Size() uint64

	// Release frees the device memory backing the buffer.
	Release()
}

// Texture is a 2D device texture together with its default view.
type Texture interface {
	// Label returns the debug label the texture was created with.
	Label() string

	// Width returns the width of mip level 0 in texels.
	Width() uint32

	// Height returns the height of mip level 0 in texels.
	Height() uint32

	// MipLevelCount returns the number of mip levels allocated.
	MipLevelCount() uint32

	// Format returns the texel format.
	Format() TextureFormat

	// Release frees the texture and its view.
	Release()
}

// Sampler is a texture sampler handle.
type Sampler interface {
	Release()
}

// DescriptorSet is a bound group of resources built against one slot of a pipeline layout.
type DescriptorSet interface {
	// Label returns the debug label the set was created with.
	Label() string

	// Slot returns the pipeline layout slot the set was built for.
	Slot() uint32

	// Release frees the set. The bound resources are owned elsewhere and are not released.
	Release()
}

// Pipeline is a bindable graphics pipeline. Its layout decides which resources a
// descriptor set built for a given slot may contain.
type Pipeline interface {
	Label() string
}

// Framebuffer is a render target a render pass draws into.
type Framebuffer interface {
	// Width returns the width of the render target in pixels.
	Width() uint32

	// Height returns the height of the render target in pixels.
	Height() uint32
}

// CommandBuffer is a finished command sequence ready for submission.
type CommandBuffer interface {
	Release()
}

// Device allocates GPU resources. It never records or submits commands itself.
type Device interface {
	// CreateBuffer allocates an uninitialized device buffer.
	//
	// Parameters:
	//   - desc: the label, size in bytes and usage flags of the buffer
	//
	// Returns:
	//   - Buffer: the allocated buffer
	//   - error: an error if the allocation fails
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// CreateStagingBuffer allocates a CPU-visible transfer source buffer initialized with contents.
	//
	// Parameters:
	//   - label: the debug label of the buffer
	//   - contents: the bytes to copy into the buffer
	//
	// Returns:
	//   - Buffer: the staging buffer, sized to len(contents)
	//   - error: an error if the allocation fails
	CreateStagingBuffer(label string, contents []byte) (Buffer, error)

	// CreateTexture allocates an uninitialized 2D texture that can be sampled and copied into.
	//
	// Parameters:
	//   - desc: the label, dimensions, mip level count and format of the texture
	//
	// Returns:
	//   - Texture: the allocated texture
	//   - error: an error if the allocation fails
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateSampler creates a texture sampler.
	//
	// Parameters:
	//   - desc: addressing and filtering configuration
	//
	// Returns:
	//   - Sampler: the created sampler
	//   - error: an error if creation fails
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateDescriptorSet builds a descriptor set for a slot of the pipeline's layout.
	// The bound buffers do not need to hold valid contents yet.
	//
	// Parameters:
	//   - pipeline: the pipeline whose layout the set must match
	//   - desc: the slot and the resources bound at each binding
	//
	// Returns:
	//   - DescriptorSet: the created set
	//   - error: an error if the layout rejects the entries
	CreateDescriptorSet(pipeline Pipeline, desc DescriptorSetDescriptor) (DescriptorSet, error)

	// CreateCommandRecorder starts a new command recording context.
	//
	// Parameters:
	//   - label: the debug label of the recording
	//
	// Returns:
	//   - CommandRecorder: an empty recorder
	//   - error: an error if the recorder cannot be created
	CreateCommandRecorder(label string) (CommandRecorder, error)
}

// CommandRecorder appends commands to a command sequence. Copy commands must be recorded
// outside a render pass, draw state commands inside one.
type CommandRecorder interface {
	// CopyBufferToBuffer appends a buffer to buffer copy.
	//
	// Parameters:
	//   - src: the source buffer
	//   - srcOffset: the byte offset into src
	//   - dst: the destination buffer
	//   - dstOffset: the byte offset into dst
	//   - size: the number of bytes to copy
	//
	// Returns:
	//   - error: an error if the copy is outside either buffer or cannot be recorded
	CopyBufferToBuffer(src Buffer, srcOffset uint64, dst Buffer, dstOffset uint64, size uint64) error

	// CopyBufferToTexture appends a copy from a staging buffer into one mip level of a texture.
	//
	// Parameters:
	//   - src: the staging buffer holding the texel rows
	//   - layout: the offset and row pitch of the data in src
	//   - dst: the destination texture
	//   - mipLevel: the destination mip level
	//   - extent: the size of the copied region
	//
	// Returns:
	//   - error: an error if the copy cannot be recorded
	CopyBufferToTexture(src Buffer, layout TextureDataLayout, dst Texture, mipLevel uint32, extent Extent) error

	// BeginRenderPass opens a render pass that clears and draws into target.
	//
	// Parameters:
	//   - target: the framebuffer to draw into
	//   - clear: the color and depth clear values
	//
	// Returns:
	//   - error: an error if a pass is already open or the pass cannot be started
	BeginRenderPass(target Framebuffer, clear ClearValues) error

	// SetPipeline binds the graphics pipeline for subsequent draws.
	SetPipeline(pipeline Pipeline) error

	// SetDescriptorSets binds the frame, node and material sets at slots 0, 1 and 2.
	SetDescriptorSets(sets DescriptorSets) error

	// SetVertexBuffer binds a vertex buffer slice at the given vertex input slot.
	SetVertexBuffer(slot uint32, slice BufferSlice) error

	// SetIndexBuffer binds an index buffer slice.
	SetIndexBuffer(slice BufferSlice, format IndexFormat) error

	// Draw appends a non-indexed draw.
	Draw(vertexCount, instanceCount uint32) error

	// DrawIndexed appends an indexed draw using the bound index buffer.
	DrawIndexed(indexCount, instanceCount uint32) error

	// EndRenderPass closes the open render pass.
	EndRenderPass() error

	// Finish ends recording and returns the command sequence. The recorder cannot be used afterwards.
	//
	// Returns:
	//   - CommandBuffer: the finished commands
	//   - error: an error if a render pass is still open or encoding failed
	Finish() (CommandBuffer, error)
}
