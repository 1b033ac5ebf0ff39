package model

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
)

// --- Initialization Tasks ---

// InitializationTask is a one-time CPU to GPU upload produced by import.
// Record stages the payload in a transient buffer and appends the copy commands that move it
// into the task's target. The staging buffer must stay alive until the recorded commands complete.
type InitializationTask interface {
	// Label identifies the task in logs and errors.
	//
	// Returns:
	//   - string: the label of the upload target
	Label() string

	// Record stages the payload and appends its copy commands to rec.
	//
	// Parameters:
	//   - device: the device used to allocate the staging buffer
	//   - rec: the recorder the copy commands are appended to
	//
	// Returns:
	//   - gpu.Buffer: the staging buffer, or nil if nothing was staged
	//   - error: an error if staging or recording fails
	Record(device gpu.Device, rec gpu.CommandRecorder) (gpu.Buffer, error)
}

// BufferTask uploads the bytes of a source buffer blob into its device buffer.
type BufferTask struct {
	// Target is the device buffer, sized to len(Data).
	Target gpu.Buffer

	// Data is the blob contents.
	Data []byte
}

var _ InitializationTask = &BufferTask{}

func (t *BufferTask) Label() string {
	return t.Target.Label()
}

func (t *BufferTask) Record(device gpu.Device, rec gpu.CommandRecorder) (gpu.Buffer, error) {
	return recordBufferUpload(device, rec, t.Target, t.Data)
}

// ImageTask uploads every mip level of a decoded image into its device texture.
type ImageTask struct {
	// Target is the device texture with one level per entry of Data.Levels.
	Target gpu.Texture

	// Data is the staged mip chain.
	Data common.TextureStagingData
}

var _ InitializationTask = &ImageTask{}

func (t *ImageTask) Label() string {
	return t.Target.Label()
}

func (t *ImageTask) Record(device gpu.Device, rec gpu.CommandRecorder) (gpu.Buffer, error) {
	if uint32(len(t.Data.Levels)) > t.Target.MipLevelCount() {
		return nil, fmt.Errorf("%d mip levels staged for texture with %d", len(t.Data.Levels), t.Target.MipLevelCount())
	}

	payload, regions := gpu.PackTextureLevels(t.Data.Levels, t.Data.BytesPerTexel())
	staging, err := device.CreateStagingBuffer(t.Target.Label()+"_staging", payload)
	if err != nil {
		return nil, err
	}
	for _, region := range regions {
		if err := rec.CopyBufferToTexture(staging, region.Layout, t.Target, region.MipLevel, region.Extent); err != nil {
			return staging, fmt.Errorf("mip level %d: %w", region.MipLevel, err)
		}
	}
	return staging, nil
}

// NodeDescriptorSetTask uploads the world transform of a node into the uniform buffer its
// descriptor set was built against.
type NodeDescriptorSetTask struct {
	// Node is the node index.
	Node int

	// Target is the node's uniform buffer.
	Target gpu.Buffer

	// Uniform is the record written into Target.
	Uniform GPUNodeUniform
}

var _ InitializationTask = &NodeDescriptorSetTask{}

func (t *NodeDescriptorSetTask) Label() string {
	return t.Target.Label()
}

func (t *NodeDescriptorSetTask) Record(device gpu.Device, rec gpu.CommandRecorder) (gpu.Buffer, error) {
	return recordBufferUpload(device, rec, t.Target, t.Uniform.Marshal())
}

// MaterialDescriptorSetTask uploads the metallic-roughness factors of a material into the
// uniform buffer its descriptor set was built against.
type MaterialDescriptorSetTask struct {
	// Material is the material index.
	Material int

	// Target is the material's uniform buffer.
	Target gpu.Buffer

	// Uniform is the record written into Target.
	Uniform GPUMaterialUniform
}

var _ InitializationTask = &MaterialDescriptorSetTask{}

func (t *MaterialDescriptorSetTask) Label() string {
	return t.Target.Label()
}

func (t *MaterialDescriptorSetTask) Record(device gpu.Device, rec gpu.CommandRecorder) (gpu.Buffer, error) {
	return recordBufferUpload(device, rec, t.Target, t.Uniform.Marshal())
}

// recordBufferUpload stages data and appends a copy of it to the start of dst.
// Empty payloads record nothing.
func recordBufferUpload(device gpu.Device, rec gpu.CommandRecorder, dst gpu.Buffer, data []byte) (gpu.Buffer, error) {
	if len(data) == 0 {
		return nil, nil
	}
	staging, err := device.CreateStagingBuffer(dst.Label()+"_staging", data)
	if err != nil {
		return nil, err
	}
	if err := rec.CopyBufferToBuffer(staging, 0, dst, 0, uint64(len(data))); err != nil {
		return staging, err
	}
	return staging, nil
}

// --- Queue State ---

// taskQueueState is the one-shot initialization queue of a model.
// It starts pending with the tasks enqueued by import and becomes drained exactly once.
type taskQueueState struct {
	drained bool
	tasks   []InitializationTask
}

func (q *taskQueueState) enqueue(task InitializationTask) {
	q.tasks = append(q.tasks, task)
}

// take returns the pending tasks and marks the queue drained.
// The second and later calls report false.
func (q *taskQueueState) take() ([]InitializationTask, bool) {
	if q.drained {
		return nil, false
	}
	tasks := q.tasks
	q.tasks = nil
	q.drained = true
	return tasks, true
}
