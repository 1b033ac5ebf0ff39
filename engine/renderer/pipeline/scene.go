package pipeline

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/shader"
)

// SceneShaderSource is the annotated WGSL of the scene pipeline. Group 0 holds the frame uniform,
// group 1 the node uniform and group 2 the material uniform, base color texture and sampler.
// Vertices carry a single vec3<f32> position.
//
//go:embed assets/scene.wgsl
var SceneShaderSource string

// SceneShaderKey is the label of the scene shader module and pipeline.
const SceneShaderKey = "scene"

// NewScenePipeline reflects the scene shader and creates its render pipeline.
//
// Parameters:
//   - device: the device to create the pipeline on
//   - opts: functional options, typically WithColorFormat and WithSampleCount from the surface
//
// Returns:
//   - Pipeline: the scene pipeline
//   - error: an error if the shader fails to reflect or the pipeline fails to create
func NewScenePipeline(device webgpu.Device, opts ...PipelineBuilderOption) (Pipeline, error) {
	s, err := shader.NewShader(SceneShaderKey, SceneShaderSource)
	if err != nil {
		return nil, fmt.Errorf("scene pipeline: %w", err)
	}
	return NewPipeline(device, SceneShaderKey, append([]PipelineBuilderOption{WithShader(s)}, opts...)...)
}
