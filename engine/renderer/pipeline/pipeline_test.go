package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sceneShader(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewShader(SceneShaderKey, SceneShaderSource)
	require.NoError(t, err)
	return s
}

func TestSceneShaderMatchesDescriptorSetSlots(t *testing.T) {
	r := sceneShader(t).Reflection()

	require.Equal(t, uint32(3), r.GroupCount())
	assert.Len(t, r.Group(gpu.SlotFrame), 1)
	assert.Len(t, r.Group(gpu.SlotNode), 1)
	assert.Len(t, r.Group(gpu.SlotMaterial), 3)
	assert.Equal(t, "vs_main", r.VertexEntry)
	assert.Equal(t, "fs_main", r.FragmentEntry)
}

func TestBindGroupLayoutDescriptors(t *testing.T) {
	descs := bindGroupLayoutDescriptors("scene", sceneShader(t).Reflection())
	require.Len(t, descs, 3)

	frame := descs[0]
	assert.Equal(t, "scene group 0", frame.Label)
	require.Len(t, frame.Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, frame.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(208), frame.Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, frame.Entries[0].Visibility)

	assert.Equal(t, uint64(64), descs[1].Entries[0].Buffer.MinBindingSize)

	material := descs[2].Entries
	require.Len(t, material, 3)
	assert.Equal(t, uint64(32), material[0].Buffer.MinBindingSize)
	assert.Equal(t, uint32(1), material[1].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, material[1].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, material[1].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, material[2].Sampler.Type)
}

func TestBindGroupLayoutDescriptorsFillGaps(t *testing.T) {
	s, err := shader.NewShader("gap", `
//@oxy:include frame
//@oxy:group 2 0 uniform frame frame
@vertex fn vs() -> @builtin(position) vec4<f32> { return frame.model[0]; }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`)
	require.NoError(t, err)

	descs := bindGroupLayoutDescriptors("gap", s.Reflection())
	require.Len(t, descs, 3)
	assert.Empty(t, descs[0].Entries)
	assert.Empty(t, descs[1].Entries)
	assert.Len(t, descs[2].Entries, 1)
	assert.Empty(t, vertexBufferLayouts(s.Reflection()))
}

func TestVertexBufferLayoutIsPositionOnly(t *testing.T) {
	layouts := vertexBufferLayouts(sceneShader(t).Reflection())
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(12), layouts[0].ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0}}, layouts[0].Attributes)
}

func TestPipelineDescriptor(t *testing.T) {
	p := newPipeline("scene",
		WithShader(sceneShader(t)),
		WithColorFormat(wgpu.TextureFormatRGBA8UnormSrgb),
		WithSampleCount(4),
		WithCullMode(wgpu.CullModeBack),
		WithDepthTestEnabled(false),
		WithBlendEnabled(true),
	)
	desc := p.descriptor(nil, nil)

	assert.Equal(t, "scene", desc.Label)
	assert.Equal(t, "vs_main", desc.Vertex.EntryPoint)
	assert.Len(t, desc.Vertex.Buffers, 1)
	assert.Equal(t, "fs_main", desc.Fragment.EntryPoint)
	require.Len(t, desc.Fragment.Targets, 1)
	assert.Equal(t, wgpu.TextureFormatRGBA8UnormSrgb, desc.Fragment.Targets[0].Format)
	assert.NotNil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, uint32(4), desc.Multisample.Count)
	assert.Equal(t, wgpu.CullModeBack, desc.Primitive.CullMode)
	assert.Equal(t, wgpu.CompareFunctionAlways, desc.DepthStencil.DepthCompare)
	assert.Equal(t, wgpu.TextureFormatDepth24Plus, desc.DepthStencil.Format)
	assert.True(t, desc.DepthStencil.DepthWriteEnabled)
}

func TestPipelineDefaults(t *testing.T) {
	p := newPipeline("scene", WithShader(sceneShader(t)), WithSampleCount(0))
	desc := p.descriptor(nil, nil)

	assert.Equal(t, uint32(1), p.SampleCount())
	assert.Equal(t, wgpu.CompareFunctionLess, desc.DepthStencil.DepthCompare)
	assert.Nil(t, desc.Fragment.Targets[0].Blend)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, desc.Primitive.Topology)
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
}

func TestNewPipelineRequiresShader(t *testing.T) {
	_, err := NewPipeline(nil, "empty")
	assert.ErrorIs(t, err, ErrNoShader)
}

func TestReleasedPipelineHasNoLayouts(t *testing.T) {
	p := newPipeline("scene", WithShader(sceneShader(t)))
	p.Release()
	_, err := p.BindGroupLayout(0)
	assert.ErrorIs(t, err, ErrReleased)
	assert.Nil(t, p.RenderPipeline())
}
