package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var bindingVisibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

var textureDimensionMap = map[shader.TextureDimension]wgpu.TextureViewDimension{
	shader.TextureDimension1D:        wgpu.TextureViewDimension1D,
	shader.TextureDimension2D:        wgpu.TextureViewDimension2D,
	shader.TextureDimension2DArray:   wgpu.TextureViewDimension2DArray,
	shader.TextureDimension3D:        wgpu.TextureViewDimension3D,
	shader.TextureDimensionCube:      wgpu.TextureViewDimensionCube,
	shader.TextureDimensionCubeArray: wgpu.TextureViewDimensionCubeArray,
}

var sampleTypeMap = map[shader.SampleType]wgpu.TextureSampleType{
	shader.SampleTypeFloat: wgpu.TextureSampleTypeFloat,
	shader.SampleTypeSint:  wgpu.TextureSampleTypeSint,
	shader.SampleTypeUint:  wgpu.TextureSampleTypeUint,
	shader.SampleTypeDepth: wgpu.TextureSampleTypeDepth,
}

var vertexFormatMap = map[shader.VertexFormat]wgpu.VertexFormat{
	shader.VertexFormatFloat32:   wgpu.VertexFormatFloat32,
	shader.VertexFormatFloat32x2: wgpu.VertexFormatFloat32x2,
	shader.VertexFormatFloat32x3: wgpu.VertexFormatFloat32x3,
	shader.VertexFormatFloat32x4: wgpu.VertexFormatFloat32x4,
	shader.VertexFormatSint32:    wgpu.VertexFormatSint32,
	shader.VertexFormatSint32x2:  wgpu.VertexFormatSint32x2,
	shader.VertexFormatSint32x3:  wgpu.VertexFormatSint32x3,
	shader.VertexFormatSint32x4:  wgpu.VertexFormatSint32x4,
	shader.VertexFormatUint32:    wgpu.VertexFormatUint32,
	shader.VertexFormatUint32x2:  wgpu.VertexFormatUint32x2,
	shader.VertexFormatUint32x3:  wgpu.VertexFormatUint32x3,
	shader.VertexFormatUint32x4:  wgpu.VertexFormatUint32x4,
}

// bindGroupLayoutDescriptors builds one descriptor per group slot up to the highest declared group.
// Slots the shader leaves undeclared get an empty layout so group indices stay dense.
//
// Parameters:
//   - label: prefix for the descriptor labels
//   - r: the shader reflection
//
// Returns:
//   - []wgpu.BindGroupLayoutDescriptor: descriptors indexed by group
func bindGroupLayoutDescriptors(label string, r *shader.Reflection) []wgpu.BindGroupLayoutDescriptor {
	out := make([]wgpu.BindGroupLayoutDescriptor, r.GroupCount())
	for g := range out {
		bindings := r.Group(uint32(g))
		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(bindings))
		for _, b := range bindings {
			entries = append(entries, bindGroupLayoutEntry(b))
		}
		out[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", label, g),
			Entries: entries,
		}
	}
	return out
}

func bindGroupLayoutEntry(b shader.Binding) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    b.Binding,
		Visibility: bindingVisibility,
	}

	switch b.Type {
	case shader.BindingTypeUniformBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: b.MinBindingSize}
	case shader.BindingTypeStorageBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeStorage, MinBindingSize: b.MinBindingSize}
	case shader.BindingTypeReadOnlyStorageBuffer:
		entry.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: b.MinBindingSize}
	case shader.BindingTypeSampledTexture, shader.BindingTypeDepthTexture:
		entry.Texture = wgpu.TextureBindingLayout{
			SampleType:    sampleTypeMap[b.SampleType],
			ViewDimension: textureDimensionMap[b.Dimension],
			Multisampled:  b.Multisampled,
		}
	case shader.BindingTypeFilteringSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	case shader.BindingTypeComparisonSampler:
		entry.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
	}
	return entry
}

// vertexBufferLayouts converts the reflected vertex input structs, one buffer slot per struct.
func vertexBufferLayouts(r *shader.Reflection) []wgpu.VertexBufferLayout {
	out := make([]wgpu.VertexBufferLayout, 0, len(r.VertexLayouts))
	for _, vl := range r.VertexLayouts {
		attrs := make([]wgpu.VertexAttribute, 0, len(vl.Attributes))
		for _, a := range vl.Attributes {
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         vertexFormatMap[a.Format],
				Offset:         a.Offset,
				ShaderLocation: a.Location,
			})
		}
		out = append(out, wgpu.VertexBufferLayout{
			ArrayStride: vl.Stride,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		})
	}
	return out
}
