package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	ErrNoShader    = errors.New("pipeline has no shader")
	ErrUnknownSlot = errors.New("pipeline has no bind group layout for slot")
	ErrReleased    = errors.New("pipeline released")
)

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	mu *sync.Mutex

	key    string
	shader shader.Shader

	colorFormat wgpu.TextureFormat
	depthFormat wgpu.TextureFormat
	sampleCount uint32

	depthTestEnabled    bool
	depthWriteEnabled   bool
	depthBias           int32
	depthBiasSlopeScale float32
	blendEnabled        bool
	cullMode            wgpu.CullMode
	topology            wgpu.PrimitiveTopology
	frontFace           wgpu.FrontFace
	writeMask           wgpu.ColorWriteMask
	blendState          *wgpu.BlendState

	module         *wgpu.ShaderModule
	layouts        []*wgpu.BindGroupLayout
	pipelineLayout *wgpu.PipelineLayout
	renderPipeline *wgpu.RenderPipeline
}

// Pipeline is a render pipeline built from a single reflected WGSL module. Its bind group layouts
// are derived from the module's declarations, so descriptor sets created against it by the
// webgpu device always match what the shader expects.
type Pipeline interface {
	webgpu.LayoutProvider

	// Shader returns the reflected shader the pipeline was built from.
	//
	// Returns:
	//   - shader.Shader: the pipeline shader
	Shader() shader.Shader

	// SampleCount returns the MSAA sample count the pipeline renders with.
	//
	// Returns:
	//   - uint32: the sample count, 1 when multisampling is off
	SampleCount() uint32

	// ColorFormat returns the format of the color target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the color target format
	ColorFormat() wgpu.TextureFormat

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled
	DepthWriteEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode
	CullMode() wgpu.CullMode

	// Release releases the render pipeline, its layouts and its shader module.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline on the device. The shader must be supplied with WithShader.
//
// Parameters:
//   - device: the device to create the pipeline on
//   - key: the pipeline label
//   - opts: functional options configuring the pipeline
//
// Returns:
//   - Pipeline: the created pipeline
//   - error: an error if no shader is set or any GPU object fails to create
func NewPipeline(device webgpu.Device, key string, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := newPipeline(key, opts...)
	if p.shader == nil {
		return nil, fmt.Errorf("pipeline %s: %w", key, ErrNoShader)
	}
	if err := p.create(device.Native()); err != nil {
		p.Release()
		return nil, fmt.Errorf("pipeline %s: %w", key, err)
	}

	common.Logger().Info("render pipeline created",
		"pipeline", key,
		"groups", len(p.layouts),
		"samples", p.sampleCount,
		"format", p.colorFormat,
	)
	return p, nil
}

func newPipeline(key string, opts ...PipelineBuilderOption) *pipeline {
	p := &pipeline{
		mu:                &sync.Mutex{},
		key:               key,
		colorFormat:       wgpu.TextureFormatBGRA8UnormSrgb,
		depthFormat:       wgpu.TextureFormatDepth24Plus,
		sampleCount:       1,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// create builds the shader module, one bind group layout per reflected group, the pipeline layout
// and the render pipeline. Objects created before a failure are left for Release.
func (p *pipeline) create(device *wgpu.Device) error {
	r := p.shader.Reflection()

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: p.shader.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: p.shader.Source(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create shader module: %w", err)
	}
	p.module = module

	for g, desc := range bindGroupLayoutDescriptors(p.key, r) {
		layout, err := device.CreateBindGroupLayout(&desc)
		if err != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, err)
		}
		p.layouts = append(p.layouts, layout)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.key,
		BindGroupLayouts: p.layouts,
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}

	p.renderPipeline, err = device.CreateRenderPipeline(p.descriptor(p.module, p.pipelineLayout))
	if err != nil {
		return fmt.Errorf("failed to create render pipeline: %w", err)
	}
	return nil
}

// descriptor assembles the render pipeline descriptor from the configured state and the reflection.
func (p *pipeline) descriptor(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout) *wgpu.RenderPipelineDescriptor {
	r := p.shader.Reflection()

	target := wgpu.ColorTargetState{
		Format:    p.colorFormat,
		WriteMask: p.writeMask,
	}
	if p.blendEnabled {
		target.Blend = p.blendState
	}

	depthCompare := wgpu.CompareFunctionLess
	if !p.depthTestEnabled {
		depthCompare = wgpu.CompareFunctionAlways
	}

	return &wgpu.RenderPipelineDescriptor{
		Label:  p.key,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: r.VertexEntry,
			Buffers:    vertexBufferLayouts(r),
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: r.FragmentEntry,
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.topology,
			FrontFace: p.frontFace,
			CullMode:  p.cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: p.sampleCount,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:              p.depthFormat,
			DepthWriteEnabled:   p.depthWriteEnabled,
			DepthCompare:        depthCompare,
			DepthBias:           p.depthBias,
			DepthBiasSlopeScale: p.depthBiasSlopeScale,
			StencilFront:        wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:         wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
	}
}

func (p *pipeline) Label() string {
	return p.key
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) SampleCount() uint32 {
	return p.sampleCount
}

func (p *pipeline) ColorFormat() wgpu.TextureFormat {
	return p.colorFormat
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) BindGroupLayout(slot uint32) (*wgpu.BindGroupLayout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.renderPipeline == nil {
		return nil, fmt.Errorf("pipeline %s: %w", p.key, ErrReleased)
	}
	if int(slot) >= len(p.layouts) {
		return nil, fmt.Errorf("pipeline %s slot %d: %w", p.key, slot, ErrUnknownSlot)
	}
	return p.layouts[slot], nil
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renderPipeline
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	for _, l := range p.layouts {
		l.Release()
	}
	p.layouts = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
