package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	ErrUnsupportedBackend = errors.New("unsupported renderer backend")
	ErrInvalidSampleCount = errors.New("invalid MSAA sample count")
	ErrRendererReleased   = errors.New("renderer released")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu            *sync.Mutex
	pipelineCache map[string]pipeline.Pipeline
	backendType   RendererBackendType
	backend       RendererBackend

	forceFallbackAdapter bool
	presentMode          PresentMode
	msaa                 MSAASampleCount

	width  uint32
	height uint32
}

// Renderer owns the GPU backend and the pipelines drawn with it. A frame is produced by
// AcquireFrame, recording into the returned framebuffer, Submit and Present.
type Renderer interface {
	// Device returns the device used to create resources and record commands.
	//
	// Returns:
	//   - webgpu.Device: the backend device
	Device() webgpu.Device

	// Pipeline returns the cached pipeline registered under key.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline, or nil if none is registered
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipeline caches p under its label, releasing any pipeline previously registered there.
	//
	// Parameters:
	//   - p: the pipeline to cache
	RegisterPipeline(p pipeline.Pipeline)

	// CreateScenePipeline creates the scene pipeline matching the surface format and sample count
	// and registers it.
	//
	// Parameters:
	//   - opts: additional pipeline options applied after the surface defaults
	//
	// Returns:
	//   - pipeline.Pipeline: the scene pipeline
	//   - error: an error if the pipeline fails to create
	CreateScenePipeline(opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error)

	// Resize reconfigures the surface for a new framebuffer size. Zero sizes, as reported for
	// minimized windows, are ignored until a non-zero size arrives.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if the surface fails to reconfigure
	Resize(width, height int) error

	// Size returns the current surface size.
	//
	// Returns:
	//   - uint32: the width in pixels
	//   - uint32: the height in pixels
	Size() (uint32, uint32)

	// SetPresentMode changes the present mode and reconfigures the surface if it is configured.
	//
	// Parameters:
	//   - mode: the new present mode
	//
	// Returns:
	//   - error: an error if the surface fails to reconfigure
	SetPresentMode(mode PresentMode) error

	// AcquireFrame acquires the next framebuffer to draw into.
	//
	// Returns:
	//   - gpu.Framebuffer: the frame target
	//   - error: an error if the surface is not configured or the texture cannot be acquired
	AcquireFrame() (gpu.Framebuffer, error)

	// Submit submits finished command buffers to the device queue.
	//
	// Parameters:
	//   - buffers: the command buffers to submit in order
	Submit(buffers ...gpu.CommandBuffer)

	// Present presents the acquired frame.
	Present()

	// Release releases every cached pipeline and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing to the surface described by surfaceDescriptor.
// The surface is not configured until the first Resize.
//
// Parameters:
//   - backendType: the GPU backend to use
//   - surfaceDescriptor: the platform surface, usually from the window
//   - options: functional options configuring the renderer
//
// Returns:
//   - Renderer: the created renderer
//   - error: an error if the backend is unsupported, the sample count is invalid or the device
//     cannot be created
func NewRenderer(backendType RendererBackendType, surfaceDescriptor *wgpu.SurfaceDescriptor, options ...RendererBuilderOption) (Renderer, error) {
	r := newRenderer(backendType, options...)
	if !r.msaa.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSampleCount, r.msaa)
	}

	switch backendType {
	case BackendTypeWGPU:
		b, err := newWGPURendererBackend(surfaceDescriptor, r.forceFallbackAdapter, r.msaa, r.presentMode)
		if err != nil {
			return nil, err
		}
		r.backend = b
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBackend, backendType)
	}
	return r, nil
}

func newRenderer(backendType RendererBackendType, options ...RendererBuilderOption) *renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		presentMode:   PresentModeVSync,
		msaa:          MSAA4x,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) Device() webgpu.Device {
	return r.backend.Device()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipeline(p pipeline.Pipeline) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.pipelineCache[p.Label()]; ok && old != p {
		old.Release()
	}
	r.pipelineCache[p.Label()] = p
}

func (r *renderer) CreateScenePipeline(opts ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	base := []pipeline.PipelineBuilderOption{
		pipeline.WithColorFormat(r.backend.SurfaceFormat()),
		pipeline.WithSampleCount(uint32(r.backend.SampleCount())),
	}
	p, err := pipeline.NewScenePipeline(r.backend.Device(), append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	r.RegisterPipeline(p)
	return p, nil
}

func (r *renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return ErrRendererReleased
	}
	if uint32(width) == r.width && uint32(height) == r.height {
		return nil
	}
	if err := r.backend.ConfigureSurface(uint32(width), uint32(height)); err != nil {
		return fmt.Errorf("resize to %dx%d: %w", width, height, err)
	}
	r.width, r.height = uint32(width), uint32(height)
	return nil
}

func (r *renderer) Size() (uint32, uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return ErrRendererReleased
	}
	r.presentMode = mode
	r.backend.SetPresentMode(mode)
	if r.width == 0 || r.height == 0 {
		return nil
	}
	return r.backend.ConfigureSurface(r.width, r.height)
}

func (r *renderer) AcquireFrame() (gpu.Framebuffer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return nil, ErrRendererReleased
	}
	fb, err := r.backend.AcquireFrame()
	if err != nil {
		return nil, err
	}
	return fb, nil
}

func (r *renderer) Submit(buffers ...gpu.CommandBuffer) {
	r.mu.Lock()
	b := r.backend
	r.mu.Unlock()

	if b == nil {
		return
	}
	b.Device().Submit(buffers...)
}

func (r *renderer) Present() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend != nil {
		r.backend.Present()
	}
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	if r.backend != nil {
		r.backend.Release()
		r.backend = nil
	}
	common.Logger().Debug("renderer released")
}
