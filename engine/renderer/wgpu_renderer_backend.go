package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	ErrSurfaceNotConfigured = errors.New("surface not configured")
	ErrZeroSizedSurface     = errors.New("surface has a zero dimension")
	ErrNoSurfaceFormat      = errors.New("surface reports no supported formats")
)

// attachment is a render attachment texture owned by the backend together with its default view.
type attachment struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

func (a *attachment) release() {
	if a == nil {
		return
	}
	if a.view != nil {
		a.view.Release()
	}
	if a.texture != nil {
		a.texture.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	wrapped  webgpu.Device

	presentMode   PresentMode
	sampleCount   MSAASampleCount
	surfaceFormat wgpu.TextureFormat
	width         uint32
	height        uint32
	configured    bool

	msaa  *attachment
	depth *attachment

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, presentMode PresentMode) (RendererBackend, error) {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:            &sync.Mutex{},
		instance:      wgpu.CreateInstance(nil),
		presentMode:   presentMode,
		sampleCount:   sampleCount,
		surfaceFormat: wgpu.TextureFormatBGRA8UnormSrgb,
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	w.adapter = a
	common.Logger().Info("adapter selected", "fallback", forceFallbackAdapter)

	limits := wgpu.DefaultLimits()
	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		w.Release()
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	w.device = d
	w.queue = d.GetQueue()
	w.wrapped = webgpu.NewDevice(d, w.queue)

	return w, nil
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if width == 0 || height == 0 {
		return fmt.Errorf("configure %dx%d: %w", width, height, ErrZeroSizedSurface)
	}

	capabilities := b.surface.GetCapabilities(b.adapter)
	format, ok := chooseSurfaceFormat(capabilities.Formats)
	if !ok {
		return ErrNoSurfaceFormat
	}
	alphaMode := wgpu.CompositeAlphaModeAuto
	if len(capabilities.AlphaModes) > 0 {
		alphaMode = capabilities.AlphaModes[0]
	}
	presentMode := choosePresentMode(toWGPUPresentMode(b.presentMode), capabilities.PresentModes)

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       width,
		Height:      height,
		PresentMode: presentMode,
		AlphaMode:   alphaMode,
	})
	b.surfaceFormat = format

	b.msaa.release()
	b.msaa = nil
	b.depth.release()
	b.depth = nil
	b.configured = false

	count := uint32(b.sampleCount)
	if count > 1 {
		// The pass draws into the multisampled texture and resolves into the surface view.
		msaa, err := b.createAttachment("MSAA Texture", width, height, count, format)
		if err != nil {
			return err
		}
		b.msaa = msaa
	}

	// Depth sample count must match the color attachment.
	depth, err := b.createAttachment("Depth Texture", width, height, count, wgpu.TextureFormatDepth24Plus)
	if err != nil {
		return err
	}
	b.depth = depth

	b.width, b.height = width, height
	b.configured = true
	common.Logger().Debug("surface configured",
		"width", width,
		"height", height,
		"format", format,
		"samples", count,
		"present_mode", b.presentMode.String(),
	)
	return nil
}

func (b *wgpuRendererBackendImpl) createAttachment(label string, width, height, samples uint32, format wgpu.TextureFormat) (*attachment, error) {
	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Size: wgpu.Extent3D{
			Width:              width,
			Height:             height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   samples,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create %s view: %w", label, err)
	}
	return &attachment{texture: tex, view: view}, nil
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.presentMode = mode
}

func (b *wgpuRendererBackendImpl) AcquireFrame() (*webgpu.Framebuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, ErrSurfaceNotConfigured
	}
	b.releaseFrame()

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, fmt.Errorf("failed to create surface view: %w", err)
	}
	b.frameTexture = surfaceTexture
	b.frameView = view

	fb := &webgpu.Framebuffer{
		ColorView: view,
		DepthView: b.depth.view,
		W:         b.width,
		H:         b.height,
	}
	if b.msaa != nil {
		fb.ColorView = b.msaa.view
		fb.ResolveTarget = view
	}
	return fb, nil
}

func (b *wgpuRendererBackendImpl) Present() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameTexture == nil {
		return
	}
	b.surface.Present()
	b.releaseFrame()
}

func (b *wgpuRendererBackendImpl) releaseFrame() {
	if b.frameView != nil {
		b.frameView.Release()
		b.frameView = nil
	}
	if b.frameTexture != nil {
		b.frameTexture.Release()
		b.frameTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() webgpu.Device {
	return b.wrapped
}

func (b *wgpuRendererBackendImpl) SurfaceFormat() wgpu.TextureFormat {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surfaceFormat
}

func (b *wgpuRendererBackendImpl) SampleCount() MSAASampleCount {
	return b.sampleCount
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.releaseFrame()
	b.msaa.release()
	b.msaa = nil
	b.depth.release()
	b.depth = nil
	b.configured = false

	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// chooseSurfaceFormat prefers an sRGB 8-bit format so the scene shader's linear output is encoded
// on write. Otherwise the first reported format is used.
func chooseSurfaceFormat(formats []wgpu.TextureFormat) (wgpu.TextureFormat, bool) {
	if len(formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	for _, f := range formats {
		if f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb {
			return f, true
		}
	}
	return formats[0], true
}

// choosePresentMode returns want when the surface supports it and FIFO otherwise, which every
// surface must support.
func choosePresentMode(want wgpu.PresentMode, supported []wgpu.PresentMode) wgpu.PresentMode {
	if slices.Contains(supported, want) {
		return want
	}
	return wgpu.PresentModeFifo
}

func toWGPUPresentMode(mode PresentMode) wgpu.PresentMode {
	if mode == PresentModeUncapped {
		return wgpu.PresentModeImmediate
	}
	return wgpu.PresentModeFifo
}
