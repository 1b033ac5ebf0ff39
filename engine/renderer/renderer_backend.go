package renderer

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// String returns the configuration name of the present mode.
func (m PresentMode) String() string {
	if m == PresentModeUncapped {
		return "uncapped"
	}
	return "vsync"
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4

	// MSAA8x enables 8x multisample anti-aliasing. Adapter-dependent.
	MSAA8x MSAASampleCount = 8

	// MSAA16x enables 16x multisample anti-aliasing. Adapter-dependent.
	MSAA16x MSAASampleCount = 16
)

// Valid reports whether the count is one of the supported sample counts.
func (c MSAASampleCount) Valid() bool {
	switch c {
	case MSAAOff, MSAA4x, MSAA8x, MSAA16x:
		return true
	}
	return false
}

// RendererBackend owns the GPU device and the presentation surface for a Renderer.
type RendererBackend interface {
	// ConfigureSurface (re)configures the surface and its MSAA and depth attachments for the given size.
	//
	// Parameters:
	//   - width: the framebuffer width in pixels
	//   - height: the framebuffer height in pixels
	//
	// Returns:
	//   - error: an error if either dimension is zero or an attachment fails to create
	ConfigureSurface(width, height uint32) error

	// SetPresentMode changes the present mode, taking effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the requested present mode
	SetPresentMode(mode PresentMode)

	// AcquireFrame acquires the next surface texture and returns a framebuffer targeting it.
	//
	// Returns:
	//   - *webgpu.Framebuffer: the frame's color, resolve and depth views
	//   - error: an error if the surface is not configured or the texture cannot be acquired
	AcquireFrame() (*webgpu.Framebuffer, error)

	// Present presents the acquired frame and releases its surface texture.
	Present()

	// Device returns the device used to create resources and submit work.
	//
	// Returns:
	//   - webgpu.Device: the backend device
	Device() webgpu.Device

	// SurfaceFormat returns the color format the surface was configured with.
	//
	// Returns:
	//   - wgpu.TextureFormat: the surface format
	SurfaceFormat() wgpu.TextureFormat

	// SampleCount returns the MSAA sample count of the color and depth attachments.
	//
	// Returns:
	//   - MSAASampleCount: the sample count
	SampleCount() MSAASampleCount

	// Release releases the attachments, surface, device, adapter and instance.
	Release()
}
