package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/webgpu"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	configured  [][2]uint32
	presentMode PresentMode
	presented   int
	released    bool
	configErr   error
}

func (f *fakeBackend) ConfigureSurface(width, height uint32) error {
	if f.configErr != nil {
		return f.configErr
	}
	f.configured = append(f.configured, [2]uint32{width, height})
	return nil
}

func (f *fakeBackend) SetPresentMode(mode PresentMode) { f.presentMode = mode }

func (f *fakeBackend) AcquireFrame() (*webgpu.Framebuffer, error) {
	if len(f.configured) == 0 {
		return nil, ErrSurfaceNotConfigured
	}
	last := f.configured[len(f.configured)-1]
	return &webgpu.Framebuffer{W: last[0], H: last[1]}, nil
}

func (f *fakeBackend) Present()                          { f.presented++ }
func (f *fakeBackend) Device() webgpu.Device             { return nil }
func (f *fakeBackend) SurfaceFormat() wgpu.TextureFormat { return wgpu.TextureFormatBGRA8UnormSrgb }
func (f *fakeBackend) SampleCount() MSAASampleCount      { return MSAA4x }
func (f *fakeBackend) Release()                          { f.released = true }

func newTestRenderer(opts ...RendererBuilderOption) (*renderer, *fakeBackend) {
	r := newRenderer(BackendTypeWGPU, opts...)
	b := &fakeBackend{}
	r.backend = b
	return r, b
}

func TestRendererDefaults(t *testing.T) {
	r := newRenderer(BackendTypeWGPU)
	assert.Equal(t, MSAA4x, r.msaa)
	assert.Equal(t, PresentModeVSync, r.presentMode)
	assert.False(t, r.forceFallbackAdapter)

	r = newRenderer(BackendTypeWGPU, WithMSAA(MSAAOff), WithPresentMode(PresentModeUncapped), WithForceSoftwareRenderer(true))
	assert.Equal(t, MSAAOff, r.msaa)
	assert.Equal(t, PresentModeUncapped, r.presentMode)
	assert.True(t, r.forceFallbackAdapter)
}

func TestNewRendererRejectsBadOptions(t *testing.T) {
	_, err := NewRenderer(BackendTypeWGPU, nil, WithMSAA(3))
	assert.ErrorIs(t, err, ErrInvalidSampleCount)

	_, err = NewRenderer(RendererBackendType(7), nil)
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
}

func TestResizeSkipsZeroAndUnchangedSizes(t *testing.T) {
	r, b := newTestRenderer()

	require.NoError(t, r.Resize(0, 600))
	require.NoError(t, r.Resize(800, 0))
	assert.Empty(t, b.configured)

	require.NoError(t, r.Resize(800, 600))
	require.NoError(t, r.Resize(800, 600))
	require.NoError(t, r.Resize(1024, 768))
	assert.Equal(t, [][2]uint32{{800, 600}, {1024, 768}}, b.configured)

	w, h := r.Size()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
}

func TestResizeKeepsSizeOnFailure(t *testing.T) {
	r, b := newTestRenderer()
	require.NoError(t, r.Resize(640, 480))

	b.configErr = errors.New("boom")
	assert.ErrorIs(t, r.Resize(800, 600), b.configErr)

	w, h := r.Size()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), h)
}

func TestSetPresentModeReconfiguresConfiguredSurface(t *testing.T) {
	r, b := newTestRenderer()

	require.NoError(t, r.SetPresentMode(PresentModeUncapped))
	assert.Equal(t, PresentModeUncapped, b.presentMode)
	assert.Empty(t, b.configured)

	require.NoError(t, r.Resize(320, 200))
	require.NoError(t, r.SetPresentMode(PresentModeVSync))
	assert.Len(t, b.configured, 2)
}

func TestAcquireFrameAndPresent(t *testing.T) {
	r, b := newTestRenderer()

	_, err := r.AcquireFrame()
	assert.ErrorIs(t, err, ErrSurfaceNotConfigured)

	require.NoError(t, r.Resize(256, 128))
	fb, err := r.AcquireFrame()
	require.NoError(t, err)
	assert.Equal(t, uint32(256), fb.Width())
	assert.Equal(t, uint32(128), fb.Height())

	r.Present()
	assert.Equal(t, 1, b.presented)
}

func TestReleasedRenderer(t *testing.T) {
	r, b := newTestRenderer()
	r.Release()
	assert.True(t, b.released)

	assert.ErrorIs(t, r.Resize(10, 10), ErrRendererReleased)
	_, err := r.AcquireFrame()
	assert.ErrorIs(t, err, ErrRendererReleased)
	assert.ErrorIs(t, r.SetPresentMode(PresentModeVSync), ErrRendererReleased)
	r.Present()
	r.Submit()
}

func TestChooseSurfaceFormat(t *testing.T) {
	_, ok := chooseSurfaceFormat(nil)
	assert.False(t, ok)

	f, ok := chooseSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatBGRA8Unorm, wgpu.TextureFormatBGRA8UnormSrgb})
	assert.True(t, ok)
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, f)

	f, _ = chooseSurfaceFormat([]wgpu.TextureFormat{wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatBGRA8Unorm})
	assert.Equal(t, wgpu.TextureFormatRGBA16Float, f)
}

func TestChoosePresentMode(t *testing.T) {
	supported := []wgpu.PresentMode{wgpu.PresentModeFifo, wgpu.PresentModeMailbox}
	assert.Equal(t, wgpu.PresentModeFifo, choosePresentMode(toWGPUPresentMode(PresentModeUncapped), supported))
	assert.Equal(t, wgpu.PresentModeImmediate, choosePresentMode(toWGPUPresentMode(PresentModeUncapped), []wgpu.PresentMode{wgpu.PresentModeImmediate}))
	assert.Equal(t, wgpu.PresentModeFifo, toWGPUPresentMode(PresentModeVSync))
}

func TestMSAASampleCountValid(t *testing.T) {
	for _, c := range []MSAASampleCount{MSAAOff, MSAA4x, MSAA8x, MSAA16x} {
		assert.True(t, c.Valid(), c)
	}
	assert.False(t, MSAASampleCount(0).Valid())
	assert.False(t, MSAASampleCount(2).Valid())
	assert.Equal(t, "uncapped", PresentModeUncapped.String())
	assert.Equal(t, "vsync", PresentModeVSync.String())
}
