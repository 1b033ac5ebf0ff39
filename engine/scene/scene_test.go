package scene

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/qmuntal/gltf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bufferWriter copies uniform writes into gputest buffers.
type bufferWriter struct {
	writes int
	err    error
}

func (w *bufferWriter) WriteBuffer(dst gpu.Buffer, offset uint64, data []byte) error {
	if w.err != nil {
		return w.err
	}
	w.writes++
	copy(dst.(*gputest.Buffer).Data[offset:], data)
	return nil
}

// triangleDoc has two scenes over one triangle node. The second scene is empty.
func triangleDoc(withDefault bool) *gltf.Document {
	var raw []byte
	for _, c := range []float32{0, 0, 0, 2, 0, 0, 0, 2, 0} {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(c))
	}
	doc := &gltf.Document{
		Buffers:     []*gltf.Buffer{{ByteLength: len(raw), Data: raw}},
		BufferViews: []*gltf.BufferView{{Buffer: 0, ByteLength: len(raw)}},
		Accessors: []*gltf.Accessor{{
			BufferView:    gltf.Index(0),
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         3,
		}},
		Materials: []*gltf.Material{{}},
		Meshes: []*gltf.Mesh{{Primitives: []*gltf.Primitive{{
			Attributes: gltf.PrimitiveAttributes{gltf.POSITION: 0},
			Material:   gltf.Index(0),
		}}}},
		Nodes:  []*gltf.Node{{Mesh: gltf.Index(0)}},
		Scenes: []*gltf.Scene{{Nodes: []int{0}}, {}},
	}
	if withDefault {
		doc.Scene = gltf.Index(0)
	}
	return doc
}

type fixture struct {
	device   *gputest.Device
	pipeline *gputest.Pipeline
	writer   *bufferWriter
	model    model.Model
	cam      camera.Camera
}

func newFixture(t *testing.T, withDefault bool) *fixture {
	t.Helper()
	f := &fixture{
		device:   gputest.NewDevice(),
		pipeline: gputest.NewPipeline("scene"),
		writer:   &bufferWriter{},
		cam:      camera.NewCamera(camera.WithController(camera.NewOrbitController())),
	}
	m, err := model.ImportAsset(f.device, f.pipeline, loader.NewAsset("triangle", "", triangleDoc(withDefault)))
	require.NoError(t, err)
	f.model = m
	return f
}

func (f *fixture) scene(t *testing.T, opts ...SceneBuilderOption) Scene {
	t.Helper()
	s, err := NewScene("viewer", f.device, f.writer, f.pipeline, f.model, f.cam, opts...)
	require.NoError(t, err)
	return s
}

func TestNewSceneFramesCamera(t *testing.T) {
	f := newFixture(t, true)
	s := f.scene(t)

	assert.Equal(t, DefaultSceneIndex, s.SceneIndex())
	assert.True(t, s.Active())
	assert.InDelta(t, 1, f.cam.Controller().Target().X(), 1e-5)
	assert.InDelta(t, 1, f.cam.Controller().Target().Y(), 1e-5)

	frame := f.device.BufferByLabel("viewer frame uniform")
	require.NotNil(t, frame)
	assert.Equal(t, uint64(208), frame.Size())
}

func TestNewSceneRejectsUnresolvedSelection(t *testing.T) {
	f := newFixture(t, false)
	_, err := NewScene("viewer", f.device, f.writer, f.pipeline, f.model, f.cam)
	assert.ErrorIs(t, err, model.ErrNoDefaultScene)

	_, err = NewScene("viewer", f.device, f.writer, f.pipeline, f.model, f.cam, WithSceneIndex(5))
	var sceneErr *model.InvalidSceneIndexError
	require.ErrorAs(t, err, &sceneErr)
	assert.Equal(t, 5, sceneErr.Index)
	assert.Nil(t, f.device.BufferByLabel("viewer frame uniform"))
}

func TestDrawUploadsOnceThenDraws(t *testing.T) {
	f := newFixture(t, true)
	s := f.scene(t, WithSpin(1))
	fb := &gputest.Framebuffer{W: 320, H: 160}

	azimuth := f.cam.Controller().Azimuth()
	first, err := s.Draw(fb, 0.5)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, f.model.Initialized())
	assert.InDelta(t, azimuth+0.5, f.cam.Controller().Azimuth(), 1e-5)
	assert.InDelta(t, 2, f.cam.Aspect(), 1e-6)

	for _, cb := range first {
		require.NoError(t, f.device.Submit(cb))
	}
	staging := f.device.StagingBuffers()
	require.NotEmpty(t, staging)

	second, err := s.Draw(fb, 0)
	require.NoError(t, err)
	require.Len(t, second, 1)
	for _, b := range staging {
		assert.True(t, b.Released, b.Label())
	}

	draw := f.device.Recorders[len(f.device.Recorders)-1]
	assert.Equal(t, 1, draw.Count(gputest.CmdBeginRenderPass))
	assert.Equal(t, 1, draw.Count(gputest.CmdDraw))
	assert.Equal(t, uint64(2), s.Frames())
	assert.Equal(t, 2, f.writer.writes)

	frame := f.device.BufferByLabel("viewer frame uniform")
	assert.Equal(t, float32(320), math.Float32frombits(binary.LittleEndian.Uint32(frame.Data[0:])))
	assert.Equal(t, float32(160), math.Float32frombits(binary.LittleEndian.Uint32(frame.Data[4:])))
}

func TestDrawExplicitEmptyScene(t *testing.T) {
	f := newFixture(t, true)
	s := f.scene(t)

	// The empty scene has no bounds, so the camera keeps its framing.
	target := f.cam.Controller().Target()
	require.NoError(t, s.SetSceneIndex(1))
	assert.Equal(t, 1, s.SceneIndex())
	assert.Equal(t, target, f.cam.Controller().Target())

	_, err := s.Draw(&gputest.Framebuffer{W: 8, H: 8}, 0)
	require.NoError(t, err)
	draw := f.device.Recorders[len(f.device.Recorders)-1]
	assert.Equal(t, 0, draw.Count(gputest.CmdDraw))
	assert.Equal(t, 1, draw.Count(gputest.CmdEndRenderPass))

	var sceneErr *model.InvalidSceneIndexError
	assert.ErrorAs(t, s.SetSceneIndex(2), &sceneErr)
	assert.Equal(t, 1, s.SceneIndex())
}

func TestDrawReportsUniformWriteFailure(t *testing.T) {
	f := newFixture(t, true)
	s := f.scene(t)
	f.writer.err = errors.New("queue lost")

	_, err := s.Draw(&gputest.Framebuffer{W: 8, H: 8}, 0)
	assert.ErrorIs(t, err, f.writer.err)
}

func TestReleaseReleasesFrameResourcesAndModel(t *testing.T) {
	f := newFixture(t, true)
	s := f.scene(t)
	s.Release()

	assert.True(t, f.device.BufferByLabel("viewer frame uniform").Released)
	for _, ds := range f.device.DescriptorSets {
		assert.True(t, ds.Released, ds.Label())
	}
	_, err := s.Draw(&gputest.Framebuffer{W: 8, H: 8}, 0)
	assert.ErrorIs(t, err, ErrReleased)
}
