package scene

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// DefaultSceneIndex selects the document's default scene.
const DefaultSceneIndex = -1

var ErrReleased = errors.New("scene released")

// UniformWriter writes bytes straight into a device buffer ahead of the next submission.
type UniformWriter interface {
	// WriteBuffer schedules a write of data into dst at offset.
	//
	// Parameters:
	//   - dst: the destination buffer
	//   - offset: the byte offset into dst
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if dst cannot be written
	WriteBuffer(dst gpu.Buffer, offset uint64, data []byte) error
}

// scene is the implementation of the Scene interface.
type scene struct {
	mu *sync.Mutex

	name   string
	active bool

	device   gpu.Device
	writer   UniformWriter
	pipeline gpu.Pipeline
	model    model.Model
	cam      camera.Camera

	sceneIndex  int
	clearValues gpu.ClearValues
	spin        float32
	transform   mgl32.Mat4

	frameBuffer gpu.Buffer
	frameSet    gpu.DescriptorSet

	// stagingPending is set once the initialization commands were handed out; the staging
	// buffers are released on the following frame.
	stagingPending bool
	frames         uint64
}

// Scene draws one imported model through an orbit camera. Each Draw produces the command buffers
// of a single frame: the one-shot upload of the model on the first frame, followed by the draw of
// the selected glTF scene.
type Scene interface {
	// Name returns the scene name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Active reports whether the scene is drawn.
	//
	// Returns:
	//   - bool: true if the scene is drawn
	Active() bool

	// SetActive enables or disables drawing.
	//
	// Parameters:
	//   - active: whether the scene is drawn
	SetActive(active bool)

	// Camera returns the camera the scene is viewed through.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Model returns the drawn model.
	//
	// Returns:
	//   - model.Model: the model
	Model() model.Model

	// SceneIndex returns the selected glTF scene, or DefaultSceneIndex.
	//
	// Returns:
	//   - int: the selected scene index
	SceneIndex() int

	// SetSceneIndex selects the glTF scene to draw and reframes the camera on it.
	//
	// Parameters:
	//   - index: a scene index of the document, or DefaultSceneIndex
	//
	// Returns:
	//   - error: *model.InvalidSceneIndexError or model.ErrNoDefaultScene if the selection does not resolve
	SetSceneIndex(index int) error

	// Reframe points the camera at the bounds of the selected glTF scene. Scenes without
	// geometry keep the current framing.
	//
	// Returns:
	//   - error: an error if the selection does not resolve or its bounds cannot be read
	Reframe() error

	// SetSpin sets the automatic orbit rate in radians per second. Zero stops it.
	//
	// Parameters:
	//   - rate: the azimuth change per second
	SetSpin(rate float32)

	// Spin returns the automatic orbit rate in radians per second.
	//
	// Returns:
	//   - float32: the rate
	Spin() float32

	// Draw updates the frame uniform and records the frame into fb.
	//
	// Parameters:
	//   - fb: the render target of this frame
	//   - deltaTime: seconds since the previous frame
	//
	// Returns:
	//   - []gpu.CommandBuffer: the command buffers to submit in order
	//   - error: an error if the upload or the draw fails to record
	Draw(fb gpu.Framebuffer, deltaTime float32) ([]gpu.CommandBuffer, error)

	// Frames returns how many frames were drawn.
	//
	// Returns:
	//   - uint64: the frame count
	Frames() uint64

	// Release releases the frame uniform, its descriptor set and the model.
	Release()
}

var _ Scene = &scene{}

// NewScene creates the frame uniform and its descriptor set and frames the camera on the selected
// glTF scene.
//
// Parameters:
//   - name: the scene name
//   - device: the device the model was imported on
//   - writer: writes the frame uniform each frame, usually the same device
//   - pipeline: the scene pipeline the model was imported against
//   - m: the model to draw
//   - cam: the camera to view the model through
//   - options: functional options configuring the scene
//
// Returns:
//   - Scene: the created scene
//   - error: an error if the scene selection does not resolve or the frame resources fail to create
func NewScene(name string, device gpu.Device, writer UniformWriter, pipeline gpu.Pipeline, m model.Model, cam camera.Camera, options ...SceneBuilderOption) (Scene, error) {
	s := &scene{
		mu:          &sync.Mutex{},
		name:        name,
		active:      true,
		device:      device,
		writer:      writer,
		pipeline:    pipeline,
		model:       m,
		cam:         cam,
		sceneIndex:  DefaultSceneIndex,
		clearValues: gpu.DefaultClearValues,
		transform:   mgl32.Ident4(),
	}
	for _, opt := range options {
		opt(s)
	}

	if _, err := s.resolve(s.sceneIndex); err != nil {
		return nil, err
	}

	var err error
	s.frameBuffer, err = device.CreateBuffer(gpu.BufferDescriptor{
		Label: name + " frame uniform",
		Size:  uint64((&camera.GPUFrameUniform{}).Size()),
		Usage: gpu.BufferUsageUniform | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}
	s.frameSet, err = device.CreateDescriptorSet(pipeline, gpu.DescriptorSetDescriptor{
		Label:   name + " frame",
		Slot:    gpu.SlotFrame,
		Entries: []gpu.DescriptorSetEntry{{Binding: 0, Buffer: s.frameBuffer}},
	})
	if err != nil {
		s.frameBuffer.Release()
		return nil, fmt.Errorf("scene %s: %w", name, err)
	}

	if err := s.Reframe(); err != nil {
		s.frameSet.Release()
		s.frameBuffer.Release()
		return nil, err
	}
	return s, nil
}

// resolve maps DefaultSceneIndex to the document's default scene and validates explicit indices.
func (s *scene) resolve(index int) (int, error) {
	if index == DefaultSceneIndex {
		def, ok := s.model.DefaultScene()
		if !ok {
			return 0, model.ErrNoDefaultScene
		}
		return def, nil
	}
	if index < 0 || index >= s.model.SceneCount() {
		return 0, &model.InvalidSceneIndexError{Index: index, SceneCount: s.model.SceneCount()}
	}
	return index, nil
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Model() model.Model {
	return s.model
}

func (s *scene) SceneIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sceneIndex
}

func (s *scene) SetSceneIndex(index int) error {
	s.mu.Lock()
	if _, err := s.resolve(index); err != nil {
		s.mu.Unlock()
		return err
	}
	s.sceneIndex = index
	s.mu.Unlock()

	common.Logger().Info("scene selected", "scene", s.name, "index", index)
	return s.Reframe()
}

func (s *scene) Reframe() error {
	s.mu.Lock()
	index, err := s.resolve(s.sceneIndex)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	lo, hi, err := s.model.Bounds(index)
	if err != nil {
		return fmt.Errorf("scene %s: %w", s.name, err)
	}
	if lo == hi {
		return nil
	}
	s.cam.FrameBounds(lo, hi)
	common.Logger().Debug("camera framed", "scene", s.name, "index", index, "min", lo, "max", hi)
	return nil
}

func (s *scene) SetSpin(rate float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spin = rate
}

func (s *scene) Spin() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spin
}

func (s *scene) Frames() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frames
}

func (s *scene) Draw(fb gpu.Framebuffer, deltaTime float32) ([]gpu.CommandBuffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameSet == nil {
		return nil, ErrReleased
	}

	// The previous frame's upload has been submitted by now.
	if s.stagingPending {
		s.model.ReleaseStagingBuffers()
		s.stagingPending = false
	}

	var out []gpu.CommandBuffer
	if !s.model.Initialized() {
		cb, err := s.upload()
		if err != nil {
			return nil, err
		}
		out = append(out, cb)
		s.stagingPending = true
	}

	if s.spin != 0 {
		s.cam.Controller().Rotate(s.spin*deltaTime, 0)
	}
	if fb.Height() > 0 {
		s.cam.SetAspect(float32(fb.Width()) / float32(fb.Height()))
	}
	s.cam.Update()

	u := s.cam.FrameUniform(fb.Width(), fb.Height(), s.transform)
	if err := s.writer.WriteBuffer(s.frameBuffer, 0, u.Marshal()); err != nil {
		return nil, fmt.Errorf("scene %s: failed to write frame uniform: %w", s.name, err)
	}

	rec, err := s.device.CreateCommandRecorder(s.name + " draw")
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	dc := model.DrawContext{
		Recorder:    rec,
		Pipeline:    s.pipeline,
		Framebuffer: fb,
		ClearValues: s.clearValues,
		FrameSet:    s.frameSet,
	}
	var cb gpu.CommandBuffer
	if s.sceneIndex == DefaultSceneIndex {
		cb, err = s.model.DrawMainScene(dc)
	} else {
		cb, err = s.model.DrawScene(dc, s.sceneIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}

	s.frames++
	return append(out, cb), nil
}

// upload records the model's initialization tasks into their own command buffer.
// Caller must hold the mutex.
func (s *scene) upload() (gpu.CommandBuffer, error) {
	rec, err := s.device.CreateCommandRecorder(s.name + " upload")
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	pending := s.model.PendingTasks()
	if _, err := s.model.Initialize(rec); err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	cb, err := rec.Finish()
	if err != nil {
		return nil, fmt.Errorf("scene %s: %w", s.name, err)
	}
	common.Logger().Info("model upload recorded", "scene", s.name, "tasks", pending)
	return cb, nil
}

func (s *scene) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameSet != nil {
		s.frameSet.Release()
		s.frameSet = nil
	}
	if s.frameBuffer != nil {
		s.frameBuffer.Release()
		s.frameBuffer = nil
	}
	if s.model != nil {
		s.model.Release()
	}
}
