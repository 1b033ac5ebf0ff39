package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/go-gl/mathgl/mgl32"
)

type cameraImpl struct {
	mu *sync.Mutex

	up mgl32.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	view       mgl32.Mat4
	projection mgl32.Mat4

	controller OrbitController
}

// Camera holds perspective settings and computes the view and projection matrices
// from an attached OrbitController each frame via Update.
type Camera interface {
	// Fov returns the vertical field of view in radians.
	//
	// Returns:
	//   - float32: field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// Near returns the near clipping plane distance.
	//
	// Returns:
	//   - float32: near plane distance
	Near() float32

	// Far returns the far clipping plane distance.
	//
	// Returns:
	//   - float32: far plane distance
	Far() float32

	// View returns the current view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the view matrix
	View() mgl32.Mat4

	// Projection returns the current projection matrix, mapping depth to [0, 1].
	//
	// Returns:
	//   - mgl32.Mat4: the projection matrix
	Projection() mgl32.Mat4

	// Controller returns the attached OrbitController, or nil.
	//
	// Returns:
	//   - OrbitController: the attached controller or nil
	Controller() OrbitController

	// SetAspect sets the aspect ratio (width / height) and recomputes matrices.
	//
	// Parameters:
	//   - aspect: the aspect ratio
	SetAspect(aspect float32)

	// SetClipPlanes sets the near and far plane distances and recomputes matrices.
	//
	// Parameters:
	//   - near: near plane distance
	//   - far: far plane distance
	SetClipPlanes(near, far float32)

	// Update reads position and target from the controller and recomputes matrices.
	// It should be called once per frame. Without a controller it does nothing.
	Update()

	// FrameBounds points the controller at the center of an axis-aligned box and backs off until
	// the whole box fits the vertical field of view. The clip planes are rescaled to the box.
	//
	// Parameters:
	//   - lo: the minimum corner
	//   - hi: the maximum corner
	FrameBounds(lo, hi mgl32.Vec3)

	// FrameUniform builds the frame-global uniform for a framebuffer size.
	//
	// Parameters:
	//   - width: framebuffer width in pixels
	//   - height: framebuffer height in pixels
	//   - model: the scene-wide model matrix
	//
	// Returns:
	//   - GPUFrameUniform: the uniform record
	FrameUniform(width, height uint32, model mgl32.Mat4) GPUFrameUniform
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera with a 45 degree field of view looking down -Z.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     mgl32.Vec3{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0),
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
		view:   mgl32.Ident4(),
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projection
}

func (c *cameraImpl) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetClipPlanes(near, far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near, c.far = near, far
	c.updateMatrices()
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.updateMatrices()
}

func (c *cameraImpl) FrameBounds(lo, hi mgl32.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}

	center := lo.Add(hi).Mul(0.5)
	radius := max(hi.Sub(lo).Len()*0.5, 1e-3)
	distance := radius / float32(math.Sin(float64(c.fov)/2))

	c.controller.SetRadiusBounds(radius*0.1, distance*10)
	c.controller.SetTarget(center)
	c.controller.SetRadius(distance)
	c.near = max(distance-radius, radius) * 0.01
	c.far = (distance*10 + radius) * 2
	c.updateMatrices()
}

func (c *cameraImpl) FrameUniform(width, height uint32, model mgl32.Mat4) GPUFrameUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return GPUFrameUniform{
		Dimensions: [2]float32{float32(width), float32(height)},
		Model:      model,
		View:       c.view,
		Projection: c.projection,
	}
}

// updateMatrices recalculates the view and projection matrices. The view is left unchanged
// when no controller is attached. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	c.projection = common.Perspective(c.fov, c.aspect, c.near, c.far)
	if c.controller == nil {
		return
	}
	c.view = mgl32.LookAtV(c.controller.Position(), c.controller.Target(), c.up)
}
