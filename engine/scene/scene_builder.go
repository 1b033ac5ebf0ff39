package scene

import (
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/go-gl/mathgl/mgl32"
)

// SceneBuilderOption is a functional option for configuring a Scene during construction.
type SceneBuilderOption func(*scene)

// WithActive sets whether the scene is drawn. Scenes are active by default.
//
// Parameters:
//   - active: whether the scene is drawn
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithSceneIndex selects the glTF scene to draw instead of the document's default scene.
//
// Parameters:
//   - index: a scene index of the document, or DefaultSceneIndex
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSceneIndex(index int) SceneBuilderOption {
	return func(s *scene) {
		s.sceneIndex = index
	}
}

// WithClearValues sets the color and depth the render pass clears to.
//
// Parameters:
//   - clear: the clear values
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithClearValues(clear gpu.ClearValues) SceneBuilderOption {
	return func(s *scene) {
		s.clearValues = clear
	}
}

// WithSpin sets the automatic orbit rate in radians per second.
//
// Parameters:
//   - rate: the azimuth change per second
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithSpin(rate float32) SceneBuilderOption {
	return func(s *scene) {
		s.spin = rate
	}
}

// WithTransform sets the scene-wide model matrix written into the frame uniform.
//
// Parameters:
//   - m: the model matrix
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithTransform(m mgl32.Mat4) SceneBuilderOption {
	return func(s *scene) {
		s.transform = m
	}
}
