package model

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
)

var (
	// ErrImplicitMaterial is returned by import when a primitive relies on the default material.
	ErrImplicitMaterial = errors.New("primitive has no explicit material index")

	// ErrAccessorOutOfBounds is returned when an accessor's byte range exceeds its buffer.
	ErrAccessorOutOfBounds = loader.ErrAccessorOutOfBounds

	// ErrInterleavedAccessor is returned when a POSITION or index accessor is not tightly packed.
	ErrInterleavedAccessor = errors.New("interleaved vertex and index data is not supported")

	// ErrMissingPosition is returned when a primitive has no POSITION attribute.
	ErrMissingPosition = errors.New("primitive has no POSITION attribute")

	// ErrMissingTexture is returned when a material's base color texture does not resolve to an image.
	ErrMissingTexture = errors.New("base color texture does not resolve to an image")

	// ErrAlreadyInitialized is returned by Initialize once the task queue has been drained.
	ErrAlreadyInitialized = errors.New("model already initialized")

	// ErrNotInitialized is returned by the draw operations before Initialize has run.
	ErrNotInitialized = errors.New("model not initialized")

	// ErrInvalidSceneIndex is matched by every *InvalidSceneIndexError.
	ErrInvalidSceneIndex = errors.New("invalid scene index")

	// ErrNoDefaultScene is returned by DrawMainScene when the document names no default scene.
	ErrNoDefaultScene = errors.New("document has no default scene")

	// ErrUnsupportedIndexType is returned when an index accessor is neither 16 nor 32-bit unsigned.
	ErrUnsupportedIndexType = errors.New("unsupported index component type")
)

// InvalidSceneIndexError reports a scene index outside the document's scene list.
type InvalidSceneIndexError struct {
	Index      int
	SceneCount int
}

func (e *InvalidSceneIndexError) Error() string {
	return fmt.Sprintf("invalid scene index %d: document has %d scenes", e.Index, e.SceneCount)
}

func (e *InvalidSceneIndexError) Unwrap() error {
	return ErrInvalidSceneIndex
}
