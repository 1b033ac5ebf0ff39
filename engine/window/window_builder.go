package window

import "github.com/Carmen-Shannon/oxy-scene/engine/config"

// WindowBuilderOption configures an engineWindow before the platform window is created.
type WindowBuilderOption func(w *engineWindow)

// WithConfig applies the window section of the viewer configuration. Zero limits are
// unconstrained and an empty title keeps the current one.
//
// Parameters:
//   - c: the window section of the viewer configuration
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithConfig(c config.WindowConfig) WindowBuilderOption {
	return func(w *engineWindow) {
		if c.Title != "" {
			w.title = c.Title
		}
		WithSize(c.Width, c.Height)(w)
		WithMinSize(c.MinWidth, c.MinHeight)(w)
		WithMaxSize(c.MaxWidth, c.MaxHeight)(w)
	}
}

// WithTitle sets the title bar text. The viewer replaces it with SetTitle when the scene changes.
//
// Parameters:
//   - title: the window title text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial framebuffer size. It is clamped into the size limits once all
// options are applied.
//
// Parameters:
//   - width: initial width in pixels
//   - height: initial height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.width, w.height = width, height
	}
}

// WithMinSize sets the smallest size the user can resize to. Zero in either dimension leaves
// that dimension unconstrained.
//
// Parameters:
//   - width: minimum width in pixels
//   - height: minimum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMinSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minWidth, w.minHeight = width, height
	}
}

// WithMaxSize sets the largest size the user can resize to. Zero in either dimension leaves
// that dimension unconstrained.
//
// Parameters:
//   - width: maximum width in pixels
//   - height: maximum height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithMaxSize(width, height int) WindowBuilderOption {
	return func(w *engineWindow) {
		w.maxWidth, w.maxHeight = width, height
	}
}
