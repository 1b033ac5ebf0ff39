package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidConfig     = errors.New("invalid config")
)

// Config is the viewer configuration. Files only need to carry the fields they change; everything
// else keeps the value from Default.
type Config struct {
	Window   WindowConfig   `toml:"window" yaml:"window"`
	Renderer RendererConfig `toml:"renderer" yaml:"renderer"`
	Asset    AssetConfig    `toml:"asset" yaml:"asset"`
	Camera   CameraConfig   `toml:"camera" yaml:"camera"`
	Loader   LoaderConfig   `toml:"loader" yaml:"loader"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// WindowConfig sizes the viewer window. Zero limits are unconstrained.
type WindowConfig struct {
	Title     string `toml:"title" yaml:"title"`
	Width     int    `toml:"width" yaml:"width"`
	Height    int    `toml:"height" yaml:"height"`
	MinWidth  int    `toml:"min_width" yaml:"min_width"`
	MinHeight int    `toml:"min_height" yaml:"min_height"`
	MaxWidth  int    `toml:"max_width" yaml:"max_width"`
	MaxHeight int    `toml:"max_height" yaml:"max_height"`
}

// RendererConfig selects the surface and pass settings.
type RendererConfig struct {
	MSAA          uint32     `toml:"msaa" yaml:"msaa"`
	PresentMode   string     `toml:"present_mode" yaml:"present_mode"`
	ForceSoftware bool       `toml:"force_software" yaml:"force_software"`
	ClearColor    [4]float64 `toml:"clear_color" yaml:"clear_color"`
}

// AssetConfig names the glTF file to view and the scene to draw. Scene -1 draws the document's
// default scene.
type AssetConfig struct {
	Path  string `toml:"path" yaml:"path"`
	Scene int    `toml:"scene" yaml:"scene"`
}

// CameraConfig configures the orbit camera. Fov is in degrees, Spin in radians per second.
type CameraConfig struct {
	Fov             float32 `toml:"fov" yaml:"fov"`
	Near            float32 `toml:"near" yaml:"near"`
	Far             float32 `toml:"far" yaml:"far"`
	Spin            float32 `toml:"spin" yaml:"spin"`
	OrbitSpeed      float32 `toml:"orbit_speed" yaml:"orbit_speed"`
	DragSensitivity float32 `toml:"drag_sensitivity" yaml:"drag_sensitivity"`
}

// LoaderConfig tunes asset loading. Zero decode workers uses the loader default.
type LoaderConfig struct {
	DecodeWorkers int `toml:"decode_workers" yaml:"decode_workers"`
}

// LogConfig selects the slog level and handler.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a fresh default configuration
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:     "oxy-scene",
			Width:     1280,
			Height:    720,
			MinWidth:  320,
			MinHeight: 200,
		},
		Renderer: RendererConfig{
			MSAA:        4,
			PresentMode: "vsync",
			ClearColor:  [4]float64{0.1, 0.1, 0.1, 1.0},
		},
		Asset: AssetConfig{
			Scene: -1,
		},
		Camera: CameraConfig{
			Fov:             45,
			Near:            0.1,
			Far:             1000,
			OrbitSpeed:      0.03,
			DragSensitivity: 0.005,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks every section and returns the first problem found.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig, or nil
func (c *Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	w := c.Window
	if w.Width <= 0 || w.Height <= 0 {
		return invalid("window size %dx%d must be positive", w.Width, w.Height)
	}
	if w.MinWidth < 0 || w.MinHeight < 0 || w.MaxWidth < 0 || w.MaxHeight < 0 {
		return invalid("window limits must not be negative")
	}

	switch c.Renderer.MSAA {
	case 1, 4, 8, 16:
	default:
		return invalid("msaa %d must be 1, 4, 8 or 16", c.Renderer.MSAA)
	}
	switch strings.ToLower(c.Renderer.PresentMode) {
	case "vsync", "uncapped":
	default:
		return invalid("present_mode %q must be vsync or uncapped", c.Renderer.PresentMode)
	}
	for i, v := range c.Renderer.ClearColor {
		if v < 0 || v > 1 {
			return invalid("clear_color[%d] = %g is outside [0, 1]", i, v)
		}
	}

	if c.Asset.Scene < -1 {
		return invalid("scene %d must be -1 (default scene) or a scene index", c.Asset.Scene)
	}

	cam := c.Camera
	if cam.Fov <= 0 || cam.Fov >= 180 {
		return invalid("fov %g must be in (0, 180)", cam.Fov)
	}
	if cam.Near <= 0 || cam.Far <= cam.Near {
		return invalid("clip planes near=%g far=%g must satisfy 0 < near < far", cam.Near, cam.Far)
	}
	if cam.OrbitSpeed < 0 || cam.DragSensitivity < 0 {
		return invalid("camera speeds must not be negative")
	}

	if c.Loader.DecodeWorkers < 0 {
		return invalid("decode_workers %d must not be negative", c.Loader.DecodeWorkers)
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return invalid("log level: %v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return invalid("log format %q must be text or json", c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level as a slog level name such as "debug" or "warn+2".
//
// Returns:
//   - slog.Level: the parsed level
//   - error: an error if the name is not a slog level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(l.Level))
	return level, err
}

// Uncapped reports whether the present mode disables vsync.
func (r RendererConfig) Uncapped() bool {
	return strings.EqualFold(r.PresentMode, "uncapped")
}
