package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, -1, cfg.Asset.Scene)
	assert.Equal(t, uint32(4), cfg.Renderer.MSAA)
	assert.False(t, cfg.Renderer.Uncapped())
}

func TestLoadTOMLMergesOverDefaults(t *testing.T) {
	path := writeFile(t, "viewer.toml", `
[window]
title = "box"
width = 800

[renderer]
msaa = 1
present_mode = "uncapped"
clear_color = [0.0, 0.0, 0.25, 1.0]

[asset]
path = "models/box.gltf"
scene = 0

[camera]
spin = 0.5

[log]
level = "debug"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "box", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, uint32(1), cfg.Renderer.MSAA)
	assert.True(t, cfg.Renderer.Uncapped())
	assert.Equal(t, [4]float64{0, 0, 0.25, 1}, cfg.Renderer.ClearColor)
	assert.Equal(t, "models/box.gltf", cfg.Asset.Path)
	assert.Equal(t, 0, cfg.Asset.Scene)
	assert.InDelta(t, 0.5, cfg.Camera.Spin, 1e-6)
	assert.InDelta(t, 45, cfg.Camera.Fov, 1e-6)

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "viewer.yml", `
window:
  height: 600
loader:
  decode_workers: 2
log:
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 2, cfg.Loader.DecodeWorkers)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestReadEmptyYieldsDefaults(t *testing.T) {
	cfg, err := Read(strings.NewReader(""), YAMLDecoder)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Read(strings.NewReader(""), TOMLDecoder)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(writeFile(t, "viewer.json", "{}"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "typo.toml", "[window]\nwidht = 10\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "typo.yaml", "window:\n  widht: 10\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "[renderer]\nmsaa = 2\n"))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.Window.Width = 0 }},
		{"negative limit", func(c *Config) { c.Window.MaxHeight = -1 }},
		{"msaa", func(c *Config) { c.Renderer.MSAA = 3 }},
		{"present mode", func(c *Config) { c.Renderer.PresentMode = "mailbox" }},
		{"clear color", func(c *Config) { c.Renderer.ClearColor[2] = 1.5 }},
		{"scene", func(c *Config) { c.Asset.Scene = -2 }},
		{"fov", func(c *Config) { c.Camera.Fov = 180 }},
		{"clip planes", func(c *Config) { c.Camera.Far = c.Camera.Near }},
		{"orbit speed", func(c *Config) { c.Camera.OrbitSpeed = -1 }},
		{"workers", func(c *Config) { c.Loader.DecodeWorkers = -1 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
