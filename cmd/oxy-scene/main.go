// Command oxy-scene opens a window and draws a glTF scene with an orbit camera.
//
// Usage:
//
//	oxy-scene [-config viewer.toml] [-scene N] [-spin RATE] [-profile] model.gltf
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine"
	"github.com/Carmen-Shannon/oxy-scene/engine/camera"
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/gpu"
	"github.com/Carmen-Shannon/oxy-scene/engine/loader"
	"github.com/Carmen-Shannon/oxy-scene/engine/model"
	"github.com/Carmen-Shannon/oxy-scene/engine/renderer"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
	"github.com/Carmen-Shannon/oxy-scene/engine/window"
)

func main() {
	if err := run(); err != nil {
		common.Logger().Error("oxy-scene failed", "error", err)
		fmt.Fprintln(os.Stderr, "oxy-scene:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, profile, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	if err := setupLogger(cfg.Log); err != nil {
		return err
	}
	if cfg.Asset.Path == "" {
		return fmt.Errorf("no asset given: pass a .gltf or .glb path or set asset.path in the config")
	}

	// ── Window ──────────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithConfig(cfg.Window),
		window.WithTitle(windowTitle(cfg.Window.Title, cfg.Asset.Path, cfg.Asset.Scene)),
	)
	if err != nil {
		return err
	}
	defer func() { _ = win.Close() }()

	// ── Renderer ────────────────────────────────────────────────────────
	presentMode := renderer.PresentModeVSync
	if cfg.Renderer.Uncapped() {
		presentMode = renderer.PresentModeUncapped
	}
	r, err := renderer.NewRenderer(renderer.BackendTypeWGPU, win.SurfaceDescriptor(),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithPresentMode(presentMode),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
	)
	if err != nil {
		return err
	}
	defer r.Release()

	// The pipeline is built against the configured surface format.
	if err := r.Resize(win.Width(), win.Height()); err != nil {
		return err
	}
	scenePipeline, err := r.CreateScenePipeline()
	if err != nil {
		return err
	}

	// ── Model ───────────────────────────────────────────────────────────
	l := loader.NewLoader(loader.BackendTypeGLTF, loader.WithDecodeWorkers(cfg.Loader.DecodeWorkers))
	defer l.Close()

	m, err := model.Import(context.Background(), r.Device(), scenePipeline, cfg.Asset.Path,
		model.WithName(filepath.Base(cfg.Asset.Path)),
		model.WithLoader(l),
	)
	if err != nil {
		return err
	}

	// ── Camera + Scene ──────────────────────────────────────────────────
	cam := camera.NewCamera(
		camera.WithFov(cfg.Camera.Fov*math.Pi/180),
		camera.WithAspect(float32(win.Width())/float32(max(win.Height(), 1))),
		camera.WithClipPlanes(cfg.Camera.Near, cfg.Camera.Far),
		camera.WithController(camera.NewOrbitController(
			camera.WithOrbitSpeed(cfg.Camera.OrbitSpeed),
		)),
	)

	c := cfg.Renderer.ClearColor
	sc, err := scene.NewScene(m.Name(), r.Device(), r.Device(), scenePipeline, m, cam,
		scene.WithSceneIndex(cfg.Asset.Scene),
		scene.WithSpin(cfg.Camera.Spin),
		scene.WithClearValues(gpu.ClearValues{
			Color: gpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]},
			Depth: 1.0,
		}),
	)
	if err != nil {
		m.Release()
		return err
	}
	defer sc.Release()

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithScene(sc),
		engine.WithProfiling(profile),
	)
	setupInput(eng, sc, cfg)

	common.Logger().Info("viewer started",
		"asset", cfg.Asset.Path,
		"scenes", m.SceneCount(),
		"msaa", cfg.Renderer.MSAA,
		"present_mode", presentMode.String(),
	)
	return eng.Run()
}

// parseFlags loads the config file, if any, and applies the command line overrides.
func parseFlags(args []string) (*config.Config, bool, error) {
	fs := flag.NewFlagSet("oxy-scene", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML or YAML viewer configuration")
	sceneIndex := fs.Int("scene", math.MinInt, "glTF scene index to draw (-1 for the default scene)")
	spin := fs.Float64("spin", math.NaN(), "automatic orbit rate in radians per second")
	msaa := fs.Uint("msaa", 0, "MSAA sample count (1, 4, 8 or 16)")
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	software := fs.Bool("software", false, "force the software fallback adapter")
	profile := fs.Bool("profile", false, "log frame statistics every second")
	if err := fs.Parse(args); err != nil {
		return nil, false, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, false, err
		}
	}

	if fs.NArg() > 0 {
		cfg.Asset.Path = fs.Arg(0)
	}
	if *sceneIndex != math.MinInt {
		cfg.Asset.Scene = *sceneIndex
	}
	if !math.IsNaN(*spin) {
		cfg.Camera.Spin = float32(*spin)
	}
	if *msaa != 0 {
		cfg.Renderer.MSAA = uint32(*msaa)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *software {
		cfg.Renderer.ForceSoftware = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, *profile, nil
}

func setupLogger(c config.LogConfig) error {
	level, err := c.SlogLevel()
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(c.Format, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	common.SetLogger(slog.New(h))
	return nil
}

func windowTitle(base, path string, sceneIndex int) string {
	name := filepath.Base(path)
	if sceneIndex == scene.DefaultSceneIndex {
		return fmt.Sprintf("%s - %s", base, name)
	}
	return fmt.Sprintf("%s - %s [scene %d]", base, name, sceneIndex)
}
