package main

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-scene/common"
	"github.com/Carmen-Shannon/oxy-scene/engine"
	"github.com/Carmen-Shannon/oxy-scene/engine/config"
	"github.com/Carmen-Shannon/oxy-scene/engine/scene"
)

// setupInput wires the camera controls:
//
//	A/D or Left/Right    orbit
//	W/S or Up/Down       tilt
//	Q/E or -/=           zoom
//	Scroll               zoom
//	Left or middle drag  orbit
//	Space                toggle spin
//	F                    reframe
//	1-9 / 0              select scene N-1 / the default scene
func setupInput(eng engine.Engine, sc scene.Scene, cfg *config.Config) {
	var mu sync.Mutex
	keyState := make(map[uint32]bool)
	win := eng.Window()
	ctrl := sc.Camera().Controller()
	spin := cfg.Camera.Spin
	if spin == 0 {
		spin = 0.5
	}

	win.SetKeyDownCallback(func(keyCode uint32) {
		mu.Lock()
		keyState[keyCode] = true
		mu.Unlock()

		switch {
		case keyCode == common.KeySpace:
			if sc.Spin() != 0 {
				sc.SetSpin(0)
			} else {
				sc.SetSpin(spin)
			}
		case keyCode == common.KeyF:
			if err := sc.Reframe(); err != nil {
				common.Logger().Warn("reframe failed", "error", err)
			}
		case keyCode == common.Key0:
			selectScene(eng, sc, cfg, scene.DefaultSceneIndex)
		default:
			if idx, ok := common.SceneKeyIndex(keyCode); ok {
				selectScene(eng, sc, cfg, idx)
			}
		}
	})

	win.SetKeyUpCallback(func(keyCode uint32) {
		mu.Lock()
		keyState[keyCode] = false
		mu.Unlock()
	})

	win.SetScrollCallback(func(delta float32) {
		ctrl.Zoom(delta)
	})

	sensitivity := cfg.Camera.DragSensitivity
	win.SetDragCallback(func(dx, dy float32) {
		ctrl.Rotate(-dx*sensitivity, dy*sensitivity)
	})

	held := func(keys ...uint32) bool {
		for _, k := range keys {
			if keyState[k] {
				return true
			}
		}
		return false
	}
	eng.SetTickCallback(func(_ float32) {
		mu.Lock()
		defer mu.Unlock()

		if held(common.KeyA, common.KeyLeft) {
			ctrl.OrbitLeft()
		}
		if held(common.KeyD, common.KeyRight) {
			ctrl.OrbitRight()
		}
		if held(common.KeyW, common.KeyUp) {
			ctrl.OrbitUp()
		}
		if held(common.KeyS, common.KeyDown) {
			ctrl.OrbitDown()
		}
		if held(common.KeyE, common.KeyEqual) {
			ctrl.Zoom(0.25)
		}
		if held(common.KeyQ, common.KeyMinus) {
			ctrl.Zoom(-0.25)
		}
	})
}

func selectScene(eng engine.Engine, sc scene.Scene, cfg *config.Config, index int) {
	if err := sc.SetSceneIndex(index); err != nil {
		common.Logger().Warn("scene selection ignored", "index", index, "error", err)
		return
	}
	eng.Window().SetTitle(windowTitle(cfg.Window.Title, cfg.Asset.Path, index))
}
