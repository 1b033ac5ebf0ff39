package common

// Virtual key codes for cross-platform input handling.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	Key0     = 48 // 0 key (ASCII), selects the document's default scene
	Key1     = 49 // 1 key (ASCII)
	Key9     = 57 // 9 key (ASCII)
	KeyA     = 65 // A key (ASCII)
	KeyD     = 68 // D key (ASCII)
	KeyR     = 82 // R key (ASCII)
	KeyS     = 83 // S key (ASCII)
	KeyW     = 87 // W key (ASCII)
	KeyE     = 69 // E key (ASCII)
	KeyF     = 70 // F key (ASCII)
	KeyQ     = 81 // Q key (ASCII)
	KeyMinus = 45 // - key (ASCII)
	KeyEqual = 61 // = key (ASCII)
	KeySpace = 32 // Space bar
	KeyTab   = 258
	KeyRight = 262
	KeyLeft  = 263
	KeyDown  = 264
	KeyUp    = 265
)

// SceneKeyIndex maps a number key to the scene index it selects.
// Key1 selects scene 0, Key9 selects scene 8.
//
// Parameters:
//   - keyCode: the virtual key code reported by the window
//
// Returns:
//   - int: the scene index selected by the key
//   - bool: false if the key is not a scene selection key
func SceneKeyIndex(keyCode uint32) (int, bool) {
	if keyCode < Key1 || keyCode > Key9 {
		return 0, false
	}
	return int(keyCode - Key1), true
}
