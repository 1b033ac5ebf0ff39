package camera

import "github.com/go-gl/mathgl/mgl32"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitControllerImpl)

// WithRadius sets the initial orbit radius (distance from target).
//
// Parameters:
//   - radius: distance from the orbit target
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.radius = radius
	}
}

// WithRadiusBounds sets the closest and farthest zoom distances.
//
// Parameters:
//   - minRadius: the closest zoom distance
//   - maxRadius: the farthest zoom distance
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius bounds
func WithRadiusBounds(minRadius, maxRadius float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.minRadius, oc.maxRadius = minRadius, maxRadius
	}
}

// WithAzimuth sets the initial horizontal angle around the Y axis.
//
// Parameters:
//   - azimuth: horizontal angle in radians (0 = +Z axis)
//
// Returns:
//   - OrbitControllerOption: functional option to set the azimuth
func WithAzimuth(azimuth float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.azimuth = azimuth
	}
}

// WithElevation sets the initial vertical angle from the horizontal plane.
//
// Parameters:
//   - elevation: vertical angle in radians (0 = horizontal)
//
// Returns:
//   - OrbitControllerOption: functional option to set the elevation
func WithElevation(elevation float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.elevation = elevation
	}
}

// WithTarget sets the look-at/pivot point.
//
// Parameters:
//   - target: world-space pivot
//
// Returns:
//   - OrbitControllerOption: functional option to set the target position
func WithTarget(target mgl32.Vec3) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.target = target
	}
}

// WithOrbitSpeed sets the keyboard orbit step.
//
// Parameters:
//   - speed: radians per orbit call
//
// Returns:
//   - OrbitControllerOption: functional option to set the orbit speed
func WithOrbitSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.orbitSpeed = speed
	}
}

// WithZoomSpeed sets the zoom multiplier.
//
// Parameters:
//   - speed: world units per unit of zoom input
//
// Returns:
//   - OrbitControllerOption: functional option to set the zoom speed
func WithZoomSpeed(speed float32) OrbitControllerOption {
	return func(oc *orbitControllerImpl) {
		oc.zoomSpeed = speed
	}
}
