package camera

import "github.com/Carmen-Shannon/oxy-ssr/common"

// OrbitControllerOption is a functional option for configuring an OrbitController.
type OrbitControllerOption func(*orbitControllerImpl)

// WithOrbitTarget sets the orbit center.
//
// Parameters:
//   - t: the target position
//
// Returns:
//   - OrbitControllerOption: functional option to set the target position
func WithOrbitTarget(t common.Vec3) OrbitControllerOption {
	return func(cc *orbitControllerImpl) {
		cc.target = t
	}
}

// WithRadius sets the orbit radius.
//
// Parameters:
//   - radius: the distance from the target
//
// Returns:
//   - OrbitControllerOption: functional option to set the radius
func WithRadius(radius float32) OrbitControllerOption {
	return func(cc *orbitControllerImpl) {
		cc.radius = radius
	}
}

// WithAngles sets the initial azimuth and elevation in radians.
//
// Parameters:
//   - azimuth: horizontal angle
//   - elevation: vertical angle
//
// Returns:
//   - OrbitControllerOption: functional option to set the angles
func WithAngles(azimuth, elevation float32) OrbitControllerOption {
	return func(cc *orbitControllerImpl) {
		cc.azimuth = azimuth
		cc.elevation = elevation
	}
}

// WithRadiusBounds sets the minimum and maximum orbit radius.
//
// Parameters:
//   - min: minimum radius
//   - max: maximum radius
//
// Returns:
//   - OrbitControllerOption: functional option to set radius bounds
func WithRadiusBounds(min, max float32) OrbitControllerOption {
	return func(cc *orbitControllerImpl) {
		cc.minRadius = min
		cc.maxRadius = max
	}
}

// WithSpeeds sets the orbit, zoom and pan speeds.
//
// Parameters:
//   - orbit: radians per orbit step
//   - zoom: radius change per zoom unit
//   - pan: distance per pan unit
//
// Returns:
//   - OrbitControllerOption: functional option to set the speeds
func WithSpeeds(orbit, zoom, pan float32) OrbitControllerOption {
	return func(cc *orbitControllerImpl) {
		cc.orbitSpeed = orbit
		cc.zoomSpeed = zoom
		cc.panSpeed = pan
	}
}
