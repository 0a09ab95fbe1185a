package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/chewxy/math32"
)

// orbitControllerImpl is the implementation of the OrbitController interface.
type orbitControllerImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3

	radius    float32
	azimuth   float32 // horizontal angle around Y
	elevation float32 // vertical angle from the horizontal plane

	minRadius    float32
	maxRadius    float32
	minElevation float32
	maxElevation float32

	orbitSpeed float32
	zoomSpeed  float32
	panSpeed   float32
}

// OrbitController moves a point on a sphere around a target. The viewer drives it from
// keyboard and mouse input; a Camera pulls its position and target on Update.
type OrbitController interface {
	// Position returns the current eye position.
	Position() common.Vec3

	// Target returns the orbit center.
	Target() common.Vec3

	// SetTarget moves the orbit center, keeping radius and angles.
	SetTarget(t common.Vec3)

	// Orbit rotates around the target by the given angle deltas in radians.
	// Elevation is clamped to the configured bounds.
	//
	// Parameters:
	//   - dAzimuth: horizontal delta
	//   - dElevation: vertical delta
	Orbit(dAzimuth, dElevation float32)

	// OrbitLeft rotates left by the orbit speed.
	OrbitLeft()

	// OrbitRight rotates right by the orbit speed.
	OrbitRight()

	// OrbitUp raises the eye by the orbit speed.
	OrbitUp()

	// OrbitDown lowers the eye by the orbit speed.
	OrbitDown()

	// Zoom moves toward (positive) or away from (negative) the target, scaled by the zoom speed.
	Zoom(delta float32)

	// Pan shifts both eye and target along the camera's right and up axes, scaled by the pan speed.
	//
	// Parameters:
	//   - dx: movement along the right axis
	//   - dy: movement along the up axis
	Pan(dx, dy float32)

	// Radius returns the distance from the target.
	Radius() float32

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// Elevation returns the vertical angle in radians.
	Elevation() float32
}

var _ OrbitController = &orbitControllerImpl{}

// NewOrbitController creates a new OrbitController with the given options.
//
// Parameters:
//   - options: variadic list of OrbitControllerOption functions
//
// Returns:
//   - OrbitController: the newly created controller
func NewOrbitController(options ...OrbitControllerOption) OrbitController {
	cc := &orbitControllerImpl{
		mu:        &sync.Mutex{},
		radius:    6.0,
		azimuth:   0.0,
		elevation: math32.Pi / 8,

		minRadius:    0.5,
		maxRadius:    200.0,
		minElevation: -math32.Pi/2 + 0.05,
		maxElevation: math32.Pi/2 - 0.05,

		orbitSpeed: 0.03,
		zoomSpeed:  0.5,
		panSpeed:   0.05,
	}
	for _, option := range options {
		option(cc)
	}
	cc.clamp()
	cc.updatePosition()
	return cc
}

// clamp restricts radius and elevation to their bounds. Callers must hold cc.mu or own cc exclusively.
func (cc *orbitControllerImpl) clamp() {
	cc.radius = common.Clamp(cc.radius, cc.minRadius, cc.maxRadius)
	cc.elevation = common.Clamp(cc.elevation, cc.minElevation, cc.maxElevation)
}

// updatePosition recomputes the eye from spherical coordinates around the target.
func (cc *orbitControllerImpl) updatePosition() {
	cosElev, sinElev := math32.Cos(cc.elevation), math32.Sin(cc.elevation)
	cosAzim, sinAzim := math32.Cos(cc.azimuth), math32.Sin(cc.azimuth)
	cc.position = cc.target.Add(common.Vec3{
		cc.radius * cosElev * sinAzim,
		cc.radius * sinElev,
		cc.radius * cosElev * cosAzim,
	})
}

// localAxes returns the camera's right and up axes derived from the eye-to-target direction.
func (cc *orbitControllerImpl) localAxes() (right, up common.Vec3) {
	back := cc.position.Sub(cc.target)
	if back.Length() < 1e-8 {
		return common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}
	}
	back = back.Normalize()
	right = common.Vec3{0, 1, 0}.Cross(back)
	if right.Length() < 1e-8 {
		return common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}
	}
	right = right.Normalize()
	return right, back.Cross(right)
}

func (cc *orbitControllerImpl) Position() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.position
}

func (cc *orbitControllerImpl) Target() common.Vec3 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.target
}

func (cc *orbitControllerImpl) SetTarget(t common.Vec3) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.target = t
	cc.updatePosition()
}

func (cc *orbitControllerImpl) Orbit(dAzimuth, dElevation float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.azimuth += dAzimuth
	cc.elevation += dElevation
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitControllerImpl) OrbitLeft() {
	cc.Orbit(-cc.orbitSpeed, 0)
}

func (cc *orbitControllerImpl) OrbitRight() {
	cc.Orbit(cc.orbitSpeed, 0)
}

func (cc *orbitControllerImpl) OrbitUp() {
	cc.Orbit(0, cc.orbitSpeed)
}

func (cc *orbitControllerImpl) OrbitDown() {
	cc.Orbit(0, -cc.orbitSpeed)
}

func (cc *orbitControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.radius -= delta * cc.zoomSpeed
	cc.clamp()
	cc.updatePosition()
}

func (cc *orbitControllerImpl) Pan(dx, dy float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	right, up := cc.localAxes()
	shift := right.Scale(dx * cc.panSpeed).Add(up.Scale(dy * cc.panSpeed))
	cc.target = cc.target.Add(shift)
	cc.updatePosition()
}

func (cc *orbitControllerImpl) Radius() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.radius
}

func (cc *orbitControllerImpl) Azimuth() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.azimuth
}

func (cc *orbitControllerImpl) Elevation() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.elevation
}
