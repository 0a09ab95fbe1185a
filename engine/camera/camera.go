package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/chewxy/math32"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	mu *sync.Mutex

	position common.Vec3
	target   common.Vec3
	up       common.Vec3

	fov    float32
	aspect float32
	near   float32
	far    float32

	viewMatrix              [16]float32
	projectionMatrix        [16]float32
	viewProjectionMatrix    [16]float32
	inverseProjectionMatrix [16]float32
	worldMatrix             [16]float32

	controller OrbitController
}

// Camera is a perspective camera looking from a position toward a target.
// All matrices are column-major and follow the WebGPU clip convention (0 <= z <= w).
type Camera interface {
	// Position returns the eye position in world space.
	Position() common.Vec3

	// Target returns the point the camera looks at.
	Target() common.Vec3

	// Up returns the up vector used to build the view matrix.
	Up() common.Vec3

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// ViewMatrix returns the world-to-view matrix.
	ViewMatrix() [16]float32

	// ProjectionMatrix returns the view-to-clip matrix.
	ProjectionMatrix() [16]float32

	// ViewProjectionMatrix returns Projection * View.
	ViewProjectionMatrix() [16]float32

	// InverseProjectionMatrix returns the clip-to-view matrix.
	InverseProjectionMatrix() [16]float32

	// WorldMatrix returns the view-to-world matrix (the inverse of the view matrix).
	WorldMatrix() [16]float32

	// Controller returns the attached orbit controller, or nil.
	Controller() OrbitController

	// LookAt places the camera at eye looking toward target.
	//
	// Parameters:
	//   - eye: the new position
	//   - target: the point to look at
	LookAt(eye, target common.Vec3)

	// SetUp sets the camera's up vector.
	SetUp(up common.Vec3)

	// SetFov sets the vertical field of view in radians.
	SetFov(fov float32)

	// SetAspect sets the aspect ratio.
	SetAspect(aspect float32)

	// SetNear sets the near clipping plane distance.
	SetNear(near float32)

	// SetFar sets the far clipping plane distance.
	SetFar(far float32)

	// SetController attaches an orbit controller. Update pulls position and target from it.
	SetController(ctrl OrbitController)

	// Update refreshes position and target from the controller, if one is attached.
	Update()

	// Snapshot captures the camera state for one frame at the given output size.
	//
	// Parameters:
	//   - vp: the render target size
	//
	// Returns:
	//   - FrameState: an immutable copy of the camera state
	Snapshot(vp common.Viewport) FrameState
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the given options.
// Defaults: position (0, 0, 5) looking at the origin, 45 degree field of view, aspect 1, near 0.1, far 100.
//
// Parameters:
//   - options: variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:       &sync.Mutex{},
		position: common.Vec3{0, 0, 5},
		up:       common.Vec3{0, 1, 0},
		fov:      45.0 * (math32.Pi / 180.0),
		aspect:   1.0,
		near:     0.1,
		far:      100.0,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller != nil {
		c.position = c.controller.Position()
		c.target = c.controller.Target()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Position() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) Target() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *cameraImpl) Up() common.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) WorldMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.worldMatrix
}

func (c *cameraImpl) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) LookAt(eye, target common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = eye
	c.target = target
	c.updateMatrices()
}

func (c *cameraImpl) SetUp(up common.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = up
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetAspect(aspect float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = aspect
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl OrbitController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return
	}
	c.position = c.controller.Position()
	c.target = c.controller.Target()
	c.updateMatrices()
}

func (c *cameraImpl) Snapshot(vp common.Viewport) FrameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FrameState{
		View:              c.viewMatrix,
		Projection:        c.projectionMatrix,
		InverseProjection: c.inverseProjectionMatrix,
		World:             c.worldMatrix,
		Position:          c.position,
		Near:              c.near,
		Far:               c.far,
		Viewport:          vp,
	}
}

// updateMatrices recomputes every derived matrix. Callers must hold c.mu.
func (c *cameraImpl) updateMatrices() {
	common.LookAt(c.viewMatrix[:], c.position, c.target, c.up)
	common.Perspective(c.projectionMatrix[:], c.fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
	common.Invert4(c.inverseProjectionMatrix[:], c.projectionMatrix[:])
	common.Invert4(c.worldMatrix[:], c.viewMatrix[:])
}
