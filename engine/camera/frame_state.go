package camera

import "github.com/Carmen-Shannon/oxy-ssr/common"

// FrameState is a value snapshot of a camera for one rendered frame.
// Passes read camera data only through snapshots so a frame never observes a camera mid-update.
type FrameState struct {
	View              [16]float32
	Projection        [16]float32
	InverseProjection [16]float32

	// World is the camera-to-world matrix.
	World [16]float32

	Position  common.Vec3
	Near, Far float32
	Viewport  common.Viewport
}

// ViewProjection returns Projection * View.
func (f FrameState) ViewProjection() [16]float32 {
	return common.Mul4x(f.Projection, f.View)
}

// Project maps a world-space point to screen uv (bottom-left origin) and device depth.
//
// Parameters:
//   - p: the world-space point
//
// Returns:
//   - common.Vec3: (u, v, depth)
//   - bool: false when the point is behind the camera
func (f FrameState) Project(p common.Vec3) (common.Vec3, bool) {
	clip := common.TransformPoint(f.ViewProjection(), p.Vec4(1))
	if clip[3] <= 0 {
		return common.Vec3{}, false
	}
	ndc := clip.PerspectiveDivide()
	return common.Vec3{ndc[0]*0.5 + 0.5, ndc[1]*0.5 + 0.5, ndc[2]}, true
}
