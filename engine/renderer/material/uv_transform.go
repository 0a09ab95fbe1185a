package material

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/chewxy/math32"
)

// IdentityUVTransform returns the 3x3 identity.
func IdentityUVTransform() [9]float32 {
	return [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}
}

// NewUVTransform builds a column-major 3x3 texture transform from offset, repeat, and a rotation about center.
//
// Parameters:
//   - offset: translation applied after scaling
//   - repeat: scale applied to the coordinates
//   - rotation: rotation in radians
//   - center: pivot of the rotation in UV space
//
// Returns:
//   - [9]float32: the transform
func NewUVTransform(offset, repeat common.Vec2, rotation float32, center common.Vec2) [9]float32 {
	c, s := math32.Cos(rotation), math32.Sin(rotation)
	sx, sy := repeat[0], repeat[1]
	return [9]float32{
		sx * c, -sy * s, 0,
		sx * s, sy * c, 0,
		-sx*(c*center[0]+s*center[1]) + center[0] + offset[0],
		-sy*(-s*center[0]+c*center[1]) + center[1] + offset[1],
		1,
	}
}

// ApplyUVTransform maps uv through the column-major 3x3 transform t.
//
// Parameters:
//   - t: the transform
//   - uv: the input coordinate
//
// Returns:
//   - common.Vec2: the transformed coordinate
func ApplyUVTransform(t [9]float32, uv common.Vec2) common.Vec2 {
	return common.Vec2{
		t[0]*uv[0] + t[3]*uv[1] + t[6],
		t[1]*uv[0] + t[4]*uv[1] + t[7],
	}
}

// padUVTransform lays the 3x3 out as three 16-byte columns for the WGSL uniform.
func padUVTransform(t [9]float32) [12]float32 {
	return [12]float32{t[0], t[1], t[2], 0, t[3], t[4], t[5], 0, t[6], t[7], t[8], 0}
}
