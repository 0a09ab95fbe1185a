package common

import "github.com/chewxy/math32"

// Quat is a rotation quaternion stored as x, y, z, w, the glTF component order.
type Quat [4]float32

// IdentityQuat returns the no-rotation quaternion.
func IdentityQuat() Quat {
	return Quat{0, 0, 0, 1}
}

// QuatFromAxisAngle builds a quaternion rotating angle radians about axis.
//
// Parameters:
//   - axis: the rotation axis, normalized internally
//   - angle: the rotation in radians
//
// Returns:
//   - Quat: the rotation
func QuatFromAxisAngle(axis Vec3, angle float32) Quat {
	a := axis.Normalize()
	s := math32.Sin(angle / 2)
	return Quat{a[0] * s, a[1] * s, a[2] * s, math32.Cos(angle / 2)}
}

// Normalize returns q scaled to unit length; the zero quaternion becomes the identity.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3])
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{q[0] / l, q[1] / l, q[2] / l, q[3] / l}
}

// Slerp spherically interpolates from q to o along the shorter arc.
func (q Quat) Slerp(o Quat, t float32) Quat {
	cos := q[0]*o[0] + q[1]*o[1] + q[2]*o[2] + q[3]*o[3]
	if cos < 0 {
		o = Quat{-o[0], -o[1], -o[2], -o[3]}
		cos = -cos
	}
	// nearly parallel: fall back to normalized lerp
	if cos > 0.9995 {
		return Quat{
			Mix(q[0], o[0], t), Mix(q[1], o[1], t), Mix(q[2], o[2], t), Mix(q[3], o[3], t),
		}.Normalize()
	}
	theta := math32.Acos(cos)
	sin := math32.Sin(theta)
	a := math32.Sin((1-t)*theta) / sin
	b := math32.Sin(t*theta) / sin
	return Quat{a*q[0] + b*o[0], a*q[1] + b*o[1], a*q[2] + b*o[2], a*q[3] + b*o[3]}
}

// ComposeTRS builds the column-major matrix T * R * S.
//
// Parameters:
//   - t: translation
//   - q: unit rotation quaternion
//   - s: scale
//
// Returns:
//   - [16]float32: the transform
func ComposeTRS(t Vec3, q Quat, s Vec3) [16]float32 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return [16]float32{
		(1 - 2*(yy+zz)) * s[0], 2 * (xy + wz) * s[0], 2 * (xz - wy) * s[0], 0,
		2 * (xy - wz) * s[1], (1 - 2*(xx+zz)) * s[1], 2 * (yz + wx) * s[1], 0,
		2 * (xz + wy) * s[2], 2 * (yz - wx) * s[2], (1 - 2*(xx+yy)) * s[2], 0,
		t[0], t[1], t[2], 1,
	}
}
