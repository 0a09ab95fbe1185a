// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "github.com/chewxy/math32"

// Vec2 is a two component float32 vector, typically a screen-space coordinate.
type Vec2 [2]float32

// Vec3 is a three component float32 vector.
type Vec3 [3]float32

// Vec4 is a four component float32 vector, used for homogeneous positions and RGBA texels.
type Vec4 [4]float32

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v[0] + o[0], v[1] + o[1]} }

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v[0] - o[0], v[1] - o[1]} }

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 { return Vec2{v[0] * s, v[1] * s} }

// Length returns the Euclidean length of v.
func (v Vec2) Length() float32 { return math32.Sqrt(v[0]*v[0] + v[1]*v[1]) }

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]} }

// Mul returns the component-wise product of v and o.
func (v Vec3) Mul(o Vec3) Vec3 { return Vec3{v[0] * o[0], v[1] * o[1], v[2] * o[2]} }

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v[0] * s, v[1] * s, v[2] * s} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float32 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] }

// Cross returns the cross product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v[1]*o[2] - v[2]*o[1],
		v[2]*o[0] - v[0]*o[2],
		v[0]*o[1] - v[1]*o[0],
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float32 { return math32.Sqrt(v.Dot(v)) }

// Normalize returns v scaled to unit length. The zero vector is returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// Reflect returns the reflection of the incident vector v about the unit normal n.
func (v Vec3) Reflect(n Vec3) Vec3 {
	return v.Sub(n.Scale(2 * n.Dot(v)))
}

// Lerp linearly interpolates from v to o by t.
func (v Vec3) Lerp(o Vec3, t float32) Vec3 {
	return Vec3{Mix(v[0], o[0], t), Mix(v[1], o[1], t), Mix(v[2], o[2], t)}
}

// Vec4 extends v to a homogeneous vector with the given w.
func (v Vec3) Vec4(w float32) Vec4 { return Vec4{v[0], v[1], v[2], w} }

// XYZ drops the w component.
func (v Vec4) XYZ() Vec3 { return Vec3{v[0], v[1], v[2]} }

// Add returns v + o.
func (v Vec4) Add(o Vec4) Vec4 { return Vec4{v[0] + o[0], v[1] + o[1], v[2] + o[2], v[3] + o[3]} }

// Scale returns v * s.
func (v Vec4) Scale(s float32) Vec4 { return Vec4{v[0] * s, v[1] * s, v[2] * s, v[3] * s} }

// Dot returns the dot product of v and o.
func (v Vec4) Dot(o Vec4) float32 { return v[0]*o[0] + v[1]*o[1] + v[2]*o[2] + v[3]*o[3] }

// Lerp linearly interpolates from v to o by t.
func (v Vec4) Lerp(o Vec4, t float32) Vec4 {
	return Vec4{Mix(v[0], o[0], t), Mix(v[1], o[1], t), Mix(v[2], o[2], t), Mix(v[3], o[3], t)}
}

// PerspectiveDivide returns xyz / w.
func (v Vec4) PerspectiveDivide() Vec3 {
	return Vec3{v[0] / v[3], v[1] / v[3], v[2] / v[3]}
}

// Color is a linear RGBA color.
type Color = Vec4

// Viewport describes the pixel dimensions of a render target.
type Viewport struct {
	Width  int
	Height int
}

// Aspect returns width / height, or 1 for a degenerate viewport.
func (v Viewport) Aspect() float32 {
	if v.Height == 0 {
		return 1
	}
	return float32(v.Width) / float32(v.Height)
}

// TexelSize returns the size of one texel in UV units.
func (v Viewport) TexelSize() Vec2 {
	return Vec2{1 / float32(max(v.Width, 1)), 1 / float32(max(v.Height, 1))}
}
