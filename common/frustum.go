package common

import "github.com/chewxy/math32"

// Plane represents a plane in 3D space using the equation: ax + by + cz + d = 0
// where (a, b, c) is the normal and d is the distance from origin.
type Plane struct {
	Normal   Vec3
	Distance float32
}

// Frustum represents the six planes of a view frustum for culling.
// Planes are oriented so that positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices for clarity
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// ExtractFrustumFromMatrix extracts frustum planes from a projection * view matrix
// using the Gribb/Hartmann method, adapted for WebGPU clip space where 0 <= z <= w.
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj [16]float32) Frustum {
	var f Frustum
	row := func(i int) Vec4 {
		return Vec4{viewProj[i], viewProj[4+i], viewProj[8+i], viewProj[12+i]}
	}
	r0, r1, r2, r3 := row(0), row(1), row(2), row(3)
	set := func(idx int, p Vec4) {
		f.Planes[idx] = Plane{Normal: p.XYZ(), Distance: p[3]}
	}

	set(FrustumLeft, r3.Add(r0))
	set(FrustumRight, r3.Add(r0.Scale(-1)))
	set(FrustumBottom, r3.Add(r1))
	set(FrustumTop, r3.Add(r1.Scale(-1)))
	set(FrustumNear, r2)
	set(FrustumFar, r3.Add(r2.Scale(-1)))

	for i := range f.Planes {
		f.normalizePlane(i)
	}
	return f
}

// normalizePlane normalizes a frustum plane so that the normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := p.Normal.Length()
	if length > 0 {
		p.Normal = p.Normal.Scale(1 / length)
		p.Distance /= length
	}
}

// IntersectsSphere reports whether a world-space bounding sphere is at least partially inside the frustum.
//
// Parameters:
//   - center: sphere center in world space
//   - radius: sphere radius
//
// Returns:
//   - bool: false only when the sphere is entirely outside one of the planes
func (f *Frustum) IntersectsSphere(center Vec3, radius float32) bool {
	for _, p := range f.Planes {
		if p.Normal.Dot(center)+p.Distance < -math32.Abs(radius) {
			return false
		}
	}
	return true
}
