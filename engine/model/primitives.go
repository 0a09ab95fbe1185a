package model

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/chewxy/math32"
)

// NewPlane builds a horizontal plane in the XZ axis centered on the origin, facing +Y.
//
// Parameters:
//   - width: extent along X
//   - depth: extent along Z
//
// Returns:
//   - Mesh: the plane mesh
func NewPlane(width, depth float32) Mesh {
	hw, hd := width/2, depth/2
	corner := func(x, z float32) GPUVertex {
		return GPUVertex{
			Position: [3]float32{x, 0, z},
			Normal:   [3]float32{0, 1, 0},
			TexCoord: [2]float32{x/width + 0.5, 0.5 - z/depth},
			Color:    [4]float32{1, 1, 1, 1},
			Tangent:  [4]float32{1, 0, 0, 1},
		}
	}
	vertices := []GPUVertex{corner(-hw, -hd), corner(-hw, hd), corner(hw, hd), corner(hw, -hd)}
	return NewMesh(WithName("plane"), WithGeometry(vertices, []uint32{0, 1, 2, 0, 2, 3}))
}

// NewQuad builds a vertical quad in the XY axis centered on the origin, facing +Z.
//
// Parameters:
//   - width: extent along X
//   - height: extent along Y
//
// Returns:
//   - Mesh: the quad mesh
func NewQuad(width, height float32) Mesh {
	vertices, indices := appendFace(nil, nil, common.Vec3{}, common.Vec3{width / 2, 0, 0}, common.Vec3{0, height / 2, 0})
	return NewMesh(WithName("quad"), WithGeometry(vertices, indices))
}

// NewBox builds an axis-aligned box centered on the origin.
//
// Parameters:
//   - size: full extents along X, Y and Z
//
// Returns:
//   - Mesh: the box mesh
func NewBox(size common.Vec3) Mesh {
	h := size.Scale(0.5)
	faces := []struct{ n, u, v common.Vec3 }{
		{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}, common.Vec3{0, 1, 0}},
		{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}, common.Vec3{0, 1, 0}},
		{common.Vec3{0, 1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}},
		{common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1}},
		{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}, common.Vec3{0, 1, 0}},
		{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}, common.Vec3{0, 1, 0}},
	}
	var vertices []GPUVertex
	var indices []uint32
	for _, f := range faces {
		vertices, indices = appendFace(vertices, indices, f.n.Mul(h), f.u.Mul(h), f.v.Mul(h))
	}
	return NewMesh(WithName("box"), WithGeometry(vertices, indices))
}

// NewSphere builds a UV sphere centered on the origin.
//
// Parameters:
//   - radius: sphere radius
//   - slices: longitudinal segment count (minimum 3)
//   - stacks: latitudinal segment count (minimum 2)
//
// Returns:
//   - Mesh: the sphere mesh
func NewSphere(radius float32, slices, stacks int) Mesh {
	slices = max(slices, 3)
	stacks = max(stacks, 2)
	var vertices []GPUVertex
	for i := 0; i <= stacks; i++ {
		theta := math32.Pi * float32(i) / float32(stacks)
		for j := 0; j <= slices; j++ {
			phi := 2 * math32.Pi * float32(j) / float32(slices)
			n := [3]float32{math32.Sin(theta) * math32.Cos(phi), math32.Cos(theta), math32.Sin(theta) * math32.Sin(phi)}
			vertices = append(vertices, GPUVertex{
				Position: [3]float32{n[0] * radius, n[1] * radius, n[2] * radius},
				Normal:   n,
				TexCoord: [2]float32{float32(j) / float32(slices), 1 - float32(i)/float32(stacks)},
				Color:    [4]float32{1, 1, 1, 1},
				Tangent:  [4]float32{-math32.Sin(phi), 0, math32.Cos(phi), 1},
			})
		}
	}
	var indices []uint32
	row := uint32(slices + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i)*row + uint32(j)
			b := a + row
			c := b + 1
			d := a + 1
			indices = append(indices, a, d, b, b, d, c)
		}
	}
	return NewMesh(WithName("sphere"), WithGeometry(vertices, indices), WithBoundingRadius(radius))
}

// NewSkinnedBar builds a vertical square bar from y=0 to y=height bound to two bones.
// Bone 0 drives the lower half and bone 1 the upper half, with a linear blend over the middle segment.
//
// Parameters:
//   - width: bar thickness along X and Z
//   - height: bar height
//   - segments: vertical subdivisions (minimum 2)
//
// Returns:
//   - Mesh: the skinned bar mesh
func NewSkinnedBar(width, height float32, segments int) Mesh {
	segments = max(segments, 2)
	hw := width / 2
	sides := []struct{ n, u common.Vec3 }{
		{common.Vec3{0, 0, 1}, common.Vec3{1, 0, 0}},
		{common.Vec3{1, 0, 0}, common.Vec3{0, 0, -1}},
		{common.Vec3{0, 0, -1}, common.Vec3{-1, 0, 0}},
		{common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1}},
	}
	var vertices []GPUVertex
	var indices []uint32
	for _, s := range sides {
		base := uint32(len(vertices))
		for i := 0; i <= segments; i++ {
			t := float32(i) / float32(segments)
			w1 := common.Saturate((t - 0.25) * 2)
			for k := 0; k < 2; k++ {
				side := float32(k*2 - 1)
				p := s.n.Scale(hw).Add(s.u.Scale(hw * side))
				p[1] = t * height
				vertices = append(vertices, GPUVertex{
					Position:    p,
					Normal:      s.n,
					TexCoord:    [2]float32{float32(k), t},
					Color:       [4]float32{1, 1, 1, 1},
					Tangent:     [4]float32{s.u[0], s.u[1], s.u[2], 1},
					BoneIndices: [4]uint32{0, 1, 0, 0},
					BoneWeights: [4]float32{1 - w1, w1, 0, 0},
				})
			}
		}
		for i := uint32(0); i < uint32(segments); i++ {
			a := base + i*2
			b := a + 1
			c := a + 3
			d := a + 2
			indices = append(indices, a, b, c, a, c, d)
		}
	}
	return NewMesh(WithName("skinned_bar"), WithGeometry(vertices, indices), WithSkinned(true))
}

// appendFace appends a quad spanning center +/- u +/- v whose winding faces u x v.
func appendFace(vertices []GPUVertex, indices []uint32, center, u, v common.Vec3) ([]GPUVertex, []uint32) {
	n := u.Cross(v).Normalize()
	t := u.Normalize()
	base := uint32(len(vertices))
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, c := range corners {
		p := center.Add(u.Scale(c[0])).Add(v.Scale(c[1]))
		vertices = append(vertices, GPUVertex{
			Position: p,
			Normal:   n,
			TexCoord: [2]float32{(c[0] + 1) / 2, (c[1] + 1) / 2},
			Color:    [4]float32{1, 1, 1, 1},
			Tangent:  [4]float32{t[0], t[1], t[2], 1},
		})
	}
	indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	return vertices, indices
}
