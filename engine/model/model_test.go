package model

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// assertOutwardWinding checks that every triangle's geometric normal agrees with its vertex normals.
func assertOutwardWinding(t *testing.T, m Mesh) {
	t.Helper()
	v := m.Vertices()
	idx := m.Indices()
	require.Zero(t, len(idx)%3)
	for i := 0; i < len(idx); i += 3 {
		p0 := common.Vec3(v[idx[i]].Position)
		e1 := common.Vec3(v[idx[i+1]].Position).Sub(p0)
		e2 := common.Vec3(v[idx[i+2]].Position).Sub(p0)
		n := e1.Cross(e2)
		assert.Greater(t, n.Dot(common.Vec3(v[idx[i]].Normal)), float32(0), "%s triangle %d", m.Name(), i/3)
	}
}

func TestVertexLayout(t *testing.T) {
	var v GPUVertex
	assert.Equal(t, 96, v.Size())
	assert.Equal(t, uint64(96), VertexBufferLayout().ArrayStride)
	assert.False(t, v.Skinned())
	v.BoneWeights[1] = 1
	assert.True(t, v.Skinned())
}

func TestPrimitives(t *testing.T) {
	plane := NewPlane(4, 2)
	assert.Len(t, plane.Vertices(), 4)
	assert.Len(t, plane.Indices(), 6)
	assert.InDelta(t, math32.Sqrt(5), plane.BoundingRadius(), 1e-5)
	assertOutwardWinding(t, plane)

	box := NewBox(common.Vec3{2, 2, 2})
	assert.Len(t, box.Vertices(), 24)
	assert.Len(t, box.Indices(), 36)
	assert.InDelta(t, math32.Sqrt(3), box.BoundingRadius(), 1e-5)
	assert.False(t, box.Skinned())
	assertOutwardWinding(t, box)

	quad := NewQuad(2, 1)
	assertOutwardWinding(t, quad)
	assert.Equal(t, [3]float32{0, 0, 1}, quad.Vertices()[0].Normal)

	sphere := NewSphere(3, 2, 1)
	assert.Len(t, sphere.Vertices(), (3+1)*(2+1))
	assert.Len(t, sphere.Indices(), 3*2*6)
	assert.Equal(t, float32(3), sphere.BoundingRadius())
	for _, v := range sphere.Vertices() {
		assert.InDelta(t, 3, common.Vec3(v.Position).Length(), 1e-5)
	}
}

func TestSkinnedBarWeights(t *testing.T) {
	bar := NewSkinnedBar(0.5, 4, 4)
	require.True(t, bar.Skinned())
	assert.Len(t, bar.Vertices(), 4*(4+1)*2)
	assertOutwardWinding(t, bar)

	for _, v := range bar.Vertices() {
		w := v.BoneWeights
		assert.InDelta(t, 1, w[0]+w[1]+w[2]+w[3], 1e-6)
		assert.Equal(t, [4]uint32{0, 1, 0, 0}, v.BoneIndices)
		switch v.Position[1] {
		case 0:
			assert.Equal(t, float32(1), w[0])
		case 4:
			assert.Equal(t, float32(1), w[1])
		}
	}
}

func TestMeshData(t *testing.T) {
	box := NewBox(common.Vec3{1, 1, 1})
	assert.Len(t, box.VertexData(), len(box.Vertices())*96)
	assert.Len(t, box.IndexData(), len(box.Indices())*4)
	assert.NotEqual(t, box.ID(), NewBox(common.Vec3{1, 1, 1}).ID())
}
