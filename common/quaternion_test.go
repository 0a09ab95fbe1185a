package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
)

func TestQuatFromAxisAngle(t *testing.T) {
	q := QuatFromAxisAngle(Vec3{0, 2, 0}, math32.Pi)
	assert.InDeltaSlice(t, []float32{0, 1, 0, 0}, q[:], 1e-6)

	id := QuatFromAxisAngle(Vec3{1, 0, 0}, 0)
	assert.Equal(t, IdentityQuat(), id)
}

func TestQuatNormalize(t *testing.T) {
	q := Quat{0, 0, 3, 4}.Normalize()
	assert.InDeltaSlice(t, []float32{0, 0, 0.6, 0.8}, q[:], 1e-6)
	assert.Equal(t, IdentityQuat(), Quat{}.Normalize())
}

func TestQuatSlerp(t *testing.T) {
	a := IdentityQuat()
	b := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/2)

	half := a.Slerp(b, 0.5)
	want := QuatFromAxisAngle(Vec3{0, 0, 1}, math32.Pi/4)
	assert.InDeltaSlice(t, want[:], half[:], 1e-5)

	end := a.Slerp(b, 1)
	assert.InDeltaSlice(t, b[:], end[:], 1e-5)

	// -b is the same rotation; the shorter arc must still land on b's rotation
	neg := Quat{-b[0], -b[1], -b[2], -b[3]}
	viaNeg := a.Slerp(neg, 0.5)
	assert.InDeltaSlice(t, want[:], viaNeg[:], 1e-5)

	near := a.Slerp(QuatFromAxisAngle(Vec3{0, 1, 0}, 1e-4), 0.5)
	assert.InDelta(t, 1, near[3], 1e-6)
}

func TestComposeTRS(t *testing.T) {
	m := ComposeTRS(Vec3{1, 2, 3}, QuatFromAxisAngle(Vec3{0, 1, 0}, math32.Pi/2), Vec3{2, 2, 2})

	// +X scaled to 2, turned a quarter about Y to -Z, then translated
	p := TransformPoint(m, Vec4{1, 0, 0, 1})
	assert.InDeltaSlice(t, []float32{1, 2, 1, 1}, p[:], 1e-5)

	id := ComposeTRS(Vec3{}, IdentityQuat(), Vec3{1, 1, 1})
	assert.Equal(t, IdentityMatrix(), id)
}
