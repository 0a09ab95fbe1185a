package material

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

func TestRegistryHandlesAreStable(t *testing.T) {
	r := NewRegistry()
	a := NewMaterial(WithName("a"))
	b := NewMaterial(WithName("b"))

	ha := r.Register(a)
	hb := r.Register(b)
	assert.Equal(t, Handle(1), ha)
	assert.Equal(t, Handle(2), hb)
	assert.Equal(t, ha, r.Register(a))
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []Handle{1, 2}, r.Handles())

	got, ok := r.Lookup(hb)
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = r.Lookup(0)
	assert.False(t, ok)
	_, ok = r.Lookup(3)
	assert.False(t, ok)
}

func TestMaterialDefaultsAndSetters(t *testing.T) {
	m := NewMaterial()
	assert.Equal(t, common.Color{1, 1, 1, 1}, m.BaseColor())
	assert.Equal(t, float32(1), m.Roughness())
	assert.Equal(t, common.Vec2{1, 1}, m.NormalScale())
	assert.Equal(t, IdentityUVTransform(), m.UVTransform())
	assert.Nil(t, m.NormalMap())
	assert.NotNil(t, m.Program())

	m.SetRoughness(0.25)
	m.SetEmissive(common.Color{2, 0, 0, 1})
	assert.Equal(t, float32(0.25), m.Roughness())
	assert.Equal(t, common.Color{2, 0, 0, 1}, m.Emissive())

	tex := NewSolidTexture(common.Color{0, 0, 0, 1})
	m = NewMaterial(WithNormalMap(tex, common.Vec2{0.5, 0.5}), WithDisplacementMap(tex, 2, -1), WithDoubleSided(true))
	assert.Same(t, tex, m.NormalMap())
	assert.Equal(t, common.Vec2{0.5, 0.5}, m.NormalScale())
	scale, bias := m.Displacement()
	assert.Equal(t, float32(2), scale)
	assert.Equal(t, float32(-1), bias)
	assert.True(t, m.DoubleSided())
}

func TestUVTransform(t *testing.T) {
	repeat := NewUVTransform(common.Vec2{}, common.Vec2{2, 2}, 0, common.Vec2{})
	assert.Equal(t, common.Vec2{0.5, 1}, ApplyUVTransform(repeat, common.Vec2{0.25, 0.5}))

	offset := NewUVTransform(common.Vec2{0.1, 0.2}, common.Vec2{1, 1}, 0, common.Vec2{})
	got := ApplyUVTransform(offset, common.Vec2{0.5, 0.5})
	assert.InDelta(t, 0.6, got[0], 1e-6)
	assert.InDelta(t, 0.7, got[1], 1e-6)

	center := common.Vec2{0.5, 0.5}
	rot := NewUVTransform(common.Vec2{}, common.Vec2{1, 1}, math32.Pi/2, center)
	got = ApplyUVTransform(rot, center)
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0.5, got[1], 1e-6)
	got = ApplyUVTransform(rot, common.Vec2{1, 0.5})
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 0, got[1], 1e-6)

	assert.Equal(t, [12]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0}, padUVTransform(IdentityUVTransform()))
}

func TestCheckerTextureIsBottomUp(t *testing.T) {
	a := common.Color{1, 0, 0, 1}
	b := common.Color{0, 0, 1, 1}
	tex := NewCheckerTexture(4, 2, a, b)

	w, h := tex.Size()
	assert.Equal(t, 4, w)
	assert.Equal(t, 4, h)

	// Texel row 0 is the bottom image row.
	assert.Equal(t, common.Vec4(b), tex.Fetch(0, 0))
	assert.Equal(t, common.Vec4(a), tex.Fetch(0, 3))
	assert.Equal(t, tex.Fetch(3, 0), tex.Fetch(-1, 0))
	assert.Equal(t, tex.Fetch(0, 0), tex.Fetch(4, 4))

	assert.Equal(t, common.Vec4(b), tex.Sample(common.Vec2{0.5 / 4, 0.5 / 4}))
	assert.Len(t, tex.RGBA8(), 4*4*4)
}

func TestSampleBlendsNeighbors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	img.SetRGBA(1, 0, color.RGBA{R: 255, A: 255})
	tex := NewTextureFromImage("ramp", img)

	// Halfway between the two texel centers.
	got := tex.Sample(common.Vec2{0.5, 0.5})
	assert.InDelta(t, 0.5, got[0], 1e-6)
	assert.InDelta(t, 1, got[3], 1e-6)
}

func TestLoadTexture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rg.png")
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
	img.SetRGBA(1, 0, color.RGBA{G: 255, A: 255})
	require.NoError(t, imgio.Save(path, img, imgio.PNGEncoder()))

	tex, err := LoadTexture(path)
	require.NoError(t, err)
	assert.Equal(t, path, tex.Name())
	assert.Equal(t, common.Vec4{1, 0, 0, 1}, tex.Fetch(0, 0))
	assert.Equal(t, common.Vec4{0, 1, 0, 1}, tex.Fetch(1, 0))

	_, err = LoadTexture(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestTextureIDsAreUnique(t *testing.T) {
	a := NewSolidTexture(common.Color{1, 1, 1, 1})
	b := NewSolidTexture(common.Color{1, 1, 1, 1})
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Equal(t, common.Vec4{1, 1, 1, 1}, a.Sample(common.Vec2{0.3, 0.9}))
}
