package surrogate

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 16

// offsetHistory reports every object as previously translated by offset.
type offsetHistory struct {
	offset common.Vec3
}

func (h offsetHistory) Previous(uint64) ([16]float32, [][16]float32, bool) {
	var m [16]float32
	common.BuildModelMatrix(m[:], h.offset, common.Vec3{}, common.Vec3{1, 1, 1})
	return m, nil, true
}

func testScene(t *testing.T, m material.Material) (scene.Scene, scene.Node) {
	t.Helper()
	sc := scene.NewScene("surrogate-test")
	n := sc.AddMesh(model.NewQuad(2, 2), m)
	return sc, n
}

func testCamera() camera.FrameState {
	cam := camera.NewCamera(camera.WithPosition(common.Vec3{0, 0, 5}), camera.WithTarget(common.Vec3{}))
	return cam.Snapshot(common.Viewport{Width: size, Height: size})
}

func facingFragment() *shader.Fragment {
	in := &shader.Fragment{FrontFacing: true, FragCoord: common.Vec4{0.5, 0.5, 0.75, 1}}
	in.Varyings[2] = 1
	in.Varyings[5] = 1
	in.Varyings[8] = 1
	return in
}

func TestAcquireIsDeterministic(t *testing.T) {
	sc, n := testScene(t, material.NewMaterial(material.WithName("floor")))
	c := NewCache(sc.Materials())

	geo, err := c.Acquire(n.Material(), KindGeometry)
	require.NoError(t, err)
	again, err := c.Acquire(n.Material(), KindGeometry)
	require.NoError(t, err)
	assert.Same(t, geo, again)

	vel, err := c.Acquire(n.Material(), KindVelocity)
	require.NoError(t, err)
	assert.NotSame(t, geo, vel)
	assert.Equal(t, 2, c.Len())

	_, err = c.Acquire(material.Handle(99), KindGeometry)
	assert.ErrorIs(t, err, device.ErrUnknownMaterial)
}

func TestSharedMaterialsShareSurrogates(t *testing.T) {
	m := material.NewMaterial()
	sc, first := testScene(t, m)
	second := sc.AddMesh(model.NewBox(common.Vec3{1, 1, 1}), m)
	assert.Equal(t, first.Material(), second.Material())

	c := NewCache(sc.Materials())
	b, err := c.Bind(sc, KindDepth)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	p1, err := b.Resolve(first.Material())
	require.NoError(t, err)
	p2, err := b.Resolve(second.Material())
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestBindLeavesSceneUntouched(t *testing.T) {
	m := material.NewMaterial(material.WithRoughness(0.3))
	sc, n := testScene(t, m)
	h := n.Material()
	original := m.Program()

	c := NewCache(sc.Materials())
	b, err := c.Bind(sc, KindGeometry)
	require.NoError(t, err)
	assert.Equal(t, KindGeometry, b.Kind())

	bound, err := b.Resolve(h)
	require.NoError(t, err)
	acquired, err := c.Acquire(h, KindGeometry)
	require.NoError(t, err)
	assert.Same(t, acquired, bound)

	// nothing on the scene side changed while bound
	assert.Equal(t, h, n.Material())
	assert.Same(t, original, m.Program())
	looked, ok := sc.Materials().Lookup(h)
	require.True(t, ok)
	assert.Same(t, original, looked.Program())

	c.Unbind(b)
	assert.True(t, b.Closed())
	after, err := b.Resolve(h)
	require.NoError(t, err)
	assert.Same(t, original, after)

	c.Unbind(nil)
}

func TestBindRejectsForeignScene(t *testing.T) {
	sc, _ := testScene(t, material.NewMaterial())
	other, _ := testScene(t, material.NewMaterial())

	_, err := NewCache(sc.Materials()).Bind(other, KindGeometry)
	assert.ErrorIs(t, err, ErrForeignScene)
}

func TestSetFlagsRebuildsSurrogates(t *testing.T) {
	sc, n := testScene(t, material.NewMaterial())
	c := NewCache(sc.Materials())

	single, err := c.Acquire(n.Material(), KindGeometry)
	require.NoError(t, err)
	assert.Equal(t, 1, single.Targets())

	c.SetFlags(c.Flags())
	same, err := c.Acquire(n.Material(), KindGeometry)
	require.NoError(t, err)
	assert.Same(t, single, same)

	c.SetFlags(Flags{UseMRT: true})
	mrt, err := c.Acquire(n.Material(), KindGeometry)
	require.NoError(t, err)
	assert.NotSame(t, single, mrt)
	assert.Equal(t, 2, mrt.Targets())
	assert.Contains(t, mrt.Source(), "pack_depth_to_rgba(in.position.z)")
	assert.NotContains(t, single.Source(), "@location(1) depth")

	c.Reset()
	assert.Equal(t, 0, c.Len())
}

func TestSurrogateSourceFollowsMaps(t *testing.T) {
	normal := material.NewSolidTexture(common.Color{0.5, 0.5, 1, 1})
	rough := material.NewSolidTexture(common.Color{0, 0.5, 0, 1})
	m := material.NewMaterial(material.WithNormalMap(normal, common.Vec2{1, 1}), material.WithRoughnessMap(rough))
	plain := material.NewMaterial()

	r := material.NewRegistry()
	withMaps, without := r.Register(m), r.Register(plain)

	tests := []struct {
		name      string
		flags     Flags
		h         material.Handle
		normalMap bool
		roughMap  bool
	}{
		{"flags on", Flags{UseNormalMap: true, UseRoughnessMap: true}, withMaps, true, true},
		{"flags off", Flags{}, withMaps, false, false},
		{"no maps", Flags{UseNormalMap: true, UseRoughnessMap: true}, without, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewCache(r, WithFlags(tt.flags)).Acquire(tt.h, KindGeometry)
			require.NoError(t, err)
			assert.Equal(t, tt.normalMap, strings.Contains(p.Source(), "textureSample(normal_map"))
			assert.Equal(t, tt.roughMap, strings.Contains(p.Source(), "textureSample(roughness_map"))
			assert.NotContains(t, p.Source(), "@oxy:")
		})
	}
}

func TestGeometryFragmentRoughness(t *testing.T) {
	rough := material.NewSolidTexture(common.Color{0, 0.5, 0, 1})
	r := material.NewRegistry()
	h := r.Register(material.NewMaterial(material.WithRoughness(0.8), material.WithRoughnessMap(rough)))

	for _, tt := range []struct {
		name string
		c    Cache
		want float32
	}{
		{"map ignored", NewCache(r), 0.8},
		{"map applied", NewCache(r, WithRoughnessMap(true)), 0.8 * 128.0 / 255.0},
	} {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.c.Acquire(h, KindGeometry)
			require.NoError(t, err)
			out := make([]common.Vec4, p.Targets())
			require.True(t, p.Fragment(&shader.DrawContext{}, facingFragment(), out))
			assert.Equal(t, common.Vec4{0.5, 0.5, 1, out[0][3]}, out[0])
			assert.InDelta(t, tt.want, out[0][3], 1e-4)
		})
	}
}

func TestGeometryFragmentNormalMap(t *testing.T) {
	tangentSpaceX := material.NewSolidTexture(common.Color{1, 0.5, 0.5, 1})
	r := material.NewRegistry()
	h := r.Register(material.NewMaterial(material.WithNormalMap(tangentSpaceX, common.Vec2{1, 1})))

	p, err := NewCache(r, WithNormalMap(true), WithMRT(true)).Acquire(h, KindGeometry)
	require.NoError(t, err)

	in := facingFragment()
	out := make([]common.Vec4, 2)
	require.True(t, p.Fragment(&shader.DrawContext{}, in, out))

	// the map bends the normal fully onto the tangent
	assert.InDelta(t, 1, out[0][0], 0.01)
	assert.InDelta(t, 0.5, out[0][1], 0.01)
	assert.InDelta(t, 0.5, out[0][2], 0.01)
	assert.InDelta(t, 0.75, shader.UnpackDepth(out[1]), 1e-6)

	in.FrontFacing = false
	in.Varyings[5] = 0
	require.True(t, p.Fragment(&shader.DrawContext{}, in, out))
	assert.Equal(t, common.Vec3{0.5, 0.5, 0}, out[0].XYZ(), "degenerate tangent keeps the flipped normal")
}

func TestGeometrySurrogateRender(t *testing.T) {
	d := device.NewSoftwareDevice(device.WithWorkers(2))
	t.Cleanup(d.Release)

	sc, _ := testScene(t, material.NewMaterial(material.WithRoughness(0.25)))
	c := NewCache(sc.Materials(), WithMRT(true))

	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "gbuffer", Width: size, Height: size, Attachments: 2, Depth: true})
	require.NoError(t, err)

	b, err := c.Bind(sc, KindGeometry)
	require.NoError(t, err)
	cam := testCamera()
	require.NoError(t, d.RenderScene(dst, sc, &device.RenderContext{Mode: KindGeometry.Mode(), Programs: b, Camera: cam}))
	c.Unbind(b)

	normals, err := d.ReadPixels(dst, 0)
	require.NoError(t, err)
	depths, err := d.ReadPixels(dst, 1)
	require.NoError(t, err)

	center := normals[size/2*size+size/2]
	assert.InDelta(t, 0.5, center[0], 0.01)
	assert.InDelta(t, 0.5, center[1], 0.01)
	assert.InDelta(t, 1, center[2], 0.01)
	assert.InDelta(t, 0.25, center[3], 0.01)

	origin, ok := cam.Project(common.Vec3{})
	require.True(t, ok)
	assert.InDelta(t, origin[2], shader.UnpackDepth(depths[size/2*size+size/2]), 1e-5)

	// background stays cleared, which decodes as "no geometry"
	assert.Equal(t, common.Vec4{}, normals[0])
	assert.Equal(t, float32(0), shader.UnpackDepth(depths[0]))
}

func TestVelocitySurrogateRender(t *testing.T) {
	d := device.NewSoftwareDevice(device.WithWorkers(2))
	t.Cleanup(d.Release)

	sc, _ := testScene(t, material.NewMaterial())
	c := NewCache(sc.Materials())
	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "velocity", Width: size, Height: size, Format: device.FormatRGBA16F, Depth: true})
	require.NoError(t, err)

	b, err := c.Bind(sc, KindVelocity)
	require.NoError(t, err)
	defer c.Unbind(b)
	cam := testCamera()
	center := size/2*size + size/2

	t.Run("static", func(t *testing.T) {
		rc := &device.RenderContext{Mode: shader.RenderModeVelocity, Programs: b, Camera: cam, Params: common.Vec4{1}}
		require.NoError(t, d.RenderScene(dst, sc, rc))
		px, err := d.ReadPixels(dst, 0)
		require.NoError(t, err)
		assert.Equal(t, common.Vec4{0, 0, 0, 1}, px[center])
	})

	t.Run("moved", func(t *testing.T) {
		rc := &device.RenderContext{
			Mode:     shader.RenderModeVelocity,
			Programs: b,
			Camera:   cam,
			History:  offsetHistory{offset: common.Vec3{-0.5, 0, 0}},
			Params:   common.Vec4{2},
		}
		require.NoError(t, d.RenderScene(dst, sc, rc))
		px, err := d.ReadPixels(dst, 0)
		require.NoError(t, err)

		prev, ok := cam.Project(common.Vec3{-0.5, 0, 0})
		require.True(t, ok)
		want := (0.5 - prev[0]) * 2
		assert.Greater(t, want, float32(0))
		assert.InDelta(t, want, px[center][0], 2e-3)
		assert.InDelta(t, 0, px[center][1], 2e-3)
	})
}

func TestDepthSurrogate(t *testing.T) {
	sc, n := testScene(t, material.NewMaterial())
	p, err := NewCache(sc.Materials()).Acquire(n.Material(), KindDepth)
	require.NoError(t, err)

	out := make([]common.Vec4, 1)
	require.True(t, p.Fragment(&shader.DrawContext{}, facingFragment(), out))
	assert.InDelta(t, 0.75, shader.UnpackDepth(out[0]), 1e-6)
	assert.Equal(t, "depth", KindDepth.String())
}

// boneHistory reports the world unchanged and a fixed previous bone palette.
type boneHistory struct {
	world [16]float32
	bones [][16]float32
}

func (h boneHistory) Previous(uint64) ([16]float32, [][16]float32, bool) {
	return h.world, h.bones, true
}

func TestVelocitySurrogateSkinned(t *testing.T) {
	d := device.NewSoftwareDevice(device.WithWorkers(2))
	t.Cleanup(d.Release)

	id := common.IdentityMatrix()
	sc := scene.NewScene("skinned-velocity")
	n := sc.AddMesh(model.NewSkinnedBar(1, 2, 2), material.NewMaterial(),
		scene.WithTransform(common.Vec3{0, -1, 0}, common.Vec3{}, common.Vec3{1, 1, 1}),
		scene.WithBones([][16]float32{id, id}))

	c := NewCache(sc.Materials())
	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "velocity", Width: size, Height: size, Format: device.FormatRGBA16F, Depth: true})
	require.NoError(t, err)
	b, err := c.Bind(sc, KindVelocity)
	require.NoError(t, err)
	defer c.Unbind(b)

	cam := testCamera()
	center := size/2*size + size/2
	render := func(h device.ObjectHistory) common.Vec4 {
		t.Helper()
		rc := &device.RenderContext{Mode: shader.RenderModeVelocity, Programs: b, Camera: cam, History: h, Params: common.Vec4{2}}
		require.NoError(t, d.RenderScene(dst, sc, rc))
		px, err := d.ReadPixels(dst, 0)
		require.NoError(t, err)
		return px[center]
	}

	var shifted [16]float32
	common.BuildModelMatrix(shifted[:], common.Vec3{-0.5, 0, 0}, common.Vec3{}, common.Vec3{1, 1, 1})

	// every bone moved by the same offset, so the skinned result matches moving the whole node
	skinned := render(boneHistory{world: n.World(), bones: [][16]float32{shifted, shifted}})
	assert.Greater(t, skinned[0], float32(0.01))
	assert.InDelta(t, 0, skinned[1], 2e-3)

	var movedWorld [16]float32
	common.BuildModelMatrix(movedWorld[:], common.Vec3{-0.5, -1, 0}, common.Vec3{}, common.Vec3{1, 1, 1})
	moved := render(boneHistory{world: movedWorld, bones: [][16]float32{id, id}})
	assert.InDelta(t, moved[0], skinned[0], 2e-3)

	// a mismatched palette falls back to the current bones: no motion
	still := render(boneHistory{world: n.World(), bones: [][16]float32{shifted}})
	assert.Equal(t, common.Vec4{0, 0, 0, 1}, still)
}
