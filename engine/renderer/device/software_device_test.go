package device

import (
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uvProgram writes the texel uv into red and green.
type uvProgram struct{}

func (uvProgram) Key() string    { return "test:uv" }
func (uvProgram) Source() string { return "" }
func (uvProgram) Inputs() int    { return 0 }
func (uvProgram) Kernel([]shader.Sampler, shader.Uniform) (shader.PixelFunc, error) {
	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		return common.Vec4{uv[0], uv[1], 0, 1}
	}, nil
}

// copyProgram passes its single input through.
type copyProgram struct{}

func (copyProgram) Key() string    { return "test:copy" }
func (copyProgram) Source() string { return "" }
func (copyProgram) Inputs() int    { return 1 }
func (copyProgram) Kernel(in []shader.Sampler, _ shader.Uniform) (shader.PixelFunc, error) {
	return func(_ common.Vec2, px [2]int) common.Vec4 {
		return in[0].Fetch(px[0], px[1])
	}, nil
}

// flatProgram draws a constant color into target 0 and device depth into target 1.
type flatProgram struct {
	color       common.Vec4
	doubleSided bool
}

func (p *flatProgram) Key() string                        { return fmt.Sprintf("test:flat:%v", p.color) }
func (p *flatProgram) Source() string                     { return "" }
func (p *flatProgram) Targets() int                       { return 2 }
func (p *flatProgram) DoubleSided() bool                  { return p.doubleSided }
func (p *flatProgram) Resources() shader.SurfaceResources { return shader.SurfaceResources{} }

func (p *flatProgram) Vertex(dc *shader.DrawContext, v *model.GPUVertex, out *shader.VertexOutput) {
	mvp := common.Mul4x(dc.Projection, dc.ModelView)
	out.Position = common.TransformPoint(mvp, common.Vec4{v.Position[0], v.Position[1], v.Position[2], 1})
}

func (p *flatProgram) Fragment(_ *shader.DrawContext, in *shader.Fragment, out []common.Vec4) bool {
	out[0] = p.color
	if len(out) > 1 {
		out[1] = common.Vec4{in.FragCoord[2], 0, 0, 1}
	}
	return true
}

var (
	red   = common.Vec4{1, 0, 0, 1}
	green = common.Vec4{0, 1, 0, 1}
	blank = common.Vec4{0, 0, 0, 0}
)

func testCamera(size int) camera.FrameState {
	cam := camera.NewCamera(
		camera.WithPosition(common.Vec3{0, 0, 5}),
		camera.WithTarget(common.Vec3{}),
		camera.WithAspect(1),
	)
	return cam.Snapshot(common.Viewport{Width: size, Height: size})
}

func newTestDevice(t *testing.T, options ...SoftwareDeviceOption) Device {
	t.Helper()
	d := NewSoftwareDevice(append([]SoftwareDeviceOption{WithWorkers(2), WithBandRows(4)}, options...)...)
	t.Cleanup(d.Release)
	return d
}

func at(pixels []common.Vec4, size, x, yTop int) common.Vec4 {
	return pixels[yTop*size+x]
}

func TestCreateTargetValidation(t *testing.T) {
	d := newTestDevice(t)

	_, err := d.CreateTarget(TargetDescriptor{Label: "empty", Width: 0, Height: 4})
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = d.CreateTarget(TargetDescriptor{Label: "wide", Width: 4, Height: 4, Attachments: 5})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = d.CreateTarget(TargetDescriptor{Label: "odd", Width: 4, Height: 4, Format: Format(42)})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	tgt, err := d.CreateTarget(TargetDescriptor{Label: "ok", Width: 4, Height: 2, Format: FormatRGBA16F, Depth: true})
	require.NoError(t, err)
	assert.Equal(t, 1, tgt.Attachments())
	assert.True(t, tgt.HasDepth())
	assert.Equal(t, "ok", tgt.Label())
}

func TestSingleTargetDevice(t *testing.T) {
	d := newTestDevice(t, WithMaxColorAttachments(1))
	assert.Equal(t, 1, d.MaxColorAttachments())
	_, err := d.CreateTarget(TargetDescriptor{Label: "mrt", Width: 2, Height: 2, Attachments: 2})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDrawFullscreenReadsTopDown(t *testing.T) {
	d := newTestDevice(t)
	tgt, err := d.CreateTarget(TargetDescriptor{Label: "uv", Width: 4, Height: 2, Format: FormatRGBA32F})
	require.NoError(t, err)

	require.NoError(t, d.DrawFullscreen(tgt, uvProgram{}, nil, nil))
	px, err := d.ReadPixels(tgt, 0)
	require.NoError(t, err)
	require.Len(t, px, 8)

	// first row returned is the top of the image
	assert.Equal(t, common.Vec4{0.125, 0.75, 0, 1}, px[0])
	assert.Equal(t, common.Vec4{0.875, 0.25, 0, 1}, px[7])
}

func TestWritePixelsRoundTripAndQuantization(t *testing.T) {
	d := newTestDevice(t)
	tgt, err := d.CreateTarget(TargetDescriptor{Label: "ldr", Width: 2, Height: 1})
	require.NoError(t, err)

	in := []common.Vec4{{0.5, 2, -1, 1}, {0.25, 0.75, 0, 0}}
	require.NoError(t, d.WritePixels(tgt, 0, in))
	out, err := d.ReadPixels(tgt, 0)
	require.NoError(t, err)

	assert.InDelta(t, 128.0/255.0, out[0][0], 1e-6)
	assert.Equal(t, float32(1), out[0][1])
	assert.Equal(t, float32(0), out[0][2])
	assert.InDelta(t, 64.0/255.0, out[1][0], 1e-6)

	assert.ErrorIs(t, d.WritePixels(tgt, 0, in[:1]), ErrInvalidTarget)
}

func TestHalfFloatStorage(t *testing.T) {
	d := newTestDevice(t)
	tgt, err := d.CreateTarget(TargetDescriptor{Label: "hdr", Width: 1, Height: 1, Format: FormatRGBA16F})
	require.NoError(t, err)

	require.NoError(t, d.WritePixels(tgt, 0, []common.Vec4{{3.5, 0.1, 1000, 1}}))
	out, err := d.ReadPixels(tgt, 0)
	require.NoError(t, err)
	assert.Equal(t, float32(3.5), out[0][0])
	assert.InDelta(t, 0.1, out[0][1], 1e-4)
	assert.Equal(t, float32(1000), out[0][2])
}

func TestDrawFullscreenBindingErrors(t *testing.T) {
	d := newTestDevice(t)
	a, err := d.CreateTarget(TargetDescriptor{Label: "a", Width: 2, Height: 2})
	require.NoError(t, err)
	b, err := d.CreateTarget(TargetDescriptor{Label: "b", Width: 2, Height: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, d.DrawFullscreen(a, copyProgram{}, nil, nil), ErrInvalidTarget)
	assert.ErrorIs(t, d.DrawFullscreen(a, copyProgram{}, []Input{Bind(a)}, nil), ErrInvalidTarget)
	assert.ErrorIs(t, d.DrawFullscreen(a, copyProgram{}, []Input{BindAttachment(b, 1)}, nil), ErrInvalidTarget)
	assert.NoError(t, d.DrawFullscreen(a, copyProgram{}, []Input{Bind(b)}, nil))

	d.ReleaseTarget(b)
	assert.ErrorIs(t, d.DrawFullscreen(a, copyProgram{}, []Input{Bind(b)}, nil), ErrInvalidTarget)
}

func TestCopyRequiresMatchingShape(t *testing.T) {
	d := newTestDevice(t)
	a, err := d.CreateTarget(TargetDescriptor{Label: "a", Width: 2, Height: 2, Format: FormatRGBA32F})
	require.NoError(t, err)
	b, err := d.CreateTarget(TargetDescriptor{Label: "b", Width: 2, Height: 2, Format: FormatRGBA32F})
	require.NoError(t, err)
	c, err := d.CreateTarget(TargetDescriptor{Label: "c", Width: 3, Height: 2, Format: FormatRGBA32F})
	require.NoError(t, err)

	require.NoError(t, d.DrawFullscreen(a, uvProgram{}, nil, nil))
	require.NoError(t, d.Copy(b, a))
	want, _ := d.ReadPixels(a, 0)
	got, _ := d.ReadPixels(b, 0)
	assert.Equal(t, want, got)

	assert.ErrorIs(t, d.Copy(c, a), ErrInvalidTarget)
}

func TestRenderSceneDepthTest(t *testing.T) {
	const size = 16
	for _, order := range []string{"near first", "far first"} {
		t.Run(order, func(t *testing.T) {
			d := newTestDevice(t)
			sc := scene.NewScene("depth")
			near := material.NewMaterial(material.WithProgram(&flatProgram{color: red}))
			far := material.NewMaterial(material.WithProgram(&flatProgram{color: green}))
			addNear := func() { sc.AddMesh(model.NewQuad(2, 2), near) }
			addFar := func() {
				sc.AddMesh(model.NewQuad(4, 4), far, scene.WithTransform(common.Vec3{0, 0, -1}, common.Vec3{}, common.Vec3{1, 1, 1}))
			}
			if order == "near first" {
				addNear()
				addFar()
			} else {
				addFar()
				addNear()
			}

			tgt, err := d.CreateTarget(TargetDescriptor{Label: "color", Width: size, Height: size, Attachments: 2, Format: FormatRGBA32F})
			require.NoError(t, err)
			require.NoError(t, d.RenderScene(tgt, sc, &RenderContext{Camera: testCamera(size), Clear: blank}))

			px, err := d.ReadPixels(tgt, 0)
			require.NoError(t, err)
			assert.Equal(t, red, at(px, size, 8, 8))
			assert.Equal(t, green, at(px, size, 3, 8))
			assert.Equal(t, blank, at(px, size, 0, 0))

			depth, err := d.ReadPixels(tgt, 1)
			require.NoError(t, err)
			z := at(depth, size, 8, 8)[0]
			assert.Greater(t, z, float32(0))
			assert.Less(t, z, float32(1))
			assert.Greater(t, at(depth, size, 3, 8)[0], z)
		})
	}
}

func TestRenderSceneCullsBackFaces(t *testing.T) {
	const size = 8
	d := newTestDevice(t)
	turned := scene.WithTransform(common.Vec3{}, common.Vec3{0, math32.Pi, 0}, common.Vec3{1, 1, 1})

	tgt, err := d.CreateTarget(TargetDescriptor{Label: "cull", Width: size, Height: size, Format: FormatRGBA32F})
	require.NoError(t, err)

	single := scene.NewScene("single")
	single.AddMesh(model.NewQuad(2, 2), material.NewMaterial(material.WithProgram(&flatProgram{color: red})), turned)
	require.NoError(t, d.RenderScene(tgt, single, &RenderContext{Camera: testCamera(size)}))
	px, _ := d.ReadPixels(tgt, 0)
	assert.Equal(t, blank, at(px, size, 4, 4))

	double := scene.NewScene("double")
	double.AddMesh(model.NewQuad(2, 2), material.NewMaterial(material.WithProgram(&flatProgram{color: red, doubleSided: true})), turned)
	require.NoError(t, d.RenderScene(tgt, double, &RenderContext{Camera: testCamera(size)}))
	px, _ = d.ReadPixels(tgt, 0)
	assert.Equal(t, red, at(px, size, 4, 4))
}

func TestRenderSceneSkipsHiddenNodes(t *testing.T) {
	const size = 8
	d := newTestDevice(t)
	sc := scene.NewScene("hidden")
	sc.AddMesh(model.NewQuad(2, 2), material.NewMaterial(material.WithProgram(&flatProgram{color: red})), scene.WithHidden())

	tgt, err := d.CreateTarget(TargetDescriptor{Label: "hidden", Width: size, Height: size})
	require.NoError(t, err)
	require.NoError(t, d.RenderScene(tgt, sc, &RenderContext{Camera: testCamera(size), Clear: green}))
	px, _ := d.ReadPixels(tgt, 0)
	assert.Equal(t, green, at(px, size, 4, 4))
}

func TestRenderSceneUnknownMaterial(t *testing.T) {
	d := newTestDevice(t)
	sc := scene.NewScene("orphan")
	sc.Add(scene.NewNode(model.NewQuad(1, 1), material.Handle(99)))

	tgt, err := d.CreateTarget(TargetDescriptor{Label: "orphan", Width: 4, Height: 4})
	require.NoError(t, err)
	assert.ErrorIs(t, d.RenderScene(tgt, sc, &RenderContext{Camera: testCamera(4)}), ErrUnknownMaterial)
}

func TestReleasedDeviceIsLost(t *testing.T) {
	d := NewSoftwareDevice(WithWorkers(1))
	tgt, err := d.CreateTarget(TargetDescriptor{Label: "x", Width: 1, Height: 1})
	require.NoError(t, err)
	d.Release()
	d.Release()

	_, err = d.CreateTarget(TargetDescriptor{Label: "y", Width: 1, Height: 1})
	assert.ErrorIs(t, err, ErrDeviceLost)
	_, err = d.ReadPixels(tgt, 0)
	assert.ErrorIs(t, err, ErrDeviceLost)
}

func TestNewDrawContextUsesHistory(t *testing.T) {
	n := scene.NewNode(model.NewQuad(1, 1), 1, scene.WithTransform(common.Vec3{1, 0, 0}, common.Vec3{}, common.Vec3{1, 1, 1}))
	n.SetID(7)
	prev := common.IdentityMatrix()
	rc := &RenderContext{Camera: testCamera(4), History: historyFunc(func(id uint64) ([16]float32, [][16]float32, bool) {
		return prev, nil, id == 7
	})}

	dc := NewDrawContext(rc, n, 4, 4)
	assert.Equal(t, prev, dc.PrevWorld)
	assert.Equal(t, n.World(), dc.World)
	assert.Equal(t, rc.Camera.View, dc.PrevView, "missing previous camera falls back to the current one")

	n.SetID(8)
	dc = NewDrawContext(rc, n, 4, 4)
	assert.Equal(t, n.World(), dc.PrevWorld)
}

type historyFunc func(id uint64) ([16]float32, [][16]float32, bool)

func (f historyFunc) Previous(id uint64) ([16]float32, [][16]float32, bool) { return f(id) }

func TestNewDrawContextBonePalette(t *testing.T) {
	id := common.IdentityMatrix()
	cur := [][16]float32{id, id}
	n := scene.NewNode(model.NewSkinnedBar(1, 2, 2), 1, scene.WithBones(cur))
	n.SetID(3)

	var shifted [16]float32
	common.BuildModelMatrix(shifted[:], common.Vec3{-0.5, 0, 0}, common.Vec3{}, common.Vec3{1, 1, 1})
	prevBones := [][16]float32{shifted, shifted}
	rc := &RenderContext{Camera: testCamera(4), History: historyFunc(func(uint64) ([16]float32, [][16]float32, bool) {
		return n.World(), prevBones, true
	})}

	dc := NewDrawContext(rc, n, 4, 4)
	assert.Equal(t, cur, dc.Bones)
	assert.Equal(t, prevBones, dc.PrevBones)

	// a palette of another size cannot be matched bone for bone, so the current one is reused
	prevBones = [][16]float32{shifted}
	dc = NewDrawContext(rc, n, 4, 4)
	assert.Equal(t, cur, dc.PrevBones)
	assert.Equal(t, n.World(), dc.PrevWorld)
}
