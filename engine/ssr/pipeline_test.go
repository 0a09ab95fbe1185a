package ssr

import (
	"context"
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/surrogate"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSize = 128

var sphereGlow = common.Color{0.9, 0.5, 0.2, 1}

// newMirrorFloorScene builds a black mirror floor with a glowing sphere standing on it, and a
// camera above the floor looking at the origin. The floor point under the screen center
// reflects into the front of the sphere.
func newMirrorFloorScene() (scene.Scene, camera.Camera) {
	sc := scene.NewScene("mirror floor")
	sc.AddMesh(model.NewPlane(40, 40), material.NewMaterial(
		material.WithName("floor"),
		material.WithBaseColor(common.Color{0, 0, 0, 1}),
		material.WithRoughness(0),
	))
	sc.AddMesh(model.NewSphere(2, 32, 16), material.NewMaterial(
		material.WithName("glow"),
		material.WithBaseColor(common.Color{0, 0, 0, 1}),
		material.WithEmissive(sphereGlow),
		material.WithRoughness(0.5),
	), scene.WithTransform(common.Vec3{0, 0.849, -3.395}, common.Vec3{}, common.Vec3{1, 1, 1}))

	cam := camera.NewCamera(
		camera.WithPosition(common.Vec3{0, 2, 8}),
		camera.WithTarget(common.Vec3{}),
		camera.WithFov(math32.Pi/2),
		camera.WithAspect(1),
	)
	return sc, cam
}

func newSSRTestDevice(t *testing.T, options ...device.SoftwareDeviceOption) device.Device {
	t.Helper()
	d := device.NewSoftwareDevice(append([]device.SoftwareDeviceOption{device.WithWorkers(4), device.WithBandRows(16)}, options...)...)
	t.Cleanup(d.Release)
	return d
}

// renderInput draws the scene with its own materials, the image a host renderer would hand over.
func renderInput(t *testing.T, d device.Device, sc scene.Scene, cam camera.Camera, w, h int) device.Target {
	t.Helper()
	input, err := d.CreateTarget(device.TargetDescriptor{
		Label:  "Scene Color",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
		Depth:  true,
	})
	require.NoError(t, err)
	require.NoError(t, d.RenderScene(input, sc, &device.RenderContext{
		Camera: cam.Snapshot(common.Viewport{Width: w, Height: h}),
		Clear:  common.Vec4{0, 0, 0, 1},
	}))
	return input
}

func newTestPipeline(t *testing.T, d device.Device, sc scene.Scene, cam camera.Camera, o Options) Pipeline {
	t.Helper()
	p, err := NewPipeline(WithDevice(d), WithScene(sc), WithCamera(cam), WithOptions(o))
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func sizedOptions(w, h int) Options {
	o := DefaultOptions()
	o.Width, o.Height = w, h
	return o
}

func readInput(t *testing.T, d device.Device, in device.Input) []common.Vec4 {
	t.Helper()
	px, err := d.ReadPixels(in.Target, in.Attachment)
	require.NoError(t, err)
	return px
}

func centerOf(px []common.Vec4) common.Vec4 {
	return px[(testSize/2)*testSize+testSize/2]
}

func TestPipelineNotConfigured(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, DefaultOptions())

	input := renderInput(t, d, sc, cam, 8, 8)
	_, err := p.Render(context.Background(), input)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Zero(t, p.Samples())

	require.NoError(t, p.Resize(8, 8))
	_, err = p.Render(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, 1, p.Samples())
}

func TestPipelineRejectsBadInput(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, sizedOptions(16, 16))

	_, err := p.Render(context.Background(), renderInput(t, d, sc, cam, 8, 16))
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = p.Render(context.Background(), nil)
	assert.ErrorIs(t, err, device.ErrInvalidTarget)

	assert.ErrorIs(t, p.Resize(0, 16), ErrInvalidOption)
	assert.Zero(t, p.Samples())
	assert.False(t, p.History().Valid())
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()

	assert.Panics(t, func() { _, _ = NewPipeline(WithScene(sc), WithCamera(cam)) })
	assert.Panics(t, func() { _, _ = NewPipeline(WithDevice(d), WithCamera(cam)) })
	assert.Panics(t, func() { _, _ = NewPipeline(WithDevice(d), WithScene(sc)) })

	bad := DefaultOptions()
	bad.RayStep = 0
	_, err := NewPipeline(WithDevice(d), WithScene(sc), WithCamera(cam), WithOptions(bad))
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestPipelineConvergesOnMirrorFloor(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, sizedOptions(testSize, testSize))
	input := renderInput(t, d, sc, cam, testSize, testSize)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := p.Render(ctx, input)
		require.NoError(t, err)
	}
	assert.Equal(t, 30, p.Samples())
	assert.Equal(t, uint64(30), p.History().Frame())

	temporal := centerOf(readInput(t, d, p.Buffers().Temporal))
	for c := 0; c < 3; c++ {
		assert.InDelta(t, sphereGlow[c], temporal[c], 0.05*float64(sphereGlow[c]), "channel %d", c)
	}

	// nothing above the horizon has depth to march from
	raw := readInput(t, d, p.Buffers().Reflections)
	assert.Equal(t, noReflection, raw[2*testSize+testSize/2], "sky rows have no depth")

	require.NoError(t, p.Set("useBlur", false))
	out, err := p.Render(ctx, input)
	require.NoError(t, err)
	assert.Nil(t, p.Buffers().Blurred.Target)

	after := readInput(t, d, p.Buffers().Temporal)
	for c := 0; c < 3; c++ {
		assert.InDelta(t, temporal[c], centerOf(after)[c], 2e-3, "temporal channel %d", c)
	}

	inPx, err := d.ReadPixels(input, 0)
	require.NoError(t, err)
	composite, err := d.ReadPixels(out, 0)
	require.NoError(t, err)
	for _, i := range []int{0, len(composite) / 3, len(composite) / 2, len(composite)/2 + testSize/2, len(composite) - 1} {
		for c := 0; c < 3; c++ {
			assert.InDelta(t, inPx[i][c]+after[i][c], composite[i][c], 1e-2, "pixel %d channel %d", i, c)
		}
	}

	require.NoError(t, p.Set("outputMode", "blur_mix"))
	out, err = p.Render(ctx, input)
	require.NoError(t, err)
	mix, err := d.ReadPixels(out, 0)
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{0, 0, 0, 1}, centerOf(mix))
}

func TestPipelineStaticNoise(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	o := sizedOptions(32, 32)
	o.EnableJittering = true
	o.StaticNoise = true
	p := newTestPipeline(t, d, sc, cam, o)
	input := renderInput(t, d, sc, cam, 32, 32)

	var prev []common.Vec4
	for i := 0; i < 4; i++ {
		_, err := p.Render(context.Background(), input)
		require.NoError(t, err)
		assert.Equal(t, 1, p.Samples())

		cur := readInput(t, d, p.Buffers().Temporal)
		if prev != nil {
			for j := range cur {
				for c := 0; c < 3; c++ {
					require.InDelta(t, prev[j][c], cur[j][c], 2e-3, "frame %d pixel %d", i, j)
				}
			}
		}
		prev = cur
	}
	assert.Equal(t, uint64(4), p.History().Frame())
	assert.Equal(t, 1, p.History().Samples())
}

func TestPipelineResizeResetsHistory(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	o := sizedOptions(16, 16)
	o.RayStep = 0.2
	o.OutputMode = OutputReflections
	p := newTestPipeline(t, d, sc, cam, o)
	input := renderInput(t, d, sc, cam, 16, 16)

	for i := 0; i < 3; i++ {
		_, err := p.Render(context.Background(), input)
		require.NoError(t, err)
	}
	require.Equal(t, 3, p.Samples())
	require.True(t, p.History().Valid())

	require.NoError(t, p.Resize(24, 8))
	require.NoError(t, p.Resize(16, 16))

	assert.Zero(t, p.Samples())
	assert.False(t, p.History().Valid())
	got := p.Options()
	assert.Equal(t, float32(0.2), got.RayStep)
	assert.Equal(t, OutputReflections, got.OutputMode)

	temporal := readInput(t, d, p.Buffers().Temporal)
	for _, px := range temporal {
		require.Equal(t, common.Vec4{}, px)
	}

	_, err := p.Render(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Samples())
}

func TestPipelineSetOptionsResizes(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, sizedOptions(16, 16))

	o := p.Options()
	o.Width = 8
	require.NoError(t, p.SetOptions(o))
	assert.Equal(t, 8, p.Options().Width)
	assert.Equal(t, 8, p.Buffers().Temporal.Target.Width())

	_, err := p.Render(context.Background(), renderInput(t, d, sc, cam, 8, 16))
	assert.NoError(t, err)

	v, err := p.Get("maxSteps")
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	assert.ErrorIs(t, p.Set("maxSteps", -1), ErrInvalidOption)
	assert.ErrorIs(t, p.Set("bogus", 1), ErrUnknownOption)
	assert.Equal(t, 20, p.Options().MaxSteps)
}

func TestPipelineCancelledContext(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, sizedOptions(16, 16))
	input := renderInput(t, d, sc, cam, 16, 16)

	_, err := p.Render(context.Background(), input)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Render(ctx, input)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, p.Samples())
	assert.Equal(t, uint64(1), p.History().Frame())
}

func TestPipelineFallsBackWithoutMRT(t *testing.T) {
	d := newSSRTestDevice(t, device.WithMaxColorAttachments(1))
	sc, cam := newMirrorFloorScene()

	gp := NewGeometryPass(d, surrogate.NewCache(sc.Materials(), surrogate.WithMRT(true)))
	require.NoError(t, gp.Resize(16, 16))
	t.Cleanup(gp.Release)
	assert.False(t, gp.MRT())
	assert.NotEqual(t, gp.Normal().Target, gp.Depth().Target)

	p := newTestPipeline(t, d, sc, cam, sizedOptions(16, 16))
	_, err := p.Render(context.Background(), renderInput(t, d, sc, cam, 16, 16))
	require.NoError(t, err)

	depth := readInput(t, d, p.Buffers().Depth)
	center := depth[8*16+8]
	assert.Greater(t, center.Dot(common.Vec4{1, 1, 1, 1}), float32(0), "floor depth is packed")
}

func TestPipelineProfilesPasses(t *testing.T) {
	d := newSSRTestDevice(t)
	sc, cam := newMirrorFloorScene()
	prof := profiler.NewProfiler()
	p, err := NewPipeline(WithDevice(d), WithScene(sc), WithCamera(cam), WithOptions(sizedOptions(8, 8)), WithProfiler(prof))
	require.NoError(t, err)
	t.Cleanup(p.Release)

	_, err = p.Render(context.Background(), renderInput(t, d, sc, cam, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, []string{"velocity", "geometry", "ray march", "temporal", "blur", "composite", "history"}, prof.Passes())
}

var errOutOfMemory = errors.New("out of memory")

// flakyDevice fails target creation while failing is set.
type flakyDevice struct {
	device.Device
	failing bool
}

func (d *flakyDevice) CreateTarget(desc device.TargetDescriptor) (device.Target, error) {
	if d.failing {
		return nil, errOutOfMemory
	}
	return d.Device.CreateTarget(desc)
}

func TestPipelineSetOptionsKeepsOptionsOnFailure(t *testing.T) {
	d := &flakyDevice{Device: newSSRTestDevice(t)}
	sc, cam := newMirrorFloorScene()
	p := newTestPipeline(t, d, sc, cam, sizedOptions(16, 16))
	input := renderInput(t, d, sc, cam, 16, 16)
	_, err := p.Render(context.Background(), input)
	require.NoError(t, err)
	before := p.Options()
	require.True(t, before.UseMRT)

	// dropping MRT reallocates the geometry targets
	next := before
	next.UseMRT = false
	next.MaxSteps = 7
	d.failing = true
	assert.ErrorIs(t, p.SetOptions(next), errOutOfMemory)
	assert.Equal(t, before, p.Options())

	_, err = p.Render(context.Background(), input)
	assert.ErrorIs(t, err, ErrNotConfigured)

	// a resize brings the pipeline back with the old options
	d.failing = false
	require.NoError(t, p.Resize(16, 16))
	_, err = p.Render(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, before, p.Options())

	require.NoError(t, p.SetOptions(next))
	assert.False(t, p.Options().UseMRT)
	assert.Equal(t, 7, p.Options().MaxSteps)
	_, err = p.Render(context.Background(), input)
	assert.NoError(t, err)
}
