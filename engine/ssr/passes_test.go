package ssr

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
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func temporalKernel(t *testing.T, raw, velocity, history common.Vec4, samples, blend float32, resolve bool) common.Vec4 {
	t.Helper()
	u := &GPUTemporalUniform{Params: [4]float32{samples, blend, boolf(resolve), 0}}
	fn, err := newTemporalProgram().Kernel([]shader.Sampler{
		constantSampler(raw), constantSampler(velocity), constantSampler(history),
	}, u)
	require.NoError(t, err)
	return fn(common.Vec2{0.5, 0.5}, [2]int{})
}

func TestTemporalSeedsFromCurrentSample(t *testing.T) {
	cur := common.Vec4{0.4, 0.3, 0.2, 0.1}
	got := temporalKernel(t, cur, common.Vec4{}, common.Vec4{0.0001, 0, 0, 0.9}, 5, 0.5, true)
	assert.Equal(t, cur, got)
}

func TestTemporalBlendWeight(t *testing.T) {
	cur := common.Vec4{1, 0, 0, 0}
	hist := common.Vec4{0, 1, 0, 0.2}

	for _, samples := range []float32{1, 4, 30} {
		w := 1 / (samples * math32.E)
		got := temporalKernel(t, cur, common.Vec4{}, hist, samples, 0.5, true)
		assert.InDelta(t, w, got[0], 1e-6, "samples %v", samples)
		assert.InDelta(t, 1-w, got[1], 1e-6, "samples %v", samples)
		assert.InDelta(t, 0.2*(1-w)+0.5*w, got[3], 1e-6, "samples %v", samples)
	}

	// a zero counter weighs like the first sample
	zero := temporalKernel(t, cur, common.Vec4{}, hist, 0, 0.5, true)
	one := temporalKernel(t, cur, common.Vec4{}, hist, 1, 0.5, true)
	assert.Equal(t, one, zero)
}

func TestTemporalResolveOffPassesThrough(t *testing.T) {
	cur := common.Vec4{0.4, 0.3, 0.2, 0.1}
	got := temporalKernel(t, cur, common.Vec4{0.1, 0.1, 0, 0}, common.Vec4{1, 1, 1, 1}, 7, 0.5, false)
	assert.Equal(t, cur, got)
}

func TestTemporalReprojectsAlongVelocity(t *testing.T) {
	// history is bright only on the left half; moving right by a quarter screen pulls the
	// reprojected sample from the left half
	history := funcSampler(func(uv common.Vec2) common.Vec4 {
		if uv[0] < 0.5 {
			return common.Vec4{1, 1, 1, 0.8}
		}
		return common.Vec4{0.5, 0.5, 0.5, 0.2}
	})
	u := &GPUTemporalUniform{Params: [4]float32{1e6, 1, 1, 0}}
	fn, err := newTemporalProgram().Kernel([]shader.Sampler{
		constantSampler(common.Vec4{}),
		constantSampler(common.Vec4{0.25, 0, 0, 0}),
		history,
	}, u)
	require.NoError(t, err)

	got := fn(common.Vec2{0.6, 0.5}, [2]int{})
	assert.InDelta(t, 1, got[0], 1e-5)
	// the blur weight is not reprojected
	assert.InDelta(t, 0.2, got[3], 1e-5)
}

func TestTemporalKernelRejectsBindings(t *testing.T) {
	p := newTemporalProgram()
	_, err := p.Kernel(nil, &GPUTemporalUniform{})
	assert.Error(t, err)
	_, err = p.Kernel([]shader.Sampler{nil, nil, nil}, &GPURayMarchUniform{})
	assert.Error(t, err)
}

func compositeKernel(t *testing.T, mode OutputMode, blur bool, input, refl, blurred common.Vec4) common.Vec4 {
	t.Helper()
	p := newCompositeProgram(mode, blur)
	in := []shader.Sampler{constantSampler(input), constantSampler(refl)}
	if blur {
		in = append(in, constantSampler(blurred))
	}
	fn, err := p.Kernel(in, nil)
	require.NoError(t, err)
	return fn(common.Vec2{0.5, 0.5}, [2]int{})
}

func TestCompositeModes(t *testing.T) {
	input := common.Vec4{0.2, 0.3, 0.4, 0.5}
	refl := common.Vec4{0.5, 0.25, 0, 0.5}
	blurred := common.Vec4{0.1, 0.1, 0.1, 1}
	mixed := softClamp(refl.XYZ().Lerp(blurred.XYZ(), 0.5))

	tests := []struct {
		mode OutputMode
		blur bool
		want common.Vec4
	}{
		{OutputDefault, false, common.Vec4{0.7, 0.55, 0.4, 1}},
		{OutputDefault, true, input.XYZ().Add(mixed).Vec4(1)},
		{OutputReflections, false, refl.XYZ().Vec4(1)},
		{OutputReflections, true, mixed.Vec4(1)},
		{OutputRawReflections, true, refl.XYZ().Vec4(1)},
		{OutputBlurred, true, blurred.XYZ().Vec4(1)},
		{OutputBlurred, false, common.Vec4{0, 0, 0, 1}},
		{OutputInput, true, input.XYZ().Vec4(1)},
		{OutputInput, false, input.XYZ().Vec4(1)},
		{OutputBlurMix, true, common.Vec4{0.5, 0.5, 0.5, 1}},
		{OutputBlurMix, false, common.Vec4{0, 0, 0, 1}},
	}
	for _, tt := range tests {
		got := compositeKernel(t, tt.mode, tt.blur, input, refl, blurred)
		for c := 0; c < 4; c++ {
			assert.InDelta(t, tt.want[c], got[c], 1e-6, "%s blur=%t channel %d", tt.mode, tt.blur, c)
		}
	}
}

func TestSoftClamp(t *testing.T) {
	long := softClamp(common.Vec3{10, 10, 10})
	assert.InDelta(t, sqrt3, long.Length(), 1e-3)

	dim := common.Vec3{0.1, 0.1, 0.1}
	l := dim.Length()
	scale := 1 - 0.35*math32.Pow(sqrt3+0.00001-l, 1.5)
	assert.InDelta(t, 0.1*scale, softClamp(dim)[0], 1e-6)

	assert.Equal(t, common.Vec3{}, softClamp(common.Vec3{}))
}

func TestCompositeProgramSource(t *testing.T) {
	plain := newCompositeProgram(OutputBlurMix, false)
	blurred := newCompositeProgram(OutputBlurMix, true)

	assert.Equal(t, "ssr:composite:mode=blur_mix:blur=false", plain.Key())
	assert.NotEqual(t, plain.Key(), blurred.Key())
	assert.Equal(t, 2, plain.Inputs())
	assert.Equal(t, 3, blurred.Inputs())

	assert.NotContains(t, plain.Source(), "blurred_map")
	assert.Contains(t, blurred.Source(), "blurred_map")
	assert.Contains(t, plain.Source(), "const OUTPUT_MODE: i32 = 5;")
	assert.True(t, strings.Contains(plain.Source(), "fn vs_fullscreen"))
}

func TestCompositePassRequiresResize(t *testing.T) {
	d := newSSRTestDevice(t)
	c := NewCompositePass(d)
	assert.ErrorIs(t, c.Render(device.Input{}, device.Input{}, device.Input{}, OutputDefault), ErrNotConfigured)

	require.NoError(t, c.Resize(4, 4))
	assert.Equal(t, "SSR Composite", c.Output().Label())
	c.Release()
	assert.Nil(t, c.Output())
}

func TestTemporalPassCommitAndReset(t *testing.T) {
	d := newSSRTestDevice(t)
	tp := NewTemporalPass(d)
	require.NoError(t, tp.Resize(4, 4))
	t.Cleanup(tp.Release)

	raw, err := d.CreateTarget(device.TargetDescriptor{Label: "raw", Width: 4, Height: 4, Format: device.FormatRGBA16F})
	require.NoError(t, err)
	vel, err := d.CreateTarget(device.TargetDescriptor{Label: "vel", Width: 4, Height: 4, Format: device.FormatRGBA16F})
	require.NoError(t, err)
	fill := make([]common.Vec4, 16)
	for i := range fill {
		fill[i] = common.Vec4{0.5, 0.5, 0.5, 0}
	}
	require.NoError(t, d.WritePixels(raw, 0, fill))

	o := DefaultOptions()
	require.NoError(t, tp.Render(device.Bind(raw), device.Bind(vel), 1, o))
	require.NoError(t, tp.Commit())

	// a half-bright history blended with a black sample darkens by the first-sample weight
	require.NoError(t, d.WritePixels(raw, 0, make([]common.Vec4, 16)))
	require.NoError(t, tp.Render(device.Bind(raw), device.Bind(vel), 2, o))
	px := readInput(t, d, tp.Output())
	w := 1 / (2 * math32.E)
	assert.InDelta(t, 0.5*(1-w), px[5][0], 1e-3)

	require.NoError(t, tp.Reset())
	require.NoError(t, tp.Render(device.Bind(raw), device.Bind(vel), 3, o))
	px = readInput(t, d, tp.Output())
	assert.Equal(t, common.Vec4{}, px[5])
}

func TestFrameHistory(t *testing.T) {
	var h FrameHistory
	assert.False(t, h.Valid())
	cur := camera.FrameState{Near: 1}
	assert.Equal(t, cur, h.prevCamera(cur))

	sc := scene.NewScene("history")
	bones := [][16]float32{common.IdentityMatrix()}
	n := sc.AddMesh(model.NewQuad(1, 1), material.NewMaterial(), scene.WithBones(bones))

	first := camera.FrameState{Near: 2}
	h1 := h.Next(sc, first, 1)
	assert.True(t, h1.Valid())
	assert.Equal(t, uint64(1), h1.Frame())
	assert.Equal(t, 1, h1.Samples())
	assert.Equal(t, first, h1.Camera())
	assert.Equal(t, first, h1.prevCamera(cur))
	assert.False(t, h.Valid(), "Next leaves the receiver untouched")

	world, prevBones, ok := h1.Previous(n.ID())
	require.True(t, ok)
	assert.Equal(t, n.World(), world)
	assert.Equal(t, bones, prevBones)

	// later changes to the node do not leak into the recorded frame
	moved := common.IdentityMatrix()
	moved[12] = 3
	n.SetWorld(moved)
	n.SetBones([][16]float32{moved})
	world, prevBones, _ = h1.Previous(n.ID())
	assert.Equal(t, float32(0), world[12])
	assert.Equal(t, bones, prevBones)

	_, _, ok = h1.Previous(n.ID() + 100)
	assert.False(t, ok)

	h2 := h1.Next(sc, cur, 2)
	assert.Equal(t, uint64(2), h2.Frame())
	world, _, _ = h2.Previous(n.ID())
	assert.Equal(t, float32(3), world[12])
}
