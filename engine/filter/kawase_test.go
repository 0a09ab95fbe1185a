package filter

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const size = 16

func newDevice(t *testing.T) device.Device {
	t.Helper()
	d := device.NewSoftwareDevice(device.WithWorkers(2))
	t.Cleanup(d.Release)
	return d
}

func newImage(t *testing.T, d device.Device, label string, filter device.Filter, fill func(x, yTop int) common.Vec4) device.Target {
	t.Helper()
	tgt, err := d.CreateTarget(device.TargetDescriptor{Label: label, Width: size, Height: size, Format: device.FormatRGBA32F, Filter: filter})
	require.NoError(t, err)
	px := make([]common.Vec4, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			px[y*size+x] = fill(x, y)
		}
	}
	require.NoError(t, d.WritePixels(tgt, 0, px))
	return tgt
}

func sum(px []common.Vec4) float32 {
	var s float32
	for _, p := range px {
		s += p[0]
	}
	return s
}

func TestParseKernelSize(t *testing.T) {
	tests := []struct {
		in   string
		want KernelSize
	}{
		{"very_small", KernelVerySmall},
		{"VERY_SMALL", KernelVerySmall},
		{"small", KernelSmall},
		{"veryLarge", KernelVeryLarge},
		{"huge", KernelHuge},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKernelSize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseKernelSize("gigantic")
	assert.Error(t, err)

	var k KernelSize
	require.NoError(t, k.UnmarshalText([]byte("medium")))
	assert.Equal(t, KernelMedium, k)
	text, err := KernelLarge.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "large", string(text))
	assert.Len(t, KernelHuge.Kernels(), 10)
	assert.Equal(t, KernelSmall.Kernels(), KernelSize(42).Kernels())
}

func TestKawasePreservesConstantImage(t *testing.T) {
	d := newDevice(t)
	src := newImage(t, d, "constant", device.FilterLinear, func(int, int) common.Vec4 { return common.Vec4{0.25, 0.5, 0.75, 1} })
	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "out", Width: size, Height: size, Format: device.FormatRGBA32F})
	require.NoError(t, err)

	k := NewKawase(d, WithKernelSize(KernelLarge))
	defer k.Release()
	require.NoError(t, k.Render(dst, device.Bind(src), nil))

	px, err := d.ReadPixels(dst, 0)
	require.NoError(t, err)
	for _, p := range px {
		assert.InDelta(t, 0.25, p[0], 1e-5)
		assert.InDelta(t, 1, p[3], 1e-5)
	}
}

func TestKawaseSpreadsImpulse(t *testing.T) {
	d := newDevice(t)
	src := newImage(t, d, "impulse", device.FilterLinear, func(x, y int) common.Vec4 {
		if x == size/2 && y == size/2 {
			return common.Vec4{1, 0, 0, 1}
		}
		return common.Vec4{}
	})
	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "out", Width: size, Height: size, Format: device.FormatRGBA32F})
	require.NoError(t, err)

	k := NewKawase(d)
	defer k.Release()
	assert.Equal(t, KernelSmall, k.KernelSize())
	require.NoError(t, k.Render(dst, device.Bind(src), nil))

	px, err := d.ReadPixels(dst, 0)
	require.NoError(t, err)
	center := px[size/2*size+size/2][0]
	assert.Less(t, center, float32(0.5))
	assert.Greater(t, px[size/2*size+size/2+1][0], float32(0))
	assert.InDelta(t, 1, sum(px), 1e-3, "blur conserves energy away from the borders")

	k.SetKernelSize(KernelHuge)
	require.NoError(t, k.Render(dst, device.Bind(src), nil))
	wide, err := d.ReadPixels(dst, 0)
	require.NoError(t, err)
	assert.Less(t, wide[size/2*size+size/2][0], center)
}

func TestKawaseEdgeAware(t *testing.T) {
	d := newDevice(t)
	// left half lit and near, right half dark and far
	src := newImage(t, d, "color", device.FilterLinear, func(x, _ int) common.Vec4 {
		if x < size/2 {
			return common.Vec4{1, 1, 1, 1}
		}
		return common.Vec4{0, 0, 0, 1}
	})
	depth := newImage(t, d, "depth", device.FilterNearest, func(x, _ int) common.Vec4 {
		if x < size/2 {
			return shader.PackDepth(0.9)
		}
		return shader.PackDepth(0.999)
	})
	dst, err := d.CreateTarget(device.TargetDescriptor{Label: "out", Width: size, Height: size, Format: device.FormatRGBA32F})
	require.NoError(t, err)

	edge := size/2*size + size/2 - 1

	plain := NewKawase(d, WithKernelSize(KernelVerySmall))
	defer plain.Release()
	require.NoError(t, plain.Render(dst, device.Bind(src), nil))
	px, err := d.ReadPixels(dst, 0)
	require.NoError(t, err)
	blurred := px[edge][0]
	assert.Less(t, blurred, float32(0.9))

	aware := NewKawase(d, WithKernelSize(KernelVerySmall), WithEdgeSharpness(100))
	defer aware.Release()
	require.NoError(t, aware.Render(dst, device.Bind(src), &Edges{Depth: device.Bind(depth), Near: 0.1, Far: 100}))
	px, err = d.ReadPixels(dst, 0)
	require.NoError(t, err)
	assert.Greater(t, px[edge][0], blurred)
	assert.Greater(t, px[edge][0], float32(0.95))
}

func TestKawaseRejectsMissingTargets(t *testing.T) {
	k := NewKawase(newDevice(t))
	assert.ErrorIs(t, k.Render(nil, device.Input{}, nil), device.ErrInvalidTarget)
	assert.Panics(t, func() { NewKawase(nil) })
}
