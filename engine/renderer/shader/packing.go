package shader

import (
	"math"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// Host-side mirrors of assets/packing.wgsl. Depth packing spreads a [0, 1) value over four
// 8-bit channels, least significant byte in x, so it survives an RGBA8 target exactly.
const (
	packUpscale     = 256.0 / 255.0
	unpackDownscale = 255.0 / 256.0
)

var packFactors = [4]float64{16777216, 65536, 256, 1}

// PackDepth encodes v in [0, 1) into four channels. A value of 1 (the far plane) packs to zero,
// which readers treat as "no geometry".
//
// Parameters:
//   - v: the device depth
//
// Returns:
//   - common.Vec4: the packed value
func PackDepth(v float32) common.Vec4 {
	var r [4]float64
	for i, f := range packFactors {
		x := float64(v) * f
		r[i] = x - math.Floor(x)
	}
	out := common.Vec4{float32(r[0] * packUpscale)}
	for i := 1; i < 4; i++ {
		out[i] = float32((r[i] - r[i-1]/256) * packUpscale)
	}
	return out
}

// UnpackDepth decodes a value written by PackDepth.
//
// Parameters:
//   - v: the packed value
//
// Returns:
//   - float32: the device depth
func UnpackDepth(v common.Vec4) float32 {
	var d float64
	for i, f := range packFactors {
		d += float64(v[i]) * unpackDownscale / f
	}
	return float32(d)
}

// PackNormal maps a direction to [0, 1]^3.
func PackNormal(n common.Vec3) common.Vec3 {
	return n.Normalize().Scale(0.5).Add(common.Vec3{0.5, 0.5, 0.5})
}

// UnpackNormal inverts PackNormal. The result is not renormalized.
func UnpackNormal(rgb common.Vec3) common.Vec3 {
	return rgb.Scale(2).Sub(common.Vec3{1, 1, 1})
}

// PerspectiveDepthToViewZ converts a device depth to a (negative) view-space z.
//
// Parameters:
//   - depth: the device depth in [0, 1]
//   - near, far: the clip planes
//
// Returns:
//   - float32: the view-space z
func PerspectiveDepthToViewZ(depth, near, far float32) float32 {
	n, f := float64(near), float64(far)
	return float32(n * f / ((f-n)*float64(depth) - f))
}
