package ssr

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// GPURayMarchUniform mirrors the WGSL RayMarchUniform struct (assets/raymarch.wgsl).
// Size: 288 bytes.
type GPURayMarchUniform struct {
	Projection        [16]float32 // offset   0
	InverseProjection [16]float32 // offset  64
	CameraWorld       [16]float32 // offset 128
	Camera            [4]float32  // offset 192: near, far, width, height
	March             [4]float32  // offset 208: ray step, max steps, binary search steps, thickness
	Limits            [4]float32  // offset 224: max depth difference, max depth, roughness fade out, stretch missed rays
	Jitter            [4]float32  // offset 240: jitter, jitter spread, jitter rough, samples
	Shading           [4]float32  // offset 256: intensity, ior, ray fade out, depth blur
	Flags             [4]float32  // offset 272: max blur, use blur, enable jittering, unused
}

// Size returns the size of the GPURayMarchUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPURayMarchUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPURayMarchUniform) Bytes() []byte {
	return common.StructToBytes(g)
}

// GPUTemporalUniform mirrors the WGSL TemporalUniform struct (assets/temporal.wgsl).
// Size: 16 bytes.
type GPUTemporalUniform struct {
	Params [4]float32 // offset 0: samples, reprojection blend, temporal resolve, unused
}

// Size returns the size of the GPUTemporalUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUTemporalUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPUTemporalUniform) Bytes() []byte {
	return common.StructToBytes(g)
}

func boolf(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
