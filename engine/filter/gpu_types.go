package filter

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// GPUKawaseUniform mirrors the WGSL KawaseUniform struct (assets/kawase.wgsl).
// Size: 32 bytes.
type GPUKawaseUniform struct {
	Params [4]float32 // offset  0: texel width, texel height, kernel, scale
	Edges  [4]float32 // offset 16: edge sharpness, near, far, unused
}

// Size returns the size of the GPUKawaseUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUKawaseUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPUKawaseUniform) Bytes() []byte {
	return common.StructToBytes(g)
}
