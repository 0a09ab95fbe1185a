package shader

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

// GPUFrameUniform mirrors the WGSL FrameUniform struct (assets/frame.wgsl).
// Size: 288 bytes.
type GPUFrameUniform struct {
	View           [16]float32 // offset   0
	Projection     [16]float32 // offset  64
	PrevView       [16]float32 // offset 128
	PrevProjection [16]float32 // offset 192
	Camera         [4]float32  // offset 256: near, far, width, height
	Params         [4]float32  // offset 272: x = velocity intensity
}

// Size returns the size of the GPUFrameUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUFrameUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPUFrameUniform) Bytes() []byte {
	return common.StructToBytes(g)
}

// NewFrameUniform fills a frame uniform from a draw context.
//
// Parameters:
//   - dc: the draw context holding camera state
//
// Returns:
//   - GPUFrameUniform: the uniform block
func NewFrameUniform(dc *DrawContext) GPUFrameUniform {
	return GPUFrameUniform{
		View:           dc.View,
		Projection:     dc.Projection,
		PrevView:       dc.PrevView,
		PrevProjection: dc.PrevProjection,
		Camera:         [4]float32{dc.Near, dc.Far, float32(dc.Viewport.Width), float32(dc.Viewport.Height)},
		Params:         dc.Params,
	}
}

// GPUObjectUniform mirrors the WGSL ObjectUniform struct (assets/object.wgsl).
// Size: 208 bytes.
type GPUObjectUniform struct {
	Model        [16]float32 // offset   0
	PrevModel    [16]float32 // offset  64
	NormalMatrix [16]float32 // offset 128
	Flags        [4]float32  // offset 192: skinned, bone count
}

// Size returns the size of the GPUObjectUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUObjectUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPUObjectUniform) Bytes() []byte {
	return common.StructToBytes(g)
}

// GPUMaterialUniform mirrors the WGSL MaterialUniform struct (assets/material.wgsl).
// Size: 112 bytes. UVTransform is a mat3x3 with each column padded to four floats.
type GPUMaterialUniform struct {
	BaseColor   [4]float32  // offset  0
	Emissive    [4]float32  // offset 16
	Surface     [4]float32  // offset 32: roughness, normal scale x, normal scale y, displacement scale
	Maps        [4]float32  // offset 48: displacement bias, has normal map, has roughness map, has displacement map
	UVTransform [12]float32 // offset 64
}

// Size returns the size of the GPUMaterialUniform struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterialUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Bytes returns the raw bytes of the struct for upload.
func (g *GPUMaterialUniform) Bytes() []byte {
	return common.StructToBytes(g)
}
