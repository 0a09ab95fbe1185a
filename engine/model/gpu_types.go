package model

import (
	_ "embed"
	"unsafe"

	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
)

// GPUVertexSource is the canonical WGSL definition of the VertexInput struct shared by every surface program.
// Matches GPUVertex layout exactly (96 bytes).
//
//go:embed assets/vertex.wgsl
var GPUVertexSource string

// GPUVertex is the GPU-aligned representation of a single mesh vertex.
// Static meshes leave the bone weights zeroed, which the skinning path treats as "unskinned".
// Size: 96 bytes.
type GPUVertex struct {
	Position    [3]float32 // offset  0
	Normal      [3]float32 // offset 12
	TexCoord    [2]float32 // offset 24
	Color       [4]float32 // offset 32
	Tangent     [4]float32 // offset 48: xyz tangent, w handedness
	BoneIndices [4]uint32  // offset 64
	BoneWeights [4]float32 // offset 80: must sum to 1 for skinned vertices
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Skinned reports whether any bone weight is set on the vertex.
func (g *GPUVertex) Skinned() bool {
	return g.BoneWeights[0]+g.BoneWeights[1]+g.BoneWeights[2]+g.BoneWeights[3] > 0
}

// VertexBufferLayout describes GPUVertex to a wgpu render pipeline.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout for vertex buffer slot 0
func VertexBufferLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: 96,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 48, ShaderLocation: 4},
			{Format: wgpu.VertexFormatUint32x4, Offset: 64, ShaderLocation: 5},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 80, ShaderLocation: 6},
		},
	}
}

// ComputeBoundingRadius calculates the bounding sphere radius of a vertex set,
// measured as the maximum distance from the model-space origin.
//
// Parameters:
//   - vertices: the vertex data to compute the bounding radius from
//
// Returns:
//   - float32: the maximum distance from the origin
func ComputeBoundingRadius(vertices []GPUVertex) float32 {
	var maxDistSq float32
	for _, v := range vertices {
		p := v.Position
		distSq := p[0]*p[0] + p[1]*p[1] + p[2]*p[2]
		if distSq > maxDistSq {
			maxDistSq = distSq
		}
	}
	return math32.Sqrt(maxDistSq)
}
