package shader

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
)

// MaxVaryings is the number of interpolated scalars a surface program may pass from vertex to fragment stage.
const MaxVaryings = 16

// RenderMode tags what a scene render produces. It travels in the per-call render context
// so that programs are chosen at draw time without touching the scene.
type RenderMode int

const (
	// RenderModeColor renders materials with their own shading program.
	RenderModeColor RenderMode = iota

	// RenderModeGeometry renders packed view-space normal and roughness (plus packed depth when two targets are bound).
	RenderModeGeometry

	// RenderModeDepth renders packed device depth only.
	RenderModeDepth

	// RenderModeVelocity renders screen-space motion between the previous and current frame.
	RenderModeVelocity
)

// String returns the lowercase name of the mode.
func (m RenderMode) String() string {
	switch m {
	case RenderModeColor:
		return "color"
	case RenderModeGeometry:
		return "geometry"
	case RenderModeDepth:
		return "depth"
	case RenderModeVelocity:
		return "velocity"
	default:
		return "unknown"
	}
}

// Sampler reads texels from an image. Coordinates use a bottom-left origin: uv (0,0) is the
// bottom-left corner and Fetch(0,0) the bottom-left texel.
type Sampler interface {
	// Sample returns the filtered value at uv, clamped to the edge.
	//
	// Parameters:
	//   - uv: texture coordinate
	//
	// Returns:
	//   - common.Vec4: the RGBA value
	Sample(uv common.Vec2) common.Vec4

	// Fetch returns the unfiltered texel at x, y, clamped to the edge.
	//
	// Parameters:
	//   - x, y: texel coordinates
	//
	// Returns:
	//   - common.Vec4: the RGBA value
	Fetch(x, y int) common.Vec4

	// Size returns the image dimensions in texels.
	//
	// Returns:
	//   - int, int: width and height
	Size() (int, int)
}

// Uniform is a block of parameters bound to a program. Bytes must match the WGSL struct layout.
type Uniform interface {
	Bytes() []byte
}

// DrawContext carries everything a surface program needs for one object in one render call.
type DrawContext struct {
	ObjectID       uint64
	World          [16]float32
	PrevWorld      [16]float32
	Bones          [][16]float32
	PrevBones      [][16]float32
	View           [16]float32
	Projection     [16]float32
	PrevView       [16]float32
	PrevProjection [16]float32

	// ModelView is View * World.
	ModelView [16]float32

	// NormalMatrix maps model-space normals to view space.
	NormalMatrix [16]float32

	Near, Far float32
	Viewport  common.Viewport

	// Params holds pass scalars; x is the velocity intensity.
	Params common.Vec4
}

// VertexOutput is written by SurfaceProgram.Vertex.
type VertexOutput struct {
	// Position is the clip-space position (WebGPU convention, 0 <= z <= w).
	Position common.Vec4

	// Varyings are interpolated perspective-correctly across the triangle.
	Varyings [MaxVaryings]float32
}

// Fragment is the input to SurfaceProgram.Fragment.
type Fragment struct {
	// Varyings holds the interpolated vertex outputs.
	Varyings [MaxVaryings]float32

	// FragCoord is (pixel x + 0.5, pixel y + 0.5, device depth, 1/w).
	FragCoord common.Vec4

	FrontFacing bool
}

// SurfaceResources are the material-level resources a surface program binds on GPU backends.
type SurfaceResources struct {
	// Uniform is the material uniform block.
	Uniform Uniform

	// Textures are bound in order: base color, normal, roughness, displacement. Nil entries bind a default texture.
	Textures [4]Sampler
}

// SurfaceProgram is a program drawn once per scene object.
type SurfaceProgram interface {
	// Key identifies the program for pipeline caching. Programs with equal keys share a pipeline.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source returns processed WGSL with vs_main and fs_main entry points.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Targets returns the number of color attachments the fragment stage writes.
	//
	// Returns:
	//   - int: the attachment count
	Targets() int

	// DoubleSided reports whether back faces are rasterized.
	//
	// Returns:
	//   - bool: true to disable back-face culling
	DoubleSided() bool

	// Resources returns the material resources bound alongside the program.
	//
	// Returns:
	//   - SurfaceResources: the uniform and textures
	Resources() SurfaceResources

	// Vertex runs the vertex stage on the CPU.
	//
	// Parameters:
	//   - dc: the per-object draw context
	//   - v: the input vertex
	//   - out: the output to fill
	Vertex(dc *DrawContext, v *model.GPUVertex, out *VertexOutput)

	// Fragment runs the fragment stage on the CPU, writing one value per target.
	//
	// Parameters:
	//   - dc: the per-object draw context
	//   - in: the interpolated fragment input
	//   - out: one slot per target
	//
	// Returns:
	//   - bool: false to discard the fragment
	Fragment(dc *DrawContext, in *Fragment, out []common.Vec4) bool
}

// PixelFunc computes one output texel of a full-screen pass.
// uv is the texel center with a bottom-left origin; px is the integer texel coordinate.
type PixelFunc func(uv common.Vec2, px [2]int) common.Vec4

// FullscreenProgram is a program run once per output texel.
type FullscreenProgram interface {
	// Key identifies the program for pipeline caching.
	//
	// Returns:
	//   - string: the program key
	Key() string

	// Source returns processed WGSL with an fs_main entry point. The vertex stage is vs_fullscreen.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// Inputs returns the number of input textures the program reads.
	//
	// Returns:
	//   - int: the input count
	Inputs() int

	// Kernel prepares the CPU implementation for one dispatch.
	//
	// Parameters:
	//   - inputs: one sampler per input texture
	//   - uniform: the bound parameter block
	//
	// Returns:
	//   - PixelFunc: the per-texel function
	//   - error: an error if the inputs or uniform do not match the program
	Kernel(inputs []Sampler, uniform Uniform) (PixelFunc, error)
}

// SkinMatrix blends bone matrices by the vertex weights. Unskinned vertices and empty palettes yield identity.
//
// Parameters:
//   - bones: the bone palette
//   - v: the vertex carrying indices and weights
//
// Returns:
//   - [16]float32: the blended skinning matrix
func SkinMatrix(bones [][16]float32, v *model.GPUVertex) [16]float32 {
	if len(bones) == 0 || !v.Skinned() {
		return common.IdentityMatrix()
	}
	var out [16]float32
	for i := 0; i < 4; i++ {
		w := v.BoneWeights[i]
		if w == 0 {
			continue
		}
		idx := int(v.BoneIndices[i])
		if idx >= len(bones) {
			continue
		}
		for k := 0; k < 16; k++ {
			out[k] += bones[idx][k] * w
		}
	}
	return out
}
