package material

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
)

//go:embed assets/forward.wgsl
var forwardSource string

var (
	forwardLightDir = common.Vec3{0.4, 1.0, 0.3}.Normalize()
	forwardAmbient  = float32(0.3)
)

// forwardProgram is the host renderer's shading program: lambert lighting from one fixed
// directional light plus ambient, with the emissive color added on top.
type forwardProgram struct {
	mat    Material
	source string
}

var _ shader.SurfaceProgram = &forwardProgram{}

// NewForwardProgram creates the default host shading program for m.
//
// Parameters:
//   - m: the material to shade
//
// Returns:
//   - shader.SurfaceProgram: the program
func NewForwardProgram(m Material) shader.SurfaceProgram {
	src, err := shader.NewPreProcessor().Process(forwardSource, nil)
	if err != nil {
		panic(fmt.Sprintf("forward program: %v", err))
	}
	return &forwardProgram{mat: m, source: src}
}

func (p *forwardProgram) Key() string {
	return fmt.Sprintf("forward:double_sided=%t", p.mat.DoubleSided())
}

func (p *forwardProgram) Source() string {
	return p.source
}

func (p *forwardProgram) Targets() int {
	return 1
}

func (p *forwardProgram) DoubleSided() bool {
	return p.mat.DoubleSided()
}

func (p *forwardProgram) Resources() shader.SurfaceResources {
	return NewSurfaceResources(p.mat, true, true)
}

func (p *forwardProgram) Vertex(dc *shader.DrawContext, v *model.GPUVertex, out *shader.VertexOutput) {
	local, normal := DisplacedVertex(p.mat, dc.Bones, v)
	world := common.TransformPoint(dc.World, local)
	out.Position = common.TransformPoint(dc.Projection, common.TransformPoint(dc.View, world))
	n := common.TransformDirection(dc.World, normal)
	copy(out.Varyings[0:3], n[:])
	out.Varyings[3] = v.TexCoord[0]
	out.Varyings[4] = v.TexCoord[1]
}

func (p *forwardProgram) Fragment(dc *shader.DrawContext, in *shader.Fragment, out []common.Vec4) bool {
	n := common.Vec3{in.Varyings[0], in.Varyings[1], in.Varyings[2]}.Normalize()
	if !in.FrontFacing {
		n = n.Scale(-1)
	}
	base := p.mat.BaseColor()
	if m := p.mat.BaseColorMap(); m != nil {
		uv := ApplyUVTransform(p.mat.UVTransform(), common.Vec2{in.Varyings[3], in.Varyings[4]})
		t := m.Sample(uv)
		base = common.Vec4{base[0] * t[0], base[1] * t[1], base[2] * t[2], base[3] * t[3]}
	}
	lambert := max(n.Dot(forwardLightDir), 0)
	light := forwardAmbient + (1-forwardAmbient)*lambert
	e := p.mat.Emissive()
	out[0] = common.Vec4{base[0]*light + e[0], base[1]*light + e[1], base[2]*light + e[2], 1}
	return true
}

// DisplacedVertex skins v with bones and applies the material's displacement map along the skinned normal.
//
// Parameters:
//   - m: the material providing displacement
//   - bones: the bone palette, may be empty
//   - v: the vertex
//
// Returns:
//   - common.Vec4: the model-space position (w = 1)
//   - common.Vec3: the model-space unit normal
func DisplacedVertex(m Material, bones [][16]float32, v *model.GPUVertex) (common.Vec4, common.Vec3) {
	skin := shader.SkinMatrix(bones, v)
	local := common.TransformPoint(skin, common.Vec3(v.Position).Vec4(1))
	normal := common.TransformDirection(skin, common.Vec3(v.Normal)).Normalize()
	if dm := m.DisplacementMap(); dm != nil {
		scale, bias := m.Displacement()
		uv := ApplyUVTransform(m.UVTransform(), common.Vec2(v.TexCoord))
		h := dm.Sample(uv)[0]*scale + bias
		local = local.XYZ().Add(normal.Scale(h)).Vec4(1)
	}
	return local, normal
}

// NewMaterialUniform packs the material state into the WGSL MaterialUniform layout.
// Map presence flags are cleared for maps the caller chooses to ignore.
//
// Parameters:
//   - m: the material
//   - useNormalMap: whether a present normal map is flagged
//   - useRoughnessMap: whether a present roughness map is flagged
//
// Returns:
//   - shader.GPUMaterialUniform: the uniform block
func NewMaterialUniform(m Material, useNormalMap, useRoughnessMap bool) shader.GPUMaterialUniform {
	scale, bias := m.Displacement()
	ns := m.NormalScale()
	flag := func(on bool) float32 {
		if on {
			return 1
		}
		return 0
	}
	return shader.GPUMaterialUniform{
		BaseColor:   m.BaseColor(),
		Emissive:    m.Emissive(),
		Surface:     [4]float32{m.Roughness(), ns[0], ns[1], scale},
		Maps:        [4]float32{bias, flag(useNormalMap && m.NormalMap() != nil), flag(useRoughnessMap && m.RoughnessMap() != nil), flag(m.DisplacementMap() != nil)},
		UVTransform: padUVTransform(m.UVTransform()),
	}
}

// NewSurfaceResources collects the uniform and maps a surface program binds for m.
//
// Parameters:
//   - m: the material
//   - useNormalMap: whether the normal map is bound
//   - useRoughnessMap: whether the roughness map is bound
//
// Returns:
//   - shader.SurfaceResources: the resources
func NewSurfaceResources(m Material, useNormalMap, useRoughnessMap bool) shader.SurfaceResources {
	u := NewMaterialUniform(m, useNormalMap, useRoughnessMap)
	res := shader.SurfaceResources{Uniform: &u}
	if t := m.BaseColorMap(); t != nil {
		res.Textures[0] = t
	}
	if t := m.NormalMap(); t != nil && useNormalMap {
		res.Textures[1] = t
	}
	if t := m.RoughnessMap(); t != nil && useRoughnessMap {
		res.Textures[2] = t
	}
	if t := m.DisplacementMap(); t != nil {
		res.Textures[3] = t
	}
	return res
}
