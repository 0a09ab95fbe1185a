package surrogate

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/chewxy/math32"
)

var (
	//go:embed assets/geometry.wgsl
	geometrySource string

	//go:embed assets/depth.wgsl
	depthSource string

	//go:embed assets/velocity.wgsl
	velocitySource string
)

// program holds the state every surrogate kind shares.
type program struct {
	mat     material.Material
	key     string
	source  string
	targets int

	normalMap    bool
	roughnessMap bool
}

func (p *program) Key() string {
	return fmt.Sprintf("%s:double_sided=%t", p.key, p.mat.DoubleSided())
}

func (p *program) Source() string {
	return p.source
}

func (p *program) Targets() int {
	return p.targets
}

func (p *program) DoubleSided() bool {
	return p.mat.DoubleSided()
}

func (p *program) Resources() shader.SurfaceResources {
	return material.NewSurfaceResources(p.mat, p.normalMap, p.roughnessMap)
}

// Material returns the material whose geometry the surrogate reproduces.
func (p *program) Material() material.Material {
	return p.mat
}

// newProgram resolves the defines for m under the cache flags and processes raw once per key.
func (c *cache) newProgram(kind Kind, m material.Material, raw string, targets int) (*program, error) {
	p := &program{
		mat:          m,
		targets:      targets,
		normalMap:    kind == KindGeometry && c.flags.UseNormalMap && m.NormalMap() != nil,
		roughnessMap: kind == KindGeometry && c.flags.UseRoughnessMap && m.RoughnessMap() != nil,
	}
	displacement := m.DisplacementMap() != nil
	mrt := kind == KindGeometry && targets > 1
	p.key = fmt.Sprintf("surrogate:%s:normal_map=%t:roughness_map=%t:displacement=%t:mrt=%t",
		kind, p.normalMap, p.roughnessMap, displacement, mrt)

	defines := shader.Defines{}.
		Set("USE_NORMALMAP", p.normalMap).
		Set("USE_ROUGHNESSMAP", p.roughnessMap).
		Set("USE_DISPLACEMENT", displacement).
		Set("USE_MRT", mrt)
	src, err := c.source(p.key, raw, defines)
	if err != nil {
		return nil, err
	}
	p.source = src
	return p, nil
}

// geometryProgram writes (packed view normal, roughness) and, with two targets, packed depth.
//
// Varyings: 0-2 view normal, 3-4 transformed uv, 5-8 view tangent and handedness.
type geometryProgram struct {
	*program
}

func (c *cache) newGeometryProgram(m material.Material) (shader.SurfaceProgram, error) {
	targets := 1
	if c.flags.UseMRT {
		targets = 2
	}
	p, err := c.newProgram(KindGeometry, m, geometrySource, targets)
	if err != nil {
		return nil, err
	}
	return &geometryProgram{program: p}, nil
}

func (p *geometryProgram) Vertex(dc *shader.DrawContext, v *model.GPUVertex, out *shader.VertexOutput) {
	local, normal := material.DisplacedVertex(p.mat, dc.Bones, v)
	out.Position = common.TransformPoint(dc.Projection, common.TransformPoint(dc.ModelView, local))

	n := common.TransformDirection(dc.NormalMatrix, normal)
	copy(out.Varyings[0:3], n[:])

	uv := material.ApplyUVTransform(p.mat.UVTransform(), common.Vec2(v.TexCoord))
	copy(out.Varyings[3:5], uv[:])

	skin := shader.SkinMatrix(dc.Bones, v)
	t := common.TransformDirection(dc.ModelView, common.TransformDirection(skin, common.Vec3{v.Tangent[0], v.Tangent[1], v.Tangent[2]}))
	copy(out.Varyings[5:8], t[:])
	out.Varyings[8] = v.Tangent[3]
}

func (p *geometryProgram) Fragment(dc *shader.DrawContext, in *shader.Fragment, out []common.Vec4) bool {
	n := common.Vec3{in.Varyings[0], in.Varyings[1], in.Varyings[2]}.Normalize()
	if !in.FrontFacing {
		n = n.Scale(-1)
	}
	uv := common.Vec2{in.Varyings[3], in.Varyings[4]}

	if p.normalMap {
		n = perturbNormal(n, p.mat.NormalMap().Sample(uv), p.mat.NormalScale(),
			common.Vec3{in.Varyings[5], in.Varyings[6], in.Varyings[7]}, in.Varyings[8])
	}

	roughness := p.mat.Roughness()
	if p.roughnessMap {
		roughness *= p.mat.RoughnessMap().Sample(uv)[1]
	}

	out[0] = shader.PackNormal(n).Vec4(common.Saturate(roughness))
	if len(out) > 1 && p.targets > 1 {
		out[1] = shader.PackDepth(in.FragCoord[2])
	}
	return true
}

// perturbNormal applies a tangent-space normal map sample to n. A degenerate tangent leaves n unchanged.
func perturbNormal(n common.Vec3, sample common.Vec4, scale common.Vec2, tangent common.Vec3, handedness float32) common.Vec3 {
	m := common.Vec3{(sample[0]*2 - 1) * scale[0], (sample[1]*2 - 1) * scale[1], sample[2]*2 - 1}
	t := tangent.Sub(n.Scale(n.Dot(tangent)))
	if t.Dot(t) <= 1e-8 {
		return n
	}
	t = t.Normalize()
	b := n.Cross(t).Scale(handedness)
	return t.Scale(m[0]).Add(b.Scale(m[1])).Add(n.Scale(m[2])).Normalize()
}

// depthProgram writes packed device depth.
type depthProgram struct {
	*program
}

func (c *cache) newDepthProgram(m material.Material) (shader.SurfaceProgram, error) {
	p, err := c.newProgram(KindDepth, m, depthSource, 1)
	if err != nil {
		return nil, err
	}
	return &depthProgram{program: p}, nil
}

func (p *depthProgram) Vertex(dc *shader.DrawContext, v *model.GPUVertex, out *shader.VertexOutput) {
	local, _ := material.DisplacedVertex(p.mat, dc.Bones, v)
	out.Position = common.TransformPoint(dc.Projection, common.TransformPoint(dc.ModelView, local))
}

func (p *depthProgram) Fragment(dc *shader.DrawContext, in *shader.Fragment, out []common.Vec4) bool {
	out[0] = shader.PackDepth(in.FragCoord[2])
	return true
}

// velocityProgram writes (uv_current - uv_previous) * dc.Params.x.
//
// Varyings: 0-3 current clip position, 4-7 previous clip position.
type velocityProgram struct {
	*program
}

func (c *cache) newVelocityProgram(m material.Material) (shader.SurfaceProgram, error) {
	p, err := c.newProgram(KindVelocity, m, velocitySource, 1)
	if err != nil {
		return nil, err
	}
	return &velocityProgram{program: p}, nil
}

func (p *velocityProgram) Vertex(dc *shader.DrawContext, v *model.GPUVertex, out *shader.VertexOutput) {
	local, _ := material.DisplacedVertex(p.mat, dc.Bones, v)
	prevLocal, _ := material.DisplacedVertex(p.mat, dc.PrevBones, v)

	cur := common.TransformPoint(dc.Projection, common.TransformPoint(dc.View, common.TransformPoint(dc.World, local)))
	prev := common.TransformPoint(dc.PrevProjection, common.TransformPoint(dc.PrevView, common.TransformPoint(dc.PrevWorld, prevLocal)))

	out.Position = cur
	copy(out.Varyings[0:4], cur[:])
	copy(out.Varyings[4:8], prev[:])
}

func (p *velocityProgram) Fragment(dc *shader.DrawContext, in *shader.Fragment, out []common.Vec4) bool {
	cw, pw := in.Varyings[3], in.Varyings[7]
	if pw <= 1e-6 || math32.Abs(cw) <= 1e-6 {
		out[0] = common.Vec4{0, 0, 0, 1}
		return true
	}
	intensity := dc.Params[0]
	dx := (in.Varyings[0]/cw - in.Varyings[4]/pw) * 0.5 * intensity
	dy := (in.Varyings[1]/cw - in.Varyings[5]/pw) * 0.5 * intensity
	out[0] = common.Vec4{dx, dy, 0, 1}
	return true
}
