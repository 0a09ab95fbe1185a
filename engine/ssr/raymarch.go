package ssr

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/chewxy/math32"
)

//go:embed assets/raymarch.wgsl
var rayMarchSource string

const (
	floatEpsilon = 0.00001

	// screenFade is the border, in ndc units, over which hits fade out toward the screen edge.
	screenFade = 0.1

	// reflected rays must leave the surface at least this far away from the viewer
	facingTolerance = 0.005

	// minDepthTexel is the squared length below which a packed depth texel counts as "nothing drawn".
	minDepthTexel = 1e-5
)

// noReflection is written for pixels that receive no reflection.
var noReflection = common.Vec4{0, 0, 0, 1}

// newRayMarchUniform fills the ray march parameter block for one frame.
func newRayMarchUniform(o Options, cam camera.FrameState, samples int) *GPURayMarchUniform {
	return &GPURayMarchUniform{
		Projection:        cam.Projection,
		InverseProjection: cam.InverseProjection,
		CameraWorld:       cam.World,
		Camera:            [4]float32{cam.Near, cam.Far, float32(o.Width), float32(o.Height)},
		March:             [4]float32{o.RayStep, float32(o.MaxSteps), float32(o.NumBinarySearchSteps), o.Thickness},
		Limits:            [4]float32{o.MaxDepthDifference, o.MaxDepth, o.RoughnessFadeOut, boolf(o.StretchMissedRays)},
		Jitter:            [4]float32{o.Jitter, o.JitterSpread, o.JitterRough, float32(samples)},
		Shading:           [4]float32{o.Intensity, o.IOR, o.RayFadeOut, o.DepthBlur},
		Flags:             [4]float32{o.MaxBlur, boolf(o.UseBlur), boolf(o.EnableJittering), 0},
	}
}

// rayHit is a ray march result: the screen coordinate of the hit and the device depth stored there.
type rayHit struct {
	uv    common.Vec2
	depth float32
}

// marcher traces one reflection ray per pixel through the depth buffer.
type marcher struct {
	u *GPURayMarchUniform

	color  shader.Sampler
	normal shader.Sampler
	depth  shader.Sampler
}

func (m *marcher) near() float32 { return m.u.Camera[0] }
func (m *marcher) far() float32  { return m.u.Camera[1] }

func (m *marcher) viewZ(depth float32) float32 {
	return shader.PerspectiveDepthToViewZ(depth, m.near(), m.far())
}

// viewPosition reconstructs the view-space position of a pixel from its device depth.
func (m *marcher) viewPosition(uv common.Vec2, depth, viewZ float32) common.Vec3 {
	p := m.u.Projection
	clipW := p[11]*viewZ + p[15]
	clip := common.Vec4{(uv[0]*2 - 1) * clipW, (uv[1]*2 - 1) * clipW, depth * clipW, clipW}
	return common.TransformPoint(m.u.InverseProjection, clip).XYZ()
}

// worldPosition reconstructs the world-space position of a pixel.
func (m *marcher) worldPosition(uv common.Vec2, depth float32) common.Vec3 {
	v := common.TransformPoint(m.u.InverseProjection, common.Vec4{uv[0]*2 - 1, uv[1]*2 - 1, depth, 1})
	v = v.Scale(1 / v[3])
	return common.TransformPoint(m.u.CameraWorld, v).XYZ()
}

// project maps a view-space point to screen uv. The bool is false when the point falls
// outside the screen or behind the camera.
func (m *marcher) project(p common.Vec3) (common.Vec2, bool) {
	clip := common.TransformPoint(m.u.Projection, p.Vec4(1))
	if clip[3] <= 1e-6 {
		return common.Vec2{-1, -1}, false
	}
	uv := common.Vec2{clip[0]/clip[3]*0.5 + 0.5, clip[1]/clip[3]*0.5 + 0.5}
	inside := uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1
	return uv, inside
}

func validDepth(texel common.Vec4) bool {
	return texel[0]*texel[0]+texel[1]*texel[1]+texel[2]*texel[2]+texel[3]*texel[3] >= minDepthTexel
}

// march steps from pos along dir until the ray passes from in front of the depth buffer to behind it.
func (m *marcher) march(dir, pos common.Vec3) (rayHit, bool) {
	step := dir.Normalize().Scale(m.u.March[0])
	maxSteps := int(m.u.March[1])
	thickness := m.u.March[3]
	mult := float32(1)

	var last rayHit
	seen, front := false, false
	for i := 0; i < maxSteps; i++ {
		pos = pos.Add(step.Scale(mult))
		uv, ok := m.project(pos)
		if !ok {
			pos = pos.Sub(step.Scale(mult))
			mult *= 0.5
			continue
		}
		texel := m.depth.Sample(uv)
		depth := shader.UnpackDepth(texel)
		last, seen = rayHit{uv: uv, depth: depth}, true

		diff := m.viewZ(depth) - pos[2]
		if diff < 0 {
			front = true
			continue
		}
		// a hit needs the ray to cross from in front of the surface, not start behind it
		if !front {
			continue
		}
		if diff > thickness {
			return rayHit{}, false
		}
		if int(m.u.March[2]) == 0 {
			if !validDepth(texel) {
				return rayHit{}, false
			}
			return last, true
		}
		return m.refine(step, pos)
	}

	if m.u.Limits[3] == 0 || !seen {
		return rayHit{}, false
	}
	return last, true
}

// refine bisects the last march step around the crossing point.
func (m *marcher) refine(step, pos common.Vec3) (rayHit, bool) {
	var (
		texel   common.Vec4
		depth   float32
		diff    float32
		lastOut bool
	)
	for i := 0; i < int(m.u.March[2]); i++ {
		uv, ok := m.project(pos)
		if lastOut && !ok {
			return rayHit{}, false
		}
		texel = m.depth.Sample(uv)
		depth = shader.UnpackDepth(texel)
		diff = m.viewZ(depth) - pos[2]
		step = step.Scale(0.5)
		if diff > 0 {
			pos = pos.Sub(step)
		} else {
			pos = pos.Add(step)
			lastOut = !ok
		}
	}

	if !validDepth(texel) {
		return rayHit{}, false
	}
	if math32.Abs(diff) > m.u.Limits[0]*0.01 {
		return rayHit{}, false
	}
	uv, ok := m.project(pos)
	if !ok {
		if m.u.Limits[3] == 0 {
			return rayHit{}, false
		}
		uv = common.Vec2{common.Saturate(uv[0]), common.Saturate(uv[1])}
	}
	return rayHit{uv: uv, depth: depth}, true
}

// jitter returns the roughness-scaled random offset added to the reflected ray.
func (m *marcher) jitter(worldPos common.Vec3, specular, roughness float32) common.Vec3 {
	amount, spread, rough, samples := m.u.Jitter[0], m.u.Jitter[1], m.u.Jitter[2], m.u.Jitter[3]
	h := hash3(worldPos.Scale(5 * samples))
	random := common.Vec3{h[0] - 0.5, h[1] - 0.5, h[2] - 0.5}
	s := ((2 - specular) + roughness*rough*0.05) * spread
	mix := math32.Min(1, amount+rough*roughness)
	return random.Scale(s * mix)
}

// marchReflection computes the reflection for one pixel: rgb is the reflected color and a the blur weight.
func (m *marcher) marchReflection(uv common.Vec2) common.Vec4 {
	depthTexel := m.depth.Sample(uv)
	if !validDepth(depthTexel) {
		return noReflection
	}
	depth := shader.UnpackDepth(depthTexel)
	if depth > m.u.Limits[1] {
		return noReflection
	}

	normalTexel := m.normal.Sample(uv)
	roughness := normalTexel[3]
	roughnessFadeOut := m.u.Limits[2]
	if roughness > 1-floatEpsilon && roughnessFadeOut > 1-floatEpsilon {
		return noReflection
	}
	specular := (1 - roughness) * (1 - roughness)

	n := shader.UnpackNormal(normalTexel.XYZ()).Normalize()
	viewPos := m.viewPosition(uv, depth, m.viewZ(depth))
	worldPos := m.worldPosition(uv, depth)
	eye := viewPos.Normalize()
	reflected := eye.Reflect(n).Normalize()
	if n[2]-reflected[2] < facingTolerance {
		return noReflection
	}

	dir := reflected.Scale(-viewPos[2])
	if m.u.Flags[2] != 0 {
		dir = dir.Add(m.jitter(worldPos, specular, roughness))
	}
	hit, ok := m.march(dir, viewPos)
	if !ok {
		return noReflection
	}

	ndc := hit.uv.Scale(2).Sub(common.Vec2{1, 1})
	maxDim := math32.Min(1, math32.Max(math32.Abs(ndc[0]), math32.Abs(ndc[1])))
	edge := math32.Max(0, 1-math32.Max(0, maxDim-screenFade)/(1-screenFade))

	roughnessFactor := common.Mix(specular, 1, math32.Max(0, 1-roughnessFadeOut))
	final := m.color.Sample(hit.uv).XYZ().Scale(edge * roughnessFactor)

	dist := m.worldPosition(hit.uv, hit.depth).Sub(worldPos).Length() + 1
	if fade := m.u.Shading[2]; fade != 0 {
		final = final.Scale(math32.Min(1, 1/(dist*dist*fade*0.01)))
	}

	var blurMix float32
	if m.u.Flags[1] != 0 {
		blurMix = math32.Min(1, math32.Sqrt(dist)*m.u.Shading[3])
	}
	blurMix = math32.Min(blurMix, m.u.Flags[0])

	fresnel := math32.Min(1, 5*fresnelDielectric(eye.Dot(n), m.u.Shading[1]))
	final = final.Scale(fresnel * m.u.Shading[0])
	return common.Vec4{
		math32.Min(1, final[0]),
		math32.Min(1, final[1]),
		math32.Min(1, final[2]),
		blurMix,
	}
}

// fresnelDielectric is the exact Fresnel reflectance of a dielectric with relative index eta.
func fresnelDielectric(cosi, eta float32) float32 {
	c := math32.Abs(cosi)
	g := eta*eta - 1 + c*c
	if g <= 0 {
		return 1
	}
	g = math32.Sqrt(g)
	a := (g - c) / (g + c)
	b := (c*(g+c) - 1) / (c*(g-c) + 1)
	return 0.5 * a * a * (1 + b*b)
}

// hash3 is a cheap 3D to 3D hash with outputs in [0, 1).
func hash3(a common.Vec3) common.Vec3 {
	a = common.Vec3{common.Fract(a[0] * 0.8), common.Fract(a[1] * 0.8), common.Fract(a[2] * 0.8)}
	d := a.Dot(common.Vec3{a[1] + 19.19, a[0] + 19.19, a[2] + 19.19})
	a = common.Vec3{a[0] + d, a[1] + d, a[2] + d}
	return common.Vec3{
		common.Fract((a[0] + a[1]) * a[2]),
		common.Fract((a[0] + a[0]) * a[1]),
		common.Fract((a[1] + a[0]) * a[0]),
	}
}

// rayMarchProgram reads scene color, packed normal/roughness and packed depth and writes
// the raw per-frame reflection with the blur weight in alpha.
type rayMarchProgram struct {
	source string
}

var _ shader.FullscreenProgram = &rayMarchProgram{}

func newRayMarchProgram() *rayMarchProgram {
	src, err := shader.NewPreProcessor().Process(rayMarchSource, nil)
	if err != nil {
		panic(fmt.Sprintf("ray march program: %v", err))
	}
	return &rayMarchProgram{source: src}
}

func (p *rayMarchProgram) Key() string    { return "ssr:raymarch" }
func (p *rayMarchProgram) Source() string { return p.source }
func (p *rayMarchProgram) Inputs() int    { return 3 }

func (p *rayMarchProgram) Kernel(inputs []shader.Sampler, uniform shader.Uniform) (shader.PixelFunc, error) {
	u, ok := uniform.(*GPURayMarchUniform)
	if !ok {
		return nil, fmt.Errorf("ray march: uniform %T, want *GPURayMarchUniform", uniform)
	}
	if len(inputs) != 3 {
		return nil, fmt.Errorf("ray march: %d inputs, want 3", len(inputs))
	}
	m := &marcher{u: u, color: inputs[0], normal: inputs[1], depth: inputs[2]}
	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		return m.marchReflection(uv)
	}, nil
}
