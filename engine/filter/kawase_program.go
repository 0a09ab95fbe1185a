package filter

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/chewxy/math32"
)

//go:embed assets/kawase.wgsl
var kawaseSource string

// kawaseProgram runs one Kawase iteration: the average of four bilinear taps placed diagonally
// around the texel. With edges enabled, the second input is a packed depth image and taps are
// weighted down by their view-space depth distance from the center.
type kawaseProgram struct {
	edges  bool
	source string
}

var _ shader.FullscreenProgram = &kawaseProgram{}

func newKawaseProgram(edges bool) *kawaseProgram {
	src, err := shader.NewPreProcessor().Process(kawaseSource, shader.Defines{}.Set("USE_EDGES", edges))
	if err != nil {
		panic(fmt.Sprintf("kawase program: %v", err))
	}
	return &kawaseProgram{edges: edges, source: src}
}

func (p *kawaseProgram) Key() string {
	return fmt.Sprintf("kawase:edges=%t", p.edges)
}

func (p *kawaseProgram) Source() string {
	return p.source
}

func (p *kawaseProgram) Inputs() int {
	if p.edges {
		return 2
	}
	return 1
}

func (p *kawaseProgram) Kernel(inputs []shader.Sampler, uniform shader.Uniform) (shader.PixelFunc, error) {
	u, ok := uniform.(*GPUKawaseUniform)
	if !ok {
		return nil, fmt.Errorf("kawase: uniform %T, want *GPUKawaseUniform", uniform)
	}
	src := inputs[0]
	texel := common.Vec2{u.Params[0], u.Params[1]}
	d := common.Vec2{
		(texel[0]*u.Params[2] + texel[0]*0.5) * u.Params[3],
		(texel[1]*u.Params[2] + texel[1]*0.5) * u.Params[3],
	}
	offsets := [4]common.Vec2{{-d[0], d[1]}, {d[0], d[1]}, {d[0], -d[1]}, {-d[0], -d[1]}}

	var viewZ func(uv common.Vec2) float32
	if p.edges {
		depth := inputs[1]
		near, far := u.Edges[1], u.Edges[2]
		viewZ = func(uv common.Vec2) float32 {
			return shader.PerspectiveDepthToViewZ(shader.UnpackDepth(depth.Sample(uv)), near, far)
		}
	}
	sharpness := u.Edges[0]

	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		var center float32
		if viewZ != nil {
			center = viewZ(uv)
		}
		var sum common.Vec4
		var total float32
		for _, o := range offsets {
			tap := uv.Add(o)
			w := float32(1)
			if viewZ != nil {
				w = 1 / (1 + sharpness*math32.Abs(viewZ(tap)-center))
			}
			sum = sum.Add(src.Sample(tap).Scale(w))
			total += w
		}
		return sum.Scale(1 / total)
	}, nil
}
