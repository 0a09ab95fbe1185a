package shader

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

//go:embed assets/blit.wgsl
var blitSource string

// blitProgram copies one input to the output, resampling when the sizes differ.
type blitProgram struct {
	source string
}

var _ FullscreenProgram = &blitProgram{}

// NewBlitProgram creates a full-screen program that samples its single input at each output texel.
//
// Returns:
//   - FullscreenProgram: the program
func NewBlitProgram() FullscreenProgram {
	src, err := NewPreProcessor().Process(blitSource, nil)
	if err != nil {
		panic(fmt.Sprintf("blit program: %v", err))
	}
	return &blitProgram{source: src}
}

func (p *blitProgram) Key() string    { return "blit" }
func (p *blitProgram) Source() string { return p.source }
func (p *blitProgram) Inputs() int    { return 1 }

func (p *blitProgram) Kernel(inputs []Sampler, _ Uniform) (PixelFunc, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("blit: %d inputs, want 1", len(inputs))
	}
	src := inputs[0]
	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		return src.Sample(uv)
	}, nil
}
