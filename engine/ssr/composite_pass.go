package ssr

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/chewxy/math32"
)

//go:embed assets/composite.wgsl
var compositeSource string

const sqrt3 = 1.7320508075688772

// compositeProgram writes the final image for one output mode.
// Inputs: scene color, accumulated reflections and, with blur, the blurred reflections.
type compositeProgram struct {
	mode   OutputMode
	blur   bool
	source string
}

var _ shader.FullscreenProgram = &compositeProgram{}

func newCompositeProgram(mode OutputMode, blur bool) *compositeProgram {
	defines := shader.Defines{}.Set("OUTPUT_MODE", int(mode)).Set("USE_BLUR", blur)
	src, err := shader.NewPreProcessor().Process(compositeSource, defines)
	if err != nil {
		panic(fmt.Sprintf("composite program: %v", err))
	}
	return &compositeProgram{mode: mode, blur: blur, source: src}
}

func (p *compositeProgram) Key() string {
	return fmt.Sprintf("ssr:composite:mode=%s:blur=%t", p.mode, p.blur)
}

func (p *compositeProgram) Source() string {
	return p.source
}

func (p *compositeProgram) Inputs() int {
	if p.blur {
		return 3
	}
	return 2
}

// softClamp pulls reflections longer than sqrt(3) back to that length, then darkens dim
// reflections more than bright ones.
func softClamp(r common.Vec3) common.Vec3 {
	l := r.Length()
	if l > sqrt3 {
		r = r.Scale(sqrt3 / l)
		l = sqrt3
	}
	r = r.Scale(1 - 0.35*math32.Pow(sqrt3+0.00001-l, 1.5))
	return common.Vec3{math32.Max(r[0], 0), math32.Max(r[1], 0), math32.Max(r[2], 0)}
}

func (p *compositeProgram) Kernel(inputs []shader.Sampler, _ shader.Uniform) (shader.PixelFunc, error) {
	if len(inputs) != p.Inputs() {
		return nil, fmt.Errorf("composite: %d inputs, want %d", len(inputs), p.Inputs())
	}
	input, reflections := inputs[0], inputs[1]
	var blurred shader.Sampler
	if p.blur {
		blurred = inputs[2]
	}

	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		in := input.Sample(uv)
		raw := reflections.Sample(uv)
		refl := raw.XYZ()
		var blurMix float32
		var blur common.Vec3
		if blurred != nil {
			blur = blurred.Sample(uv).XYZ()
			blurMix = raw[3]
			refl = softClamp(refl.Lerp(blur, blurMix))
		}

		switch p.mode {
		case OutputReflections:
			return refl.Vec4(1)
		case OutputRawReflections:
			return raw.XYZ().Vec4(1)
		case OutputBlurred:
			return blur.Vec4(1)
		case OutputInput:
			return in.XYZ().Vec4(1)
		case OutputBlurMix:
			return common.Vec4{blurMix, blurMix, blurMix, 1}
		default:
			return in.XYZ().Add(refl).Vec4(1)
		}
	}, nil
}

// compositePass is the implementation of the CompositePass interface.
type compositePass struct {
	mu       *sync.Mutex
	device   device.Device
	programs map[string]*compositeProgram
	target   device.Target
}

// CompositePass blends the reflections onto the scene color under one output mode.
type CompositePass interface {
	// Resize reallocates the output target.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: an error if the target cannot be allocated
	Resize(w, h int) error

	// Render writes the final image.
	//
	// Parameters:
	//   - input: the scene color
	//   - reflections: the accumulated reflections
	//   - blurred: the blurred reflections, nil Target when blur is off
	//   - mode: the output mode
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Resize, or a device error
	Render(input, reflections, blurred device.Input, mode OutputMode) error

	// Output returns the final image target.
	Output() device.Target

	// Release frees the target.
	Release()
}

var _ CompositePass = &compositePass{}

// NewCompositePass creates a composite pass on d.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - CompositePass: the pass
func NewCompositePass(d device.Device) CompositePass {
	if d == nil {
		panic("ssr: nil device")
	}
	return &compositePass{
		mu:       &sync.Mutex{},
		device:   d,
		programs: make(map[string]*compositeProgram),
	}
}

func (c *compositePass) Resize(w, h int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.device.ReleaseTarget(c.target)
	c.target = nil
	t, err := c.device.CreateTarget(device.TargetDescriptor{
		Label:  "SSR Composite",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
	})
	if err != nil {
		return fmt.Errorf("composite pass: %w", err)
	}
	c.target = t
	return nil
}

// program returns the cached program for mode and blur, building it on first use.
func (c *compositePass) program(mode OutputMode, blur bool) *compositeProgram {
	key := fmt.Sprintf("%d:%t", mode, blur)
	p, ok := c.programs[key]
	if !ok {
		p = newCompositeProgram(mode, blur)
		c.programs[key] = p
	}
	return p
}

func (c *compositePass) Render(input, reflections, blurred device.Input, mode OutputMode) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.target == nil {
		return fmt.Errorf("composite pass: %w", ErrNotConfigured)
	}
	blur := blurred.Target != nil
	inputs := []device.Input{input, reflections}
	if blur {
		inputs = append(inputs, blurred)
	}
	if err := c.device.DrawFullscreen(c.target, c.program(mode, blur), inputs, nil); err != nil {
		return fmt.Errorf("composite pass %s: %w", mode, err)
	}
	return nil
}

func (c *compositePass) Output() device.Target {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.target
}

func (c *compositePass) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.device.ReleaseTarget(c.target)
	c.target = nil
}
