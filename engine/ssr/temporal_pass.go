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

//go:embed assets/temporal.wgsl
var temporalSource string

// seedThreshold is the history magnitude below which the current sample replaces the history outright.
const seedThreshold = 0.001

// temporalProgram blends the raw reflection sample into the accumulated history.
// Inputs: raw reflections, velocity, history.
type temporalProgram struct {
	source string
}

var _ shader.FullscreenProgram = &temporalProgram{}

func newTemporalProgram() *temporalProgram {
	src, err := shader.NewPreProcessor().Process(temporalSource, nil)
	if err != nil {
		panic(fmt.Sprintf("temporal program: %v", err))
	}
	return &temporalProgram{source: src}
}

func (p *temporalProgram) Key() string    { return "ssr:temporal" }
func (p *temporalProgram) Source() string { return p.source }
func (p *temporalProgram) Inputs() int    { return 3 }

func (p *temporalProgram) Kernel(inputs []shader.Sampler, uniform shader.Uniform) (shader.PixelFunc, error) {
	u, ok := uniform.(*GPUTemporalUniform)
	if !ok {
		return nil, fmt.Errorf("temporal: uniform %T, want *GPUTemporalUniform", uniform)
	}
	if len(inputs) != 3 {
		return nil, fmt.Errorf("temporal: %d inputs, want 3", len(inputs))
	}
	raw, velocity, history := inputs[0], inputs[1], inputs[2]
	blend := u.Params[1]
	resolve := u.Params[2] != 0
	w := 1 / (math32.Max(u.Params[0], 1) * math32.E)

	return func(uv common.Vec2, _ [2]int) common.Vec4 {
		current := raw.Sample(uv)
		if !resolve {
			return current
		}
		vel := velocity.Sample(uv)
		here := history.Sample(uv)
		moved := history.Sample(common.Vec2{uv[0] - vel[0], uv[1] - vel[1]})
		// only color is reprojected; the blur weight stays with the pixel
		last := here.XYZ().Lerp(moved.XYZ(), blend).Vec4(here[3])
		if last.XYZ().Length() < seedThreshold {
			return current
		}
		return common.Vec4{
			common.Mix(last[0], current[0], w),
			common.Mix(last[1], current[1], w),
			common.Mix(last[2], current[2], w),
			common.Mix(last[3], current[3]+0.5, w),
		}
	}, nil
}

// temporalPass is the implementation of the TemporalPass interface.
type temporalPass struct {
	mu      *sync.Mutex
	device  device.Device
	program *temporalProgram
	output  device.Target
	history device.Target
}

// TemporalPass accumulates raw reflection samples into an exponential moving average.
type TemporalPass interface {
	// Resize reallocates the output and history targets, discarding the accumulated history.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: an error if a target cannot be allocated
	Resize(w, h int) error

	// Render blends raw into the history and writes the result to Output. The history itself
	// is left untouched until Commit.
	//
	// Parameters:
	//   - raw: the frame's raw reflections
	//   - velocity: the frame's velocity image
	//   - samples: the sample counter, at least 1
	//   - o: the options supplying reprojectionBlend and temporalResolve
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Resize, or a device error
	Render(raw, velocity device.Input, samples int, o Options) error

	// Commit copies Output into the history for the next frame.
	//
	// Returns:
	//   - error: a device error
	Commit() error

	// Reset discards the accumulated history.
	//
	// Returns:
	//   - error: a device error
	Reset() error

	// Output returns the accumulated reflections.
	Output() device.Input

	// Release frees the targets.
	Release()
}

var _ TemporalPass = &temporalPass{}

// NewTemporalPass creates a temporal pass on d.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - TemporalPass: the pass
func NewTemporalPass(d device.Device) TemporalPass {
	if d == nil {
		panic("ssr: nil device")
	}
	return &temporalPass{
		mu:      &sync.Mutex{},
		device:  d,
		program: newTemporalProgram(),
	}
}

func (t *temporalPass) Resize(w, h int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.allocate(w, h)
}

func (t *temporalPass) allocate(w, h int) error {
	t.release()
	for _, slot := range []struct {
		dst   *device.Target
		label string
	}{
		{&t.output, "SSR Temporal"},
		{&t.history, "SSR History"},
	} {
		tgt, err := t.device.CreateTarget(device.TargetDescriptor{
			Label:  slot.label,
			Width:  w,
			Height: h,
			Format: device.FormatRGBA16F,
			Filter: device.FilterLinear,
		})
		if err != nil {
			t.release()
			return fmt.Errorf("temporal pass: %w", err)
		}
		*slot.dst = tgt
	}
	return nil
}

func (t *temporalPass) Render(raw, velocity device.Input, samples int, o Options) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.output == nil {
		return fmt.Errorf("temporal pass: %w", ErrNotConfigured)
	}
	u := &GPUTemporalUniform{
		Params: [4]float32{float32(max(samples, 1)), o.ReprojectionBlend, boolf(o.TemporalResolve), 0},
	}
	inputs := []device.Input{raw, velocity, device.Bind(t.history)}
	if err := t.device.DrawFullscreen(t.output, t.program, inputs, u); err != nil {
		return fmt.Errorf("temporal pass: %w", err)
	}
	return nil
}

func (t *temporalPass) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.output == nil {
		return fmt.Errorf("temporal pass: %w", ErrNotConfigured)
	}
	if err := t.device.Copy(t.history, t.output); err != nil {
		return fmt.Errorf("temporal pass: commit history: %w", err)
	}
	return nil
}

func (t *temporalPass) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.history == nil {
		return nil
	}
	return t.allocate(t.history.Width(), t.history.Height())
}

func (t *temporalPass) Output() device.Input {
	t.mu.Lock()
	defer t.mu.Unlock()
	return device.Bind(t.output)
}

func (t *temporalPass) release() {
	t.device.ReleaseTarget(t.output)
	t.device.ReleaseTarget(t.history)
	t.output, t.history = nil, nil
}

func (t *temporalPass) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.release()
}
