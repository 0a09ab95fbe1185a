package ssr

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/filter"
	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/surrogate"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// Buffers exposes the intermediate images of the last frame for debugging and export.
type Buffers struct {
	Normal      device.Input
	Depth       device.Input
	Velocity    device.Input
	Reflections device.Input
	Temporal    device.Input

	// Blurred is the zero Input when blur is off.
	Blurred device.Input
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	mu       *sync.Mutex
	device   device.Device
	scene    scene.Scene
	camera   camera.Camera
	options  Options
	profiler *profiler.Profiler

	cache     surrogate.Cache
	geometry  GeometryPass
	velocity  VelocityPass
	rayMarch  RayMarchPass
	temporal  TemporalPass
	blur      filter.Kawase
	composite CompositePass
	blurred   device.Target

	configured bool
	samples    int
	history    FrameHistory
}

// Pipeline is the frame orchestrator: it runs velocity, geometry, ray march, temporal, blur and
// composite passes in order for one input image per frame and threads the FrameHistory between frames.
type Pipeline interface {
	// Resize reallocates every target at w x h. The temporal history and sample counter are
	// reset; every other option keeps its value.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: ErrInvalidOption for non-positive sizes, or a device error
	Resize(w, h int) error

	// Render produces one frame of reflections composited onto input. A failed frame leaves
	// the sample counter and the history unchanged.
	//
	// Parameters:
	//   - ctx: cancels the frame between passes
	//   - input: the scene color, sized like the pipeline
	//
	// Returns:
	//   - device.Target: the composite, owned by the pipeline and overwritten by the next frame
	//   - error: ErrNotConfigured, ErrSizeMismatch, the context error, or a device error
	Render(ctx context.Context, input device.Target) (device.Target, error)

	// Options returns a copy of the current options.
	Options() Options

	// SetOptions validates and applies o. A changed size resizes the pipeline.
	//
	// Parameters:
	//   - o: the new options
	//
	// Returns:
	//   - error: ErrInvalidOption or a resize error
	SetOptions(o Options) error

	// Get returns one option by key.
	//
	// Parameters:
	//   - key: an option key
	//
	// Returns:
	//   - any: the value
	//   - error: ErrUnknownOption
	Get(key string) (any, error)

	// Set changes one option by key.
	//
	// Parameters:
	//   - key: an option key
	//   - value: the new value
	//
	// Returns:
	//   - error: ErrUnknownOption, ErrInvalidOption or a resize error
	Set(key string, value any) error

	// Samples returns the sample counter of the last rendered frame, 0 before the first.
	Samples() int

	// History returns the history the next frame will read.
	History() FrameHistory

	// Buffers returns the intermediate images.
	Buffers() Buffers

	// Release frees every target the pipeline owns. The device is left open.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a reflection pipeline. WithDevice, WithScene and WithCamera are required.
// When the options carry a non-zero size the targets are allocated immediately.
//
// Parameters:
//   - options: functional options to configure the pipeline
//
// Returns:
//   - Pipeline: the pipeline
//   - error: ErrInvalidOption for invalid options, or a device error
func NewPipeline(options ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		mu:      &sync.Mutex{},
		options: DefaultOptions(),
	}
	for _, opt := range options {
		opt(p)
	}
	if p.device == nil {
		panic("ssr: nil device")
	}
	if p.scene == nil {
		panic("ssr: nil scene")
	}
	if p.camera == nil {
		panic("ssr: nil camera")
	}
	if err := p.options.Validate(); err != nil {
		return nil, err
	}

	o := p.options
	p.cache = surrogate.NewCache(p.scene.Materials(),
		surrogate.WithNormalMap(o.UseNormalMap),
		surrogate.WithRoughnessMap(o.UseRoughnessMap),
		surrogate.WithMRT(o.UseMRT),
	)
	p.geometry = NewGeometryPass(p.device, p.cache)
	p.velocity = NewVelocityPass(p.device, p.cache)
	p.velocity.SetIntensity(o.VelocityIntensity)
	p.rayMarch = NewRayMarchPass(p.device)
	p.temporal = NewTemporalPass(p.device)
	p.composite = NewCompositePass(p.device)
	if p.blur == nil {
		p.blur = filter.NewKawase(p.device, filter.WithLabel("SSR Blur"), filter.WithKernelSize(o.BlurKernelSize))
	} else {
		p.blur.SetKernelSize(o.BlurKernelSize)
	}

	if o.Width > 0 && o.Height > 0 {
		if err := p.resize(o.Width, o.Height); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (p *pipeline) Resize(w, h int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resize(w, h)
}

func (p *pipeline) resize(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("resize %dx%d: %w", w, h, ErrInvalidOption)
	}
	p.configured = false
	p.samples = 0
	p.history = FrameHistory{}
	p.options.Width, p.options.Height = w, h

	for _, r := range []interface{ Resize(w, h int) error }{p.velocity, p.geometry, p.rayMarch, p.temporal, p.composite} {
		if err := r.Resize(w, h); err != nil {
			p.release()
			return fmt.Errorf("ssr resize: %w", err)
		}
	}
	p.device.ReleaseTarget(p.blurred)
	blurred, err := p.device.CreateTarget(device.TargetDescriptor{
		Label:  "SSR Blurred",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
	})
	if err != nil {
		p.blurred = nil
		p.release()
		return fmt.Errorf("ssr resize: %w", err)
	}
	p.blurred = blurred
	p.configured = true
	log.Printf("[SSR] resized to %dx%d", w, h)
	return nil
}

func (p *pipeline) Render(ctx context.Context, input device.Target) (device.Target, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !p.configured {
		return nil, fmt.Errorf("ssr render: %w", ErrNotConfigured)
	}
	if input == nil {
		return nil, fmt.Errorf("ssr render: nil input: %w", device.ErrInvalidTarget)
	}
	o := p.options
	if input.Width() != o.Width || input.Height() != o.Height {
		return nil, fmt.Errorf("ssr render: input %dx%d, pipeline %dx%d: %w",
			input.Width(), input.Height(), o.Width, o.Height, ErrSizeMismatch)
	}

	samples := p.samples + 1
	if o.StaticNoise {
		samples = 1
	}
	cam := p.camera.Snapshot(common.Viewport{Width: o.Width, Height: o.Height})
	hist := p.history
	color := device.Bind(input)

	var blurred device.Input
	if o.UseBlur {
		blurred = device.Bind(p.blurred)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"velocity", func() error { return p.velocity.Render(p.scene, cam, &hist) }},
		{"geometry", func() error { return p.geometry.Render(p.scene, cam) }},
		{"ray march", func() error {
			return p.rayMarch.Render(color, p.geometry.Normal(), p.geometry.Depth(), newRayMarchUniform(o, cam, samples))
		}},
		{"temporal", func() error { return p.temporal.Render(p.rayMarch.Output(), p.velocity.Output(), samples, o) }},
		{"blur", func() error {
			if !o.UseBlur {
				return nil
			}
			edges := &filter.Edges{Depth: p.geometry.Depth(), Near: cam.Near, Far: cam.Far}
			return p.blur.Render(p.blurred, p.temporal.Output(), edges)
		}},
		{"composite", func() error { return p.composite.Render(color, p.temporal.Output(), blurred, o.OutputMode) }},
		{"history", p.temporal.Commit},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ssr render: before %s: %w", s.name, err)
		}
		if err := p.measure(s.name, s.run); err != nil {
			return nil, fmt.Errorf("ssr render: %s: %w", s.name, err)
		}
	}

	p.samples = samples
	p.history = hist.Next(p.scene, cam, samples)
	return p.composite.Output(), nil
}

func (p *pipeline) measure(name string, fn func() error) error {
	if p.profiler == nil {
		return fn()
	}
	return p.profiler.Measure(name, fn)
}

func (p *pipeline) Options() Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.options
}

func (p *pipeline) SetOptions(o Options) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.setOptions(o)
}

func (p *pipeline) setOptions(o Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	prev := p.options
	if err := p.geometry.SetFlags(o.UseMRT, o.UseNormalMap, o.UseRoughnessMap); err != nil {
		// the geometry targets are gone until the next successful resize
		p.configured = false
		return fmt.Errorf("ssr options: %w", err)
	}
	if (o.Width != prev.Width || o.Height != prev.Height) && o.Width > 0 && o.Height > 0 {
		if err := p.resize(o.Width, o.Height); err != nil {
			return err
		}
	}

	// resize records the allocated size, everything else comes from o
	w, h := p.options.Width, p.options.Height
	p.options = o
	p.options.Width, p.options.Height = w, h
	p.velocity.SetIntensity(o.VelocityIntensity)
	p.blur.SetKernelSize(o.BlurKernelSize)
	return nil
}

func (p *pipeline) Get(key string) (any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.options.Get(key)
}

func (p *pipeline) Set(key string, value any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	o := p.options
	if err := o.Set(key, value); err != nil {
		return err
	}
	return p.setOptions(o)
}

func (p *pipeline) Samples() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.samples
}

func (p *pipeline) History() FrameHistory {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.history
}

func (p *pipeline) Buffers() Buffers {
	p.mu.Lock()
	defer p.mu.Unlock()

	b := Buffers{
		Normal:      p.geometry.Normal(),
		Depth:       p.geometry.Depth(),
		Velocity:    p.velocity.Output(),
		Reflections: p.rayMarch.Output(),
		Temporal:    p.temporal.Output(),
	}
	if p.options.UseBlur {
		b.Blurred = device.Bind(p.blurred)
	}
	return b
}

func (p *pipeline) release() {
	p.velocity.Release()
	p.geometry.Release()
	p.rayMarch.Release()
	p.temporal.Release()
	p.composite.Release()
	p.blur.Release()
	p.device.ReleaseTarget(p.blurred)
	p.blurred = nil
	p.configured = false
}

func (p *pipeline) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.release()
}
