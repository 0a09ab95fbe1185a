// Package filter provides the edge-aware Kawase blur the reflection pipeline uses to denoise
// its accumulated reflections.
package filter

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
)

// Edges describes the packed depth image an edge-aware blur reads.
type Edges struct {
	Depth     device.Input
	Near, Far float32
}

// kawase is the implementation of the Kawase interface.
type kawase struct {
	mu        *sync.Mutex
	device    device.Device
	label     string
	size      KernelSize
	scale     float32
	sharpness float32

	programs [2]*kawaseProgram
	ping     device.Target
	pong     device.Target
}

// Kawase is a multi-pass blur that ping-pongs between two intermediate targets.
type Kawase interface {
	// Render blurs src into dst. The last iteration writes dst; src is only read by the first.
	//
	// Parameters:
	//   - dst: the output target
	//   - src: the image to blur
	//   - edges: packed depth for edge-aware weighting, nil for a plain blur
	//
	// Returns:
	//   - error: an error if a target cannot be allocated or a pass fails
	Render(dst device.Target, src device.Input, edges *Edges) error

	// KernelSize returns the active kernel size.
	//
	// Returns:
	//   - KernelSize: the size
	KernelSize() KernelSize

	// SetKernelSize changes the kernel size for subsequent renders.
	//
	// Parameters:
	//   - size: the new size
	SetKernelSize(size KernelSize)

	// Release frees the intermediate targets.
	Release()
}

var _ Kawase = &kawase{}

// NewKawase creates a Kawase blur on d.
//
// Parameters:
//   - d: the device the blur runs on
//   - options: functional options to configure the blur
//
// Returns:
//   - Kawase: the blur
func NewKawase(d device.Device, options ...KawaseBuilderOption) Kawase {
	if d == nil {
		panic("filter: nil device")
	}
	k := &kawase{
		mu:        &sync.Mutex{},
		device:    d,
		label:     "Kawase",
		size:      KernelSmall,
		scale:     1,
		sharpness: 1,
	}
	for _, opt := range options {
		opt(k)
	}
	k.programs = [2]*kawaseProgram{newKawaseProgram(false), newKawaseProgram(true)}
	return k
}

func (k *kawase) Render(dst device.Target, src device.Input, edges *Edges) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if dst == nil || src.Target == nil {
		return fmt.Errorf("%s: %w", k.label, device.ErrInvalidTarget)
	}
	kernels := k.size.Kernels()
	if len(kernels) > 1 {
		if err := k.ensureTargets(dst); err != nil {
			return err
		}
	}

	prog := k.programs[0]
	if edges != nil {
		prog = k.programs[1]
	}

	in := src
	for i, kernel := range kernels {
		out := dst
		if i < len(kernels)-1 {
			out = k.ping
			if i%2 == 1 {
				out = k.pong
			}
		}
		u := &GPUKawaseUniform{
			Params: [4]float32{1 / float32(out.Width()), 1 / float32(out.Height()), kernel, k.scale},
		}
		inputs := []device.Input{in}
		if edges != nil {
			u.Edges = [4]float32{k.sharpness, edges.Near, edges.Far, 0}
			inputs = append(inputs, edges.Depth)
		}
		if err := k.device.DrawFullscreen(out, prog, inputs, u); err != nil {
			return fmt.Errorf("%s: pass %d: %w", k.label, i, err)
		}
		in = device.Bind(out)
	}
	return nil
}

// ensureTargets (re)allocates the intermediate targets to match dst.
func (k *kawase) ensureTargets(dst device.Target) error {
	if k.ping != nil && k.ping.Width() == dst.Width() && k.ping.Height() == dst.Height() && k.ping.Format() == dst.Format() {
		return nil
	}
	k.releaseTargets()
	for i, t := range []*device.Target{&k.ping, &k.pong} {
		tgt, err := k.device.CreateTarget(device.TargetDescriptor{
			Label:  fmt.Sprintf("%s Target %d", k.label, i),
			Width:  dst.Width(),
			Height: dst.Height(),
			Format: dst.Format(),
			Filter: device.FilterLinear,
		})
		if err != nil {
			k.releaseTargets()
			return fmt.Errorf("%s: %w", k.label, err)
		}
		*t = tgt
	}
	return nil
}

func (k *kawase) releaseTargets() {
	k.device.ReleaseTarget(k.ping)
	k.device.ReleaseTarget(k.pong)
	k.ping, k.pong = nil, nil
}

func (k *kawase) KernelSize() KernelSize {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.size
}

func (k *kawase) SetKernelSize(size KernelSize) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.size = size
}

func (k *kawase) Release() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.releaseTargets()
}
