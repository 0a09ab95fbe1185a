package ssr

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
)

// rayMarchPass is the implementation of the RayMarchPass interface.
type rayMarchPass struct {
	mu      *sync.Mutex
	device  device.Device
	program *rayMarchProgram
	target  device.Target
}

// RayMarchPass traces one reflection ray per pixel and writes the raw reflection color with
// the blur weight in alpha. Pixels without a reflection get opaque black.
type RayMarchPass interface {
	// Resize reallocates the output target.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: an error if the target cannot be allocated
	Resize(w, h int) error

	// Render runs the march.
	//
	// Parameters:
	//   - color: the scene color to reflect
	//   - normal: packed view-space normal (rgb) and roughness (a)
	//   - depth: packed device depth
	//   - u: the frame's parameters
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Resize, or a device error
	Render(color, normal, depth device.Input, u *GPURayMarchUniform) error

	// Output returns the reflection image.
	Output() device.Input

	// Release frees the target.
	Release()
}

var _ RayMarchPass = &rayMarchPass{}

// NewRayMarchPass creates a ray march pass on d.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - RayMarchPass: the pass
func NewRayMarchPass(d device.Device) RayMarchPass {
	if d == nil {
		panic("ssr: nil device")
	}
	return &rayMarchPass{
		mu:      &sync.Mutex{},
		device:  d,
		program: newRayMarchProgram(),
	}
}

func (r *rayMarchPass) Resize(w, h int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.device.ReleaseTarget(r.target)
	r.target = nil
	t, err := r.device.CreateTarget(device.TargetDescriptor{
		Label:  "SSR Reflections",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
	})
	if err != nil {
		return fmt.Errorf("ray march pass: %w", err)
	}
	r.target = t
	return nil
}

func (r *rayMarchPass) Render(color, normal, depth device.Input, u *GPURayMarchUniform) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.target == nil {
		return fmt.Errorf("ray march pass: %w", ErrNotConfigured)
	}
	if err := r.device.DrawFullscreen(r.target, r.program, []device.Input{color, normal, depth}, u); err != nil {
		return fmt.Errorf("ray march pass: %w", err)
	}
	return nil
}

func (r *rayMarchPass) Output() device.Input {
	r.mu.Lock()
	defer r.mu.Unlock()
	return device.Bind(r.target)
}

func (r *rayMarchPass) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.device.ReleaseTarget(r.target)
	r.target = nil
}
