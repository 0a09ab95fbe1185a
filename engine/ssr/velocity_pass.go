package ssr

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/surrogate"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// velocityPass is the implementation of the VelocityPass interface.
type velocityPass struct {
	mu        *sync.Mutex
	device    device.Device
	cache     surrogate.Cache
	intensity float32
	target    device.Target
}

// VelocityPass renders per-pixel screen-space motion since the previous frame.
type VelocityPass interface {
	// Resize reallocates the velocity target.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: an error if the target cannot be allocated
	Resize(w, h int) error

	// Render writes (uv_cur - uv_prev) * intensity into rg for every covered pixel. Objects
	// missing from hist, and every object when hist is nil or invalid, get zero velocity.
	//
	// Parameters:
	//   - sc: the scene
	//   - cur: the current camera snapshot
	//   - hist: the previous frame's history, may be nil
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Resize, or a device error
	Render(sc scene.Scene, cur camera.FrameState, hist *FrameHistory) error

	// SetIntensity changes the velocity multiplier.
	SetIntensity(intensity float32)

	// Output returns the velocity image.
	Output() device.Input

	// Release frees the target.
	Release()
}

var _ VelocityPass = &velocityPass{}

// NewVelocityPass creates a velocity pass on d drawing through cache.
//
// Parameters:
//   - d: the device
//   - cache: the surrogate cache for the scene's registry
//
// Returns:
//   - VelocityPass: the pass
func NewVelocityPass(d device.Device, cache surrogate.Cache) VelocityPass {
	if d == nil {
		panic("ssr: nil device")
	}
	if cache == nil {
		panic("ssr: nil surrogate cache")
	}
	return &velocityPass{
		mu:        &sync.Mutex{},
		device:    d,
		cache:     cache,
		intensity: 1,
	}
}

func (v *velocityPass) Resize(w, h int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.device.ReleaseTarget(v.target)
	v.target = nil
	t, err := v.device.CreateTarget(device.TargetDescriptor{
		Label:  "SSR Velocity",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterNearest,
		Depth:  true,
	})
	if err != nil {
		return fmt.Errorf("velocity pass: %w", err)
	}
	v.target = t
	return nil
}

func (v *velocityPass) Render(sc scene.Scene, cur camera.FrameState, hist *FrameHistory) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.target == nil {
		return fmt.Errorf("velocity pass: %w", ErrNotConfigured)
	}
	b, err := v.cache.Bind(sc, surrogate.KindVelocity)
	if err != nil {
		return fmt.Errorf("velocity pass: %w", err)
	}
	defer v.cache.Unbind(b)

	rc := &device.RenderContext{
		Mode:     surrogate.KindVelocity.Mode(),
		Programs: b,
		Camera:   cur,
		Params:   common.Vec4{v.intensity, 0, 0, 0},
	}
	if hist != nil && hist.Valid() {
		rc.History = *hist
		rc.PrevCamera = hist.prevCamera(cur)
	}
	if err := v.device.RenderScene(v.target, sc, rc); err != nil {
		return fmt.Errorf("velocity pass: %w", err)
	}
	return nil
}

func (v *velocityPass) SetIntensity(intensity float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.intensity = intensity
}

func (v *velocityPass) Output() device.Input {
	v.mu.Lock()
	defer v.mu.Unlock()
	return device.Bind(v.target)
}

func (v *velocityPass) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.device.ReleaseTarget(v.target)
	v.target = nil
}
