package ssr

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/surrogate"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// geometryPass is the implementation of the GeometryPass interface.
type geometryPass struct {
	mu     *sync.Mutex
	device device.Device
	cache  surrogate.Cache

	width, height int
	requestMRT    bool
	mrt           bool

	// target holds packed normal/roughness in attachment 0, plus packed depth in attachment 1 in MRT mode.
	target device.Target

	// depth is the packed-depth prepass target, nil in MRT mode.
	depth device.Target
}

// GeometryPass renders the scene's packed normals, roughness and depth through geometry surrogates.
type GeometryPass interface {
	// Resize reallocates the targets.
	//
	// Parameters:
	//   - w, h: the new size in texels
	//
	// Returns:
	//   - error: an error if a target cannot be allocated
	Resize(w, h int) error

	// SetFlags updates the surrogate feature switches. Switching between MRT and the depth
	// prepass reallocates the targets.
	//
	// Parameters:
	//   - useMRT: request a single pass writing depth to a second attachment
	//   - useNormalMap: perturb normals with material normal maps
	//   - useRoughnessMap: scale roughness by material roughness maps
	//
	// Returns:
	//   - error: an error if a target cannot be allocated
	SetFlags(useMRT, useNormalMap, useRoughnessMap bool) error

	// Render draws sc from cam.
	//
	// Parameters:
	//   - sc: the scene
	//   - cam: the frame's camera snapshot
	//
	// Returns:
	//   - error: ErrNotConfigured before the first Resize, or a device error
	Render(sc scene.Scene, cam camera.FrameState) error

	// MRT reports whether the pass runs in MRT mode after any downgrade.
	MRT() bool

	// Normal returns the packed normal/roughness image.
	Normal() device.Input

	// Depth returns the packed depth image.
	Depth() device.Input

	// Release frees the targets.
	Release()
}

var _ GeometryPass = &geometryPass{}

// NewGeometryPass creates a geometry pass on d drawing through cache.
//
// Parameters:
//   - d: the device
//   - cache: the surrogate cache for the scene's registry
//
// Returns:
//   - GeometryPass: the pass
func NewGeometryPass(d device.Device, cache surrogate.Cache) GeometryPass {
	if d == nil {
		panic("ssr: nil device")
	}
	if cache == nil {
		panic("ssr: nil surrogate cache")
	}
	g := &geometryPass{
		mu:         &sync.Mutex{},
		device:     d,
		cache:      cache,
		requestMRT: cache.Flags().UseMRT,
	}
	g.mrt = g.effectiveMRT()
	g.cache.SetFlags(g.flags(cache.Flags()))
	return g
}

// effectiveMRT resolves the requested mode against the device's attachment limit.
func (g *geometryPass) effectiveMRT() bool {
	if !g.requestMRT {
		return false
	}
	if n := g.device.MaxColorAttachments(); n < 2 {
		log.Printf("[SSR] %s supports %d color attachment(s), geometry pass falls back to a depth prepass", g.device.Name(), n)
		return false
	}
	return true
}

func (g *geometryPass) flags(f surrogate.Flags) surrogate.Flags {
	f.UseMRT = g.mrt
	return f
}

func (g *geometryPass) Resize(w, h int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allocate(w, h)
}

func (g *geometryPass) allocate(w, h int) error {
	g.release()
	g.width, g.height = w, h

	attachments := 1
	if g.mrt {
		attachments = 2
	}
	t, err := g.device.CreateTarget(device.TargetDescriptor{
		Label:       "SSR Geometry",
		Width:       w,
		Height:      h,
		Format:      device.FormatRGBA8,
		Filter:      device.FilterNearest,
		Attachments: attachments,
		Depth:       true,
	})
	if err != nil {
		return fmt.Errorf("geometry pass: %w", err)
	}
	g.target = t
	if g.mrt {
		return nil
	}

	d, err := g.device.CreateTarget(device.TargetDescriptor{
		Label:  "SSR Depth",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA8,
		Filter: device.FilterNearest,
		Depth:  true,
	})
	if err != nil {
		g.release()
		return fmt.Errorf("geometry pass: %w", err)
	}
	g.depth = d
	return nil
}

func (g *geometryPass) SetFlags(useMRT, useNormalMap, useRoughnessMap bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if useMRT != g.requestMRT {
		prevRequest, prevMRT := g.requestMRT, g.mrt
		g.requestMRT = useMRT
		mrt := g.effectiveMRT()
		if mrt != g.mrt {
			g.mrt = mrt
			if g.target != nil {
				if err := g.allocate(g.width, g.height); err != nil {
					g.requestMRT, g.mrt = prevRequest, prevMRT
					return err
				}
			}
		}
	}
	g.cache.SetFlags(surrogate.Flags{
		UseNormalMap:    useNormalMap,
		UseRoughnessMap: useRoughnessMap,
		UseMRT:          g.mrt,
	})
	return nil
}

func (g *geometryPass) Render(sc scene.Scene, cam camera.FrameState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.target == nil {
		return fmt.Errorf("geometry pass: %w", ErrNotConfigured)
	}
	if err := g.draw(g.target, sc, cam, surrogate.KindGeometry); err != nil {
		return err
	}
	if g.mrt {
		return nil
	}
	return g.draw(g.depth, sc, cam, surrogate.KindDepth)
}

func (g *geometryPass) draw(dst device.Target, sc scene.Scene, cam camera.FrameState, kind surrogate.Kind) error {
	b, err := g.cache.Bind(sc, kind)
	if err != nil {
		return fmt.Errorf("geometry pass: %w", err)
	}
	defer g.cache.Unbind(b)

	rc := &device.RenderContext{
		Mode:     kind.Mode(),
		Programs: b,
		Camera:   cam,
		Clear:    common.Vec4{},
	}
	if err := g.device.RenderScene(dst, sc, rc); err != nil {
		return fmt.Errorf("geometry pass %s: %w", kind, err)
	}
	return nil
}

func (g *geometryPass) MRT() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mrt
}

func (g *geometryPass) Normal() device.Input {
	g.mu.Lock()
	defer g.mu.Unlock()
	return device.Bind(g.target)
}

func (g *geometryPass) Depth() device.Input {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mrt {
		return device.BindAttachment(g.target, 1)
	}
	return device.Bind(g.depth)
}

func (g *geometryPass) release() {
	g.device.ReleaseTarget(g.target)
	g.device.ReleaseTarget(g.depth)
	g.target, g.depth = nil, nil
}

func (g *geometryPass) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.release()
}
