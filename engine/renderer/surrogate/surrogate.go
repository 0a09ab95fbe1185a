// Package surrogate generates the auxiliary programs the reflection passes draw a scene with.
// A surrogate mimics a source material's geometric behavior (skinning, displacement, UV
// transform, normal and roughness maps) but writes geometry, depth or motion data instead of
// shaded color. Surrogates are looked up at draw time through a Binding, so source materials
// and scene nodes are never modified.
package surrogate

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// ErrForeignScene is returned by Bind when the scene's material registry is not the cache's.
var ErrForeignScene = errors.New("scene does not share the cache's material registry")

// Kind selects what a surrogate writes.
type Kind int

const (
	// KindGeometry writes packed view-space normal and roughness, plus packed depth in MRT mode.
	KindGeometry Kind = iota

	// KindDepth writes packed device depth.
	KindDepth

	// KindVelocity writes screen-space motion since the previous frame.
	KindVelocity
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	return k.Mode().String()
}

// Mode returns the render mode the kind is drawn under.
func (k Kind) Mode() shader.RenderMode {
	switch k {
	case KindGeometry:
		return shader.RenderModeGeometry
	case KindDepth:
		return shader.RenderModeDepth
	case KindVelocity:
		return shader.RenderModeVelocity
	default:
		return shader.RenderModeColor
	}
}

// Flags are the feature switches that change generated surrogate code.
type Flags struct {
	// UseNormalMap perturbs geometry normals with the source material's normal map.
	UseNormalMap bool

	// UseRoughnessMap scales roughness by the green channel of the source roughness map.
	UseRoughnessMap bool

	// UseMRT makes geometry surrogates write packed depth to a second attachment.
	UseMRT bool
}

type cacheKey struct {
	handle material.Handle
	kind   Kind
}

// cache is the implementation of the Cache interface.
type cache struct {
	mu       *sync.Mutex
	registry material.Registry
	flags    Flags

	programs map[cacheKey]shader.SurfaceProgram

	// sources holds processed WGSL by program key; many materials share one source.
	sources map[string]string
}

// Cache maps (material handle, kind) pairs to generated surrogate programs.
type Cache interface {
	// Acquire returns the surrogate for h, creating it on first use. Repeated calls with the
	// same handle and kind return the same program until Reset.
	//
	// Parameters:
	//   - h: the source material handle
	//   - kind: what the surrogate writes
	//
	// Returns:
	//   - shader.SurfaceProgram: the surrogate
	//   - error: device.ErrUnknownMaterial if h is not registered
	Acquire(h material.Handle, kind Kind) (shader.SurfaceProgram, error)

	// Bind acquires surrogates for every material the scene's nodes reference and returns a
	// resolver for one render call.
	//
	// Parameters:
	//   - sc: the scene about to be drawn
	//   - kind: what the surrogates write
	//
	// Returns:
	//   - *Binding: the per-call resolver
	//   - error: an error if a node references an unknown material or the scene is foreign
	Bind(sc scene.Scene, kind Kind) (*Binding, error)

	// Unbind closes b. A closed binding resolves every handle to the source material's own program.
	//
	// Parameters:
	//   - b: the binding, may be nil
	Unbind(b *Binding)

	// Flags returns the current feature switches.
	//
	// Returns:
	//   - Flags: the flags
	Flags() Flags

	// SetFlags replaces the feature switches, dropping every surrogate when they change.
	//
	// Parameters:
	//   - f: the new flags
	SetFlags(f Flags)

	// Reset drops every surrogate.
	Reset()

	// Len returns the number of cached surrogates.
	//
	// Returns:
	//   - int: the count
	Len() int
}

var _ Cache = &cache{}

// NewCache creates a surrogate cache over the materials of registry.
//
// Parameters:
//   - registry: the registry issuing the handles the cache is keyed by
//   - options: functional options to configure the cache
//
// Returns:
//   - Cache: the cache
func NewCache(registry material.Registry, options ...CacheBuilderOption) Cache {
	if registry == nil {
		panic("surrogate: nil material registry")
	}
	c := &cache{
		mu:       &sync.Mutex{},
		registry: registry,
		programs: make(map[cacheKey]shader.SurfaceProgram),
		sources:  make(map[string]string),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cache) Acquire(h material.Handle, kind Kind) (shader.SurfaceProgram, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acquireLocked(h, kind)
}

func (c *cache) acquireLocked(h material.Handle, kind Kind) (shader.SurfaceProgram, error) {
	key := cacheKey{handle: h, kind: kind}
	if p, ok := c.programs[key]; ok {
		return p, nil
	}
	m, ok := c.registry.Lookup(h)
	if !ok {
		return nil, fmt.Errorf("surrogate %s: handle %d: %w", kind, h, device.ErrUnknownMaterial)
	}

	var p shader.SurfaceProgram
	var err error
	switch kind {
	case KindGeometry:
		p, err = c.newGeometryProgram(m)
	case KindDepth:
		p, err = c.newDepthProgram(m)
	case KindVelocity:
		p, err = c.newVelocityProgram(m)
	default:
		err = fmt.Errorf("unknown surrogate kind %d", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("surrogate %s: material %q: %w", kind, m.Name(), err)
	}
	c.programs[key] = p
	log.Printf("[Surrogate] created %s surrogate for material %d (%s): %s", kind, h, m.Name(), p.Key())
	return p, nil
}

// source returns the processed WGSL for raw under defines, processing it once per key.
func (c *cache) source(key, raw string, defines shader.Defines) (string, error) {
	if src, ok := c.sources[key]; ok {
		return src, nil
	}
	src, err := shader.NewPreProcessor().Process(raw, defines)
	if err != nil {
		return "", err
	}
	c.sources[key] = src
	return src, nil
}

func (c *cache) Bind(sc scene.Scene, kind Kind) (*Binding, error) {
	if sc.Materials() != c.registry {
		return nil, fmt.Errorf("bind %s: scene %q: %w", kind, sc.Name(), ErrForeignScene)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b := &Binding{
		mu:       &sync.RWMutex{},
		cache:    c,
		kind:     kind,
		registry: c.registry,
		programs: make(map[material.Handle]shader.SurfaceProgram),
	}
	for _, n := range sc.Nodes() {
		h := n.Material()
		if _, ok := b.programs[h]; ok {
			continue
		}
		p, err := c.acquireLocked(h, kind)
		if err != nil {
			return nil, fmt.Errorf("bind node %d: %w", n.ID(), err)
		}
		b.programs[h] = p
	}
	return b, nil
}

func (c *cache) Unbind(b *Binding) {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
}

func (c *cache) Flags() Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags
}

func (c *cache) SetFlags(f Flags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f == c.flags {
		return
	}
	c.flags = f
	c.resetLocked()
}

func (c *cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *cache) resetLocked() {
	c.programs = make(map[cacheKey]shader.SurfaceProgram)
	c.sources = make(map[string]string)
}

func (c *cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.programs)
}

// Binding resolves material handles to surrogates for one render call.
// Once closed by Cache.Unbind it resolves to the source materials' own programs.
type Binding struct {
	mu       *sync.RWMutex
	cache    *cache
	kind     Kind
	registry material.Registry
	programs map[material.Handle]shader.SurfaceProgram
	closed   bool
}

var _ device.ProgramResolver = &Binding{}

// Kind returns the surrogate kind the binding resolves to.
func (b *Binding) Kind() Kind {
	return b.kind
}

// Closed reports whether the binding has been unbound.
func (b *Binding) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Resolve implements device.ProgramResolver. Handles first seen after Bind are acquired on demand.
func (b *Binding) Resolve(h material.Handle) (shader.SurfaceProgram, error) {
	b.mu.RLock()
	closed := b.closed
	p, ok := b.programs[h]
	b.mu.RUnlock()

	if closed {
		return device.MaterialPrograms{Registry: b.registry}.Resolve(h)
	}
	if ok {
		return p, nil
	}
	return b.cache.Acquire(h, b.kind)
}
