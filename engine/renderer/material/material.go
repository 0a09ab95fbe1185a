package material

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
)

// material is the implementation of the Material interface.
type material struct {
	mu                *sync.Mutex
	name              string
	baseColor         common.Color
	emissive          common.Color
	metallic          float32
	roughness         float32
	baseColorMap      Texture
	normalMap         Texture
	normalScale       common.Vec2
	roughnessMap      Texture
	displacementMap   Texture
	displacementScale float32
	displacementBias  float32
	uvTransform       [9]float32
	doubleSided       bool
	program           shader.SurfaceProgram
}

// Material defines the interface for a source material: the surface description a host
// renderer shades with, and the state auxiliary passes mirror when they substitute their own programs.
//
// Getters are safe to call from render workers while the host mutates values between frames.
type Material interface {
	// Name retrieves the material identifier.
	//
	// Returns:
	//   - string: the name of the material
	Name() string

	// BaseColor retrieves the albedo RGBA color of the material.
	//
	// Returns:
	//   - common.Color: the base color
	BaseColor() common.Color

	// Emissive retrieves the emitted radiance of the material. Alpha is unused.
	//
	// Returns:
	//   - common.Color: the emissive color
	Emissive() common.Color

	// Metallic retrieves the metallic factor of the material.
	//
	// Returns:
	//   - float32: the metallic factor
	Metallic() float32

	// Roughness retrieves the roughness factor of the material.
	// A value of 0.0 represents a perfect mirror, 1.0 a fully rough surface.
	//
	// Returns:
	//   - float32: the roughness factor
	Roughness() float32

	// BaseColorMap retrieves the albedo texture, or nil.
	//
	// Returns:
	//   - Texture: the base color map or nil
	BaseColorMap() Texture

	// NormalMap retrieves the tangent-space normal map, or nil.
	//
	// Returns:
	//   - Texture: the normal map or nil
	NormalMap() Texture

	// NormalScale retrieves the XY strength applied to the normal map.
	//
	// Returns:
	//   - common.Vec2: the normal scale
	NormalScale() common.Vec2

	// RoughnessMap retrieves the roughness texture (green channel), or nil.
	//
	// Returns:
	//   - Texture: the roughness map or nil
	RoughnessMap() Texture

	// DisplacementMap retrieves the vertex displacement texture (red channel), or nil.
	//
	// Returns:
	//   - Texture: the displacement map or nil
	DisplacementMap() Texture

	// Displacement retrieves the displacement scale and bias applied along the vertex normal.
	//
	// Returns:
	//   - float32, float32: scale and bias
	Displacement() (scale, bias float32)

	// UVTransform retrieves the column-major 3x3 transform applied to texture coordinates.
	//
	// Returns:
	//   - [9]float32: the UV transform
	UVTransform() [9]float32

	// DoubleSided reports whether back faces are drawn.
	//
	// Returns:
	//   - bool: true if both faces are drawn
	DoubleSided() bool

	// Program returns the program the host renderer shades this material with.
	//
	// Returns:
	//   - shader.SurfaceProgram: the forward shading program
	Program() shader.SurfaceProgram

	// SetRoughness sets the roughness factor, clamped to [0, 1].
	//
	// Parameters:
	//   - roughness: the new roughness
	SetRoughness(roughness float32)

	// SetBaseColor sets the albedo color.
	//
	// Parameters:
	//   - color: the new base color
	SetBaseColor(color common.Color)

	// SetEmissive sets the emitted radiance.
	//
	// Parameters:
	//   - color: the new emissive color
	SetEmissive(color common.Color)

	// SetUVTransform sets the texture coordinate transform.
	//
	// Parameters:
	//   - m: the column-major 3x3 transform
	SetUVTransform(m [9]float32)
}

var _ Material = &material{}

// NewMaterial creates a new Material instance configured with the provided options.
//
// Parameters:
//   - options: variadic list of MaterialBuilderOption functions to configure the material
//
// Returns:
//   - Material: a new Material instance
func NewMaterial(options ...MaterialBuilderOption) Material {
	m := &material{
		mu:          &sync.Mutex{},
		baseColor:   common.Color{1, 1, 1, 1},
		roughness:   1.0,
		normalScale: common.Vec2{1, 1},
		uvTransform: IdentityUVTransform(),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.program == nil {
		m.program = NewForwardProgram(m)
	}
	return m
}

func (m *material) Name() string {
	return m.name
}

func (m *material) BaseColor() common.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseColor
}

func (m *material) Emissive() common.Color {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emissive
}

func (m *material) Metallic() float32 {
	return m.metallic
}

func (m *material) Roughness() float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roughness
}

func (m *material) BaseColorMap() Texture {
	return m.baseColorMap
}

func (m *material) NormalMap() Texture {
	return m.normalMap
}

func (m *material) NormalScale() common.Vec2 {
	return m.normalScale
}

func (m *material) RoughnessMap() Texture {
	return m.roughnessMap
}

func (m *material) DisplacementMap() Texture {
	return m.displacementMap
}

func (m *material) Displacement() (float32, float32) {
	return m.displacementScale, m.displacementBias
}

func (m *material) UVTransform() [9]float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uvTransform
}

func (m *material) DoubleSided() bool {
	return m.doubleSided
}

func (m *material) Program() shader.SurfaceProgram {
	return m.program
}

func (m *material) SetRoughness(roughness float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.roughness = common.Saturate(roughness)
}

func (m *material) SetBaseColor(color common.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.baseColor = color
}

func (m *material) SetEmissive(color common.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emissive = color
}

func (m *material) SetUVTransform(t [9]float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uvTransform = t
}
