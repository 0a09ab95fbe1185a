package material

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
)

// MaterialBuilderOption is a function that configures a material instance during construction.
type MaterialBuilderOption func(*material)

// WithName is an option builder that sets the name of the material.
//
// Parameters:
//   - name: the identifier for the material
//
// Returns:
//   - MaterialBuilderOption: a function that applies the name option to a material
func WithName(name string) MaterialBuilderOption {
	return func(m *material) {
		m.name = name
	}
}

// WithBaseColor is an option builder that sets the albedo RGBA color of the material.
//
// Parameters:
//   - color: the base color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the base color option to a material
func WithBaseColor(color common.Color) MaterialBuilderOption {
	return func(m *material) {
		m.baseColor = color
	}
}

// WithEmissive is an option builder that sets the emitted radiance of the material.
//
// Parameters:
//   - color: the emissive color
//
// Returns:
//   - MaterialBuilderOption: a function that applies the emissive option to a material
func WithEmissive(color common.Color) MaterialBuilderOption {
	return func(m *material) {
		m.emissive = color
	}
}

// WithMetallic is an option builder that sets the metallic factor of the material.
//
// Parameters:
//   - metallic: the metallic factor (0.0 = dielectric, 1.0 = metal)
//
// Returns:
//   - MaterialBuilderOption: a function that applies the metallic option to a material
func WithMetallic(metallic float32) MaterialBuilderOption {
	return func(m *material) {
		m.metallic = metallic
	}
}

// WithRoughness is an option builder that sets the roughness factor of the material.
//
// Parameters:
//   - roughness: the roughness factor, clamped to [0, 1]
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness option to a material
func WithRoughness(roughness float32) MaterialBuilderOption {
	return func(m *material) {
		m.roughness = common.Saturate(roughness)
	}
}

// WithBaseColorMap is an option builder that sets the albedo texture.
//
// Parameters:
//   - t: the base color texture
//
// Returns:
//   - MaterialBuilderOption: a function that applies the map option to a material
func WithBaseColorMap(t Texture) MaterialBuilderOption {
	return func(m *material) {
		m.baseColorMap = t
	}
}

// WithNormalMap is an option builder that sets the tangent-space normal map and its strength.
//
// Parameters:
//   - t: the normal map
//   - scale: the XY strength
//
// Returns:
//   - MaterialBuilderOption: a function that applies the normal map option to a material
func WithNormalMap(t Texture, scale common.Vec2) MaterialBuilderOption {
	return func(m *material) {
		m.normalMap = t
		m.normalScale = scale
	}
}

// WithRoughnessMap is an option builder that sets the roughness texture. The green channel scales the roughness factor.
//
// Parameters:
//   - t: the roughness map
//
// Returns:
//   - MaterialBuilderOption: a function that applies the roughness map option to a material
func WithRoughnessMap(t Texture) MaterialBuilderOption {
	return func(m *material) {
		m.roughnessMap = t
	}
}

// WithDisplacementMap is an option builder that sets vertex displacement along the normal.
//
// Parameters:
//   - t: the displacement map (red channel)
//   - scale: multiplier applied to the sampled height
//   - bias: offset added after scaling
//
// Returns:
//   - MaterialBuilderOption: a function that applies the displacement option to a material
func WithDisplacementMap(t Texture, scale, bias float32) MaterialBuilderOption {
	return func(m *material) {
		m.displacementMap = t
		m.displacementScale = scale
		m.displacementBias = bias
	}
}

// WithUVTransform is an option builder that sets the texture coordinate transform.
//
// Parameters:
//   - t: the column-major 3x3 transform, see NewUVTransform
//
// Returns:
//   - MaterialBuilderOption: a function that applies the UV transform option to a material
func WithUVTransform(t [9]float32) MaterialBuilderOption {
	return func(m *material) {
		m.uvTransform = t
	}
}

// WithDoubleSided is an option builder that disables back-face culling for the material.
//
// Parameters:
//   - doubleSided: true to draw both faces
//
// Returns:
//   - MaterialBuilderOption: a function that applies the option to a material
func WithDoubleSided(doubleSided bool) MaterialBuilderOption {
	return func(m *material) {
		m.doubleSided = doubleSided
	}
}

// WithProgram is an option builder that replaces the default forward shading program.
//
// Parameters:
//   - p: the program the host renderer shades the material with
//
// Returns:
//   - MaterialBuilderOption: a function that applies the program option to a material
func WithProgram(p shader.SurfaceProgram) MaterialBuilderOption {
	return func(m *material) {
		m.program = p
	}
}
