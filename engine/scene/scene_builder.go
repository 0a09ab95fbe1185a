package scene

import "github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithNodes adds initial nodes to the scene.
// Nodes without IDs will be assigned new IDs.
//
// Parameters:
//   - nodes: the nodes to add
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithNodes(nodes ...Node) SceneBuilderOption {
	return func(s *scene) {
		for _, n := range nodes {
			s.addLocked(n)
		}
	}
}

// WithMaterials shares an existing material registry with the scene.
//
// Parameters:
//   - r: the registry
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMaterials(r material.Registry) SceneBuilderOption {
	return func(s *scene) {
		s.materials = r
	}
}
