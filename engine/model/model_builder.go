package model

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithGeometry is an option builder that sets the vertices and triangle indices of the Mesh.
//
// Parameters:
//   - vertices: the vertex list
//   - indices: the triangle list indices
//
// Returns:
//   - MeshBuilderOption: a function that applies the geometry option to a mesh
func WithGeometry(vertices []GPUVertex, indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.vertices = vertices
		m.indices = indices
	}
}

// WithSkinned is an option builder that forces the skinned flag of the Mesh.
//
// Parameters:
//   - skinned: true if the mesh has bone data
//
// Returns:
//   - MeshBuilderOption: a function that applies the skinned option to a mesh
func WithSkinned(skinned bool) MeshBuilderOption {
	return func(m *mesh) {
		m.skinned = skinned
	}
}

// WithBoundingRadius is an option builder that overrides the computed bounding radius.
//
// Parameters:
//   - radius: the bounding sphere radius
//
// Returns:
//   - MeshBuilderOption: a function that applies the radius option to a mesh
func WithBoundingRadius(radius float32) MeshBuilderOption {
	return func(m *mesh) {
		m.boundingRadius = radius
	}
}
