package model

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

var nextMeshID atomic.Uint64

// mesh is the implementation of the Mesh interface.
type mesh struct {
	id             uint64
	name           string
	skinned        bool
	vertices       []GPUVertex
	indices        []uint32
	boundingRadius float32
}

// Mesh defines the interface for indexed triangle geometry.
// Meshes are immutable once built so that backends may cache GPU buffers by ID.
type Mesh interface {
	// ID returns a process-unique identifier for the mesh, used as a buffer cache key.
	//
	// Returns:
	//   - uint64: the mesh ID
	ID() uint64

	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Skinned reports whether the mesh carries bone weights.
	//
	// Returns:
	//   - bool: true if any vertex is bone-weighted
	Skinned() bool

	// Vertices returns the vertex list. Callers must not modify it.
	//
	// Returns:
	//   - []GPUVertex: the vertices
	Vertices() []GPUVertex

	// Indices returns the triangle list indices, three per triangle.
	//
	// Returns:
	//   - []uint32: the indices
	Indices() []uint32

	// VertexData returns the raw vertex bytes for GPU upload.
	//
	// Returns:
	//   - []byte: the vertex data
	VertexData() []byte

	// IndexData returns the raw index bytes for GPU upload.
	//
	// Returns:
	//   - []byte: the index data
	IndexData() []byte

	// BoundingRadius returns the bounding sphere radius around the model-space origin. Used by frustum culling.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh with the specified options applied.
// The bounding radius and skinned flag are derived from the vertices unless set explicitly.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions to configure the Mesh
//
// Returns:
//   - Mesh: a new instance of Mesh configured with the provided options
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{id: nextMeshID.Add(1)}
	for _, opt := range options {
		opt(m)
	}
	if m.boundingRadius == 0 {
		m.boundingRadius = ComputeBoundingRadius(m.vertices)
	}
	if !m.skinned {
		for i := range m.vertices {
			if m.vertices[i].Skinned() {
				m.skinned = true
				break
			}
		}
	}
	return m
}

func (m *mesh) ID() uint64 {
	return m.id
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Skinned() bool {
	return m.skinned
}

func (m *mesh) Vertices() []GPUVertex {
	return m.vertices
}

func (m *mesh) Indices() []uint32 {
	return m.indices
}

func (m *mesh) VertexData() []byte {
	return common.SliceToBytes(m.vertices)
}

func (m *mesh) IndexData() []byte {
	return common.SliceToBytes(m.indices)
}

func (m *mesh) BoundingRadius() float32 {
	return m.boundingRadius
}
