package scene

import (
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
)

// node is the implementation of the Node interface.
type node struct {
	mu       *sync.RWMutex
	id       uint64
	name     string
	visible  atomic.Bool
	mesh     model.Mesh
	material material.Handle
	world    [16]float32
	bones    [][16]float32
}

// Node is a renderable scene entity: a mesh drawn with one material under a world transform,
// optionally deformed by a bone palette.
type Node interface {
	// ID returns the node's unique identifier within its scene. Zero until the node is added.
	//
	// Returns:
	//   - uint64: the node ID
	ID() uint64

	// SetID assigns the node's identifier. Called by Scene.Add.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// Name returns the node's debug name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Visible reports whether the node is drawn.
	//
	// Returns:
	//   - bool: true if visible
	Visible() bool

	// SetVisible shows or hides the node.
	//
	// Parameters:
	//   - visible: true to draw the node
	SetVisible(visible bool)

	// Mesh returns the node's geometry.
	//
	// Returns:
	//   - model.Mesh: the mesh
	Mesh() model.Mesh

	// Material returns the handle of the node's active material.
	//
	// Returns:
	//   - material.Handle: the material handle
	Material() material.Handle

	// SetMaterial changes the node's active material.
	//
	// Parameters:
	//   - h: the material handle
	SetMaterial(h material.Handle)

	// World returns the model-to-world transform.
	//
	// Returns:
	//   - [16]float32: the column-major world matrix
	World() [16]float32

	// SetWorld replaces the model-to-world transform.
	//
	// Parameters:
	//   - m: the column-major world matrix
	SetWorld(m [16]float32)

	// SetTransform rebuilds the world transform from position, Euler rotation and scale.
	//
	// Parameters:
	//   - pos: translation
	//   - rot: rotation in radians (Y * X * Z order)
	//   - scale: scale factors
	SetTransform(pos, rot, scale common.Vec3)

	// Bones returns a copy of the bone palette, or nil for unskinned nodes.
	//
	// Returns:
	//   - [][16]float32: the bone matrices
	Bones() [][16]float32

	// SetBones replaces the bone palette.
	//
	// Parameters:
	//   - bones: the bone matrices
	SetBones(bones [][16]float32)
}

var _ Node = &node{}

// NewNode creates a node for mesh drawn with the material behind h.
//
// Parameters:
//   - mesh: the geometry (must not be nil)
//   - h: the material handle
//   - options: functional options
//
// Returns:
//   - Node: the node
func NewNode(mesh model.Mesh, h material.Handle, options ...NodeBuilderOption) Node {
	if mesh == nil {
		panic("scene: NewNode requires a non-nil Mesh")
	}
	n := &node{
		mu:       &sync.RWMutex{},
		mesh:     mesh,
		material: h,
		world:    common.IdentityMatrix(),
	}
	n.visible.Store(true)
	for _, opt := range options {
		opt(n)
	}
	return n
}

func (n *node) ID() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.id
}

func (n *node) SetID(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.id = id
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Visible() bool {
	return n.visible.Load()
}

func (n *node) SetVisible(visible bool) {
	n.visible.Store(visible)
}

func (n *node) Mesh() model.Mesh {
	return n.mesh
}

func (n *node) Material() material.Handle {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.material
}

func (n *node) SetMaterial(h material.Handle) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.material = h
}

func (n *node) World() [16]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.world
}

func (n *node) SetWorld(m [16]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.world = m
}

func (n *node) SetTransform(pos, rot, scale common.Vec3) {
	var m [16]float32
	common.BuildModelMatrix(m[:], pos, rot, scale)
	n.SetWorld(m)
}

func (n *node) Bones() [][16]float32 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.bones == nil {
		return nil
	}
	out := make([][16]float32, len(n.bones))
	copy(out, n.bones)
	return out
}

func (n *node) SetBones(bones [][16]float32) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bones = append(n.bones[:0], bones...)
}
