package scene

import (
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
)

// scene is the implementation of the Scene interface.
type scene struct {
	mu        *sync.RWMutex
	name      string
	materials material.Registry
	registry  map[uint64]Node
	nextID    uint64
}

// Scene is a flat collection of renderable nodes plus the registry of the materials they reference.
type Scene interface {
	// Name returns the scene name.
	//
	// Returns:
	//   - string: the name
	Name() string

	// Materials returns the registry issuing handles for every material in the scene.
	//
	// Returns:
	//   - material.Registry: the registry
	Materials() material.Registry

	// Add inserts a node, assigning it an ID if it has none.
	//
	// Parameters:
	//   - n: the node
	//
	// Returns:
	//   - uint64: the node ID
	Add(n Node) uint64

	// AddMesh registers m, builds a node drawing mesh with it, and adds the node.
	//
	// Parameters:
	//   - mesh: the geometry
	//   - m: the material
	//   - options: node options
	//
	// Returns:
	//   - Node: the added node
	AddMesh(mesh model.Mesh, m material.Material, options ...NodeBuilderOption) Node

	// Get returns the node with the given ID, or nil.
	//
	// Parameters:
	//   - id: the node ID
	//
	// Returns:
	//   - Node: the node or nil
	Get(id uint64) Node

	// Remove deletes the node with the given ID.
	//
	// Parameters:
	//   - id: the node ID
	Remove(id uint64)

	// Nodes returns a snapshot of every node ordered by ID.
	//
	// Returns:
	//   - []Node: the nodes
	Nodes() []Node

	// Count returns the number of nodes.
	//
	// Returns:
	//   - int: the node count
	Count() int

	// Clear removes every node. Registered materials keep their handles.
	Clear()
}

// Ensure scene implements Scene interface.
var _ Scene = &scene{}

// NewScene creates an empty Scene.
//
// Parameters:
//   - name: the name of the scene
//   - options: functional options to further configure the scene
//
// Returns:
//   - Scene: the newly created scene
func NewScene(name string, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:       &sync.RWMutex{},
		name:     name,
		registry: make(map[uint64]Node),
		nextID:   1,
	}
	for _, option := range options {
		option(s)
	}
	if s.materials == nil {
		s.materials = material.NewRegistry()
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Materials() material.Registry {
	return s.materials
}

func (s *scene) Add(n Node) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(n)
}

func (s *scene) addLocked(n Node) uint64 {
	if n.ID() == 0 {
		n.SetID(s.nextID)
		s.nextID++
	} else if n.ID() >= s.nextID {
		s.nextID = n.ID() + 1
	}
	s.registry[n.ID()] = n
	return n.ID()
}

func (s *scene) AddMesh(mesh model.Mesh, m material.Material, options ...NodeBuilderOption) Node {
	n := NewNode(mesh, s.materials.Register(m), options...)
	s.Add(n)
	return n
}

func (s *scene) Get(id uint64) Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.registry[id]
}

func (s *scene) Remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registry, id)
}

func (s *scene) Nodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, 0, len(s.registry))
	for _, n := range s.registry {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (s *scene) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.registry)
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry = make(map[uint64]Node)
}
