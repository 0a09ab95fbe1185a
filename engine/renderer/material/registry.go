package material

import (
	"sort"
	"sync"
)

// Handle is a stable integer identifying a material registered with a Registry.
// The zero Handle is never issued.
type Handle uint32

// registry is the implementation of the Registry interface.
type registry struct {
	mu         *sync.RWMutex
	next       Handle
	byHandle   map[Handle]Material
	byMaterial map[Material]Handle
}

// Registry issues stable handles for materials so caches can key on integers instead of object identity.
type Registry interface {
	// Register returns the handle for m, issuing a new one on first registration.
	//
	// Parameters:
	//   - m: the material
	//
	// Returns:
	//   - Handle: the material's handle
	Register(m Material) Handle

	// Lookup returns the material registered under h.
	//
	// Parameters:
	//   - h: the handle
	//
	// Returns:
	//   - Material: the material, or nil
	//   - bool: false if h was never issued
	Lookup(h Handle) (Material, bool)

	// Handles returns every issued handle in ascending order.
	//
	// Returns:
	//   - []Handle: the handles
	Handles() []Handle

	// Len returns the number of registered materials.
	//
	// Returns:
	//   - int: the count
	Len() int
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry.
//
// Returns:
//   - Registry: the registry
func NewRegistry() Registry {
	return &registry{
		mu:         &sync.RWMutex{},
		byHandle:   make(map[Handle]Material),
		byMaterial: make(map[Material]Handle),
	}
}

func (r *registry) Register(m Material) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.byMaterial[m]; ok {
		return h
	}
	r.next++
	r.byHandle[r.next] = m
	r.byMaterial[m] = r.next
	return r.next
}

func (r *registry) Lookup(h Handle) (Material, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byHandle[h]
	return m, ok
}

func (r *registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Handle, 0, len(r.byHandle))
	for h := range r.byHandle {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byHandle)
}
