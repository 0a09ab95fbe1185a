package animator

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// defaultMaxInstances is the starting capacity when none is configured.
const defaultMaxInstances = 16

// instanceTransform is the placement state both backends keep per instance.
type instanceTransform struct {
	node     scene.Node
	pos      common.Vec3
	scale    common.Vec3
	rot      common.Vec3 // euler radians
	rotSpeed common.Vec3 // radians per second
}

func (it *instanceTransform) world() [16]float32 {
	var m [16]float32
	common.BuildModelMatrix(m[:], it.pos, it.rot, it.scale)
	return m
}

// instanceTable is the capacity-managed instance list shared by the backends. Callers hold
// the owning backend's lock.
type instanceTable struct {
	maxInstances uint32
	instances    []instanceTransform
}

func (t *instanceTable) add(n scene.Node) (uint32, error) {
	if n == nil {
		return 0, ErrNilNode
	}
	if uint32(len(t.instances)) >= t.maxInstances {
		t.grow(max(t.maxInstances*2, defaultMaxInstances))
	}
	t.instances = append(t.instances, instanceTransform{
		node:  n,
		scale: common.Vec3{1, 1, 1},
	})
	return uint32(len(t.instances) - 1), nil
}

// remove swap-removes index, returning the old index of the instance moved into its slot.
func (t *instanceTable) remove(index uint32) (uint32, bool) {
	count := uint32(len(t.instances))
	if index >= count {
		return 0, false
	}
	last := count - 1
	swapped := index != last
	if swapped {
		t.instances[index] = t.instances[last]
	}
	t.instances[last] = instanceTransform{}
	t.instances = t.instances[:last]
	return last, swapped
}

func (t *instanceTable) grow(newMax uint32) {
	if newMax <= t.maxInstances {
		return
	}
	t.maxInstances = newMax
	if uint32(cap(t.instances)) < newMax {
		grown := make([]instanceTransform, len(t.instances), newMax)
		copy(grown, t.instances)
		t.instances = grown
	}
}

// setMax sets the capacity, never below the current instance count.
func (t *instanceTable) setMax(newMax uint32) {
	if newMax < uint32(len(t.instances)) {
		newMax = uint32(len(t.instances))
	}
	if newMax > t.maxInstances {
		t.grow(newMax)
		return
	}
	t.maxInstances = newMax
}

func (t *instanceTable) get(index uint32) *instanceTransform {
	if index >= uint32(len(t.instances)) {
		return nil
	}
	return &t.instances[index]
}
