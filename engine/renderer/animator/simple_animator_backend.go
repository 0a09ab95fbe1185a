package animator

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// simpleAnimatorBackendImpl spins and places whole nodes. Each frame the euler rotation advances
// by its speed and the node's world matrix is rebuilt from position, rotation and scale.
type simpleAnimatorBackendImpl struct {
	mu *sync.Mutex
	instanceTable
}

var _ AnimatorBackend = &simpleAnimatorBackendImpl{}

func newSimpleAnimatorBackend() AnimatorBackend {
	return &simpleAnimatorBackendImpl{
		mu:            &sync.Mutex{},
		instanceTable: instanceTable{maxInstances: defaultMaxInstances},
	}
}

func (b *simpleAnimatorBackendImpl) AddInstance(n scene.Node) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.add(n)
}

func (b *simpleAnimatorBackendImpl) RemoveInstance(index uint32) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remove(index)
}

func (b *simpleAnimatorBackendImpl) InstanceCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint32(len(b.instances))
}

func (b *simpleAnimatorBackendImpl) MaxInstances() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInstances
}

func (b *simpleAnimatorBackendImpl) SetMaxInstances(max uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setMax(max)
}

func (b *simpleAnimatorBackendImpl) Node(index uint32) scene.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		return it.node
	}
	return nil
}

func (b *simpleAnimatorBackendImpl) SetInstanceTransform(index uint32, posXYZ, scaleXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.pos, it.scale = posXYZ, scaleXYZ
	}
}

func (b *simpleAnimatorBackendImpl) SetInstanceRotation(index uint32, rotSpeedXYZ, rotXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.rotSpeed, it.rot = rotSpeedXYZ, rotXYZ
	}
}

func (b *simpleAnimatorBackendImpl) SetInstanceData(index uint32, posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.pos, it.scale, it.rotSpeed, it.rot = posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ
	}
}

func (b *simpleAnimatorBackendImpl) InstanceTransform(index uint32) (pos, scale [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		return it.pos, it.scale
	}
	return
}

// Skeletal operations are no-ops on the simple backend.
func (b *simpleAnimatorBackendImpl) SetBoneCount(uint32) {}
func (b *simpleAnimatorBackendImpl) SetBone(uint32, [16]float32, [3]float32, [4]float32, [3]float32, int32) {
}
func (b *simpleAnimatorBackendImpl) AddClip(Clip) uint32                      { return 0 }
func (b *simpleAnimatorBackendImpl) PlayAnimation(uint32, uint32, bool)       {}
func (b *simpleAnimatorBackendImpl) BlendToAnimation(uint32, uint32, float32) {}
func (b *simpleAnimatorBackendImpl) SetAnimationTime(uint32, float32)         {}
func (b *simpleAnimatorBackendImpl) SetAnimationSpeed(uint32, float32)        {}
func (b *simpleAnimatorBackendImpl) IsBlending(uint32) bool                   { return false }
func (b *simpleAnimatorBackendImpl) BlendProgress(uint32) float32             { return 0 }
func (b *simpleAnimatorBackendImpl) CancelBlend(uint32)                       {}

func (b *simpleAnimatorBackendImpl) PrepareFrame(deltaTime float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.instances {
		it := &b.instances[i]
		it.rot = it.rot.Add(it.rotSpeed.Scale(deltaTime))
		it.node.SetWorld(it.world())
	}
}
