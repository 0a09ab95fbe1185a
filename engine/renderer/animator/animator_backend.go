package animator

import "github.com/Carmen-Shannon/oxy-ssr/engine/scene"

// AnimatorBackendType identifies the type of animation backend used by an Animator.
type AnimatorBackendType int

const (
	// BackendTypeSimple moves whole nodes: per-instance position, scale and a spinning rotation.
	BackendTypeSimple AnimatorBackendType = iota

	// BackendTypeSkeletal poses a bone hierarchy from animation clips, with blending, and writes
	// the skinning palette to each instance's node.
	BackendTypeSkeletal
)

// String returns the backend name.
func (t AnimatorBackendType) String() string {
	switch t {
	case BackendTypeSimple:
		return "simple"
	case BackendTypeSkeletal:
		return "skeletal"
	}
	return "unknown"
}

// AnimatorBackend is the union of both backend method sets. Methods that do not apply to a
// backend are no-ops there.
type AnimatorBackend interface {
	AddInstance(n scene.Node) (uint32, error)
	RemoveInstance(index uint32) (uint32, bool)
	InstanceCount() uint32
	MaxInstances() uint32
	SetMaxInstances(max uint32)
	Node(index uint32) scene.Node

	SetInstanceTransform(index uint32, posXYZ, scaleXYZ [3]float32)
	SetInstanceRotation(index uint32, rotSpeedXYZ, rotXYZ [3]float32)
	SetInstanceData(index uint32, posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ [3]float32)
	InstanceTransform(index uint32) (pos, scale [3]float32)

	SetBoneCount(count uint32)
	SetBone(index uint32, inverseBindMatrix [16]float32, localTranslation [3]float32, localRotation [4]float32, localScale [3]float32, parentIndex int32)
	AddClip(clip Clip) uint32
	PlayAnimation(instanceIndex, clipIndex uint32, loop bool)
	BlendToAnimation(instanceIndex, targetClipIndex uint32, blendDuration float32)
	SetAnimationTime(instanceIndex uint32, time float32)
	SetAnimationSpeed(instanceIndex uint32, speed float32)
	IsBlending(instanceIndex uint32) bool
	BlendProgress(instanceIndex uint32) float32
	CancelBlend(instanceIndex uint32)

	PrepareFrame(deltaTime float32)
}
