package animator

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// animator is the implementation of the Animator interface.
type animator struct {
	backendType AnimatorBackendType
	backend     AnimatorBackend
}

// Animator moves scene nodes between frames. It owns per-instance transform and playback
// state and, on PrepareFrame, writes world matrices (and for skeletal backends, skinning
// palettes) into the nodes it drives. Rendering then reads the nodes as usual.
//
// Methods specific to one backend no-op on the other: the skeletal-only methods (SetBoneCount,
// SetBone, AddClip, PlayAnimation, BlendToAnimation, SetAnimationTime, SetAnimationSpeed,
// IsBlending, BlendProgress, CancelBlend) do nothing on a simple animator.
type Animator interface {
	// BackendType reports which backend drives this animator.
	BackendType() AnimatorBackendType

	// MaxInstances returns the current instance capacity. Adding past it grows the capacity.
	MaxInstances() uint32

	// AddInstance registers a node with this animator.
	//
	// Parameters:
	//   - n: the node to drive
	//
	// Returns:
	//   - uint32: the index of the newly registered instance
	//   - error: ErrNilNode if n is nil
	AddInstance(n scene.Node) (uint32, error)

	// RemoveInstance removes the instance at index by swapping the last instance into its slot.
	//
	// Returns:
	//   - uint32: the old index of the instance now at index (only meaningful when bool is true)
	//   - bool: true if an instance was moved
	RemoveInstance(index uint32) (uint32, bool)

	// InstanceCount returns the number of registered instances.
	InstanceCount() uint32

	// Node returns the node driven by the instance at index, or nil.
	Node(index uint32) scene.Node

	// SetInstanceTransform sets the position and scale of an instance.
	SetInstanceTransform(index uint32, posXYZ, scaleXYZ [3]float32)

	// SetInstanceRotation sets the spin rate (radians per second) and current euler rotation.
	SetInstanceRotation(index uint32, rotSpeedXYZ, rotXYZ [3]float32)

	// SetInstanceData sets position, scale, spin rate and rotation in one call.
	SetInstanceData(index uint32, posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ [3]float32)

	// InstanceTransform returns the position and scale of an instance.
	InstanceTransform(index uint32) (pos, scale [3]float32)

	// SetBoneCount resets the skeleton to count identity bones. Call before SetBone.
	SetBoneCount(count uint32)

	// SetBone sets one bone's bind pose.
	//
	// Parameters:
	//   - index: the bone index
	//   - inverseBindMatrix: column-major inverse bind matrix
	//   - localTranslation: bind translation relative to the parent
	//   - localRotation: bind rotation quaternion (x, y, z, w)
	//   - localScale: bind scale
	//   - parentIndex: the parent bone, which must precede index, or -1 for a root
	SetBone(index uint32, inverseBindMatrix [16]float32, localTranslation [3]float32, localRotation [4]float32, localScale [3]float32, parentIndex int32)

	// AddClip stores an animation clip.
	//
	// Returns:
	//   - uint32: the clip index for PlayAnimation and BlendToAnimation
	AddClip(clip Clip) uint32

	// PlayAnimation starts clipIndex from time zero on an instance, cancelling any blend.
	PlayAnimation(instanceIndex, clipIndex uint32, loop bool)

	// BlendToAnimation crossfades an instance to a new clip over blendDuration seconds.
	// With nothing playing or a non-positive duration the clip starts immediately.
	BlendToAnimation(instanceIndex, targetClipIndex uint32, blendDuration float32)

	// SetAnimationTime moves the playhead of the current clip.
	SetAnimationTime(instanceIndex uint32, time float32)

	// SetAnimationSpeed scales playback; 1 is real time.
	SetAnimationSpeed(instanceIndex uint32, speed float32)

	// IsBlending reports whether a crossfade is in progress.
	IsBlending(instanceIndex uint32) bool

	// BlendProgress returns the crossfade weight in [0, 1], or 0 when not blending.
	BlendProgress(instanceIndex uint32) float32

	// CancelBlend stops a crossfade and keeps the current clip.
	CancelBlend(instanceIndex uint32)

	// PrepareFrame advances every instance by deltaTime seconds and writes the results into
	// the driven nodes.
	PrepareFrame(deltaTime float32)
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator with the given backend type and options.
//
// Parameters:
//   - backendType: which backend to use
//   - options: functional options applied after the backend is created
//
// Returns:
//   - Animator: the configured animator
func NewAnimator(backendType AnimatorBackendType, options ...AnimatorBuilderOption) Animator {
	a := &animator{backendType: backendType}
	switch backendType {
	case BackendTypeSimple:
		a.backend = newSimpleAnimatorBackend()
	case BackendTypeSkeletal:
		a.backend = newSkeletalAnimatorBackend()
	default:
		panic(fmt.Sprintf("unsupported animator backend type: %d", backendType))
	}

	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) BackendType() AnimatorBackendType { return a.backendType }

func (a *animator) MaxInstances() uint32 { return a.backend.MaxInstances() }

func (a *animator) AddInstance(n scene.Node) (uint32, error) { return a.backend.AddInstance(n) }

func (a *animator) RemoveInstance(index uint32) (uint32, bool) {
	return a.backend.RemoveInstance(index)
}

func (a *animator) InstanceCount() uint32 { return a.backend.InstanceCount() }

func (a *animator) Node(index uint32) scene.Node { return a.backend.Node(index) }

func (a *animator) SetInstanceTransform(index uint32, posXYZ, scaleXYZ [3]float32) {
	a.backend.SetInstanceTransform(index, posXYZ, scaleXYZ)
}

func (a *animator) SetInstanceRotation(index uint32, rotSpeedXYZ, rotXYZ [3]float32) {
	a.backend.SetInstanceRotation(index, rotSpeedXYZ, rotXYZ)
}

func (a *animator) SetInstanceData(index uint32, posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ [3]float32) {
	a.backend.SetInstanceData(index, posXYZ, scaleXYZ, rotSpeedXYZ, rotXYZ)
}

func (a *animator) InstanceTransform(index uint32) (pos, scale [3]float32) {
	return a.backend.InstanceTransform(index)
}

func (a *animator) SetBoneCount(count uint32) { a.backend.SetBoneCount(count) }

func (a *animator) SetBone(index uint32, inverseBindMatrix [16]float32, localTranslation [3]float32, localRotation [4]float32, localScale [3]float32, parentIndex int32) {
	a.backend.SetBone(index, inverseBindMatrix, localTranslation, localRotation, localScale, parentIndex)
}

func (a *animator) AddClip(clip Clip) uint32 { return a.backend.AddClip(clip) }

func (a *animator) PlayAnimation(instanceIndex, clipIndex uint32, loop bool) {
	a.backend.PlayAnimation(instanceIndex, clipIndex, loop)
}

func (a *animator) BlendToAnimation(instanceIndex, targetClipIndex uint32, blendDuration float32) {
	a.backend.BlendToAnimation(instanceIndex, targetClipIndex, blendDuration)
}

func (a *animator) SetAnimationTime(instanceIndex uint32, time float32) {
	a.backend.SetAnimationTime(instanceIndex, time)
}

func (a *animator) SetAnimationSpeed(instanceIndex uint32, speed float32) {
	a.backend.SetAnimationSpeed(instanceIndex, speed)
}

func (a *animator) IsBlending(instanceIndex uint32) bool { return a.backend.IsBlending(instanceIndex) }

func (a *animator) BlendProgress(instanceIndex uint32) float32 {
	return a.backend.BlendProgress(instanceIndex)
}

func (a *animator) CancelBlend(instanceIndex uint32) { a.backend.CancelBlend(instanceIndex) }

func (a *animator) PrepareFrame(deltaTime float32) { a.backend.PrepareFrame(deltaTime) }
