package animator

import (
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// bone is one joint of the shared skeleton. Parents must precede their children.
type bone struct {
	inverseBind [16]float32
	bind        pose
	parent      int32
}

// skeletalInstanceState holds the playback state of a single skeletal instance.
type skeletalInstanceState struct {
	clipIndex uint32
	playing   bool

	time, speed                 float32
	loop, blending              bool
	blendTo                     uint32
	blendToTime                 float32
	blendDuration, blendElapsed float32
}

// skeletalAnimatorBackendImpl poses a shared skeleton per instance and writes the resulting
// skinning palette, global * inverseBind per bone, to each instance's node.
type skeletalAnimatorBackendImpl struct {
	mu *sync.Mutex
	instanceTable

	states []skeletalInstanceState
	bones  []bone
	clips  []Clip

	// per-frame scratch
	local, blendLocal []pose
	global, palette   [][16]float32
}

var _ AnimatorBackend = &skeletalAnimatorBackendImpl{}

func newSkeletalAnimatorBackend() AnimatorBackend {
	return &skeletalAnimatorBackendImpl{
		mu:            &sync.Mutex{},
		instanceTable: instanceTable{maxInstances: defaultMaxInstances},
	}
}

func (b *skeletalAnimatorBackendImpl) AddInstance(n scene.Node) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	index, err := b.add(n)
	if err != nil {
		return 0, err
	}
	b.states = append(b.states, skeletalInstanceState{speed: 1})
	return index, nil
}

func (b *skeletalAnimatorBackendImpl) RemoveInstance(index uint32) (uint32, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	last, swapped := b.remove(index)
	if index >= uint32(len(b.states)) {
		return last, swapped
	}
	if swapped {
		b.states[index] = b.states[last]
	}
	b.states = b.states[:len(b.states)-1]
	return last, swapped
}

func (b *skeletalAnimatorBackendImpl) InstanceCount() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint32(len(b.instances))
}

func (b *skeletalAnimatorBackendImpl) MaxInstances() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxInstances
}

func (b *skeletalAnimatorBackendImpl) SetMaxInstances(max uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setMax(max)
}

func (b *skeletalAnimatorBackendImpl) Node(index uint32) scene.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		return it.node
	}
	return nil
}

func (b *skeletalAnimatorBackendImpl) SetInstanceTransform(index uint32, posXYZ, scaleXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.pos, it.scale = posXYZ, scaleXYZ
	}
}

// SetInstanceRotation sets a static orientation; skeletal instances do not spin.
func (b *skeletalAnimatorBackendImpl) SetInstanceRotation(index uint32, _, rotXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.rot = rotXYZ
	}
}

func (b *skeletalAnimatorBackendImpl) SetInstanceData(index uint32, posXYZ, scaleXYZ, _, rotXYZ [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		it.pos, it.scale, it.rot = posXYZ, scaleXYZ, rotXYZ
	}
}

func (b *skeletalAnimatorBackendImpl) InstanceTransform(index uint32) (pos, scale [3]float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if it := b.get(index); it != nil {
		return it.pos, it.scale
	}
	return
}

func (b *skeletalAnimatorBackendImpl) SetBoneCount(count uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bones = make([]bone, count)
	for i := range b.bones {
		b.bones[i] = bone{
			inverseBind: common.IdentityMatrix(),
			bind:        pose{r: common.IdentityQuat(), s: common.Vec3{1, 1, 1}},
			parent:      -1,
		}
	}
	b.local = make([]pose, count)
	b.blendLocal = make([]pose, count)
	b.global = make([][16]float32, count)
	b.palette = make([][16]float32, count)
}

func (b *skeletalAnimatorBackendImpl) SetBone(index uint32, inverseBindMatrix [16]float32, localTranslation [3]float32, localRotation [4]float32, localScale [3]float32, parentIndex int32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index >= uint32(len(b.bones)) {
		return
	}
	if parentIndex >= int32(index) {
		log.Printf("[Animator] bone %d parent %d does not precede it, treating as root", index, parentIndex)
		parentIndex = -1
	}
	b.bones[index] = bone{
		inverseBind: inverseBindMatrix,
		bind: pose{
			t: localTranslation,
			r: common.Quat(localRotation).Normalize(),
			s: localScale,
		},
		parent: parentIndex,
	}
}

// AddClip stores the clip and returns its index. Invalid clips are logged and stored empty so
// indices stay stable.
func (b *skeletalAnimatorBackendImpl) AddClip(clip Clip) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := clip.Validate(); err != nil {
		log.Printf("[Animator] %v", err)
		clip = Clip{Name: clip.Name}
	}
	b.clips = append(b.clips, clip)
	return uint32(len(b.clips) - 1)
}

func (b *skeletalAnimatorBackendImpl) PlayAnimation(instanceIndex, clipIndex uint32, loop bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex >= uint32(len(b.states)) || clipIndex >= uint32(len(b.clips)) {
		return
	}
	st := &b.states[instanceIndex]
	st.clipIndex, st.playing, st.loop, st.time = clipIndex, true, loop, 0
	st.blending = false
}

func (b *skeletalAnimatorBackendImpl) BlendToAnimation(instanceIndex, targetClipIndex uint32, blendDuration float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex >= uint32(len(b.states)) || targetClipIndex >= uint32(len(b.clips)) {
		return
	}
	st := &b.states[instanceIndex]
	if !st.playing || blendDuration <= 0 {
		st.clipIndex, st.playing, st.time, st.blending = targetClipIndex, true, 0, false
		return
	}
	st.blending = true
	st.blendTo, st.blendToTime = targetClipIndex, 0
	st.blendDuration, st.blendElapsed = blendDuration, 0
}

func (b *skeletalAnimatorBackendImpl) SetAnimationTime(instanceIndex uint32, time float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex >= uint32(len(b.states)) {
		return
	}
	st := &b.states[instanceIndex]
	st.time = wrapTime(time, b.clipDuration(st.clipIndex), st.loop)
}

func (b *skeletalAnimatorBackendImpl) SetAnimationSpeed(instanceIndex uint32, speed float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex < uint32(len(b.states)) {
		b.states[instanceIndex].speed = speed
	}
}

func (b *skeletalAnimatorBackendImpl) IsBlending(instanceIndex uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return instanceIndex < uint32(len(b.states)) && b.states[instanceIndex].blending
}

func (b *skeletalAnimatorBackendImpl) BlendProgress(instanceIndex uint32) float32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex >= uint32(len(b.states)) || !b.states[instanceIndex].blending {
		return 0
	}
	st := b.states[instanceIndex]
	return common.Saturate(st.blendElapsed / st.blendDuration)
}

func (b *skeletalAnimatorBackendImpl) CancelBlend(instanceIndex uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if instanceIndex < uint32(len(b.states)) {
		b.states[instanceIndex].blending = false
	}
}

func (b *skeletalAnimatorBackendImpl) clipDuration(index uint32) float32 {
	if index >= uint32(len(b.clips)) {
		return 0
	}
	return b.clips[index].Duration
}

// sampleClip fills out with the bind pose overridden by the clip at time t.
func (b *skeletalAnimatorBackendImpl) sampleClip(out []pose, clipIndex uint32, t float32) {
	for i := range b.bones {
		out[i] = b.bones[i].bind
	}
	if clipIndex >= uint32(len(b.clips)) {
		return
	}
	clip := &b.clips[clipIndex]
	for c := range clip.Channels {
		ch := &clip.Channels[c]
		if ch.Bone < uint32(len(out)) {
			out[ch.Bone] = ch.sample(out[ch.Bone], t)
		}
	}
}

// PrepareFrame advances playback and blends, poses the skeleton for every instance, and
// writes each node's palette and world matrix.
func (b *skeletalAnimatorBackendImpl) PrepareFrame(deltaTime float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.instances {
		it := &b.instances[i]
		st := &b.states[i]

		if st.playing {
			st.time = wrapTime(st.time+deltaTime*st.speed, b.clipDuration(st.clipIndex), st.loop)
		}
		var weight float32
		if st.blending {
			st.blendToTime = wrapTime(st.blendToTime+deltaTime*st.speed, b.clipDuration(st.blendTo), st.loop)
			st.blendElapsed += deltaTime
			weight = common.Saturate(st.blendElapsed / st.blendDuration)
			if weight >= 1 {
				st.clipIndex, st.time = st.blendTo, st.blendToTime
				st.blending = false
				weight = 0
			}
		}

		if len(b.bones) > 0 {
			b.sampleClip(b.local, st.clipIndex, st.time)
			if st.blending {
				b.sampleClip(b.blendLocal, st.blendTo, st.blendToTime)
				for j := range b.local {
					b.local[j] = b.local[j].blend(b.blendLocal[j], weight)
				}
			}
			for j := range b.bones {
				m := b.local[j].matrix()
				if p := b.bones[j].parent; p >= 0 {
					m = common.Mul4x(b.global[p], m)
				}
				b.global[j] = m
				b.palette[j] = common.Mul4x(m, b.bones[j].inverseBind)
			}
			it.node.SetBones(b.palette)
		}
		it.node.SetWorld(it.world())
	}
}
