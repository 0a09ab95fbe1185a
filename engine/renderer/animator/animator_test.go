package animator

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

func newTestNode() scene.Node {
	return scene.NewNode(model.NewQuad(1, 1), 1)
}

func assertPoint(t *testing.T, m [16]float32, in, want common.Vec3) {
	t.Helper()
	got := common.TransformPoint(m, in.Vec4(1)).XYZ()
	assert.InDeltaSlice(t, want[:], got[:], 1e-4)
}

func TestSimpleAnimator_SpinsAndPlacesNodes(t *testing.T) {
	a := NewAnimator(BackendTypeSimple)
	n := newTestNode()
	idx, err := a.AddInstance(n)
	require.NoError(t, err)

	a.SetInstanceData(idx, [3]float32{1, 2, 3}, [3]float32{2, 2, 2}, [3]float32{0, math32.Pi, 0}, [3]float32{})
	a.PrepareFrame(0.5)

	var want [16]float32
	common.BuildModelMatrix(want[:], common.Vec3{1, 2, 3}, common.Vec3{0, math32.Pi / 2, 0}, common.Vec3{2, 2, 2})
	got := n.World()
	assert.InDeltaSlice(t, want[:], got[:], 1e-5)

	pos, scale := a.InstanceTransform(idx)
	assert.Equal(t, [3]float32{1, 2, 3}, pos)
	assert.Equal(t, [3]float32{2, 2, 2}, scale)
}

func TestSimpleAnimator_SkeletalMethodsAreNoOps(t *testing.T) {
	a := NewAnimator(BackendTypeSimple)
	idx, err := a.AddInstance(newTestNode())
	require.NoError(t, err)

	assert.Zero(t, a.AddClip(Clip{Name: "ignored", Duration: 1}))
	a.PlayAnimation(idx, 0, true)
	a.BlendToAnimation(idx, 0, 1)
	assert.False(t, a.IsBlending(idx))
	assert.Zero(t, a.BlendProgress(idx))
	assert.Equal(t, "simple", a.BackendType().String())
}

func TestAnimator_InstanceBookkeeping(t *testing.T) {
	a := NewAnimator(BackendTypeSkeletal, WithMaxInstances(1))
	assert.Equal(t, uint32(1), a.MaxInstances())

	_, err := a.AddInstance(nil)
	require.ErrorIs(t, err, ErrNilNode)

	nodes := []scene.Node{newTestNode(), newTestNode(), newTestNode()}
	for i, n := range nodes {
		idx, err := a.AddInstance(n)
		require.NoError(t, err)
		assert.Equal(t, uint32(i), idx)
	}
	assert.Equal(t, uint32(3), a.InstanceCount())
	assert.GreaterOrEqual(t, a.MaxInstances(), uint32(3))

	moved, swapped := a.RemoveInstance(0)
	assert.True(t, swapped)
	assert.Equal(t, uint32(2), moved)
	assert.Same(t, nodes[2], a.Node(0))

	_, swapped = a.RemoveInstance(1)
	assert.False(t, swapped)
	assert.Equal(t, uint32(1), a.InstanceCount())
	assert.Nil(t, a.Node(5))

	_, swapped = a.RemoveInstance(9)
	assert.False(t, swapped)
}

func TestNewAnimator_PanicsOnUnknownBackend(t *testing.T) {
	assert.Panics(t, func() { NewAnimator(AnimatorBackendType(42)) })
}

// chain returns a skeletal animator with three bones stacked one unit apart along +Y.
func chain(t *testing.T, clips ...Clip) (Animator, scene.Node) {
	t.Helper()
	opts := []AnimatorBuilderOption{WithSkeleton(3, [3]float32{0, 1, 0})}
	for _, c := range clips {
		opts = append(opts, WithClip(c))
	}
	a := NewAnimator(BackendTypeSkeletal, opts...)
	n := newTestNode()
	_, err := a.AddInstance(n)
	require.NoError(t, err)
	return a, n
}

func bendClip(name string, times []float32, angles ...float32) Clip {
	rots := make([][4]float32, len(angles))
	for i, angle := range angles {
		rots[i] = common.QuatFromAxisAngle(common.Vec3{0, 0, 1}, angle)
	}
	return Clip{
		Name:     name,
		Duration: times[len(times)-1],
		Channels: []Channel{{Bone: 1, Times: times, Rotations: rots}},
	}
}

func TestSkeletalAnimator_BindPoseIsIdentityPalette(t *testing.T) {
	a, n := chain(t)
	a.PrepareFrame(0.016)

	bones := n.Bones()
	require.Len(t, bones, 3)
	identity := common.IdentityMatrix()
	for _, b := range bones {
		assert.InDeltaSlice(t, identity[:], b[:], 1e-5)
	}
}

func TestSkeletalAnimator_SamplesClip(t *testing.T) {
	a, n := chain(t, bendClip("bend", []float32{0, 1}, 0, math32.Pi/2))
	a.PlayAnimation(0, 0, false)

	a.PrepareFrame(0.5)
	bones := n.Bones()
	s := math32.Sin(math32.Pi / 4)
	// bone 1 pivots at y=1, so the tip at y=2 swings toward -X
	assertPoint(t, bones[2], common.Vec3{0, 2, 0}, common.Vec3{-s, 1 + s, 0})
	assertPoint(t, bones[1], common.Vec3{0, 1, 0}, common.Vec3{0, 1, 0})
	assertPoint(t, bones[0], common.Vec3{0, 0.5, 0}, common.Vec3{0, 0.5, 0})

	// non-looping playback clamps at the end
	a.PrepareFrame(10)
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{-1, 1, 0})
}

func TestSkeletalAnimator_LoopsAndSpeed(t *testing.T) {
	a, n := chain(t, bendClip("bend", []float32{0, 1}, 0, math32.Pi/2))
	a.PlayAnimation(0, 0, true)
	a.SetAnimationSpeed(0, 2)

	a.PrepareFrame(0.75) // 1.5s of clip time wraps to 0.5
	s := math32.Sin(math32.Pi / 4)
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{-s, 1 + s, 0})

	a.SetAnimationSpeed(0, 1)
	a.SetAnimationTime(0, 3)
	a.PrepareFrame(0)
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{0, 2, 0})
}

func TestSkeletalAnimator_BlendsBetweenClips(t *testing.T) {
	a, n := chain(t,
		bendClip("rest", []float32{0, 1}, 0, 0),
		bendClip("bent", []float32{0}, math32.Pi/2),
	)
	a.PlayAnimation(0, 0, true)
	a.BlendToAnimation(0, 1, 1)

	a.PrepareFrame(0.5)
	assert.True(t, a.IsBlending(0))
	assert.InDelta(t, 0.5, a.BlendProgress(0), 1e-5)
	s := math32.Sin(math32.Pi / 4)
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{-s, 1 + s, 0})

	a.PrepareFrame(0.5)
	assert.False(t, a.IsBlending(0))
	assert.Zero(t, a.BlendProgress(0))
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{-1, 1, 0})
}

func TestSkeletalAnimator_CancelBlendKeepsCurrentClip(t *testing.T) {
	a, n := chain(t,
		bendClip("rest", []float32{0, 1}, 0, 0),
		bendClip("bent", []float32{0}, math32.Pi/2),
	)
	a.PlayAnimation(0, 0, true)
	a.BlendToAnimation(0, 1, 2)
	a.PrepareFrame(0.5)
	a.CancelBlend(0)
	a.PrepareFrame(0.5)

	assert.False(t, a.IsBlending(0))
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{0, 2, 0})
}

func TestSkeletalAnimator_BlendWithoutPlaybackStartsImmediately(t *testing.T) {
	a, n := chain(t, bendClip("bent", []float32{0}, math32.Pi/2))
	a.BlendToAnimation(0, 0, 1)
	assert.False(t, a.IsBlending(0))

	a.PrepareFrame(0.1)
	assertPoint(t, n.Bones()[2], common.Vec3{0, 2, 0}, common.Vec3{-1, 1, 0})
}

func TestSkeletalAnimator_InvalidClipIsStoredEmpty(t *testing.T) {
	a, n := chain(t)
	idx := a.AddClip(Clip{
		Name:     "broken",
		Duration: 1,
		Channels: []Channel{{Bone: 1, Times: []float32{0, 1}, Rotations: [][4]float32{{0, 0, 0, 1}}}},
	})
	assert.Equal(t, uint32(0), idx)

	a.PlayAnimation(0, idx, true)
	a.PrepareFrame(0.5)
	identity := common.IdentityMatrix()
	assert.InDeltaSlice(t, identity[:], n.Bones()[1][:], 1e-5)
}

func TestClipValidate(t *testing.T) {
	tests := []struct {
		name    string
		clip    Clip
		wantErr bool
	}{
		{"empty", Clip{Name: "idle"}, false},
		{"valid", bendClip("bend", []float32{0, 1}, 0, 1), false},
		{"negative duration", Clip{Duration: -1}, true},
		{"no keys", Clip{Channels: []Channel{{Bone: 0}}}, true},
		{"unsorted", Clip{Channels: []Channel{{Times: []float32{1, 0}}}}, true},
		{"track length", Clip{Channels: []Channel{{Times: []float32{0, 1}, Scales: [][3]float32{{1, 1, 1}}}}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.clip.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidClip)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWrapTime(t *testing.T) {
	assert.InDelta(t, 0.5, wrapTime(2.5, 1, true), 1e-6)
	assert.InDelta(t, 0.75, wrapTime(-0.25, 1, true), 1e-6)
	assert.Equal(t, float32(1), wrapTime(2.5, 1, false))
	assert.Zero(t, wrapTime(-1, 1, false))
	assert.Zero(t, wrapTime(5, 0, true))
}
