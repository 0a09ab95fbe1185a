package animator

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithMaxInstances is an option builder that sets the initial instance capacity.
//
// Parameters:
//   - maxInstances: the number of instances to reserve
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the max instances option to an animator
func WithMaxInstances(maxInstances int) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.SetMaxInstances(uint32(maxInstances))
	}
}

// WithSkeleton is an option builder that installs a chain skeleton: count bones, each offset
// from its parent by step, with inverse bind matrices matching that rest pose. Only skeletal
// animators use it.
//
// Parameters:
//   - count: the number of bones
//   - step: the bind translation of every bone relative to its parent
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the skeleton option to an animator
func WithSkeleton(count int, step [3]float32) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.SetBoneCount(uint32(count))
		for i := 0; i < count; i++ {
			parent := int32(i - 1)
			local := [3]float32{}
			if i > 0 {
				local = step
			}
			f := float32(i)
			inverse := [16]float32{
				1, 0, 0, 0,
				0, 1, 0, 0,
				0, 0, 1, 0,
				-step[0] * f, -step[1] * f, -step[2] * f, 1,
			}
			a.backend.SetBone(uint32(i), inverse, local, [4]float32{0, 0, 0, 1}, [3]float32{1, 1, 1}, parent)
		}
	}
}

// WithClip is an option builder that adds an animation clip at construction.
//
// Parameters:
//   - clip: the clip to add
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the clip option to an animator
func WithClip(clip Clip) AnimatorBuilderOption {
	return func(a *animator) {
		a.backend.AddClip(clip)
	}
}
