package animator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

var (
	// ErrNilNode is returned when an instance is added without a scene node.
	ErrNilNode = errors.New("animator: nil node")

	// ErrInvalidClip is returned by Clip.Validate for malformed keyframe data.
	ErrInvalidClip = errors.New("animator: invalid clip")
)

// Clip is a named keyframed animation over a skeleton.
type Clip struct {
	Name     string
	Duration float32
	Channels []Channel
}

// Channel animates one bone. Times are ascending seconds; each non-empty track holds one key
// per time. A missing track leaves that component at the bone's bind pose.
type Channel struct {
	Bone         uint32
	Times        []float32
	Translations [][3]float32
	Rotations    [][4]float32
	Scales       [][3]float32
}

// Validate reports the first structural problem in the clip.
//
// Returns:
//   - error: an ErrInvalidClip wrapped with detail, or nil
func (c Clip) Validate() error {
	if c.Duration < 0 {
		return fmt.Errorf("%w: %q has negative duration", ErrInvalidClip, c.Name)
	}
	for i, ch := range c.Channels {
		n := len(ch.Times)
		if n == 0 {
			return fmt.Errorf("%w: %q channel %d has no keys", ErrInvalidClip, c.Name, i)
		}
		if !sort.SliceIsSorted(ch.Times, func(a, b int) bool { return ch.Times[a] < ch.Times[b] }) {
			return fmt.Errorf("%w: %q channel %d times are not ascending", ErrInvalidClip, c.Name, i)
		}
		for _, track := range []int{len(ch.Translations), len(ch.Rotations), len(ch.Scales)} {
			if track != 0 && track != n {
				return fmt.Errorf("%w: %q channel %d has %d keys for %d times", ErrInvalidClip, c.Name, i, track, n)
			}
		}
	}
	return nil
}

// pose is a bone's local transform.
type pose struct {
	t common.Vec3
	r common.Quat
	s common.Vec3
}

func (p pose) matrix() [16]float32 {
	return common.ComposeTRS(p.t, p.r, p.s)
}

func (p pose) blend(o pose, w float32) pose {
	return pose{
		t: p.t.Lerp(o.t, w),
		r: p.r.Slerp(o.r, w),
		s: p.s.Lerp(o.s, w),
	}
}

// keySpan locates t within times, returning the bracketing keys and the blend factor between
// them. Times outside the keyed range clamp to the first or last key.
func keySpan(times []float32, t float32) (int, int, float32) {
	last := len(times) - 1
	if t <= times[0] {
		return 0, 0, 0
	}
	if t >= times[last] {
		return last, last, 0
	}
	hi := sort.Search(len(times), func(i int) bool { return times[i] > t })
	lo := hi - 1
	span := times[hi] - times[lo]
	if span <= 0 {
		return lo, lo, 0
	}
	return lo, hi, (t - times[lo]) / span
}

// sample overrides base with the channel's tracks evaluated at t.
func (ch *Channel) sample(base pose, t float32) pose {
	lo, hi, w := keySpan(ch.Times, t)
	if len(ch.Translations) > 0 {
		base.t = common.Vec3(ch.Translations[lo]).Lerp(ch.Translations[hi], w)
	}
	if len(ch.Rotations) > 0 {
		base.r = common.Quat(ch.Rotations[lo]).Normalize().Slerp(common.Quat(ch.Rotations[hi]).Normalize(), w)
	}
	if len(ch.Scales) > 0 {
		base.s = common.Vec3(ch.Scales[lo]).Lerp(ch.Scales[hi], w)
	}
	return base
}

// wrapTime maps an advancing playhead onto [0, duration].
func wrapTime(t, duration float32, loop bool) float32 {
	if duration <= 0 {
		return 0
	}
	if !loop {
		return common.Clamp(t, 0, duration)
	}
	t = t - duration*float32(int(t/duration))
	if t < 0 {
		t += duration
	}
	return t
}
