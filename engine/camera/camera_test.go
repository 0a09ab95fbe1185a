package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
)

func TestSnapshotProjectsTarget(t *testing.T) {
	c := NewCamera(WithAspect(2), WithClipPlanes(0.5, 50))
	fs := c.Snapshot(common.Viewport{Width: 200, Height: 100})
	assert.Equal(t, 200, fs.Viewport.Width)
	assert.Equal(t, float32(0.5), fs.Near)
	assert.Equal(t, float32(50), fs.Far)

	uv, ok := fs.Project(common.Vec3{})
	require.True(t, ok)
	assert.InDelta(t, 0.5, uv[0], 1e-5)
	assert.InDelta(t, 0.5, uv[1], 1e-5)
	assert.Greater(t, uv[2], float32(0))
	assert.Less(t, uv[2], float32(1))

	// Points up and to the right land up and to the right on screen.
	uv, ok = fs.Project(common.Vec3{0.5, 0.5, 0})
	require.True(t, ok)
	assert.Greater(t, uv[0], float32(0.5))
	assert.Greater(t, uv[1], float32(0.5))

	_, ok = fs.Project(common.Vec3{0, 0, 10})
	assert.False(t, ok)
}

func TestWorldInvertsView(t *testing.T) {
	c := NewCamera(WithPosition(common.Vec3{3, 2, 4}), WithTarget(common.Vec3{0, 1, 0}))
	m := common.Mul4x(c.WorldMatrix(), c.ViewMatrix())
	id := common.IdentityMatrix()
	for i := range m {
		assert.InDelta(t, id[i], m[i], 1e-5, "element %d", i)
	}
	assert.Equal(t, common.Vec3{3, 2, 4}, c.Snapshot(common.Viewport{}).Position)
}

func TestCameraFollowsController(t *testing.T) {
	ctrl := NewOrbitController(WithRadius(10), WithAngles(0, 0))
	c := NewCamera(WithController(ctrl))
	assert.InDelta(t, 10, c.Position()[2], 1e-5)

	ctrl.Orbit(math32.Pi/2, 0)
	// The camera only picks up controller motion on Update.
	assert.InDelta(t, 10, c.Position()[2], 1e-5)
	c.Update()
	assert.InDelta(t, 10, c.Position()[0], 1e-4)
	assert.InDelta(t, 0, c.Position()[2], 1e-4)
}

func TestOrbitControllerClamps(t *testing.T) {
	ctrl := NewOrbitController(WithAngles(0, 0))
	assert.Equal(t, float32(6), ctrl.Radius())

	ctrl.Zoom(1000)
	assert.Equal(t, float32(0.5), ctrl.Radius())
	ctrl.Zoom(-10000)
	assert.Equal(t, float32(200), ctrl.Radius())

	ctrl.Orbit(0, 10)
	assert.InDelta(t, math32.Pi/2-0.05, ctrl.Elevation(), 1e-6)
	ctrl.Orbit(0, -20)
	assert.InDelta(t, -math32.Pi/2+0.05, ctrl.Elevation(), 1e-6)
}

func TestOrbitControllerPan(t *testing.T) {
	ctrl := NewOrbitController(WithAngles(0, 0), WithRadius(4))
	ctrl.Pan(1, 0)
	target := ctrl.Target()
	assert.InDelta(t, 0.05, target[0], 1e-6)
	assert.InDelta(t, 0, target[1], 1e-6)

	// The eye moves with the target.
	pos := ctrl.Position()
	assert.InDelta(t, 0.05, pos[0], 1e-6)
	assert.InDelta(t, 4, pos[2], 1e-6)
}
