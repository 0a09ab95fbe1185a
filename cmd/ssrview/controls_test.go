package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/ssr"
	"github.com/Carmen-Shannon/oxy-ssr/engine/window"
)

func newTestControls(t *testing.T) (*controls, *ssr.Options) {
	t.Helper()
	o := ssr.DefaultOptions()
	return newControls(&o), &o
}

func TestControlsToggleOnPressOnly(t *testing.T) {
	c, o := newTestControls(t)
	require.True(t, o.UseBlur)

	c.keyDown(common.KeyB)
	assert.False(t, o.UseBlur)

	// Key repeat must not flip the option back.
	c.keyDown(common.KeyB)
	assert.False(t, o.UseBlur)

	c.keyUp(common.KeyB)
	c.keyDown(common.KeyB)
	assert.True(t, o.UseBlur)

	c.keyDown(common.KeyT)
	assert.False(t, o.TemporalResolve)
}

func TestControlsOutputMode(t *testing.T) {
	c, o := newTestControls(t)

	c.keyDown(common.Key3)
	assert.Equal(t, ssr.OutputBlurred, o.OutputMode)

	for range 3 {
		c.keyDown(common.KeyO)
		c.keyUp(common.KeyO)
	}
	assert.Equal(t, ssr.OutputDefault, o.OutputMode)

	// Digits beyond the last mode are ignored.
	c.keyDown(common.Key9)
	assert.Equal(t, ssr.OutputDefault, o.OutputMode)
}

func TestControlsFlags(t *testing.T) {
	c, _ := newTestControls(t)
	assert.False(t, c.isPaused())
	c.keyDown(common.KeySpace)
	assert.True(t, c.isPaused())

	c.keyDown(common.KeyP)
	assert.True(t, c.profiling())

	c.keyDown(common.KeyF5)
	assert.True(t, c.takeReload())
	assert.False(t, c.takeReload())
}

func TestControlsApplyMovesCamera(t *testing.T) {
	c, _ := newTestControls(t)
	ctrl := camera.NewOrbitController(camera.WithRadius(10), camera.WithAngles(0, 0))

	c.keyDown(common.KeyD)
	c.apply(ctrl, 0.5)
	assert.InDelta(t, keyOrbitSpeed*0.5, ctrl.Azimuth(), 1e-5)
	c.keyUp(common.KeyD)

	c.keyDown(common.KeyLeftShift)
	c.keyDown(common.KeyA)
	c.apply(ctrl, 0.1)
	assert.InDelta(t, keyOrbitSpeed*(0.5-0.1*shiftBoost), ctrl.Azimuth(), 1e-5)
	c.keyUp(common.KeyA)
	c.keyUp(common.KeyLeftShift)

	c.scroll(2)
	c.apply(ctrl, 0.1)
	assert.Less(t, ctrl.Radius(), float32(10))

	// Nothing held and no motion: the camera stays put.
	az, r := ctrl.Azimuth(), ctrl.Radius()
	c.apply(ctrl, 1)
	assert.Equal(t, az, ctrl.Azimuth())
	assert.Equal(t, r, ctrl.Radius())
}

func TestControlsMouseDrag(t *testing.T) {
	c, _ := newTestControls(t)
	ctrl := camera.NewOrbitController(camera.WithAngles(0, 0))

	c.mouseMove(100, 100)
	c.apply(ctrl, 0)
	assert.Zero(t, ctrl.Azimuth())

	c.mouseButton(window.MouseButtonLeft, true, 100, 100)
	c.mouseMove(140, 100)
	c.apply(ctrl, 0)
	assert.InDelta(t, 40*dragOrbit, ctrl.Azimuth(), 1e-5)

	c.mouseButton(window.MouseButtonLeft, false, 140, 100)
	c.mouseMove(200, 100)
	c.apply(ctrl, 0)
	assert.InDelta(t, 40*dragOrbit, ctrl.Azimuth(), 1e-5)

	c.mouseButton(7, true, 0, 0)
}
