package main

import (
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/ssr"
	"github.com/Carmen-Shannon/oxy-ssr/engine/window"
)

// optionStore is the keyed option surface of the pipeline.
type optionStore interface {
	Get(key string) (any, error)
	Set(key string, value any) error
}

const (
	keyOrbitSpeed = 1.5  // radians per second
	keyZoomSpeed  = 8.0  // zoom units per second
	keyPanSpeed   = 40.0 // pan units per second
	dragOrbit     = 0.005
	dragPan       = 0.2
	shiftBoost    = 3
)

// toggleKeys flip one boolean option each.
var toggleKeys = map[uint32]string{
	common.KeyB: "useBlur",
	common.KeyJ: "enableJittering",
	common.KeyM: "useMRT",
	common.KeyN: "useNormalMap",
	common.KeyR: "useRoughnessMap",
	common.KeyT: "temporalResolve",
}

// controls collects window input on the message loop goroutine and applies it to the camera
// on the tick goroutine.
type controls struct {
	mu      *sync.Mutex
	options optionStore

	held     map[uint32]bool
	dragging [3]bool
	lastX    int32
	lastY    int32

	orbit [2]float32
	pan   [2]float32
	zoom  float32

	paused  bool
	profile bool
	reload  bool
}

func newControls(options optionStore) *controls {
	return &controls{
		mu:      &sync.Mutex{},
		options: options,
		held:    make(map[uint32]bool),
	}
}

// bind installs the input callbacks on w.
func (c *controls) bind(w window.Window) {
	w.SetKeyDownCallback(c.keyDown)
	w.SetKeyUpCallback(c.keyUp)
	w.SetMouseButtonCallback(c.mouseButton)
	w.SetMouseMoveCallback(c.mouseMove)
	w.SetScrollCallback(c.scroll)
}

func (c *controls) keyDown(code uint32) {
	c.mu.Lock()
	repeat := c.held[code]
	c.held[code] = true
	c.mu.Unlock()
	if repeat {
		return
	}

	if key, ok := toggleKeys[code]; ok {
		c.toggle(key)
		return
	}
	switch {
	case code == common.KeyO:
		c.cycleOutputMode()
	case code >= common.Key0 && code <= common.Key0+uint32(ssr.OutputBlurMix):
		c.setOption("outputMode", ssr.OutputMode(code-common.Key0))
	case code == common.KeySpace:
		c.mu.Lock()
		c.paused = !c.paused
		c.mu.Unlock()
	case code == common.KeyP:
		c.mu.Lock()
		c.profile = !c.profile
		c.mu.Unlock()
	case code == common.KeyF5:
		c.mu.Lock()
		c.reload = true
		c.mu.Unlock()
	}
}

func (c *controls) keyUp(code uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.held, code)
}

func (c *controls) mouseButton(button int, pressed bool, x, y int32) {
	if button < 0 || button >= len(c.dragging) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dragging[button] = pressed
	c.lastX, c.lastY = x, y
}

func (c *controls) mouseMove(x, y int32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	dx, dy := float32(x-c.lastX), float32(y-c.lastY)
	c.lastX, c.lastY = x, y
	switch {
	case c.dragging[window.MouseButtonLeft]:
		c.orbit[0] += dx * dragOrbit
		c.orbit[1] += dy * dragOrbit
	case c.dragging[window.MouseButtonRight], c.dragging[window.MouseButtonMiddle]:
		c.pan[0] -= dx * dragPan
		c.pan[1] += dy * dragPan
	}
}

func (c *controls) scroll(delta float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.zoom += delta
}

func (c *controls) toggle(key string) {
	v, err := c.options.Get(key)
	if err != nil {
		log.Printf("[View] %v", err)
		return
	}
	on, _ := v.(bool)
	c.setOption(key, !on)
}

func (c *controls) cycleOutputMode() {
	v, err := c.options.Get("outputMode")
	if err != nil {
		log.Printf("[View] %v", err)
		return
	}
	mode, _ := v.(ssr.OutputMode)
	c.setOption("outputMode", (mode+1)%(ssr.OutputBlurMix+1))
}

func (c *controls) setOption(key string, value any) {
	if err := c.options.Set(key, value); err != nil {
		log.Printf("[View] %s: %v", key, err)
		return
	}
	log.Printf("[View] %s = %v", key, value)
}

// apply moves the orbit controller by the held keys over dt seconds and by the mouse motion
// gathered since the last call.
func (c *controls) apply(ctrl camera.OrbitController, dt float32) {
	if ctrl == nil {
		return
	}
	c.mu.Lock()
	held := func(code uint32) float32 {
		if c.held[code] {
			return 1
		}
		return 0
	}
	boost := float32(1)
	if c.held[common.KeyLeftShift] || c.held[common.KeyRightShift] {
		boost = shiftBoost
	}
	step := dt * boost
	orbit := [2]float32{
		c.orbit[0] + (held(common.KeyD)-held(common.KeyA))*keyOrbitSpeed*step,
		c.orbit[1] + (held(common.KeyW)-held(common.KeyS))*keyOrbitSpeed*step,
	}
	pan := [2]float32{
		c.pan[0] + (held(common.KeyRight)-held(common.KeyLeft))*keyPanSpeed*step,
		c.pan[1] + (held(common.KeyUp)-held(common.KeyDown))*keyPanSpeed*step,
	}
	zoom := c.zoom + (held(common.KeyE)-held(common.KeyQ))*keyZoomSpeed*step
	c.orbit, c.pan, c.zoom = [2]float32{}, [2]float32{}, 0
	c.mu.Unlock()

	if orbit != ([2]float32{}) {
		ctrl.Orbit(orbit[0], orbit[1])
	}
	if pan != ([2]float32{}) {
		ctrl.Pan(pan[0], pan[1])
	}
	if zoom != 0 {
		ctrl.Zoom(zoom)
	}
}

func (c *controls) isPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

func (c *controls) profiling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.profile
}

// takeReload reports and clears a pending reload request.
func (c *controls) takeReload() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.reload
	c.reload = false
	return r
}
