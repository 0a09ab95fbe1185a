package ssr

import (
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

type objectState struct {
	world [16]float32
	bones [][16]float32
}

// FrameHistory is the state one frame leaves for the next: the camera it was rendered with,
// every object's world matrix and bone palette, and the sample counter. It is an immutable
// value; Next builds the successor instead of updating in place. The zero value means
// "no previous frame".
type FrameHistory struct {
	frame   uint64
	samples int
	camera  camera.FrameState
	objects map[uint64]objectState
}

var _ device.ObjectHistory = FrameHistory{}

// Valid reports whether the history was recorded from a rendered frame.
func (h FrameHistory) Valid() bool {
	return h.frame > 0
}

// Frame returns the number of frames rendered up to and including the recorded one.
func (h FrameHistory) Frame() uint64 {
	return h.frame
}

// Samples returns the sample counter of the recorded frame.
func (h FrameHistory) Samples() int {
	return h.samples
}

// Camera returns the recorded camera. The zero value is returned for an invalid history.
func (h FrameHistory) Camera() camera.FrameState {
	return h.camera
}

// Previous implements device.ObjectHistory.
func (h FrameHistory) Previous(id uint64) ([16]float32, [][16]float32, bool) {
	s, ok := h.objects[id]
	if !ok {
		return [16]float32{}, nil, false
	}
	return s.world, s.bones, true
}

// Next records the frame just rendered and returns the history for the frame after it.
// Bone palettes are copied so later skeleton updates cannot leak into the snapshot.
//
// Parameters:
//   - sc: the scene as it was drawn
//   - cam: the camera snapshot the frame used
//   - samples: the sample counter the frame used
//
// Returns:
//   - FrameHistory: the successor history
func (h FrameHistory) Next(sc scene.Scene, cam camera.FrameState, samples int) FrameHistory {
	nodes := sc.Nodes()
	objects := make(map[uint64]objectState, len(nodes))
	for _, n := range nodes {
		s := objectState{world: n.World()}
		if b := n.Bones(); len(b) > 0 {
			s.bones = append([][16]float32(nil), b...)
		}
		objects[n.ID()] = s
	}
	return FrameHistory{
		frame:   h.frame + 1,
		samples: samples,
		camera:  cam,
		objects: objects,
	}
}

// prevCamera returns the previous camera for a frame rendered after h.
func (h FrameHistory) prevCamera(cur camera.FrameState) camera.FrameState {
	if !h.Valid() {
		return cur
	}
	return h.camera
}
