package ssr

import (
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/filter"
	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// PipelineBuilderOption is a functional option applied to a pipeline during construction via NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithDevice sets the device every pass runs on.
//
// Parameters:
//   - d: the device
//
// Returns:
//   - PipelineBuilderOption: a function that applies the device to a pipeline
func WithDevice(d device.Device) PipelineBuilderOption {
	return func(p *pipeline) {
		p.device = d
	}
}

// WithScene sets the scene the geometry and velocity passes draw.
//
// Parameters:
//   - sc: the scene
//
// Returns:
//   - PipelineBuilderOption: a function that applies the scene to a pipeline
func WithScene(sc scene.Scene) PipelineBuilderOption {
	return func(p *pipeline) {
		p.scene = sc
	}
}

// WithCamera sets the camera snapshotted at the start of every frame.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - PipelineBuilderOption: a function that applies the camera to a pipeline
func WithCamera(c camera.Camera) PipelineBuilderOption {
	return func(p *pipeline) {
		p.camera = c
	}
}

// WithOptions replaces the default options. A non-zero Width and Height allocate the targets during construction.
//
// Parameters:
//   - o: the options
//
// Returns:
//   - PipelineBuilderOption: a function that applies the options to a pipeline
func WithOptions(o Options) PipelineBuilderOption {
	return func(p *pipeline) {
		p.options = o
	}
}

// WithBlur replaces the default edge-aware Kawase blur. Its kernel size follows the options.
//
// Parameters:
//   - k: the blur
//
// Returns:
//   - PipelineBuilderOption: a function that applies the blur to a pipeline
func WithBlur(k filter.Kawase) PipelineBuilderOption {
	return func(p *pipeline) {
		p.blur = k
	}
}

// WithProfiler times every pass. Ticking the profiler is left to whoever drives the frames.
//
// Parameters:
//   - pr: the profiler
//
// Returns:
//   - PipelineBuilderOption: a function that applies the profiler to a pipeline
func WithProfiler(pr *profiler.Profiler) PipelineBuilderOption {
	return func(p *pipeline) {
		p.profiler = pr
	}
}
