// Package device defines the host device the reflection passes run on: render targets,
// full-screen program execution, scene rendering under a render-mode context, copies and
// pixel access. The software backend in this package needs no GPU; package wgpu_device
// provides the hardware backend.
package device

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/camera"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

var (
	// ErrDeviceLost is returned by every operation once the device has been released or lost.
	ErrDeviceLost = errors.New("device lost")

	// ErrInvalidTarget is returned when a target is nil, released, foreign to the device, or of the wrong shape.
	ErrInvalidTarget = errors.New("invalid render target")

	// ErrUnsupportedFormat is returned when a target descriptor asks for a format or attachment count the device cannot provide.
	ErrUnsupportedFormat = errors.New("unsupported target format")

	// ErrUnknownMaterial is returned when a renderable references a material handle the registry does not hold.
	ErrUnknownMaterial = errors.New("unknown material handle")
)

// Format is the pixel format of a render target attachment.
type Format int

const (
	// FormatRGBA8 stores four 8-bit unsigned normalized channels.
	FormatRGBA8 Format = iota

	// FormatRGBA16F stores four half-precision float channels.
	FormatRGBA16F

	// FormatRGBA32F stores four single-precision float channels. Not filterable on every device.
	FormatRGBA32F
)

// String returns the lowercase format name.
func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "rgba8"
	case FormatRGBA16F:
		return "rgba16f"
	case FormatRGBA32F:
		return "rgba32f"
	default:
		return "unknown"
	}
}

// Filter selects how a target is sampled when bound as an input.
type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

// TargetDescriptor describes an off-screen render target.
type TargetDescriptor struct {
	Label  string
	Width  int
	Height int
	Format Format
	Filter Filter

	// Attachments is the number of color attachments; zero means one.
	Attachments int

	// Depth requests a depth attachment for scene rendering.
	Depth bool
}

// Target is an off-screen image with one or more color attachments.
type Target interface {
	Label() string
	Width() int
	Height() int
	Format() Format
	Filter() Filter
	Attachments() int
	HasDepth() bool
}

// Input binds one attachment of a target as a sampled texture.
type Input struct {
	Target     Target
	Attachment int
}

// Bind returns an Input for attachment 0 of t.
func Bind(t Target) Input {
	return Input{Target: t}
}

// BindAttachment returns an Input for the given attachment of t.
func BindAttachment(t Target, attachment int) Input {
	return Input{Target: t, Attachment: attachment}
}

// ObjectHistory reports an object's state from the previous frame.
type ObjectHistory interface {
	// Previous returns the world matrix and bone palette recorded for id in the previous frame.
	//
	// Parameters:
	//   - id: the scene node ID
	//
	// Returns:
	//   - [16]float32: the previous world matrix
	//   - [][16]float32: the previous bone palette, nil for unskinned objects
	//   - bool: false when the object was not seen in the previous frame
	Previous(id uint64) ([16]float32, [][16]float32, bool)
}

// ProgramResolver chooses the program a material is drawn with for one render call.
type ProgramResolver interface {
	// Resolve returns the program for the material handle.
	//
	// Parameters:
	//   - h: the material handle
	//
	// Returns:
	//   - shader.SurfaceProgram: the program to draw with
	//   - error: an error if the handle cannot be resolved
	Resolve(h material.Handle) (shader.SurfaceProgram, error)
}

// MaterialPrograms resolves every handle to the source material's own program.
type MaterialPrograms struct {
	Registry material.Registry
}

// Resolve implements ProgramResolver.
func (m MaterialPrograms) Resolve(h material.Handle) (shader.SurfaceProgram, error) {
	mat, ok := m.Registry.Lookup(h)
	if !ok {
		return nil, fmt.Errorf("handle %d: %w", h, ErrUnknownMaterial)
	}
	return mat.Program(), nil
}

// RenderContext is the immutable per-call configuration of a scene render. The scene itself is
// never modified; what gets drawn is decided entirely by the context.
type RenderContext struct {
	Mode shader.RenderMode

	// Programs resolves material handles. Nil draws each material with its own program.
	Programs ProgramResolver

	Camera camera.FrameState

	// PrevCamera is the previous frame's camera. A zero value means "same as Camera".
	PrevCamera camera.FrameState

	// History supplies previous object transforms. Nil means every object is new.
	History ObjectHistory

	// Clear is the value every color attachment is cleared to.
	Clear common.Vec4

	// Params is forwarded to programs through DrawContext.Params.
	Params common.Vec4
}

// Device is the host device abstraction.
type Device interface {
	// Name returns a human-readable backend name.
	Name() string

	// MaxColorAttachments returns the largest attachment count CreateTarget accepts.
	MaxColorAttachments() int

	// CreateTarget allocates a render target.
	//
	// Parameters:
	//   - desc: the target description
	//
	// Returns:
	//   - Target: the new target
	//   - error: ErrUnsupportedFormat, ErrInvalidTarget for bad sizes, or ErrDeviceLost
	CreateTarget(desc TargetDescriptor) (Target, error)

	// ReleaseTarget frees a target. Releasing nil or an already released target is a no-op.
	ReleaseTarget(t Target)

	// RenderScene draws every visible renderable of sc into dst under rc.
	// Color attachments are cleared to rc.Clear and depth to 1 first.
	//
	// Parameters:
	//   - dst: the target to draw into
	//   - sc: the scene to draw
	//   - rc: the render context
	//
	// Returns:
	//   - error: an error if a program cannot be resolved or the device fails
	RenderScene(dst Target, sc scene.Scene, rc *RenderContext) error

	// DrawFullscreen runs prog once per texel of dst's first attachment.
	//
	// Parameters:
	//   - dst: the output target, which must not also be bound as an input
	//   - prog: the program
	//   - inputs: one input per prog.Inputs()
	//   - uniform: the parameter block
	//
	// Returns:
	//   - error: an error if the bindings do not match the program or the device fails
	DrawFullscreen(dst Target, prog shader.FullscreenProgram, inputs []Input, uniform shader.Uniform) error

	// Copy copies every attachment of src into dst. Both targets must have the same size and attachment count.
	Copy(dst, src Target) error

	// ReadPixels returns one attachment as RGBA values, rows ordered top to bottom.
	ReadPixels(t Target, attachment int) ([]common.Vec4, error)

	// WritePixels replaces one attachment with RGBA values, rows ordered top to bottom.
	WritePixels(t Target, attachment int, pixels []common.Vec4) error

	// Release frees every resource. Subsequent calls return ErrDeviceLost.
	Release()
}

// PreviousCamera returns rc.PrevCamera, or rc.Camera when no previous camera was recorded.
func (rc *RenderContext) PreviousCamera() camera.FrameState {
	if rc.PrevCamera.Projection == ([16]float32{}) {
		return rc.Camera
	}
	return rc.PrevCamera
}

// ResolveProgram picks the program for a node's material under rc.
//
// Parameters:
//   - sc: the scene owning the node
//   - n: the node
//
// Returns:
//   - shader.SurfaceProgram: the program
//   - error: an error if the handle cannot be resolved
func (rc *RenderContext) ResolveProgram(sc scene.Scene, n scene.Node) (shader.SurfaceProgram, error) {
	if rc.Programs != nil {
		return rc.Programs.Resolve(n.Material())
	}
	return MaterialPrograms{Registry: sc.Materials()}.Resolve(n.Material())
}

// NewDrawContext builds the per-object draw context for n rendered into a width x height target.
//
// Parameters:
//   - rc: the render context
//   - n: the node being drawn
//   - width, height: the output size in texels
//
// Returns:
//   - shader.DrawContext: the draw context
func NewDrawContext(rc *RenderContext, n scene.Node, width, height int) shader.DrawContext {
	prevCam := rc.PreviousCamera()
	world := n.World()
	bones := n.Bones()
	prevWorld, prevBones := world, bones
	if rc.History != nil {
		if w, b, ok := rc.History.Previous(n.ID()); ok {
			prevWorld = w
			if len(b) == len(bones) {
				prevBones = b
			}
		}
	}
	modelView := common.Mul4x(rc.Camera.View, world)
	return shader.DrawContext{
		ObjectID:       n.ID(),
		World:          world,
		PrevWorld:      prevWorld,
		Bones:          bones,
		PrevBones:      prevBones,
		View:           rc.Camera.View,
		Projection:     rc.Camera.Projection,
		PrevView:       prevCam.View,
		PrevProjection: prevCam.Projection,
		ModelView:      modelView,
		NormalMatrix:   common.NormalMatrix(modelView),
		Near:           rc.Camera.Near,
		Far:            rc.Camera.Far,
		Viewport:       common.Viewport{Width: width, Height: height},
		Params:         rc.Params,
	}
}

// Validate checks a target descriptor for sizes and attachment counts.
//
// Parameters:
//   - desc: the descriptor
//   - maxAttachments: the device limit
//
// Returns:
//   - error: ErrInvalidTarget or ErrUnsupportedFormat on a bad descriptor
func (desc TargetDescriptor) Validate(maxAttachments int) error {
	if desc.Width <= 0 || desc.Height <= 0 {
		return fmt.Errorf("%s: size %dx%d: %w", desc.Label, desc.Width, desc.Height, ErrInvalidTarget)
	}
	switch desc.Format {
	case FormatRGBA8, FormatRGBA16F, FormatRGBA32F:
	default:
		return fmt.Errorf("%s: format %d: %w", desc.Label, desc.Format, ErrUnsupportedFormat)
	}
	if n := desc.AttachmentCount(); n > maxAttachments {
		return fmt.Errorf("%s: %d color attachments, device supports %d: %w", desc.Label, n, maxAttachments, ErrUnsupportedFormat)
	}
	return nil
}

// AttachmentCount returns Attachments with zero mapped to one.
func (desc TargetDescriptor) AttachmentCount() int {
	return max(desc.Attachments, 1)
}
