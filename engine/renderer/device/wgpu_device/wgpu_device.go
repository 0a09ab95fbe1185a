// Package wgpu_device implements the host device on WebGPU. Programs run as WGSL render
// pipelines; targets are GPU textures and pixel access goes through staging buffers.
package wgpu_device

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSurfaceNotConfigured is returned by Present before ConfigureSurface succeeded.
var ErrSurfaceNotConfigured = errors.New("surface not configured")

// WgpuDevice is a device.Device that can additionally present a target to a window surface.
type WgpuDevice interface {
	device.Device

	// ConfigureSurface (re)configures the window surface. Requires a surface descriptor.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: ErrSurfaceNotConfigured when the device was built without a surface
	ConfigureSurface(width, height int) error

	// Present blits attachment 0 of t to the surface and presents it.
	//
	// Parameters:
	//   - t: the target to show, stretched to the surface size
	//
	// Returns:
	//   - error: an error if the surface is not configured or the frame cannot be acquired
	Present(t device.Target) error
}

// meshBuffers are the uploaded vertex and index buffers of one mesh.
type meshBuffers struct {
	vertex     *wgpu.Buffer
	index      *wgpu.Buffer
	indexCount uint32
}

// materialTexture is an uploaded material map.
type materialTexture struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
}

type wgpuDeviceImpl struct {
	mu *sync.Mutex

	name                 string
	maxAttachments       int
	forceFallbackAdapter bool
	surfaceDescriptor    *wgpu.SurfaceDescriptor

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surface           *wgpu.Surface
	surfaceFormat     wgpu.TextureFormat
	surfaceConfigured bool

	frameLayout    *wgpu.BindGroupLayout
	objectLayout   *wgpu.BindGroupLayout
	materialLayout *wgpu.BindGroupLayout
	surfaceLayout  *wgpu.PipelineLayout

	fullscreen map[string]*fullscreenPipeline
	surfaces   map[string]*surfacePipeline
	meshes     map[uint64]*meshBuffers
	textures   map[uint64]*materialTexture

	white           *materialTexture
	materialSampler *wgpu.Sampler

	present shader.FullscreenProgram

	released bool
}

var _ WgpuDevice = &wgpuDeviceImpl{}

// NewWgpuDevice creates a WebGPU device. Without a surface descriptor the device is headless.
// Defaults: four color attachments, hardware adapter.
//
// Parameters:
//   - options: variadic list of WgpuDeviceBuilderOption functions
//
// Returns:
//   - WgpuDevice: the device
//   - error: an error if no adapter or device could be acquired
func NewWgpuDevice(options ...WgpuDeviceBuilderOption) (WgpuDevice, error) {
	runtime.LockOSThread()
	d := &wgpuDeviceImpl{
		mu:             &sync.Mutex{},
		name:           "wgpu",
		maxAttachments: 4,
		fullscreen:     make(map[string]*fullscreenPipeline),
		surfaces:       make(map[string]*surfacePipeline),
		meshes:         make(map[uint64]*meshBuffers),
		textures:       make(map[uint64]*materialTexture),
	}
	for _, option := range options {
		option(d)
	}

	d.instance = wgpu.CreateInstance(nil)
	if d.surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(d.surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: d.forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	d.adapter = a

	limits := wgpu.DefaultLimits()
	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Reflection Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	if err := d.initSurfaceLayouts(); err != nil {
		return nil, err
	}
	if err := d.initDefaults(); err != nil {
		return nil, err
	}
	d.present = shader.NewBlitProgram()

	log.Printf("[Device] %s: %d color attachments, surface=%t", d.name, d.maxAttachments, d.surface != nil)
	return d, nil
}

func (d *wgpuDeviceImpl) Name() string {
	return d.name
}

func (d *wgpuDeviceImpl) MaxColorAttachments() int {
	return d.maxAttachments
}

func (d *wgpuDeviceImpl) CreateTarget(desc device.TargetDescriptor) (device.Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, device.ErrDeviceLost
	}
	if err := desc.Validate(d.maxAttachments); err != nil {
		return nil, err
	}
	return newWgpuTarget(d, desc)
}

func (d *wgpuDeviceImpl) ReleaseTarget(t device.Target) {
	wt, ok := t.(*wgpuTarget)
	if !ok || wt == nil || wt.owner != d {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	wt.release()
}

// target checks that t is a live target of this device. Caller holds the lock.
func (d *wgpuDeviceImpl) target(t device.Target) (*wgpuTarget, error) {
	if d.released {
		return nil, device.ErrDeviceLost
	}
	wt, ok := t.(*wgpuTarget)
	if !ok || wt == nil || wt.owner != d || wt.released {
		return nil, device.ErrInvalidTarget
	}
	return wt, nil
}

func (d *wgpuDeviceImpl) DrawFullscreen(dst device.Target, prog shader.FullscreenProgram, inputs []device.Input, uniform shader.Uniform) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.target(dst)
	if err != nil {
		return fmt.Errorf("%s: output: %w", prog.Key(), err)
	}
	if len(inputs) != prog.Inputs() {
		return fmt.Errorf("%s: %d inputs bound, program reads %d: %w", prog.Key(), len(inputs), prog.Inputs(), device.ErrInvalidTarget)
	}
	return d.drawFullscreen(out.views[0], out.gpuFormat(), prog, inputs, uniform, out)
}

// drawFullscreen encodes and submits one full-screen pass into view. Caller holds the lock.
func (d *wgpuDeviceImpl) drawFullscreen(view *wgpu.TextureView, format wgpu.TextureFormat, prog shader.FullscreenProgram, inputs []device.Input, uniform shader.Uniform, out *wgpuTarget) error {
	bound := make([]*wgpuTarget, len(inputs))
	formats := make([]device.Format, len(inputs))
	for i, in := range inputs {
		t, err := d.target(in.Target)
		if err != nil {
			return fmt.Errorf("%s: input %d: %w", prog.Key(), i, err)
		}
		if out != nil && t == out {
			return fmt.Errorf("%s: input %d is the output target: %w", prog.Key(), i, device.ErrInvalidTarget)
		}
		if in.Attachment < 0 || in.Attachment >= t.Attachments() {
			return fmt.Errorf("%s: input %d attachment %d: %w", prog.Key(), i, in.Attachment, device.ErrInvalidTarget)
		}
		bound[i] = t
		formats[i] = t.desc.Format
	}

	p, err := d.fullscreenPipelineFor(prog, format, formats)
	if err != nil {
		return err
	}

	var data []byte
	if uniform != nil {
		data = uniform.Bytes()
	}
	ubo, err := d.uniformBuffer(prog.Key()+" Uniform", data)
	if err != nil {
		return err
	}
	defer ubo.Release()

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: ubo, Offset: 0, Size: wgpu.WholeSize},
	}
	for i, t := range bound {
		entries = append(entries,
			wgpu.BindGroupEntry{Binding: uint32(1 + 2*i), TextureView: t.views[inputs[i].Attachment]},
			wgpu.BindGroupEntry{Binding: uint32(2 + 2*i), Sampler: t.sampler},
		)
	}
	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   prog.Key() + " Bind Group",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("%s: bind group: %w", prog.Key(), err)
	}
	defer bindGroup.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	return d.submit(encoder)
}

func (d *wgpuDeviceImpl) RenderScene(dst device.Target, sc scene.Scene, rc *device.RenderContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.target(dst)
	if err != nil {
		return fmt.Errorf("render %s: %w", rc.Mode, err)
	}

	depthView := out.depthView
	if depthView == nil {
		tex, view, err := d.createDepth(out.desc.Label+" Transient", out.desc.Width, out.desc.Height)
		if err != nil {
			return err
		}
		defer tex.Release()
		defer view.Release()
		depthView = view
	}

	var releases []interface{ Release() }
	defer func() {
		for _, r := range releases {
			r.Release()
		}
	}()

	frameUniform := shader.GPUFrameUniform{
		View:           rc.Camera.View,
		Projection:     rc.Camera.Projection,
		PrevView:       rc.PreviousCamera().View,
		PrevProjection: rc.PreviousCamera().Projection,
		Camera:         [4]float32{rc.Camera.Near, rc.Camera.Far, float32(out.desc.Width), float32(out.desc.Height)},
		Params:         rc.Params,
	}
	frameBuffer, err := d.uniformBuffer("Frame Uniform", frameUniform.Bytes())
	if err != nil {
		return err
	}
	releases = append(releases, frameBuffer)
	frameGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Frame Bind Group",
		Layout:  d.frameLayout,
		Entries: []wgpu.BindGroupEntry{{Binding: 0, Buffer: frameBuffer, Offset: 0, Size: wgpu.WholeSize}},
	})
	if err != nil {
		return fmt.Errorf("frame bind group: %w", err)
	}
	releases = append(releases, frameGroup)

	type draw struct {
		pipeline *surfacePipeline
		mesh     *meshBuffers
		object   *wgpu.BindGroup
		material *wgpu.BindGroup
	}
	var draws []draw
	for _, n := range sc.Nodes() {
		if !n.Visible() || n.Mesh() == nil || len(n.Mesh().Indices()) == 0 {
			continue
		}
		prog, err := rc.ResolveProgram(sc, n)
		if err != nil {
			return fmt.Errorf("node %d: %w", n.ID(), err)
		}
		p, err := d.surfacePipelineFor(prog, out)
		if err != nil {
			return err
		}
		mesh, err := d.meshBuffersFor(n.Mesh())
		if err != nil {
			return err
		}
		dc := device.NewDrawContext(rc, n, out.desc.Width, out.desc.Height)
		objectGroup, objectReleases, err := d.objectBindGroup(&dc, n.Mesh().Skinned())
		releases = append(releases, objectReleases...)
		if err != nil {
			return fmt.Errorf("node %d: %w", n.ID(), err)
		}
		materialGroup, materialReleases, err := d.materialBindGroup(prog.Resources())
		releases = append(releases, materialReleases...)
		if err != nil {
			return fmt.Errorf("node %d: %w", n.ID(), err)
		}
		draws = append(draws, draw{pipeline: p, mesh: mesh, object: objectGroup, material: materialGroup})
	}

	colors := make([]wgpu.RenderPassColorAttachment, out.Attachments())
	for i := range colors {
		colors[i] = wgpu.RenderPassColorAttachment{
			View:    out.views[i],
			LoadOp:  wgpu.LoadOpClear,
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: float64(rc.Clear[0]),
				G: float64(rc.Clear[1]),
				B: float64(rc.Clear[2]),
				A: float64(rc.Clear[3]),
			},
		}
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: colors,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})
	pass.SetBindGroup(groupFrame, frameGroup, nil)
	for _, dr := range draws {
		pass.SetPipeline(dr.pipeline.pipeline)
		pass.SetBindGroup(groupObject, dr.object, nil)
		pass.SetBindGroup(groupMaterial, dr.material, nil)
		pass.SetVertexBuffer(0, dr.mesh.vertex, 0, wgpu.WholeSize)
		pass.SetIndexBuffer(dr.mesh.index, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
		pass.DrawIndexed(dr.mesh.indexCount, 1, 0, 0, 0)
	}
	pass.End()

	return d.submit(encoder)
}

// objectBindGroup uploads the per-object uniform and bone palettes. The returned resources are
// released by the caller after submission.
func (d *wgpuDeviceImpl) objectBindGroup(dc *shader.DrawContext, skinned bool) (*wgpu.BindGroup, []interface{ Release() }, error) {
	var releases []interface{ Release() }
	flags := [4]float32{0, float32(len(dc.Bones)), 0, 0}
	if skinned && len(dc.Bones) > 0 {
		flags[0] = 1
	}
	u := shader.GPUObjectUniform{
		Model:        dc.World,
		PrevModel:    dc.PrevWorld,
		NormalMatrix: dc.NormalMatrix,
		Flags:        flags,
	}
	ubo, err := d.uniformBuffer("Object Uniform", u.Bytes())
	if err != nil {
		return nil, releases, err
	}
	releases = append(releases, ubo)

	bones, err := d.storageBuffer("Bones", matrixBytes(dc.Bones))
	if err != nil {
		return nil, releases, err
	}
	releases = append(releases, bones)
	prevBones, err := d.storageBuffer("Previous Bones", matrixBytes(dc.PrevBones))
	if err != nil {
		return nil, releases, err
	}
	releases = append(releases, prevBones)

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Object Bind Group",
		Layout: d.objectLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: ubo, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: bones, Offset: 0, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: prevBones, Offset: 0, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, releases, fmt.Errorf("object bind group: %w", err)
	}
	releases = append(releases, group)
	return group, releases, nil
}

// materialBindGroup binds a program's material uniform and maps. Missing maps bind a 1x1 white texture.
func (d *wgpuDeviceImpl) materialBindGroup(res shader.SurfaceResources) (*wgpu.BindGroup, []interface{ Release() }, error) {
	var releases []interface{ Release() }
	var data []byte
	if res.Uniform != nil {
		data = res.Uniform.Bytes()
	} else {
		var zero shader.GPUMaterialUniform
		data = zero.Bytes()
	}
	ubo, err := d.uniformBuffer("Material Uniform", data)
	if err != nil {
		return nil, releases, err
	}
	releases = append(releases, ubo)

	entries := []wgpu.BindGroupEntry{
		{Binding: 0, Buffer: ubo, Offset: 0, Size: wgpu.WholeSize},
		{Binding: 1, Sampler: d.materialSampler},
	}
	for i, s := range res.Textures {
		tex, err := d.materialTextureFor(s)
		if err != nil {
			return nil, releases, err
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: uint32(2 + i), TextureView: tex.view})
	}

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "Material Bind Group",
		Layout:  d.materialLayout,
		Entries: entries,
	})
	if err != nil {
		return nil, releases, fmt.Errorf("material bind group: %w", err)
	}
	releases = append(releases, group)
	return group, releases, nil
}

// materialTextureFor uploads a material map once per texture ID. Samplers that are not
// material textures bind the default white texture.
func (d *wgpuDeviceImpl) materialTextureFor(s shader.Sampler) (*materialTexture, error) {
	t, ok := s.(material.Texture)
	if !ok || t == nil {
		return d.white, nil
	}
	if cached, ok := d.textures[t.ID()]; ok {
		return cached, nil
	}
	w, h := t.Size()
	mt, err := d.uploadRGBA8(t.Name(), w, h, flipRows(t.RGBA8(), w*4, h))
	if err != nil {
		return nil, err
	}
	d.textures[t.ID()] = mt
	return mt, nil
}

// meshBuffersFor uploads a mesh's vertex and index data once per mesh ID.
func (d *wgpuDeviceImpl) meshBuffersFor(m model.Mesh) (*meshBuffers, error) {
	if cached, ok := d.meshes[m.ID()]; ok {
		return cached, nil
	}
	vertexData, indexData := m.VertexData(), m.IndexData()
	vb, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            m.Name() + " Vertex Buffer",
		Size:             uint64(len(vertexData)),
		Usage:            wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: vertex buffer: %w", m.Name(), err)
	}
	d.queue.WriteBuffer(vb, 0, vertexData)
	ib, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            m.Name() + " Index Buffer",
		Size:             uint64(len(indexData)),
		Usage:            wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
		MappedAtCreation: false,
	})
	if err != nil {
		vb.Release()
		return nil, fmt.Errorf("%s: index buffer: %w", m.Name(), err)
	}
	d.queue.WriteBuffer(ib, 0, indexData)

	mb := &meshBuffers{vertex: vb, index: ib, indexCount: uint32(len(m.Indices()))}
	d.meshes[m.ID()] = mb
	return mb, nil
}

func (d *wgpuDeviceImpl) Copy(dst, src device.Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	to, err := d.target(dst)
	if err != nil {
		return fmt.Errorf("copy destination: %w", err)
	}
	from, err := d.target(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	if to.desc.Width != from.desc.Width || to.desc.Height != from.desc.Height ||
		to.Attachments() != from.Attachments() || to.desc.Format != from.desc.Format {
		return fmt.Errorf("copy %s to %s: shape mismatch: %w", from.desc.Label, to.desc.Label, device.ErrInvalidTarget)
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	for i := range from.textures {
		encoder.CopyTextureToTexture(
			&wgpu.ImageCopyTexture{Texture: from.textures[i], MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
			&wgpu.ImageCopyTexture{Texture: to.textures[i], MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
			from.extent(),
		)
	}
	return d.submit(encoder)
}

func (d *wgpuDeviceImpl) ConfigureSurface(width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return device.ErrDeviceLost
	}
	if d.surface == nil {
		return ErrSurfaceNotConfigured
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.surfaceConfigured = true
	return nil
}

func (d *wgpuDeviceImpl) Present(t device.Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return device.ErrDeviceLost
	}
	if !d.surfaceConfigured {
		return ErrSurfaceNotConfigured
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("acquire surface texture: %w", err)
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}
	defer view.Release()
	defer surfaceTexture.Release()

	if err := d.drawFullscreen(view, d.surfaceFormat, d.present, []device.Input{device.Bind(t)}, nil, nil); err != nil {
		return err
	}
	d.surface.Present()
	return nil
}

func (d *wgpuDeviceImpl) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true

	for _, p := range d.fullscreen {
		p.pipeline.Release()
		p.layout.Release()
	}
	for _, p := range d.surfaces {
		p.pipeline.Release()
	}
	for _, m := range d.meshes {
		m.vertex.Release()
		m.index.Release()
	}
	for _, t := range d.textures {
		t.view.Release()
		t.texture.Release()
	}
	d.white.view.Release()
	d.white.texture.Release()
	d.materialSampler.Release()
	d.surfaceLayout.Release()
	d.frameLayout.Release()
	d.objectLayout.Release()
	d.materialLayout.Release()
	if d.surface != nil {
		d.surface.Release()
	}
	d.queue.Release()
	d.device.Release()
	d.adapter.Release()
	d.instance.Release()
	log.Printf("[Device] %s released", d.name)
}

// initDefaults creates the white fallback texture and the repeating material sampler.
func (d *wgpuDeviceImpl) initDefaults() error {
	white, err := d.uploadRGBA8("Default White", 1, 1, []byte{255, 255, 255, 255})
	if err != nil {
		return err
	}
	d.white = white

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Material Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("material sampler: %w", err)
	}
	d.materialSampler = samp
	return nil
}

// uploadRGBA8 creates a sampled RGBA8 texture from tightly packed rows.
func (d *wgpuDeviceImpl) uploadRGBA8(label string, width, height int, pixels []byte) (*materialTexture, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          *extent(width, height),
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: texture: %w", label, err)
	}
	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width * 4),
			RowsPerImage: uint32(height),
		},
		extent(width, height),
	)
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%s: view: %w", label, err)
	}
	return &materialTexture{texture: tex, view: view}, nil
}

// createDepth allocates a depth attachment.
func (d *wgpuDeviceImpl) createDepth(label string, width, height int) (*wgpu.Texture, *wgpu.TextureView, error) {
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label + " Depth",
		Usage:         wgpu.TextureUsageRenderAttachment,
		Dimension:     wgpu.TextureDimension2D,
		Size:          *extent(width, height),
		Format:        wgpu.TextureFormatDepth24Plus,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%s: depth texture: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("%s: depth view: %w", label, err)
	}
	return tex, view, nil
}

// uniformBuffer creates a uniform buffer holding data, padded to 16 bytes.
func (d *wgpuDeviceImpl) uniformBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	return d.filledBuffer(label, data, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst, 16)
}

// storageBuffer creates a read-only storage buffer holding data. Empty palettes get one zero matrix.
func (d *wgpuDeviceImpl) storageBuffer(label string, data []byte) (*wgpu.Buffer, error) {
	return d.filledBuffer(label, data, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst, 64)
}

func (d *wgpuDeviceImpl) filledBuffer(label string, data []byte, usage wgpu.BufferUsage, minSize int) (*wgpu.Buffer, error) {
	size := max(len(data), minSize)
	size = (size + 15) &^ 15
	padded := make([]byte, size)
	copy(padded, data)
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label + " Buffer",
		Size:  uint64(size),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: buffer: %w", label, err)
	}
	d.queue.WriteBuffer(buf, 0, padded)
	return buf, nil
}

// submit finishes the encoder and submits the command buffer.
func (d *wgpuDeviceImpl) submit(encoder *wgpu.CommandEncoder) error {
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish command buffer: %w", err)
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

// matrixBytes flattens a matrix palette for upload.
func matrixBytes(ms [][16]float32) []byte {
	if len(ms) == 0 {
		return nil
	}
	flat := make([]float32, 0, len(ms)*16)
	for _, m := range ms {
		flat = append(flat, m[:]...)
	}
	return common.SliceToBytes(flat)
}
