package wgpu_device

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/engine/model"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Bind group slots of surface programs, matching frame.wgsl, object.wgsl and material.wgsl.
const (
	groupFrame    = 0
	groupObject   = 1
	groupMaterial = 2
)

// fullscreenPipeline is a cached full-screen pipeline together with its single bind group layout.
// Full-screen programs bind the uniform at 0 and input i at 1+2i (texture) and 2+2i (sampler).
type fullscreenPipeline struct {
	pipeline *wgpu.RenderPipeline
	layout   *wgpu.BindGroupLayout
}

// surfacePipeline is a cached scene pipeline. Bind group layouts are shared by every surface program.
type surfacePipeline struct {
	pipeline *wgpu.RenderPipeline
}

// createShaderModule compiles WGSL source under a label.
func (d *wgpuDeviceImpl) createShaderModule(label, source string) (*wgpu.ShaderModule, error) {
	return d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
}

// initSurfaceLayouts creates the frame, object and material bind group layouts shared by every surface pipeline.
func (d *wgpuDeviceImpl) initSurfaceLayouts() error {
	both := wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

	frame, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Frame Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: both, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("frame layout: %w", err)
	}

	object, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Object Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: both, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("object layout: %w", err)
	}

	entries := []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: both, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		{Binding: 1, Visibility: both, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
	}
	for i := 0; i < 4; i++ {
		entries = append(entries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(2 + i),
			Visibility: both,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		})
	}
	mat, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "Material Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("material layout: %w", err)
	}

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Surface Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{frame, object, mat},
	})
	if err != nil {
		return fmt.Errorf("surface pipeline layout: %w", err)
	}

	d.frameLayout, d.objectLayout, d.materialLayout = frame, object, mat
	d.surfaceLayout = layout
	return nil
}

// fullscreenPipelineFor returns the cached pipeline for prog drawing into outFormat with the given inputs.
// The key covers input formats because 32-bit float inputs need non-filtering bindings.
func (d *wgpuDeviceImpl) fullscreenPipelineFor(prog shader.FullscreenProgram, outFormat wgpu.TextureFormat, inputs []device.Format) (*fullscreenPipeline, error) {
	key := fmt.Sprintf("%s|%d", prog.Key(), outFormat)
	for _, f := range inputs {
		key += "|" + f.String()
	}
	if p, ok := d.fullscreen[key]; ok {
		return p, nil
	}

	entries := []wgpu.BindGroupLayoutEntry{
		{Binding: 0, Visibility: wgpu.ShaderStageFragment, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
	}
	for i, f := range inputs {
		sampleType := wgpu.TextureSampleTypeFloat
		samplerType := wgpu.SamplerBindingTypeFiltering
		if !filterable(f) {
			sampleType = wgpu.TextureSampleTypeUnfilterableFloat
			samplerType = wgpu.SamplerBindingTypeNonFiltering
		}
		entries = append(entries,
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(1 + 2*i),
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    sampleType,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			wgpu.BindGroupLayoutEntry{
				Binding:    uint32(2 + 2*i),
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: samplerType},
			},
		)
	}
	bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   prog.Key() + " Bind Group Layout",
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: bind group layout: %w", prog.Key(), err)
	}
	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            prog.Key(),
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: pipeline layout: %w", prog.Key(), err)
	}
	module, err := d.createShaderModule(prog.Key(), prog.Source())
	if err != nil {
		return nil, fmt.Errorf("%s: shader module: %w", prog.Key(), err)
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  prog.Key() + " Render Pipeline",
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_fullscreen",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: outFormat, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: render pipeline: %w", prog.Key(), err)
	}

	p := &fullscreenPipeline{pipeline: created, layout: bgl}
	d.fullscreen[key] = p
	return p, nil
}

// surfacePipelineFor returns the cached scene pipeline for prog drawing into dst.
// Attachments beyond prog.Targets() are bound with an empty write mask.
func (d *wgpuDeviceImpl) surfacePipelineFor(prog shader.SurfaceProgram, dst *wgpuTarget) (*surfacePipeline, error) {
	key := fmt.Sprintf("%s|%d|%d|%t", prog.Key(), dst.gpuFormat(), dst.Attachments(), prog.DoubleSided())
	if p, ok := d.surfaces[key]; ok {
		return p, nil
	}

	module, err := d.createShaderModule(prog.Key(), prog.Source())
	if err != nil {
		return nil, fmt.Errorf("%s: shader module: %w", prog.Key(), err)
	}

	targets := make([]wgpu.ColorTargetState, dst.Attachments())
	for i := range targets {
		mask := wgpu.ColorWriteMaskAll
		if i >= prog.Targets() {
			mask = wgpu.ColorWriteMaskNone
		}
		targets[i] = wgpu.ColorTargetState{Format: dst.gpuFormat(), WriteMask: mask}
	}

	cull := wgpu.CullModeBack
	if prog.DoubleSided() {
		cull = wgpu.CullModeNone
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  prog.Key() + " Render Pipeline",
		Layout: d.surfaceLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers:    []wgpu.VertexBufferLayout{model.VertexBufferLayout()},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cull,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: render pipeline: %w", prog.Key(), err)
	}

	p := &surfacePipeline{pipeline: created}
	d.surfaces[key] = p
	return p, nil
}
