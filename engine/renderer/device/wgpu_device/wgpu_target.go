package wgpu_device

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuTarget is a render target backed by one GPU texture per color attachment.
// Row 0 of every texture is the top of the image.
type wgpuTarget struct {
	owner *wgpuDeviceImpl
	desc  device.TargetDescriptor

	textures []*wgpu.Texture
	views    []*wgpu.TextureView
	sampler  *wgpu.Sampler

	depth     *wgpu.Texture
	depthView *wgpu.TextureView

	released bool
}

var _ device.Target = &wgpuTarget{}

func (t *wgpuTarget) Label() string                 { return t.desc.Label }
func (t *wgpuTarget) Width() int                    { return t.desc.Width }
func (t *wgpuTarget) Height() int                   { return t.desc.Height }
func (t *wgpuTarget) Format() device.Format         { return t.desc.Format }
func (t *wgpuTarget) Filter() device.Filter         { return t.desc.Filter }
func (t *wgpuTarget) Attachments() int              { return len(t.textures) }
func (t *wgpuTarget) HasDepth() bool                { return t.depth != nil }
func (t *wgpuTarget) extent() *wgpu.Extent3D        { return extent(t.desc.Width, t.desc.Height) }
func (t *wgpuTarget) gpuFormat() wgpu.TextureFormat { return textureFormat(t.desc.Format) }

// release frees every GPU object held by the target.
func (t *wgpuTarget) release() {
	if t.released {
		return
	}
	t.released = true
	for i := range t.textures {
		t.views[i].Release()
		t.textures[i].Release()
	}
	if t.sampler != nil {
		t.sampler.Release()
	}
	if t.depth != nil {
		t.depthView.Release()
		t.depth.Release()
	}
}

// newWgpuTarget allocates the textures, views and sampler for desc. Caller holds the device lock.
func newWgpuTarget(d *wgpuDeviceImpl, desc device.TargetDescriptor) (*wgpuTarget, error) {
	t := &wgpuTarget{owner: d, desc: desc}
	n := desc.AttachmentCount()
	for i := 0; i < n; i++ {
		tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: fmt.Sprintf("%s Attachment %d", desc.Label, i),
			Usage: wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding |
				wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
			Dimension:     wgpu.TextureDimension2D,
			Size:          *extent(desc.Width, desc.Height),
			Format:        textureFormat(desc.Format),
			MipLevelCount: 1,
			SampleCount:   1,
		})
		if err != nil {
			t.release()
			return nil, fmt.Errorf("%s: attachment %d: %w", desc.Label, i, err)
		}
		view, err := tex.CreateView(nil)
		if err != nil {
			tex.Release()
			t.release()
			return nil, fmt.Errorf("%s: attachment %d view: %w", desc.Label, i, err)
		}
		t.textures = append(t.textures, tex)
		t.views = append(t.views, view)
	}

	if desc.Depth {
		tex, view, err := d.createDepth(desc.Label, desc.Width, desc.Height)
		if err != nil {
			t.release()
			return nil, err
		}
		t.depth, t.depthView = tex, view
	}

	mode := wgpu.FilterModeNearest
	if desc.Filter == device.FilterLinear && filterable(desc.Format) {
		mode = wgpu.FilterModeLinear
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label + " Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     mode,
		MinFilter:     mode,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		t.release()
		return nil, fmt.Errorf("%s: sampler: %w", desc.Label, err)
	}
	t.sampler = samp
	return t, nil
}

// textureFormat maps a device format to its texture format.
func textureFormat(f device.Format) wgpu.TextureFormat {
	switch f {
	case device.FormatRGBA16F:
		return wgpu.TextureFormatRGBA16Float
	case device.FormatRGBA32F:
		return wgpu.TextureFormatRGBA32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

// bytesPerTexel returns the storage size of one texel of f.
func bytesPerTexel(f device.Format) int {
	switch f {
	case device.FormatRGBA16F:
		return 8
	case device.FormatRGBA32F:
		return 16
	default:
		return 4
	}
}

// filterable reports whether f may be bound to a filtering sampler.
func filterable(f device.Format) bool {
	return f != device.FormatRGBA32F
}

func extent(width, height int) *wgpu.Extent3D {
	return &wgpu.Extent3D{
		Width:              uint32(width),
		Height:             uint32(height),
		DepthOrArrayLayers: 1,
	}
}
