package device

import (
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/mrjoshuak/go-openexr/half"
)

// softwareTarget is a render target held in host memory. Rows are stored bottom to top so
// texel (0, 0) is the bottom-left corner, matching uv space.
type softwareTarget struct {
	owner    *softwareDevice
	desc     TargetDescriptor
	pixels   [][]common.Vec4
	depth    []float32
	released bool
}

var _ Target = &softwareTarget{}

func newSoftwareTarget(owner *softwareDevice, desc TargetDescriptor) *softwareTarget {
	t := &softwareTarget{
		owner:  owner,
		desc:   desc,
		pixels: make([][]common.Vec4, desc.AttachmentCount()),
	}
	for i := range t.pixels {
		t.pixels[i] = make([]common.Vec4, desc.Width*desc.Height)
	}
	if desc.Depth {
		t.depth = make([]float32, desc.Width*desc.Height)
	}
	return t
}

func (t *softwareTarget) Label() string    { return t.desc.Label }
func (t *softwareTarget) Width() int       { return t.desc.Width }
func (t *softwareTarget) Height() int      { return t.desc.Height }
func (t *softwareTarget) Format() Format   { return t.desc.Format }
func (t *softwareTarget) Filter() Filter   { return t.desc.Filter }
func (t *softwareTarget) Attachments() int { return len(t.pixels) }
func (t *softwareTarget) HasDepth() bool   { return t.desc.Depth }

// store writes v at index i of attachment a, applying the storage precision of the format.
func (t *softwareTarget) store(a, i int, v common.Vec4) {
	switch t.desc.Format {
	case FormatRGBA8:
		for c := range 4 {
			v[c] = math32.Round(common.Saturate(v[c])*255) / 255
		}
	case FormatRGBA16F:
		for c := range 4 {
			v[c] = half.FromFloat32(v[c]).Float32()
		}
	}
	t.pixels[a][i] = v
}

// sampler returns a shader.Sampler over attachment a.
func (t *softwareTarget) sampler(a int) shader.Sampler {
	return &targetSampler{
		pixels: t.pixels[a],
		width:  t.desc.Width,
		height: t.desc.Height,
		linear: t.desc.Filter == FilterLinear,
	}
}

// targetSampler reads a software attachment with clamp-to-edge addressing.
type targetSampler struct {
	pixels []common.Vec4
	width  int
	height int
	linear bool
}

var _ shader.Sampler = &targetSampler{}

func (s *targetSampler) Size() (int, int) {
	return s.width, s.height
}

func (s *targetSampler) Fetch(x, y int) common.Vec4 {
	x = min(max(x, 0), s.width-1)
	y = min(max(y, 0), s.height-1)
	return s.pixels[y*s.width+x]
}

func (s *targetSampler) Sample(uv common.Vec2) common.Vec4 {
	fx := uv[0] * float32(s.width)
	fy := uv[1] * float32(s.height)
	if !s.linear {
		return s.Fetch(int(math32.Floor(fx)), int(math32.Floor(fy)))
	}
	fx -= 0.5
	fy -= 0.5
	x0 := int(math32.Floor(fx))
	y0 := int(math32.Floor(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)
	bottom := s.Fetch(x0, y0).Lerp(s.Fetch(x0+1, y0), tx)
	top := s.Fetch(x0, y0+1).Lerp(s.Fetch(x0+1, y0+1), tx)
	return bottom.Lerp(top, ty)
}
