package wgpu_device

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/mrjoshuak/go-openexr/half"
)

// copyRowAlignment is the row pitch alignment texture-to-buffer copies require.
const copyRowAlignment = 256

func (d *wgpuDeviceImpl) ReadPixels(t device.Target, attachment int) ([]common.Vec4, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, err := d.target(t)
	if err != nil {
		return nil, err
	}
	if attachment < 0 || attachment >= src.Attachments() {
		return nil, fmt.Errorf("%s: attachment %d: %w", src.desc.Label, attachment, device.ErrInvalidTarget)
	}

	w, h := src.desc.Width, src.desc.Height
	texel := bytesPerTexel(src.desc.Format)
	tight := w * texel
	pitch := (tight + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
	size := uint64(pitch * h)

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.desc.Label + " Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: readback buffer: %w", src.desc.Label, err)
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	defer encoder.Release()
	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{
			Texture:  src.textures[attachment],
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		&wgpu.ImageCopyBuffer{
			Buffer: staging,
			Layout: wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(pitch),
				RowsPerImage: uint32(h),
			},
		},
		src.extent(),
	)
	if err := d.submit(encoder); err != nil {
		return nil, err
	}

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, fmt.Errorf("%s: map readback buffer: %w", src.desc.Label, err)
	}
	d.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("%s: map readback buffer: status %d: %w", src.desc.Label, status, device.ErrDeviceLost)
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]common.Vec4, 0, w*h)
	for y := 0; y < h; y++ {
		row := mapped[y*pitch : y*pitch+tight]
		out = append(out, decodeRow(row, w, src.desc.Format)...)
	}
	return out, nil
}

func (d *wgpuDeviceImpl) WritePixels(t device.Target, attachment int, pixels []common.Vec4) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	dst, err := d.target(t)
	if err != nil {
		return err
	}
	if attachment < 0 || attachment >= dst.Attachments() {
		return fmt.Errorf("%s: attachment %d: %w", dst.desc.Label, attachment, device.ErrInvalidTarget)
	}
	w, h := dst.desc.Width, dst.desc.Height
	if len(pixels) != w*h {
		return fmt.Errorf("%s: %d pixels for %dx%d: %w", dst.desc.Label, len(pixels), w, h, device.ErrInvalidTarget)
	}

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  dst.textures[attachment],
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		encodePixels(pixels, dst.desc.Format),
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(w * bytesPerTexel(dst.desc.Format)),
			RowsPerImage: uint32(h),
		},
		dst.extent(),
	)
	return nil
}

// decodeRow converts one tightly packed row of texels of format f.
func decodeRow(row []byte, width int, f device.Format) []common.Vec4 {
	out := make([]common.Vec4, width)
	switch f {
	case device.FormatRGBA16F:
		vals := make([]float32, width*4)
		half.ConvertBytesToFloat32(vals, row)
		for i := range out {
			out[i] = common.Vec4{vals[i*4], vals[i*4+1], vals[i*4+2], vals[i*4+3]}
		}
	case device.FormatRGBA32F:
		for i := range out {
			for c := 0; c < 4; c++ {
				out[i][c] = math.Float32frombits(binary.LittleEndian.Uint32(row[(i*4+c)*4:]))
			}
		}
	default:
		for i := range out {
			for c := 0; c < 4; c++ {
				out[i][c] = float32(row[i*4+c]) / 255
			}
		}
	}
	return out
}

// encodePixels packs RGBA values into the storage layout of f. RGBA8 values are clamped and rounded.
func encodePixels(pixels []common.Vec4, f device.Format) []byte {
	switch f {
	case device.FormatRGBA16F:
		vals := make([]float32, 0, len(pixels)*4)
		for _, p := range pixels {
			vals = append(vals, p[:]...)
		}
		out := make([]byte, len(vals)*2)
		half.ConvertFloat32ToBytes(out, vals)
		return out
	case device.FormatRGBA32F:
		out := make([]byte, len(pixels)*16)
		for i, p := range pixels {
			for c := 0; c < 4; c++ {
				binary.LittleEndian.PutUint32(out[(i*4+c)*4:], math.Float32bits(p[c]))
			}
		}
		return out
	default:
		out := make([]byte, len(pixels)*4)
		for i, p := range pixels {
			for c := 0; c < 4; c++ {
				out[i*4+c] = byte(math.Round(float64(common.Saturate(p[c]) * 255)))
			}
		}
		return out
	}
}

// flipRows reverses the row order of a tightly packed image.
func flipRows(pixels []byte, pitch, rows int) []byte {
	out := make([]byte, len(pixels))
	for y := 0; y < rows; y++ {
		copy(out[y*pitch:(y+1)*pitch], pixels[(rows-1-y)*pitch:(rows-y)*pitch])
	}
	return out
}
