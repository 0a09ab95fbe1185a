package wgpu_device

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/stretchr/testify/assert"
)

func TestPixelEncodingRoundTrip(t *testing.T) {
	in := []common.Vec4{{0.5, 1.5, -0.25, 1}, {2, 0.125, 0, 0.75}}

	for _, f := range []device.Format{device.FormatRGBA16F, device.FormatRGBA32F} {
		t.Run(f.String(), func(t *testing.T) {
			raw := encodePixels(in, f)
			assert.Len(t, raw, len(in)*bytesPerTexel(f))
			assert.Equal(t, in, decodeRow(raw, len(in), f))
		})
	}
}

func TestPixelEncodingRGBA8Clamps(t *testing.T) {
	raw := encodePixels([]common.Vec4{{0.5, 2, -1, 1}}, device.FormatRGBA8)
	assert.Equal(t, []byte{128, 255, 0, 255}, raw)

	out := decodeRow(raw, 1, device.FormatRGBA8)
	assert.InDelta(t, 128.0/255.0, out[0][0], 1e-6)
}

func TestFlipRows(t *testing.T) {
	img := []byte{1, 2, 3, 4, 5, 6}
	assert.Equal(t, []byte{5, 6, 3, 4, 1, 2}, flipRows(img, 2, 3))
}

func TestTextureFormatMapping(t *testing.T) {
	assert.True(t, filterable(device.FormatRGBA16F))
	assert.False(t, filterable(device.FormatRGBA32F))
	assert.Equal(t, 4, bytesPerTexel(device.FormatRGBA8))
	assert.NotEqual(t, textureFormat(device.FormatRGBA8), textureFormat(device.FormatRGBA16F))
}
