package capture

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
)

func TestImageWithoutToneMapClamps(t *testing.T) {
	img, err := Image([]common.Vec4{{0.5, 1.5, -1, 0.25}}, 1, 1, Settings{ToneMap: ToneMapNone})
	require.NoError(t, err)

	c := img.RGBAAt(0, 0)
	assert.Equal(t, uint8(128), c.R)
	assert.Equal(t, uint8(255), c.G)
	assert.Equal(t, uint8(0), c.B)
	assert.Equal(t, uint8(64), c.A)
}

func TestImageACES(t *testing.T) {
	px := []common.Vec4{
		{0, 0, 0, 1},
		{1e4, 1e4, 1e4, 1},
	}
	img, err := Image(px, 2, 1, DefaultSettings())
	require.NoError(t, err)

	assert.Equal(t, uint8(0), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(1, 0).A)

	dark, err := Image(px, 2, 1, Settings{ToneMap: ToneMapACES, Exposure: 0})
	require.NoError(t, err)
	assert.Equal(t, uint8(0), dark.RGBAAt(1, 0).R)
}

func TestImageRowsAreTopDown(t *testing.T) {
	px := []common.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}}
	img, err := Image(px, 1, 2, Settings{})
	require.NoError(t, err)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 0).R)
	assert.Equal(t, uint8(255), img.RGBAAt(0, 1).G)
}

func TestToneCurves(t *testing.T) {
	prev := float32(0)
	for _, x := range []float32{0.01, 0.1, 0.5, 1, 4, 16} {
		y := aces(x)
		assert.Greater(t, y, prev, "aces(%v)", x)
		assert.LessOrEqual(t, y, float32(1))
		prev = y
	}
	assert.InDelta(t, 0.7354, linearToSRGB(0.5), 1e-3)
	assert.InDelta(t, 12.92*0.001, linearToSRGB(0.001), 1e-6)
	assert.Equal(t, float32(1), linearToSRGB(1))
	assert.Equal(t, float32(1), linearToSRGB(3))
	assert.Equal(t, uint8(255), quantize(linearToSRGB(1)))
}

func TestSizeMismatch(t *testing.T) {
	_, err := Image(make([]common.Vec4, 3), 2, 2, DefaultSettings())
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = HDR(make([]common.Vec4, 4), 0, 4)
	assert.ErrorIs(t, err, ErrSizeMismatch)

	err = SaveEXR(filepath.Join(t.TempDir(), "x.exr"), nil, 1, 1)
	assert.ErrorIs(t, err, ErrSizeMismatch)
}

func TestSaveEXRKeepsHDRValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.exr")
	px := []common.Vec4{{2, 0.5, 0.25, 1}, {0, 8, 0, 0.5}}
	require.NoError(t, SaveEXR(path, px, 2, 1))

	img, err := exr.DecodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())

	r, g, b, a := img.RGBA(0, 0)
	assert.InDelta(t, 2, r, 1e-3)
	assert.InDelta(t, 0.5, g, 1e-3)
	assert.InDelta(t, 0.25, b, 1e-3)
	assert.InDelta(t, 1, a, 1e-3)

	_, g, _, a = img.RGBA(1, 0)
	assert.InDelta(t, 8, g, 1e-3)
	assert.InDelta(t, 0.5, a, 1e-3)
}

func TestSavePNGScales(t *testing.T) {
	dir := t.TempDir()
	src := image.NewRGBA(image.Rect(0, 0, 8, 4))

	full := filepath.Join(dir, "full.png")
	require.NoError(t, SavePNG(full, src, 1))
	half := filepath.Join(dir, "half.png")
	require.NoError(t, SavePNG(half, src, 0.5))

	img, err := imgio.Open(full)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 4), img.Bounds())

	img, err = imgio.Open(half)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Bounds())
}

func TestSaveInput(t *testing.T) {
	d := device.NewSoftwareDevice()
	defer d.Release()

	target, err := d.CreateTarget(device.TargetDescriptor{Label: "out", Width: 2, Height: 2, Format: device.FormatRGBA16F})
	require.NoError(t, err)
	px := []common.Vec4{{1, 0, 0, 1}, {0, 1, 0, 1}, {0, 0, 1, 1}, {3, 3, 3, 1}}
	require.NoError(t, d.WritePixels(target, 0, px))

	dir := t.TempDir()
	pngPath := filepath.Join(dir, "out.png")
	exrPath := filepath.Join(dir, "out.exr")
	require.NoError(t, SaveInput(d, device.Bind(target), DefaultSettings(), pngPath, exrPath))

	for _, p := range []string{pngPath, exrPath} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	hdr, err := exr.DecodeFile(exrPath)
	require.NoError(t, err)
	r, _, _, _ := hdr.RGBA(1, 1)
	assert.InDelta(t, 3, r, 1e-3)

	assert.ErrorIs(t, SaveInput(d, device.Input{}, DefaultSettings(), pngPath, ""), device.ErrInvalidTarget)
}
