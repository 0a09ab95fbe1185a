package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-ssr/engine/ssr"
)

func testConfig(dir string) bakeConfig {
	return bakeConfig{
		demo:     "mirror",
		width:    32,
		height:   18,
		frames:   2,
		outPNG:   filepath.Join(dir, "out.png"),
		outEXR:   filepath.Join(dir, "out.exr"),
		scale:    2,
		exposure: 1,
		workers:  2,
	}
}

func TestLoadOptionsOverrides(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.mode = "raw-reflections"
	opts, err := loadOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, 32, opts.Width)
	assert.Equal(t, 18, opts.Height)
	assert.Equal(t, ssr.OutputRawReflections, opts.OutputMode)

	cfg.mode = "sideways"
	_, err = loadOptions(cfg)
	assert.ErrorIs(t, err, ssr.ErrInvalidOption)

	cfg.mode = ""
	cfg.configPath = filepath.Join(t.TempDir(), "missing.toml")
	_, err = loadOptions(cfg)
	assert.Error(t, err)
}

func TestRenderHeadlessWritesOutputs(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.buffersDir = filepath.Join(dir, "buffers")
	require.NoError(t, renderHeadless(context.Background(), cfg))

	img, err := imgio.Open(cfg.outPNG)
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 36, img.Bounds().Dy())

	_, err = os.Stat(cfg.outEXR)
	assert.NoError(t, err)
	for _, name := range []string{"reflections.png", "reflections.exr", "temporal.png", "blurred.png"} {
		_, err = os.Stat(filepath.Join(cfg.buffersDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRenderHeadlessRejectsBadInput(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.frames = 0
	assert.Error(t, renderHeadless(context.Background(), cfg))

	cfg = testConfig(t.TempDir())
	cfg.demo = "nope"
	assert.Error(t, renderHeadless(context.Background(), cfg))
}
