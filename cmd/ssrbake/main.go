// Command ssrbake renders a demo scene with screen-space reflections on the software device and
// writes the accumulated composite as PNG and OpenEXR.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/capture"
	"github.com/Carmen-Shannon/oxy-ssr/engine/loader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/ssr"
	"github.com/Carmen-Shannon/oxy-ssr/examples"
)

// bakeConfig carries the parsed command line.
type bakeConfig struct {
	demo       string
	gltf       string
	lift       float64
	width      int
	height     int
	frames     int
	configPath string
	mode       string
	outPNG     string
	outEXR     string
	buffersDir string
	scale      float64
	exposure   float64
	workers    int
}

var skyColor = common.Vec4{0.05, 0.07, 0.1, 1}

func main() {
	var cfg bakeConfig
	flag.StringVar(&cfg.demo, "demo", "mirror", fmt.Sprintf("demo scene %v", examples.Names()))
	flag.StringVar(&cfg.gltf, "gltf", "", "glTF asset to place on the mirror floor instead of a demo")
	flag.Float64Var(&cfg.lift, "lift", 0, "vertical offset applied to the glTF asset")
	flag.IntVar(&cfg.width, "width", 640, "output width in pixels")
	flag.IntVar(&cfg.height, "height", 360, "output height in pixels")
	flag.IntVar(&cfg.frames, "frames", 16, "frames to accumulate before writing")
	flag.StringVar(&cfg.configPath, "config", "", "options file (.toml, .yaml)")
	flag.StringVar(&cfg.mode, "mode", "", "output mode override (default, reflections, raw_reflections, blurred, input, blur_mix)")
	flag.StringVar(&cfg.outPNG, "out", "ssr.png", "tone-mapped PNG output, empty to skip")
	flag.StringVar(&cfg.outEXR, "exr", "", "HDR OpenEXR output, empty to skip")
	flag.StringVar(&cfg.buffersDir, "buffers", "", "directory receiving the intermediate buffers")
	flag.Float64Var(&cfg.scale, "scale", 1, "PNG resize factor")
	flag.Float64Var(&cfg.exposure, "exposure", 1, "exposure applied before tone mapping")
	flag.IntVar(&cfg.workers, "workers", 0, "software device workers, 0 for one per CPU")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	if err := renderHeadless(ctx, cfg); err != nil {
		log.Println("ssrbake:", err)
		os.Exit(1)
	}
	log.Printf("[Bake] done in %s", time.Since(start).Round(time.Millisecond))
}

// loadDemo builds the scene named by the flags.
func loadDemo(cfg bakeConfig) (*examples.Demo, error) {
	if cfg.gltf != "" {
		return examples.FromGLTF(loader.NewLoader(loader.BackendTypeGLTF), cfg.gltf, float32(cfg.lift))
	}
	return examples.New(cfg.demo)
}

// loadOptions resolves the pipeline options from the config file and the flag overrides.
func loadOptions(cfg bakeConfig) (ssr.Options, error) {
	opts := ssr.DefaultOptions()
	if cfg.configPath != "" {
		var err error
		if opts, err = ssr.LoadOptions(cfg.configPath); err != nil {
			return ssr.Options{}, err
		}
	}
	opts.Width, opts.Height = cfg.width, cfg.height
	if cfg.mode != "" {
		mode, err := ssr.ParseOutputMode(cfg.mode)
		if err != nil {
			return ssr.Options{}, err
		}
		opts.OutputMode = mode
	}
	return opts, opts.Validate()
}

func renderHeadless(ctx context.Context, cfg bakeConfig) error {
	if cfg.frames <= 0 {
		return fmt.Errorf("frames must be positive, got %d", cfg.frames)
	}
	opts, err := loadOptions(cfg)
	if err != nil {
		return fmt.Errorf("options: %w", err)
	}
	demo, err := loadDemo(cfg)
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	demo.Camera.SetAspect(float32(cfg.width) / float32(cfg.height))

	var devOpts []device.SoftwareDeviceOption
	if cfg.workers > 0 {
		devOpts = append(devOpts, device.WithWorkers(cfg.workers))
	}
	dev := device.NewSoftwareDevice(devOpts...)
	defer dev.Release()

	prof := profiler.NewProfiler()
	pipe, err := ssr.NewPipeline(
		ssr.WithDevice(dev),
		ssr.WithScene(demo.Scene),
		ssr.WithCamera(demo.Camera),
		ssr.WithOptions(opts),
		ssr.WithProfiler(prof),
	)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	defer pipe.Release()

	input, err := dev.CreateTarget(device.TargetDescriptor{
		Label:  "Scene Color",
		Width:  cfg.width,
		Height: cfg.height,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
		Depth:  true,
	})
	if err != nil {
		return fmt.Errorf("input target: %w", err)
	}
	defer dev.ReleaseTarget(input)

	log.Printf("[Bake] %s on %s, %dx%d, %d frames", demo.Name, dev.Name(), cfg.width, cfg.height, cfg.frames)

	vp := common.Viewport{Width: cfg.width, Height: cfg.height}
	var out device.Target
	for i := 0; i < cfg.frames; i++ {
		demo.Update(1.0 / 60)
		err := prof.Measure("scene", func() error {
			return dev.RenderScene(input, demo.Scene, &device.RenderContext{
				Camera: demo.Camera.Snapshot(vp),
				Clear:  skyColor,
			})
		})
		if err != nil {
			return fmt.Errorf("frame %d: scene: %w", i+1, err)
		}
		if out, err = pipe.Render(ctx, input); err != nil {
			return fmt.Errorf("frame %d: %w", i+1, err)
		}
		prof.Tick()
	}
	for _, pass := range prof.Passes() {
		log.Printf("[Bake] %-10s %s/frame", pass, prof.PassAverage(pass))
	}

	settings := capture.Settings{ToneMap: capture.ToneMapACES, Exposure: float32(cfg.exposure)}
	px, w, h, err := capture.Read(dev, device.Bind(out))
	if err != nil {
		return err
	}
	if cfg.outPNG != "" {
		img, err := capture.Image(px, w, h, settings)
		if err != nil {
			return err
		}
		if err := capture.SavePNG(cfg.outPNG, img, float32(cfg.scale)); err != nil {
			return err
		}
		log.Printf("[Bake] wrote %s", cfg.outPNG)
	}
	if cfg.outEXR != "" {
		if err := capture.SaveEXR(cfg.outEXR, px, w, h); err != nil {
			return err
		}
		log.Printf("[Bake] wrote %s", cfg.outEXR)
	}
	if cfg.buffersDir != "" {
		return dumpBuffers(dev, pipe.Buffers(), cfg.buffersDir, settings)
	}
	return nil
}

// dumpBuffers writes every intermediate image as PNG and EXR. Data buffers are written
// without tone mapping.
func dumpBuffers(dev device.Device, b ssr.Buffers, dir string, color capture.Settings) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("buffers: %w", err)
	}
	data := capture.Settings{ToneMap: capture.ToneMapNone}
	entries := []struct {
		name     string
		in       device.Input
		settings capture.Settings
	}{
		{"normal", b.Normal, data},
		{"depth", b.Depth, data},
		{"velocity", b.Velocity, data},
		{"reflections", b.Reflections, color},
		{"temporal", b.Temporal, color},
		{"blurred", b.Blurred, color},
	}
	for _, e := range entries {
		if e.in.Target == nil {
			continue
		}
		base := filepath.Join(dir, e.name)
		if err := capture.SaveInput(dev, e.in, e.settings, base+".png", base+".exr"); err != nil {
			return fmt.Errorf("buffer %s: %w", e.name, err)
		}
	}
	log.Printf("[Bake] buffers written to %s", dir)
	return nil
}
