// Command ssrview opens a window and renders a demo scene with screen-space reflections on the
// WebGPU device. The options file given with -config is reloaded whenever it changes.
//
// Controls: left drag or WASD orbits, right drag or arrows pan, scroll or Q/E zooms, shift
// speeds up keyboard motion. B, J, M, N, R and T toggle useBlur, enableJittering, useMRT,
// useNormalMap, useRoughnessMap and temporalResolve. O cycles the output mode and 0-5 select
// one directly. Space pauses animation, P toggles the profiler log, F5 reloads the config and
// Esc quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine"
	"github.com/Carmen-Shannon/oxy-ssr/engine/loader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/profiler"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/device/wgpu_device"
	"github.com/Carmen-Shannon/oxy-ssr/engine/ssr"
	"github.com/Carmen-Shannon/oxy-ssr/engine/window"
	"github.com/Carmen-Shannon/oxy-ssr/examples"
)

type viewConfig struct {
	demo       string
	gltf       string
	lift       float64
	width      int
	height     int
	configPath string
	fallback   bool
	fpsLimit   float64
	tickRate   float64
}

var skyColor = common.Vec4{0.05, 0.07, 0.1, 1}

func main() {
	var cfg viewConfig
	flag.StringVar(&cfg.demo, "demo", "mirror", fmt.Sprintf("demo scene %v", examples.Names()))
	flag.StringVar(&cfg.gltf, "gltf", "", "glTF asset to place on the mirror floor instead of a demo")
	flag.Float64Var(&cfg.lift, "lift", 0, "vertical offset applied to the glTF asset")
	flag.IntVar(&cfg.width, "width", 1280, "initial window width")
	flag.IntVar(&cfg.height, "height", 720, "initial window height")
	flag.StringVar(&cfg.configPath, "config", "", "options file (.toml, .yaml), reloaded on change")
	flag.BoolVar(&cfg.fallback, "fallback", false, "force the software fallback adapter")
	flag.Float64Var(&cfg.fpsLimit, "fps", 0, "render frame limit, 0 for uncapped")
	flag.Float64Var(&cfg.tickRate, "tick", 60, "input and animation ticks per second")
	flag.Parse()

	if err := run(cfg); err != nil {
		log.Println("ssrview:", err)
		os.Exit(1)
	}
}

func run(cfg viewConfig) error {
	var (
		demo *examples.Demo
		err  error
	)
	if cfg.gltf != "" {
		demo, err = examples.FromGLTF(loader.NewLoader(loader.BackendTypeGLTF), cfg.gltf, float32(cfg.lift))
	} else {
		demo, err = examples.New(cfg.demo)
	}
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}

	opts := ssr.DefaultOptions()
	if cfg.configPath != "" {
		if opts, err = ssr.LoadOptions(cfg.configPath); err != nil {
			return err
		}
	}

	win := window.NewWindow(window.WithTitle("oxy-ssr"), window.WithSize(cfg.width, cfg.height))
	defer win.Close()

	dev, err := wgpu_device.NewWgpuDevice(
		wgpu_device.WithName("viewer"),
		wgpu_device.WithSurfaceDescriptor(win.SurfaceDescriptor()),
		wgpu_device.WithForceFallbackAdapter(cfg.fallback),
	)
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}
	defer dev.Release()

	prof := profiler.NewProfiler()
	opts.Width, opts.Height = win.Width(), win.Height()
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

	v := &viewer{
		dev:        dev,
		pipe:       pipe,
		demo:       demo,
		win:        win,
		prof:       prof,
		configPath: cfg.configPath,
		sceneMu:    &sync.Mutex{},
		sizeMu:     &sync.Mutex{},
		pendingW:   opts.Width,
		pendingH:   opts.Height,
	}
	defer v.releaseInput()
	v.ctrls = newControls(pipe)
	v.ctrls.bind(win)

	v.eng = engine.NewEngine(
		engine.WithWindow(win),
		engine.WithProfiler(prof),
		engine.WithTickRate(cfg.tickRate),
		engine.WithRenderFrameLimit(cfg.fpsLimit),
	)
	v.eng.SetTickCallback(v.tick)
	v.eng.SetRenderCallback(v.render)
	v.eng.SetResizeCallback(v.resize)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.configPath != "" {
		go func() {
			if err := ssr.WatchOptions(ctx, cfg.configPath, v.applyOptions); err != nil {
				log.Printf("[View] %v", err)
			}
		}()
	}

	log.Printf("[View] %s on %s", demo.Name, dev.Name())
	return v.eng.Run(ctx)
}

// viewer owns the per-frame state of the interactive loop. The tick goroutine animates the
// scene and the render goroutine draws it; sceneMu keeps the two from interleaving.
type viewer struct {
	dev        wgpu_device.WgpuDevice
	pipe       ssr.Pipeline
	demo       *examples.Demo
	win        window.Window
	eng        engine.Engine
	prof       *profiler.Profiler
	ctrls      *controls
	configPath string

	sceneMu *sync.Mutex

	sizeMu             *sync.Mutex
	pendingW, pendingH int
	sizeDirty          bool

	// render goroutine only
	input      device.Target
	profiling  bool
	titleFrame int
	titleTime  time.Time
}

// resize runs on the window goroutine and defers the work to the next frame.
func (v *viewer) resize(width, height int) {
	v.sizeMu.Lock()
	defer v.sizeMu.Unlock()
	v.pendingW, v.pendingH = width, height
	v.sizeDirty = true
}

func (v *viewer) tick(dt float32) {
	v.ctrls.apply(v.demo.Camera.Controller(), dt)
	if v.ctrls.isPaused() {
		dt = 0
	}
	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()
	v.demo.Update(dt)
}

// applyOptions installs options loaded from the config file, keeping the window's size.
func (v *viewer) applyOptions(o ssr.Options) error {
	cur := v.pipe.Options()
	o.Width, o.Height = cur.Width, cur.Height
	return v.pipe.SetOptions(o)
}

func (v *viewer) reloadOptions() {
	if v.configPath == "" {
		if err := v.applyOptions(ssr.DefaultOptions()); err != nil {
			log.Printf("[View] reset: %v", err)
		}
		return
	}
	o, err := ssr.LoadOptions(v.configPath)
	if err == nil {
		err = v.applyOptions(o)
	}
	if err != nil {
		log.Printf("[View] reload: %v", err)
		return
	}
	log.Printf("[View] reloaded %s", v.configPath)
}

// syncSize reconfigures the surface, the pipeline and the input target after a resize.
func (v *viewer) syncSize() error {
	v.sizeMu.Lock()
	w, h, dirty := v.pendingW, v.pendingH, v.sizeDirty || v.input == nil
	v.sizeDirty = false
	v.sizeMu.Unlock()
	if !dirty {
		return nil
	}

	if err := v.dev.ConfigureSurface(w, h); err != nil {
		return err
	}
	if err := v.pipe.Resize(w, h); err != nil {
		return err
	}
	v.releaseInput()
	input, err := v.dev.CreateTarget(device.TargetDescriptor{
		Label:  "Scene Color",
		Width:  w,
		Height: h,
		Format: device.FormatRGBA16F,
		Filter: device.FilterLinear,
		Depth:  true,
	})
	if err != nil {
		return err
	}
	v.input = input
	v.demo.Camera.SetAspect(float32(w) / float32(h))
	v.demo.Camera.Update()
	return nil
}

func (v *viewer) releaseInput() {
	if v.input != nil {
		v.dev.ReleaseTarget(v.input)
		v.input = nil
	}
}

func (v *viewer) render(ctx context.Context, dt float32) error {
	if err := v.syncSize(); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	if v.ctrls.takeReload() {
		v.reloadOptions()
	}
	if p := v.ctrls.profiling(); p != v.profiling {
		v.profiling = p
		if p {
			v.eng.EnableProfiler()
		} else {
			v.eng.DisableProfiler()
		}
	}

	out, err := v.draw(ctx)
	if err != nil {
		return err
	}
	if err := v.prof.Measure("present", func() error { return v.dev.Present(out) }); err != nil {
		return fmt.Errorf("present: %w", err)
	}
	v.updateTitle()
	return nil
}

// draw renders the scene into the input target and runs the reflection pipeline over it.
func (v *viewer) draw(ctx context.Context) (device.Target, error) {
	v.sceneMu.Lock()
	defer v.sceneMu.Unlock()

	vp := common.Viewport{Width: v.input.Width(), Height: v.input.Height()}
	err := v.prof.Measure("scene", func() error {
		return v.dev.RenderScene(v.input, v.demo.Scene, &device.RenderContext{
			Camera: v.demo.Camera.Snapshot(vp),
			Clear:  skyColor,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	return v.pipe.Render(ctx, v.input)
}

// updateTitle refreshes the frame rate shown in the title bar twice a second.
func (v *viewer) updateTitle() {
	v.titleFrame++
	now := time.Now()
	if v.titleTime.IsZero() {
		v.titleTime = now
		return
	}
	elapsed := now.Sub(v.titleTime)
	if elapsed < 500*time.Millisecond {
		return
	}
	fps := float64(v.titleFrame) / elapsed.Seconds()
	v.titleFrame, v.titleTime = 0, now

	o := v.pipe.Options()
	title := fmt.Sprintf("oxy-ssr | %s | %.0f fps | %s | samples %d", v.demo.Name, fps, o.OutputMode, v.pipe.Samples())
	if v.ctrls.isPaused() {
		title += " | paused"
	}
	v.win.SetTitle(title)
}
