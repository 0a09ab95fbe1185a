package device

import (
	"fmt"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-ssr/common"
	"github.com/Carmen-Shannon/oxy-ssr/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-ssr/engine/scene"
)

// softwareDevice executes every program on the CPU. Full-screen passes and rasterization are
// split into horizontal row bands that run on a worker pool; each call waits for all of its
// bands before returning, so calls observe each other's output in submission order.
type softwareDevice struct {
	mu *sync.Mutex

	name           string
	maxAttachments int
	workers        int
	bandRows       int

	pool     worker.DynamicWorkerPool
	released bool
}

var _ Device = &softwareDevice{}

// NewSoftwareDevice creates a CPU device.
// Defaults: four color attachments, one worker per CPU, 16-row bands.
//
// Parameters:
//   - options: variadic list of SoftwareDeviceOption functions
//
// Returns:
//   - Device: the device
func NewSoftwareDevice(options ...SoftwareDeviceOption) Device {
	d := &softwareDevice{
		mu:             &sync.Mutex{},
		name:           "software",
		maxAttachments: 4,
		workers:        runtime.NumCPU(),
		bandRows:       16,
	}
	for _, option := range options {
		option(d)
	}
	// queue sized for a full frame of bands at 4K without blocking submitters
	d.pool = worker.NewDynamicWorkerPool(d.workers, 512, 1*time.Second)
	log.Printf("[Device] %s: %d workers, %d color attachments", d.name, d.workers, d.maxAttachments)
	return d
}

func (d *softwareDevice) Name() string {
	return d.name
}

func (d *softwareDevice) MaxColorAttachments() int {
	return d.maxAttachments
}

func (d *softwareDevice) CreateTarget(desc TargetDescriptor) (Target, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return nil, ErrDeviceLost
	}
	if err := desc.Validate(d.maxAttachments); err != nil {
		return nil, err
	}
	return newSoftwareTarget(d, desc), nil
}

func (d *softwareDevice) ReleaseTarget(t Target) {
	st, ok := t.(*softwareTarget)
	if !ok || st == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	st.released = true
	st.pixels = nil
	st.depth = nil
}

// target checks that t belongs to this live device. Callers must hold d.mu.
func (d *softwareDevice) target(t Target) (*softwareTarget, error) {
	if d.released {
		return nil, ErrDeviceLost
	}
	st, ok := t.(*softwareTarget)
	if !ok || st == nil {
		return nil, fmt.Errorf("target %T: %w", t, ErrInvalidTarget)
	}
	if st.released || st.owner != d {
		return nil, fmt.Errorf("target %q: %w", st.desc.Label, ErrInvalidTarget)
	}
	return st, nil
}

// forBands runs fn over [0, height) in row bands on the worker pool and waits for all of them.
func (d *softwareDevice) forBands(height int, fn func(y0, y1 int)) {
	var wg sync.WaitGroup
	id := 0
	for y0 := 0; y0 < height; y0 += d.bandRows {
		y1 := min(y0+d.bandRows, height)
		wg.Add(1)
		lo, hi := y0, y1
		d.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				fn(lo, hi)
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()
}

func (d *softwareDevice) DrawFullscreen(dst Target, prog shader.FullscreenProgram, inputs []Input, uniform shader.Uniform) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.target(dst)
	if err != nil {
		return err
	}
	if len(inputs) != prog.Inputs() {
		return fmt.Errorf("%s: %d inputs bound, program reads %d: %w", prog.Key(), len(inputs), prog.Inputs(), ErrInvalidTarget)
	}
	samplers := make([]shader.Sampler, len(inputs))
	for i, in := range inputs {
		st, err := d.target(in.Target)
		if err != nil {
			return fmt.Errorf("%s input %d: %w", prog.Key(), i, err)
		}
		if st == out {
			return fmt.Errorf("%s: target %q bound as input and output: %w", prog.Key(), st.desc.Label, ErrInvalidTarget)
		}
		if in.Attachment < 0 || in.Attachment >= st.Attachments() {
			return fmt.Errorf("%s input %d: attachment %d of %q: %w", prog.Key(), i, in.Attachment, st.desc.Label, ErrInvalidTarget)
		}
		samplers[i] = st.sampler(in.Attachment)
	}

	kernel, err := prog.Kernel(samplers, uniform)
	if err != nil {
		return fmt.Errorf("%s: %w", prog.Key(), err)
	}

	w, h := out.desc.Width, out.desc.Height
	d.forBands(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			v := (float32(y) + 0.5) / float32(h)
			for x := 0; x < w; x++ {
				u := (float32(x) + 0.5) / float32(w)
				out.store(0, y*w+x, kernel(common.Vec2{u, v}, [2]int{x, y}))
			}
		}
	})
	return nil
}

func (d *softwareDevice) RenderScene(dst Target, sc scene.Scene, rc *RenderContext) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.target(dst)
	if err != nil {
		return err
	}
	tris, err := d.assemble(out, sc, rc)
	if err != nil {
		return err
	}

	w, h := out.desc.Width, out.desc.Height
	depth := out.depth
	if depth == nil {
		depth = make([]float32, w*h)
	}
	d.forBands(h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			depth[i] = 1
			for a := range out.pixels {
				out.store(a, i, rc.Clear)
			}
		}
		for i := range tris {
			rasterize(out, depth, &tris[i], y0, y1)
		}
	})
	return nil
}

func (d *softwareDevice) Copy(dst, src Target) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	to, err := d.target(dst)
	if err != nil {
		return err
	}
	from, err := d.target(src)
	if err != nil {
		return err
	}
	if to.desc.Width != from.desc.Width || to.desc.Height != from.desc.Height || to.Attachments() != from.Attachments() {
		return fmt.Errorf("copy %q (%dx%d, %d) to %q (%dx%d, %d): %w",
			from.desc.Label, from.desc.Width, from.desc.Height, from.Attachments(),
			to.desc.Label, to.desc.Width, to.desc.Height, to.Attachments(), ErrInvalidTarget)
	}
	if to == from {
		return nil
	}
	for a := range from.pixels {
		for i, v := range from.pixels[a] {
			to.store(a, i, v)
		}
	}
	return nil
}

func (d *softwareDevice) ReadPixels(t Target, attachment int) ([]common.Vec4, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := d.target(t)
	if err != nil {
		return nil, err
	}
	if attachment < 0 || attachment >= st.Attachments() {
		return nil, fmt.Errorf("attachment %d of %q: %w", attachment, st.desc.Label, ErrInvalidTarget)
	}
	w, h := st.desc.Width, st.desc.Height
	out := make([]common.Vec4, w*h)
	for y := range h {
		copy(out[y*w:(y+1)*w], st.pixels[attachment][(h-1-y)*w:(h-y)*w])
	}
	return out, nil
}

func (d *softwareDevice) WritePixels(t Target, attachment int, pixels []common.Vec4) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, err := d.target(t)
	if err != nil {
		return err
	}
	if attachment < 0 || attachment >= st.Attachments() {
		return fmt.Errorf("attachment %d of %q: %w", attachment, st.desc.Label, ErrInvalidTarget)
	}
	w, h := st.desc.Width, st.desc.Height
	if len(pixels) != w*h {
		return fmt.Errorf("%d pixels for %dx%d target %q: %w", len(pixels), w, h, st.desc.Label, ErrInvalidTarget)
	}
	for y := range h {
		for x := range w {
			st.store(attachment, (h-1-y)*w+x, pixels[y*w+x])
		}
	}
	return nil
}

func (d *softwareDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released {
		return
	}
	d.released = true
	d.pool.Stop()
	log.Printf("[Device] %s released", d.name)
}
