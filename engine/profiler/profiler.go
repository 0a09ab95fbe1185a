package profiler

import (
	"fmt"
	"log"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Profiler tracks frame rate, per-pass timings and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval.
type Profiler struct {
	mu             *sync.Mutex
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// passes accumulates time per pass since the last summary; order keeps first-seen order for logging.
	passes map[string]time.Duration
	order  []string
	now    func() time.Time
}

// NewProfiler creates a new Profiler.
// Update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		passes:         make(map[string]time.Duration),
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Measure runs fn and adds its wall time to the named pass.
//
// Parameters:
//   - pass: the pass name
//   - fn: the work to time
//
// Returns:
//   - error: the error returned by fn
func (p *Profiler) Measure(pass string, fn func() error) error {
	start := p.now()
	err := fn()
	p.Record(pass, p.now().Sub(start))
	return err
}

// Record adds d to the named pass.
//
// Parameters:
//   - pass: the pass name
//   - d: the elapsed time
func (p *Profiler) Record(pass string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.passes[pass]; !ok {
		p.order = append(p.order, pass)
	}
	p.passes[pass] += d
}

// PassAverage returns the mean per-frame time of a pass since the last summary. Frames
// counted are those ticked so far in the current interval, with a minimum of one.
//
// Parameters:
//   - pass: the pass name
//
// Returns:
//   - time.Duration: the average
func (p *Profiler) PassAverage(pass string) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.passes[pass] / time.Duration(max(p.frameCount, 1))
}

// Passes returns every pass name recorded so far, in first-seen order.
func (p *Profiler) Passes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.order...)
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory, and per-pass averages.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			pause := p.memStats.PauseNs[i%256] / 1000
			if pause > maxPauseUs {
				maxPauseUs = pause
			}
		}
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, maxPauseUs, sysMB)
	if len(p.order) > 0 {
		log.Printf("[Profiler] Passes: %s", p.passSummary())
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.passes = make(map[string]time.Duration, len(p.order))
	return true
}

// passSummary formats the per-frame pass averages, e.g. "geometry 1.20ms | ray march 4.81ms".
func (p *Profiler) passSummary() string {
	parts := make([]string, 0, len(p.order))
	for _, name := range p.order {
		avg := p.passes[name] / time.Duration(max(p.frameCount, 1))
		parts = append(parts, fmt.Sprintf("%s %.2fms", name, float64(avg.Microseconds())/1000))
	}
	return strings.Join(parts, " | ")
}
