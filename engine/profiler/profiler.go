package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-scene/common"
)

// Stats is one reporting window of frame and memory statistics.
type Stats struct {
	Frames      int
	Elapsed     time.Duration
	FPS         float64
	FrameTime   time.Duration
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	NumGC       uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
}

// Profiler tracks frame rate and memory statistics for performance monitoring.
// Stats are logged at Info through the package logger once per interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	last           Stats
}

// ProfilerOption configures a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are reported. Non-positive values keep the default.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerOption: a function that sets the reporting interval
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithClock replaces the time source, mainly for tests.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		p.now = now
	}
}

// NewProfiler creates a new Profiler. The interval defaults to 1 second.
//
// Parameters:
//   - options: functional options configuring the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame. When the interval has elapsed it samples the runtime
// memory statistics, logs them and starts a new window.
//
// Returns:
//   - bool: true if stats were reported this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	s := Stats{
		Frames:    p.frameCount,
		Elapsed:   elapsed,
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		FrameTime: elapsed / time.Duration(p.frameCount),
		HeapMB:    float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:     float64(p.memStats.Sys) / 1024 / 1024,
		NumGC:     p.memStats.NumGC,
	}
	// TotalAlloc only grows, so its delta is the allocation churn of this window.
	s.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	s.LastPauseUs, s.MaxPauseUs = pauses(&p.memStats, p.lastGCCount)

	common.Logger().Info("frame stats",
		"fps", s.FPS,
		"frame_time", s.FrameTime,
		"heap_mb", s.HeapMB,
		"alloc_rate_mb", s.AllocRateMB,
		"gc", s.NumGC,
		"gc_last_us", s.LastPauseUs,
		"gc_max_us", s.MaxPauseUs,
		"sys_mb", s.SysMB,
	)

	p.last = s
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = s.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the most recently reported statistics.
func (p *Profiler) Last() Stats {
	return p.last
}

// pauses returns the most recent GC pause and the longest pause since sinceGC, in microseconds.
// PauseNs is a circular buffer of the last 256 pauses.
func pauses(m *runtime.MemStats, sinceGC uint32) (last, longest uint64) {
	n := m.NumGC
	if n == 0 {
		return 0, 0
	}
	last = m.PauseNs[(n-1)%256] / 1000

	start := sinceGC
	if n-start > 256 {
		start = n - 256
	}
	for i := start; i < n; i++ {
		longest = max(longest, m.PauseNs[i%256]/1000)
	}
	return last, longest
}
