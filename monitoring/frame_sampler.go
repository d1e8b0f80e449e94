package monitoring

import (
	"fmt"
	"sync"
	"time"
)

const (
	// MinSamplerCapacity and MaxSamplerCapacity bound the frame window size.
	MinSamplerCapacity = 60
	MaxSamplerCapacity = 300

	// DefaultSamplerCapacity is roughly two seconds of frames at 60 FPS.
	DefaultSamplerCapacity = 120

	// droppedFrameFactor marks a frame as dropped when its time exceeds
	// this multiple of the target frame time.
	droppedFrameFactor = 1.5
)

// FrameSample is a single frame observation fed in by the host loop.
// CPUUsage, GPUUsage and MemoryPressure are 0-100 proxies reported by the
// platform layer, not direct hardware counters.
type FrameSample struct {
	FrameTime      time.Duration `json:"frame_time"`
	CPUUsage       float64       `json:"cpu_usage"`
	GPUUsage       float64       `json:"gpu_usage"`
	MemoryPressure float64       `json:"memory_pressure"`
	DrawCalls      int           `json:"draw_calls"`
	Triangles      int           `json:"triangles"`
}

// FrameSampler maintains a fixed-capacity ring buffer of frame times and
// derives rolling FPS statistics from the current window contents.
type FrameSampler struct {
	mu sync.RWMutex

	samples  []time.Duration
	head     int
	count    int
	totalSum time.Duration // sum of frame times currently in the window

	targetFPS     float64
	dropThreshold time.Duration

	lastFrameTime time.Duration
	totalRecorded int64
	droppedFrames int64
}

// NewFrameSampler creates a sampler with the given window capacity and
// target frame rate. Capacity is clamped into [MinSamplerCapacity,
// MaxSamplerCapacity]; a non-positive targetFPS falls back to 60.
func NewFrameSampler(capacity int, targetFPS float64) *FrameSampler {
	if capacity < MinSamplerCapacity {
		capacity = MinSamplerCapacity
	}
	if capacity > MaxSamplerCapacity {
		capacity = MaxSamplerCapacity
	}
	if targetFPS <= 0 {
		targetFPS = 60
	}

	return &FrameSampler{
		samples:       make([]time.Duration, capacity),
		targetFPS:     targetFPS,
		dropThreshold: time.Duration(float64(time.Second) / targetFPS * droppedFrameFactor),
	}
}

// Record appends a frame time to the window, evicting the oldest sample
// once capacity is reached.
func (fs *FrameSampler) Record(frameTime time.Duration) {
	if frameTime <= 0 {
		return
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.count == len(fs.samples) {
		// Evict oldest: head currently points at it.
		fs.totalSum -= fs.samples[fs.head]
	} else {
		fs.count++
	}

	fs.samples[fs.head] = frameTime
	fs.head = (fs.head + 1) % len(fs.samples)
	fs.totalSum += frameTime

	fs.lastFrameTime = frameTime
	fs.totalRecorded++
	if frameTime > fs.dropThreshold {
		fs.droppedFrames++
	}
}

// RollingFPS returns the average FPS over the current window contents:
// sample count divided by the sum of frame times.
func (fs *FrameSampler) RollingFPS() float64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.count == 0 || fs.totalSum <= 0 {
		return 0
	}
	return float64(fs.count) / fs.totalSum.Seconds()
}

// InstantFPS returns the FPS implied by the most recent frame time.
func (fs *FrameSampler) InstantFPS() float64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.lastFrameTime <= 0 {
		return 0
	}
	return 1 / fs.lastFrameTime.Seconds()
}

// AverageFrameTime returns the mean frame time over the window.
func (fs *FrameSampler) AverageFrameTime() time.Duration {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	if fs.count == 0 {
		return 0
	}
	return fs.totalSum / time.Duration(fs.count)
}

// DroppedFrames returns the monotonic count of frames whose time exceeded
// 1.5x the target frame time.
func (fs *FrameSampler) DroppedFrames() int64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.droppedFrames
}

// TotalRecorded returns the monotonic count of recorded frames. It is never
// reset by window eviction.
func (fs *FrameSampler) TotalRecorded() int64 {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.totalRecorded
}

// Len returns the number of samples currently in the window.
func (fs *FrameSampler) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.count
}

// Cap returns the fixed window capacity.
func (fs *FrameSampler) Cap() int {
	return len(fs.samples)
}

// TargetFPS returns the configured target frame rate.
func (fs *FrameSampler) TargetFPS() float64 {
	return fs.targetFPS
}

// Reset clears the window and all counters.
func (fs *FrameSampler) Reset() {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.head = 0
	fs.count = 0
	fs.totalSum = 0
	fs.lastFrameTime = 0
	fs.totalRecorded = 0
	fs.droppedFrames = 0
}

// String reports the sampler state for debug logging.
func (fs *FrameSampler) String() string {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fmt.Sprintf("FrameSampler{len=%d cap=%d dropped=%d}", fs.count, len(fs.samples), fs.droppedFrames)
}
