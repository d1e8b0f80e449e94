package monitoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// BottleneckAnalyzer attributes sustained frame-time pressure to a single
// dominant resource category over a longer observation window.
type BottleneckAnalyzer interface {
	// Record appends a rich frame sample to the analysis window.
	Record(sample FrameSample)

	// Start begins periodic analysis.
	Start(ctx context.Context) error

	// Stop stops periodic analysis.
	Stop() error

	// AnalyzeNow runs an analysis immediately over the current window.
	AnalyzeNow() (*BottleneckAnalysis, error)

	// LastAnalysis returns the most recent analysis, or nil.
	LastAnalysis() *BottleneckAnalysis

	// SetThresholds replaces the detection thresholds.
	SetThresholds(thresholds BottleneckThresholds) error

	// SetInterval changes the periodic analysis cadence. Takes effect on
	// the next Start.
	SetInterval(interval time.Duration)

	// FrameTimeTrend reports the direction and slope of frame times across
	// the window.
	FrameTimeTrend() (TrendType, float64)

	// DetectAnomaly checks a frame time against the window baseline using
	// a z-score test. Returns nil when the window is too small or the
	// value is unremarkable.
	DetectAnomaly(frameTime time.Duration) *FrameAnomaly
}

// BottleneckType names the resource category attributed as dominant.
type BottleneckType string

const (
	BottleneckNone      BottleneckType = "none"
	BottleneckCPU       BottleneckType = "cpu"
	BottleneckGPU       BottleneckType = "gpu"
	BottleneckMemory    BottleneckType = "memory"
	BottleneckDrawCalls BottleneckType = "draw_calls"
	BottleneckGeometry  BottleneckType = "geometry"
)

// Severity grades how far past its threshold the dominant category sits.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TrendType describes the direction of a metric over the window.
type TrendType string

const (
	TrendIncreasing TrendType = "increasing"
	TrendDecreasing TrendType = "decreasing"
	TrendStable     TrendType = "stable"
)

// BottleneckThresholds are the fixed detection limits for each category.
// FrameTimeFactor gates the whole cascade: no category is blamed unless the
// average frame time exceeds target frame time times this factor.
type BottleneckThresholds struct {
	CPUPercent      float64 `json:"cpu_percent" yaml:"cpu_percent"`
	GPUPercent      float64 `json:"gpu_percent" yaml:"gpu_percent"`
	MemoryPercent   float64 `json:"memory_percent" yaml:"memory_percent"`
	MaxDrawCalls    float64 `json:"max_draw_calls" yaml:"max_draw_calls"`
	MaxTriangles    float64 `json:"max_triangles" yaml:"max_triangles"`
	FrameTimeFactor float64 `json:"frame_time_factor" yaml:"frame_time_factor"`
}

// DefaultBottleneckThresholds returns the standard mobile thresholds.
func DefaultBottleneckThresholds() BottleneckThresholds {
	return BottleneckThresholds{
		CPUPercent:      80,
		GPUPercent:      85,
		MemoryPercent:   80,
		MaxDrawCalls:    500,
		MaxTriangles:    100_000,
		FrameTimeFactor: 1.2,
	}
}

// CategoryAverages holds the per-category means over the analysis window.
type CategoryAverages struct {
	FrameTime time.Duration `json:"frame_time"`
	CPU       float64       `json:"cpu"`
	GPU       float64       `json:"gpu"`
	Memory    float64       `json:"memory"`
	DrawCalls float64       `json:"draw_calls"`
	Triangles float64       `json:"triangles"`
}

// BottleneckAnalysis is the periodic output of the analyzer.
type BottleneckAnalysis struct {
	ID              string           `json:"id"`
	Type            BottleneckType   `json:"type"`
	Severity        Severity         `json:"severity"`
	Averages        CategoryAverages `json:"averages"`
	OvershootRatio  float64          `json:"overshoot_ratio"`
	Recommendations []string         `json:"recommendations"`
	SampleCount     int              `json:"sample_count"`
	DetectedAt      time.Time        `json:"detected_at"`
}

// FrameAnomaly is a statistically unusual frame time relative to the
// window baseline.
type FrameAnomaly struct {
	Value      time.Duration `json:"value"`
	Mean       time.Duration `json:"mean"`
	ZScore     float64       `json:"z_score"`
	Severity   Severity      `json:"severity"`
	DetectedAt time.Time     `json:"detected_at"`
}

const (
	// DefaultAnalysisWindow is the rich-sample ring capacity.
	DefaultAnalysisWindow = 300

	// DefaultMinAnalysisSamples is the minimum window fill before an
	// analysis is attempted.
	DefaultMinAnalysisSamples = 30

	// DefaultAnalysisInterval is how often periodic analysis runs.
	DefaultAnalysisInterval = 5 * time.Second

	anomalyZScore = 3.0
)

// bottleneckAnalyzer implements the BottleneckAnalyzer interface.
type bottleneckAnalyzer struct {
	mu sync.RWMutex

	samples []FrameSample
	head    int
	count   int

	targetFrameTime time.Duration
	thresholds      BottleneckThresholds
	minSamples      int
	interval        time.Duration

	dispatcher *Dispatcher
	last       *BottleneckAnalysis

	isRunning bool
	stopChan  chan struct{}
}

// NewBottleneckAnalyzer creates an analyzer for the given target frame
// rate. The dispatcher is optional; when present, high-severity findings
// are published as performance warnings.
func NewBottleneckAnalyzer(targetFPS float64, dispatcher *Dispatcher) BottleneckAnalyzer {
	if targetFPS <= 0 {
		targetFPS = 60
	}
	return &bottleneckAnalyzer{
		samples:         make([]FrameSample, DefaultAnalysisWindow),
		targetFrameTime: time.Duration(float64(time.Second) / targetFPS),
		thresholds:      DefaultBottleneckThresholds(),
		minSamples:      DefaultMinAnalysisSamples,
		interval:        DefaultAnalysisInterval,
		dispatcher:      dispatcher,
		stopChan:        make(chan struct{}),
	}
}

// Record appends a rich frame sample to the analysis window.
func (ba *bottleneckAnalyzer) Record(sample FrameSample) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	ba.samples[ba.head] = sample
	ba.head = (ba.head + 1) % len(ba.samples)
	if ba.count < len(ba.samples) {
		ba.count++
	}
}

// Start begins periodic analysis.
func (ba *bottleneckAnalyzer) Start(ctx context.Context) error {
	ba.mu.Lock()
	if ba.isRunning {
		ba.mu.Unlock()
		return fmt.Errorf("bottleneck analyzer is already running")
	}
	ba.isRunning = true
	stop := ba.stopChan
	interval := ba.interval
	ba.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				// Too few samples is expected early on.
				_, _ = ba.AnalyzeNow()
			}
		}
	}()

	return nil
}

// Stop stops periodic analysis.
func (ba *bottleneckAnalyzer) Stop() error {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if !ba.isRunning {
		return nil
	}
	ba.isRunning = false
	close(ba.stopChan)
	ba.stopChan = make(chan struct{})
	return nil
}

// AnalyzeNow runs an analysis over the current window.
func (ba *bottleneckAnalyzer) AnalyzeNow() (*BottleneckAnalysis, error) {
	ba.mu.Lock()
	defer ba.mu.Unlock()

	if ba.count < ba.minSamples {
		return nil, fmt.Errorf("insufficient samples for analysis (need %d, have %d)", ba.minSamples, ba.count)
	}

	avg := ba.windowAverages()
	analysis := &BottleneckAnalysis{
		ID:          uuid.NewString(),
		Type:        BottleneckNone,
		Severity:    SeverityLow,
		Averages:    avg,
		SampleCount: ba.count,
		DetectedAt:  time.Now(),
	}

	// Frame-time gate: a category is only blamed when frames are actually
	// running long.
	gate := time.Duration(float64(ba.targetFrameTime) * ba.thresholds.FrameTimeFactor)
	if avg.FrameTime > gate {
		analysis.Type, analysis.OvershootRatio = ba.dominantCategory(avg)
		analysis.Severity = severityFromRatio(analysis.OvershootRatio)
		analysis.Recommendations = recommendationsFor(analysis.Type)
	}

	ba.last = analysis
	ba.publishWarningLocked(analysis)
	return analysis, nil
}

// dominantCategory picks the category with the highest overshoot ratio
// among those past their threshold. Ties resolve in cascade order: CPU,
// GPU, memory, draw calls, geometry.
func (ba *bottleneckAnalyzer) dominantCategory(avg CategoryAverages) (BottleneckType, float64) {
	th := ba.thresholds

	candidates := []struct {
		kind      BottleneckType
		value     float64
		threshold float64
	}{
		{BottleneckCPU, avg.CPU, th.CPUPercent},
		{BottleneckGPU, avg.GPU, th.GPUPercent},
		{BottleneckMemory, avg.Memory, th.MemoryPercent},
		{BottleneckDrawCalls, avg.DrawCalls, th.MaxDrawCalls},
		{BottleneckGeometry, avg.Triangles, th.MaxTriangles},
	}

	best := BottleneckNone
	bestRatio := 0.0
	for _, c := range candidates {
		if c.threshold <= 0 || c.value <= c.threshold {
			continue
		}
		if ratio := c.value / c.threshold; ratio > bestRatio {
			best = c.kind
			bestRatio = ratio
		}
	}
	return best, bestRatio
}

// windowAverages computes per-category means. Callers hold ba.mu.
func (ba *bottleneckAnalyzer) windowAverages() CategoryAverages {
	var sumFrame time.Duration
	var sumCPU, sumGPU, sumMem, sumDraw, sumTri float64

	for i := 0; i < ba.count; i++ {
		s := ba.samples[ba.index(i)]
		sumFrame += s.FrameTime
		sumCPU += s.CPUUsage
		sumGPU += s.GPUUsage
		sumMem += s.MemoryPressure
		sumDraw += float64(s.DrawCalls)
		sumTri += float64(s.Triangles)
	}

	n := float64(ba.count)
	return CategoryAverages{
		FrameTime: sumFrame / time.Duration(ba.count),
		CPU:       sumCPU / n,
		GPU:       sumGPU / n,
		Memory:    sumMem / n,
		DrawCalls: sumDraw / n,
		Triangles: sumTri / n,
	}
}

// index maps a logical window offset (0 = oldest) to a ring position.
// Callers hold ba.mu.
func (ba *bottleneckAnalyzer) index(i int) int {
	if ba.count < len(ba.samples) {
		return i
	}
	return (ba.head + i) % len(ba.samples)
}

// publishWarningLocked emits a warning event for high-severity findings.
// Callers hold ba.mu.
func (ba *bottleneckAnalyzer) publishWarningLocked(analysis *BottleneckAnalysis) {
	if ba.dispatcher == nil || analysis.Type == BottleneckNone {
		return
	}
	if analysis.Severity != SeverityHigh && analysis.Severity != SeverityCritical {
		return
	}

	ba.dispatcher.Publish(Event{
		Type: EventPerformanceWarning,
		Warning: &PerformanceWarning{
			Message: fmt.Sprintf("%s bottleneck detected (%.2fx threshold, avg frame time %v)",
				analysis.Type, analysis.OvershootRatio, analysis.Averages.FrameTime),
		},
	})
}

// LastAnalysis returns the most recent analysis, or nil.
func (ba *bottleneckAnalyzer) LastAnalysis() *BottleneckAnalysis {
	ba.mu.RLock()
	defer ba.mu.RUnlock()

	if ba.last == nil {
		return nil
	}
	last := *ba.last
	return &last
}

// SetThresholds replaces the detection thresholds.
func (ba *bottleneckAnalyzer) SetThresholds(thresholds BottleneckThresholds) error {
	if thresholds.CPUPercent <= 0 || thresholds.GPUPercent <= 0 || thresholds.MemoryPercent <= 0 {
		return fmt.Errorf("usage thresholds must be positive")
	}
	if thresholds.MaxDrawCalls <= 0 || thresholds.MaxTriangles <= 0 {
		return fmt.Errorf("draw call and triangle thresholds must be positive")
	}
	if thresholds.FrameTimeFactor < 1 {
		return fmt.Errorf("frame time factor must be at least 1")
	}

	ba.mu.Lock()
	defer ba.mu.Unlock()
	ba.thresholds = thresholds
	return nil
}

// SetInterval changes the periodic analysis cadence. Non-positive values
// are ignored.
func (ba *bottleneckAnalyzer) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ba.mu.Lock()
	defer ba.mu.Unlock()
	ba.interval = interval
}

// FrameTimeTrend fits a line through the windowed frame times and reports
// the direction of change in milliseconds per sample.
func (ba *bottleneckAnalyzer) FrameTimeTrend() (TrendType, float64) {
	ba.mu.RLock()
	defer ba.mu.RUnlock()

	if ba.count < 3 {
		return TrendStable, 0
	}

	xs := make([]float64, ba.count)
	ys := make([]float64, ba.count)
	for i := 0; i < ba.count; i++ {
		xs[i] = float64(i)
		ys[i] = float64(ba.samples[ba.index(i)].FrameTime) / float64(time.Millisecond)
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)

	switch {
	case math.Abs(slope) < 0.01:
		return TrendStable, slope
	case slope > 0:
		return TrendIncreasing, slope
	default:
		return TrendDecreasing, slope
	}
}

// DetectAnomaly runs a z-score test of a frame time against the window.
func (ba *bottleneckAnalyzer) DetectAnomaly(frameTime time.Duration) *FrameAnomaly {
	ba.mu.RLock()
	defer ba.mu.RUnlock()

	if ba.count < ba.minSamples {
		return nil
	}

	values := make([]float64, ba.count)
	for i := 0; i < ba.count; i++ {
		values[i] = float64(ba.samples[ba.index(i)].FrameTime)
	}

	mean, stdDev := stat.MeanStdDev(values, nil)
	if stdDev == 0 {
		return nil
	}

	z := math.Abs(float64(frameTime)-mean) / stdDev
	if z < anomalyZScore {
		return nil
	}

	severity := SeverityMedium
	switch {
	case z >= 4.0:
		severity = SeverityCritical
	case z >= 3.5:
		severity = SeverityHigh
	}

	return &FrameAnomaly{
		Value:      frameTime,
		Mean:       time.Duration(mean),
		ZScore:     z,
		Severity:   severity,
		DetectedAt: time.Now(),
	}
}

// severityFromRatio grades overshoot: each step of the ladder is a larger
// multiple of the violated threshold.
func severityFromRatio(ratio float64) Severity {
	switch {
	case ratio >= 1.5:
		return SeverityCritical
	case ratio >= 1.3:
		return SeverityHigh
	case ratio >= 1.15:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// recommendationsFor returns remediation hints for a bottleneck category.
func recommendationsFor(kind BottleneckType) []string {
	switch kind {
	case BottleneckCPU:
		return []string{
			"Reduce per-frame script work and physics step frequency",
			"Move heavy computation off the main loop",
		}
	case BottleneckGPU:
		return []string{
			"Lower resolution scale or disable post-processing",
			"Reduce shader complexity and overdraw",
		}
	case BottleneckMemory:
		return []string{
			"Release unused asset bundles and trim texture caches",
			"Reduce object churn to ease GC pressure",
		}
	case BottleneckDrawCalls:
		return []string{
			"Batch static geometry and enable instancing",
			"Merge materials to cut state changes",
		}
	case BottleneckGeometry:
		return []string{
			"Enable LOD transitions at shorter distances",
			"Cull or simplify dense meshes",
		}
	default:
		return nil
	}
}
