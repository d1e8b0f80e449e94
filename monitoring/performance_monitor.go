package monitoring

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PerformanceMonitor is the telemetry facade: the host loop feeds frames
// in, and the monitor maintains rolling statistics, Prometheus metrics and
// the performance event stream.
type PerformanceMonitor interface {
	// RecordFrame feeds one frame observation into the sampler and the
	// bottleneck analysis window.
	RecordFrame(sample FrameSample)

	// Start begins the periodic snapshot loop.
	Start(ctx context.Context) error

	// Stop stops the snapshot loop.
	Stop() error

	// Snapshot builds an aggregate of the current window state.
	Snapshot() PerformanceSnapshot

	// Events returns the event dispatcher shared by the subsystem.
	Events() *Dispatcher

	// Registry returns the Prometheus registry for exposition.
	Registry() *prometheus.Registry

	// SetQualityProvider wires in the source of the current quality level
	// reported in snapshots.
	SetQualityProvider(provider QualityProvider)

	// SetSnapshotInterval changes the snapshot cadence. Takes effect on
	// the next Start.
	SetSnapshotInterval(interval time.Duration)
}

// QualityProvider reports the current quality level index. Implemented by
// the adaptive controller.
type QualityProvider interface {
	QualityLevel() int
}

// PerformanceSnapshot is the periodic aggregate published to listeners.
// Snapshots are ephemeral; they are not persisted.
type PerformanceSnapshot struct {
	Timestamp        time.Time        `json:"timestamp"`
	CurrentFPS       float64          `json:"current_fps"`
	AverageFPS       float64          `json:"average_fps"`
	AverageFrameTime time.Duration    `json:"average_frame_time"`
	MemoryUsage      uint64           `json:"memory_usage"`
	DroppedFrames    int64            `json:"dropped_frames"`
	TotalFrames      int64            `json:"total_frames"`
	QualityLevel     int              `json:"quality_level"`
	Level            PerformanceLevel `json:"-"`
	LevelName        string           `json:"performance_level"`
}

// DefaultSnapshotInterval is how often the monitor publishes snapshots.
const DefaultSnapshotInterval = time.Second

// performanceMonitor implements the PerformanceMonitor interface.
type performanceMonitor struct {
	mu sync.RWMutex

	sampler    *FrameSampler
	analyzer   BottleneckAnalyzer
	dispatcher *Dispatcher
	quality    QualityProvider
	logger     *slog.Logger

	interval  time.Duration
	lastLevel PerformanceLevel
	isRunning bool
	stopChan  chan struct{}

	registry *prometheus.Registry

	fpsGauge           prometheus.Gauge
	averageFPSGauge    prometheus.Gauge
	frameTimeHist      prometheus.Histogram
	memoryGauge        prometheus.Gauge
	droppedGauge       prometheus.Gauge
	qualityGauge       prometheus.Gauge
	perfLevelGauge     prometheus.Gauge
	framesTotal        prometheus.Counter
	eventsDroppedGauge prometheus.Gauge
}

// NewPerformanceMonitor wires a sampler, an analyzer and a dispatcher into
// a monitor. The analyzer may be nil when bottleneck analysis is disabled;
// a nil logger falls back to slog.Default.
func NewPerformanceMonitor(sampler *FrameSampler, analyzer BottleneckAnalyzer, dispatcher *Dispatcher, logger *slog.Logger) PerformanceMonitor {
	if logger == nil {
		logger = slog.Default()
	}

	pm := &performanceMonitor{
		sampler:    sampler,
		analyzer:   analyzer,
		dispatcher: dispatcher,
		logger:     logger.With("component", "performance_monitor"),
		interval:   DefaultSnapshotInterval,
		lastLevel:  PerformanceGood,
		stopChan:   make(chan struct{}),
		registry:   prometheus.NewRegistry(),
	}

	pm.initMetrics()
	return pm
}

// initMetrics registers all Prometheus metrics.
func (pm *performanceMonitor) initMetrics() {
	pm.fpsGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "fps",
		Help:      "Instantaneous frames per second",
	})

	pm.averageFPSGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "average_fps",
		Help:      "Rolling average FPS over the sample window",
	})

	pm.frameTimeHist = promauto.With(pm.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "frame_time_seconds",
		Help:      "Per-frame time in seconds",
		Buckets:   []float64{0.004, 0.008, 0.0167, 0.022, 0.033, 0.05, 0.1, 0.25, 0.5},
	})

	pm.memoryGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "memory_usage_bytes",
		Help:      "Heap memory currently in use",
	})

	pm.droppedGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "dropped_frames_total",
		Help:      "Frames that exceeded 1.5x the target frame time",
	})

	pm.qualityGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "quality_level",
		Help:      "Current quality level index",
	})

	pm.perfLevelGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "performance_level",
		Help:      "Classified performance level (0=critical .. 4=excellent)",
	})

	pm.framesTotal = promauto.With(pm.registry).NewCounter(prometheus.CounterOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "frames_total",
		Help:      "Total frames recorded",
	})

	pm.eventsDroppedGauge = promauto.With(pm.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: "thinkrank",
		Subsystem: "perf",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber buffer was full",
	})
}

// RecordFrame feeds one frame observation into the pipeline.
func (pm *performanceMonitor) RecordFrame(sample FrameSample) {
	pm.sampler.Record(sample.FrameTime)
	if pm.analyzer != nil {
		pm.analyzer.Record(sample)
	}

	pm.frameTimeHist.Observe(sample.FrameTime.Seconds())
	pm.framesTotal.Inc()
}

// Start begins the periodic snapshot loop.
func (pm *performanceMonitor) Start(ctx context.Context) error {
	pm.mu.Lock()
	if pm.isRunning {
		pm.mu.Unlock()
		return fmt.Errorf("performance monitor is already running")
	}
	pm.isRunning = true
	stop := pm.stopChan
	interval := pm.interval
	pm.mu.Unlock()

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
				pm.publishSnapshot()
			}
		}
	}()

	return nil
}

// Stop stops the snapshot loop.
func (pm *performanceMonitor) Stop() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if !pm.isRunning {
		return nil
	}
	pm.isRunning = false
	close(pm.stopChan)
	pm.stopChan = make(chan struct{})
	return nil
}

// Snapshot builds an aggregate of the current window state.
func (pm *performanceMonitor) Snapshot() PerformanceSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	level := Classify(pm.sampler.RollingFPS(), pm.sampler.TargetFPS())

	snapshot := PerformanceSnapshot{
		Timestamp:        time.Now(),
		CurrentFPS:       pm.sampler.InstantFPS(),
		AverageFPS:       pm.sampler.RollingFPS(),
		AverageFrameTime: pm.sampler.AverageFrameTime(),
		MemoryUsage:      memStats.HeapAlloc,
		DroppedFrames:    pm.sampler.DroppedFrames(),
		TotalFrames:      pm.sampler.TotalRecorded(),
		Level:            level,
		LevelName:        level.String(),
	}

	pm.mu.RLock()
	if pm.quality != nil {
		snapshot.QualityLevel = pm.quality.QualityLevel()
	}
	pm.mu.RUnlock()

	return snapshot
}

// publishSnapshot refreshes gauges and emits events for one tick.
func (pm *performanceMonitor) publishSnapshot() {
	snapshot := pm.Snapshot()

	pm.fpsGauge.Set(snapshot.CurrentFPS)
	pm.averageFPSGauge.Set(snapshot.AverageFPS)
	pm.memoryGauge.Set(float64(snapshot.MemoryUsage))
	pm.droppedGauge.Set(float64(snapshot.DroppedFrames))
	pm.qualityGauge.Set(float64(snapshot.QualityLevel))
	pm.perfLevelGauge.Set(float64(snapshot.Level))
	if pm.dispatcher != nil {
		pm.eventsDroppedGauge.Set(float64(pm.dispatcher.DroppedEvents()))
	}

	pm.mu.Lock()
	levelChanged := snapshot.Level != pm.lastLevel
	pm.lastLevel = snapshot.Level
	pm.mu.Unlock()

	if levelChanged {
		pm.logger.Info("performance level changed",
			"level", snapshot.LevelName,
			"average_fps", snapshot.AverageFPS,
			"dropped_frames", snapshot.DroppedFrames)
	}

	if pm.dispatcher == nil {
		return
	}

	pm.dispatcher.Publish(Event{
		Type:     EventMetricsUpdated,
		Snapshot: &snapshot,
	})

	if snapshot.Level <= PerformancePoor {
		pm.dispatcher.Publish(Event{
			Type: EventPerformanceWarning,
			Warning: &PerformanceWarning{
				Level:      snapshot.Level,
				LevelName:  snapshot.LevelName,
				RollingFPS: snapshot.AverageFPS,
				TargetFPS:  pm.sampler.TargetFPS(),
				Message: fmt.Sprintf("performance %s: %.1f FPS against %.0f target",
					snapshot.LevelName, snapshot.AverageFPS, pm.sampler.TargetFPS()),
			},
		})
	}
}

// Events returns the event dispatcher shared by the subsystem.
func (pm *performanceMonitor) Events() *Dispatcher {
	return pm.dispatcher
}

// Registry returns the Prometheus registry for exposition.
func (pm *performanceMonitor) Registry() *prometheus.Registry {
	return pm.registry
}

// SetQualityProvider wires in the source of the current quality level.
func (pm *performanceMonitor) SetQualityProvider(provider QualityProvider) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.quality = provider
}

// SetSnapshotInterval changes the snapshot cadence. Non-positive values
// are ignored.
func (pm *performanceMonitor) SetSnapshotInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.interval = interval
}
