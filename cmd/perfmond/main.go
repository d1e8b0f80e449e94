// perfmond runs the performance telemetry pipeline as a daemon: it replays
// a recorded frame trace (or synthesizes a workload), classifies
// performance, drives the adaptive quality controller and serves the
// metrics, status and event-stream endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/clduab11/thinkrank-perf/adaptive"
	"github.com/clduab11/thinkrank-perf/config"
	"github.com/clduab11/thinkrank-perf/monitoring"
	"github.com/clduab11/thinkrank-perf/server"
)

// traceRecord is one row of a recorded frame trace.
type traceRecord struct {
	FrameTimeMS float64 `csv:"frame_time_ms"`
	CPU         float64 `csv:"cpu"`
	GPU         float64 `csv:"gpu"`
	Memory      float64 `csv:"memory"`
	DrawCalls   int     `csv:"draw_calls"`
	Triangles   int     `csv:"triangles"`
}

func main() {
	configPath := flag.String("config", "perfmon.yaml", "path to config file")
	tracePath := flag.String("trace", "", "frame trace CSV to replay (loops; synthetic workload when empty)")
	flag.Parse()

	if err := run(*configPath, *tracePath); err != nil {
		fmt.Fprintln(os.Stderr, "perfmond:", err)
		os.Exit(1)
	}
}

func run(configPath, tracePath string) error {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath, bootLogger)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := monitoring.NewDispatcher(cfg.Monitor.EventBuffer)
	sampler := monitoring.NewFrameSampler(cfg.Sampler.Capacity, cfg.Sampler.TargetFPS)

	var analyzer monitoring.BottleneckAnalyzer
	if cfg.Analyzer.Enabled {
		analyzer = monitoring.NewBottleneckAnalyzer(cfg.Sampler.TargetFPS, dispatcher)
		if err := analyzer.SetThresholds(cfg.Analyzer.Thresholds); err != nil {
			return err
		}
		analyzer.SetInterval(cfg.Analyzer.Interval.Std())
		if err := analyzer.Start(ctx); err != nil {
			return err
		}
		defer analyzer.Stop()
	}

	monitor := monitoring.NewPerformanceMonitor(sampler, analyzer, dispatcher, logger)
	monitor.SetSnapshotInterval(cfg.Monitor.SnapshotInterval.Std())

	table := adaptive.DefaultTable(adaptive.Platform(cfg.Quality.Platform))
	initialLevel := cfg.Quality.InitialLevel
	if initialLevel < 0 {
		profile := localDeviceProfile()
		initialLevel = profile.RecommendedQualityLevel(table.MaxLevel())
		logger.Info("derived initial quality from device profile",
			"tier", profile.Tier().String(), "level", initialLevel)
	}

	controller := adaptive.NewController(adaptive.Options{
		Table:              table,
		InitialLevel:       initialLevel,
		Cooldown:           cfg.Quality.Cooldown.Std(),
		UpgradeStableEvals: cfg.Quality.UpgradeStableEvals,
		Dispatcher:         dispatcher,
		Logger:             logger,
	})
	monitor.SetQualityProvider(controller)

	if err := monitor.Start(ctx); err != nil {
		return err
	}
	defer monitor.Stop()

	// The controller consumes classified snapshots off the event stream,
	// the same path UI listeners use.
	go evaluateLoop(ctx, dispatcher, controller)

	go feedFrames(ctx, monitor, cfg.Sampler.TargetFPS, tracePath, logger)

	srv := server.New(cfg.Server.ListenAddr, cfg.Server.AllowedOrigins, monitor, analyzer, controller, logger)
	return srv.Start(ctx)
}

// evaluateLoop feeds snapshot classifications into the controller.
func evaluateLoop(ctx context.Context, dispatcher *monitoring.Dispatcher, controller *adaptive.Controller) {
	subID, events := dispatcher.Subscribe()
	defer dispatcher.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type == monitoring.EventMetricsUpdated && event.Snapshot != nil {
				controller.Evaluate(event.Snapshot.Level)
			}
		}
	}
}

// feedFrames drives the pipeline from a trace file or a synthetic
// workload, pacing one sample per target frame interval.
func feedFrames(ctx context.Context, monitor monitoring.PerformanceMonitor, targetFPS float64, tracePath string, logger *slog.Logger) {
	var trace []traceRecord
	if tracePath != "" {
		var err error
		trace, err = loadTrace(tracePath)
		if err != nil {
			logger.Error("failed to load trace, falling back to synthetic workload", "error", err)
			trace = nil
		} else {
			logger.Info("replaying frame trace", "path", tracePath, "frames", len(trace))
		}
	}

	interval := time.Duration(float64(time.Second) / targetFPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	i := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var sample monitoring.FrameSample
			if len(trace) > 0 {
				rec := trace[i%len(trace)]
				sample = monitoring.FrameSample{
					FrameTime:      time.Duration(rec.FrameTimeMS * float64(time.Millisecond)),
					CPUUsage:       rec.CPU,
					GPUUsage:       rec.GPU,
					MemoryPressure: rec.Memory,
					DrawCalls:      rec.DrawCalls,
					Triangles:      rec.Triangles,
				}
			} else {
				sample = syntheticSample(i, targetFPS)
			}
			monitor.RecordFrame(sample)
			i++
		}
	}
}

// loadTrace reads a frame trace CSV.
func loadTrace(path string) ([]traceRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	var records []traceRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parsing trace: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("trace %q is empty", path)
	}
	return records, nil
}

// syntheticSample produces a slow sinusoidal load swing so every
// classification band and controller transition gets exercised.
func syntheticSample(i int, targetFPS float64) monitoring.FrameSample {
	base := 1.0 / targetFPS
	phase := float64(i) / (targetFPS * 30) * 2 * math.Pi
	load := (math.Sin(phase) + 1) / 2 // 0..1

	frameTime := base * (0.8 + 1.2*load)
	return monitoring.FrameSample{
		FrameTime:      time.Duration(frameTime * float64(time.Second)),
		CPUUsage:       40 + 55*load,
		GPUUsage:       35 + 50*load,
		MemoryPressure: 50 + 30*load,
		DrawCalls:      200 + int(500*load),
		Triangles:      40_000 + int(90_000*load),
	}
}

// localDeviceProfile builds a descriptor from the host machine. A real
// client reports these signals from the platform layer.
func localDeviceProfile() monitoring.DeviceProfile {
	return monitoring.DeviceProfile{
		Model:        "host",
		CPUCores:     runtime.NumCPU(),
		MemoryMB:     8192,
		GPUFamily:    "unknown",
		ThermalState: monitoring.ThermalNominal,
	}
}
