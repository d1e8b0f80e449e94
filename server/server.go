// Package server exposes the telemetry subsystem over HTTP: Prometheus
// exposition on /metrics, a JSON status snapshot on /status and a
// websocket event stream on /ws.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/clduab11/thinkrank-perf/adaptive"
	"github.com/clduab11/thinkrank-perf/monitoring"
)

// Server hosts the external telemetry endpoints.
type Server struct {
	monitor    monitoring.PerformanceMonitor
	analyzer   monitoring.BottleneckAnalyzer
	controller *adaptive.Controller
	hub        *Hub
	logger     *slog.Logger

	httpServer *http.Server
}

// StatusResponse is the /status payload.
type StatusResponse struct {
	Snapshot   monitoring.PerformanceSnapshot `json:"snapshot"`
	Bottleneck *monitoring.BottleneckAnalysis `json:"bottleneck,omitempty"`
	Quality    *QualityStatus                 `json:"quality,omitempty"`
}

// QualityStatus summarizes the controller state for /status.
type QualityStatus struct {
	Level       int                    `json:"level"`
	Preset      adaptive.QualityPreset `json:"preset"`
	Transitions []adaptive.Transition  `json:"transitions"`
}

// New creates a server. analyzer and controller may be nil when the
// corresponding features are disabled.
func New(addr string, allowedOrigins []string, monitor monitoring.PerformanceMonitor,
	analyzer monitoring.BottleneckAnalyzer, controller *adaptive.Controller, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		monitor:    monitor,
		analyzer:   analyzer,
		controller: controller,
		hub:        NewHub(monitor.Events(), logger),
		logger:     logger.With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(monitor.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/ws", s.hub.HandleConnection)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware.Handler(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Start runs the event hub and listens until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("telemetry endpoint listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("telemetry endpoint: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

// handleStatus serves the current snapshot plus the last bottleneck
// analysis and controller state.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StatusResponse{Snapshot: s.monitor.Snapshot()}

	if s.analyzer != nil {
		resp.Bottleneck = s.analyzer.LastAnalysis()
	}
	if s.controller != nil {
		resp.Quality = &QualityStatus{
			Level:       s.controller.QualityLevel(),
			Preset:      s.controller.Preset(),
			Transitions: s.controller.History(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Warn("failed to write status response", "error", err)
	}
}
