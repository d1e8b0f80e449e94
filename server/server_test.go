package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clduab11/thinkrank-perf/adaptive"
	"github.com/clduab11/thinkrank-perf/monitoring"
)

type serverFixture struct {
	server     *Server
	monitor    monitoring.PerformanceMonitor
	analyzer   monitoring.BottleneckAnalyzer
	controller *adaptive.Controller
	dispatcher *monitoring.Dispatcher
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()

	dispatcher := monitoring.NewDispatcher(0)
	sampler := monitoring.NewFrameSampler(monitoring.DefaultSamplerCapacity, 60)
	analyzer := monitoring.NewBottleneckAnalyzer(60, dispatcher)
	monitor := monitoring.NewPerformanceMonitor(sampler, analyzer, dispatcher, nil)
	controller := adaptive.NewController(adaptive.Options{InitialLevel: 2, Dispatcher: dispatcher})

	return &serverFixture{
		server:     New(":0", []string{"*"}, monitor, analyzer, controller, nil),
		monitor:    monitor,
		analyzer:   analyzer,
		controller: controller,
		dispatcher: dispatcher,
	}
}

func TestHandleStatus(t *testing.T) {
	fx := newFixture(t)

	for i := 0; i < 60; i++ {
		fx.monitor.RecordFrame(monitoring.FrameSample{FrameTime: 20 * time.Millisecond})
	}
	_, err := fx.analyzer.AnalyzeNow()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	fx.server.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.InDelta(t, 50.0, resp.Snapshot.AverageFPS, 0.001)
	assert.Equal(t, "fair", resp.Snapshot.LevelName)
	require.NotNil(t, resp.Bottleneck)
	assert.Equal(t, monitoring.BottleneckNone, resp.Bottleneck.Type)
	require.NotNil(t, resp.Quality)
	assert.Equal(t, 2, resp.Quality.Level)
	assert.Equal(t, "medium", resp.Quality.Preset.Name)
}

func TestHandleStatusMethodNotAllowed(t *testing.T) {
	fx := newFixture(t)

	rec := httptest.NewRecorder()
	fx.server.handleStatus(rec, httptest.NewRequest(http.MethodPost, "/status", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandleStatusWithoutOptionalComponents(t *testing.T) {
	dispatcher := monitoring.NewDispatcher(0)
	sampler := monitoring.NewFrameSampler(monitoring.DefaultSamplerCapacity, 60)
	monitor := monitoring.NewPerformanceMonitor(sampler, nil, dispatcher, nil)
	srv := New(":0", nil, monitor, nil, nil, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Nil(t, resp.Bottleneck)
	assert.Nil(t, resp.Quality)
}

func TestMetricsEndpoint(t *testing.T) {
	fx := newFixture(t)

	for i := 0; i < 10; i++ {
		fx.monitor.RecordFrame(monitoring.FrameSample{FrameTime: 16 * time.Millisecond})
	}

	ts := httptest.NewServer(fx.server.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "thinkrank_perf_frames_total 10")
	assert.Contains(t, string(body), "thinkrank_perf_frame_time_seconds_bucket")
}

func TestHealthz(t *testing.T) {
	fx := newFixture(t)

	ts := httptest.NewServer(fx.server.httpServer.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSHeaders(t *testing.T) {
	fx := newFixture(t)

	ts := httptest.NewServer(fx.server.httpServer.Handler)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://game.example.com")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketReceivesEvents(t *testing.T) {
	fx := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go fx.server.hub.Run(ctx)

	ts := httptest.NewServer(http.HandlerFunc(fx.server.hub.HandleConnection))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Publish until the hub has registered the client; pre-registration
	// events are simply lost.
	stopPub := make(chan struct{})
	defer close(stopPub)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopPub:
				return
			case <-ticker.C:
				fx.dispatcher.Publish(monitoring.Event{
					Type:    monitoring.EventQualityChanged,
					Quality: &monitoring.QualityChange{FromLevel: 2, ToLevel: 1, Reason: "poor performance"},
				})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event monitoring.Event
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, monitoring.EventQualityChanged, event.Type)
	require.NotNil(t, event.Quality)
	assert.Equal(t, 1, event.Quality.ToLevel)
	assert.NotEmpty(t, event.ID)
}
