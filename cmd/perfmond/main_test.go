package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"frame_time_ms,cpu,gpu,memory,draw_calls,triangles\n"+
			"16.7,45,40,55,220,42000\n"+
			"33.4,85,60,70,480,90000\n"), 0o644))

	trace, err := loadTrace(path)
	require.NoError(t, err)
	require.Len(t, trace, 2)

	assert.Equal(t, 16.7, trace[0].FrameTimeMS)
	assert.Equal(t, 480, trace[1].DrawCalls)
}

func TestLoadTraceErrors(t *testing.T) {
	_, err := loadTrace(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("frame_time_ms,cpu,gpu,memory,draw_calls,triangles\n"), 0o644))
	_, err = loadTrace(path)
	assert.Error(t, err)
}

func TestSyntheticSampleSweepsLoadBands(t *testing.T) {
	var minFT, maxFT time.Duration
	for i := 0; i < 3600; i++ {
		s := syntheticSample(i, 60)
		if minFT == 0 || s.FrameTime < minFT {
			minFT = s.FrameTime
		}
		if s.FrameTime > maxFT {
			maxFT = s.FrameTime
		}
		assert.GreaterOrEqual(t, s.CPUUsage, 40.0)
		assert.LessOrEqual(t, s.CPUUsage, 95.0)
	}

	// The swing must cross both the excellent band and the dropped-frame
	// threshold so every classification gets exercised.
	assert.Less(t, minFT, 15*time.Millisecond)
	assert.Greater(t, maxFT, 30*time.Millisecond)
}
