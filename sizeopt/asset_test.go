package sizeopt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clduab11/thinkrank-perf/adaptive"
)

const manifestYAML = `assets:
  - name: ui/atlas.png
    kind: texture
    size_bytes: 4194304
    width: 2048
    height: 2048
  - name: music/theme.wav
    kind: audio
    size_bytes: 10485760
    duration_sec: 95.5
  - name: chars/hero.mesh
    kind: mesh
    size_bytes: 2097152
    triangles: 45000
`

const manifestCSV = `name,kind,size_bytes,width,height,duration_sec,triangles
ui/atlas.png,texture,4194304,2048,2048,0,0
music/theme.wav,audio,10485760,0,0,95.5,0
Assembly-CSharp.dll,code,6291456,0,0,0,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadManifestYAML(t *testing.T) {
	path := writeFile(t, "manifest.yaml", manifestYAML)

	manifest, err := LoadManifestYAML(path)
	require.NoError(t, err)
	require.Len(t, manifest.Assets, 3)

	assert.Equal(t, "ui/atlas.png", manifest.Assets[0].Name)
	assert.Equal(t, AssetTexture, manifest.Assets[0].Kind)
	assert.Equal(t, 2048, manifest.Assets[0].Width)
	assert.Equal(t, 95.5, manifest.Assets[1].DurationSec)
	assert.Equal(t, 45000, manifest.Assets[2].Triangles)
	assert.Equal(t, int64(4194304+10485760+2097152), manifest.TotalBytes())
}

func TestLoadManifestYAMLErrors(t *testing.T) {
	_, err := LoadManifestYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeFile(t, "bad.yaml", "assets: [not a mapping")
	_, err = LoadManifestYAML(path)
	assert.Error(t, err)

	path = writeFile(t, "empty.yaml", "assets: []")
	_, err = LoadManifestYAML(path)
	assert.Error(t, err)

	path = writeFile(t, "badkind.yaml", "assets:\n  - name: x\n    kind: video\n    size_bytes: 10\n")
	_, err = LoadManifestYAML(path)
	assert.Error(t, err)
}

func TestLoadManifestCSV(t *testing.T) {
	path := writeFile(t, "manifest.csv", manifestCSV)

	manifest, err := LoadManifestCSV(path)
	require.NoError(t, err)
	require.Len(t, manifest.Assets, 3)

	assert.Equal(t, AssetAudio, manifest.Assets[1].Kind)
	assert.Equal(t, int64(10485760), manifest.Assets[1].SizeBytes)
	assert.Equal(t, AssetCode, manifest.Assets[2].Kind)
}

func TestLoadManifestCSVMissing(t *testing.T) {
	_, err := LoadManifestCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestReportWriteRoundTrip(t *testing.T) {
	o := NewOptimizer(adaptive.PlatformAndroid, TierMid, nil)
	report, err := o.Run(testManifest())
	require.NoError(t, err)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "report.csv")
	jsonPath := filepath.Join(dir, "report.json")

	require.NoError(t, report.WriteCSV(csvPath))
	require.NoError(t, report.WriteJSON(jsonPath))

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "ui/atlas.png")
	assert.Contains(t, string(csvData), "etc2")

	jsonData, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), report.RunID)
	assert.Contains(t, string(jsonData), "total_saved_bytes")
}
