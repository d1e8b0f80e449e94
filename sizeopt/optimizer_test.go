package sizeopt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clduab11/thinkrank-perf/adaptive"
)

func testManifest() *Manifest {
	return &Manifest{Assets: []Asset{
		{Name: "ui/atlas.png", Kind: AssetTexture, SizeBytes: 4_000_000, Width: 2048, Height: 2048},
		{Name: "music/theme.wav", Kind: AssetAudio, SizeBytes: 10_000_000, DurationSec: 95},
		{Name: "chars/hero.mesh", Kind: AssetMesh, SizeBytes: 2_000_000, Triangles: 45_000},
		{Name: "Assembly-CSharp.dll", Kind: AssetCode, SizeBytes: 6_000_000},
	}}
}

func TestOptimizerAcceptsAboveFloors(t *testing.T) {
	o := NewOptimizer(adaptive.PlatformAndroid, TierLow, nil)

	report, err := o.Run(testManifest())
	require.NoError(t, err)
	require.Len(t, report.Decisions, 4)
	assert.Equal(t, 4, report.AcceptedCount())

	// Low-tier Android textures land on ETC2 at half size.
	tex := report.Decisions[0]
	assert.True(t, tex.Accepted)
	assert.Equal(t, FormatETC2, tex.Format)
	assert.Equal(t, int64(2_000_000), tex.EstimatedBytes)
	assert.InDelta(t, 0.50, tex.SavingsFrac, 0.001)
}

func TestOptimizerAudioSavingsNearFloor(t *testing.T) {
	// High-tier Vorbis keeps 65% of the original: a 35% saving, just above
	// the 30% audio floor.
	o := NewOptimizer(adaptive.PlatformIOS, TierHigh, nil)

	report, err := o.Run(&Manifest{Assets: []Asset{
		{Name: "voice/intro.wav", Kind: AssetAudio, SizeBytes: 1_000_000},
	}})
	require.NoError(t, err)

	d := report.Decisions[0]
	assert.True(t, d.Accepted)
	assert.InDelta(t, 0.35, d.SavingsFrac, 0.001)
}

func TestOptimizerRejectsUnknownPlatformCombination(t *testing.T) {
	o := NewOptimizer(adaptive.Platform("console"), TierMid, nil)

	report, err := o.Run(&Manifest{Assets: []Asset{
		{Name: "ui/atlas.png", Kind: AssetTexture, SizeBytes: 4_000_000},
	}})
	require.NoError(t, err)

	d := report.Decisions[0]
	assert.False(t, d.Accepted)
	assert.Equal(t, FormatNone, d.Format)
	assert.Equal(t, "savings below 20% texture floor", d.Reason)
	assert.Equal(t, d.OriginalBytes, report.TotalAfter)
}

func TestOptimizerRejectedAssetsKeepOriginalSize(t *testing.T) {
	o := NewOptimizer(adaptive.Platform("console"), TierMid, nil)

	manifest := &Manifest{Assets: []Asset{
		{Name: "ui/atlas.png", Kind: AssetTexture, SizeBytes: 4_000_000},
		{Name: "chars/hero.mesh", Kind: AssetMesh, SizeBytes: 2_000_000},
	}}
	report, err := o.Run(manifest)
	require.NoError(t, err)

	assert.Equal(t, int64(6_000_000), report.TotalBefore)
	// Texture rejected (4M kept), mesh quantized to 75% (1.5M).
	assert.Equal(t, int64(5_500_000), report.TotalAfter)
	assert.Equal(t, int64(500_000), report.TotalSavedBytes)
	assert.Equal(t, 1, report.AcceptedCount())
}

func TestOptimizerMeshAndCodeEstimates(t *testing.T) {
	o := NewOptimizer(adaptive.PlatformIOS, TierMid, nil)

	report, err := o.Run(&Manifest{Assets: []Asset{
		{Name: "chars/hero.mesh", Kind: AssetMesh, SizeBytes: 1_000_000},
		{Name: "Assembly-CSharp.dll", Kind: AssetCode, SizeBytes: 1_000_000},
	}})
	require.NoError(t, err)

	mesh, code := report.Decisions[0], report.Decisions[1]
	assert.Equal(t, FormatMeshQuant, mesh.Format)
	assert.Equal(t, int64(750_000), mesh.EstimatedBytes)
	assert.Equal(t, FormatStripped, code.Format)
	assert.Equal(t, int64(650_000), code.EstimatedBytes)
	assert.True(t, mesh.Accepted)
	assert.True(t, code.Accepted)
}

func TestOptimizerSavingsPercent(t *testing.T) {
	o := NewOptimizer(adaptive.PlatformAndroid, TierLow, nil)

	report, err := o.Run(&Manifest{Assets: []Asset{
		{Name: "ui/atlas.png", Kind: AssetTexture, SizeBytes: 1_000_000},
	}})
	require.NoError(t, err)

	assert.InDelta(t, 50.0, report.SavingsPercent, 0.001)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, string(adaptive.PlatformAndroid), report.Platform)
	assert.Equal(t, string(TierLow), report.Tier)
}

func TestOptimizerRejectsInvalidManifest(t *testing.T) {
	o := NewOptimizer(adaptive.PlatformIOS, TierMid, nil)

	cases := []*Manifest{
		{},
		{Assets: []Asset{{Name: "", Kind: AssetTexture, SizeBytes: 1}}},
		{Assets: []Asset{{Name: "x", Kind: AssetKind("video"), SizeBytes: 1}}},
		{Assets: []Asset{{Name: "x", Kind: AssetTexture, SizeBytes: 0}}},
	}
	for _, m := range cases {
		_, err := o.Run(m)
		assert.Error(t, err)
	}
}

func TestLookupFormatTiers(t *testing.T) {
	tests := []struct {
		platform adaptive.Platform
		kind     AssetKind
		tier     QualityTier
		format   CompressionFormat
	}{
		{adaptive.PlatformIOS, AssetTexture, TierLow, FormatASTC8x8},
		{adaptive.PlatformIOS, AssetTexture, TierHigh, FormatASTC4x4},
		{adaptive.PlatformAndroid, AssetTexture, TierMid, FormatETC2},
		{adaptive.PlatformAndroid, AssetTexture, TierHigh, FormatASTC6x6},
		{adaptive.PlatformDesktop, AssetTexture, TierMid, FormatBC7},
		{adaptive.PlatformAndroid, AssetAudio, TierLow, FormatVorbisQ2},
		{adaptive.PlatformDesktop, AssetAudio, TierHigh, FormatVorbisQ8},
		{adaptive.PlatformIOS, AssetMesh, TierLow, FormatMeshQuant},
		{adaptive.PlatformDesktop, AssetCode, TierHigh, FormatStripped},
	}

	for _, tt := range tests {
		choice := lookupFormat(tt.platform, tt.kind, tt.tier)
		assert.Equal(t, tt.format, choice.Format, "%s/%s/%s", tt.platform, tt.kind, tt.tier)
		assert.Greater(t, choice.Ratio, 0.0)
		assert.LessOrEqual(t, choice.Ratio, 1.0)
	}
}
