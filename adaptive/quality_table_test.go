package adaptive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableMobile(t *testing.T) {
	for _, platform := range []Platform{PlatformIOS, PlatformAndroid} {
		table := DefaultTable(platform)
		require.Len(t, table, 5, "platform %s", platform)
		assert.Equal(t, 4, table.MaxLevel())

		// Ordered lowest quality first.
		for i := 1; i < len(table); i++ {
			assert.GreaterOrEqual(t, table[i].ResolutionScale, table[i-1].ResolutionScale)
			assert.GreaterOrEqual(t, table[i].ParticleBudget, table[i-1].ParticleBudget)
			assert.GreaterOrEqual(t, table[i].TargetFPS, table[i-1].TargetFPS)
		}
	}
}

func TestDefaultTableDesktop(t *testing.T) {
	table := DefaultTable(PlatformDesktop)
	require.Len(t, table, 3)
	assert.Equal(t, ShadowsLow, table[0].Shadows)
	assert.Equal(t, 120.0, table[2].TargetFPS)
}

func TestPresetOutOfRange(t *testing.T) {
	table := DefaultTable(PlatformAndroid)

	_, err := table.Preset(-1)
	assert.Error(t, err)
	_, err = table.Preset(len(table))
	assert.Error(t, err)

	preset, err := table.Preset(0)
	require.NoError(t, err)
	assert.Equal(t, "minimal", preset.Name)
}
