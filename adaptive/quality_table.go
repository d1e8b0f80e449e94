// Package adaptive implements the closed-loop quality controller: it
// consumes classified performance levels and steps the platform quality
// level up or down under a cooldown guard.
package adaptive

import "fmt"

// Platform selects the quality table variant.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformDesktop Platform = "desktop"
)

// ShadowQuality is the shadow rendering setting for a preset.
type ShadowQuality string

const (
	ShadowsOff  ShadowQuality = "off"
	ShadowsLow  ShadowQuality = "low"
	ShadowsMed  ShadowQuality = "medium"
	ShadowsHigh ShadowQuality = "high"
)

// QualityPreset is one entry in the ordered platform quality table.
type QualityPreset struct {
	Name            string        `json:"name" yaml:"name"`
	ResolutionScale float64       `json:"resolution_scale" yaml:"resolution_scale"`
	Shadows         ShadowQuality `json:"shadows" yaml:"shadows"`
	ParticleBudget  int           `json:"particle_budget" yaml:"particle_budget"`
	AntiAliasing    int           `json:"anti_aliasing" yaml:"anti_aliasing"`
	TargetFPS       float64       `json:"target_fps" yaml:"target_fps"`
}

// QualityTable is an ordered set of presets, lowest quality first.
type QualityTable []QualityPreset

// MaxLevel returns the highest valid index.
func (qt QualityTable) MaxLevel() int {
	return len(qt) - 1
}

// Preset returns the preset at level, or an error when out of range.
func (qt QualityTable) Preset(level int) (QualityPreset, error) {
	if level < 0 || level >= len(qt) {
		return QualityPreset{}, fmt.Errorf("quality level %d out of range [0, %d]", level, qt.MaxLevel())
	}
	return qt[level], nil
}

// DefaultTable returns the built-in quality ladder for a platform. Mobile
// ladders cap particle budgets and mid-tier target frame rates lower than
// the desktop ladder.
func DefaultTable(platform Platform) QualityTable {
	switch platform {
	case PlatformIOS, PlatformAndroid:
		return QualityTable{
			{Name: "minimal", ResolutionScale: 0.5, Shadows: ShadowsOff, ParticleBudget: 50, AntiAliasing: 0, TargetFPS: 30},
			{Name: "low", ResolutionScale: 0.65, Shadows: ShadowsOff, ParticleBudget: 100, AntiAliasing: 0, TargetFPS: 30},
			{Name: "medium", ResolutionScale: 0.8, Shadows: ShadowsLow, ParticleBudget: 250, AntiAliasing: 2, TargetFPS: 45},
			{Name: "high", ResolutionScale: 0.9, Shadows: ShadowsMed, ParticleBudget: 500, AntiAliasing: 2, TargetFPS: 60},
			{Name: "ultra", ResolutionScale: 1.0, Shadows: ShadowsHigh, ParticleBudget: 1000, AntiAliasing: 4, TargetFPS: 60},
		}
	default:
		return QualityTable{
			{Name: "low", ResolutionScale: 0.75, Shadows: ShadowsLow, ParticleBudget: 500, AntiAliasing: 0, TargetFPS: 60},
			{Name: "medium", ResolutionScale: 1.0, Shadows: ShadowsMed, ParticleBudget: 1500, AntiAliasing: 2, TargetFPS: 60},
			{Name: "high", ResolutionScale: 1.0, Shadows: ShadowsHigh, ParticleBudget: 3000, AntiAliasing: 4, TargetFPS: 120},
		}
	}
}
