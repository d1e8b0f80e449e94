package monitoring

// PerformanceLevel is the discrete classification of current frame-rate
// health, from Critical (unplayable) to Excellent (headroom available).
type PerformanceLevel int

const (
	PerformanceCritical PerformanceLevel = iota
	PerformancePoor
	PerformanceFair
	PerformanceGood
	PerformanceExcellent
)

func (pl PerformanceLevel) String() string {
	switch pl {
	case PerformanceCritical:
		return "critical"
	case PerformancePoor:
		return "poor"
	case PerformanceFair:
		return "fair"
	case PerformanceGood:
		return "good"
	case PerformanceExcellent:
		return "excellent"
	default:
		return "unknown"
	}
}

// Classification bands, expressed as fractions of the target frame rate.
// PoorAbsoluteFPS is an absolute floor: anything at or above it that missed
// the Fair band is still Poor rather than Critical.
const (
	excellentBand   = 1.10
	goodBand        = 0.90
	fairBand        = 0.70
	PoorAbsoluteFPS = 30.0
)

// Classify maps a rolling average FPS against the target frame rate into a
// PerformanceLevel. It is a pure function of its inputs; a non-positive
// targetFPS falls back to 60.
func Classify(rollingFPS, targetFPS float64) PerformanceLevel {
	if targetFPS <= 0 {
		targetFPS = 60
	}

	ratio := rollingFPS / targetFPS
	switch {
	case ratio >= excellentBand:
		return PerformanceExcellent
	case ratio >= goodBand:
		return PerformanceGood
	case ratio >= fairBand:
		return PerformanceFair
	case rollingFPS >= PoorAbsoluteFPS:
		return PerformancePoor
	default:
		return PerformanceCritical
	}
}
