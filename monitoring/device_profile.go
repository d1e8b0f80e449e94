package monitoring

// DeviceTier buckets devices by capability for choosing a starting quality
// level and target frame rate.
type DeviceTier int

const (
	DeviceTierLow DeviceTier = iota
	DeviceTierMid
	DeviceTierHigh
)

func (dt DeviceTier) String() string {
	switch dt {
	case DeviceTierLow:
		return "low"
	case DeviceTierMid:
		return "mid"
	case DeviceTierHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ThermalState mirrors the platform thermal API states.
type ThermalState int

const (
	ThermalNominal ThermalState = iota
	ThermalFair
	ThermalSerious
	ThermalCritical
)

func (ts ThermalState) String() string {
	switch ts {
	case ThermalNominal:
		return "nominal"
	case ThermalFair:
		return "fair"
	case ThermalSerious:
		return "serious"
	case ThermalCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// DeviceProfile describes the capability signals the platform layer reports
// at startup. It is a plain descriptor: the telemetry pipeline only reads
// it.
type DeviceProfile struct {
	Model        string       `json:"model"`
	CPUCores     int          `json:"cpu_cores"`
	MemoryMB     int          `json:"memory_mb"`
	GPUFamily    string       `json:"gpu_family"`
	ThermalState ThermalState `json:"thermal_state"`
}

// Tier classifies the device. Memory is the dominant signal on mobile;
// core count breaks ties for older high-memory devices.
func (dp DeviceProfile) Tier() DeviceTier {
	switch {
	case dp.MemoryMB < 3072 || dp.CPUCores <= 4:
		return DeviceTierLow
	case dp.MemoryMB < 6144 || dp.CPUCores <= 6:
		return DeviceTierMid
	default:
		return DeviceTierHigh
	}
}

// RecommendedTargetFPS returns the frame-rate target appropriate for the
// device tier, reduced when the device is already thermally constrained.
func (dp DeviceProfile) RecommendedTargetFPS() float64 {
	var fps float64
	switch dp.Tier() {
	case DeviceTierLow:
		fps = 30
	case DeviceTierMid:
		fps = 45
	default:
		fps = 60
	}

	if dp.ThermalState >= ThermalSerious {
		fps = 30
	}
	return fps
}

// RecommendedQualityLevel suggests a starting index into a quality table
// with maxLevel as its highest index.
func (dp DeviceProfile) RecommendedQualityLevel(maxLevel int) int {
	if maxLevel < 0 {
		return 0
	}

	var level int
	switch dp.Tier() {
	case DeviceTierLow:
		level = 0
	case DeviceTierMid:
		level = maxLevel / 2
	default:
		level = maxLevel
	}

	if dp.ThermalState >= ThermalSerious && level > 0 {
		level--
	}
	if level > maxLevel {
		level = maxLevel
	}
	return level
}
