package sizeopt

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/clduab11/thinkrank-perf/adaptive"
)

const (
	// MinTextureSavings is the savings fraction below which a texture
	// format change is rejected as not worth the quality loss.
	MinTextureSavings = 0.20

	// MinAudioSavings is the equivalent floor for audio re-encoding.
	MinAudioSavings = 0.30
)

// Optimizer runs the size estimation pipeline over a manifest.
type Optimizer struct {
	platform adaptive.Platform
	tier     QualityTier
	logger   *slog.Logger
}

// NewOptimizer creates a pipeline for one platform and quality tier. A nil
// logger falls back to slog.Default.
func NewOptimizer(platform adaptive.Platform, tier QualityTier, logger *slog.Logger) *Optimizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Optimizer{
		platform: platform,
		tier:     tier,
		logger:   logger.With("component", "size_optimizer"),
	}
}

// Run estimates compression for every asset and accumulates the report.
// Texture changes must save at least MinTextureSavings and audio at least
// MinAudioSavings; mesh quantization and code stripping are bookkeeping
// estimates and are accepted whenever they save anything.
func (o *Optimizer) Run(manifest *Manifest) (*SizeReport, error) {
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	report := &SizeReport{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Platform:  string(o.platform),
		Tier:      string(o.tier),
	}

	for _, asset := range manifest.Assets {
		decision := o.decide(asset)
		report.Decisions = append(report.Decisions, decision)

		report.TotalBefore += asset.SizeBytes
		if decision.Accepted {
			report.TotalAfter += decision.EstimatedBytes
		} else {
			report.TotalAfter += asset.SizeBytes
		}
	}

	report.TotalSavedBytes = report.TotalBefore - report.TotalAfter
	if report.TotalBefore > 0 {
		report.SavingsPercent = float64(report.TotalSavedBytes) / float64(report.TotalBefore) * 100
	}

	o.logger.Info("size optimization complete",
		"run_id", report.RunID,
		"assets", len(report.Decisions),
		"before_bytes", report.TotalBefore,
		"after_bytes", report.TotalAfter,
		"savings_percent", report.SavingsPercent)

	return report, nil
}

// decide produces the per-asset decision.
func (o *Optimizer) decide(asset Asset) Decision {
	choice := lookupFormat(o.platform, asset.Kind, o.tier)
	estimated := int64(float64(asset.SizeBytes) * choice.Ratio)
	savings := 1 - choice.Ratio

	decision := Decision{
		AssetName:      asset.Name,
		Kind:           asset.Kind,
		Format:         choice.Format,
		OriginalBytes:  asset.SizeBytes,
		EstimatedBytes: estimated,
		SavingsFrac:    savings,
	}

	switch asset.Kind {
	case AssetTexture:
		if savings < MinTextureSavings {
			decision.Accepted = false
			decision.Reason = "savings below 20% texture floor"
			return decision
		}
	case AssetAudio:
		if savings < MinAudioSavings {
			decision.Accepted = false
			decision.Reason = "savings below 30% audio floor"
			return decision
		}
	}

	if savings <= 0 {
		decision.Accepted = false
		decision.Reason = "no estimated savings"
		return decision
	}

	decision.Accepted = true
	return decision
}
