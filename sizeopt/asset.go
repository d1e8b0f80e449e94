// Package sizeopt implements the build-time asset and code size
// optimization pipeline. It estimates per-asset compression savings from a
// platform/tier lookup table and produces before/after size reports; it
// performs no bit-level encoding.
package sizeopt

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"
)

// AssetKind categorizes manifest entries for the compression lookup.
type AssetKind string

const (
	AssetTexture AssetKind = "texture"
	AssetAudio   AssetKind = "audio"
	AssetMesh    AssetKind = "mesh"
	AssetCode    AssetKind = "code"
)

// QualityTier selects the compression aggressiveness band.
type QualityTier string

const (
	TierLow  QualityTier = "low"
	TierMid  QualityTier = "mid"
	TierHigh QualityTier = "high"
)

// Asset is one manifest entry. Dimension fields are only meaningful for
// the matching kind: Width/Height for textures, DurationSec for audio,
// Triangles for meshes.
type Asset struct {
	Name        string    `csv:"name" json:"name" yaml:"name"`
	Kind        AssetKind `csv:"kind" json:"kind" yaml:"kind"`
	SizeBytes   int64     `csv:"size_bytes" json:"size_bytes" yaml:"size_bytes"`
	Width       int       `csv:"width" json:"width,omitempty" yaml:"width,omitempty"`
	Height      int       `csv:"height" json:"height,omitempty" yaml:"height,omitempty"`
	DurationSec float64   `csv:"duration_sec" json:"duration_sec,omitempty" yaml:"duration_sec,omitempty"`
	Triangles   int       `csv:"triangles" json:"triangles,omitempty" yaml:"triangles,omitempty"`
}

// Validate checks the fields a pipeline run depends on.
func (a Asset) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("asset name is empty")
	}
	switch a.Kind {
	case AssetTexture, AssetAudio, AssetMesh, AssetCode:
	default:
		return fmt.Errorf("asset %q: unknown kind %q", a.Name, a.Kind)
	}
	if a.SizeBytes <= 0 {
		return fmt.Errorf("asset %q: size must be positive", a.Name)
	}
	return nil
}

// Manifest is the input to a pipeline run.
type Manifest struct {
	Assets []Asset `json:"assets" yaml:"assets"`
}

// TotalBytes sums the uncompressed sizes.
func (m Manifest) TotalBytes() int64 {
	var total int64
	for _, a := range m.Assets {
		total += a.SizeBytes
	}
	return total
}

// Validate checks every asset in the manifest.
func (m Manifest) Validate() error {
	if len(m.Assets) == 0 {
		return fmt.Errorf("manifest has no assets")
	}
	for _, a := range m.Assets {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// LoadManifestYAML reads a manifest from a YAML file.
func LoadManifestYAML(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// LoadManifestCSV reads a manifest from a CSV file with an asset-per-row
// layout.
func LoadManifestCSV(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer f.Close()

	var assets []Asset
	if err := gocsv.UnmarshalFile(f, &assets); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	manifest := &Manifest{Assets: assets}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	return manifest, nil
}
