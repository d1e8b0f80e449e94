package sizeopt

import "github.com/clduab11/thinkrank-perf/adaptive"

// CompressionFormat names the target encoding for an accepted change.
type CompressionFormat string

const (
	FormatASTC4x4   CompressionFormat = "astc_4x4"
	FormatASTC6x6   CompressionFormat = "astc_6x6"
	FormatASTC8x8   CompressionFormat = "astc_8x8"
	FormatETC2      CompressionFormat = "etc2"
	FormatBC7       CompressionFormat = "bc7"
	FormatVorbisQ2  CompressionFormat = "vorbis_q2"
	FormatVorbisQ5  CompressionFormat = "vorbis_q5"
	FormatVorbisQ8  CompressionFormat = "vorbis_q8"
	FormatMeshQuant CompressionFormat = "mesh_quantized"
	FormatStripped  CompressionFormat = "code_stripped"
	FormatNone      CompressionFormat = "none"
)

// FormatChoice is one entry of the compression lookup table: a target
// format and the fraction of the original size expected to remain.
type FormatChoice struct {
	Format CompressionFormat
	Ratio  float64
}

type formatKey struct {
	platform adaptive.Platform
	kind     AssetKind
	tier     QualityTier
}

// formatTable is the compression lookup keyed by platform, kind and tier.
// Ratios are estimates calibrated against typical mobile asset inventories.
var formatTable = map[formatKey]FormatChoice{
	// iOS textures: ASTC across tiers, coarser blocks at lower tiers.
	{adaptive.PlatformIOS, AssetTexture, TierLow}:  {FormatASTC8x8, 0.45},
	{adaptive.PlatformIOS, AssetTexture, TierMid}:  {FormatASTC6x6, 0.55},
	{adaptive.PlatformIOS, AssetTexture, TierHigh}: {FormatASTC4x4, 0.70},

	// Android textures: ETC2 low/mid, ASTC on high-tier devices.
	{adaptive.PlatformAndroid, AssetTexture, TierLow}:  {FormatETC2, 0.50},
	{adaptive.PlatformAndroid, AssetTexture, TierMid}:  {FormatETC2, 0.60},
	{adaptive.PlatformAndroid, AssetTexture, TierHigh}: {FormatASTC6x6, 0.65},

	// Desktop textures: BC7 regardless of tier.
	{adaptive.PlatformDesktop, AssetTexture, TierLow}:  {FormatBC7, 0.60},
	{adaptive.PlatformDesktop, AssetTexture, TierMid}:  {FormatBC7, 0.60},
	{adaptive.PlatformDesktop, AssetTexture, TierHigh}: {FormatBC7, 0.60},

	// Audio: Vorbis quality scales with tier, identical across platforms.
	{adaptive.PlatformIOS, AssetAudio, TierLow}:      {FormatVorbisQ2, 0.30},
	{adaptive.PlatformIOS, AssetAudio, TierMid}:      {FormatVorbisQ5, 0.50},
	{adaptive.PlatformIOS, AssetAudio, TierHigh}:     {FormatVorbisQ8, 0.65},
	{adaptive.PlatformAndroid, AssetAudio, TierLow}:  {FormatVorbisQ2, 0.30},
	{adaptive.PlatformAndroid, AssetAudio, TierMid}:  {FormatVorbisQ5, 0.50},
	{adaptive.PlatformAndroid, AssetAudio, TierHigh}: {FormatVorbisQ8, 0.65},
	{adaptive.PlatformDesktop, AssetAudio, TierLow}:  {FormatVorbisQ5, 0.50},
	{adaptive.PlatformDesktop, AssetAudio, TierMid}:  {FormatVorbisQ5, 0.50},
	{adaptive.PlatformDesktop, AssetAudio, TierHigh}: {FormatVorbisQ8, 0.65},
}

const (
	// meshQuantizeRatio is the expected remaining fraction after vertex
	// quantization, applied uniformly.
	meshQuantizeRatio = 0.75

	// codeStripRatio is the expected remaining fraction of managed code
	// after unused-symbol stripping.
	codeStripRatio = 0.65
)

// lookupFormat resolves the compression choice for an asset. Mesh and code
// entries have fixed estimates independent of platform and tier.
func lookupFormat(platform adaptive.Platform, kind AssetKind, tier QualityTier) FormatChoice {
	switch kind {
	case AssetMesh:
		return FormatChoice{FormatMeshQuant, meshQuantizeRatio}
	case AssetCode:
		return FormatChoice{FormatStripped, codeStripRatio}
	}

	if choice, ok := formatTable[formatKey{platform, kind, tier}]; ok {
		return choice
	}
	return FormatChoice{FormatNone, 1.0}
}
