// Package advisor computes recommended and valid bitrate ranges from
// resolution, frame rate, codec, and quality tier. All functions are pure;
// the export engine consults them during configuration validation and hosts
// expose them directly for configuration UIs.
package advisor

import (
	"time"

	"clipforge/internal/media"
)

const (
	// GlobalMinBitrate and GlobalMaxBitrate bound every recommendation.
	GlobalMinBitrate = 500_000
	GlobalMaxBitrate = 100_000_000

	// bitsPerPixelPerSecond is the H.264 baseline cost of one pixel per
	// second of motion at medium quality.
	bitsPerPixelPerSecond = 0.1
)

// qualityMultiplier scales the baseline recommendation per tier. Higher
// tiers always multiply strictly higher so recommendations stay monotonic.
func qualityMultiplier(quality media.Quality) float64 {
	switch quality {
	case media.QualityLow:
		return 0.5
	case media.QualityMedium:
		return 1.0
	case media.QualityHigh:
		return 1.5
	case media.QualityUltra:
		return 2.5
	default:
		return 1.0
	}
}

// codecEfficiency scales codec bitrate ceilings relative to H.264. More
// efficient codecs need fewer bits for equivalent quality.
func codecEfficiency(codec media.Codec) float64 {
	switch codec {
	case media.CodecH265:
		return 0.65
	case media.CodecVP9:
		return 0.70
	default:
		return 1.0
	}
}

// RecommendedBitrate derives a target video bitrate in bits per second from
// pixel rate scaled by the quality tier, clamped to the global range.
func RecommendedBitrate(width, height, frameRate int, quality media.Quality) int {
	if width <= 0 || height <= 0 || frameRate <= 0 {
		return 0
	}
	pixelRate := float64(width) * float64(height) * float64(frameRate)
	bitrate := int(pixelRate * bitsPerPixelPerSecond * qualityMultiplier(quality))
	return clamp(bitrate, GlobalMinBitrate, GlobalMaxBitrate)
}

// BitrateRange returns the codec-specific floor and ceiling for the given
// geometry. The ceiling is banded by resolution class and scaled down for
// codecs more efficient than H.264.
func BitrateRange(codec media.Codec, width, height int) (int, int) {
	maxBitrate := GlobalMaxBitrate
	pixels := width * height
	switch {
	case pixels <= 640*480:
		maxBitrate = 10_000_000
	case pixels <= 1280*720:
		maxBitrate = 25_000_000
	case pixels <= 1920*1080:
		maxBitrate = 50_000_000
	}

	efficiency := codecEfficiency(codec)
	minBitrate := int(GlobalMinBitrate * efficiency)
	maxBitrate = int(float64(maxBitrate) * efficiency)
	if minBitrate > maxBitrate {
		minBitrate = maxBitrate
	}
	return minBitrate, maxBitrate
}

// ClampBitrate forces a user-supplied or recommended bitrate into the valid
// range for the codec and geometry.
func ClampBitrate(bitrate int, codec media.Codec, width, height int) int {
	minBitrate, maxBitrate := BitrateRange(codec, width, height)
	return clamp(bitrate, minBitrate, maxBitrate)
}

// IsCodecSupported reports host capability for a codec.
func IsCodecSupported(codec media.Codec) bool {
	switch codec {
	case media.CodecH264, media.CodecH265, media.CodecVP9:
		return true
	default:
		return false
	}
}

// PresetResolution returns the canonical geometry for a quality tier.
func PresetResolution(quality media.Quality) (int, int) {
	switch quality {
	case media.QualityLow:
		return 640, 480
	case media.QualityMedium:
		return 1280, 720
	case media.QualityHigh:
		return 1920, 1080
	case media.QualityUltra:
		return 3840, 2160
	default:
		return 1920, 1080
	}
}

// PresetBitrate returns the flat target bitrate for a quality tier,
// independent of geometry.
func PresetBitrate(quality media.Quality) int {
	switch quality {
	case media.QualityLow:
		return 2_000_000
	case media.QualityMedium:
		return 5_000_000
	case media.QualityHigh:
		return 8_000_000
	case media.QualityUltra:
		return 25_000_000
	default:
		return 8_000_000
	}
}

// RecommendedFormat returns the container conventionally paired with a codec.
func RecommendedFormat(codec media.Codec) media.Format {
	if codec == media.CodecVP9 {
		return media.FormatWebM
	}
	return media.FormatMP4
}

// EstimatedFileSize projects the output size in bytes for the combined
// video and audio bitrates over the given duration, including ~5% container
// overhead.
func EstimatedFileSize(videoBitrate, audioBitrate int, duration time.Duration) int64 {
	if duration <= 0 {
		return 0
	}
	totalBits := float64(videoBitrate+audioBitrate) * duration.Seconds()
	return int64(totalBits / 8 * 1.05)
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
