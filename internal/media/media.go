// Package media defines the codec, container, and quality vocabulary shared
// by the capability advisor and the export engine.
package media

import (
	"fmt"
	"strings"
)

// Codec identifies a video codec the engine can target.
type Codec string

const (
	CodecH264 Codec = "H264"
	CodecH265 Codec = "H265"
	CodecVP9  Codec = "VP9"
)

// Format identifies an output container.
type Format string

const (
	FormatMP4  Format = "MP4"
	FormatWebM Format = "WEBM"
	FormatMKV  Format = "MKV"
)

// Quality is an ordinal quality tier, not a raw bitrate.
type Quality int

const (
	QualityLow Quality = iota
	QualityMedium
	QualityHigh
	QualityUltra
)

// Codecs lists all codecs in declaration order.
func Codecs() []Codec {
	return []Codec{CodecH264, CodecH265, CodecVP9}
}

// Formats lists all containers in declaration order.
func Formats() []Format {
	return []Format{FormatMP4, FormatWebM, FormatMKV}
}

// Qualities lists all tiers from lowest to highest.
func Qualities() []Quality {
	return []Quality{QualityLow, QualityMedium, QualityHigh, QualityUltra}
}

func (c Codec) String() string { return string(c) }

func (f Format) String() string { return string(f) }

func (q Quality) String() string {
	switch q {
	case QualityLow:
		return "LOW"
	case QualityMedium:
		return "MEDIUM"
	case QualityHigh:
		return "HIGH"
	case QualityUltra:
		return "ULTRA"
	default:
		return fmt.Sprintf("QUALITY(%d)", int(q))
	}
}

// ParseCodec maps a case-insensitive codec name to a Codec.
func ParseCodec(value string) (Codec, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "H264", "AVC":
		return CodecH264, nil
	case "H265", "HEVC":
		return CodecH265, nil
	case "VP9":
		return CodecVP9, nil
	default:
		return "", fmt.Errorf("unknown codec %q", value)
	}
}

// ParseFormat maps a case-insensitive container name to a Format.
func ParseFormat(value string) (Format, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "MP4":
		return FormatMP4, nil
	case "WEBM":
		return FormatWebM, nil
	case "MKV", "MATROSKA":
		return FormatMKV, nil
	default:
		return "", fmt.Errorf("unknown format %q", value)
	}
}

// ParseQuality maps a case-insensitive tier name to a Quality.
func ParseQuality(value string) (Quality, error) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "LOW":
		return QualityLow, nil
	case "MEDIUM":
		return QualityMedium, nil
	case "HIGH":
		return QualityHigh, nil
	case "ULTRA":
		return QualityUltra, nil
	default:
		return 0, fmt.Errorf("unknown quality %q", value)
	}
}

// FormatSupportsCodec reports whether a container can carry a codec.
// MP4 carries the H.26x family, WebM carries VP9, and Matroska carries any.
func FormatSupportsCodec(format Format, codec Codec) bool {
	switch format {
	case FormatMP4:
		return codec == CodecH264 || codec == CodecH265
	case FormatWebM:
		return codec == CodecVP9
	case FormatMKV:
		return codec == CodecH264 || codec == CodecH265 || codec == CodecVP9
	default:
		return false
	}
}

// Extension returns the conventional file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMP4:
		return ".mp4"
	case FormatWebM:
		return ".webm"
	case FormatMKV:
		return ".mkv"
	default:
		return ""
	}
}

// MimeType returns the media type advertised for a codec.
func (c Codec) MimeType() string {
	switch c {
	case CodecH264:
		return "video/avc"
	case CodecH265:
		return "video/hevc"
	case CodecVP9:
		return "video/x-vnd.on2.vp9"
	default:
		return ""
	}
}

// RequiresEvenDimensions reports whether the codec rejects odd frame sizes.
// The H.26x profiles the engine targets use 4:2:0 chroma subsampling.
func (c Codec) RequiresEvenDimensions() bool {
	return c == CodecH264 || c == CodecH265
}
