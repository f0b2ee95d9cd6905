package media_test

import (
	"testing"

	"clipforge/internal/media"
)

func TestParseCodecAliases(t *testing.T) {
	cases := map[string]media.Codec{
		"h264": media.CodecH264,
		"AVC":  media.CodecH264,
		"hevc": media.CodecH265,
		"vp9":  media.CodecVP9,
	}
	for input, want := range cases {
		got, err := media.ParseCodec(input)
		if err != nil {
			t.Fatalf("ParseCodec(%q) failed: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseCodec(%q) = %s, want %s", input, got, want)
		}
	}
	if _, err := media.ParseCodec("av1"); err == nil {
		t.Fatal("expected error for unsupported codec")
	}
}

func TestFormatSupportsCodec(t *testing.T) {
	cases := []struct {
		format media.Format
		codec  media.Codec
		want   bool
	}{
		{media.FormatMP4, media.CodecH264, true},
		{media.FormatMP4, media.CodecH265, true},
		{media.FormatMP4, media.CodecVP9, false},
		{media.FormatWebM, media.CodecVP9, true},
		{media.FormatWebM, media.CodecH264, false},
		{media.FormatMKV, media.CodecH264, true},
		{media.FormatMKV, media.CodecVP9, true},
	}
	for _, tc := range cases {
		if got := media.FormatSupportsCodec(tc.format, tc.codec); got != tc.want {
			t.Fatalf("FormatSupportsCodec(%s, %s) = %v, want %v", tc.format, tc.codec, got, tc.want)
		}
	}
}

func TestQualityOrdering(t *testing.T) {
	qualities := media.Qualities()
	for i := 1; i < len(qualities); i++ {
		if qualities[i-1] >= qualities[i] {
			t.Fatalf("qualities not ascending: %v", qualities)
		}
	}
}

func TestParseQualityRejectsUnknown(t *testing.T) {
	if _, err := media.ParseQuality("extreme"); err == nil {
		t.Fatal("expected error for unknown quality")
	}
}
