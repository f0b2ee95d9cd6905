package export

import (
	"fmt"

	"clipforge/internal/advisor"
	"clipforge/internal/media"
	"clipforge/internal/preflight"
)

// Config is the caller-supplied description of one export. It is validated
// all-or-nothing: SetConfig either accepts the whole config or leaves the job
// untouched.
type Config struct {
	Width      int
	Height     int
	FrameRate  int
	Quality    media.Quality
	Format     media.Format
	Codec      media.Codec
	OutputPath string

	// VideoBitrate overrides the advisor recommendation when positive. It is
	// clamped to the valid range for the codec and geometry either way.
	VideoBitrate int
	// AudioBitrate defaults to 128 kbps when zero.
	AudioBitrate int
}

const defaultAudioBitrate = 128_000

// validate checks the config against codec capability, container
// compatibility, and filesystem preconditions. It returns the first problem
// found; a nil return means the config is accepted as-is.
func (c Config) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("dimensions %dx%d must be positive", c.Width, c.Height)
	}
	if c.Codec.RequiresEvenDimensions() && (c.Width%2 != 0 || c.Height%2 != 0) {
		return fmt.Errorf("codec %s requires even dimensions, got %dx%d", c.Codec, c.Width, c.Height)
	}
	if c.FrameRate < 1 || c.FrameRate > 120 {
		return fmt.Errorf("frame rate %d out of range [1,120]", c.FrameRate)
	}
	if c.Quality < media.QualityLow || c.Quality > media.QualityUltra {
		return fmt.Errorf("unknown quality tier %d", int(c.Quality))
	}
	if !advisor.IsCodecSupported(c.Codec) {
		return fmt.Errorf("codec %q is not supported", string(c.Codec))
	}
	if !media.FormatSupportsCodec(c.Format, c.Codec) {
		return fmt.Errorf("container %s cannot carry codec %s", c.Format, c.Codec)
	}
	if c.VideoBitrate < 0 {
		return fmt.Errorf("video bitrate %d must not be negative", c.VideoBitrate)
	}
	if c.AudioBitrate < 0 {
		return fmt.Errorf("audio bitrate %d must not be negative", c.AudioBitrate)
	}
	if err := preflight.CheckOutputPath(c.OutputPath); err != nil {
		return err
	}
	return nil
}

// normalized fills in defaults and resolves the effective video bitrate.
func (c Config) normalized() Config {
	if c.AudioBitrate == 0 {
		c.AudioBitrate = defaultAudioBitrate
	}
	target := c.VideoBitrate
	if target <= 0 {
		target = advisor.RecommendedBitrate(c.Width, c.Height, c.FrameRate, c.Quality)
	}
	c.VideoBitrate = advisor.ClampBitrate(target, c.Codec, c.Width, c.Height)
	return c
}
