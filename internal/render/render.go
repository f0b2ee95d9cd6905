// Package render defines the frame-producer boundary the export engine
// consumes. A Source yields ready-to-encode frame buffers for timeline
// positions and interleaved audio samples; effects are opaque to the engine.
package render

import (
	"context"
	"time"
)

// Frame is one ready-to-encode RGBA frame buffer.
type Frame struct {
	Width  int
	Height int
	// Data holds width*height*4 bytes of RGBA pixels.
	Data []byte
	// PTS is the presentation timestamp of the frame.
	PTS time.Duration
}

// Effect transforms a frame in place. Sources hold an ordered chain of
// effects; the engine never inspects them.
type Effect interface {
	Apply(frame *Frame)
}

// Source produces the media an export job encodes.
type Source interface {
	// Duration reports the total timeline length.
	Duration() time.Duration
	// SampleRate reports the audio sample rate in Hz.
	SampleRate() int
	// Channels reports the audio channel count.
	Channels() int
	// RenderFrame yields the frame at the given timeline position scaled
	// to the requested geometry.
	RenderFrame(ctx context.Context, pos time.Duration, width, height int) (*Frame, error)
	// ReadSamples fills dst with the next interleaved samples and reports
	// how many were written. It returns io.EOF once the timeline's audio
	// is exhausted.
	ReadSamples(ctx context.Context, dst []int16) (int, error)
	// Close releases the source's resources.
	Close() error
}

// Opener creates a Source for a job at start time.
type Opener interface {
	Open(ctx context.Context) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Source, error)

func (f OpenerFunc) Open(ctx context.Context) (Source, error) { return f(ctx) }
