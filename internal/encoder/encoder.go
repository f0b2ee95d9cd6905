// Package encoder defines the codec/container boundary the export engine
// drives. The engine treats encoders as opaque synchronous collaborators:
// open, push frames and samples, finalize for the resulting file size, and
// always close, even on the failure path.
package encoder

import (
	"context"

	"clipforge/internal/media"
	"clipforge/internal/render"
)

// Settings carries everything an encoder needs to produce one output file.
type Settings struct {
	OutputPath   string
	Width        int
	Height       int
	FrameRate    int
	Codec        media.Codec
	Format       media.Format
	VideoBitrate int
	AudioBitrate int
	SampleRate   int
	Channels     int
}

// Encoder consumes rendered media and produces a container file.
type Encoder interface {
	// WriteVideoFrame encodes one frame. A returned error is fatal for
	// the job.
	WriteVideoFrame(ctx context.Context, frame *render.Frame) error
	// WriteAudioSamples encodes a chunk of interleaved samples.
	WriteAudioSamples(ctx context.Context, samples []int16) error
	// Finalize flushes stream state, writes container indexes, and
	// returns the final file size in bytes.
	Finalize(ctx context.Context) (int64, error)
	// Close releases encoder resources. It must be safe to call after
	// Finalize and after a failed write.
	Close() error
}

// Opener creates an Encoder for the given settings.
type Opener interface {
	Open(ctx context.Context, settings Settings) (Encoder, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, settings Settings) (Encoder, error)

func (f OpenerFunc) Open(ctx context.Context, settings Settings) (Encoder, error) {
	return f(ctx, settings)
}
