package render

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// TimelineSource is a deterministic synthetic Source used by the CLI and by
// tests. Video frames are a time-varying gradient run through the configured
// effect chain; audio is silence.
type TimelineSource struct {
	duration   time.Duration
	sampleRate int
	channels   int
	effects    []Effect

	mu            sync.Mutex
	samplesServed int64
	closed        bool
}

// NewTimelineSource constructs a synthetic timeline of the given duration.
func NewTimelineSource(duration time.Duration, sampleRate, channels int, effects ...Effect) *TimelineSource {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if channels <= 0 {
		channels = 2
	}
	return &TimelineSource{
		duration:   duration,
		sampleRate: sampleRate,
		channels:   channels,
		effects:    effects,
	}
}

func (s *TimelineSource) Duration() time.Duration { return s.duration }

func (s *TimelineSource) SampleRate() int { return s.sampleRate }

func (s *TimelineSource) Channels() int { return s.channels }

// RenderFrame synthesizes the frame for pos and applies the effect chain.
func (s *TimelineSource) RenderFrame(ctx context.Context, pos time.Duration, width, height int) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame geometry %dx%d", width, height)
	}

	frame := &Frame{
		Width:  width,
		Height: height,
		Data:   make([]byte, width*height*4),
		PTS:    pos,
	}
	phase := byte(pos / time.Millisecond)
	for y := 0; y < height; y++ {
		row := frame.Data[y*width*4:]
		g := byte(y * 255 / height)
		for x := 0; x < width; x++ {
			px := row[x*4:]
			px[0] = byte(x*255/width) + phase
			px[1] = g
			px[2] = phase
			px[3] = 0xff
		}
	}

	for _, effect := range s.effects {
		effect.Apply(frame)
	}
	return frame, nil
}

// ReadSamples serves silence until the timeline's audio budget is spent.
func (s *TimelineSource) ReadSamples(ctx context.Context, dst []int16) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, fmt.Errorf("source is closed")
	}

	total := s.totalSamples()
	remaining := total - s.samplesServed
	if remaining <= 0 {
		return 0, io.EOF
	}
	n := int64(len(dst))
	if n > remaining {
		n = remaining
	}
	for i := int64(0); i < n; i++ {
		dst[i] = 0
	}
	s.samplesServed += n
	return int(n), nil
}

func (s *TimelineSource) totalSamples() int64 {
	return int64(s.duration.Seconds() * float64(s.sampleRate) * float64(s.channels))
}

// Close marks the source closed; further reads fail.
func (s *TimelineSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Opener returns an Opener yielding a fresh source with identical settings,
// so each export run consumes its own sample cursor.
func (s *TimelineSource) Opener() Opener {
	return OpenerFunc(func(ctx context.Context) (Source, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return NewTimelineSource(s.duration, s.sampleRate, s.channels, s.effects...), nil
	})
}
