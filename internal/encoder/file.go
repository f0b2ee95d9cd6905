package encoder

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"clipforge/internal/render"
)

// fileMagic marks the sink's container header.
var fileMagic = [4]byte{'C', 'F', 'E', 'X'}

// FileEncoder is the built-in encoder sink. It does not produce a playable
// bitstream; it writes a stream sized from the configured bitrates so
// finished exports have a realistic on-disk size and cancelled runs leave a
// partial file behind for the engine to delete.
type FileEncoder struct {
	settings Settings
	file     *os.File
	writer   *bufio.Writer
	payload  []byte
	frames   int64
	closed   bool
}

// NewFileOpener returns an Opener producing FileEncoder instances.
func NewFileOpener() Opener {
	return OpenerFunc(func(ctx context.Context, settings Settings) (Encoder, error) {
		return OpenFile(ctx, settings)
	})
}

// OpenFile creates the output file and writes the stream header.
func OpenFile(ctx context.Context, settings Settings) (*FileEncoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if settings.Width <= 0 || settings.Height <= 0 || settings.FrameRate <= 0 {
		return nil, fmt.Errorf("encoder settings invalid: %dx%d @ %d fps", settings.Width, settings.Height, settings.FrameRate)
	}
	if settings.VideoBitrate <= 0 {
		return nil, errors.New("encoder settings invalid: video bitrate must be positive")
	}

	file, err := os.Create(settings.OutputPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	enc := &FileEncoder{
		settings: settings,
		file:     file,
		writer:   bufio.NewWriterSize(file, 1<<16),
		payload:  make([]byte, settings.VideoBitrate/8/settings.FrameRate),
	}
	for i := range enc.payload {
		enc.payload[i] = byte(i)
	}
	if err := enc.writeHeader(); err != nil {
		_ = file.Close()
		_ = os.Remove(settings.OutputPath)
		return nil, err
	}
	return enc, nil
}

func (e *FileEncoder) writeHeader() error {
	header := struct {
		Magic     [4]byte
		Width     int32
		Height    int32
		FrameRate int32
	}{fileMagic, int32(e.settings.Width), int32(e.settings.Height), int32(e.settings.FrameRate)}
	if err := binary.Write(e.writer, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, tag := range []string{string(e.settings.Codec), string(e.settings.Format)} {
		if err := binary.Write(e.writer, binary.LittleEndian, int32(len(tag))); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		if _, err := e.writer.WriteString(tag); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	return nil
}

// WriteVideoFrame appends one frame's worth of payload, sized from the
// configured video bitrate.
func (e *FileEncoder) WriteVideoFrame(ctx context.Context, frame *render.Frame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed {
		return errors.New("encoder is closed")
	}
	if frame == nil {
		return errors.New("nil frame")
	}
	if frame.Width != e.settings.Width || frame.Height != e.settings.Height {
		return fmt.Errorf("frame geometry %dx%d does not match configured %dx%d",
			frame.Width, frame.Height, e.settings.Width, e.settings.Height)
	}
	if err := binary.Write(e.writer, binary.LittleEndian, int64(frame.PTS)); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if err := binary.Write(e.writer, binary.LittleEndian, int32(len(e.payload))); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	if _, err := e.writer.Write(e.payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.frames++
	return nil
}

// WriteAudioSamples appends a chunk sized from the configured audio bitrate.
func (e *FileEncoder) WriteAudioSamples(ctx context.Context, samples []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.closed {
		return errors.New("encoder is closed")
	}
	if len(samples) == 0 {
		return nil
	}
	rate := e.settings.SampleRate * e.settings.Channels
	if rate <= 0 {
		rate = 96000
	}
	bitrate := e.settings.AudioBitrate
	if bitrate <= 0 {
		bitrate = 128_000
	}
	size := len(samples) * bitrate / (8 * rate)
	if size < 1 {
		size = 1
	}
	if err := binary.Write(e.writer, binary.LittleEndian, int32(size)); err != nil {
		return fmt.Errorf("write audio chunk: %w", err)
	}
	chunk := make([]byte, size)
	if _, err := e.writer.Write(chunk); err != nil {
		return fmt.Errorf("write audio chunk: %w", err)
	}
	return nil
}

// Finalize writes the trailer, flushes, and reports the output size.
func (e *FileEncoder) Finalize(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if e.closed {
		return 0, errors.New("encoder is closed")
	}
	if err := binary.Write(e.writer, binary.LittleEndian, e.frames); err != nil {
		return 0, fmt.Errorf("write trailer: %w", err)
	}
	if err := e.writer.Flush(); err != nil {
		return 0, fmt.Errorf("flush output: %w", err)
	}
	if err := e.file.Sync(); err != nil {
		return 0, fmt.Errorf("sync output: %w", err)
	}
	info, err := e.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat output: %w", err)
	}
	return info.Size(), nil
}

// Close releases the file handle. Safe to call more than once.
func (e *FileEncoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	_ = e.writer.Flush()
	return e.file.Close()
}
