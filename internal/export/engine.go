package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gofrs/flock"

	"clipforge/internal/advisor"
	"clipforge/internal/encoder"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/preflight"
	"clipforge/internal/render"
)

// errCancelled marks worker exits triggered by a cancel request rather than
// a real failure.
var errCancelled = errors.New("export cancelled")

// run is the worker body. It drives the job through its phases and settles
// exactly one terminal state before exiting.
func (j *Job) run(ctx context.Context) {
	defer close(j.done)

	size, err := j.execute(ctx)

	j.mu.Lock()
	config := j.config
	runID := j.runID
	j.mu.Unlock()

	// The partial output must be gone before the terminal phase becomes
	// observable: a poller that sees CANCELLED or FAILED must not find the
	// file on disk. The encoder is already closed here (execute's defers ran).
	if err != nil {
		if removeErr := os.Remove(config.OutputPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			j.logger.Warn("could not remove partial output",
				logging.String(logging.FieldJobID, runID),
				logging.String(logging.FieldOutput, config.OutputPath),
				logging.Error(removeErr))
		}
	}

	j.mu.Lock()
	switch {
	case err == nil:
		j.finalFileSize = size
		j.snap.MuxingProgress = 1
		j.setPhaseLocked(PhaseComplete)
		j.publishLocked()
		j.snap.EstimatedRemainingSeconds = 0
	case j.cancelRequested || errors.Is(err, errCancelled):
		j.setPhaseLocked(PhaseCancelled)
		j.snap.EstimatedRemainingSeconds = 0
	default:
		j.errorMessage = err.Error()
		j.setPhaseLocked(PhaseFailed)
		j.snap.EstimatedRemainingSeconds = 0
	}
	phase := j.phase
	snap := j.snap
	finalSize := j.finalFileSize
	errorMessage := j.errorMessage
	startedAt := j.startedAt
	j.mu.Unlock()

	switch phase {
	case PhaseComplete:
		j.logger.Info("export complete",
			logging.String(logging.FieldJobID, runID),
			logging.String(logging.FieldOutput, config.OutputPath),
			logging.Int64("file_size", finalSize),
			logging.Int64("frames_encoded", snap.FramesEncoded),
			logging.Duration("elapsed", time.Since(startedAt)))
	case PhaseCancelled:
		j.logger.Info("export cancelled",
			logging.String(logging.FieldJobID, runID),
			logging.String(logging.FieldOutput, config.OutputPath),
			logging.Int64("frames_encoded", snap.FramesEncoded))
	default:
		j.logger.Error("export failed",
			logging.String(logging.FieldJobID, runID),
			logging.String(logging.FieldOutput, config.OutputPath),
			logging.String(logging.FieldPhase, string(snap.CurrentPhase)),
			logging.String("error", errorMessage),
			logging.String(logging.FieldErrorHint, "check free space and output directory permissions"))
	}

	j.recordHistory(phase, config, snap, finalSize, errorMessage, startedAt, runID)
}

// execute performs the encode. It returns the final file size on success,
// errCancelled when a cancel request stopped the run, or the fatal error.
func (j *Job) execute(ctx context.Context) (int64, error) {
	j.mu.Lock()
	config := j.config
	j.mu.Unlock()

	// An advisory lock next to the output keeps two processes from writing
	// the same destination.
	lockPath := config.OutputPath + j.deps.LockSuffix
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("acquire output lock: %w", err)
	}
	if !locked {
		return 0, fmt.Errorf("output %q is locked by another export", config.OutputPath)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lockPath)
	}()

	if j.deps.Renderer == nil {
		return 0, errors.New("no frame source configured")
	}
	if j.deps.Encoders == nil {
		return 0, errors.New("no encoder configured")
	}

	source, err := j.deps.Renderer.Open(ctx)
	if err != nil {
		return 0, fmt.Errorf("open frame source: %w", err)
	}
	defer source.Close()

	duration := source.Duration()
	totalFrames := int64(duration.Seconds() * float64(config.FrameRate))
	if totalFrames < 1 {
		totalFrames = 1
	}
	totalSamples := int64(duration.Seconds() * float64(source.SampleRate()) * float64(source.Channels()))

	if need := advisor.EstimatedFileSize(config.VideoBitrate, config.AudioBitrate, duration); need > 0 {
		if err := preflight.CheckCapacity(config.OutputPath, need); err != nil {
			return 0, err
		}
	}

	j.mu.Lock()
	j.snap.TotalFrames = totalFrames
	j.snap.TotalAudioSamples = totalSamples
	j.mu.Unlock()

	enc, err := j.deps.Encoders.Open(ctx, encoder.Settings{
		OutputPath:   config.OutputPath,
		Width:        config.Width,
		Height:       config.Height,
		FrameRate:    config.FrameRate,
		Codec:        config.Codec,
		Format:       config.Format,
		VideoBitrate: config.VideoBitrate,
		AudioBitrate: config.AudioBitrate,
		SampleRate:   source.SampleRate(),
		Channels:     source.Channels(),
	})
	if err != nil {
		return 0, fmt.Errorf("open encoder: %w", err)
	}
	defer enc.Close()

	if err := j.encodeVideo(ctx, source, enc, config, totalFrames); err != nil {
		return 0, err
	}

	j.mu.Lock()
	j.setPhaseLocked(PhaseEncodingAudio)
	j.publishLocked()
	j.mu.Unlock()

	if err := j.encodeAudio(ctx, source, enc, totalSamples); err != nil {
		return 0, err
	}

	j.mu.Lock()
	j.setPhaseLocked(PhaseMuxing)
	j.publishLocked()
	j.mu.Unlock()

	if j.checkpoint() {
		return 0, errCancelled
	}
	size, err := enc.Finalize(ctx)
	if err != nil {
		return 0, fmt.Errorf("finalize container: %w", err)
	}
	return size, nil
}

func (j *Job) encodeVideo(ctx context.Context, source render.Source, enc encoder.Encoder, config Config, totalFrames int64) error {
	frameInterval := time.Second / time.Duration(config.FrameRate)
	every := int64(j.deps.UpdateEveryFrames)

	for i := int64(0); i < totalFrames; i++ {
		if j.checkpoint() {
			return errCancelled
		}
		pos := time.Duration(i) * frameInterval
		frame, err := source.RenderFrame(ctx, pos, config.Width, config.Height)
		if err != nil {
			return fmt.Errorf("render frame %d: %w", i, err)
		}
		if err := enc.WriteVideoFrame(ctx, frame); err != nil {
			return fmt.Errorf("encode frame %d: %w", i, err)
		}
		if (i+1)%every == 0 || i+1 == totalFrames {
			j.mu.Lock()
			j.snap.FramesEncoded = i + 1
			j.snap.VideoProgress = fraction(i+1, totalFrames)
			j.publishLocked()
			j.mu.Unlock()
		}
	}
	return nil
}

func (j *Job) encodeAudio(ctx context.Context, source render.Source, enc encoder.Encoder, totalSamples int64) error {
	chunkSamples := source.SampleRate() * source.Channels() * j.deps.AudioChunkMs / 1000
	if chunkSamples < 1 {
		chunkSamples = 1
	}
	chunk := make([]int16, chunkSamples)

	var processed int64
	for {
		if j.checkpoint() {
			return errCancelled
		}
		n, err := source.ReadSamples(ctx, chunk)
		if n > 0 {
			if werr := enc.WriteAudioSamples(ctx, chunk[:n]); werr != nil {
				return fmt.Errorf("encode audio: %w", werr)
			}
			processed += int64(n)
			j.mu.Lock()
			j.snap.AudioSamplesProcessed = processed
			j.snap.AudioProgress = fraction(processed, totalSamples)
			j.publishLocked()
			j.mu.Unlock()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("read audio samples: %w", err)
		}
	}

	j.mu.Lock()
	j.snap.AudioProgress = 1
	j.publishLocked()
	j.mu.Unlock()
	return nil
}

// publishLocked recomputes the derived snapshot fields. Caller holds j.mu.
func (j *Job) publishLocked() {
	j.snap.TotalProgress = weightedTotal(j.snap.VideoProgress, j.snap.AudioProgress, j.snap.MuxingProgress)
	j.snap.EstimatedRemainingSeconds = estimateRemaining(j.encodingElapsedLocked(), j.snap.TotalProgress)
}

func (j *Job) recordHistory(phase Phase, config Config, snap Progress, finalSize int64, errorMessage string, startedAt time.Time, runID string) {
	if j.deps.History == nil {
		return
	}
	outcome := history.OutcomeFailed
	switch phase {
	case PhaseComplete:
		outcome = history.OutcomeComplete
	case PhaseCancelled:
		outcome = history.OutcomeCancelled
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := j.deps.History.Add(ctx, &history.Record{
		JobID:         runID,
		OutputPath:    config.OutputPath,
		Codec:         config.Codec,
		Format:        config.Format,
		Width:         config.Width,
		Height:        config.Height,
		FrameRate:     config.FrameRate,
		Quality:       config.Quality,
		Outcome:       outcome,
		ErrorMessage:  errorMessage,
		FileSize:      finalSize,
		FramesEncoded: snap.FramesEncoded,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
	})
	if err != nil {
		j.logger.Warn("could not record export history",
			logging.String(logging.FieldJobID, runID),
			logging.Error(err))
	}
}
