// Package export implements the export job engine: a state machine per job,
// driven through its encoding phases by a dedicated worker goroutine, polled
// concurrently by hosts for progress and terminal state.
package export

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/encoder"
	"clipforge/internal/history"
	"clipforge/internal/logging"
	"clipforge/internal/render"
)

// Deps carries the collaborators a job needs to run. Zero-value fields fall
// back to safe defaults where one exists.
type Deps struct {
	// Encoders opens the codec/container sink for a run.
	Encoders encoder.Opener
	// Renderer opens the frame/sample source for a run.
	Renderer render.Opener
	// History records finished runs. Nil disables persistence.
	History *history.Store
	// Logger receives structured job events. Nil discards them.
	Logger *slog.Logger
	// UpdateEveryFrames throttles video progress publication. Zero means
	// every 10 frames.
	UpdateEveryFrames int
	// AudioChunkMs sizes audio read/encode steps. Zero means 500ms.
	AudioChunkMs int
	// LockSuffix names the advisory lock file next to the output. Zero means
	// ".lock", matching the configuration default.
	LockSuffix string
}

// Job is one export's state machine. Control and query methods are safe to
// call from any goroutine at any point in the lifecycle; the worker spawned
// by Start is the only writer of encoding progress.
type Job struct {
	deps   Deps
	logger *slog.Logger

	mu     sync.Mutex
	cond   *sync.Cond
	config Config
	phase  Phase
	snap   Progress

	started         bool
	paused          bool
	cancelRequested bool
	cancelRun       context.CancelFunc

	finalFileSize int64
	errorMessage  string
	startedAt     time.Time
	pausedAt      time.Time
	pausedTotal   time.Duration
	runID         string
	done          chan struct{}
}

// NewJob constructs an idle job.
func NewJob(deps Deps) *Job {
	if deps.UpdateEveryFrames <= 0 {
		deps.UpdateEveryFrames = 10
	}
	if deps.AudioChunkMs <= 0 {
		deps.AudioChunkMs = 500
	}
	if deps.LockSuffix == "" {
		deps.LockSuffix = ".lock"
	}
	job := &Job{
		deps:   deps,
		logger: logging.NewComponentLogger(deps.Logger, "export"),
		phase:  PhaseIdle,
	}
	job.cond = sync.NewCond(&job.mu)
	job.snap = Progress{CurrentPhase: PhaseIdle, Status: statusText(PhaseIdle, "")}
	return job
}

// SetConfig validates and installs a configuration. Valid only before Start;
// an invalid config leaves the job exactly as it was.
func (j *Job) SetConfig(config Config) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.phase != PhaseIdle && j.phase != PhaseConfiguring {
		return false
	}
	if err := config.validate(); err != nil {
		j.logger.Warn("configuration rejected",
			logging.String(logging.FieldOutput, config.OutputPath),
			logging.Error(err))
		return false
	}
	j.config = config.normalized()
	j.setPhaseLocked(PhaseConfiguring)
	return true
}

// Start spawns the worker. It returns immediately; false means the job was
// not in a startable state (unconfigured, already running, or terminal).
func (j *Job) Start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.phase != PhaseConfiguring || j.started {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	j.started = true
	j.cancelRun = cancel
	j.runID = uuid.NewString()
	j.startedAt = time.Now()
	j.done = make(chan struct{})
	j.setPhaseLocked(PhaseEncodingVideo)

	j.logger.Info("export started",
		logging.String(logging.FieldJobID, j.runID),
		logging.String(logging.FieldOutput, j.config.OutputPath),
		logging.String("codec", string(j.config.Codec)),
		logging.String("format", string(j.config.Format)),
		logging.Int("width", j.config.Width),
		logging.Int("height", j.config.Height),
		logging.Int("frame_rate", j.config.FrameRate),
		logging.Int("video_bitrate", j.config.VideoBitrate))

	go j.run(ctx)
	return true
}

// Cancel requests cooperative cancellation. The worker observes the flag at
// its next checkpoint, deletes the partial output, and lands in CANCELLED.
// Returns false when there is nothing cancellable (never started or already
// terminal).
func (j *Job) Cancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started || j.phase.Terminal() {
		return false
	}
	j.cancelRequested = true
	if j.cancelRun != nil {
		j.cancelRun()
	}
	j.cond.Broadcast()
	return true
}

// Pause suspends the worker at its next checkpoint. Valid only while running
// and not already paused.
func (j *Job) Pause() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.phase.Running() || j.paused || j.cancelRequested {
		return false
	}
	j.paused = true
	j.pausedAt = time.Now()
	j.logger.Info("export paused", logging.String(logging.FieldJobID, j.runID))
	return true
}

// Resume releases a paused worker. Returns false when the job is not paused.
func (j *Job) Resume() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.paused {
		return false
	}
	j.paused = false
	j.pausedTotal += time.Since(j.pausedAt)
	j.pausedAt = time.Time{}
	j.cond.Broadcast()
	j.logger.Info("export resumed", logging.String(logging.FieldJobID, j.runID))
	return true
}

// IsExporting reports whether the worker is still advancing the job.
func (j *Job) IsExporting() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.started && !j.phase.Terminal()
}

// IsComplete reports whether the job finished successfully.
func (j *Job) IsComplete() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase == PhaseComplete
}

// WasCancelled reports whether the job ended by cancellation.
func (j *Job) WasCancelled() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase == PhaseCancelled
}

// IsPaused reports whether the pause flag is currently set.
func (j *Job) IsPaused() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.paused
}

// Progress returns a copy of the latest snapshot.
func (j *Job) Progress() Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap
}

// CurrentPhase returns the job's phase.
func (j *Job) CurrentPhase() Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.phase
}

// FinalFileSize returns the output size in bytes, valid only once COMPLETE.
func (j *Job) FinalFileSize() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finalFileSize
}

// ErrorMessage returns the failure description, empty unless FAILED.
func (j *Job) ErrorMessage() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.errorMessage
}

// EstimatedTimeRemaining returns the projected seconds left, 0 when unknown.
func (j *Job) EstimatedTimeRemaining() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snap.EstimatedRemainingSeconds
}

// OutputPath returns the configured destination, empty before SetConfig.
func (j *Job) OutputPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.config.OutputPath
}

// RunID returns the identifier assigned at Start, empty before.
func (j *Job) RunID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runID
}

// Wait blocks until the worker exits or the timeout elapses. A zero or
// negative timeout waits indefinitely. It returns true once the job is no
// longer running; a job that was never started is trivially settled.
func (j *Job) Wait(timeout time.Duration) bool {
	j.mu.Lock()
	done := j.done
	j.mu.Unlock()

	if done == nil {
		return true
	}
	if timeout <= 0 {
		<-done
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// setPhaseLocked updates phase plus the snapshot's derived fields. Caller
// holds j.mu. Terminal phases are sticky; attempts to move past one are
// ignored.
func (j *Job) setPhaseLocked(phase Phase) {
	if j.phase.Terminal() {
		return
	}
	j.phase = phase
	j.snap.CurrentPhase = phase
	j.snap.Status = statusText(phase, j.errorMessage)
}

// encodingElapsedLocked is the time the worker actually spent encoding,
// excluding paused intervals, so the ETA rate is not diluted by a long pause.
// Caller holds j.mu.
func (j *Job) encodingElapsedLocked() time.Duration {
	elapsed := time.Since(j.startedAt) - j.pausedTotal
	if !j.pausedAt.IsZero() {
		elapsed -= time.Since(j.pausedAt)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed
}

// checkpoint is the worker's pause/cancel gate between encode steps. It
// blocks while paused and reports whether cancellation was requested.
func (j *Job) checkpoint() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	for j.paused && !j.cancelRequested {
		j.cond.Wait()
	}
	return j.cancelRequested
}
