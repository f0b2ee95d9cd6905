package export

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/encoder"
	"clipforge/internal/logging"
	"clipforge/internal/render"
)

// stubEncoder stands in for the codec collaborator. When gate is non-nil,
// every video frame write consumes one token, which lets tests hold the
// worker at a known point.
type stubEncoder struct {
	gate      chan struct{}
	failWrite error
	closed    bool
}

func (e *stubEncoder) WriteVideoFrame(ctx context.Context, frame *render.Frame) error {
	if e.gate != nil {
		select {
		case <-e.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return e.failWrite
}

func (e *stubEncoder) WriteAudioSamples(ctx context.Context, samples []int16) error {
	return ctx.Err()
}

func (e *stubEncoder) Finalize(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return 7, nil
}

func (e *stubEncoder) Close() error {
	e.closed = true
	return nil
}

// stubOpener creates the output file so deletion on cancel/failure is
// observable, then hands back the shared stub encoder.
type stubOpener struct {
	enc *stubEncoder
}

func (o *stubOpener) Open(ctx context.Context, settings encoder.Settings) (encoder.Encoder, error) {
	if err := os.WriteFile(settings.OutputPath, []byte("partial"), 0o644); err != nil {
		return nil, err
	}
	return o.enc, nil
}

func testDeps(enc encoder.Opener, duration time.Duration) Deps {
	return Deps{
		Encoders:          enc,
		Renderer:          render.NewTimelineSource(duration, 8000, 1).Opener(),
		Logger:            logging.NewNop(),
		UpdateEveryFrames: 1,
		AudioChunkMs:      100,
	}
}

func waitForProgress(t *testing.T, job *Job) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job.Progress().FramesEncoded >= 1 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for first frame")
}

func TestJobQueriesBeforeStart(t *testing.T) {
	job := NewJob(testDeps(encoder.NewFileOpener(), time.Second))

	if job.CurrentPhase() != PhaseIdle {
		t.Fatalf("expected IDLE, got %s", job.CurrentPhase())
	}
	if job.IsExporting() || job.IsComplete() || job.WasCancelled() || job.IsPaused() {
		t.Fatal("fresh job reports activity")
	}
	if job.FinalFileSize() != 0 || job.ErrorMessage() != "" || job.EstimatedTimeRemaining() != 0 {
		t.Fatal("fresh job reports non-default results")
	}
	snap := job.Progress()
	if snap.TotalProgress != 0 || snap.FramesEncoded != 0 || snap.CurrentPhase != PhaseIdle {
		t.Fatalf("unexpected initial snapshot: %+v", snap)
	}
	if !job.Wait(0) {
		t.Fatal("Wait on an unstarted job should settle immediately")
	}
	if job.Cancel() {
		t.Fatal("Cancel before start should fail")
	}
	if job.Pause() || job.Resume() {
		t.Fatal("Pause/Resume before start should fail")
	}
}

func TestJobHappyPath(t *testing.T) {
	job := NewJob(testDeps(encoder.NewFileOpener(), 200*time.Millisecond))
	config := validConfig(t)
	config.FrameRate = 30

	if !job.SetConfig(config) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("job did not finish in time")
	}

	if !job.IsComplete() {
		t.Fatalf("expected COMPLETE, got %s (%s)", job.CurrentPhase(), job.ErrorMessage())
	}
	if job.IsExporting() || job.WasCancelled() {
		t.Fatal("completed job reports wrong state")
	}
	if job.ErrorMessage() != "" {
		t.Fatalf("unexpected error message %q", job.ErrorMessage())
	}
	size := job.FinalFileSize()
	if size <= 0 {
		t.Fatalf("expected positive final size, got %d", size)
	}
	info, err := os.Stat(config.OutputPath)
	if err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if info.Size() != size {
		t.Fatalf("reported size %d, file has %d", size, info.Size())
	}

	snap := job.Progress()
	if snap.TotalProgress != 1 {
		t.Fatalf("expected total progress 1, got %v", snap.TotalProgress)
	}
	if snap.FramesEncoded != snap.TotalFrames || snap.TotalFrames <= 0 {
		t.Fatalf("frame counters inconsistent: %d/%d", snap.FramesEncoded, snap.TotalFrames)
	}
	if snap.AudioSamplesProcessed != snap.TotalAudioSamples {
		t.Fatalf("audio counters inconsistent: %d/%d", snap.AudioSamplesProcessed, snap.TotalAudioSamples)
	}
	if snap.EstimatedRemainingSeconds != 0 {
		t.Fatalf("finished job should report 0 remaining, got %v", snap.EstimatedRemainingSeconds)
	}
}

func TestJobDoubleStart(t *testing.T) {
	job := NewJob(testDeps(encoder.NewFileOpener(), 100*time.Millisecond))
	if !job.SetConfig(validConfig(t)) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("first Start failed")
	}
	if job.Start() {
		t.Fatal("second Start succeeded")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("job did not finish in time")
	}
	if !job.IsComplete() {
		t.Fatalf("first run was affected: %s (%s)", job.CurrentPhase(), job.ErrorMessage())
	}
}

func TestJobCancelDeletesPartialOutput(t *testing.T) {
	enc := &stubEncoder{gate: make(chan struct{})}
	job := NewJob(testDeps(&stubOpener{enc: enc}, time.Second))
	config := validConfig(t)
	config.FrameRate = 30

	if !job.SetConfig(config) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}

	// Let exactly one frame through, then request cancellation.
	enc.gate <- struct{}{}
	waitForProgress(t, job)
	if !job.Cancel() {
		t.Fatal("Cancel on a running job failed")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("worker did not exit after cancel")
	}

	if !job.WasCancelled() {
		t.Fatalf("expected CANCELLED, got %s (%s)", job.CurrentPhase(), job.ErrorMessage())
	}
	if job.IsComplete() || job.IsExporting() {
		t.Fatal("cancelled job reports wrong state")
	}
	if _, err := os.Stat(config.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output was not deleted: %v", err)
	}
	if !enc.closed {
		t.Fatal("encoder was not closed on the cancel path")
	}
	// Cancel on a terminal job is a no-op failure.
	if job.Cancel() {
		t.Fatal("Cancel succeeded on terminal job")
	}
}

func TestJobPauseResume(t *testing.T) {
	enc := &stubEncoder{gate: make(chan struct{})}
	job := NewJob(testDeps(&stubOpener{enc: enc}, time.Second))
	config := validConfig(t)
	config.FrameRate = 30

	if !job.SetConfig(config) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}

	enc.gate <- struct{}{}
	waitForProgress(t, job)

	if !job.Pause() {
		t.Fatal("Pause on a running job failed")
	}
	if !job.IsPaused() {
		t.Fatal("IsPaused false after Pause")
	}
	if job.Pause() {
		t.Fatal("Pause succeeded while already paused")
	}
	frames := job.Progress().FramesEncoded

	if !job.Resume() {
		t.Fatal("Resume on a paused job failed")
	}
	if job.Resume() {
		t.Fatal("Resume succeeded while not paused")
	}

	// The worker moves again after resume.
	enc.gate <- struct{}{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) && job.Progress().FramesEncoded <= frames {
		time.Sleep(time.Millisecond)
	}
	if job.Progress().FramesEncoded <= frames {
		t.Fatal("worker did not advance after resume")
	}

	if !job.Cancel() {
		t.Fatal("Cancel failed")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("worker did not exit after cancel")
	}
}

func TestJobEncoderFailure(t *testing.T) {
	enc := &stubEncoder{failWrite: errors.New("codec rejected frame")}
	job := NewJob(testDeps(&stubOpener{enc: enc}, time.Second))
	config := validConfig(t)

	if !job.SetConfig(config) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("worker did not exit after failure")
	}

	if job.CurrentPhase() != PhaseFailed {
		t.Fatalf("expected FAILED, got %s", job.CurrentPhase())
	}
	if job.ErrorMessage() == "" {
		t.Fatal("expected error message on failure")
	}
	if job.IsComplete() || job.WasCancelled() {
		t.Fatal("failed job reports wrong state")
	}
	if _, err := os.Stat(config.OutputPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial output was not deleted: %v", err)
	}
	if !enc.closed {
		t.Fatal("encoder was not closed on the failure path")
	}
}

func TestJobCancelRemovesOutputBeforeTerminalVisible(t *testing.T) {
	// A poller that observes CANCELLED must never find the partial file:
	// deletion happens before the terminal phase is published.
	for round := 0; round < 50; round++ {
		enc := &stubEncoder{gate: make(chan struct{})}
		job := NewJob(testDeps(&stubOpener{enc: enc}, time.Second))
		config := validConfig(t)
		config.FrameRate = 30

		if !job.SetConfig(config) {
			t.Fatal("SetConfig failed")
		}
		if !job.Start() {
			t.Fatal("Start failed")
		}
		enc.gate <- struct{}{}
		waitForProgress(t, job)
		if !job.Cancel() {
			t.Fatal("Cancel failed")
		}

		deadline := time.Now().Add(5 * time.Second)
		for !job.WasCancelled() {
			if time.Now().After(deadline) {
				t.Fatal("timed out waiting for CANCELLED")
			}
		}
		if _, err := os.Stat(config.OutputPath); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("round %d: partial output visible after CANCELLED: %v", round, err)
		}
		job.Wait(0)
	}
}

func TestJobDepsDefaultsMatchConfig(t *testing.T) {
	job := NewJob(Deps{Logger: logging.NewNop()})
	if job.deps.UpdateEveryFrames != 10 {
		t.Fatalf("unexpected default UpdateEveryFrames %d", job.deps.UpdateEveryFrames)
	}
	if job.deps.AudioChunkMs != 500 {
		t.Fatalf("unexpected default AudioChunkMs %d", job.deps.AudioChunkMs)
	}
	if want := config.Default().Paths.LockSuffix; job.deps.LockSuffix != want {
		t.Fatalf("default lock suffix %q does not match config default %q", job.deps.LockSuffix, want)
	}
}

func TestEtaExcludesPausedTime(t *testing.T) {
	job := NewJob(Deps{Logger: logging.NewNop()})

	job.mu.Lock()
	job.startedAt = time.Now().Add(-10 * time.Second)
	job.pausedTotal = 4 * time.Second
	job.snap.VideoProgress = 0.5
	job.snap.AudioProgress = 0.75
	job.publishLocked()
	snap := job.snap
	job.mu.Unlock()

	// total = 0.70*0.5 + 0.20*0.75 = 0.5; encoding time 10s - 4s paused = 6s,
	// so the projection is 6s remaining rather than 10s.
	if snap.TotalProgress != 0.5 {
		t.Fatalf("unexpected total progress %v", snap.TotalProgress)
	}
	if snap.EstimatedRemainingSeconds < 5.8 || snap.EstimatedRemainingSeconds > 6.2 {
		t.Fatalf("expected ~6s remaining with paused time excluded, got %v", snap.EstimatedRemainingSeconds)
	}

	// A pause still in progress is excluded too.
	job.mu.Lock()
	job.pausedAt = time.Now().Add(-2 * time.Second)
	elapsed := job.encodingElapsedLocked()
	job.mu.Unlock()
	if elapsed < 3800*time.Millisecond || elapsed > 4200*time.Millisecond {
		t.Fatalf("expected ~4s encoding time during open pause, got %v", elapsed)
	}
}

func TestJobTerminalStateIsSticky(t *testing.T) {
	job := NewJob(testDeps(encoder.NewFileOpener(), 50*time.Millisecond))
	if !job.SetConfig(validConfig(t)) {
		t.Fatal("SetConfig failed")
	}
	if !job.Start() {
		t.Fatal("Start failed")
	}
	if !job.Wait(10 * time.Second) {
		t.Fatal("job did not finish in time")
	}
	phase := job.CurrentPhase()
	if !phase.Terminal() {
		t.Fatalf("expected terminal phase, got %s", phase)
	}

	if job.SetConfig(validConfig(t)) || job.Start() || job.Cancel() || job.Pause() || job.Resume() {
		t.Fatal("control operation succeeded on terminal job")
	}
	if job.CurrentPhase() != phase {
		t.Fatalf("terminal phase changed from %s to %s", phase, job.CurrentPhase())
	}
}
