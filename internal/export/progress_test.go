package export

import (
	"math"
	"testing"
	"time"
)

func TestWeightedTotal(t *testing.T) {
	got := weightedTotal(0.5, 1.0, 0.0)
	if math.Abs(got-0.55) > 1e-9 {
		t.Fatalf("expected 0.55, got %v", got)
	}
	if weightedTotal(1, 1, 1) != 1 {
		t.Fatalf("full phases should aggregate to 1, got %v", weightedTotal(1, 1, 1))
	}
	if weightedTotal(0, 0, 0) != 0 {
		t.Fatalf("empty phases should aggregate to 0, got %v", weightedTotal(0, 0, 0))
	}
	// Out-of-range inputs are clamped before weighting.
	if got := weightedTotal(2, -1, 0); math.Abs(got-0.70) > 1e-9 {
		t.Fatalf("expected clamped aggregate 0.70, got %v", got)
	}
}

func TestEstimateRemaining(t *testing.T) {
	if got := estimateRemaining(time.Minute, 0.01); got != 0 {
		t.Fatalf("below threshold should report unknown, got %v", got)
	}
	if got := estimateRemaining(10*time.Second, 0.5); math.Abs(got-10) > 1e-9 {
		t.Fatalf("expected 10s remaining at half done, got %v", got)
	}
	if got := estimateRemaining(time.Minute, 1.0); got != 0 {
		t.Fatalf("finished job should report 0, got %v", got)
	}
}

func TestFraction(t *testing.T) {
	if got := fraction(5, 10); got != 0.5 {
		t.Fatalf("expected 0.5, got %v", got)
	}
	if got := fraction(3, 0); got != 0 {
		t.Fatalf("unknown total should report 0, got %v", got)
	}
	if got := fraction(15, 10); got != 1 {
		t.Fatalf("overshoot should clamp to 1, got %v", got)
	}
}

func TestStatusTextCoversPhases(t *testing.T) {
	for _, phase := range []Phase{
		PhaseIdle, PhaseConfiguring, PhaseEncodingVideo, PhaseEncodingAudio,
		PhaseMuxing, PhaseComplete, PhaseCancelled, PhaseFailed,
	} {
		if statusText(phase, "") == "" {
			t.Fatalf("phase %s has no status text", phase)
		}
	}
	if got := statusText(PhaseFailed, "disk full"); got != "export failed: disk full" {
		t.Fatalf("unexpected failure status %q", got)
	}
}

func TestPhasePredicates(t *testing.T) {
	for _, phase := range []Phase{PhaseComplete, PhaseCancelled, PhaseFailed} {
		if !phase.Terminal() {
			t.Fatalf("%s should be terminal", phase)
		}
		if phase.Running() {
			t.Fatalf("%s should not be running", phase)
		}
	}
	for _, phase := range []Phase{PhaseEncodingVideo, PhaseEncodingAudio, PhaseMuxing} {
		if phase.Terminal() {
			t.Fatalf("%s should not be terminal", phase)
		}
		if !phase.Running() {
			t.Fatalf("%s should be running", phase)
		}
	}
}
