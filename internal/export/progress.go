package export

import "time"

// Phase weights for the aggregate progress figure. Video encoding dominates
// runtime, audio is cheap, and the container write is near-instant.
const (
	videoWeight  = 0.70
	audioWeight  = 0.20
	muxingWeight = 0.10

	// etaThreshold is the minimum aggregate progress before a remaining-time
	// estimate is published. Below it the rate sample is too noisy.
	etaThreshold = 0.02
)

// Progress is one coherent view of a job's advancement. The worker publishes
// whole snapshots under the job lock, so readers never observe a
// partially-updated record.
type Progress struct {
	VideoProgress  float64
	AudioProgress  float64
	MuxingProgress float64
	TotalProgress  float64

	FramesEncoded int64
	TotalFrames   int64

	AudioSamplesProcessed int64
	TotalAudioSamples     int64

	EstimatedRemainingSeconds float64

	CurrentPhase Phase
	Status       string
}

// weightedTotal combines per-phase fractions into the aggregate figure.
func weightedTotal(video, audio, muxing float64) float64 {
	return videoWeight*clampFraction(video) +
		audioWeight*clampFraction(audio) +
		muxingWeight*clampFraction(muxing)
}

// estimateRemaining projects seconds left from elapsed time and aggregate
// progress. It returns 0 (unknown) until progress clears the noise threshold.
func estimateRemaining(elapsed time.Duration, total float64) float64 {
	if total < etaThreshold || total >= 1 {
		return 0
	}
	remaining := elapsed.Seconds() / total * (1 - total)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// fraction converts a done/total counter pair into a [0,1] fraction.
func fraction(done, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return clampFraction(float64(done) / float64(total))
}

func clampFraction(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
