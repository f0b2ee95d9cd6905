package export

// Phase identifies where a job is in its lifecycle. Values are stable strings
// exposed verbatim to hosts polling job state.
type Phase string

const (
	PhaseIdle          Phase = "IDLE"
	PhaseConfiguring   Phase = "CONFIGURING"
	PhaseEncodingVideo Phase = "ENCODING_VIDEO"
	PhaseEncodingAudio Phase = "ENCODING_AUDIO"
	PhaseMuxing        Phase = "MUXING"
	PhaseComplete      Phase = "COMPLETE"
	PhaseCancelled     Phase = "CANCELLED"
	PhaseFailed        Phase = "FAILED"
)

func (p Phase) String() string { return string(p) }

// Terminal reports whether a phase is final. Terminal phases are sticky: once
// reached, no control operation moves the job out of them.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseComplete, PhaseCancelled, PhaseFailed:
		return true
	default:
		return false
	}
}

// Running reports whether the worker is actively advancing the job.
func (p Phase) Running() bool {
	switch p {
	case PhaseEncodingVideo, PhaseEncodingAudio, PhaseMuxing:
		return true
	default:
		return false
	}
}

// statusText derives the human-readable status line from phase and error.
func statusText(phase Phase, errorMessage string) string {
	switch phase {
	case PhaseIdle:
		return "waiting for configuration"
	case PhaseConfiguring:
		return "configured, ready to start"
	case PhaseEncodingVideo:
		return "encoding video"
	case PhaseEncodingAudio:
		return "encoding audio"
	case PhaseMuxing:
		return "writing container"
	case PhaseComplete:
		return "export complete"
	case PhaseCancelled:
		return "export cancelled"
	case PhaseFailed:
		if errorMessage != "" {
			return "export failed: " + errorMessage
		}
		return "export failed"
	default:
		return string(phase)
	}
}
