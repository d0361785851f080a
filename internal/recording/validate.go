// Package recording evaluates captured reference recordings against the
// quality gates of the voice library.
//
// The same thresholds serve two callers: the live-feedback endpoint that
// advises the user while they record, and the persistence gate that runs
// before a new or re-recorded voice is written to disk. Keeping both on this
// one implementation guarantees a recording accepted at creation time is
// never judged differently during live feedback.
package recording

import (
	"fmt"

	"github.com/MrWong99/voxmimic/pkg/audio"
)

// Quality thresholds. Duration is in seconds, RMS and peak are amplitudes in
// [0, 1] over the normalized signal.
const (
	MinDuration = 3.0
	MinRMS      = 0.01
	MaxPeak     = 0.95
)

// Result is the verdict for one recording. The measured fields are populated
// whenever a recording is present, regardless of the verdict.
type Result struct {
	OK      bool
	Message string

	Duration float64
	RMS      float64
	Peak     float64
}

// QualityError reports a recording rejected by the persistence gate. The
// message is user-facing.
type QualityError struct {
	Message string
}

func (e *QualityError) Error() string { return e.Message }

// Validate checks a normalized recording, in order and stopping at the first
// failure: presence, minimum duration, minimum loudness, clipping. On success
// the message reports the measured duration and peak.
func Validate(c audio.Clip) Result {
	if c.Empty() {
		return Result{Message: "No recording found. Please record your voice first."}
	}

	r := Result{
		Duration: c.Seconds(),
		RMS:      audio.RMS(c.Samples),
		Peak:     audio.Peak(c.Samples),
	}

	switch {
	case r.Duration < MinDuration:
		r.Message = fmt.Sprintf("Recording too short (%.1fs). Please read the whole script (need at least %.0f seconds).", r.Duration, MinDuration)
	case r.RMS < MinRMS:
		r.Message = "Recording too quiet. Please speak up or move closer to the microphone."
	case r.Peak > MaxPeak:
		r.Message = fmt.Sprintf("Recording is clipping (peak %.2f). Please lower your microphone volume.", r.Peak)
	default:
		r.OK = true
		r.Message = fmt.Sprintf("Recording looks good (%.1fs, peak %.2f).", r.Duration, r.Peak)
	}
	return r
}

// Gate validates c and converts a failed verdict into a *QualityError.
// Returns nil when the recording passes.
func Gate(c audio.Clip) error {
	if r := Validate(c); !r.OK {
		return &QualityError{Message: r.Message}
	}
	return nil
}
