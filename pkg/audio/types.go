// Package audio provides the canonical in-memory audio representation used
// across the service: mono float64 clips in [-1, 1], the conversions that get
// there from captured PCM, linear-interpolation resampling, and a WAV codec
// for reading and writing reference clips and generated artifacts.
package audio

import (
	"fmt"
	"time"
)

// Clip is a mono audio signal. Samples are normalized to [-1, 1] and Rate is
// the sample rate in Hz. The zero value is an empty clip.
type Clip struct {
	Samples []float64
	Rate    int
}

// Empty reports whether the clip carries no playable audio.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0 || c.Rate <= 0
}

// Seconds returns the clip length in seconds. Empty clips report 0.
func (c Clip) Seconds() float64 {
	if c.Rate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.Rate)
}

// Duration returns the clip length as a time.Duration, for logs and metrics.
func (c Clip) Duration() time.Duration {
	return time.Duration(c.Seconds() * float64(time.Second))
}

// Encoding identifies the sample encoding of raw PCM input.
type Encoding int

const (
	// PCM16 is 16-bit little-endian signed integer PCM.
	PCM16 Encoding = iota

	// PCM32 is 32-bit little-endian signed integer PCM.
	PCM32

	// Float32 is 32-bit little-endian IEEE float PCM.
	Float32
)

// String returns the wire name of the encoding, e.g. "pcm16".
func (e Encoding) String() string {
	switch e {
	case PCM16:
		return "pcm16"
	case PCM32:
		return "pcm32"
	case Float32:
		return "float32"
	default:
		return fmt.Sprintf("encoding(%d)", int(e))
	}
}

// sampleBytes returns the byte width of one sample.
func (e Encoding) sampleBytes() int {
	switch e {
	case PCM16:
		return 2
	case PCM32, Float32:
		return 4
	default:
		return 0
	}
}

// ParseEncoding converts a wire name ("pcm16", "pcm32", "float32") into an
// Encoding. Unknown names return an error.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "pcm16":
		return PCM16, nil
	case "pcm32":
		return PCM32, nil
	case "float32":
		return Float32, nil
	default:
		return 0, fmt.Errorf("audio: unknown encoding %q", s)
	}
}

// Format describes raw PCM input: its sample encoding, channel count, and
// sample rate.
type Format struct {
	Encoding Encoding
	Channels int
	Rate     int
}
