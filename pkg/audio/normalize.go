package audio

import (
	"encoding/binary"
	"math"
)

// Normalize converts raw PCM in the declared format into a canonical mono
// Clip. Integer samples are rescaled to [-1, 1] by their full-scale
// denominator (16-bit: 32768, 32-bit: 2147483648); float input keeps its
// scale. Multi-channel input is reduced to mono by per-sample averaging.
// Trailing bytes that do not fill a whole sample are dropped. Normalize never
// fails; an unsupported encoding yields an empty clip.
func Normalize(data []byte, f Format) Clip {
	if f.Channels < 1 {
		f.Channels = 1
	}

	var samples []float64
	switch f.Encoding {
	case PCM16:
		samples = decodePCM16(data)
	case PCM32:
		samples = decodePCM32(data)
	case Float32:
		samples = decodeFloat32(data)
	default:
		return Clip{Rate: f.Rate}
	}

	return NormalizeFloats(samples, f.Channels, f.Rate)
}

// NormalizeFloats applies the mono contract to already-float samples:
// interleaved multi-channel input is averaged down to mono, mono input passes
// through unchanged. Sample values are not rescaled, so applying
// NormalizeFloats to its own output is the identity.
func NormalizeFloats(samples []float64, channels, rate int) Clip {
	if channels < 1 {
		channels = 1
	}
	return Clip{Samples: Downmix(samples, channels), Rate: rate}
}

// Downmix reduces interleaved multi-channel samples to mono by per-sample
// averaging across channels. Mono input is returned unchanged. A trailing
// partial frame is dropped.
func Downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]float64, frames)
	for i := range frames {
		var sum float64
		for ch := range channels {
			sum += samples[i*channels+ch]
		}
		out[i] = sum / float64(channels)
	}
	return out
}

// RMS returns the root-mean-square amplitude of samples. Empty input is 0.
func RMS(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Peak returns the maximum absolute amplitude of samples. Empty input is 0.
func Peak(samples []float64) float64 {
	var peak float64
	for _, s := range samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// decodePCM16 converts little-endian int16 PCM bytes to floats in [-1, 1).
func decodePCM16(data []byte) []float64 {
	n := len(data) / 2
	out := make([]float64, n)
	for i := range n {
		s := int16(data[i*2]) | int16(data[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

// decodePCM32 converts little-endian int32 PCM bytes to floats in [-1, 1).
func decodePCM32(data []byte) []float64 {
	n := len(data) / 4
	out := make([]float64, n)
	for i := range n {
		s := int32(binary.LittleEndian.Uint32(data[i*4:]))
		out[i] = float64(s) / 2147483648.0
	}
	return out
}

// decodeFloat32 converts little-endian IEEE float32 PCM bytes to float64
// without rescaling.
func decodeFloat32(data []byte) []float64 {
	n := len(data) / 4
	out := make([]float64, n)
	for i := range n {
		out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:])))
	}
	return out
}
