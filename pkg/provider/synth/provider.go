// Package synth defines the Provider interface for voice-cloning speech
// synthesis engines.
//
// A synthesis provider wraps an engine process (typically a local HTTP
// sidecar hosting the TTS model) and turns a target text plus a reference
// recording into spoken audio in the reference voice. One provider instance
// is bound to one engine model; switching models means constructing a fresh
// instance and discarding the old one (the generation layer's provider cache
// owns that lifecycle).
package synth

import (
	"context"

	"github.com/MrWong99/voxmimic/pkg/audio"
)

// Request carries the inputs of one synthesis invocation.
type Request struct {
	// Text is the target text to speak. Callers trim it; it must be
	// non-empty.
	Text string

	// Reference is the normalized mono reference recording. When the
	// provider reports a non-zero ReferenceRate the caller resamples the
	// clip to that rate before invoking Synthesize.
	Reference audio.Clip

	// Script is the text that was read aloud in the reference recording. The
	// engine uses it to anchor the voice characteristics.
	Script string

	// Language selects the synthesis language, e.g. "English".
	Language string
}

// Provider is the abstraction over a voice-cloning synthesis engine.
//
// Implementations must tolerate concurrent Synthesize calls or document that
// they do not; the bundled HTTP implementation is safe for concurrent use.
type Provider interface {
	// Synthesize speaks req.Text in the voice of req.Reference and returns
	// the spoken audio at the engine's native output rate. A failed
	// invocation returns a zero clip and an error; no retries are performed
	// here.
	Synthesize(ctx context.Context, req Request) (audio.Clip, error)

	// Load makes the provider's model resident on the engine. It is called
	// once after construction (and hence after every model switch) and may
	// block for the full model load time.
	Load(ctx context.Context) error

	// Ready reports whether the engine is reachable. It is cheap and suited
	// to readiness probes; it does not trigger a model load.
	Ready(ctx context.Context) error

	// ReferenceRate returns the sample rate in Hz the engine requires for
	// reference audio, or 0 when any rate is accepted as-is.
	ReferenceRate() int

	// Close releases resources held by the provider. The provider must not
	// be used after Close.
	Close() error
}
