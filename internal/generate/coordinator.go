// Package generate resolves generation requests into synthesis engine calls
// and packages the results as playable WAV artifacts.
//
// Two request paths exist: the guest path clones a voice ad hoc from a live
// reference recording, the saved path uses the stored recording and script of
// a registry voice. Both pin the generation settings (model, language,
// default script) once at request start; a mid-flight settings change only
// affects later requests. Synthesis output is never cached and a synthesis
// failure is surfaced as is, without retries.
package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/internal/voice"
	"github.com/MrWong99/voxmimic/pkg/audio"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
)

var (
	// ErrNoReference is returned when a guest generation has no reference
	// recording to clone from.
	ErrNoReference = errors.New("no reference recording provided")

	// ErrNoText is returned when the target text is blank.
	ErrNoText = errors.New("no text to generate")
)

// SynthesisError wraps a failure of the external synthesis engine. The core
// attempts no retry; the caller decides what to do with a failed generation.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return "generate: synthesis failed: " + e.Err.Error() }

func (e *SynthesisError) Unwrap() error { return e.Err }

// Coordinator turns generation requests into synthesis calls: it pins the
// generation settings at request start, prepares the reference audio, invokes
// the engine through the provider cache and writes the output WAV into the
// artifact directory.
type Coordinator struct {
	voices  *voice.Service
	cache   *Cache
	outDir  string
	metrics *observe.Metrics
}

// NewCoordinator returns a Coordinator writing artifacts to outDir. A nil
// metrics falls back to [observe.DefaultMetrics].
func NewCoordinator(voices *voice.Service, cache *Cache, outDir string, metrics *observe.Metrics) *Coordinator {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Coordinator{voices: voices, cache: cache, outDir: outDir, metrics: metrics}
}

// GenerateGuest synthesizes speech in an ad-hoc cloned voice. The reference
// clip comes from a live recording; script is the text that was read aloud,
// falling back to the global default script when blank. Returns the path of
// the written artifact.
//
// Returns [ErrNoReference] without a recording and [ErrNoText] for blank
// text.
func (c *Coordinator) GenerateGuest(ctx context.Context, reference audio.Clip, text, script string) (string, error) {
	if reference.Empty() {
		return "", ErrNoReference
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}

	settings := c.voices.Settings()
	script = strings.TrimSpace(script)
	if script == "" {
		script = settings.DefaultScript
	}
	return c.run(ctx, "guest", reference, text, script, settings)
}

// GenerateFromVoice synthesizes speech in a saved voice, using its stored
// reference recording and script. A registry entry whose audio file is
// missing on disk surfaces [registry.ErrAudioNotFound] rather than a crash.
// Returns the path of the written artifact.
func (c *Coordinator) GenerateFromVoice(ctx context.Context, ref voice.Ref, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	// The guest identity has no stored recording; it must go through the
	// guest path with a live one.
	if ref.IsGuest() {
		return "", ErrNoReference
	}

	settings := c.voices.Settings()
	reference, script, err := c.voices.Reference(ref)
	if err != nil {
		return "", err
	}
	return c.run(ctx, "saved", reference, text, script, settings)
}

// run executes the shared tail of both request paths: engine resolution,
// reference resampling, synthesis and artifact packaging.
func (c *Coordinator) run(ctx context.Context, mode string, reference audio.Clip, text, script string, st voice.Settings) (string, error) {
	ctx, span := observe.StartSpan(ctx, "generate."+mode,
		trace.WithAttributes(
			observe.Attr("model", st.Model),
			observe.Attr("language", st.Language),
		))
	defer span.End()

	c.metrics.ActiveGenerations.Add(ctx, 1)
	defer c.metrics.ActiveGenerations.Add(ctx, -1)

	provider, err := c.cache.GetOrLoad(ctx, st.Model)
	if err != nil {
		c.metrics.RecordGeneration(ctx, mode, "error")
		return "", err
	}

	ref := reference
	if rate := provider.ReferenceRate(); rate > 0 && rate != ref.Rate {
		ref = audio.ResampleClip(ref, rate)
	}

	start := time.Now()
	out, err := provider.Synthesize(ctx, synth.Request{
		Text:      text,
		Reference: ref,
		Script:    script,
		Language:  st.Language,
	})
	if err != nil {
		c.metrics.RecordGeneration(ctx, mode, "error")
		return "", &SynthesisError{Err: err}
	}
	c.metrics.SynthesisDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("model", st.Model)))

	path, err := c.writeArtifact(out)
	if err != nil {
		c.metrics.RecordGeneration(ctx, mode, "error")
		return "", err
	}
	c.metrics.RecordGeneration(ctx, mode, "ok")

	observe.Logger(ctx).Info("generate: artifact written",
		"mode", mode,
		"model", st.Model,
		"chars", len(text),
		"seconds", out.Seconds(),
		"path", path,
	)
	return path, nil
}

// writeArtifact stores a synthesized clip in the output directory under a
// fresh name and returns its path. The clip is written at the engine's
// output rate.
func (c *Coordinator) writeArtifact(out audio.Clip) (string, error) {
	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return "", fmt.Errorf("generate: create output dir: %w", err)
	}
	path := filepath.Join(c.outDir, uuid.NewString()+".wav")
	if err := os.WriteFile(path, audio.EncodeWAV(out), 0o644); err != nil {
		return "", fmt.Errorf("generate: write artifact: %w", err)
	}
	return path, nil
}
