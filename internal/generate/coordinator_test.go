package generate_test

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/voxmimic/internal/generate"
	"github.com/MrWong99/voxmimic/internal/registry"
	"github.com/MrWong99/voxmimic/internal/voice"
	"github.com/MrWong99/voxmimic/pkg/audio"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
	"github.com/MrWong99/voxmimic/pkg/provider/synth/mock"
)

// tone returns a 220 Hz sine of the given length, loud enough to pass the
// recording quality gate.
func tone(seconds float64, rate int) audio.Clip {
	samples := make([]float64, int(seconds*float64(rate)))
	for i := range samples {
		samples[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return audio.Clip{Samples: samples, Rate: rate}
}

type fixture struct {
	svc    *voice.Service
	store  *registry.Store
	engine *mock.Provider
	coord  *generate.Coordinator
	outDir string
	models []string
}

// newFixture wires a coordinator over a fresh registry and a mock engine.
// The factory hands out the same engine for every model and records the
// requested ids.
func newFixture(t *testing.T, engine *mock.Provider) *fixture {
	t.Helper()
	f := &fixture{engine: engine, outDir: t.TempDir()}
	f.store = registry.NewStore(t.TempDir())
	f.svc = voice.NewService(f.store, voice.Defaults{Model: "test/model", Language: "English"})
	cache := generate.NewCache(func(model string) (synth.Provider, error) {
		f.models = append(f.models, model)
		return f.engine, nil
	}, nil)
	f.coord = generate.NewCoordinator(f.svc, cache, f.outDir, nil)
	return f
}

func TestGenerateGuest(t *testing.T) {
	t.Parallel()
	out := tone(1, 24000)
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: out})

	path, err := f.coord.GenerateGuest(context.Background(), tone(4, 24000), "  Hello there  ", "")
	if err != nil {
		t.Fatalf("GenerateGuest: unexpected error: %v", err)
	}
	if filepath.Dir(path) != f.outDir || !strings.HasSuffix(path, ".wav") {
		t.Fatalf("artifact path %q not a wav inside %q", path, f.outDir)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	clip, err := audio.DecodeWAV(data)
	if err != nil {
		t.Fatalf("decoding artifact: %v", err)
	}
	if clip.Rate != out.Rate || len(clip.Samples) != len(out.Samples) {
		t.Fatalf("artifact is %d samples at %d Hz, want %d at %d",
			len(clip.Samples), clip.Rate, len(out.Samples), out.Rate)
	}

	calls := f.engine.Calls()
	if len(calls) != 1 {
		t.Fatalf("engine called %d times, want 1", len(calls))
	}
	req := calls[0]
	if req.Text != "Hello there" {
		t.Errorf("request text = %q, want trimmed %q", req.Text, "Hello there")
	}
	if req.Script != voice.DefaultReferenceScript {
		t.Errorf("blank script did not fall back to the default: %q", req.Script)
	}
	if req.Language != "English" {
		t.Errorf("request language = %q, want %q", req.Language, "English")
	}
	if req.Reference.Rate != 16000 {
		t.Errorf("reference sent at %d Hz, want the engine rate 16000", req.Reference.Rate)
	}
}

func TestGenerateGuestCustomScript(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(1, 24000)})

	if _, err := f.coord.GenerateGuest(context.Background(), tone(4, 24000), "hi", "my own words"); err != nil {
		t.Fatalf("GenerateGuest: unexpected error: %v", err)
	}
	if got := f.engine.Calls()[0].Script; got != "my own words" {
		t.Fatalf("request script = %q, want %q", got, "my own words")
	}
}

func TestGenerateGuestValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(1, 24000)})
	ctx := context.Background()

	if _, err := f.coord.GenerateGuest(ctx, audio.Clip{}, "hi", ""); !errors.Is(err, generate.ErrNoReference) {
		t.Fatalf("no recording: got %v, want ErrNoReference", err)
	}
	if _, err := f.coord.GenerateGuest(ctx, tone(4, 24000), "   ", ""); !errors.Is(err, generate.ErrNoText) {
		t.Fatalf("blank text: got %v, want ErrNoText", err)
	}
	if n := len(f.engine.Calls()); n != 0 {
		t.Fatalf("engine called %d times for rejected requests, want 0", n)
	}
}

func TestGenerateGuestSynthesisFailure(t *testing.T) {
	t.Parallel()
	cause := errors.New("engine exploded")
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeErr: cause})

	_, err := f.coord.GenerateGuest(context.Background(), tone(4, 24000), "hi", "")
	var synthErr *generate.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("got %v, want a SynthesisError", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("SynthesisError does not wrap the engine error: %v", err)
	}

	entries, readErr := os.ReadDir(f.outDir)
	if readErr != nil {
		t.Fatalf("reading output dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("failed generation left %d artifacts behind", len(entries))
	}
}

func TestGenerateFromVoice(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(2, 24000)})

	id, err := f.svc.Create("Bob", tone(5, 24000), "")
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	path, err := f.coord.GenerateFromVoice(context.Background(), voice.Saved(id), "Hello there")
	if err != nil {
		t.Fatalf("GenerateFromVoice: unexpected error: %v", err)
	}
	if path == "" {
		t.Fatal("GenerateFromVoice returned an empty artifact path")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("artifact missing on disk: %v", err)
	}

	req := f.engine.Calls()[0]
	if req.Script != voice.DefaultReferenceScript {
		t.Errorf("stored script not forwarded: %q", req.Script)
	}
	if req.Reference.Empty() {
		t.Error("stored recording not forwarded")
	}
}

func TestGenerateFromVoiceErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(1, 24000)})
	ctx := context.Background()

	id, err := f.svc.Create("Bob", tone(5, 24000), "")
	if err != nil {
		t.Fatalf("Create: unexpected error: %v", err)
	}

	t.Run("blank text", func(t *testing.T) {
		if _, err := f.coord.GenerateFromVoice(ctx, voice.Saved(id), " "); !errors.Is(err, generate.ErrNoText) {
			t.Fatalf("got %v, want ErrNoText", err)
		}
	})

	t.Run("guest has no stored recording", func(t *testing.T) {
		if _, err := f.coord.GenerateFromVoice(ctx, voice.Guest, "hi"); !errors.Is(err, generate.ErrNoReference) {
			t.Fatalf("got %v, want ErrNoReference", err)
		}
	})

	t.Run("unknown voice", func(t *testing.T) {
		if _, err := f.coord.GenerateFromVoice(ctx, voice.Saved("nope"), "hi"); !errors.Is(err, voice.ErrNotFound) {
			t.Fatalf("got %v, want voice.ErrNotFound", err)
		}
	})

	t.Run("recording file removed", func(t *testing.T) {
		if err := f.store.DeleteAudioDir(id); err != nil {
			t.Fatalf("DeleteAudioDir: %v", err)
		}
		if _, err := f.coord.GenerateFromVoice(ctx, voice.Saved(id), "hi"); !errors.Is(err, registry.ErrAudioNotFound) {
			t.Fatalf("got %v, want registry.ErrAudioNotFound", err)
		}
	})
}

func TestReferenceSentAtEngineRate(t *testing.T) {
	t.Parallel()

	t.Run("resampled on mismatch", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(1, 24000)})
		if _, err := f.coord.GenerateGuest(context.Background(), tone(4, 24000), "hi", ""); err != nil {
			t.Fatalf("GenerateGuest: %v", err)
		}
		ref := f.engine.Calls()[0].Reference
		if ref.Rate != 16000 {
			t.Fatalf("reference rate = %d, want 16000", ref.Rate)
		}
		if got, want := len(ref.Samples), 4*16000; got < want-1 || got > want+1 {
			t.Fatalf("resampled length = %d, want about %d", got, want)
		}
	})

	t.Run("untouched on match", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, &mock.Provider{Rate: 24000, SynthesizeClip: tone(1, 24000)})
		in := tone(4, 24000)
		if _, err := f.coord.GenerateGuest(context.Background(), in, "hi", ""); err != nil {
			t.Fatalf("GenerateGuest: %v", err)
		}
		ref := f.engine.Calls()[0].Reference
		if ref.Rate != 24000 || len(ref.Samples) != len(in.Samples) {
			t.Fatalf("matching-rate reference was altered: %d samples at %d Hz", len(ref.Samples), ref.Rate)
		}
	})
}

func TestModelSwitchBetweenRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t, &mock.Provider{Rate: 16000, SynthesizeClip: tone(1, 24000)})
	ctx := context.Background()

	if _, err := f.coord.GenerateGuest(ctx, tone(4, 24000), "one", ""); err != nil {
		t.Fatalf("first GenerateGuest: %v", err)
	}
	if err := f.svc.SetModel("other/model"); err != nil {
		t.Fatalf("SetModel: %v", err)
	}
	if _, err := f.coord.GenerateGuest(ctx, tone(4, 24000), "two", ""); err != nil {
		t.Fatalf("second GenerateGuest: %v", err)
	}

	want := []string{"test/model", "other/model"}
	if len(f.models) != len(want) || f.models[0] != want[0] || f.models[1] != want[1] {
		t.Fatalf("factory saw models %v, want %v", f.models, want)
	}
}
