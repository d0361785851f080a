package qwen_test

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/voxmimic/pkg/audio"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
	"github.com/MrWong99/voxmimic/pkg/provider/synth/qwen"
)

// mustNew builds a provider or fails the test.
func mustNew(t *testing.T, url string, opts ...qwen.Option) *qwen.Provider {
	t.Helper()
	p, err := qwen.New(url, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

// testClip returns a short sine clip for use as reference audio.
func testClip(rate int, seconds float64) audio.Clip {
	n := int(float64(rate) * seconds)
	c := audio.Clip{Samples: make([]float64, n), Rate: rate}
	for i := range c.Samples {
		c.Samples[i] = 0.3 * math.Sin(2*math.Pi*220*float64(i)/float64(rate))
	}
	return c
}

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := qwen.New(""); err == nil {
		t.Fatal("expected error for empty server URL, got nil")
	}
}

func TestSynthesize_Success(t *testing.T) {
	t.Parallel()

	reference := testClip(16000, 3.5)
	output := testClip(24000, 1.0)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/clone" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type: got %q, want application/json", ct)
		}

		var req struct {
			Model          string `json:"model"`
			Text           string `json:"text"`
			Language       string `json:"language"`
			ReferenceAudio string `json:"reference_audio"`
			ReferenceText  string `json:"reference_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model: got %q, want test-model", req.Model)
		}
		if req.Language != "English" {
			t.Errorf("language: got %q, want English", req.Language)
		}
		if req.Text != "Hello there" {
			t.Errorf("text: got %q, want Hello there", req.Text)
		}
		if req.ReferenceText != "the quick brown fox" {
			t.Errorf("reference_text: got %q", req.ReferenceText)
		}

		wav, err := base64.StdEncoding.DecodeString(req.ReferenceAudio)
		if err != nil {
			t.Errorf("reference_audio is not valid base64: %v", err)
		}
		ref, err := audio.DecodeWAV(wav)
		if err != nil {
			t.Errorf("reference_audio is not a valid WAV: %v", err)
		} else if ref.Rate != reference.Rate || len(ref.Samples) != len(reference.Samples) {
			t.Errorf("reference round-trip: %d samples at %d Hz, want %d at %d",
				len(ref.Samples), ref.Rate, len(reference.Samples), reference.Rate)
		}

		w.Header().Set("Content-Type", "audio/wav")
		w.Write(audio.EncodeWAV(output))
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL, qwen.WithModel("test-model"))
	clip, err := p.Synthesize(t.Context(), synth.Request{
		Text:      "Hello there",
		Reference: reference,
		Script:    "the quick brown fox",
		Language:  "English",
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if clip.Rate != 24000 {
		t.Errorf("output rate: got %d, want 24000", clip.Rate)
	}
	if len(clip.Samples) != len(output.Samples) {
		t.Errorf("output samples: got %d, want %d", len(clip.Samples), len(output.Samples))
	}
}

func TestSynthesize_EngineErrorDetail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "CUDA out of memory"})
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	_, err := p.Synthesize(t.Context(), synth.Request{
		Text:      "hi",
		Reference: testClip(16000, 3.5),
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("error should carry the engine detail, got: %v", err)
	}
}

func TestSynthesize_EngineErrorPlainBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("engine warming up"))
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	_, err := p.Synthesize(t.Context(), synth.Request{
		Text:      "hi",
		Reference: testClip(16000, 3.5),
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "engine warming up") {
		t.Errorf("error should carry the body snippet, got: %v", err)
	}
}

func TestSynthesize_RejectsEmptyInputsLocally(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not reach the server")
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)

	if _, err := p.Synthesize(t.Context(), synth.Request{Reference: testClip(16000, 3.5)}); err == nil {
		t.Error("empty text: expected error, got nil")
	}
	if _, err := p.Synthesize(t.Context(), synth.Request{Text: "hi"}); err == nil {
		t.Error("empty reference: expected error, got nil")
	}
}

func TestSynthesize_GarbageResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/wav")
		w.Write([]byte("this is not a wav file"))
	}))
	defer srv.Close()

	p := mustNew(t, srv.URL)
	if _, err := p.Synthesize(t.Context(), synth.Request{
		Text:      "hi",
		Reference: testClip(16000, 3.5),
	}); err == nil {
		t.Fatal("expected decode error, got nil")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("posts the bound model", func(t *testing.T) {
		t.Parallel()

		var gotModel string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/v1/models/load" {
				t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			}
			var req struct {
				Model string `json:"model"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			gotModel = req.Model
		}))
		defer srv.Close()

		p := mustNew(t, srv.URL, qwen.WithModel("big-model"))
		if err := p.Load(t.Context()); err != nil {
			t.Fatalf("Load: %v", err)
		}
		if gotModel != "big-model" {
			t.Errorf("model: got %q, want big-model", gotModel)
		}
	})

	t.Run("engine failure propagates", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "no such model"})
		}))
		defer srv.Close()

		p := mustNew(t, srv.URL)
		err := p.Load(t.Context())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "no such model") {
			t.Errorf("error should carry the engine detail, got: %v", err)
		}
	})
}

func TestReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"healthy", http.StatusOK, false},
		{"unavailable", http.StatusServiceUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/health" {
					t.Errorf("path: got %s, want /health", r.URL.Path)
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := mustNew(t, srv.URL)
			err := p.Ready(t.Context())
			if (err != nil) != tt.wantErr {
				t.Errorf("Ready() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	p := mustNew(t, "http://localhost:1",
		qwen.WithReferenceRate(0),
		qwen.WithTimeout(5*time.Second),
	)
	if got := p.ReferenceRate(); got != 0 {
		t.Errorf("ReferenceRate: got %d, want 0", got)
	}

	d := mustNew(t, "http://localhost:1")
	if got := d.ReferenceRate(); got != 16000 {
		t.Errorf("default ReferenceRate: got %d, want 16000", got)
	}
	if got := d.Model(); got != qwen.DefaultModel {
		t.Errorf("default Model: got %q, want %q", got, qwen.DefaultModel)
	}
}
