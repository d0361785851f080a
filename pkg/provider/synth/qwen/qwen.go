// Package qwen implements synth.Provider against a locally-running Qwen3-TTS
// engine server.
//
// The engine is a sidecar HTTP process hosting the TTS model. Synthesis is a
// single POST /v1/clone call carrying the target text, the base64-encoded
// reference WAV, and the reference script; the response body is the spoken
// audio as a RIFF/WAVE file at the model's native output rate. POST
// /v1/models/load makes a model resident (slow; called once per model switch)
// and GET /health answers readiness probes.
//
// Typical usage:
//
//	p, err := qwen.New("http://127.0.0.1:8880",
//	    qwen.WithModel("Qwen/Qwen3-TTS-12Hz-0.6B-Base"),
//	    qwen.WithLanguage("English"),
//	)
//	if err != nil { ... }
//	clip, err := p.Synthesize(ctx, synth.Request{...})
package qwen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrWong99/voxmimic/pkg/audio"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
)

// Compile-time interface assertion.
var _ synth.Provider = (*Provider)(nil)

// ---- constants ----

const (
	// DefaultModel is the engine model used when none is configured.
	DefaultModel = "Qwen/Qwen3-TTS-12Hz-0.6B-Base"

	// DefaultLanguage is the synthesis language used when none is configured.
	DefaultLanguage = "English"

	defaultTimeout       = 120 * time.Second
	defaultLoadTimeout   = 10 * time.Minute
	defaultReferenceRate = 16000

	cloneEndpoint  = "/v1/clone"
	loadEndpoint   = "/v1/models/load"
	healthEndpoint = "/health"

	// errorBodyLimit caps how much of a non-JSON error body is read for the
	// error message.
	errorBodyLimit = 512
)

// ---- options ----

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the engine model identifier the provider is bound to.
// Defaults to DefaultModel.
func WithModel(model string) Option {
	return func(p *Provider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithLanguage sets the synthesis language sent with every request, e.g.
// "English". Defaults to DefaultLanguage.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		if language != "" {
			p.language = language
		}
	}
}

// WithTimeout sets the per-request HTTP timeout for synthesis and readiness
// calls. Defaults to 120 s; model loads use their own, longer timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.httpClient.Timeout = d
		}
	}
}

// WithReferenceRate sets the sample rate the engine requires for reference
// audio. 0 means the engine accepts any rate. Defaults to 16000 Hz.
func WithReferenceRate(rate int) Option {
	return func(p *Provider) {
		p.referenceRate = rate
	}
}

// WithHTTPClient replaces the underlying HTTP client, including its timeout.
// Intended for tests and callers that need custom transports.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// ---- Provider ----

// Provider implements synth.Provider backed by a Qwen3-TTS engine server.
// It is safe for concurrent use.
type Provider struct {
	serverURL     string
	model         string
	language      string
	referenceRate int
	httpClient    *http.Client
}

// New creates a Provider targeting the engine server at serverURL (e.g.
// "http://127.0.0.1:8880"). serverURL must be non-empty. Functional options
// may override the model, language, timeouts, and reference rate.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("qwen: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:     strings.TrimRight(serverURL, "/"),
		model:         DefaultModel,
		language:      DefaultLanguage,
		referenceRate: defaultReferenceRate,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Model returns the engine model identifier this provider is bound to.
func (p *Provider) Model() string { return p.model }

// ---- request/response types ----

// cloneRequest is the JSON body sent to POST /v1/clone.
type cloneRequest struct {
	Model          string `json:"model"`
	Text           string `json:"text"`
	Language       string `json:"language"`
	ReferenceAudio string `json:"reference_audio"`
	ReferenceText  string `json:"reference_text"`
}

// loadRequest is the JSON body sent to POST /v1/models/load.
type loadRequest struct {
	Model string `json:"model"`
}

// errorResponse is the JSON body the engine returns with non-2xx statuses.
type errorResponse struct {
	Detail string `json:"detail"`
}

// ---- synth.Provider implementation ----

// Synthesize performs a single POST /v1/clone call and decodes the WAV
// response into a mono clip at the engine's output rate.
func (p *Provider) Synthesize(ctx context.Context, req synth.Request) (audio.Clip, error) {
	if req.Text == "" {
		return audio.Clip{}, errors.New("qwen: text must not be empty")
	}
	if req.Reference.Empty() {
		return audio.Clip{}, errors.New("qwen: reference audio must not be empty")
	}

	language := req.Language
	if language == "" {
		language = p.language
	}

	body := cloneRequest{
		Model:          p.model,
		Text:           req.Text,
		Language:       language,
		ReferenceAudio: base64.StdEncoding.EncodeToString(audio.EncodeWAV(req.Reference)),
		ReferenceText:  req.Script,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("qwen: marshal clone request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+cloneEndpoint, bytes.NewReader(data))
	if err != nil {
		return audio.Clip{}, fmt.Errorf("qwen: create clone request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("qwen: POST %s: %w", cloneEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return audio.Clip{}, fmt.Errorf("qwen: POST %s: %s", cloneEndpoint, errorMessage(resp))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("qwen: read WAV response: %w", err)
	}

	clip, err := audio.DecodeWAV(wav)
	if err != nil {
		return audio.Clip{}, fmt.Errorf("qwen: decode WAV response: %w", err)
	}
	return clip, nil
}

// Load asks the engine to make p's model resident. The engine holds the
// request until the model is loaded, so this can take minutes on first use of
// a large model.
func (p *Provider) Load(ctx context.Context) error {
	data, err := json.Marshal(loadRequest{Model: p.model})
	if err != nil {
		return fmt.Errorf("qwen: marshal load request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+loadEndpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("qwen: create load request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	// Model loads routinely exceed the synthesis timeout.
	client := &http.Client{
		Transport: p.httpClient.Transport,
		Timeout:   defaultLoadTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("qwen: POST %s: %w", loadEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qwen: POST %s: %s", loadEndpoint, errorMessage(resp))
	}
	return nil
}

// Ready performs a GET /health probe against the engine server.
func (p *Provider) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serverURL+healthEndpoint, nil)
	if err != nil {
		return fmt.Errorf("qwen: create health request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qwen: GET %s: %w", healthEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("qwen: GET %s returned status %d", healthEndpoint, resp.StatusCode)
	}
	return nil
}

// ReferenceRate returns the configured reference input rate.
func (p *Provider) ReferenceRate() int { return p.referenceRate }

// Close releases idle connections. The provider must not be used afterwards.
func (p *Provider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// errorMessage extracts a human-readable failure description from a non-2xx
// engine response: the JSON detail field when present, otherwise a trimmed
// body snippet, otherwise just the status.
func errorMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err == nil && len(body) > 0 {
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Detail != "" {
			return fmt.Sprintf("status %d: %s", resp.StatusCode, er.Detail)
		}
		if s := strings.TrimSpace(string(body)); s != "" {
			return fmt.Sprintf("status %d: %s", resp.StatusCode, s)
		}
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}
