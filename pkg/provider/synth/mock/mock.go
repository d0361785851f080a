// Package mock provides a test double for the synth.Provider interface.
//
// Use Provider to return controlled audio from Synthesize and to verify the
// requests the generation layer builds for the engine.
//
// Example:
//
//	p := &mock.Provider{
//	    SynthesizeClip: audio.Clip{Samples: make([]float64, 24000), Rate: 24000},
//	    Rate:           16000,
//	}
//	clip, _ := p.Synthesize(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/voxmimic/pkg/audio"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
)

// Compile-time interface assertion.
var _ synth.Provider = (*Provider)(nil)

// Provider is a mock implementation of synth.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// SynthesizeClip is returned by Synthesize when SynthesizeFunc is nil.
	SynthesizeClip audio.Clip

	// SynthesizeErr, if non-nil, is returned as the error from Synthesize.
	SynthesizeErr error

	// SynthesizeFunc, if non-nil, replaces the canned Synthesize behavior
	// entirely.
	SynthesizeFunc func(ctx context.Context, req synth.Request) (audio.Clip, error)

	// LoadErr, if non-nil, is returned from Load.
	LoadErr error

	// ReadyErr, if non-nil, is returned from Ready.
	ReadyErr error

	// Rate is returned by ReferenceRate. 0 means any rate is accepted.
	Rate int

	// --- Call records ---

	// SynthesizeCalls records every request passed to Synthesize in order.
	SynthesizeCalls []synth.Request

	// LoadCalls counts invocations of Load.
	LoadCalls int

	// ReadyCalls counts invocations of Ready.
	ReadyCalls int

	// CloseCalls counts invocations of Close.
	CloseCalls int
}

// Synthesize records the request and returns the configured clip or error.
func (p *Provider) Synthesize(ctx context.Context, req synth.Request) (audio.Clip, error) {
	p.mu.Lock()
	p.SynthesizeCalls = append(p.SynthesizeCalls, req)
	fn := p.SynthesizeFunc
	clip, err := p.SynthesizeClip, p.SynthesizeErr
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return audio.Clip{}, err
	}
	return clip, nil
}

// Load records the call and returns LoadErr.
func (p *Provider) Load(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.LoadCalls++
	return p.LoadErr
}

// Ready records the call and returns ReadyErr.
func (p *Provider) Ready(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ReadyCalls++
	return p.ReadyErr
}

// ReferenceRate returns the configured Rate.
func (p *Provider) ReferenceRate() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Rate
}

// Close records the call and always succeeds.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.CloseCalls++
	return nil
}

// Calls returns a snapshot of the recorded Synthesize requests.
func (p *Provider) Calls() []synth.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]synth.Request, len(p.SynthesizeCalls))
	copy(out, p.SynthesizeCalls)
	return out
}
