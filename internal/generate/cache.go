package generate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
)

// Factory constructs a synthesis provider bound to a model id.
type Factory func(model string) (synth.Provider, error)

// Cache holds at most one loaded synthesis provider together with the model
// id it was loaded for. A request for a different model constructs and warms
// a new provider, swaps it in and closes the old one. The whole reload runs
// under the cache lock so concurrent callers always observe one consistent
// instance; they simply wait while a load is in progress.
type Cache struct {
	mu      sync.Mutex
	factory Factory
	metrics *observe.Metrics
	current synth.Provider
	model   string
}

// NewCache returns a Cache that builds providers with factory. A nil metrics
// falls back to [observe.DefaultMetrics].
func NewCache(factory Factory, metrics *observe.Metrics) *Cache {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Cache{factory: factory, metrics: metrics}
}

// GetOrLoad returns the provider for the selected model. When the selection
// changed since the last call (or nothing is loaded yet) a new provider is
// constructed and warmed first; loading a model can take minutes on first
// use. If the new provider fails to load, the previously loaded one stays
// current so a bad model switch does not take the service down.
func (c *Cache) GetOrLoad(ctx context.Context, model string) (synth.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.model == model {
		return c.current, nil
	}

	slog.Info("generate: loading synthesis engine", "model", model)
	p, err := c.factory(model)
	if err != nil {
		return nil, fmt.Errorf("generate: create provider for model %q: %w", model, err)
	}

	start := time.Now()
	if err := p.Load(ctx); err != nil {
		if cerr := p.Close(); cerr != nil {
			slog.Warn("generate: close of unloaded provider failed", "err", cerr)
		}
		return nil, fmt.Errorf("generate: load model %q: %w", model, err)
	}
	c.metrics.EngineLoadDuration.Record(ctx, time.Since(start).Seconds())
	c.metrics.RecordEngineReload(ctx, model)

	old := c.current
	c.current = p
	c.model = model
	if old != nil {
		if err := old.Close(); err != nil {
			slog.Warn("generate: close of replaced provider failed", "err", err)
		}
	}

	slog.Info("generate: synthesis engine ready", "model", model, "load_time", time.Since(start))
	return p, nil
}

// Model returns the model id of the currently loaded provider, or the empty
// string when nothing is loaded.
func (c *Cache) Model() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Loaded reports whether a provider is currently loaded.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Close releases the current provider, if any.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current == nil {
		return nil
	}
	err := c.current.Close()
	c.current = nil
	c.model = ""
	return err
}
