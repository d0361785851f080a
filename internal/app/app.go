// Package app wires all voxmimic subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the HTTP API, and Shutdown tears everything down
// in order.
//
// For testing, inject doubles via functional options (WithProviderFactory,
// WithMetrics). When an option is not provided, New creates real
// implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/MrWong99/voxmimic/internal/api"
	"github.com/MrWong99/voxmimic/internal/config"
	"github.com/MrWong99/voxmimic/internal/generate"
	"github.com/MrWong99/voxmimic/internal/health"
	"github.com/MrWong99/voxmimic/internal/observe"
	"github.com/MrWong99/voxmimic/internal/registry"
	"github.com/MrWong99/voxmimic/internal/voice"
	"github.com/MrWong99/voxmimic/pkg/provider/synth"
	"github.com/MrWong99/voxmimic/pkg/provider/synth/qwen"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// serverStopTimeout bounds the graceful drain of in-flight HTTP requests
// once Run's context is cancelled.
const serverStopTimeout = 10 * time.Second

// App owns all subsystem lifetimes behind the voxmimic HTTP server.
type App struct {
	cfg *config.Config

	// Subsystems — initialised in New, torn down in Shutdown.
	metrics *observe.Metrics
	store   *registry.Store
	voices  *voice.Service
	cache   *generate.Cache
	coord   *generate.Coordinator
	handler http.Handler

	// factory builds one synthesis provider per model id.
	factory generate.Factory

	// probe answers the engine readiness check.
	probe synth.Provider

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithProviderFactory injects the constructor for synthesis engines instead
// of building sidecar clients from the config.
func WithProviderFactory(f generate.Factory) Option {
	return func(a *App) { a.factory = f }
}

// WithMetrics injects a metrics set instead of creating one from the global
// meter provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: storage directories are
// created, the voice registry is loaded and every HTTP route is registered.
// The synthesis sidecar is only pinged, never waited for; the first
// generation triggers the actual model load.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}

	// ── 1. Metrics ───────────────────────────────────────────────────────
	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("app: init metrics: %w", err)
	}

	// ── 2. Storage + voice library ───────────────────────────────────────
	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	// ── 3. Synthesis engine ──────────────────────────────────────────────
	if err := a.initEngine(ctx); err != nil {
		return nil, fmt.Errorf("app: init engine: %w", err)
	}

	// ── 4. Generation coordinator ────────────────────────────────────────
	a.coord = generate.NewCoordinator(a.voices, a.cache, cfg.Storage.OutputDir, a.metrics)

	// ── 5. HTTP routes ───────────────────────────────────────────────────
	a.initRoutes()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initMetrics creates the instrument set unless one was injected.
func (a *App) initMetrics() error {
	if a.metrics != nil {
		return nil
	}
	m, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		return err
	}
	a.metrics = m
	return nil
}

// initStorage creates the data directories and loads the voice library.
func (a *App) initStorage() error {
	if err := os.MkdirAll(a.cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(a.cfg.Storage.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	a.store = registry.NewStore(a.cfg.Storage.DataDir)
	a.voices = voice.NewService(a.store, voice.Defaults{
		Script:   a.cfg.Generation.DefaultScript,
		Model:    a.cfg.Generation.Model,
		Language: a.cfg.Generation.Language,
	})

	doc := a.store.Load()
	slog.Info("voice library loaded", "voices", len(doc.Voices), "dir", a.cfg.Storage.DataDir)
	return nil
}

// initEngine builds the provider factory, the model cache, and the probe
// client behind the readiness check. The default factory creates clients for
// the configured sidecar; tests swap it via WithProviderFactory.
func (a *App) initEngine(ctx context.Context) error {
	if a.factory == nil {
		engineCfg := a.cfg.Engine
		a.factory = func(model string) (synth.Provider, error) {
			return qwen.New(engineCfg.BaseURL,
				qwen.WithModel(model),
				qwen.WithTimeout(engineCfg.Timeout()),
				qwen.WithReferenceRate(engineCfg.ReferenceRate),
			)
		}
	}

	a.cache = generate.NewCache(a.factory, a.metrics)
	a.closers = append(a.closers, a.cache.Close)

	probe, err := a.factory(a.cfg.Generation.Model)
	if err != nil {
		return fmt.Errorf("build engine probe: %w", err)
	}
	a.probe = probe
	a.closers = append(a.closers, probe.Close)

	// A dead sidecar is not fatal here: the app still serves the voice
	// library, and readiness reports the engine state.
	if err := probe.Ready(ctx); err != nil {
		slog.Warn("synthesis engine not reachable yet", "url", a.cfg.Engine.BaseURL, "err", err)
	}
	return nil
}

// initRoutes assembles the root handler: API routes, health and readiness
// probes, and the Prometheus scrape endpoint, all behind the request metrics
// middleware.
func (a *App) initRoutes() {
	mux := http.NewServeMux()

	api.NewServer(a.voices, a.coord, a.cfg.Storage.OutputDir, a.metrics).Register(mux)

	health.New(
		health.Storage("storage", a.cfg.Storage.DataDir),
		health.Storage("artifacts", a.cfg.Storage.OutputDir),
		health.Engine(a.probe.Ready),
	).Register(mux)

	mux.Handle("GET /metrics", promhttp.Handler())

	a.handler = observe.Middleware(a.metrics)(mux)
}

// Handler returns the root HTTP handler. Tests drive the API through this
// without opening a socket.
func (a *App) Handler() http.Handler { return a.handler }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API and blocks until ctx is cancelled or the listener
// fails. On cancellation in-flight requests are drained gracefully and Run
// returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.cfg.Server.ListenAddr,
		Handler: a.handler,
		// Only the header read is bounded: live recording sessions and
		// synthesis requests stay open far longer than any global timeout.
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve %s: %w", a.cfg.Server.ListenAddr, err)
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
		defer cancel()
		if err := srv.Shutdown(stopCtx); err != nil {
			slog.Warn("server shutdown", "err", err)
		}
		return gctx.Err()
	})

	slog.Info("app running", "addr", a.cfg.Server.ListenAddr, "tls", a.cfg.Server.TLS != nil)
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}
