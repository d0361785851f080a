// Package observe provides application-wide observability primitives for
// voxmimic: OpenTelemetry metrics, tracing, trace-enriched logging, and HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all voxmimic metrics.
const meterName = "github.com/MrWong99/voxmimic"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// SynthesisDuration tracks the latency of engine synthesis calls.
	SynthesisDuration metric.Float64Histogram

	// EngineLoadDuration tracks how long loading a synthesis model takes.
	EngineLoadDuration metric.Float64Histogram

	// --- Counters ---

	// GenerationRequests counts generation requests. Use with attributes:
	//   attribute.String("mode", "guest"|"saved"), attribute.String("status", ...)
	GenerationRequests metric.Int64Counter

	// VoiceOperations counts voice library mutations. Use with attributes:
	//   attribute.String("op", "create"|"update"|"delete"), attribute.String("status", ...)
	VoiceOperations metric.Int64Counter

	// EngineReloads counts synthesis engine reloads after a model switch.
	// Use with attribute: attribute.String("model", ...)
	EngineReloads metric.Int64Counter

	// --- Gauges ---

	// ActiveGenerations tracks the number of generation requests in flight.
	ActiveGenerations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// synthesisBuckets defines histogram bucket boundaries (in seconds) sized for
// local neural TTS synthesis, which runs for seconds rather than milliseconds.
var synthesisBuckets = []float64{
	0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120,
}

// loadBuckets covers model loads, which can take minutes on first use.
var loadBuckets = []float64{
	1, 2.5, 5, 10, 30, 60, 120, 300, 600,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.SynthesisDuration, err = m.Float64Histogram("voxmimic.synthesis.duration",
		metric.WithDescription("Latency of synthesis engine calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(synthesisBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EngineLoadDuration, err = m.Float64Histogram("voxmimic.engine.load.duration",
		metric.WithDescription("Time spent loading a synthesis model."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(loadBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.GenerationRequests, err = m.Int64Counter("voxmimic.generation.requests",
		metric.WithDescription("Total generation requests by mode and status."),
	); err != nil {
		return nil, err
	}
	if met.VoiceOperations, err = m.Int64Counter("voxmimic.voice.operations",
		metric.WithDescription("Total voice library mutations by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.EngineReloads, err = m.Int64Counter("voxmimic.engine.reloads",
		metric.WithDescription("Total synthesis engine reloads by model."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveGenerations, err = m.Int64UpDownCounter("voxmimic.active_generations",
		metric.WithDescription("Number of generation requests currently in flight."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxmimic.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordGeneration records a finished generation request with the standard
// attribute set.
func (m *Metrics) RecordGeneration(ctx context.Context, mode, status string) {
	m.GenerationRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("mode", mode),
			attribute.String("status", status),
		),
	)
}

// RecordVoiceOp records a voice library mutation with the standard attribute
// set.
func (m *Metrics) RecordVoiceOp(ctx context.Context, op, status string) {
	m.VoiceOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("status", status),
		),
	)
}

// RecordEngineReload records a synthesis engine reload for the given model.
func (m *Metrics) RecordEngineReload(ctx context.Context, model string) {
	m.EngineReloads.Add(ctx, 1,
		metric.WithAttributes(attribute.String("model", model)),
	)
}
