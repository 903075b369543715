// Package telemetry provides Prometheus metrics and OpenTelemetry tracing for gapfinder.
// A nil *Provider is valid and records nothing.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "gapfinder"

// Oracle request results.
const (
	OracleResultYes       = "yes"
	OracleResultNo        = "no"
	OracleResultAmbiguous = "ambiguous"
	OracleResultError     = "error"
	OracleResultCached    = "cached"
)

// Combination outcomes.
const (
	OutcomeMatch = "match"
	OutcomeGap   = "gap"
)

// Metrics holds all gapfinder Prometheus metrics.
type Metrics struct {
	Detections        *prometheus.CounterVec
	DetectionDuration prometheus.Histogram
	Combinations      *prometheus.CounterVec
	Matches           *prometheus.CounterVec

	OracleRequests *prometheus.CounterVec
	OracleDuration prometheus.Histogram

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	HTTPActiveRequests prometheus.Gauge
}

// Provider wraps the tracer and metrics. Each provider owns its registry so several can coexist
// in one process (tests, multiple servers).
type Provider struct {
	Tracer   trace.Tracer
	Metrics  *Metrics
	registry *prometheus.Registry
}

// NewProvider initializes telemetry with Prometheus metrics and the global otel tracer.
func NewProvider() *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &Provider{
		Tracer:   otel.Tracer(serviceName),
		Metrics:  initMetrics(promauto.With(reg)),
		registry: reg,
	}
}

func initMetrics(f promauto.Factory) *Metrics {
	return &Metrics{
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapfinder_detections_total",
			Help: "Total detection runs by pipeline mode",
		}, []string{"pipeline"}),
		DetectionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gapfinder_detection_duration_seconds",
			Help:    "Wall time of one detection run",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300},
		}),
		Combinations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapfinder_combinations_total",
			Help: "Combinations evaluated by outcome (match or gap)",
		}, []string{"outcome"}),
		Matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapfinder_matches_total",
			Help: "Recorded matches by winning method",
		}, []string{"method"}),
		OracleRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapfinder_oracle_requests_total",
			Help: "Oracle classifications by result",
		}, []string{"result"}),
		OracleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gapfinder_oracle_duration_seconds",
			Help:    "Latency of oracle generation requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gapfinder_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gapfinder_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPActiveRequests: f.NewGauge(prometheus.GaugeOpts{
			Name: "gapfinder_http_active_requests",
			Help: "HTTP requests currently in flight",
		}),
	}
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	if p == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry exposes the provider's registry for tests.
func (p *Provider) Registry() *prometheus.Registry {
	return p.registry
}

// RecordDetection records one completed detection run.
func (p *Provider) RecordDetection(_ context.Context, pipeline string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.Detections.WithLabelValues(pipeline).Inc()
	p.Metrics.DetectionDuration.Observe(duration.Seconds())
}

// RecordCombination records one combination outcome. method is ignored for gaps.
func (p *Provider) RecordCombination(_ context.Context, matched bool, method string) {
	if p == nil {
		return
	}
	if !matched {
		p.Metrics.Combinations.WithLabelValues(OutcomeGap).Inc()
		return
	}
	p.Metrics.Combinations.WithLabelValues(OutcomeMatch).Inc()
	p.Metrics.Matches.WithLabelValues(method).Inc()
}

// RecordOracle records one oracle classification. A zero duration (cache hit) is not observed.
func (p *Provider) RecordOracle(_ context.Context, result string, duration time.Duration) {
	if p == nil {
		return
	}
	p.Metrics.OracleRequests.WithLabelValues(result).Inc()
	if duration > 0 {
		p.Metrics.OracleDuration.Observe(duration.Seconds())
	}
}

// StartSpan starts a new trace span. The caller ends it.
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p == nil {
		return noop.NewTracerProvider().Tracer(serviceName).Start(ctx, name)
	}
	return p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
