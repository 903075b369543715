// Package gapdetector runs a matching pipeline over the services × locations cross product and
// reports which combinations no URL covers.
package gapdetector

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/matcher"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/slug"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

// DefaultConcurrency is the number of combination workers.
const DefaultConcurrency = 4

// Detector is safe for concurrent use; each Detect call owns its state.
type Detector struct {
	pipeline    *matcher.Pipeline
	concurrency int
	logger      infralogger.Logger
	telemetry   *telemetry.Provider
}

// Option configures a Detector.
type Option func(*Detector)

// WithConcurrency sets the worker count. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l infralogger.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithTelemetry records detection metrics and spans.
func WithTelemetry(p *telemetry.Provider) Option {
	return func(d *Detector) { d.telemetry = p }
}

// New creates a detector for pipeline.
func New(pipeline *matcher.Pipeline, opts ...Option) *Detector {
	d := &Detector{
		pipeline:    pipeline,
		concurrency: DefaultConcurrency,
		logger:      infralogger.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if pipeline.Mode() != matcher.ModeComprehensive && !pipeline.UsesOracle() {
		d.logger.Warn("Pipeline mode needs an oracle but none is configured; running deterministic strategies only",
			infralogger.String("pipeline", string(pipeline.Mode())),
		)
	}
	return d
}

// Pipeline returns the detector's pipeline.
func (d *Detector) Pipeline() *matcher.Pipeline { return d.pipeline }

// WithPipeline returns a copy of d that uses p.
func (d *Detector) WithPipeline(p *matcher.Pipeline) *Detector {
	cp := *d
	cp.pipeline = p
	return &cp
}

// Detect classifies every combination of services and locations as matched or gap.
//
// Inputs are trimmed; blanks and exact duplicates are dropped. The first URL in input order that
// matches a combination wins. On cancellation the context error is returned and no report.
func (d *Detector) Detect(ctx context.Context, services, locations, urls []string) (*domain.GapReport, error) {
	services, locations, urls = cleanInputs(services), cleanInputs(locations), cleanInputs(urls)
	switch {
	case len(services) == 0:
		return nil, fmt.Errorf("%w: services", domain.ErrEmptyInput)
	case len(locations) == 0:
		return nil, fmt.Errorf("%w: locations", domain.ErrEmptyInput)
	case len(urls) == 0:
		return nil, fmt.Errorf("%w: urls", domain.ErrEmptyInput)
	}

	mode := string(d.pipeline.Mode())
	ctx, span := d.telemetry.StartSpan(ctx, "gapdetector.detect",
		attribute.String("pipeline", mode),
		attribute.Int("services", len(services)),
		attribute.Int("locations", len(locations)),
		attribute.Int("urls", len(urls)),
	)
	defer span.End()

	startTime := time.Now()
	combinations := domain.Combinations(services, locations)

	d.logger.Info("Starting gap detection",
		infralogger.String("pipeline", mode),
		infralogger.Int("combinations", len(combinations)),
		infralogger.Int("urls", len(urls)),
		infralogger.Int("concurrency", d.concurrency),
	)

	// Every URL is normalized and scanned once, before any worker starts.
	subjects := make([]matcher.Subject, len(urls))
	present := make([]matcher.ServiceSet, len(urls))
	index := matcher.NewIndex(services)
	for i, s := range slug.NewAll(urls) {
		subjects[i] = matcher.NewSubject(s.Normalized)
		present[i] = index.Scan(subjects[i])
	}

	results := d.run(ctx, combinations, func(ctx context.Context, c domain.Combination) *domain.MatchRecord {
		phrase := matcher.NewPhrase(c)
		for i := range subjects {
			r := d.pipeline.MatchPrefiltered(ctx, phrase, subjects[i], present[i].Has(phrase))
			if r.IsMatch {
				return &domain.MatchRecord{URL: urls[i], Method: r.Method}
			}
		}
		return nil
	})

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		d.logger.Warn("Gap detection cancelled", infralogger.Error(err))
		return nil, fmt.Errorf("detect: %w", err)
	}

	report := domain.NewGapReport(len(combinations), len(urls))
	for i, c := range combinations {
		if rec := results[i]; rec != nil {
			report.RecordMatch(c, *rec)
			d.telemetry.RecordCombination(ctx, true, string(rec.Method))
			continue
		}
		report.RecordGap(c)
		d.telemetry.RecordCombination(ctx, false, "")
	}

	duration := time.Since(startTime)
	d.telemetry.RecordDetection(ctx, mode, duration)
	span.SetAttributes(
		attribute.Int("matches", len(report.Matches)),
		attribute.Int("gaps", len(report.Gaps)),
	)

	d.logger.Info("Gap detection complete",
		infralogger.Int("matches", len(report.Matches)),
		infralogger.Int("gaps", len(report.Gaps)),
		infralogger.Int64("duration_ms", duration.Milliseconds()),
	)

	return report, nil
}

// run evaluates combinations on the worker pool. results[i] belongs to combinations[i]; each
// slot has exactly one writer. Workers check ctx between combinations only.
func (d *Detector) run(
	ctx context.Context,
	combinations []domain.Combination,
	evaluate func(context.Context, domain.Combination) *domain.MatchRecord,
) []*domain.MatchRecord {
	results := make([]*domain.MatchRecord, len(combinations))

	jobs := make(chan int, len(combinations))
	for i := range combinations {
		jobs <- i
	}
	close(jobs)

	workers := min(d.concurrency, len(combinations))

	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					d.logger.Debug("Worker stopping due to context cancellation", infralogger.Int("worker_id", id))
					return
				}
				results[i] = evaluate(ctx, combinations[i])
			}
		}(w)
	}
	wg.Wait()

	return results
}

// cleanInputs trims values and drops blanks and exact duplicates, keeping first occurrences.
func cleanInputs(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
