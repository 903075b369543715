package oracle

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/circuitbreaker"
	infralogger "github.com/jonesrussell/north-cloud/gapfinder/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/gapfinder/infrastructure/retry"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/telemetry"
)

// DefaultTimeout bounds one classification, retries included.
const DefaultTimeout = 10 * time.Second

// Config tunes the Adapter. Zero values use defaults.
type Config struct {
	// Timeout bounds one Classify call including retries (default 10s).
	Timeout time.Duration
	// RequestsPerSecond limits generator calls; 0 disables the limit.
	RequestsPerSecond float64
	// Burst defaults to 1.
	Burst   int
	Retry   retry.Config
	Breaker circuitbreaker.Config
}

// Adapter implements matcher.Classifier over a Generator. It never returns an error: every
// failure is logged, counted and answered with false.
type Adapter struct {
	generator Generator
	timeout   time.Duration
	limiter   *rate.Limiter
	breaker   *circuitbreaker.Breaker
	retryCfg  retry.Config
	cache     Cache
	logger    infralogger.Logger
	telemetry *telemetry.Provider
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithCache enables verdict caching.
func WithCache(c Cache) AdapterOption {
	return func(a *Adapter) { a.cache = c }
}

// WithLogger sets the logger.
func WithLogger(l infralogger.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// WithTelemetry records oracle metrics and spans.
func WithTelemetry(p *telemetry.Provider) AdapterOption {
	return func(a *Adapter) { a.telemetry = p }
}

// NewAdapter wraps generator with a timeout, rate limit, circuit breaker and retries.
func NewAdapter(generator Generator, cfg Config, opts ...AdapterOption) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	retryCfg := cfg.Retry
	if retryCfg.IsRetryable == nil {
		retryCfg.IsRetryable = isRetryable
	}

	a := &Adapter{
		generator: generator,
		timeout:   cfg.Timeout,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		retryCfg:  retryCfg,
		logger:    infralogger.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(from, to circuitbreaker.State) {
		a.logger.Warn("Oracle circuit breaker state changed",
			infralogger.String("from", from.String()),
			infralogger.String("to", to.String()),
		)
	}
	a.breaker = circuitbreaker.New(breakerCfg)

	return a
}

// Name returns the generator name.
func (a *Adapter) Name() string { return a.generator.Name() }

// BreakerState reports the circuit breaker state guarding the generator.
func (a *Adapter) BreakerState() circuitbreaker.State { return a.breaker.State() }

// Classify asks whether normalizedSlug contains combinationPhrase. Only a clear "yes" is true.
func (a *Adapter) Classify(ctx context.Context, normalizedSlug, combinationPhrase string) bool {
	ctx, span := a.telemetry.StartSpan(ctx, "oracle.classify",
		attribute.String("oracle.generator", a.generator.Name()),
		attribute.String("oracle.phrase", combinationPhrase),
	)
	defer span.End()

	key := CacheKey(a.generator.Name(), normalizedSlug, combinationPhrase)
	if matched, ok := a.cached(ctx, key); ok {
		a.telemetry.RecordOracle(ctx, telemetry.OracleResultCached, 0)
		span.SetAttributes(attribute.Bool("oracle.cached", true))
		return matched
	}

	start := time.Now()
	text, err := a.generate(ctx, BuildPrompt(normalizedSlug, combinationPhrase))
	elapsed := time.Since(start)

	if err != nil {
		span.RecordError(err)
		a.telemetry.RecordOracle(ctx, telemetry.OracleResultError, elapsed)
		a.logger.Warn("Oracle unavailable, treating as no match",
			infralogger.String("slug", normalizedSlug),
			infralogger.String("phrase", combinationPhrase),
			infralogger.Duration("elapsed", elapsed),
			infralogger.Error(err),
		)
		return false
	}

	matched, verdict := ParseVerdict(text)
	a.telemetry.RecordOracle(ctx, string(verdict), elapsed)
	span.SetAttributes(attribute.String("oracle.verdict", string(verdict)))
	if verdict == VerdictAmbiguous {
		a.logger.Debug("Ambiguous oracle response",
			infralogger.String("slug", normalizedSlug),
			infralogger.String("phrase", combinationPhrase),
			infralogger.String("response", text),
		)
	}

	a.store(ctx, key, matched)
	return matched
}

func (a *Adapter) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.limiter.Wait(ctx); err != nil {
		return "", err
	}

	var text string
	err := retry.Retry(ctx, a.retryCfg, func() error {
		return a.breaker.Execute(ctx, func() error {
			out, genErr := a.generator.Generate(ctx, prompt)
			if genErr != nil {
				return genErr
			}
			text = out
			return nil
		})
	})
	return text, err
}

func (a *Adapter) cached(ctx context.Context, key string) (matched, ok bool) {
	if a.cache == nil {
		return false, false
	}
	matched, found, err := a.cache.Get(ctx, key)
	if err != nil {
		a.logger.Warn("Oracle cache read failed", infralogger.Error(err))
		return false, false
	}
	return matched, found
}

func (a *Adapter) store(ctx context.Context, key string, matched bool) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Set(ctx, key, matched); err != nil {
		a.logger.Warn("Oracle cache write failed", infralogger.Error(err))
	}
}

// isRetryable extends retry.DefaultIsRetryable with 429 and 5xx backend responses.
func isRetryable(err error) bool {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return retry.DefaultIsRetryable(err)
}
