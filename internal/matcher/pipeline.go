package matcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
)

// Mode selects which strategies a Pipeline runs.
type Mode string

const (
	// ModeStrict runs exact_phrase, then the oracle. Strategies 2-4 never run.
	ModeStrict Mode = "strict"
	// ModeComprehensive runs the four deterministic strategies.
	ModeComprehensive Mode = "comprehensive"
	// ModeComprehensiveWithOracle runs the four strategies, then the oracle.
	ModeComprehensiveWithOracle Mode = "comprehensive_oracle"
)

// ErrInvalidThreshold is returned for fuzzy thresholds outside (0, 1].
var ErrInvalidThreshold = errors.New("fuzzy threshold must be in (0, 1]")

// ParseMode parses a mode name. The empty string selects ModeComprehensive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeComprehensive:
		return ModeComprehensive, nil
	case ModeStrict:
		return ModeStrict, nil
	case ModeComprehensiveWithOracle:
		return ModeComprehensiveWithOracle, nil
	default:
		return "", fmt.Errorf("unknown pipeline mode %q", s)
	}
}

// Classifier is the oracle fallback. It returns true only for a clear "yes"; failures are false.
type Classifier interface {
	Classify(ctx context.Context, normalizedSlug, combinationPhrase string) bool
}

// Pipeline applies one matching mode to (combination, slug) pairs. It is immutable and safe
// for concurrent use as long as its Classifier is.
type Pipeline struct {
	mode      Mode
	oracle    Classifier
	threshold float64
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithOracle sets the oracle fallback used by the strict and comprehensive_oracle modes.
func WithOracle(c Classifier) Option {
	return func(p *Pipeline) { p.oracle = c }
}

// WithFuzzyThreshold overrides DefaultFuzzyThreshold.
func WithFuzzyThreshold(t float64) Option {
	return func(p *Pipeline) { p.threshold = t }
}

// NewPipeline creates a pipeline. A mode that uses the oracle runs only its deterministic part
// when no oracle is configured.
func NewPipeline(mode Mode, opts ...Option) (*Pipeline, error) {
	parsed, err := ParseMode(string(mode))
	if err != nil {
		return nil, err
	}

	p := &Pipeline{mode: parsed, threshold: DefaultFuzzyThreshold}
	for _, opt := range opts {
		opt(p)
	}
	if p.threshold <= 0 || p.threshold > 1 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidThreshold, p.threshold)
	}
	return p, nil
}

// Mode returns the pipeline mode.
func (p *Pipeline) Mode() Mode { return p.mode }

// FuzzyThreshold returns the fuzzy_similarity threshold.
func (p *Pipeline) FuzzyThreshold() float64 { return p.threshold }

// UsesOracle reports whether the oracle is consulted. Results are deterministic otherwise.
func (p *Pipeline) UsesOracle() bool {
	return p.oracle != nil && p.mode != ModeComprehensive
}

// With returns a copy with a different mode and threshold, sharing the oracle.
// A zero threshold keeps the current one; an empty mode keeps the current mode.
func (p *Pipeline) With(mode Mode, threshold float64) (*Pipeline, error) {
	if mode == "" {
		mode = p.mode
	}
	if threshold == 0 {
		threshold = p.threshold
	}
	return NewPipeline(mode, WithOracle(p.oracle), WithFuzzyThreshold(threshold))
}

// Match tests one combination against one slug.
func (p *Pipeline) Match(ctx context.Context, phrase *Phrase, subject Subject) domain.MatchResult {
	return p.MatchPrefiltered(ctx, phrase, subject, strings.Contains(subject.text, phrase.service))
}

// MatchPrefiltered is Match with the service-presence test already answered, e.g. by an Index.
// Every deterministic strategy requires the service to occur in the slug, so they are skipped
// when serviceInSlug is false. The oracle is still consulted.
func (p *Pipeline) MatchPrefiltered(ctx context.Context, phrase *Phrase, subject Subject, serviceInSlug bool) domain.MatchResult {
	if serviceInSlug {
		if r := p.deterministic(phrase, subject); r.IsMatch {
			return r
		}
	}

	if p.UsesOracle() && p.oracle.Classify(ctx, subject.normalized, phrase.text) {
		return domain.Matched(domain.MethodOracle)
	}
	return domain.NoMatch
}

func (p *Pipeline) deterministic(phrase *Phrase, subject Subject) domain.MatchResult {
	if p.mode == ModeStrict {
		if phrase.ExactPhrase(subject) {
			return domain.Matched(domain.MethodExactPhrase)
		}
		return domain.NoMatch
	}
	return phrase.Evaluate(subject, p.threshold)
}
