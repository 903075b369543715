// Package matcher decides whether a (service, location) combination is already covered by a
// URL slug. It provides four deterministic strategies in priority order and a Pipeline that
// chains them, optionally with an oracle fallback.
//
// All comparisons are case-folded. Strategies are pure and safe for concurrent use.
package matcher

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
)

// DefaultFuzzyThreshold is the minimum similarity ratio for fuzzy_similarity.
const DefaultFuzzyThreshold = 0.8

// nonWord matches one rune that is not a letter, number or underscore.
const nonWord = `[^\p{L}\p{N}_]`

// Fold case-folds s. A Caser is stateful, so one is created per call.
func Fold(s string) string {
	return cases.Fold().String(s)
}

// Subject is a normalized slug prepared for matching.
type Subject struct {
	normalized string
	text       string
	tokens     map[string]struct{}
}

// NewSubject prepares a normalized slug.
func NewSubject(normalizedSlug string) Subject {
	text := Fold(normalizedSlug)
	fields := strings.Fields(text)
	tokens := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		tokens[f] = struct{}{}
	}
	return Subject{normalized: normalizedSlug, text: text, tokens: tokens}
}

// Normalized returns the slug as given to NewSubject.
func (s Subject) Normalized() string { return s.normalized }

// Phrase is one combination prepared for matching against many slugs.
type Phrase struct {
	combination domain.Combination
	service     string
	location    string
	text        string
	pattern     *regexp.Regexp
}

// NewPhrase folds the combination and compiles its regex_pattern expression.
func NewPhrase(c domain.Combination) *Phrase {
	service := Fold(c.Service)
	location := Fold(c.Location)
	return &Phrase{
		combination: c,
		service:     service,
		location:    location,
		text:        service + " in " + location,
		pattern:     regexp.MustCompile(orderedPattern(service, location)),
	}
}

// Combination returns the combination the phrase was built from.
func (p *Phrase) Combination() domain.Combination { return p.combination }

// Service returns the folded service.
func (p *Phrase) Service() string { return p.service }

// Text returns the folded "{service} in {location}".
func (p *Phrase) Text() string { return p.text }

// ExactPhrase reports whether the slug contains "{service} in {location}".
func (p *Phrase) ExactPhrase(s Subject) bool {
	return strings.Contains(s.text, p.text)
}

// TokenBased reports whether service and location are both whole whitespace tokens of the slug.
// "spa" does not match inside "spacious".
func (p *Phrase) TokenBased(s Subject) bool {
	_, hasService := s.tokens[p.service]
	_, hasLocation := s.tokens[p.location]
	return hasService && hasLocation
}

// RegexPattern reports whether service appears on word boundaries, followed later by location
// on word boundaries.
func (p *Phrase) RegexPattern(s Subject) bool {
	return p.pattern.MatchString(s.text)
}

// FuzzySimilarity reports whether the service occurs in the slug and the similarity between
// the phrase and the whole slug is at least threshold.
func (p *Phrase) FuzzySimilarity(s Subject, threshold float64) bool {
	if !strings.Contains(s.text, p.service) {
		return false
	}
	return Similarity(p.text, s.text) >= threshold
}

// Evaluate runs the four strategies in priority order and returns the first that matches.
func (p *Phrase) Evaluate(s Subject, threshold float64) domain.MatchResult {
	switch {
	case p.ExactPhrase(s):
		return domain.Matched(domain.MethodExactPhrase)
	case p.TokenBased(s):
		return domain.Matched(domain.MethodTokenBased)
	case p.RegexPattern(s):
		return domain.Matched(domain.MethodRegexPattern)
	case p.FuzzySimilarity(s, threshold):
		return domain.Matched(domain.MethodFuzzySimilarity)
	default:
		return domain.NoMatch
	}
}

// ExactPhrase is the exact_phrase strategy.
func ExactPhrase(service, location, normalizedSlug string) bool {
	return NewPhrase(domain.Combination{Service: service, Location: location}).ExactPhrase(NewSubject(normalizedSlug))
}

// TokenBased is the token_based strategy.
func TokenBased(service, location, normalizedSlug string) bool {
	return NewPhrase(domain.Combination{Service: service, Location: location}).TokenBased(NewSubject(normalizedSlug))
}

// RegexPattern is the regex_pattern strategy.
func RegexPattern(service, location, normalizedSlug string) bool {
	return NewPhrase(domain.Combination{Service: service, Location: location}).RegexPattern(NewSubject(normalizedSlug))
}

// FuzzySimilarity is the fuzzy_similarity strategy.
func FuzzySimilarity(service, location, normalizedSlug string, threshold float64) bool {
	return NewPhrase(domain.Combination{Service: service, Location: location}).FuzzySimilarity(NewSubject(normalizedSlug), threshold)
}

// Comprehensive runs the four strategies in order for one triple.
func Comprehensive(service, location, normalizedSlug string, threshold float64) domain.MatchResult {
	return NewPhrase(domain.Combination{Service: service, Location: location}).Evaluate(NewSubject(normalizedSlug), threshold)
}

// orderedPattern builds \b{service}\b.*\b{location}\b with Unicode word boundaries.
// Go's \b only knows ASCII word characters, so boundaries next to word runes are spelled out
// as start/end of text or a non-word rune. Between two word-rune edges at least one non-word
// rune must separate service and location, which is what \b.*\b requires there.
func orderedPattern(service, location string) string {
	var b strings.Builder

	if startsWithWord(service) {
		b.WriteString(`(?:^|` + nonWord + `)`)
	} else {
		b.WriteString(`\b`)
	}
	b.WriteString(regexp.QuoteMeta(service))

	if endsWithWord(service) && startsWithWord(location) {
		b.WriteString(nonWord + `(?:.*` + nonWord + `)?`)
	} else {
		b.WriteString(`\b.*\b`)
	}

	b.WriteString(regexp.QuoteMeta(location))
	if endsWithWord(location) {
		b.WriteString(`(?:` + nonWord + `|$)`)
	} else {
		b.WriteString(`\b`)
	}

	return b.String()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func startsWithWord(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && isWordRune(r)
}

func endsWithWord(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && isWordRune(r)
}
