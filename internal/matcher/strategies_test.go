package matcher_test

import (
	"math"
	"testing"

	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/matcher"
	"github.com/jonesrussell/north-cloud/gapfinder/internal/slug"
)

func TestExactPhrase(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		location string
		slug     string
		want     bool
	}{
		{"literal phrase", "paving", "manchester", "paving in manchester", true},
		{"phrase inside longer slug", "paving", "leeds", "best paving in leeds 2024", true},
		{"case folded", "Paving", "LEEDS", "paving in leeds", true},
		{"missing in", "paving", "leeds", "paving leeds", false},
		{"wrong order", "paving", "leeds", "leeds in paving", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.ExactPhrase(tt.service, tt.location, tt.slug); got != tt.want {
				t.Errorf("ExactPhrase(%q, %q, %q) = %v, want %v", tt.service, tt.location, tt.slug, got, tt.want)
			}
		})
	}
}

func TestTokenBased(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		location string
		slug     string
		want     bool
	}{
		{"both tokens", "teaching", "manchester", "teaching manchester services", true},
		{"any order", "teaching", "manchester", "manchester teaching", true},
		{"substring only", "spa", "bath", slug.Normalize("https://x.com/spacious-bathroom-remodel"), false},
		{"location missing", "paving", "leeds", "paving york", false},
		{"multi word service is never one token", "block paving", "leeds", "block paving leeds", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.TokenBased(tt.service, tt.location, tt.slug); got != tt.want {
				t.Errorf("TokenBased(%q, %q, %q) = %v, want %v", tt.service, tt.location, tt.slug, got, tt.want)
			}
		})
	}
}

func TestRegexPattern(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		location string
		slug     string
		want     bool
	}{
		{"words between", "block paving", "leeds", "block paving experts in leeds", true},
		{"adjacent words", "paving", "leeds", "paving leeds", true},
		{"order sensitive", "paving", "leeds", "leeds block paving", false},
		{"no boundary after service", "spa", "bath", "spacious bathroom remodel", false},
		{"no boundary before location", "paving", "leeds", "paving westleeds", false},
		{"glued words", "paving", "leeds", "pavingleeds", false},
		{"unicode boundaries", "café", "zürich", "best café near zürich", true},
		{"regex metacharacters quoted", "c++", "york", "c tutors york", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matcher.RegexPattern(tt.service, tt.location, tt.slug); got != tt.want {
				t.Errorf("RegexPattern(%q, %q, %q) = %v, want %v", tt.service, tt.location, tt.slug, got, tt.want)
			}
		})
	}
}

func TestFuzzySimilarity(t *testing.T) {
	tests := []struct {
		name      string
		service   string
		location  string
		slug      string
		threshold float64
		want      bool
	}{
		{"typo in location", "paving", "leeds", "paving in leed", 0.8, true},
		{"glued words", "paving", "leeds", "pavingleeds", 0.8, true},
		{"glued words under stricter threshold", "paving", "leeds", "pavingleeds", 0.9, false},
		{"service gate", "paving", "leeds", "pavng in leeds", 0.5, false},
		{"dissimilar", "spa", "bath", "spacious bathroom remodel", 0.8, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.FuzzySimilarity(tt.service, tt.location, tt.slug, tt.threshold)
			if got != tt.want {
				t.Errorf("FuzzySimilarity(%q, %q, %q, %v) = %v, want %v",
					tt.service, tt.location, tt.slug, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"paving in leeds", "paving in leeds", 1},
		{"paving in leeds", "pavingleeds", 22.0 / 26.0},
	}

	for _, tt := range tests {
		if got := matcher.Similarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestComprehensive_PriorityOrder(t *testing.T) {
	tests := []struct {
		name     string
		service  string
		location string
		url      string
		want     domain.MatchMethod
	}{
		{"exact beats fuzzy", "paving", "leeds", "https://x.com/paving-in-leeds/", domain.MethodExactPhrase},
		{"token", "teaching", "manchester", "https://x.com/teaching_manchester_services/", domain.MethodTokenBased},
		{"regex", "block paving", "leeds", "https://x.com/block-paving-experts-in-leeds", domain.MethodRegexPattern},
		{"fuzzy", "paving", "leeds", "https://x.com/pavingleeds", domain.MethodFuzzySimilarity},
		{"token boundary precision", "spa", "bath", "https://x.com/spacious-bathroom-remodel", domain.MethodNoMatch},
		{"no match", "paving", "leeds", "https://x.com/driveways/", domain.MethodNoMatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matcher.Comprehensive(tt.service, tt.location, slug.Normalize(tt.url), matcher.DefaultFuzzyThreshold)
			if got.Method != tt.want {
				t.Errorf("Comprehensive() method = %q, want %q", got.Method, tt.want)
			}
			if got.IsMatch != (tt.want != domain.MethodNoMatch) {
				t.Errorf("Comprehensive() IsMatch = %v for method %q", got.IsMatch, got.Method)
			}
		})
	}
}

func TestComprehensive_ExactWinsWhenFuzzyAlsoMatches(t *testing.T) {
	s := slug.Normalize("https://x.com/paving-in-leeds")
	if !matcher.FuzzySimilarity("paving", "leeds", s, matcher.DefaultFuzzyThreshold) {
		t.Fatal("precondition: fuzzy_similarity should match this slug")
	}

	if got := matcher.Comprehensive("paving", "leeds", s, matcher.DefaultFuzzyThreshold); got.Method != domain.MethodExactPhrase {
		t.Errorf("method = %q, want exact_phrase", got.Method)
	}
}
