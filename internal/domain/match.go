package domain

import "fmt"

// MatchMethod names the strategy that produced a match.
type MatchMethod string

// Match methods in pipeline priority order.
const (
	MethodExactPhrase     MatchMethod = "exact_phrase"
	MethodTokenBased      MatchMethod = "token_based"
	MethodRegexPattern    MatchMethod = "regex_pattern"
	MethodFuzzySimilarity MatchMethod = "fuzzy_similarity"
	MethodOracle          MatchMethod = "oracle"
	MethodNoMatch         MatchMethod = "no_match"
)

// MatchMethods lists every method, in priority order with no_match last.
func MatchMethods() []MatchMethod {
	return []MatchMethod{
		MethodExactPhrase,
		MethodTokenBased,
		MethodRegexPattern,
		MethodFuzzySimilarity,
		MethodOracle,
		MethodNoMatch,
	}
}

// ParseMatchMethod parses a method name.
func ParseMatchMethod(s string) (MatchMethod, error) {
	for _, m := range MatchMethods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown match method %q", s)
}

// MatchResult is the outcome of testing one combination against one slug.
type MatchResult struct {
	IsMatch bool        `json:"is_match"`
	Method  MatchMethod `json:"method"`
}

// NoMatch is the result when no strategy matched.
var NoMatch = MatchResult{Method: MethodNoMatch}

// Matched returns a positive result for method.
func Matched(method MatchMethod) MatchResult {
	return MatchResult{IsMatch: true, Method: method}
}

// MatchRecord is the winning URL for a combination.
type MatchRecord struct {
	URL    string      `json:"url"`
	Method MatchMethod `json:"method"`
}
