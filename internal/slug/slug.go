// Package slug turns URLs into comparable token strings.
package slug

import (
	"strings"
	"unicode"
)

// Slug is a URL and its normalized trailing path segment.
type Slug struct {
	RawURL     string `json:"url"`
	Normalized string `json:"slug"`
}

// New normalizes rawURL.
func New(rawURL string) Slug {
	return Slug{RawURL: rawURL, Normalized: Normalize(rawURL)}
}

// NewAll normalizes every URL, preserving order.
func NewAll(rawURLs []string) []Slug {
	out := make([]Slug, len(rawURLs))
	for i, u := range rawURLs {
		out[i] = New(u)
	}
	return out
}

// Normalize returns the last path segment of rawURL, lowercased, with '_' and '-' turned into
// spaces and every other rune that is not a letter, number or whitespace removed.
//
//	Normalize("https://x.com/paving-in-manchester/") == "paving in manchester"
func Normalize(rawURL string) string {
	return clean(lastSegment(rawURL))
}

func lastSegment(rawURL string) string {
	u := strings.TrimSuffix(rawURL, "/")

	parts := strings.Split(u, "/")
	if len(parts) == 1 {
		return u
	}

	last := parts[len(parts)-1]
	if last == "" {
		return parts[len(parts)-2]
	}
	return last
}

func clean(segment string) string {
	var b strings.Builder
	b.Grow(len(segment))

	for _, r := range segment {
		switch {
		case r == '_' || r == '-':
			b.WriteRune(' ')
		case unicode.IsLetter(r), unicode.IsNumber(r), unicode.IsSpace(r):
			b.WriteRune(r)
		}
	}

	return strings.TrimSpace(strings.ToLower(b.String()))
}
