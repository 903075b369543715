package matcher

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Similarity returns the sequence-matching ratio 2*M/T of a and b in [0, 1], computed over
// runes. Two empty strings are identical (1.0).
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, "")).Ratio()
}
