package slug

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ParseTags splits comma-separated tag text (as typed into a tag input) into trimmed,
// NFKC-normalized, non-empty values. Order is preserved; duplicates are kept.
func ParseTags(text string) []string {
	text = norm.NFKC.String(text)

	fields := strings.Split(text, ",")
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Join(strings.Fields(f), " ")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
