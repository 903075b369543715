package oracle

import (
	"fmt"
	"strings"
)

// Verdict is the parsed oracle answer.
type Verdict string

const (
	VerdictYes       Verdict = "yes"
	VerdictNo        Verdict = "no"
	VerdictAmbiguous Verdict = "ambiguous"
)

const promptTemplate = "You are a strict URL-slug matcher. " +
	"Here is the normalized slug (lowercase, underscores/hyphens → spaces): %s\n" +
	"Question: Does this slug contain the exact phrase %q? " +
	`Answer ONLY "yes" or "no" (no extra text).`

// BuildPrompt returns the yes/no question sent to the generator.
func BuildPrompt(normalizedSlug, combinationPhrase string) string {
	return fmt.Sprintf(promptTemplate, normalizedSlug, combinationPhrase)
}

// ParseVerdict reads the last non-empty line of text. Only "yes" (after trimming and
// lowercasing) is a match; "no" is a clear negative and anything else is ambiguous.
func ParseVerdict(text string) (bool, Verdict) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			last = l
			break
		}
	}

	switch strings.ToLower(last) {
	case "yes":
		return true, VerdictYes
	case "no":
		return false, VerdictNo
	default:
		return false, VerdictAmbiguous
	}
}
