package matcher

import (
	"github.com/cloudflare/ahocorasick"
)

// Index finds, in one pass per slug, which services occur in it as substrings.
// Build it once per run; Scan is not safe for concurrent use.
type Index struct {
	dictionary []string
	matcher    *ahocorasick.Matcher
}

// NewIndex builds an index over the folded services. Duplicates after folding are merged.
func NewIndex(services []string) *Index {
	seen := make(map[string]struct{}, len(services))
	dict := make([]string, 0, len(services))
	for _, s := range services {
		f := Fold(s)
		if f == "" {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		dict = append(dict, f)
	}

	ix := &Index{dictionary: dict}
	if len(dict) > 0 {
		ix.matcher = ahocorasick.NewStringMatcher(dict)
	}
	return ix
}

// ServiceSet is the set of folded services present in one slug.
type ServiceSet map[string]struct{}

// Has reports whether the phrase's service is in the set. An empty service is always present.
func (s ServiceSet) Has(p *Phrase) bool {
	if p.service == "" {
		return true
	}
	_, ok := s[p.service]
	return ok
}

// Scan returns the services occurring in subject.
func (ix *Index) Scan(subject Subject) ServiceSet {
	if ix.matcher == nil {
		return ServiceSet{}
	}
	hits := ix.matcher.Match([]byte(subject.text))
	set := make(ServiceSet, len(hits))
	for _, i := range hits {
		set[ix.dictionary[i]] = struct{}{}
	}
	return set
}
