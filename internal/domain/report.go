package domain

import "time"

// GapReport is the result of one detection run. Every combination appears in exactly one of
// Matches or Gaps.
type GapReport struct {
	// Matches maps Combination.DisplayText to the first matching URL.
	Matches map[string]MatchRecord `json:"matches"`
	// Gaps lists display texts of unmatched combinations in combination order.
	Gaps []string `json:"research_gaps"`

	TotalCombinations  int `json:"total_combinations"`
	TotalURLsProcessed int `json:"total_urls_processed"`

	gapCombinations []Combination
}

// NewGapReport creates an empty report.
func NewGapReport(totalCombinations, totalURLs int) *GapReport {
	return &GapReport{
		Matches:            make(map[string]MatchRecord),
		Gaps:               make([]string, 0),
		TotalCombinations:  totalCombinations,
		TotalURLsProcessed: totalURLs,
	}
}

// RecordMatch stores the winning URL for c.
func (r *GapReport) RecordMatch(c Combination, rec MatchRecord) {
	r.Matches[c.DisplayText()] = rec
}

// RecordGap appends c to the gaps.
func (r *GapReport) RecordGap(c Combination) {
	r.Gaps = append(r.Gaps, c.DisplayText())
	r.gapCombinations = append(r.gapCombinations, c)
}

// GapCombinations returns the unmatched combinations in order.
func (r *GapReport) GapCombinations() []Combination {
	return r.gapCombinations
}

// ResearchGap is a persisted gap.
type ResearchGap struct {
	ID          string    `db:"id"          json:"id"`
	Service     string    `db:"service"     json:"service"`
	Location    string    `db:"location"    json:"location"`
	Combination string    `db:"combination" json:"combination"`
	FoundAt     time.Time `db:"found_at"    json:"found_at"`
}
