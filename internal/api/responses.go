package api

import (
	"github.com/jonesrussell/north-cloud/gapfinder/internal/domain"
)

// AnalyzeRequest represents a research gap analysis request.
type AnalyzeRequest struct {
	Services  []string `json:"services"`
	Locations []string `json:"locations"`
	// URLs overrides the configured url source when non-empty.
	URLs           []string `json:"urls"`
	Pipeline       string   `json:"pipeline"`
	FuzzyThreshold float64  `json:"fuzzy_threshold"`
	Limit          int      `json:"limit"`
}

// AnalyzeResponse represents the result of one analysis.
type AnalyzeResponse struct {
	Success            bool                          `json:"success"`
	TotalCombinations  int                           `json:"total_combinations"`
	TotalURLsProcessed int                           `json:"total_urls_processed"`
	MatchesFound       int                           `json:"matches_found"`
	ResearchGapsFound  int                           `json:"research_gaps_found"`
	Gaps               []string                      `json:"gaps"`
	Matches            map[string]domain.MatchRecord `json:"matches"`
}

// ResearchGapsListResponse represents the stored gaps.
type ResearchGapsListResponse struct {
	ResearchGaps []domain.ResearchGap `json:"research_gaps"`
	Total        int                  `json:"total"`
}

// MatchRequest represents a single (service, location, url) evaluation.
type MatchRequest struct {
	Service  string `binding:"required" json:"service"`
	Location string `binding:"required" json:"location"`
	URL      string `binding:"required" json:"url"`
	Pipeline string `json:"pipeline"`
}

// MatchResponse represents the outcome of a single evaluation.
type MatchResponse struct {
	Slug    string             `json:"slug"`
	Phrase  string             `json:"phrase"`
	IsMatch bool               `json:"is_match"`
	Method  domain.MatchMethod `json:"method"`
}

func toAnalyzeResponse(report *domain.GapReport) AnalyzeResponse {
	return AnalyzeResponse{
		Success:            true,
		TotalCombinations:  report.TotalCombinations,
		TotalURLsProcessed: report.TotalURLsProcessed,
		MatchesFound:       len(report.Matches),
		ResearchGapsFound:  len(report.Gaps),
		Gaps:               report.Gaps,
		Matches:            report.Matches,
	}
}
