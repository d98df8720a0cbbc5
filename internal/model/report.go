package model

import "time"

// Report is the assembled briefing for one run
type Report struct {
	ID          string    `json:"id"`           // Run ID (UUID)
	Date        string    `json:"date"`         // YYYY-MM-DD
	GeneratedAt time.Time `json:"generated_at"` // When assembly finished
	Since       time.Time `json:"since"`        // Start of the lookback window

	TotalFetched int     `json:"total_fetched"` // Raw items across all sources
	TotalNew     int     `json:"total_new"`     // After removing previously reported items
	TotalUnique  int     `json:"total_unique"`  // After cross-source merging
	Threshold    float64 `json:"threshold"`     // Score threshold applied

	Items           []RankedItem              `json:"items"`
	Recommendations []RecommendationCandidate `json:"recommendations,omitempty"`
	SourceFailures  []SourceFailure           `json:"source_failures,omitempty"`
}

// RankedItem is an item that passed the threshold, in report order
type RankedItem struct {
	Item      *ContentItem `json:"item"`
	Highlight bool         `json:"highlight"` // Score >= 9.0
}

// SourceFailure records a scraper that failed during the run
type SourceFailure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Highlights returns the highlighted subset in report order
func (r *Report) Highlights() []RankedItem {
	var out []RankedItem
	for _, it := range r.Items {
		if it.Highlight {
			out = append(out, it)
		}
	}
	return out
}
