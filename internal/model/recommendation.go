package model

// RecommendationCandidate is a proposed new source. Produced and consumed within one run.
type RecommendationCandidate struct {
	SourceType   SourceType `json:"source_type"`
	Identifier   string     `json:"identifier"` // Username, feed URL, subreddit, channel, ...
	Reason       string     `json:"reason"`
	Confidence   float64    `json:"confidence"` // 0-1
	SampleTitles []string   `json:"sample_titles,omitempty"`
}
