package model

import (
	"slices"
	"time"
)

// SourceType identifies the platform an item was fetched from
type SourceType string

const (
	SourceHackerNews SourceType = "hackernews" // Web forum aggregator
	SourceRSS        SourceType = "rss"        // RSS/Atom feed
	SourceReddit     SourceType = "reddit"     // Social forum
	SourceTelegram   SourceType = "telegram"   // Messaging channel
	SourceGitHub     SourceType = "github"     // Code hosting platform
)

// AllSourceTypes lists every supported source type in the default merge priority
func AllSourceTypes() []SourceType {
	return []SourceType{SourceRSS, SourceGitHub, SourceHackerNews, SourceReddit, SourceTelegram}
}

// Valid reports whether t is a known source type
func (t SourceType) Valid() bool {
	return slices.Contains(AllSourceTypes(), t)
}

// ContentItem is a single piece of content from any source.
// Annotation fields stay at their zero value until the owning stage runs.
type ContentItem struct {
	ID            string             `json:"id"`                       // Native ID: {source}:{subtype}:{native_id}
	SourceType    SourceType         `json:"source_type"`              // Originating platform
	SourceID      string             `json:"source_id"`                // Feed name, subreddit, channel, repo, ...
	Title         string             `json:"title"`                    // Item title
	URL           string             `json:"url"`                      // Original URL as fetched
	Author        string             `json:"author,omitempty"`         // Author or account name
	Body          string             `json:"body,omitempty"`           // Plain-text body
	Metrics       map[string]float64 `json:"metrics,omitempty"`        // Engagement metrics, schema varies by source
	Comments      []string           `json:"comments,omitempty"`       // Top community comments, each truncated
	DiscussionURL string             `json:"discussion_url,omitempty"` // Comment thread when different from URL
	PublishedAt   time.Time          `json:"published_at"`             // Publication time
	FetchedAt     time.Time          `json:"fetched_at"`               // When the scraper saw it

	Provenance []ProvenanceRecord `json:"provenance,omitempty"` // Set only on merged items, append-only

	AIScore         *float64         `json:"ai_score,omitempty"`
	AIReason        string           `json:"ai_reason,omitempty"`
	AISummary       string           `json:"ai_summary,omitempty"`
	AITags          []string         `json:"ai_tags,omitempty"`
	DetailedSummary *DetailedSummary `json:"detailed_summary,omitempty"`
}

// ProvenanceRecord records one contributing source of a merged item
type ProvenanceRecord struct {
	SourceType  SourceType         `json:"source_type"`
	SourceID    string             `json:"source_id"`
	OriginalURL string             `json:"original_url,omitempty"` // Only when different from the canonical URL
	Metrics     map[string]float64 `json:"metrics,omitempty"`      // Not averaged across platforms
}

// DetailedSummary is the structured enrichment record
type DetailedSummary struct {
	WhatsNew            string            `json:"whats_new"`
	WhyItMatters        string            `json:"why_it_matters"`
	KeyDetails          string            `json:"key_details"`
	Background          string            `json:"background,omitempty"`
	CommunityDiscussion string            `json:"community_discussion,omitempty"`
	Concepts            []string          `json:"concepts,omitempty"`
	Grounding           []GroundingSource `json:"grounding,omitempty"`
}

// GroundingSource is a search hit used to ground an enrichment
type GroundingSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Scored reports whether the scoring stage has already annotated the item
func (c *ContentItem) Scored() bool {
	return c.AIScore != nil
}

// Score returns the AI score, or 0 when the item has not been scored
func (c *ContentItem) Score() float64 {
	if c.AIScore == nil {
		return 0
	}
	return *c.AIScore
}

// SetScore stores the AI score clamped to [0, 10]
func (c *ContentItem) SetScore(score float64) {
	switch {
	case score < 0:
		score = 0
	case score > 10:
		score = 10
	}
	c.AIScore = &score
}

// SetTags stores tags with set semantics, keeping first-seen order
func (c *ContentItem) SetTags(tags []string) {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	c.AITags = out
}

// Sources returns the source types that contributed to the item
func (c *ContentItem) Sources() []SourceType {
	if len(c.Provenance) == 0 {
		return []SourceType{c.SourceType}
	}
	var out []SourceType
	for _, p := range c.Provenance {
		if !slices.Contains(out, p.SourceType) {
			out = append(out, p.SourceType)
		}
	}
	return out
}
