package recommend

import (
	"fmt"
	"strings"

	"github.com/ppiankov/horizon/internal/model"
)

const systemPrompt = `You help a reader grow their list of information sources.
From the high-scoring items of today's briefing, spot authors, accounts, feeds, subreddits
or channels that repeatedly produce valuable content and are not followed yet.
Prefer specific, directly followable sources over generic ones. Do not propose sources
that are already configured. Give each candidate a confidence between 0 and 1.`

type count struct {
	name string
	n    int
}

func buildPrompt(items []*model.ContentItem, authors, sources []count, topic string, current []string) string {
	var sb strings.Builder

	if topic != "" {
		fmt.Fprintf(&sb, "Reader focus: %s\n\n", topic)
	}

	sb.WriteString("Currently configured sources:\n")
	if len(current) == 0 {
		sb.WriteString("- none\n")
	}
	for _, c := range current {
		fmt.Fprintf(&sb, "- %s\n", c)
	}

	sb.WriteString("\nMost frequent authors among high-scoring items:\n")
	for _, a := range authors {
		fmt.Fprintf(&sb, "- %s: %d\n", a.name, a.n)
	}

	sb.WriteString("\nHigh-scoring items per source type:\n")
	for _, s := range sources {
		fmt.Fprintf(&sb, "- %s: %d\n", s.name, s.n)
	}

	sb.WriteString("\nHigh-scoring items:\n")
	for i, item := range items {
		author := item.Author
		if author == "" {
			author = "unknown"
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, item.Title)
		fmt.Fprintf(&sb, "   score %.1f | %s | %s | %s\n", item.Score(), item.SourceType, author, item.URL)
		if len(item.AITags) > 0 {
			fmt.Fprintf(&sb, "   tags: %s\n", strings.Join(item.AITags, ", "))
		}
	}

	sb.WriteString(`
Respond with valid JSON only:
{
  "recommendations": [
    {"source_type": "<hackernews|rss|reddit|telegram|github>", "identifier": "<username, feed URL, subreddit or channel>", "reason": "<why>", "confidence": <0-1>, "sample_titles": ["<title>"]}
  ]
}`)

	return sb.String()
}
