package score

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/util"
)

// Content budgets, in runes
const (
	bodyLimit             = 1000
	bodyLimitWithComments = 800
	commentsLimit         = 1500
	commentLimit          = 300
)

const rubric = `You are an expert content curator helping a busy engineer decide what is worth reading.

Score every item on a 0-10 scale:

9-10 Groundbreaking: major releases of widely used technology, significant research results, industry-changing announcements.
7-8 High value: technical deep-dives, novel approaches to known problems, insightful analysis, valuable new tools or libraries.
5-6 Interesting: incremental improvements, useful tutorials, moderate community interest.
3-4 Low priority: minor updates, common knowledge, promotional content.
0-2 Noise: spam, off-topic, trivial updates.

Weigh technical depth and novelty, potential impact, quality of writing and presentation,
and relevance to the reader's focus. Judge community engagement by the quality of the
discussion (insight, diverse viewpoints, substantive debate) rather than raw counts.`

func systemPrompt(topic string) string {
	if topic == "" {
		return rubric
	}
	return rubric + "\n\nReader focus: " + topic
}

// entry is one item as presented to the model
type entry struct {
	key  string
	item *model.ContentItem
}

func buildPrompt(entries []entry) string {
	var sb strings.Builder

	sb.WriteString("Score each of the following items. Every item has a key; echo it back unchanged.\n\n")
	for _, e := range entries {
		writeItem(&sb, e)
		sb.WriteString("\n")
	}

	sb.WriteString(`Respond with valid JSON only, one record per key:
{
  "results": [
    {"key": "<item key>", "score": <0-10>, "reason": "<why this score; mention discussion quality if comments were given>", "summary": "<one sentence>", "tags": ["<3-5 topic tags>"]}
  ]
}`)

	return sb.String()
}

func writeItem(sb *strings.Builder, e entry) {
	item := e.item

	author := item.Author
	if author == "" {
		author = "Unknown"
	}

	fmt.Fprintf(sb, "### %s\n", e.key)
	fmt.Fprintf(sb, "Title: %s\n", item.Title)
	fmt.Fprintf(sb, "Source: %s\n", sourceLabel(item))
	fmt.Fprintf(sb, "Author: %s\n", author)
	fmt.Fprintf(sb, "URL: %s\n", item.URL)

	limit := bodyLimit
	if len(item.Comments) > 0 {
		limit = bodyLimitWithComments
	}
	if body := strings.TrimSpace(item.Body); body != "" {
		fmt.Fprintf(sb, "Content: %s\n", util.Truncate(body, limit))
	}

	if comments := formatComments(item.Comments); comments != "" {
		fmt.Fprintf(sb, "Community Comments:\n%s\n", comments)
	}

	if metrics := formatMetrics(engagement(item)); metrics != "" {
		fmt.Fprintf(sb, "Engagement: %s\n", metrics)
	}

	if item.DiscussionURL != "" && item.DiscussionURL != item.URL {
		fmt.Fprintf(sb, "Discussion: %s\n", item.DiscussionURL)
	}
}

func sourceLabel(item *model.ContentItem) string {
	sources := item.Sources()
	labels := make([]string, len(sources))
	for i, s := range sources {
		labels[i] = string(s)
	}
	return strings.Join(labels, ", ")
}

// engagement returns the item's metrics, or for merged items every
// contributing source's metrics prefixed with its source type
func engagement(item *model.ContentItem) map[string]float64 {
	if len(item.Provenance) == 0 {
		return item.Metrics
	}

	out := make(map[string]float64)
	for _, p := range item.Provenance {
		for name, v := range p.Metrics {
			out[string(p.SourceType)+"."+name] = v
		}
	}
	return out
}

// formatComments truncates every comment on its own and stops at the block budget
func formatComments(comments []string) string {
	var sb strings.Builder
	remaining := commentsLimit

	for _, c := range comments {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		line := "- " + util.Truncate(c, commentLimit)
		n := len([]rune(line))
		if n > remaining {
			break
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(line)
		remaining -= n + 1
	}

	return sb.String()
}

// formatMetrics renders metrics as "name: value" pairs sorted by name, with no
// assumptions about which source produced them
func formatMetrics(metrics map[string]float64) string {
	if len(metrics) == 0 {
		return ""
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + strconv.FormatFloat(metrics[name], 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}
