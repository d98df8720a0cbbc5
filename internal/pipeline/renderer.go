package pipeline

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ppiankov/horizon/internal/model"
)

// Renderer turns a report into Markdown
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderMarkdown renders the full briefing. A report without items still
// renders, explaining why nothing was selected.
func (r *Renderer) RenderMarkdown(report *model.Report) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Horizon Briefing: %s\n\n", report.Date)
	fmt.Fprintf(&sb, "> %d fetched, %d new, %d unique after merging, %d selected at score %.1f or higher.\n\n",
		report.TotalFetched, report.TotalNew, report.TotalUnique, len(report.Items), report.Threshold)

	if len(report.Items) == 0 {
		sb.WriteString("## Nothing selected\n\n")
		sb.WriteString(emptyExplanation(report))
		sb.WriteString("\n\n")
	} else {
		writeHighlights(&sb, report)
		writeItems(&sb, report)
		writeBreakdown(&sb, report)
	}

	writeRecommendations(&sb, report)
	writeFailures(&sb, report)

	if r.includeFooter {
		fmt.Fprintf(&sb, "---\n\n*Generated by Horizon at %s (run %s).*\n", report.GeneratedAt.Format("2006-01-02 15:04 MST"), report.ID)
	}

	return sb.String()
}

func emptyExplanation(report *model.Report) string {
	switch {
	case report.TotalFetched == 0 && len(report.SourceFailures) > 0:
		return fmt.Sprintf("No items were fetched: %d source(s) failed. See the failures below.", len(report.SourceFailures))
	case report.TotalFetched == 0:
		return "No items were published by the configured sources in this time window."
	case report.TotalNew == 0:
		return fmt.Sprintf("All %d fetched items were already included in earlier briefings.", report.TotalFetched)
	default:
		return fmt.Sprintf("None of the %d unique items reached the score threshold of %.1f. Lower filtering.score_threshold to see more.",
			report.TotalUnique, report.Threshold)
	}
}

func writeHighlights(sb *strings.Builder, report *model.Report) {
	highlights := report.Highlights()
	if len(highlights) == 0 {
		return
	}

	sb.WriteString("## Highlights\n\n")
	for _, h := range highlights {
		fmt.Fprintf(sb, "- **[%s](%s)** (%.1f): %s\n", h.Item.Title, h.Item.URL, h.Item.Score(), h.Item.AISummary)
	}
	sb.WriteString("\n")
}

func writeItems(sb *strings.Builder, report *model.Report) {
	sb.WriteString("## Selected items\n\n")
	for i, ranked := range report.Items {
		item := ranked.Item

		marker := ""
		if ranked.Highlight {
			marker = " ⭐"
		}
		fmt.Fprintf(sb, "### %d. [%s](%s)%s\n\n", i+1, item.Title, item.URL, marker)

		meta := []string{fmt.Sprintf("**Score:** %.1f", item.Score()), "**Sources:** " + sourceList(item)}
		if item.Author != "" {
			meta = append(meta, "**Author:** "+item.Author)
		}
		if len(item.AITags) > 0 {
			meta = append(meta, "**Tags:** "+strings.Join(item.AITags, ", "))
		}
		sb.WriteString(strings.Join(meta, " | "))
		sb.WriteString("\n\n")

		if item.AISummary != "" {
			fmt.Fprintf(sb, "%s\n\n", item.AISummary)
		}

		if ds := item.DetailedSummary; ds != nil {
			writeField(sb, "What's new", ds.WhatsNew)
			writeField(sb, "Why it matters", ds.WhyItMatters)
			writeField(sb, "Key details", ds.KeyDetails)
			writeField(sb, "Background", ds.Background)
			writeField(sb, "Community discussion", ds.CommunityDiscussion)
			if len(ds.Grounding) > 0 {
				links := make([]string, len(ds.Grounding))
				for j, g := range ds.Grounding {
					links[j] = fmt.Sprintf("[%s](%s)", g.Title, g.URL)
				}
				fmt.Fprintf(sb, "*Further reading:* %s\n\n", strings.Join(links, ", "))
			}
		} else if item.AIReason != "" {
			writeField(sb, "Why selected", item.AIReason)
		}

		if item.DiscussionURL != "" && item.DiscussionURL != item.URL {
			fmt.Fprintf(sb, "[Discussion](%s)\n\n", item.DiscussionURL)
		}
	}
}

func writeField(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "**%s:** %s\n\n", label, value)
}

func sourceList(item *model.ContentItem) string {
	if len(item.Provenance) == 0 {
		return fmt.Sprintf("%s (%s)", item.SourceType, item.SourceID)
	}
	parts := make([]string, len(item.Provenance))
	for i, p := range item.Provenance {
		parts[i] = fmt.Sprintf("%s (%s)", p.SourceType, p.SourceID)
	}
	return strings.Join(parts, ", ")
}

// writeBreakdown counts selected items per contributing source type
func writeBreakdown(sb *strings.Builder, report *model.Report) {
	counts := make(map[model.SourceType]int)
	for _, ranked := range report.Items {
		for _, s := range ranked.Item.Sources() {
			counts[s]++
		}
	}

	types := make([]model.SourceType, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	slices.SortFunc(types, func(a, b model.SourceType) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	sb.WriteString("## By source\n\n| Source | Selected |\n|---|---|\n")
	for _, t := range types {
		fmt.Fprintf(sb, "| %s | %d |\n", t, counts[t])
	}
	sb.WriteString("\n")
}

func writeRecommendations(sb *strings.Builder, report *model.Report) {
	if len(report.Recommendations) == 0 {
		return
	}

	sb.WriteString("## Recommended sources\n\n")
	for _, rec := range report.Recommendations {
		fmt.Fprintf(sb, "- **%s** `%s` (confidence %.2f): %s\n", rec.SourceType, rec.Identifier, rec.Confidence, rec.Reason)
		for _, title := range rec.SampleTitles {
			fmt.Fprintf(sb, "  - %s\n", title)
		}
	}
	sb.WriteString("\n")
}

func writeFailures(sb *strings.Builder, report *model.Report) {
	if len(report.SourceFailures) == 0 {
		return
	}

	sb.WriteString("## Source failures\n\n")
	for _, f := range report.SourceFailures {
		fmt.Fprintf(sb, "- `%s`: %s\n", f.Source, f.Error)
	}
	sb.WriteString("\n")
}

// RenderSummary returns a short plain-text summary for the terminal
func (r *Renderer) RenderSummary(report *model.Report, outputPath string) string {
	var sb strings.Builder

	sb.WriteString("═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&sb, "  Horizon Briefing %s\n", report.Date)
	sb.WriteString("═══════════════════════════════════════════════════════════\n\n")
	fmt.Fprintf(&sb, "Fetched:     %d\n", report.TotalFetched)
	fmt.Fprintf(&sb, "New:         %d\n", report.TotalNew)
	fmt.Fprintf(&sb, "Unique:      %d\n", report.TotalUnique)
	fmt.Fprintf(&sb, "Selected:    %d (threshold %.1f)\n", len(report.Items), report.Threshold)
	fmt.Fprintf(&sb, "Highlights:  %d\n", len(report.Highlights()))
	if len(report.SourceFailures) > 0 {
		fmt.Fprintf(&sb, "Failures:    %d\n", len(report.SourceFailures))
	}
	if len(report.Recommendations) > 0 {
		fmt.Fprintf(&sb, "Recommended: %d\n", len(report.Recommendations))
	}

	if len(report.Items) > 0 {
		sb.WriteString("\nTop items:\n")
		for i, ranked := range report.Items {
			if i == 5 {
				break
			}
			fmt.Fprintf(&sb, "  %.1f  %s\n", ranked.Item.Score(), ranked.Item.Title)
		}
	}

	if outputPath != "" {
		fmt.Fprintf(&sb, "\n✓ Wrote Markdown: %s\n", outputPath)
	}
	return sb.String()
}
