package pipeline

import (
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/horizon/internal/model"
)

func scoredItem(title string, score float64) *model.ContentItem {
	item := &model.ContentItem{
		ID:         "rss:blog:" + title,
		SourceType: model.SourceRSS,
		SourceID:   "blog",
		Title:      title,
		URL:        "https://example.com/" + strings.ToLower(title),
		AISummary:  title + " summary",
		AIReason:   "Relevant",
	}
	item.SetScore(score)
	return item
}

func TestRenderMarkdown_Items(t *testing.T) {
	top := scoredItem("Top", 9.5)
	top.Author = "alice"
	top.SetTags([]string{"go", "compilers"})
	top.DiscussionURL = "https://news.ycombinator.com/item?id=1"
	top.DetailedSummary = &model.DetailedSummary{
		WhatsNew:     "A new release",
		WhyItMatters: "Faster builds",
		KeyDetails:   "Details",
		Grounding:    []model.GroundingSource{{Title: "Go spec", URL: "https://go.dev/ref/spec"}},
	}
	plain := scoredItem("Plain", 7.4)

	report := &model.Report{
		ID:          "run-1",
		Date:        "2026-10-18",
		GeneratedAt: time.Date(2026, 10, 18, 7, 0, 0, 0, time.UTC),
		Threshold:   7,
		Items:       []model.RankedItem{{Item: top, Highlight: true}, {Item: plain}},
		Recommendations: []model.RecommendationCandidate{{
			SourceType: "rss", Identifier: "https://blog.example.org/feed", Reason: "Frequent", Confidence: 0.8,
			SampleTitles: []string{"One"},
		}},
		SourceFailures: []model.SourceFailure{{Source: "reddit:r/golang", Error: "HTTP 429"}},
	}

	out := NewRenderer(true).RenderMarkdown(report)

	for _, want := range []string{
		"# Horizon Briefing: 2026-10-18",
		"## Highlights",
		"- **[Top](https://example.com/top)** (9.5): Top summary",
		"### 1. [Top](https://example.com/top) ⭐",
		"**Score:** 9.5 | **Sources:** rss (blog) | **Author:** alice | **Tags:** go, compilers",
		"**What's new:** A new release",
		"*Further reading:* [Go spec](https://go.dev/ref/spec)",
		"[Discussion](https://news.ycombinator.com/item?id=1)",
		"### 2. [Plain](https://example.com/plain)\n",
		"**Why selected:** Relevant",
		"| rss | 2 |",
		"## Recommended sources",
		"  - One",
		"- `reddit:r/golang`: HTTP 429",
		"run run-1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}

	if strings.Contains(out, "**Background:**") {
		t.Error("empty fields should be omitted")
	}
	if strings.Index(out, "### 1.") > strings.Index(out, "### 2.") {
		t.Error("items rendered out of order")
	}
}

func TestRenderMarkdown_NoFooter(t *testing.T) {
	report := &model.Report{ID: "run-1", Date: "2026-10-18", Items: []model.RankedItem{}}
	out := NewRenderer(false).RenderMarkdown(report)
	if strings.Contains(out, "Generated by Horizon") {
		t.Error("footer should be omitted")
	}
}

func TestRenderMarkdown_EmptyExplanations(t *testing.T) {
	tests := []struct {
		name   string
		report model.Report
		want   string
	}{
		{
			name:   "all sources failed",
			report: model.Report{SourceFailures: []model.SourceFailure{{Source: "hackernews", Error: "timeout"}}},
			want:   "1 source(s) failed",
		},
		{
			name:   "quiet window",
			report: model.Report{},
			want:   "No items were published",
		},
		{
			name:   "everything seen",
			report: model.Report{TotalFetched: 12},
			want:   "All 12 fetched items were already included",
		},
		{
			name:   "below threshold",
			report: model.Report{TotalFetched: 5, TotalNew: 5, TotalUnique: 4, Threshold: 8},
			want:   "None of the 4 unique items reached the score threshold of 8.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewRenderer(false).RenderMarkdown(&tt.report)
			if !strings.Contains(out, "## Nothing selected") || !strings.Contains(out, tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, out)
			}
		})
	}
}

func TestRenderSummary(t *testing.T) {
	report := &model.Report{
		Date:         "2026-10-18",
		TotalFetched: 40,
		TotalNew:     30,
		TotalUnique:  25,
		Threshold:    7,
		Items:        []model.RankedItem{{Item: scoredItem("Top", 9.1), Highlight: true}},
	}

	out := NewRenderer(true).RenderSummary(report, "data/summaries/horizon-2026-10-18.md")
	for _, want := range []string{"Fetched:     40", "Selected:    1 (threshold 7.0)", "Highlights:  1", "9.1  Top", "✓ Wrote Markdown: data/summaries/horizon-2026-10-18.md"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Failures:") {
		t.Error("failures line should be omitted when there are none")
	}
}
