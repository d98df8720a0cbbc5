package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/llm/llmtest"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/sources"
)

type staticSource struct {
	name  string
	items []*model.ContentItem
	err   error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	return s.items, s.err
}

type memorySeen struct {
	mu      sync.Mutex
	ids     map[string]bool
	marked  [][]string
	seenErr error
}

func newMemorySeen(ids ...string) *memorySeen {
	m := &memorySeen{ids: make(map[string]bool)}
	for _, id := range ids {
		m.ids[id] = true
	}
	return m
}

func (m *memorySeen) Seen(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seenErr != nil {
		return false, m.seenErr
	}
	return m.ids[id], nil
}

func (m *memorySeen) MarkSeen(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marked = append(m.marked, slices.Clone(ids))
	for _, id := range ids {
		m.ids[id] = true
	}
	return nil
}

type memoryReports struct {
	mu       sync.Mutex
	payloads map[string][]byte
	err      error
}

func (m *memoryReports) SaveReport(ctx context.Context, id string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.payloads == nil {
		m.payloads = make(map[string][]byte)
	}
	m.payloads[id] = payload
	return nil
}

var blockPattern = regexp.MustCompile(`(?m)^### (item-\d+)\nTitle: (.*)$`)

// modelStub scores by title and answers the enrichment passes
func modelStub(scores map[string]float64) *llmtest.Stub {
	return &llmtest.Stub{Available: true, Handler: func(req llm.CompletionRequest) (string, error) {
		switch {
		case strings.HasPrefix(req.System, "You are an expert content curator"):
			var records []map[string]any
			for _, m := range blockPattern.FindAllStringSubmatch(req.Prompt, -1) {
				records = append(records, map[string]any{
					"key": m[1], "score": scores[m[2]], "reason": "r", "summary": "About " + m[2], "tags": []string{"web"},
				})
			}
			data, _ := json.Marshal(map[string]any{"results": records})
			return string(data), nil
		case strings.HasPrefix(req.System, "You find the technical concepts"):
			return `{"queries": []}`, nil
		case strings.HasPrefix(req.System, "You are a technical writer"):
			return `{"whats_new": "New", "why_it_matters": "Matters", "key_details": "Details", "background": "", "community_discussion": ""}`, nil
		default:
			return `{"recommendations": []}`, nil
		}
	}}
}

func testConfig(t *testing.T) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Search.Enabled = false
	cfg.Scoring.BaseDelay = time.Millisecond
	cfg.Scoring.MaxDelay = 2 * time.Millisecond
	cfg.Storage.OutputDir = t.TempDir()
	return cfg
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 18, 7, 30, 0, 0, time.UTC)
}

func newTestPipeline(t *testing.T, cfg *model.Config, srcs []sources.Source, stub llm.Provider, seen *memorySeen, reports *memoryReports) *Pipeline {
	t.Helper()
	p, err := New(cfg, Deps{
		Sources:  srcs,
		Provider: stub,
		Seen:     seen,
		Reports:  reports,
		Now:      fixedClock,
		NewID:    func() string { return "run-1" },
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func item(source model.SourceType, sourceID, nativeID, title, url string) *model.ContentItem {
	return &model.ContentItem{
		ID:          fmt.Sprintf("%s:%s:%s", source, sourceID, nativeID),
		SourceType:  source,
		SourceID:    sourceID,
		Title:       title,
		URL:         url,
		PublishedAt: fixedClock().Add(-time.Hour),
	}
}

func TestRun_EndToEnd(t *testing.T) {
	hn := item(model.SourceHackerNews, "top", "1", "Post", "https://example.com/post?utm=1")
	hn.Metrics = map[string]float64{"score": 420}
	hn.Comments = []string{"Nice"}
	rss := item(model.SourceRSS, "blog", "a", "Post", "https://example.com/post")
	other := item(model.SourceRSS, "blog", "b", "Other", "https://example.com/other")
	noise := item(model.SourceRSS, "blog", "c", "Noise", "https://example.com/noise")

	srcs := []sources.Source{
		&staticSource{name: "hackernews", items: []*model.ContentItem{hn}},
		&staticSource{name: "rss:blog", items: []*model.ContentItem{rss, other, noise}},
		&staticSource{name: "rss:broken", err: errors.New("HTTP 500")},
	}

	stub := modelStub(map[string]float64{"Post": 9.2, "Other": 8.5, "Noise": 3})
	seen := newMemorySeen()
	reports := &memoryReports{}
	cfg := testConfig(t)

	result, err := newTestPipeline(t, cfg, srcs, stub, seen, reports).Run(context.Background(), fixedClock().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	report := result.Report
	if report.TotalFetched != 4 || report.TotalNew != 4 || report.TotalUnique != 3 {
		t.Errorf("unexpected totals: fetched %d, new %d, unique %d", report.TotalFetched, report.TotalNew, report.TotalUnique)
	}

	if len(report.Items) != 2 {
		t.Fatalf("expected 2 selected items, got %d", len(report.Items))
	}

	merged := report.Items[0]
	if merged.Item.Title != "Post" || !merged.Highlight {
		t.Errorf("expected merged 9.2 item first and highlighted, got %+v", merged)
	}
	if len(merged.Item.Provenance) != 2 {
		t.Errorf("expected two provenance records, got %+v", merged.Item.Provenance)
	}
	if merged.Item.SourceType != model.SourceRSS {
		t.Errorf("expected rss to win primary selection, got %s", merged.Item.SourceType)
	}
	if len(merged.Item.Comments) != 1 {
		t.Error("expected comments adopted from the hackernews member")
	}

	second := report.Items[1]
	if second.Item.Title != "Other" || second.Highlight {
		t.Errorf("expected 8.5 item selected without highlight, got %+v", second)
	}

	if merged.Item.DetailedSummary == nil || merged.Item.DetailedSummary.WhatsNew != "New" {
		t.Error("expected selected items to be enriched")
	}
	if result.Enrichment.Enriched != 2 {
		t.Errorf("unexpected enrichment stats %+v", result.Enrichment)
	}

	if len(report.SourceFailures) != 1 || report.SourceFailures[0].Source != "rss:broken" {
		t.Errorf("expected the failing source recorded, got %+v", report.SourceFailures)
	}

	// Persisted as JSON and Markdown
	payload, ok := reports.payloads["run-1"]
	if !ok {
		t.Fatal("expected report saved under its run ID")
	}
	var decoded model.Report
	if err := json.Unmarshal(payload, &decoded); err != nil || len(decoded.Items) != 2 {
		t.Errorf("expected decodable report payload, got %v", err)
	}

	if !strings.HasSuffix(result.OutputPath, "horizon-2026-10-18.md") {
		t.Errorf("unexpected output path %s", result.OutputPath)
	}
	written, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("expected Markdown file: %v", err)
	}
	for _, want := range []string{"## Highlights", "[Post](https://example.com/post)", "| rss | 2 |", "| hackernews | 1 |", "rss:broken"} {
		if !strings.Contains(string(written), want) {
			t.Errorf("expected Markdown to contain %q", want)
		}
	}

	// Reported items are marked by canonical key, once
	if len(seen.marked) != 1 {
		t.Fatalf("expected one MarkSeen call, got %d", len(seen.marked))
	}
	got := slices.Sorted(slices.Values(seen.marked[0]))
	want := []string{"https://example.com/other", "https://example.com/post"}
	if !slices.Equal(got, want) {
		t.Errorf("expected %v marked seen, got %v", want, got)
	}
}

func TestRun_SkipsSeenItems(t *testing.T) {
	a := item(model.SourceRSS, "blog", "a", "Already reported", "https://example.com/a")
	b := item(model.SourceRSS, "blog", "b", "Fresh", "https://example.com/b")

	stub := modelStub(map[string]float64{"Already reported": 10, "Fresh": 8})
	seen := newMemorySeen("https://example.com/a")
	srcs := []sources.Source{&staticSource{name: "rss:blog", items: []*model.ContentItem{a, b}}}

	result, err := newTestPipeline(t, testConfig(t), srcs, stub, seen, &memoryReports{}).Run(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if result.Report.TotalNew != 1 || len(result.Report.Items) != 1 || result.Report.Items[0].Item.Title != "Fresh" {
		t.Errorf("expected only the fresh item, got %+v", result.Report.Items)
	}
	if a.Scored() {
		t.Error("seen item must not be scored")
	}
}

func TestRun_ReportedURLStaysSeenAcrossSources(t *testing.T) {
	seen := newMemorySeen()
	stub := modelStub(map[string]float64{"Post": 9.2})

	hn := item(model.SourceHackerNews, "top", "1", "Post", "https://example.com/post?utm=1")
	first, err := newTestPipeline(t, testConfig(t), []sources.Source{&staticSource{name: "hackernews", items: []*model.ContentItem{hn}}}, stub, seen, &memoryReports{}).
		Run(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(first.Report.Items) != 1 {
		t.Fatalf("expected the story in the first briefing, got %d items", len(first.Report.Items))
	}

	// Next day the same story arrives through a feed under a different native ID
	rss := item(model.SourceRSS, "blog", "a", "Post", "https://example.com/post/")
	second, err := newTestPipeline(t, testConfig(t), []sources.Source{&staticSource{name: "rss:blog", items: []*model.ContentItem{rss}}}, stub, seen, &memoryReports{}).
		Run(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if second.Report.TotalNew != 0 || len(second.Report.Items) != 0 {
		t.Errorf("expected the story to stay seen, got new %d items %d", second.Report.TotalNew, len(second.Report.Items))
	}
	if rss.Scored() {
		t.Error("already reported story must not be scored again")
	}
}

func TestRun_RecommendsFromSelectedItemsOnly(t *testing.T) {
	var recommendCalls int
	scores := map[string]float64{"A": 8.1, "B": 8.2, "C": 8.3, "D": 9.5}
	stub := modelStub(scores)
	scoring := stub.Handler
	stub.Handler = func(req llm.CompletionRequest) (string, error) {
		if strings.HasPrefix(req.System, "You help a reader grow") {
			recommendCalls++
		}
		return scoring(req)
	}

	var items []*model.ContentItem
	for _, title := range []string{"A", "B", "C", "D"} {
		it := item(model.SourceRSS, "blog", title, title, "https://example.com/"+strings.ToLower(title))
		it.Author = "alice"
		items = append(items, it)
	}

	cfg := testConfig(t)
	cfg.Filtering.ScoreThreshold = 9.0
	cfg.Enrichment.Enabled = false

	result, err := newTestPipeline(t, cfg, []sources.Source{&staticSource{name: "rss:blog", items: items}}, stub, newMemorySeen(), &memoryReports{}).
		Run(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Report.Items) != 1 {
		t.Fatalf("expected only the 9.5 item selected, got %d", len(result.Report.Items))
	}
	if recommendCalls != 0 {
		t.Errorf("items below the threshold must not count towards recommendation evidence, model called %d times", recommendCalls)
	}
}

func TestRun_EmptyReportExplainsWhy(t *testing.T) {
	low := item(model.SourceRSS, "blog", "a", "Meh", "https://example.com/meh")
	stub := modelStub(map[string]float64{"Meh": 4})
	seen := newMemorySeen()
	reports := &memoryReports{}
	srcs := []sources.Source{&staticSource{name: "rss:blog", items: []*model.ContentItem{low}}}

	result, err := newTestPipeline(t, testConfig(t), srcs, stub, seen, reports).Run(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(result.Report.Items) != 0 {
		t.Fatalf("expected no items, got %d", len(result.Report.Items))
	}
	if !strings.Contains(result.Markdown, "None of the 1 unique items reached the score threshold of 7.0") {
		t.Errorf("expected explanation, got:\n%s", result.Markdown)
	}
	if _, ok := reports.payloads["run-1"]; !ok {
		t.Error("expected empty report to be saved")
	}
	if len(seen.marked) != 1 || len(seen.marked[0]) != 0 {
		t.Errorf("expected nothing marked seen, got %v", seen.marked)
	}
}

func TestRun_SeenSetFailureIsFatal(t *testing.T) {
	seen := newMemorySeen()
	seen.seenErr = errors.New("database is locked")
	reports := &memoryReports{}
	stub := modelStub(nil)
	srcs := []sources.Source{&staticSource{name: "rss:blog", items: []*model.ContentItem{item(model.SourceRSS, "blog", "a", "A", "https://example.com/a")}}}

	_, err := newTestPipeline(t, testConfig(t), srcs, stub, seen, reports).Run(context.Background(), time.Time{})
	if err == nil || !strings.Contains(err.Error(), "check seen-set") {
		t.Errorf("expected seen-set error, got %v", err)
	}
	if stub.Calls() != 0 || len(reports.payloads) != 0 {
		t.Error("expected no scoring and no saved report")
	}
}

func TestRun_SaveFailureLeavesSeenSetUntouched(t *testing.T) {
	seen := newMemorySeen()
	reports := &memoryReports{err: errors.New("disk full")}
	stub := modelStub(map[string]float64{"A": 9})
	srcs := []sources.Source{&staticSource{name: "rss:blog", items: []*model.ContentItem{item(model.SourceRSS, "blog", "a", "A", "https://example.com/a")}}}

	_, err := newTestPipeline(t, testConfig(t), srcs, stub, seen, reports).Run(context.Background(), time.Time{})
	if err == nil {
		t.Fatal("expected save error")
	}
	if len(seen.marked) != 0 {
		t.Error("seen-set must not be updated when the report was not saved")
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Filtering.ScoreThreshold = 11

	_, err := New(cfg, Deps{Provider: llmtest.NewStub(), Seen: newMemorySeen(), Reports: &memoryReports{}})
	if err == nil {
		t.Error("expected configuration error")
	}

	cfg = model.DefaultConfig()
	cfg.Sources.HackerNews.Enabled = false
	_, err = New(cfg, Deps{Provider: llmtest.NewStub(), Seen: newMemorySeen(), Reports: &memoryReports{}})
	if !errors.Is(err, model.ErrNoSources) {
		t.Errorf("expected ErrNoSources, got %v", err)
	}
}
