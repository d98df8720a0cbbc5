package score

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/llm/llmtest"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/retry"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Retry = retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
	cfg.Timeout = time.Second
	return cfg
}

func newItems(n int) []*model.ContentItem {
	items := make([]*model.ContentItem, n)
	for i := range items {
		items[i] = &model.ContentItem{
			ID:         fmt.Sprintf("rss:blog:%d", i),
			SourceType: model.SourceRSS,
			SourceID:   "blog",
			Title:      fmt.Sprintf("Post %d", i),
			URL:        fmt.Sprintf("https://example.com/%d", i),
			Body:       "body text",
		}
	}
	return items
}

var keyPattern = regexp.MustCompile(`### (item-\d+)`)

// keysIn returns the item keys present in a scoring prompt
func keysIn(prompt string) []string {
	var keys []string
	for _, m := range keyPattern.FindAllStringSubmatch(prompt, -1) {
		keys = append(keys, m[1])
	}
	return keys
}

func reply(records ...map[string]any) string {
	data, _ := json.Marshal(map[string]any{"results": records})
	return string(data)
}

func rec(key string, score float64) map[string]any {
	return map[string]any{"key": key, "score": score, "reason": "solid", "summary": "summary of " + key, "tags": []string{"go", "go", "llm"}}
}

func TestScorer_RetryTerminationDefaultsItems(t *testing.T) {
	stub := &llmtest.Stub{Handler: func(req llm.CompletionRequest) (string, error) {
		return "", errors.New("503 service unavailable")
	}}

	items := newItems(3)
	stats, err := NewScorer(stub, testConfig(), nil).Score(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.Calls() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", stub.Calls())
	}
	if stats.Defaulted != 3 || stats.Scored != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	for _, item := range items {
		if !item.Scored() || item.Score() != 0 {
			t.Errorf("%s: expected default score 0, got %v", item.ID, item.AIScore)
		}
		if item.AIReason != "" || len(item.AITags) != 0 {
			t.Errorf("%s: expected empty reason and tags, got %q %v", item.ID, item.AIReason, item.AITags)
		}
		if item.AISummary != item.Title {
			t.Errorf("%s: expected title as summary, got %q", item.ID, item.AISummary)
		}
	}
}

// blockingProvider never answers; each call ends when its context does
type blockingProvider struct {
	calls atomic.Int32
}

func (p *blockingProvider) Name() string                         { return "blocking" }
func (p *blockingProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *blockingProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.calls.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestScorer_CallTimeoutIsRetried(t *testing.T) {
	provider := &blockingProvider{}
	cfg := testConfig()
	cfg.Timeout = 10 * time.Millisecond

	items := newItems(2)
	stats, err := NewScorer(provider, cfg, nil).Score(context.Background(), items)
	if err != nil {
		t.Fatalf("timed out calls must not fail the run: %v", err)
	}

	if got := provider.calls.Load(); got != int32(cfg.Retry.MaxAttempts) {
		t.Errorf("expected %d attempts, got %d", cfg.Retry.MaxAttempts, got)
	}
	if stats.Defaulted != 2 || stats.Scored != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	for _, item := range items {
		if !item.Scored() || item.Score() != 0 || item.AISummary != item.Title {
			t.Errorf("%s: expected default annotation, got score %v summary %q", item.ID, item.AIScore, item.AISummary)
		}
	}
}

func TestScorer_MapsByKeyNotPosition(t *testing.T) {
	stub := &llmtest.Stub{Handler: func(req llm.CompletionRequest) (string, error) {
		keys := keysIn(req.Prompt)
		// Reverse the order and give each item a distinct score
		var records []map[string]any
		for i := len(keys) - 1; i >= 0; i-- {
			records = append(records, rec(keys[i], float64(i+1)))
		}
		return reply(records...), nil
	}}

	items := newItems(4)
	if _, err := NewScorer(stub, testConfig(), nil).Score(context.Background(), items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, item := range items {
		if item.Score() != float64(i+1) {
			t.Errorf("item %d: expected score %d, got %v", i, i+1, item.Score())
		}
		if item.AISummary != fmt.Sprintf("summary of item-%d", i+1) {
			t.Errorf("item %d: unexpected summary %q", i, item.AISummary)
		}
		if len(item.AITags) != 2 {
			t.Errorf("item %d: expected deduplicated tags, got %v", i, item.AITags)
		}
	}
}

func TestScorer_RetriesOnlyMissingItems(t *testing.T) {
	stub := llmtest.NewStub(
		llmtest.Reply{Text: reply(rec("item-1", 7), map[string]any{"key": "item-2", "score": 5})},
		llmtest.Reply{Text: "```json\n" + reply(rec("item-2", 6)) + "\n```"},
	)

	items := newItems(2)
	stats, err := NewScorer(stub, testConfig(), nil).Score(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.Calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", stub.Calls())
	}

	second := keysIn(stub.Requests()[1].Prompt)
	if len(second) != 1 || second[0] != "item-2" {
		t.Errorf("expected retry to re-send only item-2, got %v", second)
	}

	if items[0].Score() != 7 || items[1].Score() != 6 {
		t.Errorf("unexpected scores %v, %v", items[0].Score(), items[1].Score())
	}
	if stats.Scored != 2 || stats.Defaulted != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestScorer_ClampsScores(t *testing.T) {
	stub := &llmtest.Stub{Handler: func(req llm.CompletionRequest) (string, error) {
		return reply(rec("item-1", 14), rec("item-2", -2), rec("item-3", 9.5)), nil
	}}

	items := newItems(3)
	if _, err := NewScorer(stub, testConfig(), nil).Score(context.Background(), items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, item := range items {
		if item.Score() < 0 || item.Score() > 10 {
			t.Errorf("%s: score %v out of bounds", item.ID, item.Score())
		}
	}
	if items[0].Score() != 10 || items[1].Score() != 0 || items[2].Score() != 9.5 {
		t.Errorf("unexpected scores: %v %v %v", items[0].Score(), items[1].Score(), items[2].Score())
	}
}

func TestScorer_BatchesAndSkipsScored(t *testing.T) {
	stub := &llmtest.Stub{Handler: func(req llm.CompletionRequest) (string, error) {
		var records []map[string]any
		for _, k := range keysIn(req.Prompt) {
			records = append(records, rec(k, 5))
		}
		return reply(records...), nil
	}}

	items := newItems(26)
	items[0].SetScore(9)
	items[0].AISummary = "kept"

	cfg := testConfig()
	cfg.BatchSize = 10
	stats, err := NewScorer(stub, cfg, nil).Score(context.Background(), items)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.Batches != 3 || stub.Calls() != 3 {
		t.Errorf("expected 3 batches and calls, got %d / %d", stats.Batches, stub.Calls())
	}
	if stats.Skipped != 1 || stats.Scored != 25 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if items[0].Score() != 9 || items[0].AISummary != "kept" {
		t.Error("already scored item must not be re-scored")
	}

	for _, req := range stub.Requests() {
		if req.Temperature != 0.3 {
			t.Errorf("expected temperature 0.3, got %v", req.Temperature)
		}
		if !strings.Contains(req.System, "0-10") {
			t.Error("expected rubric in system prompt")
		}
	}
}

func TestScorer_ProseResponseIsRetried(t *testing.T) {
	stub := llmtest.NewStub(
		llmtest.Reply{Text: "Sorry, I cannot help with that."},
		llmtest.Reply{Text: reply(rec("item-1", 8))},
	)

	items := newItems(1)
	if _, err := NewScorer(stub, testConfig(), nil).Score(context.Background(), items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.Calls() != 2 || items[0].Score() != 8 {
		t.Errorf("expected recovery on second attempt, got %d calls, score %v", stub.Calls(), items[0].Score())
	}
}

func TestScorer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stub := llmtest.NewStub()
	_, err := NewScorer(stub, testConfig(), nil).Score(ctx, newItems(2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestWriteItem_Budgets(t *testing.T) {
	long := strings.Repeat("x", 2000)
	item := &model.ContentItem{
		Title:      "T",
		SourceType: model.SourceHackerNews,
		URL:        "https://example.com",
		Body:       long,
		Comments:   []string{strings.Repeat("c", 500), "short comment"},
		Metrics:    map[string]float64{"score": 120, "descendants": 45, "upvote_ratio": 0.93},
	}

	var sb strings.Builder
	writeItem(&sb, entry{key: "item-1", item: item})
	out := sb.String()

	if strings.Contains(out, strings.Repeat("x", bodyLimitWithComments)) {
		t.Error("expected body truncated below the with-comments budget")
	}
	if strings.Contains(out, strings.Repeat("c", commentLimit)) {
		t.Error("expected each comment truncated independently")
	}
	if !strings.Contains(out, "- short comment") {
		t.Error("expected second comment present")
	}
	if !strings.Contains(out, "Engagement: descendants: 45, score: 120, upvote_ratio: 0.93") {
		t.Errorf("expected sorted generic metrics, got:\n%s", out)
	}
}

func TestFormatComments_BlockBudget(t *testing.T) {
	var comments []string
	for i := 0; i < 20; i++ {
		comments = append(comments, strings.Repeat("y", 200))
	}

	out := formatComments(comments)
	if n := len([]rune(out)); n > commentsLimit {
		t.Errorf("comments block is %d runes, budget %d", n, commentsLimit)
	}
	if out == "" {
		t.Error("expected some comments within budget")
	}
}

func TestEngagement_MergedItemKeepsSourcesApart(t *testing.T) {
	item := &model.ContentItem{
		SourceType: model.SourceRSS,
		Provenance: []model.ProvenanceRecord{
			{SourceType: model.SourceRSS},
			{SourceType: model.SourceHackerNews, Metrics: map[string]float64{"score": 300}},
			{SourceType: model.SourceReddit, Metrics: map[string]float64{"score": 50}},
		},
	}

	got := engagement(item)
	if got["hackernews.score"] != 300 || got["reddit.score"] != 50 {
		t.Errorf("expected per-source metrics, got %v", got)
	}
}
