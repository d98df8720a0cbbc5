// Package score assigns AI relevance scores to content items in batches.
package score

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/retry"
	"github.com/ppiankov/horizon/internal/worker"
)

// ErrIncompleteRecord is returned for an attempt that left some items of the
// batch without a complete record
var ErrIncompleteRecord = errors.New("incomplete score record")

// Config controls batching, sampling and retries
type Config struct {
	BatchSize   int
	Concurrency int
	Temperature float64
	MaxTokens   int
	Topic       string
	Timeout     time.Duration // per model call
	Retry       retry.Policy
}

// DefaultConfig returns batches of 10, temperature 0.3 and the default retry policy
func DefaultConfig() Config {
	return Config{
		BatchSize:   10,
		Concurrency: 4,
		Temperature: 0.3,
		Timeout:     60 * time.Second,
		Retry:       retry.DefaultPolicy(),
	}
}

// ConfigFromModel maps the application config onto the scorer config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		BatchSize:   cfg.Scoring.BatchSize,
		Concurrency: cfg.LLM.Concurrency,
		Temperature: cfg.Scoring.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Topic:       cfg.Scoring.Topic,
		Timeout:     time.Duration(cfg.LLM.Timeout) * time.Second,
		Retry: retry.Policy{
			MaxAttempts: cfg.Scoring.MaxAttempts,
			BaseDelay:   cfg.Scoring.BaseDelay,
			MaxDelay:    cfg.Scoring.MaxDelay,
		},
	}
}

// Stats summarizes one scoring pass
type Stats struct {
	Batches   int
	Scored    int // items that received a model score
	Defaulted int // items that fell back to score 0
	Skipped   int // items already scored before the pass
}

// Scorer orchestrates batched scoring calls
type Scorer struct {
	provider llm.Provider
	config   Config
	logger   *slog.Logger
}

// NewScorer creates a scorer
func NewScorer(provider llm.Provider, config Config, logger *slog.Logger) *Scorer {
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{provider: provider, config: config, logger: logger}
}

// Score annotates every unscored item in place. Failed items are never
// dropped; they receive a zero score. Only cancellation of ctx is returned.
func (s *Scorer) Score(ctx context.Context, items []*model.ContentItem) (Stats, error) {
	var stats Stats

	pending := make([]*model.ContentItem, 0, len(items))
	for _, item := range items {
		if item.Scored() {
			stats.Skipped++
			continue
		}
		pending = append(pending, item)
	}

	batches := worker.Chunk(pending, s.config.BatchSize)
	stats.Batches = len(batches)
	if len(batches) == 0 {
		return stats, nil
	}

	s.logger.Info("scoring items", "items", len(pending), "batches", len(batches), "batch_size", s.config.BatchSize)

	var scored, defaulted atomic.Int64
	worker.Map(ctx, batches, s.config.Concurrency, func(ctx context.Context, index int, batch []*model.ContentItem) (struct{}, error) {
		ok, failed := s.scoreBatch(ctx, index, batch)
		scored.Add(int64(ok))
		defaulted.Add(int64(failed))
		return struct{}{}, nil
	})

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("scoring interrupted: %w", err)
	}

	stats.Scored = int(scored.Load())
	stats.Defaulted = int(defaulted.Load())

	s.logger.Info("scoring complete", "scored", stats.Scored, "defaulted", stats.Defaulted, "skipped", stats.Skipped)
	return stats, nil
}

// scoreBatch runs one batch through the retry policy. Items whose records
// arrive are removed from the pending set, so a retry only re-sends what is
// still missing.
func (s *Scorer) scoreBatch(ctx context.Context, index int, batch []*model.ContentItem) (scored, defaulted int) {
	pending := make([]entry, len(batch))
	for i, item := range batch {
		pending[i] = entry{key: fmt.Sprintf("item-%d", i+1), item: item}
	}

	policy := s.config.Retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		s.logger.Warn("scoring batch failed, retrying",
			"batch", index, "attempt", attempt, "delay", delay, "pending", len(pending), "error", err)
	}

	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		remaining, err := s.attempt(ctx, pending)
		scored += len(pending) - len(remaining)
		pending = remaining
		return err
	})

	if err != nil {
		s.logger.Warn("scoring batch abandoned", "batch", index, "items", len(pending), "error", err)
	}

	for _, e := range pending {
		applyDefault(e.item)
	}
	return scored, len(pending)
}

// attempt makes one model call for the pending entries and returns those
// still lacking a valid record
func (s *Scorer) attempt(ctx context.Context, pending []entry) ([]entry, error) {
	callCtx := ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	resp, err := s.provider.Complete(callCtx, llm.CompletionRequest{
		System:      systemPrompt(s.config.Topic),
		Prompt:      buildPrompt(pending),
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	if err != nil {
		return pending, fmt.Errorf("score batch: %w", err)
	}

	records, err := parseResponse(resp.Text)
	if err != nil {
		return pending, fmt.Errorf("parse score response: %w", err)
	}

	var remaining []entry
	for _, e := range pending {
		rec, ok := records[e.key]
		if !ok {
			remaining = append(remaining, e)
			continue
		}
		if err := rec.validate(); err != nil {
			s.logger.Debug("discarding score record", "key", e.key, "item", e.item.ID, "error", err)
			remaining = append(remaining, e)
			continue
		}
		rec.apply(e.item)
	}

	if len(remaining) > 0 {
		return remaining, fmt.Errorf("%d of %d items: %w", len(remaining), len(pending), ErrIncompleteRecord)
	}
	return nil, nil
}

// applyDefault marks an item that could not be scored
func applyDefault(item *model.ContentItem) {
	item.SetScore(0)
	item.AIReason = ""
	item.AITags = []string{}
	item.AISummary = item.Title
}

// record is one per-item result as returned by the model. Pointers
// distinguish a missing field from a zero value.
type record struct {
	Key     string    `json:"key"`
	Score   *float64  `json:"score"`
	Reason  *string   `json:"reason"`
	Summary *string   `json:"summary"`
	Tags    *[]string `json:"tags"`
}

type response struct {
	Results []record `json:"results"`
}

func parseResponse(text string) (map[string]record, error) {
	var resp response
	if err := llm.DecodeJSON(text, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]record, len(resp.Results))
	for _, rec := range resp.Results {
		key := strings.TrimSpace(rec.Key)
		if key == "" {
			continue
		}
		if _, dup := out[key]; !dup {
			out[key] = rec
		}
	}
	return out, nil
}

func (r record) validate() error {
	var missing []string
	if r.Score == nil {
		missing = append(missing, "score")
	}
	if r.Reason == nil {
		missing = append(missing, "reason")
	}
	if r.Summary == nil {
		missing = append(missing, "summary")
	}
	if r.Tags == nil {
		missing = append(missing, "tags")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrIncompleteRecord)
	}
	return nil
}

func (r record) apply(item *model.ContentItem) {
	item.SetScore(*r.Score)
	item.AIReason = strings.TrimSpace(*r.Reason)
	item.AISummary = strings.TrimSpace(*r.Summary)
	if item.AISummary == "" {
		item.AISummary = item.Title
	}
	item.SetTags(*r.Tags)
}
