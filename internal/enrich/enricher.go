// Package enrich produces detailed, search-grounded explanations for the
// items that pass the score threshold.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/search"
	"github.com/ppiankov/horizon/internal/worker"
)

// ErrIncompleteSummary is returned when the synthesis omits a required field
var ErrIncompleteSummary = errors.New("incomplete detailed summary")

// Config controls the enrichment passes
type Config struct {
	Concurrency        int
	MaxConcepts        int
	ConceptTemperature float64
	Temperature        float64
	MaxTokens          int
	Timeout            time.Duration // per model call
}

// DefaultConfig returns 3 items at a time, up to 3 concepts each
func DefaultConfig() Config {
	return Config{
		Concurrency:        3,
		MaxConcepts:        3,
		ConceptTemperature: 0.3,
		Temperature:        0.4,
		Timeout:            60 * time.Second,
	}
}

// ConfigFromModel maps the application config onto the enricher config
func ConfigFromModel(cfg *model.Config) Config {
	c := DefaultConfig()
	c.Concurrency = cfg.Enrichment.Concurrency
	c.MaxConcepts = cfg.Enrichment.MaxConcepts
	c.Temperature = cfg.Enrichment.Temperature
	c.MaxTokens = cfg.LLM.MaxTokens
	c.Timeout = time.Duration(cfg.LLM.Timeout) * time.Second
	return c
}

// Stats summarizes one enrichment pass
type Stats struct {
	Enriched int
	Skipped  int
}

// Enricher runs concept extraction, grounding search and synthesis
type Enricher struct {
	provider llm.Provider
	searcher search.Searcher
	config   Config
	logger   *slog.Logger
}

// NewEnricher creates an enricher. searcher may be nil, in which case
// synthesis runs without grounding.
func NewEnricher(provider llm.Provider, searcher search.Searcher, config Config, logger *slog.Logger) *Enricher {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.MaxConcepts < 0 {
		config.MaxConcepts = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{provider: provider, searcher: searcher, config: config, logger: logger}
}

// Enrich annotates items in place. Failures are logged and leave the item's
// DetailedSummary nil; they never abort the pass.
func (e *Enricher) Enrich(ctx context.Context, items []*model.ContentItem) Stats {
	if len(items) == 0 {
		return Stats{}
	}

	e.logger.Info("enriching items", "items", len(items), "concurrency", e.config.Concurrency)

	var enriched atomic.Int64
	results := worker.Map(ctx, items, e.config.Concurrency, func(ctx context.Context, _ int, item *model.ContentItem) (struct{}, error) {
		if err := e.EnrichItem(ctx, item); err != nil {
			return struct{}{}, err
		}
		enriched.Add(1)
		return struct{}{}, nil
	})

	for i, r := range results {
		if r.Err != nil {
			e.logger.Warn("enrichment skipped", "item", items[i].ID, "title", items[i].Title, "error", r.Err)
		}
	}

	stats := Stats{Enriched: int(enriched.Load())}
	stats.Skipped = len(items) - stats.Enriched
	return stats
}

// EnrichItem runs both passes for one item and sets its DetailedSummary
func (e *Enricher) EnrichItem(ctx context.Context, item *model.ContentItem) error {
	concepts, err := e.extractConcepts(ctx, item)
	if err != nil {
		return fmt.Errorf("extract concepts: %w", err)
	}

	grounded, err := e.ground(ctx, item, concepts)
	if err != nil {
		return fmt.Errorf("ground concepts: %w", err)
	}

	summary, err := e.synthesize(ctx, item, grounded)
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	summary.Concepts = concepts
	summary.Grounding = groundingSources(grounded)
	item.DetailedSummary = summary
	return nil
}

func (e *Enricher) complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}
	req.MaxTokens = e.config.MaxTokens
	resp, err := e.provider.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (e *Enricher) extractConcepts(ctx context.Context, item *model.ContentItem) ([]string, error) {
	if e.config.MaxConcepts == 0 {
		return nil, nil
	}

	text, err := e.complete(ctx, llm.CompletionRequest{
		System:      fmt.Sprintf(conceptSystem, e.config.MaxConcepts),
		Prompt:      conceptPrompt(item),
		Temperature: e.config.ConceptTemperature,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Queries []string `json:"queries"`
	}
	if err := llm.DecodeJSON(text, &resp); err != nil {
		return nil, err
	}

	var concepts []string
	seen := make(map[string]bool)
	for _, q := range resp.Queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" || seen[key] {
			continue
		}
		seen[key] = true
		concepts = append(concepts, q)
		if len(concepts) == e.config.MaxConcepts {
			break
		}
	}
	return concepts, nil
}

// ground runs one search per concept concurrently. Any search error fails
// the item.
func (e *Enricher) ground(ctx context.Context, item *model.ContentItem, concepts []string) ([]grounding, error) {
	if len(concepts) == 0 || e.searcher == nil {
		return nil, nil
	}

	out := make([]grounding, len(concepts))
	g, gctx := errgroup.WithContext(ctx)
	for i, concept := range concepts {
		g.Go(func() error {
			results, err := e.searcher.Search(gctx, concept)
			if err != nil {
				return fmt.Errorf("search %q: %w", concept, err)
			}
			out[i] = grounding{concept: concept, results: search.ExcludeURL(results, item.URL)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

type synthesis struct {
	WhatsNew            string `json:"whats_new"`
	WhyItMatters        string `json:"why_it_matters"`
	KeyDetails          string `json:"key_details"`
	Background          string `json:"background"`
	CommunityDiscussion string `json:"community_discussion"`
}

func (e *Enricher) synthesize(ctx context.Context, item *model.ContentItem, grounded []grounding) (*model.DetailedSummary, error) {
	text, err := e.complete(ctx, llm.CompletionRequest{
		System:      synthesisSystem,
		Prompt:      synthesisPrompt(item, grounded),
		Temperature: e.config.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var s synthesis
	if err := llm.DecodeJSON(text, &s); err != nil {
		return nil, err
	}

	summary := &model.DetailedSummary{
		WhatsNew:            strings.TrimSpace(s.WhatsNew),
		WhyItMatters:        strings.TrimSpace(s.WhyItMatters),
		KeyDetails:          strings.TrimSpace(s.KeyDetails),
		Background:          strings.TrimSpace(s.Background),
		CommunityDiscussion: strings.TrimSpace(s.CommunityDiscussion),
	}

	var missing []string
	if summary.WhatsNew == "" {
		missing = append(missing, "whats_new")
	}
	if summary.WhyItMatters == "" {
		missing = append(missing, "why_it_matters")
	}
	if summary.KeyDetails == "" {
		missing = append(missing, "key_details")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing %s: %w", strings.Join(missing, ", "), ErrIncompleteSummary)
	}

	// Without comments there is nothing to summarize
	if len(item.Comments) == 0 {
		summary.CommunityDiscussion = ""
	}

	return summary, nil
}

func groundingSources(grounded []grounding) []model.GroundingSource {
	seen := make(map[string]bool)
	var out []model.GroundingSource
	for _, g := range grounded {
		for _, r := range g.results {
			if r.URL == "" || seen[r.URL] {
				continue
			}
			seen[r.URL] = true
			out = append(out, model.GroundingSource{Title: r.Title, URL: r.URL})
		}
	}
	return out
}
