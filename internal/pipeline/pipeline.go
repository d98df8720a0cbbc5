// Package pipeline runs one briefing: fetch, filter previously reported
// items, merge duplicates, score, rank, enrich, recommend and persist.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/horizon/internal/dedup"
	"github.com/ppiankov/horizon/internal/enrich"
	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/rank"
	"github.com/ppiankov/horizon/internal/recommend"
	"github.com/ppiankov/horizon/internal/score"
	"github.com/ppiankov/horizon/internal/search"
	"github.com/ppiankov/horizon/internal/sources"
)

// SeenSet records which item IDs have already been reported
type SeenSet interface {
	Seen(ctx context.Context, id string) (bool, error)
	MarkSeen(ctx context.Context, ids []string) error
}

// ReportStore archives serialized reports
type ReportStore interface {
	SaveReport(ctx context.Context, id string, payload []byte) error
}

// Deps are the collaborators a pipeline needs. Searcher may be nil.
type Deps struct {
	Sources  []sources.Source
	Provider llm.Provider
	Searcher search.Searcher
	Seen     SeenSet
	Reports  ReportStore
	Logger   *slog.Logger

	// Now and NewID default to time.Now and uuid.NewString
	Now   func() time.Time
	NewID func() string
}

// Pipeline orchestrates one run
type Pipeline struct {
	config      *model.Config
	sources     []sources.Source
	provider    llm.Provider
	seen        SeenSet
	reports     ReportStore
	dedup       *dedup.Engine
	scorer      *score.Scorer
	enricher    *enrich.Enricher
	recommender *recommend.Recommender
	renderer    *Renderer
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

// New validates cfg and assembles a pipeline
func New(cfg *model.Config, deps Deps) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if deps.Provider == nil {
		return nil, errors.New("no LLM provider configured")
	}
	if deps.Seen == nil || deps.Reports == nil {
		return nil, errors.New("seen-set and report store are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}

	return &Pipeline{
		config:      cfg,
		sources:     deps.Sources,
		provider:    deps.Provider,
		seen:        deps.Seen,
		reports:     deps.Reports,
		dedup:       dedup.New(cfg.Dedup.Priority()),
		scorer:      score.NewScorer(deps.Provider, score.ConfigFromModel(cfg), deps.Logger),
		enricher:    enrich.NewEnricher(deps.Provider, deps.Searcher, enrich.ConfigFromModel(cfg), deps.Logger),
		recommender: recommend.NewRecommender(deps.Provider, recommend.ConfigFromModel(cfg), recommend.CurrentSources(cfg.Sources), deps.Logger),
		renderer:    NewRenderer(true),
		logger:      deps.Logger,
		now:         deps.Now,
		newID:       deps.NewID,
	}, nil
}

// SetFooter toggles the generated-by footer in Markdown output
func (p *Pipeline) SetFooter(include bool) {
	p.renderer = NewRenderer(include)
}

// Result is the outcome of one run
type Result struct {
	Report     *model.Report
	Markdown   string
	OutputPath string // Rendered Markdown file
	Scoring    score.Stats
	Enrichment enrich.Stats
}

// Run executes one briefing covering items published after since. Errors
// are returned only for conditions that must abort the run: an unreadable
// seen-set, cancellation, or failure to persist the report. The seen-set is
// updated last, after the report has been saved.
func (p *Pipeline) Run(ctx context.Context, since time.Time) (*Result, error) {
	if len(p.sources) == 0 {
		return nil, model.ErrNoSources
	}

	if !p.provider.IsAvailable(ctx) {
		p.logger.Warn("LLM provider did not respond to availability check, continuing", "provider", p.provider.Name())
	}

	// 1. Fetch
	fetched, failures := sources.FetchAll(ctx, p.sources, since, p.logger)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch interrupted: %w", err)
	}

	// 2. Drop items reported by earlier runs
	fresh, err := p.filterSeen(ctx, fetched)
	if err != nil {
		return nil, err
	}

	// 3. Merge cross-source duplicates
	unique := p.dedup.Merge(fresh)
	p.logger.Info("items collected", "fetched", len(fetched), "new", len(fresh), "unique", len(unique), "failed_sources", len(failures))

	// 4. Score
	scoring, err := p.scorer.Score(ctx, unique)
	if err != nil {
		return nil, err
	}

	// 5. Filter and rank
	threshold := p.config.Filtering.ScoreThreshold
	ranked := rank.Filter(unique, threshold)
	p.logger.Info("items ranked", "threshold", threshold, "selected", len(ranked))

	// 6. Enrich the selected items
	var enrichment enrich.Stats
	if p.config.Enrichment.Enabled {
		enrichment = p.enricher.Enrich(ctx, rank.Items(ranked))
	}

	// 7. Recommend sources from the items that passed the threshold
	var recs []model.RecommendationCandidate
	if p.config.Recommendation.Enabled {
		recs = p.recommender.Recommend(ctx, rank.Items(ranked))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}

	// 8. Assemble
	now := p.now().UTC()
	report := &model.Report{
		ID:              p.newID(),
		Date:            now.Format("2006-01-02"),
		GeneratedAt:     now,
		Since:           since.UTC(),
		TotalFetched:    len(fetched),
		TotalNew:        len(fresh),
		TotalUnique:     len(unique),
		Threshold:       threshold,
		Items:           ranked,
		Recommendations: recs,
		SourceFailures:  failures,
	}
	if report.Items == nil {
		report.Items = []model.RankedItem{}
	}

	markdown := p.renderer.RenderMarkdown(report)

	// 9. Persist, then mark what was reported
	outputPath, err := p.persist(ctx, report, markdown)
	if err != nil {
		return nil, err
	}

	// Canonical keys, so the same story arriving later from another source stays seen
	reported := make([]string, 0, len(ranked))
	for _, r := range ranked {
		reported = append(reported, dedup.Key(r.Item))
	}
	if err := p.seen.MarkSeen(ctx, reported); err != nil {
		return nil, fmt.Errorf("update seen-set: %w", err)
	}

	return &Result{
		Report:     report,
		Markdown:   markdown,
		OutputPath: outputPath,
		Scoring:    scoring,
		Enrichment: enrichment,
	}, nil
}

// filterSeen drops items whose canonical key was reported by an earlier run
func (p *Pipeline) filterSeen(ctx context.Context, items []*model.ContentItem) ([]*model.ContentItem, error) {
	out := make([]*model.ContentItem, 0, len(items))
	for _, item := range items {
		seen, err := p.seen.Seen(ctx, dedup.Key(item))
		if err != nil {
			return nil, fmt.Errorf("check seen-set: %w", err)
		}
		if !seen {
			out = append(out, item)
		}
	}
	return out, nil
}

// persist saves the JSON report and writes the Markdown file
func (p *Pipeline) persist(ctx context.Context, report *model.Report, markdown string) (string, error) {
	payload, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	if err := p.reports.SaveReport(ctx, report.ID, payload); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}

	dir := p.config.Storage.OutputDir
	if dir == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("horizon-%s.md", report.Date))
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
