// Package recommend proposes new sources from the run's high-scoring items.
package recommend

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/ppiankov/horizon/internal/llm"
	"github.com/ppiankov/horizon/internal/model"
)

const maxSampleTitles = 3

// Config holds the recommendation gate and sampling settings
type Config struct {
	MinScore         float64
	MinEvidence      int
	ConfidenceCutoff float64
	TopAuthors       int
	MaxItems         int
	Temperature      float64
	MaxTokens        int
	Topic            string
	Timeout          time.Duration
}

// DefaultConfig requires 3 items scoring 8.0 or more and keeps candidates
// with confidence 0.6 or more
func DefaultConfig() Config {
	return Config{
		MinScore:         8.0,
		MinEvidence:      3,
		ConfidenceCutoff: 0.6,
		TopAuthors:       10,
		MaxItems:         20,
		Temperature:      0.4,
		Timeout:          60 * time.Second,
	}
}

// ConfigFromModel maps the application config onto the recommender config
func ConfigFromModel(cfg *model.Config) Config {
	r := cfg.Recommendation
	return Config{
		MinScore:         r.MinScore,
		MinEvidence:      r.MinEvidence,
		ConfidenceCutoff: r.ConfidenceCutoff,
		TopAuthors:       r.TopAuthors,
		MaxItems:         r.MaxItems,
		Temperature:      r.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		Topic:            r.Topic,
		Timeout:          time.Duration(cfg.LLM.Timeout) * time.Second,
	}
}

// Recommender asks the model for new sources worth following
type Recommender struct {
	provider llm.Provider
	config   Config
	current  []string
	logger   *slog.Logger
}

// NewRecommender creates a recommender. current describes the sources that
// are already configured, so they are not proposed again.
func NewRecommender(provider llm.Provider, config Config, current []string, logger *slog.Logger) *Recommender {
	if config.MinEvidence < 1 {
		config.MinEvidence = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{provider: provider, config: config, current: current, logger: logger}
}

// Recommend returns candidates in model order. It never fails: below the
// evidence gate, or on any model or parse error, the result is empty.
func (r *Recommender) Recommend(ctx context.Context, items []*model.ContentItem) []model.RecommendationCandidate {
	var qualifying []*model.ContentItem
	for _, item := range items {
		if item.Scored() && item.Score() >= r.config.MinScore {
			qualifying = append(qualifying, item)
		}
	}

	if len(qualifying) < r.config.MinEvidence {
		r.logger.Debug("not enough high-scoring items for recommendations",
			"qualifying", len(qualifying), "required", r.config.MinEvidence)
		return nil
	}

	slices.SortStableFunc(qualifying, func(a, b *model.ContentItem) int {
		return cmp.Compare(b.Score(), a.Score())
	})

	authors, sources := frequencies(qualifying)
	if r.config.TopAuthors > 0 && len(authors) > r.config.TopAuthors {
		authors = authors[:r.config.TopAuthors]
	}
	if r.config.MaxItems > 0 && len(qualifying) > r.config.MaxItems {
		qualifying = qualifying[:r.config.MaxItems]
	}

	candidates, err := r.ask(ctx, buildPrompt(qualifying, authors, sources, r.config.Topic, r.current))
	if err != nil {
		r.logger.Warn("source recommendation failed", "error", err)
		return nil
	}

	r.logger.Info("source recommendations", "candidates", len(candidates))
	return candidates
}

func (r *Recommender) ask(ctx context.Context, prompt string) ([]model.RecommendationCandidate, error) {
	if r.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.Timeout)
		defer cancel()
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: r.config.Temperature,
		MaxTokens:   r.config.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("recommend sources: %w", err)
	}

	var parsed struct {
		Recommendations []candidate `json:"recommendations"`
	}
	if err := llm.DecodeJSON(resp.Text, &parsed); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}

	var out []model.RecommendationCandidate
	for _, c := range parsed.Recommendations {
		rc, ok := c.normalize()
		if !ok || rc.Confidence < r.config.ConfidenceCutoff {
			continue
		}
		out = append(out, rc)
	}
	return out, nil
}

type candidate struct {
	SourceType   string   `json:"source_type"`
	Identifier   string   `json:"identifier"`
	Reason       string   `json:"reason"`
	Confidence   float64  `json:"confidence"`
	SampleTitles []string `json:"sample_titles"`
}

func (c candidate) normalize() (model.RecommendationCandidate, bool) {
	id := strings.TrimSpace(c.Identifier)
	if id == "" {
		return model.RecommendationCandidate{}, false
	}

	titles := c.SampleTitles
	if len(titles) > maxSampleTitles {
		titles = titles[:maxSampleTitles]
	}

	return model.RecommendationCandidate{
		SourceType:   model.SourceType(strings.ToLower(strings.TrimSpace(c.SourceType))),
		Identifier:   id,
		Reason:       strings.TrimSpace(c.Reason),
		Confidence:   min(max(c.Confidence, 0), 1),
		SampleTitles: titles,
	}, true
}

// frequencies counts authors and source types, most frequent first
func frequencies(items []*model.ContentItem) (authors, sources []count) {
	authorN := make(map[string]int)
	sourceN := make(map[string]int)
	for _, item := range items {
		if item.Author != "" {
			authorN[item.Author]++
		}
		for _, s := range item.Sources() {
			sourceN[string(s)]++
		}
	}
	return sortCounts(authorN), sortCounts(sourceN)
}

func sortCounts(m map[string]int) []count {
	out := make([]count, 0, len(m))
	for name, n := range m {
		out = append(out, count{name: name, n: n})
	}
	slices.SortFunc(out, func(a, b count) int {
		if c := cmp.Compare(b.n, a.n); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	return out
}

// CurrentSources describes the configured sources for the prompt
func CurrentSources(cfg model.SourcesConfig) []string {
	var out []string
	if cfg.HackerNews.Enabled {
		out = append(out, "hackernews: top stories")
	}
	for _, f := range cfg.RSS {
		if f.Enabled {
			out = append(out, fmt.Sprintf("rss: %s (%s)", f.Name, f.URL))
		}
	}
	if cfg.Reddit.Enabled {
		for _, s := range cfg.Reddit.Subreddits {
			if s.Enabled {
				out = append(out, "reddit: r/"+s.Subreddit)
			}
		}
		for _, u := range cfg.Reddit.Users {
			if u.Enabled {
				out = append(out, "reddit: u/"+u.Username)
			}
		}
	}
	if cfg.Telegram.Enabled {
		for _, ch := range cfg.Telegram.Channels {
			if ch.Enabled {
				out = append(out, "telegram: "+ch.Channel)
			}
		}
	}
	for _, g := range cfg.GitHub.Sources {
		if !g.Enabled {
			continue
		}
		if g.Type == "repo_releases" {
			out = append(out, fmt.Sprintf("github: %s/%s releases", g.Owner, g.Repo))
		} else {
			out = append(out, "github: "+g.Username)
		}
	}
	return out
}
