// Package sources fetches raw content items from the configured platforms.
package sources

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/util"
)

// bodyLimit bounds the plain-text body kept per item, in runes
const bodyLimit = 4000

// commentLimit bounds each kept comment, in runes
const commentLimit = 500

// Source is one configured content source
type Source interface {
	Name() string
	Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error)
}

// FetchAll runs every source concurrently. A failing source contributes no
// items and one failure entry; it never cancels the others. Items come back
// grouped by source in the order sources were given.
func FetchAll(ctx context.Context, sources []Source, since time.Time, logger *slog.Logger) ([]*model.ContentItem, []model.SourceFailure) {
	if logger == nil {
		logger = slog.Default()
	}

	results := make([][]*model.ContentItem, len(sources))
	var (
		mu       sync.Mutex
		failures []model.SourceFailure
	)

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			start := time.Now()
			items, err := src.Fetch(ctx, since)
			if err != nil {
				logger.Warn("source failed", "source", src.Name(), "error", err)
				mu.Lock()
				failures = append(failures, model.SourceFailure{Source: src.Name(), Error: err.Error()})
				mu.Unlock()
				return nil
			}
			logger.Info("source fetched", "source", src.Name(), "items", len(items), "duration", time.Since(start).Round(time.Millisecond))
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var all []*model.ContentItem
	for _, items := range results {
		all = append(all, items...)
	}

	// Failure order follows source order, not completion order
	order := make(map[string]int, len(sources))
	for i, src := range sources {
		order[src.Name()] = i
	}
	slices.SortStableFunc(failures, func(a, b model.SourceFailure) int {
		return cmp.Compare(order[a.Source], order[b.Source])
	})

	return all, failures
}

func cleanBody(s string) string {
	return util.Truncate(util.HTMLToText(s), bodyLimit)
}

func cleanComment(s string) string {
	return util.Truncate(util.HTMLToText(s), commentLimit)
}
