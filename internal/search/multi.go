package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/horizon/internal/dedup"
)

// Multi fans a query out to several searchers and merges their results
// in backend order, dropping duplicate URLs. It fails only when every
// backend fails.
type Multi struct {
	backends   []Searcher
	maxResults int
	logger     *slog.Logger
}

// NewMulti creates a fan-out searcher; maxResults <= 0 means no cap
func NewMulti(maxResults int, logger *slog.Logger, backends ...Searcher) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{backends: backends, maxResults: maxResults, logger: logger}
}

// Name returns "multi"
func (m *Multi) Name() string {
	return "multi"
}

// Search queries all backends concurrently
func (m *Multi) Search(ctx context.Context, query string) ([]Result, error) {
	if len(m.backends) == 0 {
		return nil, errors.New("no search backends configured")
	}

	perBackend := make([][]Result, len(m.backends))
	errs := make([]error, len(m.backends))

	var g errgroup.Group
	for i, backend := range m.backends {
		g.Go(func() error {
			results, err := backend.Search(ctx, query)
			if err != nil {
				m.logger.Debug("search backend failed", "backend", backend.Name(), "query", query, "error", err)
				errs[i] = err
				return nil
			}
			perBackend[i] = results
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == len(m.backends) {
		return nil, fmt.Errorf("all search backends failed: %w", errors.Join(errs...))
	}

	seen := make(map[string]bool)
	var merged []Result
	for _, results := range perBackend {
		for _, r := range results {
			key, ok := dedup.Canonicalize(r.URL)
			if !ok {
				key = r.URL
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			merged = append(merged, r)
			if m.maxResults > 0 && len(merged) == m.maxResults {
				return merged, nil
			}
		}
	}
	return merged, nil
}
