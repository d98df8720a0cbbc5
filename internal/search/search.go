// Package search provides the web search capability used to ground enrichment.
package search

import (
	"context"
	"strings"
)

// Result is one ranked search hit
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
	Source  string `json:"source"`
}

// Searcher returns a small, bounded set of ranked results for a query
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// ExcludeURL drops results pointing at ownURL, ignoring a trailing slash
func ExcludeURL(results []Result, ownURL string) []Result {
	own := strings.TrimRight(ownURL, "/")
	if own == "" {
		return results
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		if strings.TrimRight(r.URL, "/") == own {
			continue
		}
		out = append(out, r)
	}
	return out
}
