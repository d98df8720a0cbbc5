package search

import (
	"log/slog"
	"net/http"

	"github.com/ppiankov/horizon/internal/cache"
	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/worker"
)

// NewFromConfig assembles the grounding searcher: HN Algolia and Reddit fanned
// out behind the search throttle, with a cache in front so hits skip the
// throttle. It returns nil when search is disabled.
func NewFromConfig(cfg *model.Config, client *http.Client, c cache.Cache, logger *slog.Logger) Searcher {
	if !cfg.Search.Enabled {
		return nil
	}
	if c == nil {
		c = cache.Nop{}
	}

	per := cfg.Search.MaxResults
	multi := NewMulti(per*2, logger,
		NewHackerNews(client, "", cfg.HTTP.UserAgent, per),
		NewReddit(client, "", cfg.HTTP.UserAgent, per),
	)

	throttle := worker.NewThrottle("search", cfg.Search.Concurrency, cfg.Search.RequestsPerSecond, cfg.Search.Burst)
	return NewCached(NewThrottled(multi, throttle, cfg.Search.Timeout), c, cfg.Cache.DiskTTL)
}
