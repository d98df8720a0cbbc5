package sources

import (
	"log/slog"
	"net/http"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/util"
	"github.com/ppiankov/horizon/internal/worker"
)

// Per-host politeness for all scrapers
const (
	hostRequestsPerSecond = 4
	hostBurst             = 8
)

// NewFetcherFromConfig builds the shared scraper fetcher from the HTTP section
func NewFetcherFromConfig(cfg model.HTTPConfig, client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = util.NewHTTPClient(cfg.Timeout, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy)
	}
	opts := FetcherOptions{
		UserAgent: cfg.UserAgent,
		Limiter:   worker.NewLimiter(hostRequestsPerSecond, hostBurst),
		Logger:    logger,
	}
	if cfg.RespectRobots {
		opts.Robots = util.NewRobotsChecker(client, cfg.UserAgent)
	}
	return NewFetcher(client, opts)
}

// FromConfig returns one Source per enabled configuration entry. API-backed
// sources skip the robots.txt check; scraped pages and feeds honour it.
func FromConfig(cfg model.SourcesConfig, fetcher *Fetcher) []Source {
	api := fetcher.withoutRobots()

	var out []Source
	if cfg.HackerNews.Enabled {
		out = append(out, NewHackerNews(api, "", cfg.HackerNews))
	}
	for _, feed := range cfg.RSS {
		if feed.Enabled {
			out = append(out, NewRSS(fetcher, feed))
		}
	}
	if cfg.Reddit.Enabled {
		for _, sub := range cfg.Reddit.Subreddits {
			if sub.Enabled {
				out = append(out, NewSubreddit(api, "", sub, cfg.Reddit.FetchComments))
			}
		}
		for _, user := range cfg.Reddit.Users {
			if user.Enabled {
				out = append(out, NewRedditUser(api, "", user, cfg.Reddit.FetchComments))
			}
		}
	}
	if cfg.Telegram.Enabled {
		for _, ch := range cfg.Telegram.Channels {
			if ch.Enabled {
				out = append(out, NewTelegram(fetcher, "", ch))
			}
		}
	}
	for _, gh := range cfg.GitHub.Sources {
		if gh.Enabled {
			out = append(out, NewGitHub(api, "", cfg.GitHub.Token, gh))
		}
	}
	return out
}

func (f *Fetcher) withoutRobots() *Fetcher {
	clone := *f
	clone.robots = nil
	return &clone
}
