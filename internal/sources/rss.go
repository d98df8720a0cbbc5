package sources

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/ppiankov/horizon/internal/model"
)

// RSS fetches one RSS or Atom feed
type RSS struct {
	fetcher *Fetcher
	config  model.RSSFeedConfig
	url     string
}

// NewRSS creates a feed source. ${VAR} references in the URL are expanded
// from the environment.
func NewRSS(fetcher *Fetcher, cfg model.RSSFeedConfig) *RSS {
	return &RSS{fetcher: fetcher, config: cfg, url: os.ExpandEnv(cfg.URL)}
}

// Name returns "rss:<feed name>"
func (r *RSS) Name() string {
	return "rss:" + r.config.Name
}

// Fetch returns feed entries published or updated after since
func (r *RSS) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	if r.url == "" {
		return nil, fmt.Errorf("feed %q has no URL", r.config.Name)
	}

	body, err := r.fetcher.Get(ctx, r.url, "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := time.Now().UTC()
	var out []*model.ContentItem
	for _, entry := range feed.Items {
		published := entryTime(entry)
		if published.IsZero() || published.Before(since) {
			continue
		}

		link := strings.TrimSpace(entry.Link)
		title := strings.TrimSpace(entry.Title)
		if link == "" || title == "" {
			continue
		}

		native := entry.GUID
		if native == "" {
			native = link
		}

		body := entry.Content
		if body == "" {
			body = entry.Description
		}

		item := &model.ContentItem{
			ID:          fmt.Sprintf("rss:%s:%s", r.config.Name, native),
			SourceType:  model.SourceRSS,
			SourceID:    r.config.Name,
			Title:       title,
			URL:         link,
			Author:      entryAuthor(entry, feed),
			Body:        cleanBody(body),
			PublishedAt: published.UTC(),
			FetchedAt:   now,
		}
		out = append(out, item)
	}
	return out, nil
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	return time.Time{}
}

func entryAuthor(entry *gofeed.Item, feed *gofeed.Feed) string {
	if len(entry.Authors) > 0 && entry.Authors[0].Name != "" {
		return entry.Authors[0].Name
	}
	if len(feed.Authors) > 0 && feed.Authors[0].Name != "" {
		return feed.Authors[0].Name
	}
	return feed.Title
}
