package sources

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/horizon/internal/model"
)

const hnAPI = "https://hacker-news.firebaseio.com/v0"

// hnParallel caps concurrent item requests against the Firebase API
const hnParallel = 10

// HackerNews fetches the current top stories and their top comments
type HackerNews struct {
	fetcher *Fetcher
	baseURL string
	config  model.HackerNewsConfig
}

// NewHackerNews creates the Hacker News source. baseURL may be empty.
func NewHackerNews(fetcher *Fetcher, baseURL string, cfg model.HackerNewsConfig) *HackerNews {
	if baseURL == "" {
		baseURL = hnAPI
	}
	if cfg.FetchTopStories <= 0 {
		cfg.FetchTopStories = 30
	}
	return &HackerNews{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), config: cfg}
}

// Name returns "hackernews"
func (h *HackerNews) Name() string {
	return string(model.SourceHackerNews)
}

type hnItem struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type"`
	By          string  `json:"by"`
	Time        int64   `json:"time"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Text        string  `json:"text"`
	Score       int     `json:"score"`
	Descendants int     `json:"descendants"`
	Kids        []int64 `json:"kids"`
	Dead        bool    `json:"dead"`
	Deleted     bool    `json:"deleted"`
}

// Fetch returns top stories published after since with at least MinScore points
func (h *HackerNews) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	var ids []int64
	if err := h.fetcher.GetJSON(ctx, h.baseURL+"/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("fetch top stories: %w", err)
	}
	if len(ids) > h.config.FetchTopStories {
		ids = ids[:h.config.FetchTopStories]
	}

	stories := make([]*model.ContentItem, len(ids))
	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(hnParallel)
	for i, id := range ids {
		g.Go(func() error {
			stories[i], errs[i] = h.story(ctx, id, since)
			return nil
		})
	}
	_ = g.Wait()

	// Individual stories may fail; the source fails only if all of them did
	if err := errors.Join(errs...); err != nil && countErrors(errs) == len(ids) {
		return nil, err
	}

	var out []*model.ContentItem
	for _, s := range stories {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// story returns nil for items outside the window or below the score floor
func (h *HackerNews) story(ctx context.Context, id int64, since time.Time) (*model.ContentItem, error) {
	var raw hnItem
	if err := h.fetcher.GetJSON(ctx, h.itemURL(id), &raw); err != nil {
		return nil, fmt.Errorf("fetch story %d: %w", id, err)
	}

	published := time.Unix(raw.Time, 0).UTC()
	if raw.Type != "story" || raw.Dead || raw.Deleted || raw.Title == "" || published.Before(since) || raw.Score < h.config.MinScore {
		return nil, nil
	}

	discussion := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", raw.ID)
	link := raw.URL
	if link == "" {
		link = discussion
	}

	item := &model.ContentItem{
		ID:            fmt.Sprintf("hackernews:story:%d", raw.ID),
		SourceType:    model.SourceHackerNews,
		SourceID:      "top",
		Title:         raw.Title,
		URL:           link,
		Author:        raw.By,
		Body:          cleanBody(raw.Text),
		Metrics:       map[string]float64{"score": float64(raw.Score), "descendants": float64(raw.Descendants)},
		DiscussionURL: discussion,
		PublishedAt:   published,
		FetchedAt:     time.Now().UTC(),
	}

	// Comments are best effort
	item.Comments, _ = h.comments(ctx, raw.Kids)

	return item, nil
}

func (h *HackerNews) comments(ctx context.Context, kids []int64) ([]string, error) {
	if h.config.FetchComments <= 0 || len(kids) == 0 {
		return nil, nil
	}
	if len(kids) > h.config.FetchComments {
		kids = kids[:h.config.FetchComments]
	}

	texts := make([]string, len(kids))
	g, gctx := errgroup.WithContext(ctx)
	for i, kid := range kids {
		g.Go(func() error {
			var c hnItem
			if err := h.fetcher.GetJSON(gctx, h.itemURL(kid), &c); err != nil {
				return fmt.Errorf("fetch comment %d: %w", kid, err)
			}
			if c.Dead || c.Deleted || c.Text == "" {
				return nil
			}
			texts[i] = cleanComment(c.Text)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, t := range texts {
		if t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

func countErrors(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

func (h *HackerNews) itemURL(id int64) string {
	return h.baseURL + "/item/" + strconv.FormatInt(id, 10) + ".json"
}
