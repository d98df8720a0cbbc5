package sources

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppiankov/horizon/internal/model"
	"github.com/ppiankov/horizon/internal/util"
)

const telegramBase = "https://t.me"

// telegramTitleLimit bounds the title derived from a message's first line
const telegramTitleLimit = 120

// Telegram reads a public channel through its web preview at t.me/s/<channel>
type Telegram struct {
	fetcher *Fetcher
	baseURL string
	config  model.TelegramChannelConfig
}

// NewTelegram creates a channel source. baseURL may be empty.
func NewTelegram(fetcher *Fetcher, baseURL string, cfg model.TelegramChannelConfig) *Telegram {
	if baseURL == "" {
		baseURL = telegramBase
	}
	cfg.Channel = strings.TrimPrefix(cfg.Channel, "@")
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = 20
	}
	return &Telegram{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), config: cfg}
}

// Name returns "telegram:<channel>"
func (t *Telegram) Name() string {
	return "telegram:" + t.config.Channel
}

// Fetch returns the most recent channel messages posted after since
func (t *Telegram) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	body, err := t.fetcher.Get(ctx, t.baseURL+"/s/"+t.config.Channel, "text/html")
	if err != nil {
		return nil, fmt.Errorf("fetch channel: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse channel page: %w", err)
	}

	now := time.Now().UTC()
	var out []*model.ContentItem
	doc.Find(".tgme_widget_message").Each(func(_ int, msg *goquery.Selection) {
		post, ok := msg.Attr("data-post")
		if !ok || post == "" {
			return
		}

		textSel := msg.Find(".tgme_widget_message_text").First()
		html, _ := textSel.Html()
		text := util.HTMLToText(html)
		if text == "" {
			return
		}

		stamp, _ := msg.Find("time").First().Attr("datetime")
		published, err := time.Parse(time.RFC3339, stamp)
		if err != nil || published.Before(since) {
			return
		}

		item := &model.ContentItem{
			ID:          "telegram:" + strings.ReplaceAll(post, "/", ":"),
			SourceType:  model.SourceTelegram,
			SourceID:    t.config.Channel,
			Title:       util.Truncate(strings.SplitN(text, "\n", 2)[0], telegramTitleLimit),
			URL:         t.baseURL + "/" + post,
			Author:      t.config.Channel,
			Body:        util.Truncate(text, bodyLimit),
			PublishedAt: published.UTC(),
			FetchedAt:   now,
		}

		// Prefer the first external link as the canonical URL so the
		// message merges with other sources sharing it
		msg.Find(".tgme_widget_message_text a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if strings.HasPrefix(href, "http") && !strings.Contains(href, "t.me/") {
				item.DiscussionURL = item.URL
				item.URL = href
				return false
			}
			return true
		})

		if views := parseViews(msg.Find(".tgme_widget_message_views").First().Text()); views > 0 {
			item.Metrics = map[string]float64{"views": views}
		}

		out = append(out, item)
	})

	// The preview lists oldest first; keep the newest messages
	if len(out) > t.config.FetchLimit {
		out = out[len(out)-t.config.FetchLimit:]
	}
	return out, nil
}

// parseViews converts counters such as "1.2K" or "3M"
func parseViews(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		mult, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		mult, s = 1e6, strings.TrimSuffix(s, "M")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * mult
}
