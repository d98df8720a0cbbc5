package sources

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/horizon/internal/model"
)

const redditBase = "https://www.reddit.com"

// Reddit fetches posts from one subreddit or one user's submissions
type Reddit struct {
	fetcher       *Fetcher
	baseURL       string
	path          string
	sourceID      string
	minScore      int
	fetchComments int
}

// NewSubreddit creates a source for one subreddit listing
func NewSubreddit(fetcher *Fetcher, baseURL string, cfg model.RedditSubredditConfig, fetchComments int) *Reddit {
	sort := cfg.Sort
	if sort == "" {
		sort = "hot"
	}
	params := url.Values{}
	params.Set("limit", strconv.Itoa(fetchLimit(cfg.FetchLimit)))
	if sort == "top" && cfg.TimeFilter != "" {
		params.Set("t", cfg.TimeFilter)
	}

	return &Reddit{
		fetcher:       fetcher,
		baseURL:       redditBaseURL(baseURL),
		path:          fmt.Sprintf("/r/%s/%s.json?%s", cfg.Subreddit, sort, params.Encode()),
		sourceID:      "r/" + cfg.Subreddit,
		minScore:      cfg.MinScore,
		fetchComments: fetchComments,
	}
}

// NewRedditUser creates a source for one user's submissions
func NewRedditUser(fetcher *Fetcher, baseURL string, cfg model.RedditUserConfig, fetchComments int) *Reddit {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(fetchLimit(cfg.FetchLimit)))
	params.Set("sort", "new")

	return &Reddit{
		fetcher:       fetcher,
		baseURL:       redditBaseURL(baseURL),
		path:          fmt.Sprintf("/user/%s/submitted.json?%s", cfg.Username, params.Encode()),
		sourceID:      "u/" + cfg.Username,
		fetchComments: fetchComments,
	}
}

func redditBaseURL(baseURL string) string {
	if baseURL == "" {
		return redditBase
	}
	return strings.TrimRight(baseURL, "/")
}

func fetchLimit(n int) int {
	if n <= 0 {
		return 25
	}
	return min(n, 100)
}

// Name returns "reddit:r/<subreddit>" or "reddit:u/<user>"
func (r *Reddit) Name() string {
	return "reddit:" + r.sourceID
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Selftext    string  `json:"selftext"`
	Body        string  `json:"body"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	CreatedUTC  float64 `json:"created_utc"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
}

// Fetch returns posts created after since with at least the configured score
func (r *Reddit) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	var listing redditListing
	if err := r.fetcher.GetJSON(ctx, r.baseURL+r.path, &listing); err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	now := time.Now().UTC()
	var out []*model.ContentItem
	for _, child := range listing.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		post := child.Data
		created := time.Unix(int64(post.CreatedUTC), 0).UTC()
		if post.Stickied || post.Title == "" || created.Before(since) || post.Score < r.minScore {
			continue
		}

		discussion := r.baseURL + post.Permalink
		link := post.URL
		if post.IsSelf || link == "" {
			link = discussion
		}

		out = append(out, &model.ContentItem{
			ID:         fmt.Sprintf("reddit:post:%s", post.ID),
			SourceType: model.SourceReddit,
			SourceID:   r.sourceID,
			Title:      post.Title,
			URL:        link,
			Author:     post.Author,
			Body:       cleanBody(post.Selftext),
			Metrics: map[string]float64{
				"score":        float64(post.Score),
				"num_comments": float64(post.NumComments),
				"upvote_ratio": post.UpvoteRatio,
			},
			DiscussionURL: discussion,
			PublishedAt:   created,
			FetchedAt:     now,
		})
	}

	r.attachComments(ctx, out)
	return out, nil
}

// attachComments fetches top comments per post. Failures leave the post
// without comments.
func (r *Reddit) attachComments(ctx context.Context, items []*model.ContentItem) {
	if r.fetchComments <= 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(4)
	for _, item := range items {
		g.Go(func() error {
			item.Comments, _ = r.comments(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Reddit) comments(ctx context.Context, item *model.ContentItem) ([]string, error) {
	id := strings.TrimPrefix(item.ID, "reddit:post:")
	params := url.Values{}
	params.Set("limit", strconv.Itoa(r.fetchComments))
	params.Set("sort", "top")
	params.Set("depth", "1")

	// The comments endpoint returns [post listing, comment listing]
	var listings []redditListing
	if err := r.fetcher.GetJSON(ctx, fmt.Sprintf("%s/comments/%s.json?%s", r.baseURL, id, params.Encode()), &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var out []string
	for _, child := range listings[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		body := strings.TrimSpace(child.Data.Body)
		if body == "" || body == "[deleted]" || body == "[removed]" {
			continue
		}
		out = append(out, cleanComment(body))
		if len(out) == r.fetchComments {
			break
		}
	}
	return out, nil
}
