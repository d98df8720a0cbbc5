package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/horizon/internal/util"
)

const redditSearchURL = "https://www.reddit.com/search.json"

// Reddit searches posts through Reddit's public JSON endpoint
type Reddit struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	maxResults int
}

// NewReddit creates a Reddit searcher. baseURL may be empty.
func NewReddit(client *http.Client, baseURL, userAgent string, maxResults int) *Reddit {
	if baseURL == "" {
		baseURL = redditSearchURL
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &Reddit{client: client, baseURL: baseURL, userAgent: userAgent, maxResults: maxResults}
}

type redditSearchResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Permalink   string `json:"permalink"`
				Selftext    string `json:"selftext"`
				Subreddit   string `json:"subreddit"`
				Score       int    `json:"score"`
				NumComments int    `json:"num_comments"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Name returns "reddit"
func (r *Reddit) Name() string {
	return "reddit"
}

// Search queries posts from the past year ordered by relevance
func (r *Reddit) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("sort", "relevance")
	params.Set("t", "year")
	params.Set("limit", strconv.Itoa(r.maxResults))

	var resp redditSearchResponse
	if err := getJSON(ctx, r.client, r.baseURL+"?"+params.Encode(), r.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("reddit search: %w", err)
	}

	results := make([]Result, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		post := child.Data
		if post.Title == "" {
			continue
		}
		link := post.URL
		if link == "" && post.Permalink != "" {
			link = "https://www.reddit.com" + post.Permalink
		}

		snippet := util.Truncate(util.CollapseSpace(post.Selftext), 300)
		if snippet == "" {
			snippet = fmt.Sprintf("r/%s, %d points, %d comments", post.Subreddit, post.Score, post.NumComments)
		}

		results = append(results, Result{Title: post.Title, Snippet: snippet, URL: link, Source: r.Name()})
		if len(results) == r.maxResults {
			break
		}
	}
	return results, nil
}
