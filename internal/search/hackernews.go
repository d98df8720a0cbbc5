package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ppiankov/horizon/internal/util"
)

const hnSearchURL = "https://hn.algolia.com/api/v1/search"

// HackerNews searches stories through the HN Algolia API
type HackerNews struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	maxResults int
}

// NewHackerNews creates an HN Algolia searcher. baseURL may be empty.
func NewHackerNews(client *http.Client, baseURL, userAgent string, maxResults int) *HackerNews {
	if baseURL == "" {
		baseURL = hnSearchURL
	}
	if maxResults <= 0 {
		maxResults = 3
	}
	return &HackerNews{client: client, baseURL: baseURL, userAgent: userAgent, maxResults: maxResults}
}

type hnSearchResponse struct {
	Hits []struct {
		ObjectID    string `json:"objectID"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		StoryText   string `json:"story_text"`
		Points      int    `json:"points"`
		NumComments int    `json:"num_comments"`
		CreatedAt   string `json:"created_at"`
	} `json:"hits"`
}

// Name returns "hackernews"
func (h *HackerNews) Name() string {
	return "hackernews"
}

// Search queries stories matching query
func (h *HackerNews) Search(ctx context.Context, query string) ([]Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(h.maxResults))

	var resp hnSearchResponse
	if err := getJSON(ctx, h.client, h.baseURL+"?"+params.Encode(), h.userAgent, &resp); err != nil {
		return nil, fmt.Errorf("hn search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if hit.Title == "" {
			continue
		}
		link := hit.URL
		if link == "" {
			link = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		snippet := util.Truncate(util.HTMLToText(hit.StoryText), 300)
		if snippet == "" {
			snippet = fmt.Sprintf("%d points, %d comments on Hacker News", hit.Points, hit.NumComments)
		}

		results = append(results, Result{Title: hit.Title, Snippet: snippet, URL: link, Source: h.Name()})
		if len(results) == h.maxResults {
			break
		}
	}
	return results, nil
}
