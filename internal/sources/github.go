package sources

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/horizon/internal/model"
)

const githubAPI = "https://api.github.com"

// GitHub fetches either a user's public events or a repository's releases
type GitHub struct {
	fetcher *Fetcher
	baseURL string
	config  model.GitHubSourceConfig
}

// NewGitHub creates a GitHub source. A non-empty token is sent as a bearer token.
func NewGitHub(fetcher *Fetcher, baseURL, token string, cfg model.GitHubSourceConfig) *GitHub {
	if baseURL == "" {
		baseURL = githubAPI
	}
	fetcher = fetcher.WithHeader("X-GitHub-Api-Version", "2022-11-28")
	if token != "" {
		fetcher = fetcher.WithHeader("Authorization", "Bearer "+token)
	}
	return &GitHub{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/"), config: cfg}
}

// Name returns "github:<user>" or "github:<owner>/<repo>"
func (g *GitHub) Name() string {
	if g.config.Type == "repo_releases" {
		return fmt.Sprintf("github:%s/%s", g.config.Owner, g.config.Repo)
	}
	return "github:" + g.config.Username
}

// Fetch dispatches on the configured source type
func (g *GitHub) Fetch(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	switch g.config.Type {
	case "user_events":
		return g.userEvents(ctx, since)
	case "repo_releases":
		return g.releases(ctx, since)
	default:
		return nil, fmt.Errorf("unknown github source type %q", g.config.Type)
	}
}

type ghRelease struct {
	ID          int64     `json:"id"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Author      struct {
		Login string `json:"login"`
	} `json:"author"`
}

func (g *GitHub) releases(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	repo := g.config.Owner + "/" + g.config.Repo
	var releases []ghRelease
	if err := g.fetcher.GetJSON(ctx, fmt.Sprintf("%s/repos/%s/releases?per_page=10", g.baseURL, repo), &releases); err != nil {
		return nil, fmt.Errorf("fetch releases: %w", err)
	}

	now := time.Now().UTC()
	var out []*model.ContentItem
	for _, rel := range releases {
		if rel.Draft || rel.PublishedAt.Before(since) {
			continue
		}
		name := rel.Name
		if name == "" {
			name = rel.TagName
		}
		item := &model.ContentItem{
			ID:          fmt.Sprintf("github:release:%d", rel.ID),
			SourceType:  model.SourceGitHub,
			SourceID:    repo,
			Title:       fmt.Sprintf("%s %s", repo, name),
			URL:         rel.HTMLURL,
			Author:      rel.Author.Login,
			Body:        cleanBody(rel.Body),
			PublishedAt: rel.PublishedAt.UTC(),
			FetchedAt:   now,
		}
		if rel.Prerelease {
			item.Metrics = map[string]float64{"prerelease": 1}
		}
		out = append(out, item)
	}
	return out, nil
}

type ghEvent struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	Payload struct {
		Action      string    `json:"action"`
		RefType     string    `json:"ref_type"`
		Description string    `json:"description"`
		Release     ghRelease `json:"release"`
		Forkee      struct {
			FullName string `json:"full_name"`
			HTMLURL  string `json:"html_url"`
		} `json:"forkee"`
	} `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// userEvents keeps the event kinds that signal something worth reading:
// new repositories, releases, stars, forks and repos made public
func (g *GitHub) userEvents(ctx context.Context, since time.Time) ([]*model.ContentItem, error) {
	var events []ghEvent
	url := fmt.Sprintf("%s/users/%s/events/public?per_page=50", g.baseURL, g.config.Username)
	if err := g.fetcher.GetJSON(ctx, url, &events); err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}

	now := time.Now().UTC()
	var out []*model.ContentItem
	for _, ev := range events {
		if ev.CreatedAt.Before(since) {
			continue
		}

		repoURL := "https://github.com/" + ev.Repo.Name
		var title, link, body string
		switch ev.Type {
		case "CreateEvent":
			if ev.Payload.RefType != "repository" {
				continue
			}
			title = fmt.Sprintf("%s created %s", ev.Actor.Login, ev.Repo.Name)
			link, body = repoURL, ev.Payload.Description
		case "ReleaseEvent":
			if ev.Payload.Action != "published" {
				continue
			}
			name := ev.Payload.Release.Name
			if name == "" {
				name = ev.Payload.Release.TagName
			}
			title = fmt.Sprintf("%s released %s", ev.Repo.Name, name)
			link, body = ev.Payload.Release.HTMLURL, ev.Payload.Release.Body
		case "WatchEvent":
			title = fmt.Sprintf("%s starred %s", ev.Actor.Login, ev.Repo.Name)
			link = repoURL
		case "ForkEvent":
			title = fmt.Sprintf("%s forked %s", ev.Actor.Login, ev.Repo.Name)
			link = repoURL
		case "PublicEvent":
			title = fmt.Sprintf("%s open-sourced %s", ev.Actor.Login, ev.Repo.Name)
			link = repoURL
		default:
			continue
		}
		if link == "" {
			link = repoURL
		}

		out = append(out, &model.ContentItem{
			ID:          "github:event:" + ev.ID,
			SourceType:  model.SourceGitHub,
			SourceID:    g.config.Username,
			Title:       title,
			URL:         link,
			Author:      ev.Actor.Login,
			Body:        cleanBody(body),
			PublishedAt: ev.CreatedAt.UTC(),
			FetchedAt:   now,
		})
	}
	return out, nil
}
