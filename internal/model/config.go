package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoSources is returned when the configuration enables no source at all
var ErrNoSources = errors.New("no sources enabled")

// Config is the complete Horizon configuration
type Config struct {
	LLM            LLMConfig            `yaml:"llm" mapstructure:"llm"`
	Search         SearchConfig         `yaml:"search" mapstructure:"search"`
	Sources        SourcesConfig        `yaml:"sources" mapstructure:"sources"`
	Filtering      FilteringConfig      `yaml:"filtering" mapstructure:"filtering"`
	Scoring        ScoringConfig        `yaml:"scoring" mapstructure:"scoring"`
	Enrichment     EnrichmentConfig     `yaml:"enrichment" mapstructure:"enrichment"`
	Recommendation RecommendationConfig `yaml:"recommendation" mapstructure:"recommendation"`
	Dedup          DedupConfig          `yaml:"dedup" mapstructure:"dedup"`
	Storage        StorageConfig        `yaml:"storage" mapstructure:"storage"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache"`
	HTTP           HTTPConfig           `yaml:"http" mapstructure:"http"`
	Logging        LoggingConfig        `yaml:"logging" mapstructure:"logging"`
}

// LLMConfig selects and tunes the language model provider
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds, per call
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Concurrency       int     `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// SearchConfig tunes the grounding search capability
type SearchConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	MaxResults        int           `yaml:"max_results" mapstructure:"max_results"`
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Concurrency       int           `yaml:"concurrency" mapstructure:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// SourcesConfig lists every configured content source
type SourcesConfig struct {
	HackerNews HackerNewsConfig `yaml:"hackernews" mapstructure:"hackernews"`
	RSS        []RSSFeedConfig  `yaml:"rss" mapstructure:"rss"`
	Reddit     RedditConfig     `yaml:"reddit" mapstructure:"reddit"`
	Telegram   TelegramConfig   `yaml:"telegram" mapstructure:"telegram"`
	GitHub     GitHubConfig     `yaml:"github" mapstructure:"github"`
}

// HackerNewsConfig configures the Hacker News source
type HackerNewsConfig struct {
	Enabled         bool `yaml:"enabled" mapstructure:"enabled"`
	FetchTopStories int  `yaml:"fetch_top_stories" mapstructure:"fetch_top_stories"`
	MinScore        int  `yaml:"min_score" mapstructure:"min_score"`
	FetchComments   int  `yaml:"fetch_comments" mapstructure:"fetch_comments"`
}

// RSSFeedConfig configures one RSS/Atom feed
type RSSFeedConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	URL      string `yaml:"url" mapstructure:"url"` // ${VAR} references are expanded from the environment
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
	Category string `yaml:"category,omitempty" mapstructure:"category"`
}

// RedditConfig configures subreddits and users to follow
type RedditConfig struct {
	Enabled       bool                    `yaml:"enabled" mapstructure:"enabled"`
	Subreddits    []RedditSubredditConfig `yaml:"subreddits" mapstructure:"subreddits"`
	Users         []RedditUserConfig      `yaml:"users" mapstructure:"users"`
	FetchComments int                     `yaml:"fetch_comments" mapstructure:"fetch_comments"`
}

// RedditSubredditConfig configures one subreddit
type RedditSubredditConfig struct {
	Subreddit  string `yaml:"subreddit" mapstructure:"subreddit"`
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	Sort       string `yaml:"sort" mapstructure:"sort"`               // hot, new, top, rising
	TimeFilter string `yaml:"time_filter" mapstructure:"time_filter"` // only for top
	FetchLimit int    `yaml:"fetch_limit" mapstructure:"fetch_limit"`
	MinScore   int    `yaml:"min_score" mapstructure:"min_score"`
}

// RedditUserConfig configures one Reddit user
type RedditUserConfig struct {
	Username   string `yaml:"username" mapstructure:"username"`
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	FetchLimit int    `yaml:"fetch_limit" mapstructure:"fetch_limit"`
}

// TelegramConfig configures public channels read through the web preview
type TelegramConfig struct {
	Enabled  bool                    `yaml:"enabled" mapstructure:"enabled"`
	Channels []TelegramChannelConfig `yaml:"channels" mapstructure:"channels"`
}

// TelegramChannelConfig configures one channel
type TelegramChannelConfig struct {
	Channel    string `yaml:"channel" mapstructure:"channel"`
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	FetchLimit int    `yaml:"fetch_limit" mapstructure:"fetch_limit"`
}

// GitHubConfig configures followed users and repositories
type GitHubConfig struct {
	Token   string               `yaml:"token,omitempty" mapstructure:"token"`
	Sources []GitHubSourceConfig `yaml:"sources" mapstructure:"sources"`
}

// GitHubSourceConfig is either a user event stream or a repository release feed
type GitHubSourceConfig struct {
	Type     string `yaml:"type" mapstructure:"type"` // user_events, repo_releases
	Username string `yaml:"username,omitempty" mapstructure:"username"`
	Owner    string `yaml:"owner,omitempty" mapstructure:"owner"`
	Repo     string `yaml:"repo,omitempty" mapstructure:"repo"`
	Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
}

// FilteringConfig controls the lookback window and the score threshold
type FilteringConfig struct {
	ScoreThreshold  float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
	TimeWindowHours int     `yaml:"time_window_hours" mapstructure:"time_window_hours"`
}

// ScoringConfig controls batching and the retry policy of the scoring stage
type ScoringConfig struct {
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Topic       string        `yaml:"topic" mapstructure:"topic"`
}

// EnrichmentConfig controls the two-pass enrichment stage
type EnrichmentConfig struct {
	Enabled     bool    `yaml:"enabled" mapstructure:"enabled"`
	Concurrency int     `yaml:"concurrency" mapstructure:"concurrency"`
	MaxConcepts int     `yaml:"max_concepts" mapstructure:"max_concepts"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// RecommendationConfig controls source recommendations
type RecommendationConfig struct {
	Enabled          bool    `yaml:"enabled" mapstructure:"enabled"`
	MinScore         float64 `yaml:"min_score" mapstructure:"min_score"`
	MinEvidence      int     `yaml:"min_evidence" mapstructure:"min_evidence"`
	ConfidenceCutoff float64 `yaml:"confidence_cutoff" mapstructure:"confidence_cutoff"`
	TopAuthors       int     `yaml:"top_authors" mapstructure:"top_authors"`
	MaxItems         int     `yaml:"max_items" mapstructure:"max_items"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	Topic            string  `yaml:"topic" mapstructure:"topic"`
}

// DedupConfig controls cross-source merging
type DedupConfig struct {
	SourcePriority []string `yaml:"source_priority" mapstructure:"source_priority"` // First wins as merge primary
}

// StorageConfig locates the state database and rendered reports
type StorageConfig struct {
	Path      string `yaml:"path" mapstructure:"path"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// CacheConfig controls the search result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig is shared by scrapers and search clients
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy       string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	priority := make([]string, 0, len(AllSourceTypes()))
	for _, t := range AllSourceTypes() {
		priority = append(priority, string(t))
	}

	return &Config{
		LLM: LLMConfig{
			Provider:          "openai",
			Model:             "gpt-4o-mini",
			Timeout:           60,
			MaxTokens:         4096,
			Concurrency:       4,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Search: SearchConfig{
			Enabled:           true,
			MaxResults:        3,
			Timeout:           15 * time.Second,
			Concurrency:       5,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Sources: SourcesConfig{
			HackerNews: HackerNewsConfig{
				Enabled:         true,
				FetchTopStories: 30,
				MinScore:        100,
				FetchComments:   5,
			},
			Reddit: RedditConfig{
				Enabled:       false,
				FetchComments: 5,
			},
		},
		Filtering: FilteringConfig{
			ScoreThreshold:  7.0,
			TimeWindowHours: 24,
		},
		Scoring: ScoringConfig{
			BatchSize:   10,
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Temperature: 0.3,
			Topic:       "software engineering, AI/ML, and systems research",
		},
		Enrichment: EnrichmentConfig{
			Enabled:     true,
			Concurrency: 3,
			MaxConcepts: 3,
			Temperature: 0.4,
		},
		Recommendation: RecommendationConfig{
			Enabled:          true,
			MinScore:         8.0,
			MinEvidence:      3,
			ConfidenceCutoff: 0.6,
			TopAuthors:       10,
			MaxItems:         20,
			Temperature:      0.4,
			Topic:            "software engineering, AI/ML, and systems research",
		},
		Dedup: DedupConfig{
			SourcePriority: priority,
		},
		Storage: StorageConfig{
			Path:      "data/horizon.db",
			OutputDir: "data/summaries",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "data/cache",
			MemoryTTL: time.Hour,
			DiskTTL:   24 * time.Hour,
		},
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Horizon/1.0 (content aggregator; +https://github.com/ppiankov/horizon)",
			RespectRobots: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate reports configuration errors that must abort a run
func (c *Config) Validate() error {
	if c.Filtering.ScoreThreshold < 0 || c.Filtering.ScoreThreshold > 10 {
		return fmt.Errorf("invalid filtering.score_threshold %.2f: must be between 0 and 10", c.Filtering.ScoreThreshold)
	}
	if c.Filtering.TimeWindowHours < 1 {
		return fmt.Errorf("invalid filtering.time_window_hours %d: must be >= 1", c.Filtering.TimeWindowHours)
	}
	if c.Scoring.BatchSize < 1 {
		return fmt.Errorf("invalid scoring.batch_size %d: must be >= 1", c.Scoring.BatchSize)
	}
	if c.Scoring.MaxAttempts < 1 {
		return fmt.Errorf("invalid scoring.max_attempts %d: must be >= 1", c.Scoring.MaxAttempts)
	}
	if c.Scoring.BaseDelay < 0 || c.Scoring.MaxDelay < c.Scoring.BaseDelay {
		return fmt.Errorf("invalid scoring backoff: base %v, cap %v", c.Scoring.BaseDelay, c.Scoring.MaxDelay)
	}
	if c.Recommendation.ConfidenceCutoff < 0 || c.Recommendation.ConfidenceCutoff > 1 {
		return fmt.Errorf("invalid recommendation.confidence_cutoff %.2f: must be between 0 and 1", c.Recommendation.ConfidenceCutoff)
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "openai", "anthropic", "claude", "ollama":
	default:
		return fmt.Errorf("unknown llm.provider %q (supported: openai, anthropic, ollama)", c.LLM.Provider)
	}

	for _, name := range c.Dedup.SourcePriority {
		if !SourceType(name).Valid() {
			return fmt.Errorf("unknown source type %q in dedup.source_priority", name)
		}
	}

	if !c.Sources.AnyEnabled() {
		return ErrNoSources
	}

	return nil
}

// AnyEnabled reports whether at least one source would be fetched
func (s SourcesConfig) AnyEnabled() bool {
	if s.HackerNews.Enabled {
		return true
	}
	for _, f := range s.RSS {
		if f.Enabled {
			return true
		}
	}
	if s.Reddit.Enabled {
		for _, sub := range s.Reddit.Subreddits {
			if sub.Enabled {
				return true
			}
		}
		for _, u := range s.Reddit.Users {
			if u.Enabled {
				return true
			}
		}
	}
	if s.Telegram.Enabled {
		for _, ch := range s.Telegram.Channels {
			if ch.Enabled {
				return true
			}
		}
	}
	for _, g := range s.GitHub.Sources {
		if g.Enabled {
			return true
		}
	}
	return false
}

// Priority converts the configured merge priority into source types
func (d DedupConfig) Priority() []SourceType {
	out := make([]SourceType, 0, len(d.SourcePriority))
	for _, name := range d.SourcePriority {
		out = append(out, SourceType(strings.ToLower(name)))
	}
	return out
}
