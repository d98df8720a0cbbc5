package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ppiankov/horizon/internal/retry"
	"github.com/ppiankov/horizon/internal/util"
	"github.com/ppiankov/horizon/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a URL
var ErrDisallowed = errors.New("disallowed by robots.txt")

// defaultMaxBytes bounds every response body read by a scraper
const defaultMaxBytes = 5 << 20

// Fetcher performs polite GET requests on behalf of the scrapers: a per-host
// rate limit, an optional robots.txt check, and retries on transient statuses.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	limiter    *worker.Limiter
	robots     *util.RobotsChecker
	retry      retry.Policy
	logger     *slog.Logger
	headers    map[string]string
}

// FetcherOptions configures a Fetcher. Zero values select defaults.
type FetcherOptions struct {
	UserAgent string
	MaxBytes  int64
	Limiter   *worker.Limiter     // per-host; nil means unlimited
	Robots    *util.RobotsChecker // nil disables robots.txt checks
	Retry     *retry.Policy
	Logger    *slog.Logger
}

// NewFetcher wraps client. Redirect chains longer than 3 are refused.
func NewFetcher(client *http.Client, opts FetcherOptions) *Fetcher {
	if client == nil {
		client = util.NewHTTPClient(30*time.Second, "", "", "")
	}
	c := *client
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 3 {
			return fmt.Errorf("stopped after 3 redirects")
		}
		return nil
	}

	policy := retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	if opts.Retry != nil {
		policy = *opts.Retry
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = defaultMaxBytes
	}
	if opts.Limiter == nil {
		opts.Limiter = worker.NewLimiter(0, 1)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Fetcher{
		httpClient: &c,
		userAgent:  opts.UserAgent,
		maxBytes:   opts.MaxBytes,
		limiter:    opts.Limiter,
		robots:     opts.Robots,
		retry:      policy,
		logger:     opts.Logger,
		headers:    make(map[string]string),
	}
}

// WithHeader returns a copy of f that sends an extra header on every request
func (f *Fetcher) WithHeader(key, value string) *Fetcher {
	clone := *f
	clone.headers = make(map[string]string, len(f.headers)+1)
	for k, v := range f.headers {
		clone.headers[k] = v
	}
	clone.headers[key] = value
	return &clone
}

// Get retrieves rawURL and returns the body. 429 and 5xx responses are
// retried; other non-2xx statuses fail immediately.
func (f *Fetcher) Get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if f.robots != nil {
		allowed, err := f.robots.Allowed(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}

	policy := f.retry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		f.logger.Debug("fetch failed, retrying", "url", rawURL, "attempt", attempt, "delay", delay, "error", err)
	}

	var body []byte
	err := policy.Do(ctx, func(ctx context.Context, _ int) error {
		var err error
		body, err = f.get(ctx, rawURL, accept)
		return err
	})
	return body, err
}

func (f *Fetcher) get(ctx context.Context, rawURL, accept string) ([]byte, error) {
	if err := f.limiter.WaitURL(ctx, rawURL); err != nil {
		return nil, retry.Permanent(fmt.Errorf("rate limit: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status: %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// GetJSON retrieves rawURL and decodes the JSON body into v
func (f *Fetcher) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := f.Get(ctx, rawURL, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}
