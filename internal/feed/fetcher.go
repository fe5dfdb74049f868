package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/storage"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryAfter = 15 * time.Minute
)

// ErrRateLimited is returned when a feed host answers 429.
var ErrRateLimited = errors.New("rate limited")

type Fetcher struct {
	client      *http.Client
	userAgent   string
	ignoreCache bool
	hosts       *hostLimiter
}

func NewFetcher(cfg *config.Config) *Fetcher {
	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		userAgent: cfg.API.UserAgent,
		hosts:     newHostLimiter(cfg.Server.HostInterval),
	}
}

// SetIgnoreCache disables conditional requests.
func (f *Fetcher) SetIgnoreCache(ignore bool) {
	f.ignoreCache = ignore
}

// Fetch issues a conditional GET for source. It returns (nil, false, nil)
// when the server answers 304.
func (f *Fetcher) Fetch(ctx context.Context, source *storage.Source) (*http.Response, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating request: %w", err)
	}

	if err := f.hosts.wait(ctx, req.URL); err != nil {
		return nil, false, fmt.Errorf("waiting for %s: %w", req.URL.Host, err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")

	if !f.ignoreCache {
		if source.ETag != "" {
			req.Header.Set("If-None-Match", source.ETag)
		}
		if source.LastModified != "" {
			req.Header.Set("If-Modified-Since", source.LastModified)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetching feed: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		return nil, false, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		wait := f.RetryAfter(resp)
		resp.Body.Close()
		return nil, false, fmt.Errorf("%w: retry after %s", ErrRateLimited, wait)
	}

	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, false, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	return resp, true, nil
}

func (f *Fetcher) UpdateSourceMetadata(source *storage.Source, resp *http.Response) {
	if etag := resp.Header.Get("ETag"); etag != "" {
		source.ETag = etag
	}
	if lastMod := resp.Header.Get("Last-Modified"); lastMod != "" {
		source.LastModified = lastMod
	}
	source.LastFetched = time.Now()
}

// RetryAfter reads a Retry-After header given in seconds.
func (f *Fetcher) RetryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// hostLimiter spaces requests to the same host. A nil limiter never waits.
type hostLimiter struct {
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiter(interval time.Duration) *hostLimiter {
	if interval <= 0 {
		return nil
	}
	return &hostLimiter{
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (h *hostLimiter) wait(ctx context.Context, u *url.URL) error {
	if h == nil {
		return nil
	}

	h.mu.Lock()
	limiter, ok := h.limiters[u.Host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(h.interval), 1)
		h.limiters[u.Host] = limiter
	}
	h.mu.Unlock()

	return limiter.Wait(ctx)
}
