package feed

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/plugins"
	"github.com/pders01/newspulse/internal/storage"
	"github.com/pders01/newspulse/internal/validation"
)

const (
	maxConcurrentRefresh = 5
	maxFeedSize          = 10 << 20
)

// LastRefreshKey is the store meta key holding the time of the last refresh
// pass, formatted as RFC 3339.
const LastRefreshKey = "last_refresh"

// Indexer receives freshly stored articles.
type Indexer interface {
	Index(articles []*storage.Article) error
}

// sourceDeleter is implemented by indexers that can drop a source's
// documents.
type sourceDeleter interface {
	DeleteSource(sourceID string) error
}

// SourceResolver maps site URLs to the feed behind them.
type SourceResolver interface {
	Resolve(ctx context.Context, rawURL string) (*plugins.SourceInfo, error)
}

// Manager keeps the configured feeds in the store and refreshes them.
type Manager struct {
	store     *storage.Store
	fetcher   *Fetcher
	parser    *Parser
	config    *config.Config
	validator *validation.EndpointValidator
	indexer   Indexer
	resolver  SourceResolver
	mu        sync.Mutex
}

func NewManager(store *storage.Store, cfg *config.Config, indexer Indexer) *Manager {
	return &Manager{
		store:     store,
		fetcher:   NewFetcher(cfg),
		parser:    NewParser(),
		config:    cfg,
		validator: validation.NewEndpointValidator(),
		indexer:   indexer,
	}
}

// SetForceRefresh configures the manager to ignore ETag/Last-Modified headers
// and the refresh interval.
func (m *Manager) SetForceRefresh(force bool) {
	m.fetcher.SetIgnoreCache(force)
}

// SetPermissiveValidation allows feeds on local and private addresses.
func (m *Manager) SetPermissiveValidation(permissive bool) {
	if permissive {
		m.validator = validation.NewPermissiveEndpointValidator()
	} else {
		m.validator = validation.NewEndpointValidator()
	}
}

// SetResolver installs the plugins used to turn site URLs into feed URLs.
func (m *Manager) SetResolver(r SourceResolver) {
	m.resolver = r
}

// AddSource registers rawURL as a source without fetching it. Adding an
// existing URL returns the stored source.
func (m *Manager) AddSource(rawURL string) (*storage.Source, error) {
	feedURL, title := rawURL, ""
	if m.resolver != nil {
		info, err := m.resolver.Resolve(context.Background(), rawURL)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", rawURL, err)
		}
		feedURL, title = info.FeedURL, info.Title
	}

	normalized, err := m.validator.ValidateAndNormalize(feedURL)
	if err != nil {
		return nil, fmt.Errorf("invalid feed URL: %w", err)
	}

	id := sourceID(normalized)
	if existing, err := m.store.GetSource(id); err == nil {
		return existing, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("getting source: %w", err)
	}

	if title == "" {
		title = hostOf(normalized)
	}
	source := &storage.Source{
		ID:        id,
		URL:       normalized,
		Title:     title,
		UpdatedAt: time.Now(),
	}
	if err := m.store.SaveSource(source); err != nil {
		return nil, fmt.Errorf("saving source: %w", err)
	}
	return source, nil
}

// SyncSources registers every configured feed and removes stored sources
// that are no longer configured. Invalid URLs are logged and skipped.
func (m *Manager) SyncSources() []error {
	var errs []error
	keep := make(map[string]bool, len(m.config.Server.Feeds))
	for _, raw := range m.config.Server.Feeds {
		source, err := m.AddSource(raw)
		if err != nil {
			debuglog.Warnf("skipping feed %q: %v", raw, err)
			errs = append(errs, fmt.Errorf("%s: %w", raw, err))
			continue
		}
		keep[source.ID] = true
	}

	if err := m.pruneSources(keep); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (m *Manager) pruneSources(keep map[string]bool) error {
	sources, err := m.store.AllSources()
	if err != nil {
		return fmt.Errorf("getting sources: %w", err)
	}

	for _, source := range sources {
		if keep[source.ID] {
			continue
		}
		if err := m.store.DeleteSource(source.ID); err != nil {
			return fmt.Errorf("removing %s: %w", source.URL, err)
		}
		if deleter, ok := m.indexer.(sourceDeleter); ok {
			if err := deleter.DeleteSource(source.ID); err != nil {
				debuglog.Warnf("unindexing %s: %v", source.URL, err)
			}
		}
		debuglog.Infof("removed unconfigured feed %s", source.URL)
	}
	return nil
}

// RefreshSource fetches one source if its refresh interval has elapsed and
// stores and indexes its articles.
func (m *Manager) RefreshSource(ctx context.Context, id string) error {
	return m.refreshSource(ctx, id, true)
}

func (m *Manager) refreshSource(ctx context.Context, id string, checkInterval bool) error {
	source, err := m.store.GetSource(id)
	if err != nil {
		return fmt.Errorf("getting source: %w", err)
	}

	if checkInterval && !m.fetcher.ignoreCache && time.Since(source.LastFetched) < m.config.Server.RefreshInterval {
		return nil
	}

	// LastFetched marks when the request went out, so fetch latency does not
	// push the next refresh back.
	started := time.Now()
	resp, updated, err := m.fetcher.Fetch(ctx, source)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", source.URL, err)
	}

	if !updated || resp == nil {
		source.LastFetched = started
		return m.save(source)
	}
	defer resp.Body.Close()

	parsed, err := m.parser.Parse(io.LimitReader(resp.Body, maxFeedSize), source.ID)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", source.URL, err)
	}

	m.fetcher.UpdateSourceMetadata(source, resp)
	source.LastFetched = started
	if parsed.Title != "" {
		source.Title = parsed.Title
	}
	source.UpdatedAt = time.Now()

	if err := m.save(source); err != nil {
		return err
	}
	if err := m.store.SaveArticles(parsed.Articles); err != nil {
		return fmt.Errorf("saving articles: %w", err)
	}

	if m.indexer != nil && len(parsed.Articles) > 0 {
		if err := m.indexer.Index(parsed.Articles); err != nil {
			debuglog.Warnf("indexing %s: %v", source.URL, err)
		}
	}

	debuglog.WithFields(map[string]interface{}{
		"source":   source.URL,
		"articles": len(parsed.Articles),
	}).Infof("feed refreshed")
	return nil
}

func (m *Manager) save(source *storage.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.SaveSource(source); err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// RefreshAll refreshes every stored source whose refresh interval has
// elapsed, with a bounded worker pool.
func (m *Manager) RefreshAll(ctx context.Context) error {
	return m.refreshAll(ctx, true)
}

func (m *Manager) refreshAll(ctx context.Context, checkInterval bool) error {
	sources, err := m.store.AllSources()
	if err != nil {
		return fmt.Errorf("getting sources: %w", err)
	}
	if len(sources) == 0 {
		return nil
	}

	sourceChan := make(chan *storage.Source, len(sources))
	errChan := make(chan error, len(sources))

	var wg sync.WaitGroup
	for i := 0; i < maxConcurrentRefresh && i < len(sources); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for source := range sourceChan {
				if ctx.Err() != nil {
					return
				}
				if err := m.refreshSource(ctx, source.ID, checkInterval); err != nil {
					errChan <- err
				}
			}
		}()
	}

	for _, source := range sources {
		sourceChan <- source
	}
	close(sourceChan)

	wg.Wait()
	close(errChan)

	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if err := m.store.SetMeta(LastRefreshKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		errs = append(errs, fmt.Errorf("recording refresh time: %w", err))
	}
	return errors.Join(errs...)
}

// Run refreshes all sources immediately and then every interval until ctx is
// done. The ticker sets the cadence, so ticks fetch every source regardless
// of LastFetched.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultRetryAfter
	}

	refresh := func(checkInterval bool) {
		if err := m.refreshAll(ctx, checkInterval); err != nil {
			debuglog.Warnf("feed refresh: %v", err)
		}
	}
	refresh(true)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh(false)
		}
	}
}

func sourceID(u string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(u)))
}

func hostOf(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return "Unknown Feed"
	}
	return parsed.Host
}
