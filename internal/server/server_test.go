package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/feed"
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/search"
	"github.com/pders01/newspulse/internal/storage"
)

type stubSearcher struct {
	items []news.Item
	err   error
	topic string
	limit int
}

func (s *stubSearcher) Search(topic string, limit int) ([]news.Item, error) {
	s.topic = topic
	s.limit = limit
	return s.items, s.err
}

func newTestServer(t *testing.T, searcher search.Searcher) (*Server, *storage.Store) {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return New(config.TestConfig(), store, searcher, nil), store
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestHealth_ReportsLastRefresh(t *testing.T) {
	s, store := newTestServer(t, nil)
	require.NoError(t, store.SetMeta(feed.LastRefreshKey, "2025-05-01T08:00:00Z"))

	rec := do(t, s, http.MethodGet, "/health", "")

	assert.JSONEq(t, `{"status":"ok","last_refresh":"2025-05-01T08:00:00Z"}`, rec.Body.String())
}

func TestGetNews(t *testing.T) {
	stub := &stubSearcher{items: []news.Item{{ID: "1", Title: "T", Content: "C"}}}
	s, _ := newTestServer(t, stub)

	rec := do(t, s, http.MethodPost, "/api/get-news", `{"topic":"  space  "}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":"1","title":"T","content":"C"}]`, rec.Body.String())
	assert.Equal(t, "space", stub.topic)
	assert.Equal(t, 10, stub.limit)
}

func TestGetNews_EmptyIsArray(t *testing.T) {
	tests := []struct {
		name     string
		searcher search.Searcher
	}{
		{name: "no searcher", searcher: nil},
		{name: "nil result", searcher: &stubSearcher{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestServer(t, tt.searcher)

			rec := do(t, s, http.MethodPost, "/api/get-news", `{"topic":"space"}`)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, `[]`, rec.Body.String())
		})
	}
}

func TestGetNews_BadRequests(t *testing.T) {
	s, _ := newTestServer(t, &stubSearcher{})

	for _, body := range []string{`{"topic":"   "}`, `{}`, `not json`} {
		rec := do(t, s, http.MethodPost, "/api/get-news", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestGetNews_SearchFailure(t *testing.T) {
	s, _ := newTestServer(t, &stubSearcher{err: errors.New("index closed")})

	rec := do(t, s, http.MethodPost, "/api/get-news", `{"topic":"space"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "search failed")
}

func TestGetNews_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/get-news", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistory_RecordAndList(t *testing.T) {
	s, store := newTestServer(t, nil)
	when := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return when }

	rec := do(t, s, http.MethodPost, "/api/history", `{"topic":"climate"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry storage.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	assert.Equal(t, "climate", entry.Topic)
	assert.NotEmpty(t, entry.ID)
	assert.True(t, entry.SearchedAt.Equal(when))

	do(t, s, http.MethodPost, "/api/history", `{"topic":"space"}`)

	stored, err := store.RecentHistory(0)
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	rec = do(t, s, http.MethodGet, "/api/history?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []news.HistoryEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "space", listed[0].Topic)
}

func TestHistory_ListEmpty(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s, http.MethodGet, "/api/history", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHistory_RejectsEmptyTopic(t *testing.T) {
	s, store := newTestServer(t, nil)

	rec := do(t, s, http.MethodPost, "/api/history", `{"topic":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	entries, _ := store.RecentHistory(0)
	assert.Empty(t, entries)
}

func TestHistory_Clear(t *testing.T) {
	s, store := newTestServer(t, nil)
	do(t, s, http.MethodPost, "/api/history", `{"topic":"climate"}`)

	rec := do(t, s, http.MethodDelete, "/api/history", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	entries, err := store.RecentHistory(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClampInt(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 20},
		{"5", 5},
		{"0", 20},
		{"-3", 20},
		{"abc", 20},
		{"9999", maxHistoryLimit},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampInt(tt.raw, 20, maxHistoryLimit), tt.raw)
	}
}

func TestNewsClientAgainstServer(t *testing.T) {
	stub := &stubSearcher{items: []news.Item{{ID: "x", Title: "Mars", Content: "Rover"}}}
	s, _ := newTestServer(t, stub)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	cfg := config.TestConfig()
	cfg.API.SearchURL = ts.URL
	cfg.API.HistoryURL = ts.URL
	client := news.NewClient(cfg)

	items, err := client.FetchNews(context.Background(), "mars")
	require.NoError(t, err)
	assert.Equal(t, stub.items, items)

	require.NoError(t, client.RecordHistory(context.Background(), "mars"))

	entries, err := client.RecentHistory(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "mars", entries[0].Topic)
}

func TestListenAndServe_Shutdown(t *testing.T) {
	s, _ := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s.cfg.Server.Addr = ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + s.cfg.Server.Addr + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestStartFeeds_PrunesWhenNoFeedsConfigured(t *testing.T) {
	s, store := newTestServer(t, nil)
	require.NoError(t, store.SaveSource(&storage.Source{ID: "stale", URL: "http://127.0.0.1:1/stale"}))
	require.NoError(t, store.SaveArticles([]*storage.Article{{ID: "old", SourceID: "stale", Title: "Old"}}))

	s.cfg.Server.Feeds = nil
	s.manager = feed.NewManager(store, s.cfg, nil)

	g, ctx := errgroup.WithContext(context.Background())
	s.startFeeds(ctx, g)
	require.NoError(t, g.Wait())

	sources, err := store.AllSources()
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = store.GetArticle("old")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
