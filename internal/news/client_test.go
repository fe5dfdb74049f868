package news

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pders01/newspulse/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.TestConfig()
	cfg.API.SearchURL = srv.URL
	cfg.API.HistoryURL = srv.URL
	return NewClient(cfg)
}

func TestClient_FetchNews(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantItems []Item
		wantErr   error
	}{
		{
			name:      "one item",
			status:    http.StatusOK,
			body:      `[{"id":"1","title":"T","content":"C"}]`,
			wantItems: []Item{{ID: "1", Title: "T", Content: "C"}},
		},
		{
			name:      "empty array",
			status:    http.StatusOK,
			body:      `[]`,
			wantItems: []Item{},
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: ErrSearchStatus,
		},
		{
			name:    "not found",
			status:  http.StatusNotFound,
			wantErr: ErrSearchStatus,
		},
		{
			name:    "object body",
			status:  http.StatusOK,
			body:    `{"error":"bad"}`,
			wantErr: ErrSearchFormat,
		},
		{
			name:    "null body",
			status:  http.StatusOK,
			body:    `null`,
			wantErr: ErrSearchFormat,
		},
		{
			name:      "numeric id",
			status:    http.StatusOK,
			body:      `[{"id":1,"title":"T","content":"C"}]`,
			wantItems: []Item{{ID: "1", Title: "T", Content: "C"}},
		},
		{
			name:      "scalar and partial elements",
			status:    http.StatusOK,
			body:      `[3, "x", null, {"title":"Only title","content":{"nested":true}}]`,
			wantItems: []Item{{}, {}, {}, {Title: "Only title"}},
		},
		{
			name:    "invalid json",
			status:  http.StatusOK,
			body:    `[{"id":`,
			wantErr: ErrSearchFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/api/get-news", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.Equal(t, "newspulse-test/1.0", r.Header.Get("User-Agent"))

				var req map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, map[string]string{"topic": "space"}, req)

				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			items, err := client.FetchNews(context.Background(), "space")
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "expected %v, got %v", tt.wantErr, err)
				assert.Nil(t, items)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, items)
		})
	}
}

func TestClient_FetchNews_StatusErrorCarriesCode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.FetchNews(context.Background(), "space")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Status)
}

func TestClient_FetchNews_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	cfg := config.TestConfig()
	cfg.API.SearchURL = srv.URL
	client := NewClient(cfg)

	_, err := client.FetchNews(context.Background(), "space")
	assert.ErrorIs(t, err, ErrSearchStatus)
}

func TestClient_FetchNews_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchNews(ctx, "space")
	assert.ErrorIs(t, err, ErrSearchStatus)
}

func TestClient_RecordHistory(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/history", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, client.RecordHistory(context.Background(), "climate change"))
	assert.Equal(t, map[string]string{"topic": "climate change"}, got)
}

func TestClient_RecordHistory_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.RecordHistory(context.Background(), "climate")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHistoryStatus)
	assert.NotErrorIs(t, err, ErrSearchStatus)
}

func TestClient_RecentHistory(t *testing.T) {
	when := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_ = json.NewEncoder(w).Encode([]HistoryEntry{{ID: "h1", Topic: "space", SearchedAt: when}})
	})

	entries, err := client.RecentHistory(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "space", entries[0].Topic)
	assert.True(t, entries[0].SearchedAt.Equal(when))
}

func TestClient_ClearHistory(t *testing.T) {
	var method, path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.ClearHistory(context.Background()))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/api/history", path)
}

func TestClient_ClearHistory_Failure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.ClearHistory(context.Background())

	assert.ErrorIs(t, err, ErrHistoryStatus)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Status)
}
