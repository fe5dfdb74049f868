package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pders01/newspulse/internal/config"
	"github.com/pders01/newspulse/internal/debuglog"
)

const (
	searchPath  = "/api/get-news"
	historyPath = "/api/history"

	// maxBodySize caps how much of a response body is read.
	maxBodySize = 8 << 20
)

// Client talks to the news search service and the history service.
type Client struct {
	client     *http.Client
	searchURL  string
	historyURL string
	userAgent  string
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		client: &http.Client{
			Timeout: cfg.API.Timeout,
		},
		searchURL:  cfg.API.SearchURL,
		historyURL: cfg.API.HistoryURL,
		userAgent:  cfg.API.UserAgent,
	}
}

// FetchNews asks the search service for articles about topic. A transport
// failure or non-2xx status yields ErrSearchStatus; a body that is not a
// JSON array yields ErrSearchFormat. Elements are not validated; see
// Item.UnmarshalJSON.
func (c *Client) FetchNews(ctx context.Context, topic string) ([]Item, error) {
	resp, err := c.postTopic(ctx, c.searchURL+searchPath, topic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchStatus, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: ErrSearchStatus, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrSearchStatus, err)
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, ErrSearchFormat
	}

	var items []Item
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFormat, err)
	}
	if items == nil {
		items = []Item{}
	}

	debuglog.WithFields(map[string]interface{}{
		"topic": topic,
		"count": len(items),
	}).Debugf("search completed")

	return items, nil
}

// RecordHistory logs a search topic with the history service.
func (c *Client) RecordHistory(ctx context.Context, topic string) error {
	resp, err := c.postTopic(ctx, c.historyURL+historyPath, topic)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryStatus, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: ErrHistoryStatus, Status: resp.StatusCode}
	}
	return nil
}

// ClearHistory deletes every recorded search.
func (c *Client) ClearHistory(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.historyURL+historyPath, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrHistoryStatus, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Op: ErrHistoryStatus, Status: resp.StatusCode}
	}
	return nil
}

// RecentHistory lists the most recent searches, newest first.
func (c *Client) RecentHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	endpoint := c.historyURL + historyPath
	if limit > 0 {
		endpoint += "?" + url.Values{"limit": {strconv.Itoa(limit)}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Op: ErrHistoryStatus, Status: resp.StatusCode}
	}

	var entries []HistoryEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decoding history: %w", err)
	}
	return entries, nil
}

func (c *Client) postTopic(ctx context.Context, endpoint, topic string) (*http.Response, error) {
	payload, err := json.Marshal(topicRequest{Topic: topic})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	return c.client.Do(req)
}
