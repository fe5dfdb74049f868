package storage

import (
	"time"
)

// HistoryEntry is one logged search.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	SearchedAt time.Time `json:"searched_at"`
}

// Source is a configured news feed together with its conditional-GET state.
type Source struct {
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ETag         string    `json:"etag"`
	LastModified string    `json:"last_modified"`
	LastFetched  time.Time `json:"last_fetched"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Article is a feed entry served by the local search endpoint.
type Article struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url"`
	Published time.Time `json:"published"`
}
