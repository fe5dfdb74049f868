package news

import (
	"bytes"
	"encoding/json"
	"time"
)

// Item is one search result as returned by the news search service.
type Item struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts any element of the results array. Fields that are
// not strings keep their literal JSON text when scalar and are empty
// otherwise; elements that are not objects decode to an empty Item.
func (it *Item) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		*it = Item{}
		return nil
	}
	*it = Item{
		ID:      textField(fields["id"]),
		Title:   textField(fields["title"]),
		Content: textField(fields["content"]),
	}
	return nil
}

func textField(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch v.(type) {
	case float64, bool:
		return string(bytes.TrimSpace(raw))
	default:
		return ""
	}
}

// HistoryEntry is one logged search as reported by the history service.
type HistoryEntry struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	SearchedAt time.Time `json:"searched_at"`
}

// topicRequest is the body of both the search and history requests.
type topicRequest struct {
	Topic string `json:"topic"`
}
