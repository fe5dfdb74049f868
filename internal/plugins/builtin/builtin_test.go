package builtin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Resolve(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantFeed  string
		wantTitle string
		plugin    string
	}{
		{
			name:      "subreddit",
			input:     "https://www.reddit.com/r/worldnews/",
			wantFeed:  "https://www.reddit.com/r/worldnews.rss",
			wantTitle: "Reddit - r/worldnews",
			plugin:    "reddit",
		},
		{
			name:      "subreddit with query",
			input:     "https://reddit.com/r/science?sort=new",
			wantFeed:  "https://reddit.com/r/science.rss",
			wantTitle: "Reddit - r/science",
			plugin:    "reddit",
		},
		{
			name:      "subreddit already rss",
			input:     "https://old.reddit.com/r/space.rss",
			wantFeed:  "https://old.reddit.com/r/space.rss",
			wantTitle: "Reddit - r/space",
			plugin:    "reddit",
		},
		{
			name:      "google news search",
			input:     "https://news.google.com/search?q=climate&hl=en-US",
			wantFeed:  "https://news.google.com/rss/search?q=climate&hl=en-US",
			wantTitle: "Google News - climate",
			plugin:    "googlenews",
		},
		{
			name:      "google news rss passthrough",
			input:     "https://news.google.com/rss/search?q=mars",
			wantFeed:  "https://news.google.com/rss/search?q=mars",
			wantTitle: "Google News - mars",
			plugin:    "googlenews",
		},
		{
			name:      "hacker news front page",
			input:     "https://news.ycombinator.com/",
			wantFeed:  "https://hnrss.org/frontpage",
			wantTitle: "Hacker News",
			plugin:    "hackernews",
		},
		{
			name:      "hacker news newest",
			input:     "https://news.ycombinator.com/newest",
			wantFeed:  "https://hnrss.org/newest",
			wantTitle: "Hacker News - Newest",
			plugin:    "hackernews",
		},
		{
			name:     "unknown site",
			input:    "https://example.com/feed.xml",
			wantFeed: "https://example.com/feed.xml",
		},
	}

	registry := Registry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := registry.Resolve(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.input, info.OriginalURL)
			assert.Equal(t, tt.wantFeed, info.FeedURL)
			assert.Equal(t, tt.wantTitle, info.Title)
			assert.Equal(t, tt.plugin, info.Metadata["plugin"])
		})
	}
}

func TestRegistry_ListsBuiltins(t *testing.T) {
	var names []string
	for _, p := range Registry().ListPlugins() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"googlenews", "hackernews", "reddit"}, names)
}
