package builtin

import (
	"context"
	"strings"

	"github.com/pders01/newspulse/internal/plugins"
)

// RedditPlugin turns subreddit URLs into their RSS feeds.
type RedditPlugin struct{}

func NewRedditPlugin() *RedditPlugin {
	return &RedditPlugin{}
}

func (p *RedditPlugin) Name() string {
	return "reddit"
}

func (p *RedditPlugin) CanHandle(rawURL string) bool {
	return strings.Contains(rawURL, "://www.reddit.com/r/") ||
		strings.Contains(rawURL, "://reddit.com/r/") ||
		strings.Contains(rawURL, "://old.reddit.com/r/")
}

func (p *RedditPlugin) Priority() int {
	return 50
}

// Resolve appends .rss to the subreddit path.
func (p *RedditPlugin) Resolve(_ context.Context, rawURL string) (*plugins.SourceInfo, error) {
	base := strings.TrimSuffix(rawURL, "/")
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = strings.TrimSuffix(base[:i], "/")
	}
	feedURL := base
	if !strings.HasSuffix(feedURL, ".rss") {
		feedURL += ".rss"
	}

	subreddit := "unknown"
	if parts := strings.SplitN(base, "/r/", 2); len(parts) == 2 {
		subreddit = strings.TrimSuffix(strings.Split(parts[1], "/")[0], ".rss")
	}

	return &plugins.SourceInfo{
		OriginalURL: rawURL,
		FeedURL:     feedURL,
		Title:       "Reddit - r/" + subreddit,
		Metadata: map[string]string{
			"plugin":    p.Name(),
			"subreddit": subreddit,
		},
	}, nil
}
