package builtin

import (
	"context"
	"strings"

	"github.com/pders01/newspulse/internal/plugins"
)

const hnrssBase = "https://hnrss.org"

// HackerNewsPlugin points Hacker News pages at the hnrss.org mirror.
type HackerNewsPlugin struct{}

func NewHackerNewsPlugin() *HackerNewsPlugin {
	return &HackerNewsPlugin{}
}

func (p *HackerNewsPlugin) Name() string {
	return "hackernews"
}

func (p *HackerNewsPlugin) CanHandle(rawURL string) bool {
	return strings.Contains(rawURL, "://news.ycombinator.com")
}

func (p *HackerNewsPlugin) Priority() int {
	return 50
}

func (p *HackerNewsPlugin) Resolve(_ context.Context, rawURL string) (*plugins.SourceInfo, error) {
	page := "frontpage"
	title := "Hacker News"
	switch {
	case strings.Contains(rawURL, "/newest"):
		page, title = "newest", "Hacker News - Newest"
	case strings.Contains(rawURL, "/ask"):
		page, title = "ask", "Hacker News - Ask HN"
	case strings.Contains(rawURL, "/show"):
		page, title = "show", "Hacker News - Show HN"
	}

	return &plugins.SourceInfo{
		OriginalURL: rawURL,
		FeedURL:     hnrssBase + "/" + page,
		Title:       title,
		Metadata:    map[string]string{"plugin": p.Name(), "page": page},
	}, nil
}
