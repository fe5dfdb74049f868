package builtin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/pders01/newspulse/internal/plugins"
)

const googleNewsHost = "news.google.com"

// GoogleNewsPlugin maps Google News search and topic pages to their RSS
// endpoints.
type GoogleNewsPlugin struct{}

func NewGoogleNewsPlugin() *GoogleNewsPlugin {
	return &GoogleNewsPlugin{}
}

func (p *GoogleNewsPlugin) Name() string {
	return "googlenews"
}

func (p *GoogleNewsPlugin) CanHandle(rawURL string) bool {
	u, err := url.Parse(rawURL)
	return err == nil && u.Host == googleNewsHost
}

func (p *GoogleNewsPlugin) Priority() int {
	return 50
}

func (p *GoogleNewsPlugin) Resolve(_ context.Context, rawURL string) (*plugins.SourceInfo, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}

	path := strings.TrimPrefix(u.Path, "/rss")
	title := "Google News"
	meta := map[string]string{"plugin": p.Name()}

	if q := u.Query().Get("q"); q != "" {
		title = "Google News - " + q
		meta["query"] = q
	}

	feed := url.URL{Scheme: "https", Host: googleNewsHost, Path: "/rss" + path, RawQuery: u.RawQuery}
	return &plugins.SourceInfo{
		OriginalURL: rawURL,
		FeedURL:     feed.String(),
		Title:       title,
		Metadata:    meta,
	}, nil
}
