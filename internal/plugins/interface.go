package plugins

import (
	"context"
	"sort"
	"sync"
)

// SourceInfo describes the feed behind a user-supplied news source URL.
type SourceInfo struct {
	// Original URL that was supplied
	OriginalURL string
	// FeedURL is the RSS or Atom endpoint to poll
	FeedURL string
	// Title is a readable source name, e.g. "Reddit - r/worldnews"
	Title string
	// Metadata holds plugin specific details
	Metadata map[string]string
}

// Plugin resolves URLs of one news site to its feed endpoint.
type Plugin interface {
	Name() string

	// CanHandle reports whether the plugin understands rawURL.
	CanHandle(rawURL string) bool

	// Resolve maps rawURL to its feed.
	Resolve(ctx context.Context, rawURL string) (*SourceInfo, error)

	// Priority orders plugins that handle the same URL; higher wins.
	Priority() int
}

// Registry holds the available plugins. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
}

func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{}
	for _, p := range plugins {
		r.Register(p)
	}
	return r
}

func (r *Registry) Register(plugin Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, plugin)
}

// FindPlugin returns the highest priority plugin that can handle rawURL, or
// nil.
func (r *Registry) FindPlugin(rawURL string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best Plugin
	highest := -1
	for _, p := range r.plugins {
		if p.CanHandle(rawURL) && p.Priority() > highest {
			best = p
			highest = p.Priority()
		}
	}
	return best
}

// Resolve maps rawURL through the best plugin. URLs no plugin handles are
// returned unchanged with an empty title.
func (r *Registry) Resolve(ctx context.Context, rawURL string) (*SourceInfo, error) {
	plugin := r.FindPlugin(rawURL)
	if plugin == nil {
		return &SourceInfo{
			OriginalURL: rawURL,
			FeedURL:     rawURL,
			Metadata:    make(map[string]string),
		}, nil
	}
	return plugin.Resolve(ctx, rawURL)
}

// ListPlugins returns the registered plugins ordered by name.
func (r *Registry) ListPlugins() []Plugin {
	r.mu.RLock()
	out := append([]Plugin(nil), r.plugins...)
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
