package plugins

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockPlugin is a test plugin for testing the registry
type mockPlugin struct {
	name      string
	priority  int
	canHandle func(string) bool
	resolve   func(context.Context, string) (*SourceInfo, error)
}

func (p *mockPlugin) Name() string { return p.name }

func (p *mockPlugin) CanHandle(rawURL string) bool {
	if p.canHandle != nil {
		return p.canHandle(rawURL)
	}
	return false
}

func (p *mockPlugin) Resolve(ctx context.Context, rawURL string) (*SourceInfo, error) {
	if p.resolve != nil {
		return p.resolve(ctx, rawURL)
	}
	return &SourceInfo{OriginalURL: rawURL, FeedURL: rawURL, Title: "Mock Source"}, nil
}

func (p *mockPlugin) Priority() int { return p.priority }

func matches(target string) func(string) bool {
	return func(u string) bool { return u == target }
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry()
	assert.NotNil(t, registry)
	assert.Empty(t, registry.ListPlugins())

	withPlugins := NewRegistry(&mockPlugin{name: "a"}, &mockPlugin{name: "b"})
	assert.Len(t, withPlugins.ListPlugins(), 2)
}

func TestRegistry_FindPlugin(t *testing.T) {
	low := &mockPlugin{name: "low-priority", priority: 10, canHandle: matches("http://example.com")}
	high := &mockPlugin{name: "high-priority", priority: 100, canHandle: matches("http://example.com")}
	other := &mockPlugin{name: "different-url", priority: 200, canHandle: matches("http://other.com")}

	registry := NewRegistry(low, high, other)

	t.Run("finds highest priority plugin", func(t *testing.T) {
		assert.Equal(t, high, registry.FindPlugin("http://example.com"))
	})

	t.Run("finds specific plugin", func(t *testing.T) {
		assert.Equal(t, other, registry.FindPlugin("http://other.com"))
	})

	t.Run("returns nil for no matching plugin", func(t *testing.T) {
		assert.Nil(t, registry.FindPlugin("http://nomatch.com"))
	})
}

func TestRegistry_Resolve(t *testing.T) {
	t.Run("with matching plugin", func(t *testing.T) {
		registry := NewRegistry(&mockPlugin{
			name:      "test",
			priority:  50,
			canHandle: matches("http://test.com"),
			resolve: func(_ context.Context, rawURL string) (*SourceInfo, error) {
				return &SourceInfo{
					OriginalURL: rawURL,
					FeedURL:     "http://test.com/feed.xml",
					Title:       "Resolved Title",
					Metadata:    map[string]string{"plugin": "test"},
				}, nil
			},
		})

		result, err := registry.Resolve(context.Background(), "http://test.com")

		require.NoError(t, err)
		assert.Equal(t, "http://test.com", result.OriginalURL)
		assert.Equal(t, "http://test.com/feed.xml", result.FeedURL)
		assert.Equal(t, "Resolved Title", result.Title)
		assert.Equal(t, "test", result.Metadata["plugin"])
	})

	t.Run("without matching plugin", func(t *testing.T) {
		result, err := NewRegistry().Resolve(context.Background(), "http://nomatch.com")

		require.NoError(t, err)
		assert.Equal(t, "http://nomatch.com", result.FeedURL)
		assert.Equal(t, "", result.Title)
		assert.NotNil(t, result.Metadata)
	})

	t.Run("plugin error is returned", func(t *testing.T) {
		boom := errors.New("boom")
		registry := NewRegistry(&mockPlugin{
			name:      "failing",
			canHandle: matches("http://fail.com"),
			resolve: func(context.Context, string) (*SourceInfo, error) {
				return nil, boom
			},
		})

		_, err := registry.Resolve(context.Background(), "http://fail.com")
		assert.ErrorIs(t, err, boom)
	})
}

func TestRegistry_ListPlugins(t *testing.T) {
	plugin1 := &mockPlugin{name: "zeta", priority: 10}
	plugin2 := &mockPlugin{name: "alpha", priority: 20}
	registry := NewRegistry(plugin1, plugin2)

	plugins := registry.ListPlugins()

	require.Len(t, plugins, 2)
	assert.Equal(t, "alpha", plugins[0].Name())

	// Modifying the returned slice does not affect the registry.
	plugins[0] = nil
	assert.NotNil(t, registry.ListPlugins()[0])
}
