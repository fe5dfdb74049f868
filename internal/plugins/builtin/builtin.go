// Package builtin provides source plugins for well-known news sites.
package builtin

import "github.com/pders01/newspulse/internal/plugins"

// Registry returns a registry with every built-in plugin.
func Registry() *plugins.Registry {
	return plugins.NewRegistry(
		NewRedditPlugin(),
		NewGoogleNewsPlugin(),
		NewHackerNewsPlugin(),
	)
}
