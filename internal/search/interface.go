package search

import (
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/storage"
)

// Searcher answers topic queries with items ready to be served by the
// local /api/get-news endpoint.
type Searcher interface {
	Search(topic string, limit int) ([]news.Item, error)
}

// Indexer is implemented by engines that keep an external index and want
// to be told about newly stored articles.
type Indexer interface {
	Index(articles []*storage.Article) error
}

// DocCounter reports index size for the health endpoint.
type DocCounter interface {
	DocCount() (int, error)
}

// itemFromArticle projects a stored article onto the public item shape.
func itemFromArticle(a *storage.Article) news.Item {
	content := a.Content
	if content == "" {
		content = a.URL
	}
	return news.Item{
		ID:      a.ID,
		Title:   a.Title,
		Content: content,
	}
}
