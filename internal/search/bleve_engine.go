package search

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/pders01/newspulse/internal/debuglog"
	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/storage"
)

// BleveEngine is a full-text index over stored articles.
type BleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens the index at indexPath and indexes the
// articles already in store. An empty indexPath keeps the index in memory.
func NewBleveEngine(store *storage.Store, indexPath string) (*BleveEngine, error) {
	var idx bleve.Index
	var err error

	if indexPath == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating index: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(indexPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating index directory: %w", err)
		}
		idx, err = bleve.Open(indexPath)
		if err != nil {
			idx, err = bleve.New(indexPath, buildIndexMapping())
			if err != nil {
				return nil, fmt.Errorf("creating index: %w", err)
			}
		}
	}

	be := &BleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		idx.Close()
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = true

	url := bleve.NewTextFieldMapping()
	url.Analyzer = standard.Name
	url.Store = true

	sourceID := bleve.NewKeywordFieldMapping()
	sourceID.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("url", url)
	dm.AddFieldMappingsAt("source_id", sourceID)

	im.DefaultMapping = dm
	return im
}

func (b *BleveEngine) reindexAll() error {
	articles, err := b.store.GetArticles("", 0)
	if err != nil {
		return fmt.Errorf("loading articles: %w", err)
	}
	return b.Index(articles)
}

// Index adds or replaces articles in the index.
func (b *BleveEngine) Index(articles []*storage.Article) error {
	batch := b.idx.NewBatch()
	for _, a := range articles {
		if err := batch.Index(a.ID, map[string]any{
			"title":     a.Title,
			"content":   a.Content,
			"url":       a.URL,
			"source_id": a.SourceID,
		}); err != nil {
			return fmt.Errorf("indexing %s: %w", a.ID, err)
		}
	}
	return b.idx.Batch(batch)
}

// Search runs an OR of per-term match and prefix queries with title hits
// boosted over content and URL hits.
func (b *BleveEngine) Search(topic string, limit int) ([]news.Item, error) {
	if len(strings.TrimSpace(topic)) < 2 {
		return []news.Item{}, nil
	}

	var qs []bleveQuery.Query
	for _, tok := range tokenize(topic) {
		qs = append(qs,
			fieldMatch(tok, "title", 4.0),
			fieldPrefix(tok, "title", 3.5),
			fieldMatch(tok, "content", 1.0),
			fieldPrefix(tok, "content", 0.8),
			fieldMatch(tok, "url", 0.5),
		)
	}
	if len(qs) == 0 {
		return []news.Item{}, nil
	}

	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(qs...), limit, 0, false)
	req.Fields = []string{"title", "content", "url"}
	res, err := b.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	items := make([]news.Item, 0, len(res.Hits))
	for _, h := range res.Hits {
		if a, err := b.store.GetArticle(h.ID); err == nil {
			items = append(items, itemFromArticle(a))
			continue
		}
		a := &storage.Article{ID: h.ID}
		a.Title, _ = h.Fields["title"].(string)
		a.Content, _ = h.Fields["content"].(string)
		a.URL, _ = h.Fields["url"].(string)
		items = append(items, itemFromArticle(a))
	}

	debuglog.WithFields(map[string]interface{}{
		"topic": topic,
		"hits":  len(items),
		"total": res.Total,
	}).Debugf("index search")
	return items, nil
}

// DeleteSource removes every indexed article of sourceID.
func (b *BleveEngine) DeleteSource(sourceID string) error {
	tq := bleve.NewTermQuery(sourceID)
	tq.SetField("source_id")

	const size = 1000
	for {
		req := bleve.NewSearchRequestOptions(tq, size, 0, false)
		res, err := b.idx.Search(req)
		if err != nil {
			return fmt.Errorf("finding source documents: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := b.idx.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := b.idx.Batch(batch); err != nil {
			return fmt.Errorf("deleting source documents: %w", err)
		}
		if len(res.Hits) < size {
			return nil
		}
	}
}

// DocCount reports total documents in the index.
func (b *BleveEngine) DocCount() (int, error) {
	n, err := b.idx.DocCount()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (b *BleveEngine) Close() error {
	return b.idx.Close()
}

func fieldMatch(term, field string, boost float64) bleveQuery.Query {
	q := bleve.NewMatchQuery(term)
	q.SetField(field)
	q.SetBoost(boost)
	return q
}

func fieldPrefix(term, field string, boost float64) bleveQuery.Query {
	q := bleve.NewPrefixQuery(strings.ToLower(term))
	q.SetField(field)
	q.SetBoost(boost)
	return q
}
