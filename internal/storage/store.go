package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	historyBucket  = []byte("history")
	articlesBucket = []byte("articles")
	sourcesBucket  = []byte("sources")
	metaBucket     = []byte("metadata")
)

// ErrNotFound is returned when a keyed record does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *bolt.DB
}

// NewStore opens (or creates) the bbolt database at dbPath. A zero timeout
// falls back to one second.
func NewStore(dbPath string, timeout time.Duration) (*Store, error) {
	if timeout <= 0 {
		timeout = time.Second
	}
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{historyBucket, articlesBucket, sourcesBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AddHistory records a search for topic and returns the stored entry.
// Keys are big-endian sequence numbers so a reverse cursor walk yields the
// newest entries first.
func (s *Store) AddHistory(topic string, at time.Time) (*HistoryEntry, error) {
	entry := &HistoryEntry{
		ID:         uuid.NewString(),
		Topic:      topic,
		SearchedAt: at.UTC(),
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(historyBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), data)
	})
	if err != nil {
		return nil, fmt.Errorf("saving history: %w", err)
	}
	return entry, nil
}

// RecentHistory returns up to limit entries, newest first. A non-positive
// limit returns everything.
func (s *Store) RecentHistory(limit int) ([]*HistoryEntry, error) {
	entries := []*HistoryEntry{}
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(historyBucket).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(entries) >= limit {
				break
			}
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue
			}
			entries = append(entries, &entry)
		}
		return nil
	})
	return entries, err
}

// ClearHistory removes every history entry.
func (s *Store) ClearHistory() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(historyBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(historyBucket)
		return err
	})
}

func (s *Store) SaveSource(source *Source) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sourcesBucket)
		data, err := json.Marshal(source)
		if err != nil {
			return err
		}
		return b.Put([]byte(source.ID), data)
	})
}

func (s *Store) GetSource(id string) (*Source, error) {
	var source Source
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(sourcesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("source %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &source)
	})
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// AllSources returns every source sorted by title, falling back to URL.
func (s *Store) AllSources() ([]*Source, error) {
	var sources []*Source
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(sourcesBucket).ForEach(func(_ []byte, v []byte) error {
			var source Source
			if err := json.Unmarshal(v, &source); err != nil {
				return err
			}
			sources = append(sources, &source)
			return nil
		})
	})
	sort.Slice(sources, func(i, j int) bool {
		ti := sources[i].Title
		tj := sources[j].Title
		if ti == "" {
			ti = sources[i].URL
		}
		if tj == "" {
			tj = sources[j].URL
		}
		return strings.ToLower(ti) < strings.ToLower(tj)
	})
	return sources, err
}

// DeleteSource removes a source and all of its articles.
func (s *Store) DeleteSource(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(sourcesBucket).Delete([]byte(id)); err != nil {
			return err
		}

		// Deleting through the cursor while iterating skips keys, so collect first.
		b := tx.Bucket(articlesBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if article.SourceID == id {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveArticles(articles []*Article) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(articlesBucket)
		for _, article := range articles {
			data, err := json.Marshal(article)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(article.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) GetArticle(id string) (*Article, error) {
	var article Article
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(articlesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("article %s: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &article)
	})
	if err != nil {
		return nil, err
	}
	return &article, nil
}

// GetArticles returns articles of sourceID (all sources when empty), newest
// first, capped at limit when limit is positive.
func (s *Store) GetArticles(sourceID string, limit int) ([]*Article, error) {
	var articles []*Article
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(articlesBucket).ForEach(func(_ []byte, v []byte) error {
			var article Article
			if err := json.Unmarshal(v, &article); err != nil {
				return nil
			}
			if sourceID == "" || article.SourceID == sourceID {
				articles = append(articles, &article)
			}
			return nil
		})
	})
	sort.Slice(articles, func(i, j int) bool {
		return articles[i].Published.After(articles[j].Published)
	})
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, err
}

// SetMeta stores a small string value such as the last refresh time.
func (s *Store) SetMeta(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put([]byte(key), []byte(value))
	})
}

func (s *Store) GetMeta(key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(metaBucket).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("meta %s: %w", key, ErrNotFound)
		}
		value = string(data)
		return nil
	})
	return value, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
