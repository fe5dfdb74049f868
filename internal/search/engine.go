package search

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/pders01/newspulse/internal/news"
	"github.com/pders01/newspulse/internal/storage"
)

const (
	scanLimit    = 500
	recencyFresh = 7 * 24 * time.Hour
)

// Engine scores stored articles directly without an index. The server uses
// it when the bleve index cannot be opened.
type Engine struct {
	store *storage.Store
	now   func() time.Time
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store, now: time.Now}
}

type scored struct {
	article *storage.Article
	score   float64
}

// Search returns the best matching articles, highest score first.
func (e *Engine) Search(topic string, limit int) ([]news.Item, error) {
	if len(strings.TrimSpace(topic)) < 2 {
		return []news.Item{}, nil
	}

	terms := tokenize(topic)
	if len(terms) == 0 {
		return []news.Item{}, nil
	}

	articles, err := e.store.GetArticles("", scanLimit)
	if err != nil {
		return nil, err
	}

	var results []scored
	for _, a := range articles {
		if s := e.scoreArticle(a, terms); s > 0 {
			results = append(results, scored{article: a, score: s})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	items := make([]news.Item, 0, len(results))
	for _, r := range results {
		items = append(items, itemFromArticle(r.article))
	}
	return items, nil
}

func (e *Engine) scoreArticle(a *storage.Article, terms []string) float64 {
	total := scoreField(a.Title, terms, 4.0) +
		scoreField(a.Content, terms, 1.0) +
		scoreField(a.URL, terms, 0.5)

	if total > 0 && !a.Published.IsZero() {
		total *= 1.0 + recencyBoost(e.now().Sub(a.Published))
	}
	return total
}

// scoreField calculates relevance score for a field
func scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)
	if len(words) == 0 {
		return 0
	}

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		if strings.Contains(lower, term) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			switch {
			case word == term:
				score += 1.5
				matchedTerms++
			case strings.HasPrefix(word, term) || strings.HasSuffix(word, term):
				score += 1.0
				matchedTerms++
			case strings.Contains(word, term):
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	tf := float64(matchedTerms) / float64(len(words))
	score *= 1.0 + math.Log(1.0+tf)

	return score * weight
}

// recencyBoost gives up to 10% to articles from the last week, fading
// linearly with age.
func recencyBoost(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	if age >= recencyFresh {
		return 0
	}
	return 0.1 * (1 - float64(age)/float64(recencyFresh))
}

// tokenize breaks text into lowercase searchable terms
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}
