package feed

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/pders01/newspulse/internal/storage"
)

// Parsed is the result of parsing one feed document.
type Parsed struct {
	Title    string
	Articles []*storage.Article
}

type Parser struct {
	parser *gofeed.Parser
	policy *bluemonday.Policy
}

func NewParser() *Parser {
	return &Parser{
		parser: gofeed.NewParser(),
		policy: bluemonday.StrictPolicy(),
	}
}

func (p *Parser) Parse(reader io.Reader, sourceID string) (*Parsed, error) {
	feed, err := p.parser.Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	parsed := &Parsed{
		Title:    p.plainText(feed.Title),
		Articles: make([]*storage.Article, 0, len(feed.Items)),
	}
	for _, item := range feed.Items {
		article := &storage.Article{
			ID:       articleID(sourceID, item),
			SourceID: sourceID,
			Title:    p.plainText(item.Title),
			Content:  p.plainText(getContent(item)),
			URL:      item.Link,
		}

		switch {
		case item.PublishedParsed != nil:
			article.Published = *item.PublishedParsed
		case item.UpdatedParsed != nil:
			article.Published = *item.UpdatedParsed
		}

		parsed.Articles = append(parsed.Articles, article)
	}

	return parsed, nil
}

// plainText strips markup so article text can be shown as-is in a card.
func (p *Parser) plainText(s string) string {
	stripped := html.UnescapeString(p.policy.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

func getContent(item *gofeed.Item) string {
	if item.Content != "" {
		return item.Content
	}
	return item.Description
}

// articleID prefers the GUID, then the link. Items with neither get a
// name-based UUID so re-parsing the same feed does not duplicate them.
func articleID(sourceID string, item *gofeed.Item) string {
	switch {
	case item.GUID != "":
		return fmt.Sprintf("%s:%s", sourceID, item.GUID)
	case item.Link != "":
		return fmt.Sprintf("%s:%s", sourceID, item.Link)
	default:
		name := sourceID + "\x00" + item.Title + "\x00" + item.Published
		return fmt.Sprintf("%s:%s", sourceID, uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)))
	}
}
