// Package feed enumerates crawl seeds from RSS/Atom feeds. The core
// pipeline never polls feeds itself; this package sits at the boundary
// and hands the pipeline plain requests.
package feed

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"newscrawl/internal/models"
)

// Item is one feed entry, carrying the feed-supplied metadata the
// extraction pipeline uses as fallback values.
type Item struct {
	Link string
	Meta models.RequestMeta
}

// Reader parses feeds into crawl items.
type Reader struct {
	parser *gofeed.Parser
}

// NewReader creates a feed reader.
func NewReader(userAgent string) *Reader {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &Reader{parser: parser}
}

// Fetch downloads and parses one feed, returning its items in feed
// order. Entries without a link are skipped.
func (r *Reader) Fetch(ctx context.Context, feedURL, query string) ([]Item, error) {
	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if entry.Link == "" {
			continue
		}
		meta := models.RequestMeta{
			Source:       parsed.Title,
			Query:        query,
			OriginalLink: entry.Link,
			Title:        entry.Title,
			Description:  entry.Description,
			PublishedAt:  entry.PublishedParsed,
		}
		items = append(items, Item{Link: entry.Link, Meta: meta})
	}
	return items, nil
}
