// Package models defines the data types shared across the crawl core.
package models

import "time"

// Image source types, in collection priority order.
const (
	SourceMetaOG      = "meta-og"
	SourceMetaTwitter = "meta-twitter"
	SourceMetaSchema  = "meta-schema"
	SourceContent     = "content"
	SourcePicture     = "picture"
)

// Candidate is the result of a single extraction strategy run.
// It is created fresh per invocation and never mutated afterwards;
// the engine keeps only the highest-scoring candidate per page.
type Candidate struct {
	Title       string           `json:"title,omitempty"`
	Text        string           `json:"text,omitempty"`
	Author      string           `json:"author,omitempty"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
	Description string           `json:"description,omitempty"`
	Images      []ImageCandidate `json:"images"`
	Language    string           `json:"language,omitempty"`
	Method      string           `json:"method,omitempty"`
	Success     bool             `json:"success"`
	Score       int              `json:"score"`
}

// ImageCandidate is one collected image. Identity is the resolved
// absolute URL; collection dedups on it.
type ImageCandidate struct {
	URL        string `json:"url"`
	SourceType string `json:"sourceType"`
	Alt        string `json:"alt,omitempty"`
	Caption    string `json:"caption,omitempty"`
}

// DomainPolicy is the per-domain crawl memory shared by all workers.
// RequiresEnhancedRendering is monotone within a run: once flipped to
// true it never resets.
type DomainPolicy struct {
	Domain                    string    `json:"domain"`
	RequiresEnhancedRendering bool      `json:"requiresEnhancedRendering"`
	LastUpdatedAt             time.Time `json:"lastUpdatedAt"`
}

// RequestMeta carries caller-supplied metadata for one URL, used as
// extraction fallback when the strategies find nothing for a field.
type RequestMeta struct {
	Source       string     `json:"source,omitempty"`
	Query        string     `json:"query,omitempty"`
	OriginalLink string     `json:"originalLink,omitempty"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	PublishedAt  *time.Time `json:"publishedAt,omitempty"`
}

// ArticleRecord is the final output for a successfully processed URL.
// Ownership transfers to the sink immediately after creation.
type ArticleRecord struct {
	URL          string           `json:"url"`
	Title        string           `json:"title"`
	Text         string           `json:"text"`
	Author       string           `json:"author,omitempty"`
	PublishedAt  *time.Time       `json:"publishedAt,omitempty"`
	Description  string           `json:"description,omitempty"`
	Images       []ImageCandidate `json:"images"`
	Language     string           `json:"language,omitempty"`
	Method       string           `json:"method"`
	Score        int              `json:"score"`
	Source       string           `json:"source,omitempty"`
	Query        string           `json:"query,omitempty"`
	OriginalLink string           `json:"originalLink,omitempty"`
	CrawledAt    time.Time        `json:"crawledAt"`
}

// FailureRecord marks a URL that produced no usable content.
type FailureRecord struct {
	URL        string    `json:"url"`
	Reason     string    `json:"reason"`
	RetryCount int       `json:"retryCount"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewArticleRecord merges the winning candidate with the caller-supplied
// metadata, filling fields the strategies could not find.
func NewArticleRecord(url string, c Candidate, meta RequestMeta, crawledAt time.Time) ArticleRecord {
	rec := ArticleRecord{
		URL:          url,
		Title:        c.Title,
		Text:         c.Text,
		Author:       c.Author,
		PublishedAt:  c.PublishedAt,
		Description:  c.Description,
		Images:       c.Images,
		Language:     c.Language,
		Method:       c.Method,
		Score:        c.Score,
		Source:       meta.Source,
		Query:        meta.Query,
		OriginalLink: meta.OriginalLink,
		CrawledAt:    crawledAt,
	}
	if rec.Title == "" {
		rec.Title = meta.Title
	}
	if rec.Description == "" {
		rec.Description = meta.Description
	}
	if rec.PublishedAt == nil {
		rec.PublishedAt = meta.PublishedAt
	}
	if rec.Images == nil {
		rec.Images = []ImageCandidate{}
	}
	return rec
}
