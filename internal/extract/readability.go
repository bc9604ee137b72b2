package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"newscrawl/internal/config"
	"newscrawl/internal/images"
	"newscrawl/internal/models"
	"newscrawl/internal/sanitize"
)

// readabilityStrategy locates the most readable region of the document
// with the Mozilla readability heuristic. It runs on sanitized HTML so
// script remnants cannot pollute the result.
type readabilityStrategy struct {
	cfg       config.CrawlConfig
	sanitizer *sanitize.Sanitizer
	collector *images.Collector
	meta      *metaExtractor
}

func (s *readabilityStrategy) Name() string { return "readability" }

func (s *readabilityStrategy) Extract(html, pageURL string) models.Candidate {
	failed := models.Candidate{Method: s.Name(), Images: []models.ImageCandidate{}}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		parsedURL = &url.URL{}
	}

	article, err := readability.FromReader(strings.NewReader(html), parsedURL)
	if err != nil {
		return failed
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return failed
	}

	title := s.sanitizer.CleanText(article.Title)
	if title == "" {
		title = s.sanitizer.CleanText(findMetaTag(doc, "og:title", ""))
	}
	text := s.sanitizer.CleanText(article.TextContent)

	candidate := models.Candidate{
		Title:       title,
		Text:        text,
		Author:      s.meta.author(doc),
		PublishedAt: s.meta.publishedAt(doc),
		Description: s.meta.description(doc),
		Language:    s.meta.language(doc),
		Method:      s.Name(),
		Success:     title != "" && len(text) > s.cfg.MinContentLength,
	}
	if candidate.Author == "" {
		candidate.Author = s.sanitizer.CleanText(article.Byline)
	}
	if candidate.Description == "" {
		candidate.Description = s.sanitizer.CleanText(article.Excerpt)
	}
	if candidate.PublishedAt == nil && article.PublishedTime != nil {
		candidate.PublishedAt = article.PublishedTime
	}

	// Scope image collection to the readable region readability found.
	var scope *goquery.Selection
	if article.Content != "" {
		if contentDoc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content)); err == nil {
			scope = contentDoc.Selection
		}
	}
	candidate.Images = s.collector.Collect(doc, scope, pageURL)

	return candidate
}
