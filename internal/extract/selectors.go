package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newscrawl/internal/config"
	"newscrawl/internal/images"
	"newscrawl/internal/models"
	"newscrawl/internal/sanitize"
)

// selectorStrategy tries ordered CSS selector lists for the title and
// the content container, escalating to broader containers when the best
// specific match is too short.
type selectorStrategy struct {
	cfg       config.CrawlConfig
	sanitizer *sanitize.Sanitizer
	collector *images.Collector
	meta      *metaExtractor
}

func (s *selectorStrategy) Name() string { return "selector" }

func (s *selectorStrategy) Extract(html, pageURL string) models.Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Candidate{Method: s.Name(), Images: []models.ImageCandidate{}}
	}

	title := s.title(doc)
	content, text := s.content(doc)

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
	candidate.Images = s.collector.Collect(doc, content, pageURL)
	return candidate
}

// title takes the first non-empty match: og/twitter meta first, then the
// heading selector list, then the document title.
func (s *selectorStrategy) title(doc *goquery.Document) string {
	if v := findMetaTag(doc, "og:title", ""); v != "" {
		return s.sanitizer.CleanText(v)
	}
	if v := findMetaTag(doc, "", "twitter:title"); v != "" {
		return s.sanitizer.CleanText(v)
	}
	for _, selector := range config.TitleSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				return s.sanitizer.CleanText(text)
			}
		}
	}
	return s.sanitizer.CleanText(doc.Find("title").First().Text())
}

// content returns the first container whose extracted text is long
// enough, falling back to the best broad container otherwise.
func (s *selectorStrategy) content(doc *goquery.Document) (*goquery.Selection, string) {
	var bestSel *goquery.Selection
	var bestText string

	for _, selector := range config.ContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := s.sanitizer.CleanText(structuredText(sel))
		if len(text) > s.cfg.MinContentLength {
			return sel, text
		}
		if len(text) > len(bestText) {
			bestSel, bestText = sel, text
		}
	}

	for _, selector := range config.BroadContentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		text := s.sanitizer.CleanText(structuredText(sel))
		if len(text) > len(bestText) {
			bestSel, bestText = sel, text
		}
	}

	return bestSel, bestText
}

// structuredText flattens the text-bearing elements of a container,
// keeping paragraph boundaries as newlines.
func structuredText(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Find("p, h2, h3, h4, h5, h6, li, blockquote").Each(func(i int, el *goquery.Selection) {
		text := strings.TrimSpace(el.Text())
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(text)
	})
	if b.Len() > 0 {
		return b.String()
	}
	return strings.TrimSpace(sel.Text())
}
