package extract

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"newscrawl/internal/config"
	"newscrawl/internal/sanitize"
)

// metaExtractor holds the field lookups shared by every strategy:
// author, publish date, and description via explicit selectors first,
// well-known meta tags second.
type metaExtractor struct {
	sanitizer *sanitize.Sanitizer
}

func newMetaExtractor(s *sanitize.Sanitizer) *metaExtractor {
	return &metaExtractor{sanitizer: s}
}

// findMetaTag returns the content of the first meta tag whose property
// or name attribute matches.
func findMetaTag(doc *goquery.Document, property, name string) string {
	var value string
	doc.Find("meta").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if property != "" {
			if prop, exists := s.Attr("property"); exists && prop == property {
				if content, exists := s.Attr("content"); exists && strings.TrimSpace(content) != "" {
					value = strings.TrimSpace(content)
					return false
				}
			}
		}
		if name != "" {
			if n, exists := s.Attr("name"); exists && n == name {
				if content, exists := s.Attr("content"); exists && strings.TrimSpace(content) != "" {
					value = strings.TrimSpace(content)
					return false
				}
			}
		}
		return true
	})
	return value
}

func (m *metaExtractor) author(doc *goquery.Document) string {
	for _, selector := range config.AuthorSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			if text := strings.TrimSpace(sel.Text()); text != "" {
				return m.sanitizer.CleanText(text)
			}
			// Some sites put the name in the content attribute.
			if content, exists := sel.Attr("content"); exists && strings.TrimSpace(content) != "" {
				return m.sanitizer.CleanText(content)
			}
		}
	}
	if v := findMetaTag(doc, "article:author", "author"); v != "" && !strings.HasPrefix(v, "http") {
		return m.sanitizer.CleanText(v)
	}
	return ""
}

func (m *metaExtractor) publishedAt(doc *goquery.Document) *time.Time {
	var raw string
	for _, selector := range config.DateSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if dt, exists := sel.Attr("datetime"); exists && dt != "" {
			raw = dt
			break
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			raw = text
			break
		}
	}
	if raw == "" {
		raw = findMetaTag(doc, "article:published_time", "date")
	}
	if raw == "" {
		raw = findMetaTag(doc, "og:article:published_time", "publish-date")
	}
	if raw == "" {
		return nil
	}
	parsed, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	return &parsed
}

func (m *metaExtractor) description(doc *goquery.Document) string {
	if v := findMetaTag(doc, "og:description", ""); v != "" {
		return m.sanitizer.CleanText(v)
	}
	if v := findMetaTag(doc, "", "twitter:description"); v != "" {
		return m.sanitizer.CleanText(v)
	}
	if v := findMetaTag(doc, "", "description"); v != "" {
		return m.sanitizer.CleanText(v)
	}
	return ""
}

func (m *metaExtractor) language(doc *goquery.Document) string {
	if lang, exists := doc.Find("html").Attr("lang"); exists {
		return strings.TrimSpace(lang)
	}
	return findMetaTag(doc, "og:locale", "")
}
