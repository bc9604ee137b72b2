// Package images gathers, dedups, and classifies image candidates from
// page metadata and content markup. Collection is pure apart from URL
// resolution against the page URL; reachability checks live with the
// crawl adaptation controller.
package images

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newscrawl/internal/config"
	"newscrawl/internal/models"
)

// Collector extracts image candidates in a fixed priority order.
type Collector struct {
	badHint *regexp.Regexp
}

// NewCollector creates a Collector with the default decorative-image
// filter.
func NewCollector() *Collector {
	return &Collector{badHint: config.CompileRegexes()["badImageHint"]}
}

// Collect walks the document in collection order: og meta tags, twitter
// card tags, schema.org meta tags, images inside the content scope (or
// the fallback body selectors when no scope is given), and the first
// image of each picture element. Candidates are deduped by resolved
// absolute URL; the first occurrence wins the URL, later occurrences
// fill missing alt/caption metadata.
func (c *Collector) Collect(doc *goquery.Document, contentScope *goquery.Selection, baseURL string) []models.ImageCandidate {
	var base *url.URL
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			base = parsed
		}
	}

	seen := make(map[string]int)
	candidates := make([]models.ImageCandidate, 0, 8)

	add := func(rawURL, sourceType, alt, caption string) {
		abs := c.resolve(rawURL, base)
		if abs == "" {
			return
		}
		if idx, ok := seen[abs]; ok {
			if candidates[idx].Alt == "" {
				candidates[idx].Alt = alt
			}
			if candidates[idx].Caption == "" {
				candidates[idx].Caption = caption
			}
			return
		}
		seen[abs] = len(candidates)
		candidates = append(candidates, models.ImageCandidate{
			URL:        abs,
			SourceType: sourceType,
			Alt:        alt,
			Caption:    caption,
		})
	}

	doc.Find("meta[property='og:image'], meta[property='og:image:secure_url']").Each(func(i int, s *goquery.Selection) {
		if content, exists := s.Attr("content"); exists {
			add(content, models.SourceMetaOG, "", "")
		}
	})

	doc.Find("meta[name='twitter:image'], meta[name='twitter:image:src']").Each(func(i int, s *goquery.Selection) {
		if content, exists := s.Attr("content"); exists {
			add(content, models.SourceMetaTwitter, "", "")
		}
	})

	doc.Find("meta[itemprop='image']").Each(func(i int, s *goquery.Selection) {
		if content, exists := s.Attr("content"); exists {
			add(content, models.SourceMetaSchema, "", "")
		}
	})

	if contentScope != nil && contentScope.Length() > 0 {
		contentScope.Find("img").Each(func(i int, s *goquery.Selection) {
			c.addImg(add, s, models.SourceContent)
		})
	} else {
		doc.Find(strings.Join(config.ImageFallbackSelectors, ", ")).Each(func(i int, s *goquery.Selection) {
			c.addImg(add, s, models.SourceContent)
		})
	}

	doc.Find("picture").Each(func(i int, s *goquery.Selection) {
		if img := s.Find("img").First(); img.Length() > 0 {
			c.addImg(add, img, models.SourcePicture)
		}
	})

	return candidates
}

func (c *Collector) addImg(add func(rawURL, sourceType, alt, caption string), s *goquery.Selection, sourceType string) {
	src := imgSrc(s)
	if src == "" {
		return
	}
	alt, _ := s.Attr("alt")
	caption := strings.TrimSpace(s.Closest("figure").Find("figcaption").First().Text())
	add(src, sourceType, strings.TrimSpace(alt), caption)
}

// imgSrc reads src and the common lazy-load variants.
func imgSrc(s *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src", "data-original", "data-lazy-src"} {
		if v, exists := s.Attr(attr); exists && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// resolve returns the filtered absolute URL, or "" when the candidate
// is rejected. Relative URLs without a base are dropped, not guessed.
func (c *Collector) resolve(rawURL string, base *url.URL) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" || strings.HasPrefix(rawURL, "data:") {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if !parsed.IsAbs() {
		if base == nil {
			return ""
		}
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}

	abs := parsed.String()
	if c.badHint.MatchString(abs) {
		return ""
	}
	return abs
}
