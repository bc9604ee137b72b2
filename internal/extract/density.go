package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"newscrawl/internal/config"
	"newscrawl/internal/images"
	"newscrawl/internal/models"
	"newscrawl/internal/sanitize"
)

// Paragraph bonus cap for the density score. A container with many
// short paragraphs should not outrank a genuinely dense one.
const maxParagraphBonus = 10

// densityStrategy scores every block container by text-to-markup
// density plus a capped paragraph bonus and keeps the single best one
// as the article body.
type densityStrategy struct {
	cfg       config.CrawlConfig
	sanitizer *sanitize.Sanitizer
	collector *images.Collector
	meta      *metaExtractor
	titles    *selectorStrategy
}

func (s *densityStrategy) Name() string { return "density" }

func (s *densityStrategy) Extract(html, pageURL string) models.Candidate {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.Candidate{Method: s.Name(), Images: []models.ImageCandidate{}}
	}

	best := s.bestContainer(doc)

	var text string
	if best != nil {
		text = s.sanitizer.CleanText(structuredText(best))
	}

	candidate := models.Candidate{
		Title:       s.titles.title(doc),
		Text:        text,
		Author:      s.meta.author(doc),
		PublishedAt: s.meta.publishedAt(doc),
		Description: s.meta.description(doc),
		Language:    s.meta.language(doc),
		Method:      s.Name(),
		Success:     len(text) > s.cfg.MinContentLength,
	}
	candidate.Images = s.collector.Collect(doc, best, pageURL)
	return candidate
}

// bestContainer walks the block-level containers and keeps the one with
// the highest density score.
func (s *densityStrategy) bestContainer(doc *goquery.Document) *goquery.Selection {
	var best *goquery.Selection
	bestScore := 0.0

	doc.Find("article, main, section, div, td").Each(func(i int, sel *goquery.Selection) {
		score := densityScore(sel)
		if score > bestScore {
			best, bestScore = sel, score
		}
	})

	return best
}

// densityScore is textLength/htmlLength with a bonus proportional to
// the embedded paragraph count, capped so paragraph-heavy navigation
// grids cannot win on count alone.
func densityScore(sel *goquery.Selection) float64 {
	rawHTML, err := sel.Html()
	if err != nil || len(rawHTML) == 0 {
		return 0
	}
	textLen := len(strings.TrimSpace(sel.Text()))
	if textLen == 0 {
		return 0
	}

	density := float64(textLen) / float64(len(rawHTML))

	paragraphs := sel.Find("p").Length()
	if paragraphs > maxParagraphBonus {
		paragraphs = maxParagraphBonus
	}
	return density + 0.05*float64(paragraphs)
}
