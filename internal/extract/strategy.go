// Package extract runs several independent extraction strategies over a
// page and keeps the best result by quality score.
package extract

import (
	"newscrawl/internal/config"
	"newscrawl/internal/images"
	"newscrawl/internal/models"
	"newscrawl/internal/sanitize"
)

// Strategy is one extraction approach. Implementations are pure: they
// take HTML and the page URL and return a fresh candidate, swallowing
// their own failures as Success=false.
type Strategy interface {
	Name() string
	Extract(html, pageURL string) models.Candidate
}

// Engine runs the strategy list in order and keeps the highest-scoring
// successful candidate. Strategy order is the tie-break.
type Engine struct {
	sanitizer  *sanitize.Sanitizer
	strategies []Strategy
}

// NewEngine builds the default engine: readability first, then the
// selector strategy, then the density fallback.
func NewEngine(cfg config.CrawlConfig) *Engine {
	sanitizer := sanitize.New()
	collector := images.NewCollector()
	meta := newMetaExtractor(sanitizer)

	selector := &selectorStrategy{
		cfg:       cfg,
		sanitizer: sanitizer,
		collector: collector,
		meta:      meta,
	}

	return &Engine{
		sanitizer: sanitizer,
		strategies: []Strategy{
			&readabilityStrategy{cfg: cfg, sanitizer: sanitizer, collector: collector, meta: meta},
			selector,
			&densityStrategy{cfg: cfg, sanitizer: sanitizer, collector: collector, meta: meta, titles: selector},
		},
	}
}

// Extract sanitizes the page once, runs every strategy independently,
// and returns the winner. When no strategy succeeds the zero-value
// candidate with Success=false is returned; that is a report, not an
// error.
func (e *Engine) Extract(rawHTML, pageURL string) models.Candidate {
	cleaned := e.sanitizer.CleanHTML(rawHTML)

	best := models.Candidate{Images: []models.ImageCandidate{}}
	for _, strategy := range e.strategies {
		candidate := strategy.Extract(cleaned, pageURL)
		if !candidate.Success {
			continue
		}
		candidate.Score = Score(candidate)
		if !best.Success || candidate.Score > best.Score {
			best = candidate
		}
	}
	return best
}
