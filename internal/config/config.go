// Package config holds tuning defaults, selector lists, and the phrase
// and pattern tables the extraction pipeline treats as data.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// CrawlConfig contains the general crawl tuning knobs. The hardcoded
// defaults mirror the original tuning constants; none of them are
// normative beyond "good enough heuristic".
type CrawlConfig struct {
	UserAgent           string        `yaml:"userAgent"`
	URLTimeout          time.Duration `yaml:"urlTimeout"`
	FetchTimeout        time.Duration `yaml:"fetchTimeout"`
	RenderTimeout       time.Duration `yaml:"renderTimeout"`
	MaxConcurrency      int           `yaml:"maxConcurrency"`
	MinContentLength    int           `yaml:"minContentLength"`
	SizeLimitBytes      int           `yaml:"sizeLimitBytes"`
	MaxRetries          int           `yaml:"maxRetries"`
	ImageBatchSize      int           `yaml:"imageBatchSize"`
	ImageBatchPause     time.Duration `yaml:"imageBatchPause"`
	ImageValidateBudget time.Duration `yaml:"imageValidateBudget"`
	AggregatorHost      string        `yaml:"aggregatorHost"`
}

// DefaultCrawlConfig returns the default crawl configuration.
func DefaultCrawlConfig() CrawlConfig {
	chromeMajor := 133
	if env := os.Getenv("NEWSCRAWL_CHROME_MAJOR"); env != "" {
		if parsed, err := strconv.Atoi(env); err == nil {
			chromeMajor = parsed
		}
	}

	userAgent := os.Getenv("NEWSCRAWL_USER_AGENT")
	if userAgent == "" {
		userAgent = fmt.Sprintf("Mozilla/5.0 (Windows NT 10; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/%d.0.6943.126 Safari/537.36", chromeMajor)
	}

	return CrawlConfig{
		UserAgent:           userAgent,
		URLTimeout:          60 * time.Second,
		FetchTimeout:        18 * time.Second,
		RenderTimeout:       40 * time.Second,
		MaxConcurrency:      6,
		MinContentLength:    300,
		SizeLimitBytes:      6_000_000,
		MaxRetries:          2,
		ImageBatchSize:      3,
		ImageBatchPause:     250 * time.Millisecond,
		ImageValidateBudget: 10 * time.Second,
		AggregatorHost:      "news.google.com",
	}
}

// Load reads a yaml config file over the defaults. A missing path is
// not an error; the defaults apply.
func Load(path string) (CrawlConfig, error) {
	cfg := DefaultCrawlConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Title selectors tried in order by the selector strategy.
var TitleSelectors = []string{
	"h1[itemprop='headline']",
	".article-title",
	".entry-title",
	".post-title",
	".headline",
	"h1",
}

// Content container selectors, ordered from specific to generic.
var ContentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	"[itemprop='articleBody']",
	".article-body",
	".article-content",
	".story-content",
	".post-content",
	".entry-content",
	".content",
}

// Broader containers the selector strategy escalates to when the best
// specific match is under the minimum content length.
var BroadContentSelectors = []string{
	"#main",
	"#content",
	".main",
	"body",
}

// Author selectors tried before the well-known meta tags.
var AuthorSelectors = []string{
	"[rel='author']",
	"[itemprop='author'] [itemprop='name']",
	"[itemprop='author']",
	".author-name",
	".byline__name",
	".byline",
	".author",
}

// DateSelectors locate a machine-readable publish date in the markup.
var DateSelectors = []string{
	"time[datetime]",
	"[itemprop='datePublished']",
	".published-date",
	".post-date",
}

// Fallback image containers used when a strategy supplies no content
// scope of its own.
var ImageFallbackSelectors = []string{
	"article img",
	"main img",
	"[itemprop='articleBody'] img",
	".article-body img",
	".post-content img",
	".entry-content img",
}

// Structural and ad/consent containers removed wholesale by CleanHTML.
var NoiseSelectors = []string{
	"nav", "header", "footer", "aside", "form", "iframe",
	".sidebar", ".related-posts", ".social-share", ".comments",
	".ad-banner", ".advertisement", "[class*='sponsor']",
	"[id*='taboola']", "[id*='outbrain']",
	"[class*='cookie-banner']", "[class*='cookie-consent']",
	"[id*='cookie-consent']", "[class*='gdpr']", "[id*='gdpr']",
	"[class*='consent-modal']", "[id*='consent']",
}

// Consent wall indicator phrases, matched case-insensitively.
var ConsentPhrases = []string{
	"before you continue",
	"consent.google.com",
	"we value your privacy",
	"accept all & continue",
	"zustimmen und weiter",
	"j'accepte les cookies",
	"manage consent preferences",
}

// Phrases that mark a page as unusable without script execution.
var RenderingIndicatorPhrases = []string{
	"javascript is required",
	"enable javascript",
	"please turn on javascript",
	"browser does not support javascript",
	"checking your browser",
	"verifying you are human",
	"opening the article",
}

// SanitizeRule is one pattern→replacement step of the text cleaning
// pipeline; rules are evaluated in list order.
type SanitizeRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// ScriptFragmentRules strips leftover script/JSON fragments that
// survive HTML stripping on badly escaped pages.
var ScriptFragmentRules = []SanitizeRule{
	{regexp.MustCompile(`(?m)^.*\bwindow\.[A-Za-z_$][\w$]*\s*=.*$`), ""},
	{regexp.MustCompile(`(?m)^.*\bdocument\.(write|getElementById|querySelector)\b.*$`), ""},
	{regexp.MustCompile(`(?m)^.*\bfunction\s*\(.*$`), ""},
	{regexp.MustCompile(`(?m)^.*\bvar\s+[A-Za-z_$][\w$]*\s*=.*$`), ""},
	{regexp.MustCompile(`(?m)^\s*[\[{]\s*"[^"\n]*"\s*:.*$`), ""},
	{regexp.MustCompile(`\{\s*"[^"{}\n]+"\s*:\s*[^{}\n]*\}`), ""},
}

// ConsentBoilerplateRules removes cookie/consent boilerplate phrases.
var ConsentBoilerplateRules = []SanitizeRule{
	{regexp.MustCompile(`(?im)^.*\b(we|this (web)?site) use[s]? cookies\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\baccept (all )?cookies\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\bby clicking ["']?(accept|agree)\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\bcookie (settings|preferences|policy)\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\bmanage your (consent|privacy) (choices|settings)\b.*$`), ""},
}

// AdBoilerplateRules removes ad and subscription boilerplate phrases.
var AdBoilerplateRules = []SanitizeRule{
	{regexp.MustCompile(`(?im)^\s*advertisement\s*$`), ""},
	{regexp.MustCompile(`(?im)^\s*sponsored( content)?\s*$`), ""},
	{regexp.MustCompile(`(?im)^.*\bsubscribe (now|today|to (our|the) newsletter)\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\bsign up for (our|the) (newsletter|daily briefing)\b.*$`), ""},
	{regexp.MustCompile(`(?im)^.*\balready a subscriber\?.*$`), ""},
	{regexp.MustCompile(`(?im)^\s*(read|see) (more|also)\s*:?.*$`), ""},
}

// CompileRegexes pre-compiles the shared regex table.
func CompileRegexes() map[string]*regexp.Regexp {
	return map[string]*regexp.Regexp{
		"scriptBlock":   regexp.MustCompile(`(?is)<script\b.*?</script\s*>`),
		"styleBlock":    regexp.MustCompile(`(?is)<style\b.*?</style\s*>`),
		"noscriptBlock": regexp.MustCompile(`(?is)<noscript\b.*?</noscript\s*>`),
		"scriptOpen":    regexp.MustCompile(`(?is)<script\b[^>]*>?`),
		"eventHandler":  regexp.MustCompile(`(?i)\s+on[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`),
		"jsURL":         regexp.MustCompile(`(?i)(href|src)\s*=\s*("javascript:[^"]*"|'javascript:[^']*')`),
		"scriptText":    regexp.MustCompile(`(?i)(window\.|document\.|function\s*\(|\bvar\s+[A-Za-z_$])`),
		"tag":           regexp.MustCompile(`(?s)<[^>]*>`),
		"wordChar":      regexp.MustCompile(`[\p{L}\p{N}]`),
		"horizSpace":    regexp.MustCompile(`[ \t\f\r\x{00a0}]+`),
		"blankLines":    regexp.MustCompile(`\n{3,}`),
		"badImageHint":  regexp.MustCompile(`(?i)(sprite|icon|favicon|logo|avatar|emoji|placeholder|pixel|spacer|blank\.|1x1|tracker|beacon|adserver|/ads?/)`),
		"embeddedURL":   regexp.MustCompile(`https?://[A-Za-z0-9\-._~:/?#\[\]@!$&'()*+,;=%]+`),
		"feedPath":      regexp.MustCompile(`^/rss(/.*)$`),
	}
}
