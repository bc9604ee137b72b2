// Package sanitize strips scripts, styles, and boilerplate from raw
// HTML and from extracted plain text. Both entry points are pure string
// transforms: no I/O, never an error. CleanText output is never longer
// than its input. CleanHTML re-serializes the whole document — head
// metadata and the html lang attribute must survive for the extraction
// strategies — so a bare fragment gains the standard document wrappers.
package sanitize

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"newscrawl/internal/config"
)

// Sanitizer owns the compiled cleaning rules.
type Sanitizer struct {
	policy  *bluemonday.Policy
	regexes map[string]*regexp.Regexp
}

// New creates a Sanitizer with the default rule tables.
func New() *Sanitizer {
	return &Sanitizer{
		policy:  bluemonday.StrictPolicy(),
		regexes: config.CompileRegexes(),
	}
}

// CleanHTML removes script/style/noscript blocks (content included),
// inline event handlers, javascript: URLs, and the structural/ad/consent
// noise containers. A final pass drops any element whose text still
// carries script-like fragments from badly escaped markup.
func (s *Sanitizer) CleanHTML(rawHTML string) string {
	cleaned := s.regexes["scriptBlock"].ReplaceAllString(rawHTML, "")
	cleaned = s.regexes["styleBlock"].ReplaceAllString(cleaned, "")
	cleaned = s.regexes["noscriptBlock"].ReplaceAllString(cleaned, "")
	// Unterminated script tags survive the block regex; kill the open
	// tag so nothing downstream ever sees "<script".
	cleaned = s.regexes["scriptOpen"].ReplaceAllString(cleaned, "")
	cleaned = s.regexes["eventHandler"].ReplaceAllString(cleaned, "")
	cleaned = s.regexes["jsURL"].ReplaceAllString(cleaned, `$1="#"`)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return cleaned
	}

	doc.Find(strings.Join(config.NoiseSelectors, ", ")).Remove()

	// Second line of defense: an element whose visible text is mostly
	// script fragments was mis-escaped server side.
	scriptText := s.regexes["scriptText"]
	doc.Find("p, div, span, section").Each(func(i int, sel *goquery.Selection) {
		if sel.Children().Length() == 0 && scriptText.MatchString(sel.Text()) {
			sel.Remove()
		}
	})

	// Serialize the whole document so head metadata survives for the
	// meta-tag lookups downstream.
	out, err := doc.Html()
	if err != nil || out == "" {
		return cleaned
	}
	return out
}

// CleanText runs the ordered rule lists over extracted plain text:
// markup stripping, script/JSON fragment removal, consent and ad
// boilerplate removal, whitespace normalization, and removal of lines
// without word characters. Idempotent.
func (s *Sanitizer) CleanText(raw string) string {
	if raw == "" {
		return ""
	}

	text := s.stripMarkup(raw)

	for _, rule := range config.ScriptFragmentRules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}
	for _, rule := range config.ConsentBoilerplateRules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}
	for _, rule := range config.AdBoilerplateRules {
		text = rule.Pattern.ReplaceAllString(text, rule.Replacement)
	}

	return s.normalizeWhitespace(text)
}

// stripMarkup removes tags and resolves entities until neither pass
// changes the text, so a repeated CleanText has nothing left to strip.
func (s *Sanitizer) stripMarkup(text string) string {
	for i := 0; i < 3; i++ {
		stripped := s.regexes["tag"].ReplaceAllString(s.policy.Sanitize(text), "")
		unescaped := html.UnescapeString(stripped)
		if unescaped == text {
			return text
		}
		text = unescaped
	}
	return s.regexes["tag"].ReplaceAllString(text, "")
}

func (s *Sanitizer) normalizeWhitespace(text string) string {
	text = s.regexes["horizSpace"].ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	wordChar := s.regexes["wordChar"]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			kept = append(kept, "")
			continue
		}
		if !wordChar.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}

	text = strings.Join(kept, "\n")
	text = s.regexes["blankLines"].ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
