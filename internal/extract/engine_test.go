package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/config"
)

// loremBody returns paragraph markup comfortably above the minimum
// content length.
func loremBody(paragraphs int) string {
	var b strings.Builder
	for i := 0; i < paragraphs; i++ {
		b.WriteString("<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris.</p>")
	}
	return b.String()
}

func articlePage(extraHead string) string {
	return fmt.Sprintf(`<html lang="en"><head><title>Test - Example News</title>%s</head>
<body><h1>Test</h1><article>%s</article></body></html>`, extraHead, loremBody(3))
}

func TestEngineExtractsArticleWithImage(t *testing.T) {
	engine := NewEngine(config.DefaultCrawlConfig())

	html := articlePage(`<meta property="og:image" content="https://cdn.example.com/hero.jpg">`)
	result := engine.Extract(html, "https://example.com/story")

	require.True(t, result.Success)
	assert.Equal(t, "Test", result.Title)
	assert.Greater(t, len(result.Text), 300)
	assert.Contains(t, result.Text, "Lorem ipsum dolor")
	require.Len(t, result.Images, 1)
	assert.Equal(t, "https://cdn.example.com/hero.jpg", result.Images[0].URL)
	assert.Greater(t, result.Score, 0)
	assert.NotEmpty(t, result.Method)
}

func TestEngineReturnsFailureCandidateWhenNothingExtractable(t *testing.T) {
	engine := NewEngine(config.DefaultCrawlConfig())

	result := engine.Extract(`<html><body><p>too short</p></body></html>`, "https://example.com/empty")

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.Text)
}

func TestEngineNeverPanicsOnGarbage(t *testing.T) {
	engine := NewEngine(config.DefaultCrawlConfig())

	inputs := []string{
		"",
		"not html at all",
		"<div><div><div>",
		"<html><body>" + strings.Repeat("<p></p>", 500),
	}
	for _, in := range inputs {
		result := engine.Extract(in, "https://example.com/x")
		assert.False(t, result.Success)
	}
}

func TestEngineStripsScriptContentFromText(t *testing.T) {
	engine := NewEngine(config.DefaultCrawlConfig())

	html := `<html><head><title>Clean</title></head><body><h1>Clean headline here</h1>
<article><script>window.ads = {"slot": 1};</script>` + loremBody(3) + `</article></body></html>`

	result := engine.Extract(html, "https://example.com/story")
	require.True(t, result.Success)
	assert.NotContains(t, result.Text, "window.ads")
	assert.NotContains(t, strings.ToLower(result.Text), "<script")
}

func TestSelectorStrategyMetadata(t *testing.T) {
	cfg := config.DefaultCrawlConfig()
	engine := NewEngine(cfg)
	strategy := engine.strategies[1].(*selectorStrategy)

	html := `<html lang="de"><head>
<title>fallback title</title>
<meta property="og:title" content="OG headline wins">
<meta property="og:description" content="A description of the article that is long enough to score points later.">
<meta property="article:published_time" content="2024-03-05T10:30:00Z">
</head><body>
<span class="byline">Jane Reporter</span>
<article>` + loremBody(3) + `</article>
</body></html>`

	c := strategy.Extract(html, "https://example.com/story")

	require.True(t, c.Success)
	assert.Equal(t, "OG headline wins", c.Title)
	assert.Equal(t, "Jane Reporter", c.Author)
	assert.Equal(t, "de", c.Language)
	require.NotNil(t, c.PublishedAt)
	assert.Equal(t, 2024, c.PublishedAt.Year())
	assert.Contains(t, c.Description, "description of the article")
}

func TestSelectorStrategyEscalatesToBroadContainers(t *testing.T) {
	cfg := config.DefaultCrawlConfig()
	engine := NewEngine(cfg)
	strategy := engine.strategies[1].(*selectorStrategy)

	// No specific content container; the text lives directly in body.
	html := `<html><head><title>Broad escalation headline</title></head><body>` + loremBody(3) + `</body></html>`

	c := strategy.Extract(html, "https://example.com/story")
	require.True(t, c.Success)
	assert.Greater(t, len(c.Text), cfg.MinContentLength)
}

func TestDensityStrategyPicksDensestContainer(t *testing.T) {
	cfg := config.DefaultCrawlConfig()
	engine := NewEngine(cfg)
	strategy := engine.strategies[2].(*densityStrategy)

	html := `<html><head><title>Density headline test</title></head><body>
<div id="chrome"><a href="/a">one</a><a href="/b">two</a><a href="/c">three</a><span>menu</span></div>
<div id="story">` + loremBody(4) + `</div>
</body></html>`

	c := strategy.Extract(html, "https://example.com/story")
	require.True(t, c.Success)
	assert.Contains(t, c.Text, "Lorem ipsum dolor")
	assert.NotContains(t, c.Text, "menu")
}

func TestEngineTieBreakKeepsFirstStrategy(t *testing.T) {
	engine := NewEngine(config.DefaultCrawlConfig())

	// Both the readability and selector strategies succeed on a clean
	// page; with equal scores the earlier strategy must win.
	html := articlePage(`<meta property="og:image" content="https://cdn.example.com/hero.jpg">`)
	result := engine.Extract(html, "https://example.com/story")

	require.True(t, result.Success)
	first := ""
	for _, s := range engine.strategies {
		c := s.Extract(engine.sanitizer.CleanHTML(html), "https://example.com/story")
		if c.Success {
			c.Score = Score(c)
			if first == "" && c.Score >= result.Score {
				first = s.Name()
			}
		}
	}
	assert.Equal(t, first, result.Method)
}
