package adapt

import (
	"net/url"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"newscrawl/internal/config"
	"newscrawl/internal/resolver"
)

func newTestController() *Controller {
	cfg := config.DefaultCrawlConfig()
	return NewController(cfg, NewPolicyStore(), resolver.New(cfg), nil, zerolog.Nop())
}

func TestIsConsentPage(t *testing.T) {
	c := newTestController()

	testCases := []struct {
		name     string
		html     string
		url      string
		expected bool
	}{
		{"consent_phrase", `<h1>Before you continue</h1>`, "https://example.com/a", true},
		{"consent_phrase_mixed_case", `<h1>BEFORE YOU CONTINUE to our site</h1>`, "https://example.com/a", true},
		{"consent_host", `<html></html>`, "https://consent.google.com/m?continue=x", true},
		{"article_body", `<article><p>Plain article text about the election.</p></article>`, "https://example.com/a", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.IsConsentPage(tc.html, tc.url))
		})
	}
}

func TestBypassCookies(t *testing.T) {
	c := newTestController()

	u, _ := url.Parse("https://www.example.co/article")
	cookies := c.BypassCookies(u)

	assert.Len(t, cookies, 2)
	assert.Equal(t, "CONSENT", cookies[0].Name)
	assert.Equal(t, ".example.co", cookies[0].Domain)
}

func TestNeedsEnhancedRenderingIndicators(t *testing.T) {
	c := newTestController()

	html := `<noscript><h1>JavaScript is required</h1></noscript>`
	assert.True(t, c.NeedsEnhancedRendering("https://slow-site.com/story", html))
}

func TestNeedsEnhancedRenderingFlipIsMonotonic(t *testing.T) {
	c := newTestController()

	// First call sees the indicator and flips the domain policy.
	assert.True(t, c.NeedsEnhancedRendering("https://www.dynamic.com/a", "<p>please enable JavaScript to view</p>"))

	// Indicator-free HTML for the same domain still answers true.
	assert.True(t, c.NeedsEnhancedRendering("https://dynamic.com/b", "<article><p>clean content</p></article>"))

	// Other domains are unaffected.
	assert.False(t, c.NeedsEnhancedRendering("https://static.com/c", "<article><p>clean content</p></article>"))
}

func TestNeedsEnhancedRenderingAggregatorArticle(t *testing.T) {
	c := newTestController()

	// An aggregator article link that survived resolution unchanged is
	// always dynamic, regardless of the fetched HTML.
	assert.True(t, c.NeedsEnhancedRendering("https://news.google.com/articles/opaque", "<article><p>teaser</p></article>"))
}

func TestPolicyStoreConcurrentFlip(t *testing.T) {
	store := NewPolicyStore()
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				store.MarkRequiresEnhancedRendering("racy.com")
				_ = store.RequiresEnhancedRendering("racy.com")
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.True(t, store.RequiresEnhancedRendering("racy.com"))
	assert.Len(t, store.Snapshot(), 1)
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.com", RegistrableDomain("www.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("a.b.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("example.com"))
	assert.Equal(t, "localhost", RegistrableDomain("localhost"))
}
