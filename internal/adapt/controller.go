// Package adapt owns the crawl adaptation state: per-domain rendering
// policy, consent-wall detection and bypass, and throttled validation
// of collected image URLs.
package adapt

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"newscrawl/internal/config"
	"newscrawl/internal/resolver"
)

// Controller decides how a URL should be fetched and re-fetched. One
// instance is shared by all crawl workers of a run.
type Controller struct {
	cfg      config.CrawlConfig
	policies *PolicyStore
	resolver *resolver.Resolver
	head     HeadClient
	log      zerolog.Logger
}

// HeadClient issues the HEAD requests for image validation. The real
// HTTP client lives in the fetch layer; the controller only consumes
// this capability. The context carries the validation deadline, so a
// request in flight past the budget must abort.
type HeadClient interface {
	Head(ctx context.Context, url string) (*http.Response, error)
}

// NewController wires the controller with the injected policy store and
// HEAD client.
func NewController(cfg config.CrawlConfig, policies *PolicyStore, res *resolver.Resolver, head HeadClient, log zerolog.Logger) *Controller {
	return &Controller{
		cfg:      cfg,
		policies: policies,
		resolver: res,
		head:     head,
		log:      log,
	}
}

// IsConsentPage reports whether the HTML is a consent interstitial
// rather than article content.
func (c *Controller) IsConsentPage(html, pageURL string) bool {
	if u, err := url.Parse(pageURL); err == nil {
		if strings.Contains(strings.ToLower(u.Hostname()), "consent.") {
			return true
		}
	}
	lower := strings.ToLower(html)
	for _, phrase := range config.ConsentPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// BypassCookies returns the consent-acceptance cookies to inject into
// the session for a retry. The session itself is owned by the fetch
// layer.
func (c *Controller) BypassCookies(u *url.URL) []*http.Cookie {
	domain := "." + RegistrableDomain(u.Hostname())
	return []*http.Cookie{
		{Name: "CONSENT", Value: "YES+cb", Domain: domain, Path: "/"},
		{Name: "SOCS", Value: "CAI", Domain: domain, Path: "/"},
	}
}

// NeedsEnhancedRendering decides whether the page must be re-fetched
// through the script-capable path. Only called for pages fetched via
// the lightweight path; an already-rendered page is never re-checked.
// A positive indicator match durably flips the domain policy.
func (c *Controller) NeedsEnhancedRendering(pageURL, html string) bool {
	if c.resolver.IsAggregatorArticle(pageURL) {
		return true
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	domain := RegistrableDomain(u.Hostname())

	if c.policies.RequiresEnhancedRendering(domain) {
		return true
	}

	lower := strings.ToLower(html)
	for _, phrase := range config.RenderingIndicatorPhrases {
		if strings.Contains(lower, phrase) {
			c.policies.MarkRequiresEnhancedRendering(domain)
			c.log.Debug().Str("domain", domain).Str("indicator", phrase).
				Msg("domain flagged for enhanced rendering")
			return true
		}
	}
	return false
}
