// Package resolver canonicalizes aggregator redirect links into direct
// article URLs. Resolution is pure string work: no network I/O, and any
// parse problem falls back to returning the input unchanged.
package resolver

import (
	"encoding/base64"
	"net/url"
	"regexp"
	"strings"

	"newscrawl/internal/config"
)

// Resolver rewrites links issued by a news aggregator host.
type Resolver struct {
	aggregatorHost string
	embeddedURL    *regexp.Regexp
	feedPath       *regexp.Regexp
}

// New creates a Resolver for the configured aggregator host.
func New(cfg config.CrawlConfig) *Resolver {
	regexes := config.CompileRegexes()
	return &Resolver{
		aggregatorHost: cfg.AggregatorHost,
		embeddedURL:    regexes["embeddedURL"],
		feedPath:       regexes["feedPath"],
	}
}

// Resolve returns the direct article URL for an aggregator link, or the
// input unchanged when the link is not an aggregator link or cannot be
// decoded. It never fails.
func (r *Resolver) Resolve(rawLink string) string {
	u, err := url.Parse(rawLink)
	if err != nil || !r.isAggregatorHost(u.Hostname()) {
		return rawLink
	}

	// Explicit redirect target in the query string.
	if target := u.Query().Get("url"); target != "" {
		if _, err := url.Parse(target); err == nil {
			return target
		}
		return rawLink
	}

	// Feed-form paths are fetchable articles once rewritten to the
	// human-facing form; they are not a further redirect hop.
	if m := r.feedPath.FindStringSubmatch(u.Path); m != nil {
		rewritten := *u
		rewritten.Path = m[1]
		return rewritten.String()
	}

	// Opaque encoded token: best-effort decode. A hit is advisory only,
	// never proof the target is reachable.
	if token := articleToken(u.Path); token != "" {
		if target := r.decodeToken(token); target != "" {
			return target
		}
	}

	return rawLink
}

// IsAggregatorArticle reports whether the link still points at an
// aggregator article path after resolution. Such links always need the
// script-capable fetch path.
func (r *Resolver) IsAggregatorArticle(rawLink string) bool {
	u, err := url.Parse(rawLink)
	if err != nil || !r.isAggregatorHost(u.Hostname()) {
		return false
	}
	return articleToken(u.Path) != ""
}

func (r *Resolver) isAggregatorHost(host string) bool {
	host = strings.ToLower(host)
	return host == r.aggregatorHost || strings.HasSuffix(host, "."+r.aggregatorHost)
}

// articleToken extracts the opaque token from /articles/<token> or
// /read/<token> style paths.
func articleToken(path string) string {
	for _, prefix := range []string{"/articles/", "/read/"} {
		if rest, ok := strings.CutPrefix(path, prefix); ok {
			if idx := strings.IndexByte(rest, '/'); idx >= 0 {
				rest = rest[:idx]
			}
			return rest
		}
	}
	return ""
}

// decodeToken tries standard and URL-safe base64 on the token and scans
// the decoded bytes for an external http(s) URL.
func (r *Resolver) decodeToken(token string) string {
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding,
		base64.URLEncoding, base64.RawURLEncoding,
	} {
		decoded, err := enc.DecodeString(token)
		if err != nil {
			continue
		}
		for _, match := range r.embeddedURL.FindAllString(string(decoded), -1) {
			if mu, err := url.Parse(match); err == nil && !r.isAggregatorHost(mu.Hostname()) && mu.Hostname() != "" {
				return match
			}
		}
	}
	return ""
}
