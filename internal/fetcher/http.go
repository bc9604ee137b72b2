// Package fetcher is the fetch layer: a lightweight HTTP path and a
// script-capable rendered path behind one Client. The crawl core only
// consumes fetched HTML; escalation between the two paths is decided by
// the adaptation controller.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"newscrawl/internal/config"
	"newscrawl/internal/models"
)

const maxRedirects = 5

// Client fetches pages over plain HTTP with browser-like headers,
// retrying transient failures with exponential backoff.
type Client struct {
	httpClient *http.Client
	jar        *cookiejar.Jar
	cfg        config.CrawlConfig
	log        zerolog.Logger
}

// NewClient builds the HTTP fetch client with connection pooling and a
// cookie jar for session/consent cookies.
func NewClient(cfg config.CrawlConfig, log zerolog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.FetchTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		jar: jar,
		cfg: cfg,
		log: log,
	}, nil
}

// SetCookies injects session cookies (consent bypass values) for the
// given URL. This is the session hook the adaptation controller feeds.
func (c *Client) SetCookies(u *url.URL, cookies []*http.Cookie) {
	c.jar.SetCookies(u, cookies)
}

// Head performs a bare HEAD request; used for image validation. The
// context deadline aborts the request, overriding the longer fetch
// timeout of the client.
func (c *Client) Head(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	return c.httpClient.Do(req)
}

// Fetch retrieves a page over plain HTTP. Transient failures (network
// errors and 5xx responses) are retried with exponential backoff;
// client errors are terminal.
func (c *Client) Fetch(ctx context.Context, targetURL string) (string, string, error) {
	var html, finalURL string

	operation := func() error {
		var err error
		html, finalURL, err = c.fetchOnce(ctx, targetURL)
		if err == nil {
			return nil
		}
		var httpErr *models.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(c.cfg.MaxRetries)), ctx))
	if err != nil {
		return "", "", err
	}
	return html, finalURL, nil
}

func (c *Client) fetchOnce(ctx context.Context, targetURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", "", &models.HTTPError{StatusCode: resp.StatusCode, URL: targetURL}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "html") {
		return "", "", fmt.Errorf("non-HTML content-type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(c.cfg.SizeLimitBytes)))
	if err != nil {
		return "", "", fmt.Errorf("read response: %w", err)
	}

	finalURL := targetURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return string(body), finalURL, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}
