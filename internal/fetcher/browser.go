package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"newscrawl/internal/config"
)

// Renderer is the enhanced fetch path: it loads a page in headless
// Chrome so script-built content and aggregator redirects resolve to a
// real article DOM.
type Renderer struct {
	cfg     config.CrawlConfig
	cookies []pendingCookie
	log     zerolog.Logger
}

type pendingCookie struct {
	url     *url.URL
	cookies []*http.Cookie
}

// NewRenderer creates the rendered fetch client.
func NewRenderer(cfg config.CrawlConfig, log zerolog.Logger) *Renderer {
	return &Renderer{cfg: cfg, log: log}
}

// SetCookies queues session cookies for injection before navigation.
func (r *Renderer) SetCookies(u *url.URL, cookies []*http.Cookie) {
	r.cookies = append(r.cookies, pendingCookie{url: u, cookies: cookies})
}

// FetchRendered loads the URL in headless Chrome and returns the
// post-script DOM plus the final URL after redirects.
func (r *Renderer) FetchRendered(ctx context.Context, targetURL string) (string, string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.RenderTimeout)
	defer cancel()

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, buildChromeOptions(r.cfg)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	tasks := chromedp.Tasks{}
	for _, pending := range r.cookies {
		tasks = append(tasks, setCookieTasks(pending)...)
	}

	var html, finalURL string
	tasks = append(tasks,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &html),
	)

	if err := chromedp.Run(browserCtx, tasks); err != nil {
		return "", "", fmt.Errorf("rendered fetch failed: %w", err)
	}

	r.log.Debug().Str("url", targetURL).Str("finalUrl", finalURL).
		Int("htmlBytes", len(html)).Msg("rendered fetch complete")
	return html, finalURL, nil
}

// setCookieTasks injects queued cookies through a scripted
// document.cookie write on the cookie's origin before navigation.
func setCookieTasks(pending pendingCookie) chromedp.Tasks {
	tasks := chromedp.Tasks{chromedp.Navigate(pending.url.Scheme + "://" + pending.url.Host + "/")}
	for _, cookie := range pending.cookies {
		script := fmt.Sprintf("document.cookie = %q", fmt.Sprintf(
			"%s=%s; domain=%s; path=%s", cookie.Name, cookie.Value, cookie.Domain, cookie.Path))
		tasks = append(tasks, chromedp.Evaluate(script, nil))
	}
	return tasks
}

func buildChromeOptions(cfg config.CrawlConfig) []chromedp.ExecAllocatorOption {
	return append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-images", true),
		chromedp.WindowSize(1366, 900),
		chromedp.UserAgent(cfg.UserAgent),
	)
}
