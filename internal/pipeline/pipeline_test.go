package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newscrawl/internal/adapt"
	"newscrawl/internal/config"
	"newscrawl/internal/extract"
	"newscrawl/internal/models"
	"newscrawl/internal/resolver"
)

// stubFetcher serves canned HTML per URL and records cookie injections.
type stubFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	cookies []*http.Cookie
	fetched []string
}

func (f *stubFetcher) Fetch(ctx context.Context, target string) (string, string, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, target)
	f.mu.Unlock()

	html, ok := f.pages[target]
	if !ok {
		return "", "", fmt.Errorf("connection refused")
	}
	return html, target, nil
}

func (f *stubFetcher) SetCookies(u *url.URL, cookies []*http.Cookie) {
	f.mu.Lock()
	f.cookies = append(f.cookies, cookies...)
	f.mu.Unlock()
}

// stubRenderer answers every URL with one canned page and records
// injected cookies.
type stubRenderer struct {
	html string
	err  error

	mu      sync.Mutex
	calls   int
	cookies []*http.Cookie
}

func (r *stubRenderer) FetchRendered(ctx context.Context, target string) (string, string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.err != nil {
		return "", "", r.err
	}
	return r.html, target, nil
}

func (r *stubRenderer) SetCookies(u *url.URL, cookies []*http.Cookie) {
	r.mu.Lock()
	r.cookies = append(r.cookies, cookies...)
	r.mu.Unlock()
}

// okHeadClient answers 200 for every HEAD request.
type okHeadClient struct{}

func (okHeadClient) Head(context.Context, string) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK}, nil
}

type memSink struct {
	mu      sync.Mutex
	records []models.ArticleRecord
}

func (s *memSink) Emit(ctx context.Context, record models.ArticleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func articleHTML() string {
	body := strings.Repeat("<p>Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua ipsum.</p>", 3)
	return `<html><head><title>Test - Example News</title>
<meta property="og:image" content="https://cdn.example.com/hero.jpg"></head>
<body><h1>Test</h1><article>` + body + `</article></body></html>`
}

func newTestPipeline(t *testing.T, fetcher Fetcher, renderer Renderer) (*Pipeline, *memSink) {
	t.Helper()

	cfg := config.DefaultCrawlConfig()
	cfg.MaxConcurrency = 2

	res := resolver.New(cfg)
	controller := adapt.NewController(cfg, adapt.NewPolicyStore(), res, okHeadClient{}, zerolog.Nop())
	sink := &memSink{}
	p := New(cfg, res, extract.NewEngine(cfg), controller, fetcher, renderer, sink, zerolog.Nop())
	return p, sink
}

func TestProcessEmitsArticleRecord(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{
		"https://example.com/story": articleHTML(),
	}}
	p, sink := newTestPipeline(t, fetcher, nil)

	p.Process(context.Background(), Request{
		URL:  "https://example.com/story",
		Meta: models.RequestMeta{Source: "Example News", Query: "test"},
	})

	require.Len(t, sink.records, 1)
	assert.Empty(t, p.Failures())

	record := sink.records[0]
	assert.Equal(t, "Test", record.Title)
	assert.Equal(t, "Example News", record.Source)
	assert.Equal(t, "https://example.com/story", record.OriginalLink)
	require.Len(t, record.Images, 1)
	assert.Equal(t, "https://cdn.example.com/hero.jpg", record.Images[0].URL)
	assert.False(t, record.CrawledAt.IsZero())
}

func TestProcessRecordsFailureOnFetchError(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	p, sink := newTestPipeline(t, fetcher, nil)

	p.Process(context.Background(), Request{URL: "https://down.example.com/story"})

	assert.Empty(t, sink.records)
	failures := p.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "https://down.example.com/story", failures[0].URL)
	assert.Contains(t, failures[0].Reason, "connection refused")
}

func TestProcessEscalatesToRendererOnIndicator(t *testing.T) {
	blocked := `<html><body><noscript><h1>JavaScript is required</h1></noscript></body></html>`
	fetcher := &stubFetcher{pages: map[string]string{
		"https://dynamic.example.com/story": blocked,
	}}
	renderer := &stubRenderer{html: articleHTML()}
	p, sink := newTestPipeline(t, fetcher, renderer)

	p.Process(context.Background(), Request{URL: "https://dynamic.example.com/story"})

	require.Len(t, sink.records, 1)
	assert.Equal(t, 1, renderer.calls)
	assert.Equal(t, "Test", sink.records[0].Title)
}

func TestProcessWithoutRendererReportsEscalationFailure(t *testing.T) {
	blocked := `<html><body><noscript><h1>JavaScript is required</h1></noscript></body></html>`
	fetcher := &stubFetcher{pages: map[string]string{
		"https://dynamic.example.com/story": blocked,
	}}
	p, sink := newTestPipeline(t, fetcher, nil)

	p.Process(context.Background(), Request{URL: "https://dynamic.example.com/story"})

	// No record without escalation; the failure carries the rendering
	// signal for the dispatcher.
	assert.Empty(t, sink.records)
	failures := p.Failures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Reason, "enhanced rendering required")
	assert.Equal(t, 1, failures[0].RetryCount)
}

func TestProcessUndecodableAggregatorLinkGoesStraightToRenderer(t *testing.T) {
	aggregator := "https://news.google.com/articles/CAIiEOpaque"
	renderer := &stubRenderer{html: articleHTML()}
	fetcher := &stubFetcher{pages: map[string]string{}}
	p, sink := newTestPipeline(t, fetcher, renderer)

	p.Process(context.Background(), Request{URL: aggregator})

	// The lightweight path is never tried for aggregator article links.
	assert.Empty(t, fetcher.fetched)
	assert.Equal(t, 1, renderer.calls)
	require.Len(t, sink.records, 1)
}

func TestProcessConsentBypassRetry(t *testing.T) {
	consentWall := `<html><body><h1>Before you continue</h1><button>Accept all</button></body></html>`
	target := "https://example.com/story"

	fetcher := &consentFetcher{wall: consentWall, article: articleHTML()}
	p, sink := newTestPipeline(t, fetcher, nil)

	p.Process(context.Background(), Request{URL: target})

	require.Len(t, sink.records, 1)
	assert.Equal(t, 2, fetcher.calls)
	require.NotEmpty(t, fetcher.cookies)
	assert.Equal(t, "CONSENT", fetcher.cookies[0].Name)
}

// consentFetcher serves the consent wall until cookies are injected.
type consentFetcher struct {
	wall    string
	article string

	mu      sync.Mutex
	calls   int
	cookies []*http.Cookie
}

func (f *consentFetcher) Fetch(ctx context.Context, target string) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.cookies) == 0 {
		return f.wall, target, nil
	}
	return f.article, target, nil
}

func (f *consentFetcher) SetCookies(u *url.URL, cookies []*http.Cookie) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cookies = append(f.cookies, cookies...)
}

func TestEscalatedRetryCarriesConsentCookies(t *testing.T) {
	// The wall survives the cookie bypass and also demands scripts, so
	// the pipeline escalates; the renderer must start with the bypass
	// cookies already injected.
	wall := `<html><body><h1>Before you continue</h1><p>Please enable JavaScript and accept cookies.</p></body></html>`
	fetcher := &stubFetcher{pages: map[string]string{
		"https://example.com/story": wall,
	}}
	renderer := &stubRenderer{html: articleHTML()}
	p, sink := newTestPipeline(t, fetcher, renderer)

	p.Process(context.Background(), Request{URL: "https://example.com/story"})

	require.Len(t, sink.records, 1)
	assert.Equal(t, 1, renderer.calls)
	require.NotEmpty(t, renderer.cookies)
	assert.Equal(t, "CONSENT", renderer.cookies[0].Name)
	assert.Equal(t, ".example.com", renderer.cookies[0].Domain)
}

func TestRunBoundedAndOneResultPerURL(t *testing.T) {
	pages := map[string]string{}
	var requests []Request
	for i := 0; i < 10; i++ {
		u := fmt.Sprintf("https://example.com/story-%d", i)
		if i%2 == 0 {
			pages[u] = articleHTML()
		}
		requests = append(requests, Request{URL: u})
	}

	fetcher := &stubFetcher{pages: pages}
	p, sink := newTestPipeline(t, fetcher, nil)

	p.Run(context.Background(), requests)

	assert.Len(t, sink.records, 5)
	assert.Len(t, p.Failures(), 5)
	// Every URL produced exactly one outcome.
	seen := map[string]int{}
	for _, r := range sink.records {
		seen[r.URL]++
	}
	for _, f := range p.Failures() {
		seen[f.URL]++
	}
	for u, n := range seen {
		assert.Equal(t, 1, n, "url %s", u)
	}
	assert.Len(t, seen, 10)
}

func TestDrainFailures(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]string{}}
	p, _ := newTestPipeline(t, fetcher, nil)

	p.Process(context.Background(), Request{URL: "https://a.example.com/x"})
	p.Process(context.Background(), Request{URL: "https://b.example.com/y"})

	drained := p.DrainFailures()
	assert.Len(t, drained, 2)
	assert.Empty(t, p.Failures())
}

func TestProcessRendererErrorBecomesFailure(t *testing.T) {
	renderer := &stubRenderer{err: errors.New("browser crashed")}
	fetcher := &stubFetcher{pages: map[string]string{}}
	p, sink := newTestPipeline(t, fetcher, renderer)

	p.Process(context.Background(), Request{URL: "https://news.google.com/articles/CAIiEOpaque"})

	assert.Empty(t, sink.records)
	failures := p.Failures()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Reason, "browser crashed")
}
