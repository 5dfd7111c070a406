package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/deep-research/internal/config"
)

const (
	defaultLocalTimeout = 10 * time.Second
	defaultMaxBody      = 512 * 1024
	defaultUserAgent    = "Mozilla/5.0 (compatible; deep-research/1.0)"
	minPageBytes        = 100
)

// LocalScraper fetches HTML via net/http, detects blocks, and extracts
// readable text. Free, no API calls. The chain falls through to Jina and
// Firecrawl when it is blocked.
type LocalScraper struct {
	client    *http.Client
	userAgent string
	maxBody   int64
	limiter   *HostLimiter
	documents *PathMatcher
}

// NewLocalScraper creates a LocalScraper from the scrape settings. limiter
// may be nil.
func NewLocalScraper(cfg config.ScrapeConfig, limiter *HostLimiter) *LocalScraper {
	timeout := defaultLocalTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &LocalScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
			},
		},
		userAgent: ua,
		maxBody:   maxBody,
		limiter:   limiter,
		documents: NewPathMatcher(documentPatterns),
	}
}

func (l *LocalScraper) Name() string { return "local_http" }

// Supports rejects binary documents, which only the reader proxies can
// turn into text.
func (l *LocalScraper) Supports(u string) bool {
	return !l.documents.IsExcluded(u)
}

// Scrape fetches a URL and returns its readable text. Blocked, failed and
// non-HTML responses are errors so the chain moves on.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	page, isHTML, err := l.fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if !isHTML {
		return nil, eris.Errorf("local_http: not html: %s", targetURL)
	}
	if page.Text == "" {
		return nil, eris.New("local_http: no readable text")
	}
	return page, nil
}

// FetchPage fetches a URL for image mining with its own timeout. A non-HTML
// response yields a nil page and no error.
func (l *LocalScraper) FetchPage(ctx context.Context, targetURL string, timeout time.Duration) (*Page, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	page, isHTML, err := l.fetch(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if !isHTML {
		return nil, nil
	}
	return page, nil
}

func (l *LocalScraper) fetch(ctx context.Context, targetURL string) (*Page, bool, error) {
	if err := l.limiter.Wait(ctx, targetURL); err != nil {
		return nil, false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, false, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, false, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return nil, false, eris.Wrap(err, "local_http: read body")
	}

	if blocked, blockType := DetectBlock(resp, body); blocked {
		return nil, false, eris.Errorf("local_http: blocked (%s)", blockType)
	}
	if resp.StatusCode >= 400 {
		return nil, false, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !IsHTMLContentType(contentType, body) {
		return nil, false, nil
	}
	if len(body) < minPageBytes {
		return nil, false, eris.New("local_http: empty page")
	}

	html := string(DecodeBody(body, contentType))
	doc, err := ParseDocument(html)
	if err != nil {
		return nil, false, err
	}

	return &Page{
		URL:        resp.Request.URL.String(),
		Title:      ExtractTitle(doc),
		HTML:       html,
		Text:       ExtractText(doc),
		StatusCode: resp.StatusCode,
		Source:     l.Name(),
	}, true, nil
}
