// Package scrape fetches web pages for enrichment and image mining. Pages
// come from a chain of fetchers: direct HTTP first, then the Jina Reader
// proxy, then Firecrawl.
package scrape

import (
	"context"
)

// Page is a fetched web page.
type Page struct {
	URL        string // final URL after redirects
	Title      string
	HTML       string // raw markup, empty when the fetcher only returns text
	Text       string // readable text or markdown
	StatusCode int
	Source     string // fetcher name, e.g. "local_http", "jina"
}

// HasHTML reports whether raw markup is available for the page.
func (p *Page) HasHTML() bool {
	return p != nil && p.HTML != ""
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
	Name() string
	Supports(url string) bool
}
