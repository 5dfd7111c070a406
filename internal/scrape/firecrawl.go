package scrape

import (
	"context"

	"github.com/sells-group/deep-research/pkg/firecrawl"
)

// FirecrawlScraper wraps a Firecrawl client as the last-resort Scraper. It
// asks for HTML as well as markdown so image mining can use its pages.
type FirecrawlScraper struct {
	client firecrawl.Client
}

// NewFirecrawlScraper creates a FirecrawlScraper from a Firecrawl client.
func NewFirecrawlScraper(client firecrawl.Client) *FirecrawlScraper {
	return &FirecrawlScraper{client: client}
}

func (f *FirecrawlScraper) Name() string { return "firecrawl" }

// Supports returns true; Firecrawl can attempt any URL.
func (f *FirecrawlScraper) Supports(_ string) bool { return true }

// Scrape fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlScraper) Scrape(ctx context.Context, targetURL string) (*Page, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:             targetURL,
		Formats:         []string{"markdown", "html"},
		OnlyMainContent: true,
	})
	if err != nil {
		return nil, err
	}

	d := resp.Data
	finalURL := d.Metadata.SourceURL
	if finalURL == "" {
		finalURL = targetURL
	}
	title := d.Metadata.Title
	if title == "" {
		title = d.Title
	}
	status := d.Metadata.StatusCode
	if status == 0 {
		status = d.StatusCode
	}
	return &Page{
		URL:        finalURL,
		Title:      title,
		HTML:       d.HTML,
		Text:       d.Markdown,
		StatusCode: status,
		Source:     f.Name(),
	}, nil
}
