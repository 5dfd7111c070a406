package search

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/deep-research/internal/config"
	"github.com/sells-group/deep-research/internal/model"
	"github.com/sells-group/deep-research/internal/resilience"
	"github.com/sells-group/deep-research/pkg/google"
)

// GoogleSearcher searches through Google Programmable Search. It never
// returns page content; the enricher fetches it.
type GoogleSearcher struct {
	client  google.Client
	timeout time.Duration
	guard   *resilience.Guard
}

// NewGoogleSearcher wraps a Google client with the configured timeout and
// retry policy.
func NewGoogleSearcher(client google.Client, cfg config.SearchConfig) *GoogleSearcher {
	return &GoogleSearcher{
		client:  client,
		timeout: timeout(cfg.TimeoutSecs),
		guard:   resilience.NewGuard("google_search", cfg.Retries),
	}
}

func (g *GoogleSearcher) Name() string { return "google" }

func (g *GoogleSearcher) Search(ctx context.Context, query string, k int) ([]model.Source, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := resilience.Call(ctx, g.guard, func(ctx context.Context) (*google.SearchResponse, error) {
		return g.client.Search(ctx, query, k)
	})
	if err != nil {
		return nil, eris.Wrap(err, "search: google")
	}

	items := resp.Items
	if k > 0 && len(items) > k {
		items = items[:k]
	}
	out := make([]model.Source, 0, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.Link) == "" {
			continue
		}
		out = append(out, model.Source{
			Title:   strings.TrimSpace(it.Title),
			URL:     it.Link,
			Snippet: strings.Join(strings.Fields(it.Snippet), " "),
			Score:   positionScore(i, len(items)),
		})
	}
	return out, nil
}
